// Package providers resolves third-party OAuth access tokens into account profiles.
package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tramdoc/tramdoc/internal/models"
)

const defaultTimeout = 10 * time.Second

var (
	// ErrTokenInvalid is returned when the provider rejects the presented token.
	ErrTokenInvalid = errors.New("providers: token rejected by provider")
	// ErrEmailMissing is returned when the provider profile carries no email address.
	ErrEmailMissing = errors.New("providers: provider did not supply an email")
	// ErrUpstream is returned when the provider could not be reached or failed server-side.
	ErrUpstream = errors.New("providers: provider unavailable")
	// ErrUnknownProvider is returned by the registry for unregistered providers.
	ErrUnknownProvider = errors.New("providers: unknown provider")
)

// Profile is the identity a provider vouches for.
type Profile struct {
	Provider  models.AuthProvider
	SubjectID string
	Email     string
	Name      string
	AvatarURL string
}

// Resolver turns a provider-issued token into a Profile.
type Resolver interface {
	Resolve(ctx context.Context, accessToken string) (*Profile, error)
}

// classifyStatus maps a non-2xx provider response onto the package sentinels.
func classifyStatus(provider models.AuthProvider, status int) error {
	switch {
	case status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s responded %d", ErrUpstream, provider.DisplayName(), status)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s rate limited the request", ErrUpstream, provider.DisplayName())
	default:
		return fmt.Errorf("%w: %s responded %d", ErrTokenInvalid, provider.DisplayName(), status)
	}
}

func (p *Profile) normalise() error {
	p.SubjectID = strings.TrimSpace(p.SubjectID)
	p.Email = models.NormalizeEmail(p.Email)
	p.Name = strings.TrimSpace(p.Name)
	p.AvatarURL = strings.TrimSpace(p.AvatarURL)

	if p.SubjectID == "" {
		return fmt.Errorf("%w: %s profile has no subject id", ErrTokenInvalid, p.Provider.DisplayName())
	}
	if p.Email == "" {
		return fmt.Errorf("%w: %s", ErrEmailMissing, p.Provider.DisplayName())
	}
	return nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
