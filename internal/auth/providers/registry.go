package providers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tramdoc/tramdoc/internal/models"
)

// ErrProviderExists is returned when attempting to register a provider more than once.
var ErrProviderExists = errors.New("provider registry: provider already registered")

// Registry dispatches token resolution to the resolver registered for a provider.
type Registry struct {
	mu        sync.RWMutex
	resolvers map[models.AuthProvider]Resolver
}

// NewRegistry constructs an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		resolvers: make(map[models.AuthProvider]Resolver),
	}
}

// Register binds a resolver to an external provider, enforcing uniqueness.
func (r *Registry) Register(provider models.AuthProvider, resolver Resolver) error {
	if !provider.IsExternal() {
		return fmt.Errorf("provider registry: %q is not an external provider", provider)
	}
	if resolver == nil {
		return errors.New("provider registry: resolver is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.resolvers[provider]; exists {
		return fmt.Errorf("%w: %s", ErrProviderExists, provider)
	}
	r.resolvers[provider] = resolver
	return nil
}

// Providers lists registered providers in name order.
func (r *Registry) Providers() []models.AuthProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.AuthProvider, 0, len(r.resolvers))
	for provider := range r.resolvers {
		out = append(out, provider)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Resolve looks up the provider's resolver and resolves the token into a normalised profile.
func (r *Registry) Resolve(ctx context.Context, provider models.AuthProvider, accessToken string) (*Profile, error) {
	r.mu.RLock()
	resolver, ok := r.resolvers[provider]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}

	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return nil, fmt.Errorf("%w: %s token is empty", ErrTokenInvalid, provider.DisplayName())
	}

	profile, err := resolver.Resolve(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	profile.Provider = provider
	if err := profile.normalise(); err != nil {
		return nil, err
	}
	return profile, nil
}
