package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/tramdoc/tramdoc/internal/models"
)

const (
	// DefaultGoogleUserInfoURL is Google's OpenID userinfo endpoint.
	DefaultGoogleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
	// DefaultGoogleIssuer is the issuer Google stamps on ID tokens.
	DefaultGoogleIssuer = "https://accounts.google.com"
	// DefaultGoogleJWKSURL publishes the keys Google signs ID tokens with.
	DefaultGoogleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

	maxProfileBytes = 1 << 20
)

// GoogleConfig configures the Google resolver.
type GoogleConfig struct {
	UserInfoURL string
	// ClientID enables ID token verification; tokens shaped like JWTs are then verified locally.
	ClientID   string
	Issuer     string
	JWKSURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	// KeySet overrides the remote JWKS, mainly for tests.
	KeySet oidc.KeySet
	Now    func() time.Time
}

// GoogleResolver resolves Google access tokens through the userinfo endpoint and, when a client id is
// configured, Google ID tokens through go-oidc verification.
type GoogleResolver struct {
	userInfoURL string
	timeout     time.Duration
	httpClient  *http.Client
	verifier    *oidc.IDTokenVerifier
}

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// NewGoogleResolver builds a GoogleResolver.
func NewGoogleResolver(cfg GoogleConfig) (*GoogleResolver, error) {
	userInfoURL := strings.TrimSpace(cfg.UserInfoURL)
	if userInfoURL == "" {
		userInfoURL = DefaultGoogleUserInfoURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	resolver := &GoogleResolver{
		userInfoURL: userInfoURL,
		timeout:     timeout,
		httpClient:  cfg.HTTPClient,
	}

	if clientID := strings.TrimSpace(cfg.ClientID); clientID != "" {
		issuer := strings.TrimSpace(cfg.Issuer)
		if issuer == "" {
			issuer = DefaultGoogleIssuer
		}

		keySet := cfg.KeySet
		if keySet == nil {
			jwksURL := strings.TrimSpace(cfg.JWKSURL)
			if jwksURL == "" {
				jwksURL = DefaultGoogleJWKSURL
			}
			keyCtx := context.Background()
			if cfg.HTTPClient != nil {
				keyCtx = oidc.ClientContext(keyCtx, cfg.HTTPClient)
			}
			keySet = oidc.NewRemoteKeySet(keyCtx, jwksURL)
		}

		resolver.verifier = oidc.NewVerifier(issuer, keySet, &oidc.Config{
			ClientID: clientID,
			Now:      cfg.Now,
		})
	}

	return resolver, nil
}

// Resolve implements Resolver.
func (g *GoogleResolver) Resolve(ctx context.Context, accessToken string) (*Profile, error) {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	if g.verifier != nil && looksLikeJWT(accessToken) {
		return g.resolveIDToken(ctx, accessToken)
	}
	return g.resolveUserInfo(ctx, accessToken)
}

func (g *GoogleResolver) resolveIDToken(ctx context.Context, rawIDToken string) (*Profile, error) {
	idToken, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: verify Google id token: %v", ErrTokenInvalid, err)
	}

	var claims googleUserInfo
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: decode Google id token claims: %v", ErrTokenInvalid, err)
	}
	claims.Sub = idToken.Subject

	return claims.profile()
}

func (g *GoogleResolver) resolveUserInfo(ctx context.Context, accessToken string) (*Profile, error) {
	if g.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
	}
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("google: build userinfo request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: Google userinfo: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxProfileBytes))
		return nil, classifyStatus(models.AuthProviderGoogle, resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxProfileBytes)).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: decode Google userinfo: %v", ErrUpstream, err)
	}

	return info.profile()
}

func (info googleUserInfo) profile() (*Profile, error) {
	if info.EmailVerified != nil && !*info.EmailVerified {
		return nil, fmt.Errorf("%w: Google email is not verified", ErrEmailMissing)
	}
	if strings.TrimSpace(info.Email) == "" {
		return nil, fmt.Errorf("%w: Google", ErrEmailMissing)
	}
	return &Profile{
		Provider:  models.AuthProviderGoogle,
		SubjectID: info.Sub,
		Email:     info.Email,
		Name:      info.Name,
		AvatarURL: info.Picture,
	}, nil
}

func looksLikeJWT(token string) bool {
	return strings.Count(token, ".") == 2 && !strings.ContainsAny(token, " \t")
}

var _ Resolver = (*GoogleResolver)(nil)
