package providers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tramdoc/tramdoc/internal/models"
)

const (
	// DefaultFacebookGraphURL is the Graph API profile endpoint.
	DefaultFacebookGraphURL = "https://graph.facebook.com/me"
	// DefaultFacebookFields requests exactly the fields needed for a profile.
	DefaultFacebookFields = "id,name,email,picture.type(large)"
)

// FacebookConfig configures the Facebook resolver.
type FacebookConfig struct {
	GraphURL string
	Fields   string
	// AppSecret, when set, adds appsecret_proof to every Graph call.
	AppSecret  string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// FacebookResolver resolves Facebook user access tokens through the Graph API.
type FacebookResolver struct {
	graphURL   string
	fields     string
	appSecret  string
	timeout    time.Duration
	httpClient *http.Client
}

type facebookProfile struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

type facebookError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// NewFacebookResolver builds a FacebookResolver.
func NewFacebookResolver(cfg FacebookConfig) (*FacebookResolver, error) {
	graphURL := strings.TrimSpace(cfg.GraphURL)
	if graphURL == "" {
		graphURL = DefaultFacebookGraphURL
	}
	if _, err := url.Parse(graphURL); err != nil {
		return nil, fmt.Errorf("facebook: invalid graph url: %w", err)
	}

	fields := strings.TrimSpace(cfg.Fields)
	if fields == "" {
		fields = DefaultFacebookFields
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	return &FacebookResolver{
		graphURL:   graphURL,
		fields:     fields,
		appSecret:  cfg.AppSecret,
		timeout:    timeout,
		httpClient: client,
	}, nil
}

// Resolve implements Resolver.
func (f *FacebookResolver) Resolve(ctx context.Context, accessToken string) (*Profile, error) {
	ctx, cancel := withTimeout(ctx, f.timeout)
	defer cancel()

	endpoint, err := url.Parse(f.graphURL)
	if err != nil {
		return nil, fmt.Errorf("facebook: parse graph url: %w", err)
	}
	query := endpoint.Query()
	query.Set("fields", f.fields)
	query.Set("access_token", accessToken)
	if f.appSecret != "" {
		query.Set("appsecret_proof", appSecretProof(f.appSecret, accessToken))
	}
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("facebook: build graph request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		// url.Error embeds the request URL, which carries the token.
		return nil, fmt.Errorf("%w: Facebook graph request failed", ErrUpstream)
	}
	defer resp.Body.Close()

	body := io.LimitReader(resp.Body, maxProfileBytes)

	if resp.StatusCode != http.StatusOK {
		var graphErr facebookError
		_ = json.NewDecoder(body).Decode(&graphErr)
		err := classifyStatus(models.AuthProviderFacebook, resp.StatusCode)
		if graphErr.Error.Message != "" {
			return nil, fmt.Errorf("%w (%s)", err, graphErr.Error.Message)
		}
		return nil, err
	}

	var profile facebookProfile
	if err := json.NewDecoder(body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("%w: decode Facebook profile: %v", ErrUpstream, err)
	}

	// Users may decline the email permission; that must surface, never be substituted.
	if strings.TrimSpace(profile.Email) == "" {
		return nil, fmt.Errorf("%w: Facebook (email permission not granted)", ErrEmailMissing)
	}

	return &Profile{
		Provider:  models.AuthProviderFacebook,
		SubjectID: profile.ID,
		Email:     profile.Email,
		Name:      profile.Name,
		AvatarURL: profile.Picture.Data.URL,
	}, nil
}

func appSecretProof(secret, token string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

var _ Resolver = (*FacebookResolver)(nil)
