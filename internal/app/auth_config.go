package app

import (
	"github.com/tramdoc/tramdoc/internal/auth"
	"github.com/tramdoc/tramdoc/internal/auth/providers"
	"github.com/tramdoc/tramdoc/internal/models"
)

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	accessTTL := c.JWT.AccessTTL
	if accessTTL <= 0 {
		accessTTL = auth.DefaultAccessTokenTTL
	}

	refreshTTL := c.JWT.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = auth.DefaultRefreshTokenTTL
	}

	return auth.JWTConfig{
		Secret:          c.JWT.Secret,
		Issuer:          c.JWT.Issuer,
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: refreshTTL,
	}
}

// GoogleResolverConfig converts OAuthConfig into Google resolver parameters.
func (c OAuthConfig) GoogleResolverConfig() providers.GoogleConfig {
	return providers.GoogleConfig{
		UserInfoURL: c.Google.UserInfoURL,
		ClientID:    c.Google.ClientID,
		Timeout:     c.Timeout,
	}
}

// FacebookResolverConfig converts OAuthConfig into Facebook resolver parameters.
func (c OAuthConfig) FacebookResolverConfig() providers.FacebookConfig {
	return providers.FacebookConfig{
		GraphURL:  c.Facebook.GraphURL,
		AppSecret: c.Facebook.AppSecret,
		Timeout:   c.Timeout,
	}
}

// BuildRegistry registers a resolver for every enabled provider.
func (c OAuthConfig) BuildRegistry() (*providers.Registry, error) {
	registry := providers.NewRegistry()

	if c.Google.Enabled {
		google, err := providers.NewGoogleResolver(c.GoogleResolverConfig())
		if err != nil {
			return nil, err
		}
		if err := registry.Register(models.AuthProviderGoogle, google); err != nil {
			return nil, err
		}
	}

	if c.Facebook.Enabled {
		facebook, err := providers.NewFacebookResolver(c.FacebookResolverConfig())
		if err != nil {
			return nil, err
		}
		if err := registry.Register(models.AuthProviderFacebook, facebook); err != nil {
			return nil, err
		}
	}

	return registry, nil
}
