package models

import (
	"fmt"
	"strings"
)

// AuthProvider records which authentication method created or is bound to an account.
type AuthProvider string

const (
	AuthProviderLocal    AuthProvider = "LOCAL"
	AuthProviderGoogle   AuthProvider = "GOOGLE"
	AuthProviderFacebook AuthProvider = "FACEBOOK"
)

// ParseAuthProvider accepts provider names case-insensitively ("google", "FACEBOOK", ...).
func ParseAuthProvider(value string) (AuthProvider, error) {
	switch p := AuthProvider(strings.ToUpper(strings.TrimSpace(value))); p {
	case AuthProviderLocal, AuthProviderGoogle, AuthProviderFacebook:
		return p, nil
	default:
		return "", fmt.Errorf("unknown auth provider %q", value)
	}
}

// IsExternal reports whether the provider is a third-party identity provider.
func (p AuthProvider) IsExternal() bool {
	return p == AuthProviderGoogle || p == AuthProviderFacebook
}

// DisplayName returns the human-readable provider name.
func (p AuthProvider) DisplayName() string {
	switch p {
	case AuthProviderGoogle:
		return "Google"
	case AuthProviderFacebook:
		return "Facebook"
	case AuthProviderLocal:
		return "Local"
	default:
		return string(p)
	}
}
