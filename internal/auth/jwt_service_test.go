package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func newTestJWTService(t *testing.T, now func() time.Time) *JWTService {
	t.Helper()
	svc, err := NewJWTService(JWTConfig{
		Secret:          "super-secret",
		Issuer:          "tramdoc",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
		Clock:           now,
	})
	require.NoError(t, err)
	return svc
}

func TestNewJWTServiceRequiresSecret(t *testing.T) {
	_, err := NewJWTService(JWTConfig{})
	require.Error(t, err)
	require.EqualError(t, err, "jwt: secret must be provided")
}

func TestNewJWTServiceRequiresAccessShorterThanRefresh(t *testing.T) {
	_, err := NewJWTService(JWTConfig{
		Secret:          "secret",
		AccessTokenTTL:  48 * time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
	})
	require.Error(t, err)

	svc, err := NewJWTService(JWTConfig{Secret: "secret"})
	require.NoError(t, err)
	require.Less(t, svc.accessTTL, svc.refreshTTL)
}

func TestIssueAndValidateAccessToken(t *testing.T) {
	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestJWTService(t, func() time.Time { return current })

	token, err := svc.IssueAccessToken(42, "reader@gmail.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateAccess(token)
	require.NoError(t, err)

	require.Equal(t, uint64(42), claims.AccountID)
	require.Equal(t, "reader@gmail.com", claims.Email)
	require.Equal(t, TokenTypeAccess, claims.Type)
	require.Equal(t, "tramdoc", claims.Issuer)
	require.True(t, claims.IssuedAt.Time.Equal(current))
	require.True(t, claims.ExpiresAt.Time.Equal(current.Add(time.Hour)))

	id, err := SubjectID(claims)
	require.NoError(t, err)
	require.Equal(t, uint64(42), id)
}

func TestIssuePairOrdersExpiry(t *testing.T) {
	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestJWTService(t, func() time.Time { return current })

	pair, err := svc.IssuePair(7, "pair@gmail.com")
	require.NoError(t, err)
	require.Equal(t, "Bearer", pair.TokenType)
	require.Equal(t, 3600, pair.ExpiresIn)

	access, err := svc.ValidateAccess(pair.AccessToken)
	require.NoError(t, err)
	refresh, err := svc.ValidateRefresh(pair.RefreshToken)
	require.NoError(t, err)

	require.True(t, access.ExpiresAt.Time.Before(refresh.ExpiresAt.Time))
	require.NotEqual(t, access.ID, refresh.ID)
}

func TestValidateRejectsWrongTokenType(t *testing.T) {
	svc := newTestJWTService(t, nil)

	pair, err := svc.IssuePair(7, "pair@gmail.com")
	require.NoError(t, err)

	_, err = svc.ValidateRefresh(pair.AccessToken)
	require.ErrorIs(t, err, ErrWrongTokenType)

	_, err = svc.ValidateAccess(pair.RefreshToken)
	require.ErrorIs(t, err, ErrWrongTokenType)

	// Plain validation only checks signature and expiry.
	_, err = svc.Validate(pair.RefreshToken)
	require.NoError(t, err)
}

func TestValidateInvalidSignature(t *testing.T) {
	now := func() time.Time { return time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC) }

	issuer, err := NewJWTService(JWTConfig{Secret: "issuer-secret", Clock: now})
	require.NoError(t, err)

	token, err := issuer.IssueAccessToken(1, "a@gmail.com")
	require.NoError(t, err)

	verifier, err := NewJWTService(JWTConfig{Secret: "other-secret", Clock: now})
	require.NoError(t, err)

	_, err = verifier.Validate(token)
	require.Error(t, err)
	require.True(t, errors.Is(err, jwt.ErrTokenSignatureInvalid))
}

func TestValidateExpired(t *testing.T) {
	current := time.Date(2024, 1, 1, 14, 0, 0, 0, time.UTC)
	svc := newTestJWTService(t, func() time.Time { return current })

	pair, err := svc.IssuePair(1, "a@gmail.com")
	require.NoError(t, err)

	// Past access expiry but before refresh expiry.
	current = current.Add(2 * time.Hour)

	_, err = svc.ValidateAccess(pair.AccessToken)
	require.True(t, errors.Is(err, jwt.ErrTokenExpired))

	_, err = svc.ValidateRefresh(pair.RefreshToken)
	require.NoError(t, err)

	current = current.Add(48 * time.Hour)
	_, err = svc.ValidateRefresh(pair.RefreshToken)
	require.True(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestValidateRejectsMalformedToken(t *testing.T) {
	svc := newTestJWTService(t, nil)

	_, err := svc.Validate("")
	require.Error(t, err)

	_, err = svc.Validate("not-a-jwt")
	require.Error(t, err)
}

func TestIssueRequiresAccountID(t *testing.T) {
	svc := newTestJWTService(t, nil)
	_, err := svc.IssueAccessToken(0, "a@gmail.com")
	require.Error(t, err)
}

func TestIdentityFromClaims(t *testing.T) {
	svc := newTestJWTService(t, nil)
	token, err := svc.IssueAccessToken(99, "me@gmail.com")
	require.NoError(t, err)

	claims, err := svc.ValidateAccess(token)
	require.NoError(t, err)

	identity, err := IdentityFromClaims(claims)
	require.NoError(t, err)
	require.True(t, identity.Valid())
	require.Equal(t, Identity{AccountID: 99, Email: "me@gmail.com"}, identity)
}
