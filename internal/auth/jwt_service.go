package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DefaultAccessTokenTTL defines the fallback validity period for access tokens.
	DefaultAccessTokenTTL = 15 * time.Minute
	// DefaultRefreshTokenTTL defines the fallback validity period for refresh tokens.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenType distinguishes access tokens from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

var (
	// ErrWrongTokenType is returned when a token of one type is presented where the other is required.
	ErrWrongTokenType = errors.New("jwt: unexpected token type")
)

// JWTConfig bundles the configuration required to build a JWTService.
type JWTConfig struct {
	Secret          string
	Issuer          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Clock           func() time.Time
}

// Claims represents the custom claims embedded in issued JWTs.
type Claims struct {
	AccountID uint64    `json:"uid"`
	Email     string    `json:"email"`
	Type      TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// TokenPair is the access/refresh token couple handed to clients after authentication.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// JWTService is responsible for issuing and validating JSON Web Tokens.
type JWTService struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewJWTService constructs a JWTService instance when provided with the required configuration.
func NewJWTService(cfg JWTConfig) (*JWTService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt: secret must be provided")
	}

	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}

	refreshTTL := cfg.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}

	if accessTTL >= refreshTTL {
		return nil, fmt.Errorf("jwt: access token ttl (%s) must be shorter than refresh token ttl (%s)", accessTTL, refreshTTL)
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &JWTService{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        now,
	}, nil
}

// AccessTokenTTL reports the configured access token lifetime.
func (s *JWTService) AccessTokenTTL() time.Duration {
	return s.accessTTL
}

// IssueAccessToken issues a short-lived token bound to the account id and email.
func (s *JWTService) IssueAccessToken(accountID uint64, email string) (string, error) {
	return s.issue(accountID, email, TokenTypeAccess, s.accessTTL)
}

// IssueRefreshToken issues a long-lived token used to mint new access tokens.
func (s *JWTService) IssueRefreshToken(accountID uint64, email string) (string, error) {
	return s.issue(accountID, email, TokenTypeRefresh, s.refreshTTL)
}

// IssuePair issues a fresh access and refresh token for the account.
func (s *JWTService) IssuePair(accountID uint64, email string) (*TokenPair, error) {
	access, err := s.IssueAccessToken(accountID, email)
	if err != nil {
		return nil, err
	}

	refresh, err := s.IssueRefreshToken(accountID, email)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.accessTTL.Seconds()),
	}, nil
}

func (s *JWTService) issue(accountID uint64, email string, typ TokenType, ttl time.Duration) (string, error) {
	if accountID == 0 {
		return "", errors.New("jwt: account id is required")
	}

	now := s.now()
	claims := &Claims{
		AccountID: accountID,
		Email:     email,
		Type:      typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(accountID, 10),
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}

	return signed, nil
}

// Validate parses a signed JWT, checking signature and expiry, and returns its claims.
func (s *JWTService) Validate(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("jwt: token string is empty")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("jwt: parse token: %w", err)
	}

	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, errors.New("jwt: invalid issuer")
	}

	if claims.AccountID == 0 {
		return nil, errors.New("jwt: missing account id claim")
	}

	return &claims, nil
}

// ValidateAccess validates the token and requires it to be an access token.
func (s *JWTService) ValidateAccess(tokenString string) (*Claims, error) {
	return s.validateType(tokenString, TokenTypeAccess)
}

// ValidateRefresh validates the token and requires it to be a refresh token.
func (s *JWTService) ValidateRefresh(tokenString string) (*Claims, error) {
	return s.validateType(tokenString, TokenTypeRefresh)
}

func (s *JWTService) validateType(tokenString string, typ TokenType) (*Claims, error) {
	claims, err := s.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != typ {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// SubjectID extracts the bound account id from already-validated claims.
func SubjectID(claims *Claims) (uint64, error) {
	if claims == nil {
		return 0, errors.New("jwt: claims are nil")
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("jwt: invalid subject: %w", err)
	}
	if id != claims.AccountID {
		return 0, errors.New("jwt: subject does not match account id claim")
	}
	return id, nil
}
