package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tramdoc/tramdoc/internal/auth"
	"github.com/tramdoc/tramdoc/internal/auth/providers"
	"github.com/tramdoc/tramdoc/internal/models"
	"github.com/tramdoc/tramdoc/internal/store"
	"github.com/tramdoc/tramdoc/pkg/crypto"
	apperrors "github.com/tramdoc/tramdoc/pkg/errors"
	"github.com/tramdoc/tramdoc/pkg/logger"
	"github.com/tramdoc/tramdoc/pkg/metrics"
)

const (
	// OTPLifetime is how long a password reset code stays redeemable.
	OTPLifetime = 10 * time.Minute
	// OTPDigits is the length of a password reset code.
	OTPDigits = 6
)

// TokenIssuer issues and validates the bearer tokens handed to clients.
type TokenIssuer interface {
	IssuePair(accountID uint64, email string) (*auth.TokenPair, error)
	ValidateRefresh(token string) (*auth.Claims, error)
}

// ProfileResolver resolves provider tokens into verified profiles.
type ProfileResolver interface {
	Resolve(ctx context.Context, provider models.AuthProvider, accessToken string) (*providers.Profile, error)
}

// AccountSummary is the public view of an account.
type AccountSummary struct {
	ID        uint64    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	AvatarURL *string   `json:"avatar_url"`
	Bio       *string   `json:"bio"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthResult is returned by every operation that authenticates the caller.
type AuthResult struct {
	auth.TokenPair
	User AccountSummary `json:"user"`
}

// RegisterInput describes a local sign-up.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
}

// LoginInput carries local credentials.
type LoginInput struct {
	Email    string
	Password string
}

// ChangePasswordInput carries the fields of an authenticated password change.
type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
	ConfirmPassword string
}

// ResetPasswordInput carries the fields of an OTP-backed password reset.
type ResetPasswordInput struct {
	Email           string
	Code            string
	NewPassword     string
	ConfirmPassword string
}

// AccountOption customises the AccountService.
type AccountOption func(*AccountService)

// WithAccountClock injects a custom time source.
func WithAccountClock(clock func() time.Time) AccountOption {
	return func(s *AccountService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithProfileResolver enables OAuth logins through the given resolver.
func WithProfileResolver(resolver ProfileResolver) AccountOption {
	return func(s *AccountService) {
		s.profiles = resolver
	}
}

// WithCodeGenerator overrides how reset codes are generated.
func WithCodeGenerator(fn func() (string, error)) AccountOption {
	return func(s *AccountService) {
		if fn != nil {
			s.generateCode = fn
		}
	}
}

// AccountService implements registration, authentication and credential recovery.
type AccountService struct {
	store        store.Store
	tokens       TokenIssuer
	notifier     Notifier
	profiles     ProfileResolver
	now          func() time.Time
	generateCode func() (string, error)
	log          *zap.Logger
}

// NewAccountService constructs an AccountService.
func NewAccountService(st store.Store, tokens TokenIssuer, notifier Notifier, opts ...AccountOption) (*AccountService, error) {
	if st == nil {
		return nil, errors.New("account service: store is required")
	}
	if tokens == nil {
		return nil, errors.New("account service: token issuer is required")
	}
	if notifier == nil {
		return nil, errors.New("account service: notifier is required")
	}

	s := &AccountService{
		store:    st,
		tokens:   tokens,
		notifier: notifier,
		now:      time.Now,
		generateCode: func() (string, error) {
			return crypto.GenerateNumericCode(OTPDigits)
		},
		log: logger.WithModule("accounts"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register creates a local account and signs it in.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	ctx = ensureContext(ctx)

	email := models.NormalizeEmail(in.Email)
	fullName := strings.TrimSpace(in.FullName)
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}
	if fullName == "" {
		return nil, apperrors.NewBadRequest("full name is required")
	}
	if err := checkPasswordPolicy(in.Password); err != nil {
		return nil, err
	}

	accounts := s.store.Accounts()
	exists, err := accounts.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("account service: check email: %w", err)
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hash, err := crypto.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("account service: hash password: %w", err)
	}

	account := &models.Account{
		Email:        email,
		Password:     &hash,
		FullName:     fullName,
		AuthProvider: models.AuthProviderLocal,
		IsActive:     true,
	}
	if err := accounts.Save(ctx, account); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("account service: create account: %w", err)
	}
	metrics.Registrations.WithLabelValues(string(models.AuthProviderLocal)).Inc()

	result, err := s.authenticate(account)
	if err != nil {
		return nil, err
	}

	// Welcome mail is a courtesy; the account already exists.
	if err := s.notifier.SendWelcome(ctx, account.Email, account.FullName); err != nil {
		metrics.EmailDeliveries.WithLabelValues("welcome", "failure").Inc()
		s.log.Warn("welcome email not delivered", zap.Uint64("account_id", account.ID), zap.Error(err))
	} else {
		metrics.EmailDeliveries.WithLabelValues("welcome", "success").Inc()
	}

	s.log.Info("account registered", zap.Uint64("account_id", account.ID))
	return result, nil
}

// Login authenticates local credentials. Every failure yields ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	ctx = ensureContext(ctx)

	account, err := s.store.Accounts().FindByEmail(ctx, in.Email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// Burn comparable time so response latency does not reveal unknown addresses.
		crypto.VerifyPassword(dummyPasswordHash(), in.Password)
		return nil, s.loginFailed("unknown_email", 0)
	case err != nil:
		return nil, fmt.Errorf("account service: find account: %w", err)
	}

	if !account.HasPassword() {
		return nil, s.loginFailed("no_password", account.ID)
	}
	if !crypto.VerifyPassword(account.PasswordHash(), in.Password) {
		return nil, s.loginFailed("wrong_password", account.ID)
	}
	if !account.IsActive {
		return nil, s.loginFailed("inactive", account.ID)
	}

	metrics.AuthAttempts.WithLabelValues("password", "success").Inc()
	return s.authenticate(account)
}

// Refresh exchanges a valid refresh token for a brand-new token pair.
// The presented refresh token is not revoked and stays valid until it expires.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	ctx = ensureContext(ctx)

	claims, err := s.tokens.ValidateRefresh(strings.TrimSpace(refreshToken))
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("refresh", "failure").Inc()
		return nil, ErrInvalidToken.WithInternal(err)
	}
	accountID, err := auth.SubjectID(claims)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("refresh", "failure").Inc()
		return nil, ErrInvalidToken.WithInternal(err)
	}

	account, err := s.store.Accounts().FindByID(ctx, accountID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		metrics.AuthAttempts.WithLabelValues("refresh", "failure").Inc()
		return nil, ErrInvalidToken.WithInternal(err)
	case err != nil:
		return nil, fmt.Errorf("account service: load account: %w", err)
	}
	if !account.IsActive {
		metrics.AuthAttempts.WithLabelValues("refresh", "failure").Inc()
		return nil, ErrInvalidToken
	}

	metrics.AuthAttempts.WithLabelValues("refresh", "success").Inc()
	return s.authenticate(account)
}

// ChangePassword replaces the caller's password after re-checking the current one.
func (s *AccountService) ChangePassword(ctx context.Context, identity auth.Identity, in ChangePasswordInput) error {
	ctx = ensureContext(ctx)
	if !identity.Valid() {
		return ErrIdentityRequired
	}

	err := s.store.WithinTx(ctx, func(tx store.Store) error {
		account, err := tx.Accounts().FindByID(ctx, identity.AccountID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperrors.ErrUnauthorized
			}
			return fmt.Errorf("account service: load account: %w", err)
		}

		switch {
		case !account.HasPassword():
			return ErrPasswordNotSet
		case !crypto.VerifyPassword(account.PasswordHash(), in.CurrentPassword):
			return ErrCurrentPasswordMismatch
		case in.NewPassword != in.ConfirmPassword:
			return ErrPasswordConfirmation
		case in.NewPassword == in.CurrentPassword:
			return ErrPasswordUnchanged
		}
		if err := checkPasswordPolicy(in.NewPassword); err != nil {
			return err
		}

		hash, err := crypto.HashPassword(in.NewPassword)
		if err != nil {
			return fmt.Errorf("account service: hash password: %w", err)
		}
		if err := tx.Accounts().UpdatePassword(ctx, account.ID, account.PasswordHash(), hash); err != nil {
			if errors.Is(err, store.ErrStaleWrite) {
				return ErrPasswordChangedConcurrently
			}
			return fmt.Errorf("account service: update password: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("password changed", zap.Uint64("account_id", identity.AccountID))
	return nil
}

// Logout is a no-op: tokens are stateless and discarded by the client.
func (s *AccountService) Logout(_ context.Context, identity auth.Identity) error {
	if !identity.Valid() {
		return ErrIdentityRequired
	}
	s.log.Debug("logout", zap.Uint64("account_id", identity.AccountID))
	return nil
}

// Me returns the summary of the authenticated account.
func (s *AccountService) Me(ctx context.Context, identity auth.Identity) (*AccountSummary, error) {
	ctx = ensureContext(ctx)
	if !identity.Valid() {
		return nil, ErrIdentityRequired
	}

	account, err := s.store.Accounts().FindByID(ctx, identity.AccountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("account service: load account: %w", err)
	}
	summary := Summarize(account)
	return &summary, nil
}

func (s *AccountService) authenticate(account *models.Account) (*AuthResult, error) {
	pair, err := s.tokens.IssuePair(account.ID, account.Email)
	if err != nil {
		return nil, fmt.Errorf("account service: issue tokens: %w", err)
	}
	return &AuthResult{TokenPair: *pair, User: Summarize(account)}, nil
}

func (s *AccountService) loginFailed(reason string, accountID uint64) error {
	metrics.AuthAttempts.WithLabelValues("password", "failure").Inc()
	s.log.Debug("login rejected", zap.String("reason", reason), zap.Uint64("account_id", accountID))
	return ErrInvalidCredentials
}

// Summarize projects an account onto its public view.
func Summarize(account *models.Account) AccountSummary {
	return AccountSummary{
		ID:        account.ID,
		Email:     account.Email,
		FullName:  account.FullName,
		AvatarURL: account.Avatar,
		Bio:       account.Bio,
		CreatedAt: account.CreatedAt,
	}
}

func checkPasswordPolicy(candidate string) error {
	if candidate == "" {
		return ErrPasswordPolicy.WithMessage("Password is required")
	}
	if err := auth.ValidatePassword(candidate); err != nil {
		var violation *auth.PolicyViolation
		if errors.As(err, &violation) {
			return ErrPasswordPolicy.WithMessage(violation.Reason).WithInternal(err)
		}
		return ErrPasswordPolicy.WithInternal(err)
	}
	return nil
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

func dummyPasswordHash() string {
	dummyHashOnce.Do(func() {
		dummyHash, _ = crypto.HashPassword("tramdoc-unknown-account")
	})
	return dummyHash
}
