package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tramdoc/tramdoc/internal/auth/providers"
	"github.com/tramdoc/tramdoc/internal/models"
	"github.com/tramdoc/tramdoc/internal/store"
	apperrors "github.com/tramdoc/tramdoc/pkg/errors"
	"github.com/tramdoc/tramdoc/pkg/metrics"
)

// LinkDecision is the outcome of matching a provider profile against stored accounts.
type LinkDecision int

const (
	// DecisionReturning: an account already carries this provider identity.
	DecisionReturning LinkDecision = iota
	// DecisionLink: an account with the same email is LOCAL or already bound to this provider.
	DecisionLink
	// DecisionLinkedElsewhere: an account with the same email is bound to a different provider.
	DecisionLinkedElsewhere
	// DecisionCreate: nothing matches and a password-less account is created.
	DecisionCreate
)

func (d LinkDecision) String() string {
	switch d {
	case DecisionReturning:
		return "returning"
	case DecisionLink:
		return "linked"
	case DecisionLinkedElsewhere:
		return "linked_elsewhere"
	case DecisionCreate:
		return "created"
	default:
		return "unknown"
	}
}

// DecideLink is the account linking decision table. byProvider wins over byEmail; an email match
// is only linked when its origin is LOCAL or already the incoming provider.
func DecideLink(byProvider, byEmail *models.Account, provider models.AuthProvider) LinkDecision {
	switch {
	case byProvider != nil:
		return DecisionReturning
	case byEmail == nil:
		return DecisionCreate
	case byEmail.AuthProvider == models.AuthProviderLocal, byEmail.AuthProvider == provider:
		return DecisionLink
	default:
		return DecisionLinkedElsewhere
	}
}

// OAuthLogin signs in with a provider-issued token, linking or creating the account as needed.
func (s *AccountService) OAuthLogin(ctx context.Context, provider models.AuthProvider, accessToken string) (*AuthResult, error) {
	ctx = ensureContext(ctx)
	method := string(provider)

	if s.profiles == nil || !provider.IsExternal() {
		return nil, ErrOAuthProviderUnsupported
	}

	profile, err := s.profiles.Resolve(ctx, provider, accessToken)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues(method, "failure").Inc()
		return nil, mapProviderError(provider, err)
	}

	account, decision, err := s.resolveAccount(ctx, profile)
	// Two first-time logins can race to create the same account; the loser re-runs the table.
	if errors.Is(err, store.ErrDuplicate) || errors.Is(err, store.ErrStaleWrite) {
		s.log.Debug("oauth resolution raced, retrying", zap.String("provider", method))
		account, decision, err = s.resolveAccount(ctx, profile)
	}
	if err != nil {
		metrics.AuthAttempts.WithLabelValues(method, "failure").Inc()
		if errors.Is(err, ErrAccountInactive) {
			return nil, ErrAccountInactive
		}
		return nil, fmt.Errorf("account service: resolve oauth account: %w", err)
	}
	metrics.OAuthResolutions.WithLabelValues(method, decision.String()).Inc()

	metrics.AuthAttempts.WithLabelValues(method, "success").Inc()
	return s.authenticate(account)
}

func (s *AccountService) resolveAccount(ctx context.Context, profile *providers.Profile) (*models.Account, LinkDecision, error) {
	var (
		account  *models.Account
		decision LinkDecision
	)

	err := s.store.WithinTx(ctx, func(tx store.Store) error {
		accounts := tx.Accounts()

		byProvider, err := accounts.FindByProviderIdentity(ctx, profile.Provider, profile.SubjectID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}

		var byEmail *models.Account
		if byProvider == nil {
			byEmail, err = accounts.FindByEmail(ctx, profile.Email)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
		}

		decision = DecideLink(byProvider, byEmail, profile.Provider)
		fields := []zap.Field{
			zap.String("provider", string(profile.Provider)),
			zap.String("decision", decision.String()),
		}

		// A disabled account must not be linked or touched; returning here rolls the tx back.
		if existing := firstAccount(byProvider, byEmail); existing != nil && !existing.IsActive {
			return ErrAccountInactive
		}

		switch decision {
		case DecisionReturning:
			account = byProvider
			if profile.AvatarURL != "" && profile.AvatarURL != account.AvatarURL() {
				if err := accounts.UpdateAvatar(ctx, account.ID, profile.AvatarURL); err != nil {
					return err
				}
				account.Avatar = models.StringPtr(profile.AvatarURL)
			}

		case DecisionLink:
			account = byEmail
			if err := accounts.LinkProvider(ctx, account.ID, profile.Provider, profile.SubjectID); err != nil {
				return err
			}
			account.AuthProvider = profile.Provider
			account.ProviderID = models.StringPtr(profile.SubjectID)
			if account.Avatar == nil && profile.AvatarURL != "" {
				if err := accounts.UpdateAvatar(ctx, account.ID, profile.AvatarURL); err != nil {
					return err
				}
				account.Avatar = models.StringPtr(profile.AvatarURL)
			}
			s.log.Info("provider linked to existing account", append(fields, zap.Uint64("account_id", account.ID))...)

		case DecisionLinkedElsewhere:
			// Never re-bind an account another provider owns; the login itself still proceeds.
			account = byEmail
			s.log.Warn("provider link skipped, account bound to another provider",
				append(fields, zap.Uint64("account_id", account.ID), zap.String("bound_provider", string(account.AuthProvider)))...)

		case DecisionCreate:
			name := profile.Name
			if name == "" {
				name = models.EmailLocalPart(profile.Email)
			}
			account = &models.Account{
				Email:        profile.Email,
				FullName:     name,
				Avatar:       models.StringPtr(profile.AvatarURL),
				AuthProvider: profile.Provider,
				ProviderID:   models.StringPtr(profile.SubjectID),
				IsActive:     true,
			}
			if err := accounts.Save(ctx, account); err != nil {
				return err
			}
			metrics.Registrations.WithLabelValues(string(profile.Provider)).Inc()
			s.log.Info("account created from provider", append(fields, zap.Uint64("account_id", account.ID))...)
		}
		return nil
	})
	if err != nil {
		return nil, decision, err
	}
	return account, decision, nil
}

func firstAccount(candidates ...*models.Account) *models.Account {
	for _, candidate := range candidates {
		if candidate != nil {
			return candidate
		}
	}
	return nil
}

func mapProviderError(provider models.AuthProvider, err error) error {
	name := provider.DisplayName()
	var appErr *apperrors.AppError
	switch {
	case errors.Is(err, providers.ErrUnknownProvider):
		return ErrOAuthProviderUnsupported.WithInternal(err)
	case errors.Is(err, providers.ErrEmailMissing):
		return ErrOAuthEmailMissing.
			WithMessage(fmt.Sprintf("%s did not share an email address; grant email permission and try again", name)).
			WithInternal(err)
	case errors.Is(err, providers.ErrTokenInvalid):
		return ErrOAuthTokenInvalid.
			WithMessage(fmt.Sprintf("%s token is invalid or expired", name)).
			WithInternal(err)
	case errors.Is(err, providers.ErrUpstream), errors.Is(err, context.DeadlineExceeded):
		return ErrOAuthUpstream.
			WithMessage(fmt.Sprintf("%s is unavailable, please try again", name)).
			WithInternal(err)
	case errors.As(err, &appErr):
		return appErr
	default:
		return ErrOAuthUpstream.
			WithMessage(fmt.Sprintf("%s is unavailable, please try again", name)).
			WithInternal(err)
	}
}
