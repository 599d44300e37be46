package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tramdoc/tramdoc/internal/models"
	"github.com/tramdoc/tramdoc/internal/store"
	"github.com/tramdoc/tramdoc/pkg/crypto"
	"github.com/tramdoc/tramdoc/pkg/metrics"
)

// ForgotPassword issues a reset code and emails it. Unknown addresses succeed silently so the
// response never reveals whether an account exists.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	ctx = ensureContext(ctx)

	account, err := s.store.Accounts().FindByEmail(ctx, email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.log.Debug("password reset requested for unknown email")
		return nil
	case err != nil:
		return fmt.Errorf("account service: find account: %w", err)
	}

	// Provider accounts are told explicitly; the caller already knows this address.
	if !account.HasPassword() {
		return ErrPasswordNotSet
	}

	code, err := s.generateCode()
	if err != nil {
		return fmt.Errorf("account service: generate reset code: %w", err)
	}

	now := s.now().UTC()
	err = s.store.WithinTx(ctx, func(tx store.Store) error {
		// Serialises concurrent requests for one account so only one unused code survives.
		if _, err := tx.Accounts().LockByID(ctx, account.ID); err != nil {
			return err
		}
		codes := tx.ResetCodes()
		if _, err := codes.InvalidateAll(ctx, account.ID); err != nil {
			return err
		}
		return codes.Save(ctx, &models.PasswordResetOTP{
			AccountID: account.ID,
			Code:      code,
			ExpiresAt: now.Add(OTPLifetime),
		})
	})
	if err != nil {
		return fmt.Errorf("account service: store reset code: %w", err)
	}
	metrics.OTPIssued.Inc()

	// The code stays persisted on delivery failure; a retry invalidates and reissues it.
	if err := s.notifier.SendOTP(ctx, account.Email, code, account.FullName); err != nil {
		metrics.EmailDeliveries.WithLabelValues("otp", "failure").Inc()
		s.log.Warn("reset code not delivered", zap.Uint64("account_id", account.ID), zap.Error(err))
		return ErrOTPDelivery.WithInternal(err)
	}
	metrics.EmailDeliveries.WithLabelValues("otp", "success").Inc()

	s.log.Info("reset code issued", zap.Uint64("account_id", account.ID))
	return nil
}

// VerifyOTP checks a reset code without consuming it.
func (s *AccountService) VerifyOTP(ctx context.Context, email, code string) error {
	ctx = ensureContext(ctx)

	account, err := s.findResetAccount(ctx, email)
	if err != nil {
		return err
	}
	if _, err := s.checkCode(ctx, s.store.ResetCodes(), account.ID, code); err != nil {
		metrics.OTPRedemptions.WithLabelValues("verify", "failure").Inc()
		return err
	}
	metrics.OTPRedemptions.WithLabelValues("verify", "success").Inc()
	return nil
}

// ResetPassword redeems a reset code and replaces the password. A code redeems at most once.
func (s *AccountService) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	ctx = ensureContext(ctx)

	account, err := s.findResetAccount(ctx, in.Email)
	if err != nil {
		return err
	}

	otp, err := s.checkCode(ctx, s.store.ResetCodes(), account.ID, in.Code)
	if err != nil {
		metrics.OTPRedemptions.WithLabelValues("reset", "failure").Inc()
		return err
	}

	if in.NewPassword != in.ConfirmPassword {
		return ErrPasswordConfirmation
	}
	if err := checkPasswordPolicy(in.NewPassword); err != nil {
		return err
	}
	if !account.HasPassword() {
		return ErrPasswordNotSet
	}

	hash, err := crypto.HashPassword(in.NewPassword)
	if err != nil {
		return fmt.Errorf("account service: hash password: %w", err)
	}

	err = s.store.WithinTx(ctx, func(tx store.Store) error {
		if err := tx.ResetCodes().MarkUsed(ctx, otp.ID); err != nil {
			if errors.Is(err, store.ErrCodeAlreadyUsed) {
				return ErrOTPUsed
			}
			return fmt.Errorf("account service: consume reset code: %w", err)
		}
		if err := tx.Accounts().UpdatePassword(ctx, account.ID, account.PasswordHash(), hash); err != nil {
			if errors.Is(err, store.ErrStaleWrite) {
				return ErrPasswordChangedConcurrently
			}
			return fmt.Errorf("account service: update password: %w", err)
		}
		if _, err := tx.ResetCodes().InvalidateAll(ctx, account.ID); err != nil {
			return fmt.Errorf("account service: invalidate reset codes: %w", err)
		}
		return nil
	})
	if err != nil {
		metrics.OTPRedemptions.WithLabelValues("reset", "failure").Inc()
		return err
	}

	metrics.OTPRedemptions.WithLabelValues("reset", "success").Inc()
	s.log.Info("password reset", zap.Uint64("account_id", account.ID))
	return nil
}

func (s *AccountService) findResetAccount(ctx context.Context, email string) (*models.Account, error) {
	account, err := s.store.Accounts().FindByEmail(ctx, email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, ErrAccountNotFound
	case err != nil:
		return nil, fmt.Errorf("account service: find account: %w", err)
	}
	return account, nil
}

// checkCode finds the unused code matching exactly and rejects it when expired.
func (s *AccountService) checkCode(ctx context.Context, codes store.ResetCodeStore, accountID uint64, code string) (*models.PasswordResetOTP, error) {
	if len(code) != OTPDigits {
		return nil, ErrOTPInvalid
	}

	otp, err := codes.FindUnusedCode(ctx, accountID, code)
	if errors.Is(err, store.ErrNotFound) {
		if _, latestErr := codes.FindLatestCode(ctx, accountID, code); latestErr == nil {
			return nil, ErrOTPUsed
		}
		return nil, ErrOTPInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("account service: find reset code: %w", err)
	}

	if otp.IsExpired(s.now()) {
		return nil, ErrOTPExpired
	}
	return otp, nil
}
