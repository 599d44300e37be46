package services

import (
	"github.com/tramdoc/tramdoc/internal/auth"
	apperrors "github.com/tramdoc/tramdoc/pkg/errors"
)

var (
	// ErrEmailTaken is returned when registering an address that already has an account.
	ErrEmailTaken = apperrors.NewConflict("auth.email_taken", "Email is already registered")
	// ErrInvalidCredentials covers unknown email, wrong password, password-less and inactive accounts alike.
	ErrInvalidCredentials = apperrors.ErrInvalidCredentials
	// ErrInvalidToken is returned for malformed, expired or mistyped bearer tokens.
	ErrInvalidToken = apperrors.NewAuthentication("auth.token_invalid", "Token is invalid or expired")
	// ErrIdentityRequired is returned when an operation on the caller's account receives no identity.
	ErrIdentityRequired = apperrors.ErrUnauthorized.WithInternal(auth.ErrNoIdentity)
	// ErrAccountNotFound is returned where hiding account existence is not required.
	ErrAccountNotFound = apperrors.NewNotFound("auth.account_not_found", "Account not found")
	// ErrAccountInactive is returned when a provider login resolves to a disabled account.
	ErrAccountInactive = apperrors.NewAuthentication("auth.account_inactive", "Account is disabled")

	// ErrPasswordPolicy carries the first violated password rule as its message.
	ErrPasswordPolicy = apperrors.NewValidation("auth.password_policy", "Password does not meet the requirements")
	// ErrPasswordNotSet is returned for provider-only accounts that have no password to change or reset.
	ErrPasswordNotSet = apperrors.NewValidation("auth.password_not_set", "This account signs in with a social provider and has no password")
	// ErrCurrentPasswordMismatch is returned when the supplied current password is wrong.
	ErrCurrentPasswordMismatch = apperrors.NewValidation("auth.current_password_mismatch", "Current password is incorrect")
	// ErrPasswordConfirmation is returned when the new password and its confirmation differ.
	ErrPasswordConfirmation = apperrors.NewValidation("auth.password_confirmation_mismatch", "Password confirmation does not match")
	// ErrPasswordUnchanged is returned when the new password equals the current one.
	ErrPasswordUnchanged = apperrors.NewValidation("auth.password_unchanged", "New password must differ from the current password")
	// ErrPasswordChangedConcurrently is returned when the stored hash changed between read and write.
	ErrPasswordChangedConcurrently = apperrors.NewConflict("auth.password_conflict", "Password was changed by another request, please retry")

	// ErrOTPInvalid is returned when no code matches.
	ErrOTPInvalid = apperrors.NewNotFound("auth.otp_invalid", "Verification code is invalid")
	// ErrOTPUsed is returned when the matching code was already redeemed or superseded.
	ErrOTPUsed = apperrors.NewConflict("auth.otp_used", "Verification code has already been used")
	// ErrOTPExpired is returned when the matching code is past its lifetime.
	ErrOTPExpired = apperrors.NewExpired("auth.otp_expired", "Verification code has expired")
	// ErrOTPDelivery is returned when the code was stored but the email could not be sent.
	ErrOTPDelivery = apperrors.NewDeliveryFailure("auth.otp_delivery_failed", "Could not send the verification code, please try again")

	// ErrOAuthTokenInvalid is returned when the provider rejects the token; the message names the provider.
	ErrOAuthTokenInvalid = apperrors.NewAuthentication("auth.oauth_token_invalid", "Provider token is invalid or expired")
	// ErrOAuthEmailMissing is returned when the provider withholds the email address.
	ErrOAuthEmailMissing = apperrors.NewAuthentication("auth.oauth_email_missing", "Provider did not share an email address")
	// ErrOAuthUpstream is returned when the provider could not be reached.
	ErrOAuthUpstream = apperrors.NewUpstreamFailure("auth.oauth_upstream", "Provider is unavailable, please try again")
	// ErrOAuthProviderUnsupported is returned for providers without a configured resolver.
	ErrOAuthProviderUnsupported = apperrors.NewValidation("auth.oauth_provider_unsupported", "Unsupported login provider")
)
