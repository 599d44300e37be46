package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tramdoc/tramdoc/internal/auth"
	"github.com/tramdoc/tramdoc/internal/models"
	apperrors "github.com/tramdoc/tramdoc/pkg/errors"
	"github.com/tramdoc/tramdoc/pkg/logger"
)

func TestNewAccountServiceRequiresDependencies(t *testing.T) {
	env := newTestEnv(t)

	_, err := NewAccountService(nil, env.tokens, env.notifier)
	require.Error(t, err)
	_, err = NewAccountService(env.store, nil, env.notifier)
	require.Error(t, err)
	_, err = NewAccountService(env.store, env.tokens, nil)
	require.Error(t, err)
}

func TestRegisterRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.svc.Register(context.Background(), RegisterInput{
		Email:    "  New.Reader@Gmail.com ",
		Password: strongPassword,
		FullName: " New Reader ",
	})
	require.NoError(t, err)
	require.Equal(t, "Bearer", result.TokenType)
	require.Equal(t, "new.reader@gmail.com", result.User.Email)
	require.Equal(t, "New Reader", result.User.FullName)
	require.Nil(t, result.User.AvatarURL)
	require.Nil(t, result.User.Bio)

	claims, err := env.tokens.ValidateAccess(result.AccessToken)
	require.NoError(t, err)
	id, err := auth.SubjectID(claims)
	require.NoError(t, err)
	require.Equal(t, result.User.ID, id)

	account := env.account(t, id)
	require.Equal(t, models.AuthProviderLocal, account.AuthProvider)
	require.True(t, account.IsActive)
	require.True(t, account.HasPassword())
	require.NotEqual(t, strongPassword, account.PasswordHash())

	require.Equal(t, []string{"new.reader@gmail.com"}, env.notifier.welcomes)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "dup@gmail.com")

	_, err := env.svc.Register(context.Background(), RegisterInput{
		Email:    "DUP@gmail.com",
		Password: strongPassword,
		FullName: "Someone Else",
	})
	require.ErrorIs(t, err, ErrEmailTaken)
	require.Equal(t, http.StatusConflict, apperrors.FromError(err).StatusCode)
}

func TestRegisterEnforcesPasswordPolicy(t *testing.T) {
	env := newTestEnv(t)

	cases := map[string]string{
		"abc123!": "Password must start with an uppercase letter",
		"Abcdef":  "Password must contain at least one digit",
		"Ab1!":    "Password must be at least 6 characters long",
		"Abcde1":  "Password must contain at least one special character (!@#$%^&*...)",
	}
	for password, reason := range cases {
		_, err := env.svc.Register(context.Background(), RegisterInput{
			Email:    "policy@gmail.com",
			Password: password,
			FullName: "Policy",
		})
		require.ErrorIs(t, err, ErrPasswordPolicy, password)
		require.Equal(t, reason, apperrors.FromError(err).Message, password)
	}

	exists, err := env.store.Accounts().ExistsByEmail(context.Background(), "policy@gmail.com")
	require.NoError(t, err)
	require.False(t, exists)

	_, err = env.svc.Register(context.Background(), RegisterInput{
		Email:    "policy@gmail.com",
		Password: "Abcde1!",
		FullName: "Policy",
	})
	require.NoError(t, err)
}

func TestRegisterWelcomeFailureIsNotFatal(t *testing.T) {
	core, recorded := observer.New(zapcore.WarnLevel)
	t.Cleanup(logger.Replace(zap.New(core)))

	notifier := &mockNotifier{}
	notifier.On("SendWelcome", mock.Anything, "welcome@gmail.com", "Reader").Return(errors.New("smtp: dial timeout"))
	env := newTestEnvWithNotifier(t, notifier)

	result, err := env.svc.Register(context.Background(), RegisterInput{
		Email:    "welcome@gmail.com",
		Password: strongPassword,
		FullName: "Reader",
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	notifier.AssertExpectations(t)

	entries := recorded.FilterMessage("welcome email not delivered").All()
	require.Len(t, entries, 1)
	require.Equal(t, "accounts", entries[0].ContextMap()["module"])
}

func TestLoginAndRefreshTokensValidate(t *testing.T) {
	env := newTestEnv(t)
	registered := env.register(t, "login@gmail.com")

	login, err := env.svc.Login(context.Background(), LoginInput{Email: "LOGIN@gmail.com", Password: strongPassword})
	require.NoError(t, err)
	require.Equal(t, registered.User.ID, login.User.ID)

	_, err = env.tokens.ValidateAccess(login.AccessToken)
	require.NoError(t, err)

	refreshed, err := env.svc.Refresh(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, registered.User.ID, refreshed.User.ID)
	require.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	_, err = env.tokens.ValidateAccess(refreshed.AccessToken)
	require.NoError(t, err)
	_, err = env.tokens.ValidateRefresh(refreshed.RefreshToken)
	require.NoError(t, err)

	// Refresh tokens are not single-use.
	_, err = env.svc.Refresh(context.Background(), login.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshRejectsBadTokens(t *testing.T) {
	env := newTestEnv(t)
	registered := env.register(t, "refresh@gmail.com")

	_, err := env.svc.Refresh(context.Background(), registered.AccessToken)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = env.svc.Refresh(context.Background(), "garbage")
	require.ErrorIs(t, err, ErrInvalidToken)

	env.clock.Advance(25 * time.Hour)
	_, err = env.svc.Refresh(context.Background(), registered.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshRejectsDeletedAccount(t *testing.T) {
	env := newTestEnv(t)
	registered := env.register(t, "gone@gmail.com")

	require.NoError(t, env.db.Delete(&models.Account{}, registered.User.ID).Error)

	_, err := env.svc.Refresh(context.Background(), registered.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)
	require.Equal(t, http.StatusUnauthorized, apperrors.FromError(err).StatusCode)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "known@gmail.com")
	inactive := env.register(t, "inactive@gmail.com")
	require.NoError(t, env.db.Model(&models.Account{}).
		Where("id = ?", inactive.User.ID).
		UpdateColumn("is_active", false).Error)

	env.profiles.set("google-token", providerProfile("g-9", "social@gmail.com", "Social", ""))
	_, err := env.svc.OAuthLogin(context.Background(), models.AuthProviderGoogle, "google-token")
	require.NoError(t, err)

	attempts := []LoginInput{
		{Email: "unknown@gmail.com", Password: strongPassword},
		{Email: "known@gmail.com", Password: "Wrong1!"},
		{Email: "social@gmail.com", Password: strongPassword},
		{Email: "inactive@gmail.com", Password: strongPassword},
	}

	var messages []string
	for _, attempt := range attempts {
		_, err := env.svc.Login(context.Background(), attempt)
		require.ErrorIs(t, err, ErrInvalidCredentials, attempt.Email)
		appErr := apperrors.FromError(err)
		require.Equal(t, http.StatusUnauthorized, appErr.StatusCode)
		messages = append(messages, appErr.Code+"|"+appErr.Message)
	}
	for _, msg := range messages[1:] {
		require.Equal(t, messages[0], msg)
	}
}

func TestChangePasswordSwitchesCredentials(t *testing.T) {
	env := newTestEnv(t)
	registered := env.register(t, "change@gmail.com")
	identity := auth.Identity{AccountID: registered.User.ID, Email: registered.User.Email}

	err := env.svc.ChangePassword(context.Background(), identity, ChangePasswordInput{
		CurrentPassword: strongPassword,
		NewPassword:     "Fresh2@pass",
		ConfirmPassword: "Fresh2@pass",
	})
	require.NoError(t, err)

	_, err = env.svc.Login(context.Background(), LoginInput{Email: "change@gmail.com", Password: strongPassword})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.svc.Login(context.Background(), LoginInput{Email: "change@gmail.com", Password: "Fresh2@pass"})
	require.NoError(t, err)
}

func TestChangePasswordFailureOrder(t *testing.T) {
	env := newTestEnv(t)
	registered := env.register(t, "order@gmail.com")
	identity := auth.Identity{AccountID: registered.User.ID, Email: registered.User.Email}

	cases := []struct {
		name  string
		input ChangePasswordInput
		want  *apperrors.AppError
	}{
		{
			name:  "current mismatch wins over confirmation mismatch",
			input: ChangePasswordInput{CurrentPassword: "Wrong1!", NewPassword: "Fresh2@", ConfirmPassword: "Other3#"},
			want:  ErrCurrentPasswordMismatch,
		},
		{
			name:  "confirmation mismatch wins over unchanged",
			input: ChangePasswordInput{CurrentPassword: strongPassword, NewPassword: strongPassword, ConfirmPassword: "Other3#"},
			want:  ErrPasswordConfirmation,
		},
		{
			name:  "unchanged",
			input: ChangePasswordInput{CurrentPassword: strongPassword, NewPassword: strongPassword, ConfirmPassword: strongPassword},
			want:  ErrPasswordUnchanged,
		},
		{
			name:  "policy",
			input: ChangePasswordInput{CurrentPassword: strongPassword, NewPassword: "weakpass1!", ConfirmPassword: "weakpass1!"},
			want:  ErrPasswordPolicy,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := env.svc.ChangePassword(context.Background(), identity, tc.input)
			require.ErrorIs(t, err, tc.want)
		})
	}

	_, err := env.svc.Login(context.Background(), LoginInput{Email: "order@gmail.com", Password: strongPassword})
	require.NoError(t, err)
}

func TestChangePasswordProviderAccount(t *testing.T) {
	env := newTestEnv(t)
	env.profiles.set("fb-token", providerProfile("f-7", "fbonly@gmail.com", "Fb Only", ""))
	result, err := env.svc.OAuthLogin(context.Background(), models.AuthProviderFacebook, "fb-token")
	require.NoError(t, err)

	err = env.svc.ChangePassword(context.Background(), auth.Identity{AccountID: result.User.ID}, ChangePasswordInput{
		CurrentPassword: "Anything1!",
		NewPassword:     "Fresh2@pass",
		ConfirmPassword: "Fresh2@pass",
	})
	require.ErrorIs(t, err, ErrPasswordNotSet)
}

func TestChangePasswordRequiresIdentity(t *testing.T) {
	env := newTestEnv(t)

	err := env.svc.ChangePassword(context.Background(), auth.Identity{}, ChangePasswordInput{})
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
	require.ErrorIs(t, err, auth.ErrNoIdentity)

	err = env.svc.ChangePassword(context.Background(), auth.Identity{AccountID: 404}, ChangePasswordInput{})
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestLogoutAndMe(t *testing.T) {
	env := newTestEnv(t)
	registered := env.register(t, "me@gmail.com")
	identity := auth.Identity{AccountID: registered.User.ID, Email: registered.User.Email}

	require.NoError(t, env.svc.Logout(context.Background(), identity))
	require.ErrorIs(t, env.svc.Logout(context.Background(), auth.Identity{}), apperrors.ErrUnauthorized)
	require.ErrorIs(t, env.svc.Logout(context.Background(), auth.Identity{}), auth.ErrNoIdentity)

	// Logout revokes nothing.
	_, err := env.svc.Refresh(context.Background(), registered.RefreshToken)
	require.NoError(t, err)

	summary, err := env.svc.Me(context.Background(), identity)
	require.NoError(t, err)
	require.Equal(t, registered.User.ID, summary.ID)
	require.Equal(t, "me@gmail.com", summary.Email)
	require.False(t, summary.CreatedAt.IsZero())

	_, err = env.svc.Me(context.Background(), auth.Identity{AccountID: 999})
	require.ErrorIs(t, err, ErrAccountNotFound)
}
