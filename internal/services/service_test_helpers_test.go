package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tramdoc/tramdoc/internal/auth"
	"github.com/tramdoc/tramdoc/internal/auth/providers"
	"github.com/tramdoc/tramdoc/internal/database/testutil"
	"github.com/tramdoc/tramdoc/internal/models"
	"github.com/tramdoc/tramdoc/internal/store"
)

const strongPassword = "Secret1!"

type testEnv struct {
	db       *gorm.DB
	store    *store.GormStore
	tokens   *auth.JWTService
	notifier *recordingNotifier
	profiles *stubProfiles
	clock    *testClock
	svc      *AccountService
}

func newTestEnv(t *testing.T, opts ...AccountOption) *testEnv {
	t.Helper()
	return newTestEnvWithNotifier(t, &recordingNotifier{}, opts...)
}

func newTestEnvWithNotifier(t *testing.T, notifier Notifier, opts ...AccountOption) *testEnv {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	st, err := store.New(db)
	require.NoError(t, err)

	clock := &testClock{now: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
	tokens, err := auth.NewJWTService(auth.JWTConfig{
		Secret:          "test-secret",
		Issuer:          "tramdoc",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		Clock:           clock.Now,
	})
	require.NoError(t, err)

	profiles := &stubProfiles{byToken: map[string]providers.Profile{}}
	base := []AccountOption{WithAccountClock(clock.Now), WithProfileResolver(profiles)}
	svc, err := NewAccountService(st, tokens, notifier, append(base, opts...)...)
	require.NoError(t, err)

	env := &testEnv{db: db, store: st, tokens: tokens, profiles: profiles, clock: clock, svc: svc}
	if rec, ok := notifier.(*recordingNotifier); ok {
		env.notifier = rec
	}
	return env
}

func (e *testEnv) register(t *testing.T, email string) *AuthResult {
	t.Helper()
	result, err := e.svc.Register(context.Background(), RegisterInput{
		Email:    email,
		Password: strongPassword,
		FullName: "Reader",
	})
	require.NoError(t, err)
	return result
}

func (e *testEnv) account(t *testing.T, id uint64) *models.Account {
	t.Helper()
	account, err := e.store.Accounts().FindByID(context.Background(), id)
	require.NoError(t, err)
	return account
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentOTP struct {
	To   string
	Code string
	Name string
}

type recordingNotifier struct {
	mu       sync.Mutex
	otps     []sentOTP
	welcomes []string
}

func (n *recordingNotifier) SendOTP(_ context.Context, to, code, name string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.otps = append(n.otps, sentOTP{To: to, Code: code, Name: name})
	return nil
}

func (n *recordingNotifier) SendWelcome(_ context.Context, to, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.welcomes = append(n.welcomes, to)
	return nil
}

func (n *recordingNotifier) lastCode(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.otps, "expected a reset code to be sent")
	return n.otps[len(n.otps)-1].Code
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SendOTP(ctx context.Context, to, code, name string) error {
	return m.Called(ctx, to, code, name).Error(0)
}

func (m *mockNotifier) SendWelcome(ctx context.Context, to, name string) error {
	return m.Called(ctx, to, name).Error(0)
}

// stubProfiles resolves tokens from a fixed table, or returns err for every token when set.
type stubProfiles struct {
	mu      sync.Mutex
	byToken map[string]providers.Profile
	err     error
}

func (s *stubProfiles) set(token string, profile providers.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byToken[token] = profile
}

func (s *stubProfiles) Resolve(_ context.Context, provider models.AuthProvider, token string) (*providers.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	profile, ok := s.byToken[token]
	if !ok {
		return nil, fmt.Errorf("%w: unknown test token", providers.ErrTokenInvalid)
	}
	profile.Provider = provider
	return &profile, nil
}

// sequenceCodes hands out the given codes in order.
func sequenceCodes(codes ...string) func() (string, error) {
	var (
		mu sync.Mutex
		i  int
	)
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if i >= len(codes) {
			return "", fmt.Errorf("sequenceCodes: exhausted after %d codes", len(codes))
		}
		code := codes[i]
		i++
		return code, nil
	}
}
