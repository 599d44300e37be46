package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tramdoc/tramdoc/internal/api"
	"github.com/tramdoc/tramdoc/internal/app"
	iauth "github.com/tramdoc/tramdoc/internal/auth"
	"github.com/tramdoc/tramdoc/internal/auth/providers"
	"github.com/tramdoc/tramdoc/internal/database"
	sharedtestutil "github.com/tramdoc/tramdoc/internal/database/testutil"
	"github.com/tramdoc/tramdoc/internal/models"
	"github.com/tramdoc/tramdoc/internal/services"
	"github.com/tramdoc/tramdoc/internal/store"
	"github.com/tramdoc/tramdoc/pkg/mail"
	"github.com/tramdoc/tramdoc/pkg/response"
)

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T        *testing.T
	DB       *gorm.DB
	Router   *gin.Engine
	JWT      *iauth.JWTService
	Accounts *services.AccountService
	Mailer   *CapturingMailer
	Google   *StubResolver
	Facebook *StubResolver
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())
	st, err := store.New(db)
	require.NoError(t, err)

	cfg := &app.Config{
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret:     "test-suite-super-secret-key-32-bytes!!",
				Issuer:     "test-suite",
				AccessTTL:  time.Hour,
				RefreshTTL: 24 * time.Hour,
			},
		},
		Email: app.EmailConfig{
			From:    "no-reply@tramdoc.vn",
			AppName: "Trạm Đọc",
			Timeout: time.Second,
		},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
		},
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	require.NoError(t, err)

	mailer := &CapturingMailer{}
	notifier, err := services.NewEmailNotifier(mailer, cfg.Email.NotifierOptions()...)
	require.NoError(t, err)

	google := NewStubResolver()
	facebook := NewStubResolver()
	registry := providers.NewRegistry()
	require.NoError(t, registry.Register(models.AuthProviderGoogle, google))
	require.NoError(t, registry.Register(models.AuthProviderFacebook, facebook))

	accounts, err := services.NewAccountService(st, jwtSvc, notifier, services.WithProfileResolver(registry))
	require.NoError(t, err)

	router, err := api.NewRouter(api.Dependencies{
		Config:    cfg,
		Accounts:  accounts,
		Tokens:    jwtSvc,
		Providers: registry,
		PingDB: func(ctx context.Context) error {
			return database.PingContext(ctx, db)
		},
	})
	require.NoError(t, err)

	return &Env{
		T:        t,
		DB:       db,
		Router:   router,
		JWT:      jwtSvc,
		Accounts: accounts,
		Mailer:   mailer,
		Google:   google,
		Facebook: facebook,
	}
}

// UserPayload captures the account fields returned from auth endpoints.
type UserPayload struct {
	ID        uint64  `json:"id"`
	Email     string  `json:"email"`
	FullName  string  `json:"full_name"`
	AvatarURL *string `json:"avatar_url"`
	Bio       *string `json:"bio"`
}

// AuthResult mirrors the payload of every endpoint that signs the caller in.
type AuthResult struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int         `json:"expires_in"`
	User         UserPayload `json:"user"`
}

// Register signs up a local account and returns the issued tokens.
func (e *Env) Register(email, password, fullName string) AuthResult {
	e.T.Helper()

	payload := map[string]string{
		"email":     email,
		"password":  password,
		"full_name": fullName,
	}

	w := e.Request(http.MethodPost, "/api/v1/auth/register", payload, "")
	require.Equal(e.T, http.StatusCreated, w.Code, w.Body.String())
	return e.decodeAuthResult(w)
}

// Login authenticates with local credentials and returns the issued token pair.
func (e *Env) Login(email, password string) AuthResult {
	e.T.Helper()

	payload := map[string]string{
		"email":    email,
		"password": password,
	}

	w := e.Request(http.MethodPost, "/api/v1/auth/login", payload, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())
	return e.decodeAuthResult(w)
}

func (e *Env) decodeAuthResult(w *httptest.ResponseRecorder) AuthResult {
	e.T.Helper()

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var result AuthResult
	DecodeInto(e.T, resp.Data, &result)
	require.NotEmpty(e.T, result.AccessToken)
	require.NotEmpty(e.T, result.RefreshToken)
	require.Equal(e.T, "Bearer", result.TokenType)
	require.Greater(e.T, result.ExpiresIn, 0)
	require.NotZero(e.T, result.User.ID)
	return result
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// RequireError asserts the recorder holds an error envelope with the given status and code.
func RequireError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) *response.ErrorInfo {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	resp := DecodeResponse(t, w)
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error, w.Body.String())
	require.Equal(t, code, resp.Error.Code, w.Body.String())
	return resp.Error
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

var otpPattern = regexp.MustCompile(`\b\d{6}\b`)

// CapturingMailer records every message instead of delivering it.
type CapturingMailer struct {
	mu       sync.Mutex
	messages []mail.Message
	err      error
}

// Send implements mail.Mailer.
func (m *CapturingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msg)
	return nil
}

// Fail makes every subsequent Send return err; nil restores delivery.
func (m *CapturingMailer) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Messages returns a copy of the recorded messages.
func (m *CapturingMailer) Messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.messages...)
}

// LastOTP extracts the code from the newest password reset email sent to the address.
func (m *CapturingMailer) LastOTP(t *testing.T, to string) string {
	t.Helper()
	messages := m.Messages()
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if msg.Tag != "password-reset" || len(msg.To) == 0 || msg.To[0] != to {
			continue
		}
		code := otpPattern.FindString(msg.Body)
		require.NotEmpty(t, code, "reset email carries no code: %s", msg.Body)
		return code
	}
	t.Fatalf("no reset email sent to %s", to)
	return ""
}

// StubResolver resolves provider tokens from a fixed table.
type StubResolver struct {
	mu       sync.Mutex
	profiles map[string]providers.Profile
}

// NewStubResolver builds an empty StubResolver.
func NewStubResolver() *StubResolver {
	return &StubResolver{profiles: make(map[string]providers.Profile)}
}

// Set registers the profile returned for token.
func (s *StubResolver) Set(token string, profile providers.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[token] = profile
}

// Resolve implements providers.Resolver.
func (s *StubResolver) Resolve(_ context.Context, accessToken string) (*providers.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[accessToken]
	if !ok {
		return nil, fmt.Errorf("%w: unknown test token", providers.ErrTokenInvalid)
	}
	return &profile, nil
}
