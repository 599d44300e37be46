package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/tramdoc/tramdoc/internal/api"
	"github.com/tramdoc/tramdoc/internal/app"
	iauth "github.com/tramdoc/tramdoc/internal/auth"
	dbtestutil "github.com/tramdoc/tramdoc/internal/database/testutil"
	"github.com/tramdoc/tramdoc/internal/handlers/testutil"
	"github.com/tramdoc/tramdoc/internal/services"
	"github.com/tramdoc/tramdoc/internal/store"
	"github.com/tramdoc/tramdoc/pkg/mail"
)

func TestRouter_PublicAndProtectedRoutes(t *testing.T) {
	env := testutil.NewEnv(t)

	resp := env.Request(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = env.Request(http.MethodGet, "/api/v1/health", nil, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/auth/me"},
		{http.MethodPost, "/api/v1/auth/logout"},
		{http.MethodPost, "/api/v1/auth/change-password"},
	} {
		resp := env.Request(route.method, route.path, nil, "")
		require.Equal(t, http.StatusUnauthorized, resp.Code, "%s %s", route.method, route.path)
		require.Equal(t, "Bearer", resp.Header().Get("WWW-Authenticate"))
	}

	resp = env.Request(http.MethodGet, "/api/v1/auth/providers", nil, "")
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestRouter_GlobalHeaders(t *testing.T) {
	env := testutil.NewEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "trace-123")
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "trace-123", w.Header().Get("X-Request-ID"))
	require.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	require.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_Preflight(t *testing.T) {
	env := testutil.NewEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/auth/login", nil)
	req.Header.Set("Origin", "https://app.tramdoc.vn")
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestRouter_MetricsDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := &app.Config{}
	cfg.Server.CORSOrigins = []string{"https://app.tramdoc.vn"}
	router := newMinimalRouter(t, cfg, func(context.Context) error { return nil })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_CustomMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := &app.Config{}
	cfg.Monitoring.Prometheus = app.PrometheusConfig{Enabled: true, Endpoint: "internal/metrics"}
	router := newMinimalRouter(t, cfg, func(context.Context) error { return nil })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/internal/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_HealthReportsDatabaseFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := newMinimalRouter(t, &app.Config{}, func(context.Context) error { return errors.New("connection refused") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Contains(t, w.Body.String(), "SERVICE_UNAVAILABLE")
}

func TestNewRouterRequiresDependencies(t *testing.T) {
	_, err := api.NewRouter(api.Dependencies{})
	require.Error(t, err)

	_, err = api.NewRouter(api.Dependencies{Config: &app.Config{}})
	require.Error(t, err)
}

func newMinimalRouter(t *testing.T, cfg *app.Config, ping func(context.Context) error) *gin.Engine {
	t.Helper()

	db := dbtestutil.MustOpenTestDB(t, dbtestutil.WithAutoMigrate())
	st, err := store.New(db)
	require.NoError(t, err)

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "router-secret"})
	require.NoError(t, err)

	mailer, err := mail.New(mail.Settings{Driver: mail.DriverDisabled})
	require.NoError(t, err)
	notifier, err := services.NewEmailNotifier(mailer)
	require.NoError(t, err)

	accounts, err := services.NewAccountService(st, jwtSvc, notifier)
	require.NoError(t, err)

	router, err := api.NewRouter(api.Dependencies{
		Config:   cfg,
		Accounts: accounts,
		Tokens:   jwtSvc,
		PingDB:   ping,
	})
	require.NoError(t, err)
	return router
}
