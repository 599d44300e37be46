package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tramdoc/tramdoc/internal/app"
)

func testConfig(t *testing.T) *app.Config {
	t.Helper()
	cfg, err := app.LoadConfig(t.TempDir())
	require.NoError(t, err)
	cfg.Database.Path = ":memory:"
	cfg.Auth.JWT.Secret = "bootstrap-secret"
	return cfg
}

func TestBootstrapRuntimeServesHealth(t *testing.T) {
	cfg := testConfig(t)

	stack, err := bootstrapRuntime(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), zap.NewNop()) })

	require.NoError(t, stack.StartBackground())
	require.True(t, stack.started)

	w := httptest.NewRecorder()
	stack.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	stack.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/auth/providers", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "google")
}

func TestBootstrapRuntimeMaintenanceDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Maintenance.Enabled = false

	stack, err := bootstrapRuntime(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), zap.NewNop()) })

	require.NoError(t, stack.StartBackground())
	require.False(t, stack.started)
}

func TestBootstrapRuntimeRequiresSecret(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.JWT.Secret = "  "

	_, err := bootstrapRuntime(cfg, zap.NewNop())
	require.EqualError(t, err, "auth.jwt.secret must be configured")
}

func TestBootstrapRuntimeRejectsUnknownMailDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Email.Driver = "carrier-pigeon"

	_, err := bootstrapRuntime(cfg, zap.NewNop())
	require.ErrorContains(t, err, "initialise mailer")
}

func TestLoadApplicationConfig(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("server:\n  port: 9191\n"), 0o600))

	fromDir, err := loadApplicationConfig(dir)
	require.NoError(t, err)
	require.Equal(t, 9191, fromDir.Server.Port)

	fromFile, err := loadApplicationConfig(file)
	require.NoError(t, err)
	require.Equal(t, 9191, fromFile.Server.Port)

	_, err = loadApplicationConfig(filepath.Join(dir, "missing"))
	require.ErrorContains(t, err, "does not exist")
}

func TestLoadEnvFile(t *testing.T) {
	require.NoError(t, loadEnvFile(""))
	require.NoError(t, loadEnvFile(filepath.Join(t.TempDir(), "absent.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TRAMDOC_TEST_DOTENV=loaded\n"), 0o600))
	t.Setenv("TRAMDOC_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("TRAMDOC_TEST_DOTENV"))

	require.NoError(t, loadEnvFile(path))
	require.Equal(t, "loaded", os.Getenv("TRAMDOC_TEST_DOTENV"))
}

func TestRunPurgeOnly(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("database:\n  path: \":memory:\"\nauth:\n  jwt:\n    secret: purge-secret\nlogging:\n  level: error\n"), 0o600))

	err := run(context.Background(), []string{"-config", file, "-env-file", "", "-purge-otps"})
	require.NoError(t, err)
}
