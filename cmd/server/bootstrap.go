package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tramdoc/tramdoc/internal/api"
	"github.com/tramdoc/tramdoc/internal/app"
	"github.com/tramdoc/tramdoc/internal/app/maintenance"
	iauth "github.com/tramdoc/tramdoc/internal/auth"
	"github.com/tramdoc/tramdoc/internal/database"
	"github.com/tramdoc/tramdoc/internal/services"
	"github.com/tramdoc/tramdoc/internal/store"
	"github.com/tramdoc/tramdoc/pkg/logger"
	"github.com/tramdoc/tramdoc/pkg/mail"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB       *gorm.DB
	Store    *store.GormStore
	Accounts *services.AccountService
	Cleaner  *maintenance.Cleaner
	Router   *gin.Engine

	maintenanceEnabled bool
	started            bool
}

// bootstrapRuntime initialises the database, services and HTTP router.
func bootstrapRuntime(cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	if err := ensureSecretsPresent(cfg); err != nil {
		return nil, err
	}

	stack := &runtimeStack{maintenanceEnabled: cfg.Maintenance.Enabled}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mode
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	stack.Store, err = store.New(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise store: %w", err)
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	mailer, err := mail.New(cfg.Email.MailSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise mailer: %w", err)
	}
	if strings.EqualFold(strings.TrimSpace(cfg.Email.Driver), mail.DriverDisabled) {
		log.Warn("email delivery disabled; password reset codes cannot be sent")
	}

	notifier, err := services.NewEmailNotifier(mailer, cfg.Email.NotifierOptions()...)
	if err != nil {
		return nil, fmt.Errorf("initialise notifier: %w", err)
	}

	registry, err := cfg.OAuth.BuildRegistry()
	if err != nil {
		return nil, fmt.Errorf("initialise oauth providers: %w", err)
	}
	for _, provider := range registry.Providers() {
		log.Info("oauth provider enabled", zap.String("provider", provider.DisplayName()))
	}

	stack.Accounts, err = services.NewAccountService(stack.Store, jwtSvc, notifier, services.WithProfileResolver(registry))
	if err != nil {
		return nil, fmt.Errorf("initialise account service: %w", err)
	}

	stack.Cleaner = maintenance.NewCleaner(stack.Store.ResetCodes(),
		maintenance.WithResetCodeSchedule(cfg.Maintenance.OTPPurgeSchedule),
	)

	db := stack.DB
	stack.Router, err = api.NewRouter(api.Dependencies{
		Config:    cfg,
		Accounts:  stack.Accounts,
		Tokens:    jwtSvc,
		Providers: registry,
		PingDB: func(ctx context.Context) error {
			return database.PingContext(ctx, db)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// StartBackground launches scheduled maintenance when enabled.
func (s *runtimeStack) StartBackground() error {
	if s == nil || s.Cleaner == nil || !s.maintenanceEnabled {
		return nil
	}
	if err := s.Cleaner.Start(); err != nil {
		return fmt.Errorf("start maintenance jobs: %w", err)
	}
	s.started = true
	return nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil && s.started {
		<-s.Cleaner.Stop().Done()
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
		s.started = false
	}

	if s.DB != nil {
		if err := database.Close(s.DB); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
		s.DB = nil
	}
}

func ensureSecretsPresent(cfg *app.Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Auth.JWT.Secret = strings.TrimSpace(cfg.Auth.JWT.Secret)
	if cfg.Auth.JWT.Secret == "" {
		return errors.New("auth.jwt.secret must be configured")
	}
	return nil
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.DatabaseSettings()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", dbCfg.Driver))

	return db, nil
}
