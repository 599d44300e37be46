package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tramdoc/tramdoc/pkg/logger"
	"github.com/tramdoc/tramdoc/pkg/metrics"
)

const defaultResetCodeSpec = "@hourly"

// ResetCodePurger removes reset codes whose lifetime has elapsed.
type ResetCodePurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type job struct {
	name     string
	schedule string
	run      func(ctx context.Context) error
}

// Cleaner runs background housekeeping on a cron schedule.
type Cleaner struct {
	codes ResetCodePurger
	cron  *cron.Cron
	now   func() time.Time
	log   *zap.Logger

	resetCodeSchedule string
	jobs              []job
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for expiry comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithResetCodeSchedule overrides the cron schedule for reset code purging.
func WithResetCodeSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.resetCodeSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner. A nil purger disables reset code purging.
func NewCleaner(codes ResetCodePurger, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		codes:             codes,
		now:               time.Now,
		resetCodeSchedule: defaultResetCodeSpec,
		log:               logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	if cleaner.codes != nil {
		cleaner.jobs = append(cleaner.jobs, job{
			name:     "reset codes",
			schedule: cleaner.resetCodeSchedule,
			run: func(ctx context.Context) error {
				_, err := PurgeResetCodes(ctx, cleaner.codes, cleaner.now())
				return err
			},
		})
	}

	return cleaner
}

// Start registers cleanup jobs with the cron scheduler and launches it when at least one job exists.
func (c *Cleaner) Start() error {
	if len(c.jobs) == 0 {
		return nil
	}

	for _, j := range c.jobs {
		j := j
		if _, err := c.cron.AddFunc(j.schedule, func() {
			if err := j.run(context.Background()); err != nil {
				c.log.Warn("cleanup failed", zap.String("job", j.name), zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("maintenance: schedule %s: %w", j.name, err)
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler; the returned context is done once running jobs complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes every cleanup job sequentially, collecting all failures.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	for _, j := range c.jobs {
		if err := j.run(ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", j.name, err))
		}
	}
	return errs
}

// PurgeResetCodes deletes reset codes expired at now and records the count.
func PurgeResetCodes(ctx context.Context, codes ResetCodePurger, now time.Time) (int64, error) {
	if codes == nil {
		return 0, errors.New("purge reset codes: store is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	purged, err := codes.PurgeExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("purge reset codes: %w", err)
	}
	if purged > 0 {
		metrics.PurgedResetCodes.Add(float64(purged))
		logger.WithModule("maintenance").Info("expired reset codes purged", zap.Int64("count", purged))
	}
	return purged, nil
}
