package watch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	derrors "git.home.luguber.info/inful/openapi-docs-gen/internal/foundation/errors"
	"git.home.luguber.info/inful/openapi-docs-gen/internal/logfields"
)

// Refresher runs a task on a fixed interval, used to pick up changes to
// OpenAPI documents that cannot be watched on disk.
type Refresher struct {
	scheduler gocron.Scheduler
	interval  time.Duration
	task      func(ctx context.Context) error
	logger    *slog.Logger
}

// NewRefresher creates a stopped refresher. interval must be positive.
func NewRefresher(interval time.Duration, task func(ctx context.Context) error, logger *slog.Logger) (*Refresher, error) {
	if interval <= 0 {
		return nil, derrors.ValidationError("refresh interval must be positive").
			WithContext("interval", interval.String()).
			Build()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Refresher{scheduler: s, interval: interval, task: task, logger: logger}, nil
}

// Start schedules the task and starts the scheduler. Runs never overlap; a
// run that is still busy when the next one is due pushes it back.
func (r *Refresher) Start(ctx context.Context) error {
	_, err := r.scheduler.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(r.run, ctx),
		gocron.WithName("spec-refresh"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create refresh job: %w", err)
	}
	r.logger.Info("Starting spec refresh", slog.String("interval", r.interval.String()))
	r.scheduler.Start()
	return nil
}

// Stop shuts the scheduler down, waiting for a running task to finish.
func (r *Refresher) Stop() error {
	return r.scheduler.Shutdown()
}

func (r *Refresher) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := r.task(ctx); err != nil {
		r.logger.Warn("spec refresh failed", logfields.Error(err))
		return
	}
	r.logger.Debug("spec refresh complete", logfields.DurationMS(time.Since(start)))
}
