package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/vctrpage/vctr/internal/newsletter"
)

// CleanupScheduler periodically purges pending subscribers whose
// confirmation window has lapsed.
type CleanupScheduler struct {
	scheduler gocron.Scheduler
	service   *newsletter.Service
	metrics   *Metrics
	logger    *slog.Logger
}

// NewCleanupScheduler schedules the cleanup task at the given interval.
func NewCleanupScheduler(svc *newsletter.Service, interval time.Duration, metrics *Metrics, logger *slog.Logger) (*CleanupScheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	c := &CleanupScheduler{
		scheduler: sched,
		service:   svc,
		metrics:   metrics,
		logger:    logger,
	}

	if _, err := sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(c.run),
		gocron.WithName("newsletter-cleanup"),
	); err != nil {
		return nil, fmt.Errorf("failed to schedule cleanup job: %w", err)
	}

	return c, nil
}

// Start begins the scheduler.
func (c *CleanupScheduler) Start() {
	c.logger.Info("starting cleanup scheduler")
	c.scheduler.Start()
}

// Stop gracefully shuts down the scheduler.
func (c *CleanupScheduler) Stop() error {
	c.logger.Info("stopping cleanup scheduler")
	return c.scheduler.Shutdown()
}

func (c *CleanupScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed, err := c.service.CleanupStale(ctx)
	if err != nil {
		c.logger.Error("cleanup run failed", "error", err)
		return
	}
	c.metrics.AddCleanupRemoved(removed)
}
