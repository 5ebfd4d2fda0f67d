// Package scheduler drives the monitor heartbeat.
package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

// DefaultInterval is the heartbeat interval.
const DefaultInterval = time.Minute

// DefaultJobTimeout bounds a single heartbeat.
const DefaultJobTimeout = 5 * time.Minute

// Ticker is called on every heartbeat. *monitor.Monitor implements it.
type Ticker interface {
	Tick(ctx context.Context, now time.Time) bool
}

// Config holds scheduler configuration.
type Config struct {
	Interval   time.Duration
	JobTimeout time.Duration
	Logger     zerolog.Logger
}

// Scheduler runs heartbeats on a fixed interval. A heartbeat that is still
// running when the next one fires makes that one skip.
type Scheduler struct {
	scheduler  *gocron.Scheduler
	ticker     Ticker
	interval   time.Duration
	jobTimeout time.Duration
	logger     zerolog.Logger
}

// New creates a new Scheduler.
func New(cfg Config, ticker Ticker) *Scheduler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	jobTimeout := cfg.JobTimeout
	if jobTimeout <= 0 {
		jobTimeout = DefaultJobTimeout
	}

	return &Scheduler{
		scheduler:  gocron.NewScheduler(time.UTC),
		ticker:     ticker,
		interval:   interval,
		jobTimeout: jobTimeout,
		logger:     cfg.Logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start schedules the heartbeat and starts the underlying scheduler. The
// first heartbeat fires immediately. Heartbeats stop when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.scheduler.Every(s.interval).SingletonMode().Do(func() {
		s.heartbeat(ctx)
	})
	if err != nil {
		return err
	}

	s.logger.Info().Dur("interval", s.interval).Msg("scheduler started")
	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future heartbeats.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func (s *Scheduler) heartbeat(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()

	if s.ticker.Tick(ctx, time.Now()) {
		s.logger.Debug().Msg("heartbeat ran a polling cycle")
	}
}
