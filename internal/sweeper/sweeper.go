// Package sweeper owns the cache's physical expiry: reads already treat
// stale rows as absent, this job removes them.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/gfw-api/story-api/internal/repositories/storycache"
	"github.com/gfw-api/story-api/pkg/logger"
	"go.uber.org/fx"
)

type Opts struct {
	fx.In

	Cache  storycache.Repository
	Logger logger.Logger
}

type Sweeper struct {
	Cache    storycache.Repository
	Logger   logger.Logger
	interval time.Duration
}

func New(opts Opts) *Sweeper {
	return &Sweeper{
		Cache:    opts.Cache,
		Logger:   opts.Logger.WithComponent("CacheSweeper"),
		interval: time.Hour,
	}
}

// Schedule runs the expiry sweep on the configured interval until the
// context is cancelled.
func (s *Sweeper) Schedule(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create sweep scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			if ctx.Err() != nil {
				s.Logger.Info("Context cancelled, stopping cache sweep job")
				return
			}

			sweepCtx, cancel := context.WithTimeout(ctx, time.Minute)
			defer cancel()

			removed, err := s.Cache.DeleteExpired(sweepCtx)
			if err != nil {
				s.Logger.Error("Failed to sweep expired cache entries", "error", err)
				return
			}
			if removed > 0 {
				s.Logger.Info("Swept expired cache entries", "rows_deleted", removed)
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule cache sweep: %w", err)
	}

	scheduler.Start()

	go func() {
		<-ctx.Done()
		s.Logger.Info("Stopping cache sweep scheduler")
		if err := scheduler.Shutdown(); err != nil {
			s.Logger.Error("Failed to shut down sweep scheduler", "error", err)
		}
	}()

	return nil
}
