// Package retention bounds the transient stores by age.
package retention

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// PendingSweeper ages out pending orders. Orders marked needs_retry use their
// own, longer cutoff so operators can still reconcile them.
type PendingSweeper interface {
	DeleteStale(ctx context.Context, cutoff, failedCutoff time.Time) (int, error)
}

type AgeSweeper interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

type CacheSweeper interface {
	Sweep(maxAge time.Duration) int
}

type Config struct {
	Interval     time.Duration
	PendingTTL   time.Duration
	FailedTTL    time.Duration
	CompletedTTL time.Duration
	CacheTTL     time.Duration
}

func DefaultConfig() Config {
	return Config{
		Interval:     5 * time.Minute,
		PendingTTL:   time.Hour,
		FailedTTL:    7 * 24 * time.Hour,
		CompletedTTL: 24 * time.Hour,
		CacheTTL:     24 * time.Hour,
	}
}

type Sweeper struct {
	pending   PendingSweeper
	completed AgeSweeper
	cache     CacheSweeper
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
}

func NewSweeper(pending PendingSweeper, completed AgeSweeper, cache CacheSweeper, cfg Config, logger *zap.Logger) *Sweeper {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = def.PendingTTL
	}
	if cfg.FailedTTL <= 0 {
		cfg.FailedTTL = def.FailedTTL
	}
	if cfg.CompletedTTL <= 0 {
		cfg.CompletedTTL = def.CompletedTTL
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = def.CacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		pending:   pending,
		completed: completed,
		cache:     cache,
		cfg:       cfg,
		logger:    logger.With(zap.String("component", "retention")),
		now:       time.Now,
	}
}

// Run sweeps on every tick until ctx is done. It always returns nil so it can
// sit in an errgroup next to the HTTP server.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

type Result struct {
	Pending   int
	Completed int
	Cache     int
}

func (s *Sweeper) SweepOnce(ctx context.Context) Result {
	now := s.now()
	var res Result
	var err error

	if res.Pending, err = s.pending.DeleteStale(ctx, now.Add(-s.cfg.PendingTTL), now.Add(-s.cfg.FailedTTL)); err != nil {
		s.logger.Error("sweep pending orders", zap.Error(err))
	}
	if res.Completed, err = s.completed.DeleteOlderThan(ctx, now.Add(-s.cfg.CompletedTTL)); err != nil {
		s.logger.Error("sweep completed orders", zap.Error(err))
	}
	if s.cache != nil {
		res.Cache = s.cache.Sweep(s.cfg.CacheTTL)
	}

	if res.Pending+res.Completed+res.Cache > 0 {
		s.logger.Info("swept expired entries",
			zap.Int("pending", res.Pending),
			zap.Int("completed", res.Completed),
			zap.Int("verifications", res.Cache))
	}
	return res
}
