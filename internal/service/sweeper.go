package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tradegate-bot/tradegate/internal/models"
)

// Sweeper closes threads whose auto-close deadline has passed. It runs on a
// fixed cadence and claims each due schedule atomically, so a concurrent
// cancel between listing and acting wins and the thread stays open.
type Sweeper struct {
	cfg     ConfigSource
	threads ThreadStore
	closer  ThreadCloser
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewSweeper constructs the sweeper.
func NewSweeper(cfg ConfigSource, threads ThreadStore, closer ThreadCloser, metrics *MetricsService, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		cfg:     cfg,
		threads: threads,
		closer:  closer,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Run executes sweeps on the configured interval until ctx is cancelled.
// Each tick is isolated: a panic or error in one sweep never stops the loop.
func (s *Sweeper) Run(ctx context.Context) {
	interval := s.cfg.Bot().SweepInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("sweeper started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
			// Pick up interval edits on the next cadence.
			if next := s.cfg.Bot().SweepInterval; next > 0 && next != interval {
				interval = next
				ticker.Reset(interval)
				s.logger.Info("sweep interval updated", zap.Duration("interval", interval))
			}
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("sweep panicked", zap.Any("panic", r))
		}
	}()
	if _, err := s.Sweep(ctx, s.now().UTC()); err != nil {
		s.logger.Error("sweep failed", zap.Error(err))
	}
}

// Sweep closes every thread whose deadline is at or before now and returns
// how many it closed. Failures on individual threads are logged and skipped;
// the unclaimed schedule stays due for the next pass.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	due, err := s.threads.DueSchedules(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list due schedules: %w", err)
	}

	closed := 0
	for _, threadID := range due {
		claimed, err := s.threads.ClaimSchedule(ctx, threadID, now)
		if err != nil {
			s.metrics.SweepItemFailed()
			s.logger.Error("claim schedule", zap.String("thread_id", threadID), zap.Error(err))
			continue
		}
		if !claimed {
			// Cancelled or claimed elsewhere since listing.
			continue
		}

		notice := "⏰ The review window has ended. This post is now closed."
		if err := s.closer.Close(ctx, threadID, nil, models.CloseReasonPolicy, notice); err != nil {
			s.metrics.SweepItemFailed()
			s.logger.Error("auto close", zap.String("thread_id", threadID), zap.Error(err))
			// Re-arm so the next pass retries the claimed schedule.
			if _, rearmErr := s.threads.ScheduleAutoClose(ctx, threadID, now); rearmErr != nil {
				s.logger.Error("re-arm failed schedule", zap.String("thread_id", threadID), zap.Error(rearmErr))
			}
			continue
		}
		closed++
	}

	if closed > 0 {
		s.metrics.SweepClosed(closed)
		s.logger.Info("sweep closed threads", zap.Int("closed", closed), zap.Int("due", len(due)))
	}
	return closed, nil
}
