package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/bond-monitor/internal/metrics"
	"github.com/Checker-Finance/bond-monitor/pkg/model"
)

// Cleaner deletes aged rows.
type Cleaner interface {
	Cleanup(ctx context.Context, req model.CleanupRequest) (*model.CleanupResult, error)
}

// Retention is how long each data type is kept.
type Retention struct {
	Prices  time.Duration
	Signals time.Duration
	Trades  time.Duration
}

// RetentionSweeper periodically deletes price ticks, signals and trades
// older than their retention.
type RetentionSweeper struct {
	logger    *zap.Logger
	cleaner   Cleaner
	interval  time.Duration
	retention Retention
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// NewRetentionSweeper constructs the sweeper. A non-positive retention
// disables cleanup of that data type.
func NewRetentionSweeper(logger *zap.Logger, cleaner Cleaner, interval time.Duration, retention Retention) *RetentionSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &RetentionSweeper{
		logger:    logger,
		cleaner:   cleaner,
		interval:  interval,
		retention: retention,
		stopCh:    make(chan struct{}),
	}
}

// Start runs the sweep loop.
func (s *RetentionSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("retention_sweeper.started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-s.stopCh:
			s.logger.Info("retention_sweeper.stopped (manual stop)")
			return
		case <-ctx.Done():
			s.logger.Info("retention_sweeper.stopped (context canceled)")
			return
		}
	}
}

// Stop gracefully halts the sweeper.
func (s *RetentionSweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// RunOnce performs one sweep and returns the total rows deleted.
func (s *RetentionSweeper) RunOnce(ctx context.Context) int64 {
	start := time.Now()
	commit := false
	var total int64

	for _, target := range []struct {
		dataType string
		keep     time.Duration
	}{
		{model.CleanupPriceCache, s.retention.Prices},
		{model.CleanupSignals, s.retention.Signals},
		{model.CleanupTrades, s.retention.Trades},
	} {
		hours := int(target.keep / time.Hour)
		if hours <= 0 {
			continue
		}
		res, err := s.cleaner.Cleanup(ctx, model.CleanupRequest{
			DataTypes:    []string{target.dataType},
			TimeRange:    model.TimeRange{Hours: hours},
			PreviewOnly:  &commit,
			KeepSnapshot: true,
		})
		if err != nil {
			metrics.IncError("retention_sweeper", target.dataType)
			s.logger.Error("retention_sweeper.cleanup_failed",
				zap.String("data_type", target.dataType),
				zap.Error(err))
			continue
		}
		total += res.SignalsDeleted + res.TradesDeleted + res.PricesDeleted
	}

	metrics.SetLastPoll("retention_sweeper", time.Now())
	s.logger.Info("retention_sweeper.success",
		zap.Int64("deleted", total),
		zap.Duration("duration", time.Since(start)))
	return total
}
