package jobs

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/bond-monitor/internal/metrics"
	"github.com/Checker-Finance/bond-monitor/internal/monitor"
	"github.com/Checker-Finance/bond-monitor/pkg/model"
)

// Assembler runs one monitoring pass.
type Assembler interface {
	Assemble(ctx context.Context, limit int) monitor.Pass
}

// MarketStatusSource reports the benchmark market state.
type MarketStatusSource interface {
	GetMarketStatus(ctx context.Context) model.MarketStatus
}

// SnapshotStore is the persistence subset the poller writes to.
type SnapshotStore interface {
	UpsertBonds(ctx context.Context, bonds []model.BondMetadata) error
	RecordPriceTicks(ctx context.Context, ticks []model.PriceSnapshot) error
	RecordSignals(ctx context.Context, signals []model.Signal) error
	SaveSnapshot(ctx context.Context, snap model.PairsSnapshotEvent, ttl time.Duration) error
}

// EventPublisher emits the snapshot downstream.
type EventPublisher interface {
	PublishPairsSnapshot(ctx context.Context, snap model.PairsSnapshotEvent) error
}

// PollerConfig tunes the monitor poller.
type PollerConfig struct {
	Interval    time.Duration
	Limit       int
	SnapshotTTL time.Duration
}

// MonitorPoller periodically assembles monitoring pairs, persists the raw
// inputs and detected signals, caches the snapshot and publishes it on NATS.
type MonitorPoller struct {
	logger    *zap.Logger
	assembler Assembler
	market    MarketStatusSource
	store     SnapshotStore
	publisher EventPublisher // optional
	cfg       PollerConfig
	now       func() time.Time

	active   atomic.Bool
	lastRun  atomic.Int64 // unix nanos of the last completed cycle
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewMonitorPoller constructs the background monitoring job.
func NewMonitorPoller(
	logger *zap.Logger,
	assembler Assembler,
	market MarketStatusSource,
	store SnapshotStore,
	pub EventPublisher,
	cfg PollerConfig,
) *MonitorPoller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	return &MonitorPoller{
		logger:    logger,
		assembler: assembler,
		market:    market,
		store:     store,
		publisher: pub,
		cfg:       cfg,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Start runs one cycle immediately, then one per interval, until ctx is
// canceled or Stop is called.
func (p *MonitorPoller) Start(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.active.Store(true)
	defer p.active.Store(false)

	p.logger.Info("monitor_poller.started",
		zap.Duration("interval", p.cfg.Interval),
		zap.Int("limit", p.cfg.Limit))

	p.RunOnce(ctx)
	for {
		select {
		case <-ticker.C:
			p.RunOnce(ctx)
		case <-p.stopCh:
			p.logger.Info("monitor_poller.stopped (manual stop)")
			return
		case <-ctx.Done():
			p.logger.Info("monitor_poller.stopped (context canceled)")
			return
		}
	}
}

// Stop gracefully halts the poller.
func (p *MonitorPoller) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
}

// Active reports whether the loop is running.
func (p *MonitorPoller) Active() bool { return p.active.Load() }

// LastRun returns the completion time of the last cycle, zero if none.
func (p *MonitorPoller) LastRun() time.Time {
	n := p.lastRun.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// RunOnce executes one monitoring cycle and returns the snapshot it produced.
// Persistence and publish failures are logged; the snapshot is still returned.
func (p *MonitorPoller) RunOnce(ctx context.Context) model.PairsSnapshotEvent {
	start := time.Now()
	pass := p.assembler.Assemble(ctx, p.cfg.Limit)
	now := p.now()

	snap := model.PairsSnapshotEvent{
		GeneratedAt: now.UTC(),
		Count:       len(pass.Pairs),
		Market:      p.market.GetMarketStatus(ctx),
		Pairs:       pass.Pairs,
	}
	for _, pr := range pass.Pairs {
		if pr.BondProvenance == model.ProvenanceSynthetic {
			snap.Synthetic++
		}
	}
	signals := monitor.Signals(pass.Pairs, now)
	snap.Signals = len(signals)

	if err := p.store.UpsertBonds(ctx, pass.Bonds); err != nil {
		p.fail("upsert_bonds", err)
	}
	if err := p.store.RecordPriceTicks(ctx, pass.Ticks); err != nil {
		p.fail("record_ticks", err)
	}
	if err := p.store.RecordSignals(ctx, signals); err != nil {
		p.fail("record_signals", err)
	}
	if err := p.store.SaveSnapshot(ctx, snap, p.cfg.SnapshotTTL); err != nil {
		p.fail("save_snapshot", err)
	}
	if p.publisher != nil {
		if err := p.publisher.PublishPairsSnapshot(ctx, snap); err != nil {
			p.logger.Warn("monitor_poller.nats_publish_failed", zap.Error(err))
		}
	}

	p.lastRun.Store(now.UnixNano())
	metrics.SetLastPoll("monitor_poller", now)
	p.logger.Info("monitor_poller.cycle_complete",
		zap.Int("pairs", snap.Count),
		zap.Int("synthetic", snap.Synthetic),
		zap.Int("signals", snap.Signals),
		zap.String("market", string(snap.Market.Status)),
		zap.Duration("duration", time.Since(start)))
	return snap
}

func (p *MonitorPoller) fail(step string, err error) {
	metrics.IncError("monitor_poller", step)
	p.logger.Error("monitor_poller."+step+"_failed", zap.Error(err))
}
