package api

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Checker-Finance/bond-monitor/internal/monitor"
	"github.com/Checker-Finance/bond-monitor/internal/source"
	"github.com/Checker-Finance/bond-monitor/internal/store"
	"github.com/Checker-Finance/bond-monitor/pkg/model"
)

// PairService assembles monitoring pairs.
type PairService interface {
	GetMonitoringPairs(ctx context.Context, limit int) []model.MonitoringPair
}

// HousekeepingStore is the store subset behind the housekeeping endpoints.
type HousekeepingStore interface {
	DatabaseUsage(ctx context.Context, limitMB float64) (*model.DatabaseUsage, error)
	Cleanup(ctx context.Context, req model.CleanupRequest) (*model.CleanupResult, error)
	SystemCounts(ctx context.Context) (*model.SystemCounts, error)
	LatestPairs(ctx context.Context) (*model.PairsSnapshotEvent, error)
}

// PollerStatus reports whether background monitoring is running.
type PollerStatus interface {
	Active() bool
	LastRun() time.Time
}

// MonitoringHandler serves the /api/monitoring endpoints.
type MonitoringHandler struct {
	logger  *zap.Logger
	pairs   PairService
	src     source.MarketDataSource
	store   HousekeepingStore
	poller  PollerStatus // optional
	limitMB float64
}

// NewMonitoringHandler creates the handler. poller may be nil when the
// background poller is disabled.
func NewMonitoringHandler(
	logger *zap.Logger,
	pairs PairService,
	src source.MarketDataSource,
	st HousekeepingStore,
	poller PollerStatus,
	dbLimitMB float64,
) *MonitoringHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MonitoringHandler{
		logger:  logger,
		pairs:   pairs,
		src:     src,
		store:   st,
		poller:  poller,
		limitMB: dbLimitMB,
	}
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
}

func (h *MonitoringHandler) internalError(c *fiber.Ctx, event string, err error) error {
	h.logger.Error(event, zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

// GetPairs assembles twice the requested limit, then filters, sorts and truncates.
func (h *MonitoringHandler) GetPairs(c *fiber.Ctx) error {
	q, err := parsePairsQuery(c)
	if err != nil {
		return badRequest(c, err)
	}

	pairs := h.pairs.GetMonitoringPairs(c.UserContext(), q.Limit*2)
	pairs = monitor.FilterBySignal(pairs, q.SignalFilter)
	monitor.SortPairs(pairs, q.SortBy, q.SortOrder)
	if len(pairs) > q.Limit {
		pairs = pairs[:q.Limit]
	}

	return c.JSON(PairsResponse{
		Data:     pairs,
		Total:    len(pairs),
		Page:     1,
		PageSize: q.Limit,
	})
}

// GetLatestSnapshot serves the last snapshot saved by the background poller.
func (h *MonitoringHandler) GetLatestSnapshot(c *fiber.Ctx) error {
	snap, err := h.store.LatestPairs(c.UserContext())
	if err != nil {
		return h.internalError(c, "api.latest_snapshot.failed", err)
	}
	if snap == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no snapshot available"})
	}
	return c.JSON(snap)
}

func (h *MonitoringHandler) GetMarketStatus(c *fiber.Ctx) error {
	return c.JSON(h.src.GetMarketStatus(c.UserContext()))
}

func (h *MonitoringHandler) GetHistory(c *fiber.Ctx) error {
	code := strings.TrimSpace(c.Params("code"))
	if code == "" {
		return badRequest(c, errors.New("code is required"))
	}
	days := c.QueryInt("days", defaultHistory)
	if days < 1 || days > maxHistoryDays {
		return badRequest(c, errors.New("days must be between 1 and 365"))
	}

	bars := h.src.FetchPriceHistory(c.UserContext(), code, days)
	if bars == nil {
		bars = []model.PriceBar{}
	}
	return c.JSON(HistoryResponse{Code: code, Days: days, Data: bars})
}

func (h *MonitoringHandler) Search(c *fiber.Ctx) error {
	kw := strings.TrimSpace(c.Query("keyword"))
	if kw == "" {
		return badRequest(c, errors.New("keyword is required"))
	}
	found := h.src.SearchInstruments(c.UserContext(), kw)
	if found == nil {
		found = []model.Instrument{}
	}
	return c.JSON(SearchResponse{Keyword: kw, Data: found})
}

func (h *MonitoringHandler) GetDatabaseUsage(c *fiber.Ctx) error {
	usage, err := h.store.DatabaseUsage(c.UserContext(), h.limitMB)
	if err != nil {
		return h.internalError(c, "api.database_usage.failed", err)
	}
	return c.JSON(usage)
}

// Cleanup deletes (or previews deleting) aged rows. A committed price_cache
// cleanup also drops the in-memory price cache.
func (h *MonitoringHandler) Cleanup(c *fiber.Ctx) error {
	var req model.CleanupRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}

	res, err := h.store.Cleanup(c.UserContext(), req)
	if errors.Is(err, store.ErrInvalidCleanup) {
		return badRequest(c, err)
	}
	if err != nil {
		return h.internalError(c, "api.cleanup.failed", err)
	}

	if !req.IsPreview() && req.Includes(model.CleanupPriceCache) {
		if cc, ok := h.src.(source.CacheController); ok {
			n := cc.ClearCache()
			h.logger.Info("api.cleanup.price_cache_cleared", zap.Int("entries", n))
		}
		res.CacheCleared = true
	}
	return c.JSON(res)
}

func (h *MonitoringHandler) GetSystemStatus(c *fiber.Ctx) error {
	ctx := c.UserContext()
	counts, err := h.store.SystemCounts(ctx)
	if err != nil {
		return h.internalError(c, "api.system_status.failed", err)
	}
	usage, err := h.store.DatabaseUsage(ctx, h.limitMB)
	if err != nil {
		return h.internalError(c, "api.system_status.failed", err)
	}

	status := model.SystemStatus{
		TotalSignalsToday:    counts.SignalsToday,
		ExecutedTradesToday:  counts.ExecutedTradesToday,
		PendingSignals:       counts.PendingSignals,
		DatabaseUsagePercent: usage.Database.UsagePercentage,
		LastUpdate:           time.Now(),
	}
	if h.poller != nil {
		status.MonitoringActive = h.poller.Active()
		if last := h.poller.LastRun(); !last.IsZero() {
			status.LastUpdate = last
		}
	}
	if cc, ok := h.src.(source.CacheController); ok {
		status.CacheEntries = cc.CacheLen()
	}
	return c.JSON(status)
}
