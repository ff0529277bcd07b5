package tushare

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/bond-monitor/internal/cache"
	"github.com/Checker-Finance/bond-monitor/internal/httpclient"
	"github.com/Checker-Finance/bond-monitor/internal/metrics"
	"github.com/Checker-Finance/bond-monitor/internal/rate"
	"github.com/Checker-Finance/bond-monitor/internal/source"
	"github.com/Checker-Finance/bond-monitor/pkg/model"
)

const (
	latestWindowDays   = 60
	defaultHistoryDays = 30

	classStock = "stock"
	classBond  = "bond"
)

// Querier is the wire-level capability the adapter depends on.
type Querier interface {
	Query(ctx context.Context, api string, params map[string]string, fields []string) (*Table, error)
}

// Options tunes the adapter. Zero values take the service defaults.
type Options struct {
	CallsPerMinute int
	RequestDelay   time.Duration
	Timeout        time.Duration
	CacheTTL       time.Duration
	CacheCapacity  int
	BenchmarkIndex string
	Fallback       *Fallback
	Now            func() time.Time
}

// Source is the Tushare MarketDataSource. It exclusively owns the quota
// limiter and the price cache; every upstream call passes through both.
type Source struct {
	logger   *zap.Logger
	api      Querier
	limiter  *rate.Limiter
	cache    *cache.Cache[model.PriceSnapshot]
	fallback *Fallback
	delay    time.Duration
	timeout  time.Duration
	index    string
	now      func() time.Time
}

var (
	_ source.MarketDataSource = (*Source)(nil)
	_ source.CacheController  = (*Source)(nil)
)

// NewSource builds the adapter over api.
func NewSource(logger *zap.Logger, api Querier, opts Options) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.CallsPerMinute <= 0 {
		opts.CallsPerMinute = 500
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.BenchmarkIndex == "" {
		opts.BenchmarkIndex = "000001.SH"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Fallback == nil {
		opts.Fallback = NewFallback(nil)
	}
	return &Source{
		logger:  logger,
		api:     api,
		limiter: rate.New(rate.Config{Limit: opts.CallsPerMinute}),
		cache: cache.New[model.PriceSnapshot](opts.CacheTTL, opts.CacheCapacity,
			cache.WithClock[model.PriceSnapshot](opts.Now),
			cache.WithEvictionHook[model.PriceSnapshot](func(string) { metrics.PriceCacheEvictions.Inc() }),
		),
		fallback: opts.Fallback,
		delay:    opts.RequestDelay,
		timeout:  opts.Timeout,
		index:    opts.BenchmarkIndex,
		now:      opts.Now,
	}
}

// Factory builds the adapter from service configuration.
func Factory(_ context.Context, deps source.Deps) (source.MarketDataSource, error) {
	if deps.Token == "" {
		return nil, errors.New("tushare: provider token is not configured")
	}
	cfg := deps.Config
	client := NewClient(deps.Logger, nil, ClientConfig{
		BaseURL:  cfg.TushareBaseURL,
		Token:    deps.Token,
		RetryMax: cfg.UpstreamRetryMax,
	})
	return NewSource(deps.Logger, client, Options{
		CallsPerMinute: cfg.CallsPerMinute,
		RequestDelay:   cfg.RequestDelay,
		Timeout:        cfg.UpstreamTimeout,
		CacheTTL:       cfg.PriceCacheTTL,
		CacheCapacity:  cfg.PriceCacheCapacity,
		BenchmarkIndex: cfg.BenchmarkIndex,
	}), nil
}

// call gates one upstream query through the limiter, the self-throttle delay
// and the per-call timeout, and classifies any failure.
func (s *Source) call(ctx context.Context, api string, params map[string]string, fields []string) (*Table, source.Reason, error) {
	if !s.limiter.Allow() {
		used, limit := s.limiter.Usage()
		metrics.IncRateLimitDenial(api)
		s.logger.Warn("tushare.rate_limited",
			zap.String("api", api),
			zap.Int("used", used),
			zap.Int("limit", limit))
		return nil, source.ReasonRateLimited, nil
	}
	if err := pause(ctx, s.delay); err != nil {
		return nil, source.ReasonProviderError, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	t, err := s.api.Query(ctx, api, params, fields)
	if err == nil && (t == nil || t.Len() == 0) {
		err = fmt.Errorf("%s: %w", api, ErrNoData)
	}
	switch {
	case err == nil:
		return t, source.ReasonNone, nil
	case errors.Is(err, ErrNoData):
		return nil, source.ReasonNoData, err
	case errors.Is(err, ErrMalformed), errors.Is(err, httpclient.ErrDecode):
		metrics.IncError("tushare", string(source.ReasonDecodeError))
		return nil, source.ReasonDecodeError, err
	default:
		metrics.IncError("tushare", string(source.ReasonProviderError))
		return nil, source.ReasonProviderError, err
	}
}

func (s *Source) FetchBondUniverse(ctx context.Context) []model.BondMetadata {
	t, reason, err := s.call(ctx, APIBondBasic, nil, bondBasicFields)
	if reason != source.ReasonNone {
		s.logger.Warn("tushare.bond_universe.unavailable",
			zap.String("reason", string(reason)),
			zap.Error(err))
		return nil
	}

	rows := t.Rows()
	bonds := make([]model.BondMetadata, 0, len(rows))
	for i, r := range rows {
		b, err := ToBondMetadata(r)
		if err != nil {
			s.logger.Warn("tushare.bond_universe.record_skipped",
				zap.Int("row", i),
				zap.Error(err))
			continue
		}
		bonds = append(bonds, b)
	}
	s.logger.Info("tushare.bond_universe.loaded", zap.Int("count", len(bonds)))
	return bonds
}

func (s *Source) FetchStockPrice(ctx context.Context, code string) source.Fetch[model.PriceSnapshot] {
	f := s.latest(ctx, classStock, code)
	if !f.OK {
		s.logger.Warn("tushare.stock_price.unavailable",
			zap.String("code", code),
			zap.String("reason", string(f.Reason)))
	}
	return f
}

// FetchBondPrice falls back to a synthetic snapshot when the real bar is
// unavailable, so the result is always OK. Synthetic snapshots are not cached.
func (s *Source) FetchBondPrice(ctx context.Context, code string) source.Fetch[model.PriceSnapshot] {
	f := s.latest(ctx, classBond, code)
	if f.OK {
		return f
	}
	metrics.SyntheticFallbacks.Inc()
	s.logger.Warn("tushare.bond_price.synthetic",
		zap.String("code", code),
		zap.String("reason", string(f.Reason)))
	return source.Found(s.fallback.Snapshot(code, s.now()))
}

// latest is the cache-aside lookup of the most recent daily bar.
func (s *Source) latest(ctx context.Context, class, code string) source.Fetch[model.PriceSnapshot] {
	key := class + "_" + code
	if snap, ok := s.cache.Get(key); ok {
		metrics.IncPriceCache(class, "hit")
		return source.Found(snap)
	}
	metrics.IncPriceCache(class, "miss")

	now := s.now()
	params := map[string]string{
		"ts_code":    code,
		"start_date": now.AddDate(0, 0, -latestWindowDays).Format(model.CompactDateLayout),
	}
	t, reason, err := s.call(ctx, APIDaily, params, dailyFields)
	if reason != source.ReasonNone {
		if err != nil {
			s.logger.Debug("tushare.daily_failed", zap.String("code", code), zap.Error(err))
		}
		return source.Missing[model.PriceSnapshot](reason)
	}

	// rows arrive most recent first
	snap, err := ToPriceSnapshot(code, t.Rows()[0], now)
	if err != nil {
		s.logger.Debug("tushare.daily_decode_failed", zap.String("code", code), zap.Error(err))
		return source.Missing[model.PriceSnapshot](source.ReasonDecodeError)
	}
	s.cache.Put(key, snap)
	return source.Found(snap)
}

// FetchPriceHistory returns up to days of daily bars in ascending date order.
func (s *Source) FetchPriceHistory(ctx context.Context, code string, days int) []model.PriceBar {
	if days <= 0 {
		days = defaultHistoryDays
	}
	api := APIDaily
	if source.IsBondCode(code) {
		api = APIBondDaily
	}
	params := map[string]string{
		"ts_code":    code,
		"start_date": s.now().AddDate(0, 0, -days).Format(model.CompactDateLayout),
	}
	t, reason, err := s.call(ctx, api, params, dailyFields)
	if reason != source.ReasonNone {
		s.logger.Warn("tushare.price_history.unavailable",
			zap.String("code", code),
			zap.String("api", api),
			zap.String("reason", string(reason)),
			zap.Error(err))
		return nil
	}

	rows := t.Rows()
	bars := make([]model.PriceBar, len(rows))
	for i, r := range rows {
		bar, err := ToPriceBar(r)
		if err != nil {
			s.logger.Warn("tushare.price_history.decode_failed",
				zap.String("code", code),
				zap.Int("row", i),
				zap.Error(err))
			return nil
		}
		// provider order is descending; fill from the back
		bars[len(rows)-1-i] = bar
	}
	return bars
}

func (s *Source) GetMarketStatus(ctx context.Context) model.MarketStatus {
	params := map[string]string{
		"ts_code":    s.index,
		"start_date": s.now().Format(model.CompactDateLayout),
	}
	t, reason, err := s.call(ctx, APIIndexDaily, params, indexDailyFields)
	switch reason {
	case source.ReasonNone:
	case source.ReasonNoData:
		return model.MarketStatus{Status: model.MarketUnknown, Message: "no market data for " + s.index}
	default:
		s.logger.Warn("tushare.market_status.unavailable",
			zap.String("reason", string(reason)),
			zap.Error(err))
		return model.MarketStatus{Status: model.MarketUnknown, Message: "market status unavailable"}
	}

	change, err := t.Rows()[0].RequiredDecimal("pct_chg")
	if err != nil {
		s.logger.Warn("tushare.market_status.decode_failed", zap.Error(err))
		return model.MarketStatus{Status: model.MarketUnknown, Message: "market status unavailable"}
	}
	return model.MarketStatus{
		Status:      source.ClassifyMarket(change),
		IndexChange: &change,
		Message:     fmt.Sprintf("%s change: %s%%", s.index, change.String()),
	}
}

func (s *Source) SearchInstruments(ctx context.Context, keyword string) []model.Instrument {
	if keyword == "" {
		return nil
	}
	t, reason, err := s.call(ctx, APIStockBasic, map[string]string{"name": keyword}, stockBasicFields)
	if reason != source.ReasonNone {
		if reason != source.ReasonNoData {
			s.logger.Warn("tushare.search.unavailable",
				zap.String("keyword", keyword),
				zap.String("reason", string(reason)),
				zap.Error(err))
		}
		return nil
	}
	rows := t.Rows()
	out := make([]model.Instrument, 0, len(rows))
	for _, r := range rows {
		out = append(out, ToInstrument(r))
	}
	return out
}

// CacheLen reports the number of held price cache entries, including
// expired ones not yet looked up.
func (s *Source) CacheLen() int { return s.cache.Len() }

// ClearCache drops every cached price snapshot and returns how many were held.
func (s *Source) ClearCache() int { return s.cache.Clear() }

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
