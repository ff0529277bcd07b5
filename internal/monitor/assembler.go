// Package monitor joins bond metadata with live stock and bond prices into
// monitoring pairs and provides the sort/filter helpers the API layer uses.
package monitor

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Checker-Finance/bond-monitor/internal/metrics"
	"github.com/Checker-Finance/bond-monitor/internal/source"
	"github.com/Checker-Finance/bond-monitor/pkg/model"
)

const (
	defaultRating  = "N/A"
	progressEvery  = 10
	skipNoStock    = "no_stock_code"
	skipStockPrice = "stock_price"
	skipBondPrice  = "bond_price"
	skipCanceled   = "canceled"
)

// Assembler builds monitoring pairs. It holds no mutable state of its own;
// caching and quota live in the injected source.
type Assembler struct {
	logger     *zap.Logger
	src        source.MarketDataSource
	thresholds Thresholds
	now        func() time.Time
}

type Option func(*Assembler)

func WithThresholds(t Thresholds) Option { return func(a *Assembler) { a.thresholds = t } }

func WithClock(now func() time.Time) Option { return func(a *Assembler) { a.now = now } }

func NewAssembler(logger *zap.Logger, src source.MarketDataSource, opts ...Option) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Assembler{
		logger:     logger,
		src:        src,
		thresholds: DefaultThresholds,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Source exposes the underlying market data source.
func (a *Assembler) Source() source.MarketDataSource { return a.src }

// Pass is the full output of one assembly pass: the pairs plus the bond
// records and provider snapshots they were built from.
type Pass struct {
	Pairs []model.MonitoringPair
	Bonds []model.BondMetadata
	Ticks []model.PriceSnapshot
}

// GetMonitoringPairs prices the first limit bonds of the universe (all of
// them when limit <= 0) and returns the survivors sorted by stock change,
// descending. Bonds whose prices are unavailable are dropped, never fatal.
func (a *Assembler) GetMonitoringPairs(ctx context.Context, limit int) []model.MonitoringPair {
	return a.Assemble(ctx, limit).Pairs
}

// Assemble runs one pass; see GetMonitoringPairs.
func (a *Assembler) Assemble(ctx context.Context, limit int) Pass {
	bonds := a.src.FetchBondUniverse(ctx)
	if len(bonds) == 0 {
		a.logger.Warn("monitor.universe_empty")
		return Pass{Pairs: []model.MonitoringPair{}}
	}
	if limit > 0 && len(bonds) > limit {
		bonds = bonds[:limit]
	}

	pass := Pass{
		Pairs: make([]model.MonitoringPair, 0, len(bonds)),
		Bonds: bonds,
	}
	for _, b := range bonds {
		if ctx.Err() != nil {
			a.skip(b, skipCanceled, "")
			break
		}
		if b.StockCode == "" {
			metrics.IncPairSkipped(skipNoStock)
			continue
		}

		stock := a.src.FetchStockPrice(ctx, b.StockCode)
		if !stock.OK {
			a.skip(b, skipStockPrice, stock.Reason)
			continue
		}
		bond := a.src.FetchBondPrice(ctx, b.Code)
		if !bond.OK {
			a.skip(b, skipBondPrice, bond.Reason)
			continue
		}

		pass.Pairs = append(pass.Pairs, a.pair(b, stock.Value, bond.Value))
		pass.Ticks = append(pass.Ticks, stock.Value, bond.Value)
		if len(pass.Pairs)%progressEvery == 0 {
			a.logger.Info("monitor.progress", zap.Int("pairs", len(pass.Pairs)))
		}
	}

	SortPairs(pass.Pairs, SortStockChange, SortDesc)
	metrics.PairsAssembled.Add(float64(len(pass.Pairs)))
	a.logger.Info("monitor.pairs_assembled",
		zap.Int("pairs", len(pass.Pairs)),
		zap.Int("considered", len(bonds)))
	return pass
}

func (a *Assembler) skip(b model.BondMetadata, what string, reason source.Reason) {
	metrics.IncPairSkipped(what)
	a.logger.Warn("monitor.pair_skipped",
		zap.String("bond_code", b.Code),
		zap.String("stock_code", b.StockCode),
		zap.String("missing", what),
		zap.String("reason", string(reason)))
}

func (a *Assembler) pair(b model.BondMetadata, stock, bond model.PriceSnapshot) model.MonitoringPair {
	premium := PremiumRate(bond.Price, b.ConversionPrice)
	rating := b.Rating
	if rating == "" {
		rating = defaultRating
	}
	return model.MonitoringPair{
		StockCode:   b.StockCode,
		StockName:   b.StockName,
		StockPrice:  stock.Price,
		StockChange: stock.Change,
		StockVolume: stock.Volume,

		BondCode:        b.Code,
		BondName:        b.Name,
		BondPrice:       bond.Price,
		BondChange:      bond.Change,
		BondProvenance:  bond.Provenance,
		ConversionPrice: b.ConversionPrice.Decimal,
		Premium:         premium,
		MaturityDate:    b.MaturityDate,
		RemainingYears:  RemainingYears(b, a.now()),
		DoubleLow:       DoubleLow(bond.Price, premium),
		Rating:          rating,

		SignalType: a.thresholds.Classify(stock.Change),
	}
}

// Sort fields accepted by SortPairs.
const (
	SortStockChange = "stock_change"
	SortBondChange  = "bond_change"
	SortPremium     = "premium"
	SortDoubleLow   = "double_low"

	SortAsc  = "asc"
	SortDesc = "desc"
)

// ValidSortField reports whether field is accepted by SortPairs.
func ValidSortField(field string) bool {
	switch field {
	case SortStockChange, SortBondChange, SortPremium, SortDoubleLow:
		return true
	}
	return false
}

// SortPairs stably sorts pairs in place. Unknown fields sort by stock change;
// any order other than "asc" is descending.
func SortPairs(pairs []model.MonitoringPair, field, order string) {
	key := func(p model.MonitoringPair) decimal.Decimal { return p.StockChange }
	switch field {
	case SortBondChange:
		key = func(p model.MonitoringPair) decimal.Decimal { return p.BondChange }
	case SortPremium:
		key = func(p model.MonitoringPair) decimal.Decimal { return p.Premium }
	case SortDoubleLow:
		key = func(p model.MonitoringPair) decimal.Decimal { return p.DoubleLow }
	}
	dir := 1
	if order == SortAsc {
		dir = -1
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return key(pairs[i]).Cmp(key(pairs[j])) == dir
	})
}

// Signal filters accepted by FilterBySignal.
const (
	FilterWithSignal = "with_signal"
	FilterNoSignal   = "no_signal"
)

// FilterBySignal keeps pairs matching filter: "with_signal", "no_signal",
// a specific signal type, or everything when filter is empty.
func FilterBySignal(pairs []model.MonitoringPair, filter string) []model.MonitoringPair {
	if filter == "" {
		return pairs
	}
	out := make([]model.MonitoringPair, 0, len(pairs))
	for _, p := range pairs {
		var keep bool
		switch filter {
		case FilterWithSignal:
			keep = p.SignalType != model.SignalNone
		case FilterNoSignal:
			keep = p.SignalType == model.SignalNone
		default:
			keep = string(p.SignalType) == filter
		}
		if keep {
			out = append(out, p)
		}
	}
	return out
}
