package source

import (
	"context"
	"strings"
	"sync"

	"github.com/Checker-Finance/bond-monitor/pkg/model"
)

// Static is a deterministic in-memory MarketDataSource. It serves fixtures
// for local runs (DATA_SOURCE=static) and tests.
type Static struct {
	mu          sync.RWMutex
	Bonds       []model.BondMetadata
	Stocks      map[string]model.PriceSnapshot
	BondPrices  map[string]model.PriceSnapshot
	History     map[string][]model.PriceBar
	Market      model.MarketStatus
	Instruments []model.Instrument

	// Failures forces a Missing result with the given reason for a code.
	Failures map[string]Reason
}

// NewStatic returns an empty static source with an unknown market status.
func NewStatic() *Static {
	return &Static{
		Stocks:     make(map[string]model.PriceSnapshot),
		BondPrices: make(map[string]model.PriceSnapshot),
		History:    make(map[string][]model.PriceBar),
		Failures:   make(map[string]Reason),
		Market:     model.MarketStatus{Status: model.MarketUnknown, Message: "static source"},
	}
}

// StaticFactory registers Static under a name; it ignores deps.
func StaticFactory(_ context.Context, _ Deps) (MarketDataSource, error) {
	return NewStatic(), nil
}

func (s *Static) FetchBondUniverse(_ context.Context) []model.BondMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.BondMetadata, len(s.Bonds))
	copy(out, s.Bonds)
	return out
}

func (s *Static) FetchStockPrice(_ context.Context, code string) Fetch[model.PriceSnapshot] {
	return s.lookup(s.Stocks, code)
}

func (s *Static) FetchBondPrice(_ context.Context, code string) Fetch[model.PriceSnapshot] {
	return s.lookup(s.BondPrices, code)
}

func (s *Static) lookup(m map[string]model.PriceSnapshot, code string) Fetch[model.PriceSnapshot] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.Failures[code]; ok {
		return Missing[model.PriceSnapshot](r)
	}
	snap, ok := m[code]
	if !ok {
		return Missing[model.PriceSnapshot](ReasonNoData)
	}
	return Found(snap)
}

func (s *Static) FetchPriceHistory(_ context.Context, code string, days int) []model.PriceBar {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bars := s.History[code]
	if days > 0 && len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	out := make([]model.PriceBar, len(bars))
	copy(out, bars)
	return out
}

func (s *Static) GetMarketStatus(_ context.Context) model.MarketStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Market
}

func (s *Static) SearchInstruments(_ context.Context, keyword string) []model.Instrument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Instrument
	for _, in := range s.Instruments {
		if strings.Contains(in.Name, keyword) {
			out = append(out, in)
		}
	}
	return out
}
