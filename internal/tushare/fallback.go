package tushare

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Checker-Finance/bond-monitor/pkg/model"
)

// Fallback synthesizes placeholder bond snapshots when the real bar is
// unavailable. Output is always tagged ProvenanceSynthetic.
type Fallback struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewFallback builds a fallback over src; nil seeds from the runtime.
func NewFallback(src rand.Source) *Fallback {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Fallback{rnd: rand.New(src)}
}

// Snapshot returns a plausible bond snapshot dated the calendar day before now.
func (f *Fallback) Snapshot(code string, now time.Time) model.PriceSnapshot {
	f.mu.Lock()
	price := f.uniform(100, 130)
	change := f.uniform(-3, 3)
	volume := int64(1000 + f.rnd.IntN(9001))
	amount := f.uniform(10000, 50000)
	f.mu.Unlock()

	return model.PriceSnapshot{
		Code:       code,
		Price:      price,
		Change:     change,
		Volume:     volume,
		Amount:     amount,
		Timestamp:  now,
		TradeDate:  now.AddDate(0, 0, -1).Format(model.CompactDateLayout),
		Provenance: model.ProvenanceSynthetic,
	}
}

func (f *Fallback) uniform(lo, hi float64) decimal.Decimal {
	return decimal.NewFromFloat(lo + f.rnd.Float64()*(hi-lo)).Round(2)
}
