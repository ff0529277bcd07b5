package monitor

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Checker-Finance/bond-monitor/pkg/model"
)

var (
	hundred      = decimal.NewFromInt(100)
	daysPerYear  = decimal.NewFromInt(365)
	metricPlaces = int32(2)
)

// PremiumRate is (bondPrice - conv) / conv * 100, or zero when the
// conversion price is absent or not positive.
func PremiumRate(bondPrice decimal.Decimal, conv decimal.NullDecimal) decimal.Decimal {
	if !conv.Valid || !conv.Decimal.IsPositive() {
		return decimal.Zero
	}
	return bondPrice.Sub(conv.Decimal).Div(conv.Decimal).Mul(hundred).Round(metricPlaces)
}

// RemainingYears is the whole days from now until maturity divided by 365.
// Absent or unparseable maturities yield zero.
func RemainingYears(b model.BondMetadata, now time.Time) decimal.Decimal {
	maturity, ok := b.Maturity()
	if !ok {
		return decimal.Zero
	}
	days := int64(math.Floor(maturity.Sub(now).Hours() / 24))
	return decimal.NewFromInt(days).Div(daysPerYear).Round(metricPlaces)
}

// DoubleLow is bond price plus premium rate; lower is more attractive.
func DoubleLow(bondPrice, premium decimal.Decimal) decimal.Decimal {
	return bondPrice.Add(premium)
}

// Thresholds are the stock percentage moves that raise a signal.
type Thresholds struct {
	LimitUp decimal.Decimal
	BigRise decimal.Decimal
}

// DefaultThresholds matches the exchange 10% daily band.
var DefaultThresholds = Thresholds{
	LimitUp: decimal.RequireFromString("9.9"),
	BigRise: decimal.NewFromInt(5),
}

// NewThresholds builds thresholds from configured percentages.
func NewThresholds(limitUp, bigRise float64) Thresholds {
	return Thresholds{
		LimitUp: decimal.NewFromFloat(limitUp),
		BigRise: decimal.NewFromFloat(bigRise),
	}
}

// Classify maps a stock percentage change to a signal type.
func (t Thresholds) Classify(change decimal.Decimal) model.SignalType {
	switch {
	case change.GreaterThanOrEqual(t.LimitUp):
		return model.SignalLimitUp
	case change.GreaterThanOrEqual(t.BigRise):
		return model.SignalBigRise
	default:
		return model.SignalNone
	}
}

// Signals returns one pending signal per pair carrying a signal type.
func Signals(pairs []model.MonitoringPair, now time.Time) []model.Signal {
	var out []model.Signal
	for _, p := range pairs {
		if p.SignalType == model.SignalNone {
			continue
		}
		out = append(out, model.Signal{
			StockCode:    p.StockCode,
			BondCode:     p.BondCode,
			Type:         p.SignalType,
			TriggerValue: p.StockChange,
			TriggerPrice: p.BondPrice,
			Status:       model.SignalPending,
			CreatedAt:    now,
		})
	}
	return out
}
