package source

import (
	"github.com/shopspring/decimal"

	"github.com/Checker-Finance/bond-monitor/pkg/model"
)

var (
	bullThreshold = decimal.NewFromInt(1)
	bearThreshold = decimal.NewFromInt(-1)
)

// ClassifyMarket maps a benchmark percentage change to a market state:
// above +1% is bull, below -1% is bear, anything in between is neutral.
func ClassifyMarket(change decimal.Decimal) model.MarketState {
	switch {
	case change.GreaterThan(bullThreshold):
		return model.MarketBull
	case change.LessThan(bearThreshold):
		return model.MarketBear
	default:
		return model.MarketNeutral
	}
}

// IsBondCode reports whether code looks like a convertible bond. Exchange
// convertible codes start with 11, 12 or 13.
func IsBondCode(code string) bool {
	if len(code) < 2 {
		return false
	}
	switch code[:2] {
	case "11", "12", "13":
		return true
	}
	return false
}
