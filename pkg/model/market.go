package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Provenance tells whether a price came from the provider or was synthesized locally.
type Provenance string

const (
	ProvenanceProvider  Provenance = "provider"
	ProvenanceSynthetic Provenance = "synthetic"
)

// CompactDateLayout is the YYYYMMDD form used by the provider for trade and maturity dates.
const CompactDateLayout = "20060102"

// BondMetadata is the static description of a convertible bond.
// Instances are immutable snapshots of one bulk universe fetch.
type BondMetadata struct {
	Code            string              `json:"ts_code"`
	Name            string              `json:"bond_name"`
	StockCode       string              `json:"stock_code"`
	StockName       string              `json:"stock_name"`
	ConversionPrice decimal.NullDecimal `json:"conversion_price"`
	MaturityDate    string              `json:"maturity_date,omitempty"` // compact YYYYMMDD as published
	Rating          string              `json:"bond_rating,omitempty"`
}

// Maturity parses MaturityDate. ok is false when the date is absent or malformed.
func (b BondMetadata) Maturity() (t time.Time, ok bool) {
	if b.MaturityDate == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(CompactDateLayout, b.MaturityDate, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// PriceSnapshot is the latest daily observation for one instrument.
type PriceSnapshot struct {
	Code       string          `json:"code"`
	Price      decimal.Decimal `json:"price"`
	Change     decimal.Decimal `json:"change"` // percentage change
	Volume     int64           `json:"volume"`
	Amount     decimal.Decimal `json:"amount"`
	Timestamp  time.Time       `json:"timestamp"`
	TradeDate  string          `json:"trade_date"`
	Provenance Provenance      `json:"provenance"`
}

// IsSynthetic reports whether the snapshot is a locally generated placeholder.
func (p PriceSnapshot) IsSynthetic() bool {
	return p.Provenance == ProvenanceSynthetic
}

// PriceBar is one daily bar of a price history series.
type PriceBar struct {
	Time   string          `json:"time"`
	Price  decimal.Decimal `json:"price"`
	Volume int64           `json:"volume"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
}

// MarketState classifies the benchmark index move of the latest session.
type MarketState string

const (
	MarketBull    MarketState = "bull"
	MarketBear    MarketState = "bear"
	MarketNeutral MarketState = "neutral"
	MarketUnknown MarketState = "unknown"
)

type MarketStatus struct {
	Status      MarketState      `json:"status"`
	IndexChange *decimal.Decimal `json:"index_change,omitempty"`
	Message     string           `json:"message"`
}

// Instrument is one row of the provider's listed-instrument directory.
type Instrument struct {
	Code     string `json:"code"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Area     string `json:"area"`
	Industry string `json:"industry"`
}
