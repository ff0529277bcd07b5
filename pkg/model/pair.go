package model

import "github.com/shopspring/decimal"

// MonitoringPair joins a bond with its underlying stock and the derived signals.
// Pairs are recomputed on every assembly pass and never persisted as entities.
type MonitoringPair struct {
	StockCode     string          `json:"stock_code"`
	StockName     string          `json:"stock_name"`
	StockPrice    decimal.Decimal `json:"stock_price"`
	StockChange   decimal.Decimal `json:"stock_change"`
	StockVolume   int64           `json:"stock_volume"`
	StockTurnover decimal.Decimal `json:"stock_turnover"` // not derivable from daily bars; always zero

	BondCode        string          `json:"bond_code"`
	BondName        string          `json:"bond_name"`
	BondPrice       decimal.Decimal `json:"bond_price"`
	BondChange      decimal.Decimal `json:"bond_change"`
	BondProvenance  Provenance      `json:"bond_provenance"`
	ConversionPrice decimal.Decimal `json:"conversion_price"`
	Premium         decimal.Decimal `json:"premium"`
	MaturityDate    string          `json:"maturity_date"`
	RemainingYears  decimal.Decimal `json:"remaining_years"`
	DoubleLow       decimal.Decimal `json:"double_low"`
	Rating          string          `json:"rating"`

	SignalType SignalType `json:"signal_type,omitempty"`
	IsFavorite bool       `json:"is_favorite"`
}
