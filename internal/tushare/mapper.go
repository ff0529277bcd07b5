package tushare

import (
	"fmt"
	"time"

	"github.com/Checker-Finance/bond-monitor/pkg/model"
)

var (
	bondBasicFields  = []string{"ts_code", "bond_full_name", "stk_code", "stk_short_name", "conv_price", "maturity_date", "newest_rating"}
	dailyFields      = []string{"ts_code", "trade_date", "open", "high", "low", "close", "pct_chg", "vol", "amount"}
	indexDailyFields = []string{"ts_code", "trade_date", "close", "pct_chg"}
	stockBasicFields = []string{"ts_code", "symbol", "name", "area", "industry"}
)

// ToBondMetadata maps one cb_basic row.
func ToBondMetadata(r Row) (model.BondMetadata, error) {
	code := r.Str("ts_code")
	if code == "" {
		return model.BondMetadata{}, fmt.Errorf("cb_basic row without ts_code")
	}
	conv, err := r.Decimal("conv_price")
	if err != nil {
		return model.BondMetadata{}, fmt.Errorf("bond %s: %w", code, err)
	}
	return model.BondMetadata{
		Code:            code,
		Name:            r.Str("bond_full_name"),
		StockCode:       r.Str("stk_code"),
		StockName:       r.Str("stk_short_name"),
		ConversionPrice: conv,
		MaturityDate:    r.Str("maturity_date"),
		Rating:          r.Str("newest_rating"),
	}, nil
}

// ToPriceSnapshot maps one daily bar into a provider snapshot observed at now.
func ToPriceSnapshot(code string, r Row, now time.Time) (model.PriceSnapshot, error) {
	price, err := r.RequiredDecimal("close")
	if err != nil {
		return model.PriceSnapshot{}, err
	}
	change, err := r.RequiredDecimal("pct_chg")
	if err != nil {
		return model.PriceSnapshot{}, err
	}
	vol, err := r.Int("vol")
	if err != nil {
		return model.PriceSnapshot{}, err
	}
	amount, err := r.Decimal("amount")
	if err != nil {
		return model.PriceSnapshot{}, err
	}
	return model.PriceSnapshot{
		Code:       code,
		Price:      price,
		Change:     change,
		Volume:     vol,
		Amount:     amount.Decimal,
		Timestamp:  now,
		TradeDate:  r.Str("trade_date"),
		Provenance: model.ProvenanceProvider,
	}, nil
}

// ToPriceBar maps one daily or cb_daily row.
func ToPriceBar(r Row) (model.PriceBar, error) {
	var (
		bar model.PriceBar
		err error
	)
	bar.Time = r.Str("trade_date")
	if bar.Price, err = r.RequiredDecimal("close"); err != nil {
		return bar, err
	}
	if bar.Open, err = r.RequiredDecimal("open"); err != nil {
		return bar, err
	}
	if bar.High, err = r.RequiredDecimal("high"); err != nil {
		return bar, err
	}
	if bar.Low, err = r.RequiredDecimal("low"); err != nil {
		return bar, err
	}
	if bar.Volume, err = r.Int("vol"); err != nil {
		return bar, err
	}
	return bar, nil
}

// ToInstrument maps one stock_basic row.
func ToInstrument(r Row) model.Instrument {
	return model.Instrument{
		Code:     r.Str("ts_code"),
		Symbol:   r.Str("symbol"),
		Name:     r.Str("name"),
		Area:     r.Str("area"),
		Industry: r.Str("industry"),
	}
}
