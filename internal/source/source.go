// Package source defines the market-data capability consumed by the pair
// assembler and the API layer, plus a registry that selects a concrete
// provider by configured name.
package source

import (
	"context"

	"github.com/Checker-Finance/bond-monitor/pkg/model"
)

// Reason explains why a Fetch carries no value.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonRateLimited   Reason = "rate_limited"
	ReasonProviderError Reason = "provider_error"
	ReasonNoData        Reason = "no_data"
	ReasonDecodeError   Reason = "decode_error"
)

// Fetch is the outcome of a single-instrument lookup: either a value, or the
// reason it is unavailable this cycle.
type Fetch[T any] struct {
	Value  T
	OK     bool
	Reason Reason
}

// Found wraps an available value.
func Found[T any](v T) Fetch[T] {
	return Fetch[T]{Value: v, OK: true}
}

// Missing reports an unavailable value.
func Missing[T any](reason Reason) Fetch[T] {
	return Fetch[T]{Reason: reason}
}

// MarketDataSource is implemented by every market-data provider variant.
// All operations are total: failures degrade to a Missing fetch, an empty
// slice, or an unknown market status.
type MarketDataSource interface {
	FetchBondUniverse(ctx context.Context) []model.BondMetadata
	FetchStockPrice(ctx context.Context, code string) Fetch[model.PriceSnapshot]
	FetchBondPrice(ctx context.Context, code string) Fetch[model.PriceSnapshot]
	FetchPriceHistory(ctx context.Context, code string, days int) []model.PriceBar
	GetMarketStatus(ctx context.Context) model.MarketStatus
	SearchInstruments(ctx context.Context, keyword string) []model.Instrument
}

// CacheController is implemented by sources that keep a local price cache.
type CacheController interface {
	CacheLen() int
	ClearCache() int
}
