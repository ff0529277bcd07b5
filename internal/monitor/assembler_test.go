package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Checker-Finance/bond-monitor/internal/source"
	"github.com/Checker-Finance/bond-monitor/pkg/model"
)

var testNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.Local)

func snap(code, price, change string, prov model.Provenance) model.PriceSnapshot {
	return model.PriceSnapshot{Code: code, Price: d(price), Change: d(change), Volume: 100, Provenance: prov}
}

func fixture() *source.Static {
	s := source.NewStatic()
	s.Bonds = []model.BondMetadata{
		{Code: "113001.SH", Name: "B1", StockCode: "600001.SH", StockName: "S1", ConversionPrice: decimal.NewNullDecimal(d("100")), MaturityDate: "20270314", Rating: "AA"},
		{Code: "113002.SH", Name: "B2", StockCode: "600002.SH", StockName: "S2"},
		{Code: "113003.SH", Name: "B3", StockCode: "600003.SH", StockName: "S3", ConversionPrice: decimal.NewNullDecimal(d("50"))},
		{Code: "113004.SH", Name: "B4", StockCode: "600004.SH", StockName: "S4"},
		{Code: "113005.SH", Name: "orphan"},
	}
	s.Stocks["600001.SH"] = snap("600001.SH", "10", "1.5", model.ProvenanceProvider)
	s.Stocks["600002.SH"] = snap("600002.SH", "20", "10", model.ProvenanceProvider)
	s.Stocks["600003.SH"] = snap("600003.SH", "30", "-2", model.ProvenanceProvider)
	s.Stocks["600004.SH"] = snap("600004.SH", "40", "6", model.ProvenanceProvider)
	s.BondPrices["113001.SH"] = snap("113001.SH", "120", "0.5", model.ProvenanceProvider)
	s.BondPrices["113002.SH"] = snap("113002.SH", "110", "1", model.ProvenanceSynthetic)
	s.BondPrices["113003.SH"] = snap("113003.SH", "101", "-1", model.ProvenanceProvider)
	s.BondPrices["113004.SH"] = snap("113004.SH", "99", "2", model.ProvenanceProvider)
	return s
}

func newTestAssembler(src source.MarketDataSource) *Assembler {
	return NewAssembler(zap.NewNop(), src, WithClock(func() time.Time { return testNow }))
}

func codes(pairs []model.MonitoringPair) []string {
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.BondCode
	}
	return out
}

func TestGetMonitoringPairs_SortedWithDerivedFields(t *testing.T) {
	pairs := newTestAssembler(fixture()).GetMonitoringPairs(context.Background(), 100)
	require.Len(t, pairs, 4)
	assert.Equal(t, []string{"113002.SH", "113004.SH", "113001.SH", "113003.SH"}, codes(pairs))

	p := pairs[2]
	assert.Equal(t, "600001.SH", p.StockCode)
	assert.True(t, d("20").Equal(p.Premium))
	assert.True(t, d("140").Equal(p.DoubleLow))
	assert.True(t, d("2").Equal(p.RemainingYears))
	assert.True(t, d("100").Equal(p.ConversionPrice))
	assert.Equal(t, "AA", p.Rating)
	assert.Equal(t, "20270314", p.MaturityDate)
	assert.True(t, p.StockTurnover.IsZero())
	assert.Equal(t, model.SignalNone, p.SignalType)

	top := pairs[0]
	assert.Equal(t, "N/A", top.Rating)
	assert.True(t, top.Premium.IsZero())
	assert.True(t, top.ConversionPrice.IsZero())
	assert.Equal(t, model.SignalLimitUp, top.SignalType)
	assert.Equal(t, model.ProvenanceSynthetic, top.BondProvenance)

	assert.Equal(t, model.SignalBigRise, pairs[1].SignalType)
}

func TestGetMonitoringPairs_PartialFailure(t *testing.T) {
	s := fixture()
	s.Failures["113004.SH"] = source.ReasonProviderError

	pairs := newTestAssembler(s).GetMonitoringPairs(context.Background(), 0)
	assert.Equal(t, []string{"113002.SH", "113001.SH", "113003.SH"}, codes(pairs))
}

func TestGetMonitoringPairs_StockUnavailable(t *testing.T) {
	s := fixture()
	s.Failures["600002.SH"] = source.ReasonRateLimited

	pairs := newTestAssembler(s).GetMonitoringPairs(context.Background(), 0)
	assert.NotContains(t, codes(pairs), "113002.SH")
	assert.Len(t, pairs, 3)
}

func TestGetMonitoringPairs_LimitAppliesToUniverse(t *testing.T) {
	pairs := newTestAssembler(fixture()).GetMonitoringPairs(context.Background(), 2)
	assert.Equal(t, []string{"113002.SH", "113001.SH"}, codes(pairs))
}

func TestGetMonitoringPairs_EmptyUniverse(t *testing.T) {
	pairs := newTestAssembler(source.NewStatic()).GetMonitoringPairs(context.Background(), 10)
	assert.NotNil(t, pairs)
	assert.Empty(t, pairs)
}

func TestGetMonitoringPairs_CanceledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Empty(t, newTestAssembler(fixture()).GetMonitoringPairs(ctx, 0))
}

func TestSortPairs(t *testing.T) {
	pairs := newTestAssembler(fixture()).GetMonitoringPairs(context.Background(), 0)

	SortPairs(pairs, SortDoubleLow, SortAsc)
	assert.Equal(t, []string{"113004.SH", "113002.SH", "113001.SH", "113003.SH"}, codes(pairs))

	SortPairs(pairs, SortBondChange, SortDesc)
	assert.Equal(t, []string{"113004.SH", "113002.SH", "113001.SH", "113003.SH"}, codes(pairs))

	SortPairs(pairs, "unknown", SortAsc)
	assert.Equal(t, []string{"113003.SH", "113001.SH", "113004.SH", "113002.SH"}, codes(pairs))

	assert.True(t, ValidSortField(SortPremium))
	assert.False(t, ValidSortField("volume"))
}

func TestFilterBySignal(t *testing.T) {
	pairs := newTestAssembler(fixture()).GetMonitoringPairs(context.Background(), 0)

	assert.Len(t, FilterBySignal(pairs, ""), 4)
	assert.Equal(t, []string{"113002.SH", "113004.SH"}, codes(FilterBySignal(pairs, FilterWithSignal)))
	assert.Equal(t, []string{"113001.SH", "113003.SH"}, codes(FilterBySignal(pairs, FilterNoSignal)))
	assert.Equal(t, []string{"113004.SH"}, codes(FilterBySignal(pairs, string(model.SignalBigRise))))
}

func TestAssemble_CarriesBondsAndTicks(t *testing.T) {
	s := fixture()
	s.Failures["113003.SH"] = source.ReasonNoData

	pass := newTestAssembler(s).Assemble(context.Background(), 0)
	assert.Len(t, pass.Bonds, 5)
	assert.Len(t, pass.Pairs, 3)
	require.Len(t, pass.Ticks, 6)
	assert.Equal(t, "600001.SH", pass.Ticks[0].Code)
	assert.Equal(t, "113001.SH", pass.Ticks[1].Code)
}
