package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type SignalType string

const (
	SignalNone     SignalType = ""
	SignalLimitUp  SignalType = "limit_up"
	SignalBigRise  SignalType = "big_rise"
	SignalVolSpike SignalType = "volume_spike"
)

// SignalStatus mirrors the lifecycle column of the signals table.
type SignalStatus string

const (
	SignalPending    SignalStatus = "pending"
	SignalProcessing SignalStatus = "processing"
	SignalExecuted   SignalStatus = "executed"
	SignalFailed     SignalStatus = "failed"
)

// Signal is a persisted detection raised for a monitoring pair.
type Signal struct {
	StockCode    string          `json:"stock_code"`
	BondCode     string          `json:"bond_code"`
	Type         SignalType      `json:"signal_type"`
	TriggerValue decimal.Decimal `json:"trigger_value"`
	TriggerPrice decimal.Decimal `json:"trigger_price"`
	Status       SignalStatus    `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}
