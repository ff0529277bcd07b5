package model

import "time"

// Cleanup data types accepted by the store.
const (
	CleanupSignals    = "signals"
	CleanupTrades     = "trades"
	CleanupPriceCache = "price_cache"
)

// TimeRange scopes a cleanup either to rows older than Hours, or to [StartDate, EndDate].
type TimeRange struct {
	Hours     int    `json:"hours,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

type SignalFilters struct {
	Executed bool `json:"executed"`
	Failed   bool `json:"failed"`
	Pending  bool `json:"pending"`
}

type CleanupRequest struct {
	DataTypes     []string       `json:"data_types"`
	TimeRange     TimeRange      `json:"time_range"`
	SignalFilters *SignalFilters `json:"signal_filters,omitempty"`
	PreviewOnly   *bool          `json:"preview_only,omitempty"`

	// KeepSnapshot leaves the cached latest pairs snapshot in place when
	// price_cache rows are deleted. Set by scheduled retention sweeps.
	KeepSnapshot bool `json:"-"`
}

// IsPreview defaults to true when preview_only was not sent.
func (r CleanupRequest) IsPreview() bool {
	return r.PreviewOnly == nil || *r.PreviewOnly
}

// Includes reports whether the request targets the given data type.
func (r CleanupRequest) Includes(dataType string) bool {
	for _, t := range r.DataTypes {
		if t == dataType {
			return true
		}
	}
	return false
}

type CleanupPreview struct {
	SignalsToDelete int64 `json:"signals_to_delete"`
	TradesToDelete  int64 `json:"trades_to_delete"`
	PricesToDelete  int64 `json:"prices_to_delete"`
}

type CleanupResult struct {
	SignalsDeleted int64           `json:"signals_deleted"`
	TradesDeleted  int64           `json:"trades_deleted"`
	PricesDeleted  int64           `json:"prices_deleted"`
	CacheCleared   bool            `json:"cache_cleared"`
	PreviewData    *CleanupPreview `json:"preview_data,omitempty"`
}

type DatabaseInfo struct {
	Name            string  `json:"name"`
	Size            string  `json:"size"`
	SizeBytes       int64   `json:"-"`
	SizeMB          float64 `json:"size_mb"`
	LimitMB         float64 `json:"limit_mb"`
	RemainingMB     float64 `json:"remaining_mb"`
	UsagePercentage float64 `json:"usage_percentage"`
}

type TableUsage struct {
	Name      string  `json:"name"`
	Size      string  `json:"size"`
	SizeBytes int64   `json:"-"`
	SizeMB    float64 `json:"size_mb"`
}

type RecordCount struct {
	Table string `json:"table"`
	Count int64  `json:"count"`
}

type DatabaseUsage struct {
	Database     DatabaseInfo  `json:"database"`
	Tables       []TableUsage  `json:"tables"`
	RecordCounts []RecordCount `json:"record_counts"`
	LastUpdated  string        `json:"last_updated"`
}

// SystemCounts are the per-day activity counters read from the store.
type SystemCounts struct {
	SignalsToday        int64
	ExecutedTradesToday int64
	PendingSignals      int64
}

type SystemStatus struct {
	MonitoringActive     bool      `json:"monitoring_active"`
	TotalSignalsToday    int64     `json:"total_signals_today"`
	ExecutedTradesToday  int64     `json:"executed_trades_today"`
	PendingSignals       int64     `json:"pending_signals"`
	DatabaseUsagePercent float64   `json:"database_usage_percent"`
	CacheEntries         int       `json:"cache_entries"`
	LastUpdate           time.Time `json:"last_update"`
}
