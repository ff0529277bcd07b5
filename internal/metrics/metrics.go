package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tracks outbound market-data provider calls.
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Total number of market-data provider requests (by api and status).",
		},
		[]string{"api", "status"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Duration of market-data provider requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms → ~16s
		},
		[]string{"api"},
	)

	// One sample per HTTP attempt, retries included.
	UpstreamAttemptDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_attempt_duration_seconds",
			Help:    "Duration of individual provider HTTP attempts by outcome (status code or transport_error).",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		},
		[]string{"status"},
	)

	// Calls refused by the per-minute quota gate.
	RateLimitDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_rate_limit_denials_total",
			Help: "Number of provider calls skipped because the per-minute quota was exhausted.",
		},
		[]string{"api"},
	)

	PriceCacheAccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "price_cache_access_total",
			Help: "Number of price cache hits/misses by instrument class.",
		},
		[]string{"class", "result"}, // result = hit | miss
	)

	PriceCacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "price_cache_evictions_total",
			Help: "Number of price cache entries evicted for capacity.",
		},
	)

	SyntheticFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bond_price_synthetic_total",
			Help: "Number of synthetic bond price snapshots generated after a failed real fetch.",
		},
	)

	PairsAssembled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "monitoring_pairs_assembled_total",
			Help: "Number of monitoring pairs produced by the assembler.",
		},
	)

	PairsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitoring_pairs_skipped_total",
			Help: "Number of bonds dropped from an assembly pass (by reason).",
		},
		[]string{"reason"},
	)

	// Tracks NATS messages published by subject and result.
	NATSMessageCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_messages_total",
			Help: "Total number of NATS messages processed.",
		},
		[]string{"subject", "result"}, // result = "ok" | "error"
	)

	NATSMessageLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nats_message_latency_seconds",
			Help:    "Time taken to publish NATS messages",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"subject"},
	)

	// Tracks cache hits and misses for secrets / credentials.
	SecretsCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secrets_cache_access_total",
			Help: "Number of cache hits/misses in secret cache.",
		},
		[]string{"result"}, // hit | miss
	)

	// Tracks total errors (aggregated).
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_errors_total",
			Help: "Count of service-level errors by component.",
		},
		[]string{"component", "reason"},
	)

	// Gauges the last successful poll time (seconds since epoch).
	LastPollTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monitor_last_poll_timestamp",
			Help: "Timestamp (unix seconds) of the last successful monitoring or cleanup cycle.",
		},
		[]string{"component"},
	)
)

// ObserveDuration records the time taken for a function and updates the given histogram.
func ObserveDuration(v interface{}, start time.Time, labels ...string) {
	duration := time.Since(start).Seconds()

	switch metric := v.(type) {
	case *prometheus.HistogramVec:
		metric.WithLabelValues(labels...).Observe(duration)
	case *prometheus.SummaryVec:
		metric.WithLabelValues(labels...).Observe(duration)
	default:
		// silently ignore counters; they're not meant for duration tracking
	}
}

func IncUpstreamRequest(api, status string) {
	UpstreamRequestsTotal.WithLabelValues(api, status).Inc()
}

func ObserveUpstream(api string, elapsed time.Duration) {
	UpstreamRequestDuration.WithLabelValues(api).Observe(elapsed.Seconds())
}

func ObserveUpstreamAttempt(status string, elapsed time.Duration) {
	UpstreamAttemptDuration.WithLabelValues(status).Observe(elapsed.Seconds())
}

func IncRateLimitDenial(api string) {
	RateLimitDenials.WithLabelValues(api).Inc()
}

func IncPriceCache(class, result string) {
	PriceCacheAccess.WithLabelValues(class, result).Inc()
}

func IncPairSkipped(reason string) {
	PairsSkipped.WithLabelValues(reason).Inc()
}

func IncNATSMessage(subject, result string) {
	NATSMessageCount.WithLabelValues(subject, result).Inc()
}

func IncCacheHit(result string) {
	SecretsCacheHits.WithLabelValues(result).Inc()
}

func IncError(component, reason string) {
	ErrorsTotal.WithLabelValues(component, reason).Inc()
}

func SetLastPoll(component string, t time.Time) {
	LastPollTimestamp.WithLabelValues(component).Set(float64(t.Unix()))
}
