package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Envelope is the canonical event envelope published on NATS.
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	CorrelationID uuid.UUID       `json:"correlation_id"`
	Topic         string          `json:"topic"`
	EventType     string          `json:"event_type"`
	Version       string          `json:"version"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload"`
}

// PairsSnapshotEvent is the payload of evt.monitoring.pairs.v1.
type PairsSnapshotEvent struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Count       int              `json:"count"`
	Synthetic   int              `json:"synthetic"`
	Signals     int              `json:"signals"`
	Market      MarketStatus     `json:"market"`
	Pairs       []MonitoringPair `json:"pairs"`
}
