package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/Checker-Finance/bond-monitor/internal/metrics"
	"github.com/Checker-Finance/bond-monitor/pkg/logger"
	"github.com/Checker-Finance/bond-monitor/pkg/model"
)

const (
	EventPairsSnapshot = "monitoring.pairs.snapshot"
	eventVersion       = "1.0.0"
)

// MsgPublisher is the JetStream capability the publisher needs.
type MsgPublisher interface {
	PublishMsg(msg *nats.Msg, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// Publisher wraps a NATS connection and provides helpers for publishing canonical events.
type Publisher struct {
	nc      *nats.Conn
	js      MsgPublisher
	subject string
	service string
}

// New creates a new Publisher with JetStream enabled.
func New(nc *nats.Conn, subject, service string) (*Publisher, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}
	return &Publisher{
		nc:      nc,
		js:      js,
		subject: subject,
		service: service,
	}, nil
}

// NewWithJetStream builds a publisher over an existing JetStream handle.
func NewWithJetStream(js MsgPublisher, subject, service string) *Publisher {
	return &Publisher{js: js, subject: subject, service: service}
}

// EnsureStream creates the stream capturing subjects unless it already exists.
func EnsureStream(js nats.JetStreamManager, name string, subjects ...string) error {
	if _, err := js.StreamInfo(name); err == nil {
		return nil
	} else if !errors.Is(err, nats.ErrStreamNotFound) {
		return err
	}
	_, err := js.AddStream(&nats.StreamConfig{
		Name:     name,
		Subjects: subjects,
		Storage:  nats.FileStorage,
		MaxAge:   24 * time.Hour,
	})
	return err
}

// Subject is the default subject events go to.
func (p *Publisher) Subject() string { return p.subject }

// PublishEnvelope serializes and publishes a canonical event envelope to NATS.
func (p *Publisher) PublishEnvelope(ctx context.Context, subject string, env *model.Envelope) error {
	if subject == "" {
		subject = p.subject
	}

	data, err := json.Marshal(env)
	if err != nil {
		logger.S().Errorw("publisher.marshal_failed",
			"subject", subject,
			"event_type", env.EventType,
			"error", err,
		)
		metrics.IncError("publisher", "marshal_failed")
		return err
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"event_type":     []string{env.EventType},
			"correlation_id": []string{env.CorrelationID.String()},
			"service":        []string{p.service},
			"content_type":   []string{"application/json"},
			nats.MsgIdHdr:    []string{env.ID.String()},
		},
	}

	start := time.Now()
	_, err = p.js.PublishMsg(msg, nats.Context(ctx))
	metrics.ObserveDuration(metrics.NATSMessageLatency, start, subject)

	if err != nil {
		logger.S().Errorw("publisher.publish_failed",
			"subject", subject,
			"event_type", env.EventType,
			"error", err,
		)
		metrics.IncNATSMessage(subject, "error")
		return err
	}

	logger.S().Debugw("publisher.publish_success",
		"subject", subject,
		"event_type", env.EventType,
	)

	metrics.IncNATSMessage(subject, "ok")
	return nil
}

// PublishPairsSnapshot emits the monitoring snapshot as a canonical event.
func (p *Publisher) PublishPairsSnapshot(ctx context.Context, snap model.PairsSnapshotEvent) error {
	data, err := json.Marshal(snap)
	if err != nil {
		metrics.IncError("publisher", "marshal_failed")
		return err
	}
	env := &model.Envelope{
		ID:            uuid.New(),
		CorrelationID: uuid.New(),
		Topic:         p.subject,
		EventType:     EventPairsSnapshot,
		Version:       eventVersion,
		Source:        p.service,
		Timestamp:     time.Now().UTC(),
		Payload:       data,
	}
	return p.PublishEnvelope(ctx, p.subject, env)
}

func (p *Publisher) Close() {
	if p.nc != nil && p.nc.IsConnected() {
		p.nc.Close()
	}
}
