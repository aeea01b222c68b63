package service

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// AttemptFinalizedEvent is broadcast after an attempt is evaluated so
// downstream consumers can react without coupling to the API.
type AttemptFinalizedEvent struct {
	AttemptID       uint           `json:"attempt_id"`
	StudentID       uint           `json:"student_id"`
	TestID          uint           `json:"test_id"`
	PersonalityCode string         `json:"personality_code"`
	MetricScores    map[string]int `json:"metric_scores"`
	FinalizedAt     time.Time      `json:"finalized_at"`
}

// EventPublisher emits domain events over NATS. A nil connection
// disables publishing, which keeps local development broker-free.
type EventPublisher struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewEventPublisher constructs an EventPublisher.
func NewEventPublisher(conn *nats.Conn, subject string, logger zerolog.Logger) *EventPublisher {
	return &EventPublisher{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "event_publisher").Logger(),
	}
}

// PublishAttemptFinalized emits one finalized-attempt event.
func (p *EventPublisher) PublishAttemptFinalized(event AttemptFinalizedEvent) error {
	if p == nil || p.conn == nil {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := p.conn.Publish(p.subject, payload); err != nil {
		return err
	}

	p.logger.Debug().Uint("attempt_id", event.AttemptID).Str("subject", p.subject).Msg("attempt finalized event published")

	return nil
}
