package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/essay-grader/internal/observability"
)

// EvaluationEvent announces a finished evaluation. It never carries the essay text.
type EvaluationEvent struct {
	Type       string    `json:"type"`
	SessionID  string    `json:"session_id"`
	Status     string    `json:"status"`
	TotalScore *float64  `json:"total_score,omitempty"`
	Passed     *bool     `json:"passed,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EvaluationEventType is the type attached to completed evaluation events.
const EvaluationEventType = "evaluation.completed"

// EventPublisher delivers evaluation events to interested consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event EvaluationEvent) error
}

type natsEventPublisher struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewNATSEventPublisher publishes evaluation events on subject. A nil
// connection yields a publisher that drops events.
func NewNATSEventPublisher(conn *nats.Conn, subject string, logger zerolog.Logger) EventPublisher {
	if strings.TrimSpace(subject) == "" {
		subject = "essay.evaluations"
	}
	return &natsEventPublisher{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "evaluation_events").Logger(),
	}
}

func (p *natsEventPublisher) Publish(_ context.Context, event EvaluationEvent) error {
	if p.conn == nil {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := p.conn.Publish(p.subject, payload); err != nil {
		observability.EventsPublished().WithLabelValues("error").Inc()
		return err
	}

	observability.EventsPublished().WithLabelValues("ok").Inc()
	p.logger.Debug().Str("session_id", event.SessionID).Str("status", event.Status).Msg("evaluation event published")
	return nil
}
