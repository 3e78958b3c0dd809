package service

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const (
	// SubjectExamSubmitted is published after a submission is persisted.
	SubjectExamSubmitted = "nutq.exam.submitted"
	// SubjectExamEvaluated is published after an evaluation is persisted.
	SubjectExamEvaluated = "nutq.exam.evaluated"
)

// ExamEvent is the wire payload for exam lifecycle notifications.
type ExamEvent struct {
	ExamID     uint      `json:"exam_id"`
	StudentID  uint      `json:"student_id"`
	TemplateID uint      `json:"template_id"`
	Status     string    `json:"status"`
	SentAt     time.Time `json:"sent_at"`
}

// EventPublisher emits exam lifecycle events to interested consumers.
// Publication is strictly best-effort: failures are logged, never returned.
type EventPublisher struct {
	conn   *nats.Conn
	logger zerolog.Logger
}

// NewEventPublisher wraps a NATS connection. A nil connection produces a
// publisher that silently drops every event.
func NewEventPublisher(conn *nats.Conn, logger zerolog.Logger) *EventPublisher {
	return &EventPublisher{
		conn:   conn,
		logger: logger.With().Str("component", "event_publisher").Logger(),
	}
}

// Publish serializes the event and sends it on the given subject.
func (p *EventPublisher) Publish(subject string, event ExamEvent) {
	if p == nil || p.conn == nil {
		return
	}

	event.SentAt = time.Now().UTC()
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn().Err(err).Str("subject", subject).Msg("failed to serialize exam event")
		return
	}

	if err := p.conn.Publish(subject, payload); err != nil {
		p.logger.Warn().Err(err).Str("subject", subject).Uint("exam_id", event.ExamID).Msg("failed to publish exam event")
	}
}
