package service

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/campushq/attendance-api/internal/models"
)

// EventPublisher emits attendance domain events for downstream consumers
// (notification fan-out, reporting pipelines). Publication is best-effort:
// failures are logged, never propagated into the mutating operation.
type EventPublisher interface {
	RecordMarked(record models.AttendanceRecord)
	SessionTransitioned(session models.AttendanceSession, from models.SessionStatus)
}

type natsEventPublisher struct {
	conn        *nats.Conn
	subjectBase string
	logger      zerolog.Logger
}

type recordMarkedEvent struct {
	SessionID uint      `json:"session_id"`
	StudentID uint      `json:"student_id"`
	Mark      string    `json:"mark"`
	Source    string    `json:"source"`
	MarkedAt  time.Time `json:"marked_at"`
}

type sessionTransitionedEvent struct {
	SessionID       uint      `json:"session_id"`
	CourseSectionID uint      `json:"course_section_id"`
	From            string    `json:"from"`
	To              string    `json:"to"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// NewEventPublisher constructs a NATS-backed publisher. A nil connection
// yields a no-op publisher so the core runs without a broker.
func NewEventPublisher(conn *nats.Conn, subjectBase string, logger zerolog.Logger) EventPublisher {
	if subjectBase == "" {
		subjectBase = "attendance"
	}
	return &natsEventPublisher{
		conn:        conn,
		subjectBase: subjectBase,
		logger:      logger.With().Str("component", "event_publisher").Logger(),
	}
}

func (p *natsEventPublisher) RecordMarked(record models.AttendanceRecord) {
	p.publish(p.subjectBase+".records.marked", recordMarkedEvent{
		SessionID: record.SessionID,
		StudentID: record.StudentID,
		Mark:      string(record.Mark),
		Source:    string(record.Source),
		MarkedAt:  record.MarkedAt,
	})
}

func (p *natsEventPublisher) SessionTransitioned(session models.AttendanceSession, from models.SessionStatus) {
	p.publish(p.subjectBase+".sessions.transitioned", sessionTransitionedEvent{
		SessionID:       session.ID,
		CourseSectionID: session.CourseSectionID,
		From:            string(from),
		To:              string(session.Status),
		OccurredAt:      time.Now().UTC(),
	})
}

func (p *natsEventPublisher) publish(subject string, payload interface{}) {
	if p.conn == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error().Err(err).Str("subject", subject).Msg("failed to encode event")
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Warn().Err(err).Str("subject", subject).Msg("failed to publish event")
	}
}
