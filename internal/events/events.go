// Package events publishes domain events after a state transition commits.
// Delivery is best-effort: callers log a failed publish and carry on, because
// the database row is the source of truth and consumers can reconcile from it.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Event types. The type doubles as the AMQP routing key.
const (
	BookingCreated   = "booking.created"
	BookingConfirmed = "booking.confirmed"
	BookingCancelled = "booking.cancelled"
	BookingCompleted = "booking.completed"

	ListingCreated  = "listing.created"
	ListingApproved = "listing.approved"
	ListingRejected = "listing.rejected"
	ListingPaused   = "listing.paused"
	ListingResumed  = "listing.resumed"
	ListingReset    = "listing.reset"

	ProviderVerified = "provider.verified"
	ProviderRevoked  = "provider.revoked"
)

// Event is the wire form of a committed transition.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	SubjectID  uuid.UUID `json:"subject_id"`
	ActorID    uuid.UUID `json:"actor_id"`
	From       string    `json:"from,omitempty"`
	To         string    `json:"to,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// New builds an event with a fresh id and the current time.
// actor is uuid.Nil for system-initiated transitions.
func New(typ string, subject, actor uuid.UUID, from, to string) Event {
	return Event{
		ID:         uuid.New(),
		Type:       typ,
		SubjectID:  subject,
		ActorID:    actor,
		From:       from,
		To:         to,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher delivers events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// LogPublisher writes events to the structured log. It is used when no broker
// is configured, and in tests.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher constructs a LogPublisher.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, ev Event) error {
	p.logger.InfoContext(ctx, "domain event",
		"event_id", ev.ID,
		"type", ev.Type,
		"subject_id", ev.SubjectID,
		"actor_id", ev.ActorID,
		"from", ev.From,
		"to", ev.To,
	)
	return nil
}

// Emit publishes ev and logs, rather than returns, any failure.
func Emit(ctx context.Context, p Publisher, logger *slog.Logger, ev Event) {
	if err := p.Publish(ctx, ev); err != nil {
		logger.WarnContext(ctx, "publish event failed", "type", ev.Type, "subject_id", ev.SubjectID, "error", err)
	}
}
