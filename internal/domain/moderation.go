package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubjectType identifies what a moderation decision was applied to.
type SubjectType string

const (
	SubjectListing  SubjectType = "listing"
	SubjectProvider SubjectType = "provider"
)

// ModerationDecision is one row of the moderation audit log.
// Only state-changing decisions are recorded; idempotent repeats are not.
type ModerationDecision struct {
	ID          uuid.UUID
	SubjectType SubjectType
	SubjectID   uuid.UUID
	Action      string
	FromState   string
	ToState     string
	ActorID     uuid.UUID
	Reason      string
	CreatedAt   time.Time
}
