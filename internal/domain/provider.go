package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VerificationEvent is a moderation event applied to a provider profile.
type VerificationEvent string

const (
	VerificationVerify VerificationEvent = "verify"
	VerificationRevoke VerificationEvent = "revoke"
)

// VerificationTransitions is the provider verification state machine over the
// verified flag. There is no reject edge: verification is granted or revoked.
var VerificationTransitions = NewTransitionTable("provider",
	Edge[bool, VerificationEvent]{false, VerificationVerify, true},
	Edge[bool, VerificationEvent]{true, VerificationVerify, true},
	Edge[bool, VerificationEvent]{true, VerificationRevoke, false},
	Edge[bool, VerificationEvent]{false, VerificationRevoke, false},
)

// ProviderProfile is the public profile of a provider actor.
// This core writes only Verified.
type ProviderProfile struct {
	ID           uuid.UUID
	OwnerActorID uuid.UUID
	Verified     bool
	Rating       decimal.Decimal
	CreatedAt    time.Time
}
