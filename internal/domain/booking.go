package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BookingStatus is a node of the booking state machine.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// BookingEvent is an edge label of the booking state machine.
type BookingEvent string

const (
	BookingConfirm  BookingEvent = "confirm"
	BookingReject   BookingEvent = "reject"
	BookingWithdraw BookingEvent = "withdraw"
	BookingComplete BookingEvent = "complete"
)

// BookingTransitions is the booking DAG. cancelled and completed are terminal.
var BookingTransitions = NewTransitionTable("booking",
	Edge[BookingStatus, BookingEvent]{BookingPending, BookingConfirm, BookingConfirmed},
	Edge[BookingStatus, BookingEvent]{BookingPending, BookingReject, BookingCancelled},
	Edge[BookingStatus, BookingEvent]{BookingPending, BookingWithdraw, BookingCancelled},
	Edge[BookingStatus, BookingEvent]{BookingConfirmed, BookingComplete, BookingCompleted},
)

// Booking is a persisted commitment created from a cart line at checkout.
// TotalPrice, Currency and ListingTitleSnapshot are copied from the listing at
// creation and never change afterwards.
type Booking struct {
	ID                   uuid.UUID
	TravelerID           uuid.UUID
	ListingID            uuid.UUID
	ProviderID           uuid.UUID
	Status               BookingStatus
	RequestedDate        time.Time
	Quantity             int
	TotalPrice           decimal.Decimal
	Currency             string
	ListingTitleSnapshot string
	ProviderNote         string
	CreatedAt            time.Time
	StatusChangedAt      time.Time
}

// Decision is a provider's answer to a pending booking.
type Decision string

const (
	DecisionConfirm Decision = "confirm"
	DecisionReject  Decision = "reject"
)

// Event maps a decision onto its booking state machine event.
func (d Decision) Event() (BookingEvent, bool) {
	switch d {
	case DecisionConfirm:
		return BookingConfirm, true
	case DecisionReject:
		return BookingReject, true
	}
	return "", false
}

// BookingTransition describes a compare-and-swap status write.
type BookingTransition struct {
	BookingID uuid.UUID
	From      BookingStatus
	To        BookingStatus
	// Note replaces provider_note when non-nil.
	Note *string
}
