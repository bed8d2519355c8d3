package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ListingStatus is the moderation status of a listing.
type ListingStatus string

const (
	ListingPending  ListingStatus = "pending"
	ListingActive   ListingStatus = "active"
	ListingRejected ListingStatus = "rejected"
	ListingPaused   ListingStatus = "paused"
)

// ListingEvent is a moderation event applied to a listing.
type ListingEvent string

const (
	ListingApprove ListingEvent = "approve"
	ListingReject  ListingEvent = "reject"
	ListingPause   ListingEvent = "pause"
	ListingResume  ListingEvent = "resume"
	// ListingEdit is raised by the catalog write path whenever content changes.
	ListingEdit ListingEvent = "edit"
)

// ListingTransitions is the listing moderation state machine.
var ListingTransitions = NewTransitionTable("listing",
	Edge[ListingStatus, ListingEvent]{ListingPending, ListingApprove, ListingActive},
	Edge[ListingStatus, ListingEvent]{ListingActive, ListingApprove, ListingActive},
	Edge[ListingStatus, ListingEvent]{ListingPending, ListingReject, ListingRejected},
	Edge[ListingStatus, ListingEvent]{ListingRejected, ListingReject, ListingRejected},
	Edge[ListingStatus, ListingEvent]{ListingActive, ListingPause, ListingPaused},
	Edge[ListingStatus, ListingEvent]{ListingPaused, ListingPause, ListingPaused},
	Edge[ListingStatus, ListingEvent]{ListingPaused, ListingResume, ListingActive},
	Edge[ListingStatus, ListingEvent]{ListingActive, ListingResume, ListingActive},
	Edge[ListingStatus, ListingEvent]{ListingPending, ListingEdit, ListingPending},
	Edge[ListingStatus, ListingEvent]{ListingActive, ListingEdit, ListingPending},
	Edge[ListingStatus, ListingEvent]{ListingRejected, ListingEdit, ListingPending},
	Edge[ListingStatus, ListingEvent]{ListingPaused, ListingEdit, ListingPending},
)

// Listing is a marketplace offering owned by a provider.
// The catalog owns its lifecycle; this core reads its fields and writes Status
// only through moderation.
type Listing struct {
	ID              uuid.UUID
	OwnerProviderID uuid.UUID
	Status          ListingStatus
	Title           string
	Description     string
	Category        string
	Location        string
	Price           decimal.Decimal
	Currency        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Bookable reports whether the listing may be added to a cart or booked.
func (l Listing) Bookable() bool { return l.Status == ListingActive }

// ListingView is a listing joined with its provider's public profile fields.
type ListingView struct {
	Listing
	ProviderVerified bool
	ProviderRating   decimal.Decimal
}
