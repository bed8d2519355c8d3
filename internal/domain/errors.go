package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. empty checkout, missing rejection reason).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrUnauthenticated is returned when a credential is missing, malformed,
// expired, or names an actor that no longer exists. Maps to HTTP 401.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrForbidden is returned when the actor's role or ownership does not permit
// the requested action. Maps to HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrInvalidQuantity is returned when a cart quantity is below 1.
var ErrInvalidQuantity = errors.New("invalid quantity")

// ErrQuantityLimitExceeded is returned when a cart line would exceed the
// configured per-line maximum.
var ErrQuantityLimitExceeded = errors.New("quantity limit exceeded")

// ErrListingUnavailable is returned when a listing is not active and therefore
// cannot be added to a cart or booked. Use ListingUnavailableError to name the
// offending listing; it matches this sentinel via errors.Is.
var ErrListingUnavailable = errors.New("listing unavailable")

// ErrInvalidTransition is returned when a state change is not an edge of the
// entity's transition table, including compare-and-swap losers.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrConflictRetry marks a transient store-level race (serialization failure,
// deadlock). It is retried internally and never reaches a handler.
var ErrConflictRetry = errors.New("conflict, retry")

// ErrServerBusy is returned once ErrConflictRetry persists after all retries.
// Maps to HTTP 503.
var ErrServerBusy = errors.New("server busy")

// ListingUnavailableError names the listing that blocked an add or checkout.
type ListingUnavailableError struct {
	ListingID uuid.UUID
	Status    ListingStatus
}

func (e *ListingUnavailableError) Error() string {
	return fmt.Sprintf("listing %s is unavailable (status %s)", e.ListingID, e.Status)
}

// Is lets errors.Is(err, ErrListingUnavailable) match.
func (e *ListingUnavailableError) Is(target error) bool {
	return target == ErrListingUnavailable
}
