package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultMaxCartQuantity caps a single cart line when no limit is configured.
const DefaultMaxCartQuantity = 99

// CartLine is one (actor, listing, quantity) row of a traveler's cart.
// At most one line exists per (OwnerActorID, ListingID).
type CartLine struct {
	ID           uuid.UUID
	OwnerActorID uuid.UUID
	ListingID    uuid.UUID
	Quantity     int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CartItem is a cart line joined with the listing's current fields.
// Price and title are live: they reflect the listing as it is now, not as it
// was when the line was added.
type CartItem struct {
	CartLine
	Title            string
	Category         string
	Location         string
	Price            decimal.Decimal
	Currency         string
	ProviderID       uuid.UUID
	ProviderVerified bool
	ListingStatus    ListingStatus
}

// Subtotal is the current price times quantity.
func (c CartItem) Subtotal() decimal.Decimal {
	return c.Price.Mul(decimal.NewFromInt(int64(c.Quantity)))
}
