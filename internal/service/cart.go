// Package service contains the business logic for the marketplace core.
// Services authorize the actor, enforce business rules, and orchestrate repo
// calls. No SQL lives here: services depend on repo interfaces, and every
// multi-statement write runs through repo.TxRunner so it commits or rolls back
// as one unit.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tripbazaar/backend/internal/domain"
	"github.com/tripbazaar/backend/internal/repo"
)

// CartService implements the cart ledger.
type CartService struct {
	tx     repo.TxRunner
	carts  repo.CartRepo
	maxQty int
	logger *slog.Logger
}

// NewCartService constructs a CartService. maxQty caps a single line;
// values below 1 fall back to domain.DefaultMaxCartQuantity.
func NewCartService(tx repo.TxRunner, carts repo.CartRepo, maxQty int, logger *slog.Logger) *CartService {
	if maxQty < 1 {
		maxQty = domain.DefaultMaxCartQuantity
	}
	return &CartService{tx: tx, carts: carts, maxQty: maxQty, logger: logger}
}

// AddOrIncrement adds qty of listingID to the actor's cart, or increments the
// existing line for that listing. Concurrent calls for the same listing never
// produce two lines: the increment is a single upsert statement.
func (s *CartService) AddOrIncrement(ctx context.Context, actor domain.Actor, listingID uuid.UUID, qty int) (domain.CartLine, error) {
	if err := domain.CanAct(actor, actor.ID, domain.ActionCartMutate); err != nil {
		return domain.CartLine{}, fmt.Errorf("service.CartService.AddOrIncrement: %w", err)
	}
	if err := s.checkQuantity(qty); err != nil {
		return domain.CartLine{}, fmt.Errorf("service.CartService.AddOrIncrement: %w", err)
	}

	var line domain.CartLine
	err := s.tx.WithinTx(ctx, func(r repo.Repos) error {
		// The share lock keeps moderation from deactivating the listing
		// between the status check and the upsert.
		locked, err := r.Listings.LockForCheckout(ctx, []uuid.UUID{listingID})
		if err != nil {
			return err
		}
		l, ok := locked[listingID]
		if !ok {
			return fmt.Errorf("listing %s: %w", listingID, domain.ErrNotFound)
		}
		if !l.Bookable() {
			return &domain.ListingUnavailableError{ListingID: l.ID, Status: l.Status}
		}
		line, err = r.Carts.Upsert(ctx, actor.ID, listingID, qty, s.maxQty)
		return err
	})
	if err != nil {
		return domain.CartLine{}, fmt.Errorf("service.CartService.AddOrIncrement: %w", err)
	}

	s.logger.InfoContext(ctx, "cart line upserted",
		"actor_id", actor.ID, "listing_id", listingID, "line_id", line.ID, "quantity", line.Quantity)
	return line, nil
}

// UpdateQuantity overwrites a line's quantity. A quantity below 1 is rejected,
// never treated as removal. Ownership is checked before the quantity.
func (s *CartService) UpdateQuantity(ctx context.Context, actor domain.Actor, lineID uuid.UUID, qty int) (domain.CartLine, error) {
	if _, err := s.ownedLine(ctx, actor, lineID); err != nil {
		return domain.CartLine{}, fmt.Errorf("service.CartService.UpdateQuantity: %w", err)
	}
	if err := s.checkQuantity(qty); err != nil {
		return domain.CartLine{}, fmt.Errorf("service.CartService.UpdateQuantity: %w", err)
	}

	line, err := s.carts.SetQuantity(ctx, lineID, qty)
	if err != nil {
		return domain.CartLine{}, fmt.Errorf("service.CartService.UpdateQuantity: %w", err)
	}
	return line, nil
}

// Remove deletes one line.
func (s *CartService) Remove(ctx context.Context, actor domain.Actor, lineID uuid.UUID) error {
	if _, err := s.ownedLine(ctx, actor, lineID); err != nil {
		return fmt.Errorf("service.CartService.Remove: %w", err)
	}
	if err := s.carts.Delete(ctx, lineID); err != nil {
		return fmt.Errorf("service.CartService.Remove: %w", err)
	}
	return nil
}

// Clear deletes every line of the actor's cart. Clearing an empty cart succeeds.
func (s *CartService) Clear(ctx context.Context, actor domain.Actor) error {
	if err := domain.CanAct(actor, actor.ID, domain.ActionCartMutate); err != nil {
		return fmt.Errorf("service.CartService.Clear: %w", err)
	}
	n, err := s.carts.DeleteByOwner(ctx, actor.ID)
	if err != nil {
		return fmt.Errorf("service.CartService.Clear: %w", err)
	}
	s.logger.InfoContext(ctx, "cart cleared", "actor_id", actor.ID, "lines", n)
	return nil
}

// List returns the actor's cart with each listing's current fields.
func (s *CartService) List(ctx context.Context, actor domain.Actor) ([]domain.CartItem, error) {
	if err := domain.CanAct(actor, actor.ID, domain.ActionCartRead); err != nil {
		return nil, fmt.Errorf("service.CartService.List: %w", err)
	}
	items, err := s.carts.ListItems(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("service.CartService.List: %w", err)
	}
	return items, nil
}

// ownedLine loads a line and checks the actor may mutate it.
func (s *CartService) ownedLine(ctx context.Context, actor domain.Actor, lineID uuid.UUID) (domain.CartLine, error) {
	line, err := s.carts.GetByID(ctx, lineID)
	if err != nil {
		return domain.CartLine{}, err
	}
	if err := domain.CanAct(actor, line.OwnerActorID, domain.ActionCartMutate); err != nil {
		return domain.CartLine{}, err
	}
	return line, nil
}

func (s *CartService) checkQuantity(qty int) error {
	if qty < 1 {
		return fmt.Errorf("%w: quantity must be at least 1, got %d", domain.ErrInvalidQuantity, qty)
	}
	if qty > s.maxQty {
		return fmt.Errorf("%w: at most %d per line", domain.ErrQuantityLimitExceeded, s.maxQty)
	}
	return nil
}
