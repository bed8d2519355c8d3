package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/tripbazaar/backend/internal/auth"
	"github.com/tripbazaar/backend/internal/domain"
	"github.com/tripbazaar/backend/internal/events"
	"github.com/tripbazaar/backend/internal/repo"
)

// CatalogService is the listing write path. Content edits always route
// through moderation's edit hook so an approved listing cannot change under
// its approval.
type CatalogService struct {
	tx         repo.TxRunner
	listings   repo.ListingRepo
	moderation *ModerationService
	pub        events.Publisher
	logger     *slog.Logger
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(tx repo.TxRunner, listings repo.ListingRepo, mod *ModerationService, pub events.Publisher, logger *slog.Logger) *CatalogService {
	return &CatalogService{tx: tx, listings: listings, moderation: mod, pub: pub, logger: logger}
}

// Create validates and persists a new listing owned by the calling provider.
// New listings start pending and are invisible to travelers until approved.
func (s *CatalogService) Create(ctx context.Context, actor domain.Actor, l domain.Listing) (domain.Listing, error) {
	if err := domain.CanAct(actor, uuid.Nil, domain.ActionListingCreate); err != nil {
		return domain.Listing{}, fmt.Errorf("service.CatalogService.Create: %w", err)
	}
	l = normalizeListing(l)
	if err := validateListing(l); err != nil {
		return domain.Listing{}, fmt.Errorf("service.CatalogService.Create: %w", err)
	}
	l.OwnerProviderID = actor.ID

	created, err := s.listings.Create(ctx, l)
	if err != nil {
		return domain.Listing{}, fmt.Errorf("service.CatalogService.Create: %w", err)
	}
	s.logger.InfoContext(ctx, "listing created", "listing_id", created.ID, "actor_id", actor.ID)
	events.Emit(ctx, s.pub, s.logger, events.New(events.ListingCreated, created.ID, actor.ID, "", string(created.Status)))
	return created, nil
}

// UpdateContent overwrites a listing's content and, in the same transaction,
// resets it to pending for re-approval.
func (s *CatalogService) UpdateContent(ctx context.Context, actor domain.Actor, l domain.Listing) (domain.Listing, error) {
	l = normalizeListing(l)
	if err := validateListing(l); err != nil {
		return domain.Listing{}, fmt.Errorf("service.CatalogService.UpdateContent: %w", err)
	}

	var (
		updated domain.Listing
		reset   ListingOutcome
	)
	err := s.tx.WithinTx(ctx, func(r repo.Repos) error {
		current, err := r.Listings.GetByID(ctx, l.ID)
		if err != nil {
			return err
		}
		if err := domain.CanAct(actor, current.OwnerProviderID, domain.ActionListingEdit); err != nil {
			return err
		}
		if updated, err = r.Listings.UpdateContent(ctx, l); err != nil {
			return err
		}
		if reset, err = s.moderation.ResetOnEdit(ctx, r, actor, l.ID); err != nil {
			return err
		}
		updated.Status = reset.To
		return nil
	})
	if err != nil {
		return domain.Listing{}, fmt.Errorf("service.CatalogService.UpdateContent: %w", err)
	}

	s.logger.InfoContext(ctx, "listing updated", "listing_id", updated.ID, "actor_id", actor.ID)
	s.moderation.emitListing(ctx, actor, domain.ListingEdit, reset)
	return updated, nil
}

// Get returns one listing. Listings that are not active are visible only to
// their owner and admins; everyone else gets domain.ErrNotFound.
func (s *CatalogService) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.ListingView, error) {
	v, err := s.listings.GetView(ctx, id)
	if err != nil {
		return domain.ListingView{}, fmt.Errorf("service.CatalogService.Get: %w", err)
	}
	if !v.Bookable() && auth.RequireOwnership(actor, v.OwnerProviderID) != nil {
		return domain.ListingView{}, fmt.Errorf("service.CatalogService.Get: %w", domain.ErrNotFound)
	}
	return v, nil
}

// ListActive returns one page of active listings for browsing.
func (s *CatalogService) ListActive(ctx context.Context, p domain.PaginationParams) (domain.Page[domain.ListingView], error) {
	items, total, err := s.listings.ListActive(ctx, p)
	if err != nil {
		return domain.Page[domain.ListingView]{}, fmt.Errorf("service.CatalogService.ListActive: %w", err)
	}
	return domain.Page[domain.ListingView]{Items: items, Total: total, PaginationParams: p}, nil
}

func normalizeListing(l domain.Listing) domain.Listing {
	l.Title = strings.TrimSpace(l.Title)
	l.Description = strings.TrimSpace(l.Description)
	l.Category = strings.TrimSpace(l.Category)
	l.Location = strings.TrimSpace(l.Location)
	l.Currency = strings.ToUpper(strings.TrimSpace(l.Currency))
	return l
}

// validateListing holds the rule the request tags cannot express. Field
// presence and the currency code are checked at the HTTP edge.
func validateListing(l domain.Listing) error {
	if !l.Price.Equal(l.Price.Round(2)) {
		return fmt.Errorf("%w: price has more than two decimal places", domain.ErrValidation)
	}
	return nil
}
