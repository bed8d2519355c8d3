package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tripbazaar/backend/internal/auth"
	"github.com/tripbazaar/backend/internal/domain"
	"github.com/tripbazaar/backend/internal/events"
	"github.com/tripbazaar/backend/internal/repo"
)

// BookingService implements the booking orchestrator: checkout and the
// booking state machine.
type BookingService struct {
	tx       repo.TxRunner
	bookings repo.BookingRepo
	pub      events.Publisher
	logger   *slog.Logger
	now      func() time.Time
}

// NewBookingService constructs a BookingService.
func NewBookingService(tx repo.TxRunner, bookings repo.BookingRepo, pub events.Publisher, logger *slog.Logger) *BookingService {
	return &BookingService{tx: tx, bookings: bookings, pub: pub, logger: logger, now: time.Now}
}

// Checkout converts the selected cart lines into pending bookings in one
// transaction. Either every line becomes a booking and is removed from the
// cart, or nothing changes. requestedDate defaults to today (UTC) when nil.
//
// A line whose listing is not active aborts the whole checkout with a
// *domain.ListingUnavailableError naming that listing.
func (s *BookingService) Checkout(ctx context.Context, actor domain.Actor, lineIDs []uuid.UUID, requestedDate *time.Time) ([]domain.Booking, error) {
	if err := domain.CanAct(actor, actor.ID, domain.ActionCheckout); err != nil {
		return nil, fmt.Errorf("service.BookingService.Checkout: %w", err)
	}
	ids := dedupe(lineIDs)
	if len(ids) == 0 {
		return nil, fmt.Errorf("service.BookingService.Checkout: %w: no cart lines selected", domain.ErrValidation)
	}
	today := truncateDay(s.now())
	date := today
	if requestedDate != nil {
		date = truncateDay(*requestedDate)
		if date.Before(today) {
			return nil, fmt.Errorf("service.BookingService.Checkout: %w: requested date %s is in the past",
				domain.ErrValidation, date.Format(time.DateOnly))
		}
	}

	var created []domain.Booking
	err := s.tx.WithinTx(ctx, func(r repo.Repos) error {
		created = created[:0]

		lines, err := r.Carts.LockLines(ctx, ids)
		if err != nil {
			return err
		}
		if len(lines) != len(ids) {
			return fmt.Errorf("cart line %s: %w", missing(ids, lines), domain.ErrNotFound)
		}
		listingIDs := make([]uuid.UUID, 0, len(lines))
		for _, line := range lines {
			if err := domain.CanAct(actor, line.OwnerActorID, domain.ActionCheckout); err != nil {
				return fmt.Errorf("cart line %s: %w", line.ID, err)
			}
			listingIDs = append(listingIDs, line.ListingID)
		}

		listings, err := r.Listings.LockForCheckout(ctx, listingIDs)
		if err != nil {
			return err
		}
		// Validate every listing before the first write.
		for _, line := range lines {
			l, ok := listings[line.ListingID]
			if !ok {
				return fmt.Errorf("listing %s: %w", line.ListingID, domain.ErrNotFound)
			}
			if !l.Bookable() {
				return &domain.ListingUnavailableError{ListingID: l.ID, Status: l.Status}
			}
		}

		for _, line := range lines {
			l := listings[line.ListingID]
			b, err := r.Bookings.Create(ctx, domain.Booking{
				TravelerID:           actor.ID,
				ListingID:            l.ID,
				ProviderID:           l.OwnerProviderID,
				Status:               domain.BookingPending,
				RequestedDate:        date,
				Quantity:             line.Quantity,
				TotalPrice:           domain.CartItem{CartLine: line, Price: l.Price}.Subtotal(),
				Currency:             l.Currency,
				ListingTitleSnapshot: l.Title,
			})
			if err != nil {
				return err
			}
			created = append(created, b)
		}

		n, err := r.Carts.DeleteLines(ctx, actor.ID, ids)
		if err != nil {
			return err
		}
		if n != int64(len(ids)) {
			// The lines are locked, so this means a concurrent writer slipped past the lock.
			return fmt.Errorf("%w: removed %d of %d cart lines", domain.ErrConflictRetry, n, len(ids))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("service.BookingService.Checkout: %w", err)
	}

	for _, b := range created {
		s.logger.InfoContext(ctx, "booking created",
			"booking_id", b.ID, "actor_id", actor.ID, "listing_id", b.ListingID, "total", b.TotalPrice.String())
		events.Emit(ctx, s.pub, s.logger, events.New(events.BookingCreated, b.ID, actor.ID, "", string(b.Status)))
	}
	return created, nil
}

// Respond lets the booking's provider (or an admin) confirm or reject a
// pending booking. note is stored as the provider note when non-empty.
func (s *BookingService) Respond(ctx context.Context, actor domain.Actor, bookingID uuid.UUID, decision domain.Decision, note string) (domain.Booking, error) {
	event, ok := decision.Event()
	if !ok {
		return domain.Booking{}, fmt.Errorf("service.BookingService.Respond: %w: unknown decision %q", domain.ErrValidation, decision)
	}
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("service.BookingService.Respond: %w", err)
	}
	if err := domain.CanAct(actor, b.ProviderID, domain.ActionBookingRespond); err != nil {
		return domain.Booking{}, fmt.Errorf("service.BookingService.Respond: %w", err)
	}

	var notePtr *string
	if note = strings.TrimSpace(note); note != "" {
		notePtr = &note
	}
	out, err := s.transition(ctx, actor, b, event, notePtr)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("service.BookingService.Respond: %w", err)
	}
	return out, nil
}

// Complete marks a confirmed booking completed. Admin only.
func (s *BookingService) Complete(ctx context.Context, actor domain.Actor, bookingID uuid.UUID) (domain.Booking, error) {
	if err := domain.CanAct(actor, uuid.Nil, domain.ActionBookingComplete); err != nil {
		return domain.Booking{}, fmt.Errorf("service.BookingService.Complete: %w", err)
	}
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("service.BookingService.Complete: %w", err)
	}
	out, err := s.transition(ctx, actor, b, domain.BookingComplete, nil)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("service.BookingService.Complete: %w", err)
	}
	return out, nil
}

// Withdraw lets the traveler cancel their own pending booking.
func (s *BookingService) Withdraw(ctx context.Context, actor domain.Actor, bookingID uuid.UUID) (domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("service.BookingService.Withdraw: %w", err)
	}
	if err := domain.CanAct(actor, b.TravelerID, domain.ActionBookingWithdraw); err != nil {
		return domain.Booking{}, fmt.Errorf("service.BookingService.Withdraw: %w", err)
	}
	out, err := s.transition(ctx, actor, b, domain.BookingWithdraw, nil)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("service.BookingService.Withdraw: %w", err)
	}
	return out, nil
}

// Get returns one booking visible to the actor: its traveler, its provider, or an admin.
func (s *BookingService) Get(ctx context.Context, actor domain.Actor, bookingID uuid.UUID) (domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("service.BookingService.Get: %w", err)
	}
	if err := domain.CanActAny(actor, domain.ActionBookingRead, b.TravelerID, b.ProviderID); err != nil {
		return domain.Booking{}, fmt.Errorf("service.BookingService.Get: %w", err)
	}
	return b, nil
}

// List returns one page of the bookings the actor can see: travelers their
// own, providers those on their listings, admins all of them.
func (s *BookingService) List(ctx context.Context, actor domain.Actor, p domain.PaginationParams) (domain.Page[domain.Booking], error) {
	if err := auth.RequireRole(actor, domain.AllRoles...); err != nil {
		return domain.Page[domain.Booking]{}, fmt.Errorf("service.BookingService.List: %w", err)
	}
	var f repo.BookingFilter
	switch actor.Role {
	case domain.RoleTraveler:
		f.TravelerID = &actor.ID
	case domain.RoleProvider:
		f.ProviderID = &actor.ID
	}

	items, total, err := s.bookings.List(ctx, f, p)
	if err != nil {
		return domain.Page[domain.Booking]{}, fmt.Errorf("service.BookingService.List: %w", err)
	}
	return domain.Page[domain.Booking]{Items: items, Total: total, PaginationParams: p}, nil
}

// CompleteDue completes every confirmed booking whose requested date lies
// before the day of now. It is the system trigger driven by the scheduler.
func (s *BookingService) CompleteDue(ctx context.Context, now time.Time) (int, error) {
	done, err := s.bookings.CompleteDue(ctx, truncateDay(now))
	if err != nil {
		return 0, fmt.Errorf("service.BookingService.CompleteDue: %w", err)
	}
	for _, b := range done {
		s.logger.InfoContext(ctx, "booking transitioned",
			"booking_id", b.ID, "actor_id", "system", "from", domain.BookingConfirmed, "to", b.Status)
		events.Emit(ctx, s.pub, s.logger,
			events.New(events.BookingCompleted, b.ID, uuid.Nil, string(domain.BookingConfirmed), string(b.Status)))
	}
	return len(done), nil
}

// transition consults the booking table and applies the change as a
// compare-and-swap against the status b was read with. Losing the race to a
// concurrent writer surfaces as domain.ErrInvalidTransition.
func (s *BookingService) transition(ctx context.Context, actor domain.Actor, b domain.Booking, event domain.BookingEvent, note *string) (domain.Booking, error) {
	next, err := domain.BookingTransitions.Next(b.Status, event)
	if err != nil {
		return domain.Booking{}, err
	}
	out, err := s.bookings.Transition(ctx, domain.BookingTransition{
		BookingID: b.ID,
		From:      b.Status,
		To:        next,
		Note:      note,
	})
	if err != nil {
		return domain.Booking{}, err
	}

	s.logger.InfoContext(ctx, "booking transitioned",
		"booking_id", b.ID, "actor_id", actor.ID, "from", b.Status, "to", next)
	events.Emit(ctx, s.pub, s.logger, events.New(bookingEventType(next), b.ID, actor.ID, string(b.Status), string(next)))
	return out, nil
}

func bookingEventType(to domain.BookingStatus) string {
	switch to {
	case domain.BookingConfirmed:
		return events.BookingConfirmed
	case domain.BookingCancelled:
		return events.BookingCancelled
	case domain.BookingCompleted:
		return events.BookingCompleted
	}
	return events.BookingCreated
}

// dedupe drops repeated ids, keeping first-seen order.
func dedupe(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// missing returns the first id that has no matching line.
func missing(ids []uuid.UUID, lines []domain.CartLine) uuid.UUID {
	for _, id := range ids {
		if !slices.ContainsFunc(lines, func(l domain.CartLine) bool { return l.ID == id }) {
			return id
		}
	}
	return uuid.Nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
