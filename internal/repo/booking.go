package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tripbazaar/backend/internal/domain"
)

// BookingFilter narrows a booking listing. Nil fields are not filtered on;
// an empty filter lists every booking (admin view).
type BookingFilter struct {
	TravelerID *uuid.UUID
	ProviderID *uuid.UUID
}

// BookingRepo defines the persistence operations for bookings.
// Bookings are never deleted; status changes go through Transition.
type BookingRepo interface {
	// Create inserts a booking and returns the persisted record.
	Create(ctx context.Context, b domain.Booking) (domain.Booking, error)

	// GetByID returns a booking. Returns domain.ErrNotFound if missing.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Booking, error)

	// Transition applies a compare-and-swap status write: it succeeds only if
	// the booking still holds t.From. Returns domain.ErrInvalidTransition when
	// the booking exists but its status has moved on, domain.ErrNotFound when
	// it does not exist.
	Transition(ctx context.Context, t domain.BookingTransition) (domain.Booking, error)

	// List returns one page of bookings matching f, newest first, with the total count.
	List(ctx context.Context, f BookingFilter, p domain.PaginationParams) ([]domain.Booking, int64, error)

	// CompleteDue moves every confirmed booking whose requested date is before
	// `before` to completed and returns the bookings it changed.
	CompleteDue(ctx context.Context, before time.Time) ([]domain.Booking, error)
}

type pgBookingRepo struct {
	db db
}

// NewBookingRepo constructs a BookingRepo backed by the provided db connection.
func NewBookingRepo(db db) BookingRepo {
	return &pgBookingRepo{db: db}
}

const bookingColumns = `id, traveler_id, listing_id, provider_id, status, requested_date,
	quantity, total_price::text, currency, listing_title_snapshot, provider_note,
	created_at, status_changed_at`

func (r *pgBookingRepo) Create(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	q := `
		INSERT INTO bookings (traveler_id, listing_id, provider_id, status, requested_date,
		                      quantity, total_price, currency, listing_title_snapshot)
		VALUES (@traveler, @listing, @provider, @status, @requested_date,
		        @quantity, @total::text::numeric, @currency, @title)
		RETURNING ` + bookingColumns

	args := pgx.NamedArgs{
		"traveler":       b.TravelerID,
		"listing":        b.ListingID,
		"provider":       b.ProviderID,
		"status":         b.Status,
		"requested_date": b.RequestedDate,
		"quantity":       b.Quantity,
		"total":          b.TotalPrice.String(),
		"currency":       b.Currency,
		"title":          b.ListingTitleSnapshot,
	}
	result, err := scanBooking(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Booking{}, fmt.Errorf("repo.BookingRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgBookingRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = @id`

	result, err := scanBooking(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Booking{}, fmt.Errorf("repo.BookingRepo.GetByID: %w", err)
	}
	return result, nil
}

func (r *pgBookingRepo) Transition(ctx context.Context, t domain.BookingTransition) (domain.Booking, error) {
	q := `
		UPDATE bookings
		SET status            = @to,
		    provider_note     = COALESCE(@note, provider_note),
		    status_changed_at = now()
		WHERE id = @id AND status = @from
		RETURNING ` + bookingColumns

	args := pgx.NamedArgs{"id": t.BookingID, "from": t.From, "to": t.To, "note": t.Note}
	result, err := scanBooking(r.db.QueryRow(ctx, q, args))
	if errors.Is(err, domain.ErrNotFound) {
		current, getErr := r.GetByID(ctx, t.BookingID)
		if getErr != nil {
			return domain.Booking{}, fmt.Errorf("repo.BookingRepo.Transition: %w", getErr)
		}
		return domain.Booking{}, fmt.Errorf("repo.BookingRepo.Transition: %w: booking is %s, expected %s",
			domain.ErrInvalidTransition, current.Status, t.From)
	}
	if err != nil {
		return domain.Booking{}, fmt.Errorf("repo.BookingRepo.Transition: %w", err)
	}
	return result, nil
}

func (r *pgBookingRepo) List(ctx context.Context, f BookingFilter, p domain.PaginationParams) ([]domain.Booking, int64, error) {
	q := `
		SELECT ` + bookingColumns + `, count(*) OVER ()
		FROM bookings
		WHERE (@traveler::uuid IS NULL OR traveler_id = @traveler::uuid)
		  AND (@provider::uuid IS NULL OR provider_id = @provider::uuid)
		ORDER BY created_at DESC, id
		LIMIT @limit OFFSET @offset`

	args := pgx.NamedArgs{
		"traveler": f.TravelerID,
		"provider": f.ProviderID,
		"limit":    p.Limit,
		"offset":   p.Offset(),
	}
	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.BookingRepo.List: %w", err)
	}
	defer rows.Close()

	var (
		out   = []domain.Booking{}
		total int64
	)
	for rows.Next() {
		b, err := scanBooking(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("repo.BookingRepo.List: scan: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repo.BookingRepo.List: rows: %w", err)
	}
	return out, total, nil
}

// CompleteDue is itself a compare-and-swap: the status predicate is part of
// the UPDATE, so a booking an admin completes concurrently is changed once.
func (r *pgBookingRepo) CompleteDue(ctx context.Context, before time.Time) ([]domain.Booking, error) {
	q := `
		UPDATE bookings
		SET status = 'completed', status_changed_at = now()
		WHERE status = 'confirmed' AND requested_date < @before
		RETURNING ` + bookingColumns

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"before": before})
	if err != nil {
		return nil, fmt.Errorf("repo.BookingRepo.CompleteDue: %w", err)
	}
	defer rows.Close()

	out := []domain.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.BookingRepo.CompleteDue: scan: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.BookingRepo.CompleteDue: rows: %w", err)
	}
	return out, nil
}

func scanBooking(s scanner, extra ...any) (domain.Booking, error) {
	var (
		b                           domain.Booking
		id, traveler, listing, prov pgtype.UUID
		requested                   pgtype.Date
		total                       string
	)
	dest := append([]any{
		&id, &traveler, &listing, &prov, &b.Status, &requested,
		&b.Quantity, &total, &b.Currency, &b.ListingTitleSnapshot, &b.ProviderNote,
		&b.CreatedAt, &b.StatusChangedAt,
	}, extra...)
	if err := s.Scan(dest...); err != nil {
		return domain.Booking{}, noRows(err)
	}
	var err error
	if b.TotalPrice, err = parseMoney(total); err != nil {
		return domain.Booking{}, err
	}
	b.ID = toUUID(id)
	b.TravelerID = toUUID(traveler)
	b.ListingID = toUUID(listing)
	b.ProviderID = toUUID(prov)
	b.RequestedDate = requested.Time
	return b, nil
}
