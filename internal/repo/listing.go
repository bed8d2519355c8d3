package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tripbazaar/backend/internal/domain"
)

// ListingRepo defines the persistence operations for catalog listings.
// Status is written only through CompareAndSetStatus; UpdateContent never
// touches it.
type ListingRepo interface {
	// Create inserts a listing in pending status and returns the persisted record.
	Create(ctx context.Context, l domain.Listing) (domain.Listing, error)

	// GetByID returns a listing. Returns domain.ErrNotFound if missing.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Listing, error)

	// GetView returns a listing joined with its provider's profile.
	GetView(ctx context.Context, id uuid.UUID) (domain.ListingView, error)

	// UpdateContent overwrites the display fields and price of a listing.
	UpdateContent(ctx context.Context, l domain.Listing) (domain.Listing, error)

	// ListActive returns one page of active listings, newest first, with the total count.
	ListActive(ctx context.Context, p domain.PaginationParams) ([]domain.ListingView, int64, error)

	// LockForCheckout returns the listings with the given ids keyed by id and
	// holds a share lock on them until the surrounding transaction ends, so a
	// concurrent status change waits for the checkout to finish.
	LockForCheckout(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Listing, error)

	// CompareAndSetStatus sets status to `to` only if it is currently `from`.
	// Returns false (and no error) when the listing exists but no longer holds `from`.
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to domain.ListingStatus) (bool, error)
}

type pgListingRepo struct {
	db db
}

// NewListingRepo constructs a ListingRepo backed by the provided db connection.
func NewListingRepo(db db) ListingRepo {
	return &pgListingRepo{db: db}
}

const listingColumns = `l.id, l.owner_provider_id, l.status, l.title, l.description,
	l.category, l.location, l.price::text, l.currency, l.created_at, l.updated_at`

func (r *pgListingRepo) Create(ctx context.Context, l domain.Listing) (domain.Listing, error) {
	q := `
		WITH l AS (
			INSERT INTO listings (owner_provider_id, title, description, category, location, price, currency)
			VALUES (@owner, @title, @description, @category, @location, @price::text::numeric, @currency)
			RETURNING *
		)
		SELECT ` + listingColumns + ` FROM l`

	args := pgx.NamedArgs{
		"owner":       l.OwnerProviderID,
		"title":       l.Title,
		"description": l.Description,
		"category":    l.Category,
		"location":    l.Location,
		"price":       l.Price.String(),
		"currency":    l.Currency,
	}
	result, err := scanListing(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Listing{}, fmt.Errorf("repo.ListingRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgListingRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Listing, error) {
	q := `SELECT ` + listingColumns + ` FROM listings l WHERE l.id = @id`

	result, err := scanListing(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Listing{}, fmt.Errorf("repo.ListingRepo.GetByID: %w", err)
	}
	return result, nil
}

func (r *pgListingRepo) GetView(ctx context.Context, id uuid.UUID) (domain.ListingView, error) {
	q := `
		SELECT ` + listingColumns + `, COALESCE(p.verified, false), COALESCE(p.rating, 0)::text
		FROM listings l
		LEFT JOIN provider_profiles p ON p.owner_actor_id = l.owner_provider_id
		WHERE l.id = @id`

	result, err := scanListingView(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.ListingView{}, fmt.Errorf("repo.ListingRepo.GetView: %w", err)
	}
	return result, nil
}

func (r *pgListingRepo) UpdateContent(ctx context.Context, l domain.Listing) (domain.Listing, error) {
	q := `
		WITH l AS (
			UPDATE listings
			SET title       = @title,
			    description = @description,
			    category    = @category,
			    location    = @location,
			    price       = @price::text::numeric,
			    currency    = @currency,
			    updated_at  = now()
			WHERE id = @id
			RETURNING *
		)
		SELECT ` + listingColumns + ` FROM l`

	args := pgx.NamedArgs{
		"id":          l.ID,
		"title":       l.Title,
		"description": l.Description,
		"category":    l.Category,
		"location":    l.Location,
		"price":       l.Price.String(),
		"currency":    l.Currency,
	}
	result, err := scanListing(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Listing{}, fmt.Errorf("repo.ListingRepo.UpdateContent: %w", err)
	}
	return result, nil
}

func (r *pgListingRepo) ListActive(ctx context.Context, p domain.PaginationParams) ([]domain.ListingView, int64, error) {
	q := `
		SELECT ` + listingColumns + `, COALESCE(p.verified, false), COALESCE(p.rating, 0)::text,
		       count(*) OVER ()
		FROM listings l
		LEFT JOIN provider_profiles p ON p.owner_actor_id = l.owner_provider_id
		WHERE l.status = 'active'
		ORDER BY l.created_at DESC, l.id
		LIMIT @limit OFFSET @offset`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"limit": p.Limit, "offset": p.Offset()})
	if err != nil {
		return nil, 0, fmt.Errorf("repo.ListingRepo.ListActive: %w", err)
	}
	defer rows.Close()

	var (
		out   = []domain.ListingView{}
		total int64
	)
	for rows.Next() {
		v, err := scanListingView(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("repo.ListingRepo.ListActive: scan: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repo.ListingRepo.ListActive: rows: %w", err)
	}
	return out, total, nil
}

func (r *pgListingRepo) LockForCheckout(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Listing, error) {
	q := `
		SELECT ` + listingColumns + `
		FROM listings l
		WHERE l.id = ANY(@ids::uuid[])
		ORDER BY l.id
		FOR SHARE`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"ids": uuidStrings(ids)})
	if err != nil {
		return nil, fmt.Errorf("repo.ListingRepo.LockForCheckout: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]domain.Listing, len(ids))
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.ListingRepo.LockForCheckout: scan: %w", err)
		}
		out[l.ID] = l
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.ListingRepo.LockForCheckout: rows: %w", err)
	}
	return out, nil
}

func (r *pgListingRepo) CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to domain.ListingStatus) (bool, error) {
	const q = `
		UPDATE listings
		SET status = @to, updated_at = now()
		WHERE id = @id AND status = @from`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id, "from": from, "to": to})
	if err != nil {
		return false, fmt.Errorf("repo.ListingRepo.CompareAndSetStatus: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func scanListing(s scanner, extra ...any) (domain.Listing, error) {
	var (
		l         domain.Listing
		id, owner pgtype.UUID
		price     string
	)
	dest := append([]any{
		&id, &owner, &l.Status, &l.Title, &l.Description,
		&l.Category, &l.Location, &price, &l.Currency, &l.CreatedAt, &l.UpdatedAt,
	}, extra...)
	if err := s.Scan(dest...); err != nil {
		return domain.Listing{}, noRows(err)
	}
	var err error
	if l.Price, err = parseMoney(price); err != nil {
		return domain.Listing{}, err
	}
	l.ID = toUUID(id)
	l.OwnerProviderID = toUUID(owner)
	return l, nil
}

// scanListingView scans listing columns followed by provider verified and
// rating, plus any trailing columns (e.g. a window count) into extra.
func scanListingView(s scanner, extra ...any) (domain.ListingView, error) {
	var (
		v      domain.ListingView
		rating string
	)
	l, err := scanListing(s, append([]any{&v.ProviderVerified, &rating}, extra...)...)
	if err != nil {
		return domain.ListingView{}, err
	}
	v.Listing = l
	if v.ProviderRating, err = parseMoney(rating); err != nil {
		return domain.ListingView{}, err
	}
	return v, nil
}
