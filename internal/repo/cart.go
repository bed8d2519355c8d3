package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tripbazaar/backend/internal/domain"
)

// CartRepo defines the persistence operations for cart lines.
type CartRepo interface {
	// Upsert inserts a line for (owner, listing) or increments the existing
	// line's quantity by qty, in one statement. The increment is skipped when
	// it would push the quantity above limit; in that case
	// domain.ErrQuantityLimitExceeded is returned and nothing changes.
	Upsert(ctx context.Context, owner, listing uuid.UUID, qty, limit int) (domain.CartLine, error)

	// GetByID returns a cart line. Returns domain.ErrNotFound if missing.
	GetByID(ctx context.Context, id uuid.UUID) (domain.CartLine, error)

	// SetQuantity overwrites the quantity of a line.
	SetQuantity(ctx context.Context, id uuid.UUID, qty int) (domain.CartLine, error)

	// Delete removes a line. Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteByOwner removes every line owned by owner and returns how many were removed.
	DeleteByOwner(ctx context.Context, owner uuid.UUID) (int64, error)

	// ListItems returns the owner's lines joined with each listing's current fields.
	ListItems(ctx context.Context, owner uuid.UUID) ([]domain.CartItem, error)

	// LockLines returns the lines with the given ids, locked FOR UPDATE until
	// the surrounding transaction ends. Missing ids are simply absent.
	LockLines(ctx context.Context, ids []uuid.UUID) ([]domain.CartLine, error)

	// DeleteLines removes the given lines of owner and returns how many were removed.
	DeleteLines(ctx context.Context, owner uuid.UUID, ids []uuid.UUID) (int64, error)
}

type pgCartRepo struct {
	db db
}

// NewCartRepo constructs a CartRepo backed by the provided db connection.
func NewCartRepo(db db) CartRepo {
	return &pgCartRepo{db: db}
}

const cartColumns = `id, owner_actor_id, listing_id, quantity, created_at, updated_at`

// Upsert relies on the cart_lines_owner_listing_key unique constraint: two
// concurrent adds of the same (owner, listing) serialize on the conflicting
// row, and the loser increments instead of inserting a second line.
func (r *pgCartRepo) Upsert(ctx context.Context, owner, listing uuid.UUID, qty, limit int) (domain.CartLine, error) {
	q := `
		INSERT INTO cart_lines (owner_actor_id, listing_id, quantity)
		VALUES (@owner, @listing, @qty)
		ON CONFLICT ON CONSTRAINT cart_lines_owner_listing_key DO UPDATE
		SET quantity   = cart_lines.quantity + EXCLUDED.quantity,
		    updated_at = now()
		WHERE cart_lines.quantity + EXCLUDED.quantity <= @max
		RETURNING ` + cartColumns

	args := pgx.NamedArgs{"owner": owner, "listing": listing, "qty": qty, "max": limit}
	line, err := scanCartLine(r.db.QueryRow(ctx, q, args))
	if errors.Is(err, domain.ErrNotFound) {
		// The conflict branch's WHERE filtered the update out.
		return domain.CartLine{}, fmt.Errorf("repo.CartRepo.Upsert: %w: at most %d per line", domain.ErrQuantityLimitExceeded, limit)
	}
	if err != nil {
		return domain.CartLine{}, fmt.Errorf("repo.CartRepo.Upsert: %w", err)
	}
	return line, nil
}

func (r *pgCartRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.CartLine, error) {
	q := `SELECT ` + cartColumns + ` FROM cart_lines WHERE id = @id`

	line, err := scanCartLine(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.CartLine{}, fmt.Errorf("repo.CartRepo.GetByID: %w", err)
	}
	return line, nil
}

func (r *pgCartRepo) SetQuantity(ctx context.Context, id uuid.UUID, qty int) (domain.CartLine, error) {
	q := `
		UPDATE cart_lines
		SET quantity = @qty, updated_at = now()
		WHERE id = @id
		RETURNING ` + cartColumns

	line, err := scanCartLine(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id, "qty": qty}))
	if err != nil {
		return domain.CartLine{}, fmt.Errorf("repo.CartRepo.SetQuantity: %w", err)
	}
	return line, nil
}

func (r *pgCartRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM cart_lines WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.CartRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.CartRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *pgCartRepo) DeleteByOwner(ctx context.Context, owner uuid.UUID) (int64, error) {
	const q = `DELETE FROM cart_lines WHERE owner_actor_id = @owner`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"owner": owner})
	if err != nil {
		return 0, fmt.Errorf("repo.CartRepo.DeleteByOwner: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *pgCartRepo) ListItems(ctx context.Context, owner uuid.UUID) ([]domain.CartItem, error) {
	const q = `
		SELECT c.id, c.owner_actor_id, c.listing_id, c.quantity, c.created_at, c.updated_at,
		       l.title, l.category, l.location, l.price::text, l.currency,
		       l.owner_provider_id, COALESCE(p.verified, false), l.status
		FROM cart_lines c
		JOIN listings l ON l.id = c.listing_id
		LEFT JOIN provider_profiles p ON p.owner_actor_id = l.owner_provider_id
		WHERE c.owner_actor_id = @owner
		ORDER BY c.created_at, c.id`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"owner": owner})
	if err != nil {
		return nil, fmt.Errorf("repo.CartRepo.ListItems: %w", err)
	}
	defer rows.Close()

	items := []domain.CartItem{}
	for rows.Next() {
		var (
			it       domain.CartItem
			price    string
			provider pgtype.UUID
		)
		line, err := scanCartLine(rows,
			&it.Title, &it.Category, &it.Location, &price, &it.Currency,
			&provider, &it.ProviderVerified, &it.ListingStatus,
		)
		if err != nil {
			return nil, fmt.Errorf("repo.CartRepo.ListItems: scan: %w", err)
		}
		it.CartLine = line
		it.ProviderID = toUUID(provider)
		if it.Price, err = parseMoney(price); err != nil {
			return nil, fmt.Errorf("repo.CartRepo.ListItems: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.CartRepo.ListItems: rows: %w", err)
	}
	return items, nil
}

func (r *pgCartRepo) LockLines(ctx context.Context, ids []uuid.UUID) ([]domain.CartLine, error) {
	q := `
		SELECT ` + cartColumns + `
		FROM cart_lines
		WHERE id = ANY(@ids::uuid[])
		ORDER BY created_at, id
		FOR UPDATE`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"ids": uuidStrings(ids)})
	if err != nil {
		return nil, fmt.Errorf("repo.CartRepo.LockLines: %w", err)
	}
	defer rows.Close()

	lines := []domain.CartLine{}
	for rows.Next() {
		line, err := scanCartLine(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.CartRepo.LockLines: scan: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.CartRepo.LockLines: rows: %w", err)
	}
	return lines, nil
}

func (r *pgCartRepo) DeleteLines(ctx context.Context, owner uuid.UUID, ids []uuid.UUID) (int64, error) {
	const q = `DELETE FROM cart_lines WHERE owner_actor_id = @owner AND id = ANY(@ids::uuid[])`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"owner": owner, "ids": uuidStrings(ids)})
	if err != nil {
		return 0, fmt.Errorf("repo.CartRepo.DeleteLines: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanCartLine(s scanner, extra ...any) (domain.CartLine, error) {
	var (
		c                  domain.CartLine
		id, owner, listing pgtype.UUID
	)
	dest := append([]any{&id, &owner, &listing, &c.Quantity, &c.CreatedAt, &c.UpdatedAt}, extra...)
	if err := s.Scan(dest...); err != nil {
		return domain.CartLine{}, noRows(err)
	}
	c.ID = toUUID(id)
	c.OwnerActorID = toUUID(owner)
	c.ListingID = toUUID(listing)
	return c, nil
}
