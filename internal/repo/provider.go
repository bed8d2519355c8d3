package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tripbazaar/backend/internal/domain"
)

// ProviderRepo defines the persistence operations for provider profiles.
// The verified flag is written only through CompareAndSetVerified, which the
// provider verification moderation instance drives.
type ProviderRepo interface {
	// Create inserts an unverified profile for the given provider actor.
	Create(ctx context.Context, ownerActorID uuid.UUID) (domain.ProviderProfile, error)

	// GetByID returns a profile by its id. Returns domain.ErrNotFound if missing.
	GetByID(ctx context.Context, id uuid.UUID) (domain.ProviderProfile, error)

	// GetByOwner returns the profile owned by the given actor.
	GetByOwner(ctx context.Context, ownerActorID uuid.UUID) (domain.ProviderProfile, error)

	// CompareAndSetVerified sets verified to `to` only if it is currently `from`.
	// Returns false (and no error) when the profile exists but no longer holds `from`.
	CompareAndSetVerified(ctx context.Context, id uuid.UUID, from, to bool) (bool, error)
}

type pgProviderRepo struct {
	db db
}

// NewProviderRepo constructs a ProviderRepo backed by the provided db connection.
func NewProviderRepo(db db) ProviderRepo {
	return &pgProviderRepo{db: db}
}

const providerColumns = `id, owner_actor_id, verified, rating::text, created_at`

func (r *pgProviderRepo) Create(ctx context.Context, ownerActorID uuid.UUID) (domain.ProviderProfile, error) {
	q := `
		INSERT INTO provider_profiles (owner_actor_id)
		VALUES (@owner)
		RETURNING ` + providerColumns

	result, err := scanProvider(r.db.QueryRow(ctx, q, pgx.NamedArgs{"owner": ownerActorID}))
	if err != nil {
		return domain.ProviderProfile{}, fmt.Errorf("repo.ProviderRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgProviderRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.ProviderProfile, error) {
	q := `SELECT ` + providerColumns + ` FROM provider_profiles WHERE id = @id`

	result, err := scanProvider(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.ProviderProfile{}, fmt.Errorf("repo.ProviderRepo.GetByID: %w", err)
	}
	return result, nil
}

func (r *pgProviderRepo) GetByOwner(ctx context.Context, ownerActorID uuid.UUID) (domain.ProviderProfile, error) {
	q := `SELECT ` + providerColumns + ` FROM provider_profiles WHERE owner_actor_id = @owner`

	result, err := scanProvider(r.db.QueryRow(ctx, q, pgx.NamedArgs{"owner": ownerActorID}))
	if err != nil {
		return domain.ProviderProfile{}, fmt.Errorf("repo.ProviderRepo.GetByOwner: %w", err)
	}
	return result, nil
}

func (r *pgProviderRepo) CompareAndSetVerified(ctx context.Context, id uuid.UUID, from, to bool) (bool, error) {
	const q = `
		UPDATE provider_profiles
		SET verified = @to
		WHERE id = @id AND verified = @from`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id, "from": from, "to": to})
	if err != nil {
		return false, fmt.Errorf("repo.ProviderRepo.CompareAndSetVerified: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	// Distinguish "lost the race" from "no such profile".
	if _, err := r.GetByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func scanProvider(s scanner) (domain.ProviderProfile, error) {
	var (
		p       domain.ProviderProfile
		id, own pgtype.UUID
		rating  string
	)
	if err := s.Scan(&id, &own, &p.Verified, &rating, &p.CreatedAt); err != nil {
		return domain.ProviderProfile{}, noRows(err)
	}
	var err error
	if p.Rating, err = parseMoney(rating); err != nil {
		return domain.ProviderProfile{}, err
	}
	p.ID = toUUID(id)
	p.OwnerActorID = toUUID(own)
	return p, nil
}
