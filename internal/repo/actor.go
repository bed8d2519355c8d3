package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tripbazaar/backend/internal/domain"
)

// ActorRepo defines the persistence operations for the actor directory.
type ActorRepo interface {
	// Create inserts a new actor and returns the persisted record.
	Create(ctx context.Context, a domain.ActorRecord) (domain.ActorRecord, error)

	// GetByID returns the actor with the given id.
	// Returns domain.ErrNotFound if no such actor exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.ActorRecord, error)
}

type pgActorRepo struct {
	db db
}

// NewActorRepo constructs an ActorRepo backed by the provided db connection.
func NewActorRepo(db db) ActorRepo {
	return &pgActorRepo{db: db}
}

func (r *pgActorRepo) Create(ctx context.Context, a domain.ActorRecord) (domain.ActorRecord, error) {
	const q = `
		INSERT INTO actors (role, display_name)
		VALUES (@role, @display_name)
		RETURNING id, role, display_name, created_at`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"role": a.Role, "display_name": a.DisplayName})
	result, err := scanActor(row)
	if err != nil {
		return domain.ActorRecord{}, fmt.Errorf("repo.ActorRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgActorRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.ActorRecord, error) {
	const q = `SELECT id, role, display_name, created_at FROM actors WHERE id = @id`

	result, err := scanActor(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.ActorRecord{}, fmt.Errorf("repo.ActorRepo.GetByID: %w", err)
	}
	return result, nil
}

func scanActor(s scanner) (domain.ActorRecord, error) {
	var (
		a  domain.ActorRecord
		id pgtype.UUID
	)
	if err := s.Scan(&id, &a.Role, &a.DisplayName, &a.CreatedAt); err != nil {
		return domain.ActorRecord{}, noRows(err)
	}
	a.ID = toUUID(id)
	return a, nil
}
