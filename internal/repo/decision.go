package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tripbazaar/backend/internal/domain"
)

// DecisionRepo is the append-only moderation audit log.
type DecisionRepo interface {
	// Record appends a decision and returns it with id and created_at populated.
	Record(ctx context.Context, d domain.ModerationDecision) (domain.ModerationDecision, error)

	// ListBySubject returns every decision for a subject, newest first.
	ListBySubject(ctx context.Context, t domain.SubjectType, id uuid.UUID) ([]domain.ModerationDecision, error)
}

type pgDecisionRepo struct {
	db db
}

// NewDecisionRepo constructs a DecisionRepo backed by the provided db connection.
func NewDecisionRepo(db db) DecisionRepo {
	return &pgDecisionRepo{db: db}
}

const decisionColumns = `id, subject_type, subject_id, action, from_state, to_state, actor_id, reason, created_at`

func (r *pgDecisionRepo) Record(ctx context.Context, d domain.ModerationDecision) (domain.ModerationDecision, error) {
	q := `
		INSERT INTO moderation_decisions (subject_type, subject_id, action, from_state, to_state, actor_id, reason)
		VALUES (@subject_type, @subject_id, @action, @from_state, @to_state, @actor_id, @reason)
		RETURNING ` + decisionColumns

	args := pgx.NamedArgs{
		"subject_type": d.SubjectType,
		"subject_id":   d.SubjectID,
		"action":       d.Action,
		"from_state":   d.FromState,
		"to_state":     d.ToState,
		"actor_id":     d.ActorID,
		"reason":       d.Reason,
	}
	result, err := scanDecision(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.ModerationDecision{}, fmt.Errorf("repo.DecisionRepo.Record: %w", err)
	}
	return result, nil
}

func (r *pgDecisionRepo) ListBySubject(ctx context.Context, t domain.SubjectType, id uuid.UUID) ([]domain.ModerationDecision, error) {
	q := `
		SELECT ` + decisionColumns + `
		FROM moderation_decisions
		WHERE subject_type = @subject_type AND subject_id = @subject_id
		ORDER BY created_at DESC, id`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"subject_type": t, "subject_id": id})
	if err != nil {
		return nil, fmt.Errorf("repo.DecisionRepo.ListBySubject: %w", err)
	}
	defer rows.Close()

	out := []domain.ModerationDecision{}
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.DecisionRepo.ListBySubject: scan: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.DecisionRepo.ListBySubject: rows: %w", err)
	}
	return out, nil
}

func scanDecision(s scanner) (domain.ModerationDecision, error) {
	var (
		d                    domain.ModerationDecision
		id, subject, actorID pgtype.UUID
	)
	err := s.Scan(&id, &d.SubjectType, &subject, &d.Action, &d.FromState, &d.ToState, &actorID, &d.Reason, &d.CreatedAt)
	if err != nil {
		return domain.ModerationDecision{}, noRows(err)
	}
	d.ID = toUUID(id)
	d.SubjectID = toUUID(subject)
	d.ActorID = toUUID(actorID)
	return d, nil
}
