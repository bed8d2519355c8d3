// Package moderation implements the role-gated transition engine behind
// listing approval and provider verification. One generic Engine is
// instantiated per subject type with its own transition table, store, and
// authorization rule; all instances share the same apply semantics:
//
//  0. if the instance has a gate, check the actor's role before any read,
//  1. read the subject's current persisted state and owner,
//  2. authorize the actor,
//  3. look up the next state in the transition table,
//  4. if the state would not change, succeed without writing (idempotence),
//  5. otherwise compare-and-swap from the state read in step 1 and append a
//     decision to the audit log in the same transaction.
//
// A compare-and-swap miss means another writer changed the subject between
// steps 1 and 5; it is reported as domain.ErrConflictRetry so the transaction
// runner re-runs the whole sequence against the fresh state.
package moderation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tripbazaar/backend/internal/domain"
)

// Store is the persistence an engine instance needs, bound to one transaction.
type Store[S comparable] interface {
	// Current returns the subject's state and the id of the actor who owns it.
	// Returns domain.ErrNotFound if the subject does not exist.
	Current(ctx context.Context, id uuid.UUID) (state S, owner uuid.UUID, err error)

	// CompareAndSwap writes `to` only if the subject still holds `from`.
	CompareAndSwap(ctx context.Context, id uuid.UUID, from, to S) (bool, error)

	// Record appends a decision to the audit log.
	Record(ctx context.Context, d domain.ModerationDecision) error
}

// Runner executes fn against a Store inside one transaction, re-running it a
// bounded number of times when it fails with domain.ErrConflictRetry.
type Runner[S comparable] func(ctx context.Context, fn func(Store[S]) error) error

// Authorizer decides whether actor may raise event on a subject owned by owner.
type Authorizer[E comparable] func(actor domain.Actor, owner uuid.UUID, event E) error

// Gate is a role check that needs no subject state. It runs before the
// subject is read, so a caller without the role learns nothing about which
// ids exist.
type Gate[E comparable] func(actor domain.Actor, event E) error

// Request is one moderation call.
type Request[E comparable] struct {
	Actor     domain.Actor
	SubjectID uuid.UUID
	Event     E
	Reason    string
}

// Outcome reports what an applied request did.
type Outcome[S comparable] struct {
	SubjectID uuid.UUID
	From      S
	To        S
	// Changed is false when the request was an idempotent repeat.
	Changed bool
}

// Engine is a generic role-gated state transition engine.
type Engine[S comparable, E comparable] struct {
	subject   domain.SubjectType
	table     domain.TransitionTable[S, E]
	run       Runner[S]
	authorize Authorizer[E]
	gate      Gate[E]
}

// NewEngine constructs an engine for one subject type.
func NewEngine[S comparable, E comparable](
	subject domain.SubjectType,
	table domain.TransitionTable[S, E],
	run Runner[S],
	authorize Authorizer[E],
) *Engine[S, E] {
	return &Engine[S, E]{subject: subject, table: table, run: run, authorize: authorize}
}

// WithGate installs a pre-read role check and returns e.
func (e *Engine[S, E]) WithGate(g Gate[E]) *Engine[S, E] {
	e.gate = g
	return e
}

// Apply runs req in its own transaction.
func (e *Engine[S, E]) Apply(ctx context.Context, req Request[E]) (Outcome[S], error) {
	if err := e.checkGate(req); err != nil {
		return Outcome[S]{}, err
	}
	var out Outcome[S]
	err := e.run(ctx, func(st Store[S]) error {
		var err error
		out, err = e.ApplyIn(ctx, st, req)
		return err
	})
	if err != nil {
		return Outcome[S]{}, err
	}
	return out, nil
}

// ApplyIn runs req against a store the caller already holds open, so the
// transition commits or rolls back together with the caller's own writes.
// The catalog edit path uses this to reset a listing inside its update.
func (e *Engine[S, E]) ApplyIn(ctx context.Context, st Store[S], req Request[E]) (Outcome[S], error) {
	if err := e.checkGate(req); err != nil {
		return Outcome[S]{}, err
	}
	current, owner, err := st.Current(ctx, req.SubjectID)
	if err != nil {
		return Outcome[S]{}, fmt.Errorf("moderation.%s: %w", e.subject, err)
	}
	if err := e.authorize(req.Actor, owner, req.Event); err != nil {
		return Outcome[S]{}, fmt.Errorf("moderation.%s: %w", e.subject, err)
	}
	next, err := e.table.Next(current, req.Event)
	if err != nil {
		return Outcome[S]{}, fmt.Errorf("moderation.%s: %w", e.subject, err)
	}

	out := Outcome[S]{SubjectID: req.SubjectID, From: current, To: next}
	if next == current {
		return out, nil
	}

	swapped, err := st.CompareAndSwap(ctx, req.SubjectID, current, next)
	if err != nil {
		return Outcome[S]{}, fmt.Errorf("moderation.%s: %w", e.subject, err)
	}
	if !swapped {
		return Outcome[S]{}, fmt.Errorf("moderation.%s: %w: state changed from %v", e.subject, domain.ErrConflictRetry, current)
	}

	err = st.Record(ctx, domain.ModerationDecision{
		SubjectType: e.subject,
		SubjectID:   req.SubjectID,
		Action:      fmt.Sprint(req.Event),
		FromState:   fmt.Sprint(current),
		ToState:     fmt.Sprint(next),
		ActorID:     req.Actor.ID,
		Reason:      req.Reason,
	})
	if err != nil {
		return Outcome[S]{}, fmt.Errorf("moderation.%s: %w", e.subject, err)
	}

	out.Changed = true
	return out, nil
}

func (e *Engine[S, E]) checkGate(req Request[E]) error {
	if e.gate == nil {
		return nil
	}
	if err := e.gate(req.Actor, req.Event); err != nil {
		return fmt.Errorf("moderation.%s: %w", e.subject, err)
	}
	return nil
}
