package service_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tripbazaar/backend/internal/domain"
	"github.com/tripbazaar/backend/internal/events"
	"github.com/tripbazaar/backend/internal/repo"
)

// Hand-written test doubles for the repo interfaces.
// Each method is a function field: set only the ones your test needs. An unset
// field panics when called, which flags an unexpected repo call loudly.

type mockActorRepo struct {
	create  func(ctx context.Context, a domain.ActorRecord) (domain.ActorRecord, error)
	getByID func(ctx context.Context, id uuid.UUID) (domain.ActorRecord, error)
}

func (m *mockActorRepo) Create(ctx context.Context, a domain.ActorRecord) (domain.ActorRecord, error) {
	return m.create(ctx, a)
}
func (m *mockActorRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.ActorRecord, error) {
	return m.getByID(ctx, id)
}

type mockProviderRepo struct {
	create      func(ctx context.Context, owner uuid.UUID) (domain.ProviderProfile, error)
	getByID     func(ctx context.Context, id uuid.UUID) (domain.ProviderProfile, error)
	getByOwner  func(ctx context.Context, owner uuid.UUID) (domain.ProviderProfile, error)
	casVerified func(ctx context.Context, id uuid.UUID, from, to bool) (bool, error)
}

func (m *mockProviderRepo) Create(ctx context.Context, owner uuid.UUID) (domain.ProviderProfile, error) {
	return m.create(ctx, owner)
}
func (m *mockProviderRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.ProviderProfile, error) {
	return m.getByID(ctx, id)
}
func (m *mockProviderRepo) GetByOwner(ctx context.Context, owner uuid.UUID) (domain.ProviderProfile, error) {
	return m.getByOwner(ctx, owner)
}
func (m *mockProviderRepo) CompareAndSetVerified(ctx context.Context, id uuid.UUID, from, to bool) (bool, error) {
	return m.casVerified(ctx, id, from, to)
}

type mockListingRepo struct {
	create          func(ctx context.Context, l domain.Listing) (domain.Listing, error)
	getByID         func(ctx context.Context, id uuid.UUID) (domain.Listing, error)
	getView         func(ctx context.Context, id uuid.UUID) (domain.ListingView, error)
	updateContent   func(ctx context.Context, l domain.Listing) (domain.Listing, error)
	listActive      func(ctx context.Context, p domain.PaginationParams) ([]domain.ListingView, int64, error)
	lockForCheckout func(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Listing, error)
	casStatus       func(ctx context.Context, id uuid.UUID, from, to domain.ListingStatus) (bool, error)
}

func (m *mockListingRepo) Create(ctx context.Context, l domain.Listing) (domain.Listing, error) {
	return m.create(ctx, l)
}
func (m *mockListingRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Listing, error) {
	return m.getByID(ctx, id)
}
func (m *mockListingRepo) GetView(ctx context.Context, id uuid.UUID) (domain.ListingView, error) {
	return m.getView(ctx, id)
}
func (m *mockListingRepo) UpdateContent(ctx context.Context, l domain.Listing) (domain.Listing, error) {
	return m.updateContent(ctx, l)
}
func (m *mockListingRepo) ListActive(ctx context.Context, p domain.PaginationParams) ([]domain.ListingView, int64, error) {
	return m.listActive(ctx, p)
}
func (m *mockListingRepo) LockForCheckout(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Listing, error) {
	return m.lockForCheckout(ctx, ids)
}
func (m *mockListingRepo) CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to domain.ListingStatus) (bool, error) {
	return m.casStatus(ctx, id, from, to)
}

type mockCartRepo struct {
	upsert        func(ctx context.Context, owner, listing uuid.UUID, qty, limit int) (domain.CartLine, error)
	getByID       func(ctx context.Context, id uuid.UUID) (domain.CartLine, error)
	setQuantity   func(ctx context.Context, id uuid.UUID, qty int) (domain.CartLine, error)
	delete        func(ctx context.Context, id uuid.UUID) error
	deleteByOwner func(ctx context.Context, owner uuid.UUID) (int64, error)
	listItems     func(ctx context.Context, owner uuid.UUID) ([]domain.CartItem, error)
	lockLines     func(ctx context.Context, ids []uuid.UUID) ([]domain.CartLine, error)
	deleteLines   func(ctx context.Context, owner uuid.UUID, ids []uuid.UUID) (int64, error)
}

func (m *mockCartRepo) Upsert(ctx context.Context, owner, listing uuid.UUID, qty, limit int) (domain.CartLine, error) {
	return m.upsert(ctx, owner, listing, qty, limit)
}
func (m *mockCartRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.CartLine, error) {
	return m.getByID(ctx, id)
}
func (m *mockCartRepo) SetQuantity(ctx context.Context, id uuid.UUID, qty int) (domain.CartLine, error) {
	return m.setQuantity(ctx, id, qty)
}
func (m *mockCartRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.delete(ctx, id)
}
func (m *mockCartRepo) DeleteByOwner(ctx context.Context, owner uuid.UUID) (int64, error) {
	return m.deleteByOwner(ctx, owner)
}
func (m *mockCartRepo) ListItems(ctx context.Context, owner uuid.UUID) ([]domain.CartItem, error) {
	return m.listItems(ctx, owner)
}
func (m *mockCartRepo) LockLines(ctx context.Context, ids []uuid.UUID) ([]domain.CartLine, error) {
	return m.lockLines(ctx, ids)
}
func (m *mockCartRepo) DeleteLines(ctx context.Context, owner uuid.UUID, ids []uuid.UUID) (int64, error) {
	return m.deleteLines(ctx, owner, ids)
}

type mockBookingRepo struct {
	create      func(ctx context.Context, b domain.Booking) (domain.Booking, error)
	getByID     func(ctx context.Context, id uuid.UUID) (domain.Booking, error)
	transition  func(ctx context.Context, t domain.BookingTransition) (domain.Booking, error)
	list        func(ctx context.Context, f repo.BookingFilter, p domain.PaginationParams) ([]domain.Booking, int64, error)
	completeDue func(ctx context.Context, before time.Time) ([]domain.Booking, error)
}

func (m *mockBookingRepo) Create(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	return m.create(ctx, b)
}
func (m *mockBookingRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	return m.getByID(ctx, id)
}
func (m *mockBookingRepo) Transition(ctx context.Context, t domain.BookingTransition) (domain.Booking, error) {
	return m.transition(ctx, t)
}
func (m *mockBookingRepo) List(ctx context.Context, f repo.BookingFilter, p domain.PaginationParams) ([]domain.Booking, int64, error) {
	return m.list(ctx, f, p)
}
func (m *mockBookingRepo) CompleteDue(ctx context.Context, before time.Time) ([]domain.Booking, error) {
	return m.completeDue(ctx, before)
}

type mockDecisionRepo struct {
	record        func(ctx context.Context, d domain.ModerationDecision) (domain.ModerationDecision, error)
	listBySubject func(ctx context.Context, t domain.SubjectType, id uuid.UUID) ([]domain.ModerationDecision, error)
}

func (m *mockDecisionRepo) Record(ctx context.Context, d domain.ModerationDecision) (domain.ModerationDecision, error) {
	return m.record(ctx, d)
}
func (m *mockDecisionRepo) ListBySubject(ctx context.Context, t domain.SubjectType, id uuid.UUID) ([]domain.ModerationDecision, error) {
	return m.listBySubject(ctx, t, id)
}

// compile-time checks: every mock must satisfy its repo interface.
var (
	_ repo.ActorRepo    = (*mockActorRepo)(nil)
	_ repo.ProviderRepo = (*mockProviderRepo)(nil)
	_ repo.ListingRepo  = (*mockListingRepo)(nil)
	_ repo.CartRepo     = (*mockCartRepo)(nil)
	_ repo.BookingRepo  = (*mockBookingRepo)(nil)
	_ repo.DecisionRepo = (*mockDecisionRepo)(nil)
)

// fakeTx runs fn against fixed repos. It counts calls and re-runs fn on
// domain.ErrConflictRetry the way repo.Store does, up to attempts times.
type fakeTx struct {
	repos    repo.Repos
	attempts int
	calls    int
}

func (f *fakeTx) WithinTx(_ context.Context, fn func(r repo.Repos) error) error {
	attempts := max(f.attempts, 1)
	var err error
	for n := 0; n < attempts; n++ {
		f.calls++
		if err = fn(f.repos); !errors.Is(err, domain.ErrConflictRetry) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", domain.ErrServerBusy, err)
}

var _ repo.TxRunner = (*fakeTx)(nil)

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

// ---- helpers ---------------------------------------------------------------

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, nil)), &buf
}

func newActor(role domain.Role) domain.Actor {
	return domain.Actor{ID: uuid.New(), Role: role}
}
