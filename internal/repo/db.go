// Package repo contains all database access logic for the marketplace core.
// Each resource has its own file with an interface and a Postgres implementation.
// No business logic lives here, only SQL and type mapping. The three writes
// that need stronger guarantees than read-then-write (cart upsert, checkout,
// status compare-and-swap) are expressed as single statements or run inside
// Store.WithinTx.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/tripbazaar/backend/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test, and lets
// Store hand the same repos a live transaction.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing scan helpers to
// be reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}

// Repos bundles every repo bound to the same connection or transaction.
type Repos struct {
	Actors    ActorRepo
	Providers ProviderRepo
	Listings  ListingRepo
	Carts     CartRepo
	Bookings  BookingRepo
	Decisions DecisionRepo
}

// NewRepos binds every repo to db. In production pass *pgxpool.Pool for reads
// (or let Store pass a pgx.Tx); in tests pass a pgx.Tx for rollback isolation.
func NewRepos(db db) Repos {
	return Repos{
		Actors:    NewActorRepo(db),
		Providers: NewProviderRepo(db),
		Listings:  NewListingRepo(db),
		Carts:     NewCartRepo(db),
		Bookings:  NewBookingRepo(db),
		Decisions: NewDecisionRepo(db),
	}
}

// noRows maps pgx.ErrNoRows to domain.ErrNotFound and passes other errors through.
func noRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

func toUUID(id pgtype.UUID) uuid.UUID {
	return uuid.UUID(id.Bytes)
}

// uuidStrings renders ids for `= ANY(@ids::uuid[])` parameters.
func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// parseMoney converts a NUMERIC column selected as ::text into a decimal.
func parseMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse numeric %q: %w", s, err)
	}
	return d, nil
}
