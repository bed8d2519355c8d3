// Package testutil holds the Postgres plumbing shared by the marketplace's
// integration tests: pools and database/sql handles opened from
// TEST_DATABASE_URL, and cleanup for fixtures that had to be committed.
// Without TEST_DATABASE_URL every helper skips the calling test.
package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
)

// NewPool returns a pool on TEST_DATABASE_URL, closed when t finishes.
// Repo tests usually wrap it in a rolled-back transaction. Tests that race
// goroutines against each other need the pool itself and committed rows,
// paired with CleanupActors.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := requireDSN(t)

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("testutil.NewPool: open pool: %v", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		t.Fatalf("testutil.NewPool: ping: %v", err)
	}

	t.Cleanup(pool.Close)
	return pool
}

// NewSQLDB is NewPool for goose, which only speaks database/sql.
func NewSQLDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := requireDSN(t)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("testutil.NewSQLDB: open: %v", err)
	}

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		t.Fatalf("testutil.NewSQLDB: ping: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// MustOpenSQLDB opens dsn for a TestMain that migrates the schema before any
// test runs. The caller closes it.
func MustOpenSQLDB(dsn string) *sql.DB {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		panic("testutil.MustOpenSQLDB: open: " + err.Error())
	}
	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		panic("testutil.MustOpenSQLDB: ping: " + err.Error())
	}
	return db
}

// CleanupActors registers a t.Cleanup that deletes the given actors and every
// row hanging off them, children before parents.
func CleanupActors(t *testing.T, pool *pgxpool.Pool, ids ...uuid.UUID) {
	t.Helper()
	t.Cleanup(func() {
		ctx := context.Background()
		stmts := []string{
			`DELETE FROM bookings WHERE traveler_id = ANY($1) OR provider_id = ANY($1)`,
			`DELETE FROM cart_lines WHERE owner_actor_id = ANY($1)
			    OR listing_id IN (SELECT id FROM listings WHERE owner_provider_id = ANY($1))`,
			`DELETE FROM moderation_decisions WHERE actor_id = ANY($1)`,
			`DELETE FROM listings WHERE owner_provider_id = ANY($1)`,
			`DELETE FROM provider_profiles WHERE owner_actor_id = ANY($1)`,
			`DELETE FROM actors WHERE id = ANY($1)`,
		}
		for _, q := range stmts {
			if _, err := pool.Exec(ctx, q, ids); err != nil {
				t.Errorf("testutil.CleanupActors: %v", err)
				return
			}
		}
	})
}

func requireDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping integration test")
	}
	return dsn
}
