package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sethvargo/go-retry"

	"github.com/tripbazaar/backend/internal/domain"
)

// Postgres SQLSTATEs that signal a transient race between transactions.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// TxRunner runs fn inside one database transaction. If fn returns an error the
// transaction is rolled back and persisted state is left unchanged.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(r Repos) error) error
}

// beginner is satisfied by *pgxpool.Pool and pgx.Conn.
type beginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// Store runs units of work in transactions and retries transient conflicts.
type Store struct {
	pool       beginner
	maxRetries uint64
	baseDelay  time.Duration
}

// NewStore constructs a Store. maxRetries bounds how many times a transaction
// that hit a serialization failure or deadlock is re-run before the caller
// sees domain.ErrServerBusy.
func NewStore(pool beginner, maxRetries int) *Store {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Store{pool: pool, maxRetries: uint64(maxRetries), baseDelay: 20 * time.Millisecond}
}

// WithinTx implements TxRunner.
func (s *Store) WithinTx(ctx context.Context, fn func(r Repos) error) error {
	backoff := retry.WithMaxRetries(s.maxRetries, retry.WithJitterPercent(25, retry.NewExponential(s.baseDelay)))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
			return fn(NewRepos(tx))
		})
		err = classify(err)
		if errors.Is(err, domain.ErrConflictRetry) {
			return retry.RetryableError(err)
		}
		return err
	})
	if errors.Is(err, domain.ErrConflictRetry) {
		return fmt.Errorf("repo.Store.WithinTx: %w: %w", domain.ErrServerBusy, err)
	}
	return err
}

// classify tags transient Postgres races with domain.ErrConflictRetry.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected:
			return fmt.Errorf("%w: sqlstate %s", domain.ErrConflictRetry, pgErr.Code)
		}
	}
	return err
}
