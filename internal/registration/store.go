// Package registration keeps the short-lived state of a sign-up that has been
// started but not yet completed with a role choice. Records live in Redis with
// a TTL; reads also check ExpiresAt so a record is never used past its
// deadline even if the key outlives it.
package registration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tripbazaar/backend/internal/domain"
)

const keyPrefix = "registration:"

// Pending is a sign-up awaiting its role choice.
type Pending struct {
	Token       string    `json:"token"`
	Subject     string    `json:"subject"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Store persists pending registrations in Redis.
type Store struct {
	rdb redis.Cmdable
	now func() time.Time
}

// NewStore constructs a Store over rdb (a *redis.Client in production).
func NewStore(rdb redis.Cmdable) *Store {
	return &Store{rdb: rdb, now: time.Now}
}

// Put saves p until p.ExpiresAt.
func (s *Store) Put(ctx context.Context, p Pending) error {
	ttl := p.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("registration.Store.Put: %w: already expired", domain.ErrValidation)
	}
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("registration.Store.Put: %w", err)
	}
	if err := s.rdb.Set(ctx, keyPrefix+p.Token, body, ttl).Err(); err != nil {
		return fmt.Errorf("registration.Store.Put: %w", err)
	}
	return nil
}

// Get returns the pending registration for token. A missing or expired
// record is domain.ErrNotFound; an expired one is deleted on the way out.
func (s *Store) Get(ctx context.Context, token string) (Pending, error) {
	body, err := s.rdb.Get(ctx, keyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return Pending{}, fmt.Errorf("registration.Store.Get: %w", domain.ErrNotFound)
	}
	if err != nil {
		return Pending{}, fmt.Errorf("registration.Store.Get: %w", err)
	}

	var p Pending
	if err := json.Unmarshal(body, &p); err != nil {
		return Pending{}, fmt.Errorf("registration.Store.Get: decode: %w", err)
	}
	if !s.now().Before(p.ExpiresAt) {
		if err := s.Clear(ctx, token); err != nil {
			return Pending{}, err
		}
		return Pending{}, fmt.Errorf("registration.Store.Get: %w: expired", domain.ErrNotFound)
	}
	return p, nil
}

// Clear deletes the record. Clearing a missing record succeeds.
func (s *Store) Clear(ctx context.Context, token string) error {
	if err := s.rdb.Del(ctx, keyPrefix+token).Err(); err != nil {
		return fmt.Errorf("registration.Store.Clear: %w", err)
	}
	return nil
}
