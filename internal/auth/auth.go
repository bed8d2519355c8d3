// Package auth turns a bearer credential into a domain.Actor and exposes the
// role and ownership gates every service calls before it mutates anything.
//
// Credentials are HS256 JWTs whose subject is the actor id. The role is never
// taken from the token: it is re-read from the actor directory on every
// request, so a role change or a deleted actor takes effect immediately.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tripbazaar/backend/internal/domain"
)

const issuer = "tripbazaar"

// ActorLookup is the read side of the actor directory. repo.ActorRepo satisfies it.
type ActorLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.ActorRecord, error)
}

// Resolver verifies credentials and resolves them to actors.
type Resolver struct {
	secret []byte
	actors ActorLookup
}

// NewResolver constructs a Resolver that verifies tokens signed with secret.
func NewResolver(secret []byte, actors ActorLookup) *Resolver {
	return &Resolver{secret: secret, actors: actors}
}

// Resolve returns the actor named by credential. Any failure (bad signature,
// expiry, malformed subject, unknown actor) is domain.ErrUnauthenticated.
func (r *Resolver) Resolve(ctx context.Context, credential string) (domain.Actor, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return domain.Actor{}, fmt.Errorf("auth.Resolve: %w: missing credential", domain.ErrUnauthenticated)
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(credential, &claims,
		func(*jwt.Token) (any, error) { return r.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("auth.Resolve: %w: %w", domain.ErrUnauthenticated, err)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("auth.Resolve: %w: subject %q", domain.ErrUnauthenticated, claims.Subject)
	}

	rec, err := r.actors.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Actor{}, fmt.Errorf("auth.Resolve: %w: unknown actor %s", domain.ErrUnauthenticated, id)
	}
	if err != nil {
		return domain.Actor{}, fmt.Errorf("auth.Resolve: %w", err)
	}
	return rec.Identity(), nil
}

// Issuer mints credentials for actors.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer constructs an Issuer whose tokens expire after ttl.
func NewIssuer(secret []byte, ttl time.Duration) *Issuer {
	return &Issuer{secret: secret, ttl: ttl, now: time.Now}
}

// Issue returns a signed token for actorID and its expiry.
func (i *Issuer) Issue(actorID uuid.UUID) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   actorID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth.Issue: %w", err)
	}
	return signed, exp, nil
}

// RequireRole fails with domain.ErrForbidden unless the actor holds one of roles.
func RequireRole(actor domain.Actor, roles ...domain.Role) error {
	return domain.Permit(actor, uuid.Nil, roles, false)
}

// RequireOwnership fails with domain.ErrForbidden unless the actor is ownerID
// or an admin.
func RequireOwnership(actor domain.Actor, ownerID uuid.UUID) error {
	return domain.Permit(actor, ownerID, domain.AllRoles, true)
}
