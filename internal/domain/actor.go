// Package domain contains the core data types for the marketplace transactional
// core: actors, listings, provider profiles, cart lines, bookings, and the
// transition tables and authorization policy shared by every service.
// This package depends only on uuid and decimal and is imported by every other
// internal package (repo, service, handler).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the marketplace role an actor holds.
type Role string

const (
	RoleTraveler Role = "traveler"
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleTraveler, RoleProvider, RoleAdmin:
		return true
	}
	return false
}

// Actor is the authenticated caller of an operation.
// It is resolved per request from the bearer credential and the actors table;
// services never cache it between calls.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// ActorRecord is the persisted directory entry an Actor is resolved from.
type ActorRecord struct {
	ID          uuid.UUID
	Role        Role
	DisplayName string
	CreatedAt   time.Time
}

// Identity returns the request-scoped identity for this record.
func (r ActorRecord) Identity() Actor {
	return Actor{ID: r.ID, Role: r.Role}
}
