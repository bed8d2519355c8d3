package domain

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// Action names an operation subject to the authorization policy.
type Action string

const (
	ActionCartRead        Action = "cart.read"
	ActionCartMutate      Action = "cart.mutate"
	ActionCheckout        Action = "booking.checkout"
	ActionBookingRead     Action = "booking.read"
	ActionBookingRespond  Action = "booking.respond"
	ActionBookingWithdraw Action = "booking.withdraw"
	ActionBookingComplete Action = "booking.complete"
	ActionListingCreate   Action = "listing.create"
	ActionListingEdit     Action = "listing.edit"
	ActionListingPause    Action = "listing.pause"
	ActionModerate        Action = "moderation.decide"
)

// rule describes who may perform an action.
// owned means the actor must also own the resource; admins always bypass it.
type rule struct {
	roles []Role
	owned bool
}

var policy = map[Action]rule{
	ActionCartRead:        {roles: []Role{RoleTraveler, RoleAdmin}, owned: true},
	ActionCartMutate:      {roles: []Role{RoleTraveler, RoleAdmin}, owned: true},
	ActionCheckout:        {roles: []Role{RoleTraveler}, owned: true},
	ActionBookingRead:     {roles: []Role{RoleTraveler, RoleProvider, RoleAdmin}, owned: true},
	ActionBookingRespond:  {roles: []Role{RoleProvider, RoleAdmin}, owned: true},
	ActionBookingWithdraw: {roles: []Role{RoleTraveler, RoleAdmin}, owned: true},
	ActionBookingComplete: {roles: []Role{RoleAdmin}},
	ActionListingCreate:   {roles: []Role{RoleProvider}},
	ActionListingEdit:     {roles: []Role{RoleProvider, RoleAdmin}, owned: true},
	ActionListingPause:    {roles: []Role{RoleProvider, RoleAdmin}, owned: true},
	ActionModerate:        {roles: []Role{RoleAdmin}},
}

// CanAct is the single authorization policy shared by cart, booking,
// catalog, and moderation. ownerID is the resource owner relevant to the
// action (uuid.Nil when the action is not ownership-scoped).
//
// Admins bypass ownership on every action their role is allowed.
func CanAct(actor Actor, ownerID uuid.UUID, action Action) error {
	r, ok := policy[action]
	if !ok {
		return fmt.Errorf("%w: unknown action %q", ErrForbidden, action)
	}
	if err := Permit(actor, ownerID, r.roles, r.owned); err != nil {
		return fmt.Errorf("%w (%s)", err, action)
	}
	return nil
}

// Permit is the check behind CanAct, exposed for callers that gate on an
// ad-hoc role set rather than a named action.
func Permit(actor Actor, ownerID uuid.UUID, roles []Role, owned bool) error {
	if !slices.Contains(roles, actor.Role) {
		return fmt.Errorf("%w: role %q not permitted", ErrForbidden, actor.Role)
	}
	if owned && !actor.IsAdmin() && actor.ID != ownerID {
		return fmt.Errorf("%w: not the owner", ErrForbidden)
	}
	return nil
}

// AllRoles lists every role, in privilege order.
var AllRoles = []Role{RoleTraveler, RoleProvider, RoleAdmin}

// CanActAny passes when the actor may act as any one of the given owners.
// Bookings have two owners: the traveler (read, withdraw) and the provider
// (read, respond).
func CanActAny(actor Actor, action Action, ownerIDs ...uuid.UUID) error {
	var err error
	for _, id := range ownerIDs {
		if err = CanAct(actor, id, action); err == nil {
			return nil
		}
	}
	if err == nil {
		err = CanAct(actor, uuid.Nil, action)
	}
	return err
}
