package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripbazaar/backend/internal/domain"
	"github.com/tripbazaar/backend/internal/handler"
	"github.com/tripbazaar/backend/internal/service"
)

func moderationHandler(m *mockModeration, actor *domain.Actor) http.Handler {
	return newHTTPHandler(handler.Services{Moderation: m}, actor)
}

type outcomeBody struct {
	ID      uuid.UUID `json:"id"`
	From    string    `json:"from"`
	To      string    `json:"to"`
	Changed bool      `json:"changed"`
}

func listingOutcome(id uuid.UUID, from, to domain.ListingStatus) service.ListingOutcome {
	return service.ListingOutcome{SubjectID: id, From: from, To: to, Changed: from != to}
}

func TestListingModerationRoutes(t *testing.T) {
	tests := []struct {
		action string
		from   domain.ListingStatus
		to     domain.ListingStatus
	}{
		{"approve", domain.ListingPending, domain.ListingActive},
		{"pause", domain.ListingActive, domain.ListingPaused},
		{"resume", domain.ListingPaused, domain.ListingActive},
	}
	for _, tc := range tests {
		t.Run(tc.action, func(t *testing.T) {
			id := uuid.New()
			op := func(_ context.Context, _ domain.Actor, got uuid.UUID) (service.ListingOutcome, error) {
				return listingOutcome(got, tc.from, tc.to), nil
			}
			m := &mockModeration{approve: op, pause: op, resume: op}

			rec, resp := do(t, moderationHandler(m, actorWithRole(domain.RoleAdmin)), http.MethodPost,
				"/moderation/listings/"+id.String()+"/"+tc.action, nil)

			require.Equal(t, http.StatusOK, rec.Code)
			var out outcomeBody
			resp.data(t, &out)
			assert.Equal(t, outcomeBody{ID: id, From: string(tc.from), To: string(tc.to), Changed: true}, out)
		})
	}
}

func TestApproveListing_Repeat_ReportsUnchanged(t *testing.T) {
	id := uuid.New()
	m := &mockModeration{approve: func(context.Context, domain.Actor, uuid.UUID) (service.ListingOutcome, error) {
		return listingOutcome(id, domain.ListingActive, domain.ListingActive), nil
	}}

	rec, resp := do(t, moderationHandler(m, actorWithRole(domain.RoleAdmin)), http.MethodPost,
		"/moderation/listings/"+id.String()+"/approve", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var out outcomeBody
	resp.data(t, &out)
	assert.False(t, out.Changed)
}

func TestApproveListing_403(t *testing.T) {
	m := &mockModeration{approve: func(context.Context, domain.Actor, uuid.UUID) (service.ListingOutcome, error) {
		return service.ListingOutcome{}, domain.ErrForbidden
	}}

	rec, resp := do(t, moderationHandler(m, actorWithRole(domain.RoleProvider)), http.MethodPost,
		"/moderation/listings/"+uuid.NewString()+"/approve", nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "forbidden", resp.Error.Code)
}

func TestRejectListing_PassesReason(t *testing.T) {
	id := uuid.New()
	var gotReason string
	m := &mockModeration{reject: func(_ context.Context, _ domain.Actor, _ uuid.UUID, reason string) (service.ListingOutcome, error) {
		gotReason = reason
		return listingOutcome(id, domain.ListingPending, domain.ListingRejected), nil
	}}

	rec, resp := do(t, moderationHandler(m, actorWithRole(domain.RoleAdmin)), http.MethodPost,
		"/moderation/listings/"+id.String()+"/reject", jsonBody(t, map[string]any{"reason": "misleading photos"}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "misleading photos", gotReason)
	var out outcomeBody
	resp.data(t, &out)
	assert.Equal(t, "rejected", out.To)
}

func TestRejectListing_BodyIsOptional(t *testing.T) {
	id := uuid.New()
	gotReason := "unset"
	m := &mockModeration{reject: func(_ context.Context, _ domain.Actor, _ uuid.UUID, reason string) (service.ListingOutcome, error) {
		gotReason = reason
		return listingOutcome(id, domain.ListingPending, domain.ListingRejected), nil
	}}

	rec, _ := do(t, moderationHandler(m, actorWithRole(domain.RoleAdmin)), http.MethodPost,
		"/moderation/listings/"+id.String()+"/reject", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, gotReason)
}

func TestRejectListing_NonAdminWithoutBodyIsForbidden(t *testing.T) {
	m := &mockModeration{reject: func(_ context.Context, _ domain.Actor, _ uuid.UUID, _ string) (service.ListingOutcome, error) {
		return service.ListingOutcome{}, domain.ErrForbidden
	}}

	rec, resp := do(t, moderationHandler(m, actorWithRole(domain.RoleTraveler)), http.MethodPost,
		"/moderation/listings/"+uuid.NewString()+"/reject", nil)

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "forbidden", resp.Error.Code)
}

func TestProviderVerificationRoutes(t *testing.T) {
	id := uuid.New()
	m := &mockModeration{
		verify: func(_ context.Context, _ domain.Actor, got uuid.UUID) (service.ProviderOutcome, error) {
			return service.ProviderOutcome{SubjectID: got, From: false, To: true, Changed: true}, nil
		},
		revoke: func(_ context.Context, _ domain.Actor, got uuid.UUID) (service.ProviderOutcome, error) {
			return service.ProviderOutcome{SubjectID: got, From: false, To: false}, nil
		},
	}
	h := moderationHandler(m, actorWithRole(domain.RoleAdmin))

	rec, resp := do(t, h, http.MethodPost, "/moderation/providers/"+id.String()+"/verify", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out outcomeBody
	resp.data(t, &out)
	assert.Equal(t, outcomeBody{ID: id, From: "unverified", To: "verified", Changed: true}, out)

	rec, resp = do(t, h, http.MethodPost, "/moderation/providers/"+id.String()+"/revoke", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp.data(t, &out)
	assert.Equal(t, outcomeBody{ID: id, From: "unverified", To: "unverified"}, out)
}
