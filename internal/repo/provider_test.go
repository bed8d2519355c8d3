package repo_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripbazaar/backend/internal/domain"
)

func TestActorRepo_CreateAndGet(t *testing.T) {
	r := newTestRepos(t)
	ctx := context.Background()

	created := createActor(t, r, domain.RoleAdmin)

	got, err := r.Actors.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, got.Role)
	assert.Equal(t, "admin fixture", got.DisplayName)
	assert.Equal(t, domain.Actor{ID: created.ID, Role: domain.RoleAdmin}, got.Identity())

	_, err = r.Actors.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProviderRepo_CreateAndLookup(t *testing.T) {
	r := newTestRepos(t)
	ctx := context.Background()
	owner := createActor(t, r, domain.RoleProvider)

	profile, err := r.Providers.Create(ctx, owner.ID)
	require.NoError(t, err)
	assert.False(t, profile.Verified, "profiles start unverified")

	byOwner, err := r.Providers.GetByOwner(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, profile.ID, byOwner.ID)

	_, err = r.Providers.GetByOwner(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProviderRepo_CompareAndSetVerified(t *testing.T) {
	r := newTestRepos(t)
	ctx := context.Background()
	profile, err := r.Providers.Create(ctx, createActor(t, r, domain.RoleProvider).ID)
	require.NoError(t, err)

	ok, err := r.Providers.CompareAndSetVerified(ctx, profile.ID, false, true)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Providers.CompareAndSetVerified(ctx, profile.ID, false, true)
	require.NoError(t, err)
	assert.False(t, ok, "stale expectation loses")

	got, err := r.Providers.GetByID(ctx, profile.ID)
	require.NoError(t, err)
	assert.True(t, got.Verified)

	_, err = r.Providers.CompareAndSetVerified(ctx, uuid.New(), false, true)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDecisionRepo_RecordAndList(t *testing.T) {
	r := newTestRepos(t)
	ctx := context.Background()
	admin := createActor(t, r, domain.RoleAdmin)
	subject := uuid.New()

	for _, d := range []domain.ModerationDecision{
		{Action: "approve", FromState: "pending", ToState: "active"},
		{Action: "pause", FromState: "active", ToState: "paused", Reason: "maintenance"},
	} {
		d.SubjectType = domain.SubjectListing
		d.SubjectID = subject
		d.ActorID = admin.ID
		recorded, err := r.Decisions.Record(ctx, d)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, recorded.ID)
	}

	got, err := r.Decisions.ListBySubject(ctx, domain.SubjectListing, subject)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.ElementsMatch(t, []string{"approve", "pause"}, []string{got[0].Action, got[1].Action})

	none, err := r.Decisions.ListBySubject(ctx, domain.SubjectProvider, subject)
	require.NoError(t, err)
	assert.Empty(t, none)
}
