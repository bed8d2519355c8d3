package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tripbazaar/backend/internal/domain"
	"github.com/tripbazaar/backend/internal/repo"
	"github.com/tripbazaar/backend/testutil"
)

// newTestRepos opens a transaction against the test database and binds every
// repo to it. The transaction is rolled back when the test finishes, giving
// free per-test isolation.
//
// Requires TEST_DATABASE_URL; TestMain applies the migrations.
func newTestRepos(t *testing.T) repo.Repos {
	t.Helper()
	pool := testutil.NewPool(t)

	tx, err := pool.Begin(context.Background())
	require.NoError(t, err, "begin transaction")

	t.Cleanup(func() {
		// Rollback discards all changes made during the test; no cleanup SQL needed.
		_ = tx.Rollback(context.Background())
	})

	return repo.NewRepos(tx)
}

func createActor(t *testing.T, r repo.Repos, role domain.Role) domain.ActorRecord {
	t.Helper()
	a, err := r.Actors.Create(context.Background(), domain.ActorRecord{Role: role, DisplayName: string(role) + " fixture"})
	require.NoError(t, err, "create %s actor", role)
	return a
}

// listingFixture returns a domain.Listing with sensible defaults owned by owner.
// Callers can override individual fields after calling this function.
func listingFixture(owner domain.ActorRecord) domain.Listing {
	return domain.Listing{
		OwnerProviderID: owner.ID,
		Title:           "Sunrise kayak tour",
		Description:     "Two hours on the bay",
		Category:        "tour",
		Location:        "Lisbon",
		Price:           decimal.RequireFromString("45.50"),
		Currency:        "EUR",
	}
}

// createActiveListing inserts a listing and approves it.
func createActiveListing(t *testing.T, r repo.Repos, owner domain.ActorRecord) domain.Listing {
	t.Helper()
	ctx := context.Background()
	l, err := r.Listings.Create(ctx, listingFixture(owner))
	require.NoError(t, err, "create listing")

	ok, err := r.Listings.CompareAndSetStatus(ctx, l.ID, domain.ListingPending, domain.ListingActive)
	require.NoError(t, err, "activate listing")
	require.True(t, ok, "activate listing")
	l.Status = domain.ListingActive
	return l
}

func bookingFixture(traveler domain.ActorRecord, l domain.Listing, date time.Time) domain.Booking {
	return domain.Booking{
		TravelerID:           traveler.ID,
		ListingID:            l.ID,
		ProviderID:           l.OwnerProviderID,
		Status:               domain.BookingPending,
		RequestedDate:        date,
		Quantity:             2,
		TotalPrice:           l.Price.Mul(decimal.NewFromInt(2)),
		Currency:             l.Currency,
		ListingTitleSnapshot: l.Title,
	}
}
