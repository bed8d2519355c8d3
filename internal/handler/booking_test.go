package handler_test

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripbazaar/backend/internal/domain"
	"github.com/tripbazaar/backend/internal/handler"
)

func bookingHandler(m *mockBookings, actor *domain.Actor) http.Handler {
	return newHTTPHandler(handler.Services{Bookings: m}, actor)
}

func bookingFixture(status domain.BookingStatus) domain.Booking {
	return domain.Booking{
		ID:                   uuid.New(),
		TravelerID:           uuid.New(),
		ListingID:            uuid.New(),
		ProviderID:           uuid.New(),
		Status:               status,
		RequestedDate:        time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC),
		Quantity:             2,
		TotalPrice:           decimal.NewFromInt(200000),
		Currency:             "IDR",
		ListingTitleSnapshot: "Sunrise trek",
		CreatedAt:            time.Now().UTC(),
		StatusChangedAt:      time.Now().UTC(),
	}
}

// ---- POST /bookings/checkout -----------------------------------------------

func TestCheckout_201(t *testing.T) {
	lines := []uuid.UUID{uuid.New(), uuid.New()}
	var gotLines []uuid.UUID
	var gotDate *time.Time
	m := &mockBookings{checkout: func(_ context.Context, _ domain.Actor, ids []uuid.UUID, d *time.Time) ([]domain.Booking, error) {
		gotLines, gotDate = ids, d
		return []domain.Booking{bookingFixture(domain.BookingPending), bookingFixture(domain.BookingPending)}, nil
	}}

	rec, resp := do(t, bookingHandler(m, actorWithRole(domain.RoleTraveler)), http.MethodPost, "/bookings/checkout",
		jsonBody(t, map[string]any{"lineIds": lines, "requestedDate": "2026-11-02"}))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, lines, gotLines)
	require.NotNil(t, gotDate)
	assert.Equal(t, "2026-11-02", gotDate.Format(time.DateOnly))

	var created []struct {
		Status        string `json:"status"`
		TotalPrice    string `json:"totalPrice"`
		RequestedDate string `json:"requestedDate"`
	}
	resp.data(t, &created)
	require.Len(t, created, 2)
	assert.Equal(t, "pending", created[0].Status)
	assert.Equal(t, "200000.00", created[0].TotalPrice)
	assert.Equal(t, "2026-11-02", created[0].RequestedDate)
}

func TestCheckout_DateIsOptional(t *testing.T) {
	called := false
	m := &mockBookings{checkout: func(_ context.Context, _ domain.Actor, _ []uuid.UUID, d *time.Time) ([]domain.Booking, error) {
		called = true
		assert.Nil(t, d)
		return nil, nil
	}}

	rec, _ := do(t, bookingHandler(m, actorWithRole(domain.RoleTraveler)), http.MethodPost, "/bookings/checkout",
		jsonBody(t, map[string]any{"lineIds": []uuid.UUID{uuid.New()}}))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, called)
}

func TestCheckout_422_EmptyLines(t *testing.T) {
	m := &mockBookings{}

	rec, resp := do(t, bookingHandler(m, actorWithRole(domain.RoleTraveler)), http.MethodPost, "/bookings/checkout",
		jsonBody(t, map[string]any{"lineIds": []uuid.UUID{}}))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "lineIds")
}

func TestCheckout_409_ListingUnavailable(t *testing.T) {
	listingID := uuid.New()
	m := &mockBookings{checkout: func(context.Context, domain.Actor, []uuid.UUID, *time.Time) ([]domain.Booking, error) {
		return nil, fmt.Errorf("service.BookingService.Checkout: %w",
			&domain.ListingUnavailableError{ListingID: listingID, Status: domain.ListingPaused})
	}}

	rec, resp := do(t, bookingHandler(m, actorWithRole(domain.RoleTraveler)), http.MethodPost, "/bookings/checkout",
		jsonBody(t, map[string]any{"lineIds": []uuid.UUID{uuid.New()}}))

	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "listing_unavailable", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, listingID.String())
}

// ---- POST /bookings/{id}/respond -------------------------------------------

func TestRespond_200(t *testing.T) {
	b := bookingFixture(domain.BookingConfirmed)
	note := "See you at the harbour"
	b.ProviderNote = note
	var gotDecision domain.Decision
	var gotNote string
	m := &mockBookings{respond: func(_ context.Context, _ domain.Actor, id uuid.UUID, d domain.Decision, n string) (domain.Booking, error) {
		gotDecision, gotNote = d, n
		return b, nil
	}}

	rec, resp := do(t, bookingHandler(m, actorWithRole(domain.RoleProvider)), http.MethodPost,
		"/bookings/"+b.ID.String()+"/respond", jsonBody(t, map[string]any{"decision": "confirm", "note": note}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.DecisionConfirm, gotDecision)
	assert.Equal(t, note, gotNote)
	var got struct {
		Status       string `json:"status"`
		ProviderNote string `json:"providerNote"`
	}
	resp.data(t, &got)
	assert.Equal(t, "confirmed", got.Status)
	assert.Equal(t, note, got.ProviderNote)
}

func TestRespond_422_UnknownDecision(t *testing.T) {
	rec, resp := do(t, bookingHandler(&mockBookings{}, actorWithRole(domain.RoleProvider)), http.MethodPost,
		"/bookings/"+uuid.NewString()+"/respond", jsonBody(t, map[string]any{"decision": "maybe"}))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "decision must be one of")
}

func TestRespond_409_AlreadyDecided(t *testing.T) {
	m := &mockBookings{respond: func(context.Context, domain.Actor, uuid.UUID, domain.Decision, string) (domain.Booking, error) {
		return domain.Booking{}, fmt.Errorf("service.BookingService.Respond: %w: booking is cancelled", domain.ErrInvalidTransition)
	}}

	rec, resp := do(t, bookingHandler(m, actorWithRole(domain.RoleProvider)), http.MethodPost,
		"/bookings/"+uuid.NewString()+"/respond", jsonBody(t, map[string]any{"decision": "reject"}))

	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "invalid_transition", resp.Error.Code)
	assert.Equal(t, "invalid transition: booking is cancelled", resp.Error.Message)
}

// ---- complete / withdraw / get ---------------------------------------------

func TestBookingActions(t *testing.T) {
	id := uuid.New()
	m := &mockBookings{
		complete: func(_ context.Context, a domain.Actor, got uuid.UUID) (domain.Booking, error) {
			if !a.IsAdmin() {
				return domain.Booking{}, domain.ErrForbidden
			}
			b := bookingFixture(domain.BookingCompleted)
			b.ID = got
			return b, nil
		},
		withdraw: func(_ context.Context, _ domain.Actor, got uuid.UUID) (domain.Booking, error) {
			b := bookingFixture(domain.BookingCancelled)
			b.ID = got
			return b, nil
		},
	}

	rec, resp := do(t, bookingHandler(m, actorWithRole(domain.RoleAdmin)), http.MethodPost, "/bookings/"+id.String()+"/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		ID     uuid.UUID `json:"id"`
		Status string    `json:"status"`
	}
	resp.data(t, &got)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "completed", got.Status)

	rec, _ = do(t, bookingHandler(m, actorWithRole(domain.RoleTraveler)), http.MethodPost, "/bookings/"+id.String()+"/complete", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, resp = do(t, bookingHandler(m, actorWithRole(domain.RoleTraveler)), http.MethodPost, "/bookings/"+id.String()+"/withdraw", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp.data(t, &got)
	assert.Equal(t, "cancelled", got.Status)
}

func TestGetBooking_404(t *testing.T) {
	m := &mockBookings{get: func(context.Context, domain.Actor, uuid.UUID) (domain.Booking, error) {
		return domain.Booking{}, fmt.Errorf("service.BookingService.Get: %w", domain.ErrNotFound)
	}}

	rec, resp := do(t, bookingHandler(m, actorWithRole(domain.RoleTraveler)), http.MethodGet, "/bookings/"+uuid.NewString(), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "not found", resp.Error.Message)
}

// ---- GET /bookings ---------------------------------------------------------

func TestListBookings_Pagination(t *testing.T) {
	var gotParams domain.PaginationParams
	m := &mockBookings{list: func(_ context.Context, _ domain.Actor, p domain.PaginationParams) (domain.Page[domain.Booking], error) {
		gotParams = p
		return domain.Page[domain.Booking]{Items: []domain.Booking{bookingFixture(domain.BookingPending)}, Total: 7, PaginationParams: p}, nil
	}}

	rec, resp := do(t, bookingHandler(m, actorWithRole(domain.RoleProvider)), http.MethodGet, "/bookings?page=2&limit=5", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.PaginationParams{Page: 2, Limit: 5}, gotParams)
	var page struct {
		Items []map[string]any `json:"items"`
		Total int64            `json:"total"`
		Page  int              `json:"page"`
		Limit int              `json:"limit"`
	}
	resp.data(t, &page)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, int64(7), page.Total)
	assert.Equal(t, 2, page.Page)
}

func TestListBookings_422_BadPage(t *testing.T) {
	rec, _ := do(t, bookingHandler(&mockBookings{}, actorWithRole(domain.RoleProvider)), http.MethodGet, "/bookings?page=two", nil)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestListBookings_CSV(t *testing.T) {
	b := bookingFixture(domain.BookingConfirmed)
	m := &mockBookings{list: func(_ context.Context, _ domain.Actor, p domain.PaginationParams) (domain.Page[domain.Booking], error) {
		return domain.Page[domain.Booking]{Items: []domain.Booking{b}, Total: 1, PaginationParams: p}, nil
	}}

	rec, _ := do(t, bookingHandler(m, actorWithRole(domain.RoleAdmin)), http.MethodGet, "/bookings?format=csv", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	records, err := csv.NewReader(strings.NewReader(rec.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "booking_id", records[0][0])
	assert.Equal(t, b.ID.String(), records[1][0])
	assert.Equal(t, "confirmed", records[1][1])
	assert.Equal(t, "2026-11-02", records[1][4])
	assert.Equal(t, "200000.00", records[1][6])
}
