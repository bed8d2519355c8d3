package handler

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/tripbazaar/backend/internal/domain"
)

type checkoutRequest struct {
	LineIDs       []uuid.UUID         `json:"lineIds" validate:"required,min=1"`
	RequestedDate *openapi_types.Date `json:"requestedDate,omitempty"`
}

type respondRequest struct {
	Decision string `json:"decision" validate:"required,oneof=confirm reject"`
	Note     string `json:"note,omitempty"`
}

type bookingResponse struct {
	ID                   uuid.UUID          `json:"id"`
	TravelerID           uuid.UUID          `json:"travelerId"`
	ListingID            uuid.UUID          `json:"listingId"`
	ProviderID           uuid.UUID          `json:"providerId"`
	Status               string             `json:"status"`
	RequestedDate        openapi_types.Date `json:"requestedDate"`
	Quantity             int                `json:"quantity"`
	TotalPrice           string             `json:"totalPrice"`
	Currency             string             `json:"currency"`
	ListingTitleSnapshot string             `json:"listingTitleSnapshot"`
	ProviderNote         *string            `json:"providerNote,omitempty"`
	CreatedAt            time.Time          `json:"createdAt"`
	StatusChangedAt      time.Time          `json:"statusChangedAt"`
}

// bookingCSVHeaders is the first row of a CSV booking listing.
var bookingCSVHeaders = []string{
	"booking_id", "status", "listing_id", "listing_title", "requested_date",
	"quantity", "total_price", "currency", "traveler_id", "provider_id", "created_at",
}

// Checkout handles POST /bookings/checkout.
func (s *Server) Checkout(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFrom(w, r)
	if !ok {
		return
	}
	var body checkoutRequest
	if !s.decodeBody(w, r, &body) {
		return
	}
	var date *time.Time
	if body.RequestedDate != nil {
		date = &body.RequestedDate.Time
	}
	created, err := s.bookings.Checkout(r.Context(), actor, body.LineIDs, date)
	if err != nil {
		s.WriteError(w, r, err)
		return
	}
	out := make([]bookingResponse, 0, len(created))
	for _, b := range created {
		out = append(out, bookingToResponse(b))
	}
	writeData(w, http.StatusCreated, out)
}

// ListBookings handles GET /bookings.
// Travelers see their own bookings, providers the bookings of their listings,
// admins everything. Use ?format=csv to receive the page as CSV.
func (s *Server) ListBookings(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFrom(w, r)
	if !ok {
		return
	}
	p, ok := pagination(w, r)
	if !ok {
		return
	}
	var format *string
	if err := runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &format); err != nil {
		requestError(w, "invalid format")
		return
	}
	page, err := s.bookings.List(r.Context(), actor, p)
	if err != nil {
		s.WriteError(w, r, err)
		return
	}
	if format != nil && *format == "csv" {
		writeBookingsCSV(w, page.Items)
		return
	}
	writeData(w, http.StatusOK, toPageResponse(page, bookingToResponse))
}

// GetBooking handles GET /bookings/{id}.
func (s *Server) GetBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	b, err := s.bookings.Get(r.Context(), actor, id)
	if err != nil {
		s.WriteError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, bookingToResponse(b))
}

// RespondToBooking handles POST /bookings/{id}/respond.
func (s *Server) RespondToBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var body respondRequest
	if !s.decodeBody(w, r, &body) {
		return
	}
	b, err := s.bookings.Respond(r.Context(), actor, id, domain.Decision(body.Decision), body.Note)
	if err != nil {
		s.WriteError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, bookingToResponse(b))
}

// CompleteBooking handles POST /bookings/{id}/complete.
func (s *Server) CompleteBooking(w http.ResponseWriter, r *http.Request) {
	s.bookingAction(w, r, s.bookings.Complete)
}

// WithdrawBooking handles POST /bookings/{id}/withdraw.
func (s *Server) WithdrawBooking(w http.ResponseWriter, r *http.Request) {
	s.bookingAction(w, r, s.bookings.Withdraw)
}

type bookingActionFunc func(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Booking, error)

func (s *Server) bookingAction(w http.ResponseWriter, r *http.Request, act bookingActionFunc) {
	actor, ok := s.actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	b, err := act(r.Context(), actor, id)
	if err != nil {
		s.WriteError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, bookingToResponse(b))
}

// --- mapping helpers --------------------------------------------------------

func bookingToResponse(b domain.Booking) bookingResponse {
	resp := bookingResponse{
		ID:                   b.ID,
		TravelerID:           b.TravelerID,
		ListingID:            b.ListingID,
		ProviderID:           b.ProviderID,
		Status:               string(b.Status),
		RequestedDate:        openapi_types.Date{Time: b.RequestedDate},
		Quantity:             b.Quantity,
		TotalPrice:           b.TotalPrice.StringFixed(2),
		Currency:             b.Currency,
		ListingTitleSnapshot: b.ListingTitleSnapshot,
		CreatedAt:            b.CreatedAt,
		StatusChangedAt:      b.StatusChangedAt,
	}
	if b.ProviderNote != "" {
		resp.ProviderNote = &b.ProviderNote
	}
	return resp
}

// writeBookingsCSV encodes bookings as CSV with a header row.
func writeBookingsCSV(w http.ResponseWriter, bookings []domain.Booking) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	//nolint:errcheck // bytes.Buffer.Write never returns an error.
	cw.Write(bookingCSVHeaders)
	for _, b := range bookings {
		//nolint:errcheck // bytes.Buffer.Write never returns an error.
		cw.Write([]string{
			b.ID.String(),
			string(b.Status),
			b.ListingID.String(),
			b.ListingTitleSnapshot,
			b.RequestedDate.Format(time.DateOnly),
			strconv.Itoa(b.Quantity),
			b.TotalPrice.StringFixed(2),
			b.Currency,
			b.TravelerID.String(),
			b.ProviderID.String(),
			b.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	cw.Flush()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="bookings.csv"`)
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // the status line is already sent.
	w.Write(buf.Bytes())
}
