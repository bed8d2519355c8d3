package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tripbazaar/backend/internal/domain"
)

// listingRequest is the body of POST /listings and PUT /listings/{id}.
// The price scale rule lives in the catalog service.
type listingRequest struct {
	Title       string          `json:"title"       validate:"notblank"`
	Description string          `json:"description"`
	Category    string          `json:"category"    validate:"notblank"`
	Location    string          `json:"location"    validate:"notblank"`
	Price       decimal.Decimal `json:"price"       validate:"gte=0"`
	Currency    string          `json:"currency"    validate:"required,iso4217"`
}

type listingResponse struct {
	ID               uuid.UUID `json:"id"`
	OwnerProviderID  uuid.UUID `json:"ownerProviderId"`
	Status           string    `json:"status"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	Category         string    `json:"category"`
	Location         string    `json:"location"`
	Price            string    `json:"price"`
	Currency         string    `json:"currency"`
	ProviderVerified *bool     `json:"providerVerified,omitempty"`
	ProviderRating   *string   `json:"providerRating,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// ListListings handles GET /listings, the browse view of active listings.
func (s *Server) ListListings(w http.ResponseWriter, r *http.Request) {
	p, ok := pagination(w, r)
	if !ok {
		return
	}
	page, err := s.catalog.ListActive(r.Context(), p)
	if err != nil {
		s.WriteError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toPageResponse(page, listingViewToResponse))
}

// GetListing handles GET /listings/{id}.
func (s *Server) GetListing(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	v, err := s.catalog.Get(r.Context(), actor, id)
	if err != nil {
		s.WriteError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, listingViewToResponse(v))
}

// CreateListing handles POST /listings. New listings start pending approval.
func (s *Server) CreateListing(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFrom(w, r)
	if !ok {
		return
	}
	var body listingRequest
	if !s.decodeBody(w, r, &body) {
		return
	}
	l, err := s.catalog.Create(r.Context(), actor, requestToListing(uuid.Nil, body))
	if err != nil {
		s.WriteError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, listingToResponse(l))
}

// UpdateListing handles PUT /listings/{id}. Editing an approved listing sends
// it back to pending.
func (s *Server) UpdateListing(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var body listingRequest
	if !s.decodeBody(w, r, &body) {
		return
	}
	l, err := s.catalog.UpdateContent(r.Context(), actor, requestToListing(id, body))
	if err != nil {
		s.WriteError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, listingToResponse(l))
}

// --- mapping helpers --------------------------------------------------------

func requestToListing(id uuid.UUID, body listingRequest) domain.Listing {
	return domain.Listing{
		ID:          id,
		Title:       body.Title,
		Description: body.Description,
		Category:    body.Category,
		Location:    body.Location,
		Price:       body.Price,
		Currency:    body.Currency,
	}
}

func listingToResponse(l domain.Listing) listingResponse {
	return listingResponse{
		ID:              l.ID,
		OwnerProviderID: l.OwnerProviderID,
		Status:          string(l.Status),
		Title:           l.Title,
		Description:     l.Description,
		Category:        l.Category,
		Location:        l.Location,
		Price:           l.Price.StringFixed(2),
		Currency:        l.Currency,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
}

func listingViewToResponse(v domain.ListingView) listingResponse {
	resp := listingToResponse(v.Listing)
	rating := v.ProviderRating.StringFixed(2)
	resp.ProviderVerified = &v.ProviderVerified
	resp.ProviderRating = &rating
	return resp
}
