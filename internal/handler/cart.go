package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tripbazaar/backend/internal/domain"
)

type addToCartRequest struct {
	ListingID uuid.UUID `json:"listingId" validate:"required"`
	Quantity  int       `json:"quantity"`
}

type updateCartLineRequest struct {
	Quantity int `json:"quantity"`
}

type cartLineResponse struct {
	ID        uuid.UUID `json:"id"`
	ListingID uuid.UUID `json:"listingId"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type cartItemResponse struct {
	cartLineResponse
	Title            string    `json:"title"`
	Category         string    `json:"category"`
	Location         string    `json:"location"`
	Price            string    `json:"price"`
	Currency         string    `json:"currency"`
	Subtotal         string    `json:"subtotal"`
	ProviderID       uuid.UUID `json:"providerId"`
	ProviderVerified bool      `json:"providerVerified"`
	ListingStatus    string    `json:"listingStatus"`
}

// ListCart handles GET /cart.
func (s *Server) ListCart(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFrom(w, r)
	if !ok {
		return
	}
	items, err := s.cart.List(r.Context(), actor)
	if err != nil {
		s.WriteError(w, r, err)
		return
	}
	out := make([]cartItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, cartItemResponse{
			cartLineResponse: lineToResponse(it.CartLine),
			Title:            it.Title,
			Category:         it.Category,
			Location:         it.Location,
			Price:            it.Price.StringFixed(2),
			Currency:         it.Currency,
			Subtotal:         it.Subtotal().StringFixed(2),
			ProviderID:       it.ProviderID,
			ProviderVerified: it.ProviderVerified,
			ListingStatus:    string(it.ListingStatus),
		})
	}
	writeData(w, http.StatusOK, out)
}

// AddToCart handles POST /cart/add.
// Quantity bounds are left to the service so the response carries the
// invalid_quantity or quantity_limit_exceeded code.
func (s *Server) AddToCart(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFrom(w, r)
	if !ok {
		return
	}
	var body addToCartRequest
	if !s.decodeBody(w, r, &body) {
		return
	}
	line, err := s.cart.AddOrIncrement(r.Context(), actor, body.ListingID, body.Quantity)
	if err != nil {
		s.WriteError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, lineToResponse(line))
}

// UpdateCartLine handles PUT /cart/{lineId}.
func (s *Server) UpdateCartLine(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFrom(w, r)
	if !ok {
		return
	}
	lineID, ok := pathUUID(w, r, "lineId")
	if !ok {
		return
	}
	var body updateCartLineRequest
	if !s.decodeBody(w, r, &body) {
		return
	}
	line, err := s.cart.UpdateQuantity(r.Context(), actor, lineID, body.Quantity)
	if err != nil {
		s.WriteError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, lineToResponse(line))
}

// RemoveCartLine handles DELETE /cart/{lineId}.
func (s *Server) RemoveCartLine(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFrom(w, r)
	if !ok {
		return
	}
	lineID, ok := pathUUID(w, r, "lineId")
	if !ok {
		return
	}
	if err := s.cart.Remove(r.Context(), actor, lineID); err != nil {
		s.WriteError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]uuid.UUID{"removed": lineID})
}

// ClearCart handles DELETE /cart.
func (s *Server) ClearCart(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFrom(w, r)
	if !ok {
		return
	}
	if err := s.cart.Clear(r.Context(), actor); err != nil {
		s.WriteError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]bool{"cleared": true})
}

func lineToResponse(l domain.CartLine) cartLineResponse {
	return cartLineResponse{
		ID:        l.ID,
		ListingID: l.ListingID,
		Quantity:  l.Quantity,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}
