package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tripbazaar/backend/internal/domain"
)

type startRegistrationRequest struct {
	Subject     string `json:"subject" validate:"required"`
	DisplayName string `json:"displayName,omitempty"`
}

type completeRegistrationRequest struct {
	Role string `json:"role" validate:"required,oneof=traveler provider"`
}

type pendingRegistrationResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type enrollmentResponse struct {
	ActorID     uuid.UUID  `json:"actorId"`
	Role        string     `json:"role"`
	DisplayName string     `json:"displayName"`
	ProfileID   *uuid.UUID `json:"providerProfileId,omitempty"`
	AccessToken string     `json:"accessToken"`
	ExpiresAt   time.Time  `json:"expiresAt"`
}

// StartRegistration handles POST /registrations.
func (s *Server) StartRegistration(w http.ResponseWriter, r *http.Request) {
	var body startRegistrationRequest
	if !s.decodeBody(w, r, &body) {
		return
	}
	p, err := s.registration.Start(r.Context(), body.Subject, body.DisplayName)
	if err != nil {
		s.WriteError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, pendingRegistrationResponse{Token: p.Token, ExpiresAt: p.ExpiresAt})
}

// CompleteRegistration handles POST /registrations/{token}/complete.
// It returns the new actor and a bearer token for it.
func (s *Server) CompleteRegistration(w http.ResponseWriter, r *http.Request) {
	var body completeRegistrationRequest
	if !s.decodeBody(w, r, &body) {
		return
	}
	e, err := s.registration.Complete(r.Context(), chi.URLParam(r, "token"), domain.Role(body.Role))
	if err != nil {
		s.WriteError(w, r, err)
		return
	}
	resp := enrollmentResponse{
		ActorID:     e.Actor.ID,
		Role:        string(e.Actor.Role),
		DisplayName: e.Actor.DisplayName,
		AccessToken: e.Token,
		ExpiresAt:   e.ExpiresAt,
	}
	if e.Profile != nil {
		resp.ProfileID = &e.Profile.ID
	}
	writeData(w, http.StatusCreated, resp)
}

// AbandonRegistration handles DELETE /registrations/{token}.
func (s *Server) AbandonRegistration(w http.ResponseWriter, r *http.Request) {
	if err := s.registration.Abandon(r.Context(), chi.URLParam(r, "token")); err != nil {
		s.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
