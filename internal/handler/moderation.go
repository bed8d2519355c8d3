package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/tripbazaar/backend/internal/domain"
	"github.com/tripbazaar/backend/internal/service"
)

type rejectRequest struct {
	Reason string `json:"reason"`
}

// moderationResponse reports the outcome of a moderation event. Changed is
// false when the subject was already in the target state.
type moderationResponse struct {
	ID      uuid.UUID `json:"id"`
	From    string    `json:"from"`
	To      string    `json:"to"`
	Changed bool      `json:"changed"`
}

type listingActionFunc func(ctx context.Context, actor domain.Actor, id uuid.UUID) (service.ListingOutcome, error)

// ApproveListing handles POST /moderation/listings/{id}/approve.
func (s *Server) ApproveListing(w http.ResponseWriter, r *http.Request) {
	s.listingAction(w, r, s.moderation.Approve)
}

// PauseListing handles POST /moderation/listings/{id}/pause.
func (s *Server) PauseListing(w http.ResponseWriter, r *http.Request) {
	s.listingAction(w, r, s.moderation.Pause)
}

// ResumeListing handles POST /moderation/listings/{id}/resume.
func (s *Server) ResumeListing(w http.ResponseWriter, r *http.Request) {
	s.listingAction(w, r, s.moderation.Resume)
}

// RejectListing handles POST /moderation/listings/{id}/reject.
// The body and its reason are optional.
func (s *Server) RejectListing(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var body rejectRequest
	if !s.decodeOptionalBody(w, r, &body) {
		return
	}
	out, err := s.moderation.Reject(r.Context(), actor, id, body.Reason)
	if err != nil {
		s.WriteError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, listingOutcomeToResponse(out))
}

func (s *Server) listingAction(w http.ResponseWriter, r *http.Request, act listingActionFunc) {
	actor, ok := s.actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	out, err := act(r.Context(), actor, id)
	if err != nil {
		s.WriteError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, listingOutcomeToResponse(out))
}

func listingOutcomeToResponse(out service.ListingOutcome) moderationResponse {
	return moderationResponse{ID: out.SubjectID, From: string(out.From), To: string(out.To), Changed: out.Changed}
}

// VerifyProvider handles POST /moderation/providers/{id}/verify.
func (s *Server) VerifyProvider(w http.ResponseWriter, r *http.Request) {
	s.providerAction(w, r, s.moderation.Verify)
}

// RevokeProvider handles POST /moderation/providers/{id}/revoke.
func (s *Server) RevokeProvider(w http.ResponseWriter, r *http.Request) {
	s.providerAction(w, r, s.moderation.Revoke)
}

func (s *Server) providerAction(w http.ResponseWriter, r *http.Request,
	act func(ctx context.Context, actor domain.Actor, id uuid.UUID) (service.ProviderOutcome, error),
) {
	actor, ok := s.actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	out, err := act(r.Context(), actor, id)
	if err != nil {
		s.WriteError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, moderationResponse{
		ID: out.SubjectID, From: verifiedLabel(out.From), To: verifiedLabel(out.To), Changed: out.Changed,
	})
}

func verifiedLabel(v bool) string {
	if v {
		return "verified"
	}
	return "unverified"
}
