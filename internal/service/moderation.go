package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/tripbazaar/backend/internal/domain"
	"github.com/tripbazaar/backend/internal/events"
	"github.com/tripbazaar/backend/internal/moderation"
	"github.com/tripbazaar/backend/internal/repo"
)

// ListingOutcome and ProviderOutcome are the results of one moderation call.
type (
	ListingOutcome  = moderation.Outcome[domain.ListingStatus]
	ProviderOutcome = moderation.Outcome[bool]
)

// ModerationService runs the two moderation instances: listing approval and
// provider verification. Both are the same engine over different tables.
type ModerationService struct {
	listings  *moderation.Engine[domain.ListingStatus, domain.ListingEvent]
	providers *moderation.Engine[bool, domain.VerificationEvent]
	pub       events.Publisher
	logger    *slog.Logger
}

// NewModerationService constructs a ModerationService whose transitions run
// in transactions opened by tx.
func NewModerationService(tx repo.TxRunner, pub events.Publisher, logger *slog.Logger) *ModerationService {
	listingRun := func(ctx context.Context, fn func(moderation.Store[domain.ListingStatus]) error) error {
		return tx.WithinTx(ctx, func(r repo.Repos) error { return fn(listingStore{r}) })
	}
	providerRun := func(ctx context.Context, fn func(moderation.Store[bool]) error) error {
		return tx.WithinTx(ctx, func(r repo.Repos) error { return fn(providerStore{r}) })
	}
	return &ModerationService{
		listings: moderation.NewEngine(domain.SubjectListing, domain.ListingTransitions, listingRun, authorizeListing).
			WithGate(gateListing),
		providers: moderation.NewEngine(domain.SubjectProvider, domain.VerificationTransitions, providerRun, authorizeProvider).
			WithGate(gateProvider),
		pub:       pub,
		logger:    logger,
	}
}

// Approve activates a pending listing. Approving an active listing is a no-op.
func (s *ModerationService) Approve(ctx context.Context, actor domain.Actor, listingID uuid.UUID) (ListingOutcome, error) {
	return s.applyListing(ctx, "Approve", actor, listingID, domain.ListingApprove, "")
}

// Reject rejects a pending listing. reason is optional; it is kept in the
// decision log, empty when none was given.
func (s *ModerationService) Reject(ctx context.Context, actor domain.Actor, listingID uuid.UUID, reason string) (ListingOutcome, error) {
	return s.applyListing(ctx, "Reject", actor, listingID, domain.ListingReject, strings.TrimSpace(reason))
}

// Pause takes an active listing off sale. Allowed for the owning provider and admins.
func (s *ModerationService) Pause(ctx context.Context, actor domain.Actor, listingID uuid.UUID) (ListingOutcome, error) {
	return s.applyListing(ctx, "Pause", actor, listingID, domain.ListingPause, "")
}

// Resume puts a paused listing back on sale.
func (s *ModerationService) Resume(ctx context.Context, actor domain.Actor, listingID uuid.UUID) (ListingOutcome, error) {
	return s.applyListing(ctx, "Resume", actor, listingID, domain.ListingResume, "")
}

// ResetOnEdit moves an edited listing back to pending inside the caller's
// transaction. The caller publishes the reset event after its commit.
func (s *ModerationService) ResetOnEdit(ctx context.Context, r repo.Repos, actor domain.Actor, listingID uuid.UUID) (ListingOutcome, error) {
	out, err := s.listings.ApplyIn(ctx, listingStore{r}, moderation.Request[domain.ListingEvent]{
		Actor: actor, SubjectID: listingID, Event: domain.ListingEdit, Reason: "content edited",
	})
	if err != nil {
		return ListingOutcome{}, fmt.Errorf("service.ModerationService.ResetOnEdit: %w", err)
	}
	return out, nil
}

// Verify marks a provider profile verified.
func (s *ModerationService) Verify(ctx context.Context, actor domain.Actor, profileID uuid.UUID) (ProviderOutcome, error) {
	return s.applyProvider(ctx, "Verify", actor, profileID, domain.VerificationVerify)
}

// Revoke withdraws a provider's verification.
func (s *ModerationService) Revoke(ctx context.Context, actor domain.Actor, profileID uuid.UUID) (ProviderOutcome, error) {
	return s.applyProvider(ctx, "Revoke", actor, profileID, domain.VerificationRevoke)
}

func (s *ModerationService) applyListing(ctx context.Context, op string, actor domain.Actor, id uuid.UUID, ev domain.ListingEvent, reason string) (ListingOutcome, error) {
	out, err := s.listings.Apply(ctx, moderation.Request[domain.ListingEvent]{
		Actor: actor, SubjectID: id, Event: ev, Reason: reason,
	})
	if err != nil {
		return ListingOutcome{}, fmt.Errorf("service.ModerationService.%s: %w", op, err)
	}
	s.emitListing(ctx, actor, ev, out)
	return out, nil
}

func (s *ModerationService) applyProvider(ctx context.Context, op string, actor domain.Actor, id uuid.UUID, ev domain.VerificationEvent) (ProviderOutcome, error) {
	out, err := s.providers.Apply(ctx, moderation.Request[domain.VerificationEvent]{
		Actor: actor, SubjectID: id, Event: ev,
	})
	if err != nil {
		return ProviderOutcome{}, fmt.Errorf("service.ModerationService.%s: %w", op, err)
	}
	if out.Changed {
		typ := events.ProviderVerified
		if !out.To {
			typ = events.ProviderRevoked
		}
		s.logger.InfoContext(ctx, "provider verification changed",
			"profile_id", id, "actor_id", actor.ID, "from", out.From, "to", out.To)
		events.Emit(ctx, s.pub, s.logger,
			events.New(typ, id, actor.ID, strconv.FormatBool(out.From), strconv.FormatBool(out.To)))
	}
	return out, nil
}

// emitListing logs and publishes a committed listing transition.
// Idempotent repeats publish nothing.
func (s *ModerationService) emitListing(ctx context.Context, actor domain.Actor, ev domain.ListingEvent, out ListingOutcome) {
	if !out.Changed {
		return
	}
	s.logger.InfoContext(ctx, "listing status changed",
		"listing_id", out.SubjectID, "actor_id", actor.ID, "event", ev, "from", out.From, "to", out.To)
	events.Emit(ctx, s.pub, s.logger,
		events.New(listingEventType(ev), out.SubjectID, actor.ID, string(out.From), string(out.To)))
}

func listingEventType(ev domain.ListingEvent) string {
	switch ev {
	case domain.ListingApprove:
		return events.ListingApproved
	case domain.ListingReject:
		return events.ListingRejected
	case domain.ListingPause:
		return events.ListingPaused
	case domain.ListingResume:
		return events.ListingResumed
	}
	return events.ListingReset
}

// authorizeListing maps each listing event onto the shared policy.
func authorizeListing(actor domain.Actor, owner uuid.UUID, ev domain.ListingEvent) error {
	switch ev {
	case domain.ListingPause, domain.ListingResume:
		return domain.CanAct(actor, owner, domain.ActionListingPause)
	case domain.ListingEdit:
		return domain.CanAct(actor, owner, domain.ActionListingEdit)
	}
	return domain.CanAct(actor, uuid.Nil, domain.ActionModerate)
}

func authorizeProvider(actor domain.Actor, _ uuid.UUID, _ domain.VerificationEvent) error {
	return domain.CanAct(actor, uuid.Nil, domain.ActionModerate)
}

// gateListing rejects admin-only events before the listing is read.
// Ownership-scoped events (pause, resume, edit) are left to authorizeListing.
func gateListing(actor domain.Actor, ev domain.ListingEvent) error {
	switch ev {
	case domain.ListingApprove, domain.ListingReject:
		return domain.CanAct(actor, uuid.Nil, domain.ActionModerate)
	}
	return nil
}

func gateProvider(actor domain.Actor, ev domain.VerificationEvent) error {
	return authorizeProvider(actor, uuid.Nil, ev)
}

// listingStore adapts the listing and decision repos to moderation.Store.
type listingStore struct{ r repo.Repos }

func (s listingStore) Current(ctx context.Context, id uuid.UUID) (domain.ListingStatus, uuid.UUID, error) {
	l, err := s.r.Listings.GetByID(ctx, id)
	if err != nil {
		return "", uuid.Nil, err
	}
	return l.Status, l.OwnerProviderID, nil
}

func (s listingStore) CompareAndSwap(ctx context.Context, id uuid.UUID, from, to domain.ListingStatus) (bool, error) {
	return s.r.Listings.CompareAndSetStatus(ctx, id, from, to)
}

func (s listingStore) Record(ctx context.Context, d domain.ModerationDecision) error {
	_, err := s.r.Decisions.Record(ctx, d)
	return err
}

// providerStore adapts the provider and decision repos to moderation.Store.
type providerStore struct{ r repo.Repos }

func (s providerStore) Current(ctx context.Context, id uuid.UUID) (bool, uuid.UUID, error) {
	p, err := s.r.Providers.GetByID(ctx, id)
	if err != nil {
		return false, uuid.Nil, err
	}
	return p.Verified, p.OwnerActorID, nil
}

func (s providerStore) CompareAndSwap(ctx context.Context, id uuid.UUID, from, to bool) (bool, error) {
	return s.r.Providers.CompareAndSetVerified(ctx, id, from, to)
}

func (s providerStore) Record(ctx context.Context, d domain.ModerationDecision) error {
	_, err := s.r.Decisions.Record(ctx, d)
	return err
}
