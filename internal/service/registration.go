package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tripbazaar/backend/internal/domain"
	"github.com/tripbazaar/backend/internal/registration"
	"github.com/tripbazaar/backend/internal/repo"
)

// PendingStore holds registrations between start and completion.
// *registration.Store satisfies it.
type PendingStore interface {
	Put(ctx context.Context, p registration.Pending) error
	Get(ctx context.Context, token string) (registration.Pending, error)
	Clear(ctx context.Context, token string) error
}

// TokenIssuer mints bearer credentials. *auth.Issuer satisfies it.
type TokenIssuer interface {
	Issue(actorID uuid.UUID) (string, time.Time, error)
}

// Enrollment is the result of a completed registration.
type Enrollment struct {
	Actor     domain.ActorRecord
	Profile   *domain.ProviderProfile
	Token     string
	ExpiresAt time.Time
}

// RegistrationService enrolls new travelers and providers in two steps:
// Start records who is signing up, Complete fixes the role and creates the actor.
type RegistrationService struct {
	pending PendingStore
	tx      repo.TxRunner
	issuer  TokenIssuer
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewRegistrationService constructs a RegistrationService whose pending
// records expire after ttl.
func NewRegistrationService(pending PendingStore, tx repo.TxRunner, issuer TokenIssuer, ttl time.Duration, logger *slog.Logger) *RegistrationService {
	return &RegistrationService{pending: pending, tx: tx, issuer: issuer, ttl: ttl, logger: logger, now: time.Now}
}

// Start records a pending registration and returns it with its token.
func (s *RegistrationService) Start(ctx context.Context, subject, displayName string) (registration.Pending, error) {
	subject = strings.TrimSpace(subject)
	displayName = strings.TrimSpace(displayName)
	if subject == "" {
		return registration.Pending{}, fmt.Errorf("service.RegistrationService.Start: %w: subject is required", domain.ErrValidation)
	}
	if displayName == "" {
		displayName = subject
	}

	now := s.now().UTC()
	p := registration.Pending{
		Token:       uuid.NewString(),
		Subject:     subject,
		DisplayName: displayName,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}
	if err := s.pending.Put(ctx, p); err != nil {
		return registration.Pending{}, fmt.Errorf("service.RegistrationService.Start: %w", err)
	}
	return p, nil
}

// Complete turns a pending registration into an actor with the chosen role.
// Only traveler and provider can be chosen; admins are provisioned out of band.
// Providers also get an unverified profile.
func (s *RegistrationService) Complete(ctx context.Context, token string, role domain.Role) (Enrollment, error) {
	if role != domain.RoleTraveler && role != domain.RoleProvider {
		return Enrollment{}, fmt.Errorf("service.RegistrationService.Complete: %w: role must be traveler or provider", domain.ErrValidation)
	}
	p, err := s.pending.Get(ctx, token)
	if err != nil {
		return Enrollment{}, fmt.Errorf("service.RegistrationService.Complete: %w", err)
	}

	var out Enrollment
	err = s.tx.WithinTx(ctx, func(r repo.Repos) error {
		a, err := r.Actors.Create(ctx, domain.ActorRecord{Role: role, DisplayName: p.DisplayName})
		if err != nil {
			return err
		}
		out = Enrollment{Actor: a}
		if role == domain.RoleProvider {
			prof, err := r.Providers.Create(ctx, a.ID)
			if err != nil {
				return err
			}
			out.Profile = &prof
		}
		return nil
	})
	if err != nil {
		return Enrollment{}, fmt.Errorf("service.RegistrationService.Complete: %w", err)
	}

	if err := s.pending.Clear(ctx, token); err != nil {
		// A leftover record allows a second Complete until it expires.
		s.logger.ErrorContext(ctx, "clear pending registration", "actor_id", out.Actor.ID, "error", err)
	}

	if out.Token, out.ExpiresAt, err = s.issuer.Issue(out.Actor.ID); err != nil {
		return Enrollment{}, fmt.Errorf("service.RegistrationService.Complete: %w", err)
	}
	s.logger.InfoContext(ctx, "actor enrolled", "actor_id", out.Actor.ID, "role", role)
	return out, nil
}

// Abandon discards a pending registration.
func (s *RegistrationService) Abandon(ctx context.Context, token string) error {
	if err := s.pending.Clear(ctx, token); err != nil {
		return fmt.Errorf("service.RegistrationService.Abandon: %w", err)
	}
	return nil
}
