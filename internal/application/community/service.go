package community

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gatekeeper-api/internal/domain"
)

type SettingsStore interface {
	Put(ctx context.Context, s *domain.CommunitySettings) error
	Get(ctx context.Context, communityID string) (*domain.CommunitySettings, error)
	SetLockdown(ctx context.Context, communityID string, enabled bool) error
}

type Notifier interface {
	Audit(ctx context.Context, ev domain.AuditEvent) error
}

type Service interface {
	Configure(ctx context.Context, req domain.ConfigureRequest) (*domain.CommunitySettings, error)
	SetLockdown(ctx context.Context, communityID, actorID string, enabled bool) (*domain.CommunitySettings, error)
	Get(ctx context.Context, communityID string) (*domain.CommunitySettings, error)
}

type Deps struct {
	Settings SettingsStore
	Notifier Notifier
}

type service struct {
	deps Deps
}

func NewService(deps Deps) Service {
	return &service{deps: deps}
}

// Configure writes a community's settings. It is a full replace: lockdown is
// reset to off, so reconfiguring a community also reopens its gate.
func (s *service) Configure(ctx context.Context, req domain.ConfigureRequest) (*domain.CommunitySettings, error) {
	if req.VerifiedGrantID == req.UnverifiedGrantID {
		return nil, fmt.Errorf("verified and unverified grants must differ: %w", domain.ErrBadRequest)
	}
	settings := &domain.CommunitySettings{
		CommunityID:       req.CommunityID,
		VerifiedGrantID:   req.VerifiedGrantID,
		UnverifiedGrantID: req.UnverifiedGrantID,
		LogTarget:         req.LogTarget,
		LockdownEnabled:   false,
	}
	if err := s.deps.Settings.Put(ctx, settings); err != nil {
		return nil, err
	}
	slog.Info("community configured", "community_id", req.CommunityID)
	return settings, nil
}

// SetLockdown flips the lockdown flag. Lockdown blocks new verification
// starts but leaves in-flight sessions alone.
func (s *service) SetLockdown(ctx context.Context, communityID, actorID string, enabled bool) (*domain.CommunitySettings, error) {
	settings, err := s.deps.Settings.Get(ctx, communityID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("community %s: %w", communityID, domain.ErrNotConfigured)
		}
		return nil, err
	}
	if err := s.deps.Settings.SetLockdown(ctx, communityID, enabled); err != nil {
		return nil, err
	}
	settings.LockdownEnabled = enabled

	state := "disabled"
	if enabled {
		state = "enabled"
	}
	ev := domain.AuditEvent{
		Kind:        domain.AuditLockdownChanged,
		CommunityID: communityID,
		UserID:      actorID,
		Detail:      "lockdown " + state,
		LogTarget:   settings.LogTarget,
	}
	if err := s.deps.Notifier.Audit(ctx, ev); err != nil {
		slog.Warn("failed to publish audit event", "kind", ev.Kind, "community_id", communityID, "err", err)
	}
	return settings, nil
}

func (s *service) Get(ctx context.Context, communityID string) (*domain.CommunitySettings, error) {
	return s.deps.Settings.Get(ctx, communityID)
}
