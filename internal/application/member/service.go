package member

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gatekeeper-api/internal/application/raid"
	"github.com/gatekeeper-api/internal/domain"
)

type SessionStore interface {
	Get(ctx context.Context, userID string) (*domain.VerificationSession, error)
	Delete(ctx context.Context, userID string) error
}

type VerifiedStore interface {
	Put(ctx context.Context, m *domain.VerifiedMember) error
	Get(ctx context.Context, userID, communityID string) (*domain.VerifiedMember, error)
	Delete(ctx context.Context, userID, communityID string) error
}

type SettingsStore interface {
	Get(ctx context.Context, communityID string) (*domain.CommunitySettings, error)
}

type Notifier interface {
	Audit(ctx context.Context, ev domain.AuditEvent) error
	Alert(ctx context.Context, a domain.RaidAlert) error
}

type GrantApplier interface {
	Grant(ctx context.Context, userID, communityID, grantID, reason string) error
	Revoke(ctx context.Context, userID, communityID, grantID, reason string) error
}

// JoinRequest is reported by the relay when a user enters a community.
type JoinRequest struct {
	UserID      string `json:"user_id" validate:"required"`
	CommunityID string `json:"community_id" validate:"required"`
	DisplayName string `json:"display_name"`
}

// JoinResult tells the relay what happened on join.
type JoinResult struct {
	Returning   bool `json:"returning"`
	RaidAlerted bool `json:"raid_alerted"`
}

// Member states reported by Status.
const (
	StateVerified = "verified"
	StatePending  = "pending"
	StateNone     = "none"
)

type MemberStatus struct {
	State       string `json:"state"`
	VerifiedAt  int64  `json:"verified_at,omitempty"`
	Attempts    int    `json:"attempts,omitempty"`
	InputLength int    `json:"input_length,omitempty"`
	ExpiresAt   int64  `json:"expires_at,omitempty"`
}

type Service interface {
	Join(ctx context.Context, req JoinRequest) (*JoinResult, error)
	ManualVerify(ctx context.Context, userID, communityID, actorID string) error
	Unverify(ctx context.Context, userID, communityID, actorID, reason string) error
	Status(ctx context.Context, userID, communityID string) (*MemberStatus, error)
}

type Deps struct {
	Sessions SessionStore
	Verified VerifiedStore
	Settings SettingsStore
	Notifier Notifier
	Grants   GrantApplier
	Detector *raid.Detector

	SessionTTL time.Duration
	Now        func() time.Time
}

type service struct {
	deps Deps
}

func NewService(deps Deps) Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &service{deps: deps}
}

// Join records the join for raid detection and applies the entry grant:
// returning verified members get the verified grant back, everyone else gets
// the unverified grant. Grant failures never fail the join; they are audited.
func (s *service) Join(ctx context.Context, req JoinRequest) (*JoinResult, error) {
	now := s.deps.Now()
	res := &JoinResult{}

	settings, err := s.deps.Settings.Get(ctx, req.CommunityID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		settings = nil
	}

	if alert := s.deps.Detector.Observe(req.CommunityID, now); alert != nil {
		res.RaidAlerted = true
		s.raiseRaidAlert(ctx, settings, alert, now)
	}

	_, err = s.deps.Verified.Get(ctx, req.UserID, req.CommunityID)
	switch {
	case err == nil:
		res.Returning = true
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	if settings == nil {
		slog.Info("join in unconfigured community, no grant applied",
			"community_id", req.CommunityID, "user_id", req.UserID)
		return res, nil
	}

	grantID, reason := settings.UnverifiedGrantID, "joined unverified"
	if res.Returning {
		grantID, reason = settings.VerifiedGrantID, "returning verified member"
	}
	if grantID == "" {
		return res, nil
	}
	if err := s.deps.Grants.Grant(ctx, req.UserID, req.CommunityID, grantID, reason); err != nil {
		slog.Warn("failed to apply join grant", "user_id", req.UserID, "grant_id", grantID, "err", err)
		s.audit(ctx, settings, domain.AuditEvent{
			Kind:        domain.AuditPermissionError,
			CommunityID: req.CommunityID,
			UserID:      req.UserID,
			Detail:      "could not apply grant on join",
		})
	}
	return res, nil
}

func (s *service) raiseRaidAlert(ctx context.Context, settings *domain.CommunitySettings, alert *raid.Alert, now time.Time) {
	ra := domain.RaidAlert{
		CommunityID:   alert.CommunityID,
		JoinCount:     alert.JoinCount,
		WindowSeconds: alert.WindowSeconds,
		At:            now.Unix(),
	}
	if err := s.deps.Notifier.Alert(ctx, ra); err != nil {
		slog.Error("failed to publish raid alert", "community_id", alert.CommunityID, "err", err)
	}
	s.audit(ctx, settings, domain.AuditEvent{
		Kind:        domain.AuditRaidAlert,
		CommunityID: alert.CommunityID,
		Detail: fmt.Sprintf("%d joins in %ds, consider enabling lockdown",
			alert.JoinCount, alert.WindowSeconds),
	})
}

// ManualVerify marks a user verified without a code, on an operator's
// authority. The actor is recorded in the audit trail.
func (s *service) ManualVerify(ctx context.Context, userID, communityID, actorID string) error {
	if _, err := s.deps.Verified.Get(ctx, userID, communityID); err == nil {
		return fmt.Errorf("user %s in community %s: %w", userID, communityID, domain.ErrAlreadyVerified)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	settings, err := s.deps.Settings.Get(ctx, communityID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("community %s: %w", communityID, domain.ErrNotConfigured)
		}
		return err
	}

	if err := s.deps.Verified.Put(ctx, &domain.VerifiedMember{
		UserID:      userID,
		CommunityID: communityID,
		VerifiedAt:  s.deps.Now().Unix(),
	}); err != nil {
		return err
	}
	// A pending keypad session is moot once the operator intervenes.
	if err := s.deps.Sessions.Delete(ctx, userID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		slog.Warn("failed to drop pending session on manual verify", "user_id", userID, "err", err)
	}

	reason := "manually verified by " + actorID
	if settings.VerifiedGrantID != "" {
		if err := s.deps.Grants.Grant(ctx, userID, communityID, settings.VerifiedGrantID, reason); err != nil {
			slog.Warn("failed to apply verified grant", "user_id", userID, "err", err)
		}
	}
	if settings.UnverifiedGrantID != "" {
		if err := s.deps.Grants.Revoke(ctx, userID, communityID, settings.UnverifiedGrantID, reason); err != nil {
			slog.Warn("failed to revoke unverified grant", "user_id", userID, "err", err)
		}
	}
	s.audit(ctx, settings, domain.AuditEvent{
		Kind:        domain.AuditManualVerification,
		CommunityID: communityID,
		UserID:      userID,
		Detail:      reason,
	})
	return nil
}

// Unverify removes a user's verified standing and puts them back behind the
// gate. The reason is mandatory for the audit trail.
func (s *service) Unverify(ctx context.Context, userID, communityID, actorID, reason string) error {
	if reason == "" {
		return fmt.Errorf("reason is required: %w", domain.ErrBadRequest)
	}
	if _, err := s.deps.Verified.Get(ctx, userID, communityID); err != nil {
		return err
	}
	settings, err := s.deps.Settings.Get(ctx, communityID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("community %s: %w", communityID, domain.ErrNotConfigured)
		}
		return err
	}

	if err := s.deps.Verified.Delete(ctx, userID, communityID); err != nil {
		return err
	}
	if settings.VerifiedGrantID != "" {
		if err := s.deps.Grants.Revoke(ctx, userID, communityID, settings.VerifiedGrantID, reason); err != nil {
			slog.Warn("failed to revoke verified grant", "user_id", userID, "err", err)
		}
	}
	if settings.UnverifiedGrantID != "" {
		if err := s.deps.Grants.Grant(ctx, userID, communityID, settings.UnverifiedGrantID, reason); err != nil {
			slog.Warn("failed to apply unverified grant", "user_id", userID, "err", err)
		}
	}
	s.audit(ctx, settings, domain.AuditEvent{
		Kind:        domain.AuditMemberUnverified,
		CommunityID: communityID,
		UserID:      userID,
		Detail:      fmt.Sprintf("by %s: %s", actorID, reason),
	})
	return nil
}

// Status reports where a user stands with a community's gate.
func (s *service) Status(ctx context.Context, userID, communityID string) (*MemberStatus, error) {
	if v, err := s.deps.Verified.Get(ctx, userID, communityID); err == nil {
		return &MemberStatus{State: StateVerified, VerifiedAt: v.VerifiedAt}, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	sess, err := s.deps.Sessions.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &MemberStatus{State: StateNone}, nil
		}
		return nil, err
	}
	if sess.CommunityID != communityID {
		return &MemberStatus{State: StateNone}, nil
	}
	return &MemberStatus{
		State:       StatePending,
		Attempts:    sess.Attempts,
		InputLength: len(sess.CurrentInput),
		ExpiresAt:   sess.CreatedAt + int64(s.deps.SessionTTL.Seconds()),
	}, nil
}

func (s *service) audit(ctx context.Context, settings *domain.CommunitySettings, ev domain.AuditEvent) {
	if settings != nil {
		ev.LogTarget = settings.LogTarget
	}
	if err := s.deps.Notifier.Audit(ctx, ev); err != nil {
		slog.Warn("failed to publish audit event", "kind", ev.Kind, "community_id", ev.CommunityID, "err", err)
	}
}
