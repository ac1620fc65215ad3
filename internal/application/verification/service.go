package verification

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/gatekeeper-api/internal/domain"
)

// SessionStore is the slice of the session table the state machine drives.
// Put must replace any existing row for the same user id (upsert-or-reset).
type SessionStore interface {
	Put(ctx context.Context, s *domain.VerificationSession) error
	Get(ctx context.Context, userID string) (*domain.VerificationSession, error)
	UpdateInput(ctx context.Context, userID, input string) error
	IncrementAttempts(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, userID string) error
}

// VerifiedStore records completed verifications.
type VerifiedStore interface {
	Put(ctx context.Context, m *domain.VerifiedMember) error
	Get(ctx context.Context, userID, communityID string) (*domain.VerifiedMember, error)
}

// SettingsStore reads per-community configuration.
type SettingsStore interface {
	Get(ctx context.Context, communityID string) (*domain.CommunitySettings, error)
}

// DomainBlocklist answers whether an e-mail domain is blocked.
type DomainBlocklist interface {
	Exists(ctx context.Context, domainName string) (bool, error)
}

// Mailer delivers the code out of band.
type Mailer interface {
	SendEmail(to, subject, htmlBody string) error
}

// TemplateStore fetches the e-mail body template. Optional; a failure falls
// back to the built-in template.
type TemplateStore interface {
	Get(ctx context.Context, key string) (string, error)
}

// Notifier publishes audit events.
type Notifier interface {
	Audit(ctx context.Context, ev domain.AuditEvent) error
}

// GrantApplier mutates access grants on the chat platform.
type GrantApplier interface {
	Grant(ctx context.Context, userID, communityID, grantID, reason string) error
	Revoke(ctx context.Context, userID, communityID, grantID, reason string) error
}

// StartRequest begins verification for a user joining a community.
// AccountCreatedAt is the age anchor of the user's platform account, supplied
// by the relay; display names are only used to render the e-mail.
type StartRequest struct {
	UserID           string    `json:"user_id" validate:"required"`
	CommunityID      string    `json:"community_id" validate:"required"`
	Email            string    `json:"email" validate:"required,email"`
	AccountCreatedAt time.Time `json:"account_created_at"`
	DisplayName      string    `json:"display_name"`
	CommunityName    string    `json:"community_name"`
}

// StartResult reports when the freshly issued session expires.
// The code itself is never returned over the API; it only travels by e-mail.
type StartResult struct {
	ExpiresAt int64 `json:"expires_at"`
}

// KeypadState is the display state after a key press.
type KeypadState struct {
	Input string `json:"input"`
	Ready bool   `json:"ready"`
}

// Outcome of a submit.
type Outcome string

const (
	OutcomeVerified   Outcome = "verified"
	OutcomeExpired    Outcome = "expired"
	OutcomeNeedsInput Outcome = "needs_input"
	OutcomeRetry      Outcome = "retry"
	OutcomeExhausted  Outcome = "exhausted"
)

// SubmitResult is the resolution of a submit. AttemptsRemaining is only
// meaningful for OutcomeRetry.
type SubmitResult struct {
	Outcome           Outcome `json:"outcome"`
	CommunityID       string  `json:"community_id,omitempty"`
	AttemptsRemaining int     `json:"attempts_remaining,omitempty"`
}

type Service interface {
	Start(ctx context.Context, req StartRequest) (*StartResult, error)
	PressKey(ctx context.Context, userID, key string) (*KeypadState, error)
	Submit(ctx context.Context, userID string) (*SubmitResult, error)
}

// Deps bundles the collaborators of the verification service.
type Deps struct {
	Sessions  SessionStore
	Verified  VerifiedStore
	Settings  SettingsStore
	Blocklist DomainBlocklist
	Mailer    Mailer
	Templates TemplateStore
	Notifier  Notifier
	Grants    GrantApplier

	SessionTTL     time.Duration
	ResendCooldown time.Duration
	MaxAttempts    int
	MinAccountAge  time.Duration
	TemplateKey    string

	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

type service struct {
	deps Deps

	// Striped per-user locks. Every operation on a user's session takes the
	// user's stripe, so a key press racing a submit cannot interleave their
	// read-modify-write of the input buffer or the attempt counter.
	locks [lockStripes]sync.Mutex
}

const lockStripes = 64

func NewService(deps Deps) Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &service{deps: deps}
}

func (s *service) lockFor(userID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return &s.locks[h.Sum32()%lockStripes]
}

func (s *service) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	mu := s.lockFor(req.UserID)
	mu.Lock()
	defer mu.Unlock()

	if _, err := s.deps.Verified.Get(ctx, req.UserID, req.CommunityID); err == nil {
		return nil, fmt.Errorf("user %s in community %s: %w", req.UserID, req.CommunityID, domain.ErrAlreadyVerified)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	settings, err := s.deps.Settings.Get(ctx, req.CommunityID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("community %s: %w", req.CommunityID, domain.ErrNotConfigured)
		}
		return nil, err
	}
	if settings.VerifiedGrantID == "" || settings.UnverifiedGrantID == "" {
		return nil, fmt.Errorf("community %s missing grant ids: %w", req.CommunityID, domain.ErrNotConfigured)
	}
	if settings.LockdownEnabled {
		return nil, fmt.Errorf("community %s: %w", req.CommunityID, domain.ErrLockedDown)
	}

	now := s.deps.Now()
	if now.Sub(req.AccountCreatedAt) < s.deps.MinAccountAge {
		return nil, fmt.Errorf("account created %s ago: %w", now.Sub(req.AccountCreatedAt), domain.ErrAccountTooNew)
	}

	emailDomain, err := domainOf(req.Email)
	if err != nil {
		return nil, err
	}
	blocked, err := s.deps.Blocklist.Exists(ctx, emailDomain)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, fmt.Errorf("domain %s: %w", emailDomain, domain.ErrDomainBlocked)
	}

	if prior, err := s.deps.Sessions.Get(ctx, req.UserID); err == nil {
		elapsed := now.Unix() - prior.CreatedAt
		if cooldown := int64(s.deps.ResendCooldown.Seconds()); elapsed < cooldown {
			return nil, fmt.Errorf("%w: retry in %d seconds", domain.ErrCooldown, cooldown-elapsed)
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	code, err := generateCode()
	if err != nil {
		return nil, err
	}
	sess := &domain.VerificationSession{
		UserID:       req.UserID,
		CommunityID:  req.CommunityID,
		Code:         code,
		CurrentInput: "",
		Attempts:     0,
		CreatedAt:    now.Unix(),
	}
	if err := s.deps.Sessions.Put(ctx, sess); err != nil {
		return nil, err
	}

	subject := fmt.Sprintf("Your verification code for %s", req.CommunityName)
	body := s.renderEmail(ctx, req.DisplayName, req.CommunityName, code)
	if err := s.deps.Mailer.SendEmail(req.Email, subject, body); err != nil {
		// An undeliverable code must not leave a pending session behind.
		if delErr := s.deps.Sessions.Delete(ctx, req.UserID); delErr != nil {
			slog.Warn("failed to roll back session after delivery failure", "user_id", req.UserID, "err", delErr)
		}
		return nil, err
	}

	s.audit(ctx, settings, domain.AuditEvent{
		Kind:        domain.AuditVerificationStarted,
		CommunityID: req.CommunityID,
		UserID:      req.UserID,
		Detail:      "code sent to " + req.Email,
	})
	return &StartResult{ExpiresAt: sess.CreatedAt + int64(s.deps.SessionTTL.Seconds())}, nil
}

func (s *service) PressKey(ctx context.Context, userID, key string) (*KeypadState, error) {
	mu := s.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := s.deps.Sessions.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	input := sess.CurrentInput
	switch {
	case key == domain.KeyBackspace:
		if input != "" {
			input = input[:len(input)-1]
		}
	case isDigit(key):
		// At full length further digits are silently ignored; the caller
		// still gets the current state back.
		if len(input) < domain.MaxInputLength {
			input += key
		}
	default:
		return nil, fmt.Errorf("invalid key %q: %w", key, domain.ErrBadRequest)
	}

	if input != sess.CurrentInput {
		if err := s.deps.Sessions.UpdateInput(ctx, userID, input); err != nil {
			return nil, err
		}
		sess.CurrentInput = input
	}
	return &KeypadState{Input: sess.CurrentInput, Ready: sess.Ready()}, nil
}

func (s *service) Submit(ctx context.Context, userID string) (*SubmitResult, error) {
	mu := s.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := s.deps.Sessions.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.deps.Now().Unix()

	// Expiry takes precedence over everything else, even a matching input.
	if now-sess.CreatedAt > int64(s.deps.SessionTTL.Seconds()) {
		if err := s.deps.Sessions.Delete(ctx, userID); err != nil {
			return nil, err
		}
		s.auditByCommunity(ctx, sess.CommunityID, domain.AuditEvent{
			Kind:        domain.AuditSessionExpired,
			CommunityID: sess.CommunityID,
			UserID:      userID,
		})
		return &SubmitResult{Outcome: OutcomeExpired, CommunityID: sess.CommunityID}, nil
	}

	if sess.CurrentInput == "" {
		return &SubmitResult{Outcome: OutcomeNeedsInput, CommunityID: sess.CommunityID}, nil
	}

	if sess.CurrentInput == sess.Code {
		// Record first, delete second: if the record write fails the session
		// stays intact and the user can simply submit again.
		if err := s.deps.Verified.Put(ctx, &domain.VerifiedMember{
			UserID:      userID,
			CommunityID: sess.CommunityID,
			VerifiedAt:  now,
		}); err != nil {
			return nil, err
		}
		if err := s.deps.Sessions.Delete(ctx, userID); err != nil {
			return nil, err
		}
		s.applyVerifiedGrants(ctx, userID, sess.CommunityID)
		return &SubmitResult{Outcome: OutcomeVerified, CommunityID: sess.CommunityID}, nil
	}

	attempts, err := s.deps.Sessions.IncrementAttempts(ctx, userID)
	if err != nil {
		return nil, err
	}
	if attempts >= s.deps.MaxAttempts {
		if err := s.deps.Sessions.Delete(ctx, userID); err != nil {
			return nil, err
		}
		s.auditByCommunity(ctx, sess.CommunityID, domain.AuditEvent{
			Kind:        domain.AuditAttemptsExhausted,
			CommunityID: sess.CommunityID,
			UserID:      userID,
		})
		return &SubmitResult{Outcome: OutcomeExhausted, CommunityID: sess.CommunityID}, nil
	}

	if err := s.deps.Sessions.UpdateInput(ctx, userID, ""); err != nil {
		return nil, err
	}
	return &SubmitResult{
		Outcome:           OutcomeRetry,
		CommunityID:       sess.CommunityID,
		AttemptsRemaining: s.deps.MaxAttempts - attempts,
	}, nil
}

// applyVerifiedGrants swaps the user's grants and audits the success. Grant
// application is asynchronous on the platform side, so failures here are
// logged and audited rather than unwinding an already-completed verification.
func (s *service) applyVerifiedGrants(ctx context.Context, userID, communityID string) {
	settings, err := s.deps.Settings.Get(ctx, communityID)
	if err != nil {
		slog.Warn("settings unavailable after verification", "community_id", communityID, "err", err)
		settings = &domain.CommunitySettings{CommunityID: communityID}
	}
	if settings.VerifiedGrantID != "" {
		if err := s.deps.Grants.Grant(ctx, userID, communityID, settings.VerifiedGrantID, "verification completed"); err != nil {
			slog.Warn("failed to apply verified grant", "user_id", userID, "err", err)
			s.audit(ctx, settings, domain.AuditEvent{
				Kind:        domain.AuditPermissionError,
				CommunityID: communityID,
				UserID:      userID,
				Detail:      "could not apply verified grant",
			})
		}
	}
	if settings.UnverifiedGrantID != "" {
		if err := s.deps.Grants.Revoke(ctx, userID, communityID, settings.UnverifiedGrantID, "verification completed"); err != nil {
			slog.Warn("failed to revoke unverified grant", "user_id", userID, "err", err)
		}
	}
	s.audit(ctx, settings, domain.AuditEvent{
		Kind:        domain.AuditVerificationSucceeded,
		CommunityID: communityID,
		UserID:      userID,
	})
}

func (s *service) audit(ctx context.Context, settings *domain.CommunitySettings, ev domain.AuditEvent) {
	if settings != nil {
		ev.LogTarget = settings.LogTarget
	}
	if err := s.deps.Notifier.Audit(ctx, ev); err != nil {
		slog.Warn("failed to publish audit event", "kind", ev.Kind, "community_id", ev.CommunityID, "err", err)
	}
}

func (s *service) auditByCommunity(ctx context.Context, communityID string, ev domain.AuditEvent) {
	settings, err := s.deps.Settings.Get(ctx, communityID)
	if err != nil {
		settings = nil
	}
	s.audit(ctx, settings, ev)
}

func domainOf(email string) (string, error) {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", fmt.Errorf("invalid email format: %w", domain.ErrBadRequest)
	}
	return strings.ToLower(email[at+1:]), nil
}

func isDigit(key string) bool {
	return len(key) == 1 && key[0] >= '0' && key[0] <= '9'
}

// generateCode draws a uniformly random 6-digit code. Leading zeros are
// preserved; comparison elsewhere is exact string equality.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
