package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Start-verification pre-condition rejections. None of these are fatal;
	// each carries a distinct reason the caller renders back to the requester.
	ErrAlreadyVerified = errors.New("already verified")
	ErrLockedDown      = errors.New("community in lockdown")
	ErrAccountTooNew   = errors.New("account too new")
	ErrDomainBlocked   = errors.New("email domain blocked")
	ErrCooldown        = errors.New("re-request cooldown active")
	ErrNotConfigured   = errors.New("community not configured")

	// Delivery failures. ErrRecipientRefused wraps ErrDeliveryFailed so callers
	// can match either the specific or the generic condition.
	ErrDeliveryFailed   = errors.New("code delivery failed")
	ErrRecipientRefused = fmt.Errorf("recipient refused: %w", ErrDeliveryFailed)
)
