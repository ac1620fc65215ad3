package blocklist

import (
	"context"
	"fmt"
	"strings"

	"github.com/gatekeeper-api/internal/domain"
)

type Store interface {
	Put(ctx context.Context, domainName string) error
	Delete(ctx context.Context, domainName string) (int, error)
	Exists(ctx context.Context, domainName string) (bool, error)
	List(ctx context.Context) ([]string, error)
}

// Service manages the e-mail domain blocklist shared by all communities.
type Service interface {
	Add(ctx context.Context, domainName string) (string, error)
	Remove(ctx context.Context, domainName string) (int, error)
	List(ctx context.Context) ([]string, error)
	IsBlocked(ctx context.Context, domainName string) (bool, error)
}

type service struct {
	store Store
}

func NewService(store Store) Service {
	return &service{store: store}
}

// Normalize lowercases a domain and strips whitespace and a leading "@", so
// "@Mailinator.com " and "mailinator.com" refer to the same entry.
func Normalize(domainName string) string {
	d := strings.ToLower(strings.TrimSpace(domainName))
	return strings.TrimPrefix(d, "@")
}

func (s *service) Add(ctx context.Context, domainName string) (string, error) {
	d := Normalize(domainName)
	if d == "" || !strings.Contains(d, ".") {
		return "", fmt.Errorf("invalid domain %q: %w", domainName, domain.ErrBadRequest)
	}
	if err := s.store.Put(ctx, d); err != nil {
		return "", err
	}
	return d, nil
}

// Remove deletes both the raw and the normalized spelling, covering entries
// written before normalization existed. Returns how many rows were removed.
func (s *service) Remove(ctx context.Context, domainName string) (int, error) {
	raw := strings.TrimSpace(domainName)
	norm := Normalize(domainName)

	removed, err := s.store.Delete(ctx, norm)
	if err != nil {
		return 0, err
	}
	if raw != norm {
		n, err := s.store.Delete(ctx, raw)
		if err != nil {
			return removed, err
		}
		removed += n
	}
	if removed == 0 {
		return 0, fmt.Errorf("domain %s not on blocklist: %w", norm, domain.ErrNotFound)
	}
	return removed, nil
}

func (s *service) List(ctx context.Context) ([]string, error) {
	return s.store.List(ctx)
}

func (s *service) IsBlocked(ctx context.Context, domainName string) (bool, error) {
	return s.store.Exists(ctx, Normalize(domainName))
}
