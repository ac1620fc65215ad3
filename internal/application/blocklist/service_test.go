package blocklist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gatekeeper-api/internal/domain"
)

type mockStore struct{ mock.Mock }

func (m *mockStore) Put(ctx context.Context, d string) error {
	return m.Called(ctx, d).Error(0)
}

func (m *mockStore) Delete(ctx context.Context, d string) (int, error) {
	args := m.Called(ctx, d)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) Exists(ctx context.Context, d string) (bool, error) {
	args := m.Called(ctx, d)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) List(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "mailinator.com", Normalize(" @Mailinator.COM "))
	assert.Equal(t, "example.org", Normalize("example.org"))
	assert.Equal(t, "", Normalize("  @"))
}

func TestAdd_NormalizesBeforeStoring(t *testing.T) {
	store := &mockStore{}
	store.On("Put", mock.Anything, "mailinator.com").Return(nil)

	got, err := NewService(store).Add(context.Background(), "@Mailinator.com")
	require.NoError(t, err)
	assert.Equal(t, "mailinator.com", got)
	store.AssertExpectations(t)
}

func TestAdd_RejectsGarbage(t *testing.T) {
	store := &mockStore{}
	svc := NewService(store)

	_, err := svc.Add(context.Background(), "  ")
	require.ErrorIs(t, err, domain.ErrBadRequest)
	_, err = svc.Add(context.Background(), "nodots")
	require.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestRemove_TriesBothSpellings(t *testing.T) {
	store := &mockStore{}
	store.On("Delete", mock.Anything, "mailinator.com").Return(0, nil)
	store.On("Delete", mock.Anything, "@Mailinator.com").Return(1, nil)

	n, err := NewService(store).Remove(context.Background(), "@Mailinator.com")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	store.AssertExpectations(t)
}

func TestRemove_NotFound(t *testing.T) {
	store := &mockStore{}
	store.On("Delete", mock.Anything, "example.org").Return(0, nil)

	_, err := NewService(store).Remove(context.Background(), "example.org")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIsBlocked_Normalizes(t *testing.T) {
	store := &mockStore{}
	store.On("Exists", mock.Anything, "mailinator.com").Return(true, nil)

	blocked, err := NewService(store).IsBlocked(context.Background(), "MAILINATOR.COM")
	require.NoError(t, err)
	assert.True(t, blocked)
}
