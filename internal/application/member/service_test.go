package member

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gatekeeper-api/internal/application/raid"
	"github.com/gatekeeper-api/internal/domain"
)

type mockSessions struct{ mock.Mock }

func (m *mockSessions) Get(ctx context.Context, userID string) (*domain.VerificationSession, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VerificationSession), args.Error(1)
}

func (m *mockSessions) Delete(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type mockVerified struct{ mock.Mock }

func (m *mockVerified) Put(ctx context.Context, v *domain.VerifiedMember) error {
	return m.Called(ctx, v).Error(0)
}

func (m *mockVerified) Get(ctx context.Context, userID, communityID string) (*domain.VerifiedMember, error) {
	args := m.Called(ctx, userID, communityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VerifiedMember), args.Error(1)
}

func (m *mockVerified) Delete(ctx context.Context, userID, communityID string) error {
	return m.Called(ctx, userID, communityID).Error(0)
}

type mockSettings struct{ mock.Mock }

func (m *mockSettings) Get(ctx context.Context, communityID string) (*domain.CommunitySettings, error) {
	args := m.Called(ctx, communityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CommunitySettings), args.Error(1)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Audit(ctx context.Context, ev domain.AuditEvent) error {
	return m.Called(ctx, ev).Error(0)
}

func (m *mockNotifier) Alert(ctx context.Context, a domain.RaidAlert) error {
	return m.Called(ctx, a).Error(0)
}

type mockGrants struct{ mock.Mock }

func (m *mockGrants) Grant(ctx context.Context, userID, communityID, grantID, reason string) error {
	return m.Called(ctx, userID, communityID, grantID, reason).Error(0)
}

func (m *mockGrants) Revoke(ctx context.Context, userID, communityID, grantID, reason string) error {
	return m.Called(ctx, userID, communityID, grantID, reason).Error(0)
}

type testDeps struct {
	sessions *mockSessions
	verified *mockVerified
	settings *mockSettings
	notifier *mockNotifier
	grants   *mockGrants
	detector *raid.Detector
}

var testNow = time.Unix(1_700_000_000, 0)

func newTestService(detector *raid.Detector) (Service, *testDeps) {
	d := &testDeps{
		sessions: &mockSessions{},
		verified: &mockVerified{},
		settings: &mockSettings{},
		notifier: &mockNotifier{},
		grants:   &mockGrants{},
		detector: detector,
	}
	svc := NewService(Deps{
		Sessions:   d.sessions,
		Verified:   d.verified,
		Settings:   d.settings,
		Notifier:   d.notifier,
		Grants:     d.grants,
		Detector:   detector,
		SessionTTL: 600 * time.Second,
		Now:        func() time.Time { return testNow },
	})
	return svc, d
}

func configuredSettings() *domain.CommunitySettings {
	return &domain.CommunitySettings{
		CommunityID:       "c1",
		VerifiedGrantID:   "g-verified",
		UnverifiedGrantID: "g-unverified",
		LogTarget:         "ch-log",
	}
}

func TestJoin_NewMemberGetsUnverifiedGrant(t *testing.T) {
	svc, d := newTestService(raid.NewDetector(60*time.Second, 15))
	d.settings.On("Get", mock.Anything, "c1").Return(configuredSettings(), nil)
	d.verified.On("Get", mock.Anything, "u1", "c1").Return(nil, domain.ErrNotFound)
	d.grants.On("Grant", mock.Anything, "u1", "c1", "g-unverified", mock.Anything).Return(nil)

	res, err := svc.Join(context.Background(), JoinRequest{UserID: "u1", CommunityID: "c1"})
	require.NoError(t, err)
	assert.False(t, res.Returning)
	assert.False(t, res.RaidAlerted)
	d.grants.AssertExpectations(t)
}

func TestJoin_ReturningMemberGetsVerifiedGrant(t *testing.T) {
	svc, d := newTestService(raid.NewDetector(60*time.Second, 15))
	d.settings.On("Get", mock.Anything, "c1").Return(configuredSettings(), nil)
	d.verified.On("Get", mock.Anything, "u1", "c1").
		Return(&domain.VerifiedMember{UserID: "u1", CommunityID: "c1"}, nil)
	d.grants.On("Grant", mock.Anything, "u1", "c1", "g-verified", mock.Anything).Return(nil)

	res, err := svc.Join(context.Background(), JoinRequest{UserID: "u1", CommunityID: "c1"})
	require.NoError(t, err)
	assert.True(t, res.Returning)
	d.grants.AssertExpectations(t)
}

func TestJoin_GrantFailureIsAuditedNotFatal(t *testing.T) {
	svc, d := newTestService(raid.NewDetector(60*time.Second, 15))
	d.settings.On("Get", mock.Anything, "c1").Return(configuredSettings(), nil)
	d.verified.On("Get", mock.Anything, "u1", "c1").Return(nil, domain.ErrNotFound)
	d.grants.On("Grant", mock.Anything, "u1", "c1", "g-unverified", mock.Anything).
		Return(domain.ErrForbidden)
	d.notifier.On("Audit", mock.Anything, mock.MatchedBy(func(ev domain.AuditEvent) bool {
		return ev.Kind == domain.AuditPermissionError
	})).Return(nil)

	_, err := svc.Join(context.Background(), JoinRequest{UserID: "u1", CommunityID: "c1"})
	require.NoError(t, err)
	d.notifier.AssertExpectations(t)
}

func TestJoin_UnconfiguredCommunitySkipsGrants(t *testing.T) {
	svc, d := newTestService(raid.NewDetector(60*time.Second, 15))
	d.settings.On("Get", mock.Anything, "c1").Return(nil, domain.ErrNotFound)
	d.verified.On("Get", mock.Anything, "u1", "c1").Return(nil, domain.ErrNotFound)

	res, err := svc.Join(context.Background(), JoinRequest{UserID: "u1", CommunityID: "c1"})
	require.NoError(t, err)
	assert.False(t, res.RaidAlerted)
	d.grants.AssertNotCalled(t, "Grant", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestJoin_BurstRaisesRaidAlertOnce(t *testing.T) {
	svc, d := newTestService(raid.NewDetector(60*time.Second, 3))
	d.settings.On("Get", mock.Anything, "c1").Return(configuredSettings(), nil)
	d.verified.On("Get", mock.Anything, mock.Anything, "c1").Return(nil, domain.ErrNotFound)
	d.grants.On("Grant", mock.Anything, mock.Anything, "c1", "g-unverified", mock.Anything).Return(nil)
	d.notifier.On("Alert", mock.Anything, mock.MatchedBy(func(a domain.RaidAlert) bool {
		return a.CommunityID == "c1" && a.JoinCount == 3
	})).Return(nil)
	d.notifier.On("Audit", mock.Anything, mock.MatchedBy(func(ev domain.AuditEvent) bool {
		return ev.Kind == domain.AuditRaidAlert
	})).Return(nil)

	ctx := context.Background()
	for i, userID := range []string{"u1", "u2", "u3"} {
		res, err := svc.Join(ctx, JoinRequest{UserID: userID, CommunityID: "c1"})
		require.NoError(t, err)
		assert.Equal(t, i == 2, res.RaidAlerted)
	}
	d.notifier.AssertNumberOfCalls(t, "Alert", 1)
}

func TestManualVerify_HappyPath(t *testing.T) {
	svc, d := newTestService(raid.NewDetector(60*time.Second, 15))
	d.verified.On("Get", mock.Anything, "u1", "c1").Return(nil, domain.ErrNotFound)
	d.settings.On("Get", mock.Anything, "c1").Return(configuredSettings(), nil)
	d.verified.On("Put", mock.Anything, mock.MatchedBy(func(m *domain.VerifiedMember) bool {
		return m.UserID == "u1" && m.VerifiedAt == testNow.Unix()
	})).Return(nil)
	d.sessions.On("Delete", mock.Anything, "u1").Return(nil)
	d.grants.On("Grant", mock.Anything, "u1", "c1", "g-verified", "manually verified by op9").Return(nil)
	d.grants.On("Revoke", mock.Anything, "u1", "c1", "g-unverified", mock.Anything).Return(nil)
	d.notifier.On("Audit", mock.Anything, mock.MatchedBy(func(ev domain.AuditEvent) bool {
		return ev.Kind == domain.AuditManualVerification
	})).Return(nil)

	require.NoError(t, svc.ManualVerify(context.Background(), "u1", "c1", "op9"))
	d.grants.AssertExpectations(t)
}

func TestManualVerify_AlreadyVerified(t *testing.T) {
	svc, d := newTestService(raid.NewDetector(60*time.Second, 15))
	d.verified.On("Get", mock.Anything, "u1", "c1").
		Return(&domain.VerifiedMember{UserID: "u1"}, nil)

	err := svc.ManualVerify(context.Background(), "u1", "c1", "op9")
	require.ErrorIs(t, err, domain.ErrAlreadyVerified)
}

func TestUnverify_RequiresReason(t *testing.T) {
	svc, _ := newTestService(raid.NewDetector(60*time.Second, 15))
	err := svc.Unverify(context.Background(), "u1", "c1", "op9", "")
	require.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestUnverify_SwapsGrantsAndAudits(t *testing.T) {
	svc, d := newTestService(raid.NewDetector(60*time.Second, 15))
	d.verified.On("Get", mock.Anything, "u1", "c1").
		Return(&domain.VerifiedMember{UserID: "u1", CommunityID: "c1"}, nil)
	d.settings.On("Get", mock.Anything, "c1").Return(configuredSettings(), nil)
	d.verified.On("Delete", mock.Anything, "u1", "c1").Return(nil)
	d.grants.On("Revoke", mock.Anything, "u1", "c1", "g-verified", "ban evasion").Return(nil)
	d.grants.On("Grant", mock.Anything, "u1", "c1", "g-unverified", "ban evasion").Return(nil)
	d.notifier.On("Audit", mock.Anything, mock.MatchedBy(func(ev domain.AuditEvent) bool {
		return ev.Kind == domain.AuditMemberUnverified
	})).Return(nil)

	require.NoError(t, svc.Unverify(context.Background(), "u1", "c1", "op9", "ban evasion"))
	d.grants.AssertExpectations(t)
}

func TestUnverify_NotVerified(t *testing.T) {
	svc, d := newTestService(raid.NewDetector(60*time.Second, 15))
	d.verified.On("Get", mock.Anything, "u1", "c1").Return(nil, domain.ErrNotFound)

	err := svc.Unverify(context.Background(), "u1", "c1", "op9", "spam")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStatus_Verified(t *testing.T) {
	svc, d := newTestService(raid.NewDetector(60*time.Second, 15))
	d.verified.On("Get", mock.Anything, "u1", "c1").
		Return(&domain.VerifiedMember{UserID: "u1", CommunityID: "c1", VerifiedAt: 1234}, nil)

	st, err := svc.Status(context.Background(), "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, StateVerified, st.State)
	assert.Equal(t, int64(1234), st.VerifiedAt)
}

func TestStatus_Pending(t *testing.T) {
	svc, d := newTestService(raid.NewDetector(60*time.Second, 15))
	d.verified.On("Get", mock.Anything, "u1", "c1").Return(nil, domain.ErrNotFound)
	d.sessions.On("Get", mock.Anything, "u1").
		Return(&domain.VerificationSession{
			UserID: "u1", CommunityID: "c1", CurrentInput: "482",
			Attempts: 1, CreatedAt: testNow.Unix() - 100,
		}, nil)

	st, err := svc.Status(context.Background(), "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, StatePending, st.State)
	assert.Equal(t, 1, st.Attempts)
	assert.Equal(t, 3, st.InputLength)
	assert.Equal(t, testNow.Unix()+500, st.ExpiresAt)
}

func TestStatus_SessionForOtherCommunityIsNone(t *testing.T) {
	svc, d := newTestService(raid.NewDetector(60*time.Second, 15))
	d.verified.On("Get", mock.Anything, "u1", "c1").Return(nil, domain.ErrNotFound)
	d.sessions.On("Get", mock.Anything, "u1").
		Return(&domain.VerificationSession{UserID: "u1", CommunityID: "c2"}, nil)

	st, err := svc.Status(context.Background(), "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, StateNone, st.State)
}

func TestStatus_None(t *testing.T) {
	svc, d := newTestService(raid.NewDetector(60*time.Second, 15))
	d.verified.On("Get", mock.Anything, "u1", "c1").Return(nil, domain.ErrNotFound)
	d.sessions.On("Get", mock.Anything, "u1").Return(nil, domain.ErrNotFound)

	st, err := svc.Status(context.Background(), "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, StateNone, st.State)
}
