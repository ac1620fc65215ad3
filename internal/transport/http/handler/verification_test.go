package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gatekeeper-api/internal/application/verification"
	"github.com/gatekeeper-api/internal/domain"
)

// --- mock ---

type mockVerificationSvc struct{ mock.Mock }

func (m *mockVerificationSvc) Start(ctx context.Context, req verification.StartRequest) (*verification.StartResult, error) {
	args := m.Called(ctx, req)
	if res, _ := args.Get(0).(*verification.StartResult); res != nil {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockVerificationSvc) PressKey(ctx context.Context, userID, key string) (*verification.KeypadState, error) {
	args := m.Called(ctx, userID, key)
	if st, _ := args.Get(0).(*verification.KeypadState); st != nil {
		return st, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockVerificationSvc) Submit(ctx context.Context, userID string) (*verification.SubmitResult, error) {
	args := m.Called(ctx, userID)
	if res, _ := args.Get(0).(*verification.SubmitResult); res != nil {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

// withChiParams injects chi URL params into the request context.
func withChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func validStartBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(verification.StartRequest{
		UserID:           "u1",
		CommunityID:      "c1",
		Email:            "alice@example.com",
		AccountCreatedAt: time.Now().Add(-48 * time.Hour),
		CommunityName:    "Example",
	})
	require.NoError(t, err)
	return body
}

// --- Start tests ---

func TestStart_InvalidBody(t *testing.T) {
	h := NewVerificationHandler(&mockVerificationSvc{})
	r := httptest.NewRequest(http.MethodPost, "/v1/verifications", bytes.NewBufferString("not-json"))
	rr := httptest.NewRecorder()
	h.Start(rr, r)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestStart_ValidationFailure(t *testing.T) {
	h := NewVerificationHandler(&mockVerificationSvc{})
	body, _ := json.Marshal(verification.StartRequest{UserID: "u1"}) // missing community and email
	r := httptest.NewRequest(http.MethodPost, "/v1/verifications", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Start(rr, r)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestStart_DomainErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrAlreadyVerified, http.StatusConflict},
		{domain.ErrLockedDown, http.StatusLocked},
		{domain.ErrAccountTooNew, http.StatusForbidden},
		{domain.ErrDomainBlocked, http.StatusForbidden},
		{domain.ErrCooldown, http.StatusTooManyRequests},
		{domain.ErrNotConfigured, http.StatusConflict},
		{domain.ErrRecipientRefused, http.StatusBadGateway},
	}
	for _, tc := range cases {
		svc := &mockVerificationSvc{}
		svc.On("Start", mock.Anything, mock.Anything).Return(nil, tc.err)
		h := NewVerificationHandler(svc)

		r := httptest.NewRequest(http.MethodPost, "/v1/verifications", bytes.NewReader(validStartBody(t)))
		rr := httptest.NewRecorder()
		h.Start(rr, r)
		assert.Equal(t, tc.want, rr.Code, "error %v", tc.err)
	}
}

func TestStart_HappyPath(t *testing.T) {
	svc := &mockVerificationSvc{}
	svc.On("Start", mock.Anything, mock.MatchedBy(func(req verification.StartRequest) bool {
		return req.UserID == "u1" && req.CommunityID == "c1"
	})).Return(&verification.StartResult{ExpiresAt: 1234}, nil)
	h := NewVerificationHandler(svc)

	r := httptest.NewRequest(http.MethodPost, "/v1/verifications", bytes.NewReader(validStartBody(t)))
	rr := httptest.NewRecorder()
	h.Start(rr, r)

	assert.Equal(t, http.StatusCreated, rr.Code)
	var resp verification.StartResult
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, int64(1234), resp.ExpiresAt)
	svc.AssertExpectations(t)
}

// --- PressKey tests ---

func TestPressKey_HappyPath(t *testing.T) {
	svc := &mockVerificationSvc{}
	svc.On("PressKey", mock.Anything, "u1", "4").
		Return(&verification.KeypadState{Input: "4", Ready: false}, nil)
	h := NewVerificationHandler(svc)

	r := withChiParams(httptest.NewRequest(http.MethodPost, "/v1/verifications/u1/keys/4", nil),
		map[string]string{"userID": "u1", "key": "4"})
	rr := httptest.NewRecorder()
	h.PressKey(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp verification.KeypadState
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "4", resp.Input)
	svc.AssertExpectations(t)
}

func TestPressKey_NoSession(t *testing.T) {
	svc := &mockVerificationSvc{}
	svc.On("PressKey", mock.Anything, "u1", "4").Return(nil, domain.ErrNotFound)
	h := NewVerificationHandler(svc)

	r := withChiParams(httptest.NewRequest(http.MethodPost, "/v1/verifications/u1/keys/4", nil),
		map[string]string{"userID": "u1", "key": "4"})
	rr := httptest.NewRecorder()
	h.PressKey(rr, r)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPressKey_InvalidKey(t *testing.T) {
	svc := &mockVerificationSvc{}
	svc.On("PressKey", mock.Anything, "u1", "x").Return(nil, domain.ErrBadRequest)
	h := NewVerificationHandler(svc)

	r := withChiParams(httptest.NewRequest(http.MethodPost, "/v1/verifications/u1/keys/x", nil),
		map[string]string{"userID": "u1", "key": "x"})
	rr := httptest.NewRecorder()
	h.PressKey(rr, r)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// --- Submit tests ---

func TestSubmit_Verified(t *testing.T) {
	svc := &mockVerificationSvc{}
	svc.On("Submit", mock.Anything, "u1").
		Return(&verification.SubmitResult{Outcome: verification.OutcomeVerified, CommunityID: "c1"}, nil)
	h := NewVerificationHandler(svc)

	r := withChiParams(httptest.NewRequest(http.MethodPost, "/v1/verifications/u1/submit", nil),
		map[string]string{"userID": "u1"})
	rr := httptest.NewRecorder()
	h.Submit(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp verification.SubmitResult
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, verification.OutcomeVerified, resp.Outcome)
	svc.AssertExpectations(t)
}

func TestSubmit_RetryCarriesRemaining(t *testing.T) {
	svc := &mockVerificationSvc{}
	svc.On("Submit", mock.Anything, "u1").
		Return(&verification.SubmitResult{Outcome: verification.OutcomeRetry, AttemptsRemaining: 2}, nil)
	h := NewVerificationHandler(svc)

	r := withChiParams(httptest.NewRequest(http.MethodPost, "/v1/verifications/u1/submit", nil),
		map[string]string{"userID": "u1"})
	rr := httptest.NewRecorder()
	h.Submit(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp verification.SubmitResult
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, verification.OutcomeRetry, resp.Outcome)
	assert.Equal(t, 2, resp.AttemptsRemaining)
}

func TestSubmit_NoSession(t *testing.T) {
	svc := &mockVerificationSvc{}
	svc.On("Submit", mock.Anything, "u1").Return(nil, domain.ErrNotFound)
	h := NewVerificationHandler(svc)

	r := withChiParams(httptest.NewRequest(http.MethodPost, "/v1/verifications/u1/submit", nil),
		map[string]string{"userID": "u1"})
	rr := httptest.NewRecorder()
	h.Submit(rr, r)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
