package http

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/daisi-token-relay/internal/application"
	"gitlab.com/timkado/api/daisi-token-relay/internal/domain"
)

type fetcherFunc func(ctx context.Context, sessionID string) (domain.AuthData, error)

func (f fetcherFunc) Fetch(ctx context.Context, sessionID string) (domain.AuthData, error) {
	return f(ctx, sessionID)
}

type verifierFunc func(ctx context.Context, idToken string) (domain.Claims, error)

func (f verifierFunc) Verify(ctx context.Context, idToken string) (domain.Claims, error) {
	return f(ctx, idToken)
}

func newTestHandler(t *testing.T, fetcher domain.AuthDataFetcher) http.HandlerFunc {
	t.Helper()
	verifier := verifierFunc(func(_ context.Context, _ string) (domain.Claims, error) {
		return domain.Claims{domain.ClaimEmailVerified: true}, nil
	})
	resolver, err := application.NewTokenResolver(domain.NopLogger{}, nil, fetcher, verifier, nil)
	require.NoError(t, err)
	return TokenHandler(resolver, domain.NopLogger{})
}

func mockFetcher(data domain.AuthData) fetcherFunc {
	return func(_ context.Context, _ string) (domain.AuthData, error) {
		return data, nil
	}
}

func TestTokenHandlerMissingCookie(t *testing.T) {
	handler := newTestHandler(t, mockFetcher(nil))

	req := httptest.NewRequest(http.MethodGet, "/v1/token", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"BLOCKED","reason":"BAD_SESSION_ID"}`, rec.Body.String())
}

func TestTokenHandlerSuccessReturnsBareToken(t *testing.T) {
	handler := newTestHandler(t, mockFetcher(domain.AuthData{
		"id_token":     "MOCK_ID_TOKEN",
		"access_token": "MOCK_ACCESS_TOKEN",
		"email":        "MOCK_EMAIL",
	}))

	cases := []struct {
		query string
		want  string
	}{
		{"", "MOCK_ID_TOKEN"},
		{"?token_type=id_token", "MOCK_ID_TOKEN"},
		{"?token_type=access_token", "MOCK_ACCESS_TOKEN"},
		{"?token_type=email", "MOCK_EMAIL"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/v1/token"+tc.query, nil)
		req.AddCookie(&http.Cookie{Name: "session_id", Value: "MOCK_SESSION_ID"})
		rec := httptest.NewRecorder()
		handler(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, "query %q", tc.query)
		assert.Equal(t, tc.want, rec.Body.String(), "query %q", tc.query)
	}
}

func TestTokenHandlerUnknownSession(t *testing.T) {
	handler := newTestHandler(t, fetcherFunc(func(_ context.Context, _ string) (domain.AuthData, error) {
		return nil, fmt.Errorf("lookup: %w", domain.ErrSessionUnknown)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/token", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "UNKNOWN_SESSION_ID"})
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"BLOCKED","reason":"REJECTED_REQUEST"}`, rec.Body.String())
}

func TestTokenHandlerUnsupportedTokenType(t *testing.T) {
	handler := newTestHandler(t, mockFetcher(domain.AuthData{"id_token": "MOCK_ID_TOKEN"}))

	req := httptest.NewRequest(http.MethodGet, "/v1/token?token_type=UNKNOWN", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "MOCK_SESSION_ID"})
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"status":"BLOCKED","reason":"Requested token_type \"UNKNOWN\" not one of [\"access_token\",\"id_token\",\"email\"]"}`, rec.Body.String())
}
