// Copyright (c) 2026 Placely. All rights reserved.
// Author: dev@placely.io

package auth_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placely/auth-service/internal/auth"
	"github.com/placely/auth-service/internal/platform/middleware"
	"github.com/placely/auth-service/internal/platform/sec"
)

// newTestRouter assembles the auth routes behind the real authentication
// filter, mirroring the production chain.
func newTestRouter(harness *serviceHarness) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Authenticate(harness.codec))
	router.Mount("/api/auth", auth.NewHandler(harness.service).Routes())
	return router
}

func postJSON(t *testing.T, router http.Handler, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	request := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	request.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		request.Header.Set(key, value)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func getPath(t *testing.T, router http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	request := httptest.NewRequest(http.MethodGet, path, nil)
	for key, value := range headers {
		request.Header.Set(key, value)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	body := map[string]any{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

/*
TestHTTP_Login_ResponseShape verifies the flat login response contract.
*/
func TestHTTP_Login_ResponseShape(t *testing.T) {
	harness := newServiceHarness(t, testPolicy())
	harness.seedAccount(t, "ana", "Sup3r$ecret")
	router := newTestRouter(harness)

	recorder := postJSON(t, router, "/api/auth/login", map[string]string{
		"username": "ana", "password": "Sup3r$ecret",
	}, nil)

	require.Equal(t, http.StatusOK, recorder.Code)

	body := decodeBody(t, recorder)
	assert.NotEmpty(t, body["accessToken"])
	assert.NotEmpty(t, body["refreshToken"])
	assert.Equal(t, "Bearer", body["tokenType"])
	// expiresIn reports the configured TTL exactly, never a wall-clock remainder
	assert.Equal(t, float64(30*60), body["expiresIn"])

	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ana", user["username"])
	assert.Equal(t, "CUSTOMER", user["role"])

	// The password hash never leaks
	_, hasHash := user["passwordHash"]
	assert.False(t, hasHash)
}

/*
TestHTTP_Login_GenericFailure verifies every credential gate failure renders
the same 401 body.
*/
func TestHTTP_Login_GenericFailure(t *testing.T) {
	harness := newServiceHarness(t, testPolicy())
	account := harness.seedAccount(t, "ana", "Sup3r$ecret")
	router := newTestRouter(harness)

	wrongPassword := postJSON(t, router, "/api/auth/login", map[string]string{
		"username": "ana", "password": "wrong",
	}, nil)
	unknownUser := postJSON(t, router, "/api/auth/login", map[string]string{
		"username": "ghost", "password": "wrong",
	}, nil)

	locked := time.Now().Add(30 * time.Minute)
	harness.accounts.accounts[account.ID].LockedUntil = &locked
	lockedAccount := postJSON(t, router, "/api/auth/login", map[string]string{
		"username": "ana", "password": "Sup3r$ecret",
	}, nil)

	for _, recorder := range []*httptest.ResponseRecorder{wrongPassword, unknownUser, lockedAccount} {
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)

		body := decodeBody(t, recorder)
		assert.Equal(t, auth.GenericCredentialMessage, body["error"])
		assert.Equal(t, "UNAUTHORIZED", body["code"])
	}

	// Identical bodies across all three failure modes
	assert.Equal(t, wrongPassword.Body.String(), unknownUser.Body.String())
	assert.Equal(t, wrongPassword.Body.String(), lockedAccount.Body.String())
}

/*
TestHTTP_Logout verifies logout semantics over the wire, including the
double-logout idempotency contract.
*/
func TestHTTP_Logout(t *testing.T) {
	harness := newServiceHarness(t, testPolicy())
	harness.seedAccount(t, "ana", "Sup3r$ecret")
	router := newTestRouter(harness)

	login := postJSON(t, router, "/api/auth/login", map[string]string{
		"username": "ana", "password": "Sup3r$ecret",
	}, nil)
	refreshToken := decodeBody(t, login)["refreshToken"].(string)

	// No Authorization header at all
	missing := postJSON(t, router, "/api/auth/logout", nil, nil)
	assert.Equal(t, http.StatusBadRequest, missing.Code)

	// First logout terminates the session
	first := postJSON(t, router, "/api/auth/logout", nil, map[string]string{
		"Authorization": "Bearer " + refreshToken,
	})
	assert.Equal(t, http.StatusOK, first.Code)
	assert.NotEmpty(t, decodeBody(t, first)["message"])

	// Second logout with the same (now dead) token still returns 200
	second := postJSON(t, router, "/api/auth/logout", nil, map[string]string{
		"Authorization": "Bearer " + refreshToken,
	})
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())

	// The revoked refresh token can no longer be exchanged
	refresh := postJSON(t, router, "/api/auth/refresh", map[string]string{
		"refreshToken": refreshToken,
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, refresh.Code)
	assert.Equal(t, sec.CodeTokenNotFound, decodeBody(t, refresh)["code"])
}

/*
TestHTTP_Refresh verifies the exchange endpoint and its validation.
*/
func TestHTTP_Refresh(t *testing.T) {
	harness := newServiceHarness(t, testPolicy())
	harness.seedAccount(t, "ana", "Sup3r$ecret")
	router := newTestRouter(harness)

	login := postJSON(t, router, "/api/auth/login", map[string]string{
		"username": "ana", "password": "Sup3r$ecret",
	}, nil)
	refreshToken := decodeBody(t, login)["refreshToken"].(string)

	// Empty body fails validation
	empty := postJSON(t, router, "/api/auth/refresh", map[string]string{}, nil)
	assert.Equal(t, http.StatusBadRequest, empty.Code)

	// Valid exchange: new access token, no rotation this far from expiry
	recorder := postJSON(t, router, "/api/auth/refresh", map[string]string{
		"refreshToken": refreshToken,
	}, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	body := decodeBody(t, recorder)
	assert.NotEmpty(t, body["accessToken"])
	assert.Equal(t, "Bearer", body["tokenType"])
	_, rotated := body["refreshToken"]
	assert.False(t, rotated)
}

/*
TestHTTP_Me_TokenCodes exercises the deferred authentication filter: each
decode failure mode surfaces its distinct machine code, but only on the
protected route.
*/
func TestHTTP_Me_TokenCodes(t *testing.T) {
	harness := newServiceHarness(t, testPolicy())
	harness.seedAccount(t, "ana", "Sup3r$ecret")
	router := newTestRouter(harness)

	login := postJSON(t, router, "/api/auth/login", map[string]string{
		"username": "ana", "password": "Sup3r$ecret",
	}, nil)
	loginBody := decodeBody(t, login)
	accessToken := loginBody["accessToken"].(string)
	refreshToken := loginBody["refreshToken"].(string)

	expiredCodec := sec.NewCodec("test-secret-key-for-hs512-signing", "placely-test", 30*time.Minute, time.Hour)
	expiredToken, _, err := expiredCodec.MintAccess("1", nil, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)

	tests := []struct {
		name         string
		header       string
		expectedCode string
	}{
		{"no_token", "", "UNAUTHORIZED"},
		{"malformed_scheme", "Basic abc123", sec.CodeTokenMalformed},
		{"garbage_token", "Bearer not-a-jwt", sec.CodeTokenMalformed},
		{"expired_token", "Bearer " + expiredToken, sec.CodeTokenExpired},
		{"refresh_token", "Bearer " + refreshToken, sec.CodeTokenTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.header != "" {
				headers["Authorization"] = tt.header
			}

			recorder := getPath(t, router, "/api/auth/me", headers)
			assert.Equal(t, http.StatusUnauthorized, recorder.Code)
			assert.Equal(t, tt.expectedCode, decodeBody(t, recorder)["code"])
		})
	}

	// A proper access token reaches the handler
	recorder := getPath(t, router, "/api/auth/me", map[string]string{
		"Authorization": "Bearer " + accessToken,
	})
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "ana", decodeBody(t, recorder)["username"])
}

/*
TestHTTP_PublicRoutes_IgnoreBadTokens verifies a dead token in the header does
not break public endpoints.
*/
func TestHTTP_PublicRoutes_IgnoreBadTokens(t *testing.T) {
	harness := newServiceHarness(t, testPolicy())
	harness.seedAccount(t, "ana", "Sup3r$ecret")
	router := newTestRouter(harness)

	// Login succeeds despite the garbage Authorization header
	recorder := postJSON(t, router, "/api/auth/login", map[string]string{
		"username": "ana", "password": "Sup3r$ecret",
	}, map[string]string{"Authorization": "Bearer expired-garbage"})

	assert.Equal(t, http.StatusOK, recorder.Code)
}

/*
TestHTTP_SignUpAndProbes verifies registration plus the availability probes.
*/
func TestHTTP_SignUpAndProbes(t *testing.T) {
	harness := newServiceHarness(t, testPolicy())
	router := newTestRouter(harness)

	created := postJSON(t, router, "/api/auth/signup", map[string]string{
		"username": "ana",
		"email":    "ana@placely.io",
		"password": "Sup3r$ecret",
		"fullName": "Ana Pham",
	}, nil)
	require.Equal(t, http.StatusCreated, created.Code)

	body := decodeBody(t, created)
	assert.Equal(t, "ana", body["username"])
	assert.NotZero(t, body["userId"])

	// Duplicate signup conflicts
	duplicate := postJSON(t, router, "/api/auth/signup", map[string]string{
		"username": "ana", "email": "other@placely.io", "password": "Sup3r$ecret",
	}, nil)
	assert.Equal(t, http.StatusConflict, duplicate.Code)

	// Probes
	taken := getPath(t, router, "/api/auth/check/username?username=ana", nil)
	require.Equal(t, http.StatusOK, taken.Code)
	assert.Equal(t, true, decodeBody(t, taken)["exists"])

	free := getPath(t, router, "/api/auth/check/email?email=free@placely.io", nil)
	require.Equal(t, http.StatusOK, free.Code)
	assert.Equal(t, false, decodeBody(t, free)["exists"])

	// Strength probe lists the failed rules
	weak := postJSON(t, router, "/api/auth/validate-password", map[string]string{"password": "weak"}, nil)
	require.Equal(t, http.StatusOK, weak.Code)

	verdict := decodeBody(t, weak)
	assert.Equal(t, false, verdict["valid"])
	assert.NotEmpty(t, verdict["reasons"])
}
