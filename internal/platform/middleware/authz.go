// Copyright (c) 2026 Placely. All rights reserved.
// Author: dev@placely.io

// Package middleware provides the HTTP middleware chain for the auth API server.
//
// # Architecture
//
// Middleware intercepts incoming HTTP requests to apply global policies
// before they reach the domain handlers. This includes cross-cutting concerns
// like Logging, AuthZ/AuthN, Rate Limiting, and CORS.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/placely/auth-service/internal/platform/apperr"
	"github.com/placely/auth-service/internal/platform/ctxkey"
	"github.com/placely/auth-service/internal/platform/ctxutil"
	"github.com/placely/auth-service/internal/platform/respond"
	"github.com/placely/auth-service/internal/platform/sec"
)

// TokenDecoder defines the interface needed to verify tokens in middleware.
//
// # Why an interface?
//
// Defining TokenDecoder here decouples the middleware from the [sec.Codec]
// implementation, allowing us to easily inject mocks during unit testing.
type TokenDecoder interface {
	Decode(tokenString string) (*sec.TokenClaims, error)
}

// Authenticate extracts and verifies the JWT from the Authorization header.
//
// # Flow
//  1. Check for 'Authorization: Bearer <token>' header.
//  2. If absent, request proceeds as anonymous.
//  3. If present, parse and verify the JWT via [TokenDecoder].
//  4. On success, inject [*sec.TokenClaims] into the request context.
//  5. On ANY failure, stash the decode error in the context and continue.
//
// The filter never rejects a request itself. A bad token on a public route
// is indistinguishable from no token; protected routes render the stashed
// error through [RequireAuth]. This keeps login and signup reachable for
// clients still holding an expired token.
func Authenticate(decoder TokenDecoder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			authHeader := request.Header.Get("Authorization")

			// ── 1. Anonymous Access ───────────────────────────────────────────
			if authHeader == "" {
				next.ServeHTTP(writer, request)
				return
			}

			// ── 2. Format Validation ──────────────────────────────────────────
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				ctx := ctxutil.WithAuthError(request.Context(),
					apperr.UnauthorizedCode(sec.CodeTokenMalformed, "Invalid authorization format"))
				next.ServeHTTP(writer, request.WithContext(ctx))
				return
			}

			// ── 3. Token Verification ─────────────────────────────────────────
			claims, err := decoder.Decode(parts[1])
			if err != nil {
				authErr := apperr.As(err)
				if authErr == nil {
					authErr = apperr.Unauthorized("Invalid or expired token")
				}
				ctx := ctxutil.WithAuthError(request.Context(), authErr)
				next.ServeHTTP(writer, request.WithContext(ctx))
				return
			}

			// ── 4. Kind Check ─────────────────────────────────────────────────
			// Only ACCESS tokens authenticate API requests. A refresh token in
			// the Authorization header is handled by the logout/refresh
			// endpoints themselves, never by the filter.
			if claims.TokenType != sec.TokenTypeAccess {
				ctx := ctxutil.WithAuthError(request.Context(),
					apperr.UnauthorizedCode(sec.CodeTokenTypeMismatch, "Expected an ACCESS token"))
				next.ServeHTTP(writer, request.WithContext(ctx))
				return
			}

			// ── 5. Context Injection ──────────────────────────────────────────
			ctx := context.WithValue(request.Context(), ctxkey.KeyUser, claims)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireAuth blocks requests that are not authenticated.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate].
//
// # Flow
//  1. Check if [*sec.TokenClaims] exists in context.
//  2. If missing, render the deferred decode error if one was stashed.
//  3. Otherwise abort with a generic HTTP 401 Unauthorized.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		claims := GetUser(request.Context())
		if claims == nil {
			if authErr := ctxutil.GetAuthError(request.Context()); authErr != nil {
				respond.Error(writer, request, authErr)
				return
			}
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// RequireRole blocks requests if the authenticated user doesn't have the required role.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate]. It automatically implies
// [RequireAuth] so you don't need to mount both.
//
// # Flow
//  1. Check if [*sec.TokenClaims] exists in context (implies AuthN).
//  2. Check if any of the user's roles meets or exceeds the target via [sec.AccountRole.AtLeast].
//  3. If insufficient, abort with HTTP 403 Forbidden.
func RequireRole(role sec.AccountRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			claims := GetUser(request.Context())

			// ── 1. Authentication Check ───────────────────────────────────────
			if claims == nil {
				if authErr := ctxutil.GetAuthError(request.Context()); authErr != nil {
					respond.Error(writer, request, authErr)
					return
				}
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}

			// ── 2. Authorization Check ────────────────────────────────────────
			isAllowed := false
			for _, held := range claims.Roles {
				if sec.AccountRole(held).AtLeast(role) {
					isAllowed = true
					break
				}
			}
			if !isAllowed {
				respond.Error(writer, request, apperr.Forbidden("Insufficient permissions"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// GetUser retrieves the [*sec.TokenClaims] from the [context.Context].
//
// # Returns
//   - A pointer to [*sec.TokenClaims] if the user is authenticated.
//   - nil if the user is anonymous.
func GetUser(ctx context.Context) *sec.TokenClaims {
	claims, ok := ctx.Value(ctxkey.KeyUser).(*sec.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}
