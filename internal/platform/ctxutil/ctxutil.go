// Copyright (c) 2026 Placely. All rights reserved.
// Author: dev@placely.io

// Package ctxutil provides helpers for interacting with values stored in [context.Context].
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/placely/auth-service/internal/platform/apperr"
	"github.com/placely/auth-service/internal/platform/ctxkey"
	"github.com/placely/auth-service/internal/platform/sec"
)

// # Request Tracing

// WithRequestID returns a new context with the provided request ID attached.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyRequestID, id)
}

// GetRequestID retrieves the request ID from the context.
// Returns an empty string if not found.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.KeyRequestID).(string)
	return id
}

// # Structured Logging

// WithLogger returns a new context with the provided logger attached.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.KeyLogger, logger)
}

// GetLogger retrieves the logger from the context.
// If no logger is found, it returns the global default logger.
func GetLogger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(ctxkey.KeyLogger).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return logger
}

// # Identity & Access

// WithAuthUser returns a new context with the provided token claims attached.
func WithAuthUser(ctx context.Context, claims *sec.TokenClaims) context.Context {
	return context.WithValue(ctx, ctxkey.KeyUser, claims)
}

// GetAuthUser retrieves the [*sec.TokenClaims] from the [context.Context].
// Returns nil for anonymous requests.
func GetAuthUser(ctx context.Context) *sec.TokenClaims {
	claims, ok := ctx.Value(ctxkey.KeyUser).(*sec.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}

// WithAuthError returns a new context carrying a deferred authentication failure.
//
// The authentication filter stashes decode failures here instead of rejecting
// the request, so public routes stay reachable with a bad token. Protected
// routes render the stashed error via [GetAuthError].
func WithAuthError(ctx context.Context, err *apperr.AppError) context.Context {
	return context.WithValue(ctx, ctxkey.KeyAuthError, err)
}

// GetAuthError retrieves a deferred authentication failure, or nil.
func GetAuthError(ctx context.Context) *apperr.AppError {
	authErr, ok := ctx.Value(ctxkey.KeyAuthError).(*apperr.AppError)
	if !ok {
		return nil
	}
	return authErr
}
