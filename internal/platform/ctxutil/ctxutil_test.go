// Copyright (c) 2026 Placely. All rights reserved.
// Author: dev@placely.io

package ctxutil_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/placely/auth-service/internal/platform/apperr"
	"github.com/placely/auth-service/internal/platform/ctxutil"
	"github.com/placely/auth-service/internal/platform/sec"
)

/*
TestContext_RequestID verifies that Request IDs can be injected and retrieved.
*/
func TestContext_RequestID(t *testing.T) {
	ctx := context.Background()
	requestID := "test-request-id"

	// 1. Initially should be empty
	assert.Empty(t, ctxutil.GetRequestID(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithRequestID(ctx, requestID)
	assert.Equal(t, requestID, ctxutil.GetRequestID(ctx))
}

/*
TestContext_Logger verifies that a custom logger can be stored in context.
*/
func TestContext_Logger(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// 1. Initially should return the default logger
	assert.Equal(t, slog.Default(), ctxutil.GetLogger(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithLogger(ctx, logger)
	assert.Equal(t, logger, ctxutil.GetLogger(ctx))
}

/*
TestContext_AuthUser verifies that token claims can be stored in context.
*/
func TestContext_AuthUser(t *testing.T) {
	ctx := context.Background()
	claims := &sec.TokenClaims{
		TokenType: sec.TokenTypeAccess,
		Roles:     []string{"ADMIN"},
	}
	claims.Subject = "123"

	// 1. Initially should be nil
	assert.Nil(t, ctxutil.GetAuthUser(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithAuthUser(ctx, claims)
	retrieved := ctxutil.GetAuthUser(ctx)

	assert.NotNil(t, retrieved)
	assert.Equal(t, "123", retrieved.Subject)
	assert.Equal(t, []string{"ADMIN"}, retrieved.Roles)
}

/*
TestContext_AuthError verifies that deferred auth failures can be stashed.
*/
func TestContext_AuthError(t *testing.T) {
	ctx := context.Background()
	authErr := apperr.UnauthorizedCode(sec.CodeTokenExpired, "Token has expired")

	// 1. Initially should be nil
	assert.Nil(t, ctxutil.GetAuthError(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithAuthError(ctx, authErr)
	retrieved := ctxutil.GetAuthError(ctx)

	assert.NotNil(t, retrieved)
	assert.Equal(t, sec.CodeTokenExpired, retrieved.Code)
}
