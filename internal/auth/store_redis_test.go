// Copyright (c) 2026 Placely. All rights reserved.
// Author: dev@placely.io

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/placely/auth-service/internal/auth"
)

/*
TestRedisSessionCache_RejectsNonPositiveTTL verifies the TTL guard fires
before any client call. The cache is constructed with a nil client, so
reaching Redis would panic — the guard must short-circuit first.
*/
func TestRedisSessionCache_RejectsNonPositiveTTL(t *testing.T) {
	cache := auth.NewSessionCache(nil)
	entry := auth.SessionEntry{AccountID: 1, IssuedAt: time.Now()}

	err := cache.Put(context.Background(), "somehash", entry, 0)
	assert.Error(t, err)

	err = cache.Put(context.Background(), "somehash", entry, -time.Minute)
	assert.Error(t, err)
}
