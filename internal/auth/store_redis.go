// Copyright (c) 2026 Placely. All rights reserved.
// Author: dev@placely.io

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/placely/auth-service/internal/platform/apperr"
	"github.com/placely/auth-service/internal/platform/constants"
)

// RedisSessionCache implements SessionCache using Redis.
//
// Entries live exactly as long as the refresh token they mirror: the TTL
// passed to Put is always (token expiry - now), so Redis expiry and ledger
// expiry stay aligned without a cleanup job.
type RedisSessionCache struct {
	client *redis.Client
}

// NewSessionCache creates a new Redis-backed SessionCache.
func NewSessionCache(client *redis.Client) *RedisSessionCache {
	return &RedisSessionCache{client: client}
}

/*
Put stores a session entry under the token hash with the given TTL.

Description: A non-positive TTL is a caller bug (it would either error out in
Redis or persist the key forever, depending on value); it is rejected before
the client is touched.

Parameters:
  - context: context.Context
  - tokenHash: string
  - entry: SessionEntry
  - ttl: time.Duration

Returns:
  - error: Invalid TTL, marshaling, or execution errors
*/
func (cache *RedisSessionCache) Put(context context.Context, tokenHash string, entry SessionEntry, ttl time.Duration) error {

	// Guard the TTL before any network round trip
	if ttl <= 0 {
		return fmt.Errorf("redis_session_put_invalid_ttl: ttl must be positive, got %s", ttl)
	}

	// Use constants for key prefix
	key := constants.RedisPrefixSession + tokenHash

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("redis_session_marshal_failed: %w", err)
	}

	// Set the entry with TTL
	if err := cache.client.Set(context, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis_session_put_failed: %w", err)
	}

	// Return nil on success
	return nil
}

/*
Get retrieves the session entry for a given token hash.

Description: Returns apperr.NotFound if the entry is absent or expired.
Absence is NOT evidence of invalidity — the ledger decides that.

Parameters:
  - context: context.Context
  - tokenHash: string

Returns:
  - *SessionEntry: Hydrated entry
  - error: apperr.NotFound or connectivity errors
*/
func (cache *RedisSessionCache) Get(context context.Context, tokenHash string) (*SessionEntry, error) {

	// Use constants for key prefix
	key := constants.RedisPrefixSession + tokenHash

	// Get the entry from Redis
	payload, err := cache.client.Get(context, key).Bytes()

	// Handle errors
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperr.NotFound("Session")
		}
		return nil, fmt.Errorf("redis_session_get_failed: %w", err)
	}

	entry := &SessionEntry{}
	if err := json.Unmarshal(payload, entry); err != nil {
		return nil, fmt.Errorf("redis_session_unmarshal_failed: %w", err)
	}

	// Return the entry
	return entry, nil
}

/*
Delete removes the session entry for a token hash.

Description: Deleting an absent key is a success (idempotent).

Parameters:
  - context: context.Context
  - tokenHash: string

Returns:
  - error: Deletion failures
*/
func (cache *RedisSessionCache) Delete(context context.Context, tokenHash string) error {

	// Use constants for key prefix
	key := constants.RedisPrefixSession + tokenHash

	// Delete the entry from Redis
	if err := cache.client.Del(context, key).Err(); err != nil {
		return fmt.Errorf("redis_session_delete_failed: %w", err)
	}

	// Return nil on success
	return nil
}

/*
Exists reports whether a session entry is present for the token hash.

Parameters:
  - context: context.Context
  - tokenHash: string

Returns:
  - bool: Presence flag
  - error: Execution errors
*/
func (cache *RedisSessionCache) Exists(context context.Context, tokenHash string) (bool, error) {

	// Use constants for key prefix
	key := constants.RedisPrefixSession + tokenHash

	count, err := cache.client.Exists(context, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis_session_exists_failed: %w", err)
	}

	return count > 0, nil
}
