// Copyright (c) 2026 Placely. All rights reserved.
// Author: dev@placely.io

package sec_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placely/auth-service/internal/platform/apperr"
	"github.com/placely/auth-service/internal/platform/sec"
)

func newTestCodec() *sec.Codec {
	return sec.NewCodec("test-secret-key-for-hs512-signing", "placely-test", 30*time.Minute, 7*24*time.Hour)
}

/*
TestCodec_MintAndDecode verifies the full sign/verify round trip for both
token kinds.
*/
func TestCodec_MintAndDecode(t *testing.T) {
	codec := newTestCodec()
	now := time.Now()

	accessToken, accessExpiry, err := codec.MintAccess("42", []string{"CUSTOMER"}, now)
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(30*time.Minute), accessExpiry, time.Second)

	claims, err := codec.Decode(accessToken)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "placely-test", claims.Issuer)
	assert.Equal(t, sec.TokenTypeAccess, claims.TokenType)
	assert.Equal(t, []string{"CUSTOMER"}, claims.Roles)

	refreshToken, refreshExpiry, err := codec.MintRefresh("42", now)
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(7*24*time.Hour), refreshExpiry, time.Second)

	refreshClaims, err := codec.Decode(refreshToken)
	require.NoError(t, err)
	assert.Equal(t, sec.TokenTypeRefresh, refreshClaims.TokenType)
	assert.Empty(t, refreshClaims.Roles)
}

/*
TestCodec_MintUniqueness verifies two tokens minted for the same subject and
kind at the same instant are distinct. JWT timestamps only carry seconds, so
without a per-token jti both the token strings and their ledger hashes would
collide.
*/
func TestCodec_MintUniqueness(t *testing.T) {
	codec := newTestCodec()
	now := time.Now()

	first, _, err := codec.MintRefresh("42", now)
	require.NoError(t, err)
	second, _, err := codec.MintRefresh("42", now)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.NotEqual(t, sec.HashToken(first), sec.HashToken(second))

	claims, err := codec.Decode(first)
	require.NoError(t, err)
	assert.NotEmpty(t, claims.ID)
}

/*
TestCodec_Decode_FailureCodes exercises every decode failure mode and asserts
the distinct machine code attached to each one.
*/
func TestCodec_Decode_FailureCodes(t *testing.T) {
	codec := newTestCodec()
	now := time.Now()

	validToken, _, err := codec.MintAccess("42", nil, now)
	require.NoError(t, err)

	// Token signed with a different secret: signature does not verify.
	foreignCodec := sec.NewCodec("a-completely-different-secret-key", "placely-test", time.Hour, time.Hour)
	foreignToken, _, err := foreignCodec.MintAccess("42", nil, now)
	require.NoError(t, err)

	// Token minted in the past so it is already expired.
	expiredToken, _, err := codec.MintAccess("42", nil, now.Add(-2*time.Hour))
	require.NoError(t, err)

	// Valid structure, corrupted signature segment.
	parts := strings.Split(validToken, ".")
	signature := []byte(parts[2])
	if signature[0] == 'A' {
		signature[0] = 'B'
	} else {
		signature[0] = 'A'
	}
	tamperedToken := parts[0] + "." + parts[1] + "." + string(signature)

	tests := []struct {
		name         string
		token        string
		expectedCode string
	}{
		{"empty_token", "", sec.CodeTokenMissing},
		{"garbage_token", "not-a-jwt-at-all", sec.CodeTokenMalformed},
		{"expired_token", expiredToken, sec.CodeTokenExpired},
		{"wrong_secret", foreignToken, sec.CodeTokenTampered},
		{"corrupted_signature", tamperedToken, sec.CodeTokenTampered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Decode(tt.token)
			require.Error(t, err)

			ae := apperr.As(err)
			require.NotNil(t, ae)
			assert.Equal(t, tt.expectedCode, ae.Code)
			assert.Equal(t, 401, ae.HTTPStatus)
		})
	}
}

/*
TestCodec_DecodeOfType rejects tokens of the wrong kind.
*/
func TestCodec_DecodeOfType(t *testing.T) {
	codec := newTestCodec()
	now := time.Now()

	refreshToken, _, err := codec.MintRefresh("42", now)
	require.NoError(t, err)

	// A refresh token where an access token is expected
	_, err = codec.DecodeOfType(refreshToken, sec.TokenTypeAccess)
	require.Error(t, err)

	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, sec.CodeTokenTypeMismatch, ae.Code)

	// The right kind passes
	claims, err := codec.DecodeOfType(refreshToken, sec.TokenTypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
}

/*
TestCodec_NearExpiry verifies the rotation decision boundary.
*/
func TestCodec_NearExpiry(t *testing.T) {
	codec := newTestCodec()
	now := time.Now()

	refreshToken, _, err := codec.MintRefresh("42", now)
	require.NoError(t, err)

	claims, err := codec.Decode(refreshToken)
	require.NoError(t, err)

	// 7d lifetime: not near a 1h threshold, near an 8d threshold
	assert.False(t, codec.NearExpiry(claims, time.Hour, now))
	assert.True(t, codec.NearExpiry(claims, 8*24*time.Hour, now))
}
