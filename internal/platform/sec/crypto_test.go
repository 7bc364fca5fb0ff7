// Copyright (c) 2026 Placely. All rights reserved.
// Author: dev@placely.io

package sec_test

import (
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placely/auth-service/internal/platform/sec"
)

func newTestKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(key)
}

/*
TestHashToken verifies the digest is deterministic and input-sensitive.
*/
func TestHashToken(t *testing.T) {
	first := sec.HashToken("some.jwt.token")
	second := sec.HashToken("some.jwt.token")
	different := sec.HashToken("some.jwt.token2")

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, different)
	assert.Len(t, first, 64) // hex-encoded SHA-256
}

/*
TestFieldCipher_RoundTrip verifies encryption round trips and that equal
plaintexts never produce equal ciphertexts.
*/
func TestFieldCipher_RoundTrip(t *testing.T) {
	cipher, err := sec.NewFieldCipher(newTestKey(t))
	require.NoError(t, err)

	first, err := cipher.Encrypt("+84 901 234 567")
	require.NoError(t, err)
	second, err := cipher.Encrypt("+84 901 234 567")
	require.NoError(t, err)

	// Fresh nonce per call
	assert.NotEqual(t, first, second)

	decrypted, err := cipher.Decrypt(first)
	require.NoError(t, err)
	assert.Equal(t, "+84 901 234 567", decrypted)
}

/*
TestFieldCipher_EmptyPassthrough verifies empty values skip encryption.
*/
func TestFieldCipher_EmptyPassthrough(t *testing.T) {
	cipher, err := sec.NewFieldCipher(newTestKey(t))
	require.NoError(t, err)

	encrypted, err := cipher.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, encrypted)

	decrypted, err := cipher.Decrypt("")
	require.NoError(t, err)
	assert.Empty(t, decrypted)
}

/*
TestFieldCipher_WrongKey verifies ciphertext fails authentication under a
different key.
*/
func TestFieldCipher_WrongKey(t *testing.T) {
	cipherA, err := sec.NewFieldCipher(newTestKey(t))
	require.NoError(t, err)
	cipherB, err := sec.NewFieldCipher(newTestKey(t))
	require.NoError(t, err)

	encrypted, err := cipherA.Encrypt("Nguyen Van A")
	require.NoError(t, err)

	_, err = cipherB.Decrypt(encrypted)
	assert.Error(t, err)
}

/*
TestNewFieldCipher_KeyValidation rejects malformed keys.
*/
func TestNewFieldCipher_KeyValidation(t *testing.T) {
	// Not base64
	_, err := sec.NewFieldCipher("%%%not-base64%%%")
	assert.Error(t, err)

	// Too short (16 bytes)
	shortKey := base64.StdEncoding.EncodeToString(make([]byte, 16))
	_, err = sec.NewFieldCipher(shortKey)
	assert.Error(t, err)
}
