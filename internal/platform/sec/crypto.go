// Copyright (c) 2026 Placely. All rights reserved.
// Author: dev@placely.io

package sec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// # Token Fingerprinting

// HashToken returns the hex-encoded SHA-256 digest of a token string.
//
// The token ledger and the session cache store this digest instead of the
// raw token, so a database or cache dump never yields usable credentials.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// # Field Encryption

// FieldCipher encrypts individual PII columns with AES-256-GCM before they
// reach persistent storage.
//
// # Format
//
// Ciphertext is base64(nonce || sealed). The nonce is generated fresh for
// every Encrypt call, so equal plaintexts never produce equal ciphertexts.
// As a consequence encrypted columns cannot be used in equality lookups.
type FieldCipher struct {
	aead cipher.AEAD
}

// NewFieldCipher builds a [FieldCipher] from a base64-encoded 32-byte key.
func NewFieldCipher(base64Key string) (*FieldCipher, error) {
	key, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return nil, fmt.Errorf("sec_field_cipher_key_decode_failed: %w", err)
	}

	if len(key) != 32 {
		return nil, fmt.Errorf("sec_field_cipher_key_invalid: expected 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("sec_field_cipher_init_failed: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("sec_field_cipher_gcm_failed: %w", err)
	}

	return &FieldCipher{aead: aead}, nil
}

/*
Encrypt seals a plaintext field value.

Empty strings pass through unchanged so that optional columns stay NULL-ish
instead of becoming ciphertext of nothing.

Parameters:
  - plaintext: string

Returns:
  - string: base64(nonce || ciphertext)
  - error: Nonce generation failures
*/
func (fc *FieldCipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, fc.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("sec_field_cipher_nonce_failed: %w", err)
	}

	sealed := fc.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

/*
Decrypt opens a value produced by [FieldCipher.Encrypt].

Parameters:
  - encoded: string

Returns:
  - string: Original plaintext
  - error: Decode or authentication failures (wrong key, truncated data)
*/
func (fc *FieldCipher) Decrypt(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}

	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("sec_field_cipher_decode_failed: %w", err)
	}

	nonceSize := fc.aead.NonceSize()
	if len(sealed) < nonceSize {
		return "", fmt.Errorf("sec_field_cipher_ciphertext_too_short: %d bytes", len(sealed))
	}

	plaintext, err := fc.aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("sec_field_cipher_open_failed: %w", err)
	}

	return string(plaintext), nil
}
