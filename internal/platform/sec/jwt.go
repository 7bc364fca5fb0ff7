// Copyright (c) 2026 Placely. All rights reserved.
// Author: dev@placely.io

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing, Field
// Encryption) from the domain logic. It acts as an Infrastructure service
// injected into the Application layer.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/placely/auth-service/internal/platform/apperr"
)

// # Token Kinds

const (
	// TokenTypeAccess marks a short-lived token presented on API requests.
	TokenTypeAccess = "ACCESS"

	// TokenTypeRefresh marks a long-lived token exchanged for new access tokens.
	TokenTypeRefresh = "REFRESH"
)

// # Decode Failure Codes

// Machine codes attached to 401 responses by [Codec.Decode]. Each decode
// failure mode gets its own code so API clients can distinguish "re-login"
// from "refresh" from "you are under attack".
const (
	CodeTokenMissing      = "TOKEN_MISSING"
	CodeTokenMalformed    = "TOKEN_MALFORMED"
	CodeTokenExpired      = "TOKEN_EXPIRED"
	CodeTokenTampered     = "TOKEN_TAMPERED"
	CodeTokenTypeMismatch = "TOKEN_TYPE_MISMATCH"
	CodeTokenNotFound     = "TOKEN_NOT_FOUND"
)

// TokenClaims represents the payload embedded inside a signed token.
//
// # Why custom claims?
//
// By embedding the token kind and role set directly inside the JWT, the
// authentication filter can reconstruct the active user context WITHOUT
// querying the database on every single API request.
type TokenClaims struct {
	jwt.RegisteredClaims

	// TokenType discriminates ACCESS from REFRESH tokens. A refresh token
	// must never be accepted where an access token is expected, and vice versa.
	TokenType string `json:"type"`

	// Roles carries the account's authorization roles. Access tokens only.
	Roles []string `json:"roles,omitempty"`
}

// Codec mints and verifies HMAC-signed (HS512) tokens.
//
// # Key Handling
//
// The signing key is fixed at construction. There is no runtime key rotation;
// rotating the secret invalidates every outstanding token.
type Codec struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewCodec creates a token [Codec] from the shared signing secret.
func NewCodec(secret, issuer string, accessTTL, refreshTTL time.Duration) *Codec {
	return &Codec{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// AccessTTL returns the configured access token lifetime.
func (codec *Codec) AccessTTL() time.Duration { return codec.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (codec *Codec) RefreshTTL() time.Duration { return codec.refreshTTL }

/*
MintAccess creates a signed ACCESS token for the given subject.

Parameters:
  - subject: string (Account ID)
  - roles: []string
  - now: time.Time

Returns:
  - string: Signed compact JWT
  - time.Time: Expiry instant
  - error: Signing failures
*/
func (codec *Codec) MintAccess(subject string, roles []string, now time.Time) (string, time.Time, error) {
	return codec.mint(subject, TokenTypeAccess, roles, now, codec.accessTTL)
}

/*
MintRefresh creates a signed REFRESH token for the given subject.

Refresh tokens carry no roles: authorization is always re-derived from the
account when the token is exchanged.

Parameters:
  - subject: string (Account ID)
  - now: time.Time

Returns:
  - string: Signed compact JWT
  - time.Time: Expiry instant
  - error: Signing failures
*/
func (codec *Codec) MintRefresh(subject string, now time.Time) (string, time.Time, error) {
	return codec.mint(subject, TokenTypeRefresh, nil, now, codec.refreshTTL)
}

// mint signs a token of the given kind with the standard claim set.
func (codec *Codec) mint(subject, tokenType string, roles []string, now time.Time, ttl time.Duration) (string, time.Time, error) {
	expiresAt := now.Add(ttl)

	// The jti keeps every minted token unique. JWT timestamps have second
	// granularity and HMAC signing is deterministic, so without it two tokens
	// for the same subject and kind minted within one second would be
	// byte-identical and collide in the ledger.
	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    codec.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		TokenType: tokenType,
		Roles:     roles,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signedToken, err := token.SignedString(codec.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sec_token_sign_failed: %w", err)
	}

	return signedToken, expiresAt, nil
}

/*
Decode verifies the signature and validity of a token string.

Description: Every failure mode maps to a distinct [apperr.AppError] code so
the transport layer can surface precise 401 responses.

Parameters:
  - tokenString: string

Returns:
  - *TokenClaims: Verified claims
  - error: apperr with TOKEN_MISSING / TOKEN_MALFORMED / TOKEN_EXPIRED / TOKEN_TAMPERED
*/
func (codec *Codec) Decode(tokenString string) (*TokenClaims, error) {
	if tokenString == "" {
		return nil, apperr.UnauthorizedCode(CodeTokenMissing, "Token is missing")
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Reject any algorithm other than HMAC to prevent downgrade tricks.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec_unexpected_signing_method: %v", token.Header["alg"])
		}
		return codec.secret, nil
	})

	if err != nil {
		return nil, classifyDecodeError(err)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, apperr.UnauthorizedCode(CodeTokenTampered, "Token is invalid")
	}

	return claims, nil
}

/*
DecodeOfType verifies a token and additionally checks its kind.

Parameters:
  - tokenString: string
  - tokenType: string (TokenTypeAccess or TokenTypeRefresh)

Returns:
  - *TokenClaims: Verified claims of the expected kind
  - error: Decode failures or TOKEN_TYPE_MISMATCH
*/
func (codec *Codec) DecodeOfType(tokenString, tokenType string) (*TokenClaims, error) {
	claims, err := codec.Decode(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.TokenType != tokenType {
		return nil, apperr.UnauthorizedCode(CodeTokenTypeMismatch,
			fmt.Sprintf("Expected a %s token", tokenType))
	}

	return claims, nil
}

// NearExpiry reports whether the claims expire within the given threshold.
//
// Used to decide refresh token rotation: a refresh token is only replaced
// when it is close to its own expiry, keeping the common exchange path cheap.
func (codec *Codec) NearExpiry(claims *TokenClaims, threshold time.Duration, now time.Time) bool {
	if claims.ExpiresAt == nil {
		return true
	}
	return claims.ExpiresAt.Time.Sub(now) < threshold
}

// classifyDecodeError maps jwt/v5 sentinel errors to the token failure taxonomy.
func classifyDecodeError(err error) *apperr.AppError {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return apperr.UnauthorizedCode(CodeTokenMalformed, "Token is malformed")
	case errors.Is(err, jwt.ErrTokenExpired):
		return apperr.UnauthorizedCode(CodeTokenExpired, "Token has expired")
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return apperr.UnauthorizedCode(CodeTokenTampered, "Token signature is invalid")
	default:
		// Unknown verification failures are treated as tampering. Safer to
		// over-classify than to leak a softer error for a forged token.
		return apperr.UnauthorizedCode(CodeTokenTampered, "Token is invalid")
	}
}
