// Copyright (c) 2026 Placely. All rights reserved.
// Author: dev@placely.io

/*
Package auth implements the credential and session lifecycle layer.

It defines the core domain entities (Account, TokenRecord, SessionEntry) and
the logic for authentication, token issuance, and account lockout.

# Architecture

This layer is the "Truth" of the system. The PostgreSQL token ledger is the
authoritative record of which tokens are live; the Redis session cache is a
disposable read-side mirror. Entities defined here have no transport
dependencies and encapsulate all business rules related to identity.
*/
package auth

import (
	"time"

	"github.com/placely/auth-service/internal/platform/sec"
)

// # Account Status

// AccountStatus represents the lifecycle state of an account.
type AccountStatus string

const (
	StatusActive    AccountStatus = "ACTIVE"
	StatusInactive  AccountStatus = "INACTIVE"
	StatusSuspended AccountStatus = "SUSPENDED"
	StatusPending   AccountStatus = "PENDING"
)

// # Domain Entities

// Account represents a registered Placely user.
type Account struct {
	ID           int64           `json:"id"`
	Username     string          `json:"username"`
	Email        string          `json:"email"`
	PasswordHash string          `json:"-"` // Explicitly omitted from JSON for security.
	FullName     string          `json:"full_name,omitempty"`
	Phone        string          `json:"phone,omitempty"`
	BirthDate    *time.Time      `json:"birth_date,omitempty"`
	Gender       string          `json:"gender,omitempty"`
	Role         sec.AccountRole `json:"role"`
	Status       AccountStatus   `json:"status"`

	// Brute-force lockout state. Mutated only through atomic repository
	// operations, never by read-modify-write in the service layer.
	FailedLoginCount int        `json:"-"`
	LockedUntil      *time.Time `json:"-"`

	LastLoginAt       *time.Time `json:"last_login_at,omitempty"`
	PasswordChangedAt *time.Time `json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// IsLocked reports whether the account is under an active lockout window.
// An elapsed LockedUntil means the lock has expired; counters are only reset
// on the next successful login.
func (account *Account) IsLocked(now time.Time) bool {
	return account.LockedUntil != nil && account.LockedUntil.After(now)
}

// IsActive reports whether the account may authenticate at all.
func (account *Account) IsActive() bool {
	return account.Status == StatusActive
}

// TokenRecord is one row of the token ledger: a single issued token,
// identified by the SHA-256 hash of its signed form.
type TokenRecord struct {
	ID        int64      `json:"id"`
	AccountID int64      `json:"account_id"`
	TokenType string     `json:"token_type"`
	TokenHash string     `json:"-"` // Digest of the signed token. Omitted for security.
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// SessionEntry is the volatile session descriptor mirrored into Redis,
// keyed by refresh token hash.
type SessionEntry struct {
	AccountID int64     `json:"account_id"`
	UserAgent string    `json:"user_agent,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	IssuedAt  time.Time `json:"issued_at"`
}

// # Field Identifiers

// Global field names for validation and identity mapping in the authentication domain.
const (
	FieldUsername     = "username"
	FieldEmail        = "email"
	FieldPassword     = "password"
	FieldFullName     = "fullName"
	FieldPhone        = "phone"
	FieldBirthDate    = "birthDate"
	FieldGender       = "gender"
	FieldRefreshToken = "refreshToken"
	FieldOldPassword  = "oldPassword"
	FieldNewPassword  = "newPassword"
)
