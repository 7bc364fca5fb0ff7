// Copyright (c) 2026 Placely. All rights reserved.
// Author: dev@placely.io

package auth

import (
	"context"
	"time"
)

// # Account Data Access

// AccountRepository defines the data access contract for user accounts.
type AccountRepository interface {

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: int64

		Returns:
		  - *Account: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByID(context context.Context, id int64) (*Account, error)

	/*
		FindByIdentifier returns the non-deleted account whose username OR
		email matches the login identifier. Login forms accept either.

		Parameters:
		  - context: context.Context
		  - identifier: string (username or email)

		Returns:
		  - *Account: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByIdentifier(context context.Context, identifier string) (*Account, error)

	/*
		Create persists a brand-new account and assigns its ID.

		Parameters:
		  - context: context.Context
		  - account: *Account

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, account *Account) error

	/*
		ExistsByUsername reports whether a non-deleted account holds the username.

		Parameters:
		  - context: context.Context
		  - username: string

		Returns:
		  - bool: Existence flag
		  - error: Database retrieval failures
	*/
	ExistsByUsername(context context.Context, username string) (bool, error)

	/*
		ExistsByEmail reports whether a non-deleted account holds the email.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - bool: Existence flag
		  - error: Database retrieval failures
	*/
	ExistsByEmail(context context.Context, email string) (bool, error)

	/*
		RecordLoginFailure atomically increments the failure counter and, when
		the counter reaches the threshold, assigns the lockout window. The
		increment and the lock assignment happen in ONE conditional UPDATE so
		concurrent failures can never lose a count.

		Parameters:
		  - context: context.Context
		  - id: int64
		  - threshold: int
		  - lockDuration: time.Duration

		Returns:
		  - bool: True when the account is locked after this failure
		  - error: Persistence failures
	*/
	RecordLoginFailure(context context.Context, id int64, threshold int, lockDuration time.Duration) (bool, error)

	/*
		RecordLoginSuccess clears the failure counter and lockout window and
		stamps last_login_at.

		Parameters:
		  - context: context.Context
		  - id: int64

		Returns:
		  - error: Persistence failures
	*/
	RecordLoginSuccess(context context.Context, id int64) error

	/*
		UpdateProfile applies a partial profile update. Nil fields are left
		unchanged.

		Parameters:
		  - context: context.Context
		  - id: int64
		  - update: ProfileUpdate

		Returns:
		  - int64: Number of rows updated (0 when the account is gone)
		  - error: Persistence failures
	*/
	UpdateProfile(context context.Context, id int64, update ProfileUpdate) (int64, error)

	/*
		UpdatePassword replaces the password hash, stamps password_changed_at,
		and clears any lockout state.

		Parameters:
		  - context: context.Context
		  - id: int64
		  - newHash: string

		Returns:
		  - error: Persistence failures
	*/
	UpdatePassword(context context.Context, id int64, newHash string) error
}

// ProfileUpdate carries the optional profile fields for a partial update.
type ProfileUpdate struct {
	Email     *string
	Phone     *string
	FullName  *string
	BirthDate *time.Time
	Gender    *string
}

// # Token Ledger Access

// TokenLedger defines the data access contract for the durable token ledger.
//
// The ledger is the authoritative source of token validity. A token whose
// signature verifies but whose ledger row is revoked or missing is dead.
type TokenLedger interface {

	/*
		RecordIssuance persists one row per minted token.

		Parameters:
		  - context: context.Context
		  - record: *TokenRecord

		Returns:
		  - error: Persistence failures
	*/
	RecordIssuance(context context.Context, record *TokenRecord) error

	/*
		FindValid returns the non-revoked, non-expired ledger row for a token hash.

		Parameters:
		  - context: context.Context
		  - tokenHash: string

		Returns:
		  - *TokenRecord: Hydrated entity
		  - error: apperr.NotFound when revoked, expired, or unknown
	*/
	FindValid(context context.Context, tokenHash string) (*TokenRecord, error)

	/*
		RevokeAllForAccount revokes every live token of an account in a single
		statement. Zero affected rows is a success (nothing to revoke).

		Parameters:
		  - context: context.Context
		  - accountID: int64

		Returns:
		  - int64: Number of tokens revoked
		  - error: Persistence failures
	*/
	RevokeAllForAccount(context context.Context, accountID int64) (int64, error)

	/*
		PurgeExpired physically removes ledger rows whose expiry predates the cutoff.

		Parameters:
		  - context: context.Context
		  - before: time.Time

		Returns:
		  - int64: Number of rows removed
		  - error: Cleanup failures
	*/
	PurgeExpired(context context.Context, before time.Time) (int64, error)

	/*
		PurgeRevoked physically removes rows revoked before the cutoff.

		Parameters:
		  - context: context.Context
		  - before: time.Time

		Returns:
		  - int64: Number of rows removed
		  - error: Cleanup failures
	*/
	PurgeRevoked(context context.Context, before time.Time) (int64, error)
}

// # Volatile Session Access

// SessionCache defines the contract for the volatile session mirror.
//
// Every operation is best-effort from the caller's point of view: the
// orchestrator logs failures and carries on, because the ledger remains
// authoritative regardless of cache state.
type SessionCache interface {

	/*
		Put stores a session entry under the token hash with the given TTL.
		A non-positive TTL is rejected before the client is touched.

		Parameters:
		  - context: context.Context
		  - tokenHash: string
		  - entry: SessionEntry
		  - ttl: time.Duration

		Returns:
		  - error: Invalid TTL or storage failures
	*/
	Put(context context.Context, tokenHash string, entry SessionEntry, ttl time.Duration) error

	/*
		Get retrieves the session entry for a token hash.

		Parameters:
		  - context: context.Context
		  - tokenHash: string

		Returns:
		  - *SessionEntry: Hydrated entry
		  - error: apperr.NotFound when absent or expired
	*/
	Get(context context.Context, tokenHash string) (*SessionEntry, error)

	/*
		Delete removes the session entry for a token hash. Removing an absent
		entry is a success.

		Parameters:
		  - context: context.Context
		  - tokenHash: string

		Returns:
		  - error: Deletion failures
	*/
	Delete(context context.Context, tokenHash string) error

	/*
		Exists reports whether a session entry is present for the token hash.

		Parameters:
		  - context: context.Context
		  - tokenHash: string

		Returns:
		  - bool: Presence flag
		  - error: Retrieval failures
	*/
	Exists(context context.Context, tokenHash string) (bool, error)
}
