// Copyright (c) 2026 Placely. All rights reserved.
// Author: dev@placely.io

// PostgreSQL implementations of the auth storage contracts.
//
// # Architecture
//
// Repositories in this file are strictly separated from domain logic. They
// implement domain-defined interfaces (e.g., [AccountRepository]) using the
// [pgxpool.Pool] connection manager.
//
// # PII Handling
//
// The phone and full_name columns are encrypted with AES-GCM before they
// reach the database. Encryption happens here, at the repository boundary,
// against an explicit field list. Because ciphertexts are non-deterministic,
// encrypted columns are never used in WHERE clauses.
//
// # Error Mapping
//
// Storage-specific errors (like pgx.ErrNoRows) are mapped to domain-friendly
// [apperr.AppError] types to avoid leaking storage implementation details.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/placely/auth-service/internal/platform/apperr"
	"github.com/placely/auth-service/internal/platform/dberr"
	"github.com/placely/auth-service/internal/platform/sec"
)

// # Account Repository

// PostgresAccountRepository implements the AccountRepository interface using pgx.
type PostgresAccountRepository struct {
	pool   *pgxpool.Pool
	cipher *sec.FieldCipher
}

// NewAccountRepository creates a new PostgreSQL implementation of the AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool, cipher *sec.FieldCipher) *PostgresAccountRepository {
	return &PostgresAccountRepository{pool: pool, cipher: cipher}
}

const accountColumns = `
	id, username, email, password_hash, phone, full_name, birth_date, gender,
	user_type, status, failed_login_count, locked_until, last_login_at,
	password_changed_at, created_at, updated_at`

/*
Create persists a new account into the auth.account table and assigns its ID.

Description: Encrypts PII columns, then inserts with the database sequence
providing the primary key.

Parameters:
  - context: context.Context
  - account: *Account (Entity to persist; ID is set on success)

Returns:
  - error: Database constraint violations or connectivity errors
*/
func (repository *PostgresAccountRepository) Create(context context.Context, account *Account) error {
	const query = `
		INSERT INTO auth.account (
			username, email, password_hash, phone, full_name, birth_date, gender,
			user_type, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	encryptedPhone, err := repository.cipher.Encrypt(account.Phone)
	if err != nil {
		return fmt.Errorf("postgres_account_repo_encrypt_phone_failed: %w", err)
	}
	encryptedFullName, err := repository.cipher.Encrypt(account.FullName)
	if err != nil {
		return fmt.Errorf("postgres_account_repo_encrypt_full_name_failed: %w", err)
	}

	now := time.Now()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now

	err = repository.pool.QueryRow(context, query,
		account.Username,
		account.Email,
		account.PasswordHash,
		encryptedPhone,
		encryptedFullName,
		account.BirthDate,
		account.Gender,
		account.Role,
		account.Status,
		account.CreatedAt,
		account.UpdatedAt,
	).Scan(&account.ID)

	if err != nil {
		// A 23505 here means the signup raced another request past the
		// service-level existence checks; surface it as a Conflict.
		return fmt.Errorf("postgres_account_repo_create_failed: %w", dberr.Wrap(err))
	}

	return nil
}

/*
FindByIdentifier retrieves an account by its login identifier.

Description: The identifier matches either the username or the email column,
so login forms accept both. Soft-deleted accounts are filtered out and PII
columns are decrypted on the way out. Both columns carry partial unique
indexes over live rows, so the lookup resolves at most one account.

Parameters:
  - context: context.Context
  - identifier: string (username or email)

Returns:
  - *Account: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresAccountRepository) FindByIdentifier(context context.Context, identifier string) (*Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM auth.account
		WHERE (username = $1 OR email = $1) AND is_deleted = FALSE`

	return repository.scanAccount(repository.pool.QueryRow(context, query, identifier), "find_by_identifier")
}

/*
FindByID retrieves an account by its primary key.

Parameters:
  - context: context.Context
  - id: int64

Returns:
  - *Account: Hydrated account entity
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresAccountRepository) FindByID(context context.Context, id int64) (*Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM auth.account
		WHERE id = $1 AND is_deleted = FALSE`

	return repository.scanAccount(repository.pool.QueryRow(context, query, id), "find_by_id")
}

// scanAccount hydrates one account row and decrypts its PII columns.
func (repository *PostgresAccountRepository) scanAccount(row pgx.Row, action string) (*Account, error) {
	account := &Account{}
	var encryptedPhone, encryptedFullName string

	err := row.Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		&encryptedPhone,
		&encryptedFullName,
		&account.BirthDate,
		&account.Gender,
		&account.Role,
		&account.Status,
		&account.FailedLoginCount,
		&account.LockedUntil,
		&account.LastLoginAt,
		&account.PasswordChangedAt,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Account")
		}
		return nil, fmt.Errorf("postgres_account_repo_%s_failed: %w", action, err)
	}

	if account.Phone, err = repository.cipher.Decrypt(encryptedPhone); err != nil {
		return nil, fmt.Errorf("postgres_account_repo_decrypt_phone_failed: %w", err)
	}
	if account.FullName, err = repository.cipher.Decrypt(encryptedFullName); err != nil {
		return nil, fmt.Errorf("postgres_account_repo_decrypt_full_name_failed: %w", err)
	}

	return account, nil
}

/*
ExistsByUsername reports whether a non-deleted account holds the username.

Parameters:
  - context: context.Context
  - username: string

Returns:
  - bool: Existence flag
  - error: Execution errors
*/
func (repository *PostgresAccountRepository) ExistsByUsername(context context.Context, username string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM auth.account WHERE username = $1 AND is_deleted = FALSE)`

	var exists bool
	if err := repository.pool.QueryRow(context, query, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("postgres_account_repo_exists_username_failed: %w", err)
	}
	return exists, nil
}

/*
ExistsByEmail reports whether a non-deleted account holds the email.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - bool: Existence flag
  - error: Execution errors
*/
func (repository *PostgresAccountRepository) ExistsByEmail(context context.Context, email string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM auth.account WHERE email = $1 AND is_deleted = FALSE)`

	var exists bool
	if err := repository.pool.QueryRow(context, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("postgres_account_repo_exists_email_failed: %w", err)
	}
	return exists, nil
}

/*
RecordLoginFailure increments the failure counter and conditionally locks the
account, in one atomic statement.

Description: The counter increment and the lockout assignment are a single
conditional UPDATE. Two concurrent failed logins therefore produce two
increments; a read-modify-write would let one overwrite the other.

Parameters:
  - context: context.Context
  - id: int64
  - threshold: int
  - lockDuration: time.Duration

Returns:
  - bool: True when the account is locked after this failure
  - error: Execution errors
*/
func (repository *PostgresAccountRepository) RecordLoginFailure(context context.Context, id int64, threshold int, lockDuration time.Duration) (bool, error) {
	const query = `
		UPDATE auth.account
		SET failed_login_count = failed_login_count + 1,
		    locked_until = CASE
		        WHEN failed_login_count + 1 >= $2
		        THEN NOW() + make_interval(secs => $3)
		        ELSE locked_until
		    END,
		    updated_at = NOW()
		WHERE id = $1 AND is_deleted = FALSE
		RETURNING locked_until`

	var lockedUntil *time.Time
	err := repository.pool.QueryRow(context, query, id, threshold, lockDuration.Seconds()).Scan(&lockedUntil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, apperr.NotFound("Account")
		}
		return false, fmt.Errorf("postgres_account_repo_record_failure_failed: %w", err)
	}

	return lockedUntil != nil && lockedUntil.After(time.Now()), nil
}

/*
RecordLoginSuccess resets the lockout state and stamps the login time.

Parameters:
  - context: context.Context
  - id: int64

Returns:
  - error: Execution errors
*/
func (repository *PostgresAccountRepository) RecordLoginSuccess(context context.Context, id int64) error {
	const query = `
		UPDATE auth.account
		SET failed_login_count = 0, locked_until = NULL, last_login_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND is_deleted = FALSE`

	if _, err := repository.pool.Exec(context, query, id); err != nil {
		return fmt.Errorf("postgres_account_repo_record_success_failed: %w", err)
	}
	return nil
}

/*
UpdateProfile applies a partial profile update via COALESCE, leaving nil
fields untouched.

Parameters:
  - context: context.Context
  - id: int64
  - update: ProfileUpdate

Returns:
  - int64: Number of rows updated
  - error: Execution errors
*/
func (repository *PostgresAccountRepository) UpdateProfile(context context.Context, id int64, update ProfileUpdate) (int64, error) {
	const query = `
		UPDATE auth.account
		SET email      = COALESCE($2, email),
		    phone      = COALESCE($3, phone),
		    full_name  = COALESCE($4, full_name),
		    birth_date = COALESCE($5, birth_date),
		    gender     = COALESCE($6, gender),
		    updated_at = NOW()
		WHERE id = $1 AND is_deleted = FALSE`

	encryptedPhone, err := repository.encryptOptional(update.Phone)
	if err != nil {
		return 0, fmt.Errorf("postgres_account_repo_encrypt_phone_failed: %w", err)
	}
	encryptedFullName, err := repository.encryptOptional(update.FullName)
	if err != nil {
		return 0, fmt.Errorf("postgres_account_repo_encrypt_full_name_failed: %w", err)
	}

	tag, err := repository.pool.Exec(context, query,
		id,
		update.Email,
		encryptedPhone,
		encryptedFullName,
		update.BirthDate,
		update.Gender,
	)
	if err != nil {
		return 0, fmt.Errorf("postgres_account_repo_update_profile_failed: %w", err)
	}

	return tag.RowsAffected(), nil
}

/*
UpdatePassword replaces the password hash and clears any lockout state.

Parameters:
  - context: context.Context
  - id: int64
  - newHash: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresAccountRepository) UpdatePassword(context context.Context, id int64, newHash string) error {
	const query = `
		UPDATE auth.account
		SET password_hash = $2, password_changed_at = NOW(),
		    failed_login_count = 0, locked_until = NULL, updated_at = NOW()
		WHERE id = $1 AND is_deleted = FALSE`

	if _, err := repository.pool.Exec(context, query, id, newHash); err != nil {
		return fmt.Errorf("postgres_account_repo_update_password_failed: %w", err)
	}
	return nil
}

// encryptOptional encrypts a nullable PII field, preserving nil.
func (repository *PostgresAccountRepository) encryptOptional(plain *string) (*string, error) {
	if plain == nil {
		return nil, nil
	}
	encrypted, err := repository.cipher.Encrypt(*plain)
	if err != nil {
		return nil, err
	}
	return &encrypted, nil
}

// # Token Ledger

// PostgresTokenLedger implements the TokenLedger interface.
type PostgresTokenLedger struct {
	pool *pgxpool.Pool
}

// NewTokenLedger creates a new PostgreSQL implementation of the TokenLedger.
func NewTokenLedger(pool *pgxpool.Pool) *PostgresTokenLedger {
	return &PostgresTokenLedger{pool: pool}
}

/*
RecordIssuance persists one ledger row per minted token.

Parameters:
  - context: context.Context
  - record: *TokenRecord (ID is set on success)

Returns:
  - error: Storage failures
*/
func (ledger *PostgresTokenLedger) RecordIssuance(context context.Context, record *TokenRecord) error {
	const query = `
		INSERT INTO auth.token (account_id, token_type, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	err := ledger.pool.QueryRow(context, query,
		record.AccountID,
		record.TokenType,
		record.TokenHash,
		record.ExpiresAt,
		record.CreatedAt,
	).Scan(&record.ID)

	if err != nil {
		return fmt.Errorf("postgres_token_ledger_record_failed: %w", err)
	}

	return nil
}

/*
FindValid retrieves the live ledger row for a token hash.

Description: Revoked and expired rows are filtered in the query itself, so a
miss means the token is dead regardless of why.

Parameters:
  - context: context.Context
  - tokenHash: string

Returns:
  - *TokenRecord: Hydrated ledger row
  - error: apperr.NotFound or execution errors
*/
func (ledger *PostgresTokenLedger) FindValid(context context.Context, tokenHash string) (*TokenRecord, error) {
	const query = `
		SELECT id, account_id, token_type, token_hash, expires_at, revoked_at, created_at
		FROM auth.token
		WHERE token_hash = $1 AND revoked_at IS NULL AND expires_at > NOW()`

	record := &TokenRecord{}
	err := ledger.pool.QueryRow(context, query, tokenHash).Scan(
		&record.ID,
		&record.AccountID,
		&record.TokenType,
		&record.TokenHash,
		&record.ExpiresAt,
		&record.RevokedAt,
		&record.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Token")
		}
		return nil, fmt.Errorf("postgres_token_ledger_find_failed: %w", err)
	}

	return record, nil
}

/*
RevokeAllForAccount revokes every live token of an account.

Description: Single UPDATE, atomic per account. Zero affected rows simply
means there was nothing to revoke.

Parameters:
  - context: context.Context
  - accountID: int64

Returns:
  - int64: Number of tokens revoked
  - error: Batch revocation failures
*/
func (ledger *PostgresTokenLedger) RevokeAllForAccount(context context.Context, accountID int64) (int64, error) {
	const query = `
		UPDATE auth.token
		SET revoked_at = NOW()
		WHERE account_id = $1 AND revoked_at IS NULL`

	tag, err := ledger.pool.Exec(context, query, accountID)
	if err != nil {
		return 0, fmt.Errorf("postgres_token_ledger_revoke_all_failed: %w", err)
	}

	return tag.RowsAffected(), nil
}

/*
PurgeExpired permanently removes ledger rows whose expiry predates the cutoff.

Description: Cleanup task to reclaim storage from stale rows.

Parameters:
  - context: context.Context
  - before: time.Time

Returns:
  - int64: Number of rows removed
  - error: Cleanup failures
*/
func (ledger *PostgresTokenLedger) PurgeExpired(context context.Context, before time.Time) (int64, error) {
	const query = `DELETE FROM auth.token WHERE expires_at <= $1`

	tag, err := ledger.pool.Exec(context, query, before)
	if err != nil {
		return 0, fmt.Errorf("postgres_token_ledger_purge_expired_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}

/*
PurgeRevoked permanently removes rows revoked before the cutoff.

Parameters:
  - context: context.Context
  - before: time.Time

Returns:
  - int64: Number of rows removed
  - error: Cleanup failures
*/
func (ledger *PostgresTokenLedger) PurgeRevoked(context context.Context, before time.Time) (int64, error) {
	const query = `DELETE FROM auth.token WHERE revoked_at IS NOT NULL AND revoked_at <= $1`

	tag, err := ledger.pool.Exec(context, query, before)
	if err != nil {
		return 0, fmt.Errorf("postgres_token_ledger_purge_revoked_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}
