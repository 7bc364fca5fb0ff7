// Copyright (c) 2026 Placely. All rights reserved.
// Author: dev@placely.io

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/placely/auth-service/internal/platform/apperr"
	"github.com/placely/auth-service/internal/platform/ctxutil"
	"github.com/placely/auth-service/internal/platform/events"
	"github.com/placely/auth-service/internal/platform/sec"
)

// # Credential Gate Errors

// Sentinel errors for the credential gates. They stay distinct inside the
// service (tests and logs can tell them apart with [errors.Is]) but the
// transport layer collapses all of them into one generic 401.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is not active")
	ErrAccountLocked      = errors.New("account is locked")
)

// # Contracts & Types

// Policy holds the tunable security parameters of the orchestrator.
type Policy struct {
	// LockoutThreshold is the number of consecutive failures that locks an account.
	LockoutThreshold int

	// LockoutDuration is how long a locked account stays locked.
	LockoutDuration time.Duration

	// RotateThreshold triggers refresh token rotation when a presented
	// refresh token has less than this duration remaining.
	RotateThreshold time.Duration

	// BcryptCost is the bcrypt work factor for new password hashes.
	BcryptCost int
}

// DefaultPolicy returns the production defaults.
func DefaultPolicy() Policy {
	return Policy{
		LockoutThreshold: 5,
		LockoutDuration:  30 * time.Minute,
		RotateThreshold:  7 * 24 * time.Hour,
		BcryptCost:       12,
	}
}

// Service implements the credential and session lifecycle use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to the credential gates,
// lockout counting, or token issuance must be reviewed by the security team.
type Service struct {
	accountRepository AccountRepository
	tokenLedger       TokenLedger
	sessionCache      SessionCache
	tokenCodec        *sec.Codec
	eventPublisher    *events.Publisher
	policy            Policy
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(
	accountRepo AccountRepository,
	ledger TokenLedger,
	cache SessionCache,
	codec *sec.Codec,
	publisher *events.Publisher,
	policy Policy,
) *Service {
	return &Service{
		accountRepository: accountRepo,
		tokenLedger:       ledger,
		sessionCache:      cache,
		tokenCodec:        codec,
		eventPublisher:    publisher,
		policy:            policy,
	}
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	// Username holds the login identifier: a username or an email address.
	Username  string
	Password  string
	UserAgent string
	IPAddress string
}

// LoginSession represents a successfully established session.
type LoginSession struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	Account          *Account

	// ExpiresIn is the configured access token lifetime in whole seconds,
	// reported to clients as-is rather than re-derived from the wall clock.
	ExpiresIn int64
}

/*
Login validates credentials and issues a signed access/refresh token pair.

Description: Runs the credential gates in a fixed order (existence, lockout,
status, password), then establishes a fresh single session: every token the
account held before is revoked, a new pair is minted and recorded in the
ledger, and the refresh session is mirrored into the cache.

Gate failures surface as the sentinel errors above; every path that touches a
wrong password also bumps the atomic failure counter.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *LoginSession: Transport-ready session
  - err: Credential gate sentinels or internal failures
*/
func (service *Service) Login(context context.Context, input LoginInput) (*LoginSession, error) {
	now := time.Now()

	// ── 1. Existence gate ─────────────────────────────────────────────────
	account, err := service.accountRepository.FindByIdentifier(context, input.Username)
	if err != nil {
		if apperr.IsNotFound(err) {
			service.publishAsync(events.AuthEvent{
				Type: events.TypeLoginFailed, Username: input.Username, IPAddress: input.IPAddress,
			})
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("auth_service_login_lookup_failed: %w", err)
	}

	// ── 2. Lockout gate ───────────────────────────────────────────────────
	// A locked account rejects even the correct password, and the failure
	// counter is NOT bumped: probing a locked account reveals nothing and
	// must not extend the lock.
	if account.IsLocked(now) {
		service.publishAsync(events.AuthEvent{
			Type: events.TypeLoginFailed, AccountID: account.ID, Username: account.Username, IPAddress: input.IPAddress,
		})
		return nil, ErrAccountLocked
	}

	// ── 3. Status gate ────────────────────────────────────────────────────
	if !account.IsActive() {
		return nil, ErrAccountInactive
	}

	// ── 4. Password gate ──────────────────────────────────────────────────
	if !sec.VerifyPassword(input.Password, account.PasswordHash) {
		locked, failureErr := service.accountRepository.RecordLoginFailure(
			context, account.ID, service.policy.LockoutThreshold, service.policy.LockoutDuration)
		if failureErr != nil {
			ctxutil.GetLogger(context).Warn("login_failure_count_not_recorded",
				slog.Int64("account_id", account.ID), slog.Any("error", failureErr))
		}

		eventType := events.TypeLoginFailed
		if locked {
			eventType = events.TypeAccountLocked
		}
		service.publishAsync(events.AuthEvent{
			Type: eventType, AccountID: account.ID, Username: account.Username, IPAddress: input.IPAddress,
		})

		return nil, ErrInvalidCredentials
	}

	// ── 5. Single session ─────────────────────────────────────────────────
	// Each login owns the account's only session. Concurrent logins race on
	// this revocation and the last writer wins, which is accepted.
	if _, err := service.tokenLedger.RevokeAllForAccount(context, account.ID); err != nil {
		return nil, fmt.Errorf("auth_service_login_revoke_failed: %w", err)
	}

	// ── 6. Token issuance ─────────────────────────────────────────────────
	session, err := service.issueTokenPair(context, account, now)
	if err != nil {
		return nil, err
	}

	// ── 7. Lockout reset + audit trail ────────────────────────────────────
	// The counter reset is part of the login contract, not a best-effort
	// side write: a login that leaves a stale failure count behind would let
	// the next wrong password lock the account early. Only cache writes are
	// allowed to degrade.
	if err := service.accountRepository.RecordLoginSuccess(context, account.ID); err != nil {
		return nil, fmt.Errorf("auth_service_login_reset_failed: %w", err)
	}

	// ── 8. Cache mirror (best effort) ─────────────────────────────────────
	service.cacheSession(context, session.RefreshToken, SessionEntry{
		AccountID: account.ID,
		UserAgent: input.UserAgent,
		IPAddress: input.IPAddress,
		IssuedAt:  now,
	}, session.RefreshExpiresAt)

	service.publishAsync(events.AuthEvent{
		Type: events.TypeLoginSucceeded, AccountID: account.ID, Username: account.Username,
		IPAddress: input.IPAddress, UserAgent: input.UserAgent,
	})

	return session, nil
}

// issueTokenPair mints an access/refresh pair and records both in the ledger.
func (service *Service) issueTokenPair(context context.Context, account *Account, now time.Time) (*LoginSession, error) {
	subject := strconv.FormatInt(account.ID, 10)

	accessToken, accessExpiresAt, err := service.tokenCodec.MintAccess(subject, []string{string(account.Role)}, now)
	if err != nil {
		return nil, fmt.Errorf("auth_service_mint_access_failed: %w", err)
	}

	refreshToken, refreshExpiresAt, err := service.tokenCodec.MintRefresh(subject, now)
	if err != nil {
		return nil, fmt.Errorf("auth_service_mint_refresh_failed: %w", err)
	}

	accessRecord := &TokenRecord{
		AccountID: account.ID,
		TokenType: sec.TokenTypeAccess,
		TokenHash: sec.HashToken(accessToken),
		ExpiresAt: accessExpiresAt,
	}
	if err := service.tokenLedger.RecordIssuance(context, accessRecord); err != nil {
		return nil, fmt.Errorf("auth_service_record_access_failed: %w", err)
	}

	refreshRecord := &TokenRecord{
		AccountID: account.ID,
		TokenType: sec.TokenTypeRefresh,
		TokenHash: sec.HashToken(refreshToken),
		ExpiresAt: refreshExpiresAt,
	}
	if err := service.tokenLedger.RecordIssuance(context, refreshRecord); err != nil {
		return nil, fmt.Errorf("auth_service_record_refresh_failed: %w", err)
	}

	return &LoginSession{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiresAt,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpiresAt,
		Account:          account,
		ExpiresIn:        int64(service.tokenCodec.AccessTTL() / time.Second),
	}, nil
}

/*
Logout revokes every live token of the account behind the refresh token.

Description: Idempotent by contract. A token that no longer decodes (expired,
tampered, unknown) means there is no session left to terminate, which is the
state logout wants — so it succeeds silently.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - err: Revocation failures only
*/
func (service *Service) Logout(context context.Context, refreshToken string) error {

	// Decode failure == nothing to revoke == success (idempotent operation).
	claims, err := service.tokenCodec.DecodeOfType(refreshToken, sec.TokenTypeRefresh)
	if err != nil {
		return nil
	}

	accountID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil
	}

	if _, err := service.tokenLedger.RevokeAllForAccount(context, accountID); err != nil {
		return fmt.Errorf("auth_service_logout_failed: %w", err)
	}

	// Drop the cache mirror (best effort)
	service.dropCachedSession(context, refreshToken)

	service.publishAsync(events.AuthEvent{Type: events.TypeLogout, AccountID: accountID})

	return nil
}

// # Token Exchange

// RefreshResult carries a fresh access token and, when the presented refresh
// token was close to expiry, its rotated replacement.
type RefreshResult struct {
	AccessToken     string
	AccessExpiresAt time.Time

	// ExpiresIn is the configured access token lifetime in whole seconds.
	ExpiresIn int64

	// RefreshToken is empty unless rotation occurred.
	RefreshToken     string
	RefreshExpiresAt time.Time
}

/*
Refresh exchanges a valid refresh token for a new access token.

Description: The signature check alone is never enough — the ledger is
consulted on every exchange, so a token revoked by logout or a later login is
dead even though it still decodes. Rotation only happens when the refresh
token itself is near expiry, which keeps the common path to one ledger insert.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - *RefreshResult: New credentials
  - err: apperr with a distinct token code, or internal failures
*/
func (service *Service) Refresh(context context.Context, refreshToken string) (*RefreshResult, error) {
	now := time.Now()

	// ── 1. Signature + kind check ─────────────────────────────────────────
	claims, err := service.tokenCodec.DecodeOfType(refreshToken, sec.TokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	// ── 2. Ledger check (authoritative) ───────────────────────────────────
	tokenHash := sec.HashToken(refreshToken)
	if _, err := service.tokenLedger.FindValid(context, tokenHash); err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.UnauthorizedCode(sec.CodeTokenNotFound, "Refresh token has been revoked or is unknown")
		}
		return nil, fmt.Errorf("auth_service_refresh_ledger_failed: %w", err)
	}

	// ── 3. Account gates ──────────────────────────────────────────────────
	accountID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, apperr.UnauthorizedCode(sec.CodeTokenTampered, "Token subject is invalid")
	}

	account, err := service.accountRepository.FindByID(context, accountID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Unauthorized("Account no longer exists")
		}
		return nil, fmt.Errorf("auth_service_refresh_account_failed: %w", err)
	}

	if !account.IsActive() || account.IsLocked(now) {
		return nil, apperr.Unauthorized("Account is not allowed to refresh")
	}

	// ── 4. Rotation decision ──────────────────────────────────────────────
	if service.tokenCodec.NearExpiry(claims, service.policy.RotateThreshold, now) {
		return service.rotateSession(context, account, now)
	}

	// ── 5. Access-only issuance ───────────────────────────────────────────
	subject := strconv.FormatInt(account.ID, 10)
	accessToken, accessExpiresAt, err := service.tokenCodec.MintAccess(subject, []string{string(account.Role)}, now)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_mint_failed: %w", err)
	}

	record := &TokenRecord{
		AccountID: account.ID,
		TokenType: sec.TokenTypeAccess,
		TokenHash: sec.HashToken(accessToken),
		ExpiresAt: accessExpiresAt,
	}
	if err := service.tokenLedger.RecordIssuance(context, record); err != nil {
		return nil, fmt.Errorf("auth_service_refresh_record_failed: %w", err)
	}

	return &RefreshResult{
		AccessToken:     accessToken,
		AccessExpiresAt: accessExpiresAt,
		ExpiresIn:       int64(service.tokenCodec.AccessTTL() / time.Second),
	}, nil
}

// rotateSession replaces the whole session when the refresh token nears expiry.
func (service *Service) rotateSession(context context.Context, account *Account, now time.Time) (*RefreshResult, error) {

	// Revoke everything, then issue a complete new pair. The old refresh
	// token dies here even though its signature stays valid until expiry.
	if _, err := service.tokenLedger.RevokeAllForAccount(context, account.ID); err != nil {
		return nil, fmt.Errorf("auth_service_rotate_revoke_failed: %w", err)
	}

	session, err := service.issueTokenPair(context, account, now)
	if err != nil {
		return nil, err
	}

	service.cacheSession(context, session.RefreshToken, SessionEntry{
		AccountID: account.ID,
		IssuedAt:  now,
	}, session.RefreshExpiresAt)

	return &RefreshResult{
		AccessToken:      session.AccessToken,
		AccessExpiresAt:  session.AccessExpiresAt,
		ExpiresIn:        session.ExpiresIn,
		RefreshToken:     session.RefreshToken,
		RefreshExpiresAt: session.RefreshExpiresAt,
	}, nil
}

// # Registration Flow

// SignUpInput holds the data required to enroll a new account.
type SignUpInput struct {
	Username  string
	Email     string
	Password  string
	FullName  string
	Phone     string
	BirthDate *time.Time
	Gender    string
}

/*
SignUp validates, hashes, and persists a brand new account.

Parameters:
  - context: context.Context
  - input: SignUpInput

Returns:
  - *Account: Created entity
  - err: Conflict (if identity exists), ValidationError (weak password), or storage errors
*/
func (service *Service) SignUp(context context.Context, input SignUpInput) (*Account, error) {

	// Verify username uniqueness. Return a client-safe Conflict err.
	usernameTaken, err := service.accountRepository.ExistsByUsername(context, input.Username)
	if err != nil {
		return nil, fmt.Errorf("auth_service_signup_username_check_failed: %w", err)
	}
	if usernameTaken {
		return nil, apperr.Conflict("Username is already taken")
	}

	// Verify email uniqueness. Return a client-safe Conflict err.
	emailTaken, err := service.accountRepository.ExistsByEmail(context, input.Email)
	if err != nil {
		return nil, fmt.Errorf("auth_service_signup_email_check_failed: %w", err)
	}
	if emailTaken {
		return nil, apperr.Conflict("Email is already registered")
	}

	// Enforce the password policy at enrollment time only.
	if strength := sec.CheckStrength(input.Password); !strength.Valid {
		details := make([]apperr.FieldError, 0, len(strength.Reasons))
		for _, reason := range strength.Reasons {
			details = append(details, apperr.FieldError{Field: FieldPassword, Message: reason})
		}
		return nil, apperr.ValidationError("Password is too weak", details...)
	}

	// Prevent storing plain-text passwords.
	passwordHash, err := sec.HashPassword(input.Password, service.policy.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("auth_service_signup_hash_failed: %w", err)
	}

	account := &Account{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: passwordHash,
		FullName:     input.FullName,
		Phone:        input.Phone,
		BirthDate:    input.BirthDate,
		Gender:       input.Gender,
		Role:         sec.RoleCustomer,
		Status:       StatusActive,
	}

	// Persist the account to the database
	if err := service.accountRepository.Create(context, account); err != nil {
		return nil, fmt.Errorf("auth_service_signup_create_failed: %w", err)
	}

	service.publishAsync(events.AuthEvent{
		Type: events.TypeSignedUp, AccountID: account.ID, Username: account.Username,
	})

	return account, nil
}

// # Lookups & Probes

// CheckUsernameExists reports whether the username is already registered.
func (service *Service) CheckUsernameExists(context context.Context, username string) (bool, error) {
	exists, err := service.accountRepository.ExistsByUsername(context, username)
	if err != nil {
		return false, fmt.Errorf("auth_service_check_username_failed: %w", err)
	}
	return exists, nil
}

// CheckEmailExists reports whether the email is already registered.
func (service *Service) CheckEmailExists(context context.Context, email string) (bool, error) {
	exists, err := service.accountRepository.ExistsByEmail(context, email)
	if err != nil {
		return false, fmt.Errorf("auth_service_check_email_failed: %w", err)
	}
	return exists, nil
}

// ValidatePassword evaluates a candidate password against the platform policy
// without touching any account state.
func (service *Service) ValidatePassword(password string) sec.Strength {
	return sec.CheckStrength(password)
}

// AccountInfo returns the account behind an ID for profile display.
func (service *Service) AccountInfo(context context.Context, id int64) (*Account, error) {
	account, err := service.accountRepository.FindByID(context, id)
	if err != nil {
		return nil, err
	}
	return account, nil
}

// # Side-Effect Helpers

// cacheSession mirrors a refresh session into the cache, best effort.
//
// The entry TTL is derived from the token expiry so cache and ledger age out
// together. Failures (including the ttl<=0 guard on clock skew) are logged
// and swallowed: the ledger alone decides validity.
func (service *Service) cacheSession(context context.Context, refreshToken string, entry SessionEntry, expiresAt time.Time) {
	cacheCtx, cancel := contextWithTimeout(context, CacheOpTimeout)
	defer cancel()

	ttl := time.Until(expiresAt)
	if err := service.sessionCache.Put(cacheCtx, sec.HashToken(refreshToken), entry, ttl); err != nil {
		ctxutil.GetLogger(context).Warn("session_cache_put_failed",
			slog.Int64("account_id", entry.AccountID), slog.Any("error", err))
	}
}

// dropCachedSession removes a refresh session from the cache, best effort.
func (service *Service) dropCachedSession(context context.Context, refreshToken string) {
	cacheCtx, cancel := contextWithTimeout(context, CacheOpTimeout)
	defer cancel()

	if err := service.sessionCache.Delete(cacheCtx, sec.HashToken(refreshToken)); err != nil {
		ctxutil.GetLogger(context).Warn("session_cache_delete_failed", slog.Any("error", err))
	}
}

// publishAsync fires an audit event without blocking the request path.
func (service *Service) publishAsync(event events.AuthEvent) {
	go func() {
		publishCtx, cancel := contextWithTimeout(nil, 5*time.Second)
		defer cancel()
		_ = service.eventPublisher.Publish(publishCtx, event)
	}()
}

// contextWithTimeout derives a bounded context, tolerating a nil parent.
func contextWithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, timeout)
}
