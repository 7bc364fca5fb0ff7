// Copyright (c) 2026 Placely. All rights reserved.
// Author: dev@placely.io

/*
Package account manages the authenticated user's own profile.

It covers partial profile updates and password changes. Everything here
operates on the account behind the presented access token; there is no
admin surface for touching other accounts.
*/
package account

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/placely/auth-service/internal/auth"
	"github.com/placely/auth-service/internal/platform/apperr"
	"github.com/placely/auth-service/internal/platform/events"
	"github.com/placely/auth-service/internal/platform/sec"
)

// # Service Layer

// Service orchestrates business logic for self-service account management.
type Service struct {
	accountRepository auth.AccountRepository
	tokenLedger       auth.TokenLedger
	eventPublisher    *events.Publisher
	bcryptCost        int
	logger            *slog.Logger
}

// NewService constructs a new [Service] with its dependencies.
func NewService(
	accountRepo auth.AccountRepository,
	ledger auth.TokenLedger,
	publisher *events.Publisher,
	bcryptCost int,
	logger *slog.Logger,
) *Service {
	return &Service{
		accountRepository: accountRepo,
		tokenLedger:       ledger,
		eventPublisher:    publisher,
		bcryptCost:        bcryptCost,
		logger:            logger,
	}
}

// # Profile Management

/*
GetProfile retrieves the full private identity of an account.

Parameters:
  - context: context.Context
  - accountID: int64

Returns:
  - *auth.Account: The hydrated account
  - error: Not found or execution failures
*/
func (service *Service) GetProfile(context context.Context, accountID int64) (*auth.Account, error) {
	account, err := service.accountRepository.FindByID(context, accountID)
	if err != nil {
		return nil, err
	}
	return account, nil
}

// UpdateProfileInput defines the mutable subset of profile fields.
// Nil pointers mean "leave unchanged".
type UpdateProfileInput struct {
	Email     *string
	Phone     *string
	FullName  *string
	BirthDate *time.Time
	Gender    *string
}

/*
UpdateProfile applies a partial set of changes to the account's profile.

Description: When the email changes, uniqueness is re-checked first so the
database constraint violation never reaches the client as a 500. The update
itself is a single partial UPDATE and the affected-row count is what the
endpoint reports back; zero affected rows means the account disappeared
between token issuance and now.

Parameters:
  - context: context.Context
  - accountID: int64
  - input: UpdateProfileInput

Returns:
  - int64: Number of rows updated (always 1 on success)
  - error: Conflict, not found, or storage failures
*/
func (service *Service) UpdateProfile(context context.Context, accountID int64, input UpdateProfileInput) (int64, error) {

	// Re-check email uniqueness before hitting the constraint
	if input.Email != nil {
		current, err := service.accountRepository.FindByID(context, accountID)
		if err != nil {
			return 0, err
		}

		if *input.Email != current.Email {
			taken, err := service.accountRepository.ExistsByEmail(context, *input.Email)
			if err != nil {
				return 0, fmt.Errorf("account_service_email_check_failed: %w", err)
			}
			if taken {
				return 0, apperr.Conflict("Email is already registered")
			}
		}
	}

	affected, err := service.accountRepository.UpdateProfile(context, accountID, auth.ProfileUpdate{
		Email:     input.Email,
		Phone:     input.Phone,
		FullName:  input.FullName,
		BirthDate: input.BirthDate,
		Gender:    input.Gender,
	})
	if err != nil {
		return 0, fmt.Errorf("account_service_update_failed: %w", err)
	}
	if affected == 0 {
		return 0, apperr.NotFound("Account")
	}

	service.logger.Info("account_profile_updated", slog.Int64("account_id", accountID))

	return affected, nil
}

// # Password Management

/*
ChangePassword replaces the account's password after verifying the old one.

Description: The new password runs through the same strength policy as signup.
On success every live token of the account is revoked: a password change is a
security event and all existing sessions must die with the old secret.

Parameters:
  - context: context.Context
  - accountID: int64
  - oldPassword: string
  - newPassword: string

Returns:
  - error: Unauthorized (wrong current password), validation, or storage failures
*/
func (service *Service) ChangePassword(context context.Context, accountID int64, oldPassword, newPassword string) error {

	account, err := service.accountRepository.FindByID(context, accountID)
	if err != nil {
		return err
	}

	// Gate on the current password
	if !sec.VerifyPassword(oldPassword, account.PasswordHash) {
		return apperr.Unauthorized("Current password is incorrect")
	}

	// Enforce the password policy
	if strength := sec.CheckStrength(newPassword); !strength.Valid {
		details := make([]apperr.FieldError, 0, len(strength.Reasons))
		for _, reason := range strength.Reasons {
			details = append(details, apperr.FieldError{Field: auth.FieldNewPassword, Message: reason})
		}
		return apperr.ValidationError("Password is too weak", details...)
	}

	newHash, err := sec.HashPassword(newPassword, service.bcryptCost)
	if err != nil {
		return fmt.Errorf("account_service_hash_failed: %w", err)
	}

	if err := service.accountRepository.UpdatePassword(context, accountID, newHash); err != nil {
		return fmt.Errorf("account_service_password_update_failed: %w", err)
	}

	// Force global sign-out with the old secret
	if _, err := service.tokenLedger.RevokeAllForAccount(context, accountID); err != nil {
		return fmt.Errorf("account_service_password_revoke_failed: %w", err)
	}

	service.logger.Info("account_password_changed", slog.Int64("account_id", accountID))

	_ = service.eventPublisher.Publish(context, events.AuthEvent{
		Type:      events.TypePasswordChanged,
		AccountID: accountID,
		Username:  account.Username,
	})

	return nil
}
