// Copyright (c) 2026 Placely. All rights reserved.
// Author: dev@placely.io

package account_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placely/auth-service/internal/account"
	"github.com/placely/auth-service/internal/auth"
	"github.com/placely/auth-service/internal/platform/apperr"
	"github.com/placely/auth-service/internal/platform/events"
	"github.com/placely/auth-service/internal/platform/sec"
)

// # In-Memory Fakes

type fakeAccountRepo struct {
	accounts map[int64]*auth.Account
	nextID   int64
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[int64]*auth.Account), nextID: 1}
}

func (repo *fakeAccountRepo) FindByID(_ context.Context, id int64) (*auth.Account, error) {
	if stored, ok := repo.accounts[id]; ok {
		copied := *stored
		return &copied, nil
	}
	return nil, apperr.NotFound("Account")
}

func (repo *fakeAccountRepo) FindByIdentifier(_ context.Context, identifier string) (*auth.Account, error) {
	for _, stored := range repo.accounts {
		if stored.Username == identifier || stored.Email == identifier {
			copied := *stored
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("Account")
}

func (repo *fakeAccountRepo) Create(_ context.Context, created *auth.Account) error {
	created.ID = repo.nextID
	repo.nextID++
	copied := *created
	repo.accounts[created.ID] = &copied
	return nil
}

func (repo *fakeAccountRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	for _, stored := range repo.accounts {
		if stored.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (repo *fakeAccountRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	for _, stored := range repo.accounts {
		if stored.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (repo *fakeAccountRepo) RecordLoginFailure(_ context.Context, _ int64, _ int, _ time.Duration) (bool, error) {
	return false, nil
}

func (repo *fakeAccountRepo) RecordLoginSuccess(_ context.Context, _ int64) error { return nil }

func (repo *fakeAccountRepo) UpdateProfile(_ context.Context, id int64, update auth.ProfileUpdate) (int64, error) {
	stored, ok := repo.accounts[id]
	if !ok {
		return 0, nil
	}
	if update.Email != nil {
		stored.Email = *update.Email
	}
	if update.Phone != nil {
		stored.Phone = *update.Phone
	}
	if update.FullName != nil {
		stored.FullName = *update.FullName
	}
	if update.Gender != nil {
		stored.Gender = *update.Gender
	}
	return 1, nil
}

func (repo *fakeAccountRepo) UpdatePassword(_ context.Context, id int64, newHash string) error {
	stored, ok := repo.accounts[id]
	if !ok {
		return apperr.NotFound("Account")
	}
	stored.PasswordHash = newHash
	return nil
}

type fakeTokenLedger struct {
	revokedAccounts []int64
}

func (ledger *fakeTokenLedger) RecordIssuance(_ context.Context, _ *auth.TokenRecord) error {
	return nil
}

func (ledger *fakeTokenLedger) FindValid(_ context.Context, _ string) (*auth.TokenRecord, error) {
	return nil, apperr.NotFound("Token")
}

func (ledger *fakeTokenLedger) RevokeAllForAccount(_ context.Context, accountID int64) (int64, error) {
	ledger.revokedAccounts = append(ledger.revokedAccounts, accountID)
	return 1, nil
}

func (ledger *fakeTokenLedger) PurgeExpired(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func (ledger *fakeTokenLedger) PurgeRevoked(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

// # Test Harness

func newTestService(t *testing.T) (*account.Service, *fakeAccountRepo, *fakeTokenLedger) {
	t.Helper()

	repo := newFakeAccountRepo()
	ledger := &fakeTokenLedger{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return account.NewService(repo, ledger, events.NewPublisher("", logger), 4, logger), repo, ledger
}

func seedAccount(t *testing.T, repo *fakeAccountRepo, username, password string) *auth.Account {
	t.Helper()

	hash, err := sec.HashPassword(password, 4)
	require.NoError(t, err)

	seeded := &auth.Account{
		Username:     username,
		Email:        username + "@placely.io",
		PasswordHash: hash,
		Role:         sec.RoleCustomer,
		Status:       auth.StatusActive,
	}
	require.NoError(t, repo.Create(context.Background(), seeded))
	return seeded
}

// # Profile

/*
TestService_UpdateProfile applies partial updates and leaves absent fields
untouched.
*/
func TestService_UpdateProfile(t *testing.T) {
	service, repo, _ := newTestService(t)
	seeded := seedAccount(t, repo, "ana", "Sup3r$ecret")

	fullName := "Ana Pham"
	updatedCount, err := service.UpdateProfile(context.Background(), seeded.ID, account.UpdateProfileInput{
		FullName: &fullName,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), updatedCount)

	stored := repo.accounts[seeded.ID]
	assert.Equal(t, "Ana Pham", stored.FullName)
	assert.Equal(t, "ana@placely.io", stored.Email, "email untouched")
}

/*
TestService_UpdateProfile_EmailConflict rejects a change to an email another
account already holds.
*/
func TestService_UpdateProfile_EmailConflict(t *testing.T) {
	service, repo, _ := newTestService(t)
	seeded := seedAccount(t, repo, "ana", "Sup3r$ecret")
	seedAccount(t, repo, "bob", "Sup3r$ecret")

	takenEmail := "bob@placely.io"
	_, err := service.UpdateProfile(context.Background(), seeded.ID, account.UpdateProfileInput{
		Email: &takenEmail,
	})
	require.Error(t, err)
	assert.Equal(t, 409, apperr.As(err).HTTPStatus)

	// Re-submitting the current email is not a conflict
	sameEmail := "ana@placely.io"
	_, err = service.UpdateProfile(context.Background(), seeded.ID, account.UpdateProfileInput{
		Email: &sameEmail,
	})
	assert.NoError(t, err)
}

/*
TestService_UpdateProfile_MissingAccount surfaces a 404 when the account is gone.
*/
func TestService_UpdateProfile_MissingAccount(t *testing.T) {
	service, _, _ := newTestService(t)

	fullName := "Nobody"
	_, err := service.UpdateProfile(context.Background(), 999, account.UpdateProfileInput{
		FullName: &fullName,
	})
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

// # Password

/*
TestService_ChangePassword covers the gates and the forced global sign-out.
*/
func TestService_ChangePassword(t *testing.T) {
	service, repo, ledger := newTestService(t)
	seeded := seedAccount(t, repo, "ana", "Sup3r$ecret")

	t.Run("wrong_current_password", func(t *testing.T) {
		err := service.ChangePassword(context.Background(), seeded.ID, "wrong", "N3w$tronger")
		require.Error(t, err)
		assert.Equal(t, 401, apperr.As(err).HTTPStatus)
	})

	t.Run("weak_new_password", func(t *testing.T) {
		err := service.ChangePassword(context.Background(), seeded.ID, "Sup3r$ecret", "weak")
		require.Error(t, err)

		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, 400, ae.HTTPStatus)
		assert.NotEmpty(t, ae.Details)
	})

	t.Run("success_revokes_sessions", func(t *testing.T) {
		err := service.ChangePassword(context.Background(), seeded.ID, "Sup3r$ecret", "N3w$tronger")
		require.NoError(t, err)

		// The stored hash now verifies the new password only
		stored := repo.accounts[seeded.ID]
		assert.True(t, sec.VerifyPassword("N3w$tronger", stored.PasswordHash))
		assert.False(t, sec.VerifyPassword("Sup3r$ecret", stored.PasswordHash))

		// Every live session died with the old secret
		assert.Contains(t, ledger.revokedAccounts, seeded.ID)
	})
}
