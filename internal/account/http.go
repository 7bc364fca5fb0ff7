// Copyright (c) 2026 Placely. All rights reserved.
// Author: dev@placely.io

package account

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/placely/auth-service/internal/auth"
	requestutil "github.com/placely/auth-service/internal/platform/request"
	"github.com/placely/auth-service/internal/platform/respond"
	"github.com/placely/auth-service/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements self-service account HTTP endpoints.
//
// Every route here runs behind the authentication requirement; the account
// being modified is always the one behind the presented access token.
type Handler struct {
	accountService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{accountService: service}
}

// Routes returns a [chi.Router] configured with account management routes.
//
// # Endpoints
//   - GET  /          : Returns the authenticated account's profile.
//   - PUT  /          : Partially updates the profile.
//   - PUT  /password  : Changes the password (revokes all sessions).
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.getProfile)
	router.Put("/", handler.updateProfile)
	router.Put("/password", handler.changePassword)

	return router
}

// # Request Payloads

type updateProfileRequest struct {
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	FullName  *string `json:"fullName"`
	BirthDate *string `json:"birthDate"`
	Gender    *string `json:"gender"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

/*
GetProfile returns the authenticated account's profile.

GET /api/user

Response:
  - 200: auth.Account: Account profile (sensitive fields omitted by JSON tags)
  - 401: ErrUnauthorized: Not authenticated
*/
func (handler *Handler) getProfile(writer http.ResponseWriter, request *http.Request) {
	accountID, err := requestutil.RequiredAccountID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.accountService.GetProfile(request.Context(), accountID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, account)
}

/*
UpdateProfile partially updates the authenticated account's profile.

PUT /api/user

Description: Absent JSON fields are left unchanged. An email change is
re-checked for uniqueness before the update runs. The response body is the
number of rows the update touched.

Request:
  - Body: updateProfileRequest (Email, Phone, FullName, BirthDate, Gender; all optional)

Response:
  - 200: int64: Updated row count
  - 400: ErrInvalidJSON: Bad input or validation failure
  - 409: ErrConflict: Email already registered
*/
func (handler *Handler) updateProfile(writer http.ResponseWriter, request *http.Request) {
	accountID, err := requestutil.RequiredAccountID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateProfileRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	if input.Email != nil {
		validator.Required(auth.FieldEmail, *input.Email).Email(auth.FieldEmail, *input.Email)
	}
	if input.FullName != nil {
		validator.MaxLen(auth.FieldFullName, *input.FullName, 100)
	}
	if input.Gender != nil && *input.Gender != "" {
		validator.OneOf(auth.FieldGender, *input.Gender, "MALE", "FEMALE", "OTHER")
	}

	var birthDate *time.Time
	if input.BirthDate != nil && *input.BirthDate != "" {
		parsed, parseErr := time.Parse("2006-01-02", *input.BirthDate)
		if parseErr != nil {
			validator.Custom(auth.FieldBirthDate, true, "Must be a date in YYYY-MM-DD form")
		} else {
			birthDate = &parsed
		}
	}

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	updatedCount, err := handler.accountService.UpdateProfile(request.Context(), accountID, UpdateProfileInput{
		Email:     input.Email,
		Phone:     input.Phone,
		FullName:  input.FullName,
		BirthDate: birthDate,
		Gender:    input.Gender,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, updatedCount)
}

/*
ChangePassword updates the authenticated account's password.

PUT /api/user/password

Description: Verifies the current password, enforces the strength policy on
the new one, then revokes every live session. The client must log in again.

Request:
  - Body: changePasswordRequest (OldPassword, NewPassword)

Response:
  - 204: No Content: Password changed, all sessions revoked
  - 400: ErrInvalidJSON: Weak password or validation failure
  - 401: ErrUnauthorized: Wrong current password or not authenticated
*/
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	accountID, err := requestutil.RequiredAccountID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changePasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(auth.FieldOldPassword, input.OldPassword).
		Required(auth.FieldNewPassword, input.NewPassword).
		MinLen(auth.FieldNewPassword, input.NewPassword, 8)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.ChangePassword(request.Context(), accountID, input.OldPassword, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
