// Copyright (c) 2026 Placely. All rights reserved.
// Author: dev@placely.io

package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/placely/auth-service/internal/platform/apperr"
	"github.com/placely/auth-service/internal/platform/constants"
	"github.com/placely/auth-service/internal/platform/middleware"
	requestutil "github.com/placely/auth-service/internal/platform/request"
	"github.com/placely/auth-service/internal/platform/respond"
	"github.com/placely/auth-service/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements authentication-related HTTP endpoints.
//
// # Scope
//
// This handler manages the session lifecycle entry points (signup, login,
// token exchange, logout) plus the identity probes used by registration forms.
type Handler struct {
	authService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{authService: service}
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
//
// # Endpoints
//   - POST /login   : Authenticates and returns a JWT pair.
//   - POST /refresh : Exchanges a refresh token for a new access token.
//
// Logout stays on the public group on purpose: it presents a REFRESH token in
// the Authorization header, which the authentication filter would stash as a
// type mismatch. The handler extracts the bearer itself.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/signup", handler.signUp)
	router.Post("/login", handler.login)
	router.Post("/logout", handler.logout)
	router.Post("/refresh", handler.refresh)
	router.Post("/validate-password", handler.validatePassword)
	router.Get("/check/username", handler.checkUsername)
	router.Get("/check/email", handler.checkEmail)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/me", handler.me)
	})

	return router
}

// # Request Payloads

type signUpRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FullName  string `json:"fullName"`
	Phone     string `json:"phone"`
	BirthDate string `json:"birthDate"`
	Gender    string `json:"gender"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type validatePasswordRequest struct {
	Password string `json:"password"`
}

// # Response Payloads

type accountResponse struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Role     string `json:"role"`
}

type loginResponse struct {
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
	TokenType    string          `json:"tokenType"`
	ExpiresIn    int64           `json:"expiresIn"`
	User         accountResponse `json:"user"`
}

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int64  `json:"expiresIn"`

	// Present only when the refresh token was rotated.
	RefreshToken string `json:"refreshToken,omitempty"`
}

func toAccountResponse(account *Account) accountResponse {
	return accountResponse{
		UserID:   account.ID,
		Username: account.Username,
		Email:    account.Email,
		FullName: account.FullName,
		Phone:    account.Phone,
		Role:     string(account.Role),
	}
}

/*
SignUp handles the creation of a new user account.

POST /api/auth/signup

Description: Validates input, checks for identity conflicts, enforces the
password policy, and persists a new account.

Request:
  - Body: signUpRequest (Username, Email, Password, FullName, Phone, BirthDate, Gender)

Response:
  - 201: accountResponse: Created account profile
  - 400: ErrInvalidJSON: Bad input, validation failure, or weak password
  - 409: ErrConflict: Username or Email already exists
*/
func (handler *Handler) signUp(writer http.ResponseWriter, request *http.Request) {
	var input signUpRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldUsername, input.Username).
		MinLen(FieldUsername, input.Username, 3).
		MaxLen(FieldUsername, input.Username, 50).
		Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, 8)

	if input.Gender != "" {
		validator.OneOf(FieldGender, input.Gender, "MALE", "FEMALE", "OTHER")
	}

	var birthDate *time.Time
	if input.BirthDate != "" {
		parsed, err := time.Parse("2006-01-02", input.BirthDate)
		if err != nil {
			validator.Custom(FieldBirthDate, true, "Must be a date in YYYY-MM-DD form")
		} else {
			birthDate = &parsed
		}
	}

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.authService.SignUp(request.Context(), SignUpInput{
		Username:  input.Username,
		Email:     input.Email,
		Password:  input.Password,
		FullName:  input.FullName,
		Phone:     input.Phone,
		BirthDate: birthDate,
		Gender:    input.Gender,
	})

	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, toAccountResponse(account))
}

/*
Login authenticates a user and establishes a session.

POST /api/auth/login

Description: Verifies credentials and returns a signed access/refresh token
pair. The username field accepts either a username or an email address. All
credential gate failures collapse into one generic 401 so the response never
reveals whether the identifier exists, the password was wrong, or the account
is locked.

Request:
  - Body: loginRequest (Username: username or email, Password)

Response:
  - 200: loginResponse: Token pair and account profile
  - 401: ErrUnauthorized: Invalid credentials, inactive, or locked account
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldUsername, input.Username)
	validator.Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Login(request.Context(), LoginInput{
		Username:  input.Username,
		Password:  input.Password,
		UserAgent: request.UserAgent(),
		IPAddress: getClientIP(request),
	})
	if err != nil {
		respond.Error(writer, request, collapseCredentialError(err))
		return
	}

	respond.OK(writer, loginResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		TokenType:    constants.TokenTypeBearer,
		ExpiresIn:    session.ExpiresIn,
		User:         toAccountResponse(session.Account),
	})
}

/*
Logout terminates the session behind the presented refresh token.

POST /api/auth/logout

Description: Revokes every live token of the account. Idempotent: a second
logout with the same token, or with a token that no longer decodes, still
returns 204.

Request:
  - Header: Authorization: Bearer <refresh token>

Response:
  - 200: {message}: Session terminated (or was already dead)
  - 400: ErrValidation: Authorization header absent or malformed
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	refreshToken, err := requestutil.BearerToken(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.Logout(request.Context(), refreshToken); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{"message": "Logged out successfully"})
}

/*
Refresh issues a new access token using a valid refresh token.

POST /api/auth/refresh

Description: Validates the refresh token against both its signature and the
token ledger, then issues a fresh access token. When the refresh token is
close to its own expiry the whole session is rotated and the response carries
a replacement refresh token.

Request:
  - Body: refreshRequest (RefreshToken)

Response:
  - 200: refreshResponse: New access token credentials
  - 401: ErrUnauthorized: Missing, invalid, revoked, or mismatched token
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if input.RefreshToken == "" {
		respond.Error(writer, request, validate.RequiredError(FieldRefreshToken, "is required"))
		return
	}

	result, err := handler.authService.Refresh(request.Context(), input.RefreshToken)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, refreshResponse{
		AccessToken:  result.AccessToken,
		TokenType:    constants.TokenTypeBearer,
		ExpiresIn:    result.ExpiresIn,
		RefreshToken: result.RefreshToken,
	})
}

/*
ValidatePassword evaluates a candidate password against the platform policy.

POST /api/auth/validate-password

Description: Stateless strength probe for registration forms. Touches no
account data.

Request:
  - Body: validatePasswordRequest (Password)

Response:
  - 200: sec.Strength: Verdict with per-rule reasons
*/
func (handler *Handler) validatePassword(writer http.ResponseWriter, request *http.Request) {
	var input validatePasswordRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	respond.OK(writer, handler.authService.ValidatePassword(input.Password))
}

/*
CheckUsername reports whether a username is already registered.

GET /api/auth/check/username?username=<value>

Response:
  - 200: {exists}: Availability flag
  - 400: ErrValidation: Missing query parameter
*/
func (handler *Handler) checkUsername(writer http.ResponseWriter, request *http.Request) {
	username := request.URL.Query().Get(FieldUsername)
	if username == "" {
		respond.Error(writer, request, validate.RequiredError(FieldUsername, "is required"))
		return
	}

	exists, err := handler.authService.CheckUsernameExists(request.Context(), username)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]bool{"exists": exists})
}

/*
CheckEmail reports whether an email is already registered.

GET /api/auth/check/email?email=<value>

Response:
  - 200: {exists}: Availability flag
  - 400: ErrValidation: Missing query parameter
*/
func (handler *Handler) checkEmail(writer http.ResponseWriter, request *http.Request) {
	email := request.URL.Query().Get(FieldEmail)
	if email == "" {
		respond.Error(writer, request, validate.RequiredError(FieldEmail, "is required"))
		return
	}

	exists, err := handler.authService.CheckEmailExists(request.Context(), email)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]bool{"exists": exists})
}

/*
Me returns the profile of the authenticated account.

GET /api/auth/me

Response:
  - 200: accountResponse: Account profile
  - 401: ErrUnauthorized: Not authenticated (precise token code when available)
*/
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	accountID, err := requestutil.RequiredAccountID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.authService.AccountInfo(request.Context(), accountID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, toAccountResponse(account))
}

// collapseCredentialError maps every credential gate sentinel onto one
// indistinguishable 401. Other errors pass through untouched.
func collapseCredentialError(err error) error {
	if errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrAccountInactive) ||
		errors.Is(err, ErrAccountLocked) {
		return apperr.Unauthorized(GenericCredentialMessage)
	}
	return err
}

// getClientIP tries to extract the real IP address of a user over proxy environments.
func getClientIP(request *http.Request) string {

	ip := request.Header.Get(constants.HeaderXRealIP)
	if ip == "" {
		ip = request.Header.Get(constants.HeaderXForwardedFor)
	}

	if ip == "" {
		ip = request.RemoteAddr
	}
	return ip
}
