// Copyright (c) 2026 Placely. All rights reserved.
// Author: dev@placely.io

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away common body decoding and header parsing patterns, ensuring
consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/placely/auth-service/internal/platform/apperr"
	"github.com/placely/auth-service/internal/platform/constants"
	"github.com/placely/auth-service/internal/platform/ctxutil"
	"github.com/placely/auth-service/internal/platform/sec"
	"github.com/placely/auth-service/internal/platform/validate"
)

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - request: *http.Request
  - target: interface{} (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target interface{}) error {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
BearerToken extracts the token from an 'Authorization: Bearer <token>' header.

Returns:
  - string: The raw token
  - error: apperr.ValidationError if the header is absent or malformed
*/
func BearerToken(request *http.Request) (string, error) {
	header := request.Header.Get(constants.HeaderAuthorization)
	if header == "" {
		return "", apperr.ValidationError("Authorization header is required")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], constants.BearerPrefix) || parts[1] == "" {
		return "", apperr.ValidationError("Authorization header must use the Bearer scheme")
	}

	return parts[1], nil
}

/*
Claims extracts the authenticated token claims from the request context.

Returns nil if the request is not authenticated.
*/
func Claims(request *http.Request) *sec.TokenClaims {
	return ctxutil.GetAuthUser(request.Context())
}

/*
RequiredClaims ensures the request is authenticated and returns the token claims.

If the authentication filter stashed a deferred decode failure, that precise
error is surfaced instead of a generic 401.

Returns:
  - *sec.TokenClaims: The authenticated token claims
  - error: apperr.Unauthorized (or the deferred decode error)
*/
func RequiredClaims(request *http.Request) (*sec.TokenClaims, error) {

	// Get token claims
	claims := ctxutil.GetAuthUser(request.Context())

	// If the user is not authenticated, surface the deferred failure if any
	if claims == nil {
		if authErr := ctxutil.GetAuthError(request.Context()); authErr != nil {
			return nil, authErr
		}
		return nil, apperr.Unauthorized("Authentication required")
	}

	return claims, nil
}

/*
RequiredAccountID returns the account ID of the currently logged-in user.

The token subject carries the account ID as a decimal string.

Returns:
  - int64: Account ID
  - error: apperr.Unauthorized if not authenticated or the subject is corrupt
*/
func RequiredAccountID(request *http.Request) (int64, error) {

	// Get token claims
	claims, err := RequiredClaims(request)

	// If the user is not authenticated, return an error
	if err != nil {
		return 0, err
	}

	accountID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, apperr.Unauthorized("Token subject is invalid")
	}

	return accountID, nil
}
