// Copyright (c) 2026 Placely. All rights reserved.
// Author: dev@placely.io

package sec

import (
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// # Password Policy

const (
	// PasswordMinLength is the minimum accepted password length.
	PasswordMinLength = 8

	// DefaultBcryptCost is the bcrypt work factor used when the configured
	// cost is out of bcrypt's valid range.
	DefaultBcryptCost = 12
)

// HashPassword hashes a plain-text password using the bcrypt algorithm.
func HashPassword(plainTextPassword string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), cost)
	if err != nil {
		return "", fmt.Errorf("sec_hash_password_failed: %w", err)
	}
	return string(hashedBytes), nil
}

// VerifyPassword compares a plain-text password with its hashed version.
// bcrypt performs the comparison in constant time.
func VerifyPassword(plainTextPassword, existingHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(existingHash), []byte(plainTextPassword))
	return err == nil
}

// # Password Strength

// Strength is the result of evaluating a candidate password against the
// platform password policy.
type Strength struct {
	// Valid reports whether every policy rule passed.
	Valid bool `json:"valid"`

	// Reasons lists the human-readable rules that failed. Empty when Valid.
	Reasons []string `json:"reasons,omitempty"`
}

// CheckStrength evaluates a candidate password against the platform policy:
// minimum length plus at least one uppercase letter, one lowercase letter,
// one digit, and one special character.
//
// The check is advisory and only enforced at signup and password change.
// Existing credentials are never re-validated at login.
func CheckStrength(plainTextPassword string) Strength {
	var hasUpper, hasLower, hasDigit, hasSpecial bool

	for _, r := range plainTextPassword {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	var reasons []string
	if len([]rune(plainTextPassword)) < PasswordMinLength {
		reasons = append(reasons, fmt.Sprintf("Must be at least %d characters", PasswordMinLength))
	}
	if !hasUpper {
		reasons = append(reasons, "Must contain an uppercase letter")
	}
	if !hasLower {
		reasons = append(reasons, "Must contain a lowercase letter")
	}
	if !hasDigit {
		reasons = append(reasons, "Must contain a digit")
	}
	if !hasSpecial {
		reasons = append(reasons, "Must contain a special character")
	}

	return Strength{Valid: len(reasons) == 0, Reasons: reasons}
}
