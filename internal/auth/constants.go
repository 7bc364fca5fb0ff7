// Copyright (c) 2026 Placely. All rights reserved.
// Author: dev@placely.io

package auth

import "time"

// # Authentication Constraints

const (
	// GenericCredentialMessage is the single client-facing message for every
	// credential gate failure (unknown user, wrong password, inactive account,
	// locked account). One message prevents account enumeration.
	GenericCredentialMessage = "Invalid username or password"

	// CacheOpTimeout bounds every best-effort session cache operation.
	// A slow Redis must not hold a login hostage.
	CacheOpTimeout = 2 * time.Second

	// JanitorInterval is how often the ledger janitor purges dead rows.
	JanitorInterval = 1 * time.Hour

	// RevokedTokenRetention is how long revoked ledger rows are kept before
	// the janitor removes them. Kept for a day to support incident forensics.
	RevokedTokenRetention = 24 * time.Hour
)
