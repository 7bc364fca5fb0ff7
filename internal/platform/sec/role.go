// Copyright (c) 2026 Placely. All rights reserved.
// Author: dev@placely.io

package sec

// # Account Roles

// AccountRole represents the authorization level granted to an account.
type AccountRole string

const (
	// Unrestricted system access
	RoleAdmin AccountRole = "ADMIN"

	// Operates one or more properties on the platform
	RoleOwner AccountRole = "OWNER"

	// Works for an owner with delegated management rights
	RoleEmployee AccountRole = "EMPLOYEE"

	// Default role for standard registered users
	RoleCustomer AccountRole = "CUSTOMER"
)

// # Role Hierarchy

// AtLeast checks if the current role meets or exceeds the required target role.
func (r AccountRole) AtLeast(target AccountRole) bool {
	return r.level() >= target.level()
}

// level maps a role to a numeric hierarchy level for comparison logic.
func (r AccountRole) level() int {

	// Linear scale (10-40) allows for future intermediate roles
	switch r {
	case RoleAdmin:
		return 40
	case RoleOwner:
		return 30
	case RoleEmployee:
		return 20
	case RoleCustomer:
		return 10
	default:
		return 0
	}
}
