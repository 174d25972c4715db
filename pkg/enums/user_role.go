package enums

import (
	"fmt"
	"strings"
)

// UserRole discriminates the single users table.
type UserRole string

const (
	UserRoleClient   UserRole = "client"
	UserRoleEmployee UserRole = "employee"
	UserRolePatron   UserRole = "patron"
)

var validUserRoles = []UserRole{
	UserRoleClient,
	UserRoleEmployee,
	UserRolePatron,
}

// String implements fmt.Stringer.
func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known UserRole.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsStaff is true for regular employees and the shop owner.
func (r UserRole) IsStaff() bool {
	return r == UserRoleEmployee || r == UserRolePatron
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validUserRoles {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
