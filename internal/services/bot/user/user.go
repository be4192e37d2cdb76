// Package user defines the bit bot user record domain.
package user

import (
	"strings"

	apperrors "github.com/GTBitsOfGood/bit-bot/internal/platform/errors"
)

// DefaultTeam is the team assigned to users before they pick one.
const DefaultTeam = "No Team"

// Role describes a user's privilege level.
type Role string

const (
	// RoleUser is the default, unprivileged role.
	RoleUser Role = "user"
	// RoleAdmin grants access to privileged verbs.
	RoleAdmin Role = "admin"
)

var (
	// ErrEmptyID indicates a missing user identifier.
	ErrEmptyID = apperrors.New(apperrors.CodeUserEmptyID, "user id is required")
	// ErrInvalidRole indicates a role outside the known set.
	ErrInvalidRole = apperrors.New(apperrors.CodeUserBadRole, "role must be user or admin")
	// ErrNegativeBits indicates a record with a negative balance.
	ErrNegativeBits = apperrors.New(apperrors.CodeNegativeBits, "bits must be greater than or equal to zero")
)

// User is one tracked user record.
//
// Records are created on first mutation and never deleted; clear-bits and
// clear-teams reset fields in place.
type User struct {
	ID   string
	Bits int64
	Team string
	Role Role
}

// New returns a user record with default balance, team, and role.
func New(id string) User {
	return User{
		ID:   strings.TrimSpace(id),
		Bits: 0,
		Team: DefaultTeam,
		Role: RoleUser,
	}
}

// ParseRole validates a stored role string, defaulting blanks to RoleUser.
func ParseRole(value string) (Role, error) {
	switch Role(strings.TrimSpace(value)) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleUser, "":
		return RoleUser, nil
	default:
		return "", ErrInvalidRole
	}
}

// Validate checks record invariants before persistence.
func (u User) Validate() error {
	if strings.TrimSpace(u.ID) == "" {
		return ErrEmptyID
	}
	if u.Bits < 0 {
		return ErrNegativeBits
	}
	if _, err := ParseRole(string(u.Role)); err != nil {
		return err
	}
	return nil
}

// IsAdmin reports whether the record carries the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
