// Package auth supplies identity to the rest of the service: users, roles,
// sessions, and the fixed permission table transitions are checked against.
// The core never authenticates mid-operation; it only inspects the Actor it
// is handed.
package auth

import "time"

// Role grants a fixed capability set. Role checks are table lookups, not
// type hierarchies.
type Role string

const (
	RoleReadOnly Role = "read_only"
	RoleFull     Role = "full"
	RoleOwner    Role = "owner"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleReadOnly, RoleFull, RoleOwner:
		return true
	}
	return false
}

// User is an operator account. Accounts start unapproved and must be
// approved by an owner before they can act.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Email        string     `json:"email"`
	PhoneNumber  string     `json:"phone_number,omitempty"`
	Role         Role       `json:"role"`
	Approved     bool       `json:"is_approved"`
	Onboarded    bool       `json:"is_onboarded"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	ApprovedBy   string     `json:"approved_by,omitempty"`
}

// Actor is the identity attached to a single operation. CredentialVerified
// is true only when the credential was re-checked for this call; it never
// persists across requests.
type Actor struct {
	ID                 string
	Username           string
	Role               Role
	CredentialVerified bool
}
