package domain

import "time"

// Baseline roles seeded by the schema migrations. Role rows are immutable
// reference data; assigning one attaches the existing row, never a copy.
const (
	RoleUser  = "ROLE_USER"
	RoleAdmin = "ROLE_ADMIN"
)

type User struct {
	ID           string
	Username     string
	PasswordHash string // argon2 encoded
	Roles        []Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RoleNames returns the authority strings of all attached roles.
func (u User) RoleNames() []string {
	names := make([]string, len(u.Roles))
	for i, r := range u.Roles {
		names[i] = r.Name
	}
	return names
}

// HasRole reports whether the user carries the named role.
func (u User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

type Role struct {
	ID          string
	Name        string
	Description string
}
