package users

import (
	"strings"
	"time"
)

// Role is the permission class of an Identity. Values are part of the token and API contract.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleHR       Role = "HR"
	RoleAdmin    Role = "admin"
)

// DefaultRole is assigned to every self-registered account.
const DefaultRole = RoleEmployee

// Roles lists every role in ascending order of permission breadth.
func Roles() []Role { return []Role{RoleEmployee, RoleHR, RoleAdmin} }

// ParseRole accepts the canonical role names only. HR is matched case-sensitively
// because stored records and tokens carry the exact value.
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.TrimSpace(s)); r {
	case RoleEmployee, RoleHR, RoleAdmin:
		return r, true
	default:
		return "", false
	}
}

func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

// Identity is the stored user record the auth core authenticates against.
type Identity struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	Role         Role      `db:"role"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Public is the projection of an Identity that may cross the API boundary.
type Public struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

func (i Identity) Public() Public {
	return Public{ID: i.ID, Name: i.Name, Email: i.Email, Role: i.Role}
}

// NormalizeEmail trims and case-folds an address. Every lookup and write goes through it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Update carries optional field changes; nil fields are left untouched.
// All non-nil fields are applied together or not at all.
type Update struct {
	Name         *string
	Email        *string
	Role         *Role
	PasswordHash *string
}

// Changed lists the fields upd touches, in a fixed order. The hash itself is reported as "password".
func (upd Update) Changed() []string {
	var out []string
	if upd.Name != nil {
		out = append(out, "name")
	}
	if upd.Email != nil {
		out = append(out, "email")
	}
	if upd.Role != nil {
		out = append(out, "role")
	}
	if upd.PasswordHash != nil {
		out = append(out, "password")
	}
	return out
}

func (upd Update) Empty() bool { return len(upd.Changed()) == 0 }
