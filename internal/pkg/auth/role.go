// internal/pkg/auth/role.go
package auth

import "fmt"

// Role is the closed set of user roles
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ParseRole converts a string into a Role, rejecting unknown values
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// UnmarshalText makes decoding (JSON claims included) fail on unknown roles
func (r *Role) UnmarshalText(text []byte) error {
	role, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = role
	return nil
}

func (r Role) String() string {
	return string(r)
}

// Principal is the authenticated caller passed explicitly into services
type Principal struct {
	UserID uint
	Email  string
	Role   Role
}

// IsAdmin reports whether the principal holds the admin role
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
