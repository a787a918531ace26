package rbac

import (
	"fmt"
	"strings"

	xerrors "pulsetrack/shared/utils/errors"
)

// Role is a closed set; anything outside it is rejected by ParseRole.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

type Permission string

const (
	PermPatientsRead  Permission = "patients:read"
	PermPatientsWrite Permission = "patients:write"
	PermAdmin         Permission = "admin"
)

var rolePermissions = map[Role]map[Permission]struct{}{
	RoleUser: {
		PermPatientsRead:  {},
		PermPatientsWrite: {},
	},
	RoleAdmin: {
		PermPatientsRead:  {},
		PermPatientsWrite: {},
		PermAdmin:         {},
	},
}

// ParseRole accepts the canonical names case-insensitively. An empty value
// defaults to USER, matching account registration.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case "", RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("%w: %q", xerrors.ErrInvalidRole, s)
	}
}

func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

func (r Role) String() string { return string(r) }

// Permissions returns a copy of the role's permission set.
func (r Role) Permissions() []Permission {
	set := rolePermissions[r]
	out := make([]Permission, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	return out
}

// Principal is the authenticated caller carried in the request context.
type Principal struct {
	Subject string
	Role    Role
}

func (p Principal) Can(perm Permission) bool {
	_, ok := rolePermissions[p.Role][perm]
	return ok
}

type Authorizer interface {
	Authorize(p Principal, perm Permission) bool
}

// RoleAuthorizer grants by static role membership.
type RoleAuthorizer struct{}

func (RoleAuthorizer) Authorize(p Principal, perm Permission) bool {
	return p.Can(perm)
}
