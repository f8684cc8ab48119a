// Package permission implements the RESOURCE:ACTION:SCOPE capability strings
// carried on organization memberships and the wildcard match used to
// authorize requests against them.
package permission

import (
	"strings"

	"github.com/hugh/rateboard/internal/database/models"
)

const (
	Separator = ":"
	Wildcard  = "*"
)

// Permissions used by routes.
const (
	OrganizationAll    = "ORGANIZATION:*:*"
	OrganizationInvite = "ORGANIZATION:INVITE:*"
	CriteriaRead       = "ORGANIZATION:CRITERIA:READ"
	CriteriaCreate     = "ORGANIZATION:CRITERIA:CREATE"
	CriteriaUpdate     = "ORGANIZATION:CRITERIA:UPDATE"
	CriteriaDelete     = "ORGANIZATION:CRITERIA:DELETE"
	UserAll            = "USER:*:*"
	UserAssignAssigned = "USER:ASSIGN:ASSIGNED"
)

var (
	ownerPermissions = []string{
		OrganizationAll,
		UserAll,
	}
	supervisorPermissions = []string{
		"ORGANIZATION:READ:*",
		CriteriaRead,
		UserAssignAssigned,
		"USER:READ:ASSIGNED",
		"RATING:CREATE:ASSIGNED",
		"RATING:READ:ASSIGNED",
	}
	employeePermissions = []string{
		"ORGANIZATION:READ:SELF",
		CriteriaRead,
		"USER:READ:SELF",
		"RATING:READ:SELF",
	}
)

// ForRole returns a copy of the default permission set for role, or nil for
// an unknown role.
func ForRole(role models.Role) []string {
	var src []string
	switch role {
	case models.RoleOwner:
		src = ownerPermissions
	case models.RoleSupervisor:
		src = supervisorPermissions
	case models.RoleEmployee:
		src = employeePermissions
	default:
		return nil
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// Invitable reports whether a membership with role may be created by an
// invitation. Owners only come from registration.
func Invitable(role models.Role) bool {
	return role == models.RoleSupervisor || role == models.RoleEmployee
}

// Matches reports whether the held permission grants required. Both must have
// the same number of segments; a "*" segment in held matches any segment.
// A "*" in required is only satisfied by a "*" in held.
func Matches(held, required string) bool {
	if held == required {
		return true
	}
	hs := strings.Split(held, Separator)
	rs := strings.Split(required, Separator)
	if len(hs) != len(rs) {
		return false
	}
	for i := range hs {
		if hs[i] == "" || rs[i] == "" {
			return false
		}
		if hs[i] != Wildcard && hs[i] != rs[i] {
			return false
		}
	}
	return true
}

// Authorize reports whether any held permission matches any of required.
// An empty required list always authorizes.
func Authorize(held, required []string) bool {
	if len(required) == 0 {
		return true
	}
	for _, h := range held {
		for _, r := range required {
			if Matches(h, r) {
				return true
			}
		}
	}
	return false
}
