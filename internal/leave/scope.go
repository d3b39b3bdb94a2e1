package leave

import (
	"campus/internal/apperr"
	"campus/internal/rbac"
)

// ScopeForViewer filters the candidate set down to what the viewer may see.
// A department head sees only their department's requests, the principal
// sees everything, and no other role is a valid viewer of this collection.
func ScopeForViewer(role rbac.Role, viewerDept string, reqs []Request) ([]Request, error) {
	switch role {
	case rbac.RolePrincipal:
		return reqs, nil
	case rbac.RoleHOD:
		out := make([]Request, 0, len(reqs))
		for _, r := range reqs {
			if r.Department == viewerDept {
				out = append(out, r)
			}
		}
		return out, nil
	default:
		return nil, apperr.New(apperr.Authorization, "role %q may not view leave requests", role)
	}
}

// CanDecide reports whether the viewer may approve or reject the request.
// Resolved requests always return false: a second decision is a normal UI
// race (stale view) and must no-op rather than error.
func CanDecide(role rbac.Role, viewerDept string, req Request) bool {
	if req.Status != StatusPending {
		return false
	}
	switch role {
	case rbac.RolePrincipal:
		return true
	case rbac.RoleHOD:
		return req.Department == viewerDept
	default:
		return false
	}
}

// isApproverRole reports whether the role is ever allowed to decide,
// regardless of the particular request.
func isApproverRole(role rbac.Role) bool {
	return role == rbac.RoleHOD || role == rbac.RolePrincipal
}
