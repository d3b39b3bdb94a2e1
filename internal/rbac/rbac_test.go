package rbac

import (
	"testing"

	"campus/internal/apperr"
)

func TestCapabilityTableCoversEveryRole(t *testing.T) {
	for _, role := range []Role{RoleStudent, RoleFaculty, RoleHOD, RolePrincipal} {
		c, err := CapabilityFor(role)
		if err != nil {
			t.Fatalf("role %s has no capability: %v", role, err)
		}
		if c.Role != role {
			t.Errorf("descriptor for %s carries role %s", role, c.Role)
		}
		if c.Scope == "" {
			t.Errorf("role %s has no data scope", role)
		}
		if len(c.Actions) == 0 {
			t.Errorf("role %s has no actions", role)
		}
	}
}

func TestCapabilityForUnknownRole(t *testing.T) {
	_, err := CapabilityFor(Role("admin"))
	if err == nil {
		t.Fatal("unknown role resolved a capability")
	}
	if !apperr.IsKind(err, apperr.Authorization) {
		t.Fatalf("expected authorization error, got %v", err)
	}
}

func TestScopesMatchRoleReach(t *testing.T) {
	cases := map[Role]DataScope{
		RoleStudent:   ScopeSelf,
		RoleFaculty:   ScopeSelf,
		RoleHOD:       ScopeDepartment,
		RolePrincipal: ScopeInstitution,
	}
	for role, want := range cases {
		c, err := CapabilityFor(role)
		if err != nil {
			t.Fatal(err)
		}
		if c.Scope != want {
			t.Errorf("role %s: scope %s, want %s", role, c.Scope, want)
		}
	}
}

func TestActionGrants(t *testing.T) {
	cases := []struct {
		role   Role
		action Action
		want   bool
	}{
		{RoleStudent, ActionMarkAttendance, true},
		{RoleStudent, ActionDecideLeave, false},
		{RoleStudent, ActionViewMessages, false},
		{RoleFaculty, ActionSubmitLeave, true},
		{RoleFaculty, ActionMarkAttendance, false},
		{RoleFaculty, ActionSendMessage, true},
		{RoleHOD, ActionDecideLeave, true},
		{RoleHOD, ActionSendMessage, true},
		{RolePrincipal, ActionDecideLeave, true},
		{RolePrincipal, ActionSubmitLeave, false},
		{RolePrincipal, ActionManageSyllabus, false},
	}
	for _, tc := range cases {
		c, err := CapabilityFor(tc.role)
		if err != nil {
			t.Fatal(err)
		}
		if got := c.Can(tc.action); got != tc.want {
			t.Errorf("%s can %s = %v, want %v", tc.role, tc.action, got, tc.want)
		}
	}
}
