package rbac

import "campus/internal/apperr"

// Role is fixed at account creation and never changes afterwards.
type Role string

const (
	RoleStudent   Role = "student"
	RoleFaculty   Role = "faculty"
	RoleHOD       Role = "hod"
	RolePrincipal Role = "principal"
)

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleFaculty, RoleHOD, RolePrincipal:
		return true
	}
	return false
}

// Action names a mutating operation a role may perform.
type Action string

const (
	ActionMarkAttendance Action = "attendance.mark"
	ActionViewAttendance Action = "attendance.view"
	ActionManageTasks    Action = "tasks.manage"
	ActionSubmitLeave    Action = "leave.submit"
	ActionDecideLeave    Action = "leave.decide"
	ActionViewMessages   Action = "messages.view"
	ActionSendMessage    Action = "messages.send"
	ActionManageSyllabus Action = "syllabus.manage"
	ActionViewOverview   Action = "overview.view"
)

// DataScope describes how far a role's visibility reaches.
type DataScope string

const (
	ScopeSelf        DataScope = "self"        // only records the viewer owns
	ScopeDepartment  DataScope = "department"  // records within the viewer's department
	ScopeInstitution DataScope = "institution" // everything
)

// Capability is the descriptor resolved once at session start; route gates
// and view code consult it instead of branching on the role everywhere.
type Capability struct {
	Role    Role      `json:"role"`
	Scope   DataScope `json:"scope"`
	Actions []Action  `json:"actions"`
}

// Can reports whether the capability includes the action.
func (c Capability) Can(a Action) bool {
	for _, have := range c.Actions {
		if have == a {
			return true
		}
	}
	return false
}

var capabilities = map[Role]Capability{
	RoleStudent: {
		Role:  RoleStudent,
		Scope: ScopeSelf,
		Actions: []Action{
			ActionMarkAttendance, ActionViewAttendance, ActionManageTasks,
		},
	},
	RoleFaculty: {
		Role:  RoleFaculty,
		Scope: ScopeSelf,
		Actions: []Action{
			ActionViewAttendance, ActionSubmitLeave, ActionSendMessage,
			ActionManageSyllabus,
		},
	},
	RoleHOD: {
		Role:  RoleHOD,
		Scope: ScopeDepartment,
		Actions: []Action{
			ActionViewAttendance, ActionSubmitLeave, ActionDecideLeave,
			ActionViewMessages, ActionSendMessage, ActionManageSyllabus,
			ActionViewOverview,
		},
	},
	RolePrincipal: {
		Role:  RolePrincipal,
		Scope: ScopeInstitution,
		Actions: []Action{
			ActionViewAttendance, ActionDecideLeave, ActionViewMessages,
			ActionViewOverview,
		},
	},
}

// CapabilityFor resolves the capability descriptor for a role.
func CapabilityFor(role Role) (Capability, error) {
	c, ok := capabilities[role]
	if !ok {
		return Capability{}, apperr.New(apperr.Authorization, "unknown role %q", role)
	}
	return c, nil
}
