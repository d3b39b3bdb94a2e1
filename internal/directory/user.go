package directory

import (
	"time"

	"campus/internal/rbac"
)

// User is a directory record resolved at login and held for the session.
type User struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       rbac.Role `json:"role"`
	Department *string   `json:"department,omitempty"`
	StudentID  *string   `json:"student_id,omitempty"`
	EmployeeID *string   `json:"employee_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Dept returns the department or "" when unset (principal).
func (u User) Dept() string {
	if u.Department == nil {
		return ""
	}
	return *u.Department
}
