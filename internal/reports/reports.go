package reports

import (
	"context"
	"database/sql"

	"campus/internal/apperr"
	"campus/internal/rbac"
)

// Overview is the stat block behind the hod and principal dashboards.
type Overview struct {
	Scope             rbac.DataScope `json:"scope"`
	Department        string         `json:"department,omitempty"`
	TotalStudents     int            `json:"total_students"`
	TotalFaculty      int            `json:"total_faculty"`
	PresentToday      int            `json:"present_today"`
	PendingLeaves     int            `json:"pending_leaves"`
	AvgSyllabusPct    float64        `json:"avg_syllabus_percent"`
	UnreadMessages    int            `json:"unread_messages"`
	DepartmentsServed int            `json:"departments,omitempty"`
}

// Service computes role-scoped overview stats with aggregate queries.
type Service struct {
	db *sql.DB
}

// NewService creates a service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// ForViewer builds the overview the viewer's role is entitled to: the hod
// view covers one department, the principal view the whole institution.
func (s *Service) ForViewer(ctx context.Context, role rbac.Role, viewerDept string) (*Overview, error) {
	c, err := rbac.CapabilityFor(role)
	if err != nil {
		return nil, err
	}
	if !c.Can(rbac.ActionViewOverview) {
		return nil, apperr.New(apperr.Authorization, "role %q may not view overview stats", role)
	}

	o := Overview{Scope: c.Scope}
	dept := viewerDept
	if c.Scope == rbac.ScopeInstitution {
		dept = ""
	} else {
		o.Department = dept
	}

	counts := []struct {
		dst   *int
		query string
	}{
		{&o.TotalStudents, `SELECT COUNT(*) FROM users WHERE role = 'student' AND ($1 = '' OR department = $1)`},
		{&o.TotalFaculty, `SELECT COUNT(*) FROM users WHERE role IN ('faculty','hod') AND ($1 = '' OR department = $1)`},
		{&o.PresentToday, `SELECT COUNT(*) FROM attendance_events WHERE occurred_at::date = CURRENT_DATE AND ($1 = '' OR department = $1)`},
		{&o.PendingLeaves, `SELECT COUNT(*) FROM leave_requests WHERE status = 'pending' AND ($1 = '' OR department = $1)`},
		{&o.UnreadMessages, `SELECT COUNT(*) FROM messages WHERE NOT is_read AND ($1 = '' OR sender_department = $1)`},
	}
	for _, cq := range counts {
		if err := s.db.QueryRowContext(ctx, cq.query, dept).Scan(cq.dst); err != nil {
			return nil, err
		}
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(AVG(progress_percent), 0) FROM syllabus_items`).Scan(&o.AvgSyllabusPct); err != nil {
		return nil, err
	}
	if c.Scope == rbac.ScopeInstitution {
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(DISTINCT department) FROM users WHERE department IS NOT NULL`).Scan(&o.DepartmentsServed); err != nil {
			return nil, err
		}
	}
	return &o, nil
}
