package leave

import "time"

// Status of a leave request. Transitions only pending→approved or
// pending→rejected; both are terminal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Request is a faculty leave application.
type Request struct {
	ID              string    `json:"id"`
	RequesterID     string    `json:"requester_id"`
	RequesterName   string    `json:"requester_name"`
	EmployeeID      string    `json:"employee_id"`
	Department      string    `json:"department"`
	Type            string    `json:"type"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	Reason          string    `json:"reason"`
	Status          Status    `json:"status"`
	AppliedDate     time.Time `json:"applied_date"`
	RejectionReason *string   `json:"rejection_reason,omitempty"`
	DecidedBy       *string   `json:"decided_by,omitempty"`
	Version         int       `json:"version"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
