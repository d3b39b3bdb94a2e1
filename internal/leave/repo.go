package leave

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

const requestColumns = `id, requester_id, requester_name, employee_id, department, type,
	start_date, end_date, reason, status, applied_date, rejection_reason, decided_by,
	version, created_at, updated_at`

// Repository persists leave requests in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func scanRequest(row interface{ Scan(...any) error }) (Request, error) {
	var r Request
	err := row.Scan(&r.ID, &r.RequesterID, &r.RequesterName, &r.EmployeeID, &r.Department,
		&r.Type, &r.StartDate, &r.EndDate, &r.Reason, &r.Status, &r.AppliedDate,
		&r.RejectionReason, &r.DecidedBy, &r.Version, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

// Get returns a single request by id, or nil when absent.
func (r *Repository) Get(ctx context.Context, id string) (*Request, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM leave_requests WHERE id = $1`, id)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

// List returns the unfiltered candidate set, newest application first.
// Visibility filtering is the scoping engine's job, not the query's.
func (r *Repository) List(ctx context.Context) ([]Request, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+requestColumns+` FROM leave_requests ORDER BY applied_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// Create inserts a new request.
func (r *Repository) Create(ctx context.Context, req Request) (Request, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.AppliedDate.IsZero() {
		req.AppliedDate = time.Now().UTC()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO leave_requests (id, requester_id, requester_name, employee_id, department,
			type, start_date, end_date, reason, status, applied_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING version, created_at, updated_at
	`, req.ID, req.RequesterID, req.RequesterName, req.EmployeeID, req.Department,
		req.Type, req.StartDate, req.EndDate, req.Reason, req.Status, req.AppliedDate)
	if err := row.Scan(&req.Version, &req.CreatedAt, &req.UpdatedAt); err != nil {
		return Request{}, err
	}
	return req, nil
}

// MarkApproved flips a pending request to approved. The status guard makes
// the transition first-writer-wins; a raced caller sees zero rows.
func (r *Repository) MarkApproved(ctx context.Context, id, deciderID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE leave_requests
		SET status = 'approved', decided_by = $2, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, id, deciderID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MarkRejected flips a pending request to rejected and stores the reason.
func (r *Repository) MarkRejected(ctx context.Context, id, deciderID, reason string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE leave_requests
		SET status = 'rejected', rejection_reason = $3, decided_by = $2,
			version = version + 1, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, id, deciderID, reason)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
