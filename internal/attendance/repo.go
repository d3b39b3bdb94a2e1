package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"campus/internal/rbac"
)

// Event represents a recorded attendance-present event.
type Event struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Department string    `json:"department"`
	SessionID  string    `json:"session_id"`
	When       time.Time `json:"when"`
	Status     string    `json:"status"`
	AuditScore *float64  `json:"audit_score,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

const eventColumns = `id, user_id, department, session_id, occurred_at, status, audit_score, created_at`

// Repository persists attendance events in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func scanEvent(row interface{ Scan(...any) error }) (Event, error) {
	var evt Event
	err := row.Scan(&evt.ID, &evt.UserID, &evt.Department, &evt.SessionID,
		&evt.When, &evt.Status, &evt.AuditScore, &evt.CreatedAt)
	return evt, err
}

// RecentEvent returns the user's latest event within the window, if any.
func (r *Repository) RecentEvent(ctx context.Context, userID string, window time.Duration) (*Event, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+eventColumns+`
		FROM attendance_events
		WHERE user_id = $1 AND occurred_at >= NOW() - ($2 * interval '1 second')
		ORDER BY occurred_at DESC
		LIMIT 1
	`, userID, window.Seconds())
	evt, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &evt, nil
}

// InsertEvent writes a new event.
func (r *Repository) InsertEvent(ctx context.Context, evt Event) (Event, error) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.When.IsZero() {
		evt.When = time.Now().UTC()
	}
	if evt.Status == "" {
		evt.Status = "present"
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_events (id, user_id, department, session_id, occurred_at, status, audit_score)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at
	`, evt.ID, evt.UserID, evt.Department, evt.SessionID, evt.When, evt.Status, evt.AuditScore)
	if err := row.Scan(&evt.CreatedAt); err != nil {
		return Event{}, err
	}
	return evt, nil
}

// GetEvent returns a single event by id.
func (r *Repository) GetEvent(ctx context.Context, id string) (Event, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM attendance_events WHERE id = $1`, id)
	return scanEvent(row)
}

// UpdateEventStatus updates status and audit score after worker processing.
func (r *Repository) UpdateEventStatus(ctx context.Context, id, status string, score *float64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE attendance_events
		SET status = $2, audit_score = COALESCE($3, audit_score)
		WHERE id = $1
	`, id, status, score)
	return err
}

// ListEvents returns events visible at the given scope: self filters by
// user, department by the denormalized department column, institution sees
// everything.
func (r *Repository) ListEvents(ctx context.Context, scope rbac.DataScope, userID, department string, limit, offset int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + eventColumns + ` FROM attendance_events`
	var args []any
	switch scope {
	case rbac.ScopeSelf:
		query += ` WHERE user_id = $1`
		args = append(args, userID)
	case rbac.ScopeDepartment:
		query += ` WHERE department = $1`
		args = append(args, department)
	}
	query += fmt.Sprintf(` ORDER BY occurred_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Event
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, evt)
	}
	return res, rows.Err()
}
