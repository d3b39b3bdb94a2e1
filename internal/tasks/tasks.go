package tasks

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"campus/internal/apperr"
)

// TaskStatus of a student task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in-progress"
	StatusCompleted  TaskStatus = "completed"
)

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Task belongs to exactly one student; nobody else sees or edits it.
type Task struct {
	ID          string     `json:"id"`
	StudentID   string     `json:"student_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Status      TaskStatus `json:"status"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Repository persists tasks in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ListByStudent returns the student's own tasks.
func (r *Repository) ListByStudent(ctx context.Context, studentID string) ([]Task, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, student_id, title, description, category, status, due_date, created_at, updated_at
		FROM tasks WHERE student_id = $1 ORDER BY created_at DESC
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.StudentID, &t.Title, &t.Description, &t.Category, &t.Status, &t.DueDate, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Create inserts a new task for the student.
func (r *Repository) Create(ctx context.Context, t Task) (Task, error) {
	t.Title = strings.TrimSpace(t.Title)
	if t.StudentID == "" || t.Title == "" {
		return Task{}, apperr.New(apperr.Validation, "student and title required")
	}
	if t.Status == "" {
		t.Status = StatusPending
	}
	if !t.Status.Valid() {
		return Task{}, apperr.New(apperr.Validation, "unknown task status %q", t.Status)
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO tasks (id, student_id, title, description, category, status, due_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at
	`, t.ID, t.StudentID, t.Title, t.Description, t.Category, t.Status, t.DueDate)
	if err := row.Scan(&t.CreatedAt, &t.UpdatedAt); err != nil {
		return Task{}, err
	}
	return t, nil
}

// UpdateStatus moves a task between statuses. The owner guard in the WHERE
// clause keeps one student from touching another's tasks.
func (r *Repository) UpdateStatus(ctx context.Context, id, studentID string, status TaskStatus) (*Task, error) {
	if !status.Valid() {
		return nil, apperr.New(apperr.Validation, "unknown task status %q", status)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks SET status = $3, updated_at = NOW() WHERE id = $1 AND student_id = $2
	`, id, studentID, status)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, apperr.New(apperr.NotFound, "task %s not found", id)
	}
	row := r.db.QueryRowContext(ctx, `
		SELECT id, student_id, title, description, category, status, due_date, created_at, updated_at
		FROM tasks WHERE id = $1
	`, id)
	var t Task
	if err := row.Scan(&t.ID, &t.StudentID, &t.Title, &t.Description, &t.Category, &t.Status, &t.DueDate, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "task %s not found", id)
		}
		return nil, err
	}
	return &t, nil
}
