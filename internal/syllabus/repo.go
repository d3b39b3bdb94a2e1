package syllabus

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository persists syllabus items in Postgres. The status column does not
// exist: status is derived from progress_percent at read time.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Get returns an item by id, or nil when absent.
func (r *Repository) Get(ctx context.Context, id string) (*Item, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, subject, topic, description, progress_percent, last_updated, created_at
		FROM syllabus_items WHERE id = $1
	`, id)
	var it Item
	if err := row.Scan(&it.ID, &it.Subject, &it.Topic, &it.Description, &it.ProgressPercent, &it.LastUpdated, &it.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &it, nil
}

// List returns all items ordered by subject then topic.
func (r *Repository) List(ctx context.Context) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, subject, topic, description, progress_percent, last_updated, created_at
		FROM syllabus_items ORDER BY subject, topic
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Subject, &it.Topic, &it.Description, &it.ProgressPercent, &it.LastUpdated, &it.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Create inserts a new item.
func (r *Repository) Create(ctx context.Context, it Item) (Item, error) {
	if err := Validate(it); err != nil {
		return Item{}, err
	}
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	it = SetProgress(it, it.ProgressPercent, time.Now().UTC())
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO syllabus_items (id, subject, topic, description, progress_percent, last_updated)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at
	`, it.ID, it.Subject, it.Topic, it.Description, it.ProgressPercent, it.LastUpdated)
	if err := row.Scan(&it.CreatedAt); err != nil {
		return Item{}, err
	}
	return it, nil
}

// UpdateProgress clamps and stores a new percent, returning the updated item.
func (r *Repository) UpdateProgress(ctx context.Context, id string, percent int) (*Item, error) {
	it, err := r.Get(ctx, id)
	if err != nil || it == nil {
		return it, err
	}
	updated := SetProgress(*it, percent, time.Now().UTC())
	_, err = r.db.ExecContext(ctx, `
		UPDATE syllabus_items SET progress_percent = $2, last_updated = $3 WHERE id = $1
	`, id, updated.ProgressPercent, updated.LastUpdated)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// AverageProgress returns the mean percent across all items, optionally
// restricted to one subject. Feeds the overview stats.
func (r *Repository) AverageProgress(ctx context.Context, subject string) (float64, error) {
	query := `SELECT COALESCE(AVG(progress_percent), 0) FROM syllabus_items`
	args := []any{}
	if subject != "" {
		query += ` WHERE subject = $1`
		args = append(args, subject)
	}
	var avg float64
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&avg)
	return avg, err
}
