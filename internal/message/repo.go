package message

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

const messageColumns = `id, sender_id, sender_name, sender_email, sender_department,
	subject, body, priority, is_read, is_starred, version, sent_at`

// Repository persists messages in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func scanMessage(row interface{ Scan(...any) error }) (Message, error) {
	var m Message
	err := row.Scan(&m.ID, &m.SenderID, &m.SenderName, &m.SenderEmail, &m.SenderDepartment,
		&m.Subject, &m.Body, &m.Priority, &m.IsRead, &m.IsStarred, &m.Version, &m.SentAt)
	return m, err
}

// Get returns a message by id, or nil when absent.
func (r *Repository) Get(ctx context.Context, id string) (*Message, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id)
	m, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// List returns all messages, newest first.
func (r *Repository) List(ctx context.Context) ([]Message, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+messageColumns+` FROM messages ORDER BY sent_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Create inserts a new message.
func (r *Repository) Create(ctx context.Context, m Message) (Message, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.SentAt.IsZero() {
		m.SentAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (id, sender_id, sender_name, sender_email, sender_department,
			subject, body, priority, is_read, is_starred, sent_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, m.ID, m.SenderID, m.SenderName, m.SenderEmail, m.SenderDepartment,
		m.Subject, m.Body, m.Priority, m.IsRead, m.IsStarred, m.SentAt)
	if err != nil {
		return Message{}, err
	}
	return m, nil
}

// MarkRead flips is_read false→true. The guard keeps the flip one-way.
func (r *Repository) MarkRead(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE messages SET is_read = TRUE, version = version + 1
		WHERE id = $1 AND is_read = FALSE
	`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// SetStarred sets the starred flag.
func (r *Repository) SetStarred(ctx context.Context, id string, starred bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE messages SET is_starred = $2, version = version + 1 WHERE id = $1
	`, id, starred)
	return err
}
