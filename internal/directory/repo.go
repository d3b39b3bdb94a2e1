package directory

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Repository reads and writes users in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Credentials pairs a user with its stored bcrypt hash.
type Credentials struct {
	User
	PasswordHash string
}

// GetByEmail returns the user plus password hash, or nil when absent.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*Credentials, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, role, department, student_id, employee_id, password_hash, created_at
		FROM users WHERE email = $1
	`, email)
	var c Credentials
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Role, &c.Department, &c.StudentID, &c.EmployeeID, &c.PasswordHash, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// GetUser returns a user by id.
func (r *Repository) GetUser(ctx context.Context, id string) (*User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, role, department, student_id, employee_id, created_at
		FROM users WHERE id = $1
	`, id)
	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Department, &u.StudentID, &u.EmployeeID, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// SaveRefreshToken stores a refresh token for rotation checks.
func (r *Repository) SaveRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (user_id, token, expires_at)
		VALUES ($1, $2, $3)
	`, userID, token, expiresAt)
	return err
}

// RefreshTokenValid reports whether the token exists, is unrevoked and unexpired.
func (r *Repository) RefreshTokenValid(ctx context.Context, token string) (bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM refresh_tokens
		WHERE token = $1 AND NOT revoked AND expires_at > NOW()
	`, token)
	var n int
	if err := row.Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// RevokeRefreshToken marks a token revoked.
func (r *Repository) RevokeRefreshToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE token = $1`, token)
	return err
}
