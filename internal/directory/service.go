package directory

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"campus/internal/apperr"
	"campus/internal/rbac"
)

// CredentialSource resolves login credentials. Implemented by Repository.
type CredentialSource interface {
	GetByEmail(ctx context.Context, email string) (*Credentials, error)
}

// Service authenticates users against the directory.
type Service struct {
	creds CredentialSource
}

// NewService creates a service backed by a credential source.
func NewService(creds CredentialSource) *Service {
	return &Service{creds: creds}
}

// dummyHash is compared against when the email is unknown so that lookup
// misses take roughly as long as password mismatches.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

var errBadLogin = apperr.New(apperr.InvalidCredentials, "invalid credentials")

// Authenticate resolves email+password+role to a user. Wrong password and
// role mismatch both return the same InvalidCredentials error; nothing in
// the response distinguishes the two causes.
func (s *Service) Authenticate(ctx context.Context, email, password string, role rbac.Role) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" || !role.Valid() {
		return nil, errBadLogin
	}

	c, err := s.creds.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if c == nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, errBadLogin
	}

	passOK := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) == nil
	if !passOK || c.Role != role {
		return nil, errBadLogin
	}

	u := c.User
	return &u, nil
}
