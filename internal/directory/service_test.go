package directory

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"campus/internal/apperr"
	"campus/internal/rbac"
)

type memCreds map[string]Credentials

func (m memCreds) GetByEmail(_ context.Context, email string) (*Credentials, error) {
	if c, ok := m[email]; ok {
		return &c, nil
	}
	return nil, nil
}

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	dept := "CS"
	creds := memCreds{
		"hod@campus.edu": {
			User: User{
				ID:         "u-hod",
				Name:       "Dr. Rao",
				Email:      "hod@campus.edu",
				Role:       rbac.RoleHOD,
				Department: &dept,
			},
			PasswordHash: string(hash),
		},
	}
	return NewService(creds), "hunter2"
}

func TestAuthenticateSuccess(t *testing.T) {
	svc, password := newTestService(t)
	u, err := svc.Authenticate(context.Background(), "hod@campus.edu", password, rbac.RoleHOD)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if u.ID != "u-hod" || u.Dept() != "CS" {
		t.Fatalf("got %+v", u)
	}
}

func TestAuthenticateNormalizesEmail(t *testing.T) {
	svc, password := newTestService(t)
	if _, err := svc.Authenticate(context.Background(), "  HOD@Campus.edu ", password, rbac.RoleHOD); err != nil {
		t.Fatalf("authenticate with unnormalized email: %v", err)
	}
}

// A wrong password, a role mismatch and an unknown email must all surface the
// same error so a caller cannot probe which accounts exist.
func TestAuthenticateFailuresIndistinguishable(t *testing.T) {
	svc, password := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name            string
		email, password string
		role            rbac.Role
	}{
		{"wrong password", "hod@campus.edu", "guess", rbac.RoleHOD},
		{"role mismatch", "hod@campus.edu", password, rbac.RoleStudent},
		{"unknown email", "nobody@campus.edu", password, rbac.RoleHOD},
		{"unknown role", "hod@campus.edu", password, rbac.Role("admin")},
		{"empty password", "hod@campus.edu", "", rbac.RoleHOD},
	}

	var msgs []string
	for _, tc := range cases {
		u, err := svc.Authenticate(ctx, tc.email, tc.password, tc.role)
		if err == nil {
			t.Fatalf("%s: authenticate succeeded for %+v", tc.name, u)
		}
		if !apperr.IsKind(err, apperr.InvalidCredentials) {
			t.Fatalf("%s: expected invalid credentials, got %v", tc.name, err)
		}
		msgs = append(msgs, err.Error())
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i] != msgs[0] {
			t.Fatalf("failure messages differ: %q vs %q", msgs[0], msgs[i])
		}
	}
}
