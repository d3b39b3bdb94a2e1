package auth

import (
	"testing"
	"time"

	"campus/internal/rbac"
)

func TestIssueParseRoundTrip(t *testing.T) {
	pair, err := Issue("u-3", rbac.RoleHOD, "CS", "campus-api", "test-key", 15*time.Minute, 24*time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := Parse(pair.AccessToken, "test-key", "campus-api")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "u-3" || claims.Role != rbac.RoleHOD || claims.Department != "CS" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestParseRejectsBadTokens(t *testing.T) {
	pair, err := Issue("u-3", rbac.RoleHOD, "CS", "campus-api", "test-key", 15*time.Minute, 24*time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := Parse(pair.AccessToken, "other-key", "campus-api"); err == nil {
		t.Fatal("wrong signing key accepted")
	}
	if _, err := Parse(pair.AccessToken, "test-key", "someone-else"); err == nil {
		t.Fatal("issuer mismatch accepted")
	}

	expired, err := Issue("u-3", rbac.RoleHOD, "CS", "campus-api", "test-key", -time.Minute, 24*time.Hour)
	if err != nil {
		t.Fatalf("issue expired: %v", err)
	}
	if _, err := Parse(expired.AccessToken, "test-key", "campus-api"); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestParseRejectsUnknownRole(t *testing.T) {
	pair, err := Issue("u-3", rbac.Role("janitor"), "", "campus-api", "test-key", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := Parse(pair.AccessToken, "test-key", "campus-api"); err == nil {
		t.Fatal("unknown role claim accepted")
	}
}
