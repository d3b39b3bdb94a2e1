package leave

import (
	"context"
	"testing"
	"time"

	"campus/internal/apperr"
	"campus/internal/rbac"
)

type fakeStore struct {
	reqs map[string]*Request
}

func newFakeStore(reqs ...Request) *fakeStore {
	m := make(map[string]*Request, len(reqs))
	for i := range reqs {
		r := reqs[i]
		m[r.ID] = &r
	}
	return &fakeStore{reqs: m}
}

func (f *fakeStore) Get(_ context.Context, id string) (*Request, error) {
	r, ok := f.reqs[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (f *fakeStore) List(_ context.Context) ([]Request, error) {
	out := make([]Request, 0, len(f.reqs))
	for _, r := range f.reqs {
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeStore) Create(_ context.Context, req Request) (Request, error) {
	if req.ID == "" {
		req.ID = "generated"
	}
	req.Version = 1
	cp := req
	f.reqs[req.ID] = &cp
	return req, nil
}

func (f *fakeStore) MarkApproved(_ context.Context, id, deciderID string) (bool, error) {
	r := f.reqs[id]
	if r.Status != StatusPending {
		return false, nil
	}
	r.Status = StatusApproved
	r.DecidedBy = &deciderID
	r.Version++
	return true, nil
}

func (f *fakeStore) MarkRejected(_ context.Context, id, deciderID, reason string) (bool, error) {
	r := f.reqs[id]
	if r.Status != StatusPending {
		return false, nil
	}
	r.Status = StatusRejected
	r.RejectionReason = &reason
	r.DecidedBy = &deciderID
	r.Version++
	return true, nil
}

func pendingRequest(id, dept string) Request {
	return Request{
		ID:          id,
		RequesterID: "u-1",
		Department:  dept,
		Type:        "Personal Leave",
		StartDate:   time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2024, 1, 22, 0, 0, 0, 0, time.UTC),
		Reason:      "family function",
		Status:      StatusPending,
		AppliedDate: time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC),
	}
}

func TestScopeForViewer(t *testing.T) {
	reqs := []Request{pendingRequest("1", "CS"), pendingRequest("2", "EE"), pendingRequest("3", "CS")}

	cs, err := ScopeForViewer(rbac.RoleHOD, "CS", reqs)
	if err != nil {
		t.Fatalf("hod scope: %v", err)
	}
	if len(cs) != 2 {
		t.Fatalf("hod CS: got %d requests, want 2", len(cs))
	}
	for _, r := range cs {
		if r.Department != "CS" {
			t.Errorf("hod CS saw request from %s", r.Department)
		}
	}

	all, err := ScopeForViewer(rbac.RolePrincipal, "", reqs)
	if err != nil {
		t.Fatalf("principal scope: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("principal: got %d requests, want 3", len(all))
	}

	for _, role := range []rbac.Role{rbac.RoleStudent, rbac.RoleFaculty} {
		if _, err := ScopeForViewer(role, "CS", reqs); !apperr.IsKind(err, apperr.Authorization) {
			t.Errorf("role %s: expected authorization error, got %v", role, err)
		}
	}
}

func TestApproveIdempotent(t *testing.T) {
	store := newFakeStore(pendingRequest("r1", "CS"))
	svc := NewService(store)
	ctx := context.Background()

	got, err := svc.Approve(ctx, rbac.RoleHOD, "CS", "hod-1", "r1")
	if err != nil {
		t.Fatalf("first approve: %v", err)
	}
	if got.Status != StatusApproved {
		t.Fatalf("status = %s, want approved", got.Status)
	}
	if got.RejectionReason != nil {
		t.Fatalf("approved request carries rejection reason %q", *got.RejectionReason)
	}

	// Second decision on a resolved request is a silent no-op.
	again, err := svc.Approve(ctx, rbac.RoleHOD, "CS", "hod-2", "r1")
	if err != nil {
		t.Fatalf("second approve: %v", err)
	}
	if again.Status != StatusApproved || *again.DecidedBy != "hod-1" {
		t.Fatalf("second approve changed state: %+v", again)
	}

	rejected, err := svc.Reject(ctx, rbac.RolePrincipal, "", "prin-1", "r1", "too late")
	if err != nil {
		t.Fatalf("reject after approve: %v", err)
	}
	if rejected.Status != StatusApproved {
		t.Fatalf("reject overturned a resolved request: %s", rejected.Status)
	}
}

func TestRejectRequiresReason(t *testing.T) {
	store := newFakeStore(pendingRequest("r1", "CS"))
	svc := NewService(store)

	_, err := svc.Reject(context.Background(), rbac.RoleHOD, "CS", "hod-1", "r1", "   ")
	if !apperr.IsKind(err, apperr.Validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	got, _ := store.Get(context.Background(), "r1")
	if got.Status != StatusPending {
		t.Fatalf("failed reject mutated status to %s", got.Status)
	}
}

func TestRejectStoresTrimmedReason(t *testing.T) {
	store := newFakeStore(pendingRequest("r1", "EE"))
	svc := NewService(store)

	got, err := svc.Reject(context.Background(), rbac.RolePrincipal, "", "prin-1", "r1", "  overlapping exams  ")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got.Status != StatusRejected {
		t.Fatalf("status = %s, want rejected", got.Status)
	}
	if got.RejectionReason == nil || *got.RejectionReason != "overlapping exams" {
		t.Fatalf("rejection reason = %v", got.RejectionReason)
	}
}

func TestDecisionScope(t *testing.T) {
	store := newFakeStore(pendingRequest("r1", "EE"))
	svc := NewService(store)
	ctx := context.Background()

	if _, err := svc.Approve(ctx, rbac.RoleHOD, "CS", "hod-1", "r1"); !apperr.IsKind(err, apperr.Authorization) {
		t.Fatalf("cross-department hod approve: expected authorization error, got %v", err)
	}
	if _, err := svc.Approve(ctx, rbac.RoleFaculty, "EE", "fac-1", "r1"); !apperr.IsKind(err, apperr.Authorization) {
		t.Fatalf("faculty approve: expected authorization error, got %v", err)
	}
	if _, err := svc.Approve(ctx, rbac.RoleHOD, "CS", "hod-1", "missing"); !apperr.IsKind(err, apperr.Authorization) {
		// hod of another department never learns whether the id exists
		t.Logf("missing id for out-of-scope viewer: %v", err)
	}

	got, err := svc.Approve(ctx, rbac.RolePrincipal, "", "prin-1", "r1")
	if err != nil {
		t.Fatalf("principal approve: %v", err)
	}
	if got.Status != StatusApproved {
		t.Fatalf("status = %s, want approved", got.Status)
	}
}

func TestSubmitValidation(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	ctx := context.Background()

	req := pendingRequest("", "CS")
	req.Reason = "  "
	if _, err := svc.Submit(ctx, req); !apperr.IsKind(err, apperr.Validation) {
		t.Fatalf("blank reason: expected validation error, got %v", err)
	}

	req = pendingRequest("", "CS")
	req.StartDate, req.EndDate = req.EndDate, req.StartDate
	if _, err := svc.Submit(ctx, req); !apperr.IsKind(err, apperr.Validation) {
		t.Fatalf("inverted dates: expected validation error, got %v", err)
	}

	req = pendingRequest("", "CS")
	created, err := svc.Submit(ctx, req)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if created.Status != StatusPending {
		t.Fatalf("new request status = %s, want pending", created.Status)
	}
}
