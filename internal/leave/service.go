package leave

import (
	"context"
	"strings"
	"time"

	"campus/internal/apperr"
	"campus/internal/rbac"
)

// Store is the persistence contract the service needs. Implemented by
// Repository; tests use an in-memory fake.
type Store interface {
	Get(ctx context.Context, id string) (*Request, error)
	List(ctx context.Context) ([]Request, error)
	Create(ctx context.Context, req Request) (Request, error)
	// MarkApproved and MarkRejected apply the transition only while the
	// request is still pending and report whether a row changed.
	MarkApproved(ctx context.Context, id, deciderID string) (bool, error)
	MarkRejected(ctx context.Context, id, deciderID, reason string) (bool, error)
}

// Service applies the scoping rules on top of storage.
type Service struct {
	store Store
}

// NewService creates a service backed by a store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// ListForViewer returns the requests the viewer is authorized to see.
func (s *Service) ListForViewer(ctx context.Context, role rbac.Role, viewerDept string) ([]Request, error) {
	reqs, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return ScopeForViewer(role, viewerDept, reqs)
}

// Submit creates a new pending request on behalf of the requester.
func (s *Service) Submit(ctx context.Context, req Request) (Request, error) {
	req.Reason = strings.TrimSpace(req.Reason)
	if req.RequesterID == "" || req.Department == "" {
		return Request{}, apperr.New(apperr.Validation, "requester and department required")
	}
	if req.Type == "" || req.Reason == "" {
		return Request{}, apperr.New(apperr.Validation, "leave type and reason required")
	}
	if req.EndDate.Before(req.StartDate) {
		return Request{}, apperr.New(apperr.Validation, "end date before start date")
	}
	req.Status = StatusPending
	req.RejectionReason = nil
	if req.AppliedDate.IsZero() {
		req.AppliedDate = time.Now().UTC()
	}
	return s.store.Create(ctx, req)
}

// Approve resolves a pending request. A request that is no longer pending is
// left untouched and returned as-is: double approval is expected traffic, not
// an error. Acting outside the viewer's scope is an authorization error.
func (s *Service) Approve(ctx context.Context, role rbac.Role, viewerDept, deciderID, id string) (*Request, error) {
	req, err := s.authorizeDecision(ctx, role, viewerDept, id)
	if err != nil {
		return nil, err
	}
	if !CanDecide(role, viewerDept, *req) {
		return req, nil // already resolved; silent no-op
	}
	if _, err := s.store.MarkApproved(ctx, id, deciderID); err != nil {
		return nil, err
	}
	// Re-read so a lost race still reports the winning decision.
	return s.store.Get(ctx, id)
}

// Reject resolves a pending request with a reason. An empty or whitespace
// reason fails validation before any state is examined. Like Approve, a
// stale request no-ops.
func (s *Service) Reject(ctx context.Context, role rbac.Role, viewerDept, deciderID, id, reason string) (*Request, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.New(apperr.Validation, "rejection reason required")
	}
	req, err := s.authorizeDecision(ctx, role, viewerDept, id)
	if err != nil {
		return nil, err
	}
	if !CanDecide(role, viewerDept, *req) {
		return req, nil
	}
	if _, err := s.store.MarkRejected(ctx, id, deciderID, reason); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

// authorizeDecision loads the request and verifies the viewer type and
// department scope. Stale status is deliberately not checked here.
func (s *Service) authorizeDecision(ctx context.Context, role rbac.Role, viewerDept, id string) (*Request, error) {
	if !isApproverRole(role) {
		return nil, apperr.New(apperr.Authorization, "role %q may not decide leave requests", role)
	}
	req, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperr.New(apperr.NotFound, "leave request %s not found", id)
	}
	if role == rbac.RoleHOD && req.Department != viewerDept {
		return nil, apperr.New(apperr.Authorization, "request belongs to another department")
	}
	return req, nil
}
