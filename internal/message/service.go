package message

import (
	"context"
	"strings"
	"time"

	"campus/internal/apperr"
	"campus/internal/rbac"
)

// ScopeForViewer filters messages to the viewer's department. An empty
// department is the unscoped (principal) view and returns everything.
func ScopeForViewer(viewerDept string, msgs []Message) []Message {
	if viewerDept == "" {
		return msgs
	}
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.SenderDepartment == viewerDept {
			out = append(out, m)
		}
	}
	return out
}

// Store is the persistence contract. Implemented by Repository.
type Store interface {
	Get(ctx context.Context, id string) (*Message, error)
	List(ctx context.Context) ([]Message, error)
	Create(ctx context.Context, m Message) (Message, error)
	// MarkRead flips is_read only when it is still false.
	MarkRead(ctx context.Context, id string) (bool, error)
	SetStarred(ctx context.Context, id string, starred bool) error
}

// Service applies department scoping and flag rules.
type Service struct {
	store Store
}

// NewService creates a service backed by a store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// ListForViewer returns the messages the viewer may see. Only hod and
// principal hold a message inbox; the hod view is department-scoped.
func (s *Service) ListForViewer(ctx context.Context, role rbac.Role, viewerDept string) ([]Message, error) {
	c, err := rbac.CapabilityFor(role)
	if err != nil {
		return nil, err
	}
	if !c.Can(rbac.ActionViewMessages) {
		return nil, apperr.New(apperr.Authorization, "role %q may not view messages", role)
	}
	msgs, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if c.Scope == rbac.ScopeInstitution {
		viewerDept = ""
	}
	return ScopeForViewer(viewerDept, msgs), nil
}

// Send creates a message.
func (s *Service) Send(ctx context.Context, m Message) (Message, error) {
	m.Subject = strings.TrimSpace(m.Subject)
	m.Body = strings.TrimSpace(m.Body)
	if m.SenderID == "" || m.Subject == "" || m.Body == "" {
		return Message{}, apperr.New(apperr.Validation, "sender, subject and body required")
	}
	if m.Priority == "" {
		m.Priority = PriorityMedium
	}
	if !m.Priority.Valid() {
		return Message{}, apperr.New(apperr.Validation, "unknown priority %q", m.Priority)
	}
	if m.SentAt.IsZero() {
		m.SentAt = time.Now().UTC()
	}
	m.IsRead = false
	return s.store.Create(ctx, m)
}

// MarkRead flips the read flag on first view. The flag never reverts, and
// marking an already-read message is a no-op, not an error.
func (s *Service) MarkRead(ctx context.Context, role rbac.Role, viewerDept, id string) (*Message, error) {
	m, err := s.authorizeView(ctx, role, viewerDept, id)
	if err != nil {
		return nil, err
	}
	if !m.IsRead {
		if _, err := s.store.MarkRead(ctx, id); err != nil {
			return nil, err
		}
	}
	return s.store.Get(ctx, id)
}

// ToggleStar flips the starred flag for the viewer.
func (s *Service) ToggleStar(ctx context.Context, role rbac.Role, viewerDept, id string) (*Message, error) {
	m, err := s.authorizeView(ctx, role, viewerDept, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetStarred(ctx, id, !m.IsStarred); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

func (s *Service) authorizeView(ctx context.Context, role rbac.Role, viewerDept, id string) (*Message, error) {
	c, err := rbac.CapabilityFor(role)
	if err != nil {
		return nil, err
	}
	if !c.Can(rbac.ActionViewMessages) {
		return nil, apperr.New(apperr.Authorization, "role %q may not view messages", role)
	}
	m, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, apperr.New(apperr.NotFound, "message %s not found", id)
	}
	if c.Scope == rbac.ScopeDepartment && m.SenderDepartment != viewerDept {
		return nil, apperr.New(apperr.Authorization, "message belongs to another department")
	}
	return m, nil
}
