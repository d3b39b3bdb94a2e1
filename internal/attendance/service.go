package attendance

import (
	"context"
	"time"

	"campus/internal/apperr"
)

// EventStore is the slice of event persistence the service needs.
// Implemented by Repository.
type EventStore interface {
	RecentEvent(ctx context.Context, userID string, window time.Duration) (*Event, error)
	InsertEvent(ctx context.Context, evt Event) (Event, error)
}

// Service walks students through the verification gates and records the
// resulting present event, with deduplication.
type Service struct {
	sessions    SessionStore
	events      EventStore
	checker     Checker
	dedupWindow time.Duration
}

// NewService creates a service.
func NewService(sessions SessionStore, events EventStore, checker Checker, dedupWindow time.Duration) *Service {
	if dedupWindow <= 0 {
		dedupWindow = 5 * time.Minute
	}
	return &Service{sessions: sessions, events: events, checker: checker, dedupWindow: dedupWindow}
}

// Begin starts a marking attempt at the location gate. A user who already
// produced an event inside the dedup window cannot start another attempt.
func (s *Service) Begin(ctx context.Context, userID string) (*Session, error) {
	if userID == "" {
		return nil, apperr.New(apperr.Validation, "user required")
	}
	if recent, err := s.events.RecentEvent(ctx, userID, s.dedupWindow); err != nil {
		return nil, err
	} else if recent != nil {
		return nil, apperr.New(apperr.InvalidState, "attendance already marked at %s", recent.When.Format(time.RFC3339))
	}
	sess := NewSession(userID)
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Advance moves the session through its current gate. When the liveness
// gate passes it records the present event; the event comes back non-nil
// exactly once per session.
func (s *Service) Advance(ctx context.Context, userID, department, sessionID string, ev Evidence) (*Session, *Event, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if sess == nil {
		return nil, nil, apperr.New(apperr.NotFound, "session %s not found or expired", sessionID)
	}
	if sess.UserID != userID {
		return nil, nil, apperr.New(apperr.Authorization, "session belongs to another user")
	}

	sess.Evidence = ev
	emit, err := sess.Advance(ctx, s.checker)
	if err != nil {
		// Failed checks leave the stored session where it was so the
		// same gate can be retried.
		return sess, nil, err
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, nil, err
	}
	if !emit {
		return sess, nil, nil
	}

	// A raced duplicate inside the window reuses the earlier event rather
	// than double-counting the student.
	if recent, err := s.events.RecentEvent(ctx, userID, s.dedupWindow); err != nil {
		return nil, nil, err
	} else if recent != nil {
		return sess, recent, nil
	}
	evt, err := s.events.InsertEvent(ctx, Event{
		UserID:     userID,
		Department: department,
		SessionID:  sess.ID,
		When:       time.Now().UTC(),
		Status:     "present",
	})
	if err != nil {
		return nil, nil, err
	}
	return sess, &evt, nil
}
