package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"campus/internal/apperr"
)

// passAll approves every gate.
type passAll struct{}

func (passAll) Check(context.Context, Step, Session) error { return nil }

// failAt fails one specific gate.
type failAt struct {
	step Step
	err  error
}

func (f failAt) Check(_ context.Context, step Step, _ Session) error {
	if step == f.step {
		return f.err
	}
	return nil
}

func TestAdvanceVisitsEveryGateInOrder(t *testing.T) {
	sess := NewSession("u-1")
	ctx := context.Background()

	want := []Step{StepNetwork, StepBiometric, StepLiveness, StepComplete}
	emitted := 0
	for i, next := range want {
		emit, err := sess.Advance(ctx, passAll{})
		if err != nil {
			t.Fatalf("advance %d: %v", i+1, err)
		}
		if sess.CurrentStep != next {
			t.Fatalf("advance %d: at %s, want %s", i+1, sess.CurrentStep, next)
		}
		if emit {
			emitted++
			if next != StepComplete {
				t.Fatalf("event emitted at %s", next)
			}
		}
	}
	if emitted != 1 {
		t.Fatalf("emitted %d events, want exactly 1", emitted)
	}
	if len(sess.StepHistory) != 4 {
		t.Fatalf("step history %v", sess.StepHistory)
	}

	// A fifth advance on a completed session must error, not re-emit.
	emit, err := sess.Advance(ctx, passAll{})
	if !apperr.IsKind(err, apperr.InvalidState) {
		t.Fatalf("advance past complete: expected invalid-state error, got %v", err)
	}
	if emit {
		t.Fatal("completed session emitted a second event")
	}
}

func TestFailedCheckKeepsCurrentStep(t *testing.T) {
	sess := NewSession("u-1")
	ctx := context.Background()

	sensorErr := errors.New("face mismatch")
	checker := failAt{step: StepBiometric, err: sensorErr}

	for _, step := range []Step{StepNetwork, StepBiometric} {
		if _, err := sess.Advance(ctx, checker); err != nil {
			t.Fatalf("advance to %s: %v", step, err)
		}
	}

	_, err := sess.Advance(ctx, checker)
	if !apperr.IsKind(err, apperr.Validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !errors.Is(err, sensorErr) {
		t.Fatalf("underlying check error lost: %v", err)
	}
	if sess.CurrentStep != StepBiometric {
		t.Fatalf("failed check moved the session to %s", sess.CurrentStep)
	}

	// The same gate can be retried once the check passes.
	if _, err := sess.Advance(ctx, passAll{}); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if sess.CurrentStep != StepLiveness {
		t.Fatalf("retry landed on %s, want liveness", sess.CurrentStep)
	}
}

func TestAdvanceNeverSkips(t *testing.T) {
	sess := NewSession("u-1")
	if _, err := sess.Advance(context.Background(), passAll{}); err != nil {
		t.Fatal(err)
	}
	if sess.CurrentStep != StepNetwork {
		t.Fatalf("one advance from location landed on %s", sess.CurrentStep)
	}
}

type memSessions struct {
	m map[string]*Session
}

func (s *memSessions) Put(_ context.Context, sess *Session) error {
	cp := *sess
	s.m[sess.ID] = &cp
	return nil
}

func (s *memSessions) Get(_ context.Context, id string) (*Session, error) {
	sess, ok := s.m[id]
	if !ok {
		return nil, nil
	}
	cp := *sess
	return &cp, nil
}

type memEvents struct {
	events []Event
}

func (s *memEvents) RecentEvent(_ context.Context, userID string, window time.Duration) (*Event, error) {
	cutoff := time.Now().UTC().Add(-window)
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].UserID == userID && s.events[i].When.After(cutoff) {
			evt := s.events[i]
			return &evt, nil
		}
	}
	return nil, nil
}

func (s *memEvents) InsertEvent(_ context.Context, evt Event) (Event, error) {
	if evt.ID == "" {
		evt.ID = "evt-1"
	}
	s.events = append(s.events, evt)
	return evt, nil
}

func TestServiceFullRun(t *testing.T) {
	sessions := &memSessions{m: make(map[string]*Session)}
	events := &memEvents{}
	svc := NewService(sessions, events, passAll{}, 5*time.Minute)
	ctx := context.Background()

	sess, err := svc.Begin(ctx, "u-1")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	var evt *Event
	for i := 0; i < 4; i++ {
		_, e, err := svc.Advance(ctx, "u-1", "CS", sess.ID, Evidence{})
		if err != nil {
			t.Fatalf("advance %d: %v", i+1, err)
		}
		if e != nil {
			evt = e
		}
	}
	if evt == nil || evt.Status != "present" || evt.Department != "CS" {
		t.Fatalf("present event = %+v", evt)
	}
	if len(events.events) != 1 {
		t.Fatalf("recorded %d events, want 1", len(events.events))
	}

	// Completed session refuses further advances.
	if _, _, err := svc.Advance(ctx, "u-1", "CS", sess.ID, Evidence{}); !apperr.IsKind(err, apperr.InvalidState) {
		t.Fatalf("expected invalid-state error, got %v", err)
	}

	// And a fresh attempt inside the dedup window is refused too.
	if _, err := svc.Begin(ctx, "u-1"); !apperr.IsKind(err, apperr.InvalidState) {
		t.Fatalf("expected invalid-state on re-begin, got %v", err)
	}
}

func TestServiceOwnership(t *testing.T) {
	sessions := &memSessions{m: make(map[string]*Session)}
	svc := NewService(sessions, &memEvents{}, passAll{}, time.Minute)
	ctx := context.Background()

	sess, err := svc.Begin(ctx, "u-1")
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.Advance(ctx, "u-2", "CS", sess.ID, Evidence{}); !apperr.IsKind(err, apperr.Authorization) {
		t.Fatalf("foreign session advance: expected authorization error, got %v", err)
	}
	if _, _, err := svc.Advance(ctx, "u-1", "CS", "missing", Evidence{}); !apperr.IsKind(err, apperr.NotFound) {
		t.Fatalf("missing session: expected not-found, got %v", err)
	}
}
