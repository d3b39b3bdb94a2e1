package attendance

import (
	"context"
	"time"

	"github.com/google/uuid"

	"campus/internal/apperr"
)

// Step is one verification gate in the marking sequence.
type Step string

const (
	StepLocation  Step = "location"
	StepNetwork   Step = "network"
	StepBiometric Step = "biometric"
	StepLiveness  Step = "liveness"
	StepComplete  Step = "complete"
)

// stepOrder is the strict gate sequence; complete is terminal.
var stepOrder = []Step{StepLocation, StepNetwork, StepBiometric, StepLiveness, StepComplete}

func nextStep(s Step) Step {
	for i, step := range stepOrder {
		if step == s && i < len(stepOrder)-1 {
			return stepOrder[i+1]
		}
	}
	return StepComplete
}

// Checker performs the external verification for a step: geofence match,
// network check, face match, liveness. The state machine only sequences
// the gates; the sensor logic lives behind this interface.
type Checker interface {
	Check(ctx context.Context, step Step, sess Session) error
}

// Evidence is the proof the client app supplies for the step being
// verified: coordinates for the location gate, the joined SSID for the
// network gate, a captured frame for the biometric and liveness gates.
type Evidence struct {
	Latitude    float64 `json:"latitude,omitempty"`
	Longitude   float64 `json:"longitude,omitempty"`
	NetworkSSID string  `json:"network_ssid,omitempty"`
	ImageURL    string  `json:"image_url,omitempty"`
}

// Session is one marking attempt. Ephemeral: stored with a TTL and gone
// after completion or abandonment.
type Session struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	CurrentStep Step      `json:"current_step"`
	StepHistory []Step    `json:"step_history"`
	Evidence    Evidence  `json:"evidence"`
	StartedAt   time.Time `json:"started_at"`
}

// NewSession starts a marking attempt at the first gate.
func NewSession(userID string) *Session {
	return &Session{
		ID:          uuid.NewString(),
		UserID:      userID,
		CurrentStep: StepLocation,
		StartedAt:   time.Now().UTC(),
	}
}

// Advance runs the check for the current step and, on success, moves exactly
// one step forward. The returned emit flag is true only on the transition
// into complete, so at most one attendance event comes out of a session.
//
// A failed check leaves CurrentStep unchanged so the caller can retry the
// same gate. Advancing a completed session is an InvalidState error, never a
// silent no-op: a second completion must not emit a duplicate event.
func (s *Session) Advance(ctx context.Context, checker Checker) (emit bool, err error) {
	if s.CurrentStep == StepComplete {
		return false, apperr.New(apperr.InvalidState, "attendance already marked for session %s", s.ID)
	}
	if err := checker.Check(ctx, s.CurrentStep, *s); err != nil {
		return false, apperr.Wrap(apperr.Validation, err, "verification failed at "+string(s.CurrentStep))
	}
	s.StepHistory = append(s.StepHistory, s.CurrentStep)
	s.CurrentStep = nextStep(s.CurrentStep)
	return s.CurrentStep == StepComplete, nil
}
