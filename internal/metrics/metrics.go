package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters for the dashboard's hot paths. Registered on the default
// registry and served by promhttp in cmd/api.
var (
	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campus_logins_total",
		Help: "Successful logins by role.",
	}, []string{"role"})

	LoginFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campus_login_failures_total",
		Help: "Rejected login attempts.",
	})

	LeaveDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campus_leave_decisions_total",
		Help: "Leave request decisions by outcome.",
	}, []string{"decision"})

	VerificationSteps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campus_verification_steps_total",
		Help: "Attendance verification gate outcomes.",
	}, []string{"step", "outcome"})

	AttendancePresent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campus_attendance_present_total",
		Help: "Attendance-present events emitted.",
	})
)
