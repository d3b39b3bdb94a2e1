package message

import "time"

// Priority of a message.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Message is sent by faculty to their department head (or the principal).
// Sender, subject and body are immutable once created; only the read and
// starred flags change afterwards.
type Message struct {
	ID               string    `json:"id"`
	SenderID         string    `json:"sender_id"`
	SenderName       string    `json:"sender_name"`
	SenderEmail      string    `json:"sender_email"`
	SenderDepartment string    `json:"sender_department"`
	Subject          string    `json:"subject"`
	Body             string    `json:"body"`
	Priority         Priority  `json:"priority"`
	IsRead           bool      `json:"is_read"`
	IsStarred        bool      `json:"is_starred"`
	Version          int       `json:"version"`
	SentAt           time.Time `json:"sent_at"`
}
