package syllabus

import (
	"encoding/json"
	"strings"
	"time"

	"campus/internal/apperr"
)

// ProgressStatus is derived from the percent, never stored or set directly.
type ProgressStatus string

const (
	StatusNotStarted ProgressStatus = "not-started"
	StatusInProgress ProgressStatus = "in-progress"
	StatusCompleted  ProgressStatus = "completed"
)

// Item is one syllabus topic under a subject. Only ProgressPercent is
// mutable; the status is always computed from it.
type Item struct {
	ID              string    `json:"id"`
	Subject         string    `json:"subject"`
	Topic           string    `json:"topic"`
	Description     string    `json:"description"`
	ProgressPercent int       `json:"progress_percent"`
	LastUpdated     time.Time `json:"last_updated"`
	CreatedAt       time.Time `json:"created_at"`
}

// Status derives the tracking status from the progress percent.
func (i Item) Status() ProgressStatus {
	switch {
	case i.ProgressPercent <= 0:
		return StatusNotStarted
	case i.ProgressPercent >= 100:
		return StatusCompleted
	default:
		return StatusInProgress
	}
}

// MarshalJSON includes the derived status so API consumers never compute it.
func (i Item) MarshalJSON() ([]byte, error) {
	type alias Item
	return json.Marshal(struct {
		alias
		Status ProgressStatus `json:"status"`
	}{alias(i), i.Status()})
}

// SetProgress returns a copy of the item with the percent clamped to
// [0,100] and LastUpdated set to now. Pure: the input item is untouched.
func SetProgress(item Item, percent int, now time.Time) Item {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	item.ProgressPercent = percent
	item.LastUpdated = now
	return item
}

// Validate checks a new item before insert.
func Validate(item Item) error {
	if strings.TrimSpace(item.Subject) == "" || strings.TrimSpace(item.Topic) == "" {
		return apperr.New(apperr.Validation, "subject and topic required")
	}
	return nil
}
