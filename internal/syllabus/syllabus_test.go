package syllabus

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestStatusDerivation(t *testing.T) {
	cases := []struct {
		percent int
		want    ProgressStatus
	}{
		{0, StatusNotStarted},
		{1, StatusInProgress},
		{50, StatusInProgress},
		{99, StatusInProgress},
		{100, StatusCompleted},
	}
	for _, tc := range cases {
		got := Item{ProgressPercent: tc.percent}.Status()
		if got != tc.want {
			t.Errorf("percent %d: status = %s, want %s", tc.percent, got, tc.want)
		}
	}
}

func TestSetProgressClamps(t *testing.T) {
	now := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	item := Item{ID: "1", Subject: "DSA", Topic: "Trees", ProgressPercent: 40}

	over := SetProgress(item, 150, now)
	if over.ProgressPercent != 100 || over.Status() != StatusCompleted {
		t.Fatalf("150%%: got %d/%s", over.ProgressPercent, over.Status())
	}
	under := SetProgress(item, -10, now)
	if under.ProgressPercent != 0 || under.Status() != StatusNotStarted {
		t.Fatalf("-10%%: got %d/%s", under.ProgressPercent, under.Status())
	}
	if !over.LastUpdated.Equal(now) {
		t.Fatalf("LastUpdated = %v, want %v", over.LastUpdated, now)
	}

	// Pure: the input item is unchanged.
	if item.ProgressPercent != 40 {
		t.Fatalf("input item mutated: %d", item.ProgressPercent)
	}
}

func TestMarshalIncludesDerivedStatus(t *testing.T) {
	b, err := json.Marshal(Item{ID: "1", Subject: "DSA", Topic: "Trees", ProgressPercent: 75})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"status":"in-progress"`) {
		t.Fatalf("status missing from JSON: %s", b)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(Item{Subject: " ", Topic: "Trees"}); err == nil {
		t.Fatal("blank subject accepted")
	}
	if err := Validate(Item{Subject: "DSA", Topic: "Trees"}); err != nil {
		t.Fatalf("valid item rejected: %v", err)
	}
}
