package portal

import (
	"strconv"
	"strings"
	"time"
)

// StatusNotTurnedIn is the portal's sentinel completion status for work a
// student never submitted.
const StatusNotTurnedIn = "Not Turned In"

// Course is one enrollment row from the class-list endpoint. The collection
// is replaced wholesale on every successful course fetch; Assignments is
// filled in afterwards by per-enrollment fetches.
type Course struct {
	ID           string       `json:"class_id"`
	Name         string       `json:"class_name"`
	EnrollmentPK int          `json:"enrollment_pk"`
	Grade        string       `json:"ptd_grade,omitempty"`
	LetterGrade  string       `json:"ptd_letter_grade,omitempty"`
	Assignments  []Assignment `json:"assignments,omitempty"`
}

// GradePercent parses the period-to-date grade; ok is false when the course
// has not been scored yet.
func (c Course) GradePercent() (pct float64, ok bool) {
	if c.Grade == "" {
		return 0, false
	}
	pct, err := strconv.ParseFloat(strings.TrimSuffix(c.Grade, "%"), 64)
	if err != nil {
		return 0, false
	}
	return pct, true
}

// GradeBand buckets a percentage grade the way the student UI colors it.
func GradeBand(pct float64) string {
	switch {
	case pct >= 90:
		return "excellent"
	case pct >= 80:
		return "good"
	case pct >= 70:
		return "fair"
	default:
		return "poor"
	}
}

// Assignment is one gradebook row from the per-enrollment assignment
// endpoint. ScoreID is the primary key for completion and notification
// tracking; it is only unique within one portal account's lifetime.
type Assignment struct {
	ScoreID          int    `json:"score_id"`
	AssignmentID     int    `json:"assignment_id,omitempty"`
	Type             string `json:"assignment_type,omitempty"`
	Description      string `json:"assignment_description"`
	Notes            string `json:"assignment_notes,omitempty"`
	RawScore         string `json:"raw_score,omitempty"`
	MaximumScore     int    `json:"maximum_score,omitempty"`
	DueDate          string `json:"due_date,omitempty"`
	CompletionStatus string `json:"completion_status,omitempty"`
	IsUnread         int    `json:"is_unread"`
}

// Graded reports whether a score has been entered; the unread flag plays no
// part in this.
func (a Assignment) Graded() bool { return a.RawScore != "" }

func (a Assignment) NotTurnedIn() bool { return a.CompletionStatus == StatusNotTurnedIn }

func (a Assignment) Unread() bool { return a.IsUnread == 1 }

// DueTime parses the portal's display due date ("Wed, Oct 01" or "Oct 01")
// relative to now. The portal omits the year; months from August onward are
// assumed to belong to the previous calendar year (school years straddle the
// new year and the app is mostly used in spring).
func (a Assignment) DueTime(now time.Time) (time.Time, bool) {
	s := a.DueDate
	if s == "" {
		return time.Time{}, false
	}
	if i := strings.Index(s, ","); i >= 0 {
		s = s[i+1:]
	}
	t, err := time.Parse("Jan 02", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	year := now.Year()
	if t.Month() >= time.August {
		year--
	}
	return time.Date(year, t.Month(), t.Day(), 0, 0, 0, 0, now.Location()), true
}
