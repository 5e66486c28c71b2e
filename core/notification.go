package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Notification is a user-facing alert handed to a Notifier for delivery.
type Notification struct {
	ID            uuid.UUID
	Title         string
	Body          string
	TimeSensitive bool
	CreatedAt     time.Time
}

// Notifier delivers notifications to the user. Delivery may be asynchronous;
// implementations must not block the caller on network I/O.
type Notifier interface {
	SendNotifications(notifs ...*Notification)
}

// NewGradeAlert builds the notification for a newly graded assignment.
// When both the maximum score and the course percentage are known the body
// reads "{score}/{max} • {course} now at {grade}%", otherwise it falls back
// to "{score} in {course}".
func NewGradeAlert(description, rawScore string, maxScore int, courseName, courseGrade string) *Notification {
	body := fmt.Sprintf("%s in %s", rawScore, courseName)
	if maxScore > 0 && courseGrade != "" {
		body = fmt.Sprintf("%s/%d • %s now at %s%%", rawScore, maxScore, courseName, courseGrade)
	}
	return &Notification{
		ID:            uuid.New(),
		Title:         description,
		Body:          body,
		TimeSensitive: true,
		CreatedAt:     time.Now(),
	}
}
