package portal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_Assignment_predicates(t *testing.T) {
	tests := []struct {
		name        string
		assignment  Assignment
		graded      bool
		unread      bool
		notTurnedIn bool
	}{
		{
			name:       "graded regardless of unread flag",
			assignment: Assignment{ScoreID: 1, RawScore: "47", IsUnread: 0},
			graded:     true,
		},
		{
			name:       "ungraded and unread",
			assignment: Assignment{ScoreID: 2, IsUnread: 1},
			unread:     true,
		},
		{
			name:        "not turned in",
			assignment:  Assignment{ScoreID: 3, CompletionStatus: StatusNotTurnedIn},
			notTurnedIn: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.graded, tt.assignment.Graded())
			assert.Equal(t, tt.unread, tt.assignment.Unread())
			assert.Equal(t, tt.notTurnedIn, tt.assignment.NotTurnedIn())
		})
	}
}

func Test_Assignment_DueTime(t *testing.T) {
	now := time.Date(2021, time.March, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		dueDate string
		want    time.Time
		ok      bool
	}{
		{
			name:    "weekday prefix stripped",
			dueDate: "Wed, Oct 01",
			want:    time.Date(2020, time.October, 1, 0, 0, 0, 0, time.UTC),
			ok:      true,
		},
		{
			name:    "bare month and day",
			dueDate: "Oct 01",
			want:    time.Date(2020, time.October, 1, 0, 0, 0, 0, time.UTC),
			ok:      true,
		},
		{
			name:    "spring month stays in current year",
			dueDate: "Mon, Apr 12",
			want:    time.Date(2021, time.April, 12, 0, 0, 0, 0, time.UTC),
			ok:      true,
		},
		{
			name:    "august belongs to previous year",
			dueDate: "Aug 30",
			want:    time.Date(2020, time.August, 30, 0, 0, 0, 0, time.UTC),
			ok:      true,
		},
		{name: "empty"},
		{name: "garbage", dueDate: "sometime soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Assignment{DueDate: tt.dueDate}.DueTime(now)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func Test_Course_GradePercent(t *testing.T) {
	pct, ok := Course{Grade: "92"}.GradePercent()
	assert.True(t, ok)
	assert.Equal(t, 92.0, pct)

	pct, ok = Course{Grade: "88.5%"}.GradePercent()
	assert.True(t, ok)
	assert.Equal(t, 88.5, pct)

	_, ok = Course{}.GradePercent()
	assert.False(t, ok)
}

func Test_GradeBand(t *testing.T) {
	assert.Equal(t, "excellent", GradeBand(92))
	assert.Equal(t, "excellent", GradeBand(90))
	assert.Equal(t, "good", GradeBand(85))
	assert.Equal(t, "fair", GradeBand(70))
	assert.Equal(t, "poor", GradeBand(69.9))
}
