package grades

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"github.com/schoolnotes/gradesync/core"
	"github.com/schoolnotes/gradesync/core/portal"
)

// fakePortalClient scripts portal responses for orchestrator tests.
type fakePortalClient struct {
	mu sync.Mutex

	courses        []portal.Course
	coursesErr     error
	assignments    map[int][]portal.Assignment
	assignmentsErr map[int]error

	courseCalls     int
	assignmentCalls int
	marked          []int
}

var _ PortalClient = (*fakePortalClient)(nil)

func (f *fakePortalClient) FetchCourses(ctx context.Context) ([]portal.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.courseCalls++
	if f.coursesErr != nil {
		return nil, f.coursesErr
	}
	courses := make([]portal.Course, len(f.courses))
	copy(courses, f.courses)
	return courses, nil
}

func (f *fakePortalClient) FetchAssignments(ctx context.Context, enrollmentPK int) ([]portal.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assignmentCalls++
	if err := f.assignmentsErr[enrollmentPK]; err != nil {
		return nil, err
	}
	return f.assignments[enrollmentPK], nil
}

func (f *fakePortalClient) MarkAssignmentRead(ctx context.Context, scoreID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, scoreID)
	return nil
}

// captureNotifier records notifications synchronously.
type captureNotifier struct {
	mu   sync.Mutex
	sent []core.Notification
}

var _ core.Notifier = (*captureNotifier)(nil)

func (n *captureNotifier) SendNotifications(notifs ...*core.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, notif := range notifs {
		n.sent = append(n.sent, *notif)
	}
}

func (n *captureNotifier) Sent() []core.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	sent := make([]core.Notification, len(n.sent))
	copy(sent, n.sent)
	return sent
}

func testLogger() core.Logger {
	return &stdLogger{std: log.New(os.Stdout, "TEST : ", log.LstdFlags)}
}

// stdLogger is a plain stdout logger for tests.
type stdLogger struct {
	std *log.Logger
}

var _ core.Logger = (*stdLogger)(nil)

func (l *stdLogger) Enable(bool) {}

func (l *stdLogger) Debug(msg string, args ...interface{}) { l.std.Println(msg) }

func (l *stdLogger) Info(msg string, args ...interface{}) { l.std.Println(msg) }

func (l *stdLogger) Warn(msg string, args ...interface{}) { l.std.Println(msg) }

func (l *stdLogger) Error(msg string, args ...interface{}) { l.std.Println(msg) }

func (l *stdLogger) Fatal(msg string, args ...interface{}) { l.std.Fatal(msg) }

func testConf() *core.Config {
	return &core.Config{
		AppName: "GradeSync",
		Portal: core.PortalConfig{
			MaxConcurrentFetches: 4,
			Timeout:              time.Second,
		},
	}
}
