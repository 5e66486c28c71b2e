package grades

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/schoolnotes/gradesync/core"
	"github.com/schoolnotes/gradesync/core/portal"
	"github.com/schoolnotes/gradesync/storage/state"
)

// PortalClient is what the orchestrator needs from the portal.
type PortalClient interface {
	FetchCourses(ctx context.Context) ([]portal.Course, error)
	FetchAssignments(ctx context.Context, enrollmentPK int) ([]portal.Assignment, error)
	MarkAssignmentRead(ctx context.Context, scoreID int) error
}

var _ PortalClient = (*portal.Client)(nil)

type (
	// Service drives grade sync cycles: restore session, fetch courses, fan
	// out per-course assignment fetches, diff against the dedup ledger, emit
	// notifications, persist. It is the single writer of all persisted state;
	// a mutex serializes foreground-triggered and background-triggered cycles
	// so one cycle's ledger write can never clobber another's.
	Service struct {
		conf     *core.Config
		logger   core.Logger
		portal   PortalClient
		store    state.Store
		notifier core.Notifier
		jars     []portal.CookieStore

		mu         sync.Mutex
		courses    []portal.Course
		lastReport Report
	}

	// RunOptions parameterizes a cycle. HasSession marks a foreground trigger
	// whose live jars already hold an authenticated session: the session is
	// captured instead of restored, and the model still refreshes even when
	// notifications are off.
	RunOptions struct {
		HasSession bool
	}

	// Report summarizes one cycle.
	Report struct {
		StartedAt    time.Time         `json:"started_at"`
		FinishedAt   time.Time         `json:"finished_at"`
		Courses      int               `json:"courses"`
		Fetched      int               `json:"fetched"`
		Failed       int               `json:"failed"`
		Eligible     int               `json:"eligible"`
		Notified     int               `json:"notified"`
		NeedsLogin   bool              `json:"needs_login"`
		CourseErrors map[string]string `json:"course_errors,omitempty"`
	}
)

func NewService(
	conf *core.Config,
	logger core.Logger,
	client PortalClient,
	store state.Store,
	notifier core.Notifier,
	jars ...portal.CookieStore,
) *Service {
	return &Service{
		conf:     conf,
		logger:   logger,
		portal:   client,
		store:    store,
		notifier: notifier,
		jars:     jars,
	}
}

// Run executes one full sync cycle. Errors from individual course fetches
// are isolated into the report; the returned error covers cycle-level
// failures only (course list unreachable, cancelled, persistence broken).
func (svc *Service) Run(ctx context.Context, opts RunOptions) (Report, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	report := Report{StartedAt: time.Now(), CourseErrors: make(map[string]string)}
	defer func() {
		report.FinishedAt = time.Now()
		svc.lastReport = report
	}()

	settings, err := state.LoadSettings(svc.store)
	if err != nil {
		return report, err
	}
	// a background cycle exists only to notify; skip all I/O when the user
	// turned notifications off. Foreground cycles still refresh the model.
	if !opts.HasSession && !settings.NotifyEnabled() {
		svc.logger.Debug("sync: notifications disabled, skipping background cycle")
		return report, nil
	}

	if !opts.HasSession {
		if err := svc.restoreSession(); err != nil {
			svc.logger.Warn(fmt.Sprintf("sync: restoring session: %v", err))
		}
	}

	courses, err := svc.portal.FetchCourses(ctx)
	if err != nil {
		if portal.IsNotAuthenticated(err) {
			report.NeedsLogin = true
		}
		return report, errors.Wrap(err, "fetching course list")
	}
	report.Courses = len(courses)

	svc.fetchAssignments(ctx, courses, &report)

	// a deadline hit mid-fan-out means an incomplete cycle; report it rather
	// than notifying off partial data
	if ctx.Err() != nil {
		svc.courses = courses
		return report, errors.Wrap(ctx.Err(), "sync cycle cancelled")
	}

	completion, err := loadCompletion(svc.store)
	if err != nil {
		return report, err
	}
	completionChanged := false
	for _, course := range courses {
		if completion.Seed(course.Assignments) {
			completionChanged = true
		}
	}
	if completionChanged {
		if err := saveCompletion(svc.store, completion); err != nil {
			return report, err
		}
	}

	notified, err := loadNotified(svc.store)
	if err != nil {
		return report, err
	}

	for _, course := range courses {
		for _, a := range course.Assignments {
			if !a.Graded() || !a.Unread() || notified.Contains(a.ScoreID) {
				continue
			}
			report.Eligible++
			if !settings.NotifyEnabled() {
				continue
			}
			alert := core.NewGradeAlert(a.Description, a.RawScore, a.MaximumScore, course.Name, course.Grade)
			svc.notifier.SendNotifications(alert)
			notified.Add(a.ScoreID)
			report.Notified++
		}
	}

	// persisted once per cycle, after all notifications went out
	if report.Notified > 0 {
		if err := saveNotified(svc.store, notified); err != nil {
			return report, err
		}
	}

	// foreground cycles may have picked up fresh cookies (e.g. from the
	// embedded browser); persist them for the next background run
	if opts.HasSession {
		if err := saveSession(svc.store, portal.Capture(svc.jars...)); err != nil {
			svc.logger.Warn(fmt.Sprintf("sync: capturing session: %v", err))
		}
	}

	svc.courses = courses
	svc.logger.Info(fmt.Sprintf(
		"sync: cycle done: %d/%d courses fetched, %d eligible, %d notified",
		report.Fetched, report.Courses, report.Eligible, report.Notified,
	))
	return report, nil
}

// fetchAssignments fans out one fetch per enrolled course through a bounded
// worker pool. Workers write into disjoint course slots, so only the error
// map needs a lock. A failing course is recorded and skipped; the rest of
// the cycle proceeds with whatever was fetched.
func (svc *Service) fetchAssignments(ctx context.Context, courses []portal.Course, report *Report) {
	jobs := make(chan int)
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	workers := svc.conf.Portal.MaxConcurrentFetches
	if workers > len(courses) {
		workers = len(courses)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				course := &courses[idx]
				assignments, err := svc.portal.FetchAssignments(ctx, course.EnrollmentPK)
				if err != nil {
					mu.Lock()
					report.Failed++
					report.CourseErrors[course.ID] = err.Error()
					mu.Unlock()
					svc.logger.Warn(fmt.Sprintf("sync: fetching assignments for %s: %v", course.Name, err))
					continue
				}
				course.Assignments = assignments
				mu.Lock()
				report.Fetched++
				mu.Unlock()
			}
		}()
	}

	for idx := range courses {
		if courses[idx].EnrollmentPK == 0 {
			continue
		}
		jobs <- idx
	}
	close(jobs)
	wg.Wait()
}

// CourseAssignments fetches one course's gradebook on demand and seeds the
// completion ledger from it, the same classification a full cycle applies.
func (svc *Service) CourseAssignments(ctx context.Context, enrollmentPK int) ([]portal.Assignment, error) {
	assignments, err := svc.portal.FetchAssignments(ctx, enrollmentPK)
	if err != nil {
		return nil, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	completion, err := loadCompletion(svc.store)
	if err != nil {
		return nil, err
	}
	if completion.Seed(assignments) {
		if err := saveCompletion(svc.store, completion); err != nil {
			return nil, err
		}
	}

	for i := range svc.courses {
		if svc.courses[i].EnrollmentPK == enrollmentPK {
			svc.courses[i].Assignments = assignments
			break
		}
	}
	return assignments, nil
}

// MarkRead clears the unread flag on the portal and marks the assignment
// complete locally.
func (svc *Service) MarkRead(ctx context.Context, scoreID int) error {
	if err := svc.portal.MarkAssignmentRead(ctx, scoreID); err != nil {
		return err
	}
	return svc.SetCompletion(scoreID, true)
}

// SetCompletion records an explicit user toggle.
func (svc *Service) SetCompletion(scoreID int, done bool) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	completion, err := loadCompletion(svc.store)
	if err != nil {
		return err
	}
	completion.Set(scoreID, done)
	return saveCompletion(svc.store, completion)
}

// Completion returns the persisted completion ledger.
func (svc *Service) Completion() (CompletionLedger, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return loadCompletion(svc.store)
}

// ImportSession restores a snapshot into the live jars and persists it.
// This is the programmatic login path: a session exported from an
// interactive browser sign-in.
func (svc *Service) ImportSession(snap portal.Snapshot) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if skipped := portal.Restore(snap, svc.jars...); skipped > 0 {
		svc.logger.Warn(fmt.Sprintf("sync: session import skipped %d cookies", skipped))
	}
	return saveSession(svc.store, snap)
}

// RefreshSession re-captures the live jars into the persisted snapshot. The
// daemon calls this when the embedded-browser helper rewrites its cookie
// file.
func (svc *Service) RefreshSession() error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return saveSession(svc.store, portal.Capture(svc.jars...))
}

func (svc *Service) restoreSession() error {
	snap, err := loadSession(svc.store)
	if err != nil {
		if errors.Cause(err) == state.ErrNotFound {
			// never logged in; the fetch will surface needs-login
			return nil
		}
		return err
	}
	if skipped := portal.Restore(snap, svc.jars...); skipped > 0 {
		svc.logger.Warn(fmt.Sprintf("sync: session restore skipped %d cookies", skipped))
	}
	return nil
}

// Courses returns the latest fetched model.
func (svc *Service) Courses() []portal.Course {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	courses := make([]portal.Course, len(svc.courses))
	copy(courses, svc.courses)
	return courses
}

// LastReport returns the most recent cycle summary.
func (svc *Service) LastReport() Report {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.lastReport
}
