package grades

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	inmemstate "github.com/schoolnotes/gradesync/storage/state/inmem"
)

func Test_NewScheduler_enforcesMinimumInterval(t *testing.T) {
	svc := NewService(testConf(), testLogger(), precalcFixture(), inmemstate.NewStore(), &captureNotifier{})

	sched := NewScheduler(svc, testLogger(), time.Second, 25*time.Second)
	assert.Equal(t, MinSyncInterval, sched.interval)

	sched = NewScheduler(svc, testLogger(), time.Hour, 25*time.Second)
	assert.Equal(t, time.Hour, sched.interval)
}

func Test_Scheduler_StopBeforeFirstTick(t *testing.T) {
	svc := NewService(testConf(), testLogger(), precalcFixture(), inmemstate.NewStore(), &captureNotifier{})
	sched := NewScheduler(svc, testLogger(), time.Hour, 25*time.Second)

	sched.Start()

	done := make(chan struct{})
	go func() {
		sched.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() did not return")
	}

	// stopping twice is safe
	sched.Stop()
}

func Test_Scheduler_runOnce_reportsWithoutHanging(t *testing.T) {
	client := precalcFixture()
	notifier := &captureNotifier{}
	svc := NewService(testConf(), testLogger(), client, inmemstate.NewStore(), notifier)
	sched := NewScheduler(svc, testLogger(), time.Hour, 25*time.Second)

	sched.runOnce()

	assert.Equal(t, 1, client.courseCalls)
	assert.Len(t, notifier.Sent(), 1)
	assert.Equal(t, 1, svc.LastReport().Notified)
}
