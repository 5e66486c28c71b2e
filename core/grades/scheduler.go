package grades

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/schoolnotes/gradesync/core"
)

// MinSyncInterval is the floor for background scheduling; the host never
// promises delivery sooner anyway.
const MinSyncInterval = 15 * time.Minute

// Scheduler maintains the self-rescheduling background chain: wait at least
// the interval, run one cycle under a hard deadline, reschedule. The timer
// is re-armed before the cycle runs so a slow or failed cycle can never
// break the chain.
type Scheduler struct {
	svc      *Service
	logger   core.Logger
	interval time.Duration
	deadline time.Duration

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewScheduler(svc *Service, logger core.Logger, interval, deadline time.Duration) *Scheduler {
	if interval < MinSyncInterval {
		interval = MinSyncInterval
	}
	return &Scheduler{
		svc:      svc,
		logger:   logger,
		interval: interval,
		deadline: deadline,
		stopChan: make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.loop()
	s.logger.Info(fmt.Sprintf("scheduler: background sync every %v (deadline %v)", s.interval, s.deadline))
}

// Stop cancels any in-flight cycle and waits for the loop to exit.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-timer.C:
		}

		// re-arm first: the next invocation must be requested no matter how
		// this cycle ends
		timer.Reset(s.interval)
		s.runOnce()
	}
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.deadline)
	defer cancel()

	// cooperative cancellation on Stop reaches in-flight requests
	go func() {
		select {
		case <-s.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	report, err := s.svc.Run(ctx, RunOptions{})
	if err != nil {
		if report.NeedsLogin {
			s.logger.Warn("scheduler: portal session expired, waiting for login")
			return
		}
		s.logger.Warn(fmt.Sprintf("scheduler: cycle failed: %v", err))
	}
}
