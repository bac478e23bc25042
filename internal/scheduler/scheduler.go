package scheduler

import (
	"sync"
	"time"
)

// State is the scheduler's lifecycle position.
type State uint8

const (
	StateIdle State = iota
	StateArmed
	StateFiring
)

// Deps captures scheduler dependencies. Now and Schedule come from the
// injected clock so tests never wait on wall time.
type Deps struct {
	Now       func() time.Time
	Schedule  func(delay time.Duration, fn func()) (cancel func())
	Threshold time.Duration
	// Fire runs the refresh operation. It is called off the caller's
	// goroutine, on the clock's timer goroutine.
	Fire func()
	// Expired is called instead of Fire when the session is already past
	// expiry at arming time (forced logout path).
	Expired func()
}

// Scheduler arms a one-shot refresh timer per session update.
type Scheduler struct {
	mu         sync.Mutex
	deps       Deps
	state      State
	generation uint64
	cancel     func()
	fireAt     time.Time
}

// New creates an idle Scheduler.
func New(deps Deps) *Scheduler {
	return &Scheduler{deps: deps}
}

// Arm cancels any armed timer and schedules the next refresh for
// expiresAt - threshold. Inside the threshold window it fires immediately;
// at or past expiry it invokes Expired instead.
func (s *Scheduler) Arm(expiresAt time.Time) {
	s.mu.Lock()
	s.cancelLocked()

	now := s.deps.Now()
	untilExpiry := expiresAt.Sub(now)
	if untilExpiry <= 0 {
		s.state = StateIdle
		s.mu.Unlock()
		if s.deps.Expired != nil {
			s.deps.Expired()
		}
		return
	}

	delay := untilExpiry - s.deps.Threshold
	if delay < 0 {
		delay = 0
	}

	s.generation++
	generation := s.generation
	s.state = StateArmed
	s.fireAt = now.Add(delay)
	s.cancel = s.deps.Schedule(delay, func() {
		s.fire(generation)
	})
	s.mu.Unlock()
}

func (s *Scheduler) fire(generation uint64) {
	s.mu.Lock()
	if s.generation != generation || s.state != StateArmed {
		s.mu.Unlock()
		return
	}
	s.state = StateFiring
	s.mu.Unlock()

	s.deps.Fire()

	s.mu.Lock()
	// A successful refresh re-arms (bumping the generation); only reset to
	// idle when that did not happen.
	if s.generation == generation && s.state == StateFiring {
		s.state = StateIdle
	}
	s.mu.Unlock()
}

// RetryIn arms the timer to fire after delay, bypassing the threshold
// computation. Used to retry after a transient refresh failure inside the
// threshold window.
func (s *Scheduler) RetryIn(delay time.Duration) {
	s.mu.Lock()
	s.cancelLocked()
	if delay < 0 {
		delay = 0
	}
	s.generation++
	generation := s.generation
	s.state = StateArmed
	s.fireAt = s.deps.Now().Add(delay)
	s.cancel = s.deps.Schedule(delay, func() {
		s.fire(generation)
	})
	s.mu.Unlock()
}

// Cancel stops any armed timer. Called on logout and teardown.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	s.cancelLocked()
	s.state = StateIdle
	s.mu.Unlock()
}

func (s *Scheduler) cancelLocked() {
	s.generation++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.fireAt = time.Time{}
}

// State returns the current lifecycle position.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// FireAt returns when the armed timer is due, if one is armed.
func (s *Scheduler) FireAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateArmed {
		return time.Time{}, false
	}
	return s.fireAt, true
}
