package scheduler

import (
	"sync"
	"testing"
	"time"
)

// manualClock drives Scheduler deterministically. Advance moves time forward
// and runs every timer that comes due, in order.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	at        time.Time
	fn        func()
	cancelled bool
}

func newManualClock(start time.Time) *manualClock {
	return &manualClock{now: start}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Schedule(delay time.Duration, fn func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	timer := &manualTimer{at: c.now.Add(delay), fn: fn}
	c.timers = append(c.timers, timer)
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		timer.cancelled = true
	}
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *manualTimer
		for _, timer := range c.timers {
			if timer.cancelled || timer.at.After(target) {
				continue
			}
			if next == nil || timer.at.Before(next.at) {
				next = timer
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.cancelled = true
		if next.at.After(c.now) {
			c.now = next.at
		}
		fn := next.fn
		c.mu.Unlock()
		fn()
	}
}

type recorder struct {
	mu      sync.Mutex
	fires   int
	expires int
}

func (r *recorder) fire() {
	r.mu.Lock()
	r.fires++
	r.mu.Unlock()
}

func (r *recorder) expire() {
	r.mu.Lock()
	r.expires++
	r.mu.Unlock()
}

func (r *recorder) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fires, r.expires
}

func newTestScheduler(clock *manualClock, threshold time.Duration, rec *recorder) *Scheduler {
	return New(Deps{
		Now:       clock.Now,
		Schedule:  clock.Schedule,
		Threshold: threshold,
		Fire:      rec.fire,
		Expired:   rec.expire,
	})
}

func TestArmFiresAtThreshold(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := newManualClock(start)
	rec := &recorder{}
	s := newTestScheduler(clock, 15*time.Minute, rec)

	s.Arm(start.Add(time.Hour))

	fireAt, ok := s.FireAt()
	if !ok {
		t.Fatal("no armed timer after Arm")
	}
	if want := start.Add(45 * time.Minute); !fireAt.Equal(want) {
		t.Fatalf("fireAt = %v, want %v", fireAt, want)
	}

	clock.Advance(44 * time.Minute)
	if fires, _ := rec.counts(); fires != 0 {
		t.Fatalf("fired %d times before the threshold point", fires)
	}

	clock.Advance(time.Minute)
	if fires, _ := rec.counts(); fires != 1 {
		t.Fatalf("fires = %d, want 1", fires)
	}
	if s.State() != StateIdle {
		t.Fatalf("state after fire = %v, want idle", s.State())
	}
}

func TestArmInsideThresholdFiresImmediately(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := newManualClock(start)
	rec := &recorder{}
	s := newTestScheduler(clock, 15*time.Minute, rec)

	// Ten minutes of validity left, threshold fifteen: zero delay.
	s.Arm(start.Add(10 * time.Minute))
	clock.Advance(0)

	if fires, _ := rec.counts(); fires != 1 {
		t.Fatalf("fires = %d, want 1", fires)
	}
}

func TestArmPastExpiryInvokesExpired(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := newManualClock(start)
	rec := &recorder{}
	s := newTestScheduler(clock, 15*time.Minute, rec)

	s.Arm(start.Add(-time.Second))

	fires, expires := rec.counts()
	if fires != 0 || expires != 1 {
		t.Fatalf("fires=%d expires=%d, want 0/1", fires, expires)
	}
	if s.State() != StateIdle {
		t.Fatalf("state = %v, want idle", s.State())
	}
}

func TestReArmCancelsPreviousTimer(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := newManualClock(start)
	rec := &recorder{}
	s := newTestScheduler(clock, 15*time.Minute, rec)

	s.Arm(start.Add(30 * time.Minute))
	s.Arm(start.Add(2 * time.Hour))

	// The first timer's due point passes without firing.
	clock.Advance(time.Hour)
	if fires, _ := rec.counts(); fires != 0 {
		t.Fatalf("superseded timer fired %d times", fires)
	}

	clock.Advance(time.Hour)
	if fires, _ := rec.counts(); fires != 1 {
		t.Fatalf("fires = %d, want 1", fires)
	}
}

func TestCancelStopsArmedTimer(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := newManualClock(start)
	rec := &recorder{}
	s := newTestScheduler(clock, 15*time.Minute, rec)

	s.Arm(start.Add(time.Hour))
	s.Cancel()

	clock.Advance(2 * time.Hour)
	if fires, _ := rec.counts(); fires != 0 {
		t.Fatalf("cancelled timer fired %d times", fires)
	}
	if s.State() != StateIdle {
		t.Fatalf("state = %v, want idle", s.State())
	}
}

func TestRetryInBypassesThreshold(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := newManualClock(start)
	rec := &recorder{}
	s := newTestScheduler(clock, 15*time.Minute, rec)

	s.RetryIn(5 * time.Minute)

	fireAt, ok := s.FireAt()
	if !ok {
		t.Fatal("no armed timer after RetryIn")
	}
	if want := start.Add(5 * time.Minute); !fireAt.Equal(want) {
		t.Fatalf("fireAt = %v, want %v", fireAt, want)
	}

	clock.Advance(5 * time.Minute)
	if fires, _ := rec.counts(); fires != 1 {
		t.Fatalf("fires = %d, want 1", fires)
	}
}

func TestFireDuringWhichReArmKeepsArmedState(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := newManualClock(start)

	var s *Scheduler
	rec := &recorder{}
	s = New(Deps{
		Now:       clock.Now,
		Schedule:  clock.Schedule,
		Threshold: 15 * time.Minute,
		Fire: func() {
			rec.fire()
			// A successful refresh arms the next cycle from inside Fire.
			s.Arm(clock.Now().Add(time.Hour))
		},
		Expired: rec.expire,
	})

	s.Arm(start.Add(20 * time.Minute))
	clock.Advance(5 * time.Minute)

	if fires, _ := rec.counts(); fires != 1 {
		t.Fatalf("fires = %d, want 1", fires)
	}
	if s.State() != StateArmed {
		t.Fatalf("state = %v, want armed after in-fire re-arm", s.State())
	}
}
