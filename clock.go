package authcoord

import "time"

// Clock abstracts time and one-shot timer scheduling so tests can drive the
// refresh timer deterministically.
type Clock interface {
	Now() time.Time
	// Schedule runs fn after delay and returns a cancel func. Cancel after
	// firing is a no-op.
	Schedule(delay time.Duration, fn func()) (cancel func())
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Schedule(delay time.Duration, fn func()) func() {
	t := time.AfterFunc(delay, fn)
	return func() { t.Stop() }
}

// SystemClock returns the wall-clock implementation used by default.
func SystemClock() Clock { return systemClock{} }
