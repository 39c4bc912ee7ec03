package p2p

import "time"

// Timer is a cancellable, one-shot scheduled callback.
type Timer interface {
	// Stop cancels the timer. Safe to call more than once.
	Stop()
}

// Scheduler arms one-shot timers. It exists as a seam so tests can
// control the two named timeouts (DHCP lease acquisition, peer-failure
// grace) deterministically instead of sleeping in real time.
type Scheduler interface {
	After(d time.Duration, f func()) Timer
}

// realScheduler backs production use with time.AfterFunc.
type realScheduler struct{}

// NewScheduler returns the production Scheduler backed by the runtime
// timer wheel.
func NewScheduler() Scheduler { return realScheduler{} }

func (realScheduler) After(d time.Duration, f func()) Timer {
	t := time.AfterFunc(d, f)
	return realTimer{t}
}

type realTimer struct{ t *time.Timer }

func (r realTimer) Stop() { r.t.Stop() }
