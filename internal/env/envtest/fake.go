// Package envtest provides a deterministic Environment for tests: a manual
// clock and a switchable connectivity flag.
package envtest

import (
	"sort"
	"sync"
	"time"

	"github.com/okian/signupdesk/internal/env"
)

// Fake is a manual-clock Environment. Timers fire only from Advance.
type Fake struct {
	mu      sync.Mutex
	now     time.Duration
	offline bool
	seq     int
	timers  []*fakeTimer
	added   chan struct{}
}

type fakeTimer struct {
	f       *Fake
	at      time.Duration
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

// New returns an online Fake at time zero.
func New() *Fake {
	return &Fake{added: make(chan struct{}, 1024)}
}

// SetOnline switches the connectivity signal.
func (f *Fake) SetOnline(online bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offline = !online
}

// Online implements env.Environment.
func (f *Fake) Online() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.offline
}

// AfterFunc implements env.Environment.
func (f *Fake) AfterFunc(d time.Duration, fn func()) env.Timer {
	f.mu.Lock()
	f.seq++
	t := &fakeTimer{f: f, at: f.now + d, seq: f.seq, fn: fn}
	f.timers = append(f.timers, t)
	f.mu.Unlock()

	select {
	case f.added <- struct{}{}:
	default:
	}
	return t
}

// WaitForTimers blocks until at least n timers are pending or timeout.
// It lets a test advance the clock only after the code under test armed it.
func (f *Fake) WaitForTimers(n int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		if f.Pending() >= n {
			return true
		}
		select {
		case <-f.added:
		case <-deadline:
			return f.Pending() >= n
		}
	}
}

// Pending counts timers that have neither fired nor been stopped.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Now returns the elapsed fake time.
func (f *Fake) Now() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock and runs every due timer synchronously, in due
// order, on the calling goroutine.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now += d
	var due []*fakeTimer
	for _, t := range f.timers {
		if !t.stopped && !t.fired && t.at <= f.now {
			t.fired = true
			due = append(due, t)
		}
	}
	f.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].at == due[j].at {
			return due[i].seq < due[j].seq
		}
		return due[i].at < due[j].at
	})
	for _, t := range due {
		t.fn()
	}
}

func (t *fakeTimer) Stop() bool {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}
