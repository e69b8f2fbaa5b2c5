package core

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

var timerSeq atomic.Uint64

// Timer owns one dedicated goroutine that sleeps to a deadline, invokes a
// callback, and, when periodic, reschedules with drift correction. One-shot
// and periodic are parameterizations of the same machine; see OneShot and
// Periodic.
//
// The drift-correction rule: after a firing, the next deadline is
// max(previous deadline + interval, now). If the callback overruns the
// interval, the deadline is pulled forward to "now" instead of scheduling a
// burst of catch-up firings: at most one callback per elapsed interval,
// never more than one interval's worth of backlog.
type Timer struct {
	mu       sync.Mutex
	callback func()
	quit     chan struct{}
	done     chan struct{}
	running  bool

	name     string
	logger   Logger
	metrics  Metrics
	failures FailureHandler
}

// NewTimer creates a stopped timer for the given callback.
func NewTimer(callback func(), opts ...Option) *Timer {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.applyDefaults()

	name := cfg.Name
	if name == "" {
		name = fmt.Sprintf("timer-%d", timerSeq.Add(1))
	}

	return &Timer{
		callback: callback,
		name:     name,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		failures: cfg.FailureHandler,
	}
}

// Name returns the timer's label used in logs and metrics.
func (t *Timer) Name() string {
	return t.name
}

// Start schedules the timer, stopping any running instance first. The
// callback fires once after initDelay (unless initDelay is zero, or equal
// to interval, in which case the periodic loop handles the first firing),
// then every interval. A zero interval makes this a one-shot. The timer is
// restartable after firing.
func (t *Timer) Start(initDelay, interval time.Duration) {
	t.Stop()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.quit = make(chan struct{})
	t.done = make(chan struct{})
	t.running = true
	go t.threadFunc(initDelay, interval, t.quit, t.done)
}

// Stop cancels a scheduled or running timer, waking a sleeping worker and
// joining it before its next callback. Safe to call when not running. Must
// not be called from inside the callback.
func (t *Timer) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	quit, done := t.quit, t.done
	t.running = false
	t.mu.Unlock()

	close(quit)
	<-done
}

// IsRunning reports whether the worker goroutine is active. A one-shot
// reports false once it has fired and its goroutine has exited, even
// before Stop is called.
func (t *Timer) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return false
	}
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

// threadFunc runs in the context of the dedicated goroutine.
func (t *Timer) threadFunc(initDelay, interval time.Duration, quit, done chan struct{}) {
	defer close(done)

	// A distinct initial delay gets its own cancellable wait and a single
	// firing. When initDelay equals interval the periodic loop below
	// already provides exactly that first wait.
	if initDelay != 0 && initDelay != interval {
		if !sleepFor(initDelay, quit) {
			return
		}
		t.fire()
	}

	// A zero interval means one-shot: done after the initial firing.
	if interval == 0 {
		return
	}

	deadline := time.Now().Add(interval)
	for {
		if !sleepUntil(deadline, quit) {
			return
		}
		t.fire()
		deadline = maxTime(deadline.Add(interval), time.Now())
	}
}

// fire invokes the callback, recovering a panic so a misbehaving callback
// cannot kill the timer goroutine. The failure goes to the FailureHandler.
func (t *Timer) fire() {
	defer func() {
		if r := recover(); r != nil {
			err := &PanicError{Value: r, Stack: debug.Stack()}
			t.failures.HandleFailure(context.Background(), t.name, err)
			t.logger.Error("timer callback panicked",
				F("timer", t.name), F("panic", r))
		}
	}()
	t.metrics.RecordTimerFiring(t.name)
	t.callback()
}

// sleepFor waits out a relative delay; false means cancelled.
func sleepFor(d time.Duration, quit <-chan struct{}) bool {
	return sleepUntil(time.Now().Add(d), quit)
}

// sleepUntil waits until an absolute deadline; false means cancelled.
func sleepUntil(deadline time.Time, quit <-chan struct{}) bool {
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-quit:
		return false
	}
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

// =============================================================================
// One-shot and periodic parameterizations
// =============================================================================

// OneShot is a timer that expires once. It can be reused by re-starting it
// after it fires.
type OneShot struct {
	*Timer
}

// NewOneShot creates a stopped one-shot timer.
func NewOneShot(callback func(), opts ...Option) *OneShot {
	return &OneShot{Timer: NewTimer(callback, opts...)}
}

// Start arms the timer to fire once after d.
func (t *OneShot) Start(d time.Duration) {
	t.Timer.Start(d, 0)
}

// Periodic is a timer that fires every interval, first firing one interval
// after Start.
type Periodic struct {
	*Timer
}

// NewPeriodic creates a stopped periodic timer.
func NewPeriodic(callback func(), opts ...Option) *Periodic {
	return &Periodic{Timer: NewTimer(callback, opts...)}
}

// Start arms the timer to fire every d.
func (t *Periodic) Start(d time.Duration) {
	t.Timer.Start(d, d)
}
