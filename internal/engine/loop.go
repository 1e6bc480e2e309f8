// Package engine implements the engine core behind the public bridge API:
// the message loop, per-view browsers, the resource pipeline, and frame
// production. Rendering and script execution proper stay black boxes; the
// engine honors the bridge contracts around them.
package engine

import (
	"sync"
	"time"
)

// loopTimer is a pending delayed task.
type loopTimer struct {
	fn  func()
	due time.Time
}

// Loop is the engine message loop. Tasks posted to it run on whichever
// goroutine drives the loop (Run, Poll, or the shutdown drain); that
// goroutine is the logical engine thread. Only one driver executes at a
// time, guarded by runMu.
type Loop struct {
	mu     sync.Mutex
	ready  []func()
	timers []loopTimer
	wake   chan struct{}
	quit   chan struct{}
	once   sync.Once
	closed bool

	// schedulePump, when set, is invoked (from any goroutine) whenever new
	// work is queued, telling an external driver when to call Poll again.
	schedulePump func(delayMS int64)

	runMu sync.Mutex
}

// NewLoop creates a stopped loop. schedulePump may be nil.
func NewLoop(schedulePump func(delayMS int64)) *Loop {
	return &Loop{
		wake:         make(chan struct{}, 1),
		quit:         make(chan struct{}),
		schedulePump: schedulePump,
	}
}

// Post queues fn to run on the engine thread. Safe from any goroutine.
// Posts after Shutdown are dropped.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.ready = append(l.ready, fn)
	l.mu.Unlock()

	l.signal(0)
}

// PostDelayed queues fn to run on the engine thread no sooner than delay
// from now.
func (l *Loop) PostDelayed(fn func(), delay time.Duration) {
	if delay <= 0 {
		l.Post(fn)
		return
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.timers = append(l.timers, loopTimer{fn: fn, due: time.Now().Add(delay)})
	l.mu.Unlock()

	l.signal(delay.Milliseconds())
}

func (l *Loop) signal(delayMS int64) {
	select {
	case l.wake <- struct{}{}:
	default:
	}
	if l.schedulePump != nil {
		l.schedulePump(delayMS)
	}
}

// Run drives the loop on the calling goroutine until Quit.
func (l *Loop) Run() {
	l.runMu.Lock()
	defer l.runMu.Unlock()

	for {
		l.runBatch()

		wait := l.nextTimerWait()
		var timer *time.Timer
		var fire <-chan time.Time
		if wait >= 0 {
			timer = time.NewTimer(wait)
			fire = timer.C
		}

		select {
		case <-l.quit:
			if timer != nil {
				timer.Stop()
			}
			l.runBatch()
			return
		case <-l.wake:
		case <-fire:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// Quit makes Run return after the current batch. Idempotent.
func (l *Loop) Quit() {
	l.once.Do(func() { close(l.quit) })
}

// Poll performs one non-blocking batch of pending loop work: all ready
// tasks plus any due timers. When delayed work remains and an external pump
// is wired, the pump is asked to poll again at the right time.
func (l *Loop) Poll() {
	l.runMu.Lock()
	l.runBatch()
	l.runMu.Unlock()

	if l.schedulePump != nil {
		if wait := l.nextTimerWait(); wait > 0 {
			l.schedulePump(wait.Milliseconds())
		}
	}
}

// Shutdown stops accepting work and drains everything already queued,
// including tasks those tasks post in turn. Pending timers fire immediately:
// teardown must not wait out paint schedules.
func (l *Loop) Shutdown() {
	l.Quit()

	for {
		l.mu.Lock()
		tasks := l.ready
		l.ready = nil
		for _, t := range l.timers {
			tasks = append(tasks, t.fn)
		}
		l.timers = nil
		if len(tasks) == 0 {
			l.closed = true
			l.mu.Unlock()
			return
		}
		l.mu.Unlock()

		l.runMu.Lock()
		for _, fn := range tasks {
			fn()
		}
		l.runMu.Unlock()
	}
}

// runBatch executes all currently ready tasks and due timers. Tasks posted
// during the batch run in the next batch.
func (l *Loop) runBatch() {
	now := time.Now()

	l.mu.Lock()
	tasks := l.ready
	l.ready = nil
	remaining := l.timers[:0]
	for _, t := range l.timers {
		if !t.due.After(now) {
			tasks = append(tasks, t.fn)
		} else {
			remaining = append(remaining, t)
		}
	}
	l.timers = remaining
	l.mu.Unlock()

	for _, fn := range tasks {
		fn()
	}
}

// nextTimerWait returns the delay until the earliest pending timer, 0 if a
// timer is already due, or -1 if no timers are pending.
func (l *Loop) nextTimerWait() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.timers) == 0 {
		return -1
	}
	next := l.timers[0].due
	for _, t := range l.timers[1:] {
		if t.due.Before(next) {
			next = t.due
		}
	}
	wait := time.Until(next)
	if wait < 0 {
		return 0
	}
	return wait
}

// HasPending reports whether any ready tasks or timers are queued.
func (l *Loop) HasPending() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ready) > 0 || len(l.timers) > 0
}
