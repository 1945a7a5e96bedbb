package countdown

import (
	"errors"
	"sync"
	"time"
)

// TickInterval is the countdown resolution.
const TickInterval = time.Second

// ErrAlreadyStarted is returned when Start is called on a used Timer.
var ErrAlreadyStarted = errors.New("countdown already started")

// State enumerates timer states.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateExpired
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateExpired:
		return "expired"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Timer counts remaining seconds down to zero and signals expiry once.
// A Timer is single-use: after expiry or Stop it cannot be restarted.
//
// Callbacks run on the scheduler's goroutine without the timer lock held,
// so they may call Stop. A Stop from another goroutine orders against the
// state check at the start of a tick: a callback whose tick passed that
// check before Stop took the lock can still run after Stop returns. Owners
// that share state with a callback must re-check it inside the callback.
type Timer struct {
	sched Scheduler

	mu        sync.Mutex
	state     State
	remaining int
	onTick    func(remaining int)
	onExpire  func()
	cancel    func()
}

// New creates an idle Timer driven by s.
func New(s Scheduler) *Timer {
	return &Timer{sched: s}
}

// Start arms the timer. Every tick calls onTick with the new remaining value;
// the tick that reaches zero calls onExpire instead and ends the schedule.
func (t *Timer) Start(initialSeconds int, onTick func(remaining int), onExpire func()) error {
	t.mu.Lock()
	if t.state != StateIdle {
		t.mu.Unlock()
		return ErrAlreadyStarted
	}
	if initialSeconds < 0 {
		initialSeconds = 0
	}
	t.state = StateRunning
	t.remaining = initialSeconds
	t.onTick = onTick
	t.onExpire = onExpire
	t.mu.Unlock()

	cancel := t.sched.Every(TickInterval, t.tick)

	t.mu.Lock()
	if t.state == StateRunning {
		t.cancel = cancel
		cancel = nil
	}
	t.mu.Unlock()

	// Stopped between scheduling and here.
	if cancel != nil {
		cancel()
	}
	return nil
}

// Stop cancels all pending ticks. It is safe to call more than once and
// from inside a callback. It does not wait for a callback already running
// on the scheduler goroutine.
func (t *Timer) Stop() {
	t.mu.Lock()
	if t.state == StateStopped || t.state == StateExpired {
		t.mu.Unlock()
		return
	}
	t.state = StateStopped
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Remaining returns the seconds left.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// State returns the current timer state.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Timer) tick() {
	t.mu.Lock()
	if t.state != StateRunning {
		t.mu.Unlock()
		return
	}

	t.remaining--
	if t.remaining <= 0 {
		t.remaining = 0
		t.state = StateExpired
		cancel := t.cancel
		t.cancel = nil
		onExpire := t.onExpire
		t.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		if onExpire != nil {
			onExpire()
		}
		return
	}

	remaining := t.remaining
	onTick := t.onTick
	t.mu.Unlock()

	if onTick != nil {
		onTick(remaining)
	}
}
