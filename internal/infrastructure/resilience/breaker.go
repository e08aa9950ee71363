package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/venuely/editor-bridge/internal/shared/clock"
)

var (
	// ErrCircuitOpen rejects calls while the breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrTooManyRequests rejects calls beyond the half-open probe quota.
	ErrTooManyRequests = errors.New("too many requests")
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures the circuit breaker behavior
type Settings struct {
	// MaxRequests is the number of probe calls allowed while half-open
	MaxRequests uint32

	// Interval is how often the closed state forgets accumulated
	// outcomes, so old failures cannot trip the breaker forever
	Interval time.Duration

	// Timeout is how long the open state lasts before probing resumes
	Timeout time.Duration

	// ReadyToTrip is consulted after each failure in the closed state
	ReadyToTrip func(counts Counts) bool

	// OnStateChange is called whenever the state changes
	OnStateChange func(name string, from State, to State)

	// Clock defaults to the wall clock; tests inject a fake
	Clock clock.Clock
}

// Counts holds the statistics for the circuit breaker
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// Breaker admits or rejects calls against one unreliable dependency.
// Transitions are lazy: they happen when a call or State() observes a
// passed deadline, so no timer goroutine is needed.
type Breaker struct {
	name string
	cfg  Settings
	clk  clock.Clock

	mu         sync.Mutex
	state      State
	counts     Counts
	generation uint64
	deadline   time.Time
}

// New creates a circuit breaker with the given settings
func New(name string, cfg Settings) *Breaker {
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	if cfg.Interval == 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.ReadyToTrip == nil {
		cfg.ReadyToTrip = func(counts Counts) bool {
			return counts.ConsecutiveFailures > 5
		}
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}

	b := &Breaker{
		name: name,
		cfg:  cfg,
		clk:  cfg.Clock,
	}
	b.deadline = b.clk.Now().Add(cfg.Interval)
	return b
}

// Name returns the name of the circuit breaker
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state of the circuit breaker
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.syncLocked(b.clk.Now())
	return b.state
}

// Counts returns a copy of the internal counts
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Do runs fn if the breaker accepts the call. A panic inside fn counts
// as a failure before it propagates.
func (b *Breaker) Do(fn func() error) error {
	generation, err := b.admit()
	if err != nil {
		return err
	}

	defer func() {
		if e := recover(); e != nil {
			b.settle(generation, false)
			panic(e)
		}
	}()

	err = fn()
	b.settle(generation, err == nil)
	return err
}

// admit decides whether a call may proceed and stamps it with the
// current generation.
func (b *Breaker) admit() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.syncLocked(b.clk.Now())

	switch {
	case b.state == StateOpen:
		return b.generation, ErrCircuitOpen
	case b.state == StateHalfOpen && b.counts.Requests >= b.cfg.MaxRequests:
		return b.generation, ErrTooManyRequests
	}

	b.counts.Requests++
	return b.generation, nil
}

// settle records a call outcome. Outcomes stamped with an older
// generation carry no signal; the counts they belong to were already
// reset.
func (b *Breaker) settle(generation uint64, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clk.Now()
	b.syncLocked(now)
	if generation != b.generation {
		return
	}

	if success {
		b.counts.TotalSuccesses++
		b.counts.ConsecutiveSuccesses++
		b.counts.ConsecutiveFailures = 0
		if b.state == StateHalfOpen && b.counts.ConsecutiveSuccesses >= b.cfg.MaxRequests {
			b.transitionLocked(StateClosed, now)
		}
		return
	}

	b.counts.TotalFailures++
	b.counts.ConsecutiveFailures++
	b.counts.ConsecutiveSuccesses = 0
	switch b.state {
	case StateClosed:
		if b.cfg.ReadyToTrip(b.counts) {
			b.transitionLocked(StateOpen, now)
		}
	case StateHalfOpen:
		b.transitionLocked(StateOpen, now)
	}
}

// syncLocked applies any lazy transition whose deadline has passed.
func (b *Breaker) syncLocked(now time.Time) {
	switch b.state {
	case StateClosed:
		if now.After(b.deadline) {
			b.rolloverLocked(now)
		}
	case StateOpen:
		if now.After(b.deadline) {
			b.transitionLocked(StateHalfOpen, now)
		}
	}
}

// transitionLocked moves to a new state, resetting counts and arming
// the next deadline.
func (b *Breaker) transitionLocked(to State, now time.Time) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	b.rolloverLocked(now)

	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.name, from, to)
	}
}

// rolloverLocked starts a fresh generation: counts reset and the
// deadline re-arms for the current state.
func (b *Breaker) rolloverLocked(now time.Time) {
	b.generation++
	b.counts = Counts{}

	switch b.state {
	case StateClosed:
		b.deadline = now.Add(b.cfg.Interval)
	case StateOpen:
		b.deadline = now.Add(b.cfg.Timeout)
	case StateHalfOpen:
		// No deadline: half-open resolves on probe outcomes alone.
		b.deadline = time.Time{}
	}
}
