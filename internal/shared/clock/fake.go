package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake returns a FakeClock frozen at initial. Time moves only through
// Advance.
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{current: initial}
}

// FakeClock is a deterministic Clock for tests. Scheduled callbacks
// fire synchronously inside Advance, in deadline order. Do not call
// Advance from within a scheduled callback.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	pending []*pendingEvent
}

// pendingEvent is a scheduled timer or ticker tick.
type pendingEvent struct {
	deadline time.Time

	// callback fires for one-shot timers; channel receives for tickers.
	callback func()
	channel  chan time.Time

	// interval is non-zero for tickers, which reschedule after firing.
	interval time.Duration

	stopped bool
	fired   bool
}

// Now returns the frozen current time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Since returns the elapsed fake time since t.
func (c *FakeClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// AfterFunc schedules f after d of fake time. If d <= 0, f runs
// synchronously before AfterFunc returns.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) *Timer {
	if d <= 0 {
		f()
		return &Timer{
			stop:  func() bool { return false },
			reset: func(time.Duration) bool { return false },
		}
	}

	c.mu.Lock()
	event := &pendingEvent{
		deadline: c.current.Add(d),
		callback: f,
	}
	c.pending = append(c.pending, event)
	c.mu.Unlock()

	return &Timer{
		stop: func() bool {
			c.mu.Lock()
			defer c.mu.Unlock()
			if event.stopped || event.fired {
				return false
			}
			event.stopped = true
			return true
		},
		reset: func(d time.Duration) bool {
			c.mu.Lock()
			defer c.mu.Unlock()
			active := !event.stopped && !event.fired
			event.stopped = false
			event.fired = false
			event.deadline = c.current.Add(d)
			if !active {
				// Fired events were dropped from the pending list.
				c.pending = append(c.pending, event)
			}
			return active
		},
	}
}

// NewTicker returns a ticker firing every d of fake time. Panics if
// d <= 0.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive ticker interval")
	}

	c.mu.Lock()
	channel := make(chan time.Time, 1)
	event := &pendingEvent{
		deadline: c.current.Add(d),
		channel:  channel,
		interval: d,
	}
	c.pending = append(c.pending, event)
	c.mu.Unlock()

	return &Ticker{
		C: channel,
		stop: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			event.stopped = true
		},
	}
}

// Advance moves the clock forward by d, firing every event whose
// deadline falls within the new time. Callbacks run synchronously in
// the calling goroutine; a callback that schedules a new timer inside
// the advanced span has that timer fired too. Ticker sends never
// block; overflow ticks are dropped like time.Ticker.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	target := c.current
	c.mu.Unlock()

	for {
		due := c.takeDue(target)
		if len(due) == 0 {
			return
		}
		sort.Slice(due, func(i, j int) bool {
			return due[i].deadline.Before(due[j].deadline)
		})
		for _, event := range due {
			if event.callback != nil {
				event.callback()
			} else if event.channel != nil {
				select {
				case event.channel <- target:
				default:
				}
			}
		}
	}
}

// PendingCount reports the number of live scheduled events. Lets tests
// assert that teardown cancelled everything.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, event := range c.pending {
		if !event.stopped {
			count++
		}
	}
	return count
}

// takeDue removes due events from the pending list, rescheduling
// tickers for their next interval.
func (c *FakeClock) takeDue(target time.Time) []*pendingEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	var due, rest []*pendingEvent
	for _, event := range c.pending {
		switch {
		case event.stopped:
		case !event.deadline.After(target):
			due = append(due, event)
		default:
			rest = append(rest, event)
		}
	}
	for _, event := range due {
		if event.interval > 0 {
			event.deadline = event.deadline.Add(event.interval)
			rest = append(rest, event)
		} else {
			event.fired = true
		}
	}
	c.pending = rest
	return due
}
