/*
Package resilience provides a circuit breaker for side effects that can
fail persistently, such as draft journal writes on a sick disk.

# Overview

A breaker wraps a fallible call. While failures stay isolated it passes
calls through; once they become persistent it opens and rejects calls
immediately, so a dead dependency costs an error check instead of a
blocking syscall per attempt. After a cooldown it lets a limited number
of probes through and closes again when they succeed.

State moves lazily on the calls themselves; there is no timer
goroutine. Tests drive the cooldown through an injected clock.

# Usage

	breaker := resilience.New("draft-journal", resilience.Settings{
		Timeout: 10 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to resilience.State) {
			log.Warn("breaker transition", zap.String("name", name),
				zap.Stringer("from", from), zap.Stringer("to", to))
		},
	})

	err := breaker.Do(func() error {
		return journalWrite(draft)
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		// skipped, not attempted
	}

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]
	                                           |
	                                           v
	                                         Open
*/
package resilience
