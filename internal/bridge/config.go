package bridge

import (
	"time"

	"github.com/venuely/editor-bridge/internal/infrastructure/logging"
	"github.com/venuely/editor-bridge/internal/shared/clock"
)

const (
	// DefaultDebounceInterval is the quiet period an edit burst must
	// observe before the host is notified.
	DefaultDebounceInterval = 300 * time.Millisecond

	// DefaultSuppressionTTL bounds how long a forwarded value is
	// recognized as an echo when it comes back.
	DefaultSuppressionTTL = time.Second
)

// Config configures a Bridge. The zero value is usable; New applies
// defaults for everything left unset.
type Config struct {
	// InitialContent is delivered to the sandbox with the first
	// replace once it becomes ready, unless a SetValue arrived in the
	// meantime, in which case the queued value wins.
	InitialContent string

	// DebounceInterval is the sandbox-edit quiet period. Must be
	// positive; defaulted otherwise.
	DebounceInterval time.Duration

	// SuppressionTTL is the echo-window lifetime. Must be positive;
	// defaulted otherwise.
	SuppressionTTL time.Duration

	// Transform normalizes content before it is adopted on either
	// path, typically a sanitization policy. It must be idempotent:
	// echo detection compares transformed values, and a transform
	// that keeps rewriting its own output defeats it.
	Transform func(string) string

	// OnChange receives each debounced, deduplicated sandbox edit.
	// Invoked outside the bridge lock; re-entrant SetValue is safe.
	OnChange func(content string)

	// OnError receives the terminal initialization failure, exactly
	// once. Later sandbox errors are logged and counted instead.
	OnError func(err error)

	// OnStateChange observes lifecycle transitions.
	OnStateChange func(from, to State)

	Logger  *logging.Logger
	Metrics Observer
	Clock   clock.Clock
}

func (c *Config) withDefaults() {
	if c.DebounceInterval <= 0 {
		c.DebounceInterval = DefaultDebounceInterval
	}
	if c.SuppressionTTL <= 0 {
		c.SuppressionTTL = DefaultSuppressionTTL
	}
	if c.Logger == nil {
		c.Logger = logging.NewDefault()
	}
	if c.Metrics == nil {
		c.Metrics = NopObserver()
	}
	if c.Clock == nil {
		c.Clock = clock.Real()
	}
}

// Observer receives synchronization events for metrics collection.
// Implementations must be safe for concurrent use; calls may happen
// under the bridge lock.
type Observer interface {
	// RecordChangeForwarded notes a flush to the host: how many edits
	// the quiet period coalesced and how long the burst lasted.
	RecordChangeForwarded(coalesced int, burst time.Duration)

	// RecordReplace notes a forced replacement sent to the sandbox.
	RecordReplace()

	// RecordSkip notes a deliberate no-op, labeled SkipSuppression or
	// SkipInSync.
	RecordSkip(reason string)

	// RecordSelectionRestoreFailure notes a swallowed cursor-restore
	// failure.
	RecordSelectionRestoreFailure()

	// RecordTransportError notes a dropped or undeliverable message.
	RecordTransportError()

	// RecordReadyLatency notes the time from channel bind to the
	// sandbox's ready signal.
	RecordReadyLatency(d time.Duration)

	// RecordStateChange notes a lifecycle transition.
	RecordStateChange(from, to string)
}

// NopObserver returns an Observer that discards everything.
func NopObserver() Observer { return nopObserver{} }

type nopObserver struct{}

func (nopObserver) RecordChangeForwarded(int, time.Duration) {}
func (nopObserver) RecordReplace()                           {}
func (nopObserver) RecordSkip(string)                        {}
func (nopObserver) RecordSelectionRestoreFailure()           {}
func (nopObserver) RecordTransportError()                    {}
func (nopObserver) RecordReadyLatency(time.Duration)         {}
func (nopObserver) RecordStateChange(string, string)         {}
