package bridge

import "errors"

var (
	// ErrDisposed marks an operation on a torn-down bridge.
	ErrDisposed = errors.New("bridge: disposed")

	// ErrFailed marks an operation on a bridge whose sandbox failed to
	// initialize. Terminal; a new bridge must be created.
	ErrFailed = errors.New("bridge: sandbox initialization failed")

	// ErrAlreadyBound marks a second Bind on the same bridge.
	ErrAlreadyBound = errors.New("bridge: channel already bound")
)

// State is the bridge lifecycle state.
type State int

const (
	// StateUninitialized: constructed, no channel bound.
	StateUninitialized State = iota

	// StateInitializing: channel bound, sandbox loading.
	StateInitializing

	// StateReady: sandbox reported readiness; synchronization active.
	StateReady

	// StateFailed: sandbox reported an initialization error. Terminal.
	StateFailed

	// StateDisposed: torn down. Terminal.
	StateDisposed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// InitError is the error surfaced through OnError when the sandbox
// fails during initialization.
type InitError struct {
	Detail string
}

func (e *InitError) Error() string {
	return "bridge: sandbox initialization failed: " + e.Detail
}

// Unwrap lets errors.Is(err, ErrFailed) match surfaced init failures.
func (e *InitError) Unwrap() error { return ErrFailed }

// Skip reasons recorded when an update is deliberately not forwarded.
const (
	// SkipSuppression: the value matched an open suppression window
	// and was treated as an echo.
	SkipSuppression = "suppression"

	// SkipInSync: the receiving side already held the value.
	SkipInSync = "in_sync"
)

// Stats is a point-in-time snapshot of one bridge's counters. Skipped
// updates and swallowed selection failures are deliberate behavior;
// the counters here are what makes them observable.
type Stats struct {
	State                    string `json:"state"`
	ChangesForwarded         uint64 `json:"changes_forwarded"`
	EditsCoalesced           uint64 `json:"edits_coalesced"`
	ReplacesSent             uint64 `json:"replaces_sent"`
	SkippedSuppression       uint64 `json:"skipped_suppression"`
	SkippedInSync            uint64 `json:"skipped_in_sync"`
	SelectionRestoreFailures uint64 `json:"selection_restore_failures"`
	TransportErrors          uint64 `json:"transport_errors"`
	SandboxErrors            uint64 `json:"sandbox_errors"`
	PendingFlush             bool   `json:"pending_flush"`
	SuppressionOpen          bool   `json:"suppression_open"`
}
