package bridge

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/venuely/editor-bridge/internal/infrastructure/logging"
	"github.com/venuely/editor-bridge/internal/protocol"
	"github.com/venuely/editor-bridge/internal/shared/clock"
	"github.com/venuely/editor-bridge/internal/shared/hash"
)

// Bridge synchronizes one host document with one sandboxed editor
// surface. All methods are safe for concurrent use.
type Bridge struct {
	cfg Config
	log *logging.Logger
	obs Observer
	clk clock.Clock

	mu      sync.Mutex
	state   State
	channel Channel
	boundAt time.Time

	// hostContent is the canonical value as the host knows it;
	// hostDigest is its digest, compared on the sandbox-to-host path.
	hostContent string
	hostDigest  hash.Digest

	// sandboxContent is the best knowledge of the live copy: the last
	// flushed sandbox value or the last replacement sent, whichever
	// is newer. Compared on the host-to-sandbox path.
	sandboxContent string
	sandboxDigest  hash.Digest

	// lastSelection is the selection the sandbox most recently
	// reported, cleared after each forced replacement.
	lastSelection *protocol.SelectionRange

	// queued holds the newest pre-ready SetValue. Latest wins.
	queued *string

	// pending is the staged sandbox content awaiting its quiet
	// period. debounceSeq invalidates stale timer fires.
	pending      *string
	pendingEdits int
	pendingSince time.Time
	debounce     *clock.Timer
	debounceSeq  uint64

	// window recognizes echoes of the last forwarded value.
	window    *suppressionWindow
	windowSeq uint64

	stats Stats
}

// suppressionWindow marks one forwarded value as echo-suspect until
// expiry. The timer clears it; expiresAt double-checks against a
// callback delayed behind the lock.
type suppressionWindow struct {
	digest    hash.Digest
	expiresAt time.Time
	timer     *clock.Timer
}

// New constructs a Bridge in the Uninitialized state. InitialContent
// is staged as if it had been queued by SetValue.
func New(cfg Config) *Bridge {
	cfg.withDefaults()

	b := &Bridge{
		cfg: cfg,
		log: cfg.Logger,
		obs: cfg.Metrics,
		clk: cfg.Clock,
	}

	initial := cfg.InitialContent
	if t := cfg.Transform; t != nil {
		initial = t(initial)
	}
	b.hostContent = initial
	b.hostDigest = hash.Content(initial)
	if cfg.InitialContent != "" {
		b.queued = &initial
	}
	return b
}

// Bind attaches the channel and begins initialization. The bridge
// installs itself as the receive handler; the sandbox is expected to
// report ready or error next.
func (b *Bridge) Bind(ch Channel) error {
	b.mu.Lock()
	switch b.state {
	case StateDisposed:
		b.mu.Unlock()
		return ErrDisposed
	case StateFailed:
		b.mu.Unlock()
		return ErrFailed
	}
	if b.channel != nil {
		b.mu.Unlock()
		return ErrAlreadyBound
	}
	b.channel = ch
	b.state = StateInitializing
	b.boundAt = b.clk.Now()
	b.mu.Unlock()

	ch.OnReceive(b.handleMessage)
	b.notifyState(StateUninitialized, StateInitializing)
	return nil
}

// Value returns the canonical content as the host knows it.
func (b *Bridge) Value() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hostContent
}

// State returns the current lifecycle state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stats returns a snapshot of the synchronization counters.
func (b *Bridge) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.stats
	s.State = b.state.String()
	s.PendingFlush = b.pending != nil
	s.SuppressionOpen = b.window != nil && b.clk.Now().Before(b.window.expiresAt)
	return s
}

// Dispose tears the bridge down: cancels both timers, detaches the
// receive handler, and drops all staged state, synchronously.
// Idempotent and callable from any state. Messages that were already
// in flight observe the Disposed state and become no-ops.
func (b *Bridge) Dispose() {
	b.mu.Lock()
	if b.state == StateDisposed {
		b.mu.Unlock()
		return
	}
	from := b.state
	b.state = StateDisposed
	b.cancelPendingLocked()
	b.closeWindowLocked()
	b.queued = nil
	b.lastSelection = nil
	ch := b.channel
	b.channel = nil
	b.mu.Unlock()

	if ch != nil {
		ch.OnReceive(nil)
	}
	b.notifyState(from, StateDisposed)
}

// handleMessage dispatches one inbound message. Installed as the
// channel's receive handler by Bind.
func (b *Bridge) handleMessage(msg protocol.Message) {
	switch msg.Type {
	case protocol.TypeReady:
		b.handleReady()
	case protocol.TypeChanged:
		if msg.Changed == nil {
			b.transportError("changed message without payload")
			return
		}
		b.handleChanged(msg.Changed)
	case protocol.TypeError:
		if msg.Error == nil {
			b.transportError("error message without payload")
			return
		}
		b.handleSandboxError(msg.Error)
	default:
		b.transportError("unexpected message type " + string(msg.Type))
	}
}

// handleReady transitions Initializing to Ready, exactly once, and
// delivers the queued value with a single replace.
func (b *Bridge) handleReady() {
	b.mu.Lock()
	if b.state != StateInitializing {
		state := b.state
		b.mu.Unlock()
		b.log.Debug("ready signal ignored", zap.String("state", state.String()))
		return
	}
	b.state = StateReady
	latency := b.clk.Since(b.boundAt)

	var out *protocol.Message
	if b.queued != nil {
		value := *b.queued
		b.queued = nil
		out = b.prepareReplaceLocked(value)
	}
	b.mu.Unlock()

	b.obs.RecordReadyLatency(latency)
	b.log.Info("sandbox ready", zap.Duration("latency", latency))
	b.notifyState(StateInitializing, StateReady)
	if out != nil {
		b.send(*out)
	}
}

// handleSandboxError handles a sandbox-reported failure. During
// initialization it is terminal and surfaced once; after readiness it
// is logged and counted.
func (b *Bridge) handleSandboxError(payload *protocol.ErrorPayload) {
	b.mu.Lock()
	switch b.state {
	case StateInitializing:
		b.state = StateFailed
		b.stats.SandboxErrors++
		b.cancelPendingLocked()
		b.closeWindowLocked()
		b.queued = nil
		onError := b.cfg.OnError
		b.mu.Unlock()

		b.log.Error("sandbox failed to initialize", zap.String("detail", payload.Detail))
		b.notifyState(StateInitializing, StateFailed)
		if onError != nil {
			onError(&InitError{Detail: payload.Detail})
		}

	case StateReady:
		b.stats.SandboxErrors++
		b.mu.Unlock()
		b.log.Warn("sandbox reported error", zap.String("detail", payload.Detail))

	default:
		b.mu.Unlock()
	}
}

// send dispatches one message unless the bridge was disposed in the
// meantime. Transport failures are dropped and logged: delivery is
// best-effort and a later update supersedes the lost one.
func (b *Bridge) send(msg protocol.Message) {
	b.mu.Lock()
	if b.state == StateDisposed || b.channel == nil {
		b.mu.Unlock()
		return
	}
	ch := b.channel
	b.mu.Unlock()

	if err := ch.Send(msg); err != nil {
		b.mu.Lock()
		b.stats.TransportErrors++
		b.mu.Unlock()
		b.obs.RecordTransportError()
		b.log.Warn("message dropped",
			zap.String("type", string(msg.Type)),
			zap.Error(err))
	}
}

func (b *Bridge) transportError(detail string) {
	b.mu.Lock()
	b.stats.TransportErrors++
	b.mu.Unlock()
	b.obs.RecordTransportError()
	b.log.Warn("transport error", zap.String("detail", detail))
}

func (b *Bridge) notifyState(from, to State) {
	b.obs.RecordStateChange(from.String(), to.String())
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(from, to)
	}
}

// cancelPendingLocked drops staged sandbox content and stops the
// debounce timer. Bumping the sequence invalidates a fire already
// waiting on the lock.
func (b *Bridge) cancelPendingLocked() {
	b.debounceSeq++
	if b.debounce != nil {
		b.debounce.Stop()
		b.debounce = nil
	}
	b.pending = nil
	b.pendingEdits = 0
}

// openWindowLocked replaces the suppression window with a fresh one
// for digest.
func (b *Bridge) openWindowLocked(digest hash.Digest) {
	b.closeWindowLocked()
	b.windowSeq++
	seq := b.windowSeq
	window := &suppressionWindow{
		digest:    digest,
		expiresAt: b.clk.Now().Add(b.cfg.SuppressionTTL),
	}
	window.timer = b.clk.AfterFunc(b.cfg.SuppressionTTL, func() {
		b.expireWindow(seq)
	})
	b.window = window
}

func (b *Bridge) closeWindowLocked() {
	if b.window == nil {
		return
	}
	if b.window.timer != nil {
		b.window.timer.Stop()
	}
	b.window = nil
}

func (b *Bridge) expireWindow(seq uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.windowSeq != seq || b.window == nil {
		return
	}
	b.window = nil
}

// windowMatchesLocked reports whether digest is an echo of the last
// forwarded value. The expiry check covers a timer fire still waiting
// on the lock.
func (b *Bridge) windowMatchesLocked(digest hash.Digest) bool {
	return b.window != nil &&
		b.window.digest == digest &&
		b.clk.Now().Before(b.window.expiresAt)
}
