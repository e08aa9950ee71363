package bridge

import (
	"go.uber.org/zap"

	"github.com/venuely/editor-bridge/internal/protocol"
	"github.com/venuely/editor-bridge/internal/shared/hash"
)

// handleChanged stages a sandbox edit and restarts the quiet-period
// timer. Only the newest staged value survives; the flush decides
// whether the host hears about it.
func (b *Bridge) handleChanged(payload *protocol.ChangedPayload) {
	b.mu.Lock()
	if b.state != StateReady {
		state := b.state
		b.mu.Unlock()
		b.log.Debug("change ignored outside ready state", zap.String("state", state.String()))
		return
	}

	b.lastSelection = payload.Selection
	content := payload.Content
	b.pending = &content
	b.pendingEdits++
	if b.pendingEdits == 1 {
		b.pendingSince = b.clk.Now()
	}

	// One timer, restarted per edit, never stacked. A previous fire
	// blocked on the lock sees a stale sequence and gives up.
	b.debounceSeq++
	seq := b.debounceSeq
	if b.debounce != nil {
		b.debounce.Stop()
	}
	b.debounce = b.clk.AfterFunc(b.cfg.DebounceInterval, func() {
		b.flushPending(seq)
	})
	b.mu.Unlock()
}

// flushPending forwards the staged sandbox content to the host after
// an uninterrupted quiet period.
func (b *Bridge) flushPending(seq uint64) {
	b.mu.Lock()
	if seq != b.debounceSeq || b.state != StateReady || b.pending == nil {
		b.mu.Unlock()
		return
	}

	content := *b.pending
	b.pending = nil
	b.debounce = nil
	edits := b.pendingEdits
	b.pendingEdits = 0
	burst := b.clk.Since(b.pendingSince)

	// The live copy is whatever the sandbox last said, before any
	// host-side normalization.
	b.sandboxContent = content
	b.sandboxDigest = hash.Content(content)

	forward := content
	if t := b.cfg.Transform; t != nil {
		forward = t(forward)
	}
	digest := hash.Content(forward)

	if digest == b.hostDigest {
		b.stats.SkippedInSync++
		b.obs.RecordSkip(SkipInSync)
		b.mu.Unlock()
		b.log.Debug("sandbox change already held by host", zap.String("digest", digest.Short()))
		return
	}

	b.hostContent = forward
	b.hostDigest = digest
	b.openWindowLocked(digest)
	b.stats.ChangesForwarded++
	b.stats.EditsCoalesced += uint64(edits)
	b.obs.RecordChangeForwarded(edits, burst)
	onChange := b.cfg.OnChange
	b.mu.Unlock()

	b.log.Debug("change forwarded to host",
		zap.Int("coalesced", edits),
		zap.String("digest", digest.Short()))
	if onChange != nil {
		onChange(forward)
	}
}
