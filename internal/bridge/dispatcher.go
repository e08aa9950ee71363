package bridge

import (
	"go.uber.org/zap"

	"github.com/venuely/editor-bridge/internal/protocol"
	"github.com/venuely/editor-bridge/internal/selection"
	"github.com/venuely/editor-bridge/internal/shared/hash"
)

// SetValue makes value the canonical host content and propagates it to
// the sandbox when that is actually necessary: an echo of the last
// forwarded value and a value the live copy already holds are both
// deliberate no-ops. Before readiness the value is queued, latest
// wins. Returns ErrDisposed or ErrFailed in terminal states.
func (b *Bridge) SetValue(value string) error {
	b.mu.Lock()
	switch b.state {
	case StateDisposed:
		b.mu.Unlock()
		return ErrDisposed
	case StateFailed:
		b.mu.Unlock()
		return ErrFailed
	}

	if t := b.cfg.Transform; t != nil {
		value = t(value)
	}
	digest := hash.Content(value)
	b.hostContent = value
	b.hostDigest = digest

	if b.state != StateReady {
		queued := value
		b.queued = &queued
		b.mu.Unlock()
		return nil
	}

	if b.windowMatchesLocked(digest) {
		b.stats.SkippedSuppression++
		b.obs.RecordSkip(SkipSuppression)
		b.mu.Unlock()
		b.log.Debug("external update suppressed as echo", zap.String("digest", digest.Short()))
		return nil
	}

	if digest == b.sandboxDigest {
		b.stats.SkippedInSync++
		b.obs.RecordSkip(SkipInSync)
		b.mu.Unlock()
		b.log.Debug("external update already live in sandbox", zap.String("digest", digest.Short()))
		return nil
	}

	out := b.prepareReplaceLocked(value)
	b.mu.Unlock()

	b.send(*out)
	return nil
}

// prepareReplaceLocked builds the replace message for value and
// records its consequences: the live copy is assumed to adopt it, a
// fresh suppression window opens for it, and any staged sandbox
// content is dropped because the replacement supersedes the state it
// described.
func (b *Bridge) prepareReplaceLocked(value string) *protocol.Message {
	caret := b.adviseCaretLocked(value)

	b.cancelPendingLocked()
	b.lastSelection = nil
	b.sandboxContent = value
	b.sandboxDigest = hash.Content(value)
	b.openWindowLocked(b.sandboxDigest)
	b.stats.ReplacesSent++
	b.obs.RecordReplace()

	msg := protocol.NewReplace(value, caret)
	return &msg
}

// adviseCaretLocked maps the last reported sandbox selection onto the
// replacement content. Purely advisory: every failure is swallowed,
// counted, and reported as "no caret". No selection on record is not
// a failure; there is simply nothing to preserve.
func (b *Bridge) adviseCaretLocked(value string) int {
	if b.lastSelection == nil {
		return -1
	}

	// A staged edit is a fresher picture of the live copy than the
	// last flush, and the reported selection refers to it.
	base := b.sandboxContent
	if b.pending != nil {
		base = *b.pending
	}

	snap, err := selection.Capture(base, b.lastSelection.Start)
	if err == nil {
		var caret int
		caret, err = selection.Restore(snap, value)
		if err == nil {
			return caret
		}
	}

	b.stats.SelectionRestoreFailures++
	b.obs.RecordSelectionRestoreFailure()
	b.log.Debug("selection not restored", zap.Error(err))
	return -1
}
