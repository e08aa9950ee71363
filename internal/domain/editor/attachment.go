package editor

import (
	"sync"

	"github.com/venuely/editor-bridge/internal/bridge"
)

// Attachment is one live binding between a session and a sandbox
// surface. The transport layer holds it for the socket's lifetime and
// calls Close when the surface goes away.
type Attachment struct {
	ID        string
	SessionID string

	bridge *bridge.Bridge
	mgr    *Manager
	once   sync.Once
}

// Close disposes the bridge and returns the session to the detached
// state. Idempotent.
func (a *Attachment) Close() {
	a.once.Do(func() {
		a.bridge.Dispose()
		a.mgr.detach(a.SessionID, a.ID)
	})
}

// dispose tears down the bridge without touching the session record;
// used when the session itself is closing and already stripped it.
func (a *Attachment) dispose() {
	a.once.Do(func() {
		a.bridge.Dispose()
	})
}
