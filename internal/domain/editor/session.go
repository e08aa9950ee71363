package editor

import (
	"time"

	"github.com/venuely/editor-bridge/internal/bridge"
)

// AttachState describes whether a sandbox surface is currently bound
// to the session.
type AttachState string

const (
	StateDetached AttachState = "detached"
	StateAttached AttachState = "attached"
	StateClosed   AttachState = "closed"
)

// Valid reports whether s names a known attachment state.
func (s AttachState) Valid() bool {
	switch s {
	case StateDetached, StateAttached, StateClosed:
		return true
	}
	return false
}

// Session is one durable editor document. Content is canonical and
// sanitized; it survives detach and is replayed into the next
// attachment.
type Session struct {
	ID           string      `json:"id"`
	ProfileID    string      `json:"profile_id"`
	Placeholder  string      `json:"placeholder,omitempty"`
	Content      string      `json:"content"`
	State        AttachState `json:"state"`
	AttachmentID string      `json:"attachment_id,omitempty"`

	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastActivity time.Time  `json:"last_activity"`
	AttachedAt   *time.Time `json:"attached_at,omitempty"`

	// Attaches counts sandbox bindings over the session's life;
	// Changes counts sandbox edits applied to the canonical content;
	// Writes counts host-side content replacements.
	Attaches uint64 `json:"attaches"`
	Changes  uint64 `json:"changes"`
	Writes   uint64 `json:"writes"`

	// Sync is the live bridge snapshot while attached, or the final
	// snapshot of the last attachment.
	Sync *bridge.Stats `json:"sync,omitempty"`
}

// ManagerStats summarizes the session population.
type ManagerStats struct {
	Total    int `json:"total"`
	Attached int `json:"attached"`
	Detached int `json:"detached"`
	Closed   int `json:"closed"`

	CreatedTotal   uint64 `json:"created_total"`
	RecoveredTotal uint64 `json:"recovered_total"`
	ReapedTotal    uint64 `json:"reaped_total"`
}
