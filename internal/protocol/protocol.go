package protocol

// Type tags a protocol message.
type Type string

const (
	// TypeReady signals the editor surface finished initializing.
	// Sandbox to host, no payload.
	TypeReady Type = "ready"

	// TypeChanged reports a mutation of the live copy. Sandbox to host.
	TypeChanged Type = "changed"

	// TypeError reports a sandbox-side failure. Sandbox to host.
	TypeError Type = "error"

	// TypeReplace forces the live copy to new content. Host to sandbox.
	TypeReplace Type = "replace"
)

// Known reports whether t is part of the closed message set.
func Known(t Type) bool {
	switch t {
	case TypeReady, TypeChanged, TypeError, TypeReplace:
		return true
	}
	return false
}

// SelectionRange is a half-open character range over the plain-text
// projection of the content, as reported by the editor surface.
type SelectionRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// ChangedPayload carries the full serialized content after an edit.
// Selection is advisory and may be absent.
type ChangedPayload struct {
	Content   string          `json:"content"`
	Selection *SelectionRange `json:"selection,omitempty"`
}

// ErrorPayload describes a sandbox-side failure.
type ErrorPayload struct {
	Detail string `json:"detail"`
}

// ReplacePayload carries content the live copy must adopt. Caret, when
// present, is the advisory cursor offset to restore after replacement.
type ReplacePayload struct {
	Content string `json:"content"`
	Caret   *int   `json:"caret,omitempty"`
}

// Message is one decoded protocol message. Exactly the payload field
// matching Type is non-nil; Ready carries no payload.
type Message struct {
	Type    Type
	Changed *ChangedPayload
	Error   *ErrorPayload
	Replace *ReplacePayload
}

// Ready builds a ready message.
func Ready() Message {
	return Message{Type: TypeReady}
}

// NewChanged builds a changed message. selection may be nil.
func NewChanged(content string, selection *SelectionRange) Message {
	return Message{
		Type:    TypeChanged,
		Changed: &ChangedPayload{Content: content, Selection: selection},
	}
}

// NewError builds an error message.
func NewError(detail string) Message {
	return Message{
		Type:  TypeError,
		Error: &ErrorPayload{Detail: detail},
	}
}

// NewReplace builds a replace message. caret < 0 means no advisory
// caret.
func NewReplace(content string, caret int) Message {
	payload := &ReplacePayload{Content: content}
	if caret >= 0 {
		payload.Caret = &caret
	}
	return Message{Type: TypeReplace, Replace: payload}
}
