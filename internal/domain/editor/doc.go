// Package editor manages editor sessions: durable host-side documents
// that sandboxed surfaces attach to and detach from. A session owns
// the canonical content; each attachment gets a fresh sync bridge, so
// re-attaching replays the document into a clean surface. Detached
// sessions idle out and are eventually reaped.
package editor
