// Package id provides centralized ID generation for the bridge service.
//
// IDs are prefixed ULIDs: lexicographically sortable, unique without
// coordination, and readable in logs (ed_*, att_*, req_*). Separate
// string types keep an editor ID from being passed where an attachment
// ID belongs.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// EditorID identifies an editor session.
type EditorID string

// AttachmentID identifies one sandbox attachment to a session.
type AttachmentID string

// RequestID identifies an API request.
type RequestID string

const (
	EditorPrefix     = "ed"
	AttachmentPrefix = "att"
	RequestPrefix    = "req"
)

// Generator generates ULIDs with optional prefixes.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator with cryptographically secure entropy.
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy
// source, for deterministic tests.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID.
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string.
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewEditorID generates a new editor session ID.
func NewEditorID() EditorID {
	return EditorID(Default().GenerateWithPrefix(EditorPrefix))
}

// NewAttachmentID generates a new attachment ID.
func NewAttachmentID() AttachmentID {
	return AttachmentID(Default().GenerateWithPrefix(AttachmentPrefix))
}

// NewRequestID generates a new request ID.
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

func (id EditorID) String() string     { return string(id) }
func (id AttachmentID) String() string { return string(id) }
func (id RequestID) String() string    { return string(id) }

// Parse splits a prefixed ID into its prefix and ULID.
func Parse(id string) (prefix string, u ulid.ULID, err error) {
	prefix, raw, found := strings.Cut(id, "_")
	if !found {
		return "", ulid.ULID{}, fmt.Errorf("id %q has no prefix", id)
	}
	u, err = ulid.Parse(raw)
	if err != nil {
		return "", ulid.ULID{}, fmt.Errorf("id %q: %w", id, err)
	}
	return prefix, u, nil
}

// IsValid checks that id is a prefixed ULID with the given prefix.
func IsValid(id, prefix string) bool {
	got, _, err := Parse(id)
	return err == nil && got == prefix
}

// Timestamp extracts the creation time encoded in a prefixed ID.
func Timestamp(id string) (time.Time, error) {
	_, u, err := Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(u.Time()), nil
}
