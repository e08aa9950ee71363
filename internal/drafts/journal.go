// Package drafts persists session content between flushes so a crash
// or restart does not lose the latest agreed document. One compressed
// draft file per session; the journal is read back at boot.
package drafts

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/venuely/editor-bridge/internal/infrastructure/logging"
	"github.com/venuely/editor-bridge/internal/infrastructure/resilience"
	"github.com/venuely/editor-bridge/internal/shared/clock"
	"github.com/venuely/editor-bridge/internal/shared/hash"
)

const draftExt = ".draft.gz"

var (
	// ErrNotFound marks a missing draft.
	ErrNotFound = errors.New("drafts: not found")

	// ErrCorrupt marks a draft whose payload fails verification.
	ErrCorrupt = errors.New("drafts: corrupt")
)

// Draft is one journaled document snapshot.
type Draft struct {
	SessionID string    `json:"session_id"`
	ProfileID string    `json:"profile_id"`
	Content   string    `json:"content"`
	Digest    string    `json:"digest"`
	SavedAt   time.Time `json:"saved_at"`
}

// Journal stores drafts under one directory, a file per session.
// Writes go through a temp file and rename; readers never observe a
// half-written draft. A circuit breaker guards the disk write: when
// writes fail persistently the journal sheds them immediately instead
// of paying a failing syscall sequence per flush, and probes the disk
// again after a cooldown.
type Journal struct {
	dir     string
	clk     clock.Clock
	log     *logging.Logger
	breaker *resilience.Breaker
}

// NewJournal opens (creating if needed) the journal directory.
func NewJournal(dir string, clk clock.Clock, log *logging.Logger) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("drafts: open journal %s: %w", dir, err)
	}
	if clk == nil {
		clk = clock.Real()
	}
	if log == nil {
		log = logging.NewNop()
	}

	j := &Journal{dir: dir, clk: clk, log: log.Named("drafts")}
	j.breaker = resilience.New("draft-journal", resilience.Settings{
		Clock:   clk,
		Timeout: 10 * time.Second,
		ReadyToTrip: func(c resilience.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
		OnStateChange: func(_ string, from, to resilience.State) {
			j.log.Warn("journal breaker transition",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return j, nil
}

// Save journals the current content for a session, replacing any
// previous draft. While the breaker is open the write is not attempted
// and the error unwraps to resilience.ErrCircuitOpen.
func (j *Journal) Save(sessionID, profileID, content string) error {
	if err := checkID(sessionID); err != nil {
		return err
	}

	draft := Draft{
		SessionID: sessionID,
		ProfileID: profileID,
		Content:   content,
		Digest:    hash.Content(content).String(),
		SavedAt:   j.clk.Now().UTC(),
	}
	payload, err := sonic.Marshal(&draft)
	if err != nil {
		return fmt.Errorf("drafts: encode %s: %w", sessionID, err)
	}

	err = j.breaker.Do(func() error {
		return j.write(sessionID, payload)
	})
	if err != nil {
		return fmt.Errorf("drafts: save %s: %w", sessionID, err)
	}
	return nil
}

func (j *Journal) write(sessionID string, payload []byte) error {
	tmp, err := os.CreateTemp(j.dir, ".draft-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	zw := gzip.NewWriter(tmp)
	if _, err := zw.Write(payload); err != nil {
		tmp.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), j.path(sessionID))
}

// Load reads one draft back, verifying the recorded content digest.
func (j *Journal) Load(sessionID string) (*Draft, error) {
	if err := checkID(sessionID); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(j.path(sessionID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("drafts: load %s: %w", sessionID, err)
	}
	return j.decode(sessionID, data)
}

// Delete removes a session's draft. Missing drafts are not an error;
// a clean close after a flushless session has nothing to remove.
func (j *Journal) Delete(sessionID string) error {
	if err := checkID(sessionID); err != nil {
		return err
	}
	err := os.Remove(j.path(sessionID))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("drafts: delete %s: %w", sessionID, err)
	}
	return nil
}

// Recover loads every readable draft in the journal, sorted by
// session ID. Corrupt entries are logged and skipped so one bad file
// cannot block recovery of the rest.
func (j *Journal) Recover() ([]*Draft, error) {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		return nil, fmt.Errorf("drafts: recover: %w", err)
	}

	var out []*Draft
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, draftExt) {
			continue
		}
		sessionID := strings.TrimSuffix(name, draftExt)
		draft, err := j.Load(sessionID)
		if err != nil {
			j.log.Warn("draft skipped during recovery",
				zap.String("session_id", sessionID),
				zap.Error(err))
			continue
		}
		out = append(out, draft)
	}

	sort.Slice(out, func(i, k int) bool { return out[i].SessionID < out[k].SessionID })
	return out, nil
}

func (j *Journal) decode(sessionID string, data []byte) (*Draft, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, sessionID, err)
	}
	payload, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, sessionID, err)
	}
	if err := zr.Close(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, sessionID, err)
	}

	var draft Draft
	if err := sonic.Unmarshal(payload, &draft); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, sessionID, err)
	}
	if draft.SessionID != sessionID {
		return nil, fmt.Errorf("%w: %s: draft names session %s", ErrCorrupt, sessionID, draft.SessionID)
	}
	if hash.Content(draft.Content).String() != draft.Digest {
		return nil, fmt.Errorf("%w: %s: digest mismatch", ErrCorrupt, sessionID)
	}
	return &draft, nil
}

func (j *Journal) path(sessionID string) string {
	return filepath.Join(j.dir, sessionID+draftExt)
}

func checkID(sessionID string) error {
	if sessionID == "" || strings.ContainsAny(sessionID, `/\`) || strings.Contains(sessionID, "..") {
		return fmt.Errorf("drafts: unsafe session id %q", sessionID)
	}
	return nil
}
