package editor

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/venuely/editor-bridge/internal/bridge"
	"github.com/venuely/editor-bridge/internal/drafts"
	"github.com/venuely/editor-bridge/internal/infrastructure/logging"
	"github.com/venuely/editor-bridge/internal/infrastructure/monitoring"
	"github.com/venuely/editor-bridge/internal/profile"
	"github.com/venuely/editor-bridge/internal/sanitize"
	"github.com/venuely/editor-bridge/internal/shared/clock"
	"github.com/venuely/editor-bridge/internal/shared/id"
)

var (
	// ErrNotFound marks a lookup for an unknown session.
	ErrNotFound = errors.New("editor: session not found")

	// ErrClosed marks an operation on a closed session.
	ErrClosed = errors.New("editor: session closed")

	// ErrAttachmentConflict marks an attach while another surface is
	// already bound.
	ErrAttachmentConflict = errors.New("editor: session already attached")

	// ErrContentTooLarge marks content over the profile's size limit.
	ErrContentTooLarge = errors.New("editor: content too large")

	// ErrSessionLimit marks creation beyond the configured capacity.
	ErrSessionLimit = errors.New("editor: session limit reached")
)

// Options tunes the manager. Zero timing values fall back to the
// defaults below; negative IdleTTL or ClosedRetention disables that
// sweep.
type Options struct {
	// DebounceInterval and SuppressionTTL seed each attachment's
	// bridge when the session profile does not override them.
	DebounceInterval time.Duration
	SuppressionTTL   time.Duration

	// IdleTTL closes detached sessions with no activity for this long.
	IdleTTL time.Duration

	// ClosedRetention evicts closed session records after this long.
	ClosedRetention time.Duration

	ReapInterval time.Duration
	MaxSessions  int
}

func (o Options) withDefaults() Options {
	if o.IdleTTL == 0 {
		o.IdleTTL = 30 * time.Minute
	}
	if o.ClosedRetention == 0 {
		o.ClosedRetention = 5 * time.Minute
	}
	if o.ReapInterval <= 0 {
		o.ReapInterval = time.Minute
	}
	if o.MaxSessions <= 0 {
		o.MaxSessions = 1024
	}
	return o
}

// CreateParams describes a new session.
type CreateParams struct {
	ProfileID      string
	InitialContent string
	Placeholder    string
}

// record is the manager's internal session state: the exported
// Session plus runtime references that never leave the lock.
type record struct {
	Session

	att         *Attachment
	sanitizer   *sanitize.Sanitizer
	maxBytes    int
	debounce    time.Duration
	suppression time.Duration
}

// Manager owns every editor session. All reads return copies.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*record

	opts     Options
	profiles *profile.Registry
	journal  *drafts.Journal
	clk      clock.Clock
	log      *logging.Logger
	metrics  *monitoring.Metrics

	created   uint64
	recovered uint64
	reaped    uint64
}

// NewManager builds a session manager. journal may be nil to run
// without crash recovery.
func NewManager(opts Options, profiles *profile.Registry, journal *drafts.Journal, clk clock.Clock, log *logging.Logger) *Manager {
	if clk == nil {
		clk = clock.Real()
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &Manager{
		sessions: make(map[string]*record),
		opts:     opts.withDefaults(),
		profiles: profiles,
		journal:  journal,
		clk:      clk,
		log:      log.Named("editor"),
	}
}

// WithMetrics adds metrics tracking to the manager.
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// Create registers a new detached session.
func (m *Manager) Create(params CreateParams) (*Session, error) {
	var p *profile.Profile
	if params.ProfileID == "" {
		p = m.profiles.Default()
	} else {
		var err error
		if p, err = m.profiles.Get(params.ProfileID); err != nil {
			return nil, err
		}
	}

	san := p.Sanitizer()
	content := san.Sanitize(params.InitialContent)
	if len(content) > p.MaxBytes() {
		return nil, fmt.Errorf("%w: %d bytes over the %d byte limit",
			ErrContentTooLarge, len(content), p.MaxBytes())
	}

	placeholder := params.Placeholder
	if placeholder == "" {
		placeholder = p.Placeholder
	}

	now := m.clk.Now()
	rec := &record{
		Session: Session{
			ID:           id.NewEditorID().String(),
			ProfileID:    p.ID,
			Placeholder:  placeholder,
			Content:      content,
			State:        StateDetached,
			CreatedAt:    now,
			UpdatedAt:    now,
			LastActivity: now,
		},
		sanitizer:   san,
		maxBytes:    p.MaxBytes(),
		debounce:    m.effectiveDebounce(p),
		suppression: m.effectiveSuppression(p),
	}

	m.mu.Lock()
	if len(m.sessions) >= m.opts.MaxSessions {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %d", ErrSessionLimit, m.opts.MaxSessions)
	}
	m.sessions[rec.ID] = rec
	m.created++
	m.mu.Unlock()

	m.saveDraft(rec.ID, rec.ProfileID, content)
	if m.metrics != nil {
		m.metrics.RecordSessionCreated()
	}
	m.log.Info("session created",
		zap.String("session_id", rec.ID),
		zap.String("profile", p.ID))

	s := m.snapshot(rec)
	return &s, nil
}

// Get returns a copy of one session, with live sync stats while
// attached.
func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	rec, ok := m.sessions[sessionID]
	if !ok {
		m.mu.RUnlock()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	s := m.snapshot(rec)
	m.mu.RUnlock()
	return &s, nil
}

// List returns all sessions, optionally filtered by state, sorted by
// creation (IDs are ULIDs, so lexicographic order is creation order).
func (m *Manager) List(state *AttachState) []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, rec := range m.sessions {
		if state != nil && rec.State != *state {
			continue
		}
		s := m.snapshot(rec)
		out = append(out, &s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetContent replaces the canonical content from the host side and
// forwards it to the attached surface, if any.
func (m *Manager) SetContent(sessionID, content string) (*Session, error) {
	m.mu.Lock()
	rec, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	if rec.State == StateClosed {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrClosed, sessionID)
	}

	clean := rec.sanitizer.Sanitize(content)
	if len(clean) > rec.maxBytes {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %d bytes over the %d byte limit",
			ErrContentTooLarge, len(clean), rec.maxBytes)
	}

	now := m.clk.Now()
	rec.Content = clean
	rec.UpdatedAt = now
	rec.LastActivity = now
	rec.Writes++
	att := rec.att
	s := m.snapshot(rec)
	m.mu.Unlock()

	m.saveDraft(sessionID, s.ProfileID, clean)
	if att != nil {
		if err := att.bridge.SetValue(clean); err != nil {
			m.log.Debug("forward to surface skipped",
				zap.String("session_id", sessionID),
				zap.Error(err))
		}
	}
	return &s, nil
}

// Attach binds a sandbox surface to the session over ch, building a
// fresh bridge seeded with the canonical content. One surface at a
// time; re-attach after detach starts a clean ready cycle.
func (m *Manager) Attach(sessionID string, ch bridge.Channel) (*Attachment, error) {
	m.mu.Lock()
	rec, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	switch rec.State {
	case StateClosed:
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrClosed, sessionID)
	case StateAttached:
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s held by %s", ErrAttachmentConflict, sessionID, rec.AttachmentID)
	}

	att := &Attachment{
		ID:        id.NewAttachmentID().String(),
		SessionID: sessionID,
		mgr:       m,
	}
	cfg := bridge.Config{
		InitialContent:   rec.Content,
		DebounceInterval: rec.debounce,
		SuppressionTTL:   rec.suppression,
		Transform:        rec.sanitizer.Sanitize,
		Logger:           m.log.Named(sessionID),
		Clock:            m.clk,
		OnChange: func(content string) {
			m.applyChange(sessionID, att.ID, content)
		},
		OnError: func(err error) {
			m.surfaceFailed(sessionID, att.ID, err)
		},
	}
	if m.metrics != nil {
		cfg.Metrics = m.metrics
	}

	// Built and bound under the lock so the record never holds an
	// attachment whose bridge is not yet live. Bind does not block.
	att.bridge = bridge.New(cfg)
	if err := att.bridge.Bind(ch); err != nil {
		m.mu.Unlock()
		return nil, err
	}

	now := m.clk.Now()
	rec.att = att
	rec.State = StateAttached
	rec.AttachmentID = att.ID
	rec.AttachedAt = &now
	rec.LastActivity = now
	rec.Attaches++
	rec.Sync = nil
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordAttach()
	}
	m.log.Info("surface attached",
		zap.String("session_id", sessionID),
		zap.String("attachment_id", att.ID))
	return att, nil
}

// Close ends a session: the attachment, if any, is disposed and the
// draft removed. The record stays readable until retention evicts it.
func (m *Manager) Close(sessionID string) error {
	m.mu.Lock()
	rec, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	if rec.State == StateClosed {
		m.mu.Unlock()
		return nil
	}
	att := rec.att
	m.closeLocked(rec)
	m.mu.Unlock()

	if att != nil {
		att.dispose()
	}
	if m.journal != nil {
		if err := m.journal.Delete(sessionID); err != nil {
			m.log.Warn("draft delete failed", zap.String("session_id", sessionID), zap.Error(err))
		}
	}
	if m.metrics != nil {
		if att != nil {
			m.metrics.RecordDetach()
		}
		m.metrics.RecordSessionClosed("api")
	}
	m.log.Info("session closed", zap.String("session_id", sessionID))
	return nil
}

// closeLocked marks a record closed and strips the attachment. The
// bridge is disposed by the caller outside the lock.
func (m *Manager) closeLocked(rec *record) {
	if rec.att != nil {
		rec.Sync = statsCopy(rec.att.bridge)
		rec.att = nil
	}
	rec.State = StateClosed
	rec.AttachmentID = ""
	rec.AttachedAt = nil
	rec.LastActivity = m.clk.Now()
}

// Shutdown disposes every live attachment. Session state is already
// journaled; the next boot recovers it.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	var atts []*Attachment
	for _, rec := range m.sessions {
		if rec.att != nil {
			atts = append(atts, rec.att)
		}
	}
	m.mu.Unlock()

	for _, att := range atts {
		att.Close()
	}
	m.log.Info("manager shut down", zap.Int("attachments_closed", len(atts)))
}

// Stats summarizes the session population.
func (m *Manager) Stats() ManagerStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := ManagerStats{
		Total:          len(m.sessions),
		CreatedTotal:   m.created,
		RecoveredTotal: m.recovered,
		ReapedTotal:    m.reaped,
	}
	for _, rec := range m.sessions {
		switch rec.State {
		case StateAttached:
			stats.Attached++
		case StateDetached:
			stats.Detached++
		case StateClosed:
			stats.Closed++
		}
	}
	return stats
}

// applyChange lands a consolidated sandbox edit on the canonical
// content. Stale attachments (already superseded) are ignored.
func (m *Manager) applyChange(sessionID, attachmentID, content string) {
	m.mu.Lock()
	rec, ok := m.sessions[sessionID]
	if !ok || rec.att == nil || rec.att.ID != attachmentID {
		m.mu.Unlock()
		return
	}
	now := m.clk.Now()
	rec.Content = content
	rec.UpdatedAt = now
	rec.LastActivity = now
	rec.Changes++
	profileID := rec.ProfileID
	m.mu.Unlock()

	m.saveDraft(sessionID, profileID, content)
}

// surfaceFailed handles a sandbox that died during initialization.
// The attachment is dropped so the surface can try again.
func (m *Manager) surfaceFailed(sessionID, attachmentID string, err error) {
	m.log.Error("surface failed to initialize",
		zap.String("session_id", sessionID),
		zap.String("attachment_id", attachmentID),
		zap.Error(err))

	m.mu.Lock()
	rec, ok := m.sessions[sessionID]
	if !ok || rec.att == nil || rec.att.ID != attachmentID {
		m.mu.Unlock()
		return
	}
	att := rec.att
	m.mu.Unlock()

	att.Close()
}

// detach returns a session to the detached state. Called from
// Attachment.Close; the bridge is already disposed.
func (m *Manager) detach(sessionID, attachmentID string) {
	m.mu.Lock()
	rec, ok := m.sessions[sessionID]
	if !ok || rec.att == nil || rec.att.ID != attachmentID {
		m.mu.Unlock()
		return
	}
	rec.Sync = statsCopy(rec.att.bridge)
	rec.att = nil
	rec.State = StateDetached
	rec.AttachmentID = ""
	rec.AttachedAt = nil
	rec.LastActivity = m.clk.Now()
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordDetach()
	}
	m.log.Info("surface detached",
		zap.String("session_id", sessionID),
		zap.String("attachment_id", attachmentID))
}

// snapshot copies a record's exported state. Callers hold at least a
// read lock.
func (m *Manager) snapshot(rec *record) Session {
	s := rec.Session
	if rec.att != nil {
		s.Sync = statsCopy(rec.att.bridge)
	} else if rec.Session.Sync != nil {
		v := *rec.Session.Sync
		s.Sync = &v
	}
	return s
}

func (m *Manager) saveDraft(sessionID, profileID, content string) {
	if m.journal == nil {
		return
	}
	if err := m.journal.Save(sessionID, profileID, content); err != nil {
		m.log.Warn("draft save failed", zap.String("session_id", sessionID), zap.Error(err))
		if m.metrics != nil {
			m.metrics.RecordDraftError()
		}
		return
	}
	if m.metrics != nil {
		m.metrics.RecordDraftSaved()
	}
}

func (m *Manager) effectiveDebounce(p *profile.Profile) time.Duration {
	if p.DebounceInterval > 0 {
		return p.DebounceInterval
	}
	return m.opts.DebounceInterval
}

func (m *Manager) effectiveSuppression(p *profile.Profile) time.Duration {
	if p.SuppressionTTL > 0 {
		return p.SuppressionTTL
	}
	return m.opts.SuppressionTTL
}

func statsCopy(b *bridge.Bridge) *bridge.Stats {
	if b == nil {
		return nil
	}
	v := b.Stats()
	return &v
}
