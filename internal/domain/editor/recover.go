package editor

import (
	"go.uber.org/zap"
)

// RecoverDrafts rebuilds detached sessions from the draft journal at
// boot. Drafts for unknown profiles fall back to the default profile;
// corrupt drafts were already skipped by the journal.
func (m *Manager) RecoverDrafts() (int, error) {
	if m.journal == nil {
		return 0, nil
	}
	saved, err := m.journal.Recover()
	if err != nil {
		return 0, err
	}

	now := m.clk.Now()
	recovered := 0

	m.mu.Lock()
	for _, draft := range saved {
		if _, exists := m.sessions[draft.SessionID]; exists {
			continue
		}
		if len(m.sessions) >= m.opts.MaxSessions {
			m.log.Warn("session limit reached during recovery",
				zap.Int("limit", m.opts.MaxSessions))
			break
		}

		p, err := m.profiles.Get(draft.ProfileID)
		if err != nil {
			p = m.profiles.Default()
			m.log.Warn("draft names unknown profile",
				zap.String("session_id", draft.SessionID),
				zap.String("profile", draft.ProfileID),
				zap.String("fallback", p.ID))
		}

		rec := &record{
			Session: Session{
				ID:          draft.SessionID,
				ProfileID:   p.ID,
				Placeholder: p.Placeholder,
				Content:     draft.Content,
				State:       StateDetached,
				CreatedAt:   draft.SavedAt,
				UpdatedAt:   draft.SavedAt,
				// Recovered sessions get a fresh idle window; reaping
				// them on the timestamp they crashed with would close
				// exactly the documents recovery exists to keep.
				LastActivity: now,
			},
			sanitizer:   p.Sanitizer(),
			maxBytes:    p.MaxBytes(),
			debounce:    m.effectiveDebounce(p),
			suppression: m.effectiveSuppression(p),
		}
		m.sessions[rec.ID] = rec
		m.recovered++
		recovered++

		if m.metrics != nil {
			m.metrics.RecordSessionRecovered()
		}
	}
	m.mu.Unlock()

	if recovered > 0 {
		m.log.Info("sessions recovered from journal", zap.Int("count", recovered))
	}
	return recovered, nil
}
