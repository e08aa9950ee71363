package editor

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Run drives the idle sweep until ctx is cancelled. Call from its own
// goroutine.
func (m *Manager) Run(ctx context.Context) {
	ticker := m.clk.NewTicker(m.opts.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.reap(m.clk.Now())
		}
	}
}

// reap closes detached sessions idle past IdleTTL and evicts closed
// records past ClosedRetention. Attached sessions are never touched;
// a live surface is activity by definition.
func (m *Manager) reap(now time.Time) {
	var closedIDs []string
	evicted := 0

	m.mu.Lock()
	for sid, rec := range m.sessions {
		switch rec.State {
		case StateDetached:
			if m.opts.IdleTTL > 0 && now.Sub(rec.LastActivity) >= m.opts.IdleTTL {
				m.closeLocked(rec)
				m.reaped++
				closedIDs = append(closedIDs, sid)
			}
		case StateClosed:
			if m.opts.ClosedRetention > 0 && now.Sub(rec.LastActivity) >= m.opts.ClosedRetention {
				delete(m.sessions, sid)
				evicted++
			}
		}
	}
	m.mu.Unlock()

	for _, sid := range closedIDs {
		if m.journal != nil {
			if err := m.journal.Delete(sid); err != nil {
				m.log.Warn("draft delete failed", zap.String("session_id", sid), zap.Error(err))
			}
		}
		if m.metrics != nil {
			m.metrics.RecordSessionClosed("idle")
		}
	}
	if len(closedIDs) > 0 || evicted > 0 {
		m.log.Info("reap pass",
			zap.Int("closed_idle", len(closedIDs)),
			zap.Int("evicted", evicted))
	}
}
