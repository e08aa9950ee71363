package monitoring

import "time"

// SyncStats is the programmatic view served by GET /stats/sync:
// counter mirrors plus latency summaries over the rolling windows.
type SyncStats struct {
	SessionsOpen     int64            `json:"sessions_open"`
	Attachments      int64            `json:"attachments"`
	WSConnections    int64            `json:"ws_connections"`
	ChangesForwarded int64            `json:"changes_forwarded"`
	EditsCoalesced   int64            `json:"edits_coalesced"`
	ReplacesSent     int64            `json:"replaces_sent"`
	Skips            map[string]int64 `json:"skips"`
	RestoreFailures  int64            `json:"selection_restore_failures"`
	TransportErrors  int64            `json:"transport_errors"`
	SandboxFailures  int64            `json:"sandbox_failures"`
	FlushBurst       *WindowStats     `json:"flush_burst,omitempty"`
	ReadyLatency     *WindowStats     `json:"ready_latency,omitempty"`
	UptimeSeconds    float64          `json:"uptime_seconds"`
}

// SyncSnapshot assembles the current synchronization statistics. The
// skip map is copied so callers may hold the result past the next
// recorded event.
func (m *Metrics) SyncSnapshot() SyncStats {
	m.mu.RLock()
	s := SyncStats{
		SessionsOpen:     m.snapshot.SessionsOpen,
		Attachments:      m.snapshot.Attachments,
		WSConnections:    m.snapshot.WSConnections,
		ChangesForwarded: m.snapshot.ChangesForwarded,
		EditsCoalesced:   m.snapshot.EditsCoalesced,
		ReplacesSent:     m.snapshot.ReplacesSent,
		Skips:            make(map[string]int64, len(m.snapshot.Skips)),
		RestoreFailures:  m.snapshot.RestoreFailures,
		TransportErrors:  m.snapshot.TransportErrors,
		SandboxFailures:  m.snapshot.SandboxFailures,
	}
	for reason, n := range m.snapshot.Skips {
		s.Skips[reason] = n
	}
	m.mu.RUnlock()

	s.FlushBurst = m.flushWindow.Stats()
	s.ReadyLatency = m.readyWindow.Stats()
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
