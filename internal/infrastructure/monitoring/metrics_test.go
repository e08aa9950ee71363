package monitoring

import (
	"math"
	"sync"
	"testing"
	"time"
)

// promauto registers into the process-wide default registry, so the
// whole test binary shares one collector.
var (
	shared     *Metrics
	sharedOnce sync.Once
)

func sharedMetrics() *Metrics {
	sharedOnce.Do(func() { shared = NewMetrics() })
	return shared
}

func TestSampleWindow(t *testing.T) {
	t.Run("empty window has no stats", func(t *testing.T) {
		if got := newSampleWindow(8).Stats(); got != nil {
			t.Fatalf("Stats() = %+v, want nil", got)
		}
	})

	t.Run("single sample", func(t *testing.T) {
		w := newSampleWindow(8)
		w.Observe(120)

		got := w.Stats()
		if got == nil {
			t.Fatal("Stats() = nil, want stats")
		}
		if got.Count != 1 || got.Mean != 120 || got.P50 != 120 || got.Max != 120 {
			t.Errorf("stats = %+v, want count 1, mean/p50/max 120", got)
		}
		if got.Stddev != 0 {
			t.Errorf("Stddev = %v, want 0 for a single sample", got.Stddev)
		}
	})

	t.Run("known distribution", func(t *testing.T) {
		w := newSampleWindow(256)
		for i := 1; i <= 100; i++ {
			w.Observe(float64(i))
		}

		got := w.Stats()
		if got.Count != 100 {
			t.Fatalf("Count = %d, want 100", got.Count)
		}
		if got.Mean != 50.5 {
			t.Errorf("Mean = %v, want 50.5", got.Mean)
		}
		if got.P50 != 50 || got.P90 != 90 || got.P99 != 99 {
			t.Errorf("quantiles = p50 %v p90 %v p99 %v, want 50/90/99", got.P50, got.P90, got.P99)
		}
		if got.Max != 100 {
			t.Errorf("Max = %v, want 100", got.Max)
		}
		if math.Abs(got.Stddev-29.01149) > 0.001 {
			t.Errorf("Stddev = %v, want ~29.01149", got.Stddev)
		}
	})

	t.Run("ring keeps only the newest samples", func(t *testing.T) {
		w := newSampleWindow(4)
		for i := 1; i <= 6; i++ {
			w.Observe(float64(i))
		}

		got := w.Stats()
		if got.Count != 4 {
			t.Fatalf("Count = %d, want 4 after wrap", got.Count)
		}
		if got.Mean != 4.5 || got.Max != 6 {
			t.Errorf("Mean = %v, Max = %v, want 4.5 and 6", got.Mean, got.Max)
		}
	})
}

func TestMetrics(t *testing.T) {
	m := sharedMetrics()

	t.Run("session lifecycle drives the open gauge", func(t *testing.T) {
		m.RecordSessionCreated()
		m.RecordSessionCreated()
		m.RecordSessionRecovered()
		m.RecordSessionClosed("api")

		if got := m.SyncSnapshot().SessionsOpen; got != 2 {
			t.Errorf("SessionsOpen = %d, want 2", got)
		}
	})

	t.Run("attachments", func(t *testing.T) {
		m.RecordAttach()
		m.RecordAttach()
		m.RecordDetach()

		if got := m.SyncSnapshot().Attachments; got != 1 {
			t.Errorf("Attachments = %d, want 1", got)
		}
	})

	t.Run("sync counters mirror into the snapshot", func(t *testing.T) {
		m.RecordChangeForwarded(3, 450*time.Millisecond)
		m.RecordReplace()
		m.RecordSkip("in_sync")
		m.RecordSkip("in_sync")
		m.RecordSkip("suppression")
		m.RecordSelectionRestoreFailure()
		m.RecordTransportError()

		s := m.SyncSnapshot()
		if s.ChangesForwarded != 1 || s.EditsCoalesced != 3 {
			t.Errorf("forwarded = %d coalesced = %d, want 1 and 3", s.ChangesForwarded, s.EditsCoalesced)
		}
		if s.ReplacesSent != 1 {
			t.Errorf("ReplacesSent = %d, want 1", s.ReplacesSent)
		}
		if s.Skips["in_sync"] != 2 || s.Skips["suppression"] != 1 {
			t.Errorf("Skips = %v, want in_sync 2, suppression 1", s.Skips)
		}
		if s.RestoreFailures != 1 || s.TransportErrors != 1 {
			t.Errorf("restore = %d transport = %d, want 1 and 1", s.RestoreFailures, s.TransportErrors)
		}
		if s.FlushBurst == nil || s.FlushBurst.Count != 1 || s.FlushBurst.Mean != 450 {
			t.Errorf("FlushBurst = %+v, want 1 sample of 450ms", s.FlushBurst)
		}
	})

	t.Run("only transitions into failed count as sandbox failures", func(t *testing.T) {
		m.RecordStateChange("uninitialized", "initializing")
		m.RecordStateChange("initializing", "failed")
		m.RecordStateChange("ready", "disposed")

		if got := m.SyncSnapshot().SandboxFailures; got != 1 {
			t.Errorf("SandboxFailures = %d, want 1", got)
		}
	})

	t.Run("ready latency feeds the rolling window", func(t *testing.T) {
		m.RecordReadyLatency(80 * time.Millisecond)
		m.RecordReadyLatency(120 * time.Millisecond)

		got := m.SyncSnapshot().ReadyLatency
		if got == nil || got.Count != 2 {
			t.Fatalf("ReadyLatency = %+v, want 2 samples", got)
		}
		if got.Mean != 100 || got.P50 != 80 || got.Max != 120 {
			t.Errorf("ReadyLatency = %+v, want mean 100, p50 80, max 120", got)
		}
	})

	t.Run("ws connections", func(t *testing.T) {
		m.IncWSConnections()
		m.IncWSConnections()
		m.DecWSConnections()

		if got := m.SyncSnapshot().WSConnections; got != 1 {
			t.Errorf("WSConnections = %d, want 1", got)
		}
	})

	t.Run("snapshot skip map is a copy", func(t *testing.T) {
		s := m.SyncSnapshot()
		s.Skips["in_sync"] = 999

		if got := m.SyncSnapshot().Skips["in_sync"]; got == 999 {
			t.Error("mutating a snapshot leaked into the collector")
		}
	})

	t.Run("uptime is populated", func(t *testing.T) {
		if got := m.SyncSnapshot().UptimeSeconds; got < 0 {
			t.Errorf("UptimeSeconds = %v, want >= 0", got)
		}
	})
}
