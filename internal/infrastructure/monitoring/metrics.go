package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. It also satisfies the bridge
// package's Observer contract, so one collector instruments both the
// service surface and every live bridge.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Session metrics
	SessionsOpen      prometheus.Gauge
	SessionsCreated   prometheus.Counter
	SessionsClosed    *prometheus.CounterVec
	SessionsRecovered prometheus.Counter

	// Attachment metrics
	AttachmentsActive prometheus.Gauge
	AttachesTotal     prometheus.Counter

	// Draft journal metrics
	DraftsSaved prometheus.Counter
	DraftErrors prometheus.Counter

	// Sync metrics
	ChangesForwarded prometheus.Counter
	EditsCoalesced   prometheus.Counter
	FlushBurst       prometheus.Histogram
	ReplacesSent     prometheus.Counter
	SyncSkips        *prometheus.CounterVec
	RestoreFailures  prometheus.Counter
	TransportErrors  prometheus.Counter
	ReadyLatency     prometheus.Histogram
	StateChanges     *prometheus.CounterVec

	// WebSocket metrics
	WSConnections  prometheus.Gauge
	WSMessages     *prometheus.CounterVec
	WSDecodeErrors prometheus.Counter

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	// Rolling windows backing the JSON sync-stats endpoint
	flushWindow *sampleWindow
	readyWindow *sampleWindow

	// Snapshot for JSON API - track current values
	snapshot syncCounters

	mu sync.RWMutex
}

// syncCounters mirrors the counters the JSON API reads back. Prometheus
// counters cannot be read programmatically, so writes double here.
type syncCounters struct {
	SessionsOpen     int64
	Attachments      int64
	WSConnections    int64
	ChangesForwarded int64
	EditsCoalesced   int64
	ReplacesSent     int64
	Skips            map[string]int64
	RestoreFailures  int64
	TransportErrors  int64
	SandboxFailures  int64
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime:   time.Now(),
		flushWindow: newSampleWindow(syncWindowSize),
		readyWindow: newSampleWindow(syncWindowSize),
		snapshot:    syncCounters{Skips: make(map[string]int64)},

		// HTTP metrics
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bridge_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bridge_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bridge_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		// Session metrics
		SessionsOpen: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "bridge_sessions_open",
				Help: "Number of open editor sessions",
			},
		),
		SessionsCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "bridge_sessions_created_total",
				Help: "Total number of editor sessions created",
			},
		),
		SessionsClosed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_sessions_closed_total",
				Help: "Total number of editor sessions closed",
			},
			[]string{"reason"},
		),
		SessionsRecovered: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "bridge_sessions_recovered_total",
				Help: "Total number of sessions recovered from drafts",
			},
		),

		// Attachment metrics
		AttachmentsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "bridge_attachments_active",
				Help: "Number of sessions with a live sandbox surface",
			},
		),
		AttachesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "bridge_attaches_total",
				Help: "Total number of surface attachments",
			},
		),

		// Draft journal metrics
		DraftsSaved: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "bridge_drafts_saved_total",
				Help: "Total number of drafts journaled",
			},
		),
		DraftErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "bridge_draft_errors_total",
				Help: "Total number of failed draft writes",
			},
		),

		// Sync metrics
		ChangesForwarded: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "bridge_changes_forwarded_total",
				Help: "Total number of debounced changes delivered to hosts",
			},
		),
		EditsCoalesced: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "bridge_edits_coalesced_total",
				Help: "Total number of sandbox edits absorbed into flushes",
			},
		),
		FlushBurst: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bridge_flush_burst_seconds",
				Help:    "Time from first staged edit to flush",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		ReplacesSent: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "bridge_replaces_sent_total",
				Help: "Total number of content replacements sent to sandboxes",
			},
		),
		SyncSkips: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_sync_skips_total",
				Help: "Total number of updates deliberately not forwarded",
			},
			[]string{"reason"},
		),
		RestoreFailures: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "bridge_selection_restore_failures_total",
				Help: "Total number of swallowed selection restore failures",
			},
		),
		TransportErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "bridge_transport_errors_total",
				Help: "Total number of dropped or undeliverable messages",
			},
		),
		ReadyLatency: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bridge_ready_latency_seconds",
				Help:    "Time from channel bind to the sandbox ready signal",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),
		StateChanges: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_state_changes_total",
				Help: "Total number of bridge lifecycle transitions",
			},
			[]string{"from", "to"},
		),

		// WebSocket metrics
		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "bridge_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
		WSDecodeErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "bridge_ws_decode_errors_total",
				Help: "Total number of undecodable WebSocket frames",
			},
		),

		// System metrics
		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "bridge_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
	}

	// Start uptime updater
	go m.updateUptime()

	return m
}

// updateUptime continuously updates the uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))
}

// RecordSessionCreated records a newly created session.
func (m *Metrics) RecordSessionCreated() {
	m.SessionsCreated.Inc()
	m.SessionsOpen.Inc()
	m.mu.Lock()
	m.snapshot.SessionsOpen++
	m.mu.Unlock()
}

// RecordSessionRecovered records a session rebuilt from a journaled draft.
func (m *Metrics) RecordSessionRecovered() {
	m.SessionsRecovered.Inc()
	m.SessionsOpen.Inc()
	m.mu.Lock()
	m.snapshot.SessionsOpen++
	m.mu.Unlock()
}

// RecordSessionClosed records a session close with its reason.
func (m *Metrics) RecordSessionClosed(reason string) {
	m.SessionsClosed.WithLabelValues(reason).Inc()
	m.SessionsOpen.Dec()
	m.mu.Lock()
	m.snapshot.SessionsOpen--
	m.mu.Unlock()
}

// RecordAttach records a sandbox surface attaching to a session.
func (m *Metrics) RecordAttach() {
	m.AttachesTotal.Inc()
	m.AttachmentsActive.Inc()
	m.mu.Lock()
	m.snapshot.Attachments++
	m.mu.Unlock()
}

// RecordDetach records a surface detaching.
func (m *Metrics) RecordDetach() {
	m.AttachmentsActive.Dec()
	m.mu.Lock()
	m.snapshot.Attachments--
	m.mu.Unlock()
}

// RecordDraftSaved records a successful draft write.
func (m *Metrics) RecordDraftSaved() {
	m.DraftsSaved.Inc()
}

// RecordDraftError records a failed draft write.
func (m *Metrics) RecordDraftError() {
	m.DraftErrors.Inc()
}

// RecordChangeForwarded records a debounced flush reaching the host:
// one forwarded change that absorbed coalesced edits over the burst.
func (m *Metrics) RecordChangeForwarded(coalesced int, burst time.Duration) {
	m.ChangesForwarded.Inc()
	m.EditsCoalesced.Add(float64(coalesced))
	m.FlushBurst.Observe(burst.Seconds())
	m.flushWindow.Observe(float64(burst) / float64(time.Millisecond))
	m.mu.Lock()
	m.snapshot.ChangesForwarded++
	m.snapshot.EditsCoalesced += int64(coalesced)
	m.mu.Unlock()
}

// RecordReplace records a content replacement sent to a sandbox.
func (m *Metrics) RecordReplace() {
	m.ReplacesSent.Inc()
	m.mu.Lock()
	m.snapshot.ReplacesSent++
	m.mu.Unlock()
}

// RecordSkip records an update deliberately not forwarded.
func (m *Metrics) RecordSkip(reason string) {
	m.SyncSkips.WithLabelValues(reason).Inc()
	m.mu.Lock()
	m.snapshot.Skips[reason]++
	m.mu.Unlock()
}

// RecordSelectionRestoreFailure records a swallowed cursor-restore miss.
func (m *Metrics) RecordSelectionRestoreFailure() {
	m.RestoreFailures.Inc()
	m.mu.Lock()
	m.snapshot.RestoreFailures++
	m.mu.Unlock()
}

// RecordTransportError records a dropped or undeliverable message.
func (m *Metrics) RecordTransportError() {
	m.TransportErrors.Inc()
	m.mu.Lock()
	m.snapshot.TransportErrors++
	m.mu.Unlock()
}

// RecordReadyLatency records the time from channel bind to ready.
func (m *Metrics) RecordReadyLatency(d time.Duration) {
	m.ReadyLatency.Observe(d.Seconds())
	m.readyWindow.Observe(float64(d) / float64(time.Millisecond))
}

// RecordStateChange records a bridge lifecycle transition.
func (m *Metrics) RecordStateChange(from, to string) {
	m.StateChanges.WithLabelValues(from, to).Inc()
	if to == "failed" {
		m.mu.Lock()
		m.snapshot.SandboxFailures++
		m.mu.Unlock()
	}
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// RecordWSDecodeError records an inbound frame that failed to decode.
func (m *Metrics) RecordWSDecodeError() {
	m.WSDecodeErrors.Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.WSConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.WSConnections--
	m.mu.Unlock()
}
