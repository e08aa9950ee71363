package tracing

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/venuely/editor-bridge/internal/infrastructure/logging"
	"github.com/venuely/editor-bridge/internal/shared/id"
)

// TraceID correlates every span belonging to one request.
type TraceID string

// SpanID identifies a single operation within a trace.
type SpanID string

// Span records one traced operation.
type Span struct {
	TraceID  TraceID
	SpanID   SpanID
	ParentID SpanID
	Name     string
	Service  string

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	Tags   map[string]string
	Err    error
	Status int
}

// Tracer collects finished spans and re-emits them through the service
// logger, which doubles as the request log. Hosts embedding the bridge
// correlate their own traces by sending X-Trace-ID; inbound IDs are
// honored and new ones minted otherwise.
type Tracer struct {
	service string
	log     *logging.Logger
	spans   chan *Span
	done    chan struct{}
	once    sync.Once
}

// New starts a tracer. Close releases its collector goroutine.
func New(service string, log *logging.Logger) *Tracer {
	if log == nil {
		log = logging.NewNop()
	}
	t := &Tracer{
		service: service,
		log:     log.Named("tracing"),
		spans:   make(chan *Span, 1024),
		done:    make(chan struct{}),
	}
	go t.collect()
	return t
}

// StartSpan opens a span under the trace carried by ctx, minting a
// fresh trace when there is none. The returned context carries the new
// span as parent for anything started beneath it.
func (t *Tracer) StartSpan(ctx context.Context, name string) (*Span, context.Context) {
	traceID, _ := ctx.Value(traceIDKey).(TraceID)
	if traceID == "" {
		traceID = TraceID(id.NewRequestID())
	}
	parentID, _ := ctx.Value(spanIDKey).(SpanID)

	span := &Span{
		TraceID:   traceID,
		SpanID:    SpanID(id.NewRequestID()),
		ParentID:  parentID,
		Name:      name,
		Service:   t.service,
		StartTime: time.Now(),
		Tags:      make(map[string]string),
	}

	ctx = context.WithValue(ctx, traceIDKey, traceID)
	ctx = context.WithValue(ctx, spanIDKey, span.SpanID)
	return span, ctx
}

// Finish stamps the span complete.
func (s *Span) Finish() {
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)
}

// SetTag annotates the span.
func (s *Span) SetTag(key, value string) {
	s.Tags[key] = value
}

// SetError records a failure. The status is left alone if the
// operation already reported one.
func (s *Span) SetError(err error) {
	s.Err = err
	if s.Status == 0 {
		s.Status = 500
	}
}

// SetStatus records the HTTP status the operation answered with.
func (s *Span) SetStatus(code int) {
	s.Status = code
}

// Submit queues a finished span. Never blocks; when the buffer is full
// the span is dropped and the drop logged.
func (t *Tracer) Submit(span *Span) {
	select {
	case t.spans <- span:
	default:
		t.log.Warn("span buffer full, dropping span",
			zap.String("trace_id", string(span.TraceID)),
			zap.String("operation", span.Name))
	}
}

// Close stops the collector after draining queued spans. Submissions
// arriving later are dropped silently.
func (t *Tracer) Close() {
	t.once.Do(func() { close(t.done) })
}

func (t *Tracer) collect() {
	for {
		select {
		case span := <-t.spans:
			t.emit(span)
		case <-t.done:
			for {
				select {
				case span := <-t.spans:
					t.emit(span)
				default:
					return
				}
			}
		}
	}
}

func (t *Tracer) emit(span *Span) {
	fields := make([]zap.Field, 0, len(span.Tags)+6)
	fields = append(fields,
		zap.String("trace_id", string(span.TraceID)),
		zap.String("span_id", string(span.SpanID)),
		zap.String("operation", span.Name),
		zap.Duration("duration", span.Duration),
		zap.Int("status", span.Status),
	)
	if span.ParentID != "" {
		fields = append(fields, zap.String("parent_id", string(span.ParentID)))
	}
	for k, v := range span.Tags {
		fields = append(fields, zap.String(k, v))
	}

	if span.Err != nil {
		fields = append(fields, zap.Error(span.Err))
		t.log.Error("span completed with error", fields...)
		return
	}
	t.log.Info("span completed", fields...)
}

type contextKey string

const (
	traceIDKey contextKey = "trace_id"
	spanIDKey  contextKey = "span_id"
)

// GetTraceID retrieves the trace ID from context.
func GetTraceID(ctx context.Context) TraceID {
	if traceID, ok := ctx.Value(traceIDKey).(TraceID); ok {
		return traceID
	}
	return ""
}

// GetSpanID retrieves the span ID from context.
func GetSpanID(ctx context.Context) SpanID {
	if spanID, ok := ctx.Value(spanIDKey).(SpanID); ok {
		return spanID
	}
	return ""
}
