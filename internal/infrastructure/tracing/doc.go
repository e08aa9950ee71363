/*
Package tracing gives every bridge request a span, and the span stream
doubles as the request log.

# Overview

Spans follow OpenTelemetry vocabulary (trace ID, span ID, parent,
tags) but are emitted through the service zap logger instead of being
shipped to a collector; an embedded service gets correlation without
another sidecar. A host application that already traces its own
requests can hand its IDs in on X-Trace-ID / X-Span-ID, and the bridge
threads them through so both sides log the same trace. Responses echo
the assigned IDs, which makes "quote these two headers" a workable bug
report instruction.

# Usage

The gin middleware covers the REST and attachment surface:

	tracer := tracing.New("editor-bridge", logger)
	defer tracer.Close()
	router.Use(tracing.HTTPMiddleware(tracer))

Spans can also be opened by hand around any operation:

	span, ctx := tracer.StartSpan(ctx, "journal.recover")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()

# Backpressure

Submitted spans pass through a 1024-slot buffer drained by a single
collector goroutine. When the buffer is full the span is dropped and a
warning logged; tracing never blocks a request. Close drains whatever
is buffered before returning.
*/
package tracing
