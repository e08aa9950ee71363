// Package server assembles and runs the editor bridge service.
//
// NewServer wires the pieces in dependency order: logger, metrics,
// tracer, profile registry (built-ins plus the profile directory),
// draft journal with crash recovery, the editor session manager, and
// finally the gin routes behind the middleware stack (recovery,
// tracing, metrics, CORS, rate limit). Construction fails fast; a
// server that comes up is fully wired.
//
// Run serves HTTP and blocks. Close drains in reverse order: the idle
// reaper stops, the session manager shuts down (closing every live
// attachment), then the tracer and logger flush. Signal handling
// belongs to the caller; see cmd/server.
package server
