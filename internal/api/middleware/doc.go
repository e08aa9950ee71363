// Package middleware carries the HTTP middleware mounted in front of
// the bridge's REST surface.
//
// CORS defaults suit a browser-embedded host page driving the bridge
// from another origin: the trace headers (X-Trace-ID, X-Span-ID) are
// accepted inbound and exposed on responses, so the host can correlate
// its logs with bridge spans. Deployments restrict origins through
// configuration:
//
//	router.Use(middleware.CORS(middleware.CORSWithOrigins(cfg.CORS.Origins)))
//
// Rate limiting keeps one token bucket per client IP on
// golang.org/x/time/rate, with a background sweep dropping idle
// entries so the client map stays bounded. GlobalRateLimit shares a
// single bucket across all clients.
package middleware
