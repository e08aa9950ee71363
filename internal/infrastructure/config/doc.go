// Package config provides 12-factor configuration management for the
// bridge service.
//
// Configuration is loaded from environment variables with sensible
// defaults; nothing here reads files or flags.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Editor: session manager tuning (debounce, suppression, reaping)
//   - Profiles: editor profile discovery directory
//   - Drafts: crash-recovery journal directory and boot recovery
//   - WS: WebSocket transport limits
//   - Logging: log level and output format
//   - RateLimit: per-IP rate limiting configuration
//   - CORS: allowed origins for the REST surface
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Listening on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - BRIDGE_PORT, BRIDGE_HOST
//   - BRIDGE_DEBOUNCE, BRIDGE_SUPPRESSION, BRIDGE_IDLE_TTL,
//     BRIDGE_CLOSED_RETENTION, BRIDGE_REAP_INTERVAL, BRIDGE_MAX_SESSIONS
//   - BRIDGE_PROFILE_DIR, BRIDGE_DRAFT_DIR, BRIDGE_DRAFT_RECOVER
//   - BRIDGE_WS_MAX_MESSAGE_BYTES, BRIDGE_WS_WRITE_TIMEOUT
//   - BRIDGE_LOG_LEVEL, BRIDGE_LOG_DEV
//   - BRIDGE_RATE_LIMIT_RPS, BRIDGE_RATE_LIMIT_BURST, BRIDGE_RATE_LIMIT_ENABLED
//   - BRIDGE_CORS_ORIGINS
package config
