// Package main is the entry point for the editor bridge service.
//
// The service owns editor sessions for the booking platform's rich
// content forms and keeps each one synchronized with a sandboxed
// editor surface.
//
// Architecture:
//
//	Host pages (REST) → Bridge Service → Sandboxed surfaces (WebSocket)
//
// The server provides:
//   - REST API for editor sessions, content, and profiles
//   - WebSocket attachment for sandbox surfaces
//   - Crash-recovery draft journal
//   - Prometheus metrics and JSON sync statistics
//   - Rate limiting and CORS
//
// Configuration:
//   - Environment variables (12-factor, BRIDGE_* prefix)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Production mode
//	BRIDGE_PROFILE_DIR=/etc/venuely/profiles ./server
//
//	# Development mode (colored logs, debug level)
//	./server -dev -port 8085
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
