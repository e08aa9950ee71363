/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for the
bridge service, tracking HTTP requests, session lifecycle, content
synchronization flow, and WebSocket traffic.

# Features

- HTTP request metrics (latency, throughput, size)
- Session lifecycle metrics (created, recovered, closed)
- Attachment and WebSocket connection metrics
- Synchronization metrics (flush coalescing, replaces, skips, suppression)
- Draft journal metrics
- Rolling latency windows summarized with gonum for the JSON stats API
- System metrics (uptime)

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Record lifecycle events
	metrics.RecordSessionCreated()
	metrics.RecordAttach()

	// Programmatic read for the stats endpoint
	stats := metrics.SyncSnapshot()

# Metrics Endpoint

Expose metrics via the standard Prometheus endpoint:

	import "github.com/prometheus/client_golang/prometheus/promhttp"
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
