/*
Package logging wraps uber/zap behind the small surface the rest of the
bridge uses.

# Overview

Every component logs through a *Logger handed down from assembly, never
a package-level global. Components take a named child so the origin of
a line is readable at a glance:

	log := parent.Named("drafts")
	log.Warn("Journal write failed", zap.Error(err))

# Modes

Development builds a colored console core with caller annotations and
stack traces at Error level. Production builds a JSON core with ISO8601
timestamps for machine ingestion. Both are assembled from zapcore
primitives, so output sinks beyond stdout can be listed in
Config.OutputPaths.

# Test fixtures

NewNop returns a logger that discards everything; constructors accept
it wherever a test has no interest in output. NewDefault is the boot
fallback when no configuration has been loaded yet.
*/
package logging
