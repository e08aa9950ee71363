// Package profile defines editor profiles: named presets binding a
// document kind to its placeholder, toolbar, sanitization policy, and
// sync timing. Built-in profiles cover the booking product's document
// kinds; deployments layer their own from YAML, TOML, or JSON files.
package profile
