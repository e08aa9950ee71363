package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "8085", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	// Editor config
	assert.Equal(t, 300*time.Millisecond, cfg.Editor.Debounce)
	assert.Equal(t, time.Second, cfg.Editor.Suppression)
	assert.Equal(t, 30*time.Minute, cfg.Editor.IdleTTL)
	assert.Equal(t, 5*time.Minute, cfg.Editor.ClosedRetention)
	assert.Equal(t, time.Minute, cfg.Editor.ReapInterval)
	assert.Equal(t, 1024, cfg.Editor.MaxSessions)

	// Profile and draft config
	assert.Empty(t, cfg.Profiles.Dir)
	assert.Equal(t, "drafts", cfg.Drafts.Dir)
	assert.True(t, cfg.Drafts.Recover)

	// WebSocket config
	assert.Equal(t, int64(1<<20), cfg.WS.MaxMessageBytes)
	assert.Equal(t, 10*time.Second, cfg.WS.WriteTimeout)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Rate limit config
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)

	// CORS config
	assert.Equal(t, []string{"*"}, cfg.CORS.Origins)
}

func TestLoadOrDefault(t *testing.T) {
	// Should return default when no env vars set
	cfg := LoadOrDefault()

	assert.NotNil(t, cfg)
	assert.Equal(t, "8085", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"BRIDGE_PORT":               "9000",
		"BRIDGE_HOST":               "127.0.0.1",
		"BRIDGE_DEBOUNCE":           "150ms",
		"BRIDGE_SUPPRESSION":        "2s",
		"BRIDGE_IDLE_TTL":           "1h",
		"BRIDGE_MAX_SESSIONS":       "64",
		"BRIDGE_PROFILE_DIR":        "/etc/bridge/profiles",
		"BRIDGE_DRAFT_DIR":          "/var/lib/bridge/drafts",
		"BRIDGE_DRAFT_RECOVER":      "false",
		"BRIDGE_LOG_LEVEL":          "debug",
		"BRIDGE_LOG_DEV":            "true",
		"BRIDGE_RATE_LIMIT_RPS":     "500",
		"BRIDGE_RATE_LIMIT_BURST":   "1000",
		"BRIDGE_RATE_LIMIT_ENABLED": "false",
		"BRIDGE_CORS_ORIGINS":       "https://app.venuely.test,https://admin.venuely.test",
	}

	for key, value := range envVars {
		err := os.Setenv(key, value)
		require.NoError(t, err)
		defer os.Unsetenv(key)
	}

	cfg, err := Load()
	require.NoError(t, err)

	// Verify server config
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)

	// Verify editor config
	assert.Equal(t, 150*time.Millisecond, cfg.Editor.Debounce)
	assert.Equal(t, 2*time.Second, cfg.Editor.Suppression)
	assert.Equal(t, time.Hour, cfg.Editor.IdleTTL)
	assert.Equal(t, 64, cfg.Editor.MaxSessions)

	// Verify profile and draft config
	assert.Equal(t, "/etc/bridge/profiles", cfg.Profiles.Dir)
	assert.Equal(t, "/var/lib/bridge/drafts", cfg.Drafts.Dir)
	assert.False(t, cfg.Drafts.Recover)

	// Verify logging config
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)

	// Verify rate limit config
	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1000, cfg.RateLimit.Burst)
	assert.False(t, cfg.RateLimit.Enabled)

	// Verify CORS config
	assert.Equal(t, []string{"https://app.venuely.test", "https://admin.venuely.test"}, cfg.CORS.Origins)
}

func TestLoadWithPartialEnvironmentVariables(t *testing.T) {
	err := os.Setenv("BRIDGE_PORT", "3000")
	require.NoError(t, err)
	defer os.Unsetenv("BRIDGE_PORT")

	err = os.Setenv("BRIDGE_LOG_LEVEL", "warn")
	require.NoError(t, err)
	defer os.Unsetenv("BRIDGE_LOG_LEVEL")

	cfg, err := Load()
	require.NoError(t, err)

	// Verify overridden values
	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)

	// Verify default values still apply
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 300*time.Millisecond, cfg.Editor.Debounce)
	assert.True(t, cfg.Drafts.Recover)
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{
			name:  "non-numeric session cap",
			key:   "BRIDGE_MAX_SESSIONS",
			value: "lots",
		},
		{
			name:  "bad duration",
			key:   "BRIDGE_DEBOUNCE",
			value: "soon",
		},
		{
			name:  "bad bool",
			key:   "BRIDGE_RATE_LIMIT_ENABLED",
			value: "sometimes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := os.Setenv(tt.key, tt.value)
			require.NoError(t, err)
			defer os.Unsetenv(tt.key)

			_, err = Load()
			assert.Error(t, err)

			// LoadOrDefault must absorb the same failure.
			cfg := LoadOrDefault()
			require.NotNil(t, cfg)
			assert.Equal(t, "8085", cfg.Server.Port)
		})
	}
}

func TestEditorConfigDurations(t *testing.T) {
	tests := []struct {
		name         string
		debounce     string
		idleTTL      string
		wantDebounce time.Duration
		wantIdleTTL  time.Duration
	}{
		{
			name:         "default values",
			debounce:     "",
			idleTTL:      "",
			wantDebounce: 300 * time.Millisecond,
			wantIdleTTL:  30 * time.Minute,
		},
		{
			name:         "fast flush",
			debounce:     "100ms",
			idleTTL:      "",
			wantDebounce: 100 * time.Millisecond,
			wantIdleTTL:  30 * time.Minute,
		},
		{
			name:         "long idle window",
			debounce:     "",
			idleTTL:      "4h",
			wantDebounce: 300 * time.Millisecond,
			wantIdleTTL:  4 * time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Unsetenv("BRIDGE_DEBOUNCE")
			os.Unsetenv("BRIDGE_IDLE_TTL")

			if tt.debounce != "" {
				err := os.Setenv("BRIDGE_DEBOUNCE", tt.debounce)
				require.NoError(t, err)
				defer os.Unsetenv("BRIDGE_DEBOUNCE")
			}
			if tt.idleTTL != "" {
				err := os.Setenv("BRIDGE_IDLE_TTL", tt.idleTTL)
				require.NoError(t, err)
				defer os.Unsetenv("BRIDGE_IDLE_TTL")
			}

			cfg := LoadOrDefault()

			assert.Equal(t, tt.wantDebounce, cfg.Editor.Debounce)
			assert.Equal(t, tt.wantIdleTTL, cfg.Editor.IdleTTL)
		})
	}
}
