//go:build integration
// +build integration

package integration

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venuely/editor-bridge/internal/infrastructure/config"
	"github.com/venuely/editor-bridge/internal/infrastructure/monitoring"
	"github.com/venuely/editor-bridge/tests/helpers/testutil"
)

// doRequest issues one raw request against the service and returns the
// status code and body. The session helpers in testutil assert success;
// this path exists for the subtests that expect rejections.
func doRequest(t *testing.T, method, url, body string) (int, []byte) {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func TestServiceSurface(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	br := testutil.StartBridge(t)

	t.Run("root reports identity", func(t *testing.T) {
		code, body := doRequest(t, http.MethodGet, br.BaseURL+"/", "")
		require.Equal(t, http.StatusOK, code)

		var root struct {
			Status  string `json:"status"`
			Service string `json:"service"`
			Version string `json:"version"`
		}
		require.NoError(t, sonic.Unmarshal(body, &root))
		assert.Equal(t, "online", root.Status)
		assert.Equal(t, "venuely-editor-bridge", root.Service)
		assert.NotEmpty(t, root.Version)
	})

	t.Run("health reports sessions and profiles", func(t *testing.T) {
		code, body := doRequest(t, http.MethodGet, br.BaseURL+"/health", "")
		require.Equal(t, http.StatusOK, code)

		var health struct {
			Status   string `json:"status"`
			Profiles struct {
				Count int `json:"count"`
			} `json:"profiles"`
		}
		require.NoError(t, sonic.Unmarshal(body, &health))
		assert.Equal(t, "healthy", health.Status)
		assert.GreaterOrEqual(t, health.Profiles.Count, 3, "built-in profiles should be registered")
	})

	t.Run("prometheus exposition", func(t *testing.T) {
		// Creating a session guarantees the counter exists before the
		// scrape.
		sess := br.Client.CreateSession(t, "event", "")
		defer br.Client.CloseSession(t, sess.ID)

		code, body := doRequest(t, http.MethodGet, br.BaseURL+"/metrics", "")
		require.Equal(t, http.StatusOK, code)
		assert.Contains(t, string(body), "bridge_sessions_created_total")
	})

	t.Run("unknown route", func(t *testing.T) {
		code, _ := doRequest(t, http.MethodGet, br.BaseURL+"/nope", "")
		assert.Equal(t, http.StatusNotFound, code)
	})
}

func TestProfileCatalog(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	br := testutil.StartBridge(t)

	t.Run("list profiles", func(t *testing.T) {
		code, body := doRequest(t, http.MethodGet, br.BaseURL+"/profiles", "")
		require.Equal(t, http.StatusOK, code)

		var catalog struct {
			Profiles []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"profiles"`
			Default string `json:"default"`
		}
		require.NoError(t, sonic.Unmarshal(body, &catalog))
		assert.Equal(t, "venue", catalog.Default)

		ids := make(map[string]bool, len(catalog.Profiles))
		for _, p := range catalog.Profiles {
			ids[p.ID] = true
		}
		for _, want := range []string{"venue", "event", "vendor"} {
			assert.True(t, ids[want], "built-in profile %q missing from catalog", want)
		}
	})

	t.Run("fetch one profile", func(t *testing.T) {
		code, body := doRequest(t, http.MethodGet, br.BaseURL+"/profiles/vendor", "")
		require.Equal(t, http.StatusOK, code)

		var p struct {
			ID              string `json:"id"`
			Name            string `json:"name"`
			MaxContentBytes int    `json:"max_content_bytes"`
		}
		require.NoError(t, sonic.Unmarshal(body, &p))
		assert.Equal(t, "vendor", p.ID)
		assert.Equal(t, "Vendor notes", p.Name)
		assert.Equal(t, 128*1024, p.MaxContentBytes)
	})

	t.Run("unknown profile", func(t *testing.T) {
		code, _ := doRequest(t, http.MethodGet, br.BaseURL+"/profiles/banquet", "")
		assert.Equal(t, http.StatusNotFound, code)
	})

	t.Run("create with unknown profile", func(t *testing.T) {
		code, _ := doRequest(t, http.MethodPost, br.BaseURL+"/editors",
			`{"profile_id":"banquet"}`)
		assert.Equal(t, http.StatusNotFound, code)
	})
}

func TestContentValidation(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	br := testutil.StartBridge(t)

	t.Run("missing content field rejected", func(t *testing.T) {
		sess := br.Client.CreateSession(t, "vendor", "")
		defer br.Client.CloseSession(t, sess.ID)

		code, _ := doRequest(t, http.MethodPut, br.BaseURL+"/editors/"+sess.ID+"/content", `{}`)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("oversize write rejected", func(t *testing.T) {
		sess := br.Client.CreateSession(t, "vendor", "")
		defer br.Client.CloseSession(t, sess.ID)

		big, err := sonic.Marshal(map[string]string{
			"content": strings.Repeat("v", 128*1024+1),
		})
		require.NoError(t, err)

		code, _ := doRequest(t, http.MethodPut, br.BaseURL+"/editors/"+sess.ID+"/content", string(big))
		assert.Equal(t, http.StatusRequestEntityTooLarge, code)

		// The rejected write must not have touched the document.
		content, _ := br.Client.Content(t, sess.ID)
		assert.Empty(t, content)
	})

	t.Run("oversize create rejected", func(t *testing.T) {
		big, err := sonic.Marshal(map[string]string{
			"profile_id": "vendor",
			"content":    strings.Repeat("v", 128*1024+1),
		})
		require.NoError(t, err)

		code, _ := doRequest(t, http.MethodPost, br.BaseURL+"/editors", string(big))
		assert.Equal(t, http.StatusRequestEntityTooLarge, code)
	})

	t.Run("unknown session", func(t *testing.T) {
		code, _ := doRequest(t, http.MethodGet, br.BaseURL+"/editors/ed_missing", "")
		assert.Equal(t, http.StatusNotFound, code)

		code, _ = doRequest(t, http.MethodPut, br.BaseURL+"/editors/ed_missing/content",
			`{"content":"<p>x</p>"}`)
		assert.Equal(t, http.StatusNotFound, code)
	})
}

func TestSyncStatsEndpoint(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	br := testutil.StartBridge(t)

	sess := br.Client.CreateSession(t, "event", "<p>Stats probe</p>")
	defer br.Client.CloseSession(t, sess.ID)

	code, body := doRequest(t, http.MethodGet, br.BaseURL+"/stats/sync", "")
	require.Equal(t, http.StatusOK, code)

	var stats monitoring.SyncStats
	require.NoError(t, sonic.Unmarshal(body, &stats))
	assert.GreaterOrEqual(t, stats.SessionsOpen, int64(1))
	assert.NotNil(t, stats.Skips)
	assert.Greater(t, stats.UptimeSeconds, 0.0)
}

func TestSurfaceLogIngestion(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	br := testutil.StartBridge(t)

	t.Run("accepts a surface batch", func(t *testing.T) {
		body := `{
			"source": "surface",
			"entries": [
				{"level": "info", "message": "editor booted", "timestamp": "2026-08-23T10:00:00Z"},
				{"level": "debug", "message": ""}
			]
		}`
		code, raw := doRequest(t, http.MethodPost, br.BaseURL+"/logs", body)
		require.Equal(t, http.StatusOK, code)

		var resp struct {
			Success          bool `json:"success"`
			EntriesReceived  int  `json:"entries_received"`
			EntriesProcessed int  `json:"entries_processed"`
		}
		require.NoError(t, sonic.Unmarshal(raw, &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, 2, resp.EntriesReceived)
		assert.Equal(t, 1, resp.EntriesProcessed, "blank messages are dropped")
	})

	t.Run("rejects foreign source", func(t *testing.T) {
		code, _ := doRequest(t, http.MethodPost, br.BaseURL+"/logs",
			`{"source":"webapp","entries":[{"level":"info","message":"hi"}]}`)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("rejects empty batch", func(t *testing.T) {
		code, _ := doRequest(t, http.MethodPost, br.BaseURL+"/logs",
			`{"source":"surface","entries":[]}`)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("rejects oversized batch", func(t *testing.T) {
		var sb strings.Builder
		sb.WriteString(`{"source":"surface","entries":[`)
		for i := 0; i < 101; i++ {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(`{"level":"info","message":"m"}`)
		}
		sb.WriteString(`]}`)

		code, _ := doRequest(t, http.MethodPost, br.BaseURL+"/logs", sb.String())
		assert.Equal(t, http.StatusRequestEntityTooLarge, code)
	})
}

// TestConfigDefaults verifies the served defaults so an operator can
// rely on the documented values without setting any BRIDGE_* variable.
func TestConfigDefaults(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	t.Run("config with defaults", func(t *testing.T) {
		cfg := config.Default()

		assert.Equal(t, "8085", cfg.Server.Port)
		assert.NotEmpty(t, cfg.Server.Host)
		assert.Equal(t, 300*time.Millisecond, cfg.Editor.Debounce)
		assert.Equal(t, time.Second, cfg.Editor.Suppression)
		assert.Equal(t, 30*time.Minute, cfg.Editor.IdleTTL)
		assert.Equal(t, 1024, cfg.Editor.MaxSessions)
		assert.True(t, cfg.Drafts.Recover)
		assert.EqualValues(t, 1<<20, cfg.WS.MaxMessageBytes)
		assert.True(t, cfg.RateLimit.Enabled)
	})
}
