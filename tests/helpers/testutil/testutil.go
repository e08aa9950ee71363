// Package testutil provides shared helpers for bridge integration and
// load tests: a once-per-binary assembled server, a typed REST client,
// and a scripted sandbox surface.
package testutil

import (
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/venuely/editor-bridge/internal/domain/editor"
	"github.com/venuely/editor-bridge/internal/infrastructure/config"
	"github.com/venuely/editor-bridge/internal/infrastructure/server"
	"github.com/venuely/editor-bridge/internal/protocol"
)

// Config returns service configuration tuned for tests: fast debounce
// and suppression so sync settles within polling timeouts, reaping
// effectively off, rate limiting off.
func Config(draftsDir string) *config.Config {
	cfg := config.Default()
	cfg.Editor.Debounce = 25 * time.Millisecond
	cfg.Editor.Suppression = time.Second
	cfg.Editor.IdleTTL = 10 * time.Minute
	cfg.Editor.ClosedRetention = 10 * time.Minute
	cfg.Editor.ReapInterval = time.Hour
	cfg.Editor.MaxSessions = 256
	cfg.Drafts.Dir = draftsDir
	cfg.Drafts.Recover = false
	cfg.WS.WriteTimeout = 2 * time.Second
	cfg.Logging.Level = "error"
	cfg.RateLimit.Enabled = false
	return cfg
}

// Bridge is the shared test deployment.
type Bridge struct {
	BaseURL   string
	DraftsDir string
	Client    *Client
}

var (
	bridgeOnce sync.Once
	bridge     *Bridge
	bridgeErr  error
)

// StartBridge assembles the full server once per test binary and
// serves it over httptest. The Prometheus default registry allows one
// metrics collector per process, so every test shares this instance;
// it lives until the binary exits.
func StartBridge(t *testing.T) *Bridge {
	t.Helper()
	bridgeOnce.Do(func() {
		dir, err := os.MkdirTemp("", "bridge-drafts-")
		if err != nil {
			bridgeErr = err
			return
		}
		srv, err := server.NewServer(Config(dir))
		if err != nil {
			bridgeErr = err
			return
		}
		ts := httptest.NewServer(srv.Router())
		bridge = &Bridge{
			BaseURL:   ts.URL,
			DraftsDir: dir,
			Client:    NewClient(ts.URL),
		}
	})
	require.NoError(t, bridgeErr, "bridge bootstrap failed")
	return bridge
}

// Client is a typed REST client over the bridge API.
type Client struct {
	rc *resty.Client
}

// NewClient builds a client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		rc: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(10 * time.Second).
			SetHeader("Content-Type", "application/json"),
	}
}

// CreateSession provisions an editor session and decodes the snapshot.
func (c *Client) CreateSession(t *testing.T, profileID, content string) editor.Session {
	t.Helper()
	resp, err := c.rc.R().
		SetBody(map[string]string{"profile_id": profileID, "content": content}).
		Post("/editors")
	require.NoError(t, err)
	require.Equalf(t, 201, resp.StatusCode(), "create session: %s", resp.String())

	var sess editor.Session
	require.NoError(t, sonic.Unmarshal(resp.Body(), &sess))
	require.NotEmpty(t, sess.ID)
	return sess
}

// Session fetches one session snapshot.
func (c *Client) Session(t *testing.T, id string) editor.Session {
	t.Helper()
	resp, err := c.rc.R().Get("/editors/" + id)
	require.NoError(t, err)
	require.Equalf(t, 200, resp.StatusCode(), "get session: %s", resp.String())

	var sess editor.Session
	require.NoError(t, sonic.Unmarshal(resp.Body(), &sess))
	return sess
}

// Content fetches the canonical document and its digest.
func (c *Client) Content(t *testing.T, id string) (content, digest string) {
	t.Helper()
	resp, err := c.rc.R().Get("/editors/" + id + "/content")
	require.NoError(t, err)
	require.Equalf(t, 200, resp.StatusCode(), "get content: %s", resp.String())

	var body struct {
		Content string `json:"content"`
		Digest  string `json:"digest"`
	}
	require.NoError(t, sonic.Unmarshal(resp.Body(), &body))
	return body.Content, body.Digest
}

// PutContent replaces the canonical document.
func (c *Client) PutContent(t *testing.T, id, content string) {
	t.Helper()
	resp, err := c.rc.R().
		SetBody(map[string]string{"content": content}).
		Put("/editors/" + id + "/content")
	require.NoError(t, err)
	require.Equalf(t, 200, resp.StatusCode(), "put content: %s", resp.String())
}

// CloseSession ends a session.
func (c *Client) CloseSession(t *testing.T, id string) {
	t.Helper()
	resp, err := c.rc.R().Delete("/editors/" + id)
	require.NoError(t, err)
	require.Equalf(t, 200, resp.StatusCode(), "close session: %s", resp.String())
}

// EventuallySession polls the session until cond holds.
func (c *Client) EventuallySession(t *testing.T, id string, cond func(editor.Session) bool, msg string) editor.Session {
	t.Helper()
	var last editor.Session
	require.Eventuallyf(t, func() bool {
		resp, err := c.rc.R().Get("/editors/" + id)
		if err != nil || resp.StatusCode() != 200 {
			return false
		}
		if sonic.Unmarshal(resp.Body(), &last) != nil {
			return false
		}
		return cond(last)
	}, 3*time.Second, 20*time.Millisecond, "%s (last: state=%s changes=%d writes=%d)", msg, last.State, last.Changes, last.Writes)
	return last
}

// Surface is a scripted stand-in for the sandboxed editor. Reads are
// sequential; tests drive it step by step.
type Surface struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

// AttachSurface dials the attach endpoint for a session.
func AttachSurface(t *testing.T, baseURL, sessionID string) *Surface {
	t.Helper()
	u := "ws" + strings.TrimPrefix(baseURL, "http") + "/editors/" + sessionID + "/attach"
	conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoErrorf(t, err, "dial %s", u)
	resp.Body.Close()

	s := &Surface{conn: conn}
	t.Cleanup(s.Close)
	return s
}

// Ready announces the surface finished initializing.
func (s *Surface) Ready(t *testing.T) {
	t.Helper()
	s.send(t, protocol.Ready())
}

// Edit reports a mutation of the live copy.
func (s *Surface) Edit(t *testing.T, content string, sel *protocol.SelectionRange) {
	t.Helper()
	s.send(t, protocol.NewChanged(content, sel))
}

// ReportError reports a sandbox-side failure.
func (s *Surface) ReportError(t *testing.T, detail string) {
	t.Helper()
	s.send(t, protocol.NewError(detail))
}

// AwaitReplace blocks until the next replace arrives.
func (s *Surface) AwaitReplace(t *testing.T, timeout time.Duration) protocol.ReplacePayload {
	t.Helper()
	s.conn.SetReadDeadline(time.Now().Add(timeout))
	_, data, err := s.conn.ReadMessage()
	require.NoError(t, err, "waiting for replace")

	msg, err := protocol.Decode(data)
	require.NoError(t, err)
	require.Equal(t, protocol.TypeReplace, msg.Type)
	return *msg.Replace
}

// AwaitClosed blocks until the server closes the connection with a
// normal-closure frame.
func (s *Surface) AwaitClosed(t *testing.T, timeout time.Duration) {
	t.Helper()
	s.conn.SetReadDeadline(time.Now().Add(timeout))
	for {
		_, _, err := s.conn.ReadMessage()
		if err != nil {
			require.Truef(t, websocket.IsCloseError(err, websocket.CloseNormalClosure),
				"connection ended with %v, want normal closure", err)
			return
		}
	}
}

// Close drops the connection without a close handshake.
func (s *Surface) Close() {
	s.conn.Close()
}

func (s *Surface) send(t *testing.T, msg protocol.Message) {
	t.Helper()
	data, err := protocol.Encode(msg)
	require.NoError(t, err)

	s.wmu.Lock()
	defer s.wmu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	require.NoError(t, s.conn.WriteMessage(websocket.TextMessage, data))
}
