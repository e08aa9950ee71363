package ws

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/venuely/editor-bridge/internal/bridge"
	"github.com/venuely/editor-bridge/internal/infrastructure/logging"
	"github.com/venuely/editor-bridge/internal/infrastructure/monitoring"
	"github.com/venuely/editor-bridge/internal/protocol"
)

// channel adapts one WebSocket connection to the bridge's Channel
// contract. Writes are serialized through writeMu; inbound frames are
// decoded on the pump goroutine, so the installed handler is never
// invoked concurrently.
type channel struct {
	conn    *websocket.Conn
	timeout time.Duration
	metrics *monitoring.Metrics
	log     *logging.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	handler func(protocol.Message)
	closed  bool
}

func newChannel(conn *websocket.Conn, timeout time.Duration, metrics *monitoring.Metrics, log *logging.Logger) *channel {
	return &channel{conn: conn, timeout: timeout, metrics: metrics, log: log}
}

// Send serializes msg into one text frame. A write that misses the
// deadline fails here and is dropped by the caller; the next update
// supersedes it.
func (c *channel) Send(msg protocol.Message) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return bridge.ErrChannelClosed
	}
	c.mu.Unlock()

	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	err = c.conn.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("ws: write %s: %w", msg.Type, err)
	}

	if c.metrics != nil {
		c.metrics.RecordWSMessage("out", string(msg.Type))
	}
	return nil
}

// OnReceive installs the handler the pump delivers to. A nil handler
// means the consumer is gone for good; a socket has nothing left to
// deliver to, so the connection winds down with a close frame and the
// surface learns its binding ended.
func (c *channel) OnReceive(handler func(protocol.Message)) {
	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()

	if handler == nil {
		c.shutdown(websocket.CloseNormalClosure, "detached")
	}
}

// Close drops the connection without the closing handshake. Idempotent.
func (c *channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.handler = nil
	c.mu.Unlock()
	return c.conn.Close()
}

// shutdown sends a best-effort close frame, then drops the connection.
// The pump exits on the dead socket and runs the handler's cleanup.
func (c *channel) shutdown(code int, reason string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.handler = nil
	c.mu.Unlock()

	deadline := time.Now().Add(c.timeout)
	c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	c.conn.Close()
}

// run reads frames until the connection dies. Malformed frames are
// counted and dropped; the connection survives them. Oversized frames
// trip the read limit, which tears the connection down.
func (c *channel) run() {
	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.TextMessage {
			c.dropFrame("non-text frame")
			continue
		}
		msg, err := protocol.Decode(data)
		if err != nil {
			c.dropFrame(err.Error())
			continue
		}
		if c.metrics != nil {
			c.metrics.RecordWSMessage("in", string(msg.Type))
		}

		c.mu.Lock()
		handler := c.handler
		c.mu.Unlock()
		if handler != nil {
			handler(msg)
		}
	}
}

func (c *channel) dropFrame(detail string) {
	if c.metrics != nil {
		c.metrics.RecordWSDecodeError()
	}
	c.log.Warn("frame dropped", zap.String("detail", detail))
}
