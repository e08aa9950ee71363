package bridge

import (
	"errors"
	"sync"

	"github.com/venuely/editor-bridge/internal/protocol"
)

// ErrChannelClosed marks a send on a closed channel.
var ErrChannelClosed = errors.New("bridge: channel closed")

// Channel is one endpoint of the host-sandbox boundary. Delivery is
// asynchronous from the consumer's point of view, order-preserving per
// direction, and best-effort: Send returns once the message is handed
// to the transport, never waiting for the peer to act on it.
type Channel interface {
	// Send dispatches one message to the peer. Fire-and-forget; an
	// error means the transport refused the message, not that the
	// peer rejected it.
	Send(msg protocol.Message) error

	// OnReceive installs the handler invoked for each inbound
	// message, replacing any previous handler. A nil handler detaches:
	// subsequent messages are dropped. Handlers for one endpoint are
	// never invoked concurrently.
	OnReceive(handler func(protocol.Message))

	// Close tears the endpoint down. Idempotent. After Close, Send
	// fails on both endpoints and no handler is invoked.
	Close() error
}

// Pair returns two connected in-process endpoints. Messages sent on
// one are delivered to the other's handler on the sender's goroutine,
// which preserves per-direction order and keeps tests deterministic.
// Consumers must still treat delivery as asynchronous; nothing may
// depend on the inline behavior.
func Pair() (Channel, Channel) {
	a := &pairEndpoint{}
	b := &pairEndpoint{}
	a.peer = b
	b.peer = a
	return a, b
}

type pairEndpoint struct {
	mu      sync.Mutex
	handler func(protocol.Message)
	peer    *pairEndpoint
	closed  bool
}

func (e *pairEndpoint) Send(msg protocol.Message) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrChannelClosed
	}
	peer := e.peer
	e.mu.Unlock()

	peer.mu.Lock()
	if peer.closed {
		peer.mu.Unlock()
		return ErrChannelClosed
	}
	handler := peer.handler
	peer.mu.Unlock()

	// Invoked outside both locks so the handler may send back through
	// the pair without deadlocking.
	if handler != nil {
		handler(msg)
	}
	return nil
}

func (e *pairEndpoint) OnReceive(handler func(protocol.Message)) {
	e.mu.Lock()
	e.handler = handler
	e.mu.Unlock()
}

func (e *pairEndpoint) Close() error {
	e.mu.Lock()
	e.closed = true
	e.handler = nil
	e.mu.Unlock()
	return nil
}
