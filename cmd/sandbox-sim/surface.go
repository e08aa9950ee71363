package main

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/venuely/editor-bridge/internal/protocol"
)

const writeTimeout = 5 * time.Second

// surface emulates a sandboxed editor: it holds a live copy of the
// content, reports edits as changed messages, and adopts replace
// messages. With echo enabled it also re-reports adopted content the
// way a real editor's change event fires on a programmatic set, which
// is exactly the traffic the service must recognize as redundant.
type surface struct {
	conn *websocket.Conn
	echo bool

	writeMu sync.Mutex

	mu       sync.Mutex
	content  string
	selStart int
	selEnd   int
	replaces int
	changes  int

	replaceCh chan string
	closed    chan struct{}
	closeOnce sync.Once
}

// attachSurface dials the session's attach endpoint and starts the
// read pump.
func attachSurface(addr, sessionID string, echo bool) (*surface, error) {
	wsURL := strings.Replace(addr, "http", "ws", 1) + "/editors/" + sessionID + "/attach"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("attach: %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("attach: %w", err)
	}
	resp.Body.Close()

	s := &surface{
		conn:      conn,
		echo:      echo,
		replaceCh: make(chan string, 8),
		closed:    make(chan struct{}),
	}
	go s.pump()
	return s, nil
}

// Ready reports the surface as initialized. The service answers with
// a replace seeding the canonical content when there is any.
func (s *surface) Ready() error {
	return s.send(protocol.Ready())
}

// Type appends text to the live copy and reports the edit with the
// caret at the end, like keystrokes landing in the editor.
func (s *surface) Type(text string) error {
	s.mu.Lock()
	s.content += text
	s.selStart = len(s.content)
	s.selEnd = s.selStart
	content := s.content
	sel := &protocol.SelectionRange{Start: s.selStart, End: s.selEnd}
	s.changes++
	s.mu.Unlock()

	return s.send(protocol.NewChanged(content, sel))
}

// Set replaces the live copy wholesale and reports it.
func (s *surface) Set(content string) error {
	s.mu.Lock()
	s.content = content
	s.selStart = len(content)
	s.selEnd = s.selStart
	sel := &protocol.SelectionRange{Start: s.selStart, End: s.selEnd}
	s.changes++
	s.mu.Unlock()

	return s.send(protocol.NewChanged(content, sel))
}

// Select moves the reported selection without an edit. It rides along
// on the next changed message.
func (s *surface) Select(start, end int) {
	s.mu.Lock()
	s.selStart = start
	s.selEnd = end
	s.mu.Unlock()
}

// Content returns the live copy.
func (s *surface) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content
}

// Counts returns how many replaces were adopted and changes reported.
func (s *surface) Counts() (replaces, changes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaces, s.changes
}

// WaitReplace blocks until a replace is adopted, returning its
// content. ok is false on timeout or a dead connection.
func (s *surface) WaitReplace(timeout time.Duration) (content string, ok bool) {
	select {
	case content = <-s.replaceCh:
		return content, true
	case <-s.closed:
		return "", false
	case <-time.After(timeout):
		return "", false
	}
}

// WaitClosed blocks until the service drops the connection.
func (s *surface) WaitClosed(timeout time.Duration) bool {
	select {
	case <-s.closed:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Close drops the connection from the surface side.
func (s *surface) Close() {
	s.closeOnce.Do(func() { s.conn.Close() })
}

func (s *surface) send(msg protocol.Message) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *surface) pump() {
	defer close(s.closed)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := protocol.Decode(data)
		if err != nil {
			log.Printf("surface: dropping malformed frame: %v", err)
			continue
		}
		if msg.Type != protocol.TypeReplace {
			log.Printf("surface: ignoring %s message", msg.Type)
			continue
		}
		s.adopt(msg.Replace)
	}
}

// adopt applies a replace to the live copy, honors the advisory caret,
// and fires the surface's own change event when echo is on.
func (s *surface) adopt(payload *protocol.ReplacePayload) {
	s.mu.Lock()
	s.content = payload.Content
	if payload.Caret != nil && *payload.Caret <= len(payload.Content) {
		s.selStart = *payload.Caret
		s.selEnd = *payload.Caret
	} else {
		s.selStart = len(payload.Content)
		s.selEnd = s.selStart
	}
	s.replaces++
	echo := s.echo
	content := s.content
	sel := &protocol.SelectionRange{Start: s.selStart, End: s.selEnd}
	s.mu.Unlock()

	select {
	case s.replaceCh <- content:
	default:
	}

	if echo {
		if err := s.send(protocol.NewChanged(content, sel)); err != nil {
			log.Printf("surface: echo failed: %v", err)
		}
	}
}
