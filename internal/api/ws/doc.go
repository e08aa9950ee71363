// Package ws carries the editor protocol between sessions and their
// sandboxed surfaces over WebSocket connections.
//
// A surface attaches with GET /editors/:id/attach. The handler
// upgrades the request, binds the socket to the session as its
// transport channel, and pumps frames until the connection dies. Each
// frame is one protocol message; malformed frames are counted and
// dropped without killing the connection, while frames over the
// configured size limit tear it down.
//
// Message Types (Surface → Service):
//   - ready: surface finished initializing
//   - changed: the live copy was edited
//   - error: surface-side failure
//
// Message Types (Service → Surface):
//   - replace: adopt new content, with an advisory caret
//
// One surface per session: a second handshake is refused with 409
// while an attachment is live. Closing the session closes the socket;
// closing the socket detaches the session, which a later surface can
// attach to again.
//
// Example Usage:
//
//	handler := ws.NewHandler(editorMgr, metrics, cfg.WS, log)
//	router.GET("/editors/:id/attach", handler.Attach)
package ws
