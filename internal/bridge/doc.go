/*
Package bridge keeps a host document in agreement with a live copy
inside an isolated editor sandbox.

# Overview

The two sides share nothing but an asynchronous, best-effort message
channel. Edits made in the sandbox debounce into a single host
notification per quiet period; values pushed by the host replace the
sandbox copy wholesale. Every forwarded value opens a short suppression
window so the other side reflecting it back is recognized as an echo
instead of a new update. Without that, a host that persists and
re-applies what it hears would ping-pong the same value forever.

# Lifecycle

A Bridge starts Uninitialized, moves to Initializing when a channel is
bound, and to Ready exactly once when the sandbox reports readiness.
A sandbox error during initialization is terminal (Failed); Dispose is
terminal from anywhere. Values set before Ready are queued, latest
wins, and applied with exactly one replace when readiness arrives.

# Concurrency

All state lives behind one mutex, the Go rendition of the original
single-threaded host environment. Timer callbacks revalidate a
generation counter and the state under the lock, so a stale fire after
a reset or teardown is a no-op. Host callbacks (OnChange, OnError,
OnStateChange) and channel sends always run outside the lock: a
callback may re-enter SetValue, and an in-process channel may deliver
the peer's reply on the calling goroutine.

# Usage

	b := bridge.New(bridge.Config{
		InitialContent: doc.Content,
		OnChange:       func(content string) { store.Save(doc.ID, content) },
		OnError:        func(err error) { log.Warn("editor failed", zap.Error(err)) },
	})
	host, sandbox := bridge.Pair()
	b.Bind(host)
	// wire sandbox to the editor surface ...
	b.SetValue(loaded)
	defer b.Dispose()
*/
package bridge
