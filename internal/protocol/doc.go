/*
Package protocol defines the message set exchanged between the host
service and a sandboxed editor surface.

# Overview

The boundary is message-only: no shared memory, no return values, no
delivery guarantee. The protocol is a closed tagged union over a JSON
envelope. Anything outside the closed set, and any payload that does
not validate, is rejected at the boundary so the synchronization core
only ever sees well-formed messages.

# Message Set

Sandbox to host:

	ready                 editor surface finished initializing
	changed               live copy mutated (content + optional selection)
	error                 sandbox-side failure report

Host to sandbox:

	replace               force the live copy to the given content,
	                      with an optional advisory caret position

# Wire Format

	{"type": "changed", "payload": {"content": "<p>…</p>", "selection": {"start": 3, "end": 9}}}

Encoding and decoding use sonic. Decode validates the type tag, the
payload shape, and field ranges; Encode refuses unions whose payload
does not match the type tag.
*/
package protocol
