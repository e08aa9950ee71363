// Package main is a headless sandbox surface for exercising a running
// bridge server end to end.
//
// The simulator stands in for the real embedded editor: it creates a
// session over REST, attaches to it over WebSocket, announces ready,
// and then behaves like a surface, reporting edits and adopting
// replaces. With -echo (the default) every adopted replace is reported
// back as an edit, the way a real editor fires its change event on a
// programmatic update, so the server's in-sync skip detection gets
// exercised too.
//
// The built-in scenario types a short burst of edits, verifies the
// canonical copy converged, pushes a host-side replace, and verifies
// the surface adopted it. Custom scenarios are JavaScript files run
// with -script:
//
//	surface.type(" and catering");   // report an edit
//	sleep(500);
//	if (host.get() !== surface.content()) fail("diverged");
//	host.put("<p>Reset</p>");
//	if (surface.waitReplace(2000) === null) fail("no replace");
//	console.log("done");
//
// Scripts see surface (type, set, select, content, waitReplace), host
// (get, put, close), session.id, sleep(ms), fail(msg), and console.
//
// Usage:
//
//	# Built-in scenario against a local server
//	./sandbox-sim
//
//	# Custom scenario, keeping the session afterwards
//	./sandbox-sim -script burst.js -keep
package main
