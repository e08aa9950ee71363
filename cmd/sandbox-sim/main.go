package main

import (
	"context"
	"flag"
	"log"
	"time"
)

func main() {
	addr := flag.String("addr", "http://localhost:8085", "Bridge server base URL")
	profileID := flag.String("profile", "", "Profile id for the session (empty for server default)")
	content := flag.String("content", "<p>Draft venue pitch</p>", "Initial document content")
	scriptPath := flag.String("script", "", "JavaScript scenario file (empty runs the built-in scenario)")
	echo := flag.Bool("echo", true, "Re-report adopted replaces as edits, like a real editor")
	timeout := flag.Duration("timeout", 60*time.Second, "Overall scenario timeout")
	keep := flag.Bool("keep", false, "Leave the session open on exit")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	api := newAPIClient(*addr)

	sess, err := api.CreateSession(ctx, *profileID, *content)
	if err != nil {
		log.Fatalf("create session: %v", err)
	}
	log.Printf("session %s created (profile=%s)", sess.ID, sess.ProfileID)

	surf, err := attachSurface(*addr, sess.ID, *echo)
	if err != nil {
		log.Fatalf("attach surface: %v", err)
	}
	defer surf.Close()

	if err := surf.Ready(); err != nil {
		log.Fatalf("send ready: %v", err)
	}
	if *content != "" {
		seed, ok := surf.WaitReplace(5 * time.Second)
		if !ok {
			log.Fatalf("no seeding replace after ready")
		}
		log.Printf("seeded with %d bytes", len(seed))
	}

	if *scriptPath != "" {
		sc, err := newScenario(api, surf, sess.ID)
		if err != nil {
			log.Fatalf("scenario setup: %v", err)
		}
		if err := sc.Run(*scriptPath, *timeout); err != nil {
			log.Fatalf("scenario: %v", err)
		}
	} else {
		runDefaultScenario(ctx, api, surf, sess.ID)
	}

	if !*keep {
		if err := api.CloseSession(ctx, sess.ID); err != nil {
			log.Fatalf("close session: %v", err)
		}
		if !surf.WaitClosed(5 * time.Second) {
			log.Printf("warning: surface connection still open after close")
		}
	}

	printSummary(ctx, api, surf, sess.ID)
}

// runDefaultScenario types a short burst, verifies it converged, then
// pushes a host-side replace and verifies the surface adopted it.
func runDefaultScenario(ctx context.Context, api *apiClient, surf *surface, sessionID string) {
	words := []string{" Grand", " ballroom", " walkthrough"}
	for _, w := range words {
		if err := surf.Type(w); err != nil {
			log.Fatalf("type: %v", err)
		}
		time.Sleep(40 * time.Millisecond)
	}
	log.Printf("typed %d edits", len(words))

	// Let the debounce flush and the canonical copy settle.
	time.Sleep(1 * time.Second)

	canonical, digest, err := api.GetContent(ctx, sessionID)
	if err != nil {
		log.Fatalf("get content: %v", err)
	}
	if canonical != surf.Content() {
		log.Fatalf("diverged after typing:\n  canonical: %q\n  surface:   %q", canonical, surf.Content())
	}
	log.Printf("converged after typing (digest=%s)", digest)

	hostEdit := canonical + "<p>Amended by the booking team.</p>"
	if err := api.PutContent(ctx, sessionID, hostEdit); err != nil {
		log.Fatalf("put content: %v", err)
	}
	adopted, ok := surf.WaitReplace(5 * time.Second)
	if !ok {
		log.Fatalf("no replace after host edit")
	}
	if adopted != hostEdit {
		log.Fatalf("surface adopted wrong content:\n  want: %q\n  got:  %q", hostEdit, adopted)
	}
	log.Printf("host edit adopted by surface")

	// Give any echo of the adoption time to be skipped as in-sync.
	time.Sleep(1 * time.Second)
}

func printSummary(ctx context.Context, api *apiClient, surf *surface, sessionID string) {
	replaces, changes := surf.Counts()
	log.Printf("surface: %d replaces adopted, %d edits reported", replaces, changes)

	sess, err := api.GetSession(ctx, sessionID)
	if err != nil {
		log.Printf("session stats unavailable: %v", err)
		return
	}
	log.Printf("session: state=%s attaches=%d changes=%d writes=%d", sess.State, sess.Attaches, sess.Changes, sess.Writes)
	if sess.Sync != nil {
		log.Printf("sync: state=%s forwarded=%d coalesced=%d replaces=%d skipped_suppression=%d skipped_in_sync=%d transport_errors=%d",
			sess.Sync.State, sess.Sync.ChangesForwarded, sess.Sync.EditsCoalesced,
			sess.Sync.ReplacesSent, sess.Sync.SkippedSuppression, sess.Sync.SkippedInSync,
			sess.Sync.TransportErrors)
	}
}
