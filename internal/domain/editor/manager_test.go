package editor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/venuely/editor-bridge/internal/bridge"
	"github.com/venuely/editor-bridge/internal/drafts"
	"github.com/venuely/editor-bridge/internal/profile"
	"github.com/venuely/editor-bridge/internal/protocol"
	"github.com/venuely/editor-bridge/internal/shared/clock"
)

// surface scripts the sandbox end of an attachment.
type surface struct {
	ch bridge.Channel

	mu       sync.Mutex
	received []protocol.Message
}

func newSurface() (*surface, bridge.Channel) {
	host, sandbox := bridge.Pair()
	s := &surface{ch: sandbox}
	sandbox.OnReceive(func(msg protocol.Message) {
		s.mu.Lock()
		s.received = append(s.received, msg)
		s.mu.Unlock()
	})
	return s, host
}

func (s *surface) ready()              { _ = s.ch.Send(protocol.Ready()) }
func (s *surface) edit(content string) { _ = s.ch.Send(protocol.NewChanged(content, nil)) }
func (s *surface) fail(detail string)  { _ = s.ch.Send(protocol.NewError(detail)) }

func (s *surface) replaces() []protocol.ReplacePayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []protocol.ReplacePayload
	for _, msg := range s.received {
		if msg.Type == protocol.TypeReplace && msg.Replace != nil {
			out = append(out, *msg.Replace)
		}
	}
	return out
}

type managerFixture struct {
	mgr     *Manager
	journal *drafts.Journal
	clk     *clock.FakeClock
}

func newManagerFixture(t *testing.T, opts Options) *managerFixture {
	t.Helper()
	clk := clock.Fake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	journal, err := drafts.NewJournal(t.TempDir(), clk, nil)
	if err != nil {
		t.Fatalf("NewJournal failed: %v", err)
	}
	return &managerFixture{
		mgr:     NewManager(opts, profile.NewRegistry(nil), journal, clk, nil),
		journal: journal,
		clk:     clk,
	}
}

func TestCreateSession(t *testing.T) {
	t.Run("default profile", func(t *testing.T) {
		f := newManagerFixture(t, Options{})
		s, err := f.mgr.Create(CreateParams{})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if s.ProfileID != "venue" {
			t.Errorf("profile = %s, want venue", s.ProfileID)
		}
		if s.State != StateDetached {
			t.Errorf("state = %s, want detached", s.State)
		}
		if !strings.HasPrefix(s.ID, "ed_") {
			t.Errorf("id = %s, want ed_ prefix", s.ID)
		}
		if s.Placeholder == "" {
			t.Error("placeholder not defaulted from profile")
		}
	})

	t.Run("explicit profile and placeholder", func(t *testing.T) {
		f := newManagerFixture(t, Options{})
		s, err := f.mgr.Create(CreateParams{
			ProfileID:      "event",
			InitialContent: "<p>June lineup</p>",
			Placeholder:    "Start the program here.",
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if s.ProfileID != "event" || s.Content != "<p>June lineup</p>" {
			t.Errorf("session = %+v", s)
		}
		if s.Placeholder != "Start the program here." {
			t.Errorf("placeholder = %q", s.Placeholder)
		}
	})

	t.Run("initial content sanitized", func(t *testing.T) {
		f := newManagerFixture(t, Options{})
		s, err := f.mgr.Create(CreateParams{
			ProfileID:      "event",
			InitialContent: `<p>safe</p><script>alert(1)</script>`,
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if strings.Contains(s.Content, "script") {
			t.Errorf("content kept script: %q", s.Content)
		}
	})

	t.Run("unknown profile", func(t *testing.T) {
		f := newManagerFixture(t, Options{})
		if _, err := f.mgr.Create(CreateParams{ProfileID: "missing"}); !errors.Is(err, profile.ErrNotFound) {
			t.Errorf("err = %v, want profile.ErrNotFound", err)
		}
	})

	t.Run("session limit", func(t *testing.T) {
		f := newManagerFixture(t, Options{MaxSessions: 1})
		if _, err := f.mgr.Create(CreateParams{}); err != nil {
			t.Fatalf("first Create failed: %v", err)
		}
		if _, err := f.mgr.Create(CreateParams{}); !errors.Is(err, ErrSessionLimit) {
			t.Errorf("err = %v, want ErrSessionLimit", err)
		}
	})

	t.Run("content over profile limit", func(t *testing.T) {
		f := newManagerFixture(t, Options{})
		reg := profile.NewRegistry(nil)
		if err := reg.Register(&profile.Profile{
			ID: "tiny", Name: "Tiny", SanitizePolicy: "none", MaxContentBytes: 8,
		}); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		f.mgr.profiles = reg

		_, err := f.mgr.Create(CreateParams{ProfileID: "tiny", InitialContent: "<p>far too long</p>"})
		if !errors.Is(err, ErrContentTooLarge) {
			t.Errorf("err = %v, want ErrContentTooLarge", err)
		}
	})
}

func TestAttachLifecycle(t *testing.T) {
	f := newManagerFixture(t, Options{})
	s, err := f.mgr.Create(CreateParams{ProfileID: "event", InitialContent: "<p>venue copy</p>"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	sf, host := newSurface()
	att, err := f.mgr.Attach(s.ID, host)
	if err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	got, _ := f.mgr.Get(s.ID)
	if got.State != StateAttached || got.AttachmentID != att.ID {
		t.Fatalf("session after attach = %+v", got)
	}
	if !strings.HasPrefix(att.ID, "att_") {
		t.Errorf("attachment id = %s, want att_ prefix", att.ID)
	}

	// One surface at a time.
	_, otherHost := newSurface()
	if _, err := f.mgr.Attach(s.ID, otherHost); !errors.Is(err, ErrAttachmentConflict) {
		t.Errorf("second Attach = %v, want ErrAttachmentConflict", err)
	}

	// Ready replays the canonical document.
	sf.ready()
	replaces := sf.replaces()
	if len(replaces) != 1 || replaces[0].Content != "<p>venue copy</p>" {
		t.Fatalf("replaces after ready = %v", replaces)
	}

	// An edit lands on the canonical content and is journaled.
	sf.edit("<p>venue copy, richer</p>")
	f.clk.Advance(bridge.DefaultDebounceInterval)

	got, _ = f.mgr.Get(s.ID)
	if got.Content != "<p>venue copy, richer</p>" || got.Changes != 1 {
		t.Errorf("after edit: content=%q changes=%d", got.Content, got.Changes)
	}
	draft, err := f.journal.Load(s.ID)
	if err != nil || draft.Content != "<p>venue copy, richer</p>" {
		t.Errorf("journal draft = %+v, err = %v", draft, err)
	}

	// Detach keeps the document and a final sync snapshot.
	att.Close()
	got, _ = f.mgr.Get(s.ID)
	if got.State != StateDetached || got.AttachmentID != "" {
		t.Fatalf("session after detach = %+v", got)
	}
	if got.Sync == nil || got.Sync.ChangesForwarded != 1 || got.Sync.ReplacesSent != 1 {
		t.Errorf("sync snapshot = %+v", got.Sync)
	}
	if got.Content != "<p>venue copy, richer</p>" {
		t.Errorf("content lost on detach: %q", got.Content)
	}

	// Re-attach starts a fresh ready cycle with the preserved content.
	sf2, host2 := newSurface()
	if _, err := f.mgr.Attach(s.ID, host2); err != nil {
		t.Fatalf("re-Attach failed: %v", err)
	}
	sf2.ready()
	replaces = sf2.replaces()
	if len(replaces) != 1 || replaces[0].Content != "<p>venue copy, richer</p>" {
		t.Fatalf("replay after re-attach = %v", replaces)
	}
	got, _ = f.mgr.Get(s.ID)
	if got.Attaches != 2 {
		t.Errorf("attaches = %d, want 2", got.Attaches)
	}
}

func TestSetContent(t *testing.T) {
	t.Run("detached", func(t *testing.T) {
		f := newManagerFixture(t, Options{})
		s, _ := f.mgr.Create(CreateParams{ProfileID: "event"})

		got, err := f.mgr.SetContent(s.ID, "<p>from api</p>")
		if err != nil {
			t.Fatalf("SetContent failed: %v", err)
		}
		if got.Content != "<p>from api</p>" || got.Writes != 1 {
			t.Errorf("session = %+v", got)
		}
		draft, err := f.journal.Load(s.ID)
		if err != nil || draft.Content != "<p>from api</p>" {
			t.Errorf("journal = %+v, err = %v", draft, err)
		}
	})

	t.Run("attached forwards to surface", func(t *testing.T) {
		f := newManagerFixture(t, Options{})
		s, _ := f.mgr.Create(CreateParams{ProfileID: "event"})
		sf, host := newSurface()
		if _, err := f.mgr.Attach(s.ID, host); err != nil {
			t.Fatalf("Attach failed: %v", err)
		}
		sf.ready()

		if _, err := f.mgr.SetContent(s.ID, "<p>pushed</p>"); err != nil {
			t.Fatalf("SetContent failed: %v", err)
		}
		replaces := sf.replaces()
		if len(replaces) != 1 || replaces[0].Content != "<p>pushed</p>" {
			t.Errorf("replaces = %v", replaces)
		}
	})

	t.Run("sanitized at the boundary", func(t *testing.T) {
		f := newManagerFixture(t, Options{})
		s, _ := f.mgr.Create(CreateParams{ProfileID: "event"})
		got, err := f.mgr.SetContent(s.ID, `<p>ok</p><script>x()</script>`)
		if err != nil {
			t.Fatalf("SetContent failed: %v", err)
		}
		if strings.Contains(got.Content, "script") {
			t.Errorf("content kept script: %q", got.Content)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		f := newManagerFixture(t, Options{})
		if _, err := f.mgr.SetContent("ed_missing", "x"); !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestCloseSession(t *testing.T) {
	f := newManagerFixture(t, Options{})
	s, _ := f.mgr.Create(CreateParams{ProfileID: "event", InitialContent: "<p>x</p>"})
	sf, host := newSurface()
	att, err := f.mgr.Attach(s.ID, host)
	if err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	sf.ready()

	if err := f.mgr.Close(s.ID); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	got, err := f.mgr.Get(s.ID)
	if err != nil {
		t.Fatalf("closed session unreadable: %v", err)
	}
	if got.State != StateClosed {
		t.Errorf("state = %s, want closed", got.State)
	}

	if _, err := f.mgr.SetContent(s.ID, "<p>y</p>"); !errors.Is(err, ErrClosed) {
		t.Errorf("SetContent = %v, want ErrClosed", err)
	}
	_, host2 := newSurface()
	if _, err := f.mgr.Attach(s.ID, host2); !errors.Is(err, ErrClosed) {
		t.Errorf("Attach = %v, want ErrClosed", err)
	}
	if _, err := f.journal.Load(s.ID); !errors.Is(err, drafts.ErrNotFound) {
		t.Errorf("draft survived close: %v", err)
	}

	// Idempotent, and the transport closing afterwards is harmless.
	if err := f.mgr.Close(s.ID); err != nil {
		t.Errorf("second Close = %v", err)
	}
	att.Close()
	if got, _ := f.mgr.Get(s.ID); got.State != StateClosed {
		t.Errorf("state flipped by late detach: %s", got.State)
	}
}

func TestSurfaceInitFailure(t *testing.T) {
	f := newManagerFixture(t, Options{})
	s, _ := f.mgr.Create(CreateParams{ProfileID: "event"})
	sf, host := newSurface()
	if _, err := f.mgr.Attach(s.ID, host); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	sf.fail("renderer crashed")

	got, _ := f.mgr.Get(s.ID)
	if got.State != StateDetached {
		t.Fatalf("state after surface failure = %s, want detached", got.State)
	}

	// The surface can try again.
	sf2, host2 := newSurface()
	if _, err := f.mgr.Attach(s.ID, host2); err != nil {
		t.Fatalf("re-Attach failed: %v", err)
	}
	sf2.ready()
	if got, _ := f.mgr.Get(s.ID); got.State != StateAttached {
		t.Errorf("state = %s, want attached", got.State)
	}
}

func TestListSessions(t *testing.T) {
	f := newManagerFixture(t, Options{})
	a, _ := f.mgr.Create(CreateParams{ProfileID: "event"})
	b, _ := f.mgr.Create(CreateParams{ProfileID: "venue"})
	_, host := newSurface()
	if _, err := f.mgr.Attach(b.ID, host); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	all := f.mgr.List(nil)
	if len(all) != 2 {
		t.Fatalf("List = %d sessions, want 2", len(all))
	}
	if all[0].ID != a.ID || all[1].ID != b.ID {
		t.Errorf("order = %s, %s (ULIDs sort by creation)", all[0].ID, all[1].ID)
	}

	attached := StateAttached
	got := f.mgr.List(&attached)
	if len(got) != 1 || got[0].ID != b.ID {
		t.Errorf("filtered = %v", got)
	}
}

func TestReap(t *testing.T) {
	f := newManagerFixture(t, Options{IdleTTL: 10 * time.Minute, ClosedRetention: 5 * time.Minute})

	idle, _ := f.mgr.Create(CreateParams{ProfileID: "event"})
	active, _ := f.mgr.Create(CreateParams{ProfileID: "event"})
	closed, _ := f.mgr.Create(CreateParams{ProfileID: "event"})

	_, host := newSurface()
	if _, err := f.mgr.Attach(active.ID, host); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	if err := f.mgr.Close(closed.ID); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f.clk.Advance(11 * time.Minute)
	f.mgr.reap(f.clk.Now())

	if got, _ := f.mgr.Get(idle.ID); got.State != StateClosed {
		t.Errorf("idle session state = %s, want closed", got.State)
	}
	if got, _ := f.mgr.Get(active.ID); got.State != StateAttached {
		t.Errorf("attached session state = %s, want attached", got.State)
	}
	if _, err := f.mgr.Get(closed.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("closed session survived retention: %v", err)
	}
	if _, err := f.journal.Load(idle.ID); !errors.Is(err, drafts.ErrNotFound) {
		t.Errorf("idle session draft survived: %v", err)
	}

	stats := f.mgr.Stats()
	if stats.ReapedTotal != 1 {
		t.Errorf("ReapedTotal = %d, want 1", stats.ReapedTotal)
	}

	// The idle-closed record itself ages out next.
	f.clk.Advance(5 * time.Minute)
	f.mgr.reap(f.clk.Now())
	if _, err := f.mgr.Get(idle.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("idle session record survived retention: %v", err)
	}
}

func TestRecoverDrafts(t *testing.T) {
	f := newManagerFixture(t, Options{})

	if err := f.journal.Save("ed_one", "event", "<p>saved program</p>"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := f.journal.Save("ed_two", "discontinued", "<p>orphan</p>"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	n, err := f.mgr.RecoverDrafts()
	if err != nil {
		t.Fatalf("RecoverDrafts failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("recovered = %d, want 2", n)
	}

	one, err := f.mgr.Get("ed_one")
	if err != nil || one.Content != "<p>saved program</p>" || one.ProfileID != "event" {
		t.Errorf("recovered session = %+v, err = %v", one, err)
	}
	two, err := f.mgr.Get("ed_two")
	if err != nil {
		t.Fatalf("Get(ed_two) = %v", err)
	}
	if two.ProfileID != "venue" {
		t.Errorf("orphan profile = %s, want fallback venue", two.ProfileID)
	}
	if two.State != StateDetached {
		t.Errorf("state = %s, want detached", two.State)
	}

	// Idempotent across repeated boots.
	if n, _ := f.mgr.RecoverDrafts(); n != 0 {
		t.Errorf("second recovery = %d, want 0", n)
	}
	if got := f.mgr.Stats().RecoveredTotal; got != 2 {
		t.Errorf("RecoveredTotal = %d, want 2", got)
	}
}

func TestManagerStats(t *testing.T) {
	f := newManagerFixture(t, Options{})
	a, _ := f.mgr.Create(CreateParams{})
	b, _ := f.mgr.Create(CreateParams{})
	_, _ = a, b

	_, host := newSurface()
	if _, err := f.mgr.Attach(a.ID, host); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	stats := f.mgr.Stats()
	if stats.Total != 2 || stats.Attached != 1 || stats.Detached != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.CreatedTotal != 2 {
		t.Errorf("CreatedTotal = %d, want 2", stats.CreatedTotal)
	}
}

func TestShutdown(t *testing.T) {
	f := newManagerFixture(t, Options{})
	s, _ := f.mgr.Create(CreateParams{ProfileID: "event"})
	sf, host := newSurface()
	if _, err := f.mgr.Attach(s.ID, host); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	sf.ready()

	f.mgr.Shutdown()

	got, _ := f.mgr.Get(s.ID)
	if got.State != StateDetached {
		t.Errorf("state after shutdown = %s, want detached", got.State)
	}
	if n := f.clk.PendingCount(); n != 0 {
		t.Errorf("pending timers after shutdown = %d, want 0", n)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newManagerFixture(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		f.mgr.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on context cancel")
	}
}
