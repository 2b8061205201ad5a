package server

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/goleak"

	"github.com/rcliao/eliza/internal/engine"
	"github.com/rcliao/eliza/internal/script"
	"github.com/rcliao/eliza/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testScript = `
initial: Hello.
final: Goodbye.
quit: bye
key: xnone
  decomp: *
    reasmb: Please go on.
key: rot
  decomp: *
    reasmb: A
    reasmb: B
key: my 2
  decomp: $ * my *
    reasmb: Earlier you spoke of your (2) .
  decomp: * my *
    reasmb: Your (2) ?
`

func newTestEngine(t *testing.T, src string) *engine.Engine {
	t.Helper()
	rules, err := script.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	opts := engine.DefaultOptions()
	opts.Seed = 1
	e, err := engine.New(rules, opts, nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return New(newTestEngine(t, testScript), store.NewMemStore(rand.New(rand.NewSource(1))), nil)
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)

	info, greeting, err := s.Create(ctx, "alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if info.ID != "alice" || greeting != "Hello." {
		t.Errorf("got %+v %q", info, greeting)
	}

	turn, err := s.Respond(ctx, "alice", "my job is hard")
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if turn.Text != "Your job is hard ?" || turn.SessionID != "alice" {
		t.Errorf("got %+v", turn)
	}

	info, err = s.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if info.Turns != 1 || info.Memory != 1 || info.LastInput != "my job is hard" {
		t.Errorf("info = %+v", info)
	}

	final, err := s.Delete(ctx, "alice")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if final != "Goodbye." {
		t.Errorf("final = %q", final)
	}
	if _, err := s.Get(ctx, "alice"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
	if n, _ := s.store.Count(ctx, "alice"); n != 0 {
		t.Errorf("expected memory cleared, got %d", n)
	}
	if got := testutil.ToFloat64(s.metrics.ActiveSessions); got != 0 {
		t.Errorf("active sessions = %v", got)
	}
}

func TestCreate_GeneratesIDAndRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)

	info, _, err := s.Create(ctx, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(info.ID) != 26 {
		t.Errorf("expected a ULID, got %q", info.ID)
	}
	if _, _, err := s.Create(ctx, info.ID); !errors.Is(err, ErrSessionExists) {
		t.Errorf("expected ErrSessionExists, got %v", err)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)
	s.Create(ctx, "a")
	s.Create(ctx, "b")

	ta, _ := s.Respond(ctx, "a", "rot")
	ta2, _ := s.Respond(ctx, "a", "rot")
	tb, _ := s.Respond(ctx, "b", "rot")
	if ta.Text != "A" || ta2.Text != "B" || tb.Text != "A" {
		t.Errorf("got %q %q %q", ta.Text, ta2.Text, tb.Text)
	}

	s.Respond(ctx, "a", "my car broke")
	if n, _ := s.store.Count(ctx, "b"); n != 0 {
		t.Errorf("memory leaked across sessions: %d", n)
	}

	infos, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 {
		t.Errorf("expected 2 sessions, got %d", len(infos))
	}
	if got := testutil.ToFloat64(s.metrics.Turns.WithLabelValues("key")); got != 4 {
		t.Errorf("key turns = %v, want 4", got)
	}
}

func TestQuitEndsSession(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)
	s.Create(ctx, "a")

	turn, err := s.Respond(ctx, "a", "Bye")
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if !turn.Done || turn.Text != "Goodbye." {
		t.Errorf("got %+v", turn)
	}
	if _, err := s.Respond(ctx, "a", "hello"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after quit, got %v", err)
	}
}

func TestTurnAfterDeleteSavesNothing(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)
	if _, _, err := s.Create(ctx, "a"); err != nil {
		t.Fatalf("create: %v", err)
	}

	// A turn that looked the session up before it was deleted.
	c, err := s.lookup("a")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if _, err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := s.turn(ctx, "a", c, "my dog is sick"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
	n, err := s.store.Count(ctx, "a")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("deleted session namespace has %d entries", n)
	}
}

func TestSetEngineAffectsNewSessionsOnly(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)
	s.Create(ctx, "old")

	s.SetEngine(newTestEngine(t, `
key: xnone
  decomp: *
    reasmb: New rules.
`))
	s.Create(ctx, "new")

	old, _ := s.Respond(ctx, "old", "hmm")
	fresh, _ := s.Respond(ctx, "new", "hmm")
	if old.Text != "Please go on." || fresh.Text != "New rules." {
		t.Errorf("old=%q new=%q", old.Text, fresh.Text)
	}
}

func TestReload(t *testing.T) {
	s := newTestServer(t)
	before := s.Engine()

	s.reload(func() (*engine.Engine, error) { return nil, errors.New("broken script") })
	if s.Engine() != before {
		t.Error("failed reload must keep the previous engine")
	}
	if got := testutil.ToFloat64(s.metrics.Reloads.WithLabelValues("error")); got != 1 {
		t.Errorf("error reloads = %v", got)
	}

	next := newTestEngine(t, testScript)
	s.reload(func() (*engine.Engine, error) { return next, nil })
	if s.Engine() != next {
		t.Error("expected new engine after reload")
	}
}
