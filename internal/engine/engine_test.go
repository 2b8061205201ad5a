package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/rcliao/eliza/internal/model"
	"github.com/rcliao/eliza/internal/script"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testScript = `
initial: Hello.
final: Goodbye.
quit: bye
pre: i'm i am
post: my your
post: i you
post: am are
synon: sad unhappy depressed
key: xnone
  decomp: *
    reasmb: Please go on.
    reasmb: Tell me more.
key: sad 5
  decomp: * i am * sad *
    reasmb: why do you feel (2) ?
key: feel 4
  decomp: * @sad *
    reasmb: Is it common to feel (2) ?
key: rot
  decomp: *
    reasmb: A
    reasmb: B
    reasmb: C
key: other
  decomp: *
    reasmb: Other.
key: mom
  decomp: * mom *
    reasmb: goto family
key: family
  decomp: * mom *
    reasmb: Tell me more about your family (2) .
key: my 2
  decomp: $ * my *
    reasmb: Earlier you spoke of your (2) .
  decomp: * my *
    reasmb: Your (2) ?
key: dream
  decomp: *
    reasmb: goto dream
`

// listMemory is a Memory that pops in save order so tests are deterministic.
type listMemory struct {
	entries []model.MemoryEntry
}

func (m *listMemory) Save(ctx context.Context, phrase, response string) error {
	m.entries = append(m.entries, model.MemoryEntry{Phrase: phrase, Response: response})
	return nil
}

func (m *listMemory) PopRandom(ctx context.Context) (model.MemoryEntry, bool, error) {
	if len(m.entries) == 0 {
		return model.MemoryEntry{}, false, nil
	}
	e := m.entries[0]
	m.entries = m.entries[1:]
	return e, true, nil
}

func (m *listMemory) Len(ctx context.Context) (int, error) {
	return len(m.entries), nil
}

func newTestEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	rules, err := script.Parse(strings.NewReader(testScript))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opts.Seed == 0 {
		opts.Seed = 1
	}
	e, err := New(rules, opts, nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

func newTestSession(t *testing.T, opts Options) (*Session, *listMemory) {
	t.Helper()
	mem := &listMemory{}
	return newTestEngine(t, opts).NewSession(mem, nil), mem
}

func respond(t *testing.T, s *Session, text string) Reply {
	t.Helper()
	r, err := s.Respond(context.Background(), text)
	if err != nil {
		t.Fatalf("respond %q: %v", text, err)
	}
	return r
}

func TestRespond_EndToEnd(t *testing.T) {
	s, _ := newTestSession(t, DefaultOptions())
	r := respond(t, s, "I am feeling very sad today")
	want := Reply{Text: "why do you feel feeling very ?", Source: SourceKey, Key: "sad"}
	if diff := cmp.Diff(want, r); diff != "" {
		t.Errorf("reply mismatch (-want +got):\n%s", diff)
	}
}

func TestRespond_PreSubstitution(t *testing.T) {
	s, _ := newTestSession(t, DefaultOptions())
	r := respond(t, s, "I'm so sad lately")
	if r.Text != "why do you feel so ?" {
		t.Errorf("got %q", r.Text)
	}
}

func TestRespond_SynonymKey(t *testing.T) {
	s, _ := newTestSession(t, DefaultOptions())
	r := respond(t, s, "I feel UNHAPPY")
	if r.Text != "Is it common to feel UNHAPPY ?" {
		t.Errorf("got %q", r.Text)
	}
}

func TestRespond_RoundRobin(t *testing.T) {
	s, _ := newTestSession(t, DefaultOptions())
	var got []string
	for _, in := range []string{"rot", "other", "rot", "rot", "other", "rot"} {
		if r := respond(t, s, in); r.Key == "rot" {
			got = append(got, r.Text)
		}
	}
	if diff := cmp.Diff([]string{"A", "B", "C", "A"}, got); diff != "" {
		t.Errorf("rotation mismatch (-want +got):\n%s", diff)
	}
}

func TestRespond_FreshSessionCursors(t *testing.T) {
	e := newTestEngine(t, DefaultOptions())
	s1 := e.NewSession(&listMemory{}, nil)
	respond(t, s1, "rot")
	respond(t, s1, "rot")

	s2 := e.NewSession(&listMemory{}, nil)
	if r := respond(t, s2, "rot"); r.Text != "A" {
		t.Errorf("fresh session got %q, want A", r.Text)
	}
	if r := respond(t, s1, "rot"); r.Text != "C" {
		t.Errorf("first session got %q, want C", r.Text)
	}
}

func TestRespond_RestoresState(t *testing.T) {
	e := newTestEngine(t, DefaultOptions())
	s1 := e.NewSession(&listMemory{}, nil)
	respond(t, s1, "rot")
	respond(t, s1, "rot")

	st := s1.State("alice")
	if diff := cmp.Diff(map[string]int{"rot/0": 2}, st.Cursors); diff != "" {
		t.Errorf("cursors mismatch (-want +got):\n%s", diff)
	}
	if st.Turns != 2 || st.LastInput != "rot" || st.NS != "alice" {
		t.Errorf("state = %+v", st)
	}

	st.Cursors["gone/3"] = 7
	s2 := e.NewSession(&listMemory{}, &st)
	if r := respond(t, s2, "rot"); r.Text != "C" {
		t.Errorf("restored session got %q, want C", r.Text)
	}
	if s2.Turns() != 3 {
		t.Errorf("turns = %d, want 3", s2.Turns())
	}
}

func TestRespond_RedirectUsesOriginalWords(t *testing.T) {
	s, _ := newTestSession(t, DefaultOptions())
	r := respond(t, s, "i miss mom today")
	if r.Text != "Tell me more about your family today ." {
		t.Errorf("got %q", r.Text)
	}
	if r.Key != "mom" {
		t.Errorf("key = %q, want the triggering key", r.Key)
	}
}

func TestRespond_RedirectDepth(t *testing.T) {
	s, _ := newTestSession(t, DefaultOptions())
	_, err := s.Respond(context.Background(), "dream")
	if !errors.Is(err, model.ErrRedirectDepth) {
		t.Errorf("expected ErrRedirectDepth, got %v", err)
	}
}

func TestRespond_SaveAndContinue(t *testing.T) {
	s, mem := newTestSession(t, DefaultOptions())

	r := respond(t, s, "my dog is sick")
	if r.Text != "Your dog is sick ?" {
		t.Errorf("got %q", r.Text)
	}
	want := []model.MemoryEntry{{Phrase: "my dog is sick", Response: "Earlier you spoke of your dog is sick ."}}
	if diff := cmp.Diff(want, mem.entries); diff != "" {
		t.Errorf("memory mismatch (-want +got):\n%s", diff)
	}

	// No key matches: the saved response comes back verbatim.
	r = respond(t, s, "hello there")
	if r.Text != "Earlier you spoke of your dog is sick ." || r.Source != SourceMemory {
		t.Errorf("got %+v", r)
	}
	if n, _ := mem.Len(context.Background()); n != 0 {
		t.Errorf("memory len = %d after pop", n)
	}

	r = respond(t, s, "hello again")
	if r.Text != "Please go on." || r.Source != SourceDefault {
		t.Errorf("got %+v", r)
	}
	r = respond(t, s, "and again")
	if r.Text != "Tell me more." {
		t.Errorf("default rotation got %q", r.Text)
	}
}

func TestRespond_SaveAndReply(t *testing.T) {
	opts := DefaultOptions()
	opts.SaveMode = SaveAndReply
	opts.Phrase = PhraseCaptures
	s, mem := newTestSession(t, opts)

	r := respond(t, s, "my dog is sick")
	if r.Text != "Earlier you spoke of your dog is sick ." {
		t.Errorf("got %q", r.Text)
	}
	if len(mem.entries) != 1 || mem.entries[0].Phrase != "dog is sick" {
		t.Errorf("memory = %+v", mem.entries)
	}
}

func TestRespond_Recall(t *testing.T) {
	opts := DefaultOptions()
	opts.RecallPrompts = []string{"Earlier: %s"}
	s, mem := newTestSession(t, opts)

	respond(t, s, "my dog is sick")
	r := respond(t, s, "Yes")
	if r.Text != "Earlier: my dog is sick" || r.Source != SourceRecall {
		t.Errorf("got %+v", r)
	}
	if len(mem.entries) != 0 {
		t.Errorf("expected recall to pop the entry")
	}

	// Empty memory: the answer goes through normal matching.
	r = respond(t, s, "yes")
	if r.Source != SourceDefault {
		t.Errorf("got %+v", r)
	}
}

func TestRespond_RecallNeedsSingleWord(t *testing.T) {
	s, mem := newTestSession(t, DefaultOptions())
	respond(t, s, "my dog is sick")

	r := respond(t, s, "yes please")
	if r.Source != SourceMemory {
		t.Errorf("expected memory fallback, got %+v", r)
	}
	if len(mem.entries) != 0 {
		t.Errorf("memory = %+v", mem.entries)
	}
}

func TestRespond_Quit(t *testing.T) {
	s, _ := newTestSession(t, DefaultOptions())
	r := respond(t, s, "  BYE ")
	if !r.Done || r.Text != "" || r.Source != SourceQuit {
		t.Errorf("got %+v", r)
	}
	if s.Turns() != 0 {
		t.Errorf("quit should not count as a turn")
	}
}

func TestRespond_EmptyInput(t *testing.T) {
	s, _ := newTestSession(t, DefaultOptions())
	r := respond(t, s, "   ")
	if r.Text != "Please go on." {
		t.Errorf("got %q", r.Text)
	}
}

func TestGreetings(t *testing.T) {
	s, _ := newTestSession(t, DefaultOptions())
	if got := s.Initial(); got != "Hello." {
		t.Errorf("initial = %q", got)
	}
	if got := s.Final(); got != "Goodbye." {
		t.Errorf("final = %q", got)
	}
}

func TestNew_RejectsInvalidRules(t *testing.T) {
	rules, err := script.Parse(strings.NewReader("key: hello\n  decomp: *\n    reasmb: hi\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := New(rules, DefaultOptions(), nil); !errors.Is(err, model.ErrMissingDefaultKey) {
		t.Errorf("expected ErrMissingDefaultKey, got %v", err)
	}
}

func TestRespond_DefaultPatternMissLeavesGroupsEmpty(t *testing.T) {
	const src = `
initial: Hello.
final: Goodbye.
quit: bye
key: xnone
  decomp: * i *
    reasmb: You said (2) .
`
	rules, err := script.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	e, err := New(rules, Options{Seed: 1}, nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	tests := []struct {
		input string
		want  string
	}{
		{"hello there", "You said ."},
		{"i like cats", "You said like cats ."},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			s := e.NewSession(&listMemory{}, nil)
			r := respond(t, s, tt.input)
			if r.Text != tt.want || r.Source != SourceDefault {
				t.Errorf("got %+v, want text %q", r, tt.want)
			}
		})
	}
}

type fakeCrisis struct{ trigger string }

func (f fakeCrisis) IsCrisis(ctx context.Context, text string) (bool, error) {
	return strings.Contains(text, f.trigger), nil
}

func (f fakeCrisis) Interview(ctx context.Context, text string) (string, error) {
	return "Please call someone now.", nil
}

type fakeSentiment float64

func (f fakeSentiment) Score(ctx context.Context, text string) (float64, error) {
	return float64(f), nil
}

type fakePhrases []string

func (f fakePhrases) NounPhrases(ctx context.Context, words []string) ([]string, error) {
	return f, nil
}

func TestRespond_Crisis(t *testing.T) {
	opts := DefaultOptions()
	opts.Crisis = fakeCrisis{trigger: "hopeless"}
	s, _ := newTestSession(t, opts)

	r := respond(t, s, "I am hopeless and sad")
	if r.Source != SourceCrisis || r.Text != "Please call someone now." {
		t.Errorf("got %+v", r)
	}
	if r := respond(t, s, "rot"); r.Text != "A" {
		t.Errorf("crisis turn should not touch rotation, got %q", r.Text)
	}
}

func TestRespond_EmpathyPrefix(t *testing.T) {
	opts := DefaultOptions()
	opts.Sentiment = fakeSentiment(-0.9)
	opts.EmpathyPrefix = "Sorry."
	s, _ := newTestSession(t, opts)

	r := respond(t, s, "I am feeling very sad today")
	if r.Text != "Sorry. why do you feel feeling very ?" {
		t.Errorf("got %q", r.Text)
	}

	opts.Sentiment = fakeSentiment(0.2)
	s, _ = newTestSession(t, opts)
	if r := respond(t, s, "rot"); r.Text != "A" {
		t.Errorf("neutral input got %q", r.Text)
	}
}

func TestRespond_SeedsMemoryFromNounPhrase(t *testing.T) {
	opts := DefaultOptions()
	opts.Phrases = fakePhrases{"the car"}
	opts.SeedPrompt = "About %s?"
	s, mem := newTestSession(t, opts)

	r := respond(t, s, "the car broke")
	if r.Source != SourceDefault {
		t.Errorf("got %+v", r)
	}
	want := []model.MemoryEntry{{Phrase: "the car", Response: "About the car?"}}
	if diff := cmp.Diff(want, mem.entries); diff != "" {
		t.Errorf("memory mismatch (-want +got):\n%s", diff)
	}

	r = respond(t, s, "whatever")
	if r.Text != "About the car?" || r.Source != SourceMemory {
		t.Errorf("got %+v", r)
	}
}
