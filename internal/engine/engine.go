package engine

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rcliao/eliza/internal/model"
	"github.com/rcliao/eliza/internal/script"
	"github.com/rcliao/eliza/internal/tokenizer"
)

// maxRedirectDepth bounds goto chains. Scripts whose keys redirect to each
// other would otherwise recurse forever.
const maxRedirectDepth = 32

// Source tells where a reply came from.
type Source string

const (
	SourceKey     Source = "key"
	SourceMemory  Source = "memory"
	SourceRecall  Source = "recall"
	SourceDefault Source = "default"
	SourceCrisis  Source = "crisis"
	SourceQuit    Source = "quit"
)

// Reply is the outcome of one turn. Done means the input was a quit phrase
// and the conversation is over; Text is empty then.
type Reply struct {
	Text   string `json:"text"`
	Done   bool   `json:"done"`
	Source Source `json:"source"`
	Key    string `json:"key,omitempty"`
}

// Engine holds the read-only rule tables and options shared by every
// session created from it.
type Engine struct {
	rules  *model.Rules
	opts   Options
	log    *zap.Logger
	affirm map[string]bool
}

// New validates rules and returns an engine over them. A nil logger
// disables logging.
func New(rules *model.Rules, opts Options, log *zap.Logger) (*Engine, error) {
	if err := script.Validate(rules); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	affirm := make(map[string]bool, len(opts.Affirmatives))
	for _, a := range opts.Affirmatives {
		affirm[strings.ToLower(a)] = true
	}
	return &Engine{rules: rules, opts: opts, log: log, affirm: affirm}, nil
}

// Rules returns the engine's tables.
func (e *Engine) Rules() *model.Rules {
	return e.rules
}

// Respond runs one conversational turn.
func (s *Session) Respond(ctx context.Context, text string) (Reply, error) {
	e := s.engine
	if e.rules.IsQuit(text) {
		e.log.Debug("quit phrase", zap.String("input", text))
		return Reply{Done: true, Source: SourceQuit}, nil
	}
	s.lastInput = text
	s.turns++

	if e.opts.Crisis != nil {
		crisis, err := e.opts.Crisis.IsCrisis(ctx, text)
		if err != nil {
			e.log.Warn("crisis detection failed", zap.Error(err))
		} else if crisis {
			reply, err := e.opts.Crisis.Interview(ctx, text)
			if err != nil {
				return Reply{}, fmt.Errorf("crisis flow: %w", err)
			}
			return Reply{Text: reply, Source: SourceCrisis}, nil
		}
	}

	words := tokenizer.Split(text)
	e.log.Debug("input", zap.Strings("words", words))

	if len(words) == 1 && e.affirm[strings.ToLower(words[0])] {
		entry, ok, err := s.mem.PopRandom(ctx)
		if err != nil {
			return Reply{}, fmt.Errorf("recall memory: %w", err)
		}
		if ok {
			e.log.Debug("recalling memory", zap.String("phrase", entry.Phrase))
			return Reply{Text: s.recallPrompt(entry.Phrase), Source: SourceRecall}, nil
		}
	}

	words = Substitute(words, e.rules.Pre)
	e.log.Debug("after pre-substitution", zap.Strings("words", words))

	keys := SelectKeys(words, e.rules)
	if ce := e.log.Check(zap.DebugLevel, "sorted keys"); ce != nil {
		names := make([]string, len(keys))
		for i, k := range keys {
			names[i] = fmt.Sprintf("%s:%d", k.Word, k.Weight)
		}
		ce.Write(zap.Strings("keys", names))
	}

	for _, k := range keys {
		out, err := s.matchKey(ctx, words, k, 0)
		if err != nil {
			return Reply{}, err
		}
		if len(out) > 0 {
			e.log.Debug("output from key", zap.String("key", k.Word), zap.Strings("output", out))
			return s.decorate(ctx, text, Reply{Text: tokenizer.Join(out), Source: SourceKey, Key: k.Word}), nil
		}
	}

	entry, ok, err := s.mem.PopRandom(ctx)
	if err != nil {
		return Reply{}, fmt.Errorf("fallback memory: %w", err)
	}
	var reply Reply
	if ok {
		e.log.Debug("output from memory", zap.String("response", entry.Response))
		reply = Reply{Text: entry.Response, Source: SourceMemory}
	} else {
		out, err := s.defaultReply(ctx, words)
		if err != nil {
			return Reply{}, err
		}
		e.log.Debug("output from default key", zap.Strings("output", out))
		reply = s.decorate(ctx, text, Reply{Text: tokenizer.Join(out), Source: SourceDefault, Key: model.DefaultKey})
	}

	if err := s.seedMemory(ctx, words); err != nil {
		return Reply{}, err
	}
	return reply, nil
}

// matchKey tries key's decompositions in order and returns the first
// reassembled reply. A nil result means nothing matched.
func (s *Session) matchKey(ctx context.Context, words []string, key *model.Key, depth int) ([]string, error) {
	e := s.engine
	if depth > maxRedirectDepth {
		return nil, fmt.Errorf("%w: at key %q", model.ErrRedirectDepth, key.Word)
	}

	for _, d := range key.Decompositions {
		caps, ok, err := Match(d.Pattern, words, e.rules.Synonyms)
		if err != nil {
			return nil, fmt.Errorf("decomp %s: %w", d.Ref, err)
		}
		if !ok {
			e.log.Debug("decomp did not match", zap.String("decomp", d.PatternString()))
			continue
		}

		tmpl := s.nextTemplate(d)
		if tmpl.Redirect != "" {
			target := e.rules.Key(tmpl.Redirect)
			if target == nil {
				return nil, fmt.Errorf("decomp %s: %w: %s", d.Ref, model.ErrUnknownRedirectTarget, tmpl.Redirect)
			}
			e.log.Debug("redirect", zap.String("from", key.Word), zap.String("to", target.Word))
			return s.matchKey(ctx, words, target, depth+1)
		}

		out, err := Reassemble(tmpl, caps, e.rules.Post)
		if err != nil {
			return nil, fmt.Errorf("decomp %s: %w", d.Ref, err)
		}

		if d.Save {
			phrase := s.phrase(words, caps)
			if err := s.mem.Save(ctx, phrase, tokenizer.Join(out)); err != nil {
				return nil, fmt.Errorf("save memory: %w", err)
			}
			e.log.Debug("saved to memory", zap.String("phrase", phrase))
			if e.opts.SaveMode == SaveAndContinue {
				continue
			}
		}
		return out, nil
	}
	return nil, nil
}

// defaultReply rotates through the default key's first decomposition. Its
// pattern is still matched so templates can refer to captures; when it does
// not match every group is empty.
func (s *Session) defaultReply(ctx context.Context, words []string) ([]string, error) {
	e := s.engine
	d := e.rules.Key(model.DefaultKey).Decompositions[0]
	caps, ok, err := Match(d.Pattern, words, e.rules.Synonyms)
	if err != nil {
		return nil, fmt.Errorf("decomp %s: %w", d.Ref, err)
	}
	if !ok {
		caps = make([][]string, d.CaptureCount())
	}

	tmpl := s.nextTemplate(d)
	if tmpl.Redirect != "" {
		target := e.rules.Key(tmpl.Redirect)
		if target == nil {
			return nil, fmt.Errorf("decomp %s: %w: %s", d.Ref, model.ErrUnknownRedirectTarget, tmpl.Redirect)
		}
		return s.matchKey(ctx, words, target, 1)
	}

	out, err := Reassemble(tmpl, caps, e.rules.Post)
	if err != nil {
		return nil, fmt.Errorf("decomp %s: %w", d.Ref, err)
	}
	return out, nil
}

func (s *Session) phrase(words []string, caps [][]string) string {
	if s.engine.opts.Phrase == PhraseCaptures {
		var parts []string
		for _, c := range caps {
			parts = append(parts, fragment(c, s.engine.rules.Post)...)
		}
		return strings.TrimSpace(tokenizer.Join(parts))
	}
	return strings.TrimSpace(tokenizer.Join(words))
}

func (s *Session) recallPrompt(phrase string) string {
	prompts := s.engine.opts.RecallPrompts
	if len(prompts) == 0 {
		return phrase
	}
	return strings.Replace(prompts[s.rng.Intn(len(prompts))], RecallPlaceholder, phrase, 1)
}

// decorate prefixes the empathy line when the input scores as negative.
// Scoring failures leave the reply as it is.
func (s *Session) decorate(ctx context.Context, text string, r Reply) Reply {
	e := s.engine
	if e.opts.Sentiment == nil || e.opts.EmpathyPrefix == "" {
		return r
	}
	score, err := e.opts.Sentiment.Score(ctx, text)
	if err != nil {
		e.log.Warn("sentiment scoring failed", zap.Error(err))
		return r
	}
	if score <= e.opts.NegativeThreshold {
		r.Text = e.opts.EmpathyPrefix + " " + r.Text
	}
	return r
}

// seedMemory stores the first noun phrase of an unmatched input so a later
// turn can come back to it.
func (s *Session) seedMemory(ctx context.Context, words []string) error {
	e := s.engine
	if e.opts.Phrases == nil || e.opts.SeedPrompt == "" || len(words) == 0 {
		return nil
	}
	phrases, err := e.opts.Phrases.NounPhrases(ctx, words)
	if err != nil {
		e.log.Warn("noun phrase extraction failed", zap.Error(err))
		return nil
	}
	if len(phrases) == 0 {
		return nil
	}
	np := phrases[0]
	if err := s.mem.Save(ctx, np, strings.Replace(e.opts.SeedPrompt, RecallPlaceholder, np, 1)); err != nil {
		return fmt.Errorf("seed memory: %w", err)
	}
	e.log.Debug("seeded memory", zap.String("phrase", np))
	return nil
}
