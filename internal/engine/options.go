package engine

import (
	"context"
	"fmt"
	"strings"
)

// RecallPlaceholder marks where a recall or seed prompt takes its phrase.
const RecallPlaceholder = "%s"

// CheckPrompt reports a prompt that has no place for its phrase.
func CheckPrompt(p string) error {
	if !strings.Contains(p, RecallPlaceholder) {
		return fmt.Errorf("prompt %q has no %s placeholder", p, RecallPlaceholder)
	}
	return nil
}

// SaveMode controls what a matching save decomposition does after recording
// its memory entry.
type SaveMode int

const (
	// SaveAndContinue records the entry and keeps trying the key's later
	// decompositions.
	SaveAndContinue SaveMode = iota
	// SaveAndReply records the entry and returns its reply.
	SaveAndReply
)

// PhraseSource selects the key phrase stored with a memory entry.
type PhraseSource int

const (
	// PhraseInput stores the whole pre-substituted input.
	PhraseInput PhraseSource = iota
	// PhraseCaptures stores the captured groups after post-substitution and
	// clause truncation.
	PhraseCaptures
)

// ParseSaveMode accepts "continue" or "reply".
func ParseSaveMode(s string) (SaveMode, error) {
	switch strings.ToLower(s) {
	case "", "continue":
		return SaveAndContinue, nil
	case "reply":
		return SaveAndReply, nil
	}
	return 0, fmt.Errorf("unknown save mode %q (use continue or reply)", s)
}

// ParsePhraseSource accepts "input" or "captures".
func ParsePhraseSource(s string) (PhraseSource, error) {
	switch strings.ToLower(s) {
	case "", "input":
		return PhraseInput, nil
	case "captures":
		return PhraseCaptures, nil
	}
	return 0, fmt.Errorf("unknown memory phrase source %q (use input or captures)", s)
}

// SentimentScorer rates text from -1 (negative) to 1 (positive).
type SentimentScorer interface {
	Score(ctx context.Context, text string) (float64, error)
}

// PhraseExtractor pulls noun phrases out of an utterance.
type PhraseExtractor interface {
	NounPhrases(ctx context.Context, words []string) ([]string, error)
}

// CrisisFlow takes over turns that signal a crisis.
type CrisisFlow interface {
	IsCrisis(ctx context.Context, text string) (bool, error)
	Interview(ctx context.Context, text string) (string, error)
}

// Options configures an Engine. The capability fields are optional.
type Options struct {
	SaveMode SaveMode
	Phrase   PhraseSource

	// Affirmatives are the single-word answers that trigger memory recall.
	Affirmatives []string
	// RecallPrompts take the recalled phrase in place of RecallPlaceholder.
	RecallPrompts []string
	// Seed fixes the session random source; 0 seeds from the clock.
	Seed int64

	// NegativeThreshold and EmpathyPrefix decorate replies to inputs the
	// Sentiment scorer rates at or below the threshold.
	NegativeThreshold float64
	EmpathyPrefix     string
	// SeedPrompt takes a noun phrase in place of RecallPlaceholder to make
	// the reply stored for it.
	SeedPrompt string

	Sentiment SentimentScorer
	Phrases   PhraseExtractor
	Crisis    CrisisFlow
}

// DefaultOptions returns the behavior of the classic engine.
func DefaultOptions() Options {
	return Options{
		SaveMode:     SaveAndContinue,
		Phrase:       PhraseInput,
		Affirmatives: []string{"yes", "no", "yeah", "yep", "y", "n"},
		RecallPrompts: []string{
			"Earlier you said '%s'. How does that affect the situation?",
			"You spoke before about '%s'. Tell me more about that.",
			"Let's return to '%s'. How does this relate to your current thoughts?",
		},
		NegativeThreshold: -0.5,
		EmpathyPrefix:     "I'm sorry you're going through this.",
		SeedPrompt:        "Earlier you mentioned %s. Can you tell me more about it?",
	}
}
