// Package nlp provides the language analysis collaborators the engine can
// consult: sentiment scoring, noun phrase extraction and crisis detection.
package nlp

import (
	"context"
	"fmt"
	"time"
)

// Analyzer scores sentiment, extracts noun phrases and flags crisis
// language.
type Analyzer interface {
	Score(ctx context.Context, text string) (float64, error)
	NounPhrases(ctx context.Context, words []string) ([]string, error)
	IsCrisis(ctx context.Context, text string) (bool, error)
}

// New creates an analyzer for provider.
// provider: "lexicon" | "http" | "" (disabled, returns nil)
func New(provider, url string, timeout time.Duration) (Analyzer, error) {
	switch provider {
	case "":
		return nil, nil
	case "lexicon":
		return NewLexicon(), nil
	case "http":
		if url == "" {
			return nil, fmt.Errorf("nlp provider http needs a url")
		}
		return NewClient(url, timeout), nil
	default:
		return nil, fmt.Errorf("unknown nlp provider %q (use lexicon or http)", provider)
	}
}
