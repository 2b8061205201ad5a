package nlp

import (
	"context"
	"strings"

	"github.com/rcliao/eliza/internal/tokenizer"
)

// Lexicon is an offline Analyzer backed by word lists.
type Lexicon struct {
	Polarity map[string]float64
	Negators map[string]bool
	// Determiners open a noun phrase; the next content word closes it.
	Determiners map[string]bool
	Stopwords   map[string]bool
	// Crisis phrases are matched as lowercase substrings of the
	// normalized input.
	Crisis []string
}

// NewLexicon returns a lexicon with a small built-in vocabulary.
func NewLexicon() *Lexicon {
	return &Lexicon{
		Polarity: map[string]float64{
			"sad": -0.8, "unhappy": -0.8, "depressed": -0.9, "miserable": -0.9,
			"lonely": -0.7, "angry": -0.6, "afraid": -0.6, "scared": -0.6,
			"anxious": -0.6, "worried": -0.5, "hurt": -0.6, "hate": -0.8,
			"terrible": -0.8, "awful": -0.8, "bad": -0.5, "tired": -0.3,
			"upset": -0.6, "cry": -0.6, "crying": -0.6, "hopeless": -0.9,
			"happy": 0.8, "glad": 0.7, "good": 0.5, "great": 0.8,
			"love": 0.7, "excited": 0.7, "calm": 0.4, "fine": 0.3,
			"better": 0.4, "wonderful": 0.9, "elated": 0.9, "hopeful": 0.6,
		},
		Negators: wordSet("not", "no", "never", "don't", "dont", "can't", "cant", "isn't", "isnt"),
		Determiners: wordSet(
			"my", "your", "his", "her", "our", "their", "the", "a", "an", "this", "that",
		),
		Stopwords: wordSet(
			"i", "you", "me", "is", "am", "are", "was", "were", "be", "very",
			"so", "really", "and", "or", "but", "to", "of", "in", "on", ".", ",", ";",
		),
		Crisis: []string{
			"kill myself", "suicide", "suicidal", "end my life", "want to die",
			"hurt myself", "self harm",
		},
	}
}

func wordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// Score averages the polarity of known words. A negator flips the next
// scored word. Text with no known words scores 0.
func (l *Lexicon) Score(ctx context.Context, text string) (float64, error) {
	var sum float64
	var n int
	negate := false
	for _, w := range tokenizer.Split(strings.ToLower(text)) {
		if l.Negators[w] {
			negate = true
			continue
		}
		if tokenizer.IsClauseBreak(w) {
			negate = false
			continue
		}
		if p, ok := l.Polarity[w]; ok {
			if negate {
				p = -p
			}
			sum += p
			n++
			negate = false
		}
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}

// NounPhrases returns each determiner followed by the next content word,
// in input order.
func (l *Lexicon) NounPhrases(ctx context.Context, words []string) ([]string, error) {
	var phrases []string
	for i := 0; i < len(words)-1; i++ {
		det := strings.ToLower(words[i])
		if !l.Determiners[det] {
			continue
		}
		next := strings.ToLower(words[i+1])
		if l.Stopwords[next] || l.Determiners[next] {
			continue
		}
		phrases = append(phrases, det+" "+next)
		i++
	}
	return phrases, nil
}

func (l *Lexicon) IsCrisis(ctx context.Context, text string) (bool, error) {
	norm := " " + tokenizer.Join(tokenizer.Split(strings.ToLower(text))) + " "
	for _, c := range l.Crisis {
		if strings.Contains(norm, " "+c+" ") {
			return true, nil
		}
	}
	return false, nil
}
