// Package tokenizer turns user utterances into the word sequences the
// pattern engine matches against.
package tokenizer

import (
	"regexp"
	"strings"
)

// Clause punctuation isolated as standalone tokens. Runs collapse to one.
var (
	periodRe    = regexp.MustCompile(`\s*\.+\s*`)
	commaRe     = regexp.MustCompile(`\s*,+\s*`)
	semicolonRe = regexp.MustCompile(`\s*;+\s*`)
)

// Normalize isolates `.`, `,` and `;` with surrounding spaces.
func Normalize(text string) string {
	text = periodRe.ReplaceAllString(text, " . ")
	text = commaRe.ReplaceAllString(text, " , ")
	return semicolonRe.ReplaceAllString(text, " ; ")
}

// Split normalizes punctuation and splits on whitespace. Empty or blank
// text yields nil.
func Split(text string) []string {
	words := strings.Fields(Normalize(text))
	if len(words) == 0 {
		return nil
	}
	return words
}

// Join renders a word sequence as reply text.
func Join(words []string) string {
	return strings.Join(words, " ")
}

// IsClauseBreak reports whether a token ends a clause for back-reference
// truncation.
func IsClauseBreak(word string) bool {
	return word == "," || word == "." || word == ";"
}
