package engine

import (
	"fmt"
	"strings"

	"github.com/rcliao/eliza/internal/model"
	"github.com/rcliao/eliza/internal/tokenizer"
)

// Substitute replaces each word found in table (case-insensitively) with its
// replacement words. Unmatched words are copied unchanged.
func Substitute(words []string, table model.SubstitutionTable) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if repl, ok := table[strings.ToLower(w)]; ok {
			out = append(out, repl...)
			continue
		}
		out = append(out, w)
	}
	return out
}

// truncateClause cuts a group at its first `,`, `.` or `;` token.
func truncateClause(group []string) []string {
	for i, w := range group {
		if tokenizer.IsClauseBreak(w) {
			return group[:i]
		}
	}
	return group
}

// fragment is a capture group as it appears in output: post-substituted,
// then cut at the first clause break.
func fragment(group []string, post model.SubstitutionTable) []string {
	return truncateClause(Substitute(group, post))
}

// Reassemble expands a template's literal and back-reference tokens against
// the captured groups. Redirect templates carry no tokens and are resolved by
// the caller.
func Reassemble(r model.Reassembly, caps [][]string, post model.SubstitutionTable) ([]string, error) {
	out := make([]string, 0, len(r.Tokens))
	for _, t := range r.Tokens {
		switch t.Kind {
		case model.TemplateBackRef:
			if t.Index < 1 || t.Index > len(caps) {
				return nil, fmt.Errorf("%w: (%d) with %d captures", model.ErrInvalidBackReference, t.Index, len(caps))
			}
			out = append(out, fragment(caps[t.Index-1], post)...)
		default:
			out = append(out, t.Word)
		}
	}
	return out, nil
}
