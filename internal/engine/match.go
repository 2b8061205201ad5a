// Package engine implements the pattern matching and reassembly core: the
// backtracking decomposition matcher, template expansion, key selection and
// the per-session conversation state machine.
package engine

import (
	"fmt"
	"strings"

	"github.com/rcliao/eliza/internal/model"
)

// Match decomposes words against pattern. On success it returns one capture
// group per wildcard or synonym token, in pattern order. Wildcards try the
// longest span first and give back one word at a time on failure, so among
// several alignments the one with the greediest leading wildcards wins.
//
// Capture groups are views into words; callers must not append to them.
func Match(pattern []model.PatternToken, words []string, syn model.SynonymTable) ([][]string, bool, error) {
	caps := make([][]string, 0, len(pattern))
	ok, err := matchFrom(pattern, words, syn, &caps)
	if err != nil || !ok {
		return nil, false, err
	}
	return caps, true, nil
}

func matchFrom(pattern []model.PatternToken, words []string, syn model.SynonymTable, caps *[][]string) (bool, error) {
	if len(pattern) == 0 {
		return len(words) == 0, nil
	}
	if len(words) == 0 && !(len(pattern) == 1 && pattern[0].Kind == model.PatternWildcard) {
		return false, nil
	}

	tok := pattern[0]
	switch tok.Kind {
	case model.PatternWildcard:
		for i := len(words); i >= 0; i-- {
			*caps = append(*caps, words[:i:i])
			ok, err := matchFrom(pattern[1:], words[i:], syn, caps)
			if err != nil || ok {
				return ok, err
			}
			*caps = (*caps)[:len(*caps)-1]
		}
		return false, nil

	case model.PatternSynonym:
		if !syn.Has(tok.Word) {
			return false, fmt.Errorf("%w: @%s", model.ErrUnknownSynonymClass, tok.Word)
		}
		if !syn.Member(tok.Word, words[0]) {
			return false, nil
		}
		*caps = append(*caps, words[:1:1])
		ok, err := matchFrom(pattern[1:], words[1:], syn, caps)
		if err != nil || ok {
			return ok, err
		}
		*caps = (*caps)[:len(*caps)-1]
		return false, nil

	default:
		if !strings.EqualFold(tok.Word, words[0]) {
			return false, nil
		}
		return matchFrom(pattern[1:], words[1:], syn, caps)
	}
}
