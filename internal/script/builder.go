// Package script loads rule scripts into the engine's read-only tables.
package script

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rcliao/eliza/internal/model"
)

// RedirectWord introduces a redirect when it is a template's first token.
const RedirectWord = "goto"

// Builder accumulates script records in authored order. Decompositions
// attach to the most recent key and templates to the most recent
// decomposition.
type Builder struct {
	rules  *model.Rules
	key    *model.Key
	decomp *model.Decomposition
}

// NewBuilder returns a builder over empty tables.
func NewBuilder() *Builder {
	return &Builder{rules: model.NewRules()}
}

func (b *Builder) Initial(text string) { b.rules.Initials = append(b.rules.Initials, text) }
func (b *Builder) Final(text string) { b.rules.Finals = append(b.rules.Finals, text) }

// Quit registers a quit phrase. Phrases compare case-insensitively.
func (b *Builder) Quit(text string) {
	b.rules.Quits = append(b.rules.Quits, strings.ToLower(strings.TrimSpace(text)))
}

func (b *Builder) Pre(word string, replacement []string) {
	b.rules.Pre[strings.ToLower(word)] = replacement
}

func (b *Builder) Post(word string, replacement []string) {
	b.rules.Post[strings.ToLower(word)] = replacement
}

// Synonym declares a class. The root is always a member.
func (b *Builder) Synonym(root string, members []string) {
	root = strings.ToLower(root)
	class := []string{root}
	for _, m := range members {
		m = strings.ToLower(m)
		if m != root {
			class = append(class, m)
		}
	}
	b.rules.Synonyms[root] = class
}

// Key starts a new key. Decompositions that follow attach to it.
func (b *Builder) Key(word string, weight int) {
	b.key = &model.Key{Word: strings.ToLower(word), Weight: weight}
	b.decomp = nil
	b.rules.AddKey(b.key)
}

// Decomp adds a decomposition pattern to the current key.
func (b *Builder) Decomp(tokens []string, save bool) error {
	if b.key == nil {
		return fmt.Errorf("%w: decomp before any key", model.ErrMalformedScriptLine)
	}
	if len(tokens) == 0 {
		return fmt.Errorf("%w: empty decomp pattern", model.ErrMalformedScriptLine)
	}
	b.decomp = &model.Decomposition{Pattern: ParsePattern(tokens), Save: save}
	b.rules.AddDecomposition(b.key, b.decomp)
	return nil
}

// Reasmb adds a template to the current decomposition.
func (b *Builder) Reasmb(tokens []string) error {
	if b.decomp == nil {
		return fmt.Errorf("%w: reasmb before any decomp", model.ErrMalformedScriptLine)
	}
	r, err := ParseTemplate(tokens)
	if err != nil {
		return err
	}
	b.decomp.Templates = append(b.decomp.Templates, r)
	return nil
}

// Rules returns the tables built so far.
func (b *Builder) Rules() *model.Rules {
	return b.rules
}

// ParsePattern classifies decomposition tokens: `*` is a wildcard, `@root`
// a synonym reference, anything else a literal.
func ParsePattern(tokens []string) []model.PatternToken {
	out := make([]model.PatternToken, 0, len(tokens))
	for _, t := range tokens {
		switch {
		case t == "*":
			out = append(out, model.PatternToken{Kind: model.PatternWildcard})
		case len(t) > 1 && t[0] == '@':
			out = append(out, model.PatternToken{Kind: model.PatternSynonym, Word: strings.ToLower(t[1:])})
		default:
			out = append(out, model.PatternToken{Kind: model.PatternLiteral, Word: t})
		}
	}
	return out
}

// ParseTemplate classifies reassembly tokens. `(n)` is a back-reference;
// `goto key` as the leading tokens makes a redirect.
func ParseTemplate(tokens []string) (model.Reassembly, error) {
	var r model.Reassembly
	if len(tokens) == 0 {
		return r, fmt.Errorf("%w: empty reasmb", model.ErrMalformedScriptLine)
	}
	if tokens[0] == RedirectWord {
		if len(tokens) < 2 {
			return r, fmt.Errorf("%w: goto without a key", model.ErrMalformedScriptLine)
		}
		r.Redirect = strings.ToLower(tokens[1])
		return r, nil
	}
	for _, t := range tokens {
		if t == "" {
			continue
		}
		if len(t) > 2 && t[0] == '(' && t[len(t)-1] == ')' {
			n, err := strconv.Atoi(t[1 : len(t)-1])
			if err != nil {
				return r, fmt.Errorf("%w: bad back-reference %q", model.ErrMalformedScriptLine, t)
			}
			r.Tokens = append(r.Tokens, model.TemplateToken{Kind: model.TemplateBackRef, Index: n})
			continue
		}
		r.Tokens = append(r.Tokens, model.TemplateToken{Kind: model.TemplateLiteral, Word: t})
	}
	return r, nil
}
