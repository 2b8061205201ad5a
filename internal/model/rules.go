package model

import (
	"fmt"
	"strings"
)

// DefaultKey is the fallback key. It is never selected by trigger word.
const DefaultKey = "xnone"

// PatternKind distinguishes decomposition pattern tokens.
type PatternKind int

const (
	PatternLiteral PatternKind = iota
	PatternWildcard
	PatternSynonym
)

// PatternToken is one element of a decomposition pattern. Word holds the
// literal text or, for PatternSynonym, the class root.
type PatternToken struct {
	Kind PatternKind
	Word string
}

func (p PatternToken) String() string {
	switch p.Kind {
	case PatternWildcard:
		return "*"
	case PatternSynonym:
		return "@" + p.Word
	default:
		return p.Word
	}
}

// Captures reports whether the token produces a capture group.
func (p PatternToken) Captures() bool {
	return p.Kind == PatternWildcard || p.Kind == PatternSynonym
}

// TemplateKind distinguishes reassembly template tokens.
type TemplateKind int

const (
	TemplateLiteral TemplateKind = iota
	TemplateBackRef
)

// TemplateToken is one element of a reassembly template. Index is 1-based
// and only set for TemplateBackRef.
type TemplateToken struct {
	Kind  TemplateKind
	Word  string
	Index int
}

func (t TemplateToken) String() string {
	if t.Kind == TemplateBackRef {
		return fmt.Sprintf("(%d)", t.Index)
	}
	return t.Word
}

// Reassembly is an output recipe. A non-empty Redirect means the template
// defers to another key and Tokens is ignored.
type Reassembly struct {
	Tokens   []TemplateToken
	Redirect string
}

func (r Reassembly) String() string {
	if r.Redirect != "" {
		return "goto " + r.Redirect
	}
	parts := make([]string, len(r.Tokens))
	for i, t := range r.Tokens {
		parts[i] = t.String()
	}
	return strings.Join(parts, " ")
}

// Decomposition is a pattern with its reassembly templates. ID indexes the
// per-session rotation cursors; Ref is the stable name used when cursors are
// persisted.
type Decomposition struct {
	ID        int
	Ref       string
	Pattern   []PatternToken
	Save      bool
	Templates []Reassembly
}

// CaptureCount is the number of groups a successful match produces.
func (d *Decomposition) CaptureCount() int {
	n := 0
	for _, p := range d.Pattern {
		if p.Captures() {
			n++
		}
	}
	return n
}

// PatternString renders the pattern as authored.
func (d *Decomposition) PatternString() string {
	parts := make([]string, len(d.Pattern))
	for i, p := range d.Pattern {
		parts[i] = p.String()
	}
	s := strings.Join(parts, " ")
	if d.Save {
		return "$ " + s
	}
	return s
}

// Key is a trigger word with a selection weight and ordered decompositions.
type Key struct {
	Word           string
	Weight         int
	Decompositions []*Decomposition
}

// SynonymTable maps a class root to its lowercase members. The root is a
// member of its own class.
type SynonymTable map[string][]string

// Has reports whether the class is declared.
func (s SynonymTable) Has(root string) bool {
	_, ok := s[strings.ToLower(root)]
	return ok
}

// Member reports whether word belongs to the class, ignoring case.
func (s SynonymTable) Member(root, word string) bool {
	w := strings.ToLower(word)
	for _, m := range s[strings.ToLower(root)] {
		if m == w {
			return true
		}
	}
	return false
}

// SubstitutionTable maps a lowercase word to its replacement words.
type SubstitutionTable map[string][]string

// Rules holds every table loaded from a script. It is read-only once built
// and may be shared by any number of sessions.
type Rules struct {
	Initials []string
	Finals   []string
	Quits    []string
	Pre      SubstitutionTable
	Post     SubstitutionTable
	Synonyms SynonymTable
	Keys     []*Key

	index   map[string]*Key
	decomps []*Decomposition
}

// NewRules returns empty tables ready for a loader to fill.
func NewRules() *Rules {
	return &Rules{
		Pre:      SubstitutionTable{},
		Post:     SubstitutionTable{},
		Synonyms: SynonymTable{},
		index:    map[string]*Key{},
	}
}

// AddKey registers a key. A later key with the same word replaces the
// earlier one in the index.
func (r *Rules) AddKey(k *Key) {
	if r.index == nil {
		r.index = map[string]*Key{}
	}
	r.Keys = append(r.Keys, k)
	r.index[strings.ToLower(k.Word)] = k
}

// AddDecomposition attaches d to k and assigns its cursor slot.
func (r *Rules) AddDecomposition(k *Key, d *Decomposition) {
	d.ID = len(r.decomps)
	d.Ref = fmt.Sprintf("%s/%d", strings.ToLower(k.Word), len(k.Decompositions))
	r.decomps = append(r.decomps, d)
	k.Decompositions = append(k.Decompositions, d)
}

// Key looks up a key by word, ignoring case.
func (r *Rules) Key(word string) *Key {
	return r.index[strings.ToLower(word)]
}

// Decompositions returns every decomposition in ID order.
func (r *Rules) Decompositions() []*Decomposition {
	return r.decomps
}

// IsQuit reports whether text is a registered quit phrase.
func (r *Rules) IsQuit(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	for _, q := range r.Quits {
		if q == t {
			return true
		}
	}
	return false
}
