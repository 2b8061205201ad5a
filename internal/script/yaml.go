package script

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rcliao/eliza/internal/model"
)

// yamlScript mirrors the text format one record type per field.
type yamlScript struct {
	Initial []string            `yaml:"initial"`
	Final   []string            `yaml:"final"`
	Quit    []string            `yaml:"quit"`
	Pre     map[string]string   `yaml:"pre"`
	Post    map[string]string   `yaml:"post"`
	Synon   map[string][]string `yaml:"synon"`
	Keys    []yamlKey           `yaml:"keys"`
}

type yamlKey struct {
	Word    string       `yaml:"word"`
	Weight  *int         `yaml:"weight"`
	Decomps []yamlDecomp `yaml:"decomps"`
}

type yamlDecomp struct {
	Pattern string   `yaml:"pattern"`
	Save    bool     `yaml:"save"`
	Reasmb  []string `yaml:"reasmb"`
}

// ParseYAML reads a YAML script. Patterns and templates are written as
// space-separated strings, the same as in the text format.
func ParseYAML(r io.Reader) (*model.Rules, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}

	var doc yamlScript
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedScriptLine, err)
	}

	b := NewBuilder()
	for _, s := range doc.Initial {
		b.Initial(s)
	}
	for _, s := range doc.Final {
		b.Final(s)
	}
	for _, s := range doc.Quit {
		b.Quit(s)
	}
	for w, repl := range doc.Pre {
		b.Pre(w, strings.Fields(repl))
	}
	for w, repl := range doc.Post {
		b.Post(w, strings.Fields(repl))
	}
	for root, members := range doc.Synon {
		b.Synonym(root, members)
	}

	for _, k := range doc.Keys {
		if strings.TrimSpace(k.Word) == "" {
			return nil, fmt.Errorf("%w: key without a word", model.ErrMalformedScriptLine)
		}
		weight := DefaultWeight
		if k.Weight != nil {
			weight = *k.Weight
		}
		b.Key(k.Word, weight)
		for _, d := range k.Decomps {
			if err := b.Decomp(strings.Fields(d.Pattern), d.Save); err != nil {
				return nil, fmt.Errorf("key %s: %w", k.Word, err)
			}
			for _, tmpl := range d.Reasmb {
				if err := b.Reasmb(strings.Fields(tmpl)); err != nil {
					return nil, fmt.Errorf("key %s: %w", k.Word, err)
				}
			}
		}
	}
	return b.Rules(), nil
}
