package script

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rcliao/eliza/internal/model"
)

// DefaultWeight applies to keys declared without one.
const DefaultWeight = 1

// Load reads a script file, choosing the YAML parser for .yaml/.yml, and
// validates the result.
func Load(path string) (*model.Rules, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open script: %w", err)
	}
	defer f.Close()

	var rules *model.Rules
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		rules, err = ParseYAML(f)
	default:
		rules, err = Parse(f)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if err := Validate(rules); err != nil {
		return nil, fmt.Errorf("validate %s: %w", filepath.Base(path), err)
	}
	return rules, nil
}

// Parse reads the line-oriented `tag: content` format. Blank lines and lines
// starting with '#' are skipped. The result is not validated.
func Parse(r io.Reader) (*model.Rules, error) {
	b := NewBuilder()
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := parseLine(b, line); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return b.Rules(), nil
}

func parseLine(b *Builder, line string) error {
	tag, content, ok := strings.Cut(line, ":")
	if !ok {
		return fmt.Errorf("%w: missing ':' in %q", model.ErrMalformedScriptLine, line)
	}
	tag = strings.ToLower(strings.TrimSpace(tag))
	content = strings.TrimSpace(content)
	parts := strings.Fields(content)

	switch tag {
	case "initial":
		b.Initial(content)
	case "final":
		b.Final(content)
	case "quit":
		b.Quit(content)
	case "pre", "post", "synon":
		if len(parts) == 0 {
			return fmt.Errorf("%w: empty %s", model.ErrMalformedScriptLine, tag)
		}
		switch tag {
		case "pre":
			b.Pre(parts[0], parts[1:])
		case "post":
			b.Post(parts[0], parts[1:])
		default:
			b.Synonym(parts[0], parts[1:])
		}
	case "key":
		if len(parts) == 0 {
			return fmt.Errorf("%w: empty key", model.ErrMalformedScriptLine)
		}
		weight := DefaultWeight
		if len(parts) > 1 {
			w, err := strconv.Atoi(parts[1])
			if err != nil {
				return fmt.Errorf("%w: bad weight %q", model.ErrMalformedScriptLine, parts[1])
			}
			weight = w
		}
		b.Key(parts[0], weight)
	case "decomp":
		save := false
		if len(parts) > 0 && parts[0] == "$" {
			save = true
			parts = parts[1:]
		}
		return b.Decomp(parts, save)
	case "reasmb":
		return b.Reasmb(parts)
	default:
		return fmt.Errorf("%w: unknown tag %q", model.ErrMalformedScriptLine, tag)
	}
	return nil
}
