package script

import (
	"errors"
	"fmt"

	"github.com/rcliao/eliza/internal/model"
)

// Validate checks the integrity invariants the engine relies on and reports
// every defect found, joined.
func Validate(rules *model.Rules) error {
	var errs []error

	if def := rules.Key(model.DefaultKey); def == nil || len(def.Decompositions) == 0 {
		errs = append(errs, model.ErrMissingDefaultKey)
	}

	for _, k := range rules.Keys {
		if len(k.Decompositions) == 0 {
			errs = append(errs, fmt.Errorf("key %q: %w", k.Word, model.ErrEmptyKey))
		}
		for _, d := range k.Decompositions {
			errs = append(errs, validateDecomp(rules, d)...)
		}
	}
	return errors.Join(errs...)
}

func validateDecomp(rules *model.Rules, d *model.Decomposition) []error {
	var errs []error
	if len(d.Templates) == 0 {
		errs = append(errs, fmt.Errorf("decomp %s: %w", d.Ref, model.ErrEmptyReassembly))
	}
	for _, p := range d.Pattern {
		if p.Kind == model.PatternSynonym && !rules.Synonyms.Has(p.Word) {
			errs = append(errs, fmt.Errorf("decomp %s: %w: @%s", d.Ref, model.ErrUnknownSynonymClass, p.Word))
		}
	}

	captures := d.CaptureCount()
	for _, r := range d.Templates {
		if r.Redirect != "" {
			if rules.Key(r.Redirect) == nil {
				errs = append(errs, fmt.Errorf("decomp %s: %w: %s", d.Ref, model.ErrUnknownRedirectTarget, r.Redirect))
			}
			continue
		}
		for _, t := range r.Tokens {
			if t.Kind == model.TemplateBackRef && (t.Index < 1 || t.Index > captures) {
				errs = append(errs, fmt.Errorf("decomp %s: %w: (%d) with %d captures",
					d.Ref, model.ErrInvalidBackReference, t.Index, captures))
			}
		}
	}
	return errs
}
