package script

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/rcliao/eliza/internal/model"
)

//go:embed doctor.txt
var doctorScript string

// Default returns the validated built-in doctor script.
func Default() (*model.Rules, error) {
	rules, err := Parse(strings.NewReader(doctorScript))
	if err != nil {
		return nil, fmt.Errorf("parse default script: %w", err)
	}
	if err := Validate(rules); err != nil {
		return nil, fmt.Errorf("validate default script: %w", err)
	}
	return rules, nil
}
