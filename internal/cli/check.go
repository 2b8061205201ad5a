package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/eliza/internal/model"
	"github.com/rcliao/eliza/internal/script"
)

func init() {
	cmd := &cobra.Command{
		Use:   "check [script]",
		Short: "Validate a script",
		Long:  "Parse and validate a script, reporting every defect. Defaults to --script, or the built-in doctor script.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runCheck,
	}

	RootCmd.AddCommand(cmd)
}

type checkOutput struct {
	OK             bool   `json:"ok"`
	Script         string `json:"script"`
	Keys           int    `json:"keys"`
	Decompositions int    `json:"decompositions"`
	Synonyms       int    `json:"synonyms"`
}

func runCheck(cmd *cobra.Command, args []string) {
	path := cfg.Script
	if len(args) > 0 {
		path = args[0]
	}

	var rules *model.Rules
	var err error
	if path == "" {
		path = "(built-in)"
		rules, err = script.Default()
	} else {
		rules, err = script.Load(path)
	}
	if err != nil {
		exitErr("check", err)
	}

	b, _ := json.MarshalIndent(checkOutput{
		OK:             true,
		Script:         path,
		Keys:           len(rules.Keys),
		Decompositions: len(rules.Decompositions()),
		Synonyms:       len(rules.Synonyms),
	}, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}
