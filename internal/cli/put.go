package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/eliza/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "put [response]",
		Short: "Seed a memory entry",
		Long:  "Add a (phrase, response) pair to a session's memory. The response can be a positional arg or piped via stdin.",
		Run:   runPut,
	}

	cmd.Flags().StringP("session", "n", "", "Session name (required)")
	cmd.Flags().StringP("phrase", "p", "", "Key phrase (required)")

	cmd.MarkFlagRequired("session")
	cmd.MarkFlagRequired("phrase")

	RootCmd.AddCommand(cmd)
}

func runPut(cmd *cobra.Command, args []string) {
	ns, _ := cmd.Flags().GetString("session")
	phrase, _ := cmd.Flags().GetString("phrase")

	// Get response: positional arg first, then check stdin
	var response string
	if len(args) > 0 {
		response = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			response = string(b)
		}
	}

	if strings.TrimSpace(response) == "" {
		exitErr("put", fmt.Errorf("response is required (positional arg or stdin)"))
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	entry, err := s.Save(cmd.Context(), store.SaveParams{
		NS:       ns,
		Phrase:   strings.TrimSpace(phrase),
		Response: strings.TrimSpace(response),
	})
	if err != nil {
		exitErr("put", err)
	}

	b, _ := json.Marshal(entry)
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}
