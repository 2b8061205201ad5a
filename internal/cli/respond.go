package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/eliza/internal/engine"
	"github.com/rcliao/eliza/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "respond [text]",
		Short: "Answer one utterance",
		Long:  "Answer one utterance of a stored conversation. Text can be a positional arg or piped via stdin. Rotation and memory carry over between calls with the same session.",
		Run:   runRespond,
	}

	cmd.Flags().StringP("session", "n", "", "Session name (required)")
	cmd.MarkFlagRequired("session")

	RootCmd.AddCommand(cmd)
}

type respondOutput struct {
	SessionID string `json:"session_id"`
	engine.Reply
}

func runRespond(cmd *cobra.Command, args []string) {
	ns, _ := cmd.Flags().GetString("session")

	// Get text: positional arg first, then check stdin
	var text string
	if len(args) > 0 {
		text = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			text = string(b)
		}
	}
	text = strings.TrimSpace(text)

	e, err := newEngine()
	if err != nil {
		exitErr("load engine", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	sess := e.NewSession(store.Scope(s, ns), loadState(cmd, s, ns))
	reply, err := sess.Respond(cmd.Context(), text)
	if err != nil {
		exitErr("respond", err)
	}

	if reply.Done {
		reply.Text = sess.Final()
		if err := s.DeleteState(cmd.Context(), ns); err != nil {
			exitErr("end session", err)
		}
	} else if err := s.SaveState(cmd.Context(), sess.State(ns)); err != nil {
		exitErr("save session", err)
	}

	if formatFlag == "text" {
		fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
		return
	}
	b, _ := json.Marshal(respondOutput{SessionID: ns, Reply: reply})
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}
