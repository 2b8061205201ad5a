package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/rcliao/eliza/internal/engine"
	"github.com/rcliao/eliza/internal/store"
)

var (
	styleEliza  = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true)
	stylePrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
)

func init() {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the therapist",
		Long:  "Interactive conversation on stdin/stdout. With --session the conversation and its memory are kept in the database and resumed next time.",
		Run:   runChat,
	}

	cmd.Flags().StringP("session", "n", "", "Persist this conversation under a session name")

	RootCmd.AddCommand(cmd)
}

func runChat(cmd *cobra.Command, args []string) {
	ns, _ := cmd.Flags().GetString("session")

	e, err := newEngine()
	if err != nil {
		exitErr("load engine", err)
	}

	if ns == "" {
		sess := e.NewSession(store.Scope(store.NewMemStore(nil), "chat"), nil)
		if err := chatLoop(cmd.Context(), sess, cmd.InOrStdin(), cmd.OutOrStdout(), nil); err != nil {
			exitErr("chat", err)
		}
		return
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	sess := e.NewSession(store.Scope(s, ns), loadState(cmd, s, ns))
	save := func() error {
		return s.SaveState(cmd.Context(), sess.State(ns))
	}
	if err := chatLoop(cmd.Context(), sess, cmd.InOrStdin(), cmd.OutOrStdout(), save); err != nil {
		exitErr("chat", err)
	}
}

// chatLoop greets, answers each input line, and says goodbye on a quit
// phrase or end of input. afterTurn, when set, runs after every answered
// line.
func chatLoop(ctx context.Context, sess *engine.Session, in io.Reader, out io.Writer, afterTurn func() error) error {
	say := func(text string) {
		fmt.Fprintln(out, styleEliza.Render(text))
	}

	say(sess.Initial())
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, stylePrompt.Render("> "))
		if !sc.Scan() {
			break
		}
		line := strings.TrimSpace(sc.Text())

		reply, err := sess.Respond(ctx, line)
		if err != nil {
			return err
		}
		if reply.Done {
			break
		}
		say(reply.Text)
		if afterTurn != nil {
			if err := afterTurn(); err != nil {
				return err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	fmt.Fprintln(out)
	say(sess.Final())
	return nil
}
