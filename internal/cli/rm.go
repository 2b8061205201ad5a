package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rm",
		Short: "Forget a session",
		Long:  "Delete a session's memory entries and its saved rotation state.",
		Run:   runRm,
	}

	cmd.Flags().StringP("session", "n", "", "Session name (required)")
	cmd.Flags().Bool("memory-only", false, "Keep the rotation state")

	cmd.MarkFlagRequired("session")

	RootCmd.AddCommand(cmd)
}

func runRm(cmd *cobra.Command, args []string) {
	ns, _ := cmd.Flags().GetString("session")
	memoryOnly, _ := cmd.Flags().GetBool("memory-only")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	n, err := s.Clear(cmd.Context(), ns)
	if err != nil {
		exitErr("rm", err)
	}
	if !memoryOnly {
		if err := s.DeleteState(cmd.Context(), ns); err != nil {
			exitErr("rm", err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"session":%q,"removed":%d}`+"\n", ns, n)
}
