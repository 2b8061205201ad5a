package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/eliza/internal/model"
	"github.com/rcliao/eliza/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show a stored session",
		Run:   runGet,
	}

	cmd.Flags().StringP("session", "n", "", "Session name (required)")
	cmd.Flags().Bool("memory", false, "Include memory entries")

	cmd.MarkFlagRequired("session")

	RootCmd.AddCommand(cmd)
}

type getOutput struct {
	model.SessionState
	MemoryCount int                 `json:"memory_count"`
	Memory      []model.MemoryEntry `json:"memory,omitempty"`
}

func runGet(cmd *cobra.Command, args []string) {
	ns, _ := cmd.Flags().GetString("session")
	withMemory, _ := cmd.Flags().GetBool("memory")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	st, err := s.LoadState(cmd.Context(), ns)
	if err != nil {
		exitErr("get", err)
	}

	out := getOutput{SessionState: *st}
	if out.MemoryCount, err = s.Count(cmd.Context(), ns); err != nil {
		exitErr("count memory", err)
	}
	if withMemory {
		if out.Memory, err = s.List(cmd.Context(), store.ListParams{NS: ns}); err != nil {
			exitErr("list memory", err)
		}
	}

	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}
