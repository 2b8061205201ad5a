package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	nsCmd := &cobra.Command{
		Use:   "ns",
		Short: "Session management",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored sessions",
		Run:   runNSList,
	}

	nsCmd.AddCommand(listCmd)
	RootCmd.AddCommand(nsCmd)
}

type nsRow struct {
	NS        string `json:"ns"`
	Turns     int    `json:"turns"`
	Memory    int    `json:"memory"`
	LastInput string `json:"last_input,omitempty"`
	UpdatedAt string `json:"updated_at"`
}

func runNSList(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	states, err := s.ListStates(cmd.Context())
	if err != nil {
		exitErr("list sessions", err)
	}

	rows := make([]nsRow, 0, len(states))
	for _, st := range states {
		n, err := s.Count(cmd.Context(), st.NS)
		if err != nil {
			exitErr("count memory", err)
		}
		rows = append(rows, nsRow{
			NS:        st.NS,
			Turns:     st.Turns,
			Memory:    n,
			LastInput: st.LastInput,
			UpdatedAt: st.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	b, _ := json.MarshalIndent(rows, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}
