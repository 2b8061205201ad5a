package cli

import (
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/rcliao/eliza/internal/server"
	"github.com/rcliao/eliza/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve conversations as MCP tools over stdio",
		Run:   runMCP,
	}

	RootCmd.AddCommand(cmd)
}

func runMCP(cmd *cobra.Command, args []string) {
	e, err := newEngine()
	if err != nil {
		exitErr("load engine", err)
	}

	st := store.NewMemStore(nil)
	defer st.Close()

	m := server.NewMCP(server.New(e, st, logger), Version)
	if err := mcpserver.ServeStdio(m); err != nil {
		exitErr("mcp", err)
	}
}
