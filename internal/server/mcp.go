package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// NewMCP exposes the session operations as MCP tools.
func NewMCP(s *Server, version string) *mcpserver.MCPServer {
	m := mcpserver.NewMCPServer(
		"eliza",
		version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
	)

	m.AddTool(mcp.NewTool("eliza_start",
		mcp.WithDescription("Start a conversation with the therapist and get its opening line."),
		mcp.WithString("session_id", mcp.Description("Session id; generated when omitted")),
	), s.handleStartTool)

	m.AddTool(mcp.NewTool("eliza_respond",
		mcp.WithDescription("Say something in a conversation and get the reply."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id from eliza_start")),
		mcp.WithString("text", mcp.Required(), mcp.Description("What the user says")),
	), s.handleRespondTool)

	m.AddTool(mcp.NewTool("eliza_end",
		mcp.WithDescription("End a conversation and get the closing line."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id from eliza_start")),
	), s.handleEndTool)

	return m
}

func (s *Server) handleStartTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	id, _ := args["session_id"].(string)

	info, greeting, err := s.Create(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("start: %v", err)), nil
	}

	data, _ := json.MarshalIndent(createResponse{Info: info, Greeting: greeting}, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleRespondTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	id, _ := args["session_id"].(string)
	if id == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}
	text, _ := args["text"].(string)

	turn, err := s.Respond(ctx, id, text)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("respond: %v", err)), nil
	}

	data, _ := json.MarshalIndent(turn, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleEndTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	id, _ := args["session_id"].(string)
	if id == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	final, err := s.Delete(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("end: %v", err)), nil
	}

	data, _ := json.MarshalIndent(deleteResponse{SessionID: id, Final: final}, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}
