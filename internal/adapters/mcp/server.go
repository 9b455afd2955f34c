package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/manthysbr/partsdesk/internal/core/domain"
	"github.com/manthysbr/partsdesk/internal/core/services"
)

const askToolName = "ask_parts_assistant"

// Server exposes the capability registry, plus a conversational tool over
// the chat service, as an MCP server.
type Server struct {
	logger    *slog.Logger
	registry  *domain.ToolRegistry
	chat      *services.ChatService
	mcpServer *server.MCPServer
	tools     []mcp.Tool
}

// NewServer registers one MCP tool per capability. chat may be nil, in
// which case the conversational tool is not offered.
func NewServer(logger *slog.Logger, version string, registry *domain.ToolRegistry, chat *services.ChatService) (*Server, error) {
	s := &Server{
		logger:    logger,
		registry:  registry,
		chat:      chat,
		mcpServer: server.NewMCPServer("partsdesk", version, server.WithToolCapabilities(false)),
	}
	for _, tool := range registry.ListTools() {
		if err := s.addCapability(tool); err != nil {
			return nil, err
		}
	}
	if chat != nil {
		s.addAskTool()
	}
	return s, nil
}

// ServeStdio serves MCP on stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// Tools returns the MCP tool definitions in registration order.
func (s *Server) Tools() []mcp.Tool {
	return append([]mcp.Tool(nil), s.tools...)
}

func (s *Server) add(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.tools = append(s.tools, tool)
	s.mcpServer.AddTool(tool, handler)
}

func (s *Server) addCapability(tool *domain.Tool) error {
	params := tool.Parameters
	if params.Required == nil {
		params.Required = []string{}
	}
	schema, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode schema of %s: %w", tool.Name, err)
	}
	name := tool.Name
	s.add(mcp.NewToolWithRawSchema(name, tool.Description, schema), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.callCapability(ctx, name, req.GetArguments())
	})
	return nil
}

func (s *Server) callCapability(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	if args == nil {
		args = map[string]any{}
	}
	start := time.Now()
	result, err := s.registry.Execute(ctx, name, args)
	if err != nil {
		s.logger.Info("mcp tool failed", "tool", name, "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", name, err)
	}
	s.logger.Debug("mcp tool completed", "tool", name, "duration", time.Since(start))
	return mcp.NewToolResultText(string(payload)), nil
}

func (s *Server) addAskTool() {
	tool := mcp.NewTool(askToolName,
		mcp.WithDescription("Ask the refrigerator and dishwasher parts assistant a question in plain language. Reuse session_id to keep context between questions."),
		mcp.WithString("message", mcp.Required(), mcp.Description("The question, e.g. \"How can I install part PS11752778?\"")),
		mcp.WithString("session_id", mcp.Description("Conversation ID; omit to start a new conversation")),
	)
	s.add(tool, s.handleAsk)
}

type askResult struct {
	SessionID string   `json:"sessionId"`
	Response  string   `json:"response"`
	Intent    string   `json:"intent"`
	Products  []string `json:"products"`
}

func (s *Server) handleAsk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := req.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sessionID := req.GetString("session_id", "")

	res, err := s.chat.Chat(ctx, sessionID, message)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out := askResult{
		SessionID: res.SessionID,
		Response:  res.Response,
		Intent:    string(res.Intent),
		Products:  make([]string, 0, len(res.Products)),
	}
	for _, p := range res.Products {
		out.Products = append(out.Products, p.PartNumber)
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode ask result: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}
