package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jorge-rr00/newbackend"
	"github.com/jorge-rr00/newbackend/internal/logging"
	"github.com/jorge-rr00/newbackend/internal/workflow"
	"github.com/jorge-rr00/newbackend/pkg/domain"
)

// WorkflowURI is the resource exposing the stage transition table.
const WorkflowURI = "nova://workflow"

// Assistant is the facade the MCP tools drive.
type Assistant interface {
	ProcessTurn(ctx context.Context, sessionID, query string, attachments []domain.Attachment) domain.TurnResult
	History(ctx context.Context, id string) ([]domain.Message, error)
	Sessions(ctx context.Context) ([]domain.SessionSummary, error)
}

// AskArgs are the arguments of the ask tool.
type AskArgs struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
}

// AskResponse is the structured result of the ask tool.
type AskResponse struct {
	SessionID string        `json:"session_id" jsonschema_description:"Session to reuse in follow-up questions"`
	Reply     string        `json:"reply" jsonschema_description:"Assistant answer"`
	Domain    domain.Domain `json:"domain,omitempty" jsonschema_description:"Session classification (financial or legal)"`
	Route     domain.Route  `json:"route,omitempty" jsonschema_description:"Path that produced the answer"`
	Sources   []string      `json:"sources,omitempty" jsonschema_description:"Knowledge passages used"`
}

// HistoryArgs are the arguments of the history tool.
type HistoryArgs struct {
	SessionID string `json:"session_id"`
}

// HistoryResponse is the structured result of the history tool.
type HistoryResponse struct {
	SessionID string           `json:"session_id"`
	Messages  []domain.Message `json:"messages" jsonschema_description:"User-facing transcript, oldest first"`
}

// Server wraps the Assistant and exposes it as an MCP Server.
type Server struct {
	assistant Assistant
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates a new MCP Server instance. A nil logger discards output.
func NewServer(assistant Assistant, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		assistant: assistant,
		logger:    logger,
		mcpServer: server.NewMCPServer("nova-mcp", strings.TrimSpace(newbackend.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the MCP SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	askTool := mcp.NewTool("ask",
		mcp.WithDescription("Ask the financial/legal assistant a question. The first question of a session must be financial or legal; omit session_id to start a new session."),
		mcp.WithString("session_id", mcp.Description("Existing session id (optional)")),
		mcp.WithString("query", mcp.Required(), mcp.Description("The question")),
		mcp.WithOutputSchema[AskResponse](),
	)
	s.mcpServer.AddTool(askTool, mcp.NewStructuredToolHandler(s.handleAsk))

	historyTool := mcp.NewTool("history",
		mcp.WithDescription("Return the transcript of a session. Document contents are never included."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		mcp.WithOutputSchema[HistoryResponse](),
	)
	s.mcpServer.AddTool(historyTool, mcp.NewStructuredToolHandler(s.handleHistory))

	s.mcpServer.AddTool(mcp.NewTool("sessions",
		mcp.WithDescription("List stored sessions, most recent first."),
	), func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		list, err := s.assistant.Sessions(ctx)
		if err != nil {
			s.logger.Error("MCP sessions failed", "err", err)
			return mcp.NewToolResultError("could not list sessions"), nil
		}
		b, _ := json.Marshal(list)
		return mcp.NewToolResultText(string(b)), nil
	})
}

func (s *Server) handleAsk(ctx context.Context, _ mcp.CallToolRequest, args AskArgs) (AskResponse, error) {
	res := s.assistant.ProcessTurn(ctx, args.SessionID, args.Query, nil)
	if !res.OK() {
		if res.Error == nil {
			return AskResponse{}, fmt.Errorf("%s", domain.KindInternal)
		}
		return AskResponse{}, fmt.Errorf("%s: %s", res.Error.Kind, res.Error.Message)
	}
	return AskResponse{
		SessionID: res.SessionID,
		Reply:     res.Text,
		Domain:    res.Domain,
		Route:     res.Route,
		Sources:   res.Sources,
	}, nil
}

func (s *Server) handleHistory(ctx context.Context, _ mcp.CallToolRequest, args HistoryArgs) (HistoryResponse, error) {
	if args.SessionID == "" {
		return HistoryResponse{}, domain.ErrEmptySessionID
	}
	msgs, err := s.assistant.History(ctx, args.SessionID)
	if err != nil {
		return HistoryResponse{}, fmt.Errorf("history failed: %w", err)
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return HistoryResponse{SessionID: args.SessionID, Messages: msgs}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(WorkflowURI, "Workflow transition table",
		mcp.WithMIMEType("application/json"),
	), func(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(workflow.Transitions())
		if err != nil {
			return nil, fmt.Errorf("failed to encode transitions: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      WorkflowURI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	})
}
