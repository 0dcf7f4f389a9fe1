package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/tagbridge"
	"github.com/aretw0/tagbridge/internal/logging"
	"github.com/aretw0/tagbridge/pkg/domain"
	"github.com/aretw0/tagbridge/pkg/runner"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// SessionURI is the resource holding the current session snapshot.
const SessionURI = "tagbridge://session"

// Dispatcher is the part of the bridge exposed to MCP clients.
type Dispatcher interface {
	Call(ctx context.Context, cmd domain.Command, args ...any) (domain.Response, error)
	Snapshot() *domain.Snapshot
	Commands() []domain.Command
}

// CommandInput is the argument shape shared by every command tool.
type CommandInput struct {
	Args []any `json:"args"`
}

// Server exposes each dispatcher command as an MCP tool.
type Server struct {
	dispatcher Dispatcher
	mcpServer  *server.MCPServer
	sanitizer  runner.Sanitizer
	logger     *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMaxInputSize bounds every string argument in bytes.
func WithMaxInputSize(n int) Option {
	return func(s *Server) {
		s.sanitizer = runner.NewSanitizer(n)
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(d Dispatcher, opts ...Option) *Server {
	s := &Server{
		dispatcher: d,
		logger:     logging.NewNop(),
		mcpServer: server.NewMCPServer(
			"tagbridge-mcp",
			strings.TrimSpace(tagbridge.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio serves MCP on stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

// MCPServer returns the underlying server, for in-process transports.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// Whole JSON numbers are stored as integers, so doubles such as 3.0 need the
// typed form.
const typedValueHint = `Whole numbers are stored as integers; pass {"type":"double","value":3} to store a double.`

var descriptions = map[domain.Command]string{
	domain.CommandContainerOpen:      "Open a tag manager container. args: [containerId]. Replaces any open session.",
	domain.CommandGet:                "Read a container value. args: [key, type?] where type is string, boolean, integer or double.",
	domain.CommandGetContainerString: "Read a string container value. args: [key].",
	domain.CommandGetContainerBool:   "Read a boolean container value. args: [key].",
	domain.CommandGetContainerLong:   "Read an integer container value. args: [key].",
	domain.CommandGetContainerDouble: "Read a double container value. args: [key].",
	domain.CommandSet:                "Store a container value. args: [key, value]. " + typedValueHint,
	domain.CommandCustomDimension:    "Set a custom dimension. args: [index 1..200, value]. " + typedValueHint,
	domain.CommandCustomMetric:       "Set a custom metric. args: [index 1..200, value]. " + typedValueHint,
	domain.CommandDataLayerPush:      "Append an entry to the data layer. args: [object].",
	domain.CommandGetDataLayer:       "List data layer entries in push order. args: [].",
	domain.CommandSetTrackingID:      "Set the analytics tracking id. args: [id].",
	domain.CommandSetLogLevel:        "Set SDK verbosity. args: [level] with 0 verbose, 1 info, 2 warning, 3 error.",
	domain.CommandSend:               "Send a raw hit without waiting for delivery. args: [hit object].",
	domain.CommandSendEvent:          "Send an event hit. args: [category, action, label?, value?].",
	domain.CommandSendAppView:        "Send an app view hit. args: [screenName].",
	domain.CommandSendException:      "Send an exception hit. args: [description, fatal?].",
	domain.CommandClose:              "Close the current session. args: [].",
}

func (s *Server) registerTools() {
	for _, cmd := range s.dispatcher.Commands() {
		s.mcpServer.AddTool(commandTool(cmd), commandHandler(s.dispatcher, cmd, s.sanitizer, s.logger))
	}
}

// commandTool defines the schema for one command. Tool names are the wire
// command names.
func commandTool(cmd domain.Command) mcp.Tool {
	desc, ok := descriptions[cmd]
	if !ok {
		desc = fmt.Sprintf("Dispatch %s.", cmd)
	}
	return mcp.NewTool(string(cmd),
		mcp.WithDescription(desc),
		mcp.WithArray("args", mcp.Description("Positional command arguments")),
	)
}

func commandHandler(d Dispatcher, cmd domain.Command, sanitizer runner.Sanitizer, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var input CommandInput
		if err := request.BindArguments(&input); err != nil {
			return mcp.NewToolResultErrorFromErr("invalid command arguments", err), nil
		}
		args, err := sanitizer.Args(input.Args)
		if err != nil {
			logger.Warn("MCP: Arguments rejected", "command", cmd, "err", err)
			return mcp.NewToolResultErrorFromErr("arguments rejected", err), nil
		}

		resp, err := d.Call(ctx, cmd, args...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cmd, err)
		}

		data, err := json.Marshal(resp)
		if err != nil {
			return nil, fmt.Errorf("encode %s response: %w", cmd, err)
		}
		if !resp.OK() {
			return mcp.NewToolResultError(string(data)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(SessionURI, "Current session snapshot",
		mcp.WithMIMEType("application/json"),
	), s.readSession)
}

func (s *Server) readSession(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	var payload any = map[string]string{"state": "closed"}
	if snap := s.dispatcher.Snapshot(); snap != nil {
		payload = snap
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      SessionURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
