package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/contentsearch/internal/config"
	cserrors "github.com/Aman-CERP/contentsearch/internal/errors"
	"github.com/Aman-CERP/contentsearch/internal/search"
	"github.com/Aman-CERP/contentsearch/pkg/version"
)

// ServerName is the implementation name announced to MCP clients.
const ServerName = "contentsearch"

// DefaultProvider is searched when a call names no category.
const DefaultProvider = "page"

// Server is the MCP server. It exposes the registered search providers to
// MCP clients as tools.
type Server struct {
	mcp       *mcp.Server
	providers *search.Providers
	config    *config.Config
	logger    *slog.Logger
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name:        ToolSearchContent,
		Description: "Search CMS content (pages, blocks or media) across every language partition. Returns titles, edit links, previews and tooltip metadata, filtered by the caller's reader roles and optional subtree roots.",
	},
	{
		Name:        ToolListProviders,
		Description: "List the registered content search providers with their area, category, sort order and whether language-neutral content is included.",
	},
}

// NewServer creates a new MCP server over providers.
func NewServer(providers *search.Providers, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if providers == nil || len(providers.Names()) == 0 {
		return nil, cserrors.CapabilityMissing("mcp.Server", "search providers")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		providers: providers,
		config:    cfg,
		logger:    logger,
	}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    ServerName,
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()
	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return ServerName, version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return append([]ToolInfo(nil), tools...)
}

// CallTool invokes a tool by name with the given arguments and returns its
// markdown rendering.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	switch name {
	case ToolSearchContent:
		var in SearchContentInput
		if err := decodeArgs(args, &in); err != nil {
			return "", err
		}
		out, err := s.searchContent(ctx, in)
		if err != nil {
			return "", err
		}
		return FormatResults(in.Query, out.Provider, out.Results), nil
	case ToolListProviders:
		return FormatProviders(providerInfos(s.providers)), nil
	default:
		return "", NewMethodNotFoundError(name)
	}
}

func decodeArgs(args map[string]any, v any) error {
	data, err := json.Marshal(args)
	if err != nil {
		return NewInvalidParamsError(err.Error())
	}
	if err := json.Unmarshal(data, v); err != nil {
		return NewInvalidParamsError(fmt.Sprintf("invalid arguments: %v", err))
	}
	return nil
}

// searchContent validates in and runs it against the selected provider.
func (s *Server) searchContent(ctx context.Context, in SearchContentInput) (SearchContentOutput, error) {
	start := time.Now()
	requestID := generateRequestID()

	if strings.TrimSpace(in.Query) == "" {
		return SearchContentOutput{}, NewInvalidParamsError("query parameter is required and must be a non-empty string")
	}
	if in.Limit < 0 {
		return SearchContentOutput{}, NewInvalidParamsError("limit must not be negative")
	}
	name := in.Category
	if name == "" {
		name = DefaultProvider
	}
	p, ok := s.providers.Get(name)
	if !ok {
		return SearchContentOutput{}, NewProviderNotFoundError(name, s.providers.Names())
	}
	in.Limit = clampLimit(in.Limit, s.config.Search.MaxLimit)

	s.logger.Info("search_request",
		slog.String("request_id", requestID),
		slog.String("provider", name),
		slog.String("query", in.Query),
		slog.Int("limit", in.Limit),
		slog.Int("roots", len(in.Roots)))

	results, err := p.Search(ctx, in.request())
	if err != nil {
		s.logger.Warn("search_failed",
			append(cserrors.LogAttrs(err), slog.String("request_id", requestID))...)
		return SearchContentOutput{}, MapError(err)
	}

	s.logger.Info("search_response",
		slog.String("request_id", requestID),
		slog.Int("results", len(results)),
		slog.Duration("duration", time.Since(start)))
	return SearchContentOutput{Provider: name, Results: results}, nil
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolSearchContent,
		Description: tools[0].Description,
	}, s.mcpSearchContentHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolListProviders,
		Description: tools[1].Description,
	}, s.mcpListProvidersHandler)

	s.logger.Debug("mcp_tools_registered", slog.Int("count", len(tools)))
}

// mcpSearchContentHandler is the MCP SDK handler for the search_content tool.
func (s *Server) mcpSearchContentHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchContentInput) (
	*mcp.CallToolResult,
	SearchContentOutput,
	error,
) {
	out, err := s.searchContent(ctx, input)
	if err != nil {
		return nil, SearchContentOutput{}, err
	}
	return textResult(FormatResults(input.Query, out.Provider, out.Results)), out, nil
}

// mcpListProvidersHandler is the MCP SDK handler for the list_providers tool.
func (s *Server) mcpListProvidersHandler(_ context.Context, _ *mcp.CallToolRequest, _ ListProvidersInput) (
	*mcp.CallToolResult,
	ListProvidersOutput,
	error,
) {
	out := ListProvidersOutput{Providers: providerInfos(s.providers)}
	return textResult(FormatProviders(out.Providers)), out, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

// Serve runs the server on the specified transport until ctx is done.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("mcp_server_starting", slog.String("transport", transport))

	switch strings.ToLower(transport) {
	case "stdio", "":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("mcp_server_stopped")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
