package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/contentsearch/internal/app"
	"github.com/Aman-CERP/contentsearch/internal/config"
	cserrors "github.com/Aman-CERP/contentsearch/internal/errors"
	"github.com/Aman-CERP/contentsearch/internal/index"
	"github.com/Aman-CERP/contentsearch/internal/search"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.NewConfig()
	a, err := app.Open(cfg, t.TempDir(), app.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	ctx := context.Background()
	_, err = a.LoadCorpus(ctx, "")
	require.NoError(t, err)
	_, err = a.Index(ctx, index.RunnerConfig{})
	require.NoError(t, err)

	s, err := NewServer(a.Providers, cfg, nil)
	require.NoError(t, err)
	return s
}

func TestNewServer_RequiresProviders(t *testing.T) {
	_, err := NewServer(nil, nil, nil)
	assert.Equal(t, cserrors.ErrCodeCapabilityMissing, cserrors.GetCode(err))

	_, err = NewServer(search.NewProviders(), nil, nil)
	assert.ErrorIs(t, err, cserrors.ErrCapabilityMissing)
}

func TestServer_InfoAndTools(t *testing.T) {
	s := newTestServer(t)
	name, _ := s.Info()
	assert.Equal(t, "contentsearch", name)

	var names []string
	for _, tool := range s.ListTools() {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description)
	}
	assert.Equal(t, []string{ToolSearchContent, ToolListProviders}, names)
	assert.NotNil(t, s.MCPServer())
}

func TestServer_SearchContent(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	// Given: a page query with the reader role of the intranet
	out, err := s.searchContent(ctx, SearchContentInput{Query: "budget", Roles: []string{"Employees"}})
	require.NoError(t, err)

	// Then: the page provider answers with both visible pages
	assert.Equal(t, "page", out.Provider)
	var titles []string
	for _, r := range out.Results {
		titles = append(titles, r.Title)
	}
	assert.ElementsMatch(t, []string{"Budget report 2024", "Intranet"}, titles)

	// When: searching blocks
	out, err = s.searchContent(ctx, SearchContentInput{Query: "budget", Category: "block"})
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "Budget teaser", out.Results[0].Title)
}

func TestServer_SearchContent_InvalidInput(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		in       SearchContentInput
		wantCode int
	}{
		{"empty query", SearchContentInput{Query: "  "}, ErrCodeInvalidParams},
		{"negative limit", SearchContentInput{Query: "budget", Limit: -1}, ErrCodeInvalidParams},
		{"unknown category", SearchContentInput{Query: "budget", Category: "video"}, ErrCodeProviderNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.searchContent(ctx, tt.in)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, MapError(err).Code)
		})
	}
}

func TestServer_SearchContent_Canceled(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.searchContent(ctx, SearchContentInput{Query: "budget"})
	require.Error(t, err)
	assert.Equal(t, ErrCodeTimeout, MapError(err).Code)
}

func TestServer_CallTool(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	text, err := s.CallTool(ctx, ToolSearchContent, map[string]any{"query": "committee", "category": "media"})
	require.NoError(t, err)
	assert.Contains(t, text, "## Media results for \"committee\"")
	assert.Contains(t, text, "budget-minutes.txt")

	text, err = s.CallTool(ctx, ToolListProviders, nil)
	require.NoError(t, err)
	assert.Contains(t, text, "**page**")

	_, err = s.CallTool(ctx, ToolSearchContent, map[string]any{"query": 42})
	assert.Equal(t, ErrCodeInvalidParams, MapError(err).Code)

	_, err = s.CallTool(ctx, "index_status", nil)
	assert.Equal(t, ErrCodeMethodNotFound, MapError(err).Code)
}

func TestServer_Serve_UnknownTransport(t *testing.T) {
	s := newTestServer(t)
	err := s.Serve(context.Background(), "sse")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown transport")
}

func TestServer_InMemorySession(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := s.MCPServer().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer func() { _ = serverSession.Close() }()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer func() { _ = session.Close() }()

	// Tools are listed
	listed, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range listed.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{ToolSearchContent, ToolListProviders}, names)

	// search_content returns markdown and structured results
	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      ToolSearchContent,
		Arguments: map[string]any{"query": "budget"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "Budget report 2024")

	raw, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	var out SearchContentOutput
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Len(t, out.Results, 1)
	assert.Equal(t, "contentdata:///2#language=en", out.Results[0].Link)

	// list_providers reports identity metadata
	res, err = session.CallTool(ctx, &mcp.CallToolParams{Name: ToolListProviders, Arguments: map[string]any{}})
	require.NoError(t, err)
	raw, err = json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	var providers ListProvidersOutput
	require.NoError(t, json.Unmarshal(raw, &providers))
	require.Len(t, providers.Providers, 3)
	assert.Equal(t, ProviderInfo{Name: "page", Area: "CMS", Category: "page", SortOrder: 99}, providers.Providers[0])

	// Tool errors are reported in the result
	res, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      ToolSearchContent,
		Arguments: map[string]any{"query": "budget", "category": "video"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
