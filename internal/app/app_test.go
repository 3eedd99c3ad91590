package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/contentsearch/internal/config"
	"github.com/Aman-CERP/contentsearch/internal/content"
	"github.com/Aman-CERP/contentsearch/internal/index"
	"github.com/Aman-CERP/contentsearch/internal/search"
)

func openSample(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := Open(cfg, t.TempDir(), Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	ctx := context.Background()
	_, err = a.LoadCorpus(ctx, "")
	require.NoError(t, err)
	_, err = a.Index(ctx, index.RunnerConfig{})
	require.NoError(t, err)
	return a
}

func titles(results []*search.Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Title)
	}
	return out
}

func TestOpen_RegistersProvidersInOrder(t *testing.T) {
	a, err := Open(nil, t.TempDir(), Options{InMemory: true})
	require.NoError(t, err)
	defer func() { _ = a.Close() }()

	assert.Equal(t, []string{"page", "block", "media"}, a.Providers.Names())
	page, ok := a.Providers.Get("page")
	require.True(t, ok)
	assert.Equal(t, "CMS", page.Area())
	assert.Equal(t, 99, page.SortOrder())
	assert.False(t, page.IncludeInvariant())

	block, _ := a.Providers.Get("block")
	assert.True(t, block.IncludeInvariant(), "non-localizable categories query the invariant partition")
	assert.Empty(t, a.DataDir())
}

func TestApp_SearchSampleCorpus(t *testing.T) {
	a := openSample(t, config.NewConfig())
	ctx := context.Background()

	tests := []struct {
		name     string
		provider string
		req      search.Request
		want     []string
	}{
		{
			name:     "pages visible to everyone",
			provider: "page",
			req:      search.Request{Query: "budget"},
			want:     []string{"Budget report 2024"},
		},
		{
			name:     "reader roles widen visibility",
			provider: "page",
			req:      search.Request{Query: "budget", Principal: search.Principal{Roles: []string{"Employees"}}},
			want:     []string{"Budget report 2024", "Intranet"},
		},
		{
			name:     "blocks",
			provider: "block",
			req:      search.Request{Query: "budget"},
			want:     []string{"Budget teaser"},
		},
		{
			name:     "textual attachment content",
			provider: "media",
			req:      search.Request{Query: "committee"},
			want:     []string{"budget-minutes.txt"},
		},
		{
			name:     "root scope",
			provider: "page",
			req:      search.Request{Query: "budget", Roots: []string{"5"}, Principal: search.Principal{Roles: []string{"Employees"}}},
			want:     []string{"Intranet"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := a.Providers.Get(tt.provider)
			require.True(t, ok)
			results, err := p.Search(ctx, tt.req)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, titles(results))
		})
	}
}

func TestApp_ResultShape(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Site.CurrentURL = "https://www.example.com"
	a := openSample(t, cfg)

	page, _ := a.Providers.Get("page")
	results, err := page.Search(context.Background(), search.Request{Query: "budget", Culture: "sv"})
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, "contentdata:///2#language=en", r.Link, "localizable content links to its own branch")
	assert.Equal(t, "English", r.Language)
	assert.Equal(t, "2", r.Metadata[search.MetaID])
	assert.Equal(t, "1", r.Metadata[search.MetaParentID])
	assert.Equal(t, "true", r.Metadata[search.MetaIsOnCurrentHost])
	assert.Equal(t, content.GUIDFor(content.Reference{ID: 2}).String(), r.Metadata[search.MetaGUID],
		"records without an explicit GUID get the derived one")
	assert.NotContains(t, r.Preview, "<b>")
	require.NotEmpty(t, r.Tooltip)
	assert.Equal(t, search.TooltipElement{Label: "ID", Value: "2"}, r.Tooltip[0])
}

func TestApp_CheckerAfterIndex(t *testing.T) {
	a := openSample(t, config.NewConfig())
	res, err := a.Checker().Check(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Consistent())
}

func TestApp_OnDisk(t *testing.T) {
	dir := t.TempDir()
	cfg := config.NewConfig()
	ctx := context.Background()

	a, err := Open(cfg, dir, Options{})
	require.NoError(t, err)
	assert.Equal(t, cfg.DataPath(dir), a.DataDir())
	_, err = a.LoadCorpus(ctx, "")
	require.NoError(t, err)
	res, err := a.Index(ctx, index.RunnerConfig{})
	require.NoError(t, err)
	assert.Positive(t, res.Total())
	require.NoError(t, a.Close())

	// Reopening finds the indexed content without reindexing
	a, err = Open(cfg, dir, Options{})
	require.NoError(t, err)
	defer func() { _ = a.Close() }()
	page, _ := a.Providers.Get("page")
	results, err := page.Search(ctx, search.Request{Query: "budget"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Budget report 2024"}, titles(results))
}
