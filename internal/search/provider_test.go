package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/contentsearch/internal/content"
	cserrors "github.com/Aman-CERP/contentsearch/internal/errors"
)

func TestProvider_BudgetReportScenario(t *testing.T) {
	repo := newFakeRepo(
		page(11, "Budget report 2024", "en", prop("MainIntro", content.KindLongString, "The annual budget report.")),
		page(12, "Budget report 2023", "en", prop("MainBody", content.KindXhtml, "<p>Last year's budget.</p>")),
	)
	en := &fakeClient{lang: "en", hits: []Hit{hitFor("11"), hitFor("12")}}
	fr := &fakeClient{lang: "fr"}

	p, err := NewProvider(Dependencies{Registry: fakeRegistry{en, fr}, Repository: repo}, WithLogger(quietLogger()))
	require.NoError(t, err)

	results, err := p.Search(t.Context(), Request{Query: "budget report", Roots: []string{}, MaxResults: 10})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, "en", r.Metadata[MetaLanguageBranch])
	}
	assert.Equal(t, "11", results[0].Metadata[MetaID])
	assert.Equal(t, "12", results[1].Metadata[MetaID])
	assert.Equal(t, "The annual budget report.", results[0].Preview)
	assert.Equal(t, "Last year's budget.", results[1].Preview)

	require.Len(t, en.Calls(), 1)
	q := en.Calls()[0]
	assert.Equal(t, "budget report", q.Text)
	assert.Equal(t, 10, q.Limit)
	assert.Empty(t, q.Roots)
}

func TestProvider_MetadataIDRoundTrip(t *testing.T) {
	refs := []content.Reference{{ID: 3}, {ID: 4, WorkID: 9}, {ID: 5, Provider: "catalog"}}
	var recs []*content.Record
	var hits []Hit
	for _, ref := range refs {
		recs = append(recs, &content.Record{Link: ref, Name: ref.String()})
		hits = append(hits, hitFor(ref.String()))
	}
	p, err := NewProvider(Dependencies{
		Registry:   fakeRegistry{&fakeClient{lang: "en", hits: hits}},
		Repository: newFakeRepo(recs...),
	}, WithLogger(quietLogger()))
	require.NoError(t, err)

	results, err := p.Search(t.Context(), Request{Query: "x"})
	require.NoError(t, err)
	require.Len(t, results, len(refs))
	for i, r := range results {
		parsed, err := content.ParseReference(r.Metadata[MetaID])
		require.NoError(t, err)
		assert.Equal(t, refs[i], parsed)
		assert.Equal(t, refs[i].String(), r.Metadata[MetaID])
	}
}

func TestProvider_InvariantExcluded(t *testing.T) {
	repo := newFakeRepo(page(1, "en page", "en"), page(2, "shared", ""))
	en := &fakeClient{lang: "en", hits: []Hit{hitFor("1")}}
	inv := &fakeClient{lang: content.InvariantLanguage, hits: []Hit{hitFor("2")}}
	deps := Dependencies{Registry: fakeRegistry{en, inv}, Repository: repo}

	excl, err := NewProvider(deps, WithLogger(quietLogger()))
	require.NoError(t, err)
	results, err := excl.Search(t.Context(), Request{Query: "q"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "1", results[0].Metadata[MetaID])
	assert.Empty(t, inv.Calls())

	incl, err := NewProvider(deps, WithIncludeInvariant(true), WithLogger(quietLogger()))
	require.NoError(t, err)
	results, err = incl.Search(t.Context(), Request{Query: "q"})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestProvider_DegradesFailures(t *testing.T) {
	repo := newFakeRepo(page(1, "one", "en"))
	registry := fakeRegistry{
		&fakeClient{lang: "en", hits: []Hit{hitFor("1"), hitFor("999")}},
		&fakeClient{lang: "fr", err: errors.New("timeout")},
	}

	lenient, err := NewProvider(Dependencies{Registry: registry, Repository: repo}, WithLogger(quietLogger()))
	require.NoError(t, err)
	results, err := lenient.Search(t.Context(), Request{Query: "q"})
	require.NoError(t, err)
	assert.Len(t, results, 1)

	strict, err := NewProvider(Dependencies{Registry: registry, Repository: repo},
		WithStrictHits(true), WithLogger(quietLogger()))
	require.NoError(t, err)
	results, err = strict.Search(t.Context(), Request{Query: "q"})
	require.NoError(t, err, "per-hit failures never surface")
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestProvider_ContextCanceled(t *testing.T) {
	p, err := NewProvider(Dependencies{
		Registry:   fakeRegistry{&fakeClient{lang: "en", hits: []Hit{hitFor("1")}}},
		Repository: newFakeRepo(page(1, "one", "en")),
	}, WithLogger(quietLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err = p.Search(ctx, Request{Query: "q"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewProvider_ConfigurationErrors(t *testing.T) {
	repo := newFakeRepo()
	reg := fakeRegistry{}

	_, err := NewProvider(Dependencies{Repository: repo})
	assert.ErrorIs(t, err, cserrors.ErrCapabilityMissing)

	_, err = NewProvider(Dependencies{Registry: reg})
	assert.ErrorIs(t, err, cserrors.ErrCapabilityMissing)

	_, err = NewProvider(Dependencies{Registry: reg, Repository: repo}, WithCategory("folder"))
	require.Error(t, err)
	assert.Equal(t, cserrors.ErrCodeCategoryUnknown, cserrors.GetCode(err))
}

func TestProvider_Identity(t *testing.T) {
	deps := Dependencies{Registry: fakeRegistry{}, Repository: newFakeRepo()}

	p, err := NewProvider(deps)
	require.NoError(t, err)
	assert.Equal(t, "page", p.Name())
	assert.Equal(t, DefaultArea, p.Area())
	assert.Equal(t, "page", p.Category())
	assert.Equal(t, DefaultSortOrder, p.SortOrder())
	assert.False(t, p.IncludeInvariant())

	p, err = NewProvider(deps, WithName("blocks"), WithArea("Assets"), WithCategory(content.CategoryBlock),
		WithSortOrder(10), WithIncludeInvariant(true))
	require.NoError(t, err)
	assert.Equal(t, "blocks", p.Name())
	assert.Equal(t, "Assets", p.Area())
	assert.Equal(t, "block", p.Category())
	assert.Equal(t, 10, p.SortOrder())
	assert.True(t, p.IncludeInvariant())
}

func TestProviders_Ordering(t *testing.T) {
	deps := Dependencies{Registry: fakeRegistry{}, Repository: newFakeRepo()}
	mk := func(name string, order int) *Provider {
		p, err := NewProvider(deps, WithName(name), WithSortOrder(order))
		require.NoError(t, err)
		return p
	}

	ps := NewProviders(mk("pages", 99), mk("media", 20), nil, mk("blocks", 99))
	assert.Equal(t, []string{"media", "blocks", "pages"}, ps.Names())
	assert.Len(t, ps.All(), 3)

	got, ok := ps.Get("blocks")
	require.True(t, ok)
	assert.Equal(t, "blocks", got.Name())

	_, ok = ps.Get("missing")
	assert.False(t, ok)
}
