package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/contentsearch/internal/content"
	cserrors "github.com/Aman-CERP/contentsearch/internal/errors"
)

func newTestFanOut(t *testing.T, reg Registry, includeInvariant bool) *FanOut {
	t.Helper()
	f, err := NewFanOut(reg, FanOutOptions{IncludeInvariant: includeInvariant, Logger: quietLogger()})
	require.NoError(t, err)
	return f
}

func TestNewFanOut_NilRegistry(t *testing.T) {
	_, err := NewFanOut(nil, FanOutOptions{})
	assert.ErrorIs(t, err, cserrors.ErrCapabilityMissing)
}

func TestFanOut_RegistryOrderUnderConcurrency(t *testing.T) {
	// Earlier clients answer later, so completion order is reversed.
	en := &fakeClient{lang: "en", hits: []Hit{hitFor("1"), hitFor("2")}, delay: 40 * time.Millisecond}
	fr := &fakeClient{lang: "fr", hits: []Hit{hitFor("3")}, delay: 20 * time.Millisecond}
	de := &fakeClient{lang: "de", hits: []Hit{hitFor("4")}}
	f := newTestFanOut(t, fakeRegistry{en, fr, de}, false)

	sets, err := f.Execute(t.Context(), Query{Text: "q"}, Principal{})
	require.NoError(t, err)
	require.Len(t, sets, 3)
	assert.Equal(t, []string{"en", "fr", "de"}, []string{sets[0].Language, sets[1].Language, sets[2].Language})
	assert.Len(t, sets[0].Hits, 2)
	assert.Equal(t, "en", sets[0].Hits[1].Language, "hits carry their client language")
}

func TestFanOut_DropsEmptyAndFailed(t *testing.T) {
	en := &fakeClient{lang: "en", hits: []Hit{hitFor("1")}}
	fr := &fakeClient{lang: "fr"}
	sv := &fakeClient{lang: "sv", nilResp: true}
	de := &fakeClient{lang: "de", err: errors.New("connection refused")}
	nl := &fakeClient{lang: "nl", hits: []Hit{hitFor("2")}, delay: 10 * time.Millisecond}
	f := newTestFanOut(t, fakeRegistry{en, fr, sv, de, nl}, false)

	sets, err := f.Execute(t.Context(), Query{}, Principal{})
	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Equal(t, "en", sets[0].Language)
	assert.Equal(t, "nl", sets[1].Language, "a failing client does not cancel slower siblings")
	assert.Len(t, de.Calls(), 1)
}

func TestFanOut_InvariantEligibility(t *testing.T) {
	tests := []struct {
		name    string
		include bool
		want    []string
	}{
		{"excluded", false, []string{"en"}},
		{"included", true, []string{"en", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			en := &fakeClient{lang: "en", hits: []Hit{hitFor("1")}}
			inv := &fakeClient{lang: content.InvariantLanguage, hits: []Hit{hitFor("9")}}
			f := newTestFanOut(t, fakeRegistry{en, inv}, tt.include)

			sets, err := f.Execute(t.Context(), Query{}, Principal{})
			require.NoError(t, err)
			var langs []string
			for _, s := range sets {
				langs = append(langs, s.Language)
			}
			assert.Equal(t, tt.want, langs)
			if !tt.include {
				assert.Empty(t, inv.Calls(), "excluded invariant client is never called")
			}
		})
	}
}

func TestFanOut_PassesFilters(t *testing.T) {
	en := &fakeClient{lang: "en"}
	inv := &fakeClient{lang: content.InvariantLanguage}
	f := newTestFanOut(t, fakeRegistry{en, inv}, true)

	q := Query{
		Text:  "budget",
		Limit: 7,
		Types: []string{"content.page"},
		Roots: []content.Reference{{ID: 5}},
	}
	who := Principal{Name: "ed", Roles: []string{"Editors"}}
	_, err := f.Execute(t.Context(), q, who)
	require.NoError(t, err)

	require.Len(t, en.Calls(), 1)
	got := en.Calls()[0]
	assert.Equal(t, q, got.Query)
	assert.Equal(t, who, got.Principal)
	assert.False(t, got.IncludeNeutral)

	require.Len(t, inv.Calls(), 1)
	assert.True(t, inv.Calls()[0].IncludeNeutral)
	assert.Equal(t, who, inv.Calls()[0].Principal)
}

func TestFanOut_Parallelism(t *testing.T) {
	var clients fakeRegistry
	for _, lang := range []string{"a", "b", "c", "d", "e", "f"} {
		clients = append(clients, &fakeClient{lang: lang, hits: []Hit{hitFor("1")}, delay: 5 * time.Millisecond})
	}
	f, err := NewFanOut(clients, FanOutOptions{Parallelism: 2, Logger: quietLogger()})
	require.NoError(t, err)

	sets, err := f.Execute(t.Context(), Query{}, Principal{})
	require.NoError(t, err)
	assert.Len(t, sets, 6)
}

func TestFanOut_ContextCanceled(t *testing.T) {
	en := &fakeClient{lang: "en", hits: []Hit{hitFor("1")}, delay: time.Second}
	f := newTestFanOut(t, fakeRegistry{en}, false)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := f.Execute(ctx, Query{}, Principal{})
	assert.ErrorIs(t, err, context.Canceled)
}
