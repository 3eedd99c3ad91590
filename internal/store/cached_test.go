package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/contentsearch/internal/content"
)

type countingRepo struct {
	mu    sync.Mutex
	calls int
	recs  map[string]*content.Record
}

func (r *countingRepo) Get(_ context.Context, ref content.Reference, opts ...content.GetOption) (*content.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	lang := content.ApplyGetOptions(opts...).Language
	if rec, ok := r.recs[ref.String()+"/"+lang]; ok {
		return rec, nil
	}
	return nil, fmt.Errorf("%s: %w", ref, content.ErrNotFound)
}

func TestCachedRepository_CachesByReferenceAndLanguage(t *testing.T) {
	inner := &countingRepo{recs: map[string]*content.Record{
		"1/en": {Link: content.Reference{ID: 1}, Name: "Start", Language: "en"},
		"1/fr": {Link: content.Reference{ID: 1}, Name: "Accueil", Language: "fr"},
	}}
	repo := NewCachedRepository(inner, 8)
	ctx := context.Background()

	for range 3 {
		rec, err := repo.Get(ctx, content.Reference{ID: 1}, content.WithLanguage("en"))
		require.NoError(t, err)
		assert.Equal(t, "Start", rec.Name)
	}
	assert.Equal(t, 1, inner.calls)

	rec, err := repo.Get(ctx, content.Reference{ID: 1}, content.WithLanguage("fr"))
	require.NoError(t, err)
	assert.Equal(t, "Accueil", rec.Name)
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 2, repo.Len())
}

func TestCachedRepository_DoesNotCacheFailures(t *testing.T) {
	inner := &countingRepo{recs: map[string]*content.Record{}}
	repo := NewCachedRepository(inner, 0)
	ctx := context.Background()

	_, err := repo.Get(ctx, content.Reference{ID: 7})
	assert.ErrorIs(t, err, content.ErrNotFound)
	_, err = repo.Get(ctx, content.Reference{ID: 7})
	assert.ErrorIs(t, err, content.ErrNotFound)
	assert.Equal(t, 2, inner.calls)
	assert.Zero(t, repo.Len())

	// Content created later becomes visible.
	inner.recs["7/"] = &content.Record{Link: content.Reference{ID: 7}, Name: "late"}
	rec, err := repo.Get(ctx, content.Reference{ID: 7})
	require.NoError(t, err)
	assert.Equal(t, "late", rec.Name)
}

func TestCachedRepository_EvictionAndPurge(t *testing.T) {
	inner := &countingRepo{recs: map[string]*content.Record{}}
	for i := 1; i <= 3; i++ {
		inner.recs[fmt.Sprintf("%d/", i)] = &content.Record{Link: content.Reference{ID: i}}
	}
	repo := NewCachedRepository(inner, 2)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		_, err := repo.Get(ctx, content.Reference{ID: i})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, repo.Len())

	// 1 was evicted.
	_, err := repo.Get(ctx, content.Reference{ID: 1})
	require.NoError(t, err)
	assert.Equal(t, 4, inner.calls)

	repo.Purge()
	assert.Zero(t, repo.Len())
}

func TestCachedRepository_OverSQLite(t *testing.T) {
	sqlite := newTestRepo(t)
	seedTree(t, sqlite)
	repo := NewCachedRepository(sqlite, 10)

	rec, err := repo.Get(context.Background(), content.Reference{ID: 3}, content.WithLanguage("fr"))
	require.NoError(t, err)
	assert.Equal(t, "Article fr", rec.Name)
}
