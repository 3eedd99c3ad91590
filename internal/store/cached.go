package store

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/contentsearch/internal/content"
)

// DefaultRecordCacheSize is the default number of resolved records to cache.
const DefaultRecordCacheSize = 1000

type cacheKey struct {
	ref  content.Reference
	lang string
}

// CachedRepository wraps a Repository with an LRU cache of resolved
// records. Failed lookups are not cached, so stale references keep failing
// and recreated content becomes visible.
type CachedRepository struct {
	inner content.Repository
	cache *lru.Cache[cacheKey, *content.Record]
}

var _ content.Repository = (*CachedRepository)(nil)

// NewCachedRepository caches up to size records from inner.
func NewCachedRepository(inner content.Repository, size int) *CachedRepository {
	if size <= 0 {
		size = DefaultRecordCacheSize
	}
	cache, _ := lru.New[cacheKey, *content.Record](size)
	return &CachedRepository{inner: inner, cache: cache}
}

// Get implements content.Repository.
func (c *CachedRepository) Get(ctx context.Context, ref content.Reference, opts ...content.GetOption) (*content.Record, error) {
	key := cacheKey{ref: ref, lang: content.ApplyGetOptions(opts...).Language}
	if rec, ok := c.cache.Get(key); ok {
		return rec, nil
	}
	rec, err := c.inner.Get(ctx, ref, opts...)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, rec)
	return rec, nil
}

// Purge drops every cached record.
func (c *CachedRepository) Purge() {
	c.cache.Purge()
}

// Len returns the number of cached records.
func (c *CachedRepository) Len() int {
	return c.cache.Len()
}
