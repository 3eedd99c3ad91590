package search

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/Aman-CERP/contentsearch/internal/content"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeClient struct {
	lang    string
	hits    []Hit
	err     error
	nilResp bool
	delay   time.Duration

	mu    sync.Mutex
	calls []ClientQuery
}

func (c *fakeClient) Language() string { return c.lang }

func (c *fakeClient) SearchContent(ctx context.Context, q ClientQuery) (*Response, error) {
	c.mu.Lock()
	c.calls = append(c.calls, q)
	c.mu.Unlock()

	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.err != nil {
		return nil, c.err
	}
	if c.nilResp {
		return nil, nil
	}
	return &Response{Hits: c.hits, Total: uint64(len(c.hits))}, nil
}

func (c *fakeClient) Calls() []ClientQuery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ClientQuery(nil), c.calls...)
}

type fakeRegistry []Client

func (r fakeRegistry) Clients() []Client { return r }

func hitFor(ref string) Hit {
	return Hit{Fields: map[string][]string{ContentLinkField: {ref}}}
}

type repoKey struct {
	ref  content.Reference
	lang string
}

// fakeRepo serves records by reference and language branch. Lookups for a
// branch it does not hold fall back to the master branch.
type fakeRepo struct {
	mu      sync.Mutex
	records map[repoKey]*content.Record
	langs   []string
}

func newFakeRepo(recs ...*content.Record) *fakeRepo {
	r := &fakeRepo{records: map[repoKey]*content.Record{}}
	for _, rec := range recs {
		r.records[repoKey{rec.Link, rec.Language}] = rec
		if _, ok := r.records[repoKey{rec.Link, ""}]; !ok {
			r.records[repoKey{rec.Link, ""}] = rec
		}
	}
	return r
}

func (r *fakeRepo) Get(_ context.Context, ref content.Reference, opts ...content.GetOption) (*content.Record, error) {
	o := content.ApplyGetOptions(opts...)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.langs = append(r.langs, o.Language)
	if rec, ok := r.records[repoKey{ref, o.Language}]; ok {
		return rec, nil
	}
	if rec, ok := r.records[repoKey{ref, ""}]; ok {
		return rec, nil
	}
	return nil, fmt.Errorf("get %s: %w", ref, content.ErrNotFound)
}

type fakeTypes map[int]*content.ContentType

func (f fakeTypes) Load(_ context.Context, id int) (*content.ContentType, error) {
	if t, ok := f[id]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("type %d: %w", id, content.ErrNotFound)
}

type fakeLocalizer map[string]string

func (f fakeLocalizer) GetString(_ context.Context, key string) string { return f[key] }

type fakeSites struct {
	owner   map[content.Reference]*content.Site
	current *content.Site
}

func (f fakeSites) SiteFor(_ context.Context, rec *content.Record) (*content.Site, bool) {
	s, ok := f.owner[rec.Link]
	return s, ok
}

func (f fakeSites) Current(context.Context) (*content.Site, bool) {
	return f.current, f.current != nil
}

func page(id int, name, lang string, props ...content.Property) *content.Record {
	return &content.Record{
		Link:        content.Reference{ID: id},
		Name:        name,
		Parent:      content.Reference{ID: 1},
		TypeID:      10,
		Localizable: lang != "",
		Language:    lang,
		Properties:  props,
	}
}
