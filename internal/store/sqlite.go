package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/Aman-CERP/contentsearch/internal/content"
)

const schema = `
CREATE TABLE IF NOT EXISTS content_types (
	id           INTEGER PRIMARY KEY,
	name         TEXT NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	category     TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS sites (
	name       TEXT PRIMARY KEY,
	url        TEXT NOT NULL,
	start_page TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS content (
	ref         TEXT NOT NULL,
	language    TEXT NOT NULL DEFAULT '',
	guid        TEXT NOT NULL,
	name        TEXT NOT NULL,
	parent      TEXT NOT NULL DEFAULT '',
	type_id     INTEGER NOT NULL,
	localizable INTEGER NOT NULL DEFAULT 0,
	created     INTEGER,
	changed     INTEGER,
	readers     TEXT NOT NULL DEFAULT '',
	mime        TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (ref, language)
);
CREATE INDEX IF NOT EXISTS idx_content_parent ON content(parent);
CREATE TABLE IF NOT EXISTS properties (
	ref      TEXT NOT NULL,
	language TEXT NOT NULL DEFAULT '',
	position INTEGER NOT NULL,
	name     TEXT NOT NULL,
	kind     TEXT NOT NULL,
	type     TEXT NOT NULL DEFAULT '',
	value    TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (ref, language, name)
);
CREATE TABLE IF NOT EXISTS blobs (
	ref  TEXT PRIMARY KEY,
	data BLOB
);
CREATE TABLE IF NOT EXISTS strings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// maxAncestorDepth bounds parent walks on malformed trees.
const maxAncestorDepth = 64

// RepositoryOption configures a SQLiteRepository.
type RepositoryOption func(*SQLiteRepository)

// WithCurrentSite sets the canonical URL of the site the caller works in.
func WithCurrentSite(url string) RepositoryOption {
	return func(r *SQLiteRepository) {
		r.currentURL = url
	}
}

// SQLiteRepository is the reference content platform: records, content
// types, sites and UI strings in one SQLite database.
type SQLiteRepository struct {
	mu         sync.RWMutex
	db         *sql.DB
	path       string
	currentURL string
	closed     bool
}

var (
	_ content.Repository     = (*SQLiteRepository)(nil)
	_ content.TypeRepository = (*SQLiteRepository)(nil)
	_ content.Localizer      = (*SQLiteRepository)(nil)
	_ content.SiteResolver   = (*SQLiteRepository)(nil)
)

// NewSQLiteRepository opens or creates the database at path.
// An empty path creates an in-memory database.
func NewSQLiteRepository(path string, opts ...RepositoryOption) (*SQLiteRepository, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Single connection: :memory: databases are per connection, and SQLite
	// allows one writer anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	if path != "" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	r := &SQLiteRepository{db: db, path: path}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Close closes the database.
func (r *SQLiteRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.db.Close()
}

func (r *SQLiteRepository) checkOpen() error {
	if r.closed {
		return errors.New("repository is closed")
	}
	return nil
}

// PutType stores a content type.
func (r *SQLiteRepository) PutType(ctx context.Context, t *content.ContentType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkOpen(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO content_types (id, name, display_name, category)
		VALUES (?, ?, ?, ?)`, t.ID, t.Name, t.DisplayName, string(t.Category))
	if err != nil {
		return fmt.Errorf("put type %d: %w", t.ID, err)
	}
	return nil
}

// PutSite stores a site definition.
func (r *SQLiteRepository) PutSite(ctx context.Context, s *content.Site) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkOpen(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO sites (name, url, start_page) VALUES (?, ?, ?)`,
		s.Name, s.URL, s.StartPage.String())
	if err != nil {
		return fmt.Errorf("put site %s: %w", s.Name, err)
	}
	return nil
}

// PutString stores a UI resource string.
func (r *SQLiteRepository) PutString(ctx context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkOpen(); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO strings (key, value) VALUES (?, ?)`, key, value); err != nil {
		return fmt.Errorf("put string %s: %w", key, err)
	}
	return nil
}

// PutRecord stores one language branch of a record with its properties.
func (r *SQLiteRepository) PutRecord(ctx context.Context, rec *content.Record) error {
	return r.put(ctx, rec, "", nil)
}

// PutMedia stores a media record and its binary payload. The payload is
// shared by every language branch.
func (r *SQLiteRepository) PutMedia(ctx context.Context, rec *content.Record, mime string, data []byte) error {
	if mime == "" {
		return fmt.Errorf("put media %s: mime type is required", rec.Link)
	}
	if data == nil {
		data = []byte{}
	}
	return r.put(ctx, rec, mime, data)
}

func (r *SQLiteRepository) put(ctx context.Context, rec *content.Record, mime string, data []byte) error {
	if rec.Link.IsEmpty() {
		return errors.New("put record: empty reference")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkOpen(); err != nil {
		return err
	}

	ref := rec.Link.String()
	lang := rec.Language
	if !rec.Localizable {
		lang = content.InvariantLanguage
	}
	guid := rec.GUID
	if guid == uuid.Nil {
		guid = content.GUIDFor(rec.Link)
	}
	var created, changed sql.NullInt64
	if rec.Tracking != nil {
		created = sql.NullInt64{Int64: rec.Tracking.Created.Unix(), Valid: true}
		changed = sql.NullInt64{Int64: rec.Tracking.Changed.Unix(), Valid: true}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put record %s: %w", ref, err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO content
		(ref, language, guid, name, parent, type_id, localizable, created, changed, readers, mime)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ref, lang, guid.String(), rec.Name, rec.Parent.String(), rec.TypeID, rec.Localizable,
		created, changed, strings.Join(rec.Readers, ","), mime)
	if err != nil {
		return fmt.Errorf("put record %s: %w", ref, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM properties WHERE ref = ? AND language = ?`, ref, lang); err != nil {
		return fmt.Errorf("put record %s: %w", ref, err)
	}
	for i, p := range rec.Properties {
		_, err := tx.ExecContext(ctx, `INSERT INTO properties (ref, language, position, name, kind, type, value)
			VALUES (?, ?, ?, ?, ?, ?, ?)`, ref, lang, i, p.Name, string(p.Kind), p.Type, p.Value)
		if err != nil {
			return fmt.Errorf("put property %s.%s: %w", ref, p.Name, err)
		}
	}
	if data != nil {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO blobs (ref, data) VALUES (?, ?)`, ref, data); err != nil {
			return fmt.Errorf("put blob %s: %w", ref, err)
		}
	}
	return tx.Commit()
}

type row struct {
	rec  *content.Record
	mime string
}

const selectContent = `SELECT ref, language, guid, name, parent, type_id, localizable, created, changed, readers, mime FROM content`

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(s scanner) (*row, error) {
	var (
		ref, lang, guid, name, parent, readers, mime string
		typeID                                       int
		localizable                                  bool
		created, changed                             sql.NullInt64
	)
	if err := s.Scan(&ref, &lang, &guid, &name, &parent, &typeID, &localizable, &created, &changed, &readers, &mime); err != nil {
		return nil, err
	}
	link, err := content.ParseReference(ref)
	if err != nil {
		return nil, fmt.Errorf("stored reference %q: %w", ref, err)
	}
	rec := &content.Record{
		Link:        link,
		Name:        name,
		TypeID:      typeID,
		Localizable: localizable,
		Language:    lang,
	}
	if g, err := uuid.Parse(guid); err == nil {
		rec.GUID = g
	}
	if p, ok := content.TryParseReference(parent); ok {
		rec.Parent = p
	}
	if created.Valid || changed.Valid {
		rec.Tracking = &content.ChangeTracking{
			Created: time.Unix(created.Int64, 0).UTC(),
			Changed: time.Unix(changed.Int64, 0).UTC(),
		}
	}
	if readers != "" {
		rec.Readers = strings.Split(readers, ",")
	}
	return &row{rec: rec, mime: mime}, nil
}

// Get implements content.Repository. The requested language branch is
// returned when present, else the language-neutral row. Without a language
// the first branch is returned.
func (r *SQLiteRepository) Get(ctx context.Context, ref content.Reference, opts ...content.GetOption) (*content.Record, error) {
	o := content.ApplyGetOptions(opts...)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	it, err := r.getRow(ctx, ref, o.Language)
	if err != nil {
		return nil, err
	}
	return it.rec, nil
}

// Item returns the indexable form of ref: a content.MediaRecord for media.
func (r *SQLiteRepository) Item(ctx context.Context, ref content.Reference, opts ...content.GetOption) (content.Item, error) {
	o := content.ApplyGetOptions(opts...)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	it, err := r.getRow(ctx, ref, o.Language)
	if err != nil {
		return nil, err
	}
	return r.item(it), nil
}

func (r *SQLiteRepository) getRow(ctx context.Context, ref content.Reference, lang string) (*row, error) {
	key := ref.String()
	queries := []struct {
		q    string
		args []any
	}{
		{selectContent + ` WHERE ref = ? AND language = ?`, []any{key, lang}},
		{selectContent + ` WHERE ref = ? AND language = ''`, []any{key}},
	}
	if lang == "" {
		queries = append(queries, struct {
			q    string
			args []any
		}{selectContent + ` WHERE ref = ? ORDER BY language LIMIT 1`, []any{key}})
	}

	for _, q := range queries {
		it, err := scanRow(r.db.QueryRowContext(ctx, q.q, q.args...))
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", key, err)
		}
		if err := r.fill(ctx, it.rec); err != nil {
			return nil, err
		}
		return it, nil
	}
	return nil, fmt.Errorf("get %s (language %q): %w", key, lang, content.ErrNotFound)
}

// fill loads properties and ancestors of rec.
func (r *SQLiteRepository) fill(ctx context.Context, rec *content.Record) error {
	rows, err := r.db.QueryContext(ctx, `SELECT name, kind, type, value FROM properties
		WHERE ref = ? AND language = ? ORDER BY position`, rec.Link.String(), rec.Language)
	if err != nil {
		return fmt.Errorf("load properties of %s: %w", rec.Link, err)
	}
	for rows.Next() {
		var p content.Property
		var kind string
		if err := rows.Scan(&p.Name, &kind, &p.Type, &p.Value); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan property of %s: %w", rec.Link, err)
		}
		p.Kind = content.PropertyKind(kind)
		rec.Properties = append(rec.Properties, p)
	}
	err = rows.Err()
	_ = rows.Close()
	if err != nil {
		return err
	}

	ancestors, err := r.ancestors(ctx, rec.Parent)
	if err != nil {
		return err
	}
	rec.Ancestors = ancestors
	return nil
}

// ancestors walks parent links from parent up to the root, returning them
// root first.
func (r *SQLiteRepository) ancestors(ctx context.Context, parent content.Reference) ([]content.Reference, error) {
	var chain []content.Reference
	seen := map[content.Reference]bool{}
	for cur := parent; !cur.IsEmpty() && !seen[cur] && len(chain) < maxAncestorDepth; {
		seen[cur] = true
		chain = append(chain, cur)
		var next string
		err := r.db.QueryRowContext(ctx, `SELECT parent FROM content WHERE ref = ? LIMIT 1`, cur.String()).Scan(&next)
		if errors.Is(err, sql.ErrNoRows) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("walk ancestors of %s: %w", cur, err)
		}
		cur, _ = content.TryParseReference(next)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

func (r *SQLiteRepository) item(it *row) content.Item {
	if it.mime == "" {
		return it.rec
	}
	key := it.rec.Link.String()
	return &content.MediaRecord{
		Record: it.rec,
		Mime:   it.mime,
		Blob: func(ctx context.Context) (io.ReadCloser, error) {
			r.mu.RLock()
			defer r.mu.RUnlock()
			if err := r.checkOpen(); err != nil {
				return nil, err
			}
			var data []byte
			err := r.db.QueryRowContext(ctx, `SELECT data FROM blobs WHERE ref = ?`, key).Scan(&data)
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("blob %s: %w", key, content.ErrNoBlob)
			}
			if err != nil {
				return nil, fmt.Errorf("blob %s: %w", key, err)
			}
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// Records calls fn for every stored language branch, ordered by reference.
// Media branches are passed as content.MediaRecord.
func (r *SQLiteRepository) Records(ctx context.Context, fn func(content.Item) error) error {
	r.mu.RLock()
	rows, err := r.loadRows(ctx)
	r.mu.RUnlock()
	if err != nil {
		return err
	}
	for _, it := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(r.item(it)); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRepository) loadRows(ctx context.Context) ([]*row, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, selectContent+` ORDER BY ref, language`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	var out []*row
	for rows.Next() {
		it, err := scanRow(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	// Properties are loaded after the cursor closes: the pool has one connection.
	for _, it := range out {
		if err := r.fill(ctx, it.rec); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Count returns the number of stored language branches.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.checkOpen(); err != nil {
		return 0, err
	}
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM content`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// Load implements content.TypeRepository.
func (r *SQLiteRepository) Load(ctx context.Context, typeID int) (*content.ContentType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	t := &content.ContentType{ID: typeID}
	var category string
	err := r.db.QueryRowContext(ctx, `SELECT name, display_name, category FROM content_types WHERE id = ?`, typeID).
		Scan(&t.Name, &t.DisplayName, &category)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("content type %d: %w", typeID, content.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load content type %d: %w", typeID, err)
	}
	t.Category = content.Category(category)
	return t, nil
}

// GetString implements content.Localizer.
func (r *SQLiteRepository) GetString(ctx context.Context, key string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ""
	}
	var v string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM strings WHERE key = ?`, key).Scan(&v)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Debug("string_lookup_failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		return ""
	}
	return v
}

// SiteFor implements content.SiteResolver: the owning site is the one whose
// start page is rec or one of its ancestors, nearest first.
func (r *SQLiteRepository) SiteFor(ctx context.Context, rec *content.Record) (*content.Site, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, false
	}
	sites, err := r.sites(ctx)
	if err != nil || len(sites) == 0 {
		return nil, false
	}
	byStart := make(map[string]*content.Site, len(sites))
	for _, s := range sites {
		byStart[s.StartPage.String()] = s
	}
	path := append([]content.Reference{rec.Link.WithoutVersion()}, reversed(rec.Ancestors)...)
	for _, ref := range path {
		if s, ok := byStart[ref.WithoutVersion().String()]; ok {
			return s, true
		}
	}
	return nil, false
}

// Current implements content.SiteResolver. The current site is the stored
// site with the configured URL, or a bare site carrying only the URL.
func (r *SQLiteRepository) Current(ctx context.Context) (*content.Site, bool) {
	if r.currentURL == "" {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.closed {
		if sites, err := r.sites(ctx); err == nil {
			want := strings.TrimSuffix(strings.ToLower(r.currentURL), "/")
			for _, s := range sites {
				if strings.TrimSuffix(strings.ToLower(s.URL), "/") == want {
					return s, true
				}
			}
		}
	}
	return &content.Site{URL: r.currentURL}, true
}

func (r *SQLiteRepository) sites(ctx context.Context) ([]*content.Site, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, url, start_page FROM sites ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*content.Site
	for rows.Next() {
		s := &content.Site{}
		var start string
		if err := rows.Scan(&s.Name, &s.URL, &start); err != nil {
			return nil, err
		}
		s.StartPage, _ = content.TryParseReference(start)
		out = append(out, s)
	}
	return out, rows.Err()
}

func reversed(refs []content.Reference) []content.Reference {
	out := make([]content.Reference, len(refs))
	for i, ref := range refs {
		out[len(refs)-1-i] = ref
	}
	return out
}
