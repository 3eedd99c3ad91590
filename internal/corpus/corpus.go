// Package corpus loads a YAML description of sites, content types, UI
// strings, records and media into a content repository.
package corpus

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/contentsearch/internal/content"
	cserrors "github.com/Aman-CERP/contentsearch/internal/errors"
)

// Writer is the repository surface the loader writes through.
type Writer interface {
	PutType(ctx context.Context, t *content.ContentType) error
	PutSite(ctx context.Context, s *content.Site) error
	PutString(ctx context.Context, key, value string) error
	PutRecord(ctx context.Context, rec *content.Record) error
	PutMedia(ctx context.Context, rec *content.Record, mime string, data []byte) error
}

// File is the YAML document layout.
type File struct {
	Types   []Type            `yaml:"types"`
	Sites   []Site            `yaml:"sites"`
	Strings map[string]string `yaml:"strings"`
	Records []Record          `yaml:"records"`
	Media   []Media           `yaml:"media"`
}

// Type is a content type entry.
type Type struct {
	ID          int    `yaml:"id"`
	Name        string `yaml:"name"`
	DisplayName string `yaml:"display_name"`
	Category    string `yaml:"category"`
}

// Site is a site entry.
type Site struct {
	Name      string `yaml:"name"`
	URL       string `yaml:"url"`
	StartPage string `yaml:"start_page"`
}

// Property is one property entry.
type Property struct {
	Name  string `yaml:"name"`
	Kind  string `yaml:"kind"`
	Type  string `yaml:"type"`
	Value string `yaml:"value"`
}

// Branch is one language branch of a localizable record.
type Branch struct {
	Name       string     `yaml:"name"`
	Properties []Property `yaml:"properties"`
}

// Record is a record entry. A record with branches is localizable and
// stored once per branch; otherwise Name and Properties describe its
// single neutral branch.
type Record struct {
	Ref        string            `yaml:"ref"`
	Parent     string            `yaml:"parent"`
	Type       int               `yaml:"type"`
	Name       string            `yaml:"name"`
	Readers    []string          `yaml:"readers"`
	Created    *time.Time        `yaml:"created"`
	Changed    *time.Time        `yaml:"changed"`
	Properties []Property        `yaml:"properties"`
	Branches   map[string]Branch `yaml:"branches"`
}

// Media is a media entry. The payload is File, a slash-separated path
// relative to the corpus file, or the inline Text.
type Media struct {
	Record `yaml:",inline"`
	Mime   string `yaml:"mime"`
	File   string `yaml:"file"`
	Text   string `yaml:"text"`
}

// Stats counts what a load wrote.
type Stats struct {
	Types    int
	Sites    int
	Strings  int
	Branches int
	Media    int
}

// Parse decodes a corpus document. Unknown keys are rejected.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, cserrors.ValidationError("failed to parse corpus", err)
	}
	return &f, nil
}

// LoadFile parses the corpus at path and writes it to w.
func LoadFile(ctx context.Context, path string, w Writer) (*Stats, error) {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	return LoadFS(ctx, os.DirFS(dir), name, w)
}

// LoadFS parses the corpus at name in fsys and writes it to w.
func LoadFS(ctx context.Context, fsys fs.FS, name string, w Writer) (*Stats, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, cserrors.New(cserrors.ErrCodeFileNotFound, "failed to read corpus "+name, err)
	}
	f, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	sub := path.Dir(name)
	if sub != "." {
		if fsys, err = fs.Sub(fsys, sub); err != nil {
			return nil, err
		}
	}
	return f.Load(ctx, w, fsys)
}

// Load writes the corpus to w. Media files are read from fsys, which may be
// nil when every payload is inline. Entries are validated before anything
// is written.
func (f *File) Load(ctx context.Context, w Writer, fsys fs.FS) (*Stats, error) {
	types, err := f.contentTypes()
	if err != nil {
		return nil, err
	}
	sites, err := f.sites()
	if err != nil {
		return nil, err
	}
	records, err := f.records()
	if err != nil {
		return nil, err
	}
	media, err := f.media(fsys)
	if err != nil {
		return nil, err
	}

	st := &Stats{}
	for _, t := range types {
		if err := w.PutType(ctx, t); err != nil {
			return st, err
		}
		st.Types++
	}
	for _, s := range sites {
		if err := w.PutSite(ctx, s); err != nil {
			return st, err
		}
		st.Sites++
	}
	keys := make([]string, 0, len(f.Strings))
	for k := range f.Strings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.PutString(ctx, k, f.Strings[k]); err != nil {
			return st, err
		}
		st.Strings++
	}
	for _, rec := range records {
		if err := w.PutRecord(ctx, rec); err != nil {
			return st, err
		}
		st.Branches++
	}
	for _, m := range media {
		for _, rec := range m.branches {
			if err := w.PutMedia(ctx, rec, m.mime, m.data); err != nil {
				return st, err
			}
		}
		st.Media++
	}
	return st, nil
}

func (f *File) contentTypes() ([]*content.ContentType, error) {
	out := make([]*content.ContentType, 0, len(f.Types))
	for i, t := range f.Types {
		c := content.Category(t.Category)
		if t.ID <= 0 || t.Name == "" || !c.Valid() || c == content.CategoryContent {
			return nil, cserrors.ValidationError(fmt.Sprintf("types[%d]: need a positive id, a name and a page, block or media category", i), nil)
		}
		out = append(out, &content.ContentType{ID: t.ID, Name: t.Name, DisplayName: t.DisplayName, Category: c})
	}
	return out, nil
}

func (f *File) sites() ([]*content.Site, error) {
	out := make([]*content.Site, 0, len(f.Sites))
	for i, s := range f.Sites {
		if s.Name == "" || s.URL == "" {
			return nil, cserrors.ValidationError(fmt.Sprintf("sites[%d]: name and url are required", i), nil)
		}
		start, err := optionalRef(s.StartPage)
		if err != nil {
			return nil, cserrors.ValidationError(fmt.Sprintf("sites[%d]: start_page", i), err)
		}
		out = append(out, &content.Site{Name: s.Name, URL: s.URL, StartPage: start})
	}
	return out, nil
}

func (f *File) records() ([]*content.Record, error) {
	var out []*content.Record
	for i, r := range f.Records {
		branches, err := r.branches()
		if err != nil {
			return nil, cserrors.ValidationError(fmt.Sprintf("records[%d]", i), err)
		}
		out = append(out, branches...)
	}
	return out, nil
}

type mediaEntry struct {
	branches []*content.Record
	mime     string
	data     []byte
}

func (f *File) media(fsys fs.FS) ([]mediaEntry, error) {
	out := make([]mediaEntry, 0, len(f.Media))
	for i, m := range f.Media {
		branches, err := m.branches()
		if err != nil {
			return nil, cserrors.ValidationError(fmt.Sprintf("media[%d]", i), err)
		}
		if m.Mime == "" {
			return nil, cserrors.ValidationError(fmt.Sprintf("media[%d]: mime is required", i), nil)
		}
		data := []byte(m.Text)
		if m.File != "" {
			if fsys == nil {
				return nil, cserrors.ValidationError(fmt.Sprintf("media[%d]: file %s needs a corpus directory", i, m.File), nil)
			}
			if data, err = fs.ReadFile(fsys, m.File); err != nil {
				return nil, cserrors.New(cserrors.ErrCodeFileNotFound, fmt.Sprintf("media[%d]: read %s", i, m.File), err)
			}
		}
		out = append(out, mediaEntry{branches: branches, mime: m.Mime, data: data})
	}
	return out, nil
}

// branches expands r into one record per language branch.
func (r Record) branches() ([]*content.Record, error) {
	link, err := content.ParseReference(r.Ref)
	if err != nil {
		return nil, err
	}
	parent, err := optionalRef(r.Parent)
	if err != nil {
		return nil, fmt.Errorf("parent: %w", err)
	}
	var tracking *content.ChangeTracking
	if r.Created != nil || r.Changed != nil {
		tracking = &content.ChangeTracking{}
		if r.Created != nil {
			tracking.Created = r.Created.UTC()
		}
		if r.Changed != nil {
			tracking.Changed = r.Changed.UTC()
		} else {
			tracking.Changed = tracking.Created
		}
	}

	base := func(name string, props []Property) (*content.Record, error) {
		ps, err := properties(props)
		if err != nil {
			return nil, err
		}
		return &content.Record{
			Link:       link,
			Name:       name,
			Parent:     parent,
			TypeID:     r.Type,
			Tracking:   tracking,
			Readers:    r.Readers,
			Properties: ps,
		}, nil
	}

	if len(r.Branches) == 0 {
		rec, err := base(r.Name, r.Properties)
		if err != nil {
			return nil, err
		}
		return []*content.Record{rec}, nil
	}

	langs := make([]string, 0, len(r.Branches))
	for l := range r.Branches {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	out := make([]*content.Record, 0, len(langs))
	for _, l := range langs {
		if l == content.InvariantLanguage {
			return nil, fmt.Errorf("branch language must not be empty")
		}
		b := r.Branches[l]
		name := b.Name
		if name == "" {
			name = r.Name
		}
		rec, err := base(name, append(append([]Property(nil), r.Properties...), b.Properties...))
		if err != nil {
			return nil, fmt.Errorf("branch %s: %w", l, err)
		}
		rec.Localizable = true
		rec.Language = l
		out = append(out, rec)
	}
	return out, nil
}

var kinds = map[content.PropertyKind]bool{
	content.KindString:     true,
	content.KindLongString: true,
	content.KindXhtml:      true,
	content.KindNumber:     true,
	content.KindDate:       true,
	content.KindBoolean:    true,
	content.KindReference:  true,
}

func properties(in []Property) ([]content.Property, error) {
	out := make([]content.Property, 0, len(in))
	for _, p := range in {
		kind := content.PropertyKind(p.Kind)
		if kind == "" {
			kind = content.KindString
		}
		if !kinds[kind] {
			return nil, fmt.Errorf("property %s: unknown kind %q", p.Name, p.Kind)
		}
		if p.Name == "" {
			return nil, fmt.Errorf("property without a name")
		}
		out = append(out, content.Property{Name: p.Name, Kind: kind, Type: p.Type, Value: p.Value})
	}
	return out, nil
}

func optionalRef(s string) (content.Reference, error) {
	if s == "" {
		return content.EmptyReference, nil
	}
	return content.ParseReference(s)
}
