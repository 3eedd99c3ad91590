package store

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/Aman-CERP/contentsearch/internal/content"
	"github.com/Aman-CERP/contentsearch/internal/search"
)

// InvariantDir names the invariant partition's index directory.
const InvariantDir = "invariant"

// Registry is a fixed, ordered set of language indices. Language
// partitions come first in configured order, then the invariant partition.
type Registry struct {
	indices []*LanguageIndex
}

var _ search.Registry = (*Registry)(nil)

// OpenRegistry opens one index per language under dir/index, plus the
// invariant partition when invariant is set. An empty dir opens in-memory
// indices.
func OpenRegistry(dir string, languages []string, invariant bool) (*Registry, error) {
	r := &Registry{}
	seen := map[string]bool{}
	open := func(lang string) error {
		if seen[lang] {
			return nil
		}
		seen[lang] = true
		idx, err := NewLanguageIndex(IndexPath(dir, lang), lang)
		if err != nil {
			return err
		}
		r.indices = append(r.indices, idx)
		return nil
	}
	for _, lang := range languages {
		if lang == content.InvariantLanguage {
			continue
		}
		if err := open(lang); err != nil {
			_ = r.Close()
			return nil, err
		}
	}
	if invariant {
		if err := open(content.InvariantLanguage); err != nil {
			_ = r.Close()
			return nil, err
		}
	}
	return r, nil
}

// IndexPath returns the index directory of a partition, or "" when dir is empty.
func IndexPath(dir, lang string) string {
	if dir == "" {
		return ""
	}
	name := lang
	if lang == content.InvariantLanguage {
		name = InvariantDir
	}
	return filepath.Join(dir, "index", name+".bleve")
}

// Clients implements search.Registry.
func (r *Registry) Clients() []search.Client {
	out := make([]search.Client, len(r.indices))
	for i, idx := range r.indices {
		out[i] = idx
	}
	return out
}

// Index returns the partition for lang.
func (r *Registry) Index(lang string) (*LanguageIndex, bool) {
	for _, idx := range r.indices {
		if idx.Language() == lang {
			return idx, true
		}
	}
	return nil, false
}

// Indices returns the partitions in order.
func (r *Registry) Indices() []*LanguageIndex {
	return append([]*LanguageIndex(nil), r.indices...)
}

// Close closes every index.
func (r *Registry) Close() error {
	var errs []error
	for _, idx := range r.indices {
		if err := idx.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %q index: %w", idx.Language(), err))
		}
	}
	return errors.Join(errs...)
}
