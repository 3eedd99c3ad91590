package content

import (
	"context"
	"errors"
)

// ErrNotFound is returned by repositories when a reference does not resolve.
var ErrNotFound = errors.New("content not found")

// ErrNoBlob is returned when a media record has no binary payload attached.
var ErrNoBlob = errors.New("media has no binary payload")

// GetOptions selects which branch of a record a repository returns.
type GetOptions struct {
	// Language picks the language branch. Empty means the master branch.
	Language string
}

// GetOption mutates GetOptions.
type GetOption func(*GetOptions)

// WithLanguage selects a language branch.
func WithLanguage(lang string) GetOption {
	return func(o *GetOptions) {
		o.Language = lang
	}
}

// ApplyGetOptions folds opts into a GetOptions value.
func ApplyGetOptions(opts ...GetOption) GetOptions {
	var o GetOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Repository resolves references to records.
// Implementations return an error wrapping ErrNotFound for stale references.
type Repository interface {
	Get(ctx context.Context, ref Reference, opts ...GetOption) (*Record, error)
}

// TypeRepository loads content types.
type TypeRepository interface {
	Load(ctx context.Context, typeID int) (*ContentType, error)
}

// Localizer resolves UI resource keys to strings. Unknown keys return "".
type Localizer interface {
	GetString(ctx context.Context, key string) string
}

// SiteResolver maps records to the site that owns them.
type SiteResolver interface {
	// SiteFor returns the site owning rec.
	SiteFor(ctx context.Context, rec *Record) (*Site, bool)
	// Current returns the site the caller is working in.
	Current(ctx context.Context) (*Site, bool)
}

// TextProperties gives typed access to named text properties.
type TextProperties interface {
	// NamedText returns the value of the text property called name.
	// ok is false when the record has no such text property.
	NamedText(rec *Record, name string) (value string, ok bool)
	// LongStrings returns the record's long-string values in declaration
	// order, excluding link collections.
	LongStrings(rec *Record) []string
}

// RecordProperties is the TextProperties implementation over Record.Properties.
type RecordProperties struct{}

// NamedText implements TextProperties.
func (RecordProperties) NamedText(rec *Record, name string) (string, bool) {
	p, ok := rec.Property(name)
	if !ok || !(p.IsLongString() || p.Kind == KindString) {
		return "", false
	}
	return p.Value, true
}

// LongStrings implements TextProperties.
func (RecordProperties) LongStrings(rec *Record) []string {
	var out []string
	for _, p := range rec.Properties {
		if !p.IsLongString() || p.Type == LinkCollectionType {
			continue
		}
		out = append(out, p.Value)
	}
	return out
}
