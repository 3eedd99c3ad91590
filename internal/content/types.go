// Package content defines the content-platform model the search layer reads:
// references, records, content types and sites, plus the capability
// interfaces through which the authoritative platform is consulted.
// Nothing in the search layer mutates these values.
package content

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// InvariantLanguage is the language tag of the language-neutral partition.
const InvariantLanguage = ""

// Category is the broad family of a content type.
type Category string

const (
	CategoryPage  Category = "page"
	CategoryBlock Category = "block"
	CategoryMedia Category = "media"
	// CategoryContent is the generic content-hit category; it has no
	// restriction list of its own.
	CategoryContent Category = "content"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryPage, CategoryBlock, CategoryMedia, CategoryContent:
		return true
	}
	return false
}

// Tag is the index type tag written for records whose type belongs to c.
func (c Category) Tag() string {
	return "content." + string(c)
}

// PropertyKind is the storage kind of a property value.
type PropertyKind string

const (
	KindString     PropertyKind = "string"
	KindLongString PropertyKind = "long_string"
	KindXhtml      PropertyKind = "xhtml"
	KindNumber     PropertyKind = "number"
	KindDate       PropertyKind = "date"
	KindBoolean    PropertyKind = "boolean"
	KindReference  PropertyKind = "reference"
)

// LinkCollectionType is the declared type of link-list properties. Those are
// stored as long strings but never contain readable text.
const LinkCollectionType = "LinkItemCollection"

// Property is one named value on a record, in declaration order.
type Property struct {
	Name  string
	Kind  PropertyKind
	Type  string
	Value string
}

// IsLongString reports whether the property holds free text.
func (p Property) IsLongString() bool {
	return p.Kind == KindLongString || p.Kind == KindXhtml
}

// ChangeTracking holds the audit timestamps of records that support them.
type ChangeTracking struct {
	Created time.Time
	Changed time.Time
}

// Record is the authoritative content entity.
type Record struct {
	Link   Reference
	GUID   uuid.UUID
	Name   string
	Parent Reference
	TypeID int

	// Localizable records exist per language branch.
	Localizable bool
	Language    string

	// Tracking is nil for records without change tracking.
	Tracking *ChangeTracking

	// Ancestors lists the record's ancestors, root first, excluding itself.
	Ancestors []Reference

	// Readers lists the roles allowed to read the record.
	Readers []string

	Properties []Property
}

// ContentLink returns the record's reference.
func (r *Record) ContentLink() Reference {
	return r.Link
}

// Property returns the property with the given name.
func (r *Record) Property(name string) (Property, bool) {
	for _, p := range r.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// Item is anything that can be handed to the index pipeline.
type Item interface {
	ContentLink() Reference
}

// Media is an item backed by a binary payload.
type Media interface {
	Item
	MimeType() string
	Open(ctx context.Context) (io.ReadCloser, error)
}

// ContentType describes a record's type.
type ContentType struct {
	ID          int
	Name        string
	DisplayName string
	Category    Category
}

// LocalizedName returns the display name, falling back to the type name.
func (t *ContentType) LocalizedName() string {
	if t.DisplayName != "" {
		return t.DisplayName
	}
	return t.Name
}

// Site is a website hosted by the platform.
type Site struct {
	Name      string
	URL       string
	StartPage Reference
}

// BlobOpener opens a binary payload for reading.
type BlobOpener func(ctx context.Context) (io.ReadCloser, error)

// MediaRecord is a record backed by a binary payload.
type MediaRecord struct {
	*Record
	Mime string
	Blob BlobOpener
}

var _ Media = (*MediaRecord)(nil)

// MimeType implements Media.
func (m *MediaRecord) MimeType() string {
	return m.Mime
}

// Open implements Media.
func (m *MediaRecord) Open(ctx context.Context) (io.ReadCloser, error) {
	if m.Blob == nil {
		return nil, ErrNoBlob
	}
	return m.Blob(ctx)
}
