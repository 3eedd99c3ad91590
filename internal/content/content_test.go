package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReference(t *testing.T) {
	tests := []struct {
		in   string
		want Reference
	}{
		{"42", Reference{ID: 42}},
		{" 42 ", Reference{ID: 42}},
		{"42_7", Reference{ID: 42, WorkID: 7}},
		{"42_7_catalog", Reference{ID: 42, WorkID: 7, Provider: "catalog"}},
		{"42__catalog", Reference{ID: 42, Provider: "catalog"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseReference(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseReference_Invalid(t *testing.T) {
	for _, in := range []string{"", "  ", "abc", "0", "-4", "4_x", "4_7_", "_7"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseReference(in)
			assert.Error(t, err)
			_, ok := TryParseReference(in)
			assert.False(t, ok)
		})
	}
}

func TestReference_StringRoundTrip(t *testing.T) {
	for _, ref := range []Reference{
		{ID: 1},
		{ID: 5, WorkID: 12},
		{ID: 5, WorkID: 12, Provider: "catalog"},
		{ID: 9, Provider: "media"},
	} {
		t.Run(ref.String(), func(t *testing.T) {
			parsed, err := ParseReference(ref.String())
			require.NoError(t, err)
			assert.Equal(t, ref, parsed)
		})
	}
	assert.Equal(t, "", EmptyReference.String())
	assert.True(t, EmptyReference.IsEmpty())
}

func TestURIAndGUID(t *testing.T) {
	ref := Reference{ID: 42, WorkID: 3}
	assert.Equal(t, "contentdata:///42_3", URI(ref))

	// GUIDs ignore the version and are stable.
	assert.Equal(t, GUIDFor(Reference{ID: 42}), GUIDFor(ref))
	assert.NotEqual(t, GUIDFor(Reference{ID: 43}), GUIDFor(ref))
}

func TestRecordProperties(t *testing.T) {
	rec := &Record{
		Properties: []Property{
			{Name: "Heading", Kind: KindString, Value: "Budget"},
			{Name: "Links", Kind: KindLongString, Type: LinkCollectionType, Value: "<a href='/x'>x</a>"},
			{Name: "Summary", Kind: KindLongString, Value: "first"},
			{Name: "Count", Kind: KindNumber, Value: "3"},
			{Name: "Body", Kind: KindXhtml, Value: "<p>second</p>"},
		},
	}
	var tp TextProperties = RecordProperties{}

	v, ok := tp.NamedText(rec, "Heading")
	assert.True(t, ok)
	assert.Equal(t, "Budget", v)

	_, ok = tp.NamedText(rec, "Count")
	assert.False(t, ok, "numbers are not text")

	_, ok = tp.NamedText(rec, "Missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"first", "<p>second</p>"}, tp.LongStrings(rec))
}

func TestCategoryAndTypeHelpers(t *testing.T) {
	assert.True(t, CategoryBlock.Valid())
	assert.False(t, Category("folder").Valid())
	assert.Equal(t, "content.media", CategoryMedia.Tag())

	assert.Equal(t, "Standard page", (&ContentType{Name: "StandardPage", DisplayName: "Standard page"}).LocalizedName())
	assert.Equal(t, "StandardPage", (&ContentType{Name: "StandardPage"}).LocalizedName())
}

func TestMediaRecord_NoBlob(t *testing.T) {
	m := &MediaRecord{Record: &Record{Link: Reference{ID: 3}}, Mime: "text/plain"}
	_, err := m.Open(t.Context())
	assert.ErrorIs(t, err, ErrNoBlob)
	assert.Equal(t, Reference{ID: 3}, m.ContentLink())
}
