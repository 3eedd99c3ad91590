package search

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/contentsearch/internal/content"
)

func prop(name string, kind content.PropertyKind, value string) content.Property {
	return content.Property{Name: name, Kind: kind, Value: value}
}

func TestPreview_FallbackChain(t *testing.T) {
	links := content.Property{Name: "Related", Kind: content.KindLongString, Type: content.LinkCollectionType, Value: "<a href='/x'>x</a>"}

	tests := []struct {
		name  string
		props []content.Property
		want  string
	}{
		{
			name: "intro wins over body",
			props: []content.Property{
				prop("MainBody", content.KindXhtml, "<p>Body</p>"),
				prop("MainIntro", content.KindLongString, "Intro"),
			},
			want: "Intro",
		},
		{
			name: "empty intro falls through to body",
			props: []content.Property{
				prop("MainIntro", content.KindLongString, ""),
				prop("MainBody", content.KindXhtml, "<p>Body</p>"),
			},
			want: "Body",
		},
		{
			name: "present body is used even when empty",
			props: []content.Property{
				prop("MainBody", content.KindXhtml, ""),
				prop("Summary", content.KindLongString, "Summary"),
			},
			want: "",
		},
		{
			name: "first non-empty long string",
			props: []content.Property{
				prop("Heading", content.KindString, "Heading"),
				links,
				prop("Empty", content.KindLongString, ""),
				prop("Summary", content.KindLongString, "First"),
				prop("Other", content.KindXhtml, "Second"),
			},
			want: "First",
		},
		{
			name:  "nothing usable",
			props: []content.Property{links, prop("Count", content.KindNumber, "3")},
			want:  "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &content.Record{Properties: tt.props}
			assert.Equal(t, tt.want, Preview(content.RecordProperties{}, rec, DefaultPreviewLength))
		})
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"plain text", "plain text"},
		{"<p>Budget <b>report</b></p>\n<p>2024</p>", "Budget report 2024"},
		{"Fish &amp; chips", "Fish & chips"},
		{"<p>a</p><script>alert(1)</script><style>p{}</style><p>b</p>", "a b"},
		{"line<br/>break", "line break"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, stripHTML(tt.in))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 200))

	long := strings.Repeat("budget ", 60)
	got := truncate(strings.TrimSpace(long), 200)
	assert.LessOrEqual(t, utf8.RuneCountInString(got), 200)
	assert.True(t, strings.HasSuffix(got, "budget..."), "cut at a word boundary: %q", got)

	word := strings.Repeat("x", 300)
	got = truncate(word, 200)
	assert.Equal(t, 200, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "..."))

	multibyte := strings.Repeat("é", 250)
	assert.Equal(t, 200, utf8.RuneCountInString(truncate(multibyte, 200)))
}

func TestPreview_LimitAfterStripping(t *testing.T) {
	body := "<p>" + strings.Repeat("<b>report</b> ", 100) + "</p>"
	rec := &content.Record{Properties: []content.Property{prop("MainBody", content.KindXhtml, body)}}

	got := Preview(content.RecordProperties{}, rec, DefaultPreviewLength)
	assert.LessOrEqual(t, utf8.RuneCountInString(got), DefaultPreviewLength)
	assert.NotContains(t, got, "<")
	assert.True(t, strings.HasPrefix(got, "report report"))
}

func TestLanguageLabel(t *testing.T) {
	assert.Equal(t, "", LanguageLabel(""))
	assert.Equal(t, "English", LanguageLabel("en"))
	assert.Equal(t, "français", LanguageLabel("fr"))
	assert.Equal(t, "!!", LanguageLabel("!!"))
}
