package search

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"

	"github.com/Aman-CERP/contentsearch/internal/content"
)

// DefaultPreviewLength is the maximum preview length in runes.
const DefaultPreviewLength = 200

// Property names consulted first for previews.
const (
	introProperty = "MainIntro"
	bodyProperty  = "MainBody"
)

const ellipsis = "..."

// previewSource picks the preview text of rec: MainIntro when non-empty,
// else MainBody when present, else the first non-empty long string.
func previewSource(tp content.TextProperties, rec *content.Record) string {
	if v, ok := tp.NamedText(rec, introProperty); ok && v != "" {
		return v
	}
	if v, ok := tp.NamedText(rec, bodyProperty); ok {
		return v
	}
	for _, v := range tp.LongStrings(rec) {
		if v != "" {
			return v
		}
	}
	return ""
}

// Preview returns the HTML-stripped preview text of rec, at most limit runes.
func Preview(tp content.TextProperties, rec *content.Record, limit int) string {
	return truncate(stripHTML(previewSource(tp, rec)), limit)
}

// PlainText returns the text content of an HTML fragment with whitespace
// collapsed.
func PlainText(s string) string {
	return stripHTML(s)
}

// stripHTML returns the text content of s with whitespace collapsed.
// Script and style bodies are dropped.
func stripHTML(s string) string {
	if s == "" {
		return ""
	}
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return collapseSpace(b.String())
		case html.StartTagToken:
			name, _ := z.TagName()
			if isRawText(name) {
				skip++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			name, _ := z.TagName()
			if isRawText(name) && skip > 0 {
				skip--
			}
			b.WriteByte(' ')
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func isRawText(tag []byte) bool {
	s := string(tag)
	return s == "script" || s == "style"
}

func collapseSpace(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

// truncate shortens s to at most limit runes, cutting at a word boundary
// and ending with an ellipsis when anything was removed.
func truncate(s string, limit int) string {
	r := []rune(s)
	if limit <= 0 || len(r) <= limit {
		return s
	}
	keep := limit - len(ellipsis)
	if keep <= 0 {
		return string(r[:limit])
	}
	cut := keep
	if !unicode.IsSpace(r[keep]) {
		for i := keep - 1; i > 0; i-- {
			if unicode.IsSpace(r[i]) {
				cut = i
				break
			}
		}
	}
	return strings.TrimRightFunc(string(r[:cut]), unicode.IsSpace) + ellipsis
}
