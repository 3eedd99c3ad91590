package search

import (
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// LanguageLabel returns the native display name of a culture tag, such as
// "français" for "fr". Unparsable tags are returned unchanged.
func LanguageLabel(tag string) string {
	if tag == "" {
		return ""
	}
	t, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	if name := display.Self.Name(t); name != "" {
		return name
	}
	return tag
}
