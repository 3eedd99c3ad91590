package search

import (
	"context"
	"net/url"
	"strings"

	"github.com/Aman-CERP/contentsearch/internal/content"
)

// LinkBuilder computes the edit path of a record in a language.
// It must be a pure function of its arguments.
type LinkBuilder func(rec *content.Record, ref content.Reference, language string) string

// DefaultLinkBuilder appends "#language=<lang>" to the content URI when a
// language is given.
func DefaultLinkBuilder(_ *content.Record, ref content.Reference, language string) string {
	uri := content.URI(ref)
	if language == "" {
		return uri
	}
	return uri + "#language=" + url.QueryEscape(language)
}

// EditLink is the resolved edit target of a record.
type EditLink struct {
	URL           string
	Language      string
	OnCurrentHost bool
}

// EditURLResolver resolves edit links and the on-current-host flag.
type EditURLResolver struct {
	sites          content.SiteResolver
	build          LinkBuilder
	defaultCulture string
}

// NewEditURLResolver returns a resolver. A nil build uses DefaultLinkBuilder;
// a nil sites resolver treats every record as hosted on the current site.
func NewEditURLResolver(sites content.SiteResolver, build LinkBuilder, defaultCulture string) *EditURLResolver {
	if build == nil {
		build = DefaultLinkBuilder
	}
	return &EditURLResolver{sites: sites, build: build, defaultCulture: defaultCulture}
}

// Resolve computes the edit link of rec. The language is the record's
// branch when localizable, else culture, else the default culture.
func (r *EditURLResolver) Resolve(ctx context.Context, rec *content.Record, culture string) EditLink {
	lang := culture
	if rec.Localizable && rec.Language != "" {
		lang = rec.Language
	}
	if lang == "" {
		lang = r.defaultCulture
	}
	return EditLink{
		URL:           r.build(rec, rec.ContentLink(), lang),
		Language:      lang,
		OnCurrentHost: r.onCurrentHost(ctx, rec),
	}
}

// onCurrentHost is false only when both sites resolve to different URLs.
func (r *EditURLResolver) onCurrentHost(ctx context.Context, rec *content.Record) bool {
	if r.sites == nil {
		return true
	}
	owner, ok := r.sites.SiteFor(ctx, rec)
	if !ok || owner == nil {
		return true
	}
	current, ok := r.sites.Current(ctx)
	if !ok || current == nil {
		return true
	}
	return canonicalURL(owner.URL) == canonicalURL(current.URL)
}

// canonicalURL lowercases scheme and host and drops a trailing slash.
func canonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(strings.ToLower(raw), "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawPath = ""
	return u.String()
}
