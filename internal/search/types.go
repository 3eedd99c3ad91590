// Package search queries per-language content indices and assembles the
// hits into UI-ready results.
//
// A search runs in three stages: the Planner turns a Request into a Query,
// the FanOut replays the Query against every eligible Client of a Registry,
// and the Assembler resolves each hit to its content record and builds a
// Result. Provider composes the three and carries the identity metadata the
// editorial UI registers providers by.
package search

import (
	"context"

	"github.com/Aman-CERP/contentsearch/internal/content"
)

// Field names shared by the planner and the index backends.
const (
	// AllTextFields targets every analyzed text field of a document.
	AllTextFields = "_all"

	// ContentLinkField holds the content reference of a hit.
	ContentLinkField = "content-link"
)

// EveryoneRole is granted to every principal.
const EveryoneRole = "Everyone"

// Principal identifies the caller for permission-scoped visibility.
// The search core passes it to clients without interpreting it.
type Principal struct {
	Name  string
	Roles []string
}

// Request is a raw search request from the UI.
type Request struct {
	// Query is the free-text query.
	Query string

	// Roots restricts results to descendants of these references.
	// Entries that do not parse are ignored.
	Roots []string

	// MaxResults caps the results per client. Zero uses the default.
	MaxResults int

	// Culture is the caller's preferred culture, used for edit links of
	// content that is not localizable.
	Culture string

	Principal Principal
}

// Query is a planned search.
type Query struct {
	Text   string
	Fields []string
	Limit  int

	// Types restricts hits to documents carrying one of these type tags.
	Types []string

	// Roots restricts hits to these subtrees. Empty means no restriction.
	Roots []content.Reference
}

// ClientQuery is the Query as sent to one client.
type ClientQuery struct {
	Query

	// IncludeNeutral merges language-neutral documents into the results.
	IncludeNeutral bool

	Principal Principal
}

// Client searches one language partition.
type Client interface {
	// Language returns the partition's culture tag.
	// The invariant partition returns content.InvariantLanguage.
	Language() string

	SearchContent(ctx context.Context, q ClientQuery) (*Response, error)
}

// Registry exposes the active clients in a stable order.
type Registry interface {
	Clients() []Client
}

// Response is a client's answer to a ClientQuery.
type Response struct {
	Hits  []Hit
	Total uint64
}

// Hit is one raw backend hit.
type Hit struct {
	// Fields is the stored document payload. Every field is multi-valued.
	Fields map[string][]string
	Score  float64

	// Language is the tag of the client that returned the hit.
	Language string
}

// First returns the first value of a payload field.
func (h Hit) First(field string) (string, bool) {
	if v := h.Fields[field]; len(v) > 0 {
		return v[0], true
	}
	return "", false
}

// ClientResult is the non-empty hit set of one client.
type ClientResult struct {
	Language string
	Hits     []Hit
}

// TooltipElement is a labeled value shown when hovering a result.
type TooltipElement struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Result is a UI-facing search result.
type Result struct {
	Title     string            `json:"title"`
	Link      string            `json:"link"`
	Preview   string            `json:"preview"`
	IconClass string            `json:"icon_class"`
	Language  string            `json:"language"`
	Metadata  map[string]string `json:"metadata"`
	Tooltip   []TooltipElement  `json:"tooltip,omitempty"`
}

// Metadata keys set on every Result.
const (
	MetaID              = "Id"
	MetaLanguageBranch  = "LanguageBranch"
	MetaParentID        = "ParentId"
	MetaIsOnCurrentHost = "IsOnCurrentHost"
	MetaTypeIdentifier  = "TypeIdentifier"

	// MetaGUID is set only for records that carry a GUID.
	MetaGUID = "Guid"
)
