package search

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/Aman-CERP/contentsearch/internal/attachment"
	"github.com/Aman-CERP/contentsearch/internal/content"
	cserrors "github.com/Aman-CERP/contentsearch/internal/errors"
)

// Limits applied when PlannerOptions leaves them unset.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// DefaultRestrictions maps each result category to the type tags its hits
// may carry. CategoryContent is absent: it borrows the block list.
func DefaultRestrictions() map[content.Category][]string {
	return map[content.Category][]string{
		content.CategoryPage:  {content.CategoryPage.Tag()},
		content.CategoryBlock: {content.CategoryBlock.Tag()},
		content.CategoryMedia: {content.CategoryMedia.Tag()},
	}
}

// substitutions redirect a category to another category's restriction list.
var substitutions = map[content.Category]content.Category{
	content.CategoryContent: content.CategoryBlock,
}

// PlannerOptions configures a Planner.
type PlannerOptions struct {
	DefaultLimit int
	MaxLimit     int

	// Restrictions overrides DefaultRestrictions.
	Restrictions map[content.Category][]string

	Logger *slog.Logger
}

// Planner turns requests into queries for one result category.
type Planner struct {
	types        []string
	defaultLimit int
	maxLimit     int
	logger       *slog.Logger
}

// NewPlanner resolves the restriction list for category once.
// An unknown category is a configuration error.
func NewPlanner(category content.Category, opts PlannerOptions) (*Planner, error) {
	table := opts.Restrictions
	if table == nil {
		table = DefaultRestrictions()
	}
	key := category
	if sub, ok := substitutions[category]; ok {
		key = sub
	}
	types, ok := table[key]
	if !ok || !category.Valid() {
		return nil, cserrors.New(cserrors.ErrCodeCategoryUnknown,
			fmt.Sprintf("no type restriction for category %q", category), nil).
			WithDetail("category", string(category))
	}

	p := &Planner{
		types:        append([]string(nil), types...),
		defaultLimit: opts.DefaultLimit,
		maxLimit:     opts.MaxLimit,
		logger:       opts.Logger,
	}
	if p.defaultLimit <= 0 {
		p.defaultLimit = DefaultLimit
	}
	if p.maxLimit <= 0 {
		p.maxLimit = MaxLimit
	}
	if p.defaultLimit > p.maxLimit {
		p.defaultLimit = p.maxLimit
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p, nil
}

// Types returns the resolved type restriction list.
func (p *Planner) Types() []string {
	return append([]string(nil), p.types...)
}

// Plan builds the query for req.
func (p *Planner) Plan(req Request) Query {
	limit := req.MaxResults
	if limit <= 0 {
		limit = p.defaultLimit
	}
	if limit > p.maxLimit {
		limit = p.maxLimit
	}

	return Query{
		Text:   strings.TrimSpace(req.Query),
		Fields: []string{AllTextFields, attachment.ContentField, attachment.ContentTypeField},
		Limit:  limit,
		Types:  p.Types(),
		Roots:  p.parseRoots(req.Roots),
	}
}

func (p *Planner) parseRoots(raw []string) []content.Reference {
	var roots []content.Reference
	for _, s := range raw {
		ref, ok := content.TryParseReference(s)
		if !ok {
			p.logger.Debug("root_dropped", slog.String("root", s))
			continue
		}
		roots = append(roots, ref)
	}
	return roots
}
