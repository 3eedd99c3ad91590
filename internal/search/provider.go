package search

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/Aman-CERP/contentsearch/internal/content"
	cserrors "github.com/Aman-CERP/contentsearch/internal/errors"
)

// DefaultSortOrder places providers without an explicit order last.
const DefaultSortOrder = 99

// DefaultArea is the UI area providers register under.
const DefaultArea = "CMS"

// Dependencies are the capabilities a Provider is built from.
type Dependencies struct {
	Registry   Registry
	Repository content.Repository
	Types      content.TypeRepository
	Localizer  content.Localizer
	Sites      content.SiteResolver
	Text       content.TextProperties
}

// ProviderConfig holds identity and tuning for a Provider.
type ProviderConfig struct {
	Name             string
	Area             string
	Category         content.Category
	SortOrder        int
	IncludeInvariant bool

	DefaultCulture      string
	TooltipResourceBase string
	PreviewLength       int
	Strict              bool

	DefaultLimit int
	MaxLimit     int
	Parallelism  int

	Restrictions map[content.Category][]string
	IconClass    IconResolver
	LinkBuilder  LinkBuilder
	Logger       *slog.Logger
}

// ProviderOption configures a Provider.
type ProviderOption func(*ProviderConfig)

// WithName sets the registration name. It defaults to the category.
func WithName(name string) ProviderOption {
	return func(c *ProviderConfig) { c.Name = name }
}

// WithArea sets the UI area.
func WithArea(area string) ProviderOption {
	return func(c *ProviderConfig) { c.Area = area }
}

// WithCategory sets the result category. It defaults to pages.
func WithCategory(category content.Category) ProviderOption {
	return func(c *ProviderConfig) { c.Category = category }
}

// WithSortOrder sets the UI sort order; lower sorts first.
func WithSortOrder(order int) ProviderOption {
	return func(c *ProviderConfig) { c.SortOrder = order }
}

// WithIncludeInvariant makes the invariant partition eligible.
func WithIncludeInvariant(include bool) ProviderOption {
	return func(c *ProviderConfig) { c.IncludeInvariant = include }
}

// WithDefaultCulture sets the edit-link language of last resort.
func WithDefaultCulture(culture string) ProviderOption {
	return func(c *ProviderConfig) { c.DefaultCulture = culture }
}

// WithTooltipResourceBase sets the tooltip resource key base.
func WithTooltipResourceBase(base string) ProviderOption {
	return func(c *ProviderConfig) { c.TooltipResourceBase = base }
}

// WithPreviewLength caps previews in runes.
func WithPreviewLength(n int) ProviderOption {
	return func(c *ProviderConfig) { c.PreviewLength = n }
}

// WithStrictHits aborts a search's assembly on the first failing hit.
func WithStrictHits(strict bool) ProviderOption {
	return func(c *ProviderConfig) { c.Strict = strict }
}

// WithLimits sets the default and maximum per-client result counts.
func WithLimits(defaultLimit, maxLimit int) ProviderOption {
	return func(c *ProviderConfig) {
		c.DefaultLimit = defaultLimit
		c.MaxLimit = maxLimit
	}
}

// WithParallelism bounds concurrent client calls.
func WithParallelism(n int) ProviderOption {
	return func(c *ProviderConfig) { c.Parallelism = n }
}

// WithRestrictions overrides the category to type-tag table.
func WithRestrictions(table map[content.Category][]string) ProviderOption {
	return func(c *ProviderConfig) { c.Restrictions = table }
}

// WithIconClass sets the icon resolver.
func WithIconClass(fn IconResolver) ProviderOption {
	return func(c *ProviderConfig) { c.IconClass = fn }
}

// WithLinkBuilder sets the edit link builder.
func WithLinkBuilder(fn LinkBuilder) ProviderOption {
	return func(c *ProviderConfig) { c.LinkBuilder = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ProviderOption {
	return func(c *ProviderConfig) { c.Logger = l }
}

// Provider is a registered search provider for one result category.
type Provider struct {
	cfg       ProviderConfig
	planner   *Planner
	fanout    *FanOut
	assembler *Assembler
	logger    *slog.Logger
}

// NewProvider wires Planner, FanOut and Assembler from deps.
// Missing capabilities fail construction.
func NewProvider(deps Dependencies, opts ...ProviderOption) (*Provider, error) {
	cfg := ProviderConfig{
		Area:      DefaultArea,
		Category:  content.CategoryPage,
		SortOrder: DefaultSortOrder,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Name == "" {
		cfg.Name = string(cfg.Category)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	logger := cfg.Logger.With(slog.String("provider", cfg.Name))

	planner, err := NewPlanner(cfg.Category, PlannerOptions{
		DefaultLimit: cfg.DefaultLimit,
		MaxLimit:     cfg.MaxLimit,
		Restrictions: cfg.Restrictions,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}
	fanout, err := NewFanOut(deps.Registry, FanOutOptions{
		IncludeInvariant: cfg.IncludeInvariant,
		Parallelism:      cfg.Parallelism,
		Logger:           logger,
	})
	if err != nil {
		return nil, err
	}
	assembler, err := NewAssembler(AssemblerDeps{
		Repository: deps.Repository,
		Types:      deps.Types,
		Localizer:  deps.Localizer,
		Sites:      deps.Sites,
		Text:       deps.Text,
	}, AssemblerOptions{
		Category:            cfg.Category,
		TooltipResourceBase: cfg.TooltipResourceBase,
		DefaultCulture:      cfg.DefaultCulture,
		PreviewLength:       cfg.PreviewLength,
		Strict:              cfg.Strict,
		IconClass:           cfg.IconClass,
		LinkBuilder:         cfg.LinkBuilder,
		Logger:              logger,
	})
	if err != nil {
		return nil, err
	}

	return &Provider{
		cfg:       cfg,
		planner:   planner,
		fanout:    fanout,
		assembler: assembler,
		logger:    logger,
	}, nil
}

// Name returns the registration name.
func (p *Provider) Name() string { return p.cfg.Name }

// Area returns the UI area.
func (p *Provider) Area() string { return p.cfg.Area }

// Category returns the UI category string.
func (p *Provider) Category() string { return string(p.cfg.Category) }

// SortOrder returns the UI sort order; lower sorts first.
func (p *Provider) SortOrder() int { return p.cfg.SortOrder }

// IncludeInvariant reports whether invariant results are included.
func (p *Provider) IncludeInvariant() bool { return p.cfg.IncludeInvariant }

// Search plans, fans out and assembles req. Per-client and per-hit failures
// degrade to fewer or no results; only context errors are returned.
func (p *Provider) Search(ctx context.Context, req Request) ([]*Result, error) {
	start := time.Now()
	q := p.planner.Plan(req)

	sets, err := p.fanout.Execute(ctx, q, req.Principal)
	if err != nil {
		return nil, err
	}

	results, err := p.assembler.Assemble(ctx, sets, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		p.logger.Error("search_assembly_failed",
			append(cserrors.LogAttrs(err), slog.String("query", q.Text))...)
		return []*Result{}, nil
	}
	if results == nil {
		results = []*Result{}
	}

	p.logger.Debug("search_complete",
		slog.String("query", q.Text),
		slog.Int("limit", q.Limit),
		slog.Int("sets", len(sets)),
		slog.Int("results", len(results)),
		slog.Duration("duration", time.Since(start)))
	return results, nil
}

// Providers is an ordered provider collection.
type Providers struct {
	list []*Provider
}

// NewProviders sorts providers by sort order, then name.
func NewProviders(providers ...*Provider) *Providers {
	list := make([]*Provider, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			list = append(list, p)
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].SortOrder() != list[j].SortOrder() {
			return list[i].SortOrder() < list[j].SortOrder()
		}
		return list[i].Name() < list[j].Name()
	})
	return &Providers{list: list}
}

// All returns the providers in order.
func (ps *Providers) All() []*Provider {
	return append([]*Provider(nil), ps.list...)
}

// Get returns the provider registered under name.
func (ps *Providers) Get(name string) (*Provider, bool) {
	for _, p := range ps.list {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// Names returns the provider names in order.
func (ps *Providers) Names() []string {
	names := make([]string, len(ps.list))
	for i, p := range ps.list {
		names[i] = p.Name()
	}
	return names
}
