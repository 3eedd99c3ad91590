package search

import (
	"context"
	"errors"
	"html"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Aman-CERP/contentsearch/internal/content"
	cserrors "github.com/Aman-CERP/contentsearch/internal/errors"
)

// IconResolver returns the UI icon class of a record shown under category.
type IconResolver func(category content.Category, rec *content.Record) string

// DefaultIconClass maps each category to a fixed icon class.
func DefaultIconClass(category content.Category, _ *content.Record) string {
	switch category {
	case content.CategoryPage:
		return "icon-page"
	case content.CategoryBlock:
		return "icon-block"
	case content.CategoryMedia:
		return "icon-media"
	}
	return "icon-content"
}

// Tooltip resource key suffixes, appended to the configured base.
const (
	tooltipID      = "/id"
	tooltipChanged = "/changed"
	tooltipCreated = "/created"
	tooltipType    = "/type"
)

const tooltipTimeLayout = "2006-01-02 15:04"

// AssemblerDeps are the content platform capabilities the assembler reads.
// Repository is required; the rest degrade gracefully when nil.
type AssemblerDeps struct {
	Repository content.Repository
	Types      content.TypeRepository
	Localizer  content.Localizer
	Sites      content.SiteResolver

	// Text defaults to content.RecordProperties.
	Text content.TextProperties
}

// AssemblerOptions configures an Assembler.
type AssemblerOptions struct {
	// Category is the result category, used for icon classes.
	Category content.Category

	// TooltipResourceBase prefixes tooltip label keys. Empty disables tooltips.
	TooltipResourceBase string

	// DefaultCulture is the edit-link language of last resort.
	DefaultCulture string

	// PreviewLength caps previews in runes. Zero uses DefaultPreviewLength.
	PreviewLength int

	// Strict aborts the whole batch on the first failing hit.
	// Otherwise failing hits are logged and skipped.
	Strict bool

	IconClass   IconResolver
	LinkBuilder LinkBuilder
	Logger      *slog.Logger
}

// Assembler resolves hits to content and builds results.
type Assembler struct {
	deps    AssemblerDeps
	opts    AssemblerOptions
	links   *EditURLResolver
	icon    IconResolver
	logger  *slog.Logger
	preview int
}

// NewAssembler returns an Assembler. A nil repository is a configuration error.
func NewAssembler(deps AssemblerDeps, opts AssemblerOptions) (*Assembler, error) {
	if deps.Repository == nil {
		return nil, cserrors.CapabilityMissing("search.Assembler", "content repository")
	}
	if deps.Text == nil {
		deps.Text = content.RecordProperties{}
	}
	a := &Assembler{
		deps:    deps,
		opts:    opts,
		links:   NewEditURLResolver(deps.Sites, opts.LinkBuilder, opts.DefaultCulture),
		icon:    opts.IconClass,
		logger:  opts.Logger,
		preview: opts.PreviewLength,
	}
	if a.icon == nil {
		a.icon = DefaultIconClass
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.preview <= 0 {
		a.preview = DefaultPreviewLength
	}
	return a, nil
}

// Assemble flattens sets in order and builds one result per resolvable hit.
// Context errors always abort.
func (a *Assembler) Assemble(ctx context.Context, sets []ClientResult, req Request) ([]*Result, error) {
	var results []*Result
	for _, set := range sets {
		for _, hit := range set.Hits {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			r, err := a.build(ctx, hit, req)
			if err == nil {
				results = append(results, r)
				continue
			}
			if a.opts.Strict || ctx.Err() != nil {
				return nil, err
			}
			a.logger.Warn("hit_skipped", cserrors.LogAttrs(err)...)
		}
	}
	return results, nil
}

func (a *Assembler) build(ctx context.Context, hit Hit, req Request) (*Result, error) {
	ref, err := hitReference(hit)
	if err != nil {
		return nil, err
	}

	rec, err := a.deps.Repository.Get(ctx, ref, content.WithLanguage(hit.Language))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, cserrors.StaleReference(ref.String(), err).
			WithDetail("language", hit.Language)
	}

	link := a.links.Resolve(ctx, rec, req.Culture)

	var label, branch string
	if rec.Localizable {
		branch = rec.Language
		label = LanguageLabel(rec.Language)
	}

	meta := map[string]string{
		MetaID:              ref.String(),
		MetaLanguageBranch:  branch,
		MetaParentID:        rec.Parent.String(),
		MetaIsOnCurrentHost: strconv.FormatBool(link.OnCurrentHost),
		MetaTypeIdentifier:  strconv.Itoa(rec.TypeID),
	}
	if rec.GUID != uuid.Nil {
		meta[MetaGUID] = rec.GUID.String()
	}

	return &Result{
		Title:     html.EscapeString(rec.Name),
		Link:      link.URL,
		Preview:   Preview(a.deps.Text, rec, a.preview),
		IconClass: a.icon(a.opts.Category, rec),
		Language:  label,
		Metadata:  meta,
		Tooltip:   a.tooltip(ctx, ref, rec),
	}, nil
}

// hitReference extracts the content reference of hit.
func hitReference(hit Hit) (content.Reference, error) {
	raw, ok := hit.First(ContentLinkField)
	if !ok || raw == "" {
		return content.Reference{}, cserrors.UnresolvableHit("hit has no content reference", nil).
			WithDetail("language", hit.Language)
	}
	ref, err := content.ParseReference(raw)
	if err != nil {
		return content.Reference{}, cserrors.UnresolvableHit("hit has an invalid content reference", err).
			WithDetail("language", hit.Language).
			WithDetail("reference", raw)
	}
	return ref, nil
}

func (a *Assembler) tooltip(ctx context.Context, ref content.Reference, rec *content.Record) []TooltipElement {
	base := a.opts.TooltipResourceBase
	if base == "" {
		return nil
	}
	elems := []TooltipElement{{Label: a.label(ctx, base+tooltipID), Value: ref.String()}}
	if t := rec.Tracking; t != nil {
		elems = append(elems,
			TooltipElement{Label: a.label(ctx, base+tooltipChanged), Value: formatTime(t.Changed)},
			TooltipElement{Label: a.label(ctx, base+tooltipCreated), Value: formatTime(t.Created)},
		)
	}
	elems = append(elems, TooltipElement{Label: a.label(ctx, base+tooltipType), Value: a.typeName(ctx, rec.TypeID)})
	return elems
}

func (a *Assembler) label(ctx context.Context, key string) string {
	if a.deps.Localizer == nil {
		return ""
	}
	return a.deps.Localizer.GetString(ctx, key)
}

func (a *Assembler) typeName(ctx context.Context, typeID int) string {
	if a.deps.Types == nil {
		return ""
	}
	t, err := a.deps.Types.Load(ctx, typeID)
	if err != nil || t == nil {
		a.logger.Debug("content_type_unresolved",
			slog.Int("type_id", typeID),
			slog.Any("error", err))
		return ""
	}
	return t.LocalizedName()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(tooltipTimeLayout)
}
