// Package index builds the per-language search indices from the content repository.
package index

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Aman-CERP/contentsearch/internal/attachment"
	"github.com/Aman-CERP/contentsearch/internal/content"
	cserrors "github.com/Aman-CERP/contentsearch/internal/errors"
	"github.com/Aman-CERP/contentsearch/internal/indexdoc"
	"github.com/Aman-CERP/contentsearch/internal/search"
	"github.com/Aman-CERP/contentsearch/internal/store"
)

// DefaultBatchSize is the number of documents sent to a partition at once.
const DefaultBatchSize = 100

// Source enumerates every language branch of the repository.
type Source interface {
	Records(ctx context.Context, fn func(content.Item) error) error
}

// Partition receives documents for one language.
type Partition interface {
	Index(ctx context.Context, docs []store.Document) error
	Delete(ctx context.Context, ids []string) error
	AllIDs(ctx context.Context) ([]string, error)
}

// Partitions looks up the partition of a language tag.
type Partitions interface {
	Partition(lang string) (Partition, bool)
	Languages() []string
}

// RegistryPartitions exposes a store.Registry as Partitions.
type RegistryPartitions struct {
	Registry *store.Registry
}

// Partition implements Partitions.
func (p RegistryPartitions) Partition(lang string) (Partition, bool) {
	idx, ok := p.Registry.Index(lang)
	if !ok {
		return nil, false
	}
	return idx, true
}

// Languages implements Partitions.
func (p RegistryPartitions) Languages() []string {
	var out []string
	for _, idx := range p.Registry.Indices() {
		out = append(out, idx.Language())
	}
	return out
}

// RunnerDependencies contains the injected dependencies for Runner.
type RunnerDependencies struct {
	// Source provides the records to index (required).
	Source Source

	// Types resolves each record's category for the type-tags field (required).
	Types content.TypeRepository

	// Partitions receive the documents (required).
	Partitions Partitions

	// Encoder appends attachment payloads. Nil indexes media metadata only.
	Encoder *attachment.Encoder

	// Text extracts indexed text. Defaults to content.RecordProperties.
	Text content.TextProperties

	// Lock is held for the duration of Run when set.
	Lock *store.DirLock

	Logger *slog.Logger
}

// RunnerConfig configures an indexing run.
type RunnerConfig struct {
	// BatchSize is the number of documents per partition batch.
	BatchSize int

	// KeepStale leaves documents whose record no longer exists.
	KeepStale bool
}

// RunnerResult contains the outcome of an indexing run.
type RunnerResult struct {
	// Records is the number of language branches read.
	Records int

	// Documents is the number of documents indexed, per partition language.
	Documents map[string]int

	// Attachments is the number of documents carrying an attachment payload.
	Attachments int

	// Skipped counts records with no matching partition.
	Skipped int

	// Removed counts stale documents deleted.
	Removed int

	// Warnings counts non-fatal failures such as unreadable attachments.
	Warnings int

	Duration time.Duration
}

// Total returns the number of documents indexed across partitions.
func (r *RunnerResult) Total() int {
	n := 0
	for _, c := range r.Documents {
		n += c
	}
	return n
}

// Runner executes indexing runs.
type Runner struct {
	source     Source
	types      content.TypeRepository
	partitions Partitions
	encoder    *attachment.Encoder
	text       content.TextProperties
	lock       *store.DirLock
	logger     *slog.Logger
}

// NewRunner creates a Runner with injected dependencies.
func NewRunner(deps RunnerDependencies) (*Runner, error) {
	if deps.Source == nil {
		return nil, cserrors.CapabilityMissing("index runner", "record source")
	}
	if deps.Types == nil {
		return nil, cserrors.CapabilityMissing("index runner", "type repository")
	}
	if deps.Partitions == nil {
		return nil, cserrors.CapabilityMissing("index runner", "partitions")
	}
	r := &Runner{
		source:     deps.Source,
		types:      deps.Types,
		partitions: deps.Partitions,
		encoder:    deps.Encoder,
		text:       deps.Text,
		lock:       deps.Lock,
		logger:     deps.Logger,
	}
	if r.text == nil {
		r.text = content.RecordProperties{}
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r, nil
}

// Run indexes every record into the partition of its language branch.
// Non-localizable records go to the invariant partition.
func (r *Runner) Run(ctx context.Context, cfg RunnerConfig) (*RunnerResult, error) {
	start := time.Now()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if r.lock != nil {
		if err := r.lock.TryLock(); err != nil {
			return nil, err
		}
		defer func() { _ = r.lock.Unlock() }()
	}

	result := &RunnerResult{Documents: map[string]int{}}
	pending := map[string][]store.Document{}
	seen := map[string]map[string]bool{}

	flush := func(lang string) error {
		docs := pending[lang]
		if len(docs) == 0 {
			return nil
		}
		p, _ := r.partitions.Partition(lang)
		if err := p.Index(ctx, docs); err != nil {
			return cserrors.New(cserrors.ErrCodeIndexFailed, fmt.Sprintf("index %q partition", lang), err)
		}
		result.Documents[lang] += len(docs)
		pending[lang] = nil
		return nil
	}

	err := r.source.Records(ctx, func(item content.Item) error {
		result.Records++
		rec := recordOf(item)
		if rec == nil {
			result.Skipped++
			return nil
		}
		lang := partitionLanguage(rec)
		if _, ok := r.partitions.Partition(lang); !ok {
			result.Skipped++
			r.logger.Debug("record_skipped",
				slog.String("content_link", rec.Link.String()),
				slog.String("language", lang))
			return nil
		}

		doc, att, err := r.buildDocument(ctx, item, rec)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			result.Warnings++
			r.logger.Warn("document_failed",
				append([]any{slog.String("content_link", rec.Link.String())}, cserrors.LogAttrs(err)...)...)
			return nil
		}
		switch att {
		case attachmentWritten:
			result.Attachments++
		case attachmentFailed:
			result.Warnings++
		}
		if seen[lang] == nil {
			seen[lang] = map[string]bool{}
		}
		seen[lang][doc.ID] = true
		pending[lang] = append(pending[lang], doc)
		if len(pending[lang]) >= cfg.BatchSize {
			return flush(lang)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for lang := range pending {
		if err := flush(lang); err != nil {
			return nil, err
		}
	}

	if !cfg.KeepStale {
		for _, lang := range r.partitions.Languages() {
			removed, err := r.removeStale(ctx, lang, seen[lang])
			if err != nil {
				return nil, err
			}
			result.Removed += removed
		}
	}

	result.Duration = time.Since(start)
	r.logger.Info("index_complete",
		slog.Int("records", result.Records),
		slog.Int("documents", result.Total()),
		slog.Int("attachments", result.Attachments),
		slog.Int("skipped", result.Skipped),
		slog.Int("removed", result.Removed),
		slog.Int("warnings", result.Warnings),
		slog.Duration("duration", result.Duration))
	return result, nil
}

func (r *Runner) removeStale(ctx context.Context, lang string, keep map[string]bool) (int, error) {
	p, ok := r.partitions.Partition(lang)
	if !ok {
		return 0, nil
	}
	ids, err := p.AllIDs(ctx)
	if err != nil {
		return 0, cserrors.New(cserrors.ErrCodeIndexFailed, fmt.Sprintf("list %q partition", lang), err)
	}
	var stale []string
	for _, id := range ids {
		if !keep[id] {
			stale = append(stale, id)
		}
	}
	if err := p.Delete(ctx, stale); err != nil {
		return 0, cserrors.New(cserrors.ErrCodeIndexFailed, fmt.Sprintf("prune %q partition", lang), err)
	}
	return len(stale), nil
}

func recordOf(item content.Item) *content.Record {
	switch v := item.(type) {
	case *content.Record:
		return v
	case *content.MediaRecord:
		return v.Record
	}
	return nil
}

// partitionLanguage is the partition a record branch is indexed into.
func partitionLanguage(rec *content.Record) string {
	if !rec.Localizable {
		return content.InvariantLanguage
	}
	return rec.Language
}

type attachmentState int

const (
	attachmentNone attachmentState = iota
	attachmentWritten
	attachmentFailed
)

// DocumentID is the index document ID of a record. Each partition holds one
// branch per record, so the reference alone is unique.
func DocumentID(rec *content.Record) string {
	return rec.Link.String()
}

// buildDocument serializes rec as an index document. The attachment
// fragment is appended last; a failed attachment read leaves the document
// without it.
func (r *Runner) buildDocument(ctx context.Context, item content.Item, rec *content.Record) (store.Document, attachmentState, error) {
	var buf bytes.Buffer
	w := indexdoc.NewWriter(&buf)
	if err := w.BeginObject(); err != nil {
		return store.Document{}, attachmentNone, err
	}

	tags, err := r.typeTags(ctx, rec)
	if err != nil {
		return store.Document{}, attachmentNone, err
	}
	readers := rec.Readers
	if len(readers) == 0 {
		readers = []string{search.EveryoneRole}
	}
	ancestors := make([]string, 0, len(rec.Ancestors))
	for _, a := range rec.Ancestors {
		ancestors = append(ancestors, a.WithoutVersion().String())
	}

	fields := []struct {
		name  string
		value any
	}{
		{store.FieldContentLink, []string{rec.Link.String()}},
		{store.FieldLanguageBranch, partitionLanguage(rec)},
		{store.FieldName, rec.Name},
		{store.FieldTypeTags, tags},
		{store.FieldAncestors, ancestors},
		{store.FieldReaders, readers},
		{store.FieldText, r.texts(rec)},
	}
	for _, f := range fields {
		if err := w.Field(f.name, f.value); err != nil {
			return store.Document{}, attachmentNone, err
		}
	}

	att := attachmentNone
	if r.encoder != nil {
		before := w.Written()
		if err := r.encoder.Encode(ctx, item, w); err != nil {
			if w.Written() != before {
				return store.Document{}, attachmentNone, err
			}
			att = attachmentFailed
			r.logger.Warn("attachment_failed",
				append([]any{slog.String("content_link", rec.Link.String())}, cserrors.LogAttrs(err)...)...)
		} else if w.Written() != before {
			att = attachmentWritten
		}
	}

	if err := w.EndObject(); err != nil {
		return store.Document{}, attachmentNone, err
	}
	return store.Document{ID: DocumentID(rec), Body: buf.Bytes()}, att, nil
}

func (r *Runner) typeTags(ctx context.Context, rec *content.Record) ([]string, error) {
	ct, err := r.types.Load(ctx, rec.TypeID)
	if err != nil {
		return nil, cserrors.New(cserrors.ErrCodeContentNotFound,
			fmt.Sprintf("content type %d of %s", rec.TypeID, rec.Link), err)
	}
	return []string{ct.Category.Tag()}, nil
}

// texts returns the plain text of the record's long strings and short
// string properties.
func (r *Runner) texts(rec *content.Record) []string {
	var out []string
	for _, v := range r.text.LongStrings(rec) {
		if t := search.PlainText(v); t != "" {
			out = append(out, t)
		}
	}
	for _, p := range rec.Properties {
		if p.Kind == content.KindString {
			if t := strings.TrimSpace(p.Value); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}
