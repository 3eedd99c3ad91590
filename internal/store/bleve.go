package store

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/analysis/lang/de"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/lang/es"
	"github.com/blevesearch/bleve/v2/analysis/lang/fr"
	"github.com/blevesearch/bleve/v2/analysis/lang/it"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"golang.org/x/text/language"

	"github.com/Aman-CERP/contentsearch/internal/attachment"
	"github.com/Aman-CERP/contentsearch/internal/content"
	"github.com/Aman-CERP/contentsearch/internal/search"
)

// Index document field names.
const (
	FieldContentLink    = search.ContentLinkField
	FieldLanguageBranch = "language-branch"
	FieldTypeTags       = "type-tags"
	FieldAncestors      = "ancestors"
	FieldReaders        = "readers"
	FieldName           = "name"
	FieldText           = "text"

	// fieldNeutral is derived at ingest from an empty language branch.
	fieldNeutral = "neutral"
	allField     = "_all"
)

// storedFields are returned with every hit.
var storedFields = []string{FieldContentLink, FieldLanguageBranch, FieldName, FieldTypeTags}

// analyzers picks a stemming analyzer by language base; others use standard.
var analyzers = map[string]string{
	"en": en.AnalyzerName,
	"fr": fr.AnalyzerName,
	"de": de.AnalyzerName,
	"es": es.AnalyzerName,
	"it": it.AnalyzerName,
}

// AnalyzerFor returns the text analyzer used for a culture tag.
func AnalyzerFor(tag string) string {
	if tag == "" {
		return standard.Name
	}
	t, err := language.Parse(tag)
	if err != nil {
		return standard.Name
	}
	base, _ := t.Base()
	if name, ok := analyzers[base.String()]; ok {
		return name
	}
	return standard.Name
}

// Document is one serialized index document: a JSON object as produced by
// indexdoc.Writer.
type Document struct {
	ID   string
	Body []byte
}

// LanguageIndex is a bleve index holding one language partition. It
// implements search.Client.
type LanguageIndex struct {
	mu       sync.RWMutex
	index    bleve.Index
	path     string
	language string
	closed   bool
}

var _ search.Client = (*LanguageIndex)(nil)

// validateIndexIntegrity checks the metadata file of a partition index
// before bleve opens it. A partition that was never built is valid.
func validateIndexIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	metaPath := filepath.Join(path, "index_meta.json")
	info, err := os.Stat(metaPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("index_meta.json missing (corrupted index)")
	}
	if err != nil {
		return fmt.Errorf("cannot stat index_meta.json: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("index_meta.json is empty (corrupted)")
	}
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("cannot read index_meta.json: %w", err)
	}
	var meta map[string]any
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}
	return nil
}

// isCorruptionError reports open failures that clearing the partition and
// reindexing can recover from.
func isCorruptionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "unexpected end of JSON") ||
		strings.Contains(msg, "error parsing mapping JSON") ||
		strings.Contains(msg, "failed to load segment") ||
		strings.Contains(msg, "error opening bolt") ||
		err == bleve.ErrorIndexMetaCorrupt
}

// NewLanguageIndex opens or creates the partition index for lang at path.
// An empty path creates an in-memory index. A corrupt index is cleared and
// recreated; the caller must reindex.
func NewLanguageIndex(path, lang string) (*LanguageIndex, error) {
	m := newIndexMapping(AnalyzerFor(lang))

	var idx bleve.Index
	var err error
	if path == "" {
		idx, err = bleve.NewMemOnly(m)
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
		if validErr := validateIndexIntegrity(path); validErr != nil {
			slog.Warn("language_index_corrupted",
				slog.String("path", path),
				slog.String("language", lang),
				slog.String("error", validErr.Error()))
			if removeErr := os.RemoveAll(path); removeErr != nil {
				return nil, fmt.Errorf("index corrupted at %s and cannot remove: %w (original error: %v)", path, removeErr, validErr)
			}
		}

		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, m)
		} else if err != nil && isCorruptionError(err) {
			slog.Warn("language_index_open_failed",
				slog.String("path", path),
				slog.String("error", err.Error()))
			if removeErr := os.RemoveAll(path); removeErr != nil {
				return nil, fmt.Errorf("index corrupted, cannot clear: %w (original: %v)", removeErr, err)
			}
			idx, err = bleve.New(path, m)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create/open %q index: %w", lang, err)
	}
	return &LanguageIndex{index: idx, path: path, language: lang}, nil
}

func newIndexMapping(analyzer string) *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = analyzer
	im.IndexDynamic = false
	im.StoreDynamic = false

	doc := bleve.NewDocumentStaticMapping()
	for _, f := range []string{FieldContentLink, FieldLanguageBranch, FieldTypeTags, FieldAncestors, FieldReaders, fieldNeutral} {
		doc.AddFieldMappingsAt(f, keywordField(f == FieldContentLink || f == FieldLanguageBranch || f == FieldTypeTags))
	}
	doc.AddFieldMappingsAt(FieldName, textField(analyzer, true))
	doc.AddFieldMappingsAt(FieldText, textField(analyzer, false))
	doc.AddFieldMappingsAt(attachment.ContentField, textField(analyzer, false))
	doc.AddFieldMappingsAt(attachment.ContentTypeField, textField(standard.Name, false))
	im.DefaultMapping = doc
	return im
}

func keywordField(store bool) *mapping.FieldMapping {
	fm := bleve.NewTextFieldMapping()
	fm.Analyzer = keyword.Name
	fm.Store = store
	fm.IncludeInAll = false
	fm.IncludeTermVectors = false
	return fm
}

func textField(analyzer string, store bool) *mapping.FieldMapping {
	fm := bleve.NewTextFieldMapping()
	fm.Analyzer = analyzer
	fm.Store = store
	fm.IncludeInAll = true
	return fm
}

// Language implements search.Client.
func (x *LanguageIndex) Language() string {
	return x.language
}

// Index adds or replaces documents.
func (x *LanguageIndex) Index(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return fmt.Errorf("index is closed")
	}

	batch := x.index.NewBatch()
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		fields, err := decodeDocument(d.Body)
		if err != nil {
			return fmt.Errorf("failed to decode document %s: %w", d.ID, err)
		}
		if err := batch.Index(d.ID, fields); err != nil {
			return fmt.Errorf("failed to index document %s: %w", d.ID, err)
		}
	}
	if err := x.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}
	return nil
}

// decodeDocument turns a JSON document into bleve fields. The base64
// attachment payload is decoded to text for textual MIME types and dropped
// otherwise, since binary formats need an external extractor.
func decodeDocument(body []byte) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}

	branch, _ := fields[FieldLanguageBranch].(string)
	fields[fieldNeutral] = fmt.Sprint(branch == content.InvariantLanguage)

	raw, ok := fields[attachment.ContentField]
	if !ok {
		return fields, nil
	}
	delete(fields, attachment.ContentField)
	mt, _ := fields[attachment.ContentTypeField].(string)
	if !isTextual(mt) {
		return fields, nil
	}
	values, _ := raw.([]any)
	var texts []any
	for _, v := range values {
		s, _ := v.(string)
		data, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("attachment payload: %w", err)
		}
		texts = append(texts, string(data))
	}
	if len(texts) > 0 {
		fields[attachment.ContentField] = texts
	}
	return fields, nil
}

func isTextual(mediaType string) bool {
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mt, "text/") ||
		mt == "application/json" ||
		mt == "application/xml" ||
		strings.HasSuffix(mt, "+xml")
}

// SearchContent implements search.Client.
func (x *LanguageIndex) SearchContent(ctx context.Context, q search.ClientQuery) (*search.Response, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.closed {
		return nil, fmt.Errorf("index is closed")
	}
	if strings.TrimSpace(q.Text) == "" {
		return &search.Response{}, nil
	}

	req := bleve.NewSearchRequest(buildQuery(q))
	req.Size = q.Limit
	if req.Size <= 0 {
		req.Size = search.DefaultLimit
	}
	req.Fields = storedFields

	res, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]search.Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		fields := make(map[string][]string, len(h.Fields))
		for name, v := range h.Fields {
			fields[name] = toStrings(v)
		}
		hits = append(hits, search.Hit{Fields: fields, Score: h.Score, Language: x.language})
	}
	return &search.Response{Hits: hits, Total: res.Total}, nil
}

func buildQuery(q search.ClientQuery) query.Query {
	fields := q.Fields
	if len(fields) == 0 {
		fields = []string{search.AllTextFields}
	}
	text := make([]query.Query, 0, len(fields))
	for _, f := range fields {
		mq := bleve.NewMatchQuery(q.Text)
		if f == search.AllTextFields {
			f = allField
		}
		mq.SetField(f)
		text = append(text, mq)
	}

	bq := bleve.NewBooleanQuery()
	bq.AddMust(bleve.NewDisjunctionQuery(text...))

	if len(q.Types) > 0 {
		bq.AddMust(termsQuery(FieldTypeTags, q.Types...))
	}
	if len(q.Roots) > 0 {
		var roots []query.Query
		for _, r := range q.Roots {
			key := r.WithoutVersion().String()
			roots = append(roots, termQuery(FieldAncestors, key), termQuery(FieldContentLink, key))
		}
		bq.AddMust(bleve.NewDisjunctionQuery(roots...))
	}
	bq.AddMust(termsQuery(FieldReaders, readerTerms(q.Principal)...))
	if !q.IncludeNeutral {
		bq.AddMustNot(termQuery(fieldNeutral, "true"))
	}
	return bq
}

// readerTerms are the reader roles visible to p.
func readerTerms(p search.Principal) []string {
	terms := []string{search.EveryoneRole}
	for _, r := range p.Roles {
		if r != "" && r != search.EveryoneRole {
			terms = append(terms, r)
		}
	}
	if p.Name != "" {
		terms = append(terms, "user:"+p.Name)
	}
	return terms
}

func termQuery(field, term string) query.Query {
	tq := bleve.NewTermQuery(term)
	tq.SetField(field)
	return tq
}

func termsQuery(field string, terms ...string) query.Query {
	qs := make([]query.Query, len(terms))
	for i, t := range terms {
		qs[i] = termQuery(field, t)
	}
	return bleve.NewDisjunctionQuery(qs...)
}

func toStrings(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, len(t))
		for i, e := range t {
			out[i] = fmt.Sprint(e)
		}
		return out
	case nil:
		return nil
	default:
		return []string{fmt.Sprint(t)}
	}
}

// Delete removes documents.
func (x *LanguageIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return fmt.Errorf("index is closed")
	}
	batch := x.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	if err := x.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}
	return nil
}

// AllIDs returns every document ID in the index.
func (x *LanguageIndex) AllIDs(ctx context.Context) ([]string, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.closed {
		return nil, fmt.Errorf("index is closed")
	}
	count, err := x.index.DocCount()
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Size = int(count)
	req.Fields = []string{}
	res, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	ids := make([]string, len(res.Hits))
	for i, h := range res.Hits {
		ids[i] = h.ID
	}
	return ids, nil
}

// DocCount returns the number of documents.
func (x *LanguageIndex) DocCount() (uint64, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.closed {
		return 0, fmt.Errorf("index is closed")
	}
	return x.index.DocCount()
}

// Close closes the index.
func (x *LanguageIndex) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return nil
	}
	x.closed = true
	return x.index.Close()
}
