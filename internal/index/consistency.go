package index

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/Aman-CERP/contentsearch/internal/content"
)

// InconsistencyType categorizes detected issues.
type InconsistencyType int

const (
	// InconsistencyOrphan is an index document without a matching record.
	InconsistencyOrphan InconsistencyType = iota
	// InconsistencyMissing is a record branch absent from its partition.
	InconsistencyMissing
)

// String returns a human-readable description of the inconsistency type.
func (t InconsistencyType) String() string {
	switch t {
	case InconsistencyOrphan:
		return "orphan"
	case InconsistencyMissing:
		return "missing"
	default:
		return "unknown"
	}
}

// Inconsistency is one document that differs between repository and index.
type Inconsistency struct {
	Type       InconsistencyType
	Language   string
	DocumentID string
}

// CheckResult contains the outcome of a consistency check.
type CheckResult struct {
	// Checked is the number of record branches verified.
	Checked int
	// Inconsistencies is sorted by language, then document ID.
	Inconsistencies []Inconsistency
	Duration        time.Duration
}

// Consistent reports whether no issue was found.
func (r *CheckResult) Consistent() bool {
	return len(r.Inconsistencies) == 0
}

// ConsistencyChecker compares the repository with the language partitions.
// The repository is the source of truth.
type ConsistencyChecker struct {
	source     Source
	partitions Partitions
	logger     *slog.Logger
}

// NewConsistencyChecker creates a checker over source and partitions.
func NewConsistencyChecker(source Source, partitions Partitions, logger *slog.Logger) *ConsistencyChecker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConsistencyChecker{source: source, partitions: partitions, logger: logger}
}

// Check lists orphaned and missing documents per partition.
func (c *ConsistencyChecker) Check(ctx context.Context) (*CheckResult, error) {
	start := time.Now()
	expected := map[string]map[string]bool{}
	checked := 0
	err := c.source.Records(ctx, func(item content.Item) error {
		rec := recordOf(item)
		if rec == nil {
			return nil
		}
		lang := partitionLanguage(rec)
		if _, ok := c.partitions.Partition(lang); !ok {
			return nil
		}
		checked++
		if expected[lang] == nil {
			expected[lang] = map[string]bool{}
		}
		expected[lang][DocumentID(rec)] = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	var issues []Inconsistency
	for _, lang := range c.partitions.Languages() {
		p, _ := c.partitions.Partition(lang)
		ids, err := p.AllIDs(ctx)
		if err != nil {
			return nil, err
		}
		indexed := make(map[string]bool, len(ids))
		for _, id := range ids {
			indexed[id] = true
			if !expected[lang][id] {
				issues = append(issues, Inconsistency{Type: InconsistencyOrphan, Language: lang, DocumentID: id})
			}
		}
		for id := range expected[lang] {
			if !indexed[id] {
				issues = append(issues, Inconsistency{Type: InconsistencyMissing, Language: lang, DocumentID: id})
			}
		}
	}
	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Language != issues[j].Language {
			return issues[i].Language < issues[j].Language
		}
		return issues[i].DocumentID < issues[j].DocumentID
	})

	return &CheckResult{Checked: checked, Inconsistencies: issues, Duration: time.Since(start)}, nil
}

// Repair deletes orphans. Missing documents need a reindex and are only
// reported. Deletion is best-effort per partition.
func (c *ConsistencyChecker) Repair(ctx context.Context, issues []Inconsistency) int {
	orphans := map[string][]string{}
	missing := 0
	for _, issue := range issues {
		switch issue.Type {
		case InconsistencyOrphan:
			orphans[issue.Language] = append(orphans[issue.Language], issue.DocumentID)
		case InconsistencyMissing:
			missing++
		}
	}

	deleted := 0
	for lang, ids := range orphans {
		p, ok := c.partitions.Partition(lang)
		if !ok {
			continue
		}
		if err := p.Delete(ctx, ids); err != nil {
			c.logger.Warn("orphan_delete_failed",
				slog.String("language", lang),
				slog.Int("count", len(ids)),
				slog.String("error", err.Error()))
			continue
		}
		deleted += len(ids)
		c.logger.Info("orphans_deleted", slog.String("language", lang), slog.Int("count", len(ids)))
	}

	if missing > 0 {
		c.logger.Warn("index has missing documents, run 'contentsearch index' to rebuild",
			slog.Int("missing_count", missing))
	}
	return deleted
}
