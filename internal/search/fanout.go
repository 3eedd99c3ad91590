package search

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/contentsearch/internal/content"
	cserrors "github.com/Aman-CERP/contentsearch/internal/errors"
)

// DefaultParallelism bounds concurrent client calls.
const DefaultParallelism = 4

// FanOutOptions configures a FanOut.
type FanOutOptions struct {
	// IncludeInvariant makes the invariant partition eligible.
	IncludeInvariant bool

	// Parallelism bounds concurrent client calls. Zero uses DefaultParallelism.
	Parallelism int

	Logger *slog.Logger
}

// FanOut replays one query against every eligible client.
type FanOut struct {
	registry         Registry
	includeInvariant bool
	parallelism      int
	logger           *slog.Logger
}

// NewFanOut returns a FanOut over registry.
func NewFanOut(registry Registry, opts FanOutOptions) (*FanOut, error) {
	if registry == nil {
		return nil, cserrors.CapabilityMissing("search.FanOut", "client registry")
	}
	f := &FanOut{
		registry:         registry,
		includeInvariant: opts.IncludeInvariant,
		parallelism:      opts.Parallelism,
		logger:           opts.Logger,
	}
	if f.parallelism <= 0 {
		f.parallelism = DefaultParallelism
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f, nil
}

// Eligible reports whether c takes part in searches.
func (f *FanOut) Eligible(c Client) bool {
	return c.Language() != content.InvariantLanguage || f.includeInvariant
}

// Execute queries every eligible client and returns the non-empty hit sets
// in registry order. A failing client is logged and contributes nothing; it
// never cancels the other calls. The only error returned is ctx's.
func (f *FanOut) Execute(ctx context.Context, q Query, principal Principal) ([]ClientResult, error) {
	clients := f.registry.Clients()
	slots := make([]*ClientResult, len(clients))
	start := time.Now()

	// No WithContext: a failed call must not cancel its siblings.
	var g errgroup.Group
	g.SetLimit(f.parallelism)

	for i, c := range clients {
		if c == nil || !f.Eligible(c) {
			continue
		}
		lang := c.Language()
		cq := ClientQuery{
			Query:          q,
			IncludeNeutral: lang == content.InvariantLanguage,
			Principal:      principal,
		}
		g.Go(func() error {
			resp, err := c.SearchContent(ctx, cq)
			if err != nil {
				f.logger.Warn("fanout_client_failed",
					cserrors.LogAttrs(cserrors.BackendUnavailable(lang, err))...)
				return nil
			}
			if resp == nil || len(resp.Hits) == 0 {
				return nil
			}
			hits := make([]Hit, len(resp.Hits))
			for j, h := range resp.Hits {
				h.Language = lang
				hits[j] = h
			}
			slots[i] = &ClientResult{Language: lang, Hits: hits}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sets := make([]ClientResult, 0, len(slots))
	total := 0
	for _, s := range slots {
		if s != nil {
			sets = append(sets, *s)
			total += len(s.Hits)
		}
	}
	f.logger.Debug("fanout_complete",
		slog.Int("clients", len(clients)),
		slog.Int("sets", len(sets)),
		slog.Int("hits", total),
		slog.Duration("duration", time.Since(start)))
	return sets, nil
}
