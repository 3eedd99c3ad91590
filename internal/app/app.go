// Package app opens the content repository, the language indices and the
// search providers of a project, as configured.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Aman-CERP/contentsearch/configs"
	"github.com/Aman-CERP/contentsearch/internal/attachment"
	"github.com/Aman-CERP/contentsearch/internal/config"
	"github.com/Aman-CERP/contentsearch/internal/content"
	"github.com/Aman-CERP/contentsearch/internal/corpus"
	"github.com/Aman-CERP/contentsearch/internal/index"
	"github.com/Aman-CERP/contentsearch/internal/search"
	"github.com/Aman-CERP/contentsearch/internal/store"
)

// ProviderCategories are the categories a provider is registered for, in
// display order. Block and media providers always query the invariant
// partition, where non-localizable content is indexed.
var ProviderCategories = []content.Category{
	content.CategoryPage,
	content.CategoryBlock,
	content.CategoryMedia,
}

// Options configures Open.
type Options struct {
	// InMemory keeps the repository and indices in memory.
	InMemory bool

	Logger *slog.Logger
}

// App holds the opened stores and the providers built on them.
type App struct {
	Config     *config.Config
	Repository *store.SQLiteRepository
	Cache      *store.CachedRepository
	Registry   *store.Registry
	Encoder    *attachment.Encoder
	Providers  *search.Providers

	dataDir string
	logger  *slog.Logger
}

// Open opens the stores of the project in projectDir and builds one
// provider per category.
func Open(cfg *config.Config, projectDir string, opts Options) (*App, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{Config: cfg, logger: logger}
	dbPath, indexDir := "", ""
	if !opts.InMemory {
		a.dataDir = cfg.DataPath(projectDir)
		if err := os.MkdirAll(a.dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		dbPath, indexDir = cfg.ContentDBPath(projectDir), a.dataDir
	}

	repo, err := store.NewSQLiteRepository(dbPath, store.WithCurrentSite(cfg.Site.CurrentURL))
	if err != nil {
		return nil, err
	}
	a.Repository = repo
	a.Cache = store.NewCachedRepository(repo, cfg.Search.CacheSize)

	reg, err := store.OpenRegistry(indexDir, cfg.Index.Languages, cfg.Index.Invariant)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}
	a.Registry = reg

	a.Encoder, err = attachment.NewEncoder(
		attachment.NewMIMEPolicy(cfg.Index.AttachmentMIMETypes),
		attachment.WithMaxSize(cfg.Index.MaxAttachmentBytes),
		attachment.WithContentTypeField(),
		attachment.WithLogger(logger),
	)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	providers := make([]*search.Provider, 0, len(ProviderCategories))
	for i, c := range ProviderCategories {
		p, err := a.newProvider(c, cfg.Provider.SortOrder+i)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("failed to create %s provider: %w", c, err)
		}
		providers = append(providers, p)
	}
	a.Providers = search.NewProviders(providers...)

	logger.Debug("app_opened",
		slog.String("data_dir", a.dataDir),
		slog.Any("providers", a.Providers.Names()))
	return a, nil
}

func (a *App) newProvider(category content.Category, sortOrder int) (*search.Provider, error) {
	cfg := a.Config
	return search.NewProvider(search.Dependencies{
		Registry:   a.Registry,
		Repository: a.Cache,
		Types:      a.Repository,
		Localizer:  a.Repository,
		Sites:      a.Repository,
	},
		search.WithCategory(category),
		search.WithArea(cfg.Provider.Area),
		search.WithSortOrder(sortOrder),
		search.WithIncludeInvariant(cfg.Provider.IncludeInvariant || category != content.CategoryPage),
		search.WithDefaultCulture(cfg.Provider.DefaultCulture),
		search.WithTooltipResourceBase(cfg.Provider.TooltipResourceBase),
		search.WithPreviewLength(cfg.Provider.PreviewLength),
		search.WithStrictHits(cfg.Provider.StrictHits),
		search.WithLimits(cfg.Search.DefaultLimit, cfg.Search.MaxLimit),
		search.WithParallelism(cfg.Search.Parallelism),
		search.WithLogger(a.logger),
	)
}

// DataDir returns the data directory, or "" when in memory.
func (a *App) DataDir() string {
	return a.dataDir
}

// LoadCorpus loads the corpus file at path. An empty path loads the
// embedded sample corpus.
func (a *App) LoadCorpus(ctx context.Context, path string) (*corpus.Stats, error) {
	defer a.Cache.Purge()
	if path == "" {
		return corpus.LoadFS(ctx, configs.Sample, configs.SampleCorpusPath, a.Repository)
	}
	return corpus.LoadFile(ctx, path, a.Repository)
}

// Index rebuilds the language indices from the repository. On disk the
// data directory is locked for the duration of the run.
func (a *App) Index(ctx context.Context, rc index.RunnerConfig) (*index.RunnerResult, error) {
	deps := index.RunnerDependencies{
		Source:     a.Repository,
		Types:      a.Repository,
		Partitions: a.partitions(),
		Encoder:    a.Encoder,
		Logger:     a.logger,
	}
	if a.dataDir != "" {
		deps.Lock = store.NewDirLock(a.dataDir)
	}
	r, err := index.NewRunner(deps)
	if err != nil {
		return nil, err
	}
	if rc.BatchSize == 0 {
		rc.BatchSize = a.Config.Index.BatchSize
	}
	defer a.Cache.Purge()
	return r.Run(ctx, rc)
}

// Checker returns a consistency checker over the repository and indices.
func (a *App) Checker() *index.ConsistencyChecker {
	return index.NewConsistencyChecker(a.Repository, a.partitions(), a.logger)
}

func (a *App) partitions() index.Partitions {
	return index.RegistryPartitions{Registry: a.Registry}
}

// Close closes the indices and the repository.
func (a *App) Close() error {
	var firstErr error
	if a.Registry != nil {
		if err := a.Registry.Close(); err != nil {
			firstErr = err
		}
	}
	if a.Repository != nil {
		if err := a.Repository.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
