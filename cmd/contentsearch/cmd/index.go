package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/contentsearch/internal/index"
	"github.com/Aman-CERP/contentsearch/internal/output"
)

// indexOptions holds CLI flags for index.
type indexOptions struct {
	corpus    string
	sample    bool
	check     bool
	repair    bool
	keepStale bool
	batchSize int
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the language indices from the content repository",
		Long: `Build one search index per configured language from the content
repository in the data directory.

Records are routed to the index of their language branch; content that is
not localizable goes to the invariant index. Documents whose record no
longer exists are removed unless --keep-stale is set.

A YAML corpus can be loaded into the repository first with --corpus, or
the built-in sample with --sample.`,
		Example: `  # Load the sample corpus and index it
  contentsearch index --sample

  # Load a corpus file and index it
  contentsearch index --corpus site.yaml

  # Verify the indices against the repository, deleting orphans
  contentsearch index --check --repair`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if opts.sample && opts.corpus != "" {
				return fmt.Errorf("--sample and --corpus are mutually exclusive")
			}
			if opts.repair && !opts.check {
				return fmt.Errorf("--repair requires --check")
			}
			return runIndex(ctx, cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.corpus, "corpus", "", "Load a YAML corpus into the repository before indexing")
	cmd.Flags().BoolVar(&opts.sample, "sample", false, "Load the built-in sample corpus before indexing")
	cmd.Flags().BoolVar(&opts.check, "check", false, "Check the indices against the repository instead of indexing")
	cmd.Flags().BoolVar(&opts.repair, "repair", false, "With --check, delete orphaned documents")
	cmd.Flags().BoolVar(&opts.keepStale, "keep-stale", false, "Keep documents whose record no longer exists")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 0, "Documents per index batch (default from config)")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, opts indexOptions) error {
	out := output.New(cmd.OutOrStdout())

	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if opts.check {
		return runCheck(ctx, out, a.Checker(), opts.repair)
	}

	if opts.sample || opts.corpus != "" {
		st, err := a.LoadCorpus(ctx, opts.corpus)
		if err != nil {
			return err
		}
		out.Statusf("📥", "Loaded %d type(s), %d site(s), %d string(s), %d record branch(es), %d media",
			st.Types, st.Sites, st.Strings, st.Branches, st.Media)
	}

	slog.Info("index_started", slog.String("data_dir", a.DataDir()))
	res, err := a.Index(ctx, index.RunnerConfig{
		BatchSize: opts.batchSize,
		KeepStale: opts.keepStale,
	})
	if err != nil {
		return err
	}
	out.IndexSummary(res)
	return nil
}

func runCheck(ctx context.Context, out *output.Writer, checker *index.ConsistencyChecker, repair bool) error {
	res, err := checker.Check(ctx)
	if err != nil {
		return err
	}
	out.Consistency(res)
	if !repair || res.Consistent() {
		return nil
	}
	removed := checker.Repair(ctx, res.Inconsistencies)
	out.Successf("Removed %d orphaned document(s)", removed)
	return nil
}
