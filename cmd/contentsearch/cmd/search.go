package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/contentsearch/internal/output"
	"github.com/Aman-CERP/contentsearch/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	category string
	roots    []string
	limit    int
	culture  string
	roles    []string
	user     string
	format   string // "text", "json"
	verbose  bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed content",
		Long: `Search every language index through one provider and print the
assembled results in partition order.

Examples:
  contentsearch search budget
  contentsearch search "annual report" --category block --limit 5
  contentsearch search budget --roots 5 --roles Employees
  contentsearch search budget --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.category, "category", "c", "page", "Provider: page, block or media")
	cmd.Flags().StringSliceVarP(&opts.roots, "roots", "r", nil, "Restrict to subtrees of these content references (repeatable)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum results per language partition (default from config)")
	cmd.Flags().StringVar(&opts.culture, "culture", "", "Preferred culture for edit links of non-localizable content")
	cmd.Flags().StringSliceVar(&opts.roles, "roles", nil, "Reader roles of the caller")
	cmd.Flags().StringVar(&opts.user, "user", "", "Caller user name")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Print tooltip and metadata")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("unknown format %q (supported: text, json)", opts.format)
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	p, ok := a.Providers.Get(opts.category)
	if !ok {
		return fmt.Errorf("unknown category %q (available: %s)", opts.category, strings.Join(a.Providers.Names(), ", "))
	}

	slog.Info("search_started", slog.String("query", query), slog.String("provider", p.Name()))
	results, err := p.Search(ctx, search.Request{
		Query:      query,
		Roots:      opts.roots,
		MaxResults: opts.limit,
		Culture:    opts.culture,
		Principal:  search.Principal{Name: opts.user, Roles: opts.roles},
	})
	if err != nil {
		return err
	}
	slog.Info("search_complete", slog.Int("results", len(results)))

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	output.New(cmd.OutOrStdout()).Results(query, results, opts.verbose)
	return nil
}
