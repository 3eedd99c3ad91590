package mcp

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/contentsearch/internal/search"
)

// FormatResults formats provider results as markdown.
func FormatResults(query, provider string, results []*search.Result) string {
	valid := filterValidResults(results)
	if len(valid) == 0 {
		return fmt.Sprintf("No %s results found for \"%s\"", provider, query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s results for \"%s\"\n\n", titleCase(provider), query)
	fmt.Fprintf(&sb, "Found %d result", len(valid))
	if len(valid) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	for i, r := range valid {
		formatResult(&sb, i+1, r)
	}
	return sb.String()
}

// FormatProviders formats the provider list as markdown.
func FormatProviders(providers []ProviderInfo) string {
	if len(providers) == 0 {
		return "No providers registered"
	}
	var sb strings.Builder
	sb.WriteString("## Providers\n\n")
	for _, p := range providers {
		fmt.Fprintf(&sb, "- **%s** (area `%s`, sort order %d", p.Name, p.Area, p.SortOrder)
		if p.IncludeInvariant {
			sb.WriteString(", includes language-neutral content")
		}
		sb.WriteString(")\n")
	}
	return sb.String()
}

func filterValidResults(results []*search.Result) []*search.Result {
	valid := make([]*search.Result, 0, len(results))
	for _, r := range results {
		if r != nil {
			valid = append(valid, r)
		}
	}
	return valid
}

func formatResult(sb *strings.Builder, num int, r *search.Result) {
	fmt.Fprintf(sb, "### %d. %s", num, r.Title)
	if r.Language != "" {
		fmt.Fprintf(sb, " [%s]", r.Language)
	}
	sb.WriteString("\n\n")
	fmt.Fprintf(sb, "Edit: `%s`\n", r.Link)
	if id := r.Metadata[search.MetaID]; id != "" {
		fmt.Fprintf(sb, "ID: `%s`", id)
		if parent := r.Metadata[search.MetaParentID]; parent != "" {
			fmt.Fprintf(sb, " (parent `%s`)", parent)
		}
		sb.WriteString("\n")
	}
	if r.Metadata[search.MetaIsOnCurrentHost] == "false" {
		sb.WriteString("Hosted on another site\n")
	}
	sb.WriteString("\n")
	if r.Preview != "" {
		fmt.Fprintf(sb, "> %s\n\n", r.Preview)
	}
	if len(r.Tooltip) > 0 {
		parts := make([]string, 0, len(r.Tooltip))
		for _, t := range r.Tooltip {
			if t.Value != "" {
				parts = append(parts, fmt.Sprintf("%s: %s", t.Label, t.Value))
			}
		}
		if len(parts) > 0 {
			fmt.Fprintf(sb, "_%s_\n\n", strings.Join(parts, " | "))
		}
	}
}

// providerInfos returns the identity of every provider, in sort order.
func providerInfos(ps *search.Providers) []ProviderInfo {
	all := ps.All()
	out := make([]ProviderInfo, 0, len(all))
	for _, p := range all {
		out = append(out, ProviderInfo{
			Name:             p.Name(),
			Area:             p.Area(),
			Category:         p.Category(),
			SortOrder:        p.SortOrder(),
			IncludeInvariant: p.IncludeInvariant(),
		})
	}
	return out
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// clampLimit ensures limit is within bounds. Zero keeps the provider default.
func clampLimit(limit, max int) int {
	if limit <= 0 {
		return 0
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}
