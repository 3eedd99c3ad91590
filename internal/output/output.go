// Package output provides consistent CLI output formatting.
package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/Aman-CERP/contentsearch/internal/index"
	"github.com/Aman-CERP/contentsearch/internal/search"
)

// Writer provides formatted output for CLI.
type Writer struct {
	out    io.Writer
	styles Styles
}

// New creates a Writer that colors output when out is a terminal and
// NO_COLOR is unset.
func New(out io.Writer) *Writer {
	return NewWithStyles(out, GetStyles(!IsTTY(out) || DetectNoColor()))
}

// NewWithStyles creates a Writer with explicit styles.
func NewWithStyles(out io.Writer, styles Styles) *Writer {
	return &Writer{out: out, styles: styles}
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message with checkmark.
func (w *Writer) Success(msg string) {
	w.Status("✅", w.styles.Success.Render(msg))
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status("⚠️ ", w.styles.Warning.Render(msg))
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status("❌", w.styles.Error.Render(msg))
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// Results prints search results in order. Tooltip lines are printed when
// verbose is set.
func (w *Writer) Results(query string, results []*search.Result, verbose bool) {
	if len(results) == 0 {
		w.Statusf("🔍", "No results for %q", query)
		return
	}
	w.Status("🔍", w.styles.Header.Render(fmt.Sprintf("%d result(s) for %q", len(results), query)))
	for i, r := range results {
		title := w.styles.Title.Render(r.Title)
		if r.Language != "" {
			title += " " + w.styles.Label.Render("["+r.Language+"]")
		}
		_, _ = fmt.Fprintf(w.out, "\n%2d. %s\n", i+1, title)
		_, _ = fmt.Fprintf(w.out, "    %s\n", w.styles.Link.Render(r.Link))
		if r.Preview != "" {
			_, _ = fmt.Fprintf(w.out, "    %s\n", r.Preview)
		}
		if !verbose {
			continue
		}
		for _, t := range r.Tooltip {
			_, _ = fmt.Fprintf(w.out, "    %s %s\n", w.styles.Label.Render(t.Label+":"), t.Value)
		}
		_, _ = fmt.Fprintf(w.out, "    %s\n", w.styles.Dim.Render(formatMetadata(r.Metadata)))
	}
}

func formatMetadata(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + m[k]
	}
	return strings.Join(parts, " ")
}

// Providers prints the registered providers in order.
func (w *Writer) Providers(ps []*search.Provider) {
	w.Status("📚", w.styles.Header.Render("Search providers"))
	for _, p := range ps {
		invariant := ""
		if p.IncludeInvariant() {
			invariant = " +invariant"
		}
		_, _ = fmt.Fprintf(w.out, "   %-8s %s %s\n", p.Name(),
			w.styles.Label.Render(fmt.Sprintf("area=%s category=%s sort=%d", p.Area(), p.Category(), p.SortOrder())),
			w.styles.Dim.Render(invariant))
	}
}

// IndexSummary prints the outcome of an indexing run.
func (w *Writer) IndexSummary(res *index.RunnerResult) {
	w.Successf("Indexed %d document(s) from %d record branch(es) in %s",
		res.Total(), res.Records, res.Duration.Round(time.Millisecond))
	langs := make([]string, 0, len(res.Documents))
	for l := range res.Documents {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	for _, l := range langs {
		name := l
		if name == "" {
			name = "invariant"
		}
		w.Statusf("", "%-10s %d", name, res.Documents[l])
	}
	if res.Attachments > 0 {
		w.Statusf("📎", "%d attachment(s)", res.Attachments)
	}
	if res.Removed > 0 {
		w.Statusf("🧹", "%d stale document(s) removed", res.Removed)
	}
	if res.Skipped > 0 {
		w.Warningf("%d record branch(es) have no configured partition", res.Skipped)
	}
	if res.Warnings > 0 {
		w.Warningf("%d warning(s), see the log for details", res.Warnings)
	}
}

// Consistency prints a consistency check result.
func (w *Writer) Consistency(res *index.CheckResult) {
	if res.Consistent() {
		w.Successf("Index is consistent (%d record branch(es) checked)", res.Checked)
		return
	}
	w.Warningf("%d inconsistenc(ies) in %d record branch(es)", len(res.Inconsistencies), res.Checked)
	for _, issue := range res.Inconsistencies {
		lang := issue.Language
		if lang == "" {
			lang = "invariant"
		}
		w.Statusf("", "%-8s %-10s %s", issue.Type, lang, issue.DocumentID)
	}
}
