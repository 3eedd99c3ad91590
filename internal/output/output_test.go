package output

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/contentsearch/internal/index"
	"github.com/Aman-CERP/contentsearch/internal/search"
)

func plain(buf *bytes.Buffer) *Writer {
	return NewWithStyles(buf, NoColorStyles())
}

func TestWriter_StatusLines(t *testing.T) {
	tests := []struct {
		name  string
		write func(w *Writer)
		want  []string
	}{
		{"status", func(w *Writer) { w.Status("🔍", "Searching") }, []string{"🔍", "Searching"}},
		{"no icon indents", func(w *Writer) { w.Status("", "detail") }, []string{"   detail"}},
		{"success", func(w *Writer) { w.Successf("Indexed %d", 3) }, []string{"✅", "Indexed 3"}},
		{"warning", func(w *Writer) { w.Warningf("%s skipped", "sv") }, []string{"⚠️", "sv skipped"}},
		{"error", func(w *Writer) { w.Errorf("failed: %v", "boom") }, []string{"❌", "failed: boom"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			tt.write(plain(buf))
			for _, s := range tt.want {
				assert.Contains(t, buf.String(), s)
			}
		})
	}
}

func TestWriter_Results(t *testing.T) {
	// Given: two results, one with tooltip and metadata
	results := []*search.Result{
		{
			Title:    "Budget report",
			Link:     "/edit/2#language=en",
			Preview:  "Highlights of the annual budget...",
			Language: "English",
			Metadata: map[string]string{"Id": "2", "LanguageBranch": "en"},
			Tooltip:  []search.TooltipElement{{Label: "ID", Value: "2"}},
		},
		{Title: "Teaser", Link: "/edit/3"},
	}
	buf := &bytes.Buffer{}

	// When: rendering verbosely
	plain(buf).Results("budget", results, true)

	// Then: results appear in order with their details
	out := buf.String()
	assert.Contains(t, out, `2 result(s) for "budget"`)
	assert.Contains(t, out, " 1. Budget report [English]")
	assert.Contains(t, out, "/edit/2#language=en")
	assert.Contains(t, out, "ID: 2")
	assert.Contains(t, out, "Id=2 LanguageBranch=en")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("Budget report")), bytes.Index(buf.Bytes(), []byte("Teaser")))

	buf.Reset()
	plain(buf).Results("budget", results, false)
	assert.NotContains(t, buf.String(), "ID: 2")
}

func TestWriter_NoResults(t *testing.T) {
	buf := &bytes.Buffer{}
	plain(buf).Results("nothing", nil, false)
	assert.Contains(t, buf.String(), `No results for "nothing"`)
}

func TestWriter_IndexSummary(t *testing.T) {
	buf := &bytes.Buffer{}
	plain(buf).IndexSummary(&index.RunnerResult{
		Records:     5,
		Documents:   map[string]int{"en": 2, "": 1},
		Attachments: 1,
		Skipped:     1,
		Removed:     2,
		Warnings:    1,
		Duration:    1500 * time.Millisecond,
	})
	out := buf.String()
	assert.Contains(t, out, "Indexed 3 document(s) from 5 record branch(es) in 1.5s")
	assert.Contains(t, out, "invariant")
	assert.Contains(t, out, "1 attachment(s)")
	assert.Contains(t, out, "2 stale document(s) removed")
	assert.Contains(t, out, "1 record branch(es) have no configured partition")
	assert.Contains(t, out, "1 warning(s)")
}

func TestWriter_Consistency(t *testing.T) {
	buf := &bytes.Buffer{}
	plain(buf).Consistency(&index.CheckResult{Checked: 4})
	assert.Contains(t, buf.String(), "Index is consistent (4 record branch(es) checked)")

	buf.Reset()
	plain(buf).Consistency(&index.CheckResult{Checked: 4, Inconsistencies: []index.Inconsistency{
		{Type: index.InconsistencyOrphan, Language: "", DocumentID: "99"},
	}})
	assert.Contains(t, buf.String(), "orphan")
	assert.Contains(t, buf.String(), "invariant")
	assert.Contains(t, buf.String(), "99")
}

func TestIsTTY(t *testing.T) {
	assert.False(t, IsTTY(nil))
	assert.False(t, IsTTY(&bytes.Buffer{}))

	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.False(t, IsTTY(f), "regular files are not terminals")
}

func TestNew_PlainForNonTerminal(t *testing.T) {
	buf := &bytes.Buffer{}
	New(buf).Success("done")
	assert.Equal(t, "✅ done\n", buf.String())
}

func TestDetectNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.True(t, DetectNoColor())
}
