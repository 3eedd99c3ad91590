package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/contentsearch/internal/content"
	"github.com/Aman-CERP/contentsearch/internal/store"
)

func TestInconsistencyType_String(t *testing.T) {
	assert.Equal(t, "orphan", InconsistencyOrphan.String())
	assert.Equal(t, "missing", InconsistencyMissing.String())
	assert.Equal(t, "unknown", InconsistencyType(9).String())
}

func TestConsistencyChecker_CheckAndRepair(t *testing.T) {
	ctx := context.Background()
	repo := seedRepo(t)
	reg := newRegistry(t)
	partitions := RegistryPartitions{reg}

	r, err := NewRunner(RunnerDependencies{Source: repo, Types: repo, Partitions: partitions})
	require.NoError(t, err)
	_, err = r.Run(ctx, RunnerConfig{})
	require.NoError(t, err)

	checker := NewConsistencyChecker(repo, partitions, nil)
	res, err := checker.Check(ctx)
	require.NoError(t, err)
	assert.True(t, res.Consistent())
	assert.Equal(t, 4, res.Checked)

	// Given: one orphan in en and one record added after indexing
	en, _ := reg.Index("en")
	require.NoError(t, en.Index(ctx, []store.Document{{ID: "99", Body: []byte(`{"content-link":["99"],"language-branch":"en"}`)}}))
	require.NoError(t, repo.PutRecord(ctx, &content.Record{Link: content.Reference{ID: 5}, Name: "New", TypeID: 1, Localizable: true, Language: "fr"}))

	// When: checking
	res, err = checker.Check(ctx)
	require.NoError(t, err)

	// Then: both are reported, sorted by language
	assert.Equal(t, []Inconsistency{
		{Type: InconsistencyOrphan, Language: "en", DocumentID: "99"},
		{Type: InconsistencyMissing, Language: "fr", DocumentID: "5"},
	}, res.Inconsistencies)

	assert.Equal(t, 1, checker.Repair(ctx, res.Inconsistencies))
	ids, err := en.AllIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids)
}
