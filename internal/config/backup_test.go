package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackup_MissingFile(t *testing.T) {
	path, err := Backup(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestBackup_KeepsNewest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "version: 1\n")

	var made []string
	for range MaxBackups + 2 {
		b, err := Backup(path)
		require.NoError(t, err)
		require.NotEmpty(t, b)
		made = append(made, b)
	}

	backups, err := ListBackups(path)
	require.NoError(t, err)
	require.Len(t, backups, MaxBackups)
	assert.Equal(t, made[len(made)-1], backups[0], "newest first")

	data, err := os.ReadFile(backups[0])
	require.NoError(t, err)
	assert.Equal(t, "version: 1\n", string(data))
}

func TestRestore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "version: 1\n")
	backup, err := Backup(path)
	require.NoError(t, err)

	writeConfig(t, path, "version: 2\n")
	require.NoError(t, Restore(path, backup))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "version: 1\n", string(data))

	backups, err := ListBackups(path)
	require.NoError(t, err)
	assert.Len(t, backups, 2, "the replaced file is backed up too")

	assert.Error(t, Restore(path, filepath.Join(t.TempDir(), "missing")))
}
