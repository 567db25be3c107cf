package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002_settings.sql", "001_schema.sql", "003_reset_all.sql", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "old.sql"), 0o755))

	files, err := PendingFiles(dir, map[string]bool{})
	require.NoError(t, err)
	assert.Equal(t, []string{"001_schema.sql", "002_settings.sql"}, files)

	files, err = PendingFiles(dir, map[string]bool{"001_schema.sql": true})
	require.NoError(t, err)
	assert.Equal(t, []string{"002_settings.sql"}, files)
}

func TestPendingFilesMissingDir(t *testing.T) {
	_, err := PendingFiles(filepath.Join(t.TempDir(), "nope"), nil)
	assert.Error(t, err)
}

func TestRepositoryMigrationsAreOrdered(t *testing.T) {
	files, err := PendingFiles(filepath.Join("..", "..", "migrations"), nil)
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, "001_schema.sql", files[0])
}
