package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListTemplateFiles(t *testing.T) {
	files, err := listTemplateFiles("minimal")
	require.NoError(t, err)

	assert.Contains(t, files, "mallard.yaml")
	assert.Contains(t, files, ".gitignore", "gitignore should be renamed")
	assert.NotContains(t, files, "gitignore")
	for _, f := range files {
		assert.NotEqual(t, ".gitkeep", filepath.Base(f), "placeholders should be hidden from listings")
	}
}

func TestListTemplateFilesExample(t *testing.T) {
	files, err := listTemplateFiles("example")
	require.NoError(t, err)

	assert.Contains(t, files, filepath.Join("migrations", "0001_create_users.sql"))
	assert.Contains(t, files, filepath.Join("migrations", "0002_create_events.star"))
	assert.Contains(t, files, filepath.Join("seeds", "countries.csv"))
	assert.Contains(t, files, filepath.Join("seeds", "seeds.yml"))
}

func TestCopyTemplate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, copyTemplate("minimal", dir, false))

	for _, f := range []string{"mallard.yaml", ".gitignore"} {
		_, err := os.Stat(filepath.Join(dir, f))
		assert.NoError(t, err, "%s should exist", f)
	}
	for _, d := range []string{"migrations", "seeds"} {
		info, err := os.Stat(filepath.Join(dir, d))
		require.NoError(t, err, "%s should exist", d)
		assert.True(t, info.IsDir())
	}
}

func TestCopyTemplateKeepsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	custom := []byte("default_target: mine\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mallard.yaml"), custom, 0o644))

	require.NoError(t, copyTemplate("minimal", dir, false))
	content, err := os.ReadFile(filepath.Join(dir, "mallard.yaml"))
	require.NoError(t, err)
	assert.Equal(t, custom, content, "existing files survive without --force")

	require.NoError(t, copyTemplate("minimal", dir, true))
	content, err = os.ReadFile(filepath.Join(dir, "mallard.yaml"))
	require.NoError(t, err)
	assert.NotEqual(t, custom, content, "--force overwrites")
}
