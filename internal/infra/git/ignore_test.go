package git

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIgnoreFilterReadsRepoIgnoreFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("# comment\n\n*.log\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".repoRagignore"), []byte("docs/generated/\n"), 0o644))

	filter, err := newIgnoreFilter(dir)
	require.NoError(t, err)

	assert.True(t, filter.ShouldIgnore("debug.log"))
	assert.True(t, filter.ShouldIgnore("docs/generated/api.md"))
	assert.False(t, filter.ShouldIgnore("main.go"))
}

func TestIgnoreFilterAppliesDefaultPatternsWithoutIgnoreFiles(t *testing.T) {
	filter, err := newIgnoreFilter(t.TempDir())
	require.NoError(t, err)

	assert.True(t, filter.ShouldIgnore("package-lock.json"))
	assert.True(t, filter.ShouldIgnore("node_modules/react/index.js"))
	assert.True(t, filter.ShouldIgnore("assets/app.min.js"))
	assert.False(t, filter.ShouldIgnore("README.md"))
}
