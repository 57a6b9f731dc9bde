package check

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewriteTarget_ReplacesOnRecordedLineOnly(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "doc.md")
	content := "" +
		"[a](http://old/page)\n" +
		"see `http://old/page` in code\n" +
		"[b](http://old/page)\n"
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))

	require.NoError(t, rewriteTarget(file, 3, "http://old/page", "http://new/page"))

	updated, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, ""+
		"[a](http://old/page)\n"+
		"see `http://old/page` in code\n"+
		"[b](http://new/page)\n", string(updated))
}

func TestRewriteTarget_TargetMissingOnLine(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "doc.md")
	require.NoError(t, os.WriteFile(file, []byte("[a](http://other)\n"), 0o644))

	err := rewriteTarget(file, 1, "http://old", "http://new")
	require.Error(t, err)

	// Content untouched on failure.
	content, readErr := os.ReadFile(file)
	require.NoError(t, readErr)
	assert.Equal(t, "[a](http://other)\n", string(content))
}

func TestRewriteTarget_MissingFile(t *testing.T) {
	err := rewriteTarget(filepath.Join(t.TempDir(), "gone.md"), 1, "a", "b")
	require.Error(t, err)
}

func TestLocateOnLine(t *testing.T) {
	source := []byte("first\nsecond target here\nthird\n")

	start, end, ok := locateOnLine(source, 2, "target")
	require.True(t, ok)
	assert.Equal(t, "target", string(source[start:end]))

	_, _, ok = locateOnLine(source, 1, "target")
	assert.False(t, ok)

	_, _, ok = locateOnLine(source, 99, "target")
	assert.False(t, ok)
}
