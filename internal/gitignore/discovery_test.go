package gitignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func relNames(t *testing.T, root string, files []string) []string {
	t.Helper()
	out := make([]string, 0, len(files))
	for _, f := range files {
		rel, err := filepath.Rel(root, f)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func TestDiscover_IncludePattern(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "# a")
	writeFile(t, filepath.Join(dir, "b.txt"), "b")
	writeFile(t, filepath.Join(dir, "sub", "c.md"), "# c")

	d := Discovery{FollowGitignore: true, IncludePattern: "*.md"}
	files, err := d.Discover(dir)
	require.NoError(t, err)
	require.Equal(t, []string{"a.md", "sub/c.md"}, relNames(t, dir, files))
}

func TestDiscover_GitignorePrunesSubtree(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".gitignore"), "build/\n")
	writeFile(t, filepath.Join(dir, "keep.md"), "# keep")
	writeFile(t, filepath.Join(dir, "build", "lost.md"), "# lost")
	writeFile(t, filepath.Join(dir, "build", "deep", "nested", "also.md"), "# also")

	d := Discovery{FollowGitignore: true, IncludePattern: "*.md"}
	files, err := d.Discover(dir)
	require.NoError(t, err)
	require.Equal(t, []string{"keep.md"}, relNames(t, dir, files))
}

func TestDiscover_NestedGitignoreLayersOnAncestors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".gitignore"), "*.tmp.md\n")
	writeFile(t, filepath.Join(dir, "sub", ".gitignore"), "secret.md\n")
	writeFile(t, filepath.Join(dir, "top.tmp.md"), "x")
	writeFile(t, filepath.Join(dir, "sub", "ok.md"), "x")
	writeFile(t, filepath.Join(dir, "sub", "secret.md"), "x")
	writeFile(t, filepath.Join(dir, "sub", "inherited.tmp.md"), "x")

	d := Discovery{FollowGitignore: true, IncludePattern: "*.md"}
	files, err := d.Discover(dir)
	require.NoError(t, err)
	require.Equal(t, []string{"sub/ok.md"}, relNames(t, dir, files))
}

func TestDiscover_NegatedPatternWins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".gitignore"), "*.md\n!README.md\n")
	writeFile(t, filepath.Join(dir, "README.md"), "# readme")
	writeFile(t, filepath.Join(dir, "other.md"), "# other")

	d := Discovery{FollowGitignore: true, IncludePattern: "*.md"}
	files, err := d.Discover(dir)
	require.NoError(t, err)
	require.Equal(t, []string{"README.md"}, relNames(t, dir, files))
}

func TestDiscover_IgnoredRootYieldsNothing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".gitignore"), ".venv\n")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	writeFile(t, filepath.Join(dir, ".venv", "file.md"), "content")

	d := Discovery{FollowGitignore: true, IncludePattern: "*.md"}
	files, err := d.Discover(filepath.Join(dir, ".venv"))
	require.NoError(t, err)
	require.Empty(t, files)
}

func TestDiscover_FollowGitignoreDisabled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".gitignore"), "build/\n")
	writeFile(t, filepath.Join(dir, "build", "found.md"), "# found")

	d := Discovery{FollowGitignore: false, IncludePattern: "*.md"}
	files, err := d.Discover(dir)
	require.NoError(t, err)
	require.Equal(t, []string{"build/found.md"}, relNames(t, dir, files))
}

func TestDiscover_ExcludePatternPrunesDirectories(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "docs", "a.md"), "# a")
	writeFile(t, filepath.Join(dir, "vendor", "b.md"), "# b")

	d := Discovery{FollowGitignore: true, IncludePattern: "*.md", ExcludePattern: "vendor"}
	files, err := d.Discover(dir)
	require.NoError(t, err)
	require.Equal(t, []string{"docs/a.md"}, relNames(t, dir, files))
}

func TestDiscover_ExcludePatternOnFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "# a")
	writeFile(t, filepath.Join(dir, "a_draft.md"), "# draft")

	d := Discovery{FollowGitignore: true, IncludePattern: "*.md", ExcludePattern: "*_draft.md"}
	files, err := d.Discover(dir)
	require.NoError(t, err)
	require.Equal(t, []string{"a.md"}, relNames(t, dir, files))
}

func TestDiscover_DeterministicOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "z.md"), "z")
	writeFile(t, filepath.Join(dir, "a.md"), "a")
	writeFile(t, filepath.Join(dir, "m", "x.md"), "x")

	d := Discovery{FollowGitignore: true, IncludePattern: "*.md"}
	first, err := d.Discover(dir)
	require.NoError(t, err)
	second, err := d.Discover(dir)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, []string{"a.md", "m/x.md", "z.md"}, relNames(t, dir, first))
}
