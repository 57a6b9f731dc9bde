// Package gitignore implements gitignore-aware markdown file discovery.
//
// Ignore rules are resolved hierarchically: patterns accumulate from the
// repository root (the nearest ancestor containing a .git entry) down to each
// scanned directory, with deeper rules taking precedence, matching standard
// git semantics.
package gitignore

import (
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	format "github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

const ignoreFileName = ".gitignore"

// Discovery configures directory scanning.
type Discovery struct {
	// FollowGitignore enables loading of .gitignore files. When false, only
	// the include/exclude globs filter discovery.
	FollowGitignore bool

	// IncludePattern is a glob matched against file base names; only matching
	// files are yielded. Empty matches everything.
	IncludePattern string

	// ExcludePattern is a glob matched against base names and slash-separated
	// relative paths. Matching files are dropped; matching directories are
	// pruned before their contents are visited.
	ExcludePattern string
}

// Discover walks root and returns the matching files in lexical order.
// Unreadable directories are skipped, never fatal.
//
// When the root itself is ignored by a rule inherited from the surrounding
// repository, Discover returns no files: the caller asked to scan an ignored
// location.
func (d Discovery) Discover(root string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	base := absRoot
	var inherited []format.Pattern
	if d.FollowGitignore {
		if repoRoot, found := findRepoRoot(absRoot); found {
			base = repoRoot
		}
		inherited = ancestorPatterns(base, absRoot)

		if rel := relSegments(base, absRoot); len(rel) > 0 {
			if format.NewMatcher(inherited).Match(rel, true) {
				slog.Debug("Scan root is ignored by repository rules", "root", absRoot)
				return []string{}, nil
			}
		}
	}

	// Cumulative pattern sets per visited directory.
	rules := map[string][]format.Pattern{}

	files := make([]string, 0)
	walkErr := filepath.WalkDir(absRoot, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			slog.Debug("Skipping unreadable path during discovery", "path", p, "error", err)
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if entry.IsDir() {
			return d.enterDir(p, absRoot, base, inherited, rules)
		}

		if !d.includeFile(p, absRoot, base, rules) {
			return nil
		}
		files = append(files, p)
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return files, nil
}

// enterDir decides whether to descend into dir, accumulating its ignore rules.
func (d Discovery) enterDir(dir, absRoot, base string, inherited []format.Pattern, rules map[string][]format.Pattern) error {
	if dir != absRoot {
		if filepath.Base(dir) == ".git" {
			return fs.SkipDir
		}
		if d.excluded(dir, absRoot) {
			return fs.SkipDir
		}
		if d.FollowGitignore {
			parent := rules[filepath.Dir(dir)]
			if format.NewMatcher(parent).Match(relSegments(base, dir), true) {
				return fs.SkipDir
			}
		}
	}

	if d.FollowGitignore {
		parent := inherited
		if dir != absRoot {
			parent = rules[filepath.Dir(dir)]
		}
		rules[dir] = appendIgnoreFile(parent, dir, base)
	}
	return nil
}

func (d Discovery) includeFile(file, absRoot, base string, rules map[string][]format.Pattern) bool {
	if d.FollowGitignore {
		patterns := rules[filepath.Dir(file)]
		if format.NewMatcher(patterns).Match(relSegments(base, file), false) {
			return false
		}
	}
	if d.IncludePattern != "" {
		if ok, _ := path.Match(d.IncludePattern, filepath.Base(file)); !ok {
			return false
		}
	}
	return !d.excluded(file, absRoot)
}

func (d Discovery) excluded(p, absRoot string) bool {
	if d.ExcludePattern == "" {
		return false
	}
	if ok, _ := path.Match(d.ExcludePattern, filepath.Base(p)); ok {
		return true
	}
	if rel, err := filepath.Rel(absRoot, p); err == nil {
		if ok, _ := path.Match(d.ExcludePattern, filepath.ToSlash(rel)); ok {
			return true
		}
	}
	return false
}

// appendIgnoreFile layers dir's .gitignore (if any) on top of parent rules.
// The combined slice keeps ancestors first; go-git's matcher evaluates
// patterns in reverse, so the most specific rule wins.
func appendIgnoreFile(parent []format.Pattern, dir, base string) []format.Pattern {
	data, err := os.ReadFile(filepath.Join(dir, ignoreFileName))
	if err != nil {
		return parent
	}

	domain := relSegments(base, dir)
	patterns := append([]format.Pattern(nil), parent...)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if len(strings.TrimSpace(line)) == 0 || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, format.ParsePattern(line, domain))
	}
	return patterns
}

// ancestorPatterns loads .gitignore files from base down to, but not
// including, leaf. These are the rules the scan root inherits from the
// repository it belongs to.
func ancestorPatterns(base, leaf string) []format.Pattern {
	rel := relSegments(base, leaf)
	if len(rel) == 0 {
		return nil
	}

	dirs := []string{base}
	current := base
	for _, seg := range rel[:len(rel)-1] {
		current = filepath.Join(current, seg)
		dirs = append(dirs, current)
	}

	var patterns []format.Pattern
	for _, dir := range dirs {
		patterns = appendIgnoreFile(patterns, dir, base)
	}
	return patterns
}

// findRepoRoot walks upward from dir looking for a .git entry (directory or
// worktree file).
func findRepoRoot(dir string) (string, bool) {
	current := dir
	for {
		if _, err := os.Stat(filepath.Join(current, ".git")); err == nil {
			return current, true
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", false
		}
		current = parent
	}
}

// relSegments returns the path segments of target relative to base, or nil
// when target is base itself.
func relSegments(base, target string) []string {
	rel, err := filepath.Rel(base, target)
	if err != nil || rel == "." {
		return nil
	}
	return strings.Split(filepath.ToSlash(rel), "/")
}
