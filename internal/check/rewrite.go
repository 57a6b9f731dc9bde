package check

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"

	"git.home.luguber.info/inful/markcheck/internal/markdown"
)

// rewriteTarget replaces the first occurrence of oldTarget on the given line
// of file with newTarget and writes the file back. The substitution is
// restricted to the recorded line so identical targets elsewhere in the
// document are left alone.
func rewriteTarget(file string, line int, oldTarget, newTarget string) error {
	source, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", file, err)
	}

	start, end, ok := locateOnLine(source, line, oldTarget)
	if !ok {
		return fmt.Errorf("target %q not found on line %d of %s", oldTarget, line, file)
	}

	updated, err := markdown.ApplyEdits(source, []markdown.Edit{
		{Start: start, End: end, Replacement: []byte(newTarget)},
	})
	if err != nil {
		return fmt.Errorf("failed to apply edit: %w", err)
	}

	mode := fs.FileMode(0o644)
	if info, err := os.Stat(file); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(file, updated, mode); err != nil {
		return fmt.Errorf("failed to write %s: %w", file, err)
	}
	return nil
}

// locateOnLine finds the byte range of the first occurrence of target within
// the given 1-based line.
func locateOnLine(source []byte, line int, target string) (start, end int, ok bool) {
	lineStart := 0
	for current := 1; current < line; current++ {
		nl := bytes.IndexByte(source[lineStart:], '\n')
		if nl == -1 {
			return 0, 0, false
		}
		lineStart += nl + 1
	}

	lineEnd := len(source)
	if nl := bytes.IndexByte(source[lineStart:], '\n'); nl != -1 {
		lineEnd = lineStart + nl
	}

	idx := bytes.Index(source[lineStart:lineEnd], []byte(target))
	if idx == -1 {
		return 0, 0, false
	}
	start = lineStart + idx
	return start, start + len(target), true
}
