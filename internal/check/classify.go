package check

import (
	"net/url"
	"path/filepath"
	"strings"
)

type targetClass int

const (
	// classLocal targets resolve to a filesystem path.
	classLocal targetClass = iota
	// classExternal targets are http/https URLs.
	classExternal
	// classOpaque targets carry some other scheme (mailto:, tel:, data:, ...).
	// They are reported valid and never probed.
	classOpaque
)

// classify decides how a raw target is validated. Classification cannot fail;
// for local targets it also returns the resolved filesystem path candidate.
func classify(target, docPath string) (targetClass, string) {
	lower := strings.ToLower(target)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return classExternal, ""
	}
	if hasOpaqueScheme(target) {
		return classOpaque, ""
	}
	return classLocal, resolveLocal(target, docPath)
}

// opaqueSchemes are authority-less schemes whose targets are reported valid
// without probing.
var opaqueSchemes = map[string]bool{
	"mailto": true,
	"tel":    true,
	"sms":    true,
	"data":   true,
	"ftp":    true,
	"ftps":   true,
	"file":   true,
	"news":   true,
	"irc":    true,
	"ssh":    true,
}

// hasOpaqueScheme reports whether the target carries a URL scheme other than
// http/https. A colon alone is not enough: paths like "file.md:10" or Windows
// drive prefixes parse with a scheme but are filesystem targets, so opacity
// requires either "://" or a known scheme.
func hasOpaqueScheme(target string) bool {
	if i := strings.Index(target, "://"); i > 0 {
		return true
	}
	scheme, _, found := strings.Cut(target, ":")
	if !found {
		return false
	}
	return opaqueSchemes[strings.ToLower(scheme)]
}

// resolveLocal strips a trailing fragment and resolves the remaining path
// against the owning document's directory. A fragment-only target resolves to
// the document itself.
func resolveLocal(target, docPath string) string {
	pathPart, _, _ := strings.Cut(target, "#")
	if pathPart == "" {
		return filepath.Clean(docPath)
	}

	if unescaped, err := url.PathUnescape(pathPart); err == nil {
		pathPart = unescaped
	}
	pathPart = filepath.FromSlash(pathPart)

	if filepath.IsAbs(pathPart) {
		return filepath.Clean(pathPart)
	}
	return filepath.Join(filepath.Dir(docPath), pathPart)
}
