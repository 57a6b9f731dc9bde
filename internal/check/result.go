// Package check implements the reference validation engine: classification of
// scanned references, local and external validation, in-place rewriting of
// permanently redirected URLs, and sequential/concurrent orchestration over
// files and directories.
package check

import "git.home.luguber.info/inful/markcheck/internal/markdown"

// Result is the verdict for one reference.
type Result struct {
	Reference markdown.Reference `json:"reference"`

	Valid bool `json:"valid"`
	Local bool `json:"local"` // fixed at classification time

	// StatusCode is set for external targets whenever an HTTP response was
	// received, including failing ones. Zero means no response.
	StatusCode int `json:"status_code,omitempty"`

	// Err describes a failure (missing file, network error, timeout). A
	// non-empty Err always implies Valid is false.
	Err string `json:"error,omitempty"`

	// RedirectTarget is the final URL of a permanent redirect chain.
	RedirectTarget string `json:"redirect_target,omitempty"`

	// Updated is true only when the source document was rewritten to the
	// redirect target.
	Updated bool `json:"updated,omitempty"`

	// LocalPath is the resolved filesystem path for local targets.
	LocalPath string `json:"local_path,omitempty"`
}
