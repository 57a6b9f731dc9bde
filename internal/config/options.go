// Package config defines the immutable per-invocation settings consumed by
// the checking engine and the optional .markcheck.yaml file layer.
package config

import (
	"errors"
	"time"
)

// Options are the per-invocation settings for a check run. They are built
// once by the caller (CLI flags layered over file configuration over
// defaults) and never mutated by the engine.
type Options struct {
	// Timeout bounds each individual external HTTP request.
	Timeout time.Duration

	CheckExternal   bool // probe external URLs
	CheckLocal      bool // verify local targets exist
	FixRedirects    bool // rewrite permanently redirected URLs in place
	FollowGitignore bool // respect .gitignore rules during discovery

	IncludePattern string // glob files must match to be scanned
	ExcludePattern string // glob excluding files and directories

	Parallel bool // concurrent validation of files and external URLs
	Workers  int  // bounded pool size; 0 means available parallelism

	CheckLinks  bool // validate link references
	CheckImages bool // validate image references
}

// Validate rejects option combinations that would make a run a no-op.
func (o Options) Validate() error {
	if !o.CheckLinks && !o.CheckImages {
		return errors.New("both link and image checking are disabled; nothing to do")
	}
	return nil
}

// Default returns the built-in option values.
func Default() Options {
	return Options{
		Timeout:         30 * time.Second,
		CheckExternal:   true,
		CheckLocal:      true,
		FixRedirects:    false,
		FollowGitignore: true,
		IncludePattern:  "*.md",
		Parallel:        true,
		CheckLinks:      true,
		CheckImages:     true,
	}
}
