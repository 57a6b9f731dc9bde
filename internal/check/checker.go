package check

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"

	"git.home.luguber.info/inful/markcheck/internal/config"
	"git.home.luguber.info/inful/markcheck/internal/gitignore"
	"git.home.luguber.info/inful/markcheck/internal/markdown"
)

// ProgressFunc is invoked once per completed file during directory checks,
// in completion order. It runs synchronously on whichever worker finished the
// file and therefore must not block indefinitely.
type ProgressFunc func(file string, results []Result)

// Checker validates the references of markdown files according to a fixed
// set of Options. The execution mode is explicit: Options.Parallel selects
// between sequential and concurrent processing, and both produce identical
// per-file verdicts.
type Checker struct {
	opts     config.Options
	external *externalValidator

	// refSem bounds in-flight external HTTP requests; fileSem bounds files
	// processed concurrently during directory checks.
	refSem  chan struct{}
	fileSem chan struct{}
}

// New creates a Checker. A zero worker count means available parallelism.
func New(opts config.Options) *Checker {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Checker{
		opts:     opts,
		external: newExternalValidator(opts.Timeout),
		refSem:   make(chan struct{}, workers),
		fileSem:  make(chan struct{}, min(workers, 4)),
	}
}

// CheckPath validates a single file or a whole directory tree and returns
// results keyed by file path. Paths that are neither files nor directories
// are a hard failure.
func (c *Checker) CheckPath(ctx context.Context, path string, progress ProgressFunc) (map[string][]Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("path is not a valid file or directory: %w", err)
	}

	if info.IsDir() {
		return c.CheckDirectory(ctx, path, progress)
	}

	results, err := c.CheckFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if progress != nil {
		progress(path, results)
	}
	return map[string][]Result{path: results}, nil
}

// CheckDirectory discovers markdown files under root and validates each one.
// Every discovered file appears in the returned map; files that fail to read
// are present with an empty result list.
func (c *Checker) CheckDirectory(ctx context.Context, root string, progress ProgressFunc) (map[string][]Result, error) {
	discovery := gitignore.Discovery{
		FollowGitignore: c.opts.FollowGitignore,
		IncludePattern:  c.opts.IncludePattern,
		ExcludePattern:  c.opts.ExcludePattern,
	}
	files, err := discovery.Discover(root)
	if err != nil {
		return nil, fmt.Errorf("discovery failed for %s: %w", root, err)
	}

	results := make(map[string][]Result, len(files))

	if !c.opts.Parallel {
		for _, file := range files {
			results[file] = c.checkFileLenient(ctx, file)
			if progress != nil {
				progress(file, results[file])
			}
		}
		return results, nil
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, file := range files {
		c.fileSem <- struct{}{}
		wg.Add(1)
		go func(file string) {
			defer wg.Done()
			defer func() { <-c.fileSem }()

			res := c.checkFileLenient(ctx, file)
			mu.Lock()
			results[file] = res
			mu.Unlock()
			if progress != nil {
				progress(file, res)
			}
		}(file)
	}
	wg.Wait()

	return results, nil
}

// checkFileLenient reports scan failures as an empty result list instead of
// dropping the file from directory results.
func (c *Checker) checkFileLenient(ctx context.Context, file string) []Result {
	results, err := c.CheckFile(ctx, file)
	if err != nil {
		slog.Warn("Failed to check file", "file", file, "error", err)
		return []Result{}
	}
	return results
}

// CheckFile scans one document and validates every reference. Results are in
// scan order regardless of execution mode.
func (c *Checker) CheckFile(ctx context.Context, file string) ([]Result, error) {
	source, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}

	refs := c.filterKinds(markdown.Scan(source, file))
	results := make([]Result, len(refs))

	var wg sync.WaitGroup
	for i, ref := range refs {
		class, localPath := classify(ref.Target, file)

		switch class {
		case classOpaque:
			results[i] = Result{Reference: ref, Valid: true}
		case classLocal:
			results[i] = c.validateLocalRef(ref, localPath)
		case classExternal:
			if !c.opts.CheckExternal {
				results[i] = Result{Reference: ref, Valid: true}
				continue
			}
			if !c.opts.Parallel {
				results[i] = c.validateExternalRef(ctx, ref)
				continue
			}
			c.refSem <- struct{}{}
			wg.Add(1)
			go func(i int, ref markdown.Reference) {
				defer wg.Done()
				defer func() { <-c.refSem }()
				results[i] = c.validateExternalRef(ctx, ref)
			}(i, ref)
		}
	}
	wg.Wait()

	// Rewrites run after all of this file's validations complete, so no two
	// goroutines ever touch the same document.
	if c.opts.FixRedirects {
		c.fixRedirects(results)
	}

	return results, nil
}

func (c *Checker) filterKinds(refs []markdown.Reference) []markdown.Reference {
	out := refs[:0]
	for _, ref := range refs {
		if ref.Kind == markdown.KindLink && !c.opts.CheckLinks {
			continue
		}
		if ref.Kind == markdown.KindImage && !c.opts.CheckImages {
			continue
		}
		out = append(out, ref)
	}
	return out
}

func (c *Checker) validateLocalRef(ref markdown.Reference, localPath string) Result {
	result := Result{Reference: ref, Local: true, LocalPath: localPath, Valid: true}
	if !c.opts.CheckLocal {
		return result
	}
	result.Valid, result.Err = validateLocal(localPath)
	return result
}

func (c *Checker) validateExternalRef(ctx context.Context, ref markdown.Reference) Result {
	outcome := c.external.probe(ctx, ref.Target)

	result := Result{Reference: ref}
	if outcome.err != nil {
		result.Err = outcome.err.Error()
		return result
	}

	result.StatusCode = outcome.status
	if outcome.permanent {
		// Permanently redirected references stay invalid until the source is
		// rewritten (see fixRedirects).
		result.RedirectTarget = outcome.finalURL
		return result
	}

	result.Valid = outcome.status < 400
	return result
}

// fixRedirects rewrites permanently redirected targets in the source
// document. A failed rewrite is logged and the result keeps its invalid
// redirect status.
func (c *Checker) fixRedirects(results []Result) {
	for i := range results {
		r := &results[i]
		if r.RedirectTarget == "" || r.Updated {
			continue
		}
		// Do not rewrite to a target that itself fails.
		if r.StatusCode >= 400 {
			continue
		}

		err := rewriteTarget(r.Reference.File, r.Reference.Line, r.Reference.Target, r.RedirectTarget)
		if err != nil {
			slog.Warn("Failed to rewrite redirected target",
				"file", r.Reference.File,
				"line", r.Reference.Line,
				"target", r.Reference.Target,
				"error", err)
			continue
		}

		r.Updated = true
		r.Valid = true
		slog.Debug("Rewrote permanently redirected target",
			"file", r.Reference.File,
			"line", r.Reference.Line,
			"old", r.Reference.Target,
			"new", r.RedirectTarget)
	}
}
