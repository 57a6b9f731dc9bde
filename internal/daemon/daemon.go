// Package daemon runs markcheck as a long-lived watcher: it re-validates
// markdown files as they change, optionally re-checks the whole tree on an
// interval, and can expose Prometheus metrics and publish broken-reference
// events to NATS.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/markcheck/internal/check"
	"git.home.luguber.info/inful/markcheck/internal/config"
	"git.home.luguber.info/inful/markcheck/internal/metrics"
	"git.home.luguber.info/inful/markcheck/internal/notify"
)

// Config controls daemon behavior. Zero values disable the optional parts:
// no Interval means no scheduled full re-checks, no MetricsAddr means no
// metrics listener, no NATSURL means no event publishing.
type Config struct {
	Root        string
	Options     config.Options
	Interval    time.Duration
	Debounce    time.Duration
	MetricsAddr string
	NATSURL     string
	NATSSubject string

	// OnResults is invoked after every completed check (full or incremental).
	OnResults func(results map[string][]check.Result)
}

// Daemon watches a markdown tree and re-checks files as they change.
type Daemon struct {
	cfg     Config
	checker *check.Checker
	watcher *fsnotify.Watcher

	scheduler gocron.Scheduler
	registry  *prometheus.Registry
	collector *metrics.Metrics
	publisher *notify.Publisher

	changeCh chan string

	mu      sync.Mutex
	pending map[string]struct{}
}

// New validates cfg and prepares the daemon without starting anything.
func New(cfg Config) (*Daemon, error) {
	info, err := os.Stat(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat watch root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch root %s is not a directory", cfg.Root)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 2 * time.Second
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	d := &Daemon{
		cfg:      cfg,
		checker:  check.New(cfg.Options),
		watcher:  watcher,
		changeCh: make(chan string, 64),
		pending:  make(map[string]struct{}),
	}

	if cfg.Interval > 0 {
		s, err := gocron.NewScheduler()
		if err != nil {
			watcher.Close()
			return nil, fmt.Errorf("failed to create scheduler: %w", err)
		}
		d.scheduler = s
	}

	if cfg.MetricsAddr != "" {
		d.registry = prometheus.NewRegistry()
		d.collector = metrics.New(d.registry)
	}

	if cfg.NATSURL != "" {
		pub, err := notify.NewPublisher(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			watcher.Close()
			return nil, err
		}
		d.publisher = pub
	}

	return d, nil
}

// Start runs an initial full check and then blocks, re-checking changed
// files until ctx is cancelled.
func (d *Daemon) Start(ctx context.Context) error {
	defer d.watcher.Close()
	if d.publisher != nil {
		defer d.publisher.Close()
	}

	if err := d.watchTree(d.cfg.Root); err != nil {
		return err
	}

	var metricsSrv *http.Server
	if d.cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(d.registry))
		metricsSrv = &http.Server{Addr: d.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			slog.Info("Metrics listener started", "addr", d.cfg.MetricsAddr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Metrics listener failed", "error", err)
			}
		}()
	}

	if d.scheduler != nil {
		_, err := d.scheduler.NewJob(
			gocron.DurationJob(d.cfg.Interval),
			gocron.NewTask(func() { d.runFull(ctx) }),
			gocron.WithName("full-recheck"),
		)
		if err != nil {
			return fmt.Errorf("failed to schedule full re-check: %w", err)
		}
		d.scheduler.Start()
		defer func() {
			if err := d.scheduler.Shutdown(); err != nil {
				slog.Error("Error stopping scheduler", "error", err)
			}
		}()
	}

	go d.watchLoop(ctx)
	go d.recheckLoop(ctx)

	slog.Info("Daemon started", "root", d.cfg.Root, "debounce", d.cfg.Debounce)
	d.runFull(ctx)

	<-ctx.Done()
	slog.Info("Daemon stopping")

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Error stopping metrics listener", "error", err)
		}
	}
	return nil
}

// watchTree registers the root and every subdirectory with the watcher.
// Version-control directories are skipped.
func (d *Daemon) watchTree(root string) error {
	return filepath.WalkDir(root, func(p string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if entry.Name() == ".git" {
			return filepath.SkipDir
		}
		if err := d.watcher.Add(p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		return nil
	})
}

func (d *Daemon) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			d.handleEvent(event)
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Watcher error", "error", err)
		}
	}
}

func (d *Daemon) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		// New directories need their own watch.
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := d.watchTree(event.Name); err != nil {
				slog.Error("Failed to watch new directory", "path", event.Name, "error", err)
			}
			return
		}
	}

	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}
	if !d.includes(event.Name) {
		return
	}

	slog.Debug("Markdown change detected", "file", event.Name, "op", event.Op.String())
	select {
	case d.changeCh <- event.Name:
	default:
		// Channel full; the pending set already coalesces bursts.
	}
}

// includes reports whether a changed path matches the configured include
// pattern and survives the exclude pattern.
func (d *Daemon) includes(p string) bool {
	base := filepath.Base(p)
	if strings.HasPrefix(base, ".") {
		return false
	}
	matched, err := path.Match(d.cfg.Options.IncludePattern, base)
	if err != nil || !matched {
		return false
	}
	if d.cfg.Options.ExcludePattern != "" {
		if skip, err := path.Match(d.cfg.Options.ExcludePattern, base); err == nil && skip {
			return false
		}
	}
	return true
}

// recheckLoop debounces change notifications and re-checks the affected
// files once the tree has been quiet for the configured window.
func (d *Daemon) recheckLoop(ctx context.Context) {
	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case file := <-d.changeCh:
			d.mu.Lock()
			d.pending[file] = struct{}{}
			d.mu.Unlock()

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(d.cfg.Debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			d.runPending(ctx)
		}
	}
}

// runPending re-checks every file accumulated since the last run.
func (d *Daemon) runPending(ctx context.Context) {
	d.mu.Lock()
	files := make([]string, 0, len(d.pending))
	for f := range d.pending {
		files = append(files, f)
	}
	d.pending = make(map[string]struct{})
	d.mu.Unlock()

	if len(files) == 0 {
		return
	}

	results := make(map[string][]check.Result, len(files))
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			// Deleted between the event and the debounce window.
			continue
		}
		res, err := d.checker.CheckFile(ctx, file)
		if err != nil {
			slog.Warn("Failed to re-check file", "file", file, "error", err)
			continue
		}
		results[file] = res
	}

	slog.Info("Incremental check complete", "files", len(results))
	d.observe(results)
}

// runFull checks the entire tree.
func (d *Daemon) runFull(ctx context.Context) {
	started := time.Now()
	results, err := d.checker.CheckPath(ctx, d.cfg.Root, nil)
	if err != nil {
		slog.Error("Full check failed", "root", d.cfg.Root, "error", err)
		return
	}
	slog.Info("Full check complete", "files", len(results), "duration", time.Since(started))
	d.observe(results)
}

func (d *Daemon) observe(results map[string][]check.Result) {
	if d.collector != nil {
		d.collector.Observe(results, float64(time.Now().Unix()))
	}
	if d.publisher != nil {
		d.publisher.PublishBroken(uuid.NewString(), results)
	}
	if d.cfg.OnResults != nil {
		d.cfg.OnResults(results)
	}
}
