package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/markcheck/internal/check"
	"git.home.luguber.info/inful/markcheck/internal/config"
	"git.home.luguber.info/inful/markcheck/internal/daemon"
	"git.home.luguber.info/inful/markcheck/internal/report"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path (found by walking up from the working directory when unset)"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Check struct {
		Paths        []string      `arg:"" optional:"" help:"Files or directories to check" default:"."`
		Timeout      time.Duration `help:"Timeout for each external request" default:"30s"`
		Output       string        `short:"o" help:"Write a JSON report to this path"`
		External     bool          `help:"Probe external URLs" default:"true" negatable:""`
		Local        bool          `help:"Verify local targets exist" default:"true" negatable:""`
		FixRedirects bool          `help:"Rewrite permanently redirected URLs in place"`
		Gitignore    bool          `help:"Respect .gitignore rules during discovery" default:"true" negatable:""`
		Parallel     bool          `help:"Check files and external URLs concurrently" default:"true" negatable:""`
		Links        bool          `help:"Validate link references" default:"true" negatable:""`
		Images       bool          `help:"Validate image references" default:"true" negatable:""`
		Include      string        `short:"i" help:"Glob that files must match" default:"*.md"`
		Exclude      string        `short:"e" help:"Glob excluding files and directories"`
		Workers      int           `short:"w" help:"Worker pool size (0 = available parallelism)"`
		Fail         bool          `help:"Exit non-zero when invalid references are found" default:"true" negatable:""`
	} `cmd:"" default:"withargs" help:"Validate markdown link and image references"`

	Daemon struct {
		Root        string        `arg:"" optional:"" default:"." help:"Directory tree to watch"`
		Interval    time.Duration `help:"Interval for scheduled full re-checks (0 disables)"`
		Debounce    time.Duration `help:"Quiet window before re-checking changed files" default:"2s"`
		MetricsAddr string        `help:"Listen address for Prometheus metrics (empty disables)"`
		NatsURL     string        `name:"nats-url" help:"NATS server URL for broken-reference events"`
		NatsSubject string        `name:"nats-subject" help:"NATS subject for broken-reference events" default:"markcheck.broken"`
	} `cmd:"" help:"Watch a tree and re-check markdown files as they change"`
}

func main() {
	_ = godotenv.Load()

	kctx := kong.Parse(&CLI,
		kong.Name("markcheck"),
		kong.Description("Validate links and images in markdown files."))

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	switch kctx.Command() {
	case "check", "check <paths>":
		os.Exit(runCheck(kctx))
	case "daemon", "daemon <root>":
		if err := runDaemon(kctx); err != nil {
			slog.Error("Daemon failed", "error", err)
			os.Exit(1)
		}
	}
}

// loadFileConfig finds and parses the optional .markcheck.yaml. A missing
// file is not an error; a broken one is fatal.
func loadFileConfig() *config.File {
	path := CLI.Config
	if path == "" {
		found, ok := config.Find(".")
		if !ok {
			return nil
		}
		path = found
	}

	fileCfg, err := config.Load(path)
	if err != nil {
		slog.Error("Failed to load configuration", "path", path, "error", err)
		os.Exit(1)
	}
	slog.Debug("Configuration loaded", "path", path)
	return fileCfg
}

// buildOptions layers CLI flags over file configuration over defaults. Only
// flags the user actually passed override the file.
func buildOptions(kctx *kong.Context, fileCfg *config.File) config.Options {
	opts := config.Default()
	fileCfg.Apply(&opts)

	for _, flag := range kctx.Flags() {
		if !flag.Set {
			continue
		}
		switch flag.Name {
		case "timeout":
			opts.Timeout = CLI.Check.Timeout
		case "external":
			opts.CheckExternal = CLI.Check.External
		case "local":
			opts.CheckLocal = CLI.Check.Local
		case "fix-redirects":
			opts.FixRedirects = CLI.Check.FixRedirects
		case "gitignore":
			opts.FollowGitignore = CLI.Check.Gitignore
		case "parallel":
			opts.Parallel = CLI.Check.Parallel
		case "links":
			opts.CheckLinks = CLI.Check.Links
		case "images":
			opts.CheckImages = CLI.Check.Images
		case "include":
			opts.IncludePattern = CLI.Check.Include
		case "exclude":
			opts.ExcludePattern = CLI.Check.Exclude
		case "workers":
			opts.Workers = CLI.Check.Workers
		}
	}
	return opts
}

// flagSet reports whether the user passed the named flag explicitly.
func flagSet(kctx *kong.Context, name string) bool {
	for _, flag := range kctx.Flags() {
		if flag.Name == name && flag.Set {
			return true
		}
	}
	return false
}

func runCheck(kctx *kong.Context) int {
	fileCfg := loadFileConfig()
	opts := buildOptions(kctx, fileCfg)
	if err := opts.Validate(); err != nil {
		slog.Error("Invalid options", "error", err)
		return 1
	}

	paths := CLI.Check.Paths
	if fileCfg != nil && len(fileCfg.Paths) > 0 && len(paths) == 1 && paths[0] == "." {
		paths = fileCfg.Paths
	}

	output := CLI.Check.Output
	if output == "" && fileCfg != nil {
		output = fileCfg.Output
	}

	failMode := CLI.Check.Fail
	if !flagSet(kctx, "fail") && fileCfg != nil && fileCfg.Fail != nil {
		failMode = *fileCfg.Fail
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	checker := check.New(opts)
	all := make(map[string][]check.Result)
	started := time.Now()

	for _, p := range paths {
		results, err := checker.CheckPath(ctx, p, nil)
		if err != nil {
			slog.Error("Check failed", "path", p, "error", err)
			return 1
		}
		for file, res := range results {
			all[file] = res
		}
	}

	invalid := printResults(all)
	slog.Info("Check complete",
		"files", len(all),
		"invalid", invalid,
		"duration", time.Since(started).Round(time.Millisecond))

	if output != "" {
		target := paths[0]
		if len(paths) > 1 {
			target = fmt.Sprintf("%d paths", len(paths))
		}
		if err := report.New(target, all).Write(output); err != nil {
			slog.Error("Failed to write report", "path", output, "error", err)
			return 1
		}
		slog.Info("Report written", "path", output)
	}

	if failMode && invalid > 0 {
		return 1
	}
	return 0
}

// printResults writes a human-readable summary to stdout and returns the
// number of invalid references.
func printResults(all map[string][]check.Result) int {
	files := make([]string, 0, len(all))
	for f := range all {
		files = append(files, f)
	}
	sort.Strings(files)

	invalid := 0
	for _, file := range files {
		results := all[file]
		if len(results) == 0 {
			continue
		}
		fmt.Println(file)
		for _, r := range results {
			fmt.Printf("  Line %d: %s -> %s %s\n", r.Reference.Line, r.Reference.Text, r.Reference.Target, verdict(r))
			if !r.Valid {
				invalid++
			}
		}
	}
	return invalid
}

func verdict(r check.Result) string {
	switch {
	case r.Updated:
		return fmt.Sprintf("[UPDATED -> %s]", r.RedirectTarget)
	case r.Valid && r.StatusCode > 0:
		return fmt.Sprintf("[VALID %d]", r.StatusCode)
	case r.Valid:
		return "[VALID]"
	case r.RedirectTarget != "":
		return fmt.Sprintf("[REDIRECT -> %s]", r.RedirectTarget)
	case r.StatusCode > 0:
		return fmt.Sprintf("[BROKEN %d]", r.StatusCode)
	default:
		return fmt.Sprintf("[BROKEN: %s]", r.Err)
	}
}

func runDaemon(kctx *kong.Context) error {
	fileCfg := loadFileConfig()
	opts := buildOptions(kctx, fileCfg)
	if err := opts.Validate(); err != nil {
		return err
	}

	d, err := daemon.New(daemon.Config{
		Root:        CLI.Daemon.Root,
		Options:     opts,
		Interval:    CLI.Daemon.Interval,
		Debounce:    CLI.Daemon.Debounce,
		MetricsAddr: CLI.Daemon.MetricsAddr,
		NATSURL:     CLI.Daemon.NatsURL,
		NATSSubject: CLI.Daemon.NatsSubject,
	})
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return d.Start(ctx)
}
