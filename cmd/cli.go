// Package cmd is the autolint command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/fmontoto/autolint/internal/autolint"
	"github.com/fmontoto/autolint/internal/config"
	"github.com/fmontoto/autolint/internal/intake"
	"github.com/fmontoto/autolint/internal/logging"
	"github.com/fmontoto/autolint/internal/model"
	"github.com/fmontoto/autolint/internal/progress"
	"github.com/fmontoto/autolint/internal/report"
	"github.com/fmontoto/autolint/internal/runner"
	"github.com/fmontoto/autolint/internal/telemetry"
	"github.com/fmontoto/autolint/internal/tui"
	"github.com/fmontoto/autolint/internal/version"
)

// Process exit codes.
const (
	ExitOK     = 0
	ExitFailed = 1
	ExitError  = 2
)

// ExitCodeError carries the summary code of a completed run that found
// problems. It has nothing to print.
type ExitCodeError struct {
	Code int
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// ExitCode maps an Execute error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitCodeError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitError
}

type options struct {
	configuration  string
	ignore         string
	noIgnore       bool
	noPrint        bool
	prettyPrint    bool
	getDefaultConf bool
	jobs           int
	timeout        time.Duration
	verbose        bool
	logFormat      string
	reportPath     string
	metricsFile    string
	traceFile      string
	tui            bool
}

// Execute runs the command line with args and returns nil on a clean run,
// an *ExitCodeError when linters reported problems, or the error that
// stopped the run. Interrupts cancel the run.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "autolint [target]",
		Short: "Run the configured linters on every file of a directory",
		Long: `autolint walks target (default: the current directory), classifies every
file by language using the globs of the configuration, drops the files
matched by the ignore file, and runs each language's linters on its files.

The configuration defaults to target/.autolint.yml, or the bundled
configuration (see --get-default-conf). The ignore file defaults to
target/.lintignore and uses gitignore syntax.

The exit status is 0 when every linter passed, 1 when any linter reported
an error, and 2 when the run could not be completed.`,
		Args:          cobra.MaximumNArgs(1),
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, args, stdout, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate(version.String() + "\n")

	flags := root.Flags()
	flags.StringVarP(&opts.configuration, "configuration", "c", "", "configuration file (default target/"+config.FileName+", else the bundled one)")
	flags.StringVarP(&opts.ignore, "ignore", "i", "", "ignore file in gitignore syntax (default target/"+intake.IgnoreFileName+" if present)")
	flags.BoolVar(&opts.noIgnore, "no-ignore", false, "do not use any ignore file, even one given with --ignore")
	flags.BoolVar(&opts.noPrint, "no-print", false, "print nothing, only set the exit status")
	flags.BoolVar(&opts.prettyPrint, "pretty-print", false, "print a language/linter/file summary instead of the raw linter output")
	flags.BoolVar(&opts.getDefaultConf, "get-default-conf", false, "print the bundled configuration and exit")
	flags.IntVarP(&opts.jobs, "jobs", "j", 1, "concurrent invocations per linter")
	flags.DurationVar(&opts.timeout, "timeout", 0, "per invocation time limit, e.g. 30s (0 disables)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log debug diagnostics to stderr")
	flags.StringVar(&opts.logFormat, "log-format", "text", "diagnostic log format: text|json")
	flags.StringVar(&opts.reportPath, "report", "", "write the results to this file (.md for Markdown, JSON otherwise)")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics in text format to this file")
	flags.StringVar(&opts.traceFile, "trace-file", "", "write OpenTelemetry spans as JSON to this file")
	flags.BoolVar(&opts.tui, "tui", false, "show live progress (requires --pretty-print or --no-print)")
	root.MarkFlagsMutuallyExclusive("no-print", "pretty-print")

	return root
}

func (o *options) validate() error {
	if o.jobs < 1 {
		return errors.New("--jobs must be at least 1")
	}
	if o.timeout < 0 {
		return errors.New("--timeout must not be negative")
	}
	if o.tui && !o.noPrint && !o.prettyPrint {
		return errors.New("--tui requires --pretty-print or --no-print")
	}
	switch strings.ToLower(strings.TrimSpace(o.logFormat)) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown --log-format %q (want text or json)", o.logFormat)
	}
	return nil
}

func (o *options) mode() autolint.Mode {
	switch {
	case o.prettyPrint:
		return autolint.ModePretty
	case o.noPrint:
		return autolint.ModeSilent
	default:
		return autolint.ModePrintAll
	}
}

func run(ctx context.Context, opts *options, args []string, stdout, stderr io.Writer) (err error) {
	if opts.getDefaultConf {
		_, err := stdout.Write(config.Bundled())
		return err
	}
	if err := opts.validate(); err != nil {
		return err
	}

	level := "info"
	if opts.verbose {
		level = "debug"
	}
	logger := logging.New(stderr, logging.Config{Level: level, Format: opts.logFormat})

	target, err := resolveTarget(args)
	if err != nil {
		return err
	}
	configPath := config.ResolvePath(target, opts.configuration)
	ignorePath := intake.ResolveIgnorePath(target, opts.ignore, opts.noIgnore)

	var tel *telemetry.Telemetry
	if opts.metricsFile != "" || opts.traceFile != "" {
		tel, err = telemetry.New(telemetry.Config{TracePath: opts.traceFile, MetricsPath: opts.metricsFile})
		if err != nil {
			return err
		}
		defer func() {
			if serr := tel.Shutdown(ctx); serr != nil {
				logger.Warn("telemetry not written", "error", serr)
				err = errors.Join(err, serr)
			}
		}()
	}

	color := colorEnabled(stdout)
	useTUI := opts.tui
	var events chan progress.Event
	sink := progress.Sink(progress.NewLogSink(logger))
	if useTUI {
		events = make(chan progress.Event, 256)
		sink = progress.Multi(sink, progress.NewChannelSink(events))
	}

	runnerOpts := runner.Options{Jobs: opts.jobs, Timeout: opts.timeout}
	if tel != nil {
		runnerOpts.Observer = tel
	}
	linter, err := autolint.New(target, configPath, ignorePath,
		autolint.WithOutput(stdout, stderr),
		autolint.WithColor(color),
		autolint.WithLogger(logger),
		autolint.WithProgress(sink),
		autolint.WithRunnerOptions(runnerOpts),
		autolint.WithTelemetry(tel),
		autolint.WithReport(opts.reportPath),
	)
	if err != nil {
		return err
	}
	logger.Debug("starting run",
		"target", linter.Target(),
		"config", linter.Config().Source,
		"ignore", ignorePath,
		"mode", opts.mode().String(),
		"jobs", opts.jobs,
	)

	var code int
	if useTUI {
		code, err = runWithTUI(ctx, linter, opts.mode(), events, stdout, color)
	} else {
		code, _, err = linter.Run(ctx, opts.mode())
	}
	if err != nil {
		return err
	}
	if code != ExitOK {
		return &ExitCodeError{Code: code}
	}
	return nil
}

// runView shows the live progress view until it is closed.
var runView = tui.Run

// runWithTUI lints in the background while the live view runs, then
// prints the pretty report once the view has closed.
func runWithTUI(ctx context.Context, linter *autolint.Linter, mode autolint.Mode, events chan progress.Event, stdout io.Writer, color bool) (int, error) {
	type result struct {
		code int
		tree *model.Tree
		err  error
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		defer close(events)
		code, tree, err := linter.Run(ctx, autolint.ModeSilent)
		done <- result{code: code, tree: tree, err: err}
	}()

	viewErr := runView(tui.Options{Events: events})
	var res result
	select {
	case res = <-done:
	default:
		// The view was closed before the run finished.
		cancel()
		res = <-done
	}
	if viewErr != nil {
		return 0, viewErr
	}
	if res.err != nil {
		return 0, res.err
	}
	if mode == autolint.ModePretty {
		if _, err := report.NewPretty(stdout, color).Render(res.tree); err != nil {
			return 0, err
		}
	}
	return res.code, nil
}

func resolveTarget(args []string) (string, error) {
	if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
		return autolint.ExpandHome(args[0])
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolve current directory: %w", err)
	}
	return wd, nil
}

// colorEnabled reports whether w is a terminal that accepts color.
func colorEnabled(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
