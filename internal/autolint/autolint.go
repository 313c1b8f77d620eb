// Package autolint discovers the files of a target directory, classifies
// them by language and runs the configured linters on them.
package autolint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fmontoto/autolint/internal/classify"
	"github.com/fmontoto/autolint/internal/config"
	"github.com/fmontoto/autolint/internal/intake"
	"github.com/fmontoto/autolint/internal/logging"
	"github.com/fmontoto/autolint/internal/model"
	"github.com/fmontoto/autolint/internal/progress"
	"github.com/fmontoto/autolint/internal/report"
	"github.com/fmontoto/autolint/internal/runner"
	"github.com/fmontoto/autolint/internal/telemetry"
)

// Mode selects how a run reports its results.
type Mode int

const (
	// ModePrintAll relays every linter's stdout and stderr unformatted.
	ModePrintAll Mode = iota
	// ModePretty prints the language/linter/file summary.
	ModePretty
	// ModeSilent prints nothing.
	ModeSilent
)

func (m Mode) String() string {
	switch m {
	case ModePrintAll:
		return "print-all"
	case ModePretty:
		return "pretty"
	case ModeSilent:
		return "silent"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Linter lints one target with one configuration. It holds no state
// between runs; Run may be called repeatedly.
type Linter struct {
	target     string
	configPath string
	ignorePath string
	cfg        *config.Config
	ignore     *intake.IgnoreRules

	registry   *runner.Registry
	runnerOpts runner.Options
	sink       progress.Sink
	tel        *telemetry.Telemetry
	logger     *slog.Logger
	stdout     io.Writer
	stderr     io.Writer
	color      bool
	reportPath string
}

// New validates the paths and loads the configuration and ignore rules.
// An empty configPath selects the bundled configuration; an empty
// ignorePath disables ignore rules.
func New(target, configPath, ignorePath string, opts ...Option) (*Linter, error) {
	target, err := ExpandHome(target)
	if err != nil {
		return nil, &IOError{Path: target, Reason: "cannot expand home directory", Err: err}
	}
	if err := requireDir(target); err != nil {
		return nil, err
	}

	if strings.TrimSpace(configPath) != "" {
		if configPath, err = ExpandHome(configPath); err != nil {
			return nil, &IOError{Path: configPath, Reason: "cannot expand home directory", Err: err}
		}
		if err := requireFile(configPath); err != nil {
			return nil, err
		}
	}

	var rules *intake.IgnoreRules
	if strings.TrimSpace(ignorePath) != "" {
		if ignorePath, err = ExpandHome(ignorePath); err != nil {
			return nil, &IOError{Path: ignorePath, Reason: "cannot expand home directory", Err: err}
		}
		if err := requireFile(ignorePath); err != nil {
			return nil, err
		}
		if rules, err = intake.LoadIgnoreFile(ignorePath); err != nil {
			return nil, &IOError{Path: ignorePath, Reason: "cannot read ignore file", Err: err}
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	l := &Linter{
		target:     target,
		configPath: configPath,
		ignorePath: ignorePath,
		cfg:        cfg,
		ignore:     rules,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.sink == nil {
		l.sink = progress.NoopSink{}
	}
	if l.logger == nil {
		l.logger = logging.Discard()
	}
	if l.registry == nil {
		ropts := l.runnerOpts
		if ropts.Observer == nil && l.tel != nil {
			ropts.Observer = l.tel
		}
		l.registry = runner.DefaultRegistry(ropts)
	}

	l.logger.Debug("linter ready",
		"target", l.target,
		"config", cfg.Source,
		"ignore", l.ignorePath,
		"ignore_rules", rules.Len(),
		"runners", l.registry.Names(),
	)
	return l, nil
}

func (l *Linter) Target() string {
	return l.target
}

// Config returns the loaded configuration. It must not be modified.
func (l *Linter) Config() *config.Config {
	return l.cfg
}

// Files lists the files a run would consider: every regular file under
// the target that no ignore rule excludes.
func (l *Linter) Files() ([]string, error) {
	files, err := intake.Discover(l.target)
	if err != nil {
		return nil, err
	}
	return l.ignore.Filter(l.target, files), nil
}

// Run lints the target and reports in the given mode. The returned code is
// 1 when any linter invocation exited nonzero, else 0. On a configuration
// error the tree holds the languages dispatched before the error.
func (l *Linter) Run(ctx context.Context, mode Mode) (code int, tree *model.Tree, err error) {
	started := time.Now().UTC()
	runID := uuid.NewString()
	tree = &model.Tree{}
	logger := l.logger.With("run_id", runID)

	endSpan := func(int, error) {}
	if l.tel != nil {
		ctx, endSpan = l.tel.StartRun(ctx, runID, l.target)
	}

	files, err := l.Files()
	if err != nil {
		endSpan(0, err)
		return 0, tree, err
	}

	l.sink.Emit(progress.Event{
		Type:  progress.EventRunStarted,
		At:    started,
		RunID: runID,
		Files: len(files),
	})
	defer func() {
		counts := tree.Counts()
		code = tree.SummaryCode()
		errMsg := ""
		if err != nil {
			errMsg = err.Error()
		}
		l.sink.Emit(progress.Event{
			Type:       progress.EventRunFinished,
			At:         time.Now().UTC(),
			RunID:      runID,
			Files:      counts.Checked,
			Failed:     counts.Failed,
			Error:      errMsg,
			DurationMS: time.Since(started).Milliseconds(),
		})
		endSpan(code, err)
		if l.reportPath != "" {
			doc := report.NewDocument(runID, l.target, l.cfg.Source, started, tree, err)
			if werr := report.Write(l.reportPath, doc); werr != nil {
				logger.Warn("report not written", "path", l.reportPath, "error", werr)
				err = errors.Join(err, werr)
			}
		}
	}()

	classes, err := classify.Classify(files, l.cfg)
	if err != nil {
		return 0, tree, err
	}
	logger.Debug("files classified", "files", len(files), "langs", strings.Join(classes.Langs(), ","))

	var relay func(string, model.Outcome)
	if mode == ModePrintAll {
		relay = report.PrintAll(l.stdout, l.stderr)
	}

	for _, group := range classes {
		langResults, err := l.lintLang(ctx, group, relay)
		if len(langResults.Linters) > 0 {
			tree.Langs = append(tree.Langs, langResults)
		}
		if err != nil {
			return 0, tree, err
		}
	}

	if mode == ModePretty {
		if _, err := report.NewPretty(l.stdout, l.color).Render(tree); err != nil {
			return 0, tree, err
		}
	}
	return tree.SummaryCode(), tree, nil
}

// lintLang runs every linter of one language. All of the language's
// linters are resolved before the first one is started.
func (l *Linter) lintLang(ctx context.Context, group classify.Group, relay func(string, model.Outcome)) (model.LangResults, error) {
	out := model.LangResults{Lang: group.Lang}
	linters, err := l.cfg.LintersFor(group.Lang)
	if err != nil {
		return out, err
	}

	for _, linter := range linters {
		if linter.Runner != "" && !l.registry.Has(linter.Runner) {
			l.logger.Warn("unknown runner, using the default",
				"linter", linter.Name,
				"runner", linter.Runner,
				"available", l.registry.Names(),
			)
		}
		impl := l.registry.Lookup(linter.RunnerName())
		started := time.Now()
		l.sink.Emit(progress.Event{
			Type:   progress.EventLinterStarted,
			Lang:   group.Lang,
			Linter: linter.Name,
			Files:  len(group.Files),
		})
		l.logger.Debug("running linter",
			"lang", group.Lang,
			"linter", linter.Name,
			"runner", linter.RunnerName(),
			"files", len(group.Files),
		)

		lctx := ctx
		endSpan := func(model.FileResults, error) {}
		if l.tel != nil {
			lctx, endSpan = l.tel.StartLinter(ctx, group.Lang, linter.Name, len(group.Files))
		}

		onResult := func(path string, o model.Outcome) {
			l.sink.Emit(progress.Event{
				Type:       progress.EventFileFinished,
				Lang:       group.Lang,
				Linter:     linter.Name,
				Path:       path,
				ExitCode:   o.ExitCode,
				DurationMS: o.Duration.Milliseconds(),
			})
			if relay != nil {
				relay(path, o)
			}
		}

		results, err := impl.Run(lctx, linter, group.Files, onResult)
		endSpan(results, err)

		counts := results.Counts()
		finished := progress.Event{
			Type:       progress.EventLinterFinished,
			Lang:       group.Lang,
			Linter:     linter.Name,
			Files:      counts.Checked,
			Failed:     counts.Failed,
			DurationMS: time.Since(started).Milliseconds(),
		}
		if err != nil {
			finished.Error = err.Error()
		}
		l.sink.Emit(finished)

		out.Linters = append(out.Linters, model.LinterResults{Linter: linter.Name, Files: results})
		if err != nil {
			return out, fmt.Errorf("run %s on %s files: %w", linter.Name, group.Lang, err)
		}
	}
	return out, nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path, err
	}
	return filepath.Join(home, path[1:]), nil
}

func requireDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &IOError{Path: path, Reason: "cannot access target", Err: err}
	}
	if !info.IsDir() {
		return &IOError{Path: path, Reason: "not a directory"}
	}
	return nil
}

func requireFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &IOError{Path: path, Reason: "cannot access file", Err: err}
	}
	if !info.Mode().IsRegular() {
		return &IOError{Path: path, Reason: "not a file"}
	}
	return nil
}
