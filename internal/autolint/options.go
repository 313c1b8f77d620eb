package autolint

import (
	"io"
	"log/slog"

	"github.com/fmontoto/autolint/internal/progress"
	"github.com/fmontoto/autolint/internal/runner"
	"github.com/fmontoto/autolint/internal/telemetry"
)

// Option customizes a Linter built by New.
type Option func(*Linter)

// WithRegistry replaces the default runner table. Runner options passed
// with WithRunnerOptions are ignored when a registry is given.
func WithRegistry(reg *runner.Registry) Option {
	return func(l *Linter) { l.registry = reg }
}

// WithRunnerOptions configures the default registry's runners.
func WithRunnerOptions(opts runner.Options) Option {
	return func(l *Linter) { l.runnerOpts = opts }
}

// WithOutput redirects what the report modes print. Defaults to the
// process's stdout and stderr.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(l *Linter) {
		l.stdout = stdout
		l.stderr = stderr
	}
}

// WithColor enables lipgloss styling of the pretty report.
func WithColor(enabled bool) Option {
	return func(l *Linter) { l.color = enabled }
}

func WithProgress(sink progress.Sink) Option {
	return func(l *Linter) { l.sink = sink }
}

// WithTelemetry records spans and metrics for every run. Its Shutdown is
// left to the caller.
func WithTelemetry(tel *telemetry.Telemetry) Option {
	return func(l *Linter) { l.tel = tel }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Linter) { l.logger = logger }
}

// WithReport writes a report document after every run, including runs
// aborted by a configuration error.
func WithReport(path string) Option {
	return func(l *Linter) { l.reportPath = path }
}
