// Package telemetry records spans and metrics for a lint run: one span per
// run, per linter and per linter invocation, plus Prometheus counters that
// can be dumped in text exposition format when the run ends.
package telemetry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/fmontoto/autolint/internal/model"
	"github.com/fmontoto/autolint/internal/runner"
	"github.com/fmontoto/autolint/internal/safefile"
)

const instrumentationName = "github.com/fmontoto/autolint"

const metricsNamespace = "autolint"

// Invocation results used as the `result` metric label.
const (
	ResultPass       = "pass"
	ResultFail       = "fail"
	ResultNotStarted = "not_started"
	ResultTimeout    = "timeout"
)

// Config selects where artifacts go. Empty paths disable the artifact;
// metrics are still collected in memory.
type Config struct {
	TracePath   string
	MetricsPath string
}

// Telemetry is safe for concurrent use by runner goroutines.
type Telemetry struct {
	cfg Config

	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	spans    *bytes.Buffer

	registry    *prometheus.Registry
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	checked     *prometheus.CounterVec
	failed      *prometheus.CounterVec
	runs        *prometheus.CounterVec
}

var _ runner.Observer = (*Telemetry)(nil)

func New(cfg Config) (*Telemetry, error) {
	t := &Telemetry{
		cfg:      cfg,
		tracer:   otel.Tracer(instrumentationName),
		registry: prometheus.NewRegistry(),
	}

	if strings.TrimSpace(cfg.TracePath) != "" {
		t.spans = &bytes.Buffer{}
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(t.spans))
		if err != nil {
			return nil, fmt.Errorf("create span exporter: %w", err)
		}
		t.provider = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
		)
		t.tracer = t.provider.Tracer(instrumentationName)
	}

	t.invocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "invocations_total",
			Help:      "Linter processes run, by linter and result.",
		},
		[]string{"linter", "result"},
	)
	t.duration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "invocation_duration_seconds",
			Help:      "Wall time of one linter process.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"linter"},
	)
	t.checked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "files_checked_total",
			Help:      "Files checked, by language and linter.",
		},
		[]string{"lang", "linter"},
	)
	t.failed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "files_failed_total",
			Help:      "Files a linter reported errors for, by language and linter.",
		},
		[]string{"lang", "linter"},
	)
	t.runs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_total",
			Help:      "Completed runs, by summary code.",
		},
		[]string{"code"},
	)
	t.registry.MustRegister(t.invocations, t.duration, t.checked, t.failed, t.runs)
	return t, nil
}

// StartRun opens the root span. The returned function closes it with the
// summary code, or the error that aborted the run.
func (t *Telemetry) StartRun(ctx context.Context, runID, target string) (context.Context, func(code int, err error)) {
	ctx, span := t.tracer.Start(ctx, "autolint.Run",
		trace.WithAttributes(
			attribute.String("autolint.run_id", runID),
			attribute.String("autolint.target", target),
		),
	)
	return ctx, func(code int, err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			t.runs.WithLabelValues(strconv.Itoa(code)).Inc()
		}
		span.SetAttributes(attribute.Int("autolint.summary_code", code))
		span.End()
	}
}

// StartLinter opens the span for one linter over one language's files.
func (t *Telemetry) StartLinter(ctx context.Context, lang, linter string, files int) (context.Context, func(model.FileResults, error)) {
	ctx, span := t.tracer.Start(ctx, "autolint.Linter",
		trace.WithAttributes(
			attribute.String("autolint.lang", lang),
			attribute.String("autolint.linter", linter),
			attribute.Int("autolint.files", files),
		),
	)
	return ctx, func(results model.FileResults, err error) {
		counts := results.Counts()
		t.checked.WithLabelValues(lang, linter).Add(float64(counts.Checked))
		t.failed.WithLabelValues(lang, linter).Add(float64(counts.Failed))
		span.SetAttributes(
			attribute.Int("autolint.checked", counts.Checked),
			attribute.Int("autolint.failed", counts.Failed),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// Invocation implements runner.Observer.
func (t *Telemetry) Invocation(ctx context.Context, linter string, files []string) (context.Context, func(model.Outcome)) {
	attrs := []attribute.KeyValue{
		attribute.String("autolint.linter", linter),
		attribute.Int("autolint.files", len(files)),
	}
	if len(files) == 1 {
		attrs = append(attrs, attribute.String("autolint.path", files[0]))
	}
	ctx, span := t.tracer.Start(ctx, "autolint.Invocation", trace.WithAttributes(attrs...))
	return ctx, func(out model.Outcome) {
		result := Result(out)
		t.invocations.WithLabelValues(linter, result).Inc()
		t.duration.WithLabelValues(linter).Observe(out.Duration.Seconds())
		span.SetAttributes(
			attribute.Int("autolint.exit_code", out.ExitCode),
			attribute.String("autolint.result", result),
			attribute.Int64("autolint.duration_ms", out.Duration.Milliseconds()),
		)
		if result == ResultNotStarted || result == ResultTimeout {
			span.SetStatus(codes.Error, result)
		}
		span.End()
	}
}

// Result classifies an outcome for the `result` label.
func Result(out model.Outcome) string {
	switch {
	case out.ExitCode == 0:
		return ResultPass
	case out.ExitCode == runner.ExitNotStarted:
		return ResultNotStarted
	case out.ExitCode == runner.ExitTimedOut:
		return ResultTimeout
	default:
		return ResultFail
	}
}

// Shutdown flushes spans and writes the configured artifacts.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error

	if t.provider != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := t.provider.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("flush spans: %w", err))
		}
		if err := safefile.WriteFileAtomic(t.cfg.TracePath, t.spans.Bytes(), 0o644); err != nil {
			errs = append(errs, fmt.Errorf("write trace file: %w", err))
		}
	}

	if strings.TrimSpace(t.cfg.MetricsPath) != "" {
		if err := prometheus.WriteToTextfile(t.cfg.MetricsPath, t.registry); err != nil {
			errs = append(errs, fmt.Errorf("write metrics file: %w", err))
		}
	}
	return errors.Join(errs...)
}
