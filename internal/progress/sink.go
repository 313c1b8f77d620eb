package progress

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

type Sink interface {
	Emit(Event)
}

type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) {
	f(e)
}

type NoopSink struct{}

func (NoopSink) Emit(Event) {}

// Multi fans every event out to each non-nil sink, in order.
func Multi(sinks ...Sink) Sink {
	kept := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	switch len(kept) {
	case 0:
		return NoopSink{}
	case 1:
		return kept[0]
	}
	return SinkFunc(func(e Event) {
		for _, s := range kept {
			s.Emit(e)
		}
	})
}

type ChannelSink struct {
	ch chan<- Event
}

func NewChannelSink(ch chan<- Event) *ChannelSink {
	return &ChannelSink{ch: ch}
}

func (s *ChannelSink) Emit(e Event) {
	if s == nil || s.ch == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	select {
	case s.ch <- e:
	default:
		// Dropped: a slow view must not stall the linters.
	}
}

// LogSink mirrors events to a structured logger at debug level.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Emit(e Event) {
	if s == nil || s.logger == nil {
		return
	}
	attrs := logAttrs(e)
	if attrs == nil {
		return
	}
	s.logger.LogAttrs(context.Background(), slog.LevelDebug, strings.ReplaceAll(string(e.Type), "_", " "), attrs...)
}

func logAttrs(e Event) []slog.Attr {
	var attrs []slog.Attr
	switch e.Type {
	case EventRunStarted:
		attrs = []slog.Attr{slog.String("run_id", e.RunID), slog.Int("files", e.Files)}
	case EventRunFinished:
		attrs = []slog.Attr{
			slog.String("run_id", e.RunID),
			slog.Int("checked", e.Files),
			slog.Int("failed", e.Failed),
			slog.Int64("duration_ms", e.DurationMS),
		}
	case EventLinterStarted:
		attrs = []slog.Attr{slog.String("lang", e.Lang), slog.String("linter", e.Linter), slog.Int("files", e.Files)}
	case EventLinterFinished:
		attrs = []slog.Attr{
			slog.String("lang", e.Lang),
			slog.String("linter", e.Linter),
			slog.Int("checked", e.Files),
			slog.Int("failed", e.Failed),
			slog.Int64("duration_ms", e.DurationMS),
		}
	case EventFileFinished:
		attrs = []slog.Attr{
			slog.String("linter", e.Linter),
			slog.String("path", e.Path),
			slog.Int("exit_code", e.ExitCode),
		}
	default:
		return nil
	}
	if msg := strings.TrimSpace(e.Error); msg != "" {
		attrs = append(attrs, slog.String("error", msg))
	}
	return attrs
}
