package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fmontoto/autolint/internal/progress"
)

func feed(m uiModel, events ...progress.Event) uiModel {
	for _, e := range events {
		m.applyEvent(e)
	}
	return m
}

func TestApplyEvent_TracksLintersInDispatchOrder(t *testing.T) {
	m := newModel(nil)
	m = feed(m,
		progress.Event{Type: progress.EventRunStarted, RunID: "r1", Files: 3},
		progress.Event{Type: progress.EventLinterStarted, Lang: "python", Linter: "flake8", Files: 2},
		progress.Event{Type: progress.EventFileFinished, Lang: "python", Linter: "flake8", Path: "a.py"},
		progress.Event{Type: progress.EventFileFinished, Lang: "python", Linter: "flake8", Path: "b.py", ExitCode: 1},
		progress.Event{Type: progress.EventLinterFinished, Lang: "python", Linter: "flake8", Files: 2, Failed: 1, DurationMS: 40},
		progress.Event{Type: progress.EventLinterStarted, Lang: "go", Linter: "gofmt", Files: 1},
	)

	if len(m.order) != 2 || m.order[0] != "python/flake8" || m.order[1] != "go/gofmt" {
		t.Fatalf("unexpected row order %v", m.order)
	}
	py := m.rows["python/flake8"]
	if py.Status != statusFailed || py.Done != 2 || py.Failed != 1 {
		t.Fatalf("unexpected flake8 row %+v", py)
	}
	if m.rows["go/gofmt"].Status != statusRunning {
		t.Fatalf("expected gofmt running, got %+v", m.rows["go/gofmt"])
	}
	if m.checked != 2 || m.failed != 1 {
		t.Fatalf("expected 2 checked / 1 failed, got %d / %d", m.checked, m.failed)
	}
	if m.done {
		t.Fatal("run is not finished yet")
	}
}

func TestApplyEvent_RunFinished(t *testing.T) {
	m := feed(newModel(nil),
		progress.Event{Type: progress.EventRunFinished, Files: 5, Failed: 0, DurationMS: 1200},
	)
	if !m.done || m.runStatus != statusPassed {
		t.Fatalf("expected passed and done, got status=%s done=%v", m.runStatus, m.done)
	}

	m = feed(newModel(nil),
		progress.Event{Type: progress.EventRunFinished, Error: "configuration: missing key \"linters\""},
	)
	if m.runStatus != statusAborted || !strings.Contains(m.runError, "linters") {
		t.Fatalf("expected aborted run, got status=%s error=%q", m.runStatus, m.runError)
	}
}

func TestUpdate_QuitsWhenChannelCloses(t *testing.T) {
	m := newModel(nil)
	next, cmd := m.Update(eventMsg{ok: false})
	if !next.(uiModel).done {
		t.Fatal("expected model to be done")
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
}

func TestUpdate_QuitKeyAbortsRunningView(t *testing.T) {
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyCtrlC},
	} {
		m := newModel(nil)
		next, cmd := m.Update(key)
		got := next.(uiModel)
		if !got.done || got.runStatus != statusAborted {
			t.Fatalf("%s: expected aborted view, got done=%v status=%s", key, got.done, got.runStatus)
		}
		if cmd == nil {
			t.Fatalf("%s: expected quit command", key)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Fatalf("%s: expected tea.QuitMsg", key)
		}
	}
}

func TestLogLinesAreBounded(t *testing.T) {
	m := newModel(nil)
	for i := 0; i < maxLogLines+5; i++ {
		m.applyEvent(progress.Event{Type: progress.EventFileFinished, Lang: "go", Linter: "gofmt", Path: "x.go", ExitCode: 1, At: time.Now()})
	}
	if len(m.logLines) != maxLogLines {
		t.Fatalf("expected %d log lines, got %d", maxLogLines, len(m.logLines))
	}
}

func TestViewPlain(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	m := feed(newModel(nil),
		progress.Event{Type: progress.EventRunStarted, RunID: "r1"},
		progress.Event{Type: progress.EventLinterStarted, Lang: "javascript", Linter: "eslint", Files: 4},
	)
	view := m.View()
	for _, want := range []string{"autolint", "Run: r1", "javascript", "eslint", "0/4", "running", "Recent Events"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in view:\n%s", want, view)
		}
	}
	if strings.Contains(view, "\x1b[") {
		t.Fatalf("expected no ANSI escapes with NO_COLOR:\n%s", view)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("javascript-typescript", 10); got != "javascrip~" {
		t.Fatalf("unexpected %q", got)
	}
	if got := truncate("go", 10); got != "go" {
		t.Fatalf("unexpected %q", got)
	}
}
