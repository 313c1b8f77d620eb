package tui

import (
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fmontoto/autolint/internal/progress"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("45"))
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

const (
	statusPending = "pending"
	statusRunning = "running"
	statusPassed  = "passed"
	statusFailed  = "failed"
	statusAborted = "aborted"
)

const maxLogLines = 12

// linterRow is one linter over one language's files.
type linterRow struct {
	Lang       string
	Linter     string
	Status     string
	Files      int
	Done       int
	Failed     int
	DurationMS int64
	StartedAt  time.Time
}

func rowKey(lang, linter string) string {
	return lang + "/" + linter
}

type eventMsg struct {
	event progress.Event
	ok    bool
}

type uiModel struct {
	events <-chan progress.Event

	runID      string
	runStatus  string
	runError   string
	totalFiles int
	checked    int
	failed     int
	startedAt  time.Time
	finishedAt time.Time

	showDetails bool
	done        bool
	plain       bool

	rows  map[string]linterRow
	order []string

	logLines []string
	tick     int
}

func newModel(events <-chan progress.Event) uiModel {
	return uiModel{
		events:      events,
		runStatus:   statusRunning,
		rows:        make(map[string]linterRow),
		showDetails: true,
		plain:       noColorEnabled(),
		logLines:    make([]string, 0, maxLogLines),
	}
}

func waitForEvent(ch <-chan progress.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		return eventMsg{event: ev, ok: ok}
	}
}

type tickMsg time.Time

func nextTick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m uiModel) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.events), nextTick())
}

func (m uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "d":
			m.showDetails = !m.showDetails
		case "q", "ctrl+c":
			if !m.done {
				m.runStatus = statusAborted
				m.runError = "interrupted"
				m.done = true
			}
			return m, tea.Quit
		}
		return m, nil
	case eventMsg:
		if !msg.ok {
			m.done = true
			return m, tea.Quit
		}
		m.applyEvent(msg.event)
		if m.done {
			return m, tea.Quit
		}
		return m, waitForEvent(m.events)
	case tickMsg:
		m.tick++
		if m.done {
			return m, nil
		}
		return m, nextTick()
	default:
		return m, nil
	}
}

func (m uiModel) View() string {
	var b strings.Builder

	b.WriteString(m.style(titleStyle, "autolint"))
	b.WriteString("\n")
	if m.runStatus == statusRunning {
		b.WriteString(fmt.Sprintf("Active: %s\n", m.style(runningStyle, m.frame(0))))
	}
	b.WriteString(fmt.Sprintf("Run: %s\n", valueOrDash(m.runID)))
	b.WriteString(fmt.Sprintf("Status: %s\n", m.style(styleStatus(m.runStatus), strings.ToUpper(valueOrDash(m.runStatus)))))
	b.WriteString(fmt.Sprintf("Files: %d checked, %d with errors\n", m.checked, m.failed))
	b.WriteString(fmt.Sprintf("Elapsed: %s\n", m.elapsedString()))
	b.WriteString("\n")

	b.WriteString(m.style(headerStyle, fmt.Sprintf("%-14s %-16s %-11s %-9s %-7s %-10s", "Language", "Linter", "Status", "Files", "Errors", "Duration")))
	b.WriteString("\n")
	for idx, key := range m.order {
		row := m.rows[key]
		status := row.Status
		display := status
		if status == statusRunning {
			display = "running " + m.frame(idx)
		}
		line := fmt.Sprintf("%-14s %-16s %-11s %-9s %-7d %-10s",
			truncate(row.Lang, 14), truncate(row.Linter, 16), display,
			fmt.Sprintf("%d/%d", row.Done, row.Files), row.Failed, durationString(m.rowDurationMS(row)))
		b.WriteString(m.style(styleStatus(status), line))
		b.WriteString("\n")
	}

	if m.showDetails {
		b.WriteString("\n")
		b.WriteString(m.style(headerStyle, "Recent Events"))
		b.WriteString("\n")
		if len(m.logLines) == 0 {
			b.WriteString(m.style(idleStyle, "No events yet."))
			b.WriteString("\n")
		} else {
			for _, line := range m.logLines {
				b.WriteString(line)
				b.WriteString("\n")
			}
		}
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.style(helpStyle, "Press q to close"))
	} else {
		b.WriteString(m.style(helpStyle, "d toggle details"))
	}
	b.WriteString("\n")
	return b.String()
}

func (m *uiModel) applyEvent(e progress.Event) {
	switch e.Type {
	case progress.EventRunStarted:
		m.runID = e.RunID
		m.runStatus = statusRunning
		m.totalFiles = e.Files
		if !e.At.IsZero() {
			m.startedAt = e.At
		}
		m.appendEventLine(e, fmt.Sprintf("run started (%s), %d files", valueOrDash(e.RunID), e.Files))
	case progress.EventLinterStarted:
		key := rowKey(e.Lang, e.Linter)
		row := m.ensureRow(e.Lang, e.Linter)
		row.Status = statusRunning
		row.Files = e.Files
		if !e.At.IsZero() {
			row.StartedAt = e.At
		}
		m.rows[key] = row
		m.appendEventLine(e, fmt.Sprintf("%s started on %d %s files", e.Linter, e.Files, e.Lang))
	case progress.EventFileFinished:
		key := rowKey(e.Lang, e.Linter)
		row := m.ensureRow(e.Lang, e.Linter)
		row.Done++
		if e.ExitCode != 0 {
			row.Failed++
			m.appendEventLine(e, fmt.Sprintf("%s: %s exited %d", e.Linter, e.Path, e.ExitCode))
		}
		m.rows[key] = row
	case progress.EventLinterFinished:
		key := rowKey(e.Lang, e.Linter)
		row := m.ensureRow(e.Lang, e.Linter)
		row.Done = e.Files
		row.Failed = e.Failed
		row.DurationMS = e.DurationMS
		switch {
		case strings.TrimSpace(e.Error) != "":
			row.Status = statusAborted
		case e.Failed > 0:
			row.Status = statusFailed
		default:
			row.Status = statusPassed
		}
		m.rows[key] = row
		m.checked += e.Files
		m.failed += e.Failed
		m.appendEventLine(e, fmt.Sprintf("%s finished on %s: %d checked, %d with errors", e.Linter, e.Lang, e.Files, e.Failed))
	case progress.EventRunFinished:
		m.runError = strings.TrimSpace(e.Error)
		switch {
		case m.runError != "":
			m.runStatus = statusAborted
		case e.Failed > 0:
			m.runStatus = statusFailed
		default:
			m.runStatus = statusPassed
		}
		m.checked = e.Files
		m.failed = e.Failed
		if !e.At.IsZero() {
			m.finishedAt = e.At
		}
		m.done = true
		msg := fmt.Sprintf("run finished: %d checked, %d with errors in %s", e.Files, e.Failed, durationString(e.DurationMS))
		if m.runError != "" {
			msg += " error=" + m.runError
		}
		m.appendEventLine(e, msg)
	}
}

func (m *uiModel) ensureRow(lang, linter string) linterRow {
	key := rowKey(lang, linter)
	row, ok := m.rows[key]
	if !ok {
		row = linterRow{Lang: lang, Linter: linter, Status: statusPending}
		m.order = append(m.order, key)
	}
	return row
}

func (m uiModel) elapsedString() string {
	if m.startedAt.IsZero() {
		return "0s"
	}
	end := time.Now().UTC()
	if !m.finishedAt.IsZero() {
		end = m.finishedAt
	}
	return end.Sub(m.startedAt).Round(time.Second).String()
}

func (m *uiModel) appendEventLine(e progress.Event, text string) {
	ts := e.At
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	m.logLines = append(m.logLines, fmt.Sprintf("[%s] %s", ts.Format("15:04:05"), strings.TrimSpace(text)))
	if len(m.logLines) > maxLogLines {
		m.logLines = m.logLines[len(m.logLines)-maxLogLines:]
	}
}

func (m uiModel) rowDurationMS(row linterRow) int64 {
	if row.Status == statusRunning && !row.StartedAt.IsZero() {
		return time.Since(row.StartedAt).Milliseconds()
	}
	return row.DurationMS
}

func (m uiModel) frame(offset int) string {
	frames := []string{"-", "\\", "|", "/"}
	return frames[(m.tick+offset)%len(frames)]
}

func (m uiModel) style(s lipgloss.Style, text string) string {
	if m.plain {
		return text
	}
	return s.Render(text)
}

func noColorEnabled() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

func durationString(ms int64) string {
	if ms <= 0 {
		return "0s"
	}
	return (time.Duration(ms) * time.Millisecond).Round(time.Millisecond).String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "~"
}

func valueOrDash(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "-"
	}
	return v
}

func styleStatus(status string) lipgloss.Style {
	switch status {
	case statusPassed:
		return okStyle
	case statusFailed, statusAborted:
		return errorStyle
	case statusRunning:
		return runningStyle
	default:
		return idleStyle
	}
}
