// Package progress carries run, linter and file progress events from the
// orchestrator to whoever displays them.
package progress

import "time"

type EventType string

const (
	EventRunStarted     EventType = "run_started"
	EventRunFinished    EventType = "run_finished"
	EventLinterStarted  EventType = "linter_started"
	EventLinterFinished EventType = "linter_finished"
	EventFileFinished   EventType = "file_finished"
)

type Event struct {
	Type       EventType `json:"type"`
	At         time.Time `json:"at"`
	RunID      string    `json:"run_id,omitempty"`
	Lang       string    `json:"lang,omitempty"`
	Linter     string    `json:"linter,omitempty"`
	Path       string    `json:"path,omitempty"`
	ExitCode   int       `json:"exit_code,omitempty"`
	Files      int       `json:"files,omitempty"`
	Failed     int       `json:"failed,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms,omitempty"`
}
