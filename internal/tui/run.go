// Package tui shows a live view of a lint run fed by progress events.
package tui

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fmontoto/autolint/internal/progress"
)

type Options struct {
	Events <-chan progress.Event
	// Output defaults to stdout.
	Output io.Writer
}

// Run blocks until the event channel is closed or a run_finished event
// arrives.
func Run(opts Options) error {
	if opts.Events == nil {
		return fmt.Errorf("tui events channel is required")
	}

	programOpts := []tea.ProgramOption{tea.WithAltScreen()}
	if opts.Output != nil {
		programOpts = append(programOpts, tea.WithOutput(opts.Output))
	}
	_, err := tea.NewProgram(newModel(opts.Events), programOpts...).Run()
	return err
}
