package report

import (
	"io"
	"sync"

	"github.com/fmontoto/autolint/internal/model"
)

// PrintAll returns a result callback that relays each outcome unformatted:
// stdout bytes to stdout, stderr bytes to stderr, in the order results
// arrive.
func PrintAll(stdout, stderr io.Writer) func(path string, out model.Outcome) {
	var mu sync.Mutex
	return func(_ string, out model.Outcome) {
		mu.Lock()
		defer mu.Unlock()
		if len(out.Stdout) > 0 {
			_, _ = stdout.Write(out.Stdout)
		}
		if len(out.Stderr) > 0 {
			_, _ = stderr.Write(out.Stderr)
		}
	}
}
