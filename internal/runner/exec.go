package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/fmontoto/autolint/internal/model"
)

const (
	// ExitNotStarted is recorded when the linter binary could not be started.
	ExitNotStarted = 127
	// ExitTimedOut is recorded when an invocation exceeded Options.Timeout.
	ExitTimedOut = 124
)

// execute runs argv to completion and captures its output. It never
// returns an error: start failures and timeouts become outcomes so a
// broken linter cannot abort the run.
func execute(ctx context.Context, argv []string, opts Options) model.Outcome {
	started := time.Now()
	if len(argv) == 0 || argv[0] == "" {
		return model.Outcome{
			ExitCode: ExitNotStarted,
			Stderr:   []byte("autolint: empty command\n"),
		}
	}

	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if opts.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
	}
	defer cancel()

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = opts.Dir
	cmd.SysProcAttr = sysProcAttr()
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return model.Outcome{
			ExitCode: ExitNotStarted,
			Stderr:   []byte(fmt.Sprintf("autolint: cannot run %s: %v\n", argv[0], err)),
			Duration: time.Since(started),
		}
	}

	cmdDone := make(chan struct{})
	go func() {
		select {
		case <-runCtx.Done():
			killCommandProcessGroup(cmd)
		case <-cmdDone:
		}
	}()
	waitErr := cmd.Wait()
	close(cmdDone)

	out := model.Outcome{
		ExitCode: exitCode(cmd, waitErr),
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(started),
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		out.ExitCode = ExitTimedOut
		out.Stderr = append(out.Stderr, []byte(fmt.Sprintf("autolint: %s timed out after %s\n", argv[0], opts.Timeout))...)
	}
	return out
}

func exitCode(cmd *exec.Cmd, err error) int {
	if cmd.ProcessState != nil {
		if code, ok := signalExitCode(cmd.ProcessState); ok {
			return code
		}
		return cmd.ProcessState.ExitCode()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	if err != nil {
		return ExitNotStarted
	}
	return 0
}
