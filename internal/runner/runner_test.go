package runner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmontoto/autolint/internal/config"
	"github.com/fmontoto/autolint/internal/model"
)

func writeFiles(t *testing.T, contents ...string) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, 0, len(contents))
	for i, c := range contents {
		p := filepath.Join(dir, "f"+string(rune('a'+i))+".txt")
		require.NoError(t, os.WriteFile(p, []byte(c), 0o600))
		paths = append(paths, p)
	}
	return paths
}

type recorded struct {
	path string
	out  model.Outcome
}

func recorder() (*[]recorded, ResultFunc) {
	var mu sync.Mutex
	var got []recorded
	return &got, func(path string, out model.Outcome) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, recorded{path: path, out: out})
	}
}

func TestByFile_CapturesExitCodeAndStreams(t *testing.T) {
	linter := fakeLinter(t)
	files := writeFiles(t, "ok", "bad", "err")
	got, onResult := recorder()

	results, err := NewByFile(Options{}).Run(context.Background(), linter, files, onResult)
	require.NoError(t, err)
	require.Equal(t, files, results.Paths())

	ok, _ := results.Get(files[0])
	assert.Equal(t, 0, ok.ExitCode)
	assert.Empty(t, ok.Stdout)

	bad, _ := results.Get(files[1])
	assert.Equal(t, 1, bad.ExitCode)
	assert.Contains(t, string(bad.Stdout), files[1]+":1:1: E001 bad content")
	assert.Empty(t, bad.Stderr)

	errOut, _ := results.Get(files[2])
	assert.Equal(t, 2, errOut.ExitCode)
	assert.Contains(t, string(errOut.Stderr), "cannot parse")

	require.Len(t, *got, 3)
	for i, r := range *got {
		assert.Equal(t, files[i], r.path)
		assert.Equal(t, results[i].Outcome.ExitCode, r.out.ExitCode)
	}
}

func TestByFile_SubstitutesFilePathMarker(t *testing.T) {
	linter := fakeLinter(t, "--file="+FilePathMarker)
	files := writeFiles(t, "bad")

	results, err := NewByFile(Options{}).Run(context.Background(), linter, files, nil)
	require.NoError(t, err)

	out, _ := results.Get(files[0])
	assert.Equal(t, 1, out.ExitCode)
	assert.Contains(t, string(out.Stdout), files[0]+":1:1")
}

func TestByFile_ParallelKeepsSubmissionOrder(t *testing.T) {
	linter := fakeLinter(t)
	files := writeFiles(t, "slow", "bad", "ok", "slow", "err", "ok")
	got, onResult := recorder()

	results, err := NewByFile(Options{Jobs: 4}).Run(context.Background(), linter, files, onResult)
	require.NoError(t, err)

	assert.Equal(t, files, results.Paths())
	require.Len(t, *got, len(files))
	for i, r := range *got {
		assert.Equal(t, files[i], r.path, "callback %d out of order", i)
	}
	assert.Equal(t, []int{0, 1, 0, 0, 2, 0}, exitCodes(results))
}

func TestByFile_SequentialAndParallelAgree(t *testing.T) {
	linter := fakeLinter(t)
	files := writeFiles(t, "ok", "bad", "err", "ok")

	seq, err := NewByFile(Options{Jobs: 1}).Run(context.Background(), linter, files, nil)
	require.NoError(t, err)
	par, err := NewByFile(Options{Jobs: 3}).Run(context.Background(), linter, files, nil)
	require.NoError(t, err)

	assert.Equal(t, seq.Paths(), par.Paths())
	assert.Equal(t, exitCodes(seq), exitCodes(par))
}

func TestByFile_MissingBinaryIsRecordedNotReturned(t *testing.T) {
	linter := config.Linter{Name: "ghost", Cmd: filepath.Join(t.TempDir(), "no-such-linter")}
	files := writeFiles(t, "ok")

	results, err := NewByFile(Options{}).Run(context.Background(), linter, files, nil)
	require.NoError(t, err)

	out, _ := results.Get(files[0])
	assert.Equal(t, ExitNotStarted, out.ExitCode)
	assert.Contains(t, string(out.Stderr), "cannot run")
}

func TestByFile_TimeoutKillsLinter(t *testing.T) {
	linter := fakeLinter(t)
	files := writeFiles(t, "hang")

	start := time.Now()
	results, err := NewByFile(Options{Timeout: 200 * time.Millisecond}).Run(context.Background(), linter, files, nil)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)

	out, _ := results.Get(files[0])
	assert.Equal(t, ExitTimedOut, out.ExitCode)
	assert.Contains(t, string(out.Stderr), "timed out")
}

func TestByFile_CancelledContext(t *testing.T) {
	linter := fakeLinter(t)
	files := writeFiles(t, "ok", "ok")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := NewByFile(Options{}).Run(ctx, linter, files, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)

	results, err = NewByFile(Options{Jobs: 2}).Run(ctx, linter, files, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}

func TestByFile_CancelDropsKilledInvocations(t *testing.T) {
	linter := fakeLinter(t)
	files := writeFiles(t, "ok", "hang", "hang")

	for _, jobs := range []int{1, 3} {
		ctx, cancel := context.WithCancel(context.Background())
		timer := time.AfterFunc(time.Second, cancel)
		got, onResult := recorder()

		started := time.Now()
		results, err := NewByFile(Options{Jobs: jobs}).Run(ctx, linter, files, onResult)
		timer.Stop()
		cancel()

		require.ErrorIs(t, err, context.Canceled, "jobs=%d", jobs)
		assert.Less(t, time.Since(started), 10*time.Second, "jobs=%d", jobs)
		assert.Equal(t, files[:len(results)], results.Paths(), "jobs=%d", jobs)
		for _, fr := range results {
			assert.Equal(t, 0, fr.Outcome.ExitCode, "jobs=%d: killed invocation of %s recorded", jobs, fr.Path)
		}
		assert.Len(t, *got, len(results), "jobs=%d", jobs)
	}
}

func TestByFile_RunsInDir(t *testing.T) {
	linter := fakeLinter(t)
	files := writeFiles(t, "bad")
	dir := filepath.Dir(files[0])

	results, err := NewByFile(Options{Dir: dir}).Run(context.Background(), linter, []string{filepath.Base(files[0])}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, exitCodes(results))
}

func TestBatch_SingleInvocationSharedOutcome(t *testing.T) {
	linter := fakeLinter(t)
	files := writeFiles(t, "ok", "bad", "ok")
	got, onResult := recorder()

	results, err := NewBatch(Options{}).Run(context.Background(), linter, files, onResult)
	require.NoError(t, err)

	assert.Equal(t, files, results.Paths())
	assert.Equal(t, []int{1, 1, 1}, exitCodes(results))
	for _, fr := range results {
		assert.Equal(t, 1, strings.Count(string(fr.Outcome.Stdout), "E001"))
	}
	require.Len(t, *got, 1, "batch output is reported once")
	assert.Equal(t, files[0], (*got)[0].path)
}

func TestBatch_SubstitutesEveryPath(t *testing.T) {
	linter := fakeLinter(t, "--file="+FilePathMarker)
	files := writeFiles(t, "bad", "bad")

	results, err := NewBatch(Options{}).Run(context.Background(), linter, files, nil)
	require.NoError(t, err)

	out, _ := results.Get(files[1])
	assert.Equal(t, 2, strings.Count(string(out.Stdout), "E001"))
}

func TestBatch_EmptyFileSet(t *testing.T) {
	results, err := NewBatch(Options{}).Run(context.Background(), config.Linter{Name: "x", Cmd: "x"}, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

type countingObserver struct {
	mu    sync.Mutex
	calls int
	codes []int
}

func (o *countingObserver) Invocation(ctx context.Context, linter string, files []string) (context.Context, func(model.Outcome)) {
	o.mu.Lock()
	o.calls++
	o.mu.Unlock()
	return ctx, func(out model.Outcome) {
		o.mu.Lock()
		defer o.mu.Unlock()
		o.codes = append(o.codes, out.ExitCode)
	}
}

func TestObserverSeesEveryInvocation(t *testing.T) {
	linter := fakeLinter(t)
	files := writeFiles(t, "ok", "bad", "ok")
	obs := &countingObserver{}

	_, err := NewByFile(Options{Observer: obs}).Run(context.Background(), linter, files, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, obs.calls)
	assert.ElementsMatch(t, []int{0, 1, 0}, obs.codes)

	obs = &countingObserver{}
	_, err = NewBatch(Options{Observer: obs}).Run(context.Background(), linter, files, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, obs.calls)
}

func exitCodes(results model.FileResults) []int {
	codes := make([]int, 0, len(results))
	for _, fr := range results {
		codes = append(codes, fr.Outcome.ExitCode)
	}
	return codes
}
