package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmontoto/autolint/internal/model"
)

func pass(path string) model.FileResult {
	return model.FileResult{Path: path}
}

func fail(path, stdout, stderr string) model.FileResult {
	return model.FileResult{Path: path, Outcome: model.Outcome{ExitCode: 1, Stdout: []byte(stdout), Stderr: []byte(stderr)}}
}

func TestPretty_SingleLanguageSingleLinter(t *testing.T) {
	tree := &model.Tree{Langs: []model.LangResults{{
		Lang: "python",
		Linters: []model.LinterResults{{
			Linter: "flake8",
			Files: model.FileResults{
				pass("src/a.py"),
				fail("src/b.py", "src/b.py:1:1: E302 expected 2 blank lines\nsrc/b.py:4:80: E501 line too long\n", ""),
			},
		}},
	}}}

	var out bytes.Buffer
	counts, err := NewPretty(&out, false).Render(tree)
	require.NoError(t, err)

	want := "python\n" +
		"\tflake8\n" +
		"\t\tsrc/a.py\n" +
		"\t\tsrc/b.py\n" +
		"\t\t\tsrc/b.py:1:1: E302 expected 2 blank lines\n" +
		"\t\t\tsrc/b.py:4:80: E501 line too long\n" +
		"Checked 2 files, 1 with errors\n"
	assert.Equal(t, want, out.String())
	assert.Equal(t, model.Counts{Checked: 2, Failed: 1}, counts)
}

func TestPretty_SubtotalsOnlyWhenSeveral(t *testing.T) {
	tree := &model.Tree{Langs: []model.LangResults{
		{
			Lang: "python",
			Linters: []model.LinterResults{
				{Linter: "flake8", Files: model.FileResults{pass("a.py")}},
				{Linter: "pylint", Files: model.FileResults{fail("a.py", "", "crashed\n")}},
			},
		},
		{
			Lang:    "go",
			Linters: []model.LinterResults{{Linter: "gofmt", Files: model.FileResults{pass("m.go")}}},
		},
	}}

	var out bytes.Buffer
	counts, err := NewPretty(&out, false).Render(tree)
	require.NoError(t, err)

	want := "python\n" +
		"\tflake8\n" +
		"\t\ta.py\n" +
		"\tflake8: Checked 1 files; 0 with errors\n" +
		"\tpylint\n" +
		"\t\ta.py\n" +
		"\t\t\tcrashed\n" +
		"\tpylint: Checked 1 files; 1 with errors\n" +
		"python: Checked 2 files; 1 with errors\n" +
		"go\n" +
		"\tgofmt\n" +
		"\t\tm.go\n" +
		"go: Checked 1 files; 0 with errors\n" +
		"Checked 3 files, 1 with errors\n"
	assert.Equal(t, want, out.String())
	assert.Equal(t, model.Counts{Checked: 3, Failed: 1}, counts)
}

func TestPretty_StdoutThenStderrAndSilentFailure(t *testing.T) {
	tree := &model.Tree{Langs: []model.LangResults{{
		Lang: "c",
		Linters: []model.LinterResults{{
			Linter: "cppcheck",
			Files: model.FileResults{
				fail("x.c", "out\n", "err1\nerr2"),
				{Path: "y.c", Outcome: model.Outcome{ExitCode: 3}},
			},
		}},
	}}}

	var out bytes.Buffer
	_, err := NewPretty(&out, false).Render(tree)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "\t\tx.c\n\t\t\tout\n\t\t\terr1\n\t\t\terr2\n")
	assert.Contains(t, out.String(), "\t\ty.c\n\t\t\texit status 3\n")
}

func TestPretty_EmptyTree(t *testing.T) {
	var out bytes.Buffer
	counts, err := NewPretty(&out, false).Render(nil)
	require.NoError(t, err)
	assert.Equal(t, "Checked 0 files, 0 with errors\n", out.String())
	assert.Zero(t, counts)
}

func TestPretty_ColorKeepsTextAndTabs(t *testing.T) {
	tree := &model.Tree{Langs: []model.LangResults{{
		Lang:    "python",
		Linters: []model.LinterResults{{Linter: "flake8", Files: model.FileResults{fail("a.py", "E1\n", "")}}},
	}}}

	var out bytes.Buffer
	_, err := NewPretty(&out, true).Render(tree)
	require.NoError(t, err)

	for _, want := range []string{"python", "\tflake8", "\t\t", "a.py", "\t\t\t", "E1", "Checked 1 files, 1 with errors"} {
		assert.Contains(t, out.String(), want)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestPretty_WriteError(t *testing.T) {
	_, err := NewPretty(failingWriter{}, false).Render(&model.Tree{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write report")
}

func TestPrintAll_RelaysStreamsRaw(t *testing.T) {
	var stdout, stderr bytes.Buffer
	cb := PrintAll(&stdout, &stderr)

	cb("a.py", model.Outcome{ExitCode: 1, Stdout: []byte("a.py:1:1: E1\n")})
	cb("b.py", model.Outcome{})
	cb("c.py", model.Outcome{ExitCode: 2, Stdout: []byte("partial"), Stderr: []byte("boom\n")})

	assert.Equal(t, "a.py:1:1: E1\npartial", stdout.String())
	assert.Equal(t, "boom\n", stderr.String())
}

func sampleTree() *model.Tree {
	return &model.Tree{Langs: []model.LangResults{{
		Lang: "python",
		Linters: []model.LinterResults{{
			Linter: "flake8",
			Files: model.FileResults{
				pass("a.py"),
				{Path: "b.py", Outcome: model.Outcome{ExitCode: 1, Stdout: []byte("b.py:1:1: E1\n"), Duration: 15 * time.Millisecond}},
			},
		}},
	}}}
}

func TestNewDocument(t *testing.T) {
	started := time.Now().Add(-time.Second)
	doc := NewDocument("run-1", "/src", "/src/.autolint.yml", started, sampleTree(), nil)

	assert.Equal(t, "run-1", doc.RunID)
	assert.Equal(t, 1, doc.SummaryCode)
	assert.Equal(t, model.Counts{Checked: 2, Failed: 1}, doc.Totals)
	assert.GreaterOrEqual(t, doc.DurationMS, int64(1000))
	require.Len(t, doc.Langs, 1)
	require.Len(t, doc.Langs[0].Linters, 1)
	files := doc.Langs[0].Linters[0].Files
	require.Len(t, files, 2)
	assert.Equal(t, "b.py:1:1: E1\n", files[1].Stdout)
	assert.Equal(t, int64(15), files[1].DurationMS)
	assert.Empty(t, doc.Error)
}

func TestNewDocument_AbortedRun(t *testing.T) {
	doc := NewDocument("run-2", "/src", "", time.Now(), nil, errors.New("configuration: missing key \"linters\""))

	assert.Equal(t, 0, doc.SummaryCode)
	assert.NotNil(t, doc.Langs)
	assert.Contains(t, doc.Error, "linters")
}

func TestWrite_JSONAndMarkdownByExtension(t *testing.T) {
	dir := t.TempDir()
	doc := NewDocument("run-3", "/src", "bundled", time.Now(), sampleTree(), nil)

	jsonPath := filepath.Join(dir, "out", "report.json")
	require.NoError(t, Write(jsonPath, doc))
	raw, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var decoded Document
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "run-3", decoded.RunID)
	assert.Equal(t, doc.Totals, decoded.Totals)
	assert.True(t, strings.HasSuffix(string(raw), "\n"))

	mdPath := filepath.Join(dir, "report.MD")
	require.NoError(t, Write(mdPath, doc))
	md, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	for _, want := range []string{
		"# autolint report",
		"| python | flake8 | 2 | 1 |",
		"## Failures",
		"### b.py (flake8, exit 1)",
		"b.py:1:1: E1",
	} {
		assert.Contains(t, string(md), want)
	}
}

func TestRenderMarkdown_NoFiles(t *testing.T) {
	md := RenderMarkdown(NewDocument("run-4", "/src", "bundled", time.Now(), &model.Tree{}, nil))
	assert.Contains(t, md, "No files were linted.")
	assert.NotContains(t, md, "## Failures")
}
