package report

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fmontoto/autolint/internal/model"
	"github.com/fmontoto/autolint/internal/safefile"
)

// Document is the machine-readable form of a run written by --report.
type Document struct {
	RunID       string         `json:"run_id"`
	Target      string         `json:"target"`
	Config      string         `json:"config"`
	StartedAt   time.Time      `json:"started_at"`
	DurationMS  int64          `json:"duration_ms"`
	SummaryCode int            `json:"summary_code"`
	Error       string         `json:"error,omitempty"`
	Totals      model.Counts   `json:"totals"`
	Langs       []LangDocument `json:"langs"`
}

type LangDocument struct {
	Lang    string           `json:"lang"`
	Totals  model.Counts     `json:"totals"`
	Linters []LinterDocument `json:"linters"`
}

type LinterDocument struct {
	Linter string         `json:"linter"`
	Totals model.Counts   `json:"totals"`
	Files  []FileDocument `json:"files"`
}

type FileDocument struct {
	Path       string `json:"path"`
	ExitCode   int    `json:"exit_code"`
	Stdout     string `json:"stdout,omitempty"`
	Stderr     string `json:"stderr,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// NewDocument converts a result tree. tree may be partial or nil when the
// run was aborted; runErr is recorded in that case.
func NewDocument(runID, target, config string, started time.Time, tree *model.Tree, runErr error) Document {
	doc := Document{
		RunID:       runID,
		Target:      target,
		Config:      config,
		StartedAt:   started.UTC(),
		DurationMS:  time.Since(started).Milliseconds(),
		SummaryCode: tree.SummaryCode(),
		Totals:      tree.Counts(),
		Langs:       []LangDocument{},
	}
	if runErr != nil {
		doc.Error = runErr.Error()
	}
	if tree == nil {
		return doc
	}
	for _, lang := range tree.Langs {
		ld := LangDocument{Lang: lang.Lang, Totals: lang.Counts(), Linters: []LinterDocument{}}
		for _, lr := range lang.Linters {
			ln := LinterDocument{Linter: lr.Linter, Totals: lr.Files.Counts(), Files: []FileDocument{}}
			for _, fr := range lr.Files {
				ln.Files = append(ln.Files, FileDocument{
					Path:       fr.Path,
					ExitCode:   fr.Outcome.ExitCode,
					Stdout:     string(fr.Outcome.Stdout),
					Stderr:     string(fr.Outcome.Stderr),
					DurationMS: fr.Outcome.Duration.Milliseconds(),
				})
			}
			ld.Linters = append(ld.Linters, ln)
		}
		doc.Langs = append(doc.Langs, ld)
	}
	return doc
}

// Write stores doc at path: Markdown for a .md path, JSON otherwise.
func Write(path string, doc Document) error {
	if strings.EqualFold(filepath.Ext(path), ".md") {
		return WriteMarkdown(path, doc)
	}
	return WriteJSON(path, doc)
}

func WriteJSON(path string, doc Document) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	b = append(b, '\n')
	if err := safefile.WriteFileAtomic(path, b, 0o644); err != nil {
		return fmt.Errorf("write report json: %w", err)
	}
	return nil
}

func WriteMarkdown(path string, doc Document) error {
	if err := safefile.WriteFileAtomic(path, []byte(RenderMarkdown(doc)), 0o644); err != nil {
		return fmt.Errorf("write report markdown: %w", err)
	}
	return nil
}

// RenderMarkdown lists totals per language and linter, then the output of
// every failing file.
func RenderMarkdown(doc Document) string {
	var b strings.Builder

	b.WriteString("# autolint report\n\n")
	fmt.Fprintf(&b, "- Run: `%s`\n", doc.RunID)
	fmt.Fprintf(&b, "- Target: `%s`\n", doc.Target)
	fmt.Fprintf(&b, "- Configuration: `%s`\n", doc.Config)
	fmt.Fprintf(&b, "- Started: %s\n", doc.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Duration: %dms\n", doc.DurationMS)
	fmt.Fprintf(&b, "- Result: checked %d files, %d with errors\n", doc.Totals.Checked, doc.Totals.Failed)
	if doc.Error != "" {
		fmt.Fprintf(&b, "- Error: %s\n", doc.Error)
	}

	b.WriteString("\n## Summary\n\n")
	if len(doc.Langs) == 0 {
		b.WriteString("No files were linted.\n")
	} else {
		b.WriteString("| Language | Linter | Checked | With errors |\n")
		b.WriteString("|---|---|---:|---:|\n")
		for _, lang := range doc.Langs {
			for _, ln := range lang.Linters {
				fmt.Fprintf(&b, "| %s | %s | %d | %d |\n",
					escapeCell(lang.Lang), escapeCell(ln.Linter), ln.Totals.Checked, ln.Totals.Failed)
			}
		}
	}

	var failures strings.Builder
	for _, lang := range doc.Langs {
		for _, ln := range lang.Linters {
			for _, f := range ln.Files {
				if f.ExitCode == 0 {
					continue
				}
				fmt.Fprintf(&failures, "\n### %s (%s, exit %d)\n\n", f.Path, ln.Linter, f.ExitCode)
				output := strings.TrimRight(f.Stdout+f.Stderr, "\n")
				if output == "" {
					failures.WriteString("_no output_\n")
					continue
				}
				failures.WriteString("```text\n")
				failures.WriteString(output)
				failures.WriteString("\n```\n")
			}
		}
	}
	if failures.Len() > 0 {
		b.WriteString("\n## Failures\n")
		b.WriteString(failures.String())
	}
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
