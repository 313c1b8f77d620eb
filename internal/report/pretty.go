// Package report renders a lint run: raw streaming of linter output,
// the indented language/linter/file summary, and report files.
package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fmontoto/autolint/internal/model"
)

// Styles used by the pretty report. Styling is applied only to names and
// summary lines; indentation is always written as plain tabs.
type Styles struct {
	Lang    lipgloss.Style
	Linter  lipgloss.Style
	Pass    lipgloss.Style
	Fail    lipgloss.Style
	Output  lipgloss.Style
	Summary lipgloss.Style
}

// DefaultStyles builds the color palette for a terminal writer.
func DefaultStyles(w io.Writer) Styles {
	r := lipgloss.NewRenderer(w)
	return Styles{
		Lang:    r.NewStyle().Bold(true),
		Linter:  r.NewStyle().Foreground(lipgloss.Color("6")),
		Pass:    r.NewStyle().Foreground(lipgloss.Color("2")),
		Fail:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		Output:  r.NewStyle().Faint(true),
		Summary: r.NewStyle().Bold(true),
	}
}

// Pretty writes the hierarchical report.
type Pretty struct {
	w      io.Writer
	color  bool
	styles Styles
}

// NewPretty returns a report writer; color enables lipgloss styling.
func NewPretty(w io.Writer, color bool) *Pretty {
	p := &Pretty{w: w, color: color}
	if color {
		p.styles = DefaultStyles(w)
	}
	return p
}

// Render writes the report for tree and returns its totals.
//
//	lang
//		linter
//			passing/file
//			failing/file
//				linter output, one line per line
//		linter: Checked N files; M with errors   (language has >1 linter)
//	lang: Checked N files; M with errors         (tree has >1 language)
//	Checked N files, M with errors
func (p *Pretty) Render(tree *model.Tree) (model.Counts, error) {
	var b bytes.Buffer
	var total model.Counts
	var langs []model.LangResults
	if tree != nil {
		langs = tree.Langs
	}

	for _, lang := range langs {
		b.WriteString(p.paint(p.styles.Lang, lang.Lang))
		b.WriteByte('\n')
		var langCounts model.Counts
		for _, lr := range lang.Linters {
			b.WriteString("\t")
			b.WriteString(p.paint(p.styles.Linter, lr.Linter))
			b.WriteByte('\n')
			for _, fr := range lr.Files {
				p.writeFile(&b, fr)
			}
			counts := lr.Files.Counts()
			if len(lang.Linters) > 1 {
				fmt.Fprintf(&b, "\t%s\n", p.paint(p.styles.Summary,
					fmt.Sprintf("%s: Checked %d files; %d with errors", lr.Linter, counts.Checked, counts.Failed)))
			}
			langCounts = langCounts.Add(counts)
		}
		if len(langs) > 1 {
			fmt.Fprintf(&b, "%s\n", p.paint(p.styles.Summary,
				fmt.Sprintf("%s: Checked %d files; %d with errors", lang.Lang, langCounts.Checked, langCounts.Failed)))
		}
		total = total.Add(langCounts)
	}
	fmt.Fprintf(&b, "%s\n", p.paint(p.styles.Summary,
		fmt.Sprintf("Checked %d files, %d with errors", total.Checked, total.Failed)))

	if _, err := p.w.Write(b.Bytes()); err != nil {
		return total, fmt.Errorf("write report: %w", err)
	}
	return total, nil
}

func (p *Pretty) writeFile(b *bytes.Buffer, fr model.FileResult) {
	if !fr.Outcome.Failed() {
		fmt.Fprintf(b, "\t\t%s\n", p.paint(p.styles.Pass, fr.Path))
		return
	}
	fmt.Fprintf(b, "\t\t%s\n", p.paint(p.styles.Fail, fr.Path))

	wrote := false
	for _, stream := range [][]byte{fr.Outcome.Stdout, fr.Outcome.Stderr} {
		text := strings.TrimRight(string(stream), "\n")
		if strings.TrimSpace(text) == "" {
			continue
		}
		for _, line := range strings.Split(text, "\n") {
			fmt.Fprintf(b, "\t\t\t%s\n", p.paint(p.styles.Output, line))
		}
		wrote = true
	}
	if !wrote {
		fmt.Fprintf(b, "\t\t\t%s\n", p.paint(p.styles.Output, fmt.Sprintf("exit status %d", fr.Outcome.ExitCode)))
	}
}

func (p *Pretty) paint(style lipgloss.Style, s string) string {
	if !p.color {
		return s
	}
	return style.Render(s)
}
