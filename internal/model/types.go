package model

import "time"

// Outcome is what one linter invocation produced.
type Outcome struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

// Failed reports whether the linter exited nonzero.
func (o Outcome) Failed() bool {
	return o.ExitCode != 0
}

// FileResult pairs a linted path with its outcome.
type FileResult struct {
	Path    string
	Outcome Outcome
}

// FileResults are kept in the order files were submitted to the runner.
type FileResults []FileResult

// Get returns the outcome recorded for path.
func (r FileResults) Get(path string) (Outcome, bool) {
	for _, fr := range r {
		if fr.Path == path {
			return fr.Outcome, true
		}
	}
	return Outcome{}, false
}

// Paths lists the recorded paths in order.
func (r FileResults) Paths() []string {
	out := make([]string, 0, len(r))
	for _, fr := range r {
		out = append(out, fr.Path)
	}
	return out
}

// Counts returns the number of files checked and how many failed.
func (r FileResults) Counts() Counts {
	var c Counts
	for _, fr := range r {
		c.Checked++
		if fr.Outcome.Failed() {
			c.Failed++
		}
	}
	return c
}

// LinterResults holds one linter's results for a language.
type LinterResults struct {
	Linter string
	Files  FileResults
}

// LangResults holds every linter run for one language, in dispatch order.
type LangResults struct {
	Lang    string
	Linters []LinterResults
}

// Linter returns the results recorded for the named linter.
func (l LangResults) Linter(name string) (FileResults, bool) {
	for _, lr := range l.Linters {
		if lr.Linter == name {
			return lr.Files, true
		}
	}
	return nil, false
}

// Counts sums the counts of every linter in the language.
func (l LangResults) Counts() Counts {
	var c Counts
	for _, lr := range l.Linters {
		c = c.Add(lr.Files.Counts())
	}
	return c
}

// Tree is the language -> linter -> file result structure of one run.
type Tree struct {
	Langs []LangResults
}

// Lang returns the results recorded for the named language.
func (t *Tree) Lang(name string) (LangResults, bool) {
	if t == nil {
		return LangResults{}, false
	}
	for _, lr := range t.Langs {
		if lr.Lang == name {
			return lr, true
		}
	}
	return LangResults{}, false
}

// Lookup returns the outcome for lang/linter/path.
func (t *Tree) Lookup(lang, linter, path string) (Outcome, bool) {
	lr, ok := t.Lang(lang)
	if !ok {
		return Outcome{}, false
	}
	files, ok := lr.Linter(linter)
	if !ok {
		return Outcome{}, false
	}
	return files.Get(path)
}

// Counts sums every language.
func (t *Tree) Counts() Counts {
	var c Counts
	if t == nil {
		return c
	}
	for _, lr := range t.Langs {
		c = c.Add(lr.Counts())
	}
	return c
}

// Walk calls fn for every recorded outcome in dispatch order.
func (t *Tree) Walk(fn func(lang, linter string, fr FileResult)) {
	if t == nil {
		return
	}
	for _, lr := range t.Langs {
		for _, lin := range lr.Linters {
			for _, fr := range lin.Files {
				fn(lr.Lang, lin.Linter, fr)
			}
		}
	}
}

// AnyFailed reports whether any outcome in the tree has a nonzero exit code.
func (t *Tree) AnyFailed() bool {
	failed := false
	t.Walk(func(_, _ string, fr FileResult) {
		if fr.Outcome.Failed() {
			failed = true
		}
	})
	return failed
}

// SummaryCode is 1 if any outcome failed, else 0.
func (t *Tree) SummaryCode() int {
	if t.AnyFailed() {
		return 1
	}
	return 0
}

// Counts is a files-checked / files-with-errors pair.
type Counts struct {
	Checked int `json:"checked"`
	Failed  int `json:"failed"`
}

func (c Counts) Add(o Counts) Counts {
	return Counts{Checked: c.Checked + o.Checked, Failed: c.Failed + o.Failed}
}
