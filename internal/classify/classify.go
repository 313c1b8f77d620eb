// Package classify assigns discovered files to the configured languages.
package classify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fmontoto/autolint/internal/config"
)

// Group is the set of files selected for one language.
type Group struct {
	Lang  string
	Files []string
}

// Result lists the languages that matched at least one file, in
// configuration order.
type Result []Group

// Files returns the files classified under lang.
func (r Result) Files(lang string) ([]string, bool) {
	for _, g := range r {
		if g.Lang == lang {
			return g.Files, true
		}
	}
	return nil, false
}

// Langs lists the language names in order.
func (r Result) Langs() []string {
	out := make([]string, 0, len(r))
	for _, g := range r {
		out = append(out, g.Lang)
	}
	return out
}

// Classify matches every file against each language's include globs.
// Globs use shell semantics over the whole path string, so "*" also
// crosses "/". A file may land in several languages; languages without
// files are left out. Files keep their input order.
func Classify(files []string, cfg *config.Config) (Result, error) {
	langs, err := cfg.Languages()
	if err != nil {
		return nil, err
	}

	var out Result
	for _, lang := range langs {
		patterns, err := lang.Patterns()
		if err != nil {
			return nil, err
		}
		matchers := make([]*regexp.Regexp, 0, len(patterns))
		for _, p := range patterns {
			re, err := CompileGlob(p)
			if err != nil {
				return nil, &config.Error{
					Lang: lang.Name,
					Key:  "include",
					Msg:  fmt.Sprintf("language %q: invalid include pattern %q: %v", lang.Name, p, err),
				}
			}
			matchers = append(matchers, re)
		}

		seen := make(map[string]struct{})
		var matched []string
		for _, f := range files {
			if _, dup := seen[f]; dup {
				continue
			}
			for _, re := range matchers {
				if re.MatchString(f) {
					seen[f] = struct{}{}
					matched = append(matched, f)
					break
				}
			}
		}
		if len(matched) == 0 {
			continue
		}
		out = append(out, Group{Lang: lang.Name, Files: matched})
	}
	return out, nil
}

// CompileGlob translates a shell glob into an anchored regexp. Supported:
// "*" (any run, "/" included), "?" (one character), "[seq]" and "[!seq]".
// An unterminated "[" is matched literally.
func CompileGlob(glob string) (*regexp.Regexp, error) {
	return regexp.Compile(globToRegex(glob))
}

func globToRegex(glob string) string {
	var b strings.Builder
	b.WriteString(`(?s)^`)
	r := []rune(glob)
	for i := 0; i < len(r); i++ {
		switch r[i] {
		case '*':
			for i+1 < len(r) && r[i+1] == '*' {
				i++
			}
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		case '[':
			j := i + 1
			if j < len(r) && r[j] == '!' {
				j++
			}
			if j < len(r) && r[j] == ']' {
				j++
			}
			for j < len(r) && r[j] != ']' {
				j++
			}
			if j >= len(r) {
				b.WriteString(`\[`)
				continue
			}
			body := r[i+1 : j]
			b.WriteString("[")
			if len(body) > 0 && body[0] == '!' {
				b.WriteString("^")
				body = body[1:]
			} else if len(body) > 0 && body[0] == '^' {
				b.WriteString(`\^`)
				body = body[1:]
			}
			for _, ch := range body {
				if ch == '\\' || ch == '[' || ch == ']' {
					b.WriteString(`\`)
				}
				b.WriteRune(ch)
			}
			b.WriteString("]")
			i = j
		default:
			b.WriteString(regexp.QuoteMeta(string(r[i])))
		}
	}
	b.WriteString("$")
	return b.String()
}
