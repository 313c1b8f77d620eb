package intake

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// IgnoreFileName is the ignore file looked up in the target by default.
const IgnoreFileName = ".lintignore"

// ResolveIgnorePath picks the ignore file for a run: none when disabled,
// the explicit path when given, target/.lintignore when it exists,
// otherwise none.
func ResolveIgnorePath(target, explicit string, disabled bool) string {
	if disabled {
		return ""
	}
	if strings.TrimSpace(explicit) != "" {
		return explicit
	}
	candidate := filepath.Join(target, IgnoreFileName)
	if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
		return candidate
	}
	return ""
}

// IgnoreRules holds compiled patterns from a .lintignore file, in file order.
type IgnoreRules struct {
	patterns []ignorePattern
}

type ignorePattern struct {
	negated  bool
	dirOnly  bool
	regex    *regexp.Regexp
	original string
}

// LoadIgnoreFile reads and parses a .lintignore file. Returns nil rules
// (not an error) if the file does not exist.
func LoadIgnoreFile(path string) (*IgnoreRules, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return ParseIgnorePatterns(lines), nil
}

// ParseIgnorePatterns parses gitignore-style pattern lines into IgnoreRules.
func ParseIgnorePatterns(lines []string) *IgnoreRules {
	rules := &IgnoreRules{}
	for _, raw := range lines {
		line := strings.TrimRight(raw, " \t\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		p := ignorePattern{original: line}

		switch {
		case strings.HasPrefix(line, `\#`), strings.HasPrefix(line, `\!`):
			line = line[1:]
		case strings.HasPrefix(line, "!"):
			p.negated = true
			line = line[1:]
		}

		if strings.HasSuffix(line, "/") {
			p.dirOnly = true
			line = strings.TrimSuffix(line, "/")
		}
		if line == "" {
			continue
		}

		re, err := regexp.Compile(ignoreGlobToRegex(line))
		if err != nil {
			continue
		}
		p.regex = re
		rules.patterns = append(rules.patterns, p)
	}
	return rules
}

// Len reports how many patterns were compiled.
func (r *IgnoreRules) Len() int {
	if r == nil {
		return 0
	}
	return len(r.patterns)
}

// Excluded reports whether the regular file at relPath is excluded. A
// pattern applies when it matches the file itself or any of its parent
// directories; patterns are applied in order so a later negation can
// re-include a file excluded by an earlier pattern.
func (r *IgnoreRules) Excluded(relPath string) bool {
	if r == nil || len(r.patterns) == 0 {
		return false
	}
	relPath = normalizeRel(relPath)
	if relPath == "" {
		return false
	}
	parents := parentDirs(relPath)

	ignored := false
	for _, p := range r.patterns {
		if p.matchesFile(relPath, parents) {
			ignored = !p.negated
		}
	}
	return ignored
}

// Filter drops every file under root that the rules exclude. Paths are
// matched relative to root; the returned slice keeps the input order and
// the original path strings.
func (r *IgnoreRules) Filter(root string, files []string) []string {
	if r.Len() == 0 {
		return files
	}
	kept := make([]string, 0, len(files))
	for _, f := range files {
		rel, err := filepath.Rel(root, f)
		if err != nil {
			rel = f
		}
		if r.Excluded(rel) {
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

func (p ignorePattern) matchesFile(relPath string, parents []string) bool {
	if !p.dirOnly && p.regex.MatchString(relPath) {
		return true
	}
	for _, dir := range parents {
		if p.regex.MatchString(dir) {
			return true
		}
	}
	return false
}

// parentDirs returns "a", "a/b" for "a/b/c.go".
func parentDirs(relPath string) []string {
	var dirs []string
	for i := 0; i < len(relPath); i++ {
		if relPath[i] == '/' {
			dirs = append(dirs, relPath[:i])
		}
	}
	return dirs
}

func normalizeRel(relPath string) string {
	relPath = filepath.ToSlash(strings.TrimSpace(relPath))
	relPath = strings.TrimPrefix(relPath, "./")
	return strings.Trim(relPath, "/")
}

// ignoreGlobToRegex converts a gitignore-style glob to a regex.
func ignoreGlobToRegex(glob string) string {
	var b strings.Builder
	b.WriteString("^")
	glob = filepath.ToSlash(glob)

	// A leading slash anchors the pattern to the root; so does any slash
	// in the middle. Without one the pattern matches at any depth.
	if strings.HasPrefix(glob, "/") {
		glob = strings.TrimPrefix(glob, "/")
	} else if !strings.Contains(glob, "/") {
		b.WriteString("(?:.*/)?")
	}
	r := []rune(glob)

	for i := 0; i < len(r); i++ {
		switch r[i] {
		case '*':
			if i+1 < len(r) && r[i+1] == '*' {
				if i+2 < len(r) && r[i+2] == '/' {
					b.WriteString("(?:.*/)?")
					i += 2
					continue
				}
				b.WriteString(".*")
				i++
			} else {
				b.WriteString("[^/]*")
			}
		case '?':
			b.WriteString("[^/]")
		case '[':
			class, n, ok := bracketClass(r[i:])
			if !ok {
				b.WriteString(`\[`)
				continue
			}
			b.WriteString(class)
			i += n - 1
		case '\\':
			if i+1 < len(r) {
				i++
				b.WriteString(regexp.QuoteMeta(string(r[i])))
			} else {
				b.WriteString(`\\`)
			}
		case '.', '+', '(', ')', ']', '{', '}', '^', '$', '|':
			b.WriteString("\\")
			b.WriteRune(r[i])
		default:
			b.WriteRune(r[i])
		}
	}
	b.WriteString("$")
	return b.String()
}

// bracketClass translates a glob character class starting at r[0] == '['
// into a regex class. It returns the class, the number of runes consumed
// and false when the bracket is never closed.
func bracketClass(r []rune) (string, int, bool) {
	i := 1
	var b strings.Builder
	b.WriteString("[")
	if i < len(r) && (r[i] == '!' || r[i] == '^') {
		b.WriteString("^")
		i++
	}
	// A ']' right after the opening bracket is a literal.
	if i < len(r) && r[i] == ']' {
		b.WriteString(`\]`)
		i++
	}
	for ; i < len(r); i++ {
		switch r[i] {
		case ']':
			b.WriteString("]")
			return b.String(), i + 1, true
		case '\\', '[', '^':
			b.WriteString("\\")
			b.WriteRune(r[i])
		default:
			b.WriteRune(r[i])
		}
	}
	return "", 0, false
}
