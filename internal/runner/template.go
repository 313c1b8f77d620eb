package runner

import "strings"

// FilePathMarker is replaced by the linted file's path in cmd and flags.
const FilePathMarker = "%file_path%"

// Placement says where the file path goes in a linter's argv.
type Placement int

const (
	// PlaceAppend appends the path as the last argument.
	PlaceAppend Placement = iota
	// PlaceSubstitute replaces every FilePathMarker with the path.
	PlaceSubstitute
)

func (p Placement) String() string {
	switch p {
	case PlaceAppend:
		return "append"
	case PlaceSubstitute:
		return "substitute"
	default:
		return "unknown"
	}
}

// Template is a linter command line with its path placement decided once.
type Template struct {
	argv      []string
	placement Placement
}

// NewTemplate builds a template from cmd followed by flags. The placement
// is PlaceSubstitute when any token contains FilePathMarker.
func NewTemplate(argv []string) Template {
	t := Template{argv: append([]string(nil), argv...), placement: PlaceAppend}
	for _, tok := range argv {
		if strings.Contains(tok, FilePathMarker) {
			t.placement = PlaceSubstitute
			break
		}
	}
	return t
}

func (t Template) Placement() Placement {
	return t.placement
}

// For returns the argv that lints a single file.
func (t Template) For(path string) []string {
	if t.placement == PlaceSubstitute {
		out := make([]string, len(t.argv))
		for i, tok := range t.argv {
			out[i] = strings.ReplaceAll(tok, FilePathMarker, path)
		}
		return out
	}
	out := make([]string, 0, len(t.argv)+1)
	out = append(out, t.argv...)
	return append(out, path)
}

// ForAll returns the argv that lints every path in one invocation. With
// PlaceSubstitute each token holding the marker is repeated once per path.
func (t Template) ForAll(paths []string) []string {
	if t.placement == PlaceSubstitute {
		out := make([]string, 0, len(t.argv)+len(paths))
		for _, tok := range t.argv {
			if !strings.Contains(tok, FilePathMarker) {
				out = append(out, tok)
				continue
			}
			for _, p := range paths {
				out = append(out, strings.ReplaceAll(tok, FilePathMarker, p))
			}
		}
		return out
	}
	out := make([]string, 0, len(t.argv)+len(paths))
	out = append(out, t.argv...)
	return append(out, paths...)
}
