package config

import "fmt"

// Error reports a structurally invalid configuration: a missing key, an
// undefined linter, or a section of the wrong shape.
type Error struct {
	Lang string
	Key  string
	Msg  string
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "":
		return "configuration: " + e.Msg
	case e.Lang != "" && e.Key == "linters":
		return fmt.Sprintf("configuration: linters not specified for language %q", e.Lang)
	case e.Lang != "":
		return fmt.Sprintf("configuration: key %q not found for language %q", e.Key, e.Lang)
	default:
		return fmt.Sprintf("configuration: key %q not found", e.Key)
	}
}
