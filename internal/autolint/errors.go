package autolint

import "fmt"

// IOError reports a target, configuration or ignore path that cannot be
// used. It is returned by New, before any file is linted.
type IOError struct {
	Path   string
	Reason string
	Err    error
}

func (e *IOError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
