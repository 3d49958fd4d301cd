// Package provider carries the shared error type for external speech and
// language-model collaborators.
package provider

import "fmt"

// Error describes a failed call to an external provider. Name identifies the
// provider ("assemblyai", "murf", "ark"), Op the operation that failed.
type Error struct {
	Name   string
	Op     string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s failed: status %d: %v", e.Name, e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Name, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf builds an Error with a formatted cause.
func Errorf(name, op string, format string, args ...any) *Error {
	return &Error{Name: name, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap builds an Error around an underlying cause.
func Wrap(name, op string, err error) *Error {
	return &Error{Name: name, Op: op, Err: err}
}
