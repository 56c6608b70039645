package qtbundle

import (
	"errors"
	"fmt"
)

// ErrMissingInput reports a required flag or environment variable left unset.
var ErrMissingInput = errors.New("required input not set")

// Error represents a qtbundle error with additional context and actionable guidance.
type Error struct {
	Op   string // Operation that failed (e.g., "copy framework", "rewrite install name")
	Err  error  // Underlying error
	Help string // Actionable guidance for the user
}

func (e *Error) Error() string {
	if e.Help != "" {
		return fmt.Sprintf("qtbundle: %s: %v\n  hint: %s", e.Op, e.Err, e.Help)
	}
	return fmt.Sprintf("qtbundle: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
