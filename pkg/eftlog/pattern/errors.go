package pattern

import (
	"errors"
	"fmt"
)

// Sentinel errors for unreadable pattern files.
var (
	ErrEmptyFile      = errors.New("pattern file is empty")
	ErrFileTooLarge   = errors.New("pattern file too large")
	ErrNotRegularFile = errors.New("pattern file must be a regular file")
)

// ValidationError reports a problem with the file as a whole, such as an
// unsupported version or an empty pattern list.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// PatternError reports a problem with one pattern.
type PatternError struct {
	Index   int    // 0-based position in the file
	ID      string // empty when the id itself is missing
	Field   string
	Message string
	Cause   error
}

func (e *PatternError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("pattern %q: %s: %s", e.ID, e.Field, e.Message)
	}
	return fmt.Sprintf("pattern[%d]: %s: %s", e.Index, e.Field, e.Message)
}

func (e *PatternError) Unwrap() error {
	return e.Cause
}
