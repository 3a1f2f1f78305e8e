package cleaner

import (
	"errors"
	"fmt"
)

// ErrPending is returned by a Gate that has recorded the review but has no
// decision yet. The run stays suspended until it is resumed.
var ErrPending = errors.New("review decision pending")

// MissingColumnError reports that no header matched a required role.
type MissingColumnError struct {
	Column string
	Source string
}

func (e *MissingColumnError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("no '%s' column found", e.Column)
	}
	return fmt.Sprintf("no '%s' column found in %s", e.Column, e.Source)
}

// ProcessingError wraps any other failure while cleaning a table.
type ProcessingError struct {
	Source string
	Err    error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("processing %s: %v", e.Source, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}
