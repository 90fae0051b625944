package ingest

import (
	"fmt"
	"strings"
)

// FormatError means no encoding/delimiter combination produced a table with
// the expected date column. It is fatal for the upload and surfaced to the
// caller as-is.
type FormatError struct {
	Err error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("could not detect a valid export format (encoding/delimiter): %v", e.Err)
	}
	return "could not detect a valid export format (encoding/delimiter)"
}

func (e *FormatError) Unwrap() error { return e.Err }

// SchemaError means required columns are still missing after alias
// reconciliation. Available carries the columns that were found, so the
// caller can tell the user what the file actually looked like.
type SchemaError struct {
	Missing   []string
	Available []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s (available: %s)",
		strings.Join(e.Missing, ", "), strings.Join(e.Available, ", "))
}
