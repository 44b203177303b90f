package dataset

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFunc is returned for an aggregation function other than
// sum, mean or median.
var ErrUnsupportedFunc = errors.New("unsupported aggregation function")

// LoadError reports a source that could not be read or carries no usable
// columns. It is fatal to the requesting operation and never retried.
type LoadError struct {
	Source string
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load %s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("load %s: %s", e.Source, e.Reason)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ColumnNotFoundError reports a requested column that is absent from the
// loaded schema.
type ColumnNotFoundError struct {
	Column string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("column %q not found", e.Column)
}

// ColumnTypeError reports a column that exists but has the wrong kind for the
// requested operation, e.g. a text column used as a metric.
type ColumnTypeError struct {
	Column string
	Want   string
	Got    string
}

func (e *ColumnTypeError) Error() string {
	return fmt.Sprintf("column %q is %s, want %s", e.Column, e.Got, e.Want)
}
