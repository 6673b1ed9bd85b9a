package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInsufficientData signals that a query asked for more data than exists.
var ErrInsufficientData = errors.New("insufficient data")

// DataError is a fatal structural problem with a run's input. It aborts the
// run; no artifact is published.
type DataError struct {
	Stage   string
	Reason  string
	Missing []string
}

func (e *DataError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("%s: %s: missing columns [%s]", e.Stage, e.Reason, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Reason)
}

// NewDataError builds a DataError for stage.
func NewDataError(stage, format string, args ...any) *DataError {
	return &DataError{Stage: stage, Reason: fmt.Sprintf(format, args...)}
}

// ParseError describes a malformed input row. The row is dropped.
type ParseError struct {
	Row   int
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d: field %s: cannot parse %q: %v", e.Row, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// DropReport tallies rows dropped from a stage input.
type DropReport struct {
	Total   int
	ByField map[string]int
}

// Add counts a dropped row. Non ParseError values are counted under "row".
func (r *DropReport) Add(err error) {
	if r.ByField == nil {
		r.ByField = map[string]int{}
	}
	r.Total++
	var pe *ParseError
	if errors.As(err, &pe) {
		r.ByField[pe.Field]++
		return
	}
	r.ByField["row"]++
}

// Merge adds the counts of o to r.
func (r *DropReport) Merge(o DropReport) {
	if o.Total == 0 {
		return
	}
	if r.ByField == nil {
		r.ByField = map[string]int{}
	}
	r.Total += o.Total
	for k, v := range o.ByField {
		r.ByField[k] += v
	}
}

func (r DropReport) String() string {
	if r.Total == 0 {
		return "0 dropped"
	}
	keys := make([]string, 0, len(r.ByField))
	for k := range r.ByField {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, r.ByField[k])
	}
	return fmt.Sprintf("%d dropped (%s)", r.Total, strings.Join(parts, ", "))
}
