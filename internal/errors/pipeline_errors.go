package errors

import (
	"errors"
	"fmt"
	"strings"
)

// SchemaError reports required input columns that are entirely absent.
// It is fatal for the run.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("[%s] required columns missing: %s", ErrTypeSchema, strings.Join(e.Missing, ", "))
}

// NewSchemaError creates a schema error for the missing columns
func NewSchemaError(missing ...string) *SchemaError {
	return &SchemaError{Missing: missing}
}

// AggregationError reports that one gold view could not be computed.
// It is recoverable: sibling views are unaffected.
type AggregationError struct {
	View  string
	Cause error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", ErrTypeAggregation, e.View, e.Cause)
}

func (e *AggregationError) Unwrap() error {
	return e.Cause
}

// NewAggregationError creates an aggregation error for a view
func NewAggregationError(view string, cause error) *AggregationError {
	return &AggregationError{View: view, Cause: cause}
}

// IsSchemaError reports whether err wraps a SchemaError.
func IsSchemaError(err error) bool {
	var schemaErr *SchemaError
	return errors.As(err, &schemaErr)
}

// IsAggregationError reports whether err wraps an AggregationError.
func IsAggregationError(err error) bool {
	var aggErr *AggregationError
	return errors.As(err, &aggErr)
}
