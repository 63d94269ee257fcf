package ux

import (
	"fmt"
	"strings"

	verdicterrors "github.com/felixgeelhaar/verdict/internal/errors"
)

// ErrorWithSuggestion wraps an error with helpful recovery suggestions
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

// Error implements the error interface
func (e *ErrorWithSuggestion) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%v\n\nSuggestion: %s", e.Err, e.Suggestion)
	}
	return e.Err.Error()
}

// Unwrap provides access to the underlying error
func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// NewErrorWithSuggestion creates a new error with a suggestion
func NewErrorWithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
	}
}

// EnhanceError adds a suggestion to uncoded errors that match a known pattern.
// Coded errors already carry their own suggestions and are returned unchanged.
func EnhanceError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := verdicterrors.As(err); ok {
		return err
	}

	errMsg := err.Error()

	switch {
	case strings.Contains(errMsg, "no such file or directory"):
		return NewErrorWithSuggestion(err, "Check the path; case files are YAML or JSON")
	case strings.Contains(errMsg, "permission denied"):
		return NewErrorWithSuggestion(err, "Check file permissions on the case files and the .verdict directory")
	case strings.Contains(errMsg, "database is locked"):
		return NewErrorWithSuggestion(err, "Another verdict process holds the history database; retry or lower --concurrency")
	case strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "no route to host"):
		return NewErrorWithSuggestion(err, "Check your network connection and the history.dsn host")
	case strings.Contains(errMsg, "unknown format"):
		return NewErrorWithSuggestion(err, "Use --format text, json or yaml")
	}

	return err
}

// FormatError provides consistent error formatting with context
func FormatError(err error, context string) error {
	if err == nil {
		return nil
	}

	enhanced := EnhanceError(err)
	if context != "" {
		return fmt.Errorf("%s: %w", context, enhanced)
	}
	return enhanced
}
