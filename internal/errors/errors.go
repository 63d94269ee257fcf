package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Configuration errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigNotFound ErrorCode = "CONFIG-001"
	ErrCodeConfigInvalid  ErrorCode = "CONFIG-002"
	ErrCodeConfigParse    ErrorCode = "CONFIG-003"
	ErrCodeEnvFile        ErrorCode = "CONFIG-004"

	// Test case file errors (CASE-001 to CASE-099)
	ErrCodeCaseNotFound ErrorCode = "CASE-001"
	ErrCodeCaseInvalid  ErrorCode = "CASE-002"
	ErrCodeCaseParse    ErrorCode = "CASE-003"
	ErrCodeCaseEmpty    ErrorCode = "CASE-004"

	// Provider errors (PROVIDER-001 to PROVIDER-099)
	ErrCodeProviderNotFound          ErrorCode = "PROVIDER-001"
	ErrCodeProviderConfig            ErrorCode = "PROVIDER-002"
	ErrCodeProviderCredentialMissing ErrorCode = "PROVIDER-003"

	// History errors (HISTORY-001 to HISTORY-099)
	ErrCodeHistoryOpen     ErrorCode = "HISTORY-001"
	ErrCodeHistoryWrite    ErrorCode = "HISTORY-002"
	ErrCodeHistoryRead     ErrorCode = "HISTORY-003"
	ErrCodeHistoryNotFound ErrorCode = "HISTORY-004"
	ErrCodeHistoryDisabled ErrorCode = "HISTORY-005"

	// Run errors (RUN-001 to RUN-099)
	ErrCodeRunTestsFailed ErrorCode = "RUN-001"
	ErrCodeRunCanceled    ErrorCode = "RUN-002"
)

const docsBase = "https://github.com/felixgeelhaar/verdict"

// VerdictError represents an enhanced error with code, suggestions, and documentation
type VerdictError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	DocsURL     string
	Cause       error
}

// Error implements the error interface
func (e *VerdictError) Error() string {
	var b strings.Builder

	// Error code and message
	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	// Add cause if present
	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	// Add suggestions
	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	// Add documentation link
	if e.DocsURL != "" {
		b.WriteString(fmt.Sprintf("\n\nDocumentation: %s", e.DocsURL))
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *VerdictError) Unwrap() error {
	return e.Cause
}

// New creates a new VerdictError
func New(code ErrorCode, message string) *VerdictError {
	return &VerdictError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new VerdictError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *VerdictError {
	return &VerdictError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *VerdictError) WithSuggestion(suggestion string) *VerdictError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *VerdictError) WithSuggestions(suggestions ...string) *VerdictError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithDocs adds a documentation URL to the error
func (e *VerdictError) WithDocs(url string) *VerdictError {
	e.DocsURL = url
	return e
}

// As finds the first VerdictError in err's chain
func As(err error) (*VerdictError, bool) {
	var ve *VerdictError
	if stderrors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// CodeOf returns the code of the first VerdictError in err's chain, or ""
func CodeOf(err error) ErrorCode {
	if ve, ok := As(err); ok {
		return ve.Code
	}
	return ""
}

// Common error constructors for frequently used errors

// NewConfigNotFoundError creates an explicit config file not found error
func NewConfigNotFoundError(path string) *VerdictError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithSuggestion("Check if the --config path is correct").
		WithSuggestion("Omit --config to run with built-in defaults").
		WithDocs(docsBase + "#configuration")
}

// NewConfigInvalidError creates a config validation error
func NewConfigInvalidError(details string, cause error) *VerdictError {
	return Wrap(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", details), cause).
		WithSuggestion("Review .verdict/config.yaml against the documented schema").
		WithDocs(docsBase + "#configuration")
}

// NewConfigParseError creates a config syntax error
func NewConfigParseError(path string, cause error) *VerdictError {
	return Wrap(ErrCodeConfigParse, fmt.Sprintf("failed to parse configuration: %s", path), cause).
		WithSuggestion("Check the YAML syntax and indentation").
		WithSuggestion("Durations use Go syntax, for example 300ms or 1m")
}

// NewEnvFileError creates an env file load error
func NewEnvFileError(path string, cause error) *VerdictError {
	return Wrap(ErrCodeEnvFile, fmt.Sprintf("failed to load env file: %s", path), cause).
		WithSuggestion("Check if the --env-file path is correct").
		WithSuggestion("Env files use KEY=value lines")
}

// NewCaseNotFoundError creates a test case file not found error
func NewCaseNotFoundError(path string) *VerdictError {
	return New(ErrCodeCaseNotFound, fmt.Sprintf("test case file not found: %s", path)).
		WithSuggestion("Check if the file path is correct").
		WithSuggestion("Verify the file exists and you have read permissions")
}

// NewCaseParseError creates a test case syntax error
func NewCaseParseError(path string, format string, cause error) *VerdictError {
	return Wrap(ErrCodeCaseParse, fmt.Sprintf("failed to parse %s test case file: %s", format, path), cause).
		WithSuggestion("Check the file syntax and format").
		WithSuggestion(fmt.Sprintf("Ensure the file is valid %s", format))
}

// NewCaseInvalidError creates a test case validation error
func NewCaseInvalidError(path string, details string) *VerdictError {
	return New(ErrCodeCaseInvalid, fmt.Sprintf("invalid test case in %s: %s", path, details)).
		WithSuggestion("Every test case needs a non-empty title").
		WithSuggestion("Priority must be Low, Medium or High").
		WithDocs(docsBase + "#test-case-files")
}

// NewCaseEmptyError creates an error for a file holding no test cases
func NewCaseEmptyError(path string) *VerdictError {
	return New(ErrCodeCaseEmpty, fmt.Sprintf("no test cases found in %s", path)).
		WithSuggestion("Add a single test case or a 'cases' list to the file")
}

// NewProviderNotFoundError creates an unknown provider error
func NewProviderNotFoundError(provider string, known []string) *VerdictError {
	return New(ErrCodeProviderNotFound, fmt.Sprintf("unknown provider: %s", provider)).
		WithSuggestion(fmt.Sprintf("Use one of: none, %s", strings.Join(known, ", "))).
		WithSuggestion("Run 'verdict provider list' to see available providers")
}

// NewProviderCredentialMissingError creates a missing credential error
func NewProviderCredentialMissingError(provider string, envVar string) *VerdictError {
	return New(ErrCodeProviderCredentialMissing, fmt.Sprintf("no credential for provider: %s", provider)).
		WithSuggestion(fmt.Sprintf("Set the %s environment variable", envVar)).
		WithSuggestion("Add the key to a .env file and pass --env-file").
		WithDocs(docsBase + "#provider-configuration")
}

// NewHistoryOpenError creates a history store open error
func NewHistoryOpenError(driver string, cause error) *VerdictError {
	return Wrap(ErrCodeHistoryOpen, fmt.Sprintf("failed to open %s history store", driver), cause).
		WithSuggestion("Check history.dsn in the configuration").
		WithSuggestion("Set history.driver to none to disable recording")
}

// NewHistoryWriteError creates a history write error
func NewHistoryWriteError(cause error) *VerdictError {
	return Wrap(ErrCodeHistoryWrite, "failed to record execution history", cause).
		WithSuggestion("Check that the history database is writable")
}

// NewHistoryNotFoundError creates a missing history record error
func NewHistoryNotFoundError(id string) *VerdictError {
	return New(ErrCodeHistoryNotFound, fmt.Sprintf("execution record not found: %s", id)).
		WithSuggestion("Run 'verdict history list' to see recorded executions")
}

// NewHistoryDisabledError creates an error for history commands without a store
func NewHistoryDisabledError() *VerdictError {
	return New(ErrCodeHistoryDisabled, "execution history is disabled").
		WithSuggestion("Set history.driver to sqlite or postgres in the configuration")
}

// NewTestsFailedError reports that at least one verdict was Failed
func NewTestsFailedError(failed, total int) *VerdictError {
	return New(ErrCodeRunTestsFailed, fmt.Sprintf("%d of %d test cases failed", failed, total))
}
