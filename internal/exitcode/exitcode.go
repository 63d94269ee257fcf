package exitcode

import (
	"errors"
	"os"
	"strings"

	verdicterrors "github.com/felixgeelhaar/verdict/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates every test case passed
	Success = 0

	// GeneralError indicates a general error condition
	GeneralError = 1

	// UsageError indicates invalid command usage (bad flags, missing args, etc.)
	UsageError = 2

	// TestsFailed indicates at least one test case ended with a Failed verdict
	TestsFailed = 3

	// ConfigError indicates an unreadable or invalid configuration or case file
	ConfigError = 4

	// HistoryError indicates the execution history store failed
	HistoryError = 5

	// NetworkError indicates a network connectivity issue
	NetworkError = 6

	// Interrupted indicates the run was canceled by a signal
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	if err == nil {
		Exit(Success)
		return
	}

	code := DetermineExitCode(err)
	Exit(code)
}

// DetermineExitCode analyzes an error and returns the appropriate exit code.
// Coded errors are mapped by code family; anything else by message.
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	if code := verdicterrors.CodeOf(err); code != "" {
		return fromCode(code)
	}

	if errors.Is(err, os.ErrDeadlineExceeded) {
		return NetworkError
	}

	errMsg := strings.ToLower(err.Error())

	// Network errors
	if strings.Contains(errMsg, "network") || strings.Contains(errMsg, "connection") {
		return NetworkError
	}
	if strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "unreachable") {
		return NetworkError
	}
	if strings.Contains(errMsg, "dns") || strings.Contains(errMsg, "no route to host") {
		return NetworkError
	}
	if strings.Contains(errMsg, "service unavailable") || strings.Contains(errMsg, "bad gateway") {
		return NetworkError
	}

	// Usage errors
	if strings.Contains(errMsg, "invalid flag") || strings.Contains(errMsg, "unknown command") {
		return UsageError
	}
	if strings.Contains(errMsg, "unknown flag") || strings.Contains(errMsg, "unknown shorthand flag") {
		return UsageError
	}
	if strings.Contains(errMsg, "required flag") || strings.Contains(errMsg, "missing argument") {
		return UsageError
	}
	if strings.Contains(errMsg, "invalid argument") {
		return UsageError
	}
	if strings.Contains(errMsg, "accepts") && strings.Contains(errMsg, "arg(s)") {
		return UsageError
	}

	// Default to general error
	return GeneralError
}

func fromCode(code verdicterrors.ErrorCode) int {
	switch {
	case code == verdicterrors.ErrCodeRunTestsFailed:
		return TestsFailed
	case code == verdicterrors.ErrCodeRunCanceled:
		return Interrupted
	case strings.HasPrefix(string(code), "CONFIG-"), strings.HasPrefix(string(code), "CASE-"):
		return ConfigError
	case strings.HasPrefix(string(code), "PROVIDER-"):
		return UsageError
	case strings.HasPrefix(string(code), "HISTORY-"):
		return HistoryError
	default:
		return GeneralError
	}
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags or arguments)"
	case TestsFailed:
		return "One or more test cases failed"
	case ConfigError:
		return "Configuration or test case file error"
	case HistoryError:
		return "Execution history error"
	case NetworkError:
		return "Network error"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}
