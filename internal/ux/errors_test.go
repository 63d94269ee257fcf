package ux

import (
	"errors"
	"strings"
	"testing"

	verdicterrors "github.com/felixgeelhaar/verdict/internal/errors"
)

func TestNewErrorWithSuggestion(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		suggestion string
		wantNil    bool
	}{
		{
			name:       "nil error returns nil",
			err:        nil,
			suggestion: "some suggestion",
			wantNil:    true,
		},
		{
			name:       "error with suggestion",
			err:        errors.New("something failed"),
			suggestion: "try this fix",
		},
		{
			name:       "error without suggestion",
			err:        errors.New("something failed"),
			suggestion: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewErrorWithSuggestion(tt.err, tt.suggestion)
			if tt.wantNil {
				if result != nil {
					t.Errorf("NewErrorWithSuggestion() = %v, want nil", result)
				}
				return
			}

			if result == nil {
				t.Fatal("NewErrorWithSuggestion() returned nil, want error")
			}

			errMsg := result.Error()
			if !strings.Contains(errMsg, tt.err.Error()) {
				t.Errorf("Error message %q does not contain original error %q", errMsg, tt.err.Error())
			}

			if tt.suggestion != "" && !strings.Contains(errMsg, tt.suggestion) {
				t.Errorf("Error message %q does not contain suggestion %q", errMsg, tt.suggestion)
			}

			if !errors.Is(result, tt.err) {
				t.Error("wrapped error should unwrap to the original")
			}
		})
	}
}

func TestEnhanceError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		wantSuggestion string
	}{
		{
			name:           "missing file",
			err:            errors.New("open cases.yaml: no such file or directory"),
			wantSuggestion: "case files are YAML or JSON",
		},
		{
			name:           "locked sqlite",
			err:            errors.New("database is locked (5) (SQLITE_BUSY)"),
			wantSuggestion: "--concurrency",
		},
		{
			name:           "refused connection",
			err:            errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"),
			wantSuggestion: "history.dsn",
		},
		{
			name:           "bad format",
			err:            errors.New("unknown format: xml (supported: text, json, yaml)"),
			wantSuggestion: "--format text, json or yaml",
		},
		{
			name: "unmatched error is unchanged",
			err:  errors.New("something odd"),
		},
		{
			name: "coded error is unchanged",
			err:  verdicterrors.NewCaseNotFoundError("no such file or directory"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EnhanceError(tt.err)
			if tt.wantSuggestion == "" {
				if got != tt.err {
					t.Errorf("EnhanceError() = %v, want the original error", got)
				}
				return
			}
			if !strings.Contains(got.Error(), tt.wantSuggestion) {
				t.Errorf("EnhanceError() = %q, want suggestion containing %q", got.Error(), tt.wantSuggestion)
			}
		})
	}

	if EnhanceError(nil) != nil {
		t.Error("EnhanceError(nil) should be nil")
	}
}

func TestFormatError(t *testing.T) {
	if FormatError(nil, "ctx") != nil {
		t.Error("FormatError(nil) should be nil")
	}

	base := errors.New("something odd")
	got := FormatError(base, "loading cases")
	if got.Error() != "loading cases: something odd" {
		t.Errorf("FormatError() = %q", got.Error())
	}
	if !errors.Is(got, base) {
		t.Error("FormatError() should wrap the original error")
	}
}
