package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// errNoJSONObject is the cause when a reply contains no {...} span.
var errNoJSONObject = errors.New("no JSON object found in AI response")

// MalformedResponseError reports a provider reply that is not a usable verdict object.
type MalformedResponseError struct {
	// Raw is the reply as received
	Raw string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed AI response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// validationResponse mirrors the JSON schema requested in the validation prompt.
type validationResponse struct {
	Status          *string  `json:"status"`
	Confidence      *float64 `json:"confidence"`
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
	ErrorMessage    *string  `json:"error_message"`
}

// ValidateResponse extracts the verdict object embedded in a provider reply.
//
// The candidate object spans from the first '{' to the last '}'. A missing
// span, invalid JSON, a field of the wrong type, or a status other than
// Passed or Failed yields *MalformedResponseError and no log entries.
func ValidateResponse(raw string) (Outcome, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end < start {
		return Outcome{}, &MalformedResponseError{Raw: raw, Err: errNoJSONObject}
	}

	var resp validationResponse
	if err := json.Unmarshal([]byte(raw[start:end+1]), &resp); err != nil {
		return Outcome{}, &MalformedResponseError{Raw: raw, Err: err}
	}

	verdict := Failed
	if resp.Status != nil {
		switch strings.ToLower(strings.TrimSpace(*resp.Status)) {
		case "passed":
			verdict = Passed
		case "failed":
			verdict = Failed
		default:
			return Outcome{}, &MalformedResponseError{Raw: raw, Err: fmt.Errorf("unknown status %q", *resp.Status)}
		}
	}

	confidence := 0.0
	if resp.Confidence != nil {
		confidence = *resp.Confidence
	}

	var log logBuffer
	for _, issue := range resp.Issues {
		log.add(CategoryWarning, "AI detected issue: %s", issue)
	}
	for _, rec := range resp.Recommendations {
		log.add(CategoryInfo, "AI recommendation: %s", rec)
	}

	summary := CategoryError
	if verdict == Passed {
		summary = CategorySuccess
	}
	log.add(summary, "AI validation result: %s (confidence: %.2f)", verdict, confidence)

	out := Outcome{Verdict: verdict, Log: log.entries}
	if verdict == Failed {
		out.ErrorMessage = "AI validation failed"
		if resp.ErrorMessage != nil && strings.TrimSpace(*resp.ErrorMessage) != "" {
			out.ErrorMessage = *resp.ErrorMessage
		}
	}

	return out, nil
}
