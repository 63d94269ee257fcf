package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Reason classifies why an adapter call failed.
type Reason string

const (
	// ReasonAuth means the provider rejected the credential
	ReasonAuth Reason = "auth"

	// ReasonTransport means the request never produced an HTTP response
	ReasonTransport Reason = "transport"

	// ReasonStatus means the provider answered with a non-success status
	ReasonStatus Reason = "status"

	// ReasonUnavailable means the provider client could not be constructed
	ReasonUnavailable Reason = "unavailable"

	// ReasonCanceled means the caller canceled the call or its deadline passed
	ReasonCanceled Reason = "canceled"
)

// AdapterError reports a transport, auth or provider-side failure.
type AdapterError struct {
	Provider   Kind
	Reason     Reason
	StatusCode int
	Err        error
}

func (e *AdapterError) Error() string {
	msg := fmt.Sprintf("%s API error (%s)", e.Provider.DisplayName(), e.Reason)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s API error: %d %s", e.Provider.DisplayName(), e.StatusCode, http.StatusText(e.StatusCode))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// ErrorType returns the failure reason as a metric label.
func (e *AdapterError) ErrorType() string {
	return string(e.Reason)
}

// UnsupportedProviderError reports a provider selector with no adapter.
type UnsupportedProviderError struct {
	Provider Kind
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("unsupported AI provider: %s", string(e.Provider))
}

// statusError converts a non-success HTTP status into an AdapterError.
func statusError(kind Kind, code int, cause error) *AdapterError {
	reason := ReasonStatus
	if code == http.StatusUnauthorized || code == http.StatusForbidden {
		reason = ReasonAuth
	}
	return &AdapterError{Provider: kind, Reason: reason, StatusCode: code, Err: cause}
}

// transportError converts a failed round trip into an AdapterError,
// distinguishing caller cancellation from network failure.
func transportError(ctx context.Context, kind Kind, err error) *AdapterError {
	reason := ReasonTransport
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		reason = ReasonCanceled
	}
	return &AdapterError{Provider: kind, Reason: reason, Err: err}
}

func missingCredential(kind Kind) *AdapterError {
	return &AdapterError{Provider: kind, Reason: ReasonAuth, Err: errors.New("credential is empty")}
}
