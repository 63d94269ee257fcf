package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/felixgeelhaar/verdict/internal/version"
)

const anthropicVersion = "2023-06-01"

// AnthropicAdapter calls the Anthropic messages API over plain HTTP.
type AnthropicAdapter struct {
	client   *http.Client
	settings Settings
}

// Anthropic API request/response structures
type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	Role       string             `json:"role"`
	Content    []anthropicContent `json:"content"`
	Model      string             `json:"model"`
	StopReason string             `json:"stop_reason,omitempty"`
	Error      *anthropicError    `json:"error,omitempty"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewAnthropicAdapter creates an Anthropic adapter. A nil httpClient uses http.DefaultClient.
func NewAnthropicAdapter(settings Settings, httpClient *http.Client) *AnthropicAdapter {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &AnthropicAdapter{
		client:   httpClient,
		settings: settings.WithDefaults(KindAnthropic),
	}
}

// Kind implements Adapter.
func (a *AnthropicAdapter) Kind() Kind { return KindAnthropic }

// DefaultModel implements Adapter.
func (a *AnthropicAdapter) DefaultModel() string { return a.settings.Model }

// Call implements Adapter.
func (a *AnthropicAdapter) Call(ctx context.Context, req CallRequest) (string, error) {
	if req.Credential == "" {
		return "", missingCredential(KindAnthropic)
	}

	if a.settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.settings.Timeout)
		defer cancel()
	}

	reqBody, err := json.Marshal(anthropicRequest{
		Model:       a.settings.resolveModel(req.Model),
		Messages:    []anthropicMessage{{Role: "user", Content: req.Prompt.User}},
		System:      req.Prompt.System,
		MaxTokens:   a.settings.MaxTokens,
		Temperature: floatPtr(a.settings.temperature()),
	})
	if err != nil {
		return "", &AdapterError{Provider: KindAnthropic, Reason: ReasonUnavailable, Err: fmt.Errorf("marshal request: %w", err)}
	}

	url := strings.TrimRight(a.settings.BaseURL, "/") + "/messages"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return "", &AdapterError{Provider: KindAnthropic, Reason: ReasonUnavailable, Err: fmt.Errorf("create request: %w", err)}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", req.Credential)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	httpReq.Header.Set("User-Agent", version.UserAgent())

	httpResp, err := a.client.Do(httpReq)
	if err != nil {
		return "", transportError(ctx, KindAnthropic, fmt.Errorf("send request: %w", err))
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", transportError(ctx, KindAnthropic, fmt.Errorf("read response: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		var errResp anthropicResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != nil {
			return "", statusError(KindAnthropic, httpResp.StatusCode, errors.New(errResp.Error.Message))
		}
		return "", statusError(KindAnthropic, httpResp.StatusCode, fmt.Errorf("%s", strings.TrimSpace(string(respBody))))
	}

	var anthResp anthropicResponse
	if err := json.Unmarshal(respBody, &anthResp); err != nil {
		return "", &AdapterError{Provider: KindAnthropic, Reason: ReasonStatus, Err: fmt.Errorf("unmarshal response: %w", err)}
	}

	for _, block := range anthResp.Content {
		if block.Type == "" || block.Type == "text" {
			return block.Text, nil
		}
	}

	return "", &AdapterError{Provider: KindAnthropic, Reason: ReasonStatus, Err: errors.New("response contained no text content")}
}

var _ Adapter = (*AnthropicAdapter)(nil)
