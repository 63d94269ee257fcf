package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"google.golang.org/genai"

	"github.com/felixgeelhaar/verdict/internal/version"
)

// GeminiAdapter calls the Gemini API through the Google GenAI SDK.
//
// The SDK binds the API key at client construction, so a client is built per call.
type GeminiAdapter struct {
	httpClient *http.Client
	settings   Settings
}

// NewGeminiAdapter creates a Gemini adapter. A nil httpClient uses http.DefaultClient.
func NewGeminiAdapter(settings Settings, httpClient *http.Client) *GeminiAdapter {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &GeminiAdapter{
		httpClient: httpClient,
		settings:   settings.WithDefaults(KindGemini),
	}
}

// Kind implements Adapter.
func (a *GeminiAdapter) Kind() Kind { return KindGemini }

// DefaultModel implements Adapter.
func (a *GeminiAdapter) DefaultModel() string { return a.settings.Model }

// Call implements Adapter.
func (a *GeminiAdapter) Call(ctx context.Context, req CallRequest) (string, error) {
	if req.Credential == "" {
		return "", missingCredential(KindGemini)
	}

	if a.settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.settings.Timeout)
		defer cancel()
	}

	recorder := &statusRecorder{base: a.httpClient.Transport}
	httpClient := *a.httpClient
	httpClient.Transport = recorder

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      req.Credential,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  &httpClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: a.settings.BaseURL,
			Headers: http.Header{"User-Agent": []string{version.UserAgent()}},
		},
	})
	if err != nil {
		return "", &AdapterError{Provider: KindGemini, Reason: ReasonUnavailable, Err: fmt.Errorf("create client: %w", err)}
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.Prompt.System, genai.RoleUser),
		Temperature:       genai.Ptr(float32(a.settings.temperature())),
	}
	if a.settings.MaxTokens > 0 {
		config.MaxOutputTokens = int32(a.settings.MaxTokens)
	}

	resp, err := client.Models.GenerateContent(ctx, a.settings.resolveModel(req.Model), genai.Text(req.Prompt.User), config)
	if err != nil {
		if code := recorder.lastStatus(); code >= http.StatusBadRequest {
			return "", statusError(KindGemini, code, err)
		}
		return "", transportError(ctx, KindGemini, err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", &AdapterError{Provider: KindGemini, Reason: ReasonStatus, Err: errors.New("response contained no candidates")}
	}

	return resp.Text(), nil
}

// statusRecorder remembers the status code of the last response it carried.
type statusRecorder struct {
	base http.RoundTripper

	mu     sync.Mutex
	status int
}

func (r *statusRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	base := r.base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	if resp != nil {
		r.mu.Lock()
		r.status = resp.StatusCode
		r.mu.Unlock()
	}
	return resp, err
}

func (r *statusRecorder) lastStatus() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

var _ Adapter = (*GeminiAdapter)(nil)
