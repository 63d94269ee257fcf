package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/felixgeelhaar/verdict/internal/version"
)

// OpenAIAdapter calls the OpenAI chat completions API through the official SDK.
type OpenAIAdapter struct {
	client   openai.Client
	settings Settings
}

// NewOpenAIAdapter creates an OpenAI adapter. A nil httpClient uses the SDK default.
func NewOpenAIAdapter(settings Settings, httpClient *http.Client) *OpenAIAdapter {
	settings = settings.WithDefaults(KindOpenAI)

	opts := []option.RequestOption{
		option.WithBaseURL(settings.BaseURL),
		// Exactly one round trip per execution.
		option.WithMaxRetries(0),
		option.WithHeader("User-Agent", version.UserAgent()),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	return &OpenAIAdapter{
		client:   openai.NewClient(opts...),
		settings: settings,
	}
}

// Kind implements Adapter.
func (a *OpenAIAdapter) Kind() Kind { return KindOpenAI }

// DefaultModel implements Adapter.
func (a *OpenAIAdapter) DefaultModel() string { return a.settings.Model }

// Call implements Adapter.
func (a *OpenAIAdapter) Call(ctx context.Context, req CallRequest) (string, error) {
	if req.Credential == "" {
		return "", missingCredential(KindOpenAI)
	}

	if a.settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.settings.Timeout)
		defer cancel()
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(a.settings.resolveModel(req.Model)),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.Prompt.System),
			openai.UserMessage(req.Prompt.User),
		},
		Temperature: openai.Float(a.settings.temperature()),
	}
	if a.settings.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(a.settings.MaxTokens))
	}

	completion, err := a.client.Chat.Completions.New(ctx, params, option.WithAPIKey(req.Credential))
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			// openai.Error can panic on Error() when built without a request, so only the code is kept.
			return "", statusError(KindOpenAI, apiErr.StatusCode, fmt.Errorf("http %d", apiErr.StatusCode))
		}
		return "", transportError(ctx, KindOpenAI, err)
	}

	if len(completion.Choices) == 0 {
		return "", &AdapterError{Provider: KindOpenAI, Reason: ReasonStatus, Err: errors.New("response contained no choices")}
	}

	return completion.Choices[0].Message.Content, nil
}

var _ Adapter = (*OpenAIAdapter)(nil)
