// Package provider contains the adapters that send a test case validation
// prompt to an external language-model provider and return its raw reply.
//
// Adapters never interpret the reply; validation happens in the engine.
package provider

import (
	"context"
	"sort"
	"strings"
)

// Kind identifies a provider family.
type Kind string

const (
	// KindNone selects no provider; execution is simulated.
	KindNone Kind = ""

	// KindOpenAI is the OpenAI chat completions API
	KindOpenAI Kind = "openai"

	// KindAnthropic is the Anthropic messages API
	KindAnthropic Kind = "anthropic"

	// KindGemini is the Google Gemini API
	KindGemini Kind = "gemini"
)

// Builtin lists every provider kind with a shipped adapter.
var Builtin = []Kind{KindOpenAI, KindAnthropic, KindGemini}

// String returns the provider name, or "none".
func (k Kind) String() string {
	if k == KindNone {
		return "none"
	}
	return string(k)
}

// DisplayName returns the human facing provider name used in execution logs.
func (k Kind) DisplayName() string {
	switch k {
	case KindOpenAI:
		return "OpenAI"
	case KindAnthropic:
		return "Anthropic"
	case KindGemini:
		return "Gemini"
	default:
		return k.String()
	}
}

// ParseKind parses a provider selector. Empty and "none" select KindNone.
func ParseKind(s string) (Kind, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if normalized == "" || normalized == "none" {
		return KindNone, nil
	}
	for _, k := range Builtin {
		if string(k) == normalized {
			return k, nil
		}
	}
	return Kind(normalized), &UnsupportedProviderError{Provider: Kind(normalized)}
}

// Prompt is a rendered validation prompt.
type Prompt struct {
	// System sets the model's role
	System string

	// User carries the test case and the response schema
	User string
}

// CallRequest is a single outbound validation call.
type CallRequest struct {
	// Credential is the provider API key. It is supplied per call and never stored.
	Credential string

	// Model overrides the adapter's default model when non-empty
	Model string

	Prompt Prompt
}

// Adapter performs one blocking round trip to a provider and returns the raw text reply.
//
// Every failure is reported as an *AdapterError carrying the proximate cause.
type Adapter interface {
	// Kind reports which provider family this adapter talks to
	Kind() Kind

	// DefaultModel is the model used when a call does not name one
	DefaultModel() string

	// Call sends the prompt and returns the provider's raw text
	Call(ctx context.Context, req CallRequest) (string, error)
}

func sortedKinds(kinds []Kind) []Kind {
	out := append([]Kind(nil), kinds...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
