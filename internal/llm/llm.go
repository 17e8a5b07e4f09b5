package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

type Message struct {
	Role    string
	Content string
}

type Client interface {
	Complete(ctx context.Context, messages []Message, opts ...CompleteOption) (string, error)
}

type Option func(*clientOptions)

type clientOptions struct {
	baseURL string
	headers map[string]string
}

func WithBaseURL(url string) Option {
	return func(o *clientOptions) {
		o.baseURL = url
	}
}

// WithHeaders adds static headers to every provider request, e.g. the
// attribution headers OpenRouter reads.
func WithHeaders(headers map[string]string) Option {
	return func(o *clientOptions) {
		if len(headers) == 0 {
			return
		}
		if o.headers == nil {
			o.headers = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			o.headers[k] = v
		}
	}
}

// CompleteOption tunes a single completion call.
type CompleteOption func(*callOptions)

type callOptions struct {
	jsonResponse bool
	temperature  *float32
}

// WithJSONResponse asks the provider for a single JSON object as output.
func WithJSONResponse() CompleteOption {
	return func(o *callOptions) {
		o.jsonResponse = true
	}
}

func WithTemperature(t float32) CompleteOption {
	return func(o *callOptions) {
		o.temperature = &t
	}
}

func applyCallOptions(opts []CompleteOption) callOptions {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func ParseModel(model string) (provider, modelName string, err error) {
	parts := strings.SplitN(model, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid model format %q: expected provider/model_name", model)
	}
	return parts[0], parts[1], nil
}

func NewClient(provider, apiKey, model string, opts ...Option) (Client, error) {
	o := &clientOptions{}
	for _, opt := range opts {
		opt(o)
	}

	switch provider {
	case "openai", "openrouter":
		return newOpenAIClient(apiKey, model, o)
	case "anthropic":
		return newAnthropicClient(apiKey, model, o)
	case "gemini":
		return newGeminiClient(apiKey, model, o)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q: supported providers are openai, openrouter, anthropic, gemini", provider)
	}
}

type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}
