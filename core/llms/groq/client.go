package groq

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/koscakluka/ema-sales/core/llms"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultURL   = "https://api.groq.com/openai/v1/chat/completions"
	DefaultModel = "llama-3.3-70b-versatile"
)

var _ llms.Generator = (*Client)(nil)

// Client generates replies through Groq's OpenAI compatible chat completions
// endpoint.
type Client struct {
	apiKey       string
	model        string
	url          string
	instructions string
	httpClient   *http.Client
}

type ClientOption func(*Client)

func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// WithInstructions sets a system message sent ahead of every prompt.
func WithInstructions(instructions string) ClientOption {
	return func(c *Client) {
		c.instructions = instructions
	}
}

// WithURL overrides the chat completions endpoint.
func WithURL(url string) ClientOption {
	return func(c *Client) {
		c.url = url
	}
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey: apiKey,
		model:  DefaultModel,
		url:    defaultURL,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
				return operationName + " " + request.URL.Path
			}),
		)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate streams a completion for prompt and returns the joined text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	text, usage, err := llms.Collect(ctx, c.Stream(prompt))
	if err != nil {
		return "", err
	}

	logger.DebugContext(ctx, "generated reply",
		slog.String("model", c.model),
		slog.Int("usage.input", usage.InputTokens),
		slog.Int("usage.output", usage.OutputTokens))
	return text, nil
}

// Stream prepares a streamed completion for prompt. Nothing is sent until the
// chunks are ranged over.
func (c *Client) Stream(prompt string) *Stream {
	return &Stream{
		client:   c,
		messages: toMessages(c.instructions, prompt),
	}
}
