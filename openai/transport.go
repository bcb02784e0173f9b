// Package openai answers questions through an OpenAI-compatible chat
// completions endpoint. Answers carry no brand placement, so nothing is ever
// tracked; the transport serves development and fallback setups that speak
// the same client API.
//
// Select it by name after importing the package:
//
//	import _ "github.com/i2y/brandlink/openai"
//
//	client, err := answer.New(answer.WithTransportName("openai"))
package openai

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/i2y/brandlink/api"
)

// Name is the registry name of this transport.
const Name = "openai"

func init() {
	api.Register(Name, func(s api.Settings) (api.Transport, error) {
		t, err := New(WithSettings(s))
		if err != nil {
			return nil, err
		}
		return t, nil
	})
}

// Transport implements api.Transport over chat completions.
type Transport struct {
	client *client
}

// Option configures the transport.
type Option func(*transportConfig)

type transportConfig struct {
	apiKey       string
	baseURL      string
	model        string
	systemPrompt string
	httpClient   *http.Client
	timeout      time.Duration
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *transportConfig) {
		c.apiKey = key
	}
}

// WithBaseURL sets a custom base URL.
func WithBaseURL(url string) Option {
	return func(c *transportConfig) {
		c.baseURL = url
	}
}

// WithModel sets the model used when a request names none.
func WithModel(model string) Option {
	return func(c *transportConfig) {
		c.model = model
	}
}

// WithSystemPrompt prepends a system message to every request.
func WithSystemPrompt(prompt string) Option {
	return func(c *transportConfig) {
		c.systemPrompt = prompt
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *transportConfig) {
		c.httpClient = client
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *transportConfig) {
		c.timeout = d
	}
}

// WithSettings applies the non-zero fields of s.
func WithSettings(s api.Settings) Option {
	return func(c *transportConfig) {
		if s.APIKey != "" {
			c.apiKey = s.APIKey
		}
		if s.BaseURL != "" {
			c.baseURL = s.BaseURL
		}
		if s.Timeout > 0 {
			c.timeout = s.Timeout
		}
		if s.HTTPClient != nil {
			c.httpClient = s.HTTPClient
		}
	}
}

// New creates the transport. The key falls back to OPENAI_API_KEY and the
// base URL to OPENAI_BASE_URL.
func New(opts ...Option) (*Transport, error) {
	cfg := &transportConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.apiKey == "" {
		cfg.apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.baseURL == "" {
		cfg.baseURL = os.Getenv("OPENAI_BASE_URL")
	}

	if cfg.apiKey == "" {
		return nil, api.Validation("OpenAI API key required: set OPENAI_API_KEY or use WithAPIKey")
	}

	return &Transport{client: newClient(cfg)}, nil
}

// Name returns the transport identifier.
func (t *Transport) Name() string {
	return Name
}

// Answer implements api.Transport.
func (t *Transport) Answer(ctx context.Context, req *api.Request) (*api.Response, error) {
	return t.client.chatCompletion(ctx, req)
}

// AnswerStream implements api.Transport. The body uses Separator between
// the answer text and the metadata object.
func (t *Transport) AnswerStream(ctx context.Context, req *api.Request) (io.ReadCloser, error) {
	return t.client.chatCompletionStream(ctx, req)
}

// Separator implements api.Framer.
func (t *Transport) Separator() string {
	return separator
}

// RegisterImpression implements api.Transport. Answers from this transport
// never carry a tracking code, so there is nothing to record.
func (t *Transport) RegisterImpression(context.Context, *api.Impression) error {
	return nil
}
