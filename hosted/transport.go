// Package hosted provides the HTTP transport for the hosted answer service.
package hosted

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/i2y/brandlink/api"
)

// Name is the registry name of this transport.
const Name = "hosted"

func init() {
	api.Register(Name, func(s api.Settings) (api.Transport, error) {
		t, err := New(WithSettings(s))
		if err != nil {
			return nil, err
		}
		return t, nil
	})
}

// Transport implements api.Transport over HTTP.
type Transport struct {
	client *client
}

// Option configures the hosted transport.
type Option func(*transportConfig)

type transportConfig struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
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

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *transportConfig) {
		c.httpClient = client
	}
}

// WithTimeout sets the request timeout. Zero or negative uses the 30s default.
func WithTimeout(d time.Duration) Option {
	return func(c *transportConfig) {
		c.timeout = d
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *transportConfig) {
		c.userAgent = ua
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

// New creates a hosted transport.
func New(opts ...Option) (*Transport, error) {
	cfg := &transportConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	// Fall back to environment variables
	if cfg.apiKey == "" {
		cfg.apiKey = os.Getenv("BRANDLINK_API_KEY")
	}
	if cfg.baseURL == "" {
		cfg.baseURL = os.Getenv("BRANDLINK_BASE_URL")
	}

	if cfg.apiKey == "" {
		return nil, api.Validation("API key required: set BRANDLINK_API_KEY or use WithAPIKey")
	}

	return &Transport{client: newClient(cfg)}, nil
}

// Name returns the transport identifier.
func (t *Transport) Name() string {
	return Name
}

// Answer implements api.Transport.
func (t *Transport) Answer(ctx context.Context, req *api.Request) (*api.Response, error) {
	return t.client.answer(ctx, req)
}

// AnswerStream implements api.Transport.
func (t *Transport) AnswerStream(ctx context.Context, req *api.Request) (io.ReadCloser, error) {
	return t.client.answerStream(ctx, req)
}

// RegisterImpression implements api.Transport.
func (t *Transport) RegisterImpression(ctx context.Context, imp *api.Impression) error {
	return t.client.registerImpression(ctx, imp)
}
