package answer

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/i2y/brandlink/api"
	"github.com/i2y/brandlink/dispatch"
	"github.com/i2y/brandlink/hosted"
	"github.com/i2y/brandlink/stream"
)

type (
	// Request is a question for the answer service.
	Request = api.Request
	// Response is the non-streaming answer.
	Response = api.Response
	// Metadata is the brand placement data that ends every answer.
	Metadata = api.Metadata
	// Event is a single streamed text snapshot or the terminal metadata.
	Event = stream.Event[api.Metadata]
)

// Client talks to the answer service. Its configuration is fixed at
// construction; concurrent calls share nothing else.
type Client struct {
	transport  api.Transport
	model      string
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	apiKey        string
	baseURL       string
	model         string
	timeout       time.Duration
	httpClient    *http.Client
	transport     api.Transport
	transportName string
	registry      *dispatch.Registry
	logger        *slog.Logger
	retries       uint64
	retryInterval time.Duration
	onImpression  func(*api.Impression, error)
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *clientConfig) {
		c.apiKey = key
	}
}

// WithBaseURL sets a custom service URL.
func WithBaseURL(url string) Option {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// WithModel sets the model used when a request does not name one.
func WithModel(model string) Option {
	return func(c *clientConfig) {
		c.model = model
	}
}

// WithTimeout bounds each request until its response headers arrive and,
// for streams, each later wait for more of the body. The default is 30
// seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = d
	}
}

// WithHTTPClient sets the HTTP client used by the selected transport.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithTransport uses t instead of the hosted transport.
func WithTransport(t api.Transport) Option {
	return func(c *clientConfig) {
		c.transport = t
	}
}

// WithTransportName looks the transport up in the api registry. The key,
// base URL, timeout and HTTP client options are handed to its factory.
func WithTransportName(name string) Option {
	return func(c *clientConfig) {
		c.transportName = name
	}
}

// WithRegistry sets the registry that resolves display target identifiers.
func WithRegistry(r *dispatch.Registry) Option {
	return func(c *clientConfig) {
		c.registry = r
	}
}

// WithLogger sets the structured logger. Logging is discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}

// WithImpressionRetry retries failed impression registrations.
func WithImpressionRetry(maxRetries uint64, initial time.Duration) Option {
	return func(c *clientConfig) {
		c.retries = maxRetries
		c.retryInterval = initial
	}
}

// WithImpressionErrorHandler receives background impression failures.
func WithImpressionErrorHandler(fn func(*api.Impression, error)) Option {
	return func(c *clientConfig) {
		c.onImpression = fn
	}
}

// New creates a Client. Without WithTransport or WithTransportName the
// hosted transport is used, which requires an API key.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.model == "" {
		cfg.model = os.Getenv("BRANDLINK_MODEL")
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.registry == nil {
		cfg.registry = dispatch.NewRegistry()
	}

	transport, err := cfg.buildTransport()
	if err != nil {
		return nil, err
	}

	dispatchOpts := []dispatch.Option{
		dispatch.WithRegistry(cfg.registry),
		dispatch.WithLogger(cfg.logger),
	}
	if cfg.retries > 0 {
		dispatchOpts = append(dispatchOpts, dispatch.WithRetry(cfg.retries, cfg.retryInterval))
	}
	if cfg.onImpression != nil {
		dispatchOpts = append(dispatchOpts, dispatch.WithErrorHandler(cfg.onImpression))
	}

	return &Client{
		transport:  transport,
		model:      cfg.model,
		dispatcher: dispatch.New(transport, dispatchOpts...),
		logger:     cfg.logger,
	}, nil
}

func (c *clientConfig) buildTransport() (api.Transport, error) {
	if c.transport != nil {
		return c.transport, nil
	}
	name := c.transportName
	if name == "" {
		name = hosted.Name
	}
	t, err := api.Get(name, api.Settings{
		APIKey:     c.apiKey,
		BaseURL:    c.baseURL,
		Timeout:    c.timeout,
		HTTPClient: c.httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("creating %s transport: %w", name, err)
	}
	return t, nil
}

// Model returns the default model.
func (c *Client) Model() string {
	return c.model
}

// Registry returns the registry used to resolve display targets.
func (c *Client) Registry() *dispatch.Registry {
	return c.dispatcher.Registry()
}

// Wait blocks until background impression registrations have finished.
func (c *Client) Wait() {
	c.dispatcher.Wait()
}
