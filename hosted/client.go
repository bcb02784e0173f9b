package hosted

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/i2y/brandlink/api"
	"github.com/i2y/brandlink/internal/httpcall"
)

const (
	defaultBaseURL = "https://api.brandlink.ai/v1"
	defaultTimeout = 30 * time.Second

	answerPath       = "/answer"
	answerStreamPath = "/answer/stream"
	impressionPath   = "/impression"
)

// client wraps the HTTP client for answer service calls.
type client struct {
	apiKey    string
	baseURL   string
	timeout   time.Duration
	userAgent string
	poster    *httpcall.Poster
}

// newClient creates a new answer service client.
func newClient(cfg *transportConfig) *client {
	c := &client{
		apiKey:    cfg.apiKey,
		baseURL:   strings.TrimRight(cfg.baseURL, "/"),
		timeout:   cfg.timeout,
		userAgent: cfg.userAgent,
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.userAgent == "" {
		c.userAgent = "brandlink-go/" + api.Version
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	header := make(http.Header)
	header.Set("Authorization", "Bearer "+c.apiKey)
	header.Set("User-Agent", c.userAgent)
	c.poster = &httpcall.Poster{HTTPClient: httpClient, BaseURL: c.baseURL, Header: header}
	return c
}

// answer sends a non-streaming answer request. The timeout covers the
// whole round trip.
func (c *client) answer(ctx context.Context, req *api.Request) (*api.Response, error) {
	cl := httpcall.Start(ctx, c.timeout)
	httpResp, err := c.poster.Post(cl, answerPath, req, "application/json")
	if err != nil {
		return nil, err
	}

	var resp api.Response
	if err := httpcall.DecodeJSON(cl, httpResp, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// answerStream sends a streaming answer request. The timeout covers the
// request until response headers arrive and then each wait for more body.
func (c *client) answerStream(ctx context.Context, req *api.Request) (io.ReadCloser, error) {
	cl := httpcall.Start(ctx, c.timeout)
	httpResp, err := c.poster.Post(cl, answerStreamPath, req, "text/plain")
	if err != nil {
		return nil, err
	}
	return httpcall.Stream(cl, httpResp), nil
}

// registerImpression posts a tracking impression. Any 2xx is success.
func (c *client) registerImpression(ctx context.Context, imp *api.Impression) error {
	cl := httpcall.Start(ctx, c.timeout)
	httpResp, err := c.poster.Post(cl, impressionPath, imp, "application/json")
	if err != nil {
		return err
	}
	return httpcall.Discard(cl, httpResp)
}
