package answer

import (
	"context"
	"errors"
	"strings"

	"github.com/i2y/brandlink/api"
	"github.com/i2y/brandlink/dispatch"
	"github.com/i2y/brandlink/stream"
)

// CallOption configures a single call.
type CallOption func(*callConfig)

type callConfig struct {
	targets []dispatch.Target
	track   bool
}

// WithTargets writes the answer into the sinks registered under ids.
// Identifiers may be glob patterns.
func WithTargets(ids ...string) CallOption {
	return func(c *callConfig) {
		for _, id := range ids {
			c.targets = append(c.targets, dispatch.ID(id))
		}
	}
}

// WithSinks writes the answer into sinks directly.
func WithSinks(sinks ...dispatch.Sink) CallOption {
	return func(c *callConfig) {
		for _, s := range sinks {
			c.targets = append(c.targets, dispatch.Handle(s))
		}
	}
}

// WithoutImpression disables impression registration for the call.
func WithoutImpression() CallOption {
	return func(c *callConfig) {
		c.track = false
	}
}

func newCallConfig(opts []CallOption) *callConfig {
	cfg := &callConfig{track: true}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// prepare validates req and fills in the default model.
func (c *Client) prepare(req Request) (*api.Request, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, api.Validation("message is required")
	}
	if req.Model == "" {
		req.Model = c.model
	}
	return &req, nil
}

// classify maps a failure to the api error taxonomy. Metadata decode
// failures are returned unchanged.
func classify(ctx context.Context, err error) error {
	var decodeErr *stream.DecodeError
	if errors.As(err, &decodeErr) {
		return err
	}
	return api.ClassifyTransport(ctx, err)
}
