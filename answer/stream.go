package answer

import (
	"context"
	"fmt"
	"iter"

	"github.com/i2y/brandlink/api"
	"github.com/i2y/brandlink/stream"
)

// Stream returns a lazy sequence of streamed events. Each range over the
// sequence sends a new request; breaking out of the loop releases the
// response body. A failure is yielded once as a non-nil error and ends the
// sequence.
//
// Example:
//
//	for ev, err := range client.Stream(ctx, answer.Request{Message: "Best trail shoes?"}) {
//	    if err != nil {
//	        return err
//	    }
//	    if ev.Kind == stream.EventMetadata {
//	        fmt.Println("\nlink:", ev.Metadata.Link)
//	        break
//	    }
//	    fmt.Print(ev.Delta)
//	}
func (c *Client) Stream(ctx context.Context, req Request, opts ...CallOption) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		cfg := newCallConfig(opts)

		apiReq, err := c.prepare(req)
		if err != nil {
			yield(Event{}, err)
			return
		}

		c.logger.DebugContext(ctx, "answer stream request",
			"transport", c.transport.Name(),
			"model", apiReq.Model,
			"message_length", len(apiReq.Message),
		)

		body, err := c.transport.AnswerStream(ctx, apiReq)
		if err != nil {
			yield(Event{}, classify(ctx, err))
			return
		}

		var readerOpts []stream.Option
		if f, ok := c.transport.(api.Framer); ok {
			readerOpts = append(readerOpts, stream.WithSeparator(f.Separator()))
		}
		r := stream.NewReader[api.Metadata](body, readerOpts...)
		defer func() { _ = r.Close() }()

		sinks := c.dispatcher.Resolve(cfg.targets...)
		for r.Next() {
			ev := r.Current()
			switch ev.Kind {
			case stream.EventText:
				c.dispatcher.Update(sinks, ev.Text)
			case stream.EventMetadata:
				if ev.DecodeErr != nil {
					c.logger.WarnContext(ctx, "answer metadata partially decoded", "error", ev.DecodeErr)
				}
				c.dispatcher.Finish(ctx, sinks, ev.Text, ev.Metadata, cfg.track)
			}
			if !yield(ev, nil) {
				return
			}
		}

		if err := r.Err(); err != nil {
			c.logger.DebugContext(ctx, "answer stream failed", "error", err)
			yield(Event{}, classify(ctx, err))
		}
	}
}

// AskStream streams the answer and calls handler for every event, in order,
// on the calling goroutine. It returns once the stream has closed, with the
// metadata or nil when the stream carried none. A handler error stops the
// stream and is returned wrapped.
func (c *Client) AskStream(ctx context.Context, req Request, handler func(Event) error, opts ...CallOption) (*Metadata, error) {
	var md *Metadata
	for ev, err := range c.Stream(ctx, req, opts...) {
		if err != nil {
			return nil, err
		}
		if err := handler(ev); err != nil {
			return nil, fmt.Errorf("handling %s event: %w", ev.Kind, err)
		}
		if ev.Kind == stream.EventMetadata {
			md = ev.Metadata
		}
	}
	return md, nil
}

// AskBuffered drains the stream and returns only the metadata, nil when the
// stream carried none. Text still reaches the call's display targets.
func (c *Client) AskBuffered(ctx context.Context, req Request, opts ...CallOption) (*Metadata, error) {
	var md *Metadata
	for ev, err := range c.Stream(ctx, req, opts...) {
		if err != nil {
			return nil, err
		}
		if ev.Kind == stream.EventMetadata {
			md = ev.Metadata
		}
	}
	return md, nil
}
