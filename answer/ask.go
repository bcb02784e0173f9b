package answer

import (
	"context"
)

// Ask sends req to the non-streaming endpoint and returns the full response.
// An empty or blank message fails validation before any network call.
//
// Example:
//
//	resp, err := client.Ask(ctx, answer.Request{Message: "Best budget laptop?"})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(resp.Response)
func (c *Client) Ask(ctx context.Context, req Request, opts ...CallOption) (*Response, error) {
	cfg := newCallConfig(opts)

	apiReq, err := c.prepare(req)
	if err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "answer request",
		"transport", c.transport.Name(),
		"model", apiReq.Model,
		"message_length", len(apiReq.Message),
	)

	resp, err := c.transport.Answer(ctx, apiReq)
	if err != nil {
		return nil, classify(ctx, err)
	}

	sinks := c.dispatcher.Resolve(cfg.targets...)
	c.dispatcher.Update(sinks, resp.Response)
	c.dispatcher.Finish(ctx, sinks, resp.Response, &resp.Metadata, cfg.track)

	return resp, nil
}
