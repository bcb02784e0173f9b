// Package answer is the client for the hosted answer service.
//
// A Client sends one message per call and delivers the result in one of
// four shapes:
//
//   - Ask returns the whole JSON response from the non-streaming endpoint.
//   - AskStream invokes a handler for every streamed event.
//   - Stream returns a lazy sequence of streamed events.
//   - AskBuffered drains the stream and returns only the metadata.
//
// Streamed text events carry the full accumulated answer, not a delta, so a
// consumer can always redraw from the latest event. The stream ends with at
// most one metadata event.
//
// Example:
//
//	client, err := answer.New(answer.WithAPIKey(key))
//	if err != nil {
//	    return err
//	}
//	md, err := client.AskStream(ctx, answer.Request{Message: "Best trail shoes?"},
//	    func(ev answer.Event) error {
//	        fmt.Print(ev.Delta)
//	        return nil
//	    })
package answer
