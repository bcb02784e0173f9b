// Package httpcall holds the request plumbing shared by the HTTP
// transports: a per-request timeout with a distinguishable cause, JSON
// posting with status classification, and body wrappers that classify
// read failures.
package httpcall

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/i2y/brandlink/api"
)

// RequestIDHeader carries the per-request id in both directions.
const RequestIDHeader = "X-Request-ID"

const maxErrorBody = 64 << 10

// Call tracks one request: its cancellable context, the timeout timer and
// the request id sent to the service.
type Call struct {
	ctx       context.Context
	cancel    context.CancelCauseFunc
	timer     *time.Timer
	timeout   time.Duration
	RequestID string
}

// Start begins a call whose context is cancelled with api.ErrDeadline once
// timeout elapses.
func Start(ctx context.Context, timeout time.Duration) *Call {
	ctx, cancel := context.WithCancelCause(ctx)
	return &Call{
		ctx:       ctx,
		cancel:    cancel,
		timer:     time.AfterFunc(timeout, func() { cancel(api.ErrDeadline) }),
		timeout:   timeout,
		RequestID: uuid.NewString(),
	}
}

// Context returns the call context.
func (c *Call) Context() context.Context {
	return c.ctx
}

// StopTimer disarms the timeout; the call context stays alive.
func (c *Call) StopTimer() {
	c.timer.Stop()
}

// End releases the call context.
func (c *Call) End() {
	c.timer.Stop()
	c.cancel(nil)
}

// Fail classifies err against the call context and ends the call.
func (c *Call) Fail(err error) error {
	e := c.classify(err)
	c.End()
	return e
}

func (c *Call) classify(err error) *api.Error {
	e := api.ClassifyTransport(c.ctx, err)
	if e.RequestID == "" {
		e.RequestID = c.RequestID
	}
	return e
}

// Poster sends JSON requests to one service.
type Poster struct {
	HTTPClient *http.Client
	BaseURL    string

	// Header is added to every request.
	Header http.Header
}

// Post sends payload and returns the response when its status is 2xx.
// Any other status is classified and the call is ended.
func (p *Poster) Post(c *Call, path string, payload any, accept string) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		c.End()
		return nil, &api.Error{Kind: api.KindValidation, Message: "marshaling request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(c.ctx, http.MethodPost, p.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		c.End()
		return nil, &api.Error{Kind: api.KindValidation, Message: "creating request", Cause: err}
	}
	for k, v := range p.Header {
		httpReq.Header[k] = v
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", accept)
	httpReq.Header.Set(RequestIDHeader, c.RequestID)

	httpResp, err := p.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, c.Fail(fmt.Errorf("sending request: %w", err))
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		defer func() { _ = httpResp.Body.Close() }()
		respBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))
		e := api.ClassifyStatus(httpResp.StatusCode, respBody, StatusText(httpResp))
		e.RequestID = ResponseRequestID(httpResp, c.RequestID)
		c.End()
		return nil, e
	}

	return httpResp, nil
}

// DecodeJSON reads resp's body into v and ends the call. The timeout keeps
// running while the body is read.
func DecodeJSON(c *Call, resp *http.Response, v any) error {
	defer c.End()
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.classify(fmt.Errorf("reading response: %w", err))
	}
	if err := json.Unmarshal(respBody, v); err != nil {
		return &api.Error{
			Kind:       api.KindAPI,
			StatusCode: resp.StatusCode,
			Message:    "parsing response",
			RequestID:  ResponseRequestID(resp, c.RequestID),
			Cause:      err,
		}
	}
	return nil
}

// Discard drains and closes resp's body and ends the call.
func Discard(c *Call, resp *http.Response) error {
	defer c.End()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	return resp.Body.Close()
}

// Stream returns resp's body for incremental reading. From here on the
// timeout is armed only while a Read waits on the service, so it bounds
// each stall instead of the whole stream and time spent by the consumer
// between reads does not count. Read failures are classified; Close ends
// the call.
func Stream(c *Call, resp *http.Response) io.ReadCloser {
	c.StopTimer()
	c.RequestID = ResponseRequestID(resp, c.RequestID)
	return &streamBody{body: resp.Body, call: c}
}

type streamBody struct {
	body io.ReadCloser
	call *Call
}

func (b *streamBody) Read(p []byte) (int, error) {
	b.call.timer.Reset(b.call.timeout)
	n, err := b.body.Read(p)
	b.call.timer.Stop()
	if err != nil && !errors.Is(err, io.EOF) {
		return n, b.call.classify(err)
	}
	return n, err
}

func (b *streamBody) Close() error {
	err := b.body.Close()
	b.call.End()
	return err
}

// ResponseRequestID prefers the id echoed by the service.
func ResponseRequestID(resp *http.Response, fallback string) string {
	if id := resp.Header.Get(RequestIDHeader); id != "" {
		return id
	}
	return fallback
}

// StatusText returns the reason phrase of resp.Status without the code.
func StatusText(resp *http.Response) string {
	text := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))
	return strings.TrimSpace(text)
}
