package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	sse "github.com/tmaxmax/go-sse"

	"github.com/i2y/brandlink/api"
	"github.com/i2y/brandlink/internal/httpcall"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 30 * time.Second

	chatCompletionsPath = "/chat/completions"

	// separator frames the converted stream. Model output is free text that
	// may contain blank lines followed by JSON, so the ASCII record separator
	// is used instead and stripped from the text.
	separator = "\x1e"

	// noPlacement terminates every converted stream: the answer carries no
	// brand.
	noPlacement = separator + `{"brandUsed":null}`
)

// client wraps the HTTP client for chat completion calls.
type client struct {
	model        string
	systemPrompt string
	timeout      time.Duration
	poster       *httpcall.Poster
}

func newClient(cfg *transportConfig) *client {
	c := &client{
		model:        cfg.model,
		systemPrompt: cfg.systemPrompt,
		timeout:      cfg.timeout,
	}
	if c.model == "" {
		c.model = defaultModel
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}

	baseURL := strings.TrimRight(cfg.baseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	header := make(http.Header)
	header.Set("Authorization", "Bearer "+cfg.apiKey)
	header.Set("User-Agent", "brandlink-go/"+api.Version)
	c.poster = &httpcall.Poster{HTTPClient: httpClient, BaseURL: baseURL, Header: header}
	return c
}

// buildRequest converts an answer request into a chat completion request.
// A "user" entry in Extra is forwarded as the end-user identifier.
func (c *client) buildRequest(req *api.Request, stream bool) *chatCompletionRequest {
	out := &chatCompletionRequest{Model: req.Model, Stream: stream}
	if out.Model == "" {
		out.Model = c.model
	}
	if user, ok := req.Extra["user"].(string); ok {
		out.User = user
	}
	if c.systemPrompt != "" {
		out.Messages = append(out.Messages, message{Role: "system", Content: c.systemPrompt})
	}
	out.Messages = append(out.Messages, message{Role: "user", Content: req.Message})
	return out
}

func (c *client) chatCompletion(ctx context.Context, req *api.Request) (*api.Response, error) {
	cl := httpcall.Start(ctx, c.timeout)
	httpResp, err := c.poster.Post(cl, chatCompletionsPath, c.buildRequest(req, false), "application/json")
	if err != nil {
		return nil, err
	}

	var resp chatCompletionResponse
	if err := httpcall.DecodeJSON(cl, httpResp, &resp); err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, &api.Error{Kind: api.KindAPI, Message: "response has no choices", RequestID: cl.RequestID}
	}

	return &api.Response{Response: resp.Choices[0].Message.Content}, nil
}

// chatCompletionStream converts the server-sent chat completion events into
// the answer wire format: raw text, separator, then a metadata object.
func (c *client) chatCompletionStream(ctx context.Context, req *api.Request) (io.ReadCloser, error) {
	cl := httpcall.Start(ctx, c.timeout)
	httpResp, err := c.poster.Post(cl, chatCompletionsPath, c.buildRequest(req, true), "text/event-stream")
	if err != nil {
		return nil, err
	}
	body := httpcall.Stream(cl, httpResp)

	pr, pw := io.Pipe()
	go convert(body, pw)
	return &convertedStream{PipeReader: pr, body: body}, nil
}

func convert(body io.Reader, pw *io.PipeWriter) {
	for ev, err := range sse.Read(body, nil) {
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if ev.Data == "[DONE]" {
			break
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
			pw.CloseWithError(&api.Error{Kind: api.KindAPI, Message: "parsing stream chunk", Cause: err})
			return
		}
		for _, ch := range chunk.Choices {
			if ch.Delta.Content == "" {
				continue
			}
			text := strings.ReplaceAll(ch.Delta.Content, separator, "")
			if _, err := io.WriteString(pw, text); err != nil {
				return
			}
		}
	}

	if _, err := io.WriteString(pw, noPlacement); err != nil {
		return
	}
	_ = pw.Close()
}

// convertedStream closes both the pipe and the response body so the
// converter goroutine stops.
type convertedStream struct {
	*io.PipeReader
	body io.Closer
}

func (s *convertedStream) Close() error {
	_ = s.PipeReader.Close()
	return s.body.Close()
}
