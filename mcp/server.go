// Package mcp exposes the answer client as a Model Context Protocol server.
//
// The server offers a single "ask" tool. Its result carries the answer text
// as content and the brand placement as structured output.
//
// Example:
//
//	client, err := answer.New()
//	if err != nil {
//	    return err
//	}
//	return mcp.ServeStdio(ctx, mcp.NewServer(client))
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/i2y/brandlink/answer"
	"github.com/i2y/brandlink/api"
)

// ToolName is the name of the tool exposed by the server.
const ToolName = "ask"

// AskInput is the argument object of the ask tool.
type AskInput struct {
	Message string `json:"message" jsonschema:"the question to answer"`
	Model   string `json:"model,omitempty" jsonschema:"model override for this question"`
}

// AskOutput is the structured result of the ask tool.
type AskOutput struct {
	Response string  `json:"response" jsonschema:"the answer text"`
	Brand    string  `json:"brand,omitempty" jsonschema:"name of the brand placed in the answer"`
	Domain   string  `json:"domain,omitempty" jsonschema:"domain of the placed brand"`
	Link     string  `json:"link,omitempty" jsonschema:"affiliate link for the brand"`
	Score    float64 `json:"similarityScore,omitempty" jsonschema:"similarity between question and brand"`
}

// Option configures the server.
type Option func(*serverConfig)

type serverConfig struct {
	name      string
	callOpts  []answer.CallOption
	streaming bool
}

// WithName sets the implementation name reported to clients.
func WithName(name string) Option {
	return func(c *serverConfig) {
		c.name = name
	}
}

// WithCallOptions applies opts to every ask call.
func WithCallOptions(opts ...answer.CallOption) Option {
	return func(c *serverConfig) {
		c.callOpts = append(c.callOpts, opts...)
	}
}

// WithStreaming answers through the streaming endpoint instead of the
// non-streaming one.
func WithStreaming() Option {
	return func(c *serverConfig) {
		c.streaming = true
	}
}

// NewServer creates an MCP server backed by client.
func NewServer(client *answer.Client, opts ...Option) *mcp.Server {
	cfg := &serverConfig{name: "brandlink"}
	for _, opt := range opts {
		opt(cfg)
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.name,
		Version: api.Version,
	}, nil)

	h := &handler{client: client, cfg: cfg}
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolName,
		Description: "Answer a question. The answer may recommend a brand and carry an affiliate link.",
	}, h.ask)

	return server
}

// ServeStdio runs server over stdin and stdout until ctx is done or the
// client disconnects.
func ServeStdio(ctx context.Context, server *mcp.Server) error {
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("running MCP server: %w", err)
	}
	return nil
}

type handler struct {
	client *answer.Client
	cfg    *serverConfig
}

func (h *handler) ask(ctx context.Context, _ *mcp.CallToolRequest, in AskInput) (*mcp.CallToolResult, AskOutput, error) {
	req := answer.Request{Message: in.Message, Model: in.Model}

	text, md, err := h.answer(ctx, req)
	if err != nil {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
		}, AskOutput{}, nil
	}

	out := toOutput(text, md)
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: render(out)}},
	}, out, nil
}

func (h *handler) answer(ctx context.Context, req answer.Request) (string, *api.Metadata, error) {
	if !h.cfg.streaming {
		resp, err := h.client.Ask(ctx, req, h.cfg.callOpts...)
		if err != nil {
			return "", nil, err
		}
		return resp.Response, &resp.Metadata, nil
	}

	var text string
	md, err := h.client.AskStream(ctx, req, func(ev answer.Event) error {
		text = ev.Text
		return nil
	}, h.cfg.callOpts...)
	if err != nil {
		return "", nil, err
	}
	return text, md, nil
}

func toOutput(text string, md *api.Metadata) AskOutput {
	out := AskOutput{Response: text}
	if md == nil {
		return out
	}
	out.Link = md.Link
	if md.BrandUsed != nil {
		out.Brand = md.BrandUsed.Name
		out.Domain = md.BrandUsed.Domain
	}
	if md.SimilarityScore != nil {
		out.Score = *md.SimilarityScore
	}
	return out
}

// render formats the answer for clients that only read text content.
func render(out AskOutput) string {
	if out.Link == "" {
		return out.Response
	}
	if out.Brand == "" {
		return fmt.Sprintf("%s\n\n%s", out.Response, out.Link)
	}
	return fmt.Sprintf("%s\n\n%s: %s", out.Response, out.Brand, out.Link)
}
