// Package api defines the wire types, transport abstraction and error
// taxonomy shared by every brandlink backend.
package api

import (
	"context"
	"io"
)

// Transport is the core abstraction for answer service backends.
// All backend implementations must satisfy this interface.
type Transport interface {
	// Name returns the transport identifier (e.g., "hosted").
	Name() string

	// Answer executes a non-streaming request.
	Answer(ctx context.Context, req *Request) (*Response, error)

	// AnswerStream executes a streaming request and returns the raw body.
	// The caller owns the returned reader and must close it.
	AnswerStream(ctx context.Context, req *Request) (io.ReadCloser, error)

	// RegisterImpression records that a tracked answer was displayed.
	RegisterImpression(ctx context.Context, imp *Impression) error
}

// Framer is implemented by transports whose AnswerStream body separates the
// answer text from the metadata object with something other than a blank
// line. Readers split on Separator followed by "{".
type Framer interface {
	Separator() string
}
