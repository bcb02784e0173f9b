// Package stream splits a raw answer stream into accumulated text snapshots
// followed by at most one trailing JSON metadata object.
//
// The wire format is arbitrary answer text, a blank line, then a single JSON
// object:
//
//	Running shoes from Acme are a solid pick.\n\n{"brandUsed":{...},"link":"..."}
//
// The first occurrence of Delimiter always marks the boundary; answer text
// that itself contains the delimiter is split there. Producers that control
// both ends can pick another separator with WithSeparator.
package stream

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"strings"
	"sync"
)

const (
	// Delimiter separates answer text from the trailing metadata object.
	Delimiter = "\n\n{"

	// Separator is the blank line that precedes the metadata object.
	Separator = "\n\n"

	readBufferSize = 4096
)

// Reader consumes a response body and yields Events.
//
// Usage follows the Next/Current/Err/Close pattern:
//
//	r := stream.NewReader[api.Metadata](body)
//	defer r.Close()
//	for r.Next() {
//	    ev := r.Current()
//	    ...
//	}
//	if err := r.Err(); err != nil { ... }
//
// The body is closed once the metadata object has been parsed, when the body
// is exhausted, on a read error, or on Close, whichever comes first.
type Reader[M any] struct {
	body io.ReadCloser
	buf  []byte
	dec  decoder

	separator string
	delimiter string

	pending    string
	inMetadata bool
	text       strings.Builder
	metadata   *M

	queue   []Event[M]
	current Event[M]
	done    bool
	err     error

	closeOnce sync.Once
	closeErr  error
}

// Option configures a Reader.
type Option func(*options)

type options struct {
	separator string
}

// WithSeparator replaces the blank line between the answer text and the
// metadata object. The boundary becomes sep followed by "{". An empty sep
// keeps the default.
func WithSeparator(sep string) Option {
	return func(o *options) {
		if sep != "" {
			o.separator = sep
		}
	}
}

// NewReader creates a Reader over body. M is the metadata type the trailing
// JSON object decodes into.
func NewReader[M any](body io.ReadCloser, opts ...Option) *Reader[M] {
	o := &options{separator: Separator}
	for _, opt := range opts {
		opt(o)
	}
	return &Reader[M]{
		body:      body,
		buf:       make([]byte, readBufferSize),
		separator: o.separator,
		delimiter: o.separator + "{",
	}
}

// Next advances to the next event. It returns false when the stream has
// ended or failed; check Err afterwards.
func (r *Reader[M]) Next() bool {
	for {
		if len(r.queue) > 0 {
			r.current = r.queue[0]
			r.queue = r.queue[1:]
			return true
		}
		if r.done {
			return false
		}
		r.read()
	}
}

// Current returns the event produced by the last call to Next.
func (r *Reader[M]) Current() Event[M] {
	return r.current
}

// Err returns the first read or decode error. Reaching the end of the body
// is not an error.
func (r *Reader[M]) Err() error {
	return r.err
}

// Text returns all answer text emitted so far.
func (r *Reader[M]) Text() string {
	return r.text.String()
}

// Metadata returns the parsed metadata, or nil if none has been seen.
func (r *Reader[M]) Metadata() *M {
	return r.metadata
}

// Close releases the underlying body. It is safe to call more than once.
func (r *Reader[M]) Close() error {
	r.done = true
	r.closeOnce.Do(func() {
		r.closeErr = r.body.Close()
	})
	return r.closeErr
}

// Events returns an iterator over the remaining events.
//
// Example:
//
//	for ev := range r.Events() {
//	    fmt.Print(ev.Delta)
//	}
func (r *Reader[M]) Events() iter.Seq[Event[M]] {
	return func(yield func(Event[M]) bool) {
		for r.Next() {
			if !yield(r.Current()) {
				return
			}
		}
	}
}

// Drain consumes the rest of the stream and returns the metadata, which is
// nil when the stream carried none.
func (r *Reader[M]) Drain() (*M, error) {
	defer func() { _ = r.Close() }()
	for r.Next() {
	}
	return r.metadata, r.err
}

func (r *Reader[M]) read() {
	n, err := r.body.Read(r.buf)
	if n > 0 {
		r.feed(r.dec.decode(r.buf[:n]))
	}
	if r.done {
		return
	}
	switch {
	case errors.Is(err, io.EOF):
		r.finish()
		_ = r.Close()
	case err != nil:
		r.err = err
		_ = r.Close()
	}
}

func (r *Reader[M]) feed(s string) {
	r.pending += s

	if r.inMetadata {
		r.tryMetadata(r.pending[len(r.separator):])
		return
	}

	if idx := strings.Index(r.pending, r.delimiter); idx >= 0 {
		r.appendText(r.pending[:idx])
		r.pending = r.pending[idx:]
		r.inMetadata = true
		r.tryMetadata(r.pending[len(r.separator):])
		return
	}

	keep := partialDelimiter(r.pending, r.delimiter)
	r.appendText(r.pending[:len(r.pending)-keep])
	r.pending = r.pending[len(r.pending)-keep:]
}

// finish classifies whatever is left once the body is exhausted.
func (r *Reader[M]) finish() {
	if tail := r.dec.flush(); tail != "" {
		r.feed(tail)
		if r.done {
			return
		}
	}
	if r.pending == "" {
		return
	}

	pending := r.pending
	r.pending = ""

	parts := strings.Split(pending, r.separator)
	if len(parts) == 1 {
		r.appendText(pending)
		return
	}

	r.appendText(parts[0])
	rest := strings.Join(parts[1:], r.separator)
	if r.tryMetadata(rest) {
		return
	}
	r.appendText(r.separator + rest)
}

// tryMetadata queues the terminal event if candidate is a complete JSON
// object. It reports whether the stream was terminated.
func (r *Reader[M]) tryMetadata(candidate string) bool {
	trimmed := bytes.TrimSpace([]byte(candidate))
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return false
	}

	r.pending = ""
	r.done = true

	// Fields whose JSON type does not fit M are skipped and reported on
	// the event; any other decode failure ends the stream.
	md := new(M)
	var mismatch *DecodeError
	if err := json.Unmarshal(trimmed, md); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			r.err = &DecodeError{Payload: candidate, Cause: err}
			_ = r.Close()
			return true
		}
		mismatch = &DecodeError{Payload: candidate, Cause: err}
	}

	r.metadata = md
	r.queue = append(r.queue, Event[M]{
		Kind:      EventMetadata,
		Text:      r.text.String(),
		Metadata:  md,
		Raw:       json.RawMessage(trimmed),
		DecodeErr: mismatch,
	})
	_ = r.Close()
	return true
}

func (r *Reader[M]) appendText(s string) {
	if s == "" {
		return
	}
	r.text.WriteString(s)
	r.queue = append(r.queue, Event[M]{
		Kind:  EventText,
		Text:  r.text.String(),
		Delta: s,
	})
}

// partialDelimiter returns the length of the longest suffix of s that is a
// proper prefix of delim.
func partialDelimiter(s, delim string) int {
	for n := len(delim) - 1; n > 0; n-- {
		if strings.HasSuffix(s, delim[:n]) {
			return n
		}
	}
	return 0
}
