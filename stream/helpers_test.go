package stream

import (
	"io"
)

// chunkBody returns one chunk per Read call, then io.EOF.
type chunkBody struct {
	chunks [][]byte
	reads  int
	closed int
	err    error // returned instead of io.EOF when set
}

func newChunkBody(chunks ...string) *chunkBody {
	b := &chunkBody{}
	for _, c := range chunks {
		b.chunks = append(b.chunks, []byte(c))
	}
	return b
}

func (b *chunkBody) Read(p []byte) (int, error) {
	if b.closed > 0 {
		return 0, io.ErrClosedPipe
	}
	if len(b.chunks) == 0 {
		if b.err != nil {
			return 0, b.err
		}
		return 0, io.EOF
	}
	b.reads++
	n := copy(p, b.chunks[0])
	b.chunks[0] = b.chunks[0][n:]
	if len(b.chunks[0]) == 0 {
		b.chunks = b.chunks[1:]
	}
	return n, nil
}

func (b *chunkBody) Close() error {
	b.closed++
	return nil
}

type testBrand struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

type testMeta struct {
	BrandUsed *testBrand `json:"brandUsed"`
	Link      string     `json:"link,omitempty"`
	Code      string     `json:"code,omitempty"`
}

// collect drains r and returns every event plus the final error.
func collect[M any](r *Reader[M]) ([]Event[M], error) {
	var events []Event[M]
	for r.Next() {
		events = append(events, r.Current())
	}
	return events, r.Err()
}

// splitAt cuts s at the given ascending byte offsets.
func splitAt(s string, offsets ...int) []string {
	var parts []string
	prev := 0
	for _, off := range offsets {
		parts = append(parts, s[prev:off])
		prev = off
	}
	return append(parts, s[prev:])
}

func lastText[M any](events []Event[M]) string {
	text := ""
	for _, ev := range events {
		if ev.Kind == EventText {
			text = ev.Text
		}
	}
	return text
}

func metadataEvents[M any](events []Event[M]) []Event[M] {
	var out []Event[M]
	for _, ev := range events {
		if ev.Kind == EventMetadata {
			out = append(out, ev)
		}
	}
	return out
}
