package stream

import (
	"encoding/json"
	"fmt"
)

// EventKind distinguishes text snapshots from the terminal metadata event.
type EventKind int

const (
	// EventText carries the accumulated answer text.
	EventText EventKind = iota
	// EventMetadata carries the parsed trailing metadata object.
	EventMetadata
)

func (k EventKind) String() string {
	switch k {
	case EventText:
		return "text"
	case EventMetadata:
		return "metadata"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is a single item produced by a Reader.
type Event[M any] struct {
	Kind EventKind

	// Text is the full answer text decoded so far, not just the latest piece.
	Text string

	// Delta is the text appended by this event.
	Delta string

	// Metadata is set only on EventMetadata.
	Metadata *M

	// Raw is the metadata object as received, set only on EventMetadata.
	Raw json.RawMessage

	// DecodeErr is set when some metadata fields had the wrong JSON type.
	// Those fields are unreliable in Metadata; Raw still holds them.
	DecodeErr *DecodeError
}

// DecodeError describes trailing metadata that is valid JSON but does not
// decode into the metadata type.
type DecodeError struct {
	Payload string
	Cause   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding stream metadata: %v", e.Cause)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}
