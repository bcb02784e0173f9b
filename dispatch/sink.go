// Package dispatch writes finished answers into display targets and
// registers tracking impressions.
package dispatch

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Sink is a place an answer can be displayed.
type Sink interface {
	// SetText replaces the displayed answer text.
	SetText(text string)
	// SetLink sets the affiliate link shown next to the answer.
	SetLink(link string)
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) SetText(string) {}
func (NopSink) SetLink(string) {}

// MemorySink keeps the latest text and link in memory.
// It is safe for concurrent use.
type MemorySink struct {
	mu      sync.Mutex
	text    string
	link    string
	updates int
}

func (s *MemorySink) SetText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = text
	s.updates++
}

func (s *MemorySink) SetLink(link string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.link = link
}

// Text returns the last text set.
func (s *MemorySink) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// Link returns the last link set.
func (s *MemorySink) Link() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.link
}

// Updates returns how many times SetText was called.
func (s *MemorySink) Updates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates
}

// WriterSink prints text to an io.Writer as it grows.
// When a new text does not extend the previous one it is printed in full on
// a fresh line.
type WriterSink struct {
	w       io.Writer
	written string
}

// NewWriterSink creates a WriterSink writing to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) SetText(text string) {
	if strings.HasPrefix(text, s.written) {
		_, _ = io.WriteString(s.w, text[len(s.written):])
	} else {
		_, _ = fmt.Fprintf(s.w, "\n%s", text)
	}
	s.written = text
}

func (s *WriterSink) SetLink(link string) {
	_, _ = fmt.Fprintf(s.w, "\n\n%s\n", link)
}
