package render

import (
	"io"
	"strings"
)

// Sink is the host-facing output stream. WriteString receives rendered
// text in document order; ReadyForMore is the backpressure probe the
// engine consults once per template entry. A sink that is never ready
// still receives no partial template output: the engine suspends before
// rendering the body.
type Sink interface {
	io.StringWriter
	ReadyForMore() bool
}

// SinkOf adapts any writer into an always-ready sink.
func SinkOf(w io.Writer) Sink {
	return writerSink{w: w}
}

type writerSink struct {
	w io.Writer
}

func (s writerSink) WriteString(str string) (int, error) {
	if sw, ok := s.w.(io.StringWriter); ok {
		return sw.WriteString(str)
	}
	return s.w.Write([]byte(str))
}

func (writerSink) ReadyForMore() bool { return true }

// LimitedSink collects output in memory while letting the caller script
// the ready signal, which is how backpressure suspension is exercised
// without a real slow consumer. Not safe for concurrent use; drive it
// from the goroutine that owns the render.
type LimitedSink struct {
	buf      strings.Builder
	notReady bool
}

// NewLimitedSink returns a sink that starts ready.
func NewLimitedSink() *LimitedSink {
	return &LimitedSink{}
}

// SetReady flips the backpressure signal for subsequent probes.
func (s *LimitedSink) SetReady(ready bool) { s.notReady = !ready }

// WriteString implements Sink. Writes are accepted even when the sink
// reports not-ready; readiness only gates template entry.
func (s *LimitedSink) WriteString(str string) (int, error) {
	return s.buf.WriteString(str)
}

// ReadyForMore implements Sink.
func (s *LimitedSink) ReadyForMore() bool { return !s.notReady }

// String returns everything written so far.
func (s *LimitedSink) String() string { return s.buf.String() }

// bufferSink backs letcontent blocks, content params and log bodies.
// Buffers never exert backpressure; only the host sink does.
type bufferSink struct {
	strings.Builder
}

func (*bufferSink) ReadyForMore() bool { return true }
