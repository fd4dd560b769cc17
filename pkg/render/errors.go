package render

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-tofu/pkg/model"
)

// Frame is one synthesized stack entry: the template that was executing
// and the source position it had reached. Frames come from the engine's
// own call bookkeeping, never from the Go runtime stack, so positions
// that are no longer live anywhere (a lazy binding's defining site, for
// example) still appear.
type Frame struct {
	Template string
	Location model.SourceLocation
}

// Error is the failure a render surfaces to its host: the cause's message
// plus the template call stack at the moment of failure, innermost frame
// first.
type Error struct {
	Msg    string
	Frames []Frame
	cause  error
}

// Error renders the message followed by one "\tat name(file:line)" line
// per frame, innermost first.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Msg)
	for _, f := range e.Frames {
		fmt.Fprintf(&b, "\n\tat %s(%s)", f.Template, f.Location)
	}
	return b.String()
}

// Unwrap exposes the original cause so errors.Is / errors.As reach
// through the stack wrapper.
func (e *Error) Unwrap() error { return e.cause }
