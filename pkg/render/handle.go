package render

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/goliatone/go-tofu/pkg/data"
)

// State is where a render stands after a segment of work.
type State int

const (
	StateRunning State = iota
	StateDone
	StatePendingValue
	StateBackpressure
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	case StatePendingValue:
		return "pending-value"
	case StateBackpressure:
		return "backpressure"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Result reports one segment of a render.
type Result struct {
	// State says why the segment ended.
	State State

	// Pending is the provider the render is waiting on when State is
	// StatePendingValue. The host resumes once it is ready; resuming
	// earlier just parks again on the same value.
	Pending data.Provider

	// PendingID identifies Pending when it is a host async value, so
	// hosts juggling many renders can route completions.
	PendingID uuid.UUID

	// Err is the terminal failure when State is StateFailed. It is a
	// *Error carrying the template stack.
	Err error
}

// Done reports whether the render produced its full output.
func (r Result) Done() bool { return r.State == StateDone }

// Suspended reports whether the render parked and can be resumed.
func (r Result) Suspended() bool {
	return r.State == StatePendingValue || r.State == StateBackpressure
}

// Failed reports whether the render stopped with an error.
func (r Result) Failed() bool { return r.State == StateFailed }

// Render is a handle on one in-flight render. It is not safe for
// concurrent use; a suspended render belongs to whichever goroutine
// resumes it.
type Render struct {
	id     uuid.UUID
	eng    *Engine
	st     *state
	result Result
}

// ID is the unique identity of this render, for logs and host-side
// bookkeeping.
func (r *Render) ID() uuid.UUID { return r.id }

// Result reports the outcome of the last segment.
func (r *Render) Result() Result { return r.result }

// Resume continues a suspended render. Output written before the
// suspension stays written; the render picks up exactly where it parked.
// Resuming a finished render is an error and leaves its result intact.
func (r *Render) Resume() (Result, error) {
	if r.result.State == StateDone || r.result.State == StateFailed {
		return r.result, fmt.Errorf("render: resume of a finished render (state %s)", r.result.State)
	}
	r.eng.hooks.resumed(r.st.rootTpl)
	r.result = r.segment()
	if r.result.Err != nil {
		return r.result, r.result.Err
	}
	return r.result, nil
}

func (r *Render) segment() Result {
	st := r.st
	s, err := st.run()
	switch s {
	case StatePendingValue:
		res := Result{State: s, Pending: st.pending}
		if a, ok := st.pending.(*data.Async); ok {
			res.PendingID = a.ID()
		}
		st.pending = nil
		r.eng.hooks.suspended(st.rootTpl, s)
		st.logger.Debug("render suspended on pending value")
		return res
	case StateBackpressure:
		r.eng.hooks.suspended(st.rootTpl, s)
		st.logger.Debug("render suspended on backpressure")
		return Result{State: s}
	case StateFailed:
		r.eng.hooks.finished(st.rootTpl, err)
		st.logger.Error("render failed", "error", err)
		return Result{State: s, Err: err}
	}
	r.eng.hooks.finished(st.rootTpl, nil)
	return Result{State: StateDone}
}
