// Package render executes compiled templates against host data. A render
// is incremental: it writes to the request sink until it finishes, fails,
// or suspends (on a pending host value or on sink backpressure), and the
// returned handle resumes it. However many times a render suspends, the
// bytes it writes are identical to an uninterrupted run.
package render

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/goliatone/go-tofu/pkg/data"
	"github.com/goliatone/go-tofu/pkg/directives"
	"github.com/goliatone/go-tofu/pkg/model"
	"github.com/goliatone/go-tofu/pkg/registry"
)

// Hooks receive render lifecycle notifications. All fields are optional.
// Callbacks run synchronously on the rendering goroutine and must not
// block.
type Hooks struct {
	// RenderStarted fires once per render, before any output.
	RenderStarted func(template string)
	// Suspended fires each time a render parks, with the suspension state.
	Suspended func(template string, state State)
	// Resumed fires each time a parked render continues.
	Resumed func(template string)
	// Finished fires once, with the terminal error if the render failed.
	Finished func(template string, err error)
}

func (h Hooks) started(tpl string) {
	if h.RenderStarted != nil {
		h.RenderStarted(tpl)
	}
}

func (h Hooks) suspended(tpl string, s State) {
	if h.Suspended != nil {
		h.Suspended(tpl, s)
	}
}

func (h Hooks) resumed(tpl string) {
	if h.Resumed != nil {
		h.Resumed(tpl)
	}
}

func (h Hooks) finished(tpl string, err error) {
	if h.Finished != nil {
		h.Finished(tpl, err)
	}
}

// Engine renders templates from one registry. An Engine is immutable
// after New and safe for concurrent use; each render carries its own
// state.
type Engine struct {
	reg    *registry.Registry
	dirs   *directives.Registry
	logger *slog.Logger
	hooks  Hooks
}

// Option configures an Engine.
type Option func(*Engine)

// WithDirectives replaces the built-in print directive set.
func WithDirectives(dirs *directives.Registry) Option {
	return func(e *Engine) {
		if dirs != nil {
			e.dirs = dirs
		}
	}
}

// WithLogger sets the logger renders inherit unless their request
// overrides it.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithHooks installs lifecycle callbacks, typically metrics counters.
func WithHooks(hooks Hooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// New creates an Engine over a built registry.
func New(reg *registry.Registry, opts ...Option) *Engine {
	e := &Engine{
		reg:    reg,
		dirs:   directives.Builtin(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Request describes one render.
type Request struct {
	// Template is the entry template, by unique name or by overridable
	// group name. Group entries dispatch like a delegate call.
	Template string

	// Variant narrows group dispatch when Template names a group.
	Variant registry.Variant

	// Data holds the entry template's parameters. Values convert the way
	// data.New does; data.Provider values pass through untouched, which
	// is how hosts hand in pending values.
	Data map[string]any

	// Injected holds the $ij record shared by every template in the
	// render, top-level and transitive alike.
	Injected map[string]any

	// ActiveOrigins enables delegate implementations by origin for the
	// duration of this render. At most one origin per group may offer
	// the same variant, checked up front.
	ActiveOrigins registry.ActiveOrigins

	// Sink receives the rendered bytes. Required.
	Sink Sink

	// Directives overrides the engine's directive registry for this
	// render only.
	Directives *directives.Registry

	// Logger overrides the engine logger for this render only.
	Logger *slog.Logger
}

// Render starts a render. The returned error covers request validation
// and configuration problems only; execution failures, including template
// errors mid-stream, surface on the handle's Result so callers cannot
// confuse "never started" with "failed after writing output".
func (e *Engine) Render(ctx context.Context, req Request) (*Render, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if req.Sink == nil {
		return nil, fmt.Errorf("render: request needs a sink")
	}
	if req.Template == "" {
		return nil, fmt.Errorf("render: request needs a template name")
	}
	if err := e.reg.CheckActiveOrigins(req.ActiveOrigins); err != nil {
		return nil, err
	}
	tpl, err := e.entryTemplate(req)
	if err != nil {
		return nil, err
	}
	rec, err := data.NewRecord(req.Data)
	if err != nil {
		return nil, fmt.Errorf("render: convert data: %w", err)
	}
	inj, err := data.NewRecord(req.Injected)
	if err != nil {
		return nil, fmt.Errorf("render: convert injected data: %w", err)
	}

	st := &state{
		ctx:      ctx,
		eng:      e,
		outs:     []Sink{req.Sink},
		injected: inj,
		active:   req.ActiveOrigins,
		dirs:     e.dirs,
		logger:   e.logger,
		rootTpl:  tpl.Name,
	}
	if req.Directives != nil {
		st.dirs = req.Directives
	}
	if req.Logger != nil {
		st.logger = req.Logger
	}
	st.tasks = []task{&rootTask{tpl: tpl, rec: rec}}

	r := &Render{id: uuid.New(), eng: e, st: st}
	st.logger = st.logger.With("render_id", r.id.String())
	e.hooks.started(tpl.Name)
	r.result = r.segment()
	return r, nil
}

func (e *Engine) entryTemplate(req Request) (*model.Template, error) {
	if e.reg.IsGroup(req.Template) {
		tpl, ok, err := e.reg.Select(req.Template, req.Variant, req.ActiveOrigins)
		if err != nil {
			return nil, err
		}
		if !ok {
			if req.Variant.Present() {
				return nil, fmt.Errorf("render: found no active implementation for delegate group %q with variant %q",
					req.Template, req.Variant.Value())
			}
			return nil, fmt.Errorf("render: found no active implementation for delegate group %q", req.Template)
		}
		return tpl, nil
	}
	if tpl, ok := e.reg.Lookup(req.Template); ok {
		return tpl, nil
	}
	return nil, fmt.Errorf("render: template %q not found", req.Template)
}
