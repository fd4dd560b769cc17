package render

import (
	"fmt"

	"github.com/goliatone/go-tofu/pkg/data"
	"github.com/goliatone/go-tofu/pkg/model"
)

// frame is one template invocation's environment: parameter and local
// bindings, the effective data record behind data="all" forwarding, live
// foreach metadata, and the source position currently executing (which is
// what stack synthesis reads). A frame is owned by exactly one render.
type frame struct {
	tpl    *model.Template
	env    map[string]*binding
	data   data.Record
	loops  map[string]loopInfo
	curLoc model.SourceLocation
}

func newFrame(tpl *model.Template) *frame {
	return &frame{
		tpl:    tpl,
		env:    make(map[string]*binding),
		loops:  make(map[string]loopInfo),
		curLoc: tpl.Location,
	}
}

// loopInfo backs the index/isFirst/isLast functions for one foreach
// variable.
type loopInfo struct {
	index int
	size  int
}

func (f *frame) define(name string, b *binding) { f.env[name] = b }

func (f *frame) lookup(name string) (*binding, bool) {
	b, ok := f.env[name]
	return b, ok
}

// at returns a view of this frame pinned to a different source position.
// Thunk forcing pushes one onto the frame stack so a failure inside the
// thunk attributes to the binding's defining site even though that site
// is no longer live on any native stack.
func (f *frame) at(loc model.SourceLocation) *frame {
	return &frame{tpl: f.tpl, env: f.env, data: f.data, loops: f.loops, curLoc: loc}
}

type bindingState int

const (
	bindUnforced bindingState = iota
	bindForcing
	bindDone
)

// binding is the explicit deferred-value cell behind every parameter,
// let and content block. Exactly one of prov/expr/body is set. Forcing
// is memoized, so the bound expression or block runs at most once per
// render; a declared parameter type is checked against the first forced
// value. A pending signal leaves the cell unforced so the resumed render
// computes it again.
type binding struct {
	name  string
	st    *state
	def   *frame
	loc   model.SourceLocation
	prov  data.Provider
	expr  model.Expr
	body  []model.Node
	kind  model.ContentKind
	param *model.Param

	state bindingState
	val   data.Value
}

// bound wraps an already resolved value.
func bound(name string, v data.Value) *binding {
	return &binding{name: name, state: bindDone, val: v}
}

// Status and Resolve let bindings sit inside data.Record fields, which is
// how explicit call params join a forwarded record without evaluating
// early. Laziness is invisible to Status; only a wrapped host async value
// reports pending.
func (b *binding) Status() data.Status {
	if b.state != bindDone && b.prov != nil {
		return b.prov.Status()
	}
	return data.StatusReady
}

// Resolve implements data.Provider against the render that created the
// binding.
func (b *binding) Resolve() (data.Value, error) {
	return b.force(b.st)
}

func (b *binding) force(st *state) (data.Value, error) {
	switch b.state {
	case bindDone:
		return b.val, nil
	case bindForcing:
		return nil, fmt.Errorf("render: binding \"$%s\" depends on itself", b.name)
	}

	b.state = bindForcing
	v, err := b.compute(st)
	if err != nil {
		b.state = bindUnforced
		return nil, err
	}
	if b.param != nil && !b.param.Type.Any() {
		if err := data.Assert(v, b.param.Name, b.param.Type); err != nil {
			b.state = bindUnforced
			return nil, err
		}
	}
	b.val = v
	b.state = bindDone
	return v, nil
}

func (b *binding) compute(st *state) (data.Value, error) {
	switch {
	case b.prov != nil:
		return st.force(b.prov)
	case b.expr != nil:
		return st.evalAt(b.def, b.loc, b.expr)
	case b.body != nil:
		return st.renderContent(b.def, b.loc, b.body, b.kind)
	}
	return data.Undefined{}, nil
}
