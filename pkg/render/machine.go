package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/goliatone/go-tofu/pkg/data"
	"github.com/goliatone/go-tofu/pkg/directives"
	"github.com/goliatone/go-tofu/pkg/model"
	"github.com/goliatone/go-tofu/pkg/registry"
)

// signal tells the run loop what to do after a task step.
type signal int

const (
	sigContinue signal = iota
	sigPending
	sigBackpressure
)

// task is one resumable unit of work. A step either makes progress and
// reports sigContinue, or parks the render with a suspension signal. A
// task that returns an error leaves its own state untouched so the same
// step can run again after resume.
type task interface {
	step(st *state) (signal, error)
}

// state is the whole execution state of one render: the task stack holds
// the continuation, the output stack holds the sink with any capture
// buffers above it, the frame stack mirrors template nesting for error
// reports. Everything a resume needs lives here.
type state struct {
	ctx      context.Context
	eng      *Engine
	outs     []Sink
	tasks    []task
	frames   []*frame
	injected data.Record
	active   registry.ActiveOrigins
	dirs     *directives.Registry
	logger   *slog.Logger

	// pending holds the provider that parked the render, for the handle
	// to surface. Cleared on resume.
	pending data.Provider

	rootTpl string
}

func (st *state) reg() *registry.Registry { return st.eng.reg }

func (st *state) pushTask(t task) { st.tasks = append(st.tasks, t) }

func (st *state) popTask() { st.tasks = st.tasks[:len(st.tasks)-1] }

// out is the sink output currently flows to: the host sink, or the
// innermost capture buffer.
func (st *state) out() Sink { return st.outs[len(st.outs)-1] }

func (st *state) write(s string) error {
	if s == "" {
		return nil
	}
	if _, err := st.out().WriteString(s); err != nil {
		return fmt.Errorf("render: write output: %w", err)
	}
	return nil
}

// run drives the task stack until it drains or a task suspends. Pending
// values surface as errors from deep inside expression evaluation and
// are converted to a suspension here, once, instead of threading a
// status through every evaluator return.
func (st *state) run() (State, error) {
	for len(st.tasks) > 0 {
		top := st.tasks[len(st.tasks)-1]
		sig, err := top.step(st)
		if err != nil {
			var ps *pendingSignal
			if errors.As(err, &ps) {
				st.pending = ps.provider
				sig = sigPending
			} else {
				return StateFailed, st.trap(err)
			}
		}
		switch sig {
		case sigPending:
			return StatePendingValue, nil
		case sigBackpressure:
			return StateBackpressure, nil
		}
	}
	return StateDone, nil
}

// trap dresses a failure with the frame stack as it stands right now.
// Callers that unwind synthetic frames must trap before popping, so a
// failure inside a deferred binding is attributed to the defining
// template even when the forcing template is several calls away.
func (st *state) trap(err error) error {
	if _, ok := err.(*Error); ok {
		return err
	}
	return st.stackError(err)
}

func (st *state) stackError(cause error) *Error {
	frames := make([]Frame, 0, len(st.frames))
	for i := len(st.frames) - 1; i >= 0; i-- {
		fr := st.frames[i]
		frames = append(frames, Frame{Template: fr.tpl.Name, Location: fr.curLoc})
	}
	return &Error{Msg: cause.Error(), Frames: frames, cause: cause}
}

// evalAt evaluates an expression under a synthetic frame pinned to the
// binding's defining site, so failures inside deferred lets and params
// report the definition line, not the line that happened to force them.
func (st *state) evalAt(fr *frame, loc model.SourceLocation, e model.Expr) (data.Value, error) {
	syn := fr.at(loc)
	st.frames = append(st.frames, syn)
	v, err := st.eval(syn, e)
	if err != nil && !isPending(err) {
		err = st.trap(err)
	}
	st.frames = st.frames[:len(st.frames)-1]
	return v, err
}

// renderContent renders a node list into kinded content by running a
// nested task machine against a capture buffer. A pending value discards
// the partial buffer entirely; the resumed render re-renders the block
// from the top and only a finished block is memoized, so no partial
// content can ever leak into two differing copies of the output.
func (st *state) renderContent(fr *frame, loc model.SourceLocation, body []model.Node, kind model.ContentKind) (data.Value, error) {
	if kind == "" {
		kind = model.KindHTML
	}
	buf := &bufferSink{}
	syn := fr.at(loc)

	savedTasks, savedOuts, savedDepth := st.tasks, st.outs, len(st.frames)
	st.tasks = []task{&nodeListTask{fr: syn, nodes: body}}
	st.outs = []Sink{buf}
	st.frames = append(st.frames, syn)
	defer func() {
		st.tasks, st.outs = savedTasks, savedOuts
		st.frames = st.frames[:savedDepth]
	}()

	for len(st.tasks) > 0 {
		top := st.tasks[len(st.tasks)-1]
		sig, err := top.step(st)
		if err != nil {
			if !isPending(err) {
				err = st.trap(err)
			}
			return nil, err
		}
		if sig == sigBackpressure {
			return nil, fmt.Errorf("render: backpressure inside buffered content")
		}
	}
	return data.Content{Kind: kind, Val: buf.String()}, nil
}

// nodeListTask executes a block one node at a time. The index advances
// only after a node finishes, so a suspension inside a node re-executes
// that node on resume.
type nodeListTask struct {
	fr    *frame
	nodes []model.Node
	idx   int
}

func (t *nodeListTask) step(st *state) (signal, error) {
	if t.idx >= len(t.nodes) {
		st.popTask()
		return sigContinue, nil
	}
	node := t.nodes[t.idx]
	t.fr.curLoc = node.Location()
	if err := st.execNode(t.fr, node); err != nil {
		return sigContinue, err
	}
	t.idx++
	return sigContinue, nil
}

func (st *state) execNode(fr *frame, node model.Node) error {
	switch n := node.(type) {
	case model.RawText:
		return st.write(n.Text)
	case model.Print:
		return st.execPrint(fr, n)
	case model.Let:
		fr.define(n.Name, &binding{name: n.Name, st: st, def: fr, loc: n.Loc, expr: n.Value})
		return nil
	case model.LetContent:
		fr.define(n.Name, &binding{name: n.Name, st: st, def: fr, loc: n.Loc, body: n.Body, kind: n.Kind})
		return nil
	case model.If:
		return st.execIf(fr, n)
	case model.Switch:
		return st.execSwitch(fr, n)
	case model.Foreach:
		return st.execForeach(fr, n)
	case model.For:
		return st.execFor(fr, n)
	case model.Call:
		return st.pushCall(fr, &callTask{fr: fr, call: &n}, n.Directives)
	case model.DelCall:
		return st.pushCall(fr, &callTask{fr: fr, delcall: &n}, n.Directives)
	case model.Log:
		buf := &bufferSink{}
		st.outs = append(st.outs, buf)
		st.pushTask(&logFlushTask{buf: buf})
		st.pushTask(&nodeListTask{fr: fr, nodes: n.Body})
		return nil
	case model.Debugger:
		st.logger.Debug("debugger tag reached",
			"template", fr.tpl.Name,
			"location", n.Loc.String(),
		)
		return nil
	}
	return fmt.Errorf("render: unsupported node at %s", node.Location())
}

func (st *state) execPrint(fr *frame, n model.Print) error {
	v, err := st.eval(fr, n.Value)
	if err != nil {
		return err
	}
	if _, ok := v.(data.Undefined); ok {
		return fmt.Errorf("In 'print' tag, expression %q evaluates to undefined.", n.Value.String())
	}
	v, err = st.applyDirectives(fr, v, n.Directives)
	if err != nil {
		return err
	}
	return st.write(v.String())
}

func (st *state) applyDirectives(fr *frame, v data.Value, calls []model.DirectiveCall) (data.Value, error) {
	for _, dc := range calls {
		d, err := st.dirs.Get(dc.Name)
		if err != nil {
			return nil, err
		}
		args := make([]data.Value, len(dc.Args))
		for i, ae := range dc.Args {
			av, err := st.eval(fr, ae)
			if err != nil {
				return nil, err
			}
			args[i] = av
		}
		v, err = d.Apply(v, args)
		if err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (st *state) execIf(fr *frame, n model.If) error {
	for _, br := range n.Branches {
		c, err := st.eval(fr, br.Cond)
		if err != nil {
			return err
		}
		if c.Bool() {
			st.pushTask(&nodeListTask{fr: fr, nodes: br.Body})
			return nil
		}
	}
	if len(n.Else) > 0 {
		st.pushTask(&nodeListTask{fr: fr, nodes: n.Else})
	}
	return nil
}

func (st *state) execSwitch(fr *frame, n model.Switch) error {
	v, err := st.eval(fr, n.Value)
	if err != nil {
		return err
	}
	for _, c := range n.Cases {
		for _, ce := range c.Values {
			cv, err := st.eval(fr, ce)
			if err != nil {
				return err
			}
			if v.Equals(cv) {
				st.pushTask(&nodeListTask{fr: fr, nodes: c.Body})
				return nil
			}
		}
	}
	if len(n.Default) > 0 {
		st.pushTask(&nodeListTask{fr: fr, nodes: n.Default})
	}
	return nil
}

func (st *state) execForeach(fr *frame, n model.Foreach) error {
	v, err := st.eval(fr, n.List)
	if err != nil {
		return err
	}
	list, ok := v.(data.List)
	if !ok {
		return fmt.Errorf("In 'foreach' tag, expression %q does not evaluate to a list.", n.List.String())
	}
	if len(list) == 0 {
		if len(n.IfEmpty) > 0 {
			st.pushTask(&nodeListTask{fr: fr, nodes: n.IfEmpty})
		}
		return nil
	}
	st.pushTask(&foreachTask{fr: fr, node: n, items: list})
	return nil
}

func (st *state) execFor(fr *frame, n model.For) error {
	start, err := st.evalInt(fr, n.Start)
	if err != nil {
		return err
	}
	end, err := st.evalInt(fr, n.End)
	if err != nil {
		return err
	}
	stride := int64(1)
	if n.Step != nil {
		stride, err = st.evalInt(fr, n.Step)
		if err != nil {
			return err
		}
		if stride == 0 {
			return fmt.Errorf("render: 'for' range step must not be zero")
		}
	}
	st.pushTask(&forRangeTask{fr: fr, varName: n.Var, cur: start, end: end, stride: stride, body: n.Body})
	return nil
}

func (st *state) evalInt(fr *frame, e model.Expr) (int64, error) {
	v, err := st.eval(fr, e)
	if err != nil {
		return 0, err
	}
	i, ok := v.(data.Integer)
	if !ok {
		return 0, fmt.Errorf("In 'for' tag, range argument %q does not evaluate to an integer.", e.String())
	}
	return int64(i), nil
}

// foreachTask runs one iteration per step. The element provider is bound
// lazily, so a pending list element only suspends the render if the body
// actually touches it.
type foreachTask struct {
	fr    *frame
	node  model.Foreach
	items data.List
	idx   int
}

func (t *foreachTask) step(st *state) (signal, error) {
	if t.idx >= len(t.items) {
		delete(t.fr.loops, t.node.Var)
		st.popTask()
		return sigContinue, nil
	}
	t.fr.loops[t.node.Var] = loopInfo{index: t.idx, size: len(t.items)}
	t.fr.define(t.node.Var, &binding{name: t.node.Var, st: st, def: t.fr, loc: t.node.Loc, prov: t.items[t.idx]})
	st.pushTask(&nodeListTask{fr: t.fr, nodes: t.node.Body})
	t.idx++
	return sigContinue, nil
}

type forRangeTask struct {
	fr      *frame
	varName string
	cur     int64
	end     int64
	stride  int64
	body    []model.Node
}

func (t *forRangeTask) step(st *state) (signal, error) {
	if (t.stride > 0 && t.cur >= t.end) || (t.stride < 0 && t.cur <= t.end) {
		st.popTask()
		return sigContinue, nil
	}
	t.fr.define(t.varName, bound(t.varName, data.Integer(t.cur)))
	st.pushTask(&nodeListTask{fr: t.fr, nodes: t.body})
	t.cur += t.stride
	return sigContinue, nil
}

// pushCall schedules a template call. Directives on the call capture the
// callee's whole output first, so they see one value, not a byte stream.
func (st *state) pushCall(fr *frame, ct *callTask, dirs []model.DirectiveCall) error {
	if len(dirs) > 0 {
		buf := &bufferSink{}
		st.outs = append(st.outs, buf)
		st.pushTask(&directiveFlushTask{fr: fr, buf: buf, dirs: dirs})
	}
	st.pushTask(ct)
	return nil
}

// callTask resolves the callee, assembles its data record, and enters it.
// Backpressure is consulted exactly once, on first entry; a resumed call
// proceeds even if the sink flipped back to not-ready, which bounds the
// suspension rate to one per template entry.
type callTask struct {
	fr      *frame
	call    *model.Call
	delcall *model.DelCall
	checked bool
}

func (t *callTask) step(st *state) (signal, error) {
	if !t.checked {
		t.checked = true
		if !st.out().ReadyForMore() {
			return sigBackpressure, nil
		}
	}
	if err := st.ctx.Err(); err != nil {
		return sigContinue, fmt.Errorf("render: %w", err)
	}

	var (
		target *model.Template
		err    error
	)
	if t.delcall != nil {
		target, err = st.resolveDelCall(t.fr, t.delcall)
	} else {
		target, err = st.resolveCall(t.call.Callee)
	}
	if err != nil {
		return sigContinue, err
	}
	if target == nil {
		// delcall with no active implementation and allowemptydefault.
		st.popTask()
		return sigContinue, nil
	}

	dataAll, dataExpr, params := t.site()
	record, err := st.callRecord(t.fr, t.loc(), dataAll, dataExpr, params)
	if err != nil {
		return sigContinue, err
	}

	st.popTask()
	return sigContinue, st.enter(target, record)
}

func (t *callTask) site() (bool, model.Expr, []model.CallParam) {
	if t.delcall != nil {
		return t.delcall.DataAll, t.delcall.DataExpr, t.delcall.Params
	}
	return t.call.DataAll, t.call.DataExpr, t.call.Params
}

func (t *callTask) loc() model.SourceLocation {
	if t.delcall != nil {
		return t.delcall.Loc
	}
	return t.call.Loc
}

func (st *state) resolveCall(callee string) (*model.Template, error) {
	if st.reg().IsGroup(callee) {
		return st.selectImpl(callee, registry.NoVariant(), false)
	}
	if tpl, ok := st.reg().Lookup(callee); ok {
		return tpl, nil
	}
	return nil, fmt.Errorf("render: template %q not found", callee)
}

func (st *state) resolveDelCall(fr *frame, n *model.DelCall) (*model.Template, error) {
	variant := registry.NoVariant()
	if n.VariantExpr != nil {
		v, err := st.eval(fr, n.VariantExpr)
		if err != nil {
			return nil, err
		}
		variant, err = coerceVariant(n.VariantExpr, v)
		if err != nil {
			return nil, err
		}
	}
	if !st.reg().IsGroup(n.Group) && n.AllowEmptyDefault {
		return nil, nil
	}
	return st.selectImpl(n.Group, variant, n.AllowEmptyDefault)
}

func (st *state) selectImpl(group string, variant registry.Variant, allowEmpty bool) (*model.Template, error) {
	tpl, ok, err := st.reg().Select(group, variant, st.active)
	if err != nil {
		return nil, err
	}
	if !ok {
		if allowEmpty {
			return nil, nil
		}
		if variant.Present() {
			return nil, fmt.Errorf("render: found no active implementation for delegate group %q with variant %q",
				group, variant.Value())
		}
		return nil, fmt.Errorf("render: found no active implementation for delegate group %q", group)
	}
	return tpl, nil
}

// callRecord builds the callee's data record: forwarded fields first,
// explicit params on top. Explicit params enter as live bindings against
// the calling frame, so they stay lazy and memoized exactly like lets.
func (st *state) callRecord(fr *frame, loc model.SourceLocation, dataAll bool, dataExpr model.Expr, params []model.CallParam) (data.Record, error) {
	record := data.Record{}
	if dataAll {
		for k, p := range fr.data {
			record[k] = p
		}
	} else if dataExpr != nil {
		v, err := st.eval(fr, dataExpr)
		if err != nil {
			return nil, err
		}
		fwd, ok := v.(data.Record)
		if !ok {
			return nil, fmt.Errorf("In 'call' tag, expression %q does not evaluate to a record.", dataExpr.String())
		}
		for k, p := range fwd {
			record[k] = p
		}
	}
	for _, cp := range params {
		b := &binding{name: cp.Name, st: st, def: fr, loc: loc}
		if cp.Body != nil {
			b.body, b.kind = cp.Body, cp.Kind
		} else {
			b.expr = cp.Value
		}
		record[cp.Name] = b
	}
	return record, nil
}

// enter pushes a callee: new frame, pop-frame sentinel, parameter
// bindings, then the body. The frame is pushed before parameters bind so
// a binding failure reports inside the callee.
func (st *state) enter(tpl *model.Template, record data.Record) error {
	fr := newFrame(tpl)
	fr.data = record
	st.frames = append(st.frames, fr)
	st.pushTask(&framePopTask{})
	if err := st.bindParams(fr, tpl, record); err != nil {
		return err
	}
	st.pushTask(&nodeListTask{fr: fr, nodes: tpl.Body})
	return nil
}

func (st *state) bindParams(fr *frame, tpl *model.Template, record data.Record) error {
	for i := range tpl.Params {
		pd := &tpl.Params[i]
		if pd.Injected {
			fr.define(pd.Name, &binding{name: pd.Name, st: st, prov: st.injected.Field(pd.Name), param: pd})
			continue
		}
		if p, ok := record[pd.Name]; ok {
			if b, ok := p.(*binding); ok {
				b.param = pd
				fr.define(pd.Name, b)
				continue
			}
			// Host-supplied ready values are checked at bind time so a
			// type mismatch fails the call site even if the body never
			// reads the parameter.
			if p.Status() == data.StatusReady && !pd.Type.Any() {
				if v, err := p.Resolve(); err == nil {
					if err := data.Assert(v, pd.Name, pd.Type); err != nil {
						return err
					}
				}
			}
			fr.define(pd.Name, &binding{name: pd.Name, st: st, prov: p, param: pd})
			continue
		}
		if pd.Default != nil {
			fr.define(pd.Name, &binding{name: pd.Name, st: st, def: fr, loc: tpl.Location, expr: pd.Default, param: pd})
			continue
		}
		if pd.Required {
			return fmt.Errorf("render: template %q is missing required parameter %q", tpl.Name, pd.Name)
		}
		fr.define(pd.Name, bound(pd.Name, data.Null{}))
	}
	return nil
}

// rootTask enters the top-level template. It mirrors callTask's
// once-per-entry backpressure check so a render against a saturated sink
// parks before producing anything.
type rootTask struct {
	tpl     *model.Template
	rec     data.Record
	checked bool
}

func (t *rootTask) step(st *state) (signal, error) {
	if !t.checked {
		t.checked = true
		if !st.out().ReadyForMore() {
			return sigBackpressure, nil
		}
	}
	if err := st.ctx.Err(); err != nil {
		return sigContinue, fmt.Errorf("render: %w", err)
	}
	st.popTask()
	return sigContinue, st.enter(t.tpl, t.rec)
}

// framePopTask unwinds one template frame after its body drains.
type framePopTask struct{}

func (framePopTask) step(st *state) (signal, error) {
	st.frames = st.frames[:len(st.frames)-1]
	st.popTask()
	return sigContinue, nil
}

// logFlushTask closes a log capture and hands the text to the logger.
type logFlushTask struct {
	buf *bufferSink
}

func (t *logFlushTask) step(st *state) (signal, error) {
	st.outs = st.outs[:len(st.outs)-1]
	st.popTask()
	st.logger.Info(t.buf.String())
	return sigContinue, nil
}

// directiveFlushTask closes a call capture, applies the call site's
// directives to the whole rendered output, and writes the result. The
// capture buffer is popped only after the directives succeed, so a
// directive failure cannot leave half-processed output behind.
type directiveFlushTask struct {
	fr   *frame
	buf  *bufferSink
	dirs []model.DirectiveCall
}

func (t *directiveFlushTask) step(st *state) (signal, error) {
	v, err := st.applyDirectives(t.fr, data.Str(t.buf.String()), t.dirs)
	if err != nil {
		return sigContinue, err
	}
	st.outs = st.outs[:len(st.outs)-1]
	st.popTask()
	return sigContinue, st.write(v.String())
}
