package render

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/goliatone/go-tofu/pkg/data"
	"github.com/goliatone/go-tofu/pkg/model"
	"github.com/goliatone/go-tofu/pkg/registry"
)

// pendingSignal propagates "this expression touched a value the host has
// not produced yet" from the evaluator to the task loop. It is control
// flow, not a failure: the loop suspends the render and the interrupted
// task re-runs after resume. Re-evaluation is fine; evaluation order and
// count are not part of the output contract, the written bytes are.
type pendingSignal struct {
	provider data.Provider
}

func (p *pendingSignal) Error() string {
	return "render: suspended on pending value"
}

func isPending(err error) bool {
	var ps *pendingSignal
	return errors.As(err, &ps)
}

// force turns a provider into a value: bindings force through their
// render, pending host values suspend, failed host values fail the
// render.
func (st *state) force(p data.Provider) (data.Value, error) {
	if p == nil {
		return data.Undefined{}, nil
	}
	if b, ok := p.(*binding); ok {
		return b.force(st)
	}
	if p.Status() != data.StatusReady {
		return nil, &pendingSignal{provider: p}
	}
	v, err := p.Resolve()
	if err != nil {
		return nil, fmt.Errorf("render: error dereferencing async value: %w", err)
	}
	return v, nil
}

// eval computes an expression against a frame. The evaluator keeps no
// execution state of its own; an expression interrupted by a suspension
// is re-evaluated from scratch on resume.
func (st *state) eval(fr *frame, e model.Expr) (data.Value, error) {
	switch x := e.(type) {
	case model.NullLit:
		return data.Null{}, nil
	case model.BoolLit:
		return data.Boolean(x.Value), nil
	case model.IntLit:
		return data.Integer(x.Value), nil
	case model.FloatLit:
		return data.Float(x.Value), nil
	case model.StringLit:
		return data.Str(x.Value), nil
	case model.ListLit:
		return st.evalList(fr, x)
	case model.MapLit:
		return st.evalMap(fr, x)
	case model.VarRef:
		return st.evalVar(fr, x)
	case model.FieldAccess:
		return st.evalField(fr, x)
	case model.ItemAccess:
		return st.evalItem(fr, x)
	case model.Unary:
		return st.evalUnary(fr, x)
	case model.Binary:
		return st.evalBinary(fr, x)
	case model.Conditional:
		c, err := st.eval(fr, x.Cond)
		if err != nil {
			return nil, err
		}
		if c.Bool() {
			return st.eval(fr, x.Then)
		}
		return st.eval(fr, x.Else)
	case model.FuncCall:
		return st.evalFunc(fr, x)
	}
	return nil, fmt.Errorf("render: unsupported expression %q", e.String())
}

func (st *state) evalList(fr *frame, x model.ListLit) (data.Value, error) {
	list := make(data.List, len(x.Items))
	for i, item := range x.Items {
		v, err := st.eval(fr, item)
		if err != nil {
			return nil, err
		}
		list[i] = data.Ready(v)
	}
	return list, nil
}

func (st *state) evalMap(fr *frame, x model.MapLit) (data.Value, error) {
	rec := make(data.Record, len(x.Entries))
	for _, entry := range x.Entries {
		k, err := st.eval(fr, entry.Key)
		if err != nil {
			return nil, err
		}
		v, err := st.eval(fr, entry.Value)
		if err != nil {
			return nil, err
		}
		rec[k.String()] = data.Ready(v)
	}
	return rec, nil
}

func (st *state) evalVar(fr *frame, x model.VarRef) (data.Value, error) {
	if x.Injected {
		return st.force(st.injected.Field(x.Name))
	}
	if b, ok := fr.lookup(x.Name); ok {
		return b.force(st)
	}
	return data.Undefined{}, nil
}

func (st *state) evalField(fr *frame, x model.FieldAccess) (data.Value, error) {
	base, err := st.eval(fr, x.Base)
	if err != nil {
		return nil, err
	}
	if nullish(base) {
		if x.NullSafe {
			return data.Null{}, nil
		}
		return nil, fmt.Errorf("render: cannot access field %q of %s in expression %q",
			x.Field, data.TypeOf(base), x.String())
	}
	rec, ok := base.(data.Record)
	if !ok {
		return nil, fmt.Errorf("render: cannot access field %q of %s in expression %q",
			x.Field, data.TypeOf(base), x.String())
	}
	return st.force(rec.Field(x.Field))
}

func (st *state) evalItem(fr *frame, x model.ItemAccess) (data.Value, error) {
	base, err := st.eval(fr, x.Base)
	if err != nil {
		return nil, err
	}
	if nullish(base) {
		if x.NullSafe {
			return data.Null{}, nil
		}
		return nil, fmt.Errorf("render: cannot index %s in expression %q", data.TypeOf(base), x.String())
	}
	key, err := st.eval(fr, x.Key)
	if err != nil {
		return nil, err
	}
	switch b := base.(type) {
	case data.List:
		i, ok := key.(data.Integer)
		if !ok {
			return nil, fmt.Errorf("render: list index must be an integer, got %s in expression %q",
				data.TypeOf(key), x.String())
		}
		if i < 0 || int(i) >= len(b) {
			return data.Undefined{}, nil
		}
		return st.force(b[int(i)])
	case data.Record:
		return st.force(b.Field(key.String()))
	}
	return nil, fmt.Errorf("render: cannot index %s in expression %q", data.TypeOf(base), x.String())
}

func (st *state) evalUnary(fr *frame, x model.Unary) (data.Value, error) {
	v, err := st.eval(fr, x.Operand)
	if err != nil {
		return nil, err
	}
	switch x.Op {
	case model.OpNot:
		return data.Boolean(!v.Bool()), nil
	case model.OpNeg:
		switch n := v.(type) {
		case data.Integer:
			return -n, nil
		case data.Float:
			return -n, nil
		}
		return nil, fmt.Errorf("render: operator \"-\" cannot be applied to %s in expression %q",
			data.TypeOf(v), x.String())
	}
	return nil, fmt.Errorf("render: unknown unary operator %q", x.Op)
}

func (st *state) evalBinary(fr *frame, x model.Binary) (data.Value, error) {
	// and/or/?: evaluate the right side only when it can decide the
	// result, so a pending value there never suspends a decided branch.
	switch x.Op {
	case model.OpAnd:
		l, err := st.eval(fr, x.Left)
		if err != nil {
			return nil, err
		}
		if !l.Bool() {
			return data.Boolean(false), nil
		}
		r, err := st.eval(fr, x.Right)
		if err != nil {
			return nil, err
		}
		return data.Boolean(r.Bool()), nil
	case model.OpOr:
		l, err := st.eval(fr, x.Left)
		if err != nil {
			return nil, err
		}
		if l.Bool() {
			return data.Boolean(true), nil
		}
		r, err := st.eval(fr, x.Right)
		if err != nil {
			return nil, err
		}
		return data.Boolean(r.Bool()), nil
	case model.OpElvis:
		l, err := st.eval(fr, x.Left)
		if err != nil {
			return nil, err
		}
		if !nullish(l) {
			return l, nil
		}
		return st.eval(fr, x.Right)
	}

	l, err := st.eval(fr, x.Left)
	if err != nil {
		return nil, err
	}
	r, err := st.eval(fr, x.Right)
	if err != nil {
		return nil, err
	}

	switch x.Op {
	case model.OpEq:
		return data.Boolean(l.Equals(r)), nil
	case model.OpNe:
		return data.Boolean(!l.Equals(r)), nil
	case model.OpAdd:
		if stringish(l) || stringish(r) {
			return data.Str(l.String() + r.String()), nil
		}
	case model.OpLt, model.OpLte, model.OpGt, model.OpGte:
		if stringish(l) && stringish(r) {
			return compareStrings(x.Op, l.String(), r.String()), nil
		}
	}
	return arith(x, l, r)
}

func compareStrings(op model.BinaryOp, l, r string) data.Value {
	switch op {
	case model.OpLt:
		return data.Boolean(l < r)
	case model.OpLte:
		return data.Boolean(l <= r)
	case model.OpGt:
		return data.Boolean(l > r)
	}
	return data.Boolean(l >= r)
}

type number struct {
	i     int64
	f     float64
	isInt bool
}

func numberOf(v data.Value) (number, bool) {
	switch n := v.(type) {
	case data.Integer:
		return number{i: int64(n), f: float64(n), isInt: true}, true
	case data.Float:
		return number{f: float64(n)}, true
	}
	return number{}, false
}

func arith(x model.Binary, l, r data.Value) (data.Value, error) {
	ln, lok := numberOf(l)
	rn, rok := numberOf(r)
	if !lok || !rok {
		return nil, fmt.Errorf("render: operator %q cannot be applied to %s and %s in expression %q",
			x.Op, data.TypeOf(l), data.TypeOf(r), x.String())
	}
	bothInt := ln.isInt && rn.isInt
	switch x.Op {
	case model.OpAdd:
		if bothInt {
			return data.Integer(ln.i + rn.i), nil
		}
		return data.Float(ln.f + rn.f), nil
	case model.OpSub:
		if bothInt {
			return data.Integer(ln.i - rn.i), nil
		}
		return data.Float(ln.f - rn.f), nil
	case model.OpMul:
		if bothInt {
			return data.Integer(ln.i * rn.i), nil
		}
		return data.Float(ln.f * rn.f), nil
	case model.OpDiv:
		// Division is always floating point.
		return data.Float(ln.f / rn.f), nil
	case model.OpMod:
		if !bothInt {
			return nil, fmt.Errorf("render: operator %q needs integer operands, got %s and %s in expression %q",
				x.Op, data.TypeOf(l), data.TypeOf(r), x.String())
		}
		if rn.i == 0 {
			return nil, fmt.Errorf("render: modulo by zero in expression %q", x.String())
		}
		return data.Integer(ln.i % rn.i), nil
	case model.OpLt:
		if bothInt {
			return data.Boolean(ln.i < rn.i), nil
		}
		return data.Boolean(ln.f < rn.f), nil
	case model.OpLte:
		if bothInt {
			return data.Boolean(ln.i <= rn.i), nil
		}
		return data.Boolean(ln.f <= rn.f), nil
	case model.OpGt:
		if bothInt {
			return data.Boolean(ln.i > rn.i), nil
		}
		return data.Boolean(ln.f > rn.f), nil
	case model.OpGte:
		if bothInt {
			return data.Boolean(ln.i >= rn.i), nil
		}
		return data.Boolean(ln.f >= rn.f), nil
	}
	return nil, fmt.Errorf("render: unknown operator %q in expression %q", x.Op, x.String())
}

func (st *state) evalFunc(fr *frame, x model.FuncCall) (data.Value, error) {
	switch x.Name {
	case "index", "isFirst", "isLast":
		return st.loopFunc(fr, x)
	case "hasData":
		if err := arity(x, 0); err != nil {
			return nil, err
		}
		return data.Boolean(true), nil
	}

	args := make([]data.Value, len(x.Args))
	for i, ae := range x.Args {
		v, err := st.eval(fr, ae)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	switch x.Name {
	case "length":
		if err := arity(x, 1); err != nil {
			return nil, err
		}
		list, ok := args[0].(data.List)
		if !ok {
			return nil, fmt.Errorf("render: function %q expects a list, got %s", x.Name, data.TypeOf(args[0]))
		}
		return data.Integer(len(list)), nil
	case "keys":
		if err := arity(x, 1); err != nil {
			return nil, err
		}
		rec, ok := args[0].(data.Record)
		if !ok {
			return nil, fmt.Errorf("render: function %q expects a record, got %s", x.Name, data.TypeOf(args[0]))
		}
		names := make([]string, 0, len(rec))
		for k := range rec {
			names = append(names, k)
		}
		sort.Strings(names)
		list := make(data.List, len(names))
		for i, k := range names {
			list[i] = data.Ready(data.Str(k))
		}
		return list, nil
	case "isNonnull":
		if err := arity(x, 1); err != nil {
			return nil, err
		}
		return data.Boolean(!nullish(args[0])), nil
	case "isNull":
		if err := arity(x, 1); err != nil {
			return nil, err
		}
		return data.Boolean(nullish(args[0])), nil
	case "checkNotNull":
		if err := arity(x, 1); err != nil {
			return nil, err
		}
		if nullish(args[0]) {
			return nil, fmt.Errorf("render: checkNotNull of %s value in expression %q",
				data.TypeOf(args[0]), x.String())
		}
		return args[0], nil
	case "floor", "ceiling", "round":
		if err := arity(x, 1); err != nil {
			return nil, err
		}
		n, ok := numberOf(args[0])
		if !ok {
			return nil, fmt.Errorf("render: function %q expects a number, got %s", x.Name, data.TypeOf(args[0]))
		}
		if n.isInt {
			return data.Integer(n.i), nil
		}
		switch x.Name {
		case "floor":
			return data.Integer(math.Floor(n.f)), nil
		case "ceiling":
			return data.Integer(math.Ceil(n.f)), nil
		}
		return data.Integer(math.Round(n.f)), nil
	case "min", "max":
		if err := arity(x, 2); err != nil {
			return nil, err
		}
		a, aok := numberOf(args[0])
		b, bok := numberOf(args[1])
		if !aok || !bok {
			return nil, fmt.Errorf("render: function %q expects numbers, got %s and %s",
				x.Name, data.TypeOf(args[0]), data.TypeOf(args[1]))
		}
		lower := x.Name == "min"
		if a.isInt && b.isInt {
			if (a.i < b.i) == lower {
				return data.Integer(a.i), nil
			}
			return data.Integer(b.i), nil
		}
		if (a.f < b.f) == lower {
			return data.Float(a.f), nil
		}
		return data.Float(b.f), nil
	case "strContains":
		if err := arity(x, 2); err != nil {
			return nil, err
		}
		if !stringish(args[0]) || !stringish(args[1]) {
			return nil, fmt.Errorf("render: function %q expects string arguments, got %s and %s",
				x.Name, data.TypeOf(args[0]), data.TypeOf(args[1]))
		}
		return data.Boolean(strings.Contains(args[0].String(), args[1].String())), nil
	case "strLen":
		if err := arity(x, 1); err != nil {
			return nil, err
		}
		if !stringish(args[0]) {
			return nil, fmt.Errorf("render: function %q expects a string argument, got %s",
				x.Name, data.TypeOf(args[0]))
		}
		return data.Integer(utf8.RuneCountInString(args[0].String())), nil
	}
	return nil, fmt.Errorf("render: unknown function %q", x.Name)
}

func arity(x model.FuncCall, want int) error {
	if len(x.Args) == want {
		return nil
	}
	word := "arguments"
	if want == 1 {
		word = "argument"
	}
	return fmt.Errorf("render: function %q takes %d %s, got %d", x.Name, want, word, len(x.Args))
}

// loopFunc serves index/isFirst/isLast. The argument must literally be a
// live foreach variable; the metadata lives in the frame, not the value.
func (st *state) loopFunc(fr *frame, x model.FuncCall) (data.Value, error) {
	if err := arity(x, 1); err != nil {
		return nil, err
	}
	ref, ok := x.Args[0].(model.VarRef)
	if !ok {
		return nil, fmt.Errorf("render: function %q expects a foreach loop variable, got %q",
			x.Name, x.Args[0].String())
	}
	info, ok := fr.loops[ref.Name]
	if !ok {
		return nil, fmt.Errorf("render: function %q expects a foreach loop variable, got %q",
			x.Name, x.Args[0].String())
	}
	switch x.Name {
	case "index":
		return data.Integer(info.index), nil
	case "isFirst":
		return data.Boolean(info.index == 0), nil
	}
	return data.Boolean(info.index == info.size-1), nil
}

func nullish(v data.Value) bool {
	switch v.(type) {
	case data.Null, data.Undefined:
		return true
	}
	return v == nil
}

func stringish(v data.Value) bool {
	switch v.(type) {
	case data.Str, data.Content:
		return true
	}
	return false
}

// coerceVariant turns an evaluated delegate variant expression into a
// selection variant: strings stand as-is, integers coerce to their
// decimal spelling, null and undefined mean "no variant requested".
func coerceVariant(e model.Expr, v data.Value) (registry.Variant, error) {
	switch x := v.(type) {
	case data.Str:
		return registry.VariantOf(string(x)), nil
	case data.Content:
		return registry.VariantOf(x.Val), nil
	case data.Integer:
		return registry.VariantOf(x.String()), nil
	case data.Null, data.Undefined:
		return registry.NoVariant(), nil
	}
	return registry.NoVariant(), fmt.Errorf(
		"delegate template variant expression %q must evaluate to a string or integer, got %s",
		e.String(), data.TypeOf(v))
}
