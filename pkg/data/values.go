// Package data holds the runtime value system the render engine evaluates
// over: scalar values, lists and records whose fields may still be pending,
// kinded content, and the provider contract hosts use to feed values that
// resolve after rendering has started.
package data

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-tofu/pkg/model"
)

// Value is a fully resolved runtime value.
//
// Bool is the truthiness used by conditions, String the text form used when
// printing, and Equals the comparison used by switch cases and the ==
// operator. Collections compare unequal to everything; their identity does
// not survive conversion, so equality over them is deliberately useless.
type Value interface {
	Bool() bool
	String() string
	Equals(other Value) bool
}

// Null is the null value.
type Null struct{}

// Undefined marks a record field access that found no field. It is distinct
// from Null: printing it is an error while printing null is not.
type Undefined struct{}

// Boolean is a boolean value.
type Boolean bool

// Integer is an integer value.
type Integer int64

// Float is a floating point value.
type Float float64

// Str is a plain (unkinded) string value.
type Str string

// List is an ordered collection. Elements are providers so list members may
// themselves be pending.
type List []Provider

// Record is a string-keyed collection backing template data, map literals
// and data="..." forwarding. Fields are providers so record fields may be
// pending.
type Record map[string]Provider

// Content is a string carrying the sanitization context it was produced
// for. Printing kinded content into a matching context skips re-escaping.
type Content struct {
	Kind model.ContentKind
	Val  string
}

func (Null) Bool() bool      { return false }
func (Undefined) Bool() bool { return false }
func (b Boolean) Bool() bool { return bool(b) }
func (i Integer) Bool() bool { return i != 0 }
func (f Float) Bool() bool   { return f != 0 }
func (s Str) Bool() bool     { return len(s) > 0 }
func (l List) Bool() bool    { return true }
func (r Record) Bool() bool  { return true }
func (c Content) Bool() bool { return len(c.Val) > 0 }

func (Null) String() string      { return "null" }
func (Undefined) String() string { return "undefined" }
func (b Boolean) String() string { return strconv.FormatBool(bool(b)) }
func (i Integer) String() string { return strconv.FormatInt(int64(i), 10) }
func (f Float) String() string   { return strconv.FormatFloat(float64(f), 'g', -1, 64) }
func (s Str) String() string     { return string(s) }
func (c Content) String() string { return c.Val }

func (l List) String() string {
	parts := make([]string, len(l))
	for i, p := range l {
		parts[i] = providerText(p)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (r Record) String() string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + providerText(r[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// providerText renders a collection member for display without forcing
// hosts to resolve pending values; pending members show as a placeholder.
func providerText(p Provider) string {
	if p == nil {
		return "null"
	}
	if p.Status() != StatusReady {
		return "<pending>"
	}
	v, err := p.Resolve()
	if err != nil {
		return "<error>"
	}
	return v.String()
}

func (Null) Equals(other Value) bool      { return isNullish(other) }
func (Undefined) Equals(other Value) bool { return isNullish(other) }

func (b Boolean) Equals(other Value) bool {
	o, ok := other.(Boolean)
	return ok && b == o
}

func (i Integer) Equals(other Value) bool {
	switch o := other.(type) {
	case Integer:
		return i == o
	case Float:
		return Float(i) == o
	}
	return false
}

func (f Float) Equals(other Value) bool {
	switch o := other.(type) {
	case Float:
		return f == o
	case Integer:
		return f == Float(o)
	}
	return false
}

func (s Str) Equals(other Value) bool     { return stringEquals(string(s), other) }
func (c Content) Equals(other Value) bool { return stringEquals(c.Val, other) }

func (List) Equals(Value) bool   { return false }
func (Record) Equals(Value) bool { return false }

// isNullish groups null and undefined for equality: both spell "no value"
// to the == operator even though printing treats them differently.
func isNullish(v Value) bool {
	switch v.(type) {
	case Null, Undefined:
		return true
	}
	return false
}

// stringEquals compares string-like values (plain strings and kinded
// content) by text.
func stringEquals(s string, other Value) bool {
	switch o := other.(type) {
	case Str:
		return s == string(o)
	case Content:
		return s == o.Val
	}
	return false
}

// TypeOf names a value's runtime type the way error messages spell it.
func TypeOf(v Value) string {
	switch x := v.(type) {
	case nil, Null:
		return "null"
	case Undefined:
		return "undefined"
	case Boolean:
		return "bool"
	case Integer:
		return "int"
	case Float:
		return "float"
	case Str:
		return "string"
	case List:
		return "list"
	case Record:
		return "record"
	case Content:
		return string(x.Kind) + " content"
	}
	return fmt.Sprintf("%T", v)
}

// Field reads a record field, distinguishing a missing field (Undefined)
// from a present null.
func (r Record) Field(name string) Provider {
	if p, ok := r[name]; ok {
		return p
	}
	return Ready(Undefined{})
}

// Has reports whether the record declares the field at all.
func (r Record) Has(name string) bool {
	_, ok := r[name]
	return ok
}
