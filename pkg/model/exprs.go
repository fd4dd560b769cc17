package model

import (
	"strconv"
	"strings"
)

// Expr is one compiled expression. String reconstructs the authored source
// form; runtime error messages quote it, so implementations keep the
// spelling stable.
type Expr interface {
	Location() SourceLocation
	String() string
	exprKind() string
}

// UnaryOp names a unary operator.
type UnaryOp string

const (
	OpNot UnaryOp = "not"
	OpNeg UnaryOp = "-"
)

// BinaryOp names a binary operator. OpAnd and OpOr short-circuit; OpElvis
// is null-coalescing (left unless null/undefined, else right).
type BinaryOp string

const (
	OpAdd   BinaryOp = "+"
	OpSub   BinaryOp = "-"
	OpMul   BinaryOp = "*"
	OpDiv   BinaryOp = "/"
	OpMod   BinaryOp = "%"
	OpLt    BinaryOp = "<"
	OpLte   BinaryOp = "<="
	OpGt    BinaryOp = ">"
	OpGte   BinaryOp = ">="
	OpEq    BinaryOp = "=="
	OpNe    BinaryOp = "!="
	OpAnd   BinaryOp = "and"
	OpOr    BinaryOp = "or"
	OpElvis BinaryOp = "?:"
)

// NullLit is the null literal.
type NullLit struct {
	Located
}

// BoolLit is a boolean literal.
type BoolLit struct {
	Located
	Value bool
}

// IntLit is an integer literal.
type IntLit struct {
	Located
	Value int64
}

// FloatLit is a floating point literal.
type FloatLit struct {
	Located
	Value float64
}

// StringLit is a string literal.
type StringLit struct {
	Located
	Value string
}

// ListLit is a list literal.
type ListLit struct {
	Located
	Items []Expr
}

// MapEntry is one key/value pair of a map literal.
type MapEntry struct {
	Key   Expr
	Value Expr
}

// MapLit is a map/record literal.
type MapLit struct {
	Located
	Entries []MapEntry
}

// VarRef references a parameter or local binding. Injected refs read the
// host-supplied injected record instead of call data.
type VarRef struct {
	Located
	Name     string
	Injected bool
}

// FieldAccess reads a named field of a record value. NullSafe access
// yields null instead of failing when the base is null.
type FieldAccess struct {
	Located
	Base     Expr
	Field    string
	NullSafe bool
}

// ItemAccess reads a list element or map entry by evaluated key.
type ItemAccess struct {
	Located
	Base     Expr
	Key      Expr
	NullSafe bool
}

// Unary applies a unary operator.
type Unary struct {
	Located
	Op      UnaryOp
	Operand Expr
}

// Binary applies a binary operator.
type Binary struct {
	Located
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// Conditional is the ternary operator.
type Conditional struct {
	Located
	Cond Expr
	Then Expr
	Else Expr
}

// FuncCall invokes one of the builtin functions (length, keys, isNonnull,
// checkNotNull, floor, ceiling, round, min, max, strContains, hasData, ...).
type FuncCall struct {
	Located
	Name string
	Args []Expr
}

func (NullLit) exprKind() string     { return "null" }
func (BoolLit) exprKind() string     { return "bool" }
func (IntLit) exprKind() string      { return "int" }
func (FloatLit) exprKind() string    { return "float" }
func (StringLit) exprKind() string   { return "string" }
func (ListLit) exprKind() string     { return "list" }
func (MapLit) exprKind() string      { return "map" }
func (VarRef) exprKind() string      { return "var" }
func (FieldAccess) exprKind() string { return "field" }
func (ItemAccess) exprKind() string  { return "item" }
func (Unary) exprKind() string       { return "unary" }
func (Binary) exprKind() string      { return "binary" }
func (Conditional) exprKind() string { return "conditional" }
func (FuncCall) exprKind() string    { return "func" }

func (NullLit) String() string    { return "null" }
func (e BoolLit) String() string  { return strconv.FormatBool(e.Value) }
func (e IntLit) String() string   { return strconv.FormatInt(e.Value, 10) }
func (e FloatLit) String() string { return strconv.FormatFloat(e.Value, 'g', -1, 64) }

var stringLitEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func (e StringLit) String() string {
	return "'" + stringLitEscaper.Replace(e.Value) + "'"
}

func (e ListLit) String() string {
	parts := make([]string, len(e.Items))
	for i, item := range e.Items {
		parts[i] = item.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (e MapLit) String() string {
	parts := make([]string, len(e.Entries))
	for i, entry := range e.Entries {
		parts[i] = entry.Key.String() + ": " + entry.Value.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (e VarRef) String() string {
	if e.Injected {
		return "$ij." + e.Name
	}
	return "$" + e.Name
}

func (e FieldAccess) String() string {
	if e.NullSafe {
		return e.Base.String() + "?." + e.Field
	}
	return e.Base.String() + "." + e.Field
}

func (e ItemAccess) String() string {
	open := "["
	if e.NullSafe {
		open = "?["
	}
	return e.Base.String() + open + e.Key.String() + "]"
}

func (e Unary) String() string {
	if e.Op == OpNot {
		return "not " + e.Operand.String()
	}
	return string(e.Op) + e.Operand.String()
}

func (e Binary) String() string {
	return e.Left.String() + " " + string(e.Op) + " " + e.Right.String()
}

func (e Conditional) String() string {
	return e.Cond.String() + " ? " + e.Then.String() + " : " + e.Else.String()
}

func (e FuncCall) String() string {
	parts := make([]string, len(e.Args))
	for i, arg := range e.Args {
		parts[i] = arg.String()
	}
	return e.Name + "(" + strings.Join(parts, ", ") + ")"
}
