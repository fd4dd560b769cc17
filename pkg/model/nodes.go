package model

// Located carries the source position shared by every node and expression.
// It is embedded rather than repeated so walkers can treat positions
// uniformly.
type Located struct {
	Loc SourceLocation `json:"loc"`
}

// Location returns the position the element was compiled from.
func (l Located) Location() SourceLocation { return l.Loc }

// Node is one executable element of a template body. The set of
// implementations is closed: corpora arrive fully compiled, so the runtime
// never meets a node kind outside this package.
type Node interface {
	Location() SourceLocation
	nodeKind() string
}

// DirectiveCall applies a named print directive with evaluated arguments.
type DirectiveCall struct {
	Name string
	Args []Expr
}

// RawText emits literal output exactly as compiled.
type RawText struct {
	Located
	Text string
}

// Print evaluates an expression, runs it through the directive chain in
// order, and writes the result.
type Print struct {
	Located
	Value      Expr
	Directives []DirectiveCall
}

// Let binds a local name to a lazily evaluated expression. The binding is
// visible to the remainder of the enclosing block.
type Let struct {
	Located
	Name  string
	Value Expr
}

// LetContent binds a local name to a lazily rendered block. Forcing the
// binding renders Body into kinded content exactly once per render.
type LetContent struct {
	Located
	Name string
	Kind ContentKind
	Body []Node
}

// IfBranch is one condition/body pair of an If node.
type IfBranch struct {
	Cond Expr
	Body []Node
}

// If executes the first branch whose condition is truthy, or Else when
// none is.
type If struct {
	Located
	Branches []IfBranch
	Else     []Node
}

// SwitchCase matches when the switch value equals any of Values.
type SwitchCase struct {
	Values []Expr
	Body   []Node
}

// Switch evaluates Value once and executes the first matching case, or
// Default when none matches.
type Switch struct {
	Located
	Value   Expr
	Cases   []SwitchCase
	Default []Node
}

// Foreach iterates a list expression binding Var to each element. IfEmpty
// runs instead when the list has no elements. Loop metadata (index,
// isFirst, isLast) is available to the body through the environment.
type Foreach struct {
	Located
	Var     string
	List    Expr
	Body    []Node
	IfEmpty []Node
}

// For iterates a numeric range [Start, End) advancing by Step. A nil Step
// advances by 1.
type For struct {
	Located
	Var   string
	Start Expr
	End   Expr
	Step  Expr
	Body  []Node
}

// CallParam passes one parameter to a callee. Value params evaluate an
// expression; content params (Body non-nil) render a block lazily into
// kinded content, mirroring LetContent.
type CallParam struct {
	Name  string
	Value Expr
	Body  []Node
	Kind  ContentKind
}

// Call invokes a statically named template. DataAll forwards the caller's
// entire data record; DataExpr forwards the record the expression yields.
// Explicit Params always win over forwarded fields.
type Call struct {
	Located
	Callee     string
	DataAll    bool
	DataExpr   Expr
	Params     []CallParam
	Directives []DirectiveCall
}

// DelCall invokes an overridable template group through registry dispatch.
// VariantExpr, when present, selects the registration variant (strings
// as-is, integers coerced to their decimal spelling). AllowEmptyDefault
// renders nothing instead of failing when no implementation is active.
type DelCall struct {
	Located
	Group             string
	VariantExpr       Expr
	AllowEmptyDefault bool
	DataAll           bool
	DataExpr          Expr
	Params            []CallParam
	Directives        []DirectiveCall
}

// Log renders its body through the render logger instead of the output
// sink.
type Log struct {
	Located
	Body []Node
}

// Debugger is a compiled no-op that survives only as a source position.
type Debugger struct {
	Located
}

func (RawText) nodeKind() string    { return "raw" }
func (Print) nodeKind() string      { return "print" }
func (Let) nodeKind() string        { return "let" }
func (LetContent) nodeKind() string { return "letcontent" }
func (If) nodeKind() string         { return "if" }
func (Switch) nodeKind() string     { return "switch" }
func (Foreach) nodeKind() string    { return "foreach" }
func (For) nodeKind() string        { return "for" }
func (Call) nodeKind() string       { return "call" }
func (DelCall) nodeKind() string    { return "delcall" }
func (Log) nodeKind() string        { return "log" }
func (Debugger) nodeKind() string   { return "debugger" }
