package model

import "fmt"

// SourceLocation identifies the template-source position a node or
// expression was compiled from. Corpora are produced by an upstream
// compiler; locations survive so runtime failures can point back at the
// authored line.
type SourceLocation struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

// String renders the location in the conventional file:line form.
func (l SourceLocation) String() string {
	if l.File == "" {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// ContentKind describes the sanitization context a template or content
// block produces. Kinded content is not re-escaped when printed into a
// matching context.
type ContentKind string

const (
	KindText       ContentKind = "text"
	KindHTML       ContentKind = "html"
	KindURI        ContentKind = "uri"
	KindJS         ContentKind = "js"
	KindCSS        ContentKind = "css"
	KindAttributes ContentKind = "attributes"
)

// TemplateKind distinguishes plain templates from the overridable family.
// Deltemplate is the legacy spelling; Modifiable/Modifies is the modern
// one. The registry folds both into a single dispatch model.
type TemplateKind string

const (
	TemplateBasic      TemplateKind = "basic"
	TemplateDel        TemplateKind = "deltemplate"
	TemplateModifiable TemplateKind = "modifiable"
	TemplateModifies   TemplateKind = "modifies"
)

// TypeName enumerates the declared-type vocabulary parameters may carry.
type TypeName string

const (
	TypeAny    TypeName = "any"
	TypeString TypeName = "string"
	TypeInt    TypeName = "int"
	TypeFloat  TypeName = "float"
	TypeNumber TypeName = "number"
	TypeBool   TypeName = "bool"
	TypeList   TypeName = "list"
	TypeMap    TypeName = "map"
	TypeRecord TypeName = "record"
	TypeHTML   TypeName = "html"
	TypeURI    TypeName = "uri"
	TypeNull   TypeName = "null"
)

// TypeSpec is a parameter's declared type. The zero value means "any":
// corpora omit declarations for unchecked parameters. Checking happens at
// bind or first-force time in the render engine, never here.
type TypeSpec struct {
	Name     TypeName `json:"name,omitempty"`
	Nullable bool     `json:"nullable,omitempty"`
}

// Any reports whether the declaration performs no checking at all.
func (t TypeSpec) Any() bool { return t.Name == "" || t.Name == TypeAny }

// String renders the declaration the way corpora spell it, e.g. "string"
// or "string|null".
func (t TypeSpec) String() string {
	name := t.Name
	if name == "" {
		name = TypeAny
	}
	if t.Nullable {
		return string(name) + "|null"
	}
	return string(name)
}

// Param declares one template parameter. Injected parameters come from the
// host-supplied injected record rather than call data.
type Param struct {
	Name     string   `json:"name"`
	Type     TypeSpec `json:"type,omitempty"`
	Required bool     `json:"required"`
	Injected bool     `json:"injected,omitempty"`
	Default  Expr     `json:"-"`
}

// Template is one compiled template definition. Instances are immutable
// once a corpus is built; the registry and render engine share them across
// concurrent renders without locking.
//
// Name is the fully qualified, corpus-unique identity. For the overridable
// family DelGroup carries the dispatch name callers use: every
// implementation of one group shares it, while Name stays unique per
// implementation. Variant distinguishes an absent registration variant
// from a present empty string via VariantPresent. Origin names the origin
// group (delegate package or mod file) the implementation belongs to; the
// empty origin is the default implementation.
type Template struct {
	Name           string         `json:"name"`
	Kind           TemplateKind   `json:"kind"`
	DelGroup       string         `json:"group,omitempty"`
	Variant        string         `json:"variant,omitempty"`
	VariantPresent bool           `json:"variantPresent,omitempty"`
	Origin         string         `json:"origin,omitempty"`
	ContentKind    ContentKind    `json:"contentKind"`
	Params         []Param        `json:"params,omitempty"`
	Body           []Node         `json:"-"`
	Location       SourceLocation `json:"location"`
}

// Overridable reports whether the template participates in group dispatch.
func (t *Template) Overridable() bool {
	switch t.Kind {
	case TemplateDel, TemplateModifiable, TemplateModifies:
		return true
	}
	return false
}

// DispatchName returns the name dynamic calls resolve: the group name for
// the overridable family, the template name otherwise.
func (t *Template) DispatchName() string {
	if t.Overridable() && t.DelGroup != "" {
		return t.DelGroup
	}
	return t.Name
}

// Param looks up a declared parameter by name.
func (t *Template) Param(name string) (Param, bool) {
	for _, p := range t.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}
