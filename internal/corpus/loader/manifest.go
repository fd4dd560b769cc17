package loader

import (
	"fmt"
	"strings"

	pkgcorpus "github.com/goliatone/go-tofu/pkg/corpus"
	"github.com/goliatone/go-tofu/pkg/model"
)

// manifest mirrors the corpus wire format. The compiler that emits corpora
// writes one tagged object per node and expression; decoding is strict so
// manifest typos fail loudly instead of dropping behavior.
type manifest struct {
	Corpus  string         `yaml:"corpus"`
	Version string         `yaml:"version"`
	Files   []fileManifest `yaml:"files"`
}

type fileManifest struct {
	Path      string             `yaml:"path"`
	Templates []templateManifest `yaml:"templates"`
}

type templateManifest struct {
	Name        string          `yaml:"name"`
	Kind        string          `yaml:"kind"`
	Group       string          `yaml:"group"`
	Variant     *string         `yaml:"variant"`
	Origin      string          `yaml:"origin"`
	ContentKind string          `yaml:"content_kind"`
	Line        int             `yaml:"line"`
	Params      []paramManifest `yaml:"params"`
	Body        []nodeManifest  `yaml:"body"`
}

type paramManifest struct {
	Name     string        `yaml:"name"`
	Type     string        `yaml:"type"`
	Required bool          `yaml:"required"`
	Injected bool          `yaml:"injected"`
	Default  *exprManifest `yaml:"default"`
	Line     int           `yaml:"line"`
}

type nodeManifest struct {
	Line     int              `yaml:"line"`
	Raw      *string          `yaml:"raw"`
	Print    *printManifest   `yaml:"print"`
	Let      *letManifest     `yaml:"let"`
	If       *ifManifest      `yaml:"if"`
	Switch   *switchManifest  `yaml:"switch"`
	Foreach  *foreachManifest `yaml:"foreach"`
	For      *forManifest     `yaml:"for"`
	Call     *callManifest    `yaml:"call"`
	DelCall  *delCallManifest `yaml:"delcall"`
	Log      *logManifest     `yaml:"log"`
	Debugger bool             `yaml:"debugger"`
}

type printManifest struct {
	Expr       exprManifest        `yaml:"expr"`
	Directives []directiveManifest `yaml:"directives"`
}

type directiveManifest struct {
	Name string         `yaml:"name"`
	Args []exprManifest `yaml:"args"`
}

type letManifest struct {
	Name string         `yaml:"name"`
	Expr *exprManifest  `yaml:"expr"`
	Kind string         `yaml:"kind"`
	Body []nodeManifest `yaml:"body"`
}

type ifManifest struct {
	Branches []branchManifest `yaml:"branches"`
	Else     []nodeManifest   `yaml:"else"`
}

type branchManifest struct {
	Cond exprManifest   `yaml:"cond"`
	Body []nodeManifest `yaml:"body"`
}

type switchManifest struct {
	Expr    exprManifest   `yaml:"expr"`
	Cases   []caseManifest `yaml:"cases"`
	Default []nodeManifest `yaml:"default"`
}

type caseManifest struct {
	Values []exprManifest `yaml:"values"`
	Body   []nodeManifest `yaml:"body"`
}

type foreachManifest struct {
	Var     string         `yaml:"var"`
	Over    exprManifest   `yaml:"over"`
	Body    []nodeManifest `yaml:"body"`
	IfEmpty []nodeManifest `yaml:"ifempty"`
}

type forManifest struct {
	Var   string         `yaml:"var"`
	Start *exprManifest  `yaml:"start"`
	End   exprManifest   `yaml:"end"`
	Step  *exprManifest  `yaml:"step"`
	Body  []nodeManifest `yaml:"body"`
}

type callManifest struct {
	Template   string              `yaml:"template"`
	DataAll    bool                `yaml:"data_all"`
	Data       *exprManifest       `yaml:"data"`
	Params     []callParamManifest `yaml:"params"`
	Directives []directiveManifest `yaml:"directives"`
}

type delCallManifest struct {
	Group             string              `yaml:"group"`
	Variant           *exprManifest       `yaml:"variant"`
	AllowEmptyDefault bool                `yaml:"allow_empty_default"`
	DataAll           bool                `yaml:"data_all"`
	Data              *exprManifest       `yaml:"data"`
	Params            []callParamManifest `yaml:"params"`
	Directives        []directiveManifest `yaml:"directives"`
}

type callParamManifest struct {
	Name string         `yaml:"name"`
	Expr *exprManifest  `yaml:"expr"`
	Kind string         `yaml:"kind"`
	Body []nodeManifest `yaml:"body"`
	Line int            `yaml:"line"`
}

type logManifest struct {
	Body []nodeManifest `yaml:"body"`
}

type exprManifest struct {
	Line  int            `yaml:"line"`
	Lit   *litManifest   `yaml:"lit"`
	Var   *varManifest   `yaml:"var"`
	Field *fieldManifest `yaml:"field"`
	Item  *itemManifest  `yaml:"item"`
	Op    *opManifest    `yaml:"op"`
	Fn    *fnManifest    `yaml:"fn"`
	List  *listManifest  `yaml:"list"`
	Map   *mapManifest   `yaml:"map"`
}

type litManifest struct {
	Null  bool     `yaml:"null"`
	Bool  *bool    `yaml:"bool"`
	Int   *int64   `yaml:"int"`
	Float *float64 `yaml:"float"`
	Str   *string  `yaml:"str"`
}

type varManifest struct {
	Name string `yaml:"name"`
	IJ   bool   `yaml:"ij"`
}

type fieldManifest struct {
	Base     exprManifest `yaml:"base"`
	Name     string       `yaml:"name"`
	NullSafe bool         `yaml:"null_safe"`
}

type itemManifest struct {
	Base     exprManifest `yaml:"base"`
	Key      exprManifest `yaml:"key"`
	NullSafe bool         `yaml:"null_safe"`
}

type opManifest struct {
	Name string         `yaml:"name"`
	Args []exprManifest `yaml:"args"`
}

type fnManifest struct {
	Name string         `yaml:"name"`
	Args []exprManifest `yaml:"args"`
}

type listManifest struct {
	Items []exprManifest `yaml:"items"`
}

type mapManifest struct {
	Entries []mapEntryManifest `yaml:"entries"`
}

type mapEntryManifest struct {
	Key   exprManifest `yaml:"key"`
	Value exprManifest `yaml:"value"`
}

func (m *manifest) document() (*pkgcorpus.Document, error) {
	doc := &pkgcorpus.Document{Name: m.Corpus, Version: m.Version}
	for _, fm := range m.Files {
		file := pkgcorpus.File{Path: fm.Path}
		for _, tm := range fm.Templates {
			b := &builder{file: fm.Path, templateName: tm.Name}
			tpl, err := b.template(tm)
			if err != nil {
				return nil, err
			}
			file.Templates = append(file.Templates, tpl)
		}
		doc.Files = append(doc.Files, file)
	}
	return doc, nil
}

// builder converts one template manifest, keeping file/template context for
// error messages.
type builder struct {
	file         string
	templateName string
}

func (b *builder) errf(line int, format string, args ...any) error {
	where := b.file
	if line > 0 {
		where = fmt.Sprintf("%s:%d", b.file, line)
	}
	return fmt.Errorf("template %q (%s): %s", b.templateName, where, fmt.Sprintf(format, args...))
}

func (b *builder) loc(line int) model.Located {
	return model.Located{Loc: model.SourceLocation{File: b.file, Line: line}}
}

var templateKinds = map[string]model.TemplateKind{
	"":            model.TemplateBasic,
	"basic":       model.TemplateBasic,
	"deltemplate": model.TemplateDel,
	"modifiable":  model.TemplateModifiable,
	"modifies":    model.TemplateModifies,
}

var contentKinds = map[string]model.ContentKind{
	"":           model.KindHTML,
	"text":       model.KindText,
	"html":       model.KindHTML,
	"uri":        model.KindURI,
	"js":         model.KindJS,
	"css":        model.KindCSS,
	"attributes": model.KindAttributes,
}

func (b *builder) template(tm templateManifest) (model.Template, error) {
	if tm.Name == "" {
		return model.Template{}, b.errf(tm.Line, "template name is required")
	}

	kind, ok := templateKinds[tm.Kind]
	if !ok {
		return model.Template{}, b.errf(tm.Line, "unsupported template kind %q", tm.Kind)
	}
	contentKind, ok := contentKinds[tm.ContentKind]
	if !ok {
		return model.Template{}, b.errf(tm.Line, "unsupported content kind %q", tm.ContentKind)
	}

	group := tm.Group
	switch kind {
	case model.TemplateBasic:
		if group != "" {
			return model.Template{}, b.errf(tm.Line, "basic templates cannot declare a group")
		}
	case model.TemplateDel, model.TemplateModifiable:
		if group == "" {
			group = tm.Name
		}
	case model.TemplateModifies:
		if group == "" {
			return model.Template{}, b.errf(tm.Line, "modifies templates must declare the group they modify")
		}
	}

	tpl := model.Template{
		Name:        tm.Name,
		Kind:        kind,
		DelGroup:    group,
		Origin:      tm.Origin,
		ContentKind: contentKind,
		Location:    model.SourceLocation{File: b.file, Line: tm.Line},
	}
	if tm.Variant != nil {
		tpl.Variant = *tm.Variant
		tpl.VariantPresent = true
	}

	for _, pm := range tm.Params {
		param, err := b.param(pm, tm.Line)
		if err != nil {
			return model.Template{}, err
		}
		tpl.Params = append(tpl.Params, param)
	}

	body, err := b.nodes(tm.Body, tm.Line)
	if err != nil {
		return model.Template{}, err
	}
	tpl.Body = body
	return tpl, nil
}

func (b *builder) param(pm paramManifest, parentLine int) (model.Param, error) {
	if pm.Name == "" {
		return model.Param{}, b.errf(pickLine(pm.Line, parentLine), "param name is required")
	}
	spec, err := parseTypeSpec(pm.Type)
	if err != nil {
		return model.Param{}, b.errf(pickLine(pm.Line, parentLine), "param %q: %v", pm.Name, err)
	}
	param := model.Param{
		Name:     pm.Name,
		Type:     spec,
		Required: pm.Required,
		Injected: pm.Injected,
	}
	if pm.Default != nil {
		def, err := b.expr(*pm.Default, pickLine(pm.Line, parentLine))
		if err != nil {
			return model.Param{}, err
		}
		param.Default = def
	}
	return param, nil
}

// parseTypeSpec reads declarations like "string", "int|null" or "?list".
func parseTypeSpec(s string) (model.TypeSpec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.TypeSpec{}, nil
	}
	spec := model.TypeSpec{}
	if strings.HasPrefix(s, "?") {
		spec.Nullable = true
		s = s[1:]
	}
	if strings.HasSuffix(s, "|null") {
		spec.Nullable = true
		s = strings.TrimSuffix(s, "|null")
	}
	switch name := model.TypeName(s); name {
	case model.TypeAny, model.TypeString, model.TypeInt, model.TypeFloat,
		model.TypeNumber, model.TypeBool, model.TypeList, model.TypeMap,
		model.TypeRecord, model.TypeHTML, model.TypeURI, model.TypeNull:
		spec.Name = name
		return spec, nil
	}
	return model.TypeSpec{}, fmt.Errorf("unsupported declared type %q", s)
}

func pickLine(line, fallback int) int {
	if line > 0 {
		return line
	}
	return fallback
}

func (b *builder) nodes(nms []nodeManifest, parentLine int) ([]model.Node, error) {
	if len(nms) == 0 {
		return nil, nil
	}
	out := make([]model.Node, 0, len(nms))
	for _, nm := range nms {
		node, err := b.node(nm, parentLine)
		if err != nil {
			return nil, err
		}
		out = append(out, node)
	}
	return out, nil
}

func (b *builder) node(nm nodeManifest, parentLine int) (model.Node, error) {
	line := pickLine(nm.Line, parentLine)
	loc := b.loc(line)

	tags := 0
	if nm.Raw != nil {
		tags++
	}
	for _, set := range []bool{
		nm.Print != nil, nm.Let != nil, nm.If != nil, nm.Switch != nil,
		nm.Foreach != nil, nm.For != nil, nm.Call != nil, nm.DelCall != nil,
		nm.Log != nil, nm.Debugger,
	} {
		if set {
			tags++
		}
	}
	if tags != 1 {
		return nil, b.errf(line, "node must set exactly one tag, found %d", tags)
	}

	switch {
	case nm.Raw != nil:
		return model.RawText{Located: loc, Text: *nm.Raw}, nil

	case nm.Print != nil:
		value, err := b.expr(nm.Print.Expr, line)
		if err != nil {
			return nil, err
		}
		directives, err := b.directives(nm.Print.Directives, line)
		if err != nil {
			return nil, err
		}
		return model.Print{Located: loc, Value: value, Directives: directives}, nil

	case nm.Let != nil:
		return b.letNode(*nm.Let, loc, line)

	case nm.If != nil:
		out := model.If{Located: loc}
		for _, bm := range nm.If.Branches {
			cond, err := b.expr(bm.Cond, line)
			if err != nil {
				return nil, err
			}
			body, err := b.nodes(bm.Body, line)
			if err != nil {
				return nil, err
			}
			out.Branches = append(out.Branches, model.IfBranch{Cond: cond, Body: body})
		}
		if len(out.Branches) == 0 {
			return nil, b.errf(line, "if node requires at least one branch")
		}
		elseBody, err := b.nodes(nm.If.Else, line)
		if err != nil {
			return nil, err
		}
		out.Else = elseBody
		return out, nil

	case nm.Switch != nil:
		value, err := b.expr(nm.Switch.Expr, line)
		if err != nil {
			return nil, err
		}
		out := model.Switch{Located: loc, Value: value}
		for _, cm := range nm.Switch.Cases {
			if len(cm.Values) == 0 {
				return nil, b.errf(line, "switch case requires at least one value")
			}
			values := make([]model.Expr, 0, len(cm.Values))
			for _, vm := range cm.Values {
				v, err := b.expr(vm, line)
				if err != nil {
					return nil, err
				}
				values = append(values, v)
			}
			body, err := b.nodes(cm.Body, line)
			if err != nil {
				return nil, err
			}
			out.Cases = append(out.Cases, model.SwitchCase{Values: values, Body: body})
		}
		defaultBody, err := b.nodes(nm.Switch.Default, line)
		if err != nil {
			return nil, err
		}
		out.Default = defaultBody
		return out, nil

	case nm.Foreach != nil:
		if nm.Foreach.Var == "" {
			return nil, b.errf(line, "foreach requires a loop variable")
		}
		list, err := b.expr(nm.Foreach.Over, line)
		if err != nil {
			return nil, err
		}
		body, err := b.nodes(nm.Foreach.Body, line)
		if err != nil {
			return nil, err
		}
		ifEmpty, err := b.nodes(nm.Foreach.IfEmpty, line)
		if err != nil {
			return nil, err
		}
		return model.Foreach{Located: loc, Var: nm.Foreach.Var, List: list, Body: body, IfEmpty: ifEmpty}, nil

	case nm.For != nil:
		if nm.For.Var == "" {
			return nil, b.errf(line, "for requires a loop variable")
		}
		end, err := b.expr(nm.For.End, line)
		if err != nil {
			return nil, err
		}
		out := model.For{Located: loc, Var: nm.For.Var, End: end}
		if nm.For.Start != nil {
			if out.Start, err = b.expr(*nm.For.Start, line); err != nil {
				return nil, err
			}
		}
		if nm.For.Step != nil {
			if out.Step, err = b.expr(*nm.For.Step, line); err != nil {
				return nil, err
			}
		}
		if out.Body, err = b.nodes(nm.For.Body, line); err != nil {
			return nil, err
		}
		return out, nil

	case nm.Call != nil:
		if nm.Call.Template == "" {
			return nil, b.errf(line, "call requires a template name")
		}
		out := model.Call{Located: loc, Callee: nm.Call.Template, DataAll: nm.Call.DataAll}
		var err error
		if nm.Call.Data != nil {
			if out.DataExpr, err = b.expr(*nm.Call.Data, line); err != nil {
				return nil, err
			}
		}
		if out.Params, err = b.callParams(nm.Call.Params, line); err != nil {
			return nil, err
		}
		if out.Directives, err = b.directives(nm.Call.Directives, line); err != nil {
			return nil, err
		}
		return out, nil

	case nm.DelCall != nil:
		if nm.DelCall.Group == "" {
			return nil, b.errf(line, "delcall requires a group name")
		}
		out := model.DelCall{
			Located:           loc,
			Group:             nm.DelCall.Group,
			AllowEmptyDefault: nm.DelCall.AllowEmptyDefault,
			DataAll:           nm.DelCall.DataAll,
		}
		var err error
		if nm.DelCall.Variant != nil {
			if out.VariantExpr, err = b.expr(*nm.DelCall.Variant, line); err != nil {
				return nil, err
			}
		}
		if nm.DelCall.Data != nil {
			if out.DataExpr, err = b.expr(*nm.DelCall.Data, line); err != nil {
				return nil, err
			}
		}
		if out.Params, err = b.callParams(nm.DelCall.Params, line); err != nil {
			return nil, err
		}
		if out.Directives, err = b.directives(nm.DelCall.Directives, line); err != nil {
			return nil, err
		}
		return out, nil

	case nm.Log != nil:
		body, err := b.nodes(nm.Log.Body, line)
		if err != nil {
			return nil, err
		}
		return model.Log{Located: loc, Body: body}, nil

	default:
		return model.Debugger{Located: loc}, nil
	}
}

func (b *builder) letNode(lm letManifest, loc model.Located, line int) (model.Node, error) {
	if lm.Name == "" {
		return nil, b.errf(line, "let requires a name")
	}
	hasExpr := lm.Expr != nil
	hasBody := len(lm.Body) > 0 || lm.Kind != ""
	if hasExpr == hasBody {
		return nil, b.errf(line, "let %q must set either expr or a content body", lm.Name)
	}
	if hasExpr {
		value, err := b.expr(*lm.Expr, line)
		if err != nil {
			return nil, err
		}
		return model.Let{Located: loc, Name: lm.Name, Value: value}, nil
	}
	kind, ok := contentKinds[lm.Kind]
	if !ok {
		return nil, b.errf(line, "let %q: unsupported content kind %q", lm.Name, lm.Kind)
	}
	body, err := b.nodes(lm.Body, line)
	if err != nil {
		return nil, err
	}
	return model.LetContent{Located: loc, Name: lm.Name, Kind: kind, Body: body}, nil
}

func (b *builder) callParams(pms []callParamManifest, parentLine int) ([]model.CallParam, error) {
	if len(pms) == 0 {
		return nil, nil
	}
	out := make([]model.CallParam, 0, len(pms))
	for _, pm := range pms {
		line := pickLine(pm.Line, parentLine)
		if pm.Name == "" {
			return nil, b.errf(line, "call param name is required")
		}
		hasExpr := pm.Expr != nil
		hasBody := len(pm.Body) > 0 || pm.Kind != ""
		if hasExpr == hasBody {
			return nil, b.errf(line, "call param %q must set either expr or a content body", pm.Name)
		}
		param := model.CallParam{Name: pm.Name}
		if hasExpr {
			value, err := b.expr(*pm.Expr, line)
			if err != nil {
				return nil, err
			}
			param.Value = value
		} else {
			kind, ok := contentKinds[pm.Kind]
			if !ok {
				return nil, b.errf(line, "call param %q: unsupported content kind %q", pm.Name, pm.Kind)
			}
			body, err := b.nodes(pm.Body, line)
			if err != nil {
				return nil, err
			}
			param.Kind = kind
			param.Body = body
		}
		out = append(out, param)
	}
	return out, nil
}

func (b *builder) directives(dms []directiveManifest, parentLine int) ([]model.DirectiveCall, error) {
	if len(dms) == 0 {
		return nil, nil
	}
	out := make([]model.DirectiveCall, 0, len(dms))
	for _, dm := range dms {
		if dm.Name == "" {
			return nil, b.errf(parentLine, "directive name is required")
		}
		call := model.DirectiveCall{Name: dm.Name}
		for _, am := range dm.Args {
			arg, err := b.expr(am, parentLine)
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
		}
		out = append(out, call)
	}
	return out, nil
}

var unaryOps = map[string]model.UnaryOp{
	"not": model.OpNot,
	"-":   model.OpNeg,
}

var binaryOps = map[string]model.BinaryOp{
	"+": model.OpAdd, "-": model.OpSub, "*": model.OpMul, "/": model.OpDiv,
	"%": model.OpMod, "<": model.OpLt, "<=": model.OpLte, ">": model.OpGt,
	">=": model.OpGte, "==": model.OpEq, "!=": model.OpNe,
	"and": model.OpAnd, "or": model.OpOr, "?:": model.OpElvis,
}

func (b *builder) expr(em exprManifest, parentLine int) (model.Expr, error) {
	line := pickLine(em.Line, parentLine)
	loc := b.loc(line)

	tags := 0
	for _, set := range []bool{
		em.Lit != nil, em.Var != nil, em.Field != nil, em.Item != nil,
		em.Op != nil, em.Fn != nil, em.List != nil, em.Map != nil,
	} {
		if set {
			tags++
		}
	}
	if tags != 1 {
		return nil, b.errf(line, "expression must set exactly one tag, found %d", tags)
	}

	switch {
	case em.Lit != nil:
		return b.literal(*em.Lit, loc, line)

	case em.Var != nil:
		if em.Var.Name == "" {
			return nil, b.errf(line, "variable reference requires a name")
		}
		return model.VarRef{Located: loc, Name: em.Var.Name, Injected: em.Var.IJ}, nil

	case em.Field != nil:
		if em.Field.Name == "" {
			return nil, b.errf(line, "field access requires a field name")
		}
		base, err := b.expr(em.Field.Base, line)
		if err != nil {
			return nil, err
		}
		return model.FieldAccess{Located: loc, Base: base, Field: em.Field.Name, NullSafe: em.Field.NullSafe}, nil

	case em.Item != nil:
		base, err := b.expr(em.Item.Base, line)
		if err != nil {
			return nil, err
		}
		key, err := b.expr(em.Item.Key, line)
		if err != nil {
			return nil, err
		}
		return model.ItemAccess{Located: loc, Base: base, Key: key, NullSafe: em.Item.NullSafe}, nil

	case em.Op != nil:
		return b.operator(*em.Op, loc, line)

	case em.Fn != nil:
		if em.Fn.Name == "" {
			return nil, b.errf(line, "function call requires a name")
		}
		args, err := b.exprList(em.Fn.Args, line)
		if err != nil {
			return nil, err
		}
		return model.FuncCall{Located: loc, Name: em.Fn.Name, Args: args}, nil

	case em.List != nil:
		items, err := b.exprList(em.List.Items, line)
		if err != nil {
			return nil, err
		}
		return model.ListLit{Located: loc, Items: items}, nil

	default:
		out := model.MapLit{Located: loc}
		for _, entry := range em.Map.Entries {
			key, err := b.expr(entry.Key, line)
			if err != nil {
				return nil, err
			}
			value, err := b.expr(entry.Value, line)
			if err != nil {
				return nil, err
			}
			out.Entries = append(out.Entries, model.MapEntry{Key: key, Value: value})
		}
		return out, nil
	}
}

func (b *builder) literal(lm litManifest, loc model.Located, line int) (model.Expr, error) {
	set := 0
	if lm.Null {
		set++
	}
	for _, present := range []bool{lm.Bool != nil, lm.Int != nil, lm.Float != nil, lm.Str != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return nil, b.errf(line, "literal must set exactly one value, found %d", set)
	}
	switch {
	case lm.Null:
		return model.NullLit{Located: loc}, nil
	case lm.Bool != nil:
		return model.BoolLit{Located: loc, Value: *lm.Bool}, nil
	case lm.Int != nil:
		return model.IntLit{Located: loc, Value: *lm.Int}, nil
	case lm.Float != nil:
		return model.FloatLit{Located: loc, Value: *lm.Float}, nil
	default:
		return model.StringLit{Located: loc, Value: *lm.Str}, nil
	}
}

func (b *builder) operator(om opManifest, loc model.Located, line int) (model.Expr, error) {
	args, err := b.exprList(om.Args, line)
	if err != nil {
		return nil, err
	}
	switch len(args) {
	case 1:
		op, ok := unaryOps[om.Name]
		if !ok {
			return nil, b.errf(line, "unsupported unary operator %q", om.Name)
		}
		return model.Unary{Located: loc, Op: op, Operand: args[0]}, nil
	case 2:
		op, ok := binaryOps[om.Name]
		if !ok {
			return nil, b.errf(line, "unsupported binary operator %q", om.Name)
		}
		return model.Binary{Located: loc, Op: op, Left: args[0], Right: args[1]}, nil
	case 3:
		if om.Name != "?" {
			return nil, b.errf(line, "unsupported ternary operator %q", om.Name)
		}
		return model.Conditional{Located: loc, Cond: args[0], Then: args[1], Else: args[2]}, nil
	}
	return nil, b.errf(line, "operator %q has unsupported arity %d", om.Name, len(args))
}

func (b *builder) exprList(ems []exprManifest, parentLine int) ([]model.Expr, error) {
	if len(ems) == 0 {
		return nil, nil
	}
	out := make([]model.Expr, 0, len(ems))
	for _, em := range ems {
		e, err := b.expr(em, parentLine)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
