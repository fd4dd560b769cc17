package render_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/goliatone/go-tofu/pkg/data"
	"github.com/goliatone/go-tofu/pkg/directives"
	"github.com/goliatone/go-tofu/pkg/model"
	"github.com/goliatone/go-tofu/pkg/registry"
	"github.com/goliatone/go-tofu/pkg/render"
)

func in(file string, line int) model.Located {
	return model.Located{Loc: model.SourceLocation{File: file, Line: line}}
}

func at(line int) model.Located { return in("demo.soy", line) }

func text(line int, s string) model.Node {
	return model.RawText{Located: at(line), Text: s}
}

func echo(line int, value model.Expr, dirs ...model.DirectiveCall) model.Node {
	return model.Print{Located: at(line), Value: value, Directives: dirs}
}

func v(name string) model.Expr  { return model.VarRef{Name: name} }
func ij(name string) model.Expr { return model.VarRef{Name: name, Injected: true} }

func str(s string) model.Expr  { return model.StringLit{Value: s} }
func num(i int64) model.Expr   { return model.IntLit{Value: i} }
func flt(f float64) model.Expr { return model.FloatLit{Value: f} }

func bin(op model.BinaryOp, l, r model.Expr) model.Expr {
	return model.Binary{Op: op, Left: l, Right: r}
}

func field(base model.Expr, name string) model.Expr {
	return model.FieldAccess{Base: base, Field: name}
}

func fn(name string, args ...model.Expr) model.Expr {
	return model.FuncCall{Name: name, Args: args}
}

func dcall(name string, args ...model.Expr) model.DirectiveCall {
	return model.DirectiveCall{Name: name, Args: args}
}

func param(name string) model.Param { return model.Param{Name: name} }

func tmpl(name string, params []model.Param, body ...model.Node) model.Template {
	return model.Template{
		Name:        name,
		Kind:        model.TemplateBasic,
		ContentKind: model.KindHTML,
		Params:      params,
		Body:        body,
		Location:    model.SourceLocation{File: "demo.soy", Line: 1},
	}
}

func newEngine(t *testing.T, templates ...model.Template) *render.Engine {
	t.Helper()
	reg, err := registry.BuildFromTemplates(templates)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return render.New(reg)
}

func renderString(t *testing.T, eng *render.Engine, req render.Request) string {
	t.Helper()
	var out strings.Builder
	req.Sink = render.SinkOf(&out)
	r, err := eng.Render(context.Background(), req)
	if err != nil {
		t.Fatalf("start render: %v", err)
	}
	if res := r.Result(); !res.Done() {
		t.Fatalf("render ended in state %s: %v", res.State, res.Err)
	}
	return out.String()
}

func renderFailure(t *testing.T, eng *render.Engine, req render.Request) *render.Error {
	t.Helper()
	var out strings.Builder
	req.Sink = render.SinkOf(&out)
	r, err := eng.Render(context.Background(), req)
	if err != nil {
		t.Fatalf("start render: %v", err)
	}
	res := r.Result()
	if !res.Failed() {
		t.Fatalf("expected a failed render, got state %s with output %q", res.State, out.String())
	}
	var rerr *render.Error
	if !errors.As(res.Err, &rerr) {
		t.Fatalf("expected *render.Error, got %T: %v", res.Err, res.Err)
	}
	return rerr
}

func TestRenderBody(t *testing.T) {
	cases := []struct {
		name     string
		params   []model.Param
		data     map[string]any
		injected map[string]any
		body     []model.Node
		want     string
	}{
		{
			name:   "raw text around a print",
			params: []model.Param{param("name")},
			data:   map[string]any{"name": "World"},
			body:   []model.Node{text(1, "Hello, "), echo(1, v("name")), text(1, "!")},
			want:   "Hello, World!",
		},
		{
			name: "integer arithmetic",
			body: []model.Node{echo(1, bin(model.OpAdd, num(2), bin(model.OpMul, num(3), num(4))))},
			want: "14",
		},
		{
			name: "division is always floating point",
			body: []model.Node{echo(1, bin(model.OpDiv, num(5), num(2))), text(1, " "), echo(1, bin(model.OpDiv, num(6), num(3)))},
			want: "2.5 2",
		},
		{
			name: "modulo",
			body: []model.Node{echo(1, bin(model.OpMod, num(7), num(3)))},
			want: "1",
		},
		{
			name:   "string concatenation",
			params: []model.Param{param("n")},
			data:   map[string]any{"n": 7},
			body:   []model.Node{echo(1, bin(model.OpAdd, str("id-"), v("n")))},
			want:   "id-7",
		},
		{
			name:   "ternary over a comparison",
			params: []model.Param{param("n")},
			data:   map[string]any{"n": 12},
			body: []model.Node{echo(1, model.Conditional{
				Cond: bin(model.OpGt, v("n"), num(10)),
				Then: str("big"),
				Else: str("small"),
			})},
			want: "big",
		},
		{
			name:   "elvis falls through missing values",
			params: []model.Param{param("nick")},
			body:   []model.Node{echo(1, bin(model.OpElvis, v("nick"), str("anon")))},
			want:   "anon",
		},
		{
			name:   "elvis keeps present values",
			params: []model.Param{param("nick")},
			data:   map[string]any{"nick": "zed"},
			body:   []model.Node{echo(1, bin(model.OpElvis, v("nick"), str("anon")))},
			want:   "zed",
		},
		{
			name:   "if picks the first truthy branch",
			params: []model.Param{param("a"), param("b")},
			data:   map[string]any{"a": false, "b": true},
			body: []model.Node{model.If{
				Located: at(1),
				Branches: []model.IfBranch{
					{Cond: v("a"), Body: []model.Node{text(2, "saw a")}},
					{Cond: v("b"), Body: []model.Node{text(3, "saw b")}},
				},
				Else: []model.Node{text(4, "saw none")},
			}},
			want: "saw b",
		},
		{
			name:   "if falls back to else",
			params: []model.Param{param("a")},
			data:   map[string]any{"a": false},
			body: []model.Node{model.If{
				Located:  at(1),
				Branches: []model.IfBranch{{Cond: v("a"), Body: []model.Node{text(2, "saw a")}}},
				Else:     []model.Node{text(3, "saw none")},
			}},
			want: "saw none",
		},
		{
			name:   "switch matches a case value list",
			params: []model.Param{param("x")},
			data:   map[string]any{"x": 2},
			body: []model.Node{model.Switch{
				Located: at(1),
				Value:   v("x"),
				Cases: []model.SwitchCase{
					{Values: []model.Expr{num(1), num(2)}, Body: []model.Node{text(2, "low")}},
					{Values: []model.Expr{num(3)}, Body: []model.Node{text(3, "three")}},
				},
				Default: []model.Node{text(4, "high")},
			}},
			want: "low",
		},
		{
			name:   "switch falls back to default",
			params: []model.Param{param("x")},
			data:   map[string]any{"x": 9},
			body: []model.Node{model.Switch{
				Located: at(1),
				Value:   v("x"),
				Cases:   []model.SwitchCase{{Values: []model.Expr{num(1)}, Body: []model.Node{text(2, "one")}}},
				Default: []model.Node{text(3, "high")},
			}},
			want: "high",
		},
		{
			name:   "switch compares strings",
			params: []model.Param{param("x")},
			data:   map[string]any{"x": "b"},
			body: []model.Node{model.Switch{
				Located: at(1),
				Value:   v("x"),
				Cases:   []model.SwitchCase{{Values: []model.Expr{str("a"), str("b")}, Body: []model.Node{text(2, "ab")}}},
			}},
			want: "ab",
		},
		{
			name:   "foreach exposes loop metadata",
			params: []model.Param{param("items")},
			data:   map[string]any{"items": []any{"a", "b", "c"}},
			body: []model.Node{model.Foreach{
				Located: at(1),
				Var:     "it",
				List:    v("items"),
				Body: []model.Node{
					echo(2, fn("index", v("it"))),
					text(2, ":"),
					echo(2, v("it")),
					text(2, " "),
				},
			}},
			want: "0:a 1:b 2:c ",
		},
		{
			name:   "foreach separators via isFirst and isLast",
			params: []model.Param{param("items")},
			data:   map[string]any{"items": []any{"a", "b", "c"}},
			body: []model.Node{model.Foreach{
				Located: at(1),
				Var:     "it",
				List:    v("items"),
				Body: []model.Node{
					model.If{Located: at(2), Branches: []model.IfBranch{
						{Cond: fn("isFirst", v("it")), Body: []model.Node{text(2, "[")}},
					}},
					echo(3, v("it")),
					model.If{Located: at(4), Branches: []model.IfBranch{
						{Cond: fn("isLast", v("it")), Body: []model.Node{text(4, "]")}},
					}, Else: []model.Node{text(4, ", ")}},
				},
			}},
			want: "[a, b, c]",
		},
		{
			name:   "foreach renders ifempty for empty lists",
			params: []model.Param{param("items")},
			data:   map[string]any{"items": []any{}},
			body: []model.Node{model.Foreach{
				Located: at(1),
				Var:     "it",
				List:    v("items"),
				Body:    []model.Node{echo(2, v("it"))},
				IfEmpty: []model.Node{text(3, "none")},
			}},
			want: "none",
		},
		{
			name: "for range",
			body: []model.Node{model.For{
				Located: at(1), Var: "i", Start: num(0), End: num(3),
				Body: []model.Node{echo(2, v("i"))},
			}},
			want: "012",
		},
		{
			name: "for range with stride",
			body: []model.Node{model.For{
				Located: at(1), Var: "i", Start: num(0), End: num(7), Step: num(3),
				Body: []model.Node{echo(2, v("i"))},
			}},
			want: "036",
		},
		{
			name: "for range descending",
			body: []model.Node{model.For{
				Located: at(1), Var: "i", Start: num(3), End: num(0), Step: num(-1),
				Body: []model.Node{echo(2, v("i"))},
			}},
			want: "321",
		},
		{
			name: "for range with equal bounds renders nothing",
			body: []model.Node{text(1, "|"), model.For{
				Located: at(1), Var: "i", Start: num(3), End: num(3),
				Body: []model.Node{echo(2, v("i"))},
			}, text(1, "|")},
			want: "||",
		},
		{
			name:   "let bindings are visible to the rest of the block",
			params: []model.Param{param("a")},
			data:   map[string]any{"a": 4},
			body: []model.Node{
				model.Let{Located: at(1), Name: "x", Value: bin(model.OpAdd, v("a"), num(1))},
				echo(2, v("x")),
				text(2, "-"),
				echo(2, v("x")),
			},
			want: "5-5",
		},
		{
			name: "letcontent captures a rendered block",
			body: []model.Node{
				model.LetContent{Located: at(1), Name: "c", Kind: model.KindHTML, Body: []model.Node{
					text(2, "<li>"), echo(2, num(1)), text(2, "</li>"),
				}},
				echo(3, v("c")),
			},
			want: "<li>1</li>",
		},
		{
			name:   "list item access",
			params: []model.Param{param("items")},
			data:   map[string]any{"items": []any{"x", "y"}},
			body:   []model.Node{echo(1, model.ItemAccess{Base: v("items"), Key: num(1)})},
			want:   "y",
		},
		{
			name: "list literal prints its elements",
			body: []model.Node{echo(1, model.ListLit{Items: []model.Expr{num(1), bin(model.OpAdd, num(1), num(1)), str("x")}})},
			want: "[1, 2, x]",
		},
		{
			name: "length of a list literal",
			body: []model.Node{echo(1, fn("length", model.ListLit{Items: []model.Expr{num(1), num(2), num(3)}}))},
			want: "3",
		},
		{
			name: "keys are sorted",
			body: []model.Node{echo(1, fn("keys", model.MapLit{Entries: []model.MapEntry{
				{Key: str("b"), Value: num(1)},
				{Key: str("a"), Value: num(2)},
			}}))},
			want: "[a, b]",
		},
		{
			name:   "record field access",
			params: []model.Param{param("user")},
			data:   map[string]any{"user": map[string]any{"name": "Ada"}},
			body:   []model.Node{echo(1, field(v("user"), "name"))},
			want:   "Ada",
		},
		{
			name:   "null safe access on a null base",
			params: []model.Param{param("user")},
			body:   []model.Node{echo(1, model.FieldAccess{Base: v("user"), Field: "name", NullSafe: true})},
			want:   "null",
		},
		{
			name: "rounding functions",
			body: []model.Node{
				echo(1, fn("floor", flt(2.7))), text(1, " "),
				echo(1, fn("ceiling", flt(2.1))), text(1, " "),
				echo(1, fn("round", flt(2.5))), text(1, " "),
				echo(1, fn("min", num(3), num(5))), text(1, " "),
				echo(1, fn("max", flt(1.5), num(2))),
			},
			want: "2 3 3 3 2",
		},
		{
			name: "string functions count runes",
			body: []model.Node{
				echo(1, fn("strContains", str("héllo"), str("é"))), text(1, " "),
				echo(1, fn("strLen", str("héllo"))),
			},
			want: "true 5",
		},
		{
			name:   "null checks",
			params: []model.Param{param("gone")},
			body: []model.Node{
				echo(1, fn("isNull", v("gone"))), text(1, " "),
				echo(1, fn("isNonnull", num(1))), text(1, " "),
				echo(1, fn("checkNotNull", str("ok"))), text(1, " "),
				echo(1, fn("hasData")),
			},
			want: "true true ok true",
		},
		{
			name:   "unary operators",
			params: []model.Param{param("n")},
			data:   map[string]any{"n": 8},
			body: []model.Node{
				echo(1, model.Unary{Op: model.OpNot, Operand: model.BoolLit{Value: false}}), text(1, " "),
				echo(1, model.Unary{Op: model.OpNeg, Operand: v("n")}),
			},
			want: "true -8",
		},
		{
			name: "equality crosses numeric types",
			body: []model.Node{echo(1, bin(model.OpEq, num(2), flt(2)))},
			want: "true",
		},
		{
			name: "null literal prints as null",
			body: []model.Node{echo(1, model.NullLit{}), text(1, " "), echo(1, model.BoolLit{Value: true})},
			want: "null true",
		},
		{
			name:     "injected record reference",
			injected: map[string]any{"locale": "fr"},
			body:     []model.Node{echo(1, ij("locale"))},
			want:     "fr",
		},
		{
			name:     "declared injected parameter",
			params:   []model.Param{{Name: "theme", Injected: true}},
			injected: map[string]any{"theme": "dark"},
			body:     []model.Node{echo(1, v("theme"))},
			want:     "dark",
		},
		{
			name:   "string comparison",
			params: []model.Param{param("a"), param("b")},
			data:   map[string]any{"a": "apple", "b": "banana"},
			body:   []model.Node{echo(1, bin(model.OpLt, v("a"), v("b")))},
			want:   "true",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			eng := newEngine(t, tmpl("demo.main", tc.params, tc.body...))
			got := renderString(t, eng, render.Request{
				Template: "demo.main",
				Data:     tc.data,
				Injected: tc.injected,
			})
			if got != tc.want {
				t.Fatalf("rendered %q, want %q", got, tc.want)
			}
		})
	}
}

func TestPrintDirectives(t *testing.T) {
	t.Run("escapeHtml escapes markup", func(t *testing.T) {
		eng := newEngine(t, tmpl("demo.main", []model.Param{param("x")},
			echo(1, v("x"), dcall("escapeHtml"))))
		got := renderString(t, eng, render.Request{
			Template: "demo.main",
			Data:     map[string]any{"x": `<a href="x">`},
		})
		if want := "&lt;a href=&#34;x&#34;&gt;"; got != want {
			t.Fatalf("rendered %q, want %q", got, want)
		}
	})

	t.Run("directives chain left to right", func(t *testing.T) {
		dirs := directives.NewRegistry()
		dirs.MustRegister(directives.Func("wrapA", func(val data.Value, _ []data.Value) (data.Value, error) {
			return data.Str("A(" + val.String() + ")"), nil
		}))
		dirs.MustRegister(directives.Func("wrapB", func(val data.Value, _ []data.Value) (data.Value, error) {
			return data.Str("B(" + val.String() + ")"), nil
		}))

		eng := newEngine(t, tmpl("demo.main", []model.Param{param("x")},
			echo(1, v("x"), dcall("wrapA"), dcall("wrapB"))))
		got := renderString(t, eng, render.Request{
			Template:   "demo.main",
			Data:       map[string]any{"x": "x"},
			Directives: dirs,
		})
		if want := "B(A(x))"; got != want {
			t.Fatalf("rendered %q, want %q", got, want)
		}
	})

	t.Run("engine level directive registry", func(t *testing.T) {
		dirs := directives.NewRegistry()
		dirs.MustRegister(directives.Func("shout", func(val data.Value, _ []data.Value) (data.Value, error) {
			return data.Str(strings.ToUpper(val.String())), nil
		}))

		reg, err := registry.BuildFromTemplates([]model.Template{
			tmpl("demo.main", nil, echo(1, str("quiet"), dcall("shout"))),
		})
		if err != nil {
			t.Fatalf("build registry: %v", err)
		}
		eng := render.New(reg, render.WithDirectives(dirs))
		if got := renderString(t, eng, render.Request{Template: "demo.main"}); got != "QUIET" {
			t.Fatalf("rendered %q, want %q", got, "QUIET")
		}
	})

	t.Run("directive arguments are evaluated", func(t *testing.T) {
		eng := newEngine(t, tmpl("demo.main", nil,
			echo(1, str("abcdefgh"), dcall("truncate", num(5)))))
		if got := renderString(t, eng, render.Request{Template: "demo.main"}); got != "ab..." {
			t.Fatalf("rendered %q, want %q", got, "ab...")
		}
	})

	t.Run("unknown directive fails the render", func(t *testing.T) {
		eng := newEngine(t, tmpl("demo.main", nil, echo(1, str("x"), dcall("nope"))))
		rerr := renderFailure(t, eng, render.Request{Template: "demo.main"})
		if want := `directives: directive "nope" not found`; rerr.Msg != want {
			t.Fatalf("message %q, want %q", rerr.Msg, want)
		}
	})
}

func callFixtures() []model.Template {
	return []model.Template{
		tmpl("demo.greet", []model.Param{param("name")},
			text(1, "Hi "), echo(2, v("name"))),
		tmpl("demo.pair", []model.Param{param("x"), param("y")},
			echo(1, v("x")), echo(2, v("y"))),
		tmpl("demo.slotbox", []model.Param{param("slot")},
			text(1, "<div>"), echo(2, v("slot")), echo(3, v("slot")), text(4, "</div>")),
		tmpl("demo.welcome", []model.Param{{Name: "greeting", Default: str("Hello")}},
			echo(1, v("greeting")), text(2, " there")),
		tmpl("demo.titled", []model.Param{{Name: "title", Required: true}},
			echo(1, v("title"))),
		tmpl("demo.long", nil, text(1, "abcdefgh")),

		tmpl("demo.callExplicit", nil, model.Call{Located: at(3), Callee: "demo.greet",
			Params: []model.CallParam{{Name: "name", Value: str("Ada")}}}),
		tmpl("demo.callForwardAll", []model.Param{param("x")},
			model.Call{Located: at(3), Callee: "demo.pair", DataAll: true}),
		tmpl("demo.callDataExpr", []model.Param{param("user")},
			model.Call{Located: at(3), Callee: "demo.greet", DataExpr: v("user")}),
		tmpl("demo.callOverride", []model.Param{param("x")},
			model.Call{Located: at(3), Callee: "demo.pair", DataAll: true,
				Params: []model.CallParam{{Name: "x", Value: num(9)}}}),
		tmpl("demo.callContent", nil,
			model.Call{Located: at(3), Callee: "demo.slotbox",
				Params: []model.CallParam{{Name: "slot", Body: []model.Node{text(4, "inner")}, Kind: model.KindHTML}}}),
		tmpl("demo.callDefault", nil, model.Call{Located: at(3), Callee: "demo.welcome"}),
		tmpl("demo.callWithGreeting", nil, model.Call{Located: at(3), Callee: "demo.welcome",
			Params: []model.CallParam{{Name: "greeting", Value: str("Yo")}}}),
		tmpl("demo.callTruncated", nil, model.Call{Located: at(3), Callee: "demo.long",
			Directives: []model.DirectiveCall{dcall("truncate", num(5))}}),
		tmpl("demo.callGhost", nil, model.Call{Located: at(3), Callee: "demo.ghost"}),
		tmpl("demo.callBadData", []model.Param{param("x")},
			model.Call{Located: at(3), Callee: "demo.greet", DataExpr: v("x")}),
		tmpl("demo.callNoTitle", nil, model.Call{Located: at(3), Callee: "demo.titled"}),
	}
}

func TestTemplateCalls(t *testing.T) {
	eng := newEngine(t, callFixtures()...)

	cases := []struct {
		name  string
		entry string
		data  map[string]any
		want  string
	}{
		{"explicit params", "demo.callExplicit", nil, "Hi Ada"},
		{"data all forwards the whole record", "demo.callForwardAll", map[string]any{"x": 1, "y": 2}, "12"},
		{"data expression forwards a record", "demo.callDataExpr", map[string]any{"user": map[string]any{"name": "Bo"}}, "Hi Bo"},
		{"explicit params override forwarded fields", "demo.callOverride", map[string]any{"x": 1, "y": 2}, "92"},
		{"content params render once and memoize", "demo.callContent", nil, "<div>innerinner</div>"},
		{"default parameter value", "demo.callDefault", nil, "Hello there"},
		{"explicit value beats the default", "demo.callWithGreeting", nil, "Yo there"},
		{"call directives see the whole output", "demo.callTruncated", nil, "ab..."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := renderString(t, eng, render.Request{Template: tc.entry, Data: tc.data})
			if got != tc.want {
				t.Fatalf("rendered %q, want %q", got, tc.want)
			}
		})
	}

	failures := []struct {
		name  string
		entry string
		data  map[string]any
		want  string
	}{
		{"unknown callee", "demo.callGhost", nil, `render: template "demo.ghost" not found`},
		{"data expression must be a record", "demo.callBadData", map[string]any{"x": 3},
			`In 'call' tag, expression "$x" does not evaluate to a record.`},
		{"missing required parameter", "demo.callNoTitle", nil,
			`render: template "demo.titled" is missing required parameter "title"`},
	}

	for _, tc := range failures {
		t.Run(tc.name, func(t *testing.T) {
			rerr := renderFailure(t, eng, render.Request{Template: tc.entry, Data: tc.data})
			if rerr.Msg != tc.want {
				t.Fatalf("message %q, want %q", rerr.Msg, tc.want)
			}
		})
	}
}

func bannerFixtures() []model.Template {
	del := func(name, origin, variant string, hasVariant bool, body string) model.Template {
		tpl := model.Template{
			Name:        name,
			Kind:        model.TemplateDel,
			DelGroup:    "app.banner",
			Origin:      origin,
			ContentKind: model.KindHTML,
			Body:        []model.Node{model.RawText{Located: in("banner.soy", 2), Text: body}},
			Location:    model.SourceLocation{File: "banner.soy", Line: 1},
		}
		if hasVariant {
			tpl.Variant, tpl.VariantPresent = variant, true
		}
		return tpl
	}
	return []model.Template{
		del("banner.default", "", "", false, "plain"),
		del("banner.promo", "promo", "", false, "promo!"),
		del("banner.v2", "", "v2", true, "v2!"),
		del("banner.lucky", "", "7", true, "lucky!"),
	}
}

func TestDelegateCalls(t *testing.T) {
	badge := model.Template{
		Name:        "app.badge",
		Kind:        model.TemplateModifiable,
		DelGroup:    "app.badge",
		ContentKind: model.KindHTML,
		Params:      []model.Param{param("label")},
		Body:        []model.Node{echo(1, v("label"))},
		Location:    model.SourceLocation{File: "badge.soy", Line: 1},
	}
	templates := append(bannerFixtures(), badge,
		tmpl("app.page", []model.Param{param("variant")},
			model.DelCall{Located: at(3), Group: "app.banner", VariantExpr: v("variant")}),
		tmpl("app.badged", nil,
			model.DelCall{Located: at(3), Group: "app.badge",
				Params: []model.CallParam{{Name: "label", Value: str("hot")}}}),
		tmpl("app.optional", nil,
			model.DelCall{Located: at(3), Group: "app.ghost", AllowEmptyDefault: true},
			text(4, "after")),
		tmpl("app.broken", nil,
			model.DelCall{Located: at(3), Group: "app.ghost"}),
		tmpl("app.badVariant", []model.Param{param("vs")},
			model.DelCall{Located: at(3), Group: "app.banner", VariantExpr: v("vs")}),
	)
	eng := newEngine(t, templates...)

	cases := []struct {
		name   string
		entry  string
		data   map[string]any
		active registry.ActiveOrigins
		want   string
	}{
		{"null variant picks the default", "app.page", nil, nil, "plain"},
		{"active origin overrides the default", "app.page", nil, registry.OriginSet("promo"), "promo!"},
		{"string variant", "app.page", map[string]any{"variant": "v2"}, nil, "v2!"},
		{"integer variant coerces to its decimal spelling", "app.page", map[string]any{"variant": 7}, nil, "lucky!"},
		{"unknown variant falls back to the default", "app.page", map[string]any{"variant": "zzz"}, nil, "plain"},
		{"variant match beats origin activation", "app.page", map[string]any{"variant": "v2"}, registry.OriginSet("promo"), "v2!"},
		{"params pass through delegate dispatch", "app.badged", nil, nil, "hot"},
		{"allowemptydefault renders nothing", "app.optional", nil, nil, "after"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := renderString(t, eng, render.Request{
				Template:      tc.entry,
				Data:          tc.data,
				ActiveOrigins: tc.active,
			})
			if got != tc.want {
				t.Fatalf("rendered %q, want %q", got, tc.want)
			}
		})
	}

	t.Run("no active implementation fails", func(t *testing.T) {
		rerr := renderFailure(t, eng, render.Request{Template: "app.broken"})
		if want := `render: found no active implementation for delegate group "app.ghost"`; rerr.Msg != want {
			t.Fatalf("message %q, want %q", rerr.Msg, want)
		}
	})

	t.Run("variant expression must be a string or integer", func(t *testing.T) {
		rerr := renderFailure(t, eng, render.Request{
			Template: "app.badVariant",
			Data:     map[string]any{"vs": []any{}},
		})
		if want := `delegate template variant expression "$vs" must evaluate to a string or integer, got list`; rerr.Msg != want {
			t.Fatalf("message %q, want %q", rerr.Msg, want)
		}
	})
}

func TestGroupEntryDispatch(t *testing.T) {
	eng := newEngine(t, bannerFixtures()...)

	cases := []struct {
		name    string
		variant registry.Variant
		active  registry.ActiveOrigins
		want    string
	}{
		{"group entry renders the default", registry.NoVariant(), nil, "plain"},
		{"group entry honors the variant", registry.VariantOf("v2"), nil, "v2!"},
		{"group entry honors active origins", registry.NoVariant(), registry.OriginSet("promo"), "promo!"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := renderString(t, eng, render.Request{
				Template:      "app.banner",
				Variant:       tc.variant,
				ActiveOrigins: tc.active,
			})
			if got != tc.want {
				t.Fatalf("rendered %q, want %q", got, tc.want)
			}
		})
	}

	t.Run("group entry with no active implementation", func(t *testing.T) {
		only := model.Template{
			Name:        "only.side",
			Kind:        model.TemplateDel,
			DelGroup:    "app.only",
			Origin:      "side",
			ContentKind: model.KindHTML,
			Body:        []model.Node{text(1, "side")},
			Location:    model.SourceLocation{File: "only.soy", Line: 1},
		}
		eng := newEngine(t, only)

		_, err := eng.Render(context.Background(), render.Request{
			Template: "app.only",
			Sink:     render.SinkOf(io.Discard),
		})
		if want := `render: found no active implementation for delegate group "app.only"`; err == nil || err.Error() != want {
			t.Fatalf("error %v, want %q", err, want)
		}

		_, err = eng.Render(context.Background(), render.Request{
			Template: "app.only",
			Variant:  registry.VariantOf("x"),
			Sink:     render.SinkOf(io.Discard),
		})
		if want := `render: found no active implementation for delegate group "app.only" with variant "x"`; err == nil || err.Error() != want {
			t.Fatalf("error %v, want %q", err, want)
		}
	})
}

func TestRequestValidation(t *testing.T) {
	eng := newEngine(t, tmpl("demo.main", nil, text(1, "ok")))
	ctx := context.Background()

	t.Run("sink is required", func(t *testing.T) {
		_, err := eng.Render(ctx, render.Request{Template: "demo.main"})
		if want := "render: request needs a sink"; err == nil || err.Error() != want {
			t.Fatalf("error %v, want %q", err, want)
		}
	})

	t.Run("template name is required", func(t *testing.T) {
		_, err := eng.Render(ctx, render.Request{Sink: render.SinkOf(io.Discard)})
		if want := "render: request needs a template name"; err == nil || err.Error() != want {
			t.Fatalf("error %v, want %q", err, want)
		}
	})

	t.Run("unknown entry template", func(t *testing.T) {
		_, err := eng.Render(ctx, render.Request{Template: "nope", Sink: render.SinkOf(io.Discard)})
		if want := `render: template "nope" not found`; err == nil || err.Error() != want {
			t.Fatalf("error %v, want %q", err, want)
		}
	})

	t.Run("conflicting active origins are rejected up front", func(t *testing.T) {
		impl := func(name, origin string) model.Template {
			return model.Template{
				Name:        name,
				Kind:        model.TemplateDel,
				DelGroup:    "app.card",
				Origin:      origin,
				ContentKind: model.KindHTML,
				Body:        []model.Node{text(1, name)},
				Location:    model.SourceLocation{File: "card.soy", Line: 1},
			}
		}
		eng := newEngine(t, impl("card.a", "a"), impl("card.b", "b"),
			tmpl("app.page", nil, model.DelCall{Located: at(2), Group: "app.card"}))

		_, err := eng.Render(ctx, render.Request{
			Template:      "app.page",
			ActiveOrigins: registry.OriginSet("a", "b"),
			Sink:          render.SinkOf(io.Discard),
		})
		if err == nil {
			t.Fatalf("expected an ambiguity error before rendering")
		}
		var confErr *registry.ConfigurationError
		if !errors.As(err, &confErr) {
			t.Fatalf("expected ConfigurationError, got %T: %v", err, err)
		}
		if !strings.Contains(err.Error(), "two active implementations") {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("unconvertible data", func(t *testing.T) {
		_, err := eng.Render(ctx, render.Request{
			Template: "demo.main",
			Data:     map[string]any{"ch": make(chan int)},
			Sink:     render.SinkOf(io.Discard),
		})
		if err == nil || !strings.Contains(err.Error(), "render: convert data:") {
			t.Fatalf("expected a conversion error, got %v", err)
		}
		if !strings.Contains(err.Error(), "cannot convert value of type chan int") {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestLogCapture(t *testing.T) {
	eng := newEngine(t, tmpl("demo.main", []model.Param{param("x")},
		model.Log{Located: at(1), Body: []model.Node{text(2, "checkout reached "), echo(2, v("x"))}},
		text(3, "visible"),
		model.Debugger{Located: at(4)},
	))

	var logs strings.Builder
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	got := renderString(t, eng, render.Request{
		Template: "demo.main",
		Data:     map[string]any{"x": 42},
		Logger:   logger,
	})
	if got != "visible" {
		t.Fatalf("rendered %q, want %q", got, "visible")
	}
	if !strings.Contains(logs.String(), "checkout reached 42") {
		t.Fatalf("log output %q does not carry the rendered log body", logs.String())
	}
	if !strings.Contains(logs.String(), "render_id=") {
		t.Fatalf("log output %q is missing the render id", logs.String())
	}
}
