package tofu_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	tofu "github.com/goliatone/go-tofu"
	"github.com/goliatone/go-tofu/pkg/corpus"
	"github.com/goliatone/go-tofu/pkg/data"
	"github.com/goliatone/go-tofu/pkg/directives"
	"github.com/goliatone/go-tofu/pkg/model"
	"github.com/goliatone/go-tofu/pkg/registry"
	"github.com/goliatone/go-tofu/pkg/render"
)

func loc(line int) model.Located {
	return model.Located{Loc: model.SourceLocation{File: "app.soy", Line: line}}
}

func raw(line int, s string) model.Node {
	return model.RawText{Located: loc(line), Text: s}
}

func prints(line int, e model.Expr) model.Node {
	return model.Print{Located: loc(line), Value: e}
}

func varOf(name string) model.Expr { return model.VarRef{Name: name} }

func basic(name string, params []model.Param, body ...model.Node) model.Template {
	return model.Template{
		Name:        name,
		Kind:        model.TemplateBasic,
		ContentKind: model.KindHTML,
		Params:      params,
		Body:        body,
		Location:    model.SourceLocation{File: "app.soy", Line: 1},
	}
}

func greeter() model.Template {
	return basic("app.hello", []model.Param{{Name: "who"}},
		raw(2, "Hi "), prints(2, varOf("who")))
}

const siteManifest = `
corpus: site
version: "2"
files:
  - path: site.soy
    templates:
      - name: site.hello
        line: 2
        params:
          - {name: who, type: string, required: true, line: 3}
        body:
          - {raw: "Hi ", line: 4}
          - print:
              expr: {var: {name: who}}
            line: 4
`

func TestNewRequiresCorpusInput(t *testing.T) {
	_, err := tofu.New()
	if want := "tofu: corpus source, document, or templates are required"; err == nil || err.Error() != want {
		t.Fatalf("error %v, want %q", err, want)
	}
}

func TestNewFromTemplates(t *testing.T) {
	rt, err := tofu.New(tofu.WithTemplates([]model.Template{greeter()}))
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}

	if !rt.HasTemplate("app.hello") {
		t.Fatalf("expected app.hello to be renderable")
	}
	if rt.HasTemplate("app.nope") {
		t.Fatalf("app.nope should not exist")
	}
	if rt.Document() != nil {
		t.Fatalf("template-backed runtimes have no corpus document")
	}
	if got := rt.Registry().Size(); got != 1 {
		t.Fatalf("registry size %d, want 1", got)
	}

	out, err := rt.RenderToString(context.Background(), tofu.Request{
		Template: "app.hello",
		Data:     map[string]any{"who": "Ada"},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "Hi Ada" {
		t.Fatalf("rendered %q, want %q", out, "Hi Ada")
	}
}

func TestNewFromCorpusFS(t *testing.T) {
	fsys := fstest.MapFS{
		"corpora/site.yaml": &fstest.MapFile{Data: []byte(siteManifest)},
	}
	rt, err := tofu.New(tofu.WithCorpusFS(fsys, "corpora/site.yaml"))
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}

	doc := rt.Document()
	if doc == nil || doc.Name != "site" || doc.Version != "2" {
		t.Fatalf("unexpected document: %+v", doc)
	}

	out, err := rt.RenderToString(context.Background(), tofu.Request{
		Template: "site.hello",
		Data:     map[string]any{"who": "Bo"},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "Hi Bo" {
		t.Fatalf("rendered %q, want %q", out, "Hi Bo")
	}
}

func TestNewFromCorpusReader(t *testing.T) {
	rt, err := tofu.New(tofu.WithCorpusReader(strings.NewReader(siteManifest)))
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}

	out, err := rt.RenderToString(context.Background(), tofu.Request{
		Template: "site.hello",
		Data:     map[string]any{"who": "Ng"},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "Hi Ng" {
		t.Fatalf("rendered %q, want %q", out, "Hi Ng")
	}
}

func TestNewFromCorpusFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.yaml")
	if err := os.WriteFile(path, []byte(siteManifest), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	rt, err := tofu.New(tofu.WithCorpusFile(path))
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	if !rt.HasTemplate("site.hello") {
		t.Fatalf("expected site.hello from the on-disk corpus")
	}
}

type staticLoader struct {
	doc *corpus.Document
}

func (l staticLoader) Load(ctx context.Context, src corpus.Source) (*corpus.Document, error) {
	return l.doc, nil
}

func TestNewWithInjectedLoader(t *testing.T) {
	doc := &corpus.Document{
		Name:  "inline",
		Files: []corpus.File{{Path: "app.soy", Templates: []model.Template{greeter()}}},
	}
	rt, err := tofu.New(
		tofu.WithCorpusSource(corpus.SourceFromFile("ignored.yaml")),
		tofu.WithLoader(staticLoader{doc: doc}),
	)
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	if rt.Document() != doc {
		t.Fatalf("expected the loader's document to be retained")
	}
	if !rt.HasTemplate("app.hello") {
		t.Fatalf("expected templates from the injected loader")
	}
}

func TestNewFromDocument(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		doc := &corpus.Document{
			Name:  "inline",
			Files: []corpus.File{{Path: "app.soy", Templates: []model.Template{greeter()}}},
		}
		rt, err := tofu.New(tofu.WithDocument(doc))
		if err != nil {
			t.Fatalf("new runtime: %v", err)
		}
		if rt.Document() != doc {
			t.Fatalf("expected the supplied document to be retained")
		}
		out, err := rt.RenderToString(context.Background(), tofu.Request{
			Template: "app.hello",
			Data:     map[string]any{"who": "Cy"},
		})
		if err != nil || out != "Hi Cy" {
			t.Fatalf("rendered %q (%v), want %q", out, err, "Hi Cy")
		}
	})

	t.Run("invalid document fails validation", func(t *testing.T) {
		doc := &corpus.Document{Files: []corpus.File{{Templates: []model.Template{greeter()}}}}
		_, err := tofu.New(tofu.WithDocument(doc))
		if err == nil || !strings.Contains(err.Error(), "tofu: validate corpus") {
			t.Fatalf("expected validation error, got %v", err)
		}
		if !strings.Contains(err.Error(), "missing path") {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestNewReportsRegistryConflicts(t *testing.T) {
	_, err := tofu.New(tofu.WithTemplates([]model.Template{greeter(), greeter()}))
	if err == nil || !strings.Contains(err.Error(), "tofu: build registry") {
		t.Fatalf("expected a wrapped registry error, got %v", err)
	}
	var confErr *registry.ConfigurationError
	if !errors.As(err, &confErr) {
		t.Fatalf("expected ConfigurationError, got %T: %v", err, err)
	}
}

func TestRenderToString(t *testing.T) {
	feedItem := basic("feed.item", []model.Param{{Name: "title"}},
		raw(1, "A"), prints(2, varOf("title")), raw(3, "B"))

	t.Run("completes values set while parked", func(t *testing.T) {
		title := data.NewAsync()
		rt, err := tofu.New(
			tofu.WithTemplates([]model.Template{feedItem}),
			tofu.WithRenderHooks(render.Hooks{
				Suspended: func(string, render.State) { title.Set(data.Str("X")) },
			}),
		)
		if err != nil {
			t.Fatalf("new runtime: %v", err)
		}
		out, err := rt.RenderToString(context.Background(), tofu.Request{
			Template: "feed.item",
			Data:     map[string]any{"title": title},
		})
		if err != nil {
			t.Fatalf("render: %v", err)
		}
		if out != "AXB" {
			t.Fatalf("rendered %q, want %q", out, "AXB")
		}
	})

	t.Run("still pending values fail with ErrPendingData", func(t *testing.T) {
		title := data.NewAsync()
		rt, err := tofu.New(tofu.WithTemplates([]model.Template{feedItem}))
		if err != nil {
			t.Fatalf("new runtime: %v", err)
		}
		_, err = rt.RenderToString(context.Background(), tofu.Request{
			Template: "feed.item",
			Data:     map[string]any{"title": title},
		})
		if !errors.Is(err, tofu.ErrPendingData) {
			t.Fatalf("expected ErrPendingData, got %v", err)
		}
		if !strings.Contains(err.Error(), `template "feed.item"`) {
			t.Fatalf("error should name the template: %v", err)
		}
		if !strings.Contains(err.Error(), title.ID().String()) {
			t.Fatalf("error should carry the pending id: %v", err)
		}
	})

	t.Run("failures surface the template stack", func(t *testing.T) {
		rt, err := tofu.New(tofu.WithTemplates([]model.Template{
			basic("feed.broken", nil, prints(2, varOf("missing"))),
		}))
		if err != nil {
			t.Fatalf("new runtime: %v", err)
		}
		_, err = rt.RenderToString(context.Background(), tofu.Request{Template: "feed.broken"})
		var rerr *render.Error
		if !errors.As(err, &rerr) {
			t.Fatalf("expected *render.Error, got %T: %v", err, err)
		}
		if !strings.Contains(rerr.Msg, "evaluates to undefined") {
			t.Fatalf("unexpected message: %q", rerr.Msg)
		}
		if len(rerr.Frames) != 1 || rerr.Frames[0].Template != "feed.broken" {
			t.Fatalf("unexpected stack: %+v", rerr.Frames)
		}
	})

	t.Run("injected values reach the templates", func(t *testing.T) {
		rt, err := tofu.New(tofu.WithTemplates([]model.Template{
			basic("feed.locale", nil, prints(1, model.VarRef{Name: "locale", Injected: true})),
		}))
		if err != nil {
			t.Fatalf("new runtime: %v", err)
		}
		out, err := rt.RenderToString(context.Background(), tofu.Request{
			Template: "feed.locale",
			Injected: map[string]any{"locale": "fr"},
		})
		if err != nil || out != "fr" {
			t.Fatalf("rendered %q (%v), want %q", out, err, "fr")
		}
	})

	t.Run("request directives override the builtins", func(t *testing.T) {
		dirs := directives.NewRegistry()
		dirs.MustRegister(directives.Func("shout", func(val data.Value, _ []data.Value) (data.Value, error) {
			return data.Str(strings.ToUpper(val.String())), nil
		}))
		rt, err := tofu.New(tofu.WithTemplates([]model.Template{
			basic("feed.loud", nil, model.Print{
				Located:    loc(1),
				Value:      model.StringLit{Value: "quiet"},
				Directives: []model.DirectiveCall{{Name: "shout"}},
			}),
		}))
		if err != nil {
			t.Fatalf("new runtime: %v", err)
		}
		out, err := rt.RenderToString(context.Background(), tofu.Request{
			Template:   "feed.loud",
			Directives: dirs,
		})
		if err != nil || out != "QUIET" {
			t.Fatalf("rendered %q (%v), want %q", out, err, "QUIET")
		}
	})
}

func TestRenderToStringDispatchesGroups(t *testing.T) {
	impl := func(name, origin, variant string, hasVariant bool, body string) model.Template {
		tpl := model.Template{
			Name:        name,
			Kind:        model.TemplateDel,
			DelGroup:    "app.toast",
			Origin:      origin,
			ContentKind: model.KindHTML,
			Body:        []model.Node{raw(2, body)},
			Location:    model.SourceLocation{File: "toast.soy", Line: 1},
		}
		if hasVariant {
			tpl.Variant, tpl.VariantPresent = variant, true
		}
		return tpl
	}
	rt, err := tofu.New(tofu.WithTemplates([]model.Template{
		impl("toast.plain", "", "", false, "plain"),
		impl("toast.loud", "", "loud", true, "LOUD!"),
		impl("toast.beta", "beta", "", false, "beta!"),
	}))
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}

	cases := []struct {
		name string
		req  tofu.Request
		want string
	}{
		{"default member", tofu.Request{Template: "app.toast"}, "plain"},
		{"variant member", tofu.Request{Template: "app.toast", Variant: registry.VariantOf("loud")}, "LOUD!"},
		{"active origin", tofu.Request{Template: "app.toast", ActiveOrigins: registry.OriginSet("beta")}, "beta!"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := rt.RenderToString(context.Background(), tc.req)
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			if out != tc.want {
				t.Fatalf("rendered %q, want %q", out, tc.want)
			}
		})
	}
}

func TestRuntimeRenderHandle(t *testing.T) {
	rt, err := tofu.New(tofu.WithTemplates([]model.Template{
		basic("feed.item", []model.Param{{Name: "title"}},
			raw(1, "<"), prints(2, varOf("title")), raw(3, ">")),
	}))
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}

	title := data.NewAsync()
	var out strings.Builder
	r, err := rt.Render(context.Background(), render.Request{
		Template: "feed.item",
		Data:     map[string]any{"title": title},
		Sink:     render.SinkOf(&out),
	})
	if err != nil {
		t.Fatalf("start render: %v", err)
	}
	if res := r.Result(); res.State != render.StatePendingValue || res.PendingID != title.ID() {
		t.Fatalf("expected suspension on the async title, got %+v", res)
	}

	title.Set(data.Str("go"))
	res, err := r.Resume()
	if err != nil || !res.Done() {
		t.Fatalf("resume: state %s, err %v", res.State, err)
	}
	if out.String() != "<go>" {
		t.Fatalf("rendered %q, want %q", out.String(), "<go>")
	}
}

func TestClosurePassthrough(t *testing.T) {
	rt, err := tofu.New(tofu.WithTemplates([]model.Template{
		basic("checkout.cart", nil,
			prints(2, model.VarRef{Name: "locale", Injected: true}),
			model.Call{Located: loc(3), Callee: "checkout.row"}),
		basic("checkout.row", []model.Param{{Name: "theme", Injected: true}},
			prints(2, varOf("theme"))),
		basic("checkout.help", nil, raw(1, "help")),
	}))
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}

	closure, err := rt.ClosureOf("checkout.cart")
	if err != nil {
		t.Fatalf("closure: %v", err)
	}
	if diff := cmp.Diff([]string{"checkout.cart", "checkout.row"}, closure.Names()); diff != "" {
		t.Fatalf("closure members (-want +got):\n%s", diff)
	}
	if closure.Contains("checkout.help") {
		t.Fatalf("checkout.help is unreachable and must not be in the closure")
	}

	all, err := rt.ClosureOfAll([]string{"checkout.cart", "checkout.help"})
	if err != nil {
		t.Fatalf("union closure: %v", err)
	}
	if all.Size() != 3 {
		t.Fatalf("union size %d, want 3", all.Size())
	}

	injected, err := rt.TransitiveInjected("checkout.cart")
	if err != nil {
		t.Fatalf("transitive injected: %v", err)
	}
	if diff := cmp.Diff([]string{"locale", "theme"}, injected); diff != "" {
		t.Fatalf("injected names (-want +got):\n%s", diff)
	}

	if _, err := rt.ClosureOf("checkout.nope"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected unknown-root error, got %v", err)
	}
}

func TestWithLogger(t *testing.T) {
	var logs strings.Builder
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := tofu.New(
		tofu.WithTemplates([]model.Template{greeter()}),
		tofu.WithLogger(logger),
	)
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	if !strings.Contains(logs.String(), "runtime ready") {
		t.Fatalf("expected a readiness log line, got %q", logs.String())
	}
}

func TestWithDirectives(t *testing.T) {
	dirs := directives.NewRegistry()
	dirs.MustRegister(directives.Func("shout", func(val data.Value, _ []data.Value) (data.Value, error) {
		return data.Str(strings.ToUpper(val.String())), nil
	}))

	rt, err := tofu.New(
		tofu.WithTemplates([]model.Template{
			basic("app.loud", nil, model.Print{
				Located:    loc(1),
				Value:      model.StringLit{Value: "psst"},
				Directives: []model.DirectiveCall{{Name: "shout"}},
			}),
		}),
		tofu.WithDirectives(dirs),
	)
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}

	out, err := rt.RenderToString(context.Background(), tofu.Request{Template: "app.loud"})
	if err != nil || out != "PSST" {
		t.Fatalf("rendered %q (%v), want %q", out, err, "PSST")
	}
}
