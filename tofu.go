package tofu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/goliatone/go-tofu/pkg/analysis"
	"github.com/goliatone/go-tofu/pkg/corpus"
	"github.com/goliatone/go-tofu/pkg/data"
	"github.com/goliatone/go-tofu/pkg/directives"
	"github.com/goliatone/go-tofu/pkg/model"
	"github.com/goliatone/go-tofu/pkg/registry"
	"github.com/goliatone/go-tofu/pkg/render"
)

// Version identifies the module for CLIs and services built on it.
const Version = "0.4.0"

// Runtime bundles a loaded corpus, its registry, a render engine, and a
// closure analyzer behind one constructor call. A Runtime is immutable
// after New and safe for concurrent use.
type Runtime struct {
	loader    corpus.Loader
	source    corpus.Source
	document  *corpus.Document
	templates []model.Template
	dirs      *directives.Registry
	logger    *slog.Logger
	hooks     render.Hooks

	reg      *registry.Registry
	eng      *render.Engine
	analyzer *analysis.Analyzer
}

// New wires the corpus loader, registry builder, render engine, and
// analyzer, applying any provided options. Exactly one corpus input is
// required: a source, a pre-loaded document, or raw templates. Loading
// happens inside New; callers that need cancellation or timeouts around
// I/O can load the document themselves and pass WithDocument.
func New(options ...Option) (*Runtime, error) {
	rt := &Runtime{
		logger: slog.Default(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(rt)
	}
	if err := rt.initialise(); err != nil {
		return nil, err
	}
	return rt, nil
}

func (rt *Runtime) initialise() error {
	templates, err := rt.resolveTemplates()
	if err != nil {
		return err
	}

	reg, err := registry.BuildFromTemplates(templates)
	if err != nil {
		return fmt.Errorf("tofu: build registry: %w", err)
	}
	rt.reg = reg

	engineOpts := []render.Option{
		render.WithLogger(rt.logger),
		render.WithHooks(rt.hooks),
	}
	if rt.dirs != nil {
		engineOpts = append(engineOpts, render.WithDirectives(rt.dirs))
	}
	rt.eng = render.New(reg, engineOpts...)
	rt.analyzer = analysis.New(reg)

	rt.logger.Debug("runtime ready",
		"templates", reg.Size(),
		"groups", len(reg.Groups()),
		"origins", len(reg.Origins()))
	return nil
}

func (rt *Runtime) resolveTemplates() ([]model.Template, error) {
	if rt.templates != nil {
		return rt.templates, nil
	}

	doc := rt.document
	if doc == nil {
		if rt.source == nil {
			return nil, errors.New("tofu: corpus source, document, or templates are required")
		}
		loader := rt.loader
		if loader == nil {
			loader = NewLoader()
		}
		loaded, err := loader.Load(context.Background(), rt.source)
		if err != nil {
			return nil, fmt.Errorf("tofu: load corpus: %w", err)
		}
		doc = loaded
		rt.logger.Debug("corpus loaded",
			"name", doc.Name,
			"location", rt.source.Location(),
			"files", len(doc.Files))
	}

	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("tofu: validate corpus: %w", err)
	}
	rt.document = doc
	return doc.Templates(), nil
}

// Registry exposes the built template registry for direct lookups and
// dispatch-aware tooling.
func (rt *Runtime) Registry() *registry.Registry { return rt.reg }

// Document returns the resolved corpus document, or nil when the runtime
// was constructed from raw templates.
func (rt *Runtime) Document() *corpus.Document { return rt.document }

// HasTemplate reports whether name is renderable, as a unique template or
// as an overridable group.
func (rt *Runtime) HasTemplate(name string) bool { return rt.reg.HasTemplate(name) }

// ClosureOf returns the transitive dependency closure of one root
// template or group.
func (rt *Runtime) ClosureOf(name string) (*analysis.Closure, error) {
	return rt.analyzer.ClosureOf(name)
}

// ClosureOfAll returns the union closure of several roots.
func (rt *Runtime) ClosureOfAll(names []string) (*analysis.Closure, error) {
	return rt.analyzer.ClosureOfAll(names)
}

// TransitiveInjected returns every injected input name the closure of the
// named template can read, sorted.
func (rt *Runtime) TransitiveInjected(name string) ([]string, error) {
	return rt.analyzer.TransitiveInjected(name)
}

// Render starts a render through the engine. The returned handle carries
// segment results; suspended renders are resumed by the caller.
func (rt *Runtime) Render(ctx context.Context, req render.Request) (*render.Render, error) {
	return rt.eng.Render(ctx, req)
}

// Request describes a synchronous whole-template render. It mirrors
// render.Request without the sink, which RenderToString supplies.
type Request struct {
	Template      string
	Variant       registry.Variant
	Data          map[string]any
	Injected      map[string]any
	ActiveOrigins registry.ActiveOrigins
	Directives    *directives.Registry
}

// ErrPendingData reports that a synchronous render parked on a pending
// value the host never completed.
var ErrPendingData = errors.New("tofu: render suspended on pending value")

// RenderToString renders a template to completion and returns the output
// as a string. Suspensions on values that became ready between segments
// are resumed transparently; a still-pending value fails with
// ErrPendingData, since a synchronous caller has nobody to wait on.
func (rt *Runtime) RenderToString(ctx context.Context, req Request) (string, error) {
	var buf strings.Builder
	handle, err := rt.eng.Render(ctx, render.Request{
		Template:      req.Template,
		Variant:       req.Variant,
		Data:          req.Data,
		Injected:      req.Injected,
		ActiveOrigins: req.ActiveOrigins,
		Directives:    req.Directives,
		Sink:          render.SinkOf(&buf),
	})
	if err != nil {
		return "", err
	}

	res := handle.Result()
	for {
		switch {
		case res.Done():
			return buf.String(), nil
		case res.Failed():
			return "", res.Err
		case res.State == render.StatePendingValue:
			if res.Pending == nil || res.Pending.Status() != data.StatusReady {
				return "", fmt.Errorf("%w (template %q, pending %s)", ErrPendingData, req.Template, res.PendingID)
			}
		}
		if res, err = handle.Resume(); err != nil {
			return "", err
		}
	}
}
