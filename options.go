package tofu

import (
	"io"
	"io/fs"
	"log/slog"

	internalLoader "github.com/goliatone/go-tofu/internal/corpus/loader"
	"github.com/goliatone/go-tofu/pkg/corpus"
	"github.com/goliatone/go-tofu/pkg/directives"
	"github.com/goliatone/go-tofu/pkg/model"
	"github.com/goliatone/go-tofu/pkg/render"
)

// Option customises the runtime configuration.
type Option func(*Runtime)

// WithCorpusSource points the runtime at a corpus manifest.
func WithCorpusSource(src corpus.Source) Option {
	return func(rt *Runtime) {
		rt.source = src
	}
}

// WithCorpusFile points the runtime at an on-disk corpus manifest.
func WithCorpusFile(path string) Option {
	return WithCorpusSource(corpus.SourceFromFile(path))
}

// WithCorpusReader decodes the corpus manifest from a stream, typically
// stdin or a request body.
func WithCorpusReader(r io.Reader) Option {
	return WithCorpusSource(corpus.SourceFromReader(r))
}

// WithCorpusFS loads the named corpus manifest from an fs.FS, typically an
// embed.FS shipped with the host.
func WithCorpusFS(fsys fs.FS, name string) Option {
	return func(rt *Runtime) {
		rt.source = corpus.SourceFromFS(name)
		rt.loader = NewLoader(corpus.WithFileSystem(fsys))
	}
}

// WithDocument supplies a pre-loaded corpus document, bypassing the loader
// stage.
func WithDocument(doc *corpus.Document) Option {
	return func(rt *Runtime) {
		rt.document = doc
	}
}

// WithTemplates supplies compiled templates directly, bypassing both the
// loader and the document. Registration order is the slice order.
func WithTemplates(templates []model.Template) Option {
	return func(rt *Runtime) {
		rt.templates = templates
	}
}

// WithLoader injects a custom corpus loader used when a source is given.
func WithLoader(loader corpus.Loader) Option {
	return func(rt *Runtime) {
		rt.loader = loader
	}
}

// WithDirectives replaces the built-in print directive registry.
func WithDirectives(dirs *directives.Registry) Option {
	return func(rt *Runtime) {
		rt.dirs = dirs
	}
}

// WithLogger sets the logger the runtime and its engine report through.
func WithLogger(logger *slog.Logger) Option {
	return func(rt *Runtime) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

// WithRenderHooks installs render lifecycle callbacks, typically metrics
// counters.
func WithRenderHooks(hooks render.Hooks) Option {
	return func(rt *Runtime) {
		rt.hooks = hooks
	}
}

// NewLoader constructs a corpus loader using the internal implementation
// while keeping the concrete type hidden from consumers.
func NewLoader(options ...corpus.LoaderOption) corpus.Loader {
	cfg := corpus.NewLoaderOptions(options...)
	return internalLoader.New(cfg)
}
