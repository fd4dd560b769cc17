package corpus

import (
	"context"
	"errors"
	"io/fs"

	"github.com/goliatone/go-tofu/pkg/model"
)

// File groups the templates compiled from one source file. Path is the
// original template-source path; node locations inside reference it.
type File struct {
	Path      string
	Templates []model.Template
}

// Document is a fully decoded corpus. Registries are built from documents;
// nothing here is validated beyond manifest shape.
type Document struct {
	Name    string
	Version string
	Files   []File
}

// Templates flattens the document into registration order: file order, then
// declaration order within each file.
func (d *Document) Templates() []model.Template {
	var out []model.Template
	for _, f := range d.Files {
		out = append(out, f.Templates...)
	}
	return out
}

// Validate performs the basic shape checks loaders rely on before handing
// documents to the registry.
func (d *Document) Validate() error {
	if d == nil {
		return errors.New("corpus: document is nil")
	}
	for _, f := range d.Files {
		if f.Path == "" {
			return errors.New("corpus: file entry missing path")
		}
	}
	return nil
}

// Loader decodes corpus manifests. Implementations live under
// internal/corpus but satisfy this contract; construction helpers sit in
// the top-level tofu package to prevent import cycles.
type Loader interface {
	Load(ctx context.Context, src Source) (*Document, error)
}

// LoaderOptions configures how a Loader resolves sources.
type LoaderOptions struct {
	// FileSystem enables loading fs sources; defaults to the operating
	// system when nil and a file source is used.
	FileSystem fs.FS
}

// LoaderOption mutates LoaderOptions prior to construction.
type LoaderOption func(*LoaderOptions)

// WithFileSystem injects an fs.FS implementation for SourceFromFS sources.
func WithFileSystem(files fs.FS) LoaderOption {
	return func(opts *LoaderOptions) {
		opts.FileSystem = files
	}
}

// NewLoaderOptions applies a set of LoaderOption values and returns the
// resulting configuration.
func NewLoaderOptions(options ...LoaderOption) LoaderOptions {
	cfg := LoaderOptions{}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
