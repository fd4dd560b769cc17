// Package loader implements corpus.Loader over YAML (and, YAML being a
// superset, JSON) corpus manifests.
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	pkgcorpus "github.com/goliatone/go-tofu/pkg/corpus"
)

// Loader decodes corpus manifests from files or an injected fs.FS.
// Construction helpers live in the top-level tofu package.
type Loader struct {
	fs fs.FS
}

// Ensure the implementation satisfies the public interface.
var _ pkgcorpus.Loader = (*Loader)(nil)

// New constructs a Loader from pre-resolved options.
func New(options pkgcorpus.LoaderOptions) *Loader {
	return &Loader{fs: options.FileSystem}
}

// Load fetches and decodes the manifest identified by src.
func (l *Loader) Load(ctx context.Context, src pkgcorpus.Source) (*pkgcorpus.Document, error) {
	if src == nil {
		return nil, errors.New("corpus loader: source is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("corpus loader: %w", err)
	}

	var (
		raw []byte
		err error
	)
	switch src.Kind() {
	case pkgcorpus.SourceKindFile:
		raw, err = os.ReadFile(src.Location())
	case pkgcorpus.SourceKindFS:
		if l.fs == nil {
			return nil, errors.New("corpus loader: fs source requires WithFileSystem")
		}
		raw, err = fs.ReadFile(l.fs, src.Location())
	case pkgcorpus.SourceKindReader:
		rs, ok := src.(interface{ Reader() io.Reader })
		if !ok || rs.Reader() == nil {
			return nil, errors.New("corpus loader: reader source carries no reader")
		}
		raw, err = io.ReadAll(rs.Reader())
	default:
		err = fmt.Errorf("corpus loader: unsupported source kind %q", src.Kind())
	}
	if err != nil {
		return nil, fmt.Errorf("corpus loader: read %s: %w", src.Location(), err)
	}

	doc, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("corpus loader: decode %s: %w", src.Location(), err)
	}
	return doc, nil
}

// Decode turns raw manifest bytes into a document. Exposed separately so
// test support can decode fixtures without a Source.
func Decode(raw []byte) (*pkgcorpus.Document, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, errors.New("manifest is empty")
	}

	var m manifest
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}

	doc, err := m.document()
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}
