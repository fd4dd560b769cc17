package corpus

import (
	"io"
	"path/filepath"
)

// Source identifies where a corpus manifest originated so loaders can
// operate on plain files, fs.FS entries, or streams without leaking
// implementation details.
type Source interface {
	Kind() SourceKind
	Location() string
}

// SourceKind enumerates the loader modalities.
type SourceKind string

const (
	SourceKindFile   SourceKind = "file"
	SourceKindFS     SourceKind = "fs"
	SourceKindReader SourceKind = "reader"
)

// fileSource identifies on-disk corpus manifests.
type fileSource struct {
	path string
}

func (s fileSource) Kind() SourceKind { return SourceKindFile }
func (s fileSource) Location() string { return s.path }

// SourceFromFile returns a Source pointing to a file path.
func SourceFromFile(path string) Source {
	return fileSource{path: filepath.Clean(path)}
}

// fsSource references a path within an fs.FS supplied through
// LoaderOptions.
type fsSource struct {
	name string
}

func (s fsSource) Kind() SourceKind { return SourceKindFS }
func (s fsSource) Location() string { return s.name }

// SourceFromFS returns a Source identifying a resource inside an fs.FS.
func SourceFromFS(name string) Source {
	return fsSource{name: name}
}

// readerSource wraps a manifest arriving as a stream.
type readerSource struct {
	r io.Reader
}

func (s readerSource) Kind() SourceKind  { return SourceKindReader }
func (s readerSource) Location() string  { return "<reader>" }
func (s readerSource) Reader() io.Reader { return s.r }

// SourceFromReader returns a Source that decodes directly from r, for
// corpora arriving on stdin or a request body. The reader is consumed on
// the first Load.
func SourceFromReader(r io.Reader) Source {
	return readerSource{r: r}
}
