package testsupport

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	tofu "github.com/goliatone/go-tofu"
	"github.com/goliatone/go-tofu/pkg/corpus"
	"github.com/goliatone/go-tofu/pkg/registry"
)

// LoadCorpus reads and decodes a corpus manifest fixture. Helpers fail the
// test on error to keep contract tests concise.
func LoadCorpus(t *testing.T, path string) *corpus.Document {
	t.Helper()

	doc, err := LoadCorpusFromPath(path)
	if err != nil {
		t.Fatalf("load corpus: %v", err)
	}
	return doc
}

// LoadCorpusFromPath returns a decoded corpus without requiring testing.T,
// so fixtures can be wired in setup functions.
func LoadCorpusFromPath(path string) (*corpus.Document, error) {
	if path == "" {
		return nil, errors.New("testsupport: corpus path is required")
	}
	loader := tofu.NewLoader()
	doc, err := loader.Load(context.Background(), corpus.SourceFromFile(path))
	if err != nil {
		return nil, fmt.Errorf("testsupport: load corpus: %w", err)
	}
	return doc, nil
}

// BuildRegistry loads a corpus fixture and builds its registry.
func BuildRegistry(t *testing.T, path string) *registry.Registry {
	t.Helper()

	doc := LoadCorpus(t, path)
	reg, err := registry.Build(doc)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return reg
}

// NewRuntime builds a runtime over a corpus fixture.
func NewRuntime(t *testing.T, path string, options ...tofu.Option) *tofu.Runtime {
	t.Helper()

	opts := append([]tofu.Option{tofu.WithCorpusFile(path)}, options...)
	rt, err := tofu.New(opts...)
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	return rt
}

// RenderString renders a template to completion through the facade,
// failing the test on any error.
func RenderString(t *testing.T, rt *tofu.Runtime, req tofu.Request) string {
	t.Helper()

	out, err := rt.RenderToString(context.Background(), req)
	if err != nil {
		t.Fatalf("render %s: %v", req.Template, err)
	}
	return out
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// MustReadGoldenString reads a golden file and returns its string content.
func MustReadGoldenString(t *testing.T, path string) string {
	t.Helper()
	return string(MustReadGolden(t, path))
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set.
// Returns true if the golden was written (test should exit early).
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}
