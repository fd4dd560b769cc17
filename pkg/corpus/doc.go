// Package corpus exposes the public contracts for loading compiled template
// corpora. A corpus is the build artifact an upstream template compiler
// emits: every template fully resolved to concrete nodes with source
// positions attached. Decoding lives under internal/corpus so the YAML
// machinery stays hidden from consumers.
package corpus
