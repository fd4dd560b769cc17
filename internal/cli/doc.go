// Package cli implements the tofu command line tool.
//
// # Overview
//
// The CLI loads a corpus manifest and answers questions about it without
// embedding the runtime into another program: listing templates, walking
// dependency closures, and rendering to stdout. It drives the public
// tofu.Runtime facade only; nothing here reaches into internal packages
// of the engine.
//
// # Commands
//
//   - inspect: list templates with kind, group, variant, origin, params
//   - closure: transitive dependency closure of one or more roots
//   - render:  render a template or group to stdout
//   - explore: interactive survey-driven session
//
// Each command is created through a factory (NewInspectCmd and friends)
// taking a RuntimeFn, a closure that builds the runtime lazily after
// cobra has parsed the persistent --corpus flag.
//
// # Output
//
// Output formats results as a table (tabwriter), JSON, or through a
// caller-supplied pongo2 template. Data goes to stdout and messages to
// stderr so output can be piped.
package cli
