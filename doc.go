// Package tofu is the runtime core for corpora of compiled, overridable
// templates. It loads corpus manifests, builds the template registry with
// group/variant/origin dispatch, renders templates through a suspendable
// engine that cooperates with asynchronous data and slow sinks, and
// answers transitive dependency questions over the template call graph.
//
// The package wires the pipeline behind a single constructor:
//
//	rt, err := tofu.New(tofu.WithCorpusFile("corpus.yaml"))
//	out, err := rt.RenderToString(ctx, tofu.Request{Template: "app.greet"})
//
// Hosts that stream output or feed pending values drive renders through
// Runtime.Render and the render.Render handle instead. The underlying
// stages live in pkg/corpus, pkg/registry, pkg/render, and pkg/analysis
// for callers that need them individually.
package tofu
