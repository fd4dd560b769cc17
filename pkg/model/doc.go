// Package model defines the compiled template data model shared by the
// registry, the closure analyzer, and the render engine. A corpus arrives
// fully compiled: templates, parameters, body nodes, and expressions are
// concrete types, every callee is a resolved name, and every element keeps
// the (file, line) position it was authored at. Nothing in this package
// parses or executes; it is the vocabulary the rest of the module speaks.
//
// The overridable template family (deltemplate/delpackage in the legacy
// spelling, modifiable/modifies in the modern one) is represented uniformly:
// every implementation carries its dispatch group, optional registration
// variant (with presence tracked separately, since an empty-string variant
// is a legal key), and optional origin group. The registry folds both
// spellings into one selection model.
//
// WalkNodes, NodeExprs, and WalkExpr give analysis passes a uniform way to
// traverse bodies without enumerating node kinds themselves.
package model
