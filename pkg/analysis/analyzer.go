// Package analysis answers reachability questions over a built registry:
// which templates can a render of template T ever reach, and which injected
// inputs does that closure require. Hosts use it to preload data, scope
// capabilities, and audit template graphs without rendering anything.
package analysis

import (
	"fmt"
	"sort"
	"sync"

	"github.com/goliatone/go-tofu/pkg/model"
	"github.com/goliatone/go-tofu/pkg/registry"
)

// Analyzer computes transitive callee closures over one registry snapshot.
// Results are memoized per arena index; the memo is guarded by a mutex so
// concurrent callers are safe, and every returned Closure is immutable.
type Analyzer struct {
	reg   *registry.Registry
	edges [][]registry.Index

	mu   sync.Mutex
	memo []*Closure
}

// New builds an analyzer for a registry. The call graph is extracted once:
// static calls edge to their callee (or to every group member when the
// callee is a group name), dynamic calls edge to every member of their
// group regardless of variant or origin. Callees the registry does not
// know contribute no edges; the renderer reports those, the analyzer
// tolerates them.
func New(reg *registry.Registry) *Analyzer {
	return &Analyzer{
		reg:   reg,
		edges: computeEdges(reg),
		memo:  make([]*Closure, reg.Size()),
	}
}

func computeEdges(reg *registry.Registry) [][]registry.Index {
	templates := reg.Templates()
	edges := make([][]registry.Index, len(templates))

	for i, tpl := range templates {
		seen := make(map[registry.Index]struct{})
		var out []registry.Index
		add := func(idx registry.Index) {
			if _, dup := seen[idx]; !dup {
				seen[idx] = struct{}{}
				out = append(out, idx)
			}
		}
		addGroup := func(group string) {
			for _, member := range reg.GroupMembers(group) {
				if idx, ok := reg.IndexOf(member.Name); ok {
					add(idx)
				}
			}
		}

		model.WalkNodes(tpl.Body, func(n model.Node) {
			switch node := n.(type) {
			case model.Call:
				if reg.IsGroup(node.Callee) {
					addGroup(node.Callee)
				} else if idx, ok := reg.IndexOf(node.Callee); ok {
					add(idx)
				}
			case model.DelCall:
				addGroup(node.Group)
			}
		})
		edges[i] = out
	}
	return edges
}

// ClosureOf returns the transitive closure of one root. The root may be a
// unique template name or a group name; a group closes over every member.
func (a *Analyzer) ClosureOf(name string) (*Closure, error) {
	return a.ClosureOfAll([]string{name})
}

// ClosureOfAll returns the union closure of several roots, sharing one memo
// pass. The result equals the union of the individual closures.
func (a *Analyzer) ClosureOfAll(names []string) (*Closure, error) {
	roots, err := a.rootIndices(names)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	result := newClosure(a.reg, nil)
	for _, idx := range roots {
		result = result.union(a.closureOfIndexLocked(idx))
	}
	return result, nil
}

// rootIndices expands root names the way dispatch would: a group name
// covers every member, any variant or origin, before a unique template
// name is considered. Otherwise the closure of a modifiable template
// would miss the implementations that can replace it at render time.
func (a *Analyzer) rootIndices(names []string) ([]registry.Index, error) {
	var roots []registry.Index
	for _, name := range names {
		if members := a.reg.GroupMembers(name); len(members) > 0 {
			for _, member := range members {
				if idx, ok := a.reg.IndexOf(member.Name); ok {
					roots = append(roots, idx)
				}
			}
			continue
		}
		idx, ok := a.reg.IndexOf(name)
		if !ok {
			return nil, fmt.Errorf("analysis: template %q not found", name)
		}
		roots = append(roots, idx)
	}
	return roots, nil
}

// closureOfIndexLocked runs the memoized depth-first walk. Callers hold
// a.mu.
func (a *Analyzer) closureOfIndexLocked(idx registry.Index) *Closure {
	if c := a.memo[idx]; c != nil {
		return c
	}
	w := &walker{a: a, active: make(map[registry.Index]*visitInfo)}
	w.visit(idx)
	return a.memo[idx]
}

// visitInfo is the in-flight bookkeeping for one template during the walk.
// earliest points at the info of the earliest-ordinal template known to be
// mutually reachable with this one; for templates outside any cycle it
// points at itself.
type visitInfo struct {
	ordinal  int
	earliest *visitInfo
	deps     map[registry.Index]struct{}
}

type walker struct {
	a       *Analyzer
	active  map[registry.Index]*visitInfo
	ordinal int
}

// visit explores idx and returns its visit info. The memo entry is written
// only when idx unwound as its own earliest equivalent: members of a cycle
// funnel their sets into the cycle's representative instead, and resolve to
// a memo hit the next time they are queried as roots.
func (w *walker) visit(idx registry.Index) *visitInfo {
	vi := &visitInfo{
		ordinal: w.ordinal,
		deps:    map[registry.Index]struct{}{idx: {}},
	}
	vi.earliest = vi
	w.ordinal++
	w.active[idx] = vi

	for _, callee := range w.a.edges[idx] {
		if callee == idx {
			continue
		}
		if finished := w.a.memo[callee]; finished != nil {
			for i := 0; i < w.a.reg.Size(); i++ {
				if finished.ContainsIndex(registry.Index(i)) {
					vi.deps[registry.Index(i)] = struct{}{}
				}
			}
			continue
		}
		if inCycle, ok := w.active[callee]; ok {
			if inCycle.earliest.ordinal < vi.earliest.ordinal {
				vi.earliest = inCycle.earliest
			}
			continue
		}

		child := w.visit(callee)
		for dep := range child.deps {
			vi.deps[dep] = struct{}{}
		}
		if child.earliest.ordinal < vi.earliest.ordinal {
			vi.earliest = child.earliest
		}
	}

	delete(w.active, idx)
	if vi.earliest == vi {
		w.a.memo[idx] = newClosure(w.a.reg, vi.deps)
	} else {
		for dep := range vi.deps {
			vi.earliest.deps[dep] = struct{}{}
		}
	}
	return vi
}

// TransitiveInjected returns the sorted union of injected input names the
// closure of name can ever read: declared injected params plus direct
// injected references.
func (a *Analyzer) TransitiveInjected(name string) ([]string, error) {
	closure, err := a.ClosureOf(name)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for _, tpl := range closure.Templates() {
		for _, param := range tpl.Params {
			if param.Injected {
				seen[param.Name] = struct{}{}
			}
		}
		model.WalkNodes(tpl.Body, func(n model.Node) {
			for _, root := range model.NodeExprs(n) {
				model.WalkExpr(root, func(e model.Expr) {
					if ref, ok := e.(model.VarRef); ok && ref.Injected {
						seen[ref.Name] = struct{}{}
					}
				})
			}
		})
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}
