package registry

import (
	"sort"

	"github.com/goliatone/go-tofu/pkg/model"
)

// Select resolves one dynamic dispatch. Priority:
//
//  1. requested variant, implementation from an active origin
//  2. requested variant, default (no-origin) implementation
//  3. no variant, implementation from an active origin
//  4. no variant, default implementation
//
// A variant match always beats origin activation; within equal variant
// specificity an active origin beats the default. A variant that matches
// nothing falls through to the no-variant tiers, which is also how the
// present empty variant unifies with absent at selection time. An unknown
// group is a miss, not an error.
//
// The error return fires only on ambiguity: two active origins registering
// the same selection key. Renders that called CheckActiveOrigins up front
// never see it.
func (r *Registry) Select(group string, variant Variant, active ActiveOrigins) (*model.Template, bool, error) {
	g, ok := r.groups[group]
	if !ok {
		return nil, false, nil
	}
	idx, ok, err := g.resolve(variant, active)
	if err != nil || !ok {
		return nil, false, err
	}
	return r.templates[idx], true, nil
}

func (g *group) resolve(variant Variant, active ActiveOrigins) (Index, bool, error) {
	if variant.Present() {
		if idx, ok, err := g.fromActiveOrigin(variant, active); ok || err != nil {
			return idx, ok, err
		}
		if idx, ok := g.defaults[variant]; ok {
			return idx, true, nil
		}
	}
	if idx, ok, err := g.fromActiveOrigin(NoVariant(), active); ok || err != nil {
		return idx, ok, err
	}
	if idx, ok := g.defaults[NoVariant()]; ok {
		return idx, true, nil
	}
	return 0, false, nil
}

func (g *group) fromActiveOrigin(variant Variant, active ActiveOrigins) (Index, bool, error) {
	candidates := g.byOrigin[variant]
	if len(candidates) == 0 || active == nil {
		return 0, false, nil
	}

	var hits []string
	for origin := range candidates {
		if active(origin) {
			hits = append(hits, origin)
		}
	}
	switch len(hits) {
	case 0:
		return 0, false, nil
	case 1:
		return candidates[hits[0]], true, nil
	}
	sort.Strings(hits)
	return 0, false, configErrorf("group %q (%s) has two active implementations, in origins %q and %q",
		g.name, variant, hits[0], hits[1])
}

// CheckActiveOrigins validates a render's active-origin set against every
// group bucket before any rendering happens: if two active origins
// register the same (group, variant) key, dispatch would be ambiguous and
// the render must not start. Call it once per render entry.
func (r *Registry) CheckActiveOrigins(active ActiveOrigins) error {
	if active == nil {
		return nil
	}

	groupNames := make([]string, 0, len(r.groups))
	for name := range r.groups {
		groupNames = append(groupNames, name)
	}
	sort.Strings(groupNames)

	for _, name := range groupNames {
		g := r.groups[name]
		for _, variant := range sortedVariants(g.byOrigin) {
			if _, _, err := g.fromActiveOrigin(variant, active); err != nil {
				return err
			}
		}
	}
	return nil
}

func sortedVariants(buckets map[Variant]map[string]Index) []Variant {
	out := make([]Variant, 0, len(buckets))
	for v := range buckets {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].present != out[j].present {
			return !out[i].present
		}
		return out[i].value < out[j].value
	})
	return out
}
