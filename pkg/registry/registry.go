// Package registry builds the immutable template registry a render engine
// dispatches over: plain templates by unique name, overridable templates by
// (group, variant, origin) buckets. Registries are snapshots; after Build
// they are safe for unlimited concurrent readers.
package registry

import (
	"fmt"
	"sort"

	"github.com/goliatone/go-tofu/pkg/corpus"
	"github.com/goliatone/go-tofu/pkg/model"
)

// Index identifies a template inside the registry arena. Indices are
// stable for the registry's lifetime; the analyzer and engine use them as
// compact template IDs.
type Index int

// Registry holds every template of one corpus, indexed for identity lookup
// and group dispatch.
type Registry struct {
	templates []*model.Template
	byName    map[string]Index
	groups    map[string]*group
	origins   []string
}

// group collects the implementations registered under one dispatch name.
// defaults holds the no-origin implementation per variant; byOrigin holds
// the origin-specific implementations per variant.
type group struct {
	name     string
	members  []Index
	defaults map[Variant]Index
	byOrigin map[Variant]map[string]Index
}

func newGroup(name string) *group {
	return &group{
		name:     name,
		defaults: make(map[Variant]Index),
		byOrigin: make(map[Variant]map[string]Index),
	}
}

// Build constructs a registry from a decoded corpus document.
func Build(doc *corpus.Document) (*Registry, error) {
	if doc == nil {
		return nil, configErrorf("document is required")
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	return BuildFromTemplates(doc.Templates())
}

// BuildFromTemplates constructs a registry from templates in registration
// order. Structural conflicts are ConfigurationErrors naming both
// declaration sites: duplicate template names, duplicate default
// implementations for one (group, variant), duplicate (group, variant,
// origin) triples, and names claimed by both a plain template and a group.
//
// The triple check is the build-time half of the dispatch ambiguity
// guarantee: within one origin a selection key resolves to at most one
// implementation, so ambiguity at render time can only come from two
// different active origins (caught by CheckActiveOrigins).
func BuildFromTemplates(templates []model.Template) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]Index, len(templates)),
		groups: make(map[string]*group),
	}
	originSeen := make(map[string]struct{})

	for i := range templates {
		tpl := templates[i]
		idx := Index(len(r.templates))

		if prev, ok := r.byName[tpl.Name]; ok {
			return nil, configErrorf("template %q declared twice (%s and %s)",
				tpl.Name, r.templates[prev].Location, tpl.Location)
		}

		if tpl.Overridable() {
			if err := r.registerOverridable(&tpl, idx); err != nil {
				return nil, err
			}
			if tpl.Origin != "" {
				originSeen[tpl.Origin] = struct{}{}
			}
		} else if tpl.DelGroup != "" {
			return nil, configErrorf("template %q (%s) declares group %q but is not overridable",
				tpl.Name, tpl.Location, tpl.DelGroup)
		}

		r.templates = append(r.templates, &tpl)
		r.byName[tpl.Name] = idx
	}

	// Group names and plain template names share one dispatch namespace.
	for name := range r.groups {
		if idx, ok := r.byName[name]; ok && !r.templates[idx].Overridable() {
			return nil, configErrorf("name %q is declared both as a template (%s) and as an overridable group",
				name, r.templates[idx].Location)
		}
	}

	origins := make([]string, 0, len(originSeen))
	for o := range originSeen {
		origins = append(origins, o)
	}
	sort.Strings(origins)
	r.origins = origins
	return r, nil
}

func (r *Registry) registerOverridable(tpl *model.Template, idx Index) error {
	groupName := tpl.DelGroup
	if groupName == "" {
		return configErrorf("template %q (%s) has kind %s but no group",
			tpl.Name, tpl.Location, tpl.Kind)
	}
	if tpl.Kind == model.TemplateModifiable && tpl.Origin != "" {
		return configErrorf("modifiable template %q (%s) cannot declare origin %q",
			tpl.Name, tpl.Location, tpl.Origin)
	}

	g := r.groups[groupName]
	if g == nil {
		g = newGroup(groupName)
		r.groups[groupName] = g
	}

	variant := NoVariant()
	if tpl.VariantPresent {
		variant = VariantOf(tpl.Variant)
	}

	if tpl.Origin == "" {
		if prev, ok := g.defaults[variant]; ok {
			return configErrorf("group %q (%s) has two default implementations (%s and %s)",
				groupName, variant, r.templates[prev].Location, tpl.Location)
		}
		g.defaults[variant] = idx
	} else {
		byOrigin := g.byOrigin[variant]
		if byOrigin == nil {
			byOrigin = make(map[string]Index)
			g.byOrigin[variant] = byOrigin
		}
		if prev, ok := byOrigin[tpl.Origin]; ok {
			return configErrorf("group %q (%s) registered twice in origin %q (%s and %s)",
				groupName, variant, tpl.Origin, r.templates[prev].Location, tpl.Location)
		}
		byOrigin[tpl.Origin] = idx
	}

	g.members = append(g.members, idx)
	return nil
}

// Lookup finds a template by its unique name.
func (r *Registry) Lookup(name string) (*model.Template, bool) {
	idx, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return r.templates[idx], true
}

// IndexOf returns the arena index of a template name.
func (r *Registry) IndexOf(name string) (Index, bool) {
	idx, ok := r.byName[name]
	return idx, ok
}

// TemplateAt returns the template at an arena index previously obtained
// from this registry.
func (r *Registry) TemplateAt(idx Index) *model.Template {
	return r.templates[idx]
}

// Templates returns every template in registration order.
func (r *Registry) Templates() []*model.Template {
	out := make([]*model.Template, len(r.templates))
	copy(out, r.templates)
	return out
}

// Size is the number of registered templates.
func (r *Registry) Size() int { return len(r.templates) }

// Names returns every unique template name, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasTemplate reports whether a name is renderable: either a unique
// template name or an overridable group name.
func (r *Registry) HasTemplate(name string) bool {
	if _, ok := r.byName[name]; ok {
		return true
	}
	_, ok := r.groups[name]
	return ok
}

// IsGroup reports whether the name is an overridable group.
func (r *Registry) IsGroup(name string) bool {
	_, ok := r.groups[name]
	return ok
}

// Groups returns every group name, sorted.
func (r *Registry) Groups() []string {
	names := make([]string, 0, len(r.groups))
	for name := range r.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GroupMembers returns every implementation registered under a group, any
// variant or origin, in registration order. This is the conservative
// callee set dynamic dispatch can reach.
func (r *Registry) GroupMembers(name string) []*model.Template {
	g, ok := r.groups[name]
	if !ok {
		return nil
	}
	out := make([]*model.Template, len(g.members))
	for i, idx := range g.members {
		out[i] = r.templates[idx]
	}
	return out
}

// Origins returns every origin group seen during Build, sorted.
func (r *Registry) Origins() []string {
	out := make([]string, len(r.origins))
	copy(out, r.origins)
	return out
}
