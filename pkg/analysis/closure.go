package analysis

import (
	"sort"

	"github.com/goliatone/go-tofu/pkg/model"
	"github.com/goliatone/go-tofu/pkg/registry"
)

// Closure is the finished transitive-callee set of one or more root
// templates, themselves included. It is a bitset over the registry arena:
// cheap to copy out of the memo table and safe to share between callers.
type Closure struct {
	reg  *registry.Registry
	bits []uint64
	size int
}

func newClosure(reg *registry.Registry, members map[registry.Index]struct{}) *Closure {
	c := &Closure{
		reg:  reg,
		bits: make([]uint64, (reg.Size()+63)/64),
	}
	for idx := range members {
		c.set(idx)
	}
	return c
}

func (c *Closure) set(idx registry.Index) {
	word, bit := int(idx)/64, uint(idx)%64
	if c.bits[word]&(1<<bit) == 0 {
		c.bits[word] |= 1 << bit
		c.size++
	}
}

// ContainsIndex reports membership by arena index.
func (c *Closure) ContainsIndex(idx registry.Index) bool {
	if idx < 0 || int(idx) >= c.reg.Size() {
		return false
	}
	return c.bits[int(idx)/64]&(1<<(uint(idx)%64)) != 0
}

// Contains reports membership by unique template name.
func (c *Closure) Contains(name string) bool {
	idx, ok := c.reg.IndexOf(name)
	return ok && c.ContainsIndex(idx)
}

// Size is the number of templates in the closure.
func (c *Closure) Size() int { return c.size }

// Templates returns the members in arena (registration) order.
func (c *Closure) Templates() []*model.Template {
	out := make([]*model.Template, 0, c.size)
	for i := 0; i < c.reg.Size(); i++ {
		if c.ContainsIndex(registry.Index(i)) {
			out = append(out, c.reg.TemplateAt(registry.Index(i)))
		}
	}
	return out
}

// Names returns the members' unique names, sorted.
func (c *Closure) Names() []string {
	names := make([]string, 0, c.size)
	for _, tpl := range c.Templates() {
		names = append(names, tpl.Name)
	}
	sort.Strings(names)
	return names
}

// union folds other into a fresh closure.
func (c *Closure) union(other *Closure) *Closure {
	out := &Closure{reg: c.reg, bits: make([]uint64, len(c.bits))}
	copy(out.bits, c.bits)
	out.size = c.size
	for i := 0; i < other.reg.Size(); i++ {
		idx := registry.Index(i)
		if other.ContainsIndex(idx) {
			out.set(idx)
		}
	}
	return out
}
