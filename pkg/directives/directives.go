// Package directives implements print directives: the value-to-value
// transforms a print tag applies left to right before its result is
// written. The engine evaluates the directive arguments and hands the
// chain's running value to each directive in turn; whatever the last one
// returns is what gets written.
//
// Directives live in a Registry so hosts can add their own next to the
// builtin set.
package directives

import (
	"fmt"
	"sort"
	"sync"

	"github.com/goliatone/go-tofu/pkg/data"
)

// Directive transforms a print value. Apply receives the value produced by
// the directives applied so far (or the print expression itself) plus the
// directive's evaluated arguments, and returns the replacement value.
type Directive interface {
	Name() string
	Apply(value data.Value, args []data.Value) (data.Value, error)
}

// Func adapts a plain function to the Directive interface.
func Func(name string, apply func(data.Value, []data.Value) (data.Value, error)) Directive {
	return funcDirective{name: name, apply: apply}
}

type funcDirective struct {
	name  string
	apply func(data.Value, []data.Value) (data.Value, error)
}

func (d funcDirective) Name() string { return d.name }

func (d funcDirective) Apply(value data.Value, args []data.Value) (data.Value, error) {
	return d.apply(value, args)
}

// Registry stores directives by name, providing discovery and duplication
// safeguards. An engine holds one registry for the lifetime of its corpus.
type Registry struct {
	mu         sync.RWMutex
	directives map[string]Directive
}

// NewRegistry creates an empty registry instance.
func NewRegistry() *Registry {
	return &Registry{
		directives: make(map[string]Directive),
	}
}

// Register adds a directive by its Name(). Duplicate names return an error.
func (r *Registry) Register(d Directive) error {
	if d == nil {
		return fmt.Errorf("directives: directive is required")
	}
	name := d.Name()
	if name == "" {
		return fmt.Errorf("directives: directive name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.directives[name]; exists {
		return fmt.Errorf("directives: directive %q already registered", name)
	}

	r.directives[name] = d
	return nil
}

// MustRegister panics on registration failure. Useful for init-time wiring.
func (r *Registry) MustRegister(d Directive) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// Get retrieves a directive by name.
func (r *Registry) Get(name string) (Directive, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.directives[name]
	if !ok {
		return nil, fmt.Errorf("directives: directive %q not found", name)
	}
	return d, nil
}

// MustGet panics if the directive is missing.
func (r *Registry) MustGet(name string) Directive {
	d, err := r.Get(name)
	if err != nil {
		panic(err)
	}
	return d
}

// List returns a sorted list of directive names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.directives))
	for name := range r.directives {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a directive is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.directives[name]
	return ok
}
