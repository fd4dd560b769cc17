package registry

import "fmt"

// Variant is a dispatch key refinement for overridable templates. An
// absent variant and a present empty string are different keys: "" is a
// legitimate registration variant, so presence is tracked explicitly
// instead of being conflated with the zero string.
type Variant struct {
	value   string
	present bool
}

// NoVariant is the absent variant.
func NoVariant() Variant { return Variant{} }

// VariantOf is a present variant, including the present empty string.
func VariantOf(value string) Variant { return Variant{value: value, present: true} }

// Present reports whether a variant was supplied at all.
func (v Variant) Present() bool { return v.present }

// Value returns the variant string; only meaningful when present.
func (v Variant) Value() string { return v.value }

// String renders the variant for messages and logs.
func (v Variant) String() string {
	if !v.present {
		return "<no variant>"
	}
	return fmt.Sprintf("%q", v.value)
}

// ActiveOrigins decides which origin groups are active for one render.
// A nil predicate means no origins are active. Callers with a fixed set
// can use OriginSet.
type ActiveOrigins func(origin string) bool

// OriginSet builds an ActiveOrigins predicate from a fixed list of origin
// names.
func OriginSet(names ...string) ActiveOrigins {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return func(origin string) bool {
		_, ok := set[origin]
		return ok
	}
}
