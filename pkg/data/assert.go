package data

import (
	"fmt"

	"github.com/goliatone/go-tofu/pkg/model"
)

// TypeMismatchError reports a value bound to a parameter whose declared
// type rejects it. It surfaces either at bind time (ready values) or at
// first force (values that were still pending when bound).
type TypeMismatchError struct {
	Param    string
	Declared model.TypeSpec
	Value    Value
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf(
		"parameter type mismatch: attempt to bind value '%s' to parameter '%s' which has declared type '%s'",
		e.Value, e.Param, e.Declared,
	)
}

// Assert checks a resolved value against a parameter's declared type.
func Assert(v Value, param string, spec model.TypeSpec) error {
	if spec.Any() || accepts(v, spec) {
		return nil
	}
	return &TypeMismatchError{Param: param, Declared: spec, Value: v}
}

func accepts(v Value, spec model.TypeSpec) bool {
	if isNullish(v) {
		return spec.Nullable || spec.Name == model.TypeNull
	}
	switch spec.Name {
	case model.TypeNull:
		return false
	case model.TypeString:
		switch v.(type) {
		case Str, Content:
			return true
		}
	case model.TypeInt:
		_, ok := v.(Integer)
		return ok
	case model.TypeFloat:
		_, ok := v.(Float)
		return ok
	case model.TypeNumber:
		switch v.(type) {
		case Integer, Float:
			return true
		}
	case model.TypeBool:
		_, ok := v.(Boolean)
		return ok
	case model.TypeList:
		_, ok := v.(List)
		return ok
	case model.TypeMap, model.TypeRecord:
		_, ok := v.(Record)
		return ok
	case model.TypeHTML:
		c, ok := v.(Content)
		return ok && c.Kind == model.KindHTML
	case model.TypeURI:
		c, ok := v.(Content)
		return ok && c.Kind == model.KindURI
	}
	return false
}
