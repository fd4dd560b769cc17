package data

import "fmt"

// New converts a plain Go value into a runtime value. Supported inputs:
// nil, bool, the integer and float families, string, []any,
// map[string]any, plus anything already implementing Value. Collections
// convert recursively; map and slice members implementing Provider are
// kept as-is so hosts can seed pending fields.
func New(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return x, nil
	case bool:
		return Boolean(x), nil
	case int:
		return Integer(x), nil
	case int8:
		return Integer(x), nil
	case int16:
		return Integer(x), nil
	case int32:
		return Integer(x), nil
	case int64:
		return Integer(x), nil
	case uint:
		return Integer(x), nil
	case uint8:
		return Integer(x), nil
	case uint16:
		return Integer(x), nil
	case uint32:
		return Integer(x), nil
	case uint64:
		return Integer(x), nil
	case float32:
		return Float(x), nil
	case float64:
		return Float(x), nil
	case string:
		return Str(x), nil
	case []any:
		list := make(List, len(x))
		for i, item := range x {
			p, err := NewProvider(item)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			list[i] = p
		}
		return list, nil
	case map[string]any:
		return NewRecord(x)
	}
	return nil, fmt.Errorf("data: cannot convert value of type %T", v)
}

// MustNew is New for values known to convert; it panics otherwise.
func MustNew(v any) Value {
	val, err := New(v)
	if err != nil {
		panic(err)
	}
	return val
}

// NewProvider converts like New but passes providers through untouched, so
// hosts can mix ready Go values and pending async values in one record.
func NewProvider(v any) (Provider, error) {
	if p, ok := v.(Provider); ok {
		return p, nil
	}
	val, err := New(v)
	if err != nil {
		return nil, err
	}
	return Ready(val), nil
}

// NewRecord converts a string-keyed Go map into a record.
func NewRecord(m map[string]any) (Record, error) {
	rec := make(Record, len(m))
	for k, v := range m {
		p, err := NewProvider(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		rec[k] = p
	}
	return rec, nil
}
