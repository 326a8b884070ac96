package confignode

import (
	"fmt"
	"sort"
	"strconv"
)

// FromValue builds a tree from plain Go values: map[string]any, []any,
// string, bool, integer and float types, and nil. Map keys are sorted since Go
// maps have no order. Use Object to build a mapping with an explicit order.
func FromValue(v any) Node {
	switch val := v.(type) {
	case Node:
		return val
	case nil:
		return Null()
	case string:
		return Str(val)
	case bool:
		return &Scalar{Value: strconv.FormatBool(val), Tag: TagBool}
	case int:
		return &Scalar{Value: strconv.Itoa(val), Tag: TagInt}
	case int64:
		return &Scalar{Value: strconv.FormatInt(val, 10), Tag: TagInt}
	case float64:
		return &Scalar{Value: strconv.FormatFloat(val, 'g', -1, 64), Tag: TagFloat}
	case []any:
		seq := &Sequence{Items: make([]Node, 0, len(val))}
		for _, item := range val {
			seq.Items = append(seq.Items, FromValue(item))
		}
		return seq
	case []string:
		seq := &Sequence{Items: make([]Node, 0, len(val))}
		for _, item := range val {
			seq.Items = append(seq.Items, Str(item))
		}
		return seq
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := NewMapping()
		for _, k := range keys {
			m.Set(k, FromValue(val[k]))
		}
		return m
	default:
		return &Scalar{Value: fmt.Sprint(val), Tag: TagStr}
	}
}

// Object builds a mapping from alternating key/value arguments, keeping the
// argument order. Values go through FromValue.
func Object(kv ...any) *Mapping {
	m := NewMapping()
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		m.Set(key, FromValue(kv[i+1]))
	}
	return m
}

// List builds a sequence, converting each item with FromValue.
func List(items ...any) *Sequence {
	seq := &Sequence{Items: make([]Node, 0, len(items))}
	for _, item := range items {
		seq.Items = append(seq.Items, FromValue(item))
	}
	return seq
}
