package shadow

import (
	"maps"
	"reflect"
	"slices"
	"sort"
)

// Props is an immutable bundle of component properties. A bundle is shared
// between generations until a property changes; With returns a new bundle
// and leaves the receiver untouched.
type Props struct {
	values map[string]any
}

// NewProps returns a bundle holding a copy of values.
func NewProps(values map[string]any) *Props {
	return &Props{values: maps.Clone(values)}
}

// Get returns the value stored under key.
func (p *Props) Get(key string) (any, bool) {
	if p == nil {
		return nil, false
	}
	v, ok := p.values[key]
	return v, ok
}

// With returns a copy of p with key set to value.
func (p *Props) With(key string, value any) *Props {
	next := &Props{values: make(map[string]any, p.Len()+1)}
	if p != nil {
		maps.Copy(next.values, p.values)
	}
	next.values[key] = value
	return next
}

// Len returns the number of properties.
func (p *Props) Len() int {
	if p == nil {
		return 0
	}
	return len(p.values)
}

// Keys returns the property names in sorted order.
func (p *Props) Keys() []string {
	if p == nil {
		return nil
	}
	keys := make([]string, 0, len(p.values))
	for k := range p.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map returns a copy of the properties.
func (p *Props) Map() map[string]any {
	if p == nil {
		return nil
	}
	return maps.Clone(p.values)
}

// Equal reports whether two bundles hold the same properties. Identical
// pointers short-circuit; otherwise values are compared one by one.
func (p *Props) Equal(o *Props) bool {
	if p == o {
		return true
	}
	if p.Len() != o.Len() {
		return false
	}
	if p.Len() == 0 {
		return true
	}
	for k, pv := range p.values {
		ov, ok := o.values[k]
		if !ok || !valuesEqual(pv, ov) {
			return false
		}
	}
	return true
}

// EventEmitter is the handle the host uses to dispatch events back to the
// node. It is identified by its target tag and the events it listens to.
type EventEmitter struct {
	Target Tag
	Events []string
}

// Equal reports whether two emitters target the same node with the same
// events.
func (e *EventEmitter) Equal(o *EventEmitter) bool {
	if e == o {
		return true
	}
	if e == nil || o == nil {
		return false
	}
	return e.Target == o.Target && slices.Equal(e.Events, o.Events)
}

// State is the revisioned native state of a node.
type State struct {
	Revision int64
	Value    any
}

// Equal reports whether two states carry the same revision and value.
func (s *State) Equal(o *State) bool {
	if s == o {
		return true
	}
	if s == nil || o == nil {
		return false
	}
	return s.Revision == o.Revision && valuesEqual(s.Value, o.Value)
}

// LocalData is data computed during layout and passed to the host view.
type LocalData struct {
	Value any
}

// Equal reports whether two local data handles carry equal values.
func (l *LocalData) Equal(o *LocalData) bool {
	if l == o {
		return true
	}
	if l == nil || o == nil {
		return false
	}
	return valuesEqual(l.Value, o.Value)
}

// valuesEqual compares two opaque values.
func valuesEqual(a, b any) bool {
	// Fast path for common types
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case int:
		bv, ok := b.(int)
		return ok && av == bv
	case int64:
		bv, ok := b.(int64)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case nil:
		return b == nil
	}
	// Fallback to reflect for complex types
	return reflect.DeepEqual(a, b)
}
