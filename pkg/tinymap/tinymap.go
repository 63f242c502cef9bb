// Package tinymap provides a tiny, insertion-ordered map from node tags to
// values, tuned for the handful of siblings seen on one level of a diff.
//
// Lookups are linear scans over an inline array; there is no hashing and,
// for up to 16 entries, no allocation beyond the map itself. Erasing an
// entry writes shadow.NoTag into its slot instead of compacting; erased
// slots are reclaimed lazily once they make up half of the map.
package tinymap

import (
	"iter"
	"slices"

	"github.com/vango-dev/viewdiff/pkg/shadow"
)

// InlineSize is the number of entries stored without a separate allocation.
const InlineSize = 16

type entry[V any] struct {
	key   shadow.Tag
	value V
}

// Map is a tag-keyed map. The zero value is ready to use. A Map must not be
// copied after first use.
type Map[V any] struct {
	inline        [InlineSize]entry[V]
	entries       []entry[V]
	numErased     int
	erasedAtFront int
}

// Insert appends key with value. Inserting shadow.NoTag panics. Keys are
// not deduplicated; Find returns the first live match.
func (m *Map[V]) Insert(key shadow.Tag, value V) {
	if key == shadow.NoTag {
		panic("tinymap: insert of invalid tag 0")
	}
	if m.entries == nil {
		m.entries = m.inline[:0]
	}
	m.entries = append(m.entries, entry[V]{key: key, value: value})
}

// Find returns the value stored under key.
func (m *Map[V]) Find(key shadow.Tag) (V, bool) {
	if i := m.index(key); i >= 0 {
		return m.entries[i].value, true
	}
	var zero V
	return zero, false
}

// Contains reports whether key is present.
func (m *Map[V]) Contains(key shadow.Tag) bool {
	return m.index(key) >= 0
}

// Erase removes key and reports whether it was present.
func (m *Map[V]) Erase(key shadow.Tag) bool {
	i := m.index(key)
	if i < 0 {
		return false
	}

	var zero V
	m.entries[i] = entry[V]{key: shadow.NoTag, value: zero}
	m.numErased++
	if i == m.erasedAtFront {
		m.erasedAtFront++
	}
	return true
}

// Len returns the number of live entries.
func (m *Map[V]) Len() int {
	return len(m.entries) - m.numErased
}

// All iterates over live entries in insertion order.
func (m *Map[V]) All() iter.Seq2[shadow.Tag, V] {
	return func(yield func(shadow.Tag, V) bool) {
		m.clean(m.erasedAtFront != m.numErased)
		for i := m.erasedAtFront; i < len(m.entries); i++ {
			e := m.entries[i]
			if e.key == shadow.NoTag {
				continue
			}
			if !yield(e.key, e.value) {
				return
			}
		}
	}
}

func (m *Map[V]) index(key shadow.Tag) int {
	if key == shadow.NoTag {
		return -1
	}
	m.clean(false)
	for i := m.erasedAtFront; i < len(m.entries); i++ {
		if m.entries[i].key == key {
			return i
		}
	}
	return -1
}

// clean drops erased slots once they are at least half of the map, or
// unconditionally when force is set. Erased slots that are all at the
// front are skipped by index and never need compaction.
func (m *Map[V]) clean(force bool) {
	n := len(m.entries)
	if (m.numErased < n/2 && !force) || n == 0 || m.numErased == 0 || m.numErased == m.erasedAtFront {
		return
	}

	if m.numErased == n {
		clear(m.entries)
		m.entries = m.entries[:0]
	} else {
		m.entries = slices.DeleteFunc(m.entries, func(e entry[V]) bool {
			return e.key == shadow.NoTag
		})
	}
	m.numErased = 0
	m.erasedAtFront = 0
}
