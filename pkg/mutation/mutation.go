// Package mutation defines the primitive instructions a mounting layer
// applies, in order, to converge its host view hierarchy.
package mutation

import (
	"fmt"
	"strings"

	"github.com/vango-dev/viewdiff/pkg/shadow"
)

// Type is the kind of mutation.
type Type uint8

const (
	TypeCreate Type = 0x01 // Create a host view
	TypeDelete Type = 0x02 // Destroy a host view
	TypeInsert Type = 0x04 // Insert a view into a parent
	TypeRemove Type = 0x08 // Remove a view from a parent
	TypeUpdate Type = 0x10 // Update a view's properties
)

// String returns the string representation of the Type.
func (t Type) String() string {
	switch t {
	case TypeCreate:
		return "Create"
	case TypeDelete:
		return "Delete"
	case TypeInsert:
		return "Insert"
	case TypeRemove:
		return "Remove"
	case TypeUpdate:
		return "Update"
	default:
		return "Unknown"
	}
}

// RootIndex is the index of an Update that targets the root, which has no
// slot in a parent.
const RootIndex = -1

// Mutation is a single instruction for the mounting layer.
//
// Index is the position in the parent's host-visible child list at the time
// the mutation is applied. Create and Delete carry no parent or index.
type Mutation struct {
	Type   Type
	Parent shadow.View // Insert, Remove, Update
	Old    shadow.View // Delete, Remove, Update
	New    shadow.View // Create, Insert, Update
	Index  int         // Insert, Remove, Update
}

// Create returns a Create mutation.
func Create(view shadow.View) Mutation {
	return Mutation{Type: TypeCreate, New: view, Index: -1}
}

// Delete returns a Delete mutation.
func Delete(view shadow.View) Mutation {
	return Mutation{Type: TypeDelete, Old: view, Index: -1}
}

// Insert returns an Insert mutation.
func Insert(parent, child shadow.View, index int) Mutation {
	return Mutation{Type: TypeInsert, Parent: parent, New: child, Index: index}
}

// Remove returns a Remove mutation.
func Remove(parent, child shadow.View, index int) Mutation {
	return Mutation{Type: TypeRemove, Parent: parent, Old: child, Index: index}
}

// Update returns an Update mutation.
func Update(parent, oldChild, newChild shadow.View, index int) Mutation {
	return Mutation{Type: TypeUpdate, Parent: parent, Old: oldChild, New: newChild, Index: index}
}

// Tag returns the tag of the view the mutation is about.
func (m Mutation) Tag() shadow.Tag {
	switch m.Type {
	case TypeDelete, TypeRemove:
		return m.Old.Tag
	default:
		return m.New.Tag
	}
}

// IsRoot reports whether m updates the root view.
func (m Mutation) IsRoot() bool {
	return m.Type == TypeUpdate && m.Index == RootIndex
}

// String returns a compact description such as "Insert(parent=1, tag=2, index=0)".
func (m Mutation) String() string {
	switch m.Type {
	case TypeCreate, TypeDelete:
		return fmt.Sprintf("%s(tag=%d)", m.Type, m.Tag())
	case TypeUpdate:
		if m.IsRoot() {
			return fmt.Sprintf("Update(root, tag=%d)", m.Tag())
		}
		fallthrough
	default:
		return fmt.Sprintf("%s(parent=%d, tag=%d, index=%d)", m.Type, m.Parent.Tag, m.Tag(), m.Index)
	}
}

// List is an ordered list of mutations. It must be applied in order.
type List []Mutation

// Count returns the number of mutations of type t.
func (l List) Count(t Type) int {
	n := 0
	for _, m := range l {
		if m.Type == t {
			n++
		}
	}
	return n
}

// ForTag returns the mutations about tag, in list order.
func (l List) ForTag(tag shadow.Tag) List {
	var out List
	for _, m := range l {
		if m.Tag() == tag {
			out = append(out, m)
		}
	}
	return out
}

// Strings renders every mutation with Mutation.String.
func (l List) Strings() []string {
	out := make([]string, len(l))
	for i, m := range l {
		out[i] = m.String()
	}
	return out
}

// String renders the list one mutation per line.
func (l List) String() string {
	return strings.Join(l.Strings(), "\n")
}
