// Package stub models a mounted host view hierarchy so mutation lists can
// be checked without a real platform.
//
// A Tree keeps a registry of every view by tag along with its parent link
// and ordered children. Apply replays mutations strictly and reports the
// first one that a real mounting layer would reject.
package stub

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/vango-dev/viewdiff/internal/errors"
	"github.com/vango-dev/viewdiff/pkg/mutation"
	"github.com/vango-dev/viewdiff/pkg/shadow"
)

// View is one mounted host view.
type View struct {
	Snapshot shadow.View
	Parent   shadow.Tag
	Children []shadow.Tag
}

// Attached reports whether the view currently has a parent.
func (v *View) Attached() bool {
	return v.Parent != shadow.NoTag
}

// Tree is a mounted view hierarchy rooted at a single view.
type Tree struct {
	root  shadow.Tag
	views map[shadow.Tag]*View
}

// New returns a tree holding only the root view.
func New(root shadow.View) *Tree {
	return &Tree{
		root:  root.Tag,
		views: map[shadow.Tag]*View{root.Tag: {Snapshot: root}},
	}
}

// Build mounts the host views of the node tree rooted at root.
func Build(root shadow.Node) *Tree {
	t := New(root.View())
	t.mount(root.View().Tag, root)
	return t
}

func (t *Tree) mount(parent shadow.Tag, node shadow.Node) {
	pv := t.views[parent]
	for _, pair := range shadow.SliceChildren(node) {
		tag := pair.View.Tag
		t.views[tag] = &View{Snapshot: pair.View, Parent: parent}
		pv.Children = append(pv.Children, tag)
		t.mount(tag, pair.Node)
	}
}

// Root returns the root tag.
func (t *Tree) Root() shadow.Tag {
	return t.root
}

// Get returns the view registered for tag.
func (t *Tree) Get(tag shadow.Tag) (*View, bool) {
	v, ok := t.views[tag]
	return v, ok
}

// Len returns the number of registered views, including detached ones.
func (t *Tree) Len() int {
	return len(t.views)
}

// Clone returns a deep copy of t.
func (t *Tree) Clone() *Tree {
	c := &Tree{root: t.root, views: make(map[shadow.Tag]*View, len(t.views))}
	for tag, v := range t.views {
		c.views[tag] = &View{
			Snapshot: v.Snapshot,
			Parent:   v.Parent,
			Children: slices.Clone(v.Children),
		}
	}
	return c
}

// Apply applies every mutation of l in order and stops at the first one
// that cannot be applied. The tree is left in the state reached so far.
func (t *Tree) Apply(l mutation.List) error {
	for i, m := range l {
		if err := t.apply(m); err != nil {
			return err.WithDetailf("mutation %d: %s", i, m)
		}
	}
	return nil
}

// ApplyMutation applies a single mutation.
func (t *Tree) ApplyMutation(m mutation.Mutation) error {
	if err := t.apply(m); err != nil {
		return err
	}
	return nil
}

func (t *Tree) apply(m mutation.Mutation) *errors.Error {
	switch m.Type {
	case mutation.TypeCreate:
		return t.create(m)
	case mutation.TypeDelete:
		return t.delete(m)
	case mutation.TypeInsert:
		return t.insert(m)
	case mutation.TypeRemove:
		return t.remove(m)
	case mutation.TypeUpdate:
		return t.update(m)
	}
	return errors.Newf(errors.CategoryMounting, "unknown mutation type %d", m.Type)
}

func (t *Tree) create(m mutation.Mutation) *errors.Error {
	tag := m.New.Tag
	if tag == t.root {
		return errors.New("E314")
	}
	if _, ok := t.views[tag]; ok {
		return errors.New("E300")
	}
	t.views[tag] = &View{Snapshot: m.New}
	return nil
}

func (t *Tree) delete(m mutation.Mutation) *errors.Error {
	tag := m.Old.Tag
	if tag == t.root {
		return errors.New("E314")
	}
	v, ok := t.views[tag]
	if !ok {
		return errors.New("E301")
	}
	if len(v.Children) > 0 {
		return errors.New("E302")
	}
	if v.Attached() {
		if p, ok := t.views[v.Parent]; ok {
			p.Children = slices.DeleteFunc(p.Children, func(c shadow.Tag) bool { return c == tag })
		}
	}
	delete(t.views, tag)
	return nil
}

func (t *Tree) insert(m mutation.Mutation) *errors.Error {
	tag := m.New.Tag
	if tag == t.root {
		return errors.New("E314")
	}
	p, ok := t.views[m.Parent.Tag]
	if !ok {
		return errors.New("E309")
	}
	v, ok := t.views[tag]
	if !ok {
		return errors.New("E303")
	}
	if v.Attached() {
		return errors.New("E304")
	}
	if !v.Snapshot.Equal(m.New) {
		return errors.New("E308")
	}
	if m.Index < 0 || m.Index > len(p.Children) {
		return errors.New("E305")
	}
	p.Children = slices.Insert(p.Children, m.Index, tag)
	v.Parent = m.Parent.Tag
	return nil
}

func (t *Tree) remove(m mutation.Mutation) *errors.Error {
	tag := m.Old.Tag
	if tag == t.root {
		return errors.New("E314")
	}
	p, ok := t.views[m.Parent.Tag]
	if !ok {
		return errors.New("E309")
	}
	if m.Index < 0 || m.Index >= len(p.Children) || p.Children[m.Index] != tag {
		return errors.New("E306")
	}
	p.Children = slices.Delete(p.Children, m.Index, m.Index+1)
	if v, ok := t.views[tag]; ok {
		v.Parent = shadow.NoTag
	}
	return nil
}

func (t *Tree) update(m mutation.Mutation) *errors.Error {
	v, ok := t.views[m.New.Tag]
	if !ok {
		return errors.New("E307")
	}
	if !v.Snapshot.Equal(m.Old) {
		return errors.New("E308")
	}
	v.Snapshot = m.New
	return nil
}

// Equal reports whether t and o hold the same views with the same links.
func (t *Tree) Equal(o *Tree) bool {
	return len(t.Diff(o)) == 0
}

// Diff lists the differences between t and o, ordered by tag.
func (t *Tree) Diff(o *Tree) []string {
	var out []string
	if t.root != o.root {
		out = append(out, fmt.Sprintf("root: %d != %d", t.root, o.root))
	}
	for _, tag := range unionTags(t.views, o.views) {
		a, inA := t.views[tag]
		b, inB := o.views[tag]
		switch {
		case !inB:
			out = append(out, fmt.Sprintf("tag %d: only in left", tag))
		case !inA:
			out = append(out, fmt.Sprintf("tag %d: only in right", tag))
		default:
			if !a.Snapshot.Equal(b.Snapshot) {
				out = append(out, fmt.Sprintf("tag %d: view %v != %v", tag, a.Snapshot.LayoutMetrics.Frame, b.Snapshot.LayoutMetrics.Frame))
			}
			if a.Parent != b.Parent {
				out = append(out, fmt.Sprintf("tag %d: parent %d != %d", tag, a.Parent, b.Parent))
			}
			if !slices.Equal(a.Children, b.Children) {
				out = append(out, fmt.Sprintf("tag %d: children %v != %v", tag, a.Children, b.Children))
			}
		}
	}
	return out
}

func unionTags(a, b map[shadow.Tag]*View) []shadow.Tag {
	tags := make([]shadow.Tag, 0, len(a))
	for tag := range a {
		tags = append(tags, tag)
	}
	for tag := range b {
		if _, ok := a[tag]; !ok {
			tags = append(tags, tag)
		}
	}
	slices.Sort(tags)
	return tags
}

// String renders the attached hierarchy, one view per line.
func (t *Tree) String() string {
	var b strings.Builder
	t.write(&b, t.root, 0)
	var detached []int
	for tag, v := range t.views {
		if tag != t.root && !v.Attached() {
			detached = append(detached, int(tag))
		}
	}
	if len(detached) > 0 {
		sort.Ints(detached)
		fmt.Fprintf(&b, "detached: %v\n", detached)
	}
	return b.String()
}

func (t *Tree) write(b *strings.Builder, tag shadow.Tag, depth int) {
	v, ok := t.views[tag]
	if !ok {
		return
	}
	fmt.Fprintf(b, "%s%s %s\n", strings.Repeat("  ", depth), v.Snapshot, v.Snapshot.LayoutMetrics.Frame)
	for _, c := range v.Children {
		t.write(b, c, depth+1)
	}
}
