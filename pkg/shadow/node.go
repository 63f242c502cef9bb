package shadow

import "github.com/cespare/xxhash/v2"

// Traits are capability bits carried by a node.
type Traits uint8

const (
	// TraitLayoutOnly marks a node that takes part in layout but has no
	// host view. Its children are spliced into its parent when slicing.
	TraitLayoutOnly Traits = 1 << iota
)

// Has reports whether t contains every bit of flag.
func (t Traits) Has(flag Traits) bool {
	return t&flag == flag
}

// Node is one element of an immutable node tree generation. The tree is
// owned by its provider; the differ only reads it and never keeps a Node
// past the call that received it.
type Node interface {
	// View returns the node's snapshot, with its frame in the coordinate
	// space of its parent node.
	View() View

	// Children returns the direct children in document order.
	Children() []Node

	// Traits returns the node's capability bits.
	Traits() Traits

	// OrderIndex returns the z-order of the node among its host siblings.
	// Zero means document order.
	OrderIndex() int
}

// SameFamily reports whether two nodes are generations of the same logical
// node.
func SameFamily(a, b Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.View().Tag == b.View().Tag
}

// HandleForComponent returns the component handle derived from a component
// name.
func HandleForComponent(name string) ComponentHandle {
	return ComponentHandle(xxhash.Sum64String(name))
}

// Element is an immutable Node. Build it with NewElement and derive new
// generations with Clone.
type Element struct {
	view       View
	children   []Node
	traits     Traits
	orderIndex int
}

// Option configures an Element.
type Option func(*Element)

// NewElement creates an element with the given tag and component name.
// The component handle defaults to HandleForComponent(name).
func NewElement(tag Tag, component string, opts ...Option) *Element {
	e := &Element{
		view: View{
			Tag:             tag,
			ComponentName:   component,
			ComponentHandle: HandleForComponent(component),
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Clone returns a new generation of e with opts applied. Options that are
// not given keep e's values, including the children slice, so unchanged
// subtrees are shared.
func (e *Element) Clone(opts ...Option) *Element {
	next := *e
	for _, opt := range opts {
		opt(&next)
	}
	return &next
}

// View implements Node.
func (e *Element) View() View { return e.view }

// Children implements Node.
func (e *Element) Children() []Node { return e.children }

// Traits implements Node.
func (e *Element) Traits() Traits { return e.traits }

// OrderIndex implements Node.
func (e *Element) OrderIndex() int { return e.orderIndex }

// Tag returns the element's tag.
func (e *Element) Tag() Tag { return e.view.Tag }

// WithChildren replaces the element's children.
func WithChildren(children ...Node) Option {
	return func(e *Element) {
		e.children = children
	}
}

// WithFrame sets the element's frame.
func WithFrame(frame Rect) Option {
	return func(e *Element) {
		e.view.LayoutMetrics = LayoutMetrics{Frame: frame}
	}
}

// WithLayoutMetrics sets the element's layout metrics.
func WithLayoutMetrics(m LayoutMetrics) Option {
	return func(e *Element) {
		e.view.LayoutMetrics = m
	}
}

// WithProps sets the element's props bundle.
func WithProps(p *Props) Option {
	return func(e *Element) {
		e.view.Props = p
	}
}

// WithEventEmitter sets the element's event emitter.
func WithEventEmitter(em *EventEmitter) Option {
	return func(e *Element) {
		e.view.EventEmitter = em
	}
}

// WithState sets the element's state.
func WithState(s *State) Option {
	return func(e *Element) {
		e.view.State = s
	}
}

// WithLocalData sets the element's local data.
func WithLocalData(l *LocalData) Option {
	return func(e *Element) {
		e.view.LocalData = l
	}
}

// WithComponentHandle overrides the handle derived from the component name.
func WithComponentHandle(h ComponentHandle) Option {
	return func(e *Element) {
		e.view.ComponentHandle = h
	}
}

// WithTraits sets the element's traits.
func WithTraits(t Traits) Option {
	return func(e *Element) {
		e.traits = t
	}
}

// LayoutOnly marks the element as layout-only.
func LayoutOnly() Option {
	return func(e *Element) {
		e.traits |= TraitLayoutOnly
	}
}

// WithOrderIndex sets the element's z-order among its host siblings.
func WithOrderIndex(i int) Option {
	return func(e *Element) {
		e.orderIndex = i
	}
}
