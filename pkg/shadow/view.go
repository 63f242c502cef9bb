package shadow

import "fmt"

// Tag is the stable identity of a logical node across generations.
type Tag int32

// NoTag is never a valid node tag.
const NoTag Tag = 0

// ComponentHandle identifies a component type. Two views with different
// handles are never equal.
type ComponentHandle uint64

// Point is a position in the parent's coordinate space.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Add returns p translated by o.
func (p Point) Add(o Point) Point {
	return Point{X: p.X + o.X, Y: p.Y + o.Y}
}

// Size is a width and height.
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Rect is an origin and a size.
type Rect struct {
	Origin Point `json:"origin" yaml:"origin"`
	Size   Size  `json:"size" yaml:"size"`
}

// String returns the rect as "(x,y,w,h)".
func (r Rect) String() string {
	return fmt.Sprintf("(%g,%g,%g,%g)", r.Origin.X, r.Origin.Y, r.Size.Width, r.Size.Height)
}

// LayoutMetrics is the computed geometry of a node.
type LayoutMetrics struct {
	Frame Rect
}

// EmptyLayoutMetrics is the geometry of a node that was never laid out.
var EmptyLayoutMetrics = LayoutMetrics{}

// IsEmpty reports whether the metrics carry no layout.
func (m LayoutMetrics) IsEmpty() bool {
	return m == EmptyLayoutMetrics
}

// View is the snapshot of a node that the host view layer can observe.
// It is a self-contained value: it does not reference the node it was
// taken from.
type View struct {
	Tag             Tag
	ComponentName   string
	ComponentHandle ComponentHandle
	Props           *Props
	EventEmitter    *EventEmitter
	LayoutMetrics   LayoutMetrics
	LocalData       *LocalData
	State           *State
}

// Equal reports whether two views are indistinguishable to the host.
// The component name is descriptive only; the handle is compared instead.
func (v View) Equal(o View) bool {
	return v.Tag == o.Tag &&
		v.ComponentHandle == o.ComponentHandle &&
		v.LayoutMetrics == o.LayoutMetrics &&
		v.Props.Equal(o.Props) &&
		v.EventEmitter.Equal(o.EventEmitter) &&
		v.LocalData.Equal(o.LocalData) &&
		v.State.Equal(o.State)
}

// IsZero reports whether v is the zero View, used as the parent of the root.
func (v View) IsZero() bool {
	return v.Tag == NoTag && v.ComponentHandle == 0 && v.Props == nil &&
		v.EventEmitter == nil && v.LocalData == nil && v.State == nil &&
		v.LayoutMetrics.IsEmpty()
}

// String returns a short description such as "View#3".
func (v View) String() string {
	name := v.ComponentName
	if name == "" {
		name = "View"
	}
	return fmt.Sprintf("%s#%d", name, v.Tag)
}
