// Package shadow provides the node model consumed by the differ.
//
// A node tree is one immutable generation of the UI description. Each node
// exposes a View, the value-typed projection of everything a host view layer
// can observe (tag, component, props, event emitter, layout, state). Nodes
// are never mutated; a new generation is produced by cloning the nodes on
// the path to a change and sharing every untouched subtree.
//
// # Core Types
//
// Node is the read-only interface the differ walks. Element is the in-repo
// implementation built with functional options:
//
//	root := shadow.NewElement(1, "RootView",
//	    shadow.WithFrame(shadow.Rect{Size: shadow.Size{Width: 100, Height: 100}}),
//	    shadow.WithChildren(
//	        shadow.NewElement(2, "View", shadow.LayoutOnly(),
//	            shadow.WithChildren(shadow.NewElement(3, "Text")),
//	        ),
//	    ),
//	)
//
// # Slicing
//
// SliceChildren flattens a node's children into the list of NodePairs that
// have host views. Layout-only nodes are spliced into their parent and their
// frame origin is added to every descendant that gets emitted in their place.
package shadow
