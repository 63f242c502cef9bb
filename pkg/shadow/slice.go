package shadow

import (
	"cmp"
	"slices"
)

// NodePair couples a node's View with the node it was taken from.
//
// Node is a borrowed reference: it is only used to slice the node's own
// children while one diff call runs and must not be retained afterwards.
// Node implementations are compared by identity, so they must be
// comparable (in practice, pointers).
type NodePair struct {
	View       View
	Node       Node
	OrderIndex int
}

// Equal reports whether both pairs carry equal views taken from the same
// node.
func (p NodePair) Equal(o NodePair) bool {
	return p.Node == o.Node && p.View.Equal(o.View)
}

// PairsEqual reports whether two child lists are pairwise equal.
func PairsEqual(a, b []NodePair) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// SliceChildren returns the host-visible children of node in document
// order. Layout-only children are not returned; their own children are
// spliced in their place with the layout-only node's origin added to
// their frames. When any pair carries a non-zero order index the result is
// stably sorted by it.
func SliceChildren(node Node) []NodePair {
	if node == nil {
		return nil
	}
	pairs := sliceRecursively(nil, Point{}, node)
	reorderIfNeeded(pairs)
	return pairs
}

func sliceRecursively(pairs []NodePair, offset Point, node Node) []NodePair {
	for _, child := range node.Children() {
		view := child.View()
		origin := view.LayoutMetrics.Frame.Origin
		if !view.LayoutMetrics.IsEmpty() {
			view.LayoutMetrics.Frame.Origin = origin.Add(offset)
		}

		if child.Traits().Has(TraitLayoutOnly) {
			pairs = sliceRecursively(pairs, offset.Add(origin), child)
			continue
		}

		pairs = append(pairs, NodePair{
			View:       view,
			Node:       child,
			OrderIndex: child.OrderIndex(),
		})
	}
	return pairs
}

func reorderIfNeeded(pairs []NodePair) {
	if len(pairs) < 2 {
		return
	}
	needed := slices.ContainsFunc(pairs, func(p NodePair) bool {
		return p.OrderIndex != 0
	})
	if !needed {
		return
	}
	slices.SortStableFunc(pairs, func(a, b NodePair) int {
		return cmp.Compare(a.OrderIndex, b.OrderIndex)
	})
}
