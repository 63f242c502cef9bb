package differ

import "github.com/vango-dev/viewdiff/pkg/shadow"

// placement is where a tag sits in one generation.
type placement struct {
	parent shadow.Tag      // nearest ancestor node, layout-only or not
	host   bool            // the node is sliced into a host parent's list
	pair   shadow.NodePair // the pair that list carries, if host
}

// relocations indexes both generations by tag. A view is relocated when
// it is a host view in both, every node above it kept its tag and position
// in the node tree, and yet its host parent changed: some node between the
// two host parents became layout-only or stopped being so.
//
// Such a view leaves its old host parent from inside the teardown or the
// remove bucket of the deepest level both generations share, and enters
// its new one from inside the create or insert bucket of that same level,
// so a Remove from the old parent always precedes the Insert into the new
// one and the view needs neither Delete nor Create.
type relocations struct {
	root     shadow.Tag
	old, new map[shadow.Tag]*placement
	anchor   map[shadow.Tag]bool
}

func newRelocations(oldRoot, newRoot shadow.Node) *relocations {
	r := &relocations{
		root:   oldRoot.View().Tag,
		old:    make(map[shadow.Tag]*placement),
		new:    make(map[shadow.Tag]*placement),
		anchor: make(map[shadow.Tag]bool),
	}
	indexParents(r.old, oldRoot)
	indexHosts(r.old, oldRoot)
	indexParents(r.new, newRoot)
	indexHosts(r.new, newRoot)
	return r
}

func indexParents(dst map[shadow.Tag]*placement, node shadow.Node) {
	parent := node.View().Tag
	for _, child := range node.Children() {
		dst[child.View().Tag] = &placement{parent: parent}
		indexParents(dst, child)
	}
}

func indexHosts(dst map[shadow.Tag]*placement, node shadow.Node) {
	for _, pair := range shadow.SliceChildren(node) {
		if p, ok := dst[pair.View.Tag]; ok {
			p.host = true
			p.pair = pair
		}
		indexHosts(dst, pair.Node)
	}
}

// find returns the new pair of a relocated view.
func (r *relocations) find(tag shadow.Tag) (*shadow.NodePair, bool) {
	o, ok := r.old[tag]
	if !ok || !o.host {
		return nil, false
	}
	n, ok := r.new[tag]
	if !ok || !n.host {
		return nil, false
	}
	if !r.anchored(tag) {
		return nil, false
	}
	return &n.pair, true
}

// anchored reports whether tag hangs below the same chain of ancestor tags
// in both generations.
func (r *relocations) anchored(tag shadow.Tag) bool {
	if tag == r.root {
		return true
	}
	if v, ok := r.anchor[tag]; ok {
		return v
	}
	o, inOld := r.old[tag]
	n, inNew := r.new[tag]
	v := inOld && inNew && o.parent == n.parent && r.anchored(o.parent)
	r.anchor[tag] = v
	return v
}
