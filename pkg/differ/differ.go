package differ

import (
	"fmt"
	"time"

	"github.com/vango-dev/viewdiff/pkg/mutation"
	"github.com/vango-dev/viewdiff/pkg/shadow"
	"github.com/vango-dev/viewdiff/pkg/tinymap"
)

// Calculate returns the mutations that turn the host view hierarchy of
// oldRoot into that of newRoot. Both roots must be generations of the same
// logical node.
func Calculate(oldRoot, newRoot shadow.Node, opts ...Option) mutation.List {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.assertions && !shadow.SameFamily(oldRoot, newRoot) {
		panic(fmt.Sprintf("differ: roots %v and %v are not of the same family", tagOf(oldRoot), tagOf(newRoot)))
	}

	start := time.Now()
	d := &differ{mode: o.mode, assertions: o.assertions, oldRoot: oldRoot, newRoot: newRoot}
	mutations := make(mutation.List, 0, 64)

	oldView := oldRoot.View()
	newView := newRoot.View()
	if !oldView.Equal(newView) {
		mutations = append(mutations, mutation.Update(shadow.View{}, oldView, newView, mutation.RootIndex))
	}

	d.calculate(&mutations, oldView, d.slice(oldRoot), d.slice(newRoot), false)

	if o.logger != nil {
		o.logger.Debug("calculated mutations",
			"root", oldView.Tag,
			"mode", o.mode.String(),
			"mutations", len(mutations),
			"creates", mutations.Count(mutation.TypeCreate),
			"deletes", mutations.Count(mutation.TypeDelete),
			"duration", time.Since(start),
		)
	}
	return mutations
}

// CalculateChildren diffs two child lists of parent directly and returns
// the level's merged mutations, including those of every subtree below it.
func CalculateChildren(parent shadow.View, oldChildren, newChildren []shadow.NodePair, opts ...Option) mutation.List {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	d := &differ{mode: o.mode, assertions: o.assertions}
	if d.assertions {
		checkSiblings(oldChildren)
		checkSiblings(newChildren)
	}

	var mutations mutation.List
	d.calculate(&mutations, parent, oldChildren, newChildren, false)
	return mutations
}

type differ struct {
	mode       Mode
	assertions bool

	// Roots of a Calculate call; nil for CalculateChildren, which then
	// never relocates views across levels.
	oldRoot, newRoot shadow.Node
	moves            *relocations
}

func (d *differ) slice(node shadow.Node) []shadow.NodePair {
	pairs := shadow.SliceChildren(node)
	if d.assertions {
		checkSiblings(pairs)
	}
	return pairs
}

// calculate appends the mutations of one level to dst. detached is set when
// parent itself is being deleted: its children are then deleted without
// being removed from it first.
func (d *differ) calculate(dst *mutation.List, parent shadow.View, oldPairs, newPairs []shadow.NodePair, detached bool) {
	if len(oldPairs) == 0 && len(newPairs) == 0 {
		return
	}
	if shadow.PairsEqual(oldPairs, newPairs) {
		return
	}

	var b mutation.Buckets
	prefix := d.updatePrefix(&b, parent, oldPairs, newPairs)

	switch d.mode {
	case ModeOptimizedMoves:
		d.optimizedMoves(&b, parent, oldPairs, newPairs, prefix, detached)
	default:
		d.classic(&b, parent, oldPairs, newPairs, prefix, detached)
	}

	b.MergeInto(dst)
}

// updatePrefix walks the common prefix of both lists while tags match,
// updating and recursing into each pair. It returns where the prefix ends.
func (d *differ) updatePrefix(b *mutation.Buckets, parent shadow.View, oldPairs, newPairs []shadow.NodePair) int {
	index := 0
	for ; index < len(oldPairs) && index < len(newPairs); index++ {
		oldPair := &oldPairs[index]
		newPair := &newPairs[index]

		if oldPair.View.Tag != newPair.View.Tag {
			break
		}
		if !oldPair.View.Equal(newPair.View) {
			b.Add(mutation.BucketUpdate, mutation.Update(parent, oldPair.View, newPair.View, index))
		}
		d.updateSubtree(b, newPair.View, oldPair, newPair)
	}
	return index
}

// updateSubtree diffs the children of a node that persists across
// generations. Subtrees left without children go to the destructive bucket.
func (d *differ) updateSubtree(b *mutation.Buckets, parent shadow.View, oldPair, newPair *shadow.NodePair) {
	if oldPair.Node == newPair.Node {
		return
	}
	oldChildren := d.slice(oldPair.Node)
	newChildren := d.slice(newPair.Node)

	bucket := mutation.BucketDownward
	if len(newChildren) == 0 {
		bucket = mutation.BucketDestructive
	}
	d.calculate(b.Target(bucket), parent, oldChildren, newChildren, false)
}

// deleteSubtree deletes a node that has no counterpart in the new list and
// tears down everything below it. A relocated view is only removed, even
// from a parent being deleted, and diffed against its new generation.
func (d *differ) deleteSubtree(b *mutation.Buckets, parent shadow.View, oldPair *shadow.NodePair, index int, detached bool) {
	if newPair, ok := d.relocated(oldPair.View.Tag); ok {
		b.Add(mutation.BucketRemove, mutation.Remove(parent, oldPair.View, index))
		d.updateMoved(b, parent, oldPair, newPair, index)
		return
	}
	if !detached {
		b.Add(mutation.BucketRemove, mutation.Remove(parent, oldPair.View, index))
	}
	b.Add(mutation.BucketDelete, mutation.Delete(oldPair.View))
	d.calculate(b.Target(mutation.BucketDestructive), oldPair.View, d.slice(oldPair.Node), nil, true)
}

// createSubtree creates a node that has no counterpart in the old list and
// builds everything below it. A relocated view already exists and was
// diffed where it left its old parent.
func (d *differ) createSubtree(b *mutation.Buckets, newPair *shadow.NodePair) {
	if _, ok := d.relocated(newPair.View.Tag); ok {
		return
	}
	b.Add(mutation.BucketCreate, mutation.Create(newPair.View))
	d.calculate(b.Target(mutation.BucketDownward), newPair.View, nil, d.slice(newPair.Node), false)
}

// updateMoved handles a node that was removed from its old position and
// reinserted elsewhere on the same level.
func (d *differ) updateMoved(b *mutation.Buckets, parent shadow.View, oldPair, newPair *shadow.NodePair, oldIndex int) {
	if oldPair.Equal(*newPair) {
		return
	}
	if !oldPair.View.Equal(newPair.View) {
		b.Add(mutation.BucketUpdate, mutation.Update(parent, oldPair.View, newPair.View, oldIndex))
	}
	d.updateSubtree(b, newPair.View, oldPair, newPair)
}

func (d *differ) classic(b *mutation.Buckets, parent shadow.View, oldPairs, newPairs []shadow.NodePair, prefix int, detached bool) {
	// Tags of new children inserted after the prefix. An entry erased by
	// the remove pass is a move and needs no Create.
	var inserted tinymap.Map[*shadow.NodePair]

	for index := prefix; index < len(newPairs); index++ {
		newPair := &newPairs[index]
		b.Add(mutation.BucketInsert, mutation.Insert(parent, newPair.View, index))
		inserted.Insert(newPair.View.Tag, newPair)
	}

	for index := prefix; index < len(oldPairs); index++ {
		oldPair := &oldPairs[index]

		newPair, found := inserted.Find(oldPair.View.Tag)
		if !found {
			d.deleteSubtree(b, parent, oldPair, index, detached)
			continue
		}

		// Reinserted views still have to leave their old slot.
		b.Add(mutation.BucketRemove, mutation.Remove(parent, oldPair.View, index))
		d.updateMoved(b, parent, oldPair, newPair, index)
		inserted.Erase(oldPair.View.Tag)
	}

	for index := prefix; index < len(newPairs); index++ {
		newPair := &newPairs[index]
		if !inserted.Contains(newPair.View.Tag) {
			continue
		}
		d.createSubtree(b, newPair)
	}
}

func (d *differ) optimizedMoves(b *mutation.Buckets, parent shadow.View, oldPairs, newPairs []shadow.NodePair, prefix int, detached bool) {
	switch {
	case prefix == len(newPairs):
		for index := prefix; index < len(oldPairs); index++ {
			d.deleteSubtree(b, parent, &oldPairs[index], index, detached)
		}
		return

	case prefix == len(oldPairs):
		for index := prefix; index < len(newPairs); index++ {
			newPair := &newPairs[index]
			b.Add(mutation.BucketInsert, mutation.Insert(parent, newPair.View, index))
			d.createSubtree(b, newPair)
		}
		return
	}

	// remaining holds new children not yet matched in place; inserted holds
	// new children already inserted that may still turn out to be moves.
	var remaining, inserted tinymap.Map[*shadow.NodePair]
	for index := prefix; index < len(newPairs); index++ {
		remaining.Insert(newPairs[index].View.Tag, &newPairs[index])
	}

	oldIndex, newIndex := prefix, prefix
	for oldIndex < len(oldPairs) || newIndex < len(newPairs) {
		haveOld := oldIndex < len(oldPairs)
		haveNew := newIndex < len(newPairs)

		if haveOld && haveNew {
			oldPair := &oldPairs[oldIndex]
			newPair := &newPairs[newIndex]
			if oldPair.View.Tag == newPair.View.Tag {
				if !oldPair.View.Equal(newPair.View) {
					b.Add(mutation.BucketUpdate, mutation.Update(parent, oldPair.View, newPair.View, oldIndex))
				}
				remaining.Erase(oldPair.View.Tag)
				d.updateSubtree(b, newPair.View, oldPair, newPair)
				oldIndex++
				newIndex++
				continue
			}
		}

		if haveOld {
			oldPair := &oldPairs[oldIndex]
			tag := oldPair.View.Tag

			if newPair, ok := inserted.Find(tag); ok {
				b.Add(mutation.BucketRemove, mutation.Remove(parent, oldPair.View, oldIndex))
				d.updateMoved(b, parent, oldPair, newPair, oldIndex)
				inserted.Erase(tag)
				oldIndex++
				continue
			}

			if !haveNew || !remaining.Contains(tag) {
				d.deleteSubtree(b, parent, oldPair, oldIndex, false)
				oldIndex++
				continue
			}
		}

		newPair := &newPairs[newIndex]
		b.Add(mutation.BucketInsert, mutation.Insert(parent, newPair.View, newIndex))
		inserted.Insert(newPair.View.Tag, newPair)
		newIndex++
	}

	for _, newPair := range inserted.All() {
		d.createSubtree(b, newPair)
	}
}

// relocated returns the new pair of a view whose host parent changed only
// because a node above it toggled layout-only. The index is built on first
// use.
func (d *differ) relocated(tag shadow.Tag) (*shadow.NodePair, bool) {
	if d.oldRoot == nil || d.newRoot == nil {
		return nil, false
	}
	if d.moves == nil {
		d.moves = newRelocations(d.oldRoot, d.newRoot)
	}
	return d.moves.find(tag)
}

func checkSiblings(pairs []shadow.NodePair) {
	seen := make(map[shadow.Tag]struct{}, len(pairs))
	for _, p := range pairs {
		if p.View.Tag == shadow.NoTag {
			panic(fmt.Sprintf("differ: sibling %s has invalid tag 0", p.View))
		}
		if _, dup := seen[p.View.Tag]; dup {
			panic(fmt.Sprintf("differ: duplicate sibling tag %d", p.View.Tag))
		}
		seen[p.View.Tag] = struct{}{}
	}
}

func tagOf(n shadow.Node) any {
	if n == nil {
		return "<nil>"
	}
	return n.View().Tag
}
