// Package differ computes the mutations that converge a host view
// hierarchy from one node tree generation to the next.
//
// Calculate is the entry point. It compares the two roots' own views,
// emitting a single root Update when they differ, then diffs the roots'
// sliced children level by level:
//
//  1. The common prefix of children with matching tags is updated in place
//     and recursed into.
//  2. Every remaining new child is provisionally inserted.
//  3. Every remaining old child is removed; children that were not
//     reinserted are deleted along with their subtree, children that were
//     reinserted are moves and are recursed into.
//  4. Inserted children that no old child claimed are created, along with
//     their subtree.
//
// The mutations of one level are collected into buckets and merged in the
// fixed order given by mutation.MergeOrder, which makes the result safe to
// apply sequentially.
//
// ModeOptimizedMoves replaces stages 2-4 with a two-pointer walk that keeps
// children that did not move in place, so displacing one child costs a
// single Remove and Insert instead of one pair per following sibling.
//
// Calculate is a pure function of its inputs. It can run concurrently on
// independent tree pairs and never retains the nodes it is given.
package differ
