package mutation

// Bucket groups the mutations produced for one level of the tree before
// they are merged.
type Bucket uint8

const (
	// BucketDestructive holds subtree mutations of nodes being torn down or
	// left childless.
	BucketDestructive Bucket = iota
	BucketUpdate
	BucketRemove
	BucketDelete
	BucketCreate
	// BucketDownward holds subtree mutations of nodes that keep or gain
	// children.
	BucketDownward
	BucketInsert

	numBuckets
)

// String returns the string representation of the Bucket.
func (b Bucket) String() string {
	switch b {
	case BucketDestructive:
		return "DestructiveDownward"
	case BucketUpdate:
		return "Update"
	case BucketRemove:
		return "Remove"
	case BucketDelete:
		return "Delete"
	case BucketCreate:
		return "Create"
	case BucketDownward:
		return "Downward"
	case BucketInsert:
		return "Insert"
	default:
		return "Unknown"
	}
}

// MergeOrder is the order in which buckets are concatenated.
//
// Teardown runs before anything that could reference the same tags.
// Removes run before deletes, highest index first, so earlier removals
// never shift the index of a later one. Creates run before inserts because
// an insert references an existing view.
var MergeOrder = [numBuckets]Bucket{
	BucketDestructive,
	BucketUpdate,
	BucketRemove,
	BucketDelete,
	BucketCreate,
	BucketDownward,
	BucketInsert,
}

// reversed lists buckets emitted back to front.
var reversed = [numBuckets]bool{
	BucketRemove: true,
}

// Buckets collects the mutations of one level.
type Buckets struct {
	lists [numBuckets]List
}

// Add appends m to bucket b.
func (bs *Buckets) Add(b Bucket, m Mutation) {
	bs.lists[b] = append(bs.lists[b], m)
}

// Target returns the list backing bucket b, for recursive calls that append
// directly into it.
func (bs *Buckets) Target(b Bucket) *List {
	return &bs.lists[b]
}

// Len returns the total number of collected mutations.
func (bs *Buckets) Len() int {
	n := 0
	for _, l := range bs.lists {
		n += len(l)
	}
	return n
}

// MergeInto appends all buckets to dst in MergeOrder.
func (bs *Buckets) MergeInto(dst *List) {
	if n := bs.Len(); cap(*dst)-len(*dst) < n {
		grown := make(List, len(*dst), len(*dst)+n)
		copy(grown, *dst)
		*dst = grown
	}
	for _, b := range MergeOrder {
		l := bs.lists[b]
		if reversed[b] {
			for i := len(l) - 1; i >= 0; i-- {
				*dst = append(*dst, l[i])
			}
			continue
		}
		*dst = append(*dst, l...)
	}
}
