package interval

import "time"

// Handle identifies one stored range; it is returned by Insert and consumed
// by Delete.
type Handle struct {
	r   Range
	seq uint64
}

// Range returns the range the handle was inserted with.
func (h Handle) Range() Range {
	return h.r
}

// Entry is one stored range with its value.
type Entry[V any] struct {
	Range Range
	Value V
}

type node[V any] struct {
	r      Range
	seq    uint64
	value  V
	maxEnd time.Time // furthest reach of any range in this subtree
	height int
	left   *node[V]
	right  *node[V]
}

// Tree is an AVL tree of ranges ordered by (start, end, insertion order) and
// augmented with the maximum end of each subtree.
//
// Invariants:
//   - |height(left) - height(right)| <= 1 at every node
//   - maxEnd(n) = max(reach(n), maxEnd(left), maxEnd(right))
//   - in-order traversal yields ranges sorted by start
//
// Tree is not safe for concurrent use.
type Tree[V any] struct {
	root *node[V]
	seq  uint64
	size int
}

// NewTree returns an empty tree.
func NewTree[V any]() *Tree[V] {
	return &Tree[V]{}
}

// Len returns the number of stored ranges.
func (t *Tree[V]) Len() int {
	return t.size
}

// Clear drops every stored range.
func (t *Tree[V]) Clear() {
	t.root = nil
	t.size = 0
}

// Insert stores v under r. Duplicate ranges are allowed.
func (t *Tree[V]) Insert(r Range, v V) Handle {
	t.seq++
	n := &node[V]{r: r, seq: t.seq, value: v, height: 1, maxEnd: reach(r)}
	t.root = insertNode(t.root, n)
	t.size++
	return Handle{r: r, seq: n.seq}
}

// Delete removes the range identified by h. It reports whether it was found.
func (t *Tree[V]) Delete(h Handle) bool {
	var ok bool
	t.root, ok = deleteNode(t.root, h.r, h.seq)
	if ok {
		t.size--
	}
	return ok
}

// Query calls fn, in start order, for every stored range overlapping q until
// fn returns false. An empty q matches nothing.
func (t *Tree[V]) Query(q Range, fn func(Range, V) bool) {
	if q.IsPoint() {
		return
	}
	visit(t.root, q, fn)
}

// Collect returns every entry overlapping q.
func (t *Tree[V]) Collect(q Range) []Entry[V] {
	var out []Entry[V]
	t.Query(q, func(r Range, v V) bool {
		out = append(out, Entry[V]{Range: r, Value: v})
		return true
	})
	return out
}

// Ascend calls fn for every stored range in start order until fn returns false.
func (t *Tree[V]) Ascend(fn func(Range, V) bool) {
	ascend(t.root, fn)
}

func visit[V any](n *node[V], q Range, fn func(Range, V) bool) bool {
	if n == nil || n.maxEnd.Before(q.Start) {
		return true
	}
	if !visit(n.left, q, fn) {
		return false
	}
	// Everything from here rightwards starts at or after n.
	if !n.r.Start.Before(q.End) {
		return true
	}
	if n.r.Overlaps(q) && !fn(n.r, n.value) {
		return false
	}
	return visit(n.right, q, fn)
}

func ascend[V any](n *node[V], fn func(Range, V) bool) bool {
	if n == nil {
		return true
	}
	return ascend(n.left, fn) && fn(n.r, n.value) && ascend(n.right, fn)
}

func reach(r Range) time.Time {
	if r.IsPoint() {
		return r.Start
	}
	return r.End
}

func compareKey(r Range, seq uint64, n Range, nseq uint64) int {
	if c := r.Start.Compare(n.Start); c != 0 {
		return c
	}
	if c := r.End.Compare(n.End); c != 0 {
		return c
	}
	switch {
	case seq < nseq:
		return -1
	case seq > nseq:
		return 1
	}
	return 0
}

func height[V any](n *node[V]) int {
	if n == nil {
		return 0
	}
	return n.height
}

func update[V any](n *node[V]) {
	n.height = 1 + max(height(n.left), height(n.right))
	n.maxEnd = reach(n.r)
	if n.left != nil && n.left.maxEnd.After(n.maxEnd) {
		n.maxEnd = n.left.maxEnd
	}
	if n.right != nil && n.right.maxEnd.After(n.maxEnd) {
		n.maxEnd = n.right.maxEnd
	}
}

func rotateRight[V any](n *node[V]) *node[V] {
	x := n.left
	n.left = x.right
	x.right = n
	update(n)
	update(x)
	return x
}

func rotateLeft[V any](n *node[V]) *node[V] {
	x := n.right
	n.right = x.left
	x.left = n
	update(n)
	update(x)
	return x
}

func rebalance[V any](n *node[V]) *node[V] {
	update(n)
	switch bf := height(n.left) - height(n.right); {
	case bf > 1:
		if height(n.left.left) < height(n.left.right) {
			n.left = rotateLeft(n.left)
		}
		return rotateRight(n)
	case bf < -1:
		if height(n.right.right) < height(n.right.left) {
			n.right = rotateRight(n.right)
		}
		return rotateLeft(n)
	}
	return n
}

func insertNode[V any](root, n *node[V]) *node[V] {
	if root == nil {
		return n
	}
	if compareKey(n.r, n.seq, root.r, root.seq) < 0 {
		root.left = insertNode(root.left, n)
	} else {
		root.right = insertNode(root.right, n)
	}
	return rebalance(root)
}

func deleteNode[V any](root *node[V], r Range, seq uint64) (*node[V], bool) {
	if root == nil {
		return nil, false
	}
	var ok bool
	switch c := compareKey(r, seq, root.r, root.seq); {
	case c < 0:
		root.left, ok = deleteNode(root.left, r, seq)
	case c > 0:
		root.right, ok = deleteNode(root.right, r, seq)
	default:
		if root.left == nil {
			return root.right, true
		}
		if root.right == nil {
			return root.left, true
		}
		successor := root.right
		for successor.left != nil {
			successor = successor.left
		}
		successor.right = deleteMin(root.right)
		successor.left = root.left
		root, ok = successor, true
	}
	if !ok {
		return root, false
	}
	return rebalance(root), true
}

func deleteMin[V any](n *node[V]) *node[V] {
	if n.left == nil {
		return n.right
	}
	n.left = deleteMin(n.left)
	return rebalance(n)
}
