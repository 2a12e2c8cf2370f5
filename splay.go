// Copyright 2023 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:build go1.18
// +build go1.18

// Package splay implements an in-memory ordered map backed by a splay tree.
//
// A splay tree is a self-adjusting binary search tree: every lookup or
// insert rotates the visited node to the root, so the tree adapts to the
// access pattern and stays balanced in the amortized sense without storing
// any per-node balance information. A single operation can cost O(n) on a
// degenerate shape, but any sequence of m operations on an n-node tree
// costs O(m log n) overall, including adversarial access patterns.
//
// Unlike a pointer-linked binary tree, nodes here live in a single flat
// growable slice (an arena) and children are integer indices into that
// slice, with an explicit sentinel for "no child". This keeps each node's
// storage slot stable for its whole lifetime: rotations relink child
// indices but never move node contents, and the per-node overhead is two
// ints rather than two pointers plus allocator bookkeeping. Entries are
// never deleted, so the arena only grows; Clear drops the whole container
// at once.
//
// Because splaying restructures the tree, Get is a mutating operation and
// requires the same exclusive access as Set. This is a deliberate part of
// the contract, not an implementation detail: callers that need concurrent
// readers must serialize all access externally. Iteration, Min, Max, Len
// and Depth are the only read-only operations.
//
// TreeG is generic, usable for any key type with a passed-in "less"
// function to define the ordering. NewOrderedG instantiates it for types
// that support the '<' operator.
package splay

// Children are stored as arena indices rather than pointers; noNode marks
// an absent child (and an empty tree's root).
const noNode = -1

// direction selects one of a node's two child slots.
type direction int

const (
	left  direction = 0
	right direction = 1
)

func (d direction) flip() direction {
	return 1 - d
}

// Ordered represents the set of types for which the '<' operator work.
type Ordered interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64 | ~string
}

// LessFunc[K] determines how to order a type 'K'.  It should implement a
// strict ordering, and should return true if within that ordering, 'a' < 'b'.
type LessFunc[K any] func(a, b K) bool

// Less[K] returns a default LessFunc that uses the '<' operator for types that support it.
func Less[K Ordered]() LessFunc[K] {
	return func(a, b K) bool { return a < b }
}

// node is a single entry in the arena. The children array is indexed by
// direction; a slot holds noNode when the child is absent.
type node[K, V any] struct {
	key      K
	value    V
	children [2]int
}

// TreeG is a generic implementation of a splay-tree ordered map from K to V.
//
// The zero value is not usable; construct trees with NewG or NewOrderedG.
// No operation, including Get, is safe for concurrent use by multiple
// goroutines (see the package comment).
type TreeG[K, V any] struct {
	root  int
	nodes []node[K, V]
	less  LessFunc[K]
}

// NewG creates a new splay tree.
//
// The passed-in LessFunc determines how keys of type K are ordered. Keys a
// and b are considered equal when !less(a, b) && !less(b, a).
func NewG[K, V any](less LessFunc[K]) *TreeG[K, V] {
	if less == nil {
		panic("nil less")
	}
	return &TreeG[K, V]{root: noNode, less: less}
}

// NewOrderedG creates a new splay tree for ordered key types.
func NewOrderedG[K Ordered, V any]() *TreeG[K, V] {
	return NewG[K, V](Less[K]())
}

type optionalItem[T any] struct {
	item  T
	valid bool
}

func optional[T any](item T) optionalItem[T] {
	return optionalItem[T]{item: item, valid: true}
}
func empty[T any]() optionalItem[T] {
	return optionalItem[T]{}
}

// newNode appends a node with both children absent and returns its index.
// Indices are stable for the lifetime of the tree; rotations relink child
// slots but never relocate node contents.
func (t *TreeG[K, V]) newNode(key K, value V) int {
	t.nodes = append(t.nodes, node[K, V]{
		key:      key,
		value:    value,
		children: [2]int{noNode, noNode},
	})
	return len(t.nodes) - 1
}

func (t *TreeG[K, V]) child(i int, d direction) int {
	return t.nodes[i].children[d]
}

func (t *TreeG[K, V]) setChild(i int, d direction, to int) {
	t.nodes[i].children[d] = to
}

// rotate relinks the edge (upper, d) so that upper's d-side child takes
// upper's place, and returns the new subtree root. The caller relinks the
// result into the parent slot. The d-side child must be present.
func (t *TreeG[K, V]) rotate(upper int, d direction) int {
	lower := t.child(upper, d)
	if lower == noNode {
		panic("splay: rotate on absent child")
	}
	t.setChild(upper, d, t.child(lower, d.flip()))
	t.setChild(lower, d.flip(), upper)
	return lower
}

type pathState int8

const (
	pathEmpty pathState = iota
	pathOne
	pathTwo
)

// path records the directions still separating the current recursion point
// from the node being splayed, capped at the two most recent edges. Each
// time it reaches two edges they are collapsed into one combined rotation
// pair (see splayStep), so a full splay costs one pass back up the search
// path.
type path struct {
	state  pathState
	d1, d2 direction // d1 is the edge nearest the current node
}

func (p *path) extend(d direction) {
	switch p.state {
	case pathEmpty:
		p.state, p.d1 = pathOne, d
	case pathOne:
		p.state, p.d1, p.d2 = pathTwo, d, p.d1
	case pathTwo:
		p.d1, p.d2 = d, p.d1
	}
}

// visitOp describes what a traversal should do when it reaches (or fails
// to reach) the target key: a pure lookup, or an upsert carrying the value
// to store. Lookup and insert share one traversal this way instead of
// duplicating the search/rotate logic.
type visitOp[K, V any] struct {
	key    K
	value  V
	upsert bool
}

// splayStep collapses a two-edge path below top into a combined rotation
// pair (the zig-zig / zig-zag step), moving the splayed node up two levels,
// and resets the path. Returns the subtree root after the step, which is
// top itself when fewer than two edges are pending.
func (t *TreeG[K, V]) splayStep(top int, p *path) int {
	if p.state != pathTwo {
		return top
	}
	mid := t.child(top, p.d1)
	if mid == noNode {
		panic("splay: corrupt path")
	}
	t.setChild(top, p.d1, t.rotate(mid, p.d2))
	p.state = pathEmpty
	return t.rotate(top, p.d1)
}

// splayFinish applies the single rotation left over once the recursion has
// fully unwound, bringing the splayed node to the actual root. A two-edge
// path can never survive to this point.
func (t *TreeG[K, V]) splayFinish(p *path) {
	switch p.state {
	case pathEmpty:
	case pathOne:
		t.root = t.rotate(t.root, p.d1)
	default:
		panic("splay: unfinished path")
	}
}

// visitNode walks the subtree rooted at idx toward op.key, applying
// pending rotations two levels at a time on the way back up. It returns
// the new root of the subtree and, if the key was already present, its
// previous value. On an exact match the path resets: the matched node is
// the splay target and only the edges above it still rotate.
func (t *TreeG[K, V]) visitNode(idx int, op visitOp[K, V], p *path) (int, optionalItem[V]) {
	switch {
	case t.less(op.key, t.nodes[idx].key):
		return t.descend(idx, op, left, p)
	case t.less(t.nodes[idx].key, op.key):
		return t.descend(idx, op, right, p)
	default:
		prev := optional(t.nodes[idx].value)
		if op.upsert {
			t.nodes[idx].value = op.value
		}
		p.state = pathEmpty
		return idx, prev
	}
}

func (t *TreeG[K, V]) descend(idx int, op visitOp[K, V], d direction, p *path) (int, optionalItem[V]) {
	prev := empty[V]()
	if c := t.child(idx, d); c != noNode {
		sub, out := t.visitNode(c, op, p)
		t.setChild(idx, d, sub)
		p.extend(d)
		prev = out
	} else if op.upsert {
		// Leaf attachment; the new node starts one edge below idx.
		t.setChild(idx, d, t.newNode(op.key, op.value))
		p.state, p.d1 = pathOne, d
	}
	return t.splayStep(idx, p), prev
}

// visit runs one unified traversal for Get and Set. After it returns, the
// target node is the root: the found or inserted node, or on a lookup miss
// the last node on the search path.
func (t *TreeG[K, V]) visit(op visitOp[K, V]) optionalItem[V] {
	if t.root == noNode {
		if op.upsert {
			t.root = t.newNode(op.key, op.value)
		}
		return empty[V]()
	}
	var p path
	sub, prev := t.visitNode(t.root, op, &p)
	t.root = sub
	t.splayFinish(&p)
	return prev
}

// Get looks up key and returns its value. It returns (zeroValue, false) if
// the key is not in the tree.
//
// Get splays: the matched node (or, on a miss, the last node visited)
// becomes the root, so Get mutates the tree and requires exclusive access.
func (t *TreeG[K, V]) Get(key K) (_ V, _ bool) {
	prev := t.visit(visitOp[K, V]{key: key})
	return prev.item, prev.valid
}

// Set adds the given key/value entry to the tree.  If an entry with that
// key already exists, its value is overwritten in place and the previous
// value is returned with true.  Otherwise, (zeroValue, false).
//
// Either way the affected node is the root afterwards.
func (t *TreeG[K, V]) Set(key K, value V) (_ V, _ bool) {
	prev := t.visit(visitOp[K, V]{key: key, value: value, upsert: true})
	return prev.item, prev.valid
}

// Has returns true if the given key is in the tree. Like Get, it splays.
func (t *TreeG[K, V]) Has(key K) bool {
	_, ok := t.Get(key)
	return ok
}

// Len returns the number of entries currently in the tree. Since entries
// are never deleted this is exactly the arena length.
func (t *TreeG[K, V]) Len() int {
	return len(t.nodes)
}

// Min returns the smallest key in the tree, or (zeroValue, false) if the
// tree is empty. Min does not splay.
func (t *TreeG[K, V]) Min() (_ K, _ bool) {
	return t.edge(left)
}

// Max returns the largest key in the tree, or (zeroValue, false) if the
// tree is empty. Max does not splay.
func (t *TreeG[K, V]) Max() (_ K, _ bool) {
	return t.edge(right)
}

func (t *TreeG[K, V]) edge(d direction) (_ K, _ bool) {
	if t.root == noNode {
		return
	}
	i := t.root
	for c := t.child(i, d); c != noNode; c = t.child(i, d) {
		i = c
	}
	return t.nodes[i].key, true
}

// Clear removes all entries from the tree. The arena's storage is retained
// for reuse; outstanding iterators over the old contents are invalidated.
func (t *TreeG[K, V]) Clear() {
	t.root = noNode
	t.nodes = t.nodes[:0]
}

// Depth returns the height of the tree: the longest root-to-leaf node
// count, 0 for an empty tree. It is a diagnostic for inspecting how well
// splaying keeps the tree balanced under a workload; no other operation
// depends on it.
func (t *TreeG[K, V]) Depth() int {
	return t.nodeDepth(t.root)
}

func (t *TreeG[K, V]) nodeDepth(idx int) int {
	if idx == noNode {
		return 0
	}
	l := t.nodeDepth(t.child(idx, left))
	r := t.nodeDepth(t.child(idx, right))
	if l > r {
		return l + 1
	}
	return r + 1
}
