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

package splay

// ItemIteratorG allows callers of Ascend to iterate in-order over the
// tree.  When this function returns false, iteration will stop and Ascend
// will immediately return.
type ItemIteratorG[K, V any] func(key K, value V) bool

// iterFrame is one entry of an iterator's traversal stack: a node index
// and whether that node's right subtree has already been entered.
type iterFrame struct {
	idx          int
	visitedRight bool
}

// IterG is a lazy in-order iterator over a tree, yielding entries in
// ascending key order. It never splays, so iteration does not disturb the
// tree's structure. Each IterG owns its own traversal stack; a finished
// iterator cannot be restarted, but a fresh one can always be created
// since iteration consumes nothing.
//
// An IterG is invalidated by any mutating call on the tree it was created
// from (Set, and Get, which splays).
type IterG[K, V any] struct {
	tree *TreeG[K, V]
	path []iterFrame
}

// Iter returns a new iterator positioned before the smallest key.
func (t *TreeG[K, V]) Iter() *IterG[K, V] {
	it := &IterG[K, V]{tree: t}
	if t.root != noNode {
		it.towardsMin(t.root)
	}
	return it
}

// towardsMin pushes the path from idx down to the leftmost node of its
// subtree.
func (it *IterG[K, V]) towardsMin(idx int) {
	for idx != noNode {
		it.path = append(it.path, iterFrame{idx: idx})
		idx = it.tree.child(idx, left)
	}
}

// upwards pops every fully-visited frame off the top of the stack.
func (it *IterG[K, V]) upwards() {
	for n := len(it.path); n > 0 && it.path[n-1].visitedRight; n = len(it.path) {
		it.path = it.path[:n-1]
	}
}

// Next returns the next entry in ascending key order, and false once the
// tree is exhausted.
func (it *IterG[K, V]) Next() (_ K, _ V, _ bool) {
	if len(it.path) == 0 {
		return
	}
	top := &it.path[len(it.path)-1]
	idx := top.idx
	top.visitedRight = true
	if r := it.tree.child(idx, right); r != noNode {
		it.towardsMin(r)
	} else {
		it.upwards()
	}
	n := &it.tree.nodes[idx]
	return n.key, n.value, true
}

// Ascend calls the iterator for every entry in the tree in ascending key
// order, until iterator returns false. Like Iter, it does not splay.
func (t *TreeG[K, V]) Ascend(iterator ItemIteratorG[K, V]) {
	it := t.Iter()
	for k, v, ok := it.Next(); ok; k, v, ok = it.Next() {
		if !iterator(k, v) {
			return
		}
	}
}
