// Copyright 2025 The Push Chain Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

// Package merkle implements the inclusion-proof primitive used for
// admission. The tree normalizes sibling ordering - each pair is hashed as
// H(min(a,b) || max(a,b)) - so a proof is just a list of sibling hashes
// with no position information.
package merkle

import (
	"bytes"
	"crypto/sha256"
)

// A Hash is a sha256 hash.
type Hash = [32]byte

// combine hashes a pair of nodes with normalized ordering.
func combine(a, b Hash) Hash {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	h := sha256.New()
	h.Write(a[:])
	h.Write(b[:])
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// A Receipt proves that a leaf is included under an anchor.
type Receipt struct {
	Start   Hash   `json:"start"`
	Entries []Hash `json:"entries"`
	Anchor  Hash   `json:"anchor"`
}

// Validate applies the sibling path to the start hash and checks that it
// progresses to the anchor.
func (r *Receipt) Validate() bool {
	root := r.Start
	for _, e := range r.Entries {
		root = combine(root, e)
	}
	return root == r.Anchor
}

// Verify is a pure function of its inputs: it returns true if the sibling
// path progresses from the leaf to the root.
func Verify(root, leaf Hash, path []Hash) bool {
	r := &Receipt{Start: leaf, Entries: path, Anchor: root}
	return r.Validate()
}

// A Tree is a complete commitment tree over a fixed set of leaves. The
// engine never holds a Tree - it stores only the root - but operator
// tooling and tests build trees to produce receipts.
type Tree struct {
	layers [][]Hash
}

// NewTree builds a tree over the given leaf hashes. An odd node at the end
// of a layer is promoted unchanged.
func NewTree(leaves []Hash) *Tree {
	t := new(Tree)
	layer := make([]Hash, len(leaves))
	copy(layer, leaves)
	t.layers = append(t.layers, layer)

	for len(layer) > 1 {
		next := make([]Hash, 0, (len(layer)+1)/2)
		for i := 0; i < len(layer); i += 2 {
			if i+1 < len(layer) {
				next = append(next, combine(layer[i], layer[i+1]))
			} else {
				next = append(next, layer[i])
			}
		}
		t.layers = append(t.layers, next)
		layer = next
	}
	return t
}

// Root returns the root of the tree. The root of an empty tree is zero.
func (t *Tree) Root() Hash {
	if len(t.layers) == 0 || len(t.layers[0]) == 0 {
		return Hash{}
	}
	top := t.layers[len(t.layers)-1]
	return top[0]
}

// Receipt returns a receipt for the i-th leaf.
func (t *Tree) Receipt(i int) *Receipt {
	if len(t.layers) == 0 || i < 0 || i >= len(t.layers[0]) {
		return nil
	}

	r := &Receipt{Start: t.layers[0][i], Anchor: t.Root()}
	for _, layer := range t.layers[:len(t.layers)-1] {
		sibling := i ^ 1
		if sibling < len(layer) {
			r.Entries = append(r.Entries, layer[sibling])
		}
		i >>= 1
	}
	return r
}
