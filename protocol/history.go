// Copyright 2025 The Push Chain Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package protocol

import (
	"math/big"
	"sort"
)

// A WeightCheckpoint records a weight as of an explicit update.
type WeightCheckpoint struct {
	Epoch  uint64   `json:"epoch"`
	Weight *big.Int `json:"weight"`
}

// A WeightHistory is a forward-filled weight history: it stores only the
// value as of the last explicit update per epoch, and resolving any epoch
// with no explicit record returns the nearest earlier explicit value. This
// keeps every mutation O(1) amortized regardless of how many epochs were
// skipped - the naive alternative of writing a value into every skipped
// epoch slot is unbounded work per call.
type WeightHistory []WeightCheckpoint

// Record sets the weight for an epoch. Mutations always target the current
// epoch, so epochs never decrease; recording the same epoch twice replaces
// the checkpoint.
func (h WeightHistory) Record(epoch uint64, weight *big.Int) WeightHistory {
	w := new(big.Int).Set(weight)
	if n := len(h); n > 0 && h[n-1].Epoch == epoch {
		h[n-1].Weight = w
		return h
	}
	return append(h, WeightCheckpoint{Epoch: epoch, Weight: w})
}

// At resolves the weight held during an epoch: the checkpoint at the
// nearest epoch ≤ the requested one, or zero if the history starts later.
func (h WeightHistory) At(epoch uint64) *big.Int {
	i := sort.Search(len(h), func(i int) bool { return h[i].Epoch > epoch })
	if i == 0 {
		return new(big.Int)
	}
	return h[i-1].Weight
}

// Prune discards checkpoints that can no longer be resolved - everything
// strictly before the given epoch except the nearest earlier checkpoint,
// which still forward-fills it.
func (h WeightHistory) Prune(epoch uint64) WeightHistory {
	i := sort.Search(len(h), func(i int) bool { return h[i].Epoch > epoch })
	if i == 0 {
		return h
	}
	// Keep h[i-1], the nearest checkpoint ≤ epoch
	return append(h[:0], h[i-1:]...)
}
