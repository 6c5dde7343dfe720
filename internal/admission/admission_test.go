// Copyright 2025 The Push Chain Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package admission

import (
	"crypto/sha256"
	"fmt"
	"testing"

	"github.com/pushchain/pc-yield-contracts/pkg/merkle"
	"github.com/pushchain/pc-yield-contracts/protocol"
	"github.com/stretchr/testify/require"
)

func TestVerifyRolling(t *testing.T) {
	v := NewVerifier(protocol.ModeRolling)

	var tags []merkle.Hash
	var leaves []merkle.Hash
	for i := 0; i < 5; i++ {
		tag := sha256.Sum256([]byte(fmt.Sprintf("tag-%d", i)))
		tags = append(tags, tag)
		leaves = append(leaves, RollingLeaf(protocol.Identity(fmt.Sprintf("user-%d", i)), tag))
	}
	tree := merkle.NewTree(leaves)
	root := tree.Root()

	for i := 0; i < 5; i++ {
		id := protocol.Identity(fmt.Sprintf("user-%d", i))
		proof := &Proof{Path: tree.Receipt(i).Entries, Tag: tags[i]}
		require.NoError(t, v.Verify(root, id, proof))

		// The proof binds the identity
		require.Error(t, v.Verify(root, "someone-else", proof))
	}

	// A wrong tag breaks the leaf
	proof := &Proof{Path: tree.Receipt(0).Entries, Tag: tags[1]}
	require.Error(t, v.Verify(root, "user-0", proof))

	require.Error(t, v.Verify(root, "user-0", nil))
}

func TestVerifySealed(t *testing.T) {
	v := NewVerifier(protocol.ModeSealed)

	multipliers := []uint64{1, 2, 5}
	var leaves []merkle.Hash
	for i, m := range multipliers {
		leaves = append(leaves, SealedLeaf(protocol.Identity(fmt.Sprintf("user-%d", i)), m))
	}
	tree := merkle.NewTree(leaves)
	root := tree.Root()

	for i, m := range multipliers {
		id := protocol.Identity(fmt.Sprintf("user-%d", i))
		proof := &Proof{Path: tree.Receipt(i).Entries, Multiplier: m}
		require.NoError(t, v.Verify(root, id, proof))

		// Declaring a different multiplier than the leaf commits to fails
		proof.Multiplier = m + 1
		require.Error(t, v.Verify(root, id, proof))
	}

	// A zero multiplier is rejected before the tree is consulted
	proof := &Proof{Path: tree.Receipt(0).Entries, Multiplier: 0}
	require.Error(t, v.Verify(root, "user-0", proof))
}

func TestVerifySingleLeafTree(t *testing.T) {
	v := NewVerifier(protocol.ModeRolling)

	tag := sha256.Sum256([]byte("only"))
	leaf := RollingLeaf("solo", tag)
	tree := merkle.NewTree([]merkle.Hash{leaf})

	// The sole leaf is the root and its path is empty
	proof := &Proof{Path: tree.Receipt(0).Entries, Tag: tag}
	require.NoError(t, v.Verify(tree.Root(), "solo", proof))
}
