// Copyright 2025 The Push Chain Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

// Package admission proves depositor eligibility against the published
// allowlist root without an enumerable on-ledger set.
package admission

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/pushchain/pc-yield-contracts/pkg/errors"
	"github.com/pushchain/pc-yield-contracts/pkg/merkle"
	"github.com/pushchain/pc-yield-contracts/protocol"
)

// A Proof is a depositor's claim of membership in the allowlist.
type Proof struct {
	// Path is the sibling-hash path from the leaf to the root.
	Path []merkle.Hash `json:"path"`

	// Tag is the uniqueness tag encoded in the leaf (rolling mode). It
	// gates first entry only and is never re-checked after admission.
	Tag merkle.Hash `json:"tag,omitempty"`

	// Multiplier is the declared reward multiplier encoded in the leaf
	// (sealed mode).
	Multiplier uint64 `json:"multiplier,omitempty"`
}

// RollingLeaf encodes identity plus the uniqueness tag.
func RollingLeaf(id protocol.Identity, tag merkle.Hash) merkle.Hash {
	h := sha256.New()
	h.Write([]byte(id))
	h.Write(tag[:])
	var leaf merkle.Hash
	copy(leaf[:], h.Sum(nil))
	return leaf
}

// SealedLeaf encodes identity plus the declared multiplier.
func SealedLeaf(id protocol.Identity, multiplier uint64) merkle.Hash {
	var m [8]byte
	binary.BigEndian.PutUint64(m[:], multiplier)
	h := sha256.New()
	h.Write([]byte(id))
	h.Write(m[:])
	var leaf merkle.Hash
	copy(leaf[:], h.Sum(nil))
	return leaf
}

// A Verifier checks proofs for the deployment's mode.
type Verifier struct {
	mode protocol.Mode
}

func NewVerifier(mode protocol.Mode) *Verifier {
	return &Verifier{mode: mode}
}

// Verify checks the proof against the root. It is a pure function of its
// inputs.
func (v *Verifier) Verify(root merkle.Hash, id protocol.Identity, proof *Proof) error {
	if proof == nil {
		return errors.InvalidProof.With("missing proof")
	}

	var leaf merkle.Hash
	switch v.mode {
	case protocol.ModeSealed:
		if proof.Multiplier < 1 {
			return errors.InvalidWeight.With("multiplier must be at least 1")
		}
		leaf = SealedLeaf(id, proof.Multiplier)
	default:
		leaf = RollingLeaf(id, proof.Tag)
	}

	if !merkle.Verify(root, leaf, proof.Path) {
		return errors.InvalidProof.WithFormat("%s is not admitted", id)
	}
	return nil
}
