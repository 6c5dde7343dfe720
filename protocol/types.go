// Copyright 2025 The Push Chain Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

// Package protocol defines the persistent types of the yield engine.
package protocol

import (
	"fmt"
	"math/big"
	"time"
)

// Mode selects the accrual strategy. The mode is fixed at deployment.
type Mode uint64

const (
	// ModeRolling is the rolling-epoch migration incentive: fixed-length
	// time buckets, each independently funded, reward split by weight held
	// during the bucket.
	ModeRolling Mode = 1

	// ModeSealed is the single-season multiplier incentive: one frozen
	// snapshot at season close, reward split by final weight.
	ModeSealed Mode = 2
)

func (m Mode) String() string {
	switch m {
	case ModeRolling:
		return "rolling"
	case ModeSealed:
		return "sealed"
	default:
		return fmt.Sprintf("mode %d", uint64(m))
	}
}

// ModeByName parses a mode name.
func ModeByName(s string) (Mode, bool) {
	switch s {
	case "rolling":
		return ModeRolling, true
	case "sealed":
		return ModeSealed, true
	default:
		return 0, false
	}
}

// An Identity identifies a depositor, the administrator, or the funder.
type Identity string

// The NativeAsset is the reward-denominated unit of the deployment.
const NativeAsset = "PC"

// A PendingWithdrawal is the single outstanding withdrawal request of a
// depositor. A second request before release adds to Amount and can only
// extend ReadyAt.
type PendingWithdrawal struct {
	Amount  *big.Int  `json:"amount"`
	ReadyAt time.Time `json:"readyAt"`
}

// A DepositorRecord is the authoritative record of one depositor. Records
// are created on first successful admission and never deleted - principal
// may return to zero, but ClaimedToDate persists.
type DepositorRecord struct {
	Identity     Identity `json:"identity"`
	Principal    *big.Int `json:"principal"`
	RewardWeight *big.Int `json:"rewardWeight"`

	// Multiplier is the fixed per-depositor reward multiplier (sealed mode
	// only, always ≥ 1).
	Multiplier uint64 `json:"multiplier,omitempty"`

	// Admitted is set on first valid admission. In rolling mode it is never
	// retracted; in sealed mode it is cleared when principal returns to
	// zero.
	Admitted bool `json:"admitted"`

	// Checkpoint is the next epoch to accrue (rolling mode).
	Checkpoint uint64 `json:"checkpoint,omitempty"`

	LockExpiry time.Time          `json:"lockExpiry"`
	Pending    *PendingWithdrawal `json:"pending,omitempty"`

	// ClaimedToDate is the cumulative reward paid (sealed mode).
	ClaimedToDate *big.Int `json:"claimedToDate,omitempty"`

	// History is the forward-filled weight history, pruned below
	// Checkpoint.
	History WeightHistory `json:"history,omitempty"`
}

// NewDepositorRecord returns an empty record for an identity.
func NewDepositorRecord(id Identity) *DepositorRecord {
	return &DepositorRecord{
		Identity:      id,
		Principal:     new(big.Int),
		RewardWeight:  new(big.Int),
		ClaimedToDate: new(big.Int),
	}
}

// Weight recomputes the reward weight from the principal. The cached
// RewardWeight is never a source of truth - callers must recompute on
// every mutation.
func (d *DepositorRecord) Weight(mode Mode) *big.Int {
	w := new(big.Int).Set(d.Principal)
	if mode == ModeSealed && d.Multiplier > 1 {
		w.Mul(w, new(big.Int).SetUint64(d.Multiplier))
	}
	return w
}

// An EpochRecord is one funded time bucket (rolling mode).
type EpochRecord struct {
	Index uint64   `json:"index"`
	Pool  *big.Int `json:"pool"`
}

// GlobalTotals must equal the sum over all depositor records at all times.
type GlobalTotals struct {
	TotalPrincipal     *big.Int      `json:"totalPrincipal"`
	TotalWeightedStake *big.Int      `json:"totalWeightedStake"`
	History            WeightHistory `json:"history,omitempty"`
}

// NewGlobalTotals returns zeroed totals.
func NewGlobalTotals() *GlobalTotals {
	return &GlobalTotals{
		TotalPrincipal:     new(big.Int),
		TotalWeightedStake: new(big.Int),
	}
}

// A SeasonSnapshot is the frozen state written exactly once when the
// season closes (sealed mode).
type SeasonSnapshot struct {
	TotalReward        *big.Int  `json:"totalReward"`
	TotalWeightedStake *big.Int  `json:"totalWeightedStake"`
	Finalized          bool      `json:"finalized"`
	ClosedAt           time.Time `json:"closedAt"`
}

// NewSeasonSnapshot returns an open, unfunded season.
func NewSeasonSnapshot() *SeasonSnapshot {
	return &SeasonSnapshot{
		TotalReward:        new(big.Int),
		TotalWeightedStake: new(big.Int),
	}
}
