// Copyright 2025 The Push Chain Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

// Package accrual implements the two reward-accrual strategies. The
// strategy is fixed at deployment - construction chooses one of the two
// implementations, there is no runtime switching.
package accrual

import (
	"math/big"
	"time"

	"github.com/pushchain/pc-yield-contracts/internal/ledger"
	"github.com/pushchain/pc-yield-contracts/protocol"
)

// An Engine accrues rewards against the stake ledger. All division is
// floor integer division; residual dust is never redistributed.
type Engine interface {
	// Fund adds reward to a bucket. For the rolling strategy the bucket is
	// an epoch index; the sealed strategy has a single bucket and ignores
	// the index.
	Fund(l *ledger.Ledger, bucket uint64, amount *big.Int, now time.Time) error

	// Claim pays out everything the depositor is entitled to and advances
	// their accrual state.
	Claim(l *ledger.Ledger, rec *protocol.DepositorRecord, now time.Time) (*big.Int, error)
}

// New returns the accrual engine for the deployment's mode.
func New(params *protocol.Params) Engine {
	if params.Mode == protocol.ModeSealed {
		return NewSealedSeason(params)
	}
	return NewRollingEpoch(params)
}
