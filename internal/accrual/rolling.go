// Copyright 2025 The Push Chain Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package accrual

import (
	"math/big"
	"time"

	"github.com/pushchain/pc-yield-contracts/internal/ledger"
	"github.com/pushchain/pc-yield-contracts/pkg/errors"
	"github.com/pushchain/pc-yield-contracts/protocol"
)

// RollingEpoch splits each epoch's pool by the weight held during that
// epoch, resolved from the forward-filled weight histories.
type RollingEpoch struct {
	params *protocol.Params
}

var _ Engine = (*RollingEpoch)(nil)

func NewRollingEpoch(params *protocol.Params) *RollingEpoch {
	return &RollingEpoch{params: params}
}

// Fund adds reward to an epoch's pool. An epoch strictly before the
// current one is closed and no longer accepts funding, and a closed
// program accepts none at all.
func (r *RollingEpoch) Fund(l *ledger.Ledger, index uint64, amount *big.Int, now time.Time) error {
	if amount == nil || amount.Sign() <= 0 {
		return errors.ZeroAmount.With("funding amount must be positive")
	}
	if _, ok := r.params.Closed(); ok {
		return errors.BucketClosed.With("the program is closed")
	}
	if index < r.params.EpochIndex(now) {
		return errors.BucketClosed.WithFormat("epoch %d is closed", index)
	}

	epoch, err := l.Epoch(index)
	if err != nil {
		return err
	}
	epoch.Pool.Add(epoch.Pool, amount)
	return l.PutEpoch(epoch)
}

// Claim sums the depositor's share of every fully elapsed epoch from
// their checkpoint up to (but excluding) the current epoch, then advances
// the checkpoint to that boundary.
func (r *RollingEpoch) Claim(l *ledger.Ledger, rec *protocol.DepositorRecord, now time.Time) (*big.Int, error) {
	if rec.Checkpoint == 0 {
		return nil, errors.InvalidRange.With("nothing staked")
	}

	current := r.params.EpochIndex(now)
	if rec.Checkpoint >= current {
		return nil, errors.InvalidRange.WithFormat("checkpoint %d is already current", rec.Checkpoint)
	}

	totals, err := l.Totals()
	if err != nil {
		return nil, err
	}

	total := new(big.Int)
	for e := rec.Checkpoint; e < current; e++ {
		epoch, err := l.Epoch(e)
		if err != nil {
			return nil, err
		}
		if epoch.Pool.Sign() == 0 {
			continue
		}

		totalWeight := totals.History.At(e)
		if totalWeight.Sign() == 0 {
			continue
		}
		weight := rec.History.At(e)
		if weight.Sign() == 0 {
			continue
		}

		// reward = weight * pool / totalWeight, floored
		share := new(big.Int).Mul(weight, epoch.Pool)
		share.Quo(share, totalWeight)
		total.Add(total, share)
	}

	rec.Checkpoint = current
	rec.History = rec.History.Prune(current)
	return total, nil
}
