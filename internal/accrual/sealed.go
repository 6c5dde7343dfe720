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

// SealedSeason splits one frozen reward pool by the weight held when the
// season closed. Nothing is claimable before the close.
type SealedSeason struct {
	params *protocol.Params
}

var _ Engine = (*SealedSeason)(nil)

func NewSealedSeason(params *protocol.Params) *SealedSeason {
	return &SealedSeason{params: params}
}

// Fund adds reward to the season pool. Funding is permitted only while the
// season is open: before the season end and before the close.
func (s *SealedSeason) Fund(l *ledger.Ledger, _ uint64, amount *big.Int, now time.Time) error {
	if amount == nil || amount.Sign() <= 0 {
		return errors.ZeroAmount.With("funding amount must be positive")
	}

	season, err := l.Season()
	if err != nil {
		return err
	}
	if season.Finalized || s.params.SeasonOver(now) {
		return errors.BucketClosed.With("season is closed")
	}

	season.TotalReward.Add(season.TotalReward, amount)
	return l.PutSeason(season)
}

// Close freezes the total reward and total weighted stake into the
// season snapshot. It can succeed exactly once, at or after season end.
func (s *SealedSeason) Close(l *ledger.Ledger, now time.Time) error {
	season, err := l.Season()
	if err != nil {
		return err
	}
	if season.Finalized {
		return errors.Conflict.With("season is already closed")
	}
	if !s.params.SeasonOver(now) {
		return errors.SeasonOpen.WithFormat("season is open until %v", s.params.SeasonEnd)
	}

	totals, err := l.Totals()
	if err != nil {
		return err
	}

	season.TotalWeightedStake.Set(totals.TotalWeightedStake)
	season.Finalized = true
	season.ClosedAt = now
	return l.PutSeason(season)
}

// Entitlement returns the depositor's remaining entitled share:
// weight * totalReward / totalWeightedStake - claimedToDate, floored.
func (s *SealedSeason) Entitlement(l *ledger.Ledger, rec *protocol.DepositorRecord) (*big.Int, error) {
	season, err := l.Season()
	if err != nil {
		return nil, err
	}
	if !season.Finalized {
		return nil, errors.SeasonNotFinalized.With("season is not closed")
	}

	ent := new(big.Int)
	if season.TotalWeightedStake.Sign() != 0 {
		ent.Mul(rec.Weight(s.params.Mode), season.TotalReward)
		ent.Quo(ent, season.TotalWeightedStake)
	}
	ent.Sub(ent, rec.ClaimedToDate)
	return ent, nil
}

// Claim releases the positive remainder of the entitlement and records it.
func (s *SealedSeason) Claim(l *ledger.Ledger, rec *protocol.DepositorRecord, now time.Time) (*big.Int, error) {
	ent, err := s.Entitlement(l, rec)
	if err != nil {
		return nil, err
	}
	if ent.Sign() <= 0 {
		return nil, errors.NoEntitlement.With("nothing to claim")
	}

	rec.ClaimedToDate = new(big.Int).Add(rec.ClaimedToDate, ent)
	return ent, nil
}
