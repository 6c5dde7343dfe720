// Copyright 2025 The Push Chain Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

// Package ledger implements the authoritative stake ledger: per-depositor
// principal and derived reward weight, and the global totals.
package ledger

import (
	"encoding/json"
	"math/big"
	"time"

	"github.com/pushchain/pc-yield-contracts/pkg/database/keyvalue"
	"github.com/pushchain/pc-yield-contracts/pkg/errors"
	"github.com/pushchain/pc-yield-contracts/pkg/record"
	"github.com/pushchain/pc-yield-contracts/protocol"
)

// A Ledger reads and writes stake records within one change set. Every
// mutation recomputes the reward weight and keeps the global totals equal
// to the sum over all depositor records.
type Ledger struct {
	store  keyvalue.Store
	params *protocol.Params
}

func New(store keyvalue.Store, params *protocol.Params) *Ledger {
	return &Ledger{store: store, params: params}
}

func depositorKey(id protocol.Identity) *record.Key {
	return record.NewKey("Depositor", string(id))
}

func epochKey(index uint64) *record.Key { return record.NewKey("Epoch", index) }

var totalsKey = record.NewKey("Totals")
var seasonKey = record.NewKey("Season")

// Load loads a JSON-encoded record. It returns false with no error if the
// record does not exist.
func (l *Ledger) Load(key *record.Key, v any) (bool, error) {
	b, err := l.store.Get(key)
	switch {
	case err == nil:
		// Ok
	case errors.Is(err, errors.NotFound):
		return false, nil
	default:
		return false, errors.UnknownError.Wrap(err)
	}
	err = json.Unmarshal(b, v)
	if err != nil {
		return false, errors.EncodingError.WithFormat("decode %v: %w", key, err)
	}
	return true, nil
}

// Put stores a JSON-encoded record.
func (l *Ledger) Put(key *record.Key, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errors.EncodingError.WithFormat("encode %v: %w", key, err)
	}
	return l.store.Put(key, b)
}

// Depositor loads a depositor record, or returns a fresh one if the
// depositor has never been admitted.
func (l *Ledger) Depositor(id protocol.Identity) (*protocol.DepositorRecord, error) {
	rec := protocol.NewDepositorRecord(id)
	_, err := l.Load(depositorKey(id), rec)
	return rec, err
}

func (l *Ledger) PutDepositor(rec *protocol.DepositorRecord) error {
	return l.Put(depositorKey(rec.Identity), rec)
}

// Totals loads the global totals.
func (l *Ledger) Totals() (*protocol.GlobalTotals, error) {
	totals := protocol.NewGlobalTotals()
	_, err := l.Load(totalsKey, totals)
	return totals, err
}

func (l *Ledger) PutTotals(totals *protocol.GlobalTotals) error {
	return l.Put(totalsKey, totals)
}

// Epoch loads an epoch's funding record. An epoch that was never funded
// has a zero pool.
func (l *Ledger) Epoch(index uint64) (*protocol.EpochRecord, error) {
	rec := &protocol.EpochRecord{Index: index, Pool: new(big.Int)}
	_, err := l.Load(epochKey(index), rec)
	return rec, err
}

func (l *Ledger) PutEpoch(rec *protocol.EpochRecord) error {
	return l.Put(epochKey(rec.Index), rec)
}

// Season loads the season snapshot.
func (l *Ledger) Season() (*protocol.SeasonSnapshot, error) {
	season := protocol.NewSeasonSnapshot()
	_, err := l.Load(seasonKey, season)
	return season, err
}

func (l *Ledger) PutSeason(season *protocol.SeasonSnapshot) error {
	return l.Put(seasonKey, season)
}

// Deposit increases a depositor's principal, recomputes the reward weight,
// updates the global totals, extends the lock to the current lock horizon,
// and attributes the delta to the current time bucket.
func (l *Ledger) Deposit(rec *protocol.DepositorRecord, amount *big.Int, now time.Time) error {
	if amount == nil || amount.Sign() <= 0 {
		return errors.ZeroAmount.With("deposit amount must be positive")
	}

	err := l.adjustStake(rec, amount, now)
	if err != nil {
		return err
	}

	// A deposit always sets or extends the lock to the current horizon
	rec.LockExpiry = now.Add(l.params.LockLength)

	// First entry starts accrual at the current epoch
	if l.params.Mode == protocol.ModeRolling && rec.Checkpoint == 0 {
		rec.Checkpoint = l.params.EpochIndex(now)
	}
	return nil
}

// Unstake applies the inverse of a deposit to the current bucket. If the
// principal reaches zero, sealed-mode admission is retracted and must be
// re-proven on the next deposit.
func (l *Ledger) Unstake(rec *protocol.DepositorRecord, amount *big.Int, now time.Time) error {
	if amount == nil || amount.Sign() <= 0 {
		return errors.ZeroAmount.With("unstake amount must be positive")
	}
	if amount.Cmp(rec.Principal) > 0 {
		return errors.InsufficientBalance.WithFormat("unstake %v exceeds principal %v", amount, rec.Principal)
	}

	err := l.adjustStake(rec, new(big.Int).Neg(amount), now)
	if err != nil {
		return err
	}

	if l.params.Mode == protocol.ModeSealed && rec.Principal.Sign() == 0 {
		rec.Admitted = false
	}
	return nil
}

// adjustStake applies a principal delta, recomputes the cached weight and
// keeps the totals and both forward-filled histories in step.
func (l *Ledger) adjustStake(rec *protocol.DepositorRecord, delta *big.Int, now time.Time) error {
	totals, err := l.Totals()
	if err != nil {
		return err
	}

	// The cached weight is the value currently reflected in the totals
	oldWeight := rec.RewardWeight
	if oldWeight == nil {
		oldWeight = new(big.Int)
	}
	rec.Principal = new(big.Int).Add(rec.Principal, delta)
	if rec.Principal.Sign() < 0 {
		return errors.InsufficientBalance.With("principal would be negative")
	}
	rec.RewardWeight = rec.Weight(l.params.Mode)

	totals.TotalPrincipal.Add(totals.TotalPrincipal, delta)
	totals.TotalWeightedStake.Add(totals.TotalWeightedStake, rec.RewardWeight)
	totals.TotalWeightedStake.Sub(totals.TotalWeightedStake, oldWeight)

	if l.params.Mode == protocol.ModeRolling {
		epoch := l.params.EpochIndex(now)
		rec.History = rec.History.Record(epoch, rec.RewardWeight)
		totals.History = totals.History.Record(epoch, totals.TotalWeightedStake)
	}

	return l.PutTotals(totals)
}

// Reweigh recomputes a depositor's weight after a multiplier change
// without touching the principal.
func (l *Ledger) Reweigh(rec *protocol.DepositorRecord, now time.Time) error {
	return l.adjustStake(rec, new(big.Int), now)
}
