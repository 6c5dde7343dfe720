// Copyright 2025 The Push Chain Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package engine

import (
	"math/big"

	"github.com/pushchain/pc-yield-contracts/internal/accrual"
	"github.com/pushchain/pc-yield-contracts/internal/admission"
	"github.com/pushchain/pc-yield-contracts/pkg/errors"
	"github.com/pushchain/pc-yield-contracts/protocol"
)

// AdmitAndDeposit proves the depositor's eligibility (on first entry, and
// in sealed mode whenever the declared multiplier differs from the record)
// and adds the amount to their stake. Once a sealed season has closed the
// claim basis is frozen, so no deposit or multiplier change is accepted.
func (e *Engine) AdmitAndDeposit(depositor protocol.Identity, amount *big.Int, proof *admission.Proof) error {
	return e.update("deposit", func(op *operation) error {
		// The amount is checked before the proof is consulted
		if amount == nil || amount.Sign() <= 0 {
			return errors.ZeroAmount.With("deposit amount must be positive")
		}

		// Weight added after the close would be measured against the frozen
		// total and inflate the depositor's share of the frozen pool
		if op.params.Mode == protocol.ModeSealed {
			season, err := op.ledger.Season()
			if err != nil {
				return err
			}
			if season.Finalized {
				return errors.BucketClosed.With("season is closed")
			}
		}

		rec, err := op.ledger.Depositor(depositor)
		if err != nil {
			return err
		}

		switch {
		case !rec.Admitted:
			err = e.verifier.Verify(op.params.AllowlistRoot, depositor, proof)
			if err != nil {
				return err
			}
			rec.Admitted = true
			if op.params.Mode == protocol.ModeSealed {
				rec.Multiplier = proof.Multiplier
			}

		case op.params.Mode == protocol.ModeSealed && proof != nil && proof.Multiplier != rec.Multiplier:
			// A depositor may change their declared multiplier after
			// admission by proving the new declaration
			err = e.verifier.Verify(op.params.AllowlistRoot, depositor, proof)
			if err != nil {
				return err
			}
			rec.Multiplier = proof.Multiplier
			err = op.ledger.Reweigh(rec, op.now)
			if err != nil {
				return err
			}
		}

		err = op.ledger.Deposit(rec, amount, op.now)
		if err != nil {
			return err
		}
		err = op.ledger.PutDepositor(rec)
		if err != nil {
			return err
		}
		return op.custody.Credit(protocol.NativeAsset, amount)
	})
}

// RequestUnstake moves the amount from principal to the pending
// withdrawal. The excluded funds stop earning immediately - before
// release - so a depositor cannot earn and exit at the same time. A
// second request before release adds to the pending amount and can only
// extend the release deadline.
func (e *Engine) RequestUnstake(depositor protocol.Identity, amount *big.Int) error {
	return e.update("unstake", func(op *operation) error {
		rec, err := op.ledger.Depositor(depositor)
		if err != nil {
			return err
		}
		return e.requestUnstake(op, rec, amount)
	})
}

func (e *Engine) requestUnstake(op *operation, rec *protocol.DepositorRecord, amount *big.Int) error {
	if op.now.Before(rec.LockExpiry) {
		return errors.LockActive.WithFormat("stake is locked until %v", rec.LockExpiry)
	}

	err := op.ledger.Unstake(rec, amount, op.now)
	if err != nil {
		return err
	}

	readyAt := op.now.Add(op.params.CooldownLength)
	if rec.Pending == nil {
		rec.Pending = &protocol.PendingWithdrawal{Amount: new(big.Int).Set(amount), ReadyAt: readyAt}
	} else {
		rec.Pending.Amount.Add(rec.Pending.Amount, amount)
		// The release deadline can only be extended, never shortened
		if readyAt.After(rec.Pending.ReadyAt) {
			rec.Pending.ReadyAt = readyAt
		}
	}

	return op.ledger.PutDepositor(rec)
}

// Withdraw releases the pending withdrawal once the cooldown has
// finished. There is no upper time bound - any later call still succeeds.
func (e *Engine) Withdraw(depositor protocol.Identity) (*big.Int, error) {
	var amount *big.Int
	err := e.update("withdraw", func(op *operation) error {
		rec, err := op.ledger.Depositor(depositor)
		if err != nil {
			return err
		}
		if rec.Pending == nil {
			return errors.NothingPending.With("no withdrawal requested")
		}
		if op.now.Before(rec.Pending.ReadyAt) {
			return errors.CooldownActive.WithFormat("cooldown ends at %v", rec.Pending.ReadyAt)
		}

		amount = rec.Pending.Amount
		rec.Pending = nil
		err = op.ledger.PutDepositor(rec)
		if err != nil {
			return err
		}
		return op.custody.Release(protocol.NativeAsset, depositor, amount)
	})
	if err != nil {
		return nil, err
	}
	return amount, nil
}

// Claim pays out the depositor's accrued rewards.
func (e *Engine) Claim(depositor protocol.Identity) (*big.Int, error) {
	var paid *big.Int
	err := e.update("claim", func(op *operation) error {
		rec, err := op.ledger.Depositor(depositor)
		if err != nil {
			return err
		}

		paid, err = e.accrual.Claim(op.ledger, rec, op.now)
		if err != nil {
			return err
		}

		// The checkpoint or claimed counter is recorded before the
		// outbound transfer
		err = op.ledger.PutDepositor(rec)
		if err != nil {
			return err
		}
		if paid.Sign() == 0 {
			return nil
		}
		return op.custody.Release(protocol.NativeAsset, depositor, paid)
	})
	if err != nil {
		return nil, err
	}
	return paid, nil
}

// UnstakeAndClaim atomically runs the full claim path before the unstake
// path (sealed mode only), so a depositor who is fully retracted from
// admission on a full exit does not lose already-accrued entitlement. A
// season that is not yet closed, or an exhausted entitlement, counts as a
// zero claim.
func (e *Engine) UnstakeAndClaim(depositor protocol.Identity, amount *big.Int) (*big.Int, error) {
	var paid *big.Int
	err := e.update("unstake-and-claim", func(op *operation) error {
		if op.params.Mode != protocol.ModeSealed {
			return errors.Conflict.With("only available in sealed mode")
		}

		rec, err := op.ledger.Depositor(depositor)
		if err != nil {
			return err
		}

		paid, err = e.accrual.Claim(op.ledger, rec, op.now)
		switch {
		case err == nil:
			// Ok
		case errors.Is(err, errors.SeasonNotFinalized), errors.Is(err, errors.NoEntitlement):
			paid = new(big.Int)
		default:
			return err
		}

		err = e.requestUnstake(op, rec, amount)
		if err != nil {
			return err
		}
		if paid.Sign() == 0 {
			return nil
		}
		return op.custody.Release(protocol.NativeAsset, depositor, paid)
	})
	if err != nil {
		return nil, err
	}
	return paid, nil
}

// Entitlement returns the depositor's remaining entitled share (sealed
// mode only).
func (e *Engine) Entitlement(depositor protocol.Identity) (*big.Int, error) {
	var ent *big.Int
	err := e.view(func(op *operation) error {
		sealed, ok := e.accrual.(*accrual.SealedSeason)
		if !ok {
			return errors.Conflict.With("only available in sealed mode")
		}
		rec, err := op.ledger.Depositor(depositor)
		if err != nil {
			return err
		}
		ent, err = sealed.Entitlement(op.ledger, rec)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ent, nil
}

// Depositor returns a depositor's record.
func (e *Engine) Depositor(id protocol.Identity) (*protocol.DepositorRecord, error) {
	var rec *protocol.DepositorRecord
	err := e.view(func(op *operation) error {
		var err error
		rec, err = op.ledger.Depositor(id)
		return err
	})
	return rec, err
}

// Totals returns the global totals.
func (e *Engine) Totals() (*protocol.GlobalTotals, error) {
	var totals *protocol.GlobalTotals
	err := e.view(func(op *operation) error {
		var err error
		totals, err = op.ledger.Totals()
		return err
	})
	return totals, err
}

// Epoch returns an epoch's funding record.
func (e *Engine) Epoch(index uint64) (*protocol.EpochRecord, error) {
	var rec *protocol.EpochRecord
	err := e.view(func(op *operation) error {
		var err error
		rec, err = op.ledger.Epoch(index)
		return err
	})
	return rec, err
}

// Season returns the season snapshot.
func (e *Engine) Season() (*protocol.SeasonSnapshot, error) {
	var season *protocol.SeasonSnapshot
	err := e.view(func(op *operation) error {
		var err error
		season, err = op.ledger.Season()
		return err
	})
	return season, err
}
