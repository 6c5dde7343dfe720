// Copyright 2025 The Push Chain Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package engine

import (
	"math/big"
	"time"

	"github.com/pushchain/pc-yield-contracts/internal/accrual"
	"github.com/pushchain/pc-yield-contracts/pkg/errors"
	"github.com/pushchain/pc-yield-contracts/pkg/merkle"
	"github.com/pushchain/pc-yield-contracts/protocol"
)

func (op *operation) requireAdmin(caller protocol.Identity) error {
	if caller != op.params.Admin {
		return errors.Unauthorized.WithFormat("%s is not the administrator", caller)
	}
	return nil
}

func (op *operation) requireFunder(caller protocol.Identity) error {
	if caller != op.params.Admin && caller != op.params.Funder {
		return errors.Unauthorized.WithFormat("%s is not the funder", caller)
	}
	return nil
}

// Fund adds reward to a bucket: an epoch in rolling mode, the season in
// sealed mode (pass zero). The value enters custody with the call.
func (e *Engine) Fund(caller protocol.Identity, bucket uint64, amount *big.Int) error {
	return e.update("fund", func(op *operation) error {
		err := op.requireFunder(caller)
		if err != nil {
			return err
		}
		err = e.accrual.Fund(op.ledger, bucket, amount, op.now)
		if err != nil {
			return err
		}
		return op.custody.Credit(protocol.NativeAsset, amount)
	})
}

// CloseSeason freezes the season snapshot (sealed mode only).
func (e *Engine) CloseSeason(caller protocol.Identity) error {
	return e.update("close-season", func(op *operation) error {
		err := op.requireAdmin(caller)
		if err != nil {
			return err
		}
		sealed, ok := e.accrual.(*accrual.SealedSeason)
		if !ok {
			return errors.Conflict.With("only available in sealed mode")
		}
		return sealed.Close(op.ledger, op.now)
	})
}

// CloseProgram marks the rolling program as fully closed, starting the
// native recovery delay. No further funding is accepted for epochs past
// the close.
func (e *Engine) CloseProgram(caller protocol.Identity) error {
	return e.update("close-program", func(op *operation) error {
		err := op.requireAdmin(caller)
		if err != nil {
			return err
		}
		if op.params.Mode != protocol.ModeRolling {
			return errors.Conflict.With("only available in rolling mode")
		}
		if !op.params.ProgramEnd.IsZero() {
			return errors.Conflict.With("program is already closed")
		}
		op.params.ProgramEnd = op.now
		return putParams(op.ledger, op.params)
	})
}

// SetAllowlistRoot publishes a new admission root.
func (e *Engine) SetAllowlistRoot(caller protocol.Identity, root merkle.Hash) error {
	return e.update("set-allowlist-root", func(op *operation) error {
		err := op.requireAdmin(caller)
		if err != nil {
			return err
		}
		op.params.AllowlistRoot = root
		return putParams(op.ledger, op.params)
	})
}

// SetLockLength sets the lock horizon applied to new deposits.
func (e *Engine) SetLockLength(caller protocol.Identity, d time.Duration) error {
	return e.update("set-lock-length", func(op *operation) error {
		err := op.requireAdmin(caller)
		if err != nil {
			return err
		}
		if d < 0 {
			return errors.InvalidRange.With("lock length must not be negative")
		}
		op.params.LockLength = d
		return putParams(op.ledger, op.params)
	})
}

// SetCooldownLength sets the cooldown applied to new unstake requests.
func (e *Engine) SetCooldownLength(caller protocol.Identity, d time.Duration) error {
	return e.update("set-cooldown-length", func(op *operation) error {
		err := op.requireAdmin(caller)
		if err != nil {
			return err
		}
		if d < 0 {
			return errors.InvalidRange.With("cooldown length must not be negative")
		}
		op.params.CooldownLength = d
		return putParams(op.ledger, op.params)
	})
}

// SetFunder sets the identity permitted to fund buckets besides the
// administrator.
func (e *Engine) SetFunder(caller, funder protocol.Identity) error {
	return e.update("set-funder", func(op *operation) error {
		err := op.requireAdmin(caller)
		if err != nil {
			return err
		}
		op.params.Funder = funder
		return putParams(op.ledger, op.params)
	})
}

// CreditAsset records value that arrived outside a tracked operation,
// such as a non-native asset accidentally sent to the engine.
func (e *Engine) CreditAsset(asset string, amount *big.Int) error {
	return e.update("credit-asset", func(op *operation) error {
		return op.custody.Credit(asset, amount)
	})
}

// RecoverForeignAsset releases a non-native asset to the administrator.
// Foreign assets are recoverable at any time.
func (e *Engine) RecoverForeignAsset(caller protocol.Identity, asset string, amount *big.Int) error {
	return e.update("recover-foreign", func(op *operation) error {
		err := op.requireAdmin(caller)
		if err != nil {
			return err
		}
		if asset == protocol.NativeAsset {
			return errors.Conflict.With("the native asset is not recoverable by this path")
		}
		return op.custody.Release(asset, caller, amount)
	})
}

// RecoverNative drains the entire residual native balance to the
// administrator. It is a last-resort sweep, permitted only after the
// program has fully closed and the recovery delay has elapsed.
func (e *Engine) RecoverNative(caller protocol.Identity) (*big.Int, error) {
	var swept *big.Int
	err := e.update("recover-native", func(op *operation) error {
		err := op.requireAdmin(caller)
		if err != nil {
			return err
		}

		closedAt, ok := op.params.Closed()
		if !ok && op.params.Mode == protocol.ModeSealed {
			season, err := op.ledger.Season()
			if err != nil {
				return err
			}
			if season.Finalized {
				closedAt, ok = season.ClosedAt, true
			}
		}
		if !ok {
			return errors.SweepLocked.With("the program has not closed")
		}
		if op.now.Before(closedAt.Add(protocol.NativeRecoveryDelay)) {
			return errors.SweepLocked.WithFormat("native recovery opens at %v", closedAt.Add(protocol.NativeRecoveryDelay))
		}

		swept, err = op.custody.Drain(protocol.NativeAsset, caller)
		return err
	})
	if err != nil {
		return nil, err
	}
	return swept, nil
}
