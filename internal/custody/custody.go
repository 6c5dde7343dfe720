// Copyright 2025 The Push Chain Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

// Package custody tracks the value held by the engine and releases it
// through an outbound transfer collaborator.
package custody

import (
	"encoding/json"
	"math/big"

	"github.com/pushchain/pc-yield-contracts/pkg/database/keyvalue"
	"github.com/pushchain/pc-yield-contracts/pkg/errors"
	"github.com/pushchain/pc-yield-contracts/pkg/record"
	"github.com/pushchain/pc-yield-contracts/protocol"
)

// A Transferor performs outbound value transfers. A transfer failure must
// abort the whole operation, so the engine commits its change set only
// after every transfer of the operation has succeeded.
type Transferor interface {
	Transfer(asset string, to protocol.Identity, amount *big.Int) error
}

// A Guard holds the engine's balance per asset: the native asset plus any
// non-native assets accidentally sent to the engine.
type Guard struct {
	store keyvalue.Store
	out   Transferor
}

func New(store keyvalue.Store, out Transferor) *Guard {
	return &Guard{store: store, out: out}
}

func balanceKey(asset string) *record.Key {
	return record.NewKey("Custody", asset)
}

// Balance returns the held balance of an asset.
func (g *Guard) Balance(asset string) (*big.Int, error) {
	b, err := g.store.Get(balanceKey(asset))
	switch {
	case err == nil:
		// Ok
	case errors.Is(err, errors.NotFound):
		return new(big.Int), nil
	default:
		return nil, errors.UnknownError.Wrap(err)
	}

	balance := new(big.Int)
	err = json.Unmarshal(b, balance)
	if err != nil {
		return nil, errors.EncodingError.WithFormat("decode balance of %s: %w", asset, err)
	}
	return balance, nil
}

func (g *Guard) putBalance(asset string, balance *big.Int) error {
	b, err := json.Marshal(balance)
	if err != nil {
		return errors.EncodingError.WithFormat("encode balance of %s: %w", asset, err)
	}
	return g.store.Put(balanceKey(asset), b)
}

// Credit accepts value into custody.
func (g *Guard) Credit(asset string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return errors.ZeroAmount.With("credit amount must be positive")
	}
	balance, err := g.Balance(asset)
	if err != nil {
		return err
	}
	return g.putBalance(asset, balance.Add(balance, amount))
}

// Release debits the balance, then performs the outbound transfer. The
// debit happens first so a re-entered operation cannot observe funds that
// are already on their way out.
func (g *Guard) Release(asset string, to protocol.Identity, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return errors.ZeroAmount.With("release amount must be positive")
	}

	balance, err := g.Balance(asset)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return errors.InsufficientBalance.WithFormat("release %v exceeds held balance %v of %s", amount, balance, asset)
	}
	err = g.putBalance(asset, balance.Sub(balance, amount))
	if err != nil {
		return err
	}

	err = g.out.Transfer(asset, to, amount)
	if err != nil {
		return errors.TransferFailed.WithFormat("transfer %v %s to %s: %w", amount, asset, to, err)
	}
	return nil
}

// Drain releases the entire residual balance of an asset.
func (g *Guard) Drain(asset string, to protocol.Identity) (*big.Int, error) {
	balance, err := g.Balance(asset)
	if err != nil {
		return nil, err
	}
	if balance.Sign() == 0 {
		return nil, errors.NoEntitlement.WithFormat("no held balance of %s", asset)
	}
	return balance, g.Release(asset, to, balance)
}
