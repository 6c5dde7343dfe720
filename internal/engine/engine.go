// Copyright 2025 The Push Chain Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

// Package engine exposes the public operations of the yield engine.
//
// Every state-changing operation executes atomically with respect to every
// other: one mutex serializes them, each runs in its own change set, and
// the change set is committed only after every outbound transfer of the
// operation has succeeded. A failed transfer discards the change set, so
// each operation is all-or-nothing and funds are never marked released
// without being sent.
package engine

import (
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/pushchain/pc-yield-contracts/internal/accrual"
	"github.com/pushchain/pc-yield-contracts/internal/admission"
	"github.com/pushchain/pc-yield-contracts/internal/custody"
	"github.com/pushchain/pc-yield-contracts/internal/ledger"
	"github.com/pushchain/pc-yield-contracts/internal/logging"
	"github.com/pushchain/pc-yield-contracts/pkg/database/keyvalue"
	"github.com/pushchain/pc-yield-contracts/pkg/errors"
	"github.com/pushchain/pc-yield-contracts/pkg/record"
	"github.com/pushchain/pc-yield-contracts/protocol"
)

// A Clock is the engine's time source. Lock, cooldown, epoch and season
// deadlines are comparisons against this clock, not scheduler-driven.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Options are the collaborators of an [Engine].
type Options struct {
	// Database is the engine's transactional store.
	Database keyvalue.Beginner

	// Transferor performs outbound value transfers.
	Transferor custody.Transferor

	// Clock is the time source. Defaults to the wall clock.
	Clock Clock

	// Logger receives operation logs. Defaults to slog.Default.
	Logger *slog.Logger
}

// An Engine is one deployment of the yield engine.
type Engine struct {
	mu       sync.Mutex
	db       keyvalue.Beginner
	out      custody.Transferor
	clock    Clock
	logger   *slog.Logger
	params   *protocol.Params
	accrual  accrual.Engine
	verifier *admission.Verifier
}

var paramsKey = record.NewKey("Params")

// New opens an engine. On first open the given parameters are validated
// and persisted; on subsequent opens the persisted parameters win, so
// administrator changes survive a restart.
func New(params *protocol.Params, opts Options) (*Engine, error) {
	e := new(Engine)
	e.db = opts.Database
	e.out = opts.Transferor
	e.clock = opts.Clock
	if e.clock == nil {
		e.clock = realClock{}
	}
	e.logger = logging.With(opts.Logger, "engine")

	batch := e.db.Begin(nil, true)
	defer batch.Discard()

	stored := new(protocol.Params)
	l := ledger.New(batch, nil)
	ok, err := loadParams(l, stored)
	if err != nil {
		return nil, err
	}
	if ok {
		e.params = stored
	} else {
		err = params.Validate()
		if err != nil {
			return nil, err
		}
		e.params = params
		err = putParams(l, params)
		if err != nil {
			return nil, err
		}
		err = batch.Commit()
		if err != nil {
			return nil, errors.UnknownError.Wrap(err)
		}
	}

	e.accrual = accrual.New(e.params)
	e.verifier = admission.NewVerifier(e.params.Mode)
	e.logger.Info("Engine open", "mode", e.params.Mode, "genesis", e.params.Genesis)
	return e, nil
}

// An operation is the context of one public operation: a ledger and a
// custody guard over the operation's change set, and the time it began.
type operation struct {
	ledger  *ledger.Ledger
	custody *custody.Guard
	params  *protocol.Params
	now     time.Time
}

// update runs fn against a writable change set and commits it if fn
// succeeds. Any error - including a transfer failure - discards the change
// set, rolling back every mutation of the operation.
func (e *Engine) update(name string, fn func(*operation) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	batch := e.db.Begin(nil, true)
	defer batch.Discard()

	// Admin setters mutate a copy; the shared parameters are only replaced
	// once the change set commits
	params := new(protocol.Params)
	*params = *e.params

	op := &operation{
		ledger:  ledger.New(batch, params),
		custody: custody.New(batch, e.out),
		params:  params,
		now:     e.clock.Now(),
	}

	err := fn(op)
	if err != nil {
		mOperations.WithLabelValues(name, errors.Code(err).String()).Inc()
		e.logger.Debug("Operation rejected", "op", name, "error", err)
		return err
	}

	err = batch.Commit()
	if err != nil {
		mOperations.WithLabelValues(name, errors.NotReady.String()).Inc()
		return errors.UnknownError.Wrap(err)
	}

	*e.params = *params
	mOperations.WithLabelValues(name, errors.OK.String()).Inc()
	return nil
}

// view runs fn against a read-only change set.
func (e *Engine) view(fn func(*operation) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	batch := e.db.Begin(nil, false)
	defer batch.Discard()

	op := &operation{
		ledger:  ledger.New(batch, e.params),
		custody: custody.New(batch, e.out),
		params:  e.params,
		now:     e.clock.Now(),
	}
	return fn(op)
}

func loadParams(l *ledger.Ledger, params *protocol.Params) (bool, error) {
	return l.Load(paramsKey, params)
}

func putParams(l *ledger.Ledger, params *protocol.Params) error {
	return l.Put(paramsKey, params)
}

// Params returns a copy of the current parameters.
func (e *Engine) Params() protocol.Params {
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.params
}

// Balance returns the held custody balance of an asset.
func (e *Engine) Balance(asset string) (*big.Int, error) {
	var balance *big.Int
	err := e.view(func(op *operation) error {
		var err error
		balance, err = op.custody.Balance(asset)
		return err
	})
	return balance, err
}
