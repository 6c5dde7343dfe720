// Copyright 2025 The Push Chain Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package protocol

import (
	"time"

	"github.com/pushchain/pc-yield-contracts/pkg/errors"
	"github.com/pushchain/pc-yield-contracts/pkg/merkle"
)

// NativeRecoveryDelay is the additional delay after program close before
// the administrator may sweep the residual native balance.
const NativeRecoveryDelay = 30 * 24 * time.Hour

// Params are the deployment parameters of the engine. Mode, Genesis,
// EpochLength and SeasonEnd are fixed at deployment; the lock and cooldown
// lengths, the allowlist root and the funder are administrator-mutable.
type Params struct {
	Mode    Mode      `json:"mode"`
	Genesis time.Time `json:"genesis"`

	// EpochLength is the fixed epoch length (rolling mode).
	EpochLength time.Duration `json:"epochLength,omitempty"`

	// SeasonEnd is the end of the season (sealed mode).
	SeasonEnd time.Time `json:"seasonEnd,omitempty"`

	LockLength     time.Duration `json:"lockLength"`
	CooldownLength time.Duration `json:"cooldownLength"`

	AllowlistRoot merkle.Hash `json:"allowlistRoot"`

	Admin  Identity `json:"admin"`
	Funder Identity `json:"funder,omitempty"`

	// ProgramEnd marks the rolling program as closed (zero = still open).
	ProgramEnd time.Time `json:"programEnd,omitempty"`
}

// Validate checks the parameters for internal consistency.
func (p *Params) Validate() error {
	switch p.Mode {
	case ModeRolling:
		if p.EpochLength <= 0 {
			return errors.UnknownError.With("epoch length must be positive")
		}
	case ModeSealed:
		if p.SeasonEnd.IsZero() {
			return errors.UnknownError.With("season end must be set")
		}
	default:
		return errors.UnknownError.WithFormat("invalid mode %d", p.Mode)
	}
	if p.Genesis.IsZero() {
		return errors.UnknownError.With("genesis must be set")
	}
	if p.Admin == "" {
		return errors.UnknownError.With("admin must be set")
	}
	if p.LockLength < 0 || p.CooldownLength < 0 {
		return errors.UnknownError.With("lock and cooldown lengths must not be negative")
	}
	return nil
}

// EpochIndex returns the epoch active at the given time: elapsed time
// since genesis divided by the epoch length, plus one. Times before
// genesis map to epoch one.
func (p *Params) EpochIndex(now time.Time) uint64 {
	if !now.After(p.Genesis) {
		return 1
	}
	return uint64(now.Sub(p.Genesis)/p.EpochLength) + 1
}

// EpochStart returns the start of an epoch.
func (p *Params) EpochStart(index uint64) time.Time {
	if index <= 1 {
		return p.Genesis
	}
	return p.Genesis.Add(time.Duration(index-1) * p.EpochLength)
}

// SeasonOver returns true once the season has ended (sealed mode).
func (p *Params) SeasonOver(now time.Time) bool {
	return !now.Before(p.SeasonEnd)
}

// Closed returns the time the program fully closed, or false if it is
// still open. For the sealed mode the caller passes the season snapshot's
// close time.
func (p *Params) Closed() (time.Time, bool) {
	if p.Mode == ModeRolling && !p.ProgramEnd.IsZero() {
		return p.ProgramEnd, true
	}
	return time.Time{}, false
}
