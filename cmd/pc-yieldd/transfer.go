// Copyright 2025 The Push Chain Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"encoding/json"
	"math/big"
	"os"
	"time"

	"github.com/pushchain/pc-yield-contracts/internal/custody"
	"github.com/pushchain/pc-yield-contracts/pkg/errors"
	"github.com/pushchain/pc-yield-contracts/protocol"
)

// A settlementLog records outbound transfers as JSON lines in an
// append-only file. Settlement against the chain is driven from that file
// by external tooling. Each line is fsynced before the transfer is
// reported successful, since the engine treats a reported transfer as
// done.
type settlementLog struct {
	file *os.File
}

var _ custody.Transferor = (*settlementLog)(nil)

func openSettlementLog(path string) (*settlementLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.UnknownError.WithFormat("open settlement log: %w", err)
	}
	return &settlementLog{file: f}, nil
}

func (s *settlementLog) Close() error { return s.file.Close() }

func (s *settlementLog) Transfer(asset string, to protocol.Identity, amount *big.Int) error {
	b, err := json.Marshal(struct {
		Time   time.Time `json:"time"`
		Asset  string    `json:"asset"`
		To     string    `json:"to"`
		Amount *big.Int  `json:"amount"`
	}{time.Now().UTC(), asset, string(to), amount})
	if err != nil {
		return errors.EncodingError.Wrap(err)
	}

	_, err = s.file.Write(append(b, '\n'))
	if err != nil {
		return errors.UnknownError.WithFormat("write settlement log: %w", err)
	}
	err = s.file.Sync()
	if err != nil {
		return errors.UnknownError.WithFormat("sync settlement log: %w", err)
	}
	return nil
}
