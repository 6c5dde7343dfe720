// Copyright 2025 The Push Chain Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package keyvalue

import (
	"fmt"

	"github.com/pushchain/pc-yield-contracts/pkg/errors"
	"github.com/pushchain/pc-yield-contracts/pkg/record"
)

// A Store reads and writes key-value entries.
type Store interface {
	// Get loads a value.
	Get(key *record.Key) ([]byte, error)

	// Put stores a value.
	Put(key *record.Key, value []byte) error

	// Delete deletes a key-value entry.
	Delete(key *record.Key) error

	// ForEach iterates over each key-value entry.
	ForEach(fn func(*record.Key, []byte) error) error
}

// ChangeSet is a key-value change set.
type ChangeSet interface {
	Store
	Beginner

	// Commit commits pending changes.
	Commit() error

	// Discard discards pending changes.
	Discard()
}

// A Beginner can begin key-value change sets.
type Beginner interface {
	// Begin begins a transaction or sub-transaction with a prefix applied to keys.
	Begin(prefix *record.Key, writable bool) ChangeSet
}

// NotFoundError is returned when a key-value entry does not exist.
type NotFoundError struct {
	Key *record.Key
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%v not found", e.Key) }

func (e *NotFoundError) Unwrap() error { return errors.NotFound }
