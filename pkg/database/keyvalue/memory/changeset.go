// Copyright 2025 The Push Chain Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package memory

import (
	"github.com/pushchain/pc-yield-contracts/pkg/database/keyvalue"
	"github.com/pushchain/pc-yield-contracts/pkg/errors"
	"github.com/pushchain/pc-yield-contracts/pkg/record"
)

// An Entry is a pending key-value change.
type Entry struct {
	Key    *record.Key
	Value  []byte
	Delete bool
}

type GetFunc = func(*record.Key) ([]byte, error)
type CommitFunc = func(map[record.KeyHash]Entry) error
type ForEachFunc = func(func(*record.Key, []byte) error) error
type DiscardFunc = func()

// ChangeSetOptions are the options for [NewChangeSet].
type ChangeSetOptions struct {
	Prefix  *record.Key
	Get     GetFunc
	Commit  CommitFunc
	ForEach ForEachFunc
	Discard DiscardFunc
}

// A ChangeSet caches pending changes in a map so Get sees values updated
// with Put regardless of the behavior of the underlying store.
type ChangeSet struct {
	opts    ChangeSetOptions
	entries map[record.KeyHash]Entry
	done    bool
}

var _ keyvalue.ChangeSet = (*ChangeSet)(nil)

func NewChangeSet(opts ChangeSetOptions) *ChangeSet {
	return &ChangeSet{opts: opts}
}

// Begin begins a sub-change set.
func (c *ChangeSet) Begin(prefix *record.Key, writable bool) keyvalue.ChangeSet {
	var commit CommitFunc
	if writable && c.opts.Commit != nil {
		commit = func(entries map[record.KeyHash]Entry) error {
			for _, e := range entries {
				var err error
				if e.Delete {
					err = c.Delete(e.Key)
				} else {
					err = c.Put(e.Key, e.Value)
				}
				if err != nil {
					return err
				}
			}
			return nil
		}
	}
	return NewChangeSet(ChangeSetOptions{
		Prefix:  prefix,
		Get:     c.Get,
		Commit:  commit,
		ForEach: c.ForEach,
	})
}

// Get loads a value, preferring pending changes over the underlying store.
func (c *ChangeSet) Get(key *record.Key) ([]byte, error) {
	if c.done {
		return nil, errors.NotReady.With("change set is done")
	}

	key = c.opts.Prefix.AppendKey(key)
	if e, ok := c.entries[key.Hash()]; ok {
		if e.Delete {
			return nil, &keyvalue.NotFoundError{Key: key}
		}
		return e.Value, nil
	}

	if c.opts.Get == nil {
		return nil, &keyvalue.NotFoundError{Key: key}
	}
	return c.opts.Get(key)
}

// Put stages a value.
func (c *ChangeSet) Put(key *record.Key, value []byte) error {
	return c.record(Entry{Key: c.opts.Prefix.AppendKey(key), Value: value})
}

// Delete stages a deletion.
func (c *ChangeSet) Delete(key *record.Key) error {
	return c.record(Entry{Key: c.opts.Prefix.AppendKey(key), Delete: true})
}

func (c *ChangeSet) record(e Entry) error {
	if c.done {
		return errors.NotReady.With("change set is done")
	}
	if c.opts.Commit == nil {
		return errors.NotReady.With("change set is not writable")
	}
	if c.entries == nil {
		c.entries = map[record.KeyHash]Entry{}
	}
	c.entries[e.Key.Hash()] = e
	return nil
}

// ForEach iterates over the underlying store's entries and any pending
// changes. Deleted entries are skipped.
func (c *ChangeSet) ForEach(fn func(*record.Key, []byte) error) error {
	if c.done {
		return errors.NotReady.With("change set is done")
	}

	seen := map[record.KeyHash]bool{}
	for h, e := range c.entries {
		seen[h] = true
		if e.Delete {
			continue
		}
		err := fn(e.Key, e.Value)
		if err != nil {
			return err
		}
	}

	if c.opts.ForEach == nil {
		return nil
	}
	return c.opts.ForEach(func(key *record.Key, value []byte) error {
		if seen[key.Hash()] {
			return nil
		}
		return fn(key, value)
	})
}

// Commit commits pending changes to the underlying store.
func (c *ChangeSet) Commit() error {
	if c.done {
		return errors.NotReady.With("change set is done")
	}
	if c.opts.Commit == nil {
		return errors.NotReady.With("change set is not writable")
	}

	entries := c.entries
	c.entries = nil
	c.close()

	if len(entries) == 0 {
		return nil
	}
	return c.opts.Commit(entries)
}

// Discard discards pending changes.
func (c *ChangeSet) Discard() {
	if c.done {
		return
	}
	c.entries = nil
	c.close()
}

func (c *ChangeSet) close() {
	c.done = true
	if c.opts.Discard != nil {
		c.opts.Discard()
	}
}
