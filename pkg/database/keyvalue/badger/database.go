// Copyright 2025 The Push Chain Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package badger

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/pushchain/pc-yield-contracts/pkg/database/keyvalue"
	"github.com/pushchain/pc-yield-contracts/pkg/database/keyvalue/memory"
	"github.com/pushchain/pc-yield-contracts/pkg/errors"
	"github.com/pushchain/pc-yield-contracts/pkg/record"
)

// TruncateBadger controls whether Badger is configured to truncate
// corrupted data. Especially on Windows, if the process is terminated
// abruptly, setting this may be necessary to recover the state of the
// database.
var TruncateBadger = false

type Database struct {
	badger *badger.DB
	ready  bool
	mu     sync.RWMutex
}

var _ keyvalue.Beginner = (*Database)(nil)

func New(filepath string) (*Database, error) {
	// Make sure all directories exist
	err := os.MkdirAll(filepath, 0700)
	if err != nil {
		return nil, errors.UnknownError.WithFormat("open badger: create %q: %w", filepath, err)
	}

	opts := badger.DefaultOptions(filepath)
	opts = opts.WithLogger(Slogger{})

	// Truncate corrupted data
	if TruncateBadger {
		opts = opts.WithTruncate(true)
	}

	d := new(Database)
	d.ready = true

	// Open Badger
	d.badger, err = badger.Open(opts)
	if err != nil {
		return nil, err
	}
	mDbOpen.Inc()

	// Run GC every hour
	go d.gc()

	return d, nil
}

func (d *Database) key(key *record.Key) []byte {
	h := key.Hash()
	return h[:]
}

// Begin begins a change set.
func (d *Database) Begin(prefix *record.Key, writable bool) keyvalue.ChangeSet {
	// Use a read-only transaction for reading
	rd := d.badger.NewTransaction(false)

	// Read from the transaction
	get := func(key *record.Key) ([]byte, error) {
		item, err := rd.Get(d.key(key))
		switch {
		case err == nil:
			// Ok
		case errors.Is(err, badger.ErrKeyNotFound):
			return nil, &keyvalue.NotFoundError{Key: key}
		default:
			return nil, err
		}

		v, err := item.ValueCopy(nil)
		switch {
		case err == nil:
			return v, nil
		case errors.Is(err, badger.ErrKeyNotFound):
			return nil, &keyvalue.NotFoundError{Key: key}
		default:
			return nil, errors.UnknownError.WithFormat("get %v: %w", key, err)
		}
	}

	// Commit to a write batch
	var commit memory.CommitFunc
	if writable {
		commit = func(entries map[record.KeyHash]memory.Entry) error {
			l, err := d.lock(false)
			if err != nil {
				return err
			}
			defer l.Unlock()

			// Use a write batch for writing to work around Badger's
			// transaction size limits
			wr := d.badger.NewWriteBatch()

			for _, e := range entries {
				if e.Delete {
					err = wr.Delete(d.key(e.Key))
				} else {
					err = wr.Set(d.key(e.Key), e.Value)
				}
				if err != nil {
					return err
				}
			}

			mCommit.Inc()
			return wr.Flush()
		}
	}

	forEach := func(fn func(*record.Key, []byte) error) error {
		it := rd.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			key := record.KeyFromHash(record.KeyHash(*(*[32]byte)(item.Key())))
			err = fn(key, value)
			if err != nil {
				return err
			}
		}
		return nil
	}

	// The memory changeset caches entries in a map so Get will see values
	// updated with Put, regardless of the underlying transaction and write
	// batch behavior
	return memory.NewChangeSet(memory.ChangeSetOptions{
		Prefix:  prefix,
		Get:     get,
		Commit:  commit,
		ForEach: forEach,
		Discard: rd.Discard,
	})
}

// Close
// Close the underlying database
func (d *Database) Close() error {
	if l, err := d.lock(true); err != nil {
		return err
	} else {
		defer l.Unlock()
	}

	d.ready = false
	mDbOpen.Dec()
	return d.badger.Close()
}

func (d *Database) gc() {
	for {
		// GC every hour
		time.Sleep(time.Hour)

		// Still open?
		l, err := d.lock(false)
		if err != nil {
			return
		}

		// Run GC if 50% space could be reclaimed
		start := time.Now()
		err = d.badger.RunValueLogGC(0.5)
		if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
			slog.Error("Badger GC failed", "error", err, "module", "badger")
		} else {
			mGcRun.Inc()
			mGcDuration.Set(time.Since(start).Seconds())
		}

		// Release the lock
		l.Unlock()
	}
}

// lock acquires a lock on the ready mutex and checks for readiness. This
// prevents race conditions between Get/Put and Close, which can cause
// panics.
func (d *Database) lock(closing bool) (sync.Locker, error) {
	var l sync.Locker = &d.mu
	if !closing {
		l = d.mu.RLocker()
	}

	l.Lock()
	if !d.ready {
		l.Unlock()
		return nil, errors.NotReady
	}

	return l, nil
}
