// Copyright 2025 The Push Chain Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package record

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// A Key is the key for a record.
type Key struct {
	values []any
}

// A KeyHash is the hash of a record key, used as the storage key.
type KeyHash [32]byte

func NewKey(v ...any) *Key {
	return &Key{v}
}

// KeyFromHash returns a key whose sole value is the given precomputed hash.
func KeyFromHash(h KeyHash) *Key {
	return &Key{[]any{h}}
}

func (k *Key) Len() int {
	if k == nil {
		return 0
	}
	return len(k.values)
}

func (k *Key) Get(i int) any {
	if i < 0 || i >= k.Len() {
		return nil
	}
	return k.values[i]
}

// Append creates a child key of this key.
func (k *Key) Append(v ...any) *Key {
	if len(v) == 0 {
		return k
	}
	if k.Len() == 0 {
		return &Key{v}
	}
	l := make([]any, len(k.values)+len(v))
	n := copy(l, k.values)
	copy(l[n:], v)
	return &Key{l}
}

// AppendKey appends one key to another. AppendKey will panic if K is not
// empty and L starts with a precomputed [KeyHash].
func (k *Key) AppendKey(l *Key) *Key {
	if k.Len() == 0 {
		return l
	}
	if l.Len() == 0 {
		return k
	}
	if _, ok := l.values[0].(KeyHash); ok {
		panic("cannot append a precomputed key hash to another key")
	}
	return k.Append(l.values...)
}

// Hash converts the record key to a storage key.
func (k *Key) Hash() KeyHash {
	if k.Len() == 0 {
		return KeyHash{}
	}

	// If the first value is a KeyHash, append to that
	if h, ok := k.values[0].(KeyHash); ok {
		return h.append(k.values[1:]...)
	}
	return (KeyHash{}).append(k.values...)
}

func (h KeyHash) append(v ...any) KeyHash {
	for _, v := range v {
		hasher := sha256.New()
		hasher.Write(h[:])
		hasher.Write(partBytes(v))
		copy(h[:], hasher.Sum(nil))
	}
	return h
}

func partBytes(v any) []byte {
	switch v := v.(type) {
	case []byte:
		return v
	case [32]byte:
		return v[:]
	case KeyHash:
		return v[:]
	case string:
		return []byte(v)
	case int:
		return uintBytes(uint64(v))
	case uint64:
		return uintBytes(v)
	case int64:
		return uintBytes(uint64(v))
	case time.Time:
		return uintBytes(uint64(v.UTC().Unix()))
	default:
		return []byte(fmt.Sprint(v))
	}
}

func uintBytes(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

// String returns a human-readable string for the key.
func (k *Key) String() string {
	if k.Len() == 0 {
		return "()"
	}
	s := make([]string, len(k.values))
	for i, v := range k.values {
		switch v := v.(type) {
		case []byte:
			s[i] = hex.EncodeToString(v)
		case [32]byte:
			s[i] = hex.EncodeToString(v[:])
		case KeyHash:
			s[i] = hex.EncodeToString(v[:])
		case string:
			s[i] = v
		default:
			s[i] = fmt.Sprint(v)
		}
	}
	return strings.Join(s, ".")
}

// Copy returns a copy of the key.
func (k *Key) Copy() *Key {
	if k == nil {
		return nil
	}
	l := make([]any, len(k.values))
	copy(l, k.values)
	return &Key{l}
}

// Equal checks if the two keys are equal.
func (k *Key) Equal(l *Key) bool {
	if k.Len() != l.Len() {
		return false
	}
	if k == nil || l == nil {
		return k.Len() == 0 && l.Len() == 0
	}
	return k.Hash() == l.Hash()
}
