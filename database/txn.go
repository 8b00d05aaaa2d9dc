// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package database

import (
	"errors"
	"fmt"
	"sync"

	"github.com/blinklabs-io/nevo/database/types"
)

// Savepoint marks a position in a transaction that writes can be undone to
type Savepoint int

type journalEntry struct {
	key     []byte
	prev    []byte
	existed bool
}

// Txn wraps a store transaction. Read-write transactions journal the prior
// value of every written key, which allows nested operations to undo their
// own writes without discarding the whole transaction
type Txn struct {
	db        *Database
	txn       types.Txn
	journal   []journalEntry
	lock      sync.Mutex
	finished  bool
	readWrite bool
}

func NewTxn(db *Database, readWrite bool) *Txn {
	t := &Txn{db: db, readWrite: readWrite}
	if s := db.Store(); s != nil {
		t.txn = s.NewTransaction(readWrite)
	}
	return t
}

func (t *Txn) DB() *Database {
	return t.db
}

// ReadWrite returns whether the transaction allows writes
func (t *Txn) ReadWrite() bool {
	return t.readWrite
}

func (t *Txn) check(write bool) error {
	if t.finished {
		return types.ErrTxnFinished
	}
	if t.txn == nil {
		return types.ErrStoreUnavailable
	}
	if write && !t.readWrite {
		return types.ErrReadOnlyTxn
	}
	return nil
}

// GetRaw returns the stored value for a key, or types.ErrKeyNotFound
func (t *Txn) GetRaw(key types.Key) ([]byte, error) {
	if err := t.check(false); err != nil {
		return nil, err
	}
	return t.db.store.Get(t.txn, key.Bytes())
}

// Has reports whether a value is stored for a key
func (t *Txn) Has(key types.Key) (bool, error) {
	_, err := t.GetRaw(key)
	if err != nil {
		if errors.Is(err, types.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (t *Txn) record(rawKey []byte) error {
	prev, err := t.db.store.Get(t.txn, rawKey)
	if err != nil {
		if !errors.Is(err, types.ErrKeyNotFound) {
			return err
		}
		t.journal = append(t.journal, journalEntry{key: rawKey})
		return nil
	}
	t.journal = append(
		t.journal,
		journalEntry{key: rawKey, prev: prev, existed: true},
	)
	return nil
}

// SetRaw stores a value for a key
func (t *Txn) SetRaw(key types.Key, val []byte) error {
	if err := t.check(true); err != nil {
		return err
	}
	rawKey := key.Bytes()
	if err := t.record(rawKey); err != nil {
		return err
	}
	if err := t.db.store.Set(t.txn, rawKey, val); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete removes the value for a key. Deleting a missing key is not an error
func (t *Txn) Delete(key types.Key) error {
	if err := t.check(true); err != nil {
		return err
	}
	rawKey := key.Bytes()
	if err := t.record(rawKey); err != nil {
		return err
	}
	if err := t.db.store.Delete(t.txn, rawKey); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Savepoint returns a marker for the current write position
func (t *Txn) Savepoint() Savepoint {
	return Savepoint(len(t.journal))
}

// RollbackTo undoes every write made after the savepoint was taken
func (t *Txn) RollbackTo(sp Savepoint) error {
	if err := t.check(true); err != nil {
		return err
	}
	if int(sp) < 0 || int(sp) > len(t.journal) {
		return fmt.Errorf("invalid savepoint %d", sp)
	}
	for i := len(t.journal) - 1; i >= int(sp); i-- {
		entry := t.journal[i]
		var err error
		if entry.existed {
			err = t.db.store.Set(t.txn, entry.key, entry.prev)
		} else {
			err = t.db.store.Delete(t.txn, entry.key)
		}
		if err != nil {
			return fmt.Errorf("undo write to %x: %w", entry.key, err)
		}
	}
	t.journal = t.journal[:sp]
	return nil
}

// Iterate calls fn for every stored key of the given kind, in key order
func (t *Txn) Iterate(
	kind types.KeyKind,
	fn func(key []byte, val []byte) error,
) error {
	if err := t.check(false); err != nil {
		return err
	}
	prefix := kind.Prefix()
	iter := t.db.store.NewIterator(
		t.txn,
		types.IteratorOptions{Prefix: prefix},
	)
	defer iter.Close()
	for iter.Rewind(); iter.Valid(); iter.Next() {
		item := iter.Item()
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := fn(item.Key(), val); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Do executes the specified function in the context of the transaction. Any errors returned will result
// in the transaction being rolled back
func (t *Txn) Do(fn func(*Txn) error) error {
	if err := fn(t); err != nil {
		if err2 := t.Rollback(); err2 != nil {
			return fmt.Errorf(
				"rollback failed: %w: original error: %w",
				err2,
				err,
			)
		}
		return err
	}
	if err := t.Commit(); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

func (t *Txn) Commit() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.finished {
		return nil
	}
	if t.txn == nil {
		t.finished = true
		return types.ErrStoreUnavailable
	}
	// No need to commit for read-only, but we do want to free up resources
	if !t.readWrite {
		return t.rollback()
	}
	t.finished = true
	t.journal = nil
	if err := t.txn.Commit(); err != nil {
		return err
	}
	return nil
}

func (t *Txn) Rollback() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.rollback()
}

func (t *Txn) rollback() error {
	if t.finished {
		return nil
	}
	t.finished = true
	t.journal = nil
	if t.txn == nil {
		return nil
	}
	return t.txn.Rollback()
}

// Release releases transaction resources. For read-write transactions, this
// is equivalent to Rollback. Errors are logged but not returned, making this
// safe for deferred calls
func (t *Txn) Release() {
	if err := t.Rollback(); err != nil {
		t.db.logger.Debug(
			"transaction release failed",
			"component", "database",
			"error", err,
			"read_write", t.readWrite,
		)
	}
}
