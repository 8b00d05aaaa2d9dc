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

package gormkv

import (
	"errors"

	"github.com/blinklabs-io/nevo/database/models"
	"github.com/blinklabs-io/nevo/database/types"
	"gorm.io/gorm"
)

// gormTxn wraps a GORM transaction and implements types.Txn
type gormTxn struct {
	store     *Store
	tx        *gorm.DB
	readWrite bool
	finished  bool
}

func (t *gormTxn) Commit() error {
	if t.finished {
		return nil
	}
	t.finished = true
	if !t.readWrite {
		return t.tx.Rollback().Error
	}
	return t.tx.Commit().Error
}

func (t *gormTxn) Rollback() error {
	if t.finished {
		return nil
	}
	t.finished = true
	return t.tx.Rollback().Error
}

func (s *Store) validateTxn(txn types.Txn) (*gormTxn, error) {
	if txn == nil {
		return nil, types.ErrNilTxn
	}
	gTxn, ok := txn.(*gormTxn)
	if !ok {
		return nil, types.ErrTxnWrongType
	}
	if gTxn.store != s {
		return nil, errors.New("transaction from different store")
	}
	if gTxn.finished {
		return nil, types.ErrTxnFinished
	}
	if gTxn.tx.Error != nil {
		return nil, errors.Join(types.ErrStoreUnavailable, gTxn.tx.Error)
	}
	return gTxn, nil
}

// gormIterator walks rows loaded by NewIterator
type gormIterator struct {
	err     error
	entries []models.KvEntry
	pos     int
}

func (it *gormIterator) Rewind()     { it.pos = 0 }
func (it *gormIterator) Valid() bool { return it.err == nil && it.pos < len(it.entries) }
func (it *gormIterator) Next()       { it.pos++ }
func (it *gormIterator) Close()      {}
func (it *gormIterator) Err() error  { return it.err }

func (it *gormIterator) Item() types.Item {
	if !it.Valid() {
		return nil
	}
	return &gormItem{entry: &it.entries[it.pos]}
}

type gormItem struct {
	entry *models.KvEntry
}

func (i *gormItem) Key() []byte {
	return append([]byte(nil), i.entry.EntryKey...)
}

func (i *gormItem) ValueCopy(dst []byte) ([]byte, error) {
	return append(dst[:0], i.entry.EntryValue...), nil
}
