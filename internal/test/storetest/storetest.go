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

// Package storetest holds behavior tests shared by every storage plugin
package storetest

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/nevo/database/types"
)

// NewStoreFunc returns an empty store. The store is closed by the caller
type NewStoreFunc func(t *testing.T) types.Store

// Run exercises the types.Store contract against stores built by newStore
func Run(t *testing.T, newStore NewStoreFunc) {
	t.Run("GetSetDelete", func(t *testing.T) {
		testGetSetDelete(t, newStore(t))
	})
	t.Run("RollbackDiscards", func(t *testing.T) {
		testRollbackDiscards(t, newStore(t))
	})
	t.Run("FinishedTxn", func(t *testing.T) {
		testFinishedTxn(t, newStore(t))
	})
	t.Run("PrefixIteration", func(t *testing.T) {
		testPrefixIteration(t, newStore(t))
	})
	t.Run("ReverseIteration", func(t *testing.T) {
		testReverseIteration(t, newStore(t))
	})
}

func closeStore(t *testing.T, store types.Store) {
	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
}

func testGetSetDelete(t *testing.T, store types.Store) {
	closeStore(t, store)
	txn := store.NewTransaction(true)
	_, err := store.Get(txn, []byte("missing"))
	require.ErrorIs(t, err, types.ErrKeyNotFound)
	require.NoError(t, store.Set(txn, []byte("k1"), []byte("v1")))
	// Read-your-writes inside the transaction
	val, err := store.Get(txn, []byte("k1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), val)
	require.NoError(t, store.Set(txn, []byte("k1"), []byte("v2")))
	require.NoError(t, txn.Commit())

	txn = store.NewTransaction(false)
	val, err = store.Get(txn, []byte("k1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), val)
	require.NoError(t, txn.Rollback())

	txn = store.NewTransaction(true)
	require.NoError(t, store.Delete(txn, []byte("k1")))
	require.NoError(t, txn.Commit())

	txn = store.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	_, err = store.Get(txn, []byte("k1"))
	require.ErrorIs(t, err, types.ErrKeyNotFound)
}

func testRollbackDiscards(t *testing.T, store types.Store) {
	closeStore(t, store)
	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("k"), []byte("v")))
	require.NoError(t, txn.Rollback())

	txn = store.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	_, err := store.Get(txn, []byte("k"))
	require.ErrorIs(t, err, types.ErrKeyNotFound)
}

func testFinishedTxn(t *testing.T, store types.Store) {
	closeStore(t, store)
	txn := store.NewTransaction(true)
	require.NoError(t, txn.Commit())
	// Finishing twice is harmless
	require.NoError(t, txn.Rollback())
	err := store.Set(txn, []byte("k"), []byte("v"))
	require.ErrorIs(t, err, types.ErrTxnFinished)
	_, err = store.Get(nil, []byte("k"))
	require.ErrorIs(t, err, types.ErrNilTxn)
	iter := store.NewIterator(txn, types.IteratorOptions{})
	defer iter.Close()
	iter.Rewind()
	assert.False(t, iter.Valid())
	assert.ErrorIs(t, iter.Err(), types.ErrTxnFinished)
}

func seed(t *testing.T, store types.Store) {
	txn := store.NewTransaction(true)
	for _, prefix := range []byte{1, 2, 3} {
		for i := range 5 {
			key := []byte{prefix, byte(i)}
			require.NoError(
				t,
				store.Set(txn, key, fmt.Appendf(nil, "%d-%d", prefix, i)),
			)
		}
	}
	require.NoError(t, txn.Commit())
}

func collect(t *testing.T, iter types.Iterator) [][]byte {
	defer iter.Close()
	var keys [][]byte
	for iter.Rewind(); iter.Valid(); iter.Next() {
		item := iter.Item()
		keys = append(keys, item.Key())
		_, err := item.ValueCopy(nil)
		require.NoError(t, err)
	}
	require.NoError(t, iter.Err())
	return keys
}

func testPrefixIteration(t *testing.T, store types.Store) {
	closeStore(t, store)
	seed(t, store)
	txn := store.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	keys := collect(
		t,
		store.NewIterator(txn, types.IteratorOptions{Prefix: []byte{2}}),
	)
	require.Len(t, keys, 5)
	for i, key := range keys {
		assert.Equal(t, []byte{2, byte(i)}, key)
	}
	all := collect(t, store.NewIterator(txn, types.IteratorOptions{}))
	assert.Len(t, all, 15)
}

func testReverseIteration(t *testing.T, store types.Store) {
	closeStore(t, store)
	seed(t, store)
	txn := store.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	keys := collect(
		t,
		store.NewIterator(
			txn,
			types.IteratorOptions{Prefix: []byte{2}, Reverse: true},
		),
	)
	require.Len(t, keys, 5)
	for i, key := range keys {
		assert.Equal(t, []byte{2, byte(4 - i)}, key)
	}
}
