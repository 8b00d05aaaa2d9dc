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

package sqlite

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/nevo/database/types"
	"github.com/blinklabs-io/nevo/internal/test/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) types.Store {
		store, err := New("", nil, nil)
		require.NoError(t, err)
		return store
	})
}

func TestInMemoryStoresIsolated(t *testing.T) {
	store1, err := New("", nil, nil)
	require.NoError(t, err)
	defer store1.Close() //nolint:errcheck
	store2, err := New("", nil, nil)
	require.NoError(t, err)
	defer store2.Close() //nolint:errcheck

	txn := store1.NewTransaction(true)
	require.NoError(t, store1.Set(txn, []byte("k"), []byte("v")))
	require.NoError(t, txn.Commit())

	txn = store2.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	_, err = store2.Get(txn, []byte("k"))
	require.ErrorIs(t, err, types.ErrKeyNotFound)
}

func TestStoreOnDisk(t *testing.T) {
	dataDir := t.TempDir()
	store, err := New(dataDir, nil, nil)
	require.NoError(t, err)
	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte{1, 2}, []byte("v")))
	require.NoError(t, txn.Commit())
	require.NoError(t, store.runVacuum())
	require.NoError(t, store.Close())

	store, err = New(dataDir, nil, nil)
	require.NoError(t, err)
	defer store.Close() //nolint:errcheck
	assert.Equal(t, dataDir, store.DataDir())
	txn = store.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	val, err := store.Get(txn, []byte{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), val)
}

func TestReadOnlyTxnRejectsWrites(t *testing.T) {
	store, err := New("", nil, nil)
	require.NoError(t, err)
	defer store.Close() //nolint:errcheck
	txn := store.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	require.ErrorIs(
		t,
		store.Set(txn, []byte("k"), []byte("v")),
		types.ErrReadOnlyTxn,
	)
	require.ErrorIs(t, store.Delete(txn, []byte("k")), types.ErrReadOnlyTxn)
}

func TestMetricsRegistered(t *testing.T) {
	registry := prometheus.NewRegistry()
	store, err := New("", nil, registry)
	require.NoError(t, err)
	defer store.Close() //nolint:errcheck
	families, err := registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
