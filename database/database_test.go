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

package database_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/nevo/database"
	"github.com/blinklabs-io/nevo/database/models"
	"github.com/blinklabs-io/nevo/database/types"
	"github.com/blinklabs-io/nevo/ledger/common"
)

var testPlugins = []string{"badger", "sqlite"}

func newTestDatabase(t *testing.T, pluginName string) *database.Database {
	t.Helper()
	db, err := database.New(&database.Config{
		DataDir:       "",
		StoragePlugin: pluginName,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, db.Close())
	})
	return db
}

func forEachPlugin(t *testing.T, fn func(t *testing.T, db *database.Database)) {
	for _, name := range testPlugins {
		t.Run(name, func(t *testing.T) {
			fn(t, newTestDatabase(t, name))
		})
	}
}

func TestUnknownPlugin(t *testing.T) {
	_, err := database.New(&database.Config{StoragePlugin: "nope"})
	require.Error(t, err)
}

func TestCommitAndRollback(t *testing.T) {
	forEachPlugin(t, func(t *testing.T, db *database.Database) {
		key := types.CreationFeeKey()
		txn := db.Transaction(true)
		require.NoError(t, txn.SetAmount(key, common.NewAmount(5)))
		require.NoError(t, txn.Commit())

		txn = db.Transaction(true)
		require.NoError(t, txn.SetAmount(key, common.NewAmount(9)))
		require.NoError(t, txn.Rollback())

		txn = db.Transaction(false)
		defer txn.Release()
		amt, err := txn.GetAmount(key)
		require.NoError(t, err)
		assert.Equal(t, "5", amt.String())
	})
}

func TestSavepoint(t *testing.T) {
	forEachPlugin(t, func(t *testing.T, db *database.Database) {
		txn := db.Transaction(true)
		defer txn.Release()
		kept := types.AdminKey()
		changed := types.CreationFeeKey()
		added := types.PausedKey()
		require.NoError(t, txn.SetAddress(kept, "admin"))
		require.NoError(t, txn.SetAmount(changed, common.NewAmount(1)))

		sp := txn.Savepoint()
		require.NoError(t, txn.SetAmount(changed, common.NewAmount(2)))
		require.NoError(t, txn.SetFlag(added, true))
		require.NoError(t, txn.Delete(kept))
		require.NoError(t, txn.RollbackTo(sp))

		admin, err := txn.GetAddress(kept)
		require.NoError(t, err)
		assert.Equal(t, common.Address("admin"), admin)
		amt, err := txn.GetAmount(changed)
		require.NoError(t, err)
		assert.Equal(t, "1", amt.String())
		paused, err := txn.GetFlag(added)
		require.NoError(t, err)
		assert.False(t, paused)

		require.Error(t, txn.RollbackTo(sp+1))
	})
}

func TestNestedSavepoints(t *testing.T) {
	db := newTestDatabase(t, "badger")
	txn := db.Transaction(true)
	defer txn.Release()
	key := types.GlobalTotalRaisedKey()
	outer := txn.Savepoint()
	_, err := txn.AddAmount(key, common.NewAmount(10))
	require.NoError(t, err)
	inner := txn.Savepoint()
	_, err = txn.AddAmount(key, common.NewAmount(5))
	require.NoError(t, err)
	require.NoError(t, txn.RollbackTo(inner))
	amt, err := txn.GetAmount(key)
	require.NoError(t, err)
	assert.Equal(t, "10", amt.String())
	require.NoError(t, txn.RollbackTo(outer))
	ok, err := txn.Has(key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFinishedAndReadOnlyTxn(t *testing.T) {
	db := newTestDatabase(t, "badger")
	txn := db.Transaction(false)
	require.ErrorIs(t, txn.SetFlag(types.PausedKey(), true), types.ErrReadOnlyTxn)
	require.NoError(t, txn.Commit())
	_, err := txn.GetFlag(types.PausedKey())
	require.ErrorIs(t, err, types.ErrTxnFinished)
	// Finishing twice is a no-op
	require.NoError(t, txn.Rollback())
}

func TestDoRollsBackOnError(t *testing.T) {
	db := newTestDatabase(t, "badger")
	key := types.PoolsPausedKey()
	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		if err := txn.SetFlag(key, true); err != nil {
			return err
		}
		return common.ErrInvalidAmount
	})
	require.ErrorIs(t, err, common.ErrInvalidAmount)
	txn := db.Transaction(false)
	defer txn.Release()
	paused, err := txn.GetFlag(key)
	require.NoError(t, err)
	assert.False(t, paused)
}

func TestCodecDefaults(t *testing.T) {
	db := newTestDatabase(t, "badger")
	txn := db.Transaction(true)
	defer txn.Release()

	amt, err := txn.GetAmount(types.PlatformFeesKey("usdc"))
	require.NoError(t, err)
	assert.True(t, amt.IsZero())
	rate, err := txn.GetUint(types.PlatformFeeRateKey())
	require.NoError(t, err)
	assert.Zero(t, rate)
	list, err := txn.GetCampaignIDList(types.AllCampaignsKey())
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = txn.GetAddress(types.AdminKey())
	require.ErrorIs(t, err, types.ErrKeyNotFound)
	_, err = txn.GetPool(1)
	require.ErrorIs(t, err, types.ErrKeyNotFound)
	_, err = txn.GetDisbursement(1, 1)
	require.ErrorIs(t, err, types.ErrKeyNotFound)
	_, err = txn.GetEmergencyWithdrawal()
	require.ErrorIs(t, err, types.ErrKeyNotFound)

	state, err := txn.GetPoolState(1)
	require.NoError(t, err)
	assert.Equal(t, common.PoolStateActive, state)
	metrics, err := txn.GetPoolMetrics(1)
	require.NoError(t, err)
	assert.True(t, metrics.TotalRaised.IsZero())
}

func TestSetFlagFalseDeletes(t *testing.T) {
	db := newTestDatabase(t, "badger")
	txn := db.Transaction(true)
	defer txn.Release()
	key := types.VerifiedCauseKey("cause")
	require.NoError(t, txn.SetFlag(key, true))
	ok, err := txn.Has(key)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, txn.SetFlag(key, false))
	ok, err = txn.Has(key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNextSequence(t *testing.T) {
	db := newTestDatabase(t, "badger")
	txn := db.Transaction(true)
	defer txn.Release()
	for want := uint64(1); want <= 3; want++ {
		got, err := txn.NextSequence(types.NextPoolIDKey())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	// Sequences are independent per key
	got, err := txn.NextSequence(types.NextDisbursementIDKey(7))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got)
}

func TestListPools(t *testing.T) {
	forEachPlugin(t, func(t *testing.T, db *database.Database) {
		txn := db.Transaction(true)
		defer txn.Release()
		// Insert out of order; iteration follows the big-endian key order
		for _, id := range []common.PoolID{3, 1, 256} {
			require.NoError(t, txn.SetPool(&models.Pool{
				ID:       id,
				Name:     "pool",
				Creator:  "creator",
				Target:   common.NewAmount(100),
				Duration: 10,
			}))
		}
		require.NoError(t, txn.SetPoolState(1, common.PoolStateClosed))
		pools, err := txn.ListPools()
		require.NoError(t, err)
		require.Len(t, pools, 3)
		assert.Equal(t, common.PoolID(1), pools[0].ID)
		assert.Equal(t, common.PoolID(3), pools[1].ID)
		assert.Equal(t, common.PoolID(256), pools[2].ID)
		assert.Equal(t, "100", pools[2].Target.String())
	})
}

func TestCampaignRoundTrip(t *testing.T) {
	db := newTestDatabase(t, "badger")
	id := common.CampaignID{0xaa}
	txn := db.Transaction(true)
	require.NoError(t, txn.SetCampaign(&models.Campaign{
		ID:          id,
		Title:       "Clean water",
		Creator:     "creator",
		Goal:        common.NewAmount(500),
		Deadline:    2000,
		TotalRaised: common.NewAmount(20),
		Token:       "usdc",
		CreatedAt:   1000,
	}))
	require.NoError(t, txn.Commit())

	txn = db.Transaction(false)
	defer txn.Release()
	campaign, err := txn.GetCampaign(id)
	require.NoError(t, err)
	assert.Equal(t, "Clean water", campaign.Title)
	assert.Equal(t, 0, campaign.Goal.Cmp(common.NewAmount(500)))
	assert.Equal(t, uint64(2000), campaign.Deadline)
}
