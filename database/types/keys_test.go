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

package types_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/nevo/database/types"
	"github.com/blinklabs-io/nevo/ledger/common"
)

func TestKeyEncodingDistinct(t *testing.T) {
	var campaign common.CampaignID
	campaign[0] = 0xab
	keys := []types.Key{
		types.CampaignKey(campaign),
		types.CampaignMetricsKey(campaign),
		types.ContributionKey(campaign, "alice"),
		types.ContributionKey(campaign, "bob"),
		types.PoolKey(1),
		types.PoolKey(2),
		types.PoolStateKey(1),
		types.PoolContributionKey(1, "alice"),
		types.DisbursementKey(1, 1),
		types.DisbursementKey(1, 2),
		types.ReentrancyLockKey(1),
		types.EmergencyLockKey(),
		types.AdminKey(),
		types.PlatformFeesKey("token"),
		types.AssetDiscountKey("token"),
	}
	seen := make(map[string]types.Key)
	for _, k := range keys {
		raw := string(k.Bytes())
		prev, ok := seen[raw]
		require.False(t, ok, "key %s collides with %s", k, prev)
		seen[raw] = k
		kind, err := types.ParseKeyKind(k.Bytes())
		require.NoError(t, err)
		assert.Equal(t, k.Kind(), kind)
	}
}

func TestKeyPrefixes(t *testing.T) {
	assert.True(
		t,
		bytes.HasPrefix(
			types.PoolContributionKey(7, "alice").Bytes(),
			types.KeyKindPoolContribution.Prefix(),
		),
	)
	// Disbursement keys for a pool sort by request id
	a := types.DisbursementKey(3, 2).Bytes()
	b := types.DisbursementKey(3, 10).Bytes()
	assert.Equal(t, -1, bytes.Compare(a, b))
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "Admin", types.AdminKey().String())
	assert.Equal(t, "PoolContribution(4,alice)", types.PoolContributionKey(4, "alice").String())
	assert.Equal(t, "Disbursement(4,2)", types.DisbursementKey(4, 2).String())
}

func TestParseKeyKindInvalid(t *testing.T) {
	_, err := types.ParseKeyKind(nil)
	require.Error(t, err)
	_, err = types.ParseKeyKind([]byte{0xff})
	require.Error(t, err)
}
