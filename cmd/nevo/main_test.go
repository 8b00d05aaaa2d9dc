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

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/blinklabs-io/nevo/database"
	"github.com/blinklabs-io/nevo/internal/test/testutil"
	"github.com/blinklabs-io/nevo/ledger"
	"github.com/blinklabs-io/nevo/ledger/common"
)

const (
	testContract = "contract"
	testAdmin    = "admin"
	testToken    = "usdc"
	testCreator  = "creator"
	testDonor    = "donor"
)

var testCampaignID = common.CampaignID{0x01, 0x02}

// seedStore writes a small ledger to a badger store in dataDir
func seedStore(t *testing.T, dataDir string) {
	t.Helper()
	db, err := database.New(&database.Config{DataDir: dataDir})
	require.NoError(t, err)
	defer db.Close()
	token := testutil.NewMockToken()
	token.Mint(testToken, testDonor, 1000)
	ls, err := ledger.NewLedgerState(ledger.LedgerStateConfig{
		Database:        db,
		Authorizer:      testutil.NewMockAuth(),
		TokenClient:     token,
		ContractAddress: testContract,
	})
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, ls.Initialize(ctx, testAdmin, testToken, common.Amount{}))
	require.NoError(t, ls.CreateCampaign(ctx, ledger.CreateCampaignParams{
		ID:       testCampaignID,
		Title:    "Clean water",
		Creator:  testCreator,
		Goal:     common.NewAmount(500),
		Deadline: uint64(time.Now().Unix()) + 3600, //nolint:gosec
	}))
	require.NoError(t, ls.Donate(ctx, testCampaignID, testDonor, testToken, common.NewAmount(200)))
	_, err = ls.CreatePool(ctx, testCreator, ledger.PoolConfig{
		Name:     "Library",
		Target:   common.NewAmount(1000),
		Duration: 86400,
	})
	require.NoError(t, err)
	require.NoError(t, ls.Contribute(ctx, 1, testDonor, testToken, common.NewAmount(300), false))
}

func runCommand(t *testing.T, args ...string) map[string]any {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	dataDir := filepath.Join(t.TempDir(), "db")
	seedStore(t, dataDir)
	configFile := filepath.Join(t.TempDir(), "nevo.yaml")
	require.NoError(t, os.WriteFile(
		configFile,
		[]byte("databasePath: "+dataDir+"\ncontractAddress: "+testContract+"\nstoragePlugin: badger\n"),
		0o600,
	))
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs(append([]string{"--config", configFile}, args...))
	require.NoError(t, cmd.Execute())
	ret := map[string]any{}
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &ret))
	return ret
}

func TestInspectCampaign(t *testing.T) {
	ret := runCommand(t, "inspect", "campaign", testCampaignID.String())
	assert.Equal(t, testCampaignID.String(), ret["id"])
	assert.Equal(t, "Clean water", ret["title"])
	assert.Equal(t, "Active", ret["status"])
	assert.Equal(t, "200", ret["totalRaised"])
	metrics, ok := ret["metrics"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, testDonor, metrics["topContributor"])
	assert.Equal(t, 1, metrics["contributorCount"])
}

func TestInspectPool(t *testing.T) {
	ret := runCommand(t, "inspect", "pool", "1")
	assert.Equal(t, "Library", ret["name"])
	assert.Equal(t, "Active", ret["state"])
	assert.Equal(t, "300", ret["totalRaised"])
	assert.Equal(t, testToken, ret["asset"])
	contributors, ok := ret["contributors"].([]any)
	require.True(t, ok)
	require.Len(t, contributors, 1)
	assert.NotContains(t, ret, "multiSig")
}

func TestInspectAdmin(t *testing.T) {
	ret := runCommand(t, "inspect", "admin")
	assert.Equal(t, true, ret["initialized"])
	assert.Equal(t, testAdmin, ret["admin"])
	assert.Equal(t, testToken, ret["token"])
	assert.Equal(t, common.ContractVersion, ret["version"])
	assert.Equal(t, 1, ret["campaigns"])
	assert.Equal(t, "500", ret["globalRaised"])
	assert.NotContains(t, ret, "pendingEmergencyWithdrawal")
}

func TestInspectReadOnly(t *testing.T) {
	err := readOnlyAccess{}.Transfer(
		context.Background(),
		testToken, testContract, testDonor,
		common.NewAmount(1),
	)
	require.ErrorIs(t, err, errReadOnly)
	require.ErrorIs(t, readOnlyAccess{}.RequireAuth(context.Background(), testAdmin), errReadOnly)
}

func TestListAllPlugins(t *testing.T) {
	out := listAllPlugins()
	assert.Contains(t, out, "badger")
	assert.Contains(t, out, "sqlite")
	assert.Contains(t, out, "postgres")
	assert.Contains(t, out, "--storage-mysql-dsn")
	assert.Contains(t, out, "--storage-badger-data-dir")
}
