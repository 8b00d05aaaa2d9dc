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

package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/nevo/database"
	"github.com/blinklabs-io/nevo/event"
	"github.com/blinklabs-io/nevo/internal/test/testutil"
	"github.com/blinklabs-io/nevo/ledger"
	"github.com/blinklabs-io/nevo/ledger/common"
)

const (
	testContract common.Address = "contract"
	testAdmin    common.Address = "admin"
	testToken    common.Address = "usdc"
	testCreator  common.Address = "creator"
	testDonor    common.Address = "donor"
	testDonor2   common.Address = "donor2"

	testStartTime uint64 = 1_000
)

type testLedger struct {
	ls       *ledger.LedgerState
	db       *database.Database
	clock    *testutil.ManualClock
	auth     *testutil.MockAuth
	token    *testutil.MockToken
	bus      *event.EventBus
	registry *prometheus.Registry
}

// newTestLedger returns an initialized ledger backed by an in-memory store,
// with a zero creation fee and a zero platform fee rate
func newTestLedger(t *testing.T) *testLedger {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	bus := event.NewEventBus(nil, nil)
	t.Cleanup(bus.Stop)
	tl := &testLedger{
		db:       db,
		clock:    testutil.NewManualClock(testStartTime),
		auth:     testutil.NewMockAuth(),
		token:    testutil.NewMockToken(),
		bus:      bus,
		registry: prometheus.NewRegistry(),
	}
	tl.ls, err = ledger.NewLedgerState(ledger.LedgerStateConfig{
		Database:        db,
		EventBus:        bus,
		PromRegistry:    tl.registry,
		Authorizer:      tl.auth,
		Clock:           tl.clock,
		TokenClient:     tl.token,
		ContractAddress: testContract,
	})
	require.NoError(t, err)
	require.NoError(
		t,
		tl.ls.Initialize(context.Background(), testAdmin, testToken, common.Amount{}),
	)
	return tl
}

func amt(v int64) common.Amount {
	return common.NewAmount(v)
}

func campaignID(b byte) common.CampaignID {
	var ret common.CampaignID
	for i := range ret {
		ret[i] = b
	}
	return ret
}

func assertAmount(t *testing.T, expected int64, actual common.Amount, msgAndArgs ...any) {
	t.Helper()
	assert.Equal(t, common.NewAmount(expected).String(), actual.String(), msgAndArgs...)
}

// createCampaign creates a campaign owned by testCreator ending an hour
// from now
func (tl *testLedger) createCampaign(t *testing.T, id common.CampaignID, goal int64) {
	t.Helper()
	require.NoError(t, tl.ls.CreateCampaign(context.Background(), ledger.CreateCampaignParams{
		ID:       id,
		Title:    "Community garden",
		Creator:  testCreator,
		Goal:     amt(goal),
		Deadline: tl.clock.Now() + 3600,
	}))
}

// createPool creates a public pool owned by testCreator
func (tl *testLedger) createPool(t *testing.T, duration uint64) common.PoolID {
	t.Helper()
	id, err := tl.ls.CreatePool(context.Background(), testCreator, ledger.PoolConfig{
		Name:     "Shelter roof",
		Target:   amt(1_000_000),
		Duration: duration,
	})
	require.NoError(t, err)
	return id
}

// reentrancyBlocked returns the number of calls rejected by a held lock
func reentrancyBlocked(t *testing.T, tl *testLedger) float64 {
	t.Helper()
	families, err := tl.registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "nevo_ledger_reentrancy_blocked_total" {
			continue
		}
		require.Len(t, family.GetMetric(), 1)
		return family.GetMetric()[0].GetCounter().GetValue()
	}
	return 0
}

func TestNewLedgerStateValidation(t *testing.T) {
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	defer db.Close()
	testDefs := []struct {
		name   string
		cfg    ledger.LedgerStateConfig
		expErr error
	}{
		{
			name:   "no database",
			cfg:    ledger.LedgerStateConfig{},
			expErr: ledger.ErrNilDatabase,
		},
		{
			name:   "no authorizer",
			cfg:    ledger.LedgerStateConfig{Database: db},
			expErr: ledger.ErrNilAuthorizer,
		},
		{
			name: "no token client",
			cfg: ledger.LedgerStateConfig{
				Database:   db,
				Authorizer: testutil.NewMockAuth(),
			},
			expErr: ledger.ErrNilTokenClient,
		},
		{
			name: "no contract address",
			cfg: ledger.LedgerStateConfig{
				Database:    db,
				Authorizer:  testutil.NewMockAuth(),
				TokenClient: testutil.NewMockToken(),
			},
			expErr: ledger.ErrNoContractAddress,
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			_, err := ledger.NewLedgerState(testDef.cfg)
			require.ErrorIs(t, err, testDef.expErr)
		})
	}
}

func TestEventsPublishedAfterCommit(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	_, donations := tl.bus.Subscribe(ledger.DonationEventType)
	id := campaignID(1)
	tl.createCampaign(t, id, 1_000)
	tl.token.Mint(testToken, testDonor, 500)

	require.NoError(t, tl.ls.Donate(ctx, id, testDonor, testToken, amt(200)))
	donation := testutil.RequireEvent[ledger.DonationEvent](t, donations, 2*time.Second, "donation event")
	assert.Equal(t, id, donation.CampaignID)
	assert.Equal(t, testDonor, donation.Donor)
	assertAmount(t, 200, donation.Amount)
	assert.Equal(t, testStartTime, donation.Timestamp)

	// A failed call publishes nothing
	tl.token.FailNextTransfer(assert.AnError)
	err := tl.ls.Donate(ctx, id, testDonor, testToken, amt(100))
	require.ErrorIs(t, err, common.ErrTokenTransferFailed)
	testutil.RequireNoEvent(t, donations, 100*time.Millisecond, "donation after failure")
}

func TestFailedCallLeavesNoState(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	id := campaignID(2)
	tl.createCampaign(t, id, 1_000)
	tl.token.Mint(testToken, testDonor, 100)

	// The donor cannot cover the transfer, so nothing is recorded
	err := tl.ls.Donate(ctx, id, testDonor, testToken, amt(150))
	require.ErrorIs(t, err, common.ErrTokenTransferFailed)
	raised, err := tl.ls.GetTotalRaised(ctx, id)
	require.NoError(t, err)
	assert.True(t, raised.IsZero())
	donors, err := tl.ls.GetDonorCount(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, donors)
	global, err := tl.ls.GetGlobalRaisedTotal(ctx)
	require.NoError(t, err)
	assert.True(t, global.IsZero())
}

func TestUnauthorizedCaller(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	id := campaignID(3)
	tl.createCampaign(t, id, 1_000)
	tl.auth.Deny(testDonor)
	err := tl.ls.Donate(ctx, id, testDonor, testToken, amt(10))
	require.ErrorIs(t, err, common.ErrUnauthorized)
	assert.Equal(t, common.KindUnauthorized, common.KindOf(err))
	err = tl.ls.Donate(ctx, id, "", testToken, amt(10))
	require.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestVersion(t *testing.T) {
	tl := newTestLedger(t)
	assert.Equal(t, common.ContractVersion, tl.ls.Version())
	assert.Equal(t, testContract, tl.ls.ContractAddress())
}

func TestCallbackWithForeignContext(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	poolID := tl.createPool(t, 100)
	tl.token.Mint(testToken, testDonor, 1_000)

	var callbackErr error
	tl.token.SetHook(func(_ context.Context, xfer testutil.Transfer) error {
		if xfer.To != testContract || xfer.Amount.Cmp(amt(600)) != 0 {
			return nil
		}
		// A fresh context is not part of the running call and cannot wait
		// for the ledger it is blocking
		callbackErr = tl.ls.Contribute(context.Background(), poolID, testDonor, testToken, amt(400), false)
		return nil
	})
	require.NoError(t, tl.ls.Contribute(ctx, poolID, testDonor, testToken, amt(600), false))
	require.ErrorIs(t, callbackErr, ledger.ErrCallInProgress)
	require.ErrorIs(t, callbackErr, common.ErrReentrancyLocked)
	assert.Equal(t, common.KindReentrancyBlocked, common.KindOf(callbackErr))

	// Calls go through again once the token client returns
	tl.token.SetHook(nil)
	require.NoError(t, tl.ls.Contribute(ctx, poolID, testDonor, testToken, amt(400), false))
	metrics, err := tl.ls.GetPoolMetrics(ctx, poolID)
	require.NoError(t, err)
	assertAmount(t, 1_000, metrics.TotalRaised)
}
