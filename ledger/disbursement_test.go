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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/nevo/ledger"
	"github.com/blinklabs-io/nevo/ledger/common"
)

const (
	testSigner1 common.Address = "signer1"
	testSigner2 common.Address = "signer2"
	testSigner3 common.Address = "signer3"
	testVendor  common.Address = "vendor"
)

// fundedMultiSigPool creates a 2-of-3 pool holding 1000 units
func fundedMultiSigPool(t *testing.T, tl *testLedger) common.PoolID {
	t.Helper()
	ctx := context.Background()
	poolID, err := tl.ls.SavePool(ctx, ledger.SavePoolParams{
		Name:               "School",
		Creator:            testCreator,
		Target:             amt(5_000),
		Deadline:           testStartTime + 3600,
		RequiredSignatures: uint32Ptr(2),
		Signers:            []common.Address{testSigner1, testSigner2, testSigner3},
	})
	require.NoError(t, err)
	tl.token.Mint(testToken, testDonor, 1_000)
	require.NoError(t, tl.ls.Contribute(ctx, poolID, testDonor, testToken, amt(1_000), false))
	return poolID
}

func TestMultiSigDisbursement(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	poolID := fundedMultiSigPool(t, tl)

	id, err := tl.ls.RequestDisbursement(ctx, poolID, amt(600), testVendor, testSigner1)
	require.NoError(t, err)
	assert.Equal(t, common.DisbursementID(1), id)
	require.NoError(t, tl.ls.ApproveDisbursement(ctx, poolID, id, testSigner1))
	err = tl.ls.ExecuteDisbursement(ctx, poolID, id)
	require.ErrorIs(t, err, common.ErrInsufficientApprovals)

	require.ErrorIs(t, tl.ls.ApproveDisbursement(ctx, poolID, id, testSigner1), common.ErrAlreadyApproved)
	require.NoError(t, tl.ls.ApproveDisbursement(ctx, poolID, id, testSigner2))
	require.NoError(t, tl.ls.ExecuteDisbursement(ctx, poolID, id))
	assertAmount(t, 600, tl.token.BalanceOf(testToken, testVendor))

	err = tl.ls.ExecuteDisbursement(ctx, poolID, id)
	require.ErrorIs(t, err, common.ErrDisbursementExecuted)
	require.ErrorIs(t, tl.ls.ApproveDisbursement(ctx, poolID, id, testSigner3), common.ErrDisbursementExecuted)

	d, err := tl.ls.GetDisbursement(ctx, poolID, id)
	require.NoError(t, err)
	assert.True(t, d.Executed)
	assert.Equal(t, []common.Address{testSigner1, testSigner2}, d.Approvals)
	state, err := tl.ls.GetPoolState(ctx, poolID)
	require.NoError(t, err)
	assert.Equal(t, common.PoolStateDisbursed, state)
	metrics, err := tl.ls.GetPoolMetrics(ctx, poolID)
	require.NoError(t, err)
	assertAmount(t, 600, metrics.TotalDisbursed)
}

func TestDisbursementLimits(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	poolID := fundedMultiSigPool(t, tl)

	_, err := tl.ls.RequestDisbursement(ctx, poolID, amt(100), testVendor, testDonor)
	require.ErrorIs(t, err, common.ErrNotAuthorizedSigner)
	_, err = tl.ls.RequestDisbursement(ctx, poolID, amt(0), testVendor, testCreator)
	require.ErrorIs(t, err, common.ErrInvalidAmount)
	_, err = tl.ls.RequestDisbursement(ctx, 42, amt(1), testVendor, testCreator)
	require.ErrorIs(t, err, common.ErrPoolNotFound)
	require.ErrorIs(t, tl.ls.ApproveDisbursement(ctx, poolID, 9, testSigner1), common.ErrDisbursementNotFound)
	require.ErrorIs(t, tl.ls.ExecuteDisbursement(ctx, poolID, 9), common.ErrDisbursementNotFound)

	first, err := tl.ls.RequestDisbursement(ctx, poolID, amt(700), testVendor, testCreator)
	require.NoError(t, err)
	second, err := tl.ls.RequestDisbursement(ctx, poolID, amt(400), testVendor, testCreator)
	require.NoError(t, err)
	assert.Equal(t, first+1, second)
	for _, id := range []common.DisbursementID{first, second} {
		require.NoError(t, tl.ls.ApproveDisbursement(ctx, poolID, id, testCreator))
		require.NoError(t, tl.ls.ApproveDisbursement(ctx, poolID, id, testSigner3))
	}
	require.ErrorIs(t, tl.ls.ApproveDisbursement(ctx, poolID, first, testDonor), common.ErrNotAuthorizedSigner)
	require.NoError(t, tl.ls.ExecuteDisbursement(ctx, poolID, first))
	// Only 300 of the 1000 raised remain
	err = tl.ls.ExecuteDisbursement(ctx, poolID, second)
	require.ErrorIs(t, err, common.ErrInsufficientFunds)
	d, err := tl.ls.GetDisbursement(ctx, poolID, second)
	require.NoError(t, err)
	assert.False(t, d.Executed)
}

func TestSignerManagement(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	poolID := tl.createPool(t, 100)

	_, err := tl.ls.GetMultiSigConfig(ctx, poolID)
	require.ErrorIs(t, err, common.ErrInvalidMultiSigConfig)
	require.ErrorIs(t, tl.ls.RemoveSigner(ctx, poolID, testSigner1), common.ErrSignerNotFound)

	require.NoError(t, tl.ls.AddSigner(ctx, poolID, testSigner1))
	cfg, err := tl.ls.GetMultiSigConfig(ctx, poolID)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), cfg.RequiredApprovals)
	assert.Equal(t, []common.Address{testSigner1}, cfg.Signers)
	require.ErrorIs(t, tl.ls.AddSigner(ctx, poolID, testSigner1), common.ErrSignerAlreadyExists)
	require.ErrorIs(t, tl.ls.RemoveSigner(ctx, poolID, testSigner1), common.ErrCannotRemoveLastSigner)

	tl.auth.Deny(testCreator)
	require.ErrorIs(t, tl.ls.AddSigner(ctx, poolID, testSigner2), common.ErrUnauthorized)
	tl.auth.Allow(testCreator)
	require.NoError(t, tl.ls.AddSigner(ctx, poolID, testSigner2))
	require.NoError(t, tl.ls.RemoveSigner(ctx, poolID, testSigner1))
	cfg, err = tl.ls.GetMultiSigConfig(ctx, poolID)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{testSigner2}, cfg.Signers)
}

func TestRemoveSignerClampsThreshold(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	poolID, err := tl.ls.SavePool(ctx, ledger.SavePoolParams{
		Name:               "Clinic",
		Creator:            testCreator,
		Target:             amt(100),
		Deadline:           testStartTime + 10,
		RequiredSignatures: uint32Ptr(3),
		Signers:            []common.Address{testSigner1, testSigner2, testSigner3},
	})
	require.NoError(t, err)
	require.NoError(t, tl.ls.RemoveSigner(ctx, poolID, testSigner2))
	cfg, err := tl.ls.GetMultiSigConfig(ctx, poolID)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), cfg.RequiredApprovals)
	assert.Equal(t, []common.Address{testSigner1, testSigner3}, cfg.Signers)
}

func TestDisbursementFromClosedPool(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	poolID := tl.createPool(t, 100)
	require.NoError(t, tl.ls.UpdatePoolState(ctx, poolID, common.PoolStateCancelled, testCreator))
	require.NoError(t, tl.ls.ClosePool(ctx, poolID, testCreator))
	_, err := tl.ls.RequestDisbursement(ctx, poolID, amt(1), testVendor, testCreator)
	require.ErrorIs(t, err, common.ErrPoolAlreadyClosed)
}

func TestCompletedPoolBlocksDisbursement(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	poolID := fundedMultiSigPool(t, tl)
	id, err := tl.ls.RequestDisbursement(ctx, poolID, amt(600), testVendor, testSigner1)
	require.NoError(t, err)
	require.NoError(t, tl.ls.ApproveDisbursement(ctx, poolID, id, testSigner1))
	require.NoError(t, tl.ls.ApproveDisbursement(ctx, poolID, id, testSigner2))
	require.NoError(t, tl.ls.UpdatePoolState(ctx, poolID, common.PoolStateCompleted, testAdmin))

	require.ErrorIs(t, tl.ls.ExecuteDisbursement(ctx, poolID, id), common.ErrInvalidPoolState)
	require.ErrorIs(t, tl.ls.ApproveDisbursement(ctx, poolID, id, testSigner3), common.ErrInvalidPoolState)
	require.ErrorIs(t, tl.ls.AddSigner(ctx, poolID, testVendor), common.ErrInvalidPoolState)
	require.ErrorIs(t, tl.ls.RemoveSigner(ctx, poolID, testSigner3), common.ErrInvalidPoolState)
	_, err = tl.ls.RequestDisbursement(ctx, poolID, amt(1), testVendor, testSigner1)
	require.ErrorIs(t, err, common.ErrInvalidPoolState)

	assert.True(t, tl.token.BalanceOf(testToken, testVendor).IsZero())
	state, err := tl.ls.GetPoolState(ctx, poolID)
	require.NoError(t, err)
	assert.Equal(t, common.PoolStateCompleted, state)
	d, err := tl.ls.GetDisbursement(ctx, poolID, id)
	require.NoError(t, err)
	assert.False(t, d.Executed)
	cfg, err := tl.ls.GetMultiSigConfig(ctx, poolID)
	require.NoError(t, err)
	assert.Len(t, cfg.Signers, 3)
}

func TestRemovedSignerApprovalNotCounted(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	poolID := fundedMultiSigPool(t, tl)
	id, err := tl.ls.RequestDisbursement(ctx, poolID, amt(600), testVendor, testSigner1)
	require.NoError(t, err)
	require.NoError(t, tl.ls.ApproveDisbursement(ctx, poolID, id, testSigner1))
	require.NoError(t, tl.ls.ApproveDisbursement(ctx, poolID, id, testSigner2))
	require.NoError(t, tl.ls.RemoveSigner(ctx, poolID, testSigner2))

	// Two approvals are recorded but only one comes from a current signer
	err = tl.ls.ExecuteDisbursement(ctx, poolID, id)
	require.ErrorIs(t, err, common.ErrInsufficientApprovals)
	assert.True(t, tl.token.BalanceOf(testToken, testVendor).IsZero())

	require.NoError(t, tl.ls.ApproveDisbursement(ctx, poolID, id, testSigner3))
	require.NoError(t, tl.ls.ExecuteDisbursement(ctx, poolID, id))
	assertAmount(t, 600, tl.token.BalanceOf(testToken, testVendor))
}

func TestDisbursementPaysPoolAsset(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	poolID := fundedMultiSigPool(t, tl)
	require.NoError(t, tl.ls.SetCrowdfundingToken(ctx, "eurc"))
	tl.token.Mint("eurc", testContract, 1_000)

	id, err := tl.ls.RequestDisbursement(ctx, poolID, amt(250), testVendor, testCreator)
	require.NoError(t, err)
	require.NoError(t, tl.ls.ApproveDisbursement(ctx, poolID, id, testSigner1))
	require.NoError(t, tl.ls.ApproveDisbursement(ctx, poolID, id, testSigner2))
	require.NoError(t, tl.ls.ExecuteDisbursement(ctx, poolID, id))
	assertAmount(t, 250, tl.token.BalanceOf(testToken, testVendor))
	assert.True(t, tl.token.BalanceOf("eurc", testVendor).IsZero())
	assertAmount(t, 1_000, tl.token.BalanceOf("eurc", testContract))
}
