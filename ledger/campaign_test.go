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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/nevo/ledger"
	"github.com/blinklabs-io/nevo/ledger/common"
)

func TestCampaignDonateAndClaim(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	id := campaignID(1)
	tl.createCampaign(t, id, 1_000)
	tl.token.Mint(testToken, testDonor, 1_000)

	require.NoError(t, tl.ls.Donate(ctx, id, testDonor, testToken, amt(1_000)))
	status, err := tl.ls.GetCampaignStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, common.CampaignStatusFunded, status)
	completed, err := tl.ls.IsCampaignCompleted(ctx, id)
	require.NoError(t, err)
	assert.True(t, completed)

	require.NoError(t, tl.ls.ClaimCampaignFunds(ctx, id))
	assertAmount(t, 1_000, tl.token.BalanceOf(testToken, testCreator))
	assertAmount(t, 0, tl.token.BalanceOf(testToken, testContract))
	err = tl.ls.ClaimCampaignFunds(ctx, id)
	require.ErrorIs(t, err, common.ErrCampaignAlreadyFunded)
	status, err = tl.ls.GetCampaignStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, common.CampaignStatusClaimed, status)
}

func TestCreateCampaignValidation(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	tl.createCampaign(t, campaignID(9), 100)
	valid := ledger.CreateCampaignParams{
		ID:       campaignID(1),
		Title:    "Library books",
		Creator:  testCreator,
		Goal:     amt(100),
		Deadline: testStartTime + 10,
	}
	testDefs := []struct {
		name   string
		modify func(p *ledger.CreateCampaignParams)
		expErr error
	}{
		{
			name:   "empty title",
			modify: func(p *ledger.CreateCampaignParams) { p.Title = "" },
			expErr: common.ErrInvalidTitle,
		},
		{
			name:   "long title",
			modify: func(p *ledger.CreateCampaignParams) { p.Title = strings.Repeat("x", 201) },
			expErr: common.ErrInvalidTitle,
		},
		{
			name:   "zero goal",
			modify: func(p *ledger.CreateCampaignParams) { p.Goal = amt(0) },
			expErr: common.ErrInvalidGoal,
		},
		{
			name:   "deadline now",
			modify: func(p *ledger.CreateCampaignParams) { p.Deadline = testStartTime },
			expErr: common.ErrInvalidDeadline,
		},
		{
			name:   "duplicate",
			modify: func(p *ledger.CreateCampaignParams) { p.ID = campaignID(9) },
			expErr: common.ErrCampaignAlreadyExists,
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			params := valid
			testDef.modify(&params)
			err := tl.ls.CreateCampaign(ctx, params)
			require.ErrorIs(t, err, testDef.expErr)
		})
	}
	// Exactly 200 characters is accepted
	params := valid
	params.Title = strings.Repeat("é", 200)
	require.NoError(t, tl.ls.CreateCampaign(ctx, params))
}

func TestCreateCampaignFee(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	require.NoError(t, tl.ls.SetCreationFee(ctx, amt(50)))
	params := ledger.CreateCampaignParams{
		ID:       campaignID(1),
		Title:    "Clinic",
		Creator:  testCreator,
		Goal:     amt(100),
		Deadline: testStartTime + 10,
	}
	err := tl.ls.CreateCampaign(ctx, params)
	require.ErrorIs(t, err, common.ErrInsufficientBalance)

	tl.token.Mint(testToken, testCreator, 80)
	require.NoError(t, tl.ls.CreateCampaign(ctx, params))
	assertAmount(t, 30, tl.token.BalanceOf(testToken, testCreator))
	fees, err := tl.ls.GetPlatformFees(ctx, testToken)
	require.NoError(t, err)
	assertAmount(t, 50, fees)

	// Validation runs before the fee is collected
	err = tl.ls.CreateCampaign(ctx, params)
	require.ErrorIs(t, err, common.ErrCampaignAlreadyExists)
	assertAmount(t, 30, tl.token.BalanceOf(testToken, testCreator))
}

func TestDonateRules(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	id := campaignID(1)
	tl.createCampaign(t, id, 1_000)
	tl.token.Mint(testToken, testDonor, 10_000)
	tl.token.Mint("other", testDonor, 10_000)

	require.ErrorIs(t, tl.ls.Donate(ctx, id, testDonor, testToken, amt(0)), common.ErrInvalidDonationAmount)
	require.ErrorIs(t, tl.ls.Donate(ctx, campaignID(7), testDonor, testToken, amt(1)), common.ErrCampaignNotFound)
	require.ErrorIs(t, tl.ls.Donate(ctx, id, testDonor, "other", amt(1)), common.ErrTokenTransferFailed)

	tl.clock.Advance(3600)
	require.ErrorIs(t, tl.ls.Donate(ctx, id, testDonor, testToken, amt(1)), common.ErrCampaignExpired)
	status, err := tl.ls.GetCampaignStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, common.CampaignStatusExpired, status)
	count, err := tl.ls.GetActiveCampaignCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDonateMetrics(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	id := campaignID(1)
	tl.createCampaign(t, id, 10_000)
	tl.token.Mint(testToken, testDonor, 10_000)
	tl.token.Mint(testToken, testDonor2, 10_000)

	require.NoError(t, tl.ls.Donate(ctx, id, testDonor, testToken, amt(300)))
	require.NoError(t, tl.ls.Donate(ctx, id, testDonor2, testToken, amt(300)))
	require.NoError(t, tl.ls.Donate(ctx, id, testDonor, testToken, amt(200)))

	donors, err := tl.ls.GetDonorCount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), donors)
	// Ties keep the earlier donor
	top, err := tl.ls.GetTopContributor(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, testDonor, top)
	contribution, err := tl.ls.GetContribution(ctx, id, testDonor)
	require.NoError(t, err)
	assertAmount(t, 500, contribution)
	contribution, err = tl.ls.GetContribution(ctx, id, "stranger")
	require.NoError(t, err)
	assert.True(t, contribution.IsZero())
	balance, err := tl.ls.GetCampaignBalance(ctx, id)
	require.NoError(t, err)
	assertAmount(t, 800, balance)
	global, err := tl.ls.GetGlobalRaisedTotal(ctx)
	require.NoError(t, err)
	assertAmount(t, 800, global)
	metrics, err := tl.ls.GetCampaignMetrics(ctx, id)
	require.NoError(t, err)
	assertAmount(t, 300, metrics.MaxDonation)
	assert.Equal(t, testStartTime, metrics.LastDonationAt)
}

func TestDonatePlatformFee(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	require.NoError(t, tl.ls.SetPlatformFeeRate(ctx, 250))
	id := campaignID(1)
	tl.createCampaign(t, id, 100_000)
	tl.token.Mint(testToken, testDonor, 10_000)

	require.NoError(t, tl.ls.Donate(ctx, id, testDonor, testToken, amt(10_000)))
	raised, err := tl.ls.GetTotalRaised(ctx, id)
	require.NoError(t, err)
	assertAmount(t, 9_750, raised)
	history, err := tl.ls.GetCampaignFeeHistory(ctx, id)
	require.NoError(t, err)
	assertAmount(t, 250, history)
	fees, err := tl.ls.GetPlatformFees(ctx, testToken)
	require.NoError(t, err)
	assertAmount(t, 250, fees)
	assertAmount(t, 10_000, tl.token.BalanceOf(testToken, testContract))

	// A 50% discount halves the rate for the asset
	require.NoError(t, tl.ls.SetAssetDiscount(ctx, testToken, 5_000))
	tl.token.Mint(testToken, testDonor2, 10_000)
	require.NoError(t, tl.ls.Donate(ctx, id, testDonor2, testToken, amt(10_000)))
	history, err = tl.ls.GetCampaignFeeHistory(ctx, id)
	require.NoError(t, err)
	assertAmount(t, 375, history)
}

func TestCancelAndRefundCampaign(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	id := campaignID(1)
	tl.createCampaign(t, id, 1_000)
	tl.token.Mint(testToken, testDonor, 400)
	require.NoError(t, tl.ls.Donate(ctx, id, testDonor, testToken, amt(400)))

	require.ErrorIs(t, tl.ls.RefundCampaign(ctx, id, testDonor), common.ErrRefundNotAvailable)
	require.NoError(t, tl.ls.CancelCampaign(ctx, id))
	require.ErrorIs(t, tl.ls.CancelCampaign(ctx, id), common.ErrCampaignCancelled)
	require.ErrorIs(t, tl.ls.Donate(ctx, id, testDonor, testToken, amt(1)), common.ErrCampaignCancelled)

	require.NoError(t, tl.ls.RefundCampaign(ctx, id, testDonor))
	assertAmount(t, 400, tl.token.BalanceOf(testToken, testDonor))
	require.ErrorIs(t, tl.ls.RefundCampaign(ctx, id, testDonor), common.ErrNoContributionToRefund)
	require.ErrorIs(t, tl.ls.RefundCampaign(ctx, id, testDonor2), common.ErrNoContributionToRefund)
	raised, err := tl.ls.GetTotalRaised(ctx, id)
	require.NoError(t, err)
	assert.True(t, raised.IsZero())
	global, err := tl.ls.GetGlobalRaisedTotal(ctx)
	require.NoError(t, err)
	assert.True(t, global.IsZero(), "refunds leave the global total")
	status, err := tl.ls.GetCampaignStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, common.CampaignStatusCancelled, status)
	require.ErrorIs(t, tl.ls.ClaimCampaignFunds(ctx, id), common.ErrCampaignCancelled)
}

func TestCancelClaimedCampaign(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	id := campaignID(1)
	tl.createCampaign(t, id, 100)
	tl.token.Mint(testToken, testDonor, 100)
	require.NoError(t, tl.ls.Donate(ctx, id, testDonor, testToken, amt(100)))
	require.NoError(t, tl.ls.ClaimCampaignFunds(ctx, id))
	require.ErrorIs(t, tl.ls.CancelCampaign(ctx, id), common.ErrCampaignAlreadyFunded)
}

func TestClaimUnfundedCampaign(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	id := campaignID(1)
	tl.createCampaign(t, id, 100)
	require.ErrorIs(t, tl.ls.ClaimCampaignFunds(ctx, id), common.ErrCampaignExpired)
	tl.auth.Deny(testCreator)
	require.ErrorIs(t, tl.ls.ClaimCampaignFunds(ctx, id), common.ErrUnauthorized)
}

func TestUpdateCampaignGoal(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	id := campaignID(1)
	tl.createCampaign(t, id, 1_000)
	tl.token.Mint(testToken, testDonor, 300)
	require.NoError(t, tl.ls.Donate(ctx, id, testDonor, testToken, amt(300)))

	require.ErrorIs(t, tl.ls.UpdateCampaignGoal(ctx, id, amt(0)), common.ErrInvalidGoal)
	require.ErrorIs(t, tl.ls.UpdateCampaignGoal(ctx, id, amt(2_000)), common.ErrInvalidGoalUpdate)
	require.ErrorIs(t, tl.ls.UpdateCampaignGoal(ctx, id, amt(299)), common.ErrInvalidGoalUpdate)
	require.NoError(t, tl.ls.UpdateCampaignGoal(ctx, id, amt(500)))
	goal, err := tl.ls.GetCampaignGoal(ctx, id)
	require.NoError(t, err)
	assertAmount(t, 500, goal)

	tl.clock.Advance(3600)
	require.ErrorIs(t, tl.ls.UpdateCampaignGoal(ctx, id, amt(400)), common.ErrCampaignExpired)
}

func TestExtendCampaignDeadline(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	id := campaignID(1)
	tl.createCampaign(t, id, 1_000)
	campaign, err := tl.ls.GetCampaign(ctx, id)
	require.NoError(t, err)

	require.ErrorIs(t, tl.ls.ExtendCampaignDeadline(ctx, id, campaign.Deadline), common.ErrInvalidDeadline)
	tooFar := testStartTime + common.MaxDeadlineExtension + 1
	require.ErrorIs(t, tl.ls.ExtendCampaignDeadline(ctx, id, tooFar), common.ErrInvalidDeadline)
	require.NoError(t, tl.ls.ExtendCampaignDeadline(ctx, id, tooFar-1))
	campaign, err = tl.ls.GetCampaign(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, tooFar-1, campaign.Deadline)

	tl.token.Mint(testToken, testDonor, 1_000)
	require.NoError(t, tl.ls.Donate(ctx, id, testDonor, testToken, amt(1_000)))
	require.ErrorIs(t, tl.ls.ExtendCampaignDeadline(ctx, id, tooFar-1+10), common.ErrCampaignAlreadyFunded)
}

func TestExtendExpiredCampaignDeadline(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	id := campaignID(1)
	tl.createCampaign(t, id, 1_000)
	campaign, err := tl.ls.GetCampaign(ctx, id)
	require.NoError(t, err)
	tl.clock.Advance(7_200)

	// Later than the old deadline but already in the past
	stale := campaign.Deadline + 100
	require.Less(t, stale, tl.clock.Now())
	require.ErrorIs(t, tl.ls.ExtendCampaignDeadline(ctx, id, stale), common.ErrInvalidDeadline)
	require.ErrorIs(t, tl.ls.ExtendCampaignDeadline(ctx, id, tl.clock.Now()), common.ErrInvalidDeadline)
	require.NoError(t, tl.ls.ExtendCampaignDeadline(ctx, id, tl.clock.Now()+60))
	campaign, err = tl.ls.GetCampaign(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, tl.clock.Now()+60, campaign.Deadline)
}

func TestBatchClaimCampaignFunds(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	funded := campaignID(1)
	unfunded := campaignID(2)
	tl.createCampaign(t, funded, 100)
	tl.createCampaign(t, unfunded, 100)
	tl.token.Mint(testToken, testDonor, 100)
	require.NoError(t, tl.ls.Donate(ctx, funded, testDonor, testToken, amt(100)))

	results := tl.ls.BatchClaimCampaignFunds(ctx, []common.CampaignID{
		funded,
		unfunded,
		campaignID(3),
		funded,
	})
	require.Len(t, results, 4)
	require.NoError(t, results[0])
	require.ErrorIs(t, results[1], common.ErrCampaignExpired)
	require.ErrorIs(t, results[2], common.ErrCampaignNotFound)
	require.ErrorIs(t, results[3], common.ErrCampaignAlreadyFunded)
	assertAmount(t, 100, tl.token.BalanceOf(testToken, testCreator))

	// A failed claim in the batch leaves no partial state behind
	status, err := tl.ls.GetCampaignStatus(ctx, unfunded)
	require.NoError(t, err)
	assert.Equal(t, common.CampaignStatusActive, status)
}

func TestCampaignQueries(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	first := campaignID(1)
	second := campaignID(2)
	tl.createCampaign(t, first, 100)
	tl.createCampaign(t, second, 100)
	require.NoError(t, tl.ls.CreateCampaign(ctx, ledger.CreateCampaignParams{
		ID:       campaignID(3),
		Title:    "Other",
		Creator:  testDonor,
		Goal:     amt(10),
		Deadline: testStartTime + 10,
	}))

	all, err := tl.ls.GetAllCampaigns(ctx)
	require.NoError(t, err)
	assert.Equal(t, []common.CampaignID{first, second, campaignID(3)}, all)
	mine, err := tl.ls.GetCampaignsByCreator(ctx, testCreator)
	require.NoError(t, err)
	assert.Equal(t, []common.CampaignID{first, second}, mine)
	campaigns, err := tl.ls.GetCampaigns(ctx, []common.CampaignID{second, campaignID(8), first})
	require.NoError(t, err)
	require.Len(t, campaigns, 2)
	assert.Equal(t, second, campaigns[0].ID)
	assert.Equal(t, first, campaigns[1].ID)
	assert.Equal(t, testToken, campaigns[0].Token)

	count, err := tl.ls.GetActiveCampaignCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), count)
	tl.clock.Advance(10)
	count, err = tl.ls.GetActiveCampaignCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), count)

	_, err = tl.ls.GetTopContributor(ctx, first)
	require.Error(t, err)
	_, err = tl.ls.GetCampaign(ctx, campaignID(8))
	require.ErrorIs(t, err, common.ErrCampaignNotFound)
	assert.Equal(t, common.KindNotFound, common.KindOf(err))
	_, err = tl.ls.GetCampaignFeeHistory(ctx, campaignID(8))
	require.ErrorIs(t, err, common.ErrCampaignNotFound)
}

func TestCampaignsPausedBlocksDonations(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	id := campaignID(1)
	tl.createCampaign(t, id, 100)
	tl.token.Mint(testToken, testDonor, 100)
	require.NoError(t, tl.ls.PauseCampaigns(ctx))
	require.ErrorIs(t, tl.ls.Donate(ctx, id, testDonor, testToken, amt(10)), common.ErrCampaignsPaused)
	// Pools are unaffected
	tl.createPool(t, 100)
	require.NoError(t, tl.ls.UnpauseCampaigns(ctx))
	require.NoError(t, tl.ls.Donate(ctx, id, testDonor, testToken, amt(10)))
}
