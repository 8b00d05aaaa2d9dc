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

package ledger

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/blinklabs-io/nevo/database/models"
	"github.com/blinklabs-io/nevo/database/types"
	"github.com/blinklabs-io/nevo/ledger/common"
)

type CreateCampaignParams struct {
	ID       common.CampaignID
	Title    string
	Creator  common.Address
	Goal     common.Amount
	Deadline uint64
}

func (f *frame) getCampaign(id common.CampaignID) (*models.Campaign, error) {
	campaign, err := f.txn.GetCampaign(id)
	if errors.Is(err, types.ErrKeyNotFound) {
		return nil, common.ErrCampaignNotFound
	}
	return campaign, err
}

func (f *frame) campaignFlags(id common.CampaignID) (cancelled bool, claimed bool, err error) {
	cancelled, err = f.txn.GetFlag(types.CampaignCancelledKey(id))
	if err != nil {
		return false, false, err
	}
	claimed, err = f.txn.GetFlag(types.CampaignClaimedKey(id))
	return cancelled, claimed, err
}

// CreateCampaign registers a new campaign funded in the crowdfunding token.
// A configured creation fee is collected from the creator first
func (ls *LedgerState) CreateCampaign(ctx context.Context, params CreateCampaignParams) error {
	return ls.invoke(ctx, "create_campaign", func(ctx context.Context, f *frame) error {
		if err := f.checkPaused(pauseScopeCampaigns); err != nil {
			return err
		}
		if err := f.requireAuth(ctx, params.Creator); err != nil {
			return err
		}
		if params.Title == "" || utf8.RuneCountInString(params.Title) > common.MaxTitleLength {
			return common.ErrInvalidTitle
		}
		if params.Goal.Sign() <= 0 {
			return common.ErrInvalidGoal
		}
		if params.Deadline <= f.now {
			return common.ErrInvalidDeadline
		}
		token, err := f.crowdfundingToken()
		if err != nil {
			return err
		}
		exists, err := f.txn.Has(types.CampaignKey(params.ID))
		if err != nil {
			return err
		}
		if exists {
			return common.ErrCampaignAlreadyExists
		}
		creationFee, err := f.txn.GetAmount(types.CreationFeeKey())
		if err != nil {
			return err
		}
		if creationFee.Sign() > 0 {
			balance, err := f.ls.config.TokenClient.Balance(ctx, token, params.Creator)
			if err != nil {
				return fmt.Errorf("creator balance: %w", err)
			}
			if balance.Cmp(creationFee) < 0 {
				return common.ErrInsufficientBalance
			}
			if err := f.transferIn(ctx, token, params.Creator, creationFee); err != nil {
				return err
			}
			if _, err := f.addAmount(types.PlatformFeesKey(token), creationFee); err != nil {
				return err
			}
			f.emit(CreationFeePaidEventType, CreationFeePaidEvent{
				Creator: params.Creator,
				Fee:     creationFee,
			})
		}
		campaign := &models.Campaign{
			ID:        params.ID,
			Title:     params.Title,
			Creator:   params.Creator,
			Goal:      params.Goal,
			Deadline:  params.Deadline,
			Token:     token,
			CreatedAt: f.now,
		}
		if err := f.txn.SetCampaign(campaign); err != nil {
			return err
		}
		if err := f.txn.SetCampaignMetrics(params.ID, &models.CampaignMetrics{}); err != nil {
			return err
		}
		if err := f.appendCampaignID(types.AllCampaignsKey(), params.ID); err != nil {
			return err
		}
		if err := f.appendCampaignID(types.CreatorCampaignsKey(params.Creator), params.ID); err != nil {
			return err
		}
		f.emit(CampaignCreatedEventType, CampaignCreatedEvent{
			ID:       params.ID,
			Title:    params.Title,
			Creator:  params.Creator,
			Goal:     params.Goal,
			Deadline: params.Deadline,
		})
		return nil
	})
}

func (f *frame) appendCampaignID(key types.Key, id common.CampaignID) error {
	ids, err := f.txn.GetCampaignIDList(key)
	if err != nil {
		return err
	}
	return f.txn.SetCampaignIDList(key, append(ids, id))
}

// Donate transfers amount of asset from donor into custody and credits the
// campaign with the amount net of the platform fee
func (ls *LedgerState) Donate(
	ctx context.Context,
	id common.CampaignID,
	donor, asset common.Address,
	amount common.Amount,
) error {
	return ls.invoke(ctx, "donate", func(ctx context.Context, f *frame) error {
		if err := f.checkPaused(pauseScopeCampaigns); err != nil {
			return err
		}
		if err := f.requireAuth(ctx, donor); err != nil {
			return err
		}
		cancelled, err := f.txn.GetFlag(types.CampaignCancelledKey(id))
		if err != nil {
			return err
		}
		if cancelled {
			return common.ErrCampaignCancelled
		}
		if amount.Sign() <= 0 {
			return common.ErrInvalidDonationAmount
		}
		campaign, err := f.getCampaign(id)
		if err != nil {
			return err
		}
		if f.now >= campaign.Deadline {
			return common.ErrCampaignExpired
		}
		if campaign.TotalRaised.Cmp(campaign.Goal) >= 0 {
			return common.ErrCampaignAlreadyFunded
		}
		if asset != campaign.Token {
			return fmt.Errorf(
				"asset %s does not match campaign token: %w",
				asset,
				common.ErrTokenTransferFailed,
			)
		}
		if err := f.transferIn(ctx, asset, donor, amount); err != nil {
			return err
		}
		platformFee, net, err := f.takeFee(asset, amount, types.CampaignFeeHistoryKey(id))
		if err != nil {
			return err
		}
		if campaign.TotalRaised, err = checkedAdd(campaign.TotalRaised, net); err != nil {
			return err
		}
		if err := f.txn.SetCampaign(campaign); err != nil {
			return err
		}
		metrics, err := f.txn.GetCampaignMetrics(id)
		if err != nil {
			return err
		}
		if metrics.TotalRaised, err = checkedAdd(metrics.TotalRaised, net); err != nil {
			return err
		}
		metrics.LastDonationAt = f.now
		if net.Cmp(metrics.MaxDonation) > 0 {
			metrics.MaxDonation = net
			metrics.TopContributor = donor
		}
		prev, found, err := f.txn.GetContribution(id, donor)
		if err != nil {
			return err
		}
		if !found {
			metrics.ContributorCount++
		}
		if err := f.txn.SetCampaignMetrics(id, metrics); err != nil {
			return err
		}
		total, err := checkedAdd(prev, net)
		if err != nil {
			return err
		}
		if err := f.txn.SetContribution(id, donor, total); err != nil {
			return err
		}
		if _, err := f.addAmount(types.GlobalTotalRaisedKey(), net); err != nil {
			return err
		}
		f.emit(DonationEventType, DonationEvent{
			CampaignID: id,
			Donor:      donor,
			Asset:      asset,
			Amount:     amount,
			Fee:        platformFee,
			Timestamp:  f.now,
		})
		return nil
	})
}

// ClaimCampaignFunds pays the raised balance of a funded campaign to its
// creator. A campaign can be claimed once
func (ls *LedgerState) ClaimCampaignFunds(ctx context.Context, id common.CampaignID) error {
	return ls.invoke(ctx, "claim_campaign_funds", func(ctx context.Context, f *frame) error {
		if err := f.checkPaused(pauseScopeCampaigns); err != nil {
			return err
		}
		campaign, err := f.getCampaign(id)
		if err != nil {
			return err
		}
		if err := f.requireAuth(ctx, campaign.Creator); err != nil {
			return err
		}
		cancelled, claimed, err := f.campaignFlags(id)
		if err != nil {
			return err
		}
		if cancelled {
			return common.ErrCampaignCancelled
		}
		if claimed {
			return common.ErrCampaignAlreadyFunded
		}
		if campaign.TotalRaised.Cmp(campaign.Goal) < 0 {
			return common.ErrCampaignExpired
		}
		if err := f.txn.SetFlag(types.CampaignClaimedKey(id), true); err != nil {
			return err
		}
		if err := f.transferOut(ctx, campaign.Token, campaign.Creator, campaign.TotalRaised); err != nil {
			return err
		}
		f.emit(CampaignClaimedEventType, CampaignClaimedEvent{
			CampaignID: id,
			Creator:    campaign.Creator,
			Amount:     campaign.TotalRaised,
		})
		return nil
	})
}

// BatchClaimCampaignFunds claims each campaign independently and returns one
// result per id, in order. A failed claim does not affect the others
func (ls *LedgerState) BatchClaimCampaignFunds(ctx context.Context, ids []common.CampaignID) []error {
	results := make([]error, len(ids))
	err := ls.invoke(ctx, "batch_claim_campaign_funds", func(ctx context.Context, _ *frame) error {
		for i, id := range ids {
			results[i] = ls.ClaimCampaignFunds(ctx, id)
		}
		return nil
	})
	if err != nil {
		for i := range results {
			if results[i] == nil {
				results[i] = err
			}
		}
	}
	return results
}

// RefundCampaign returns the full contribution of contributor to a
// cancelled campaign
func (ls *LedgerState) RefundCampaign(
	ctx context.Context,
	id common.CampaignID,
	contributor common.Address,
) error {
	return ls.invoke(ctx, "refund_campaign", func(ctx context.Context, f *frame) error {
		if err := f.checkPaused(pauseScopeCampaigns); err != nil {
			return err
		}
		cancelled, err := f.txn.GetFlag(types.CampaignCancelledKey(id))
		if err != nil {
			return err
		}
		if !cancelled {
			return common.ErrRefundNotAvailable
		}
		amount, _, err := f.txn.GetContribution(id, contributor)
		if err != nil {
			return err
		}
		if amount.Sign() <= 0 {
			return common.ErrNoContributionToRefund
		}
		campaign, err := f.getCampaign(id)
		if err != nil {
			return err
		}
		// Zeroed rather than deleted to keep the donor history
		if err := f.txn.SetContribution(id, contributor, common.Amount{}); err != nil {
			return err
		}
		if campaign.TotalRaised, err = checkedSub(campaign.TotalRaised, amount); err != nil {
			return err
		}
		if err := f.txn.SetCampaign(campaign); err != nil {
			return err
		}
		metrics, err := f.txn.GetCampaignMetrics(id)
		if err != nil {
			return err
		}
		if metrics.TotalRaised, err = checkedSub(metrics.TotalRaised, amount); err != nil {
			return err
		}
		if err := f.txn.SetCampaignMetrics(id, metrics); err != nil {
			return err
		}
		if _, err := f.subAmount(types.GlobalTotalRaisedKey(), amount); err != nil {
			return err
		}
		if err := f.transferOut(ctx, campaign.Token, contributor, amount); err != nil {
			return err
		}
		f.emit(CampaignRefundedEventType, CampaignRefundedEvent{
			CampaignID:  id,
			Contributor: contributor,
			Amount:      amount,
		})
		return nil
	})
}

// CancelCampaign stops donations and opens refunds
func (ls *LedgerState) CancelCampaign(ctx context.Context, id common.CampaignID) error {
	return ls.invoke(ctx, "cancel_campaign", func(ctx context.Context, f *frame) error {
		if err := f.checkPaused(pauseScopeCampaigns); err != nil {
			return err
		}
		campaign, err := f.getCampaign(id)
		if err != nil {
			return err
		}
		if err := f.requireAuth(ctx, campaign.Creator); err != nil {
			return err
		}
		cancelled, claimed, err := f.campaignFlags(id)
		if err != nil {
			return err
		}
		if cancelled {
			return common.ErrCampaignCancelled
		}
		if claimed {
			return common.ErrCampaignAlreadyFunded
		}
		if err := f.txn.SetFlag(types.CampaignCancelledKey(id), true); err != nil {
			return err
		}
		f.emit(CampaignCancelledEventType, CampaignCancelledEvent{CampaignID: id})
		return nil
	})
}

// UpdateCampaignGoal lowers the goal of a running campaign. The new goal may
// not be below the amount already raised
func (ls *LedgerState) UpdateCampaignGoal(
	ctx context.Context,
	id common.CampaignID,
	newGoal common.Amount,
) error {
	return ls.invoke(ctx, "update_campaign_goal", func(ctx context.Context, f *frame) error {
		if err := f.checkPaused(pauseScopeCampaigns); err != nil {
			return err
		}
		campaign, err := f.getCampaign(id)
		if err != nil {
			return err
		}
		if err := f.requireAuth(ctx, campaign.Creator); err != nil {
			return err
		}
		if f.now >= campaign.Deadline {
			return common.ErrCampaignExpired
		}
		if newGoal.Sign() <= 0 {
			return common.ErrInvalidGoal
		}
		if newGoal.Cmp(campaign.Goal) > 0 || newGoal.Cmp(campaign.TotalRaised) < 0 {
			return common.ErrInvalidGoalUpdate
		}
		campaign.Goal = newGoal
		if err := f.txn.SetCampaign(campaign); err != nil {
			return err
		}
		f.emit(CampaignGoalUpdatedEventType, CampaignGoalUpdatedEvent{
			CampaignID: id,
			Goal:       newGoal,
		})
		return nil
	})
}

// ExtendCampaignDeadline moves the deadline of an unfunded campaign later,
// up to common.MaxDeadlineExtension seconds from now
func (ls *LedgerState) ExtendCampaignDeadline(
	ctx context.Context,
	id common.CampaignID,
	newDeadline uint64,
) error {
	return ls.invoke(ctx, "extend_campaign_deadline", func(ctx context.Context, f *frame) error {
		if err := f.checkPaused(pauseScopeCampaigns); err != nil {
			return err
		}
		campaign, err := f.getCampaign(id)
		if err != nil {
			return err
		}
		if err := f.requireAuth(ctx, campaign.Creator); err != nil {
			return err
		}
		cancelled, err := f.txn.GetFlag(types.CampaignCancelledKey(id))
		if err != nil {
			return err
		}
		if cancelled {
			return common.ErrCampaignCancelled
		}
		if campaign.TotalRaised.Cmp(campaign.Goal) >= 0 {
			return common.ErrCampaignAlreadyFunded
		}
		if newDeadline <= campaign.Deadline || newDeadline <= f.now {
			return common.ErrInvalidDeadline
		}
		if newDeadline-f.now > common.MaxDeadlineExtension {
			return common.ErrInvalidDeadline
		}
		campaign.Deadline = newDeadline
		if err := f.txn.SetCampaign(campaign); err != nil {
			return err
		}
		f.emit(CampaignDeadlineExtendedEventType, CampaignDeadlineExtendedEvent{
			CampaignID: id,
			Deadline:   newDeadline,
		})
		return nil
	})
}

func (ls *LedgerState) GetCampaign(ctx context.Context, id common.CampaignID) (*models.Campaign, error) {
	return query(ctx, ls, func(f *frame) (*models.Campaign, error) {
		return f.getCampaign(id)
	})
}

// GetCampaigns returns the campaigns that exist among ids, in order
func (ls *LedgerState) GetCampaigns(ctx context.Context, ids []common.CampaignID) ([]*models.Campaign, error) {
	return query(ctx, ls, func(f *frame) ([]*models.Campaign, error) {
		ret := make([]*models.Campaign, 0, len(ids))
		for _, id := range ids {
			campaign, err := f.getCampaign(id)
			if err != nil {
				if errors.Is(err, common.ErrCampaignNotFound) {
					continue
				}
				return nil, err
			}
			ret = append(ret, campaign)
		}
		return ret, nil
	})
}

// GetAllCampaigns returns every campaign id in creation order
func (ls *LedgerState) GetAllCampaigns(ctx context.Context) ([]common.CampaignID, error) {
	return query(ctx, ls, func(f *frame) ([]common.CampaignID, error) {
		return f.txn.GetCampaignIDList(types.AllCampaignsKey())
	})
}

func (ls *LedgerState) GetCampaignsByCreator(
	ctx context.Context,
	creator common.Address,
) ([]common.CampaignID, error) {
	return query(ctx, ls, func(f *frame) ([]common.CampaignID, error) {
		return f.txn.GetCampaignIDList(types.CreatorCampaignsKey(creator))
	})
}

// GetActiveCampaignCount counts campaigns whose deadline has not passed
func (ls *LedgerState) GetActiveCampaignCount(ctx context.Context) (uint32, error) {
	return query(ctx, ls, func(f *frame) (uint32, error) {
		ids, err := f.txn.GetCampaignIDList(types.AllCampaignsKey())
		if err != nil {
			return 0, err
		}
		var count uint32
		for _, id := range ids {
			campaign, err := f.getCampaign(id)
			if err != nil {
				return 0, err
			}
			if campaign.Deadline > f.now {
				count++
			}
		}
		return count, nil
	})
}

// GetTotalRaised returns the net amount currently credited to a campaign
func (ls *LedgerState) GetTotalRaised(ctx context.Context, id common.CampaignID) (common.Amount, error) {
	return query(ctx, ls, func(f *frame) (common.Amount, error) {
		campaign, err := f.getCampaign(id)
		if err != nil {
			return common.Amount{}, err
		}
		return campaign.TotalRaised, nil
	})
}

func (ls *LedgerState) GetCampaignMetrics(ctx context.Context, id common.CampaignID) (*models.CampaignMetrics, error) {
	return query(ctx, ls, func(f *frame) (*models.CampaignMetrics, error) {
		if _, err := f.getCampaign(id); err != nil {
			return nil, err
		}
		return f.txn.GetCampaignMetrics(id)
	})
}

// GetCampaignBalance returns the raised total tracked in campaign metrics
func (ls *LedgerState) GetCampaignBalance(ctx context.Context, id common.CampaignID) (common.Amount, error) {
	metrics, err := ls.GetCampaignMetrics(ctx, id)
	if err != nil {
		return common.Amount{}, err
	}
	return metrics.TotalRaised, nil
}

func (ls *LedgerState) GetDonorCount(ctx context.Context, id common.CampaignID) (uint32, error) {
	metrics, err := ls.GetCampaignMetrics(ctx, id)
	if err != nil {
		return 0, err
	}
	return metrics.ContributorCount, nil
}

// GetTopContributor returns the donor of the largest single donation
func (ls *LedgerState) GetTopContributor(ctx context.Context, id common.CampaignID) (common.Address, error) {
	metrics, err := ls.GetCampaignMetrics(ctx, id)
	if err != nil {
		return "", err
	}
	if metrics.TopContributor.IsZero() {
		return "", fmt.Errorf("no donations: %w", common.ErrCampaignNotFound)
	}
	return metrics.TopContributor, nil
}

// GetContribution returns the net amount contributor has donated. Unknown
// contributors have a zero contribution
func (ls *LedgerState) GetContribution(
	ctx context.Context,
	id common.CampaignID,
	contributor common.Address,
) (common.Amount, error) {
	return query(ctx, ls, func(f *frame) (common.Amount, error) {
		if _, err := f.getCampaign(id); err != nil {
			return common.Amount{}, err
		}
		amount, _, err := f.txn.GetContribution(id, contributor)
		return amount, err
	})
}

func (ls *LedgerState) GetCampaignGoal(ctx context.Context, id common.CampaignID) (common.Amount, error) {
	campaign, err := ls.GetCampaign(ctx, id)
	if err != nil {
		return common.Amount{}, err
	}
	return campaign.Goal, nil
}

// IsCampaignCompleted reports whether the campaign balance has reached its goal
func (ls *LedgerState) IsCampaignCompleted(ctx context.Context, id common.CampaignID) (bool, error) {
	return query(ctx, ls, func(f *frame) (bool, error) {
		campaign, err := f.getCampaign(id)
		if err != nil {
			return false, err
		}
		metrics, err := f.txn.GetCampaignMetrics(id)
		if err != nil {
			return false, err
		}
		return metrics.TotalRaised.Cmp(campaign.Goal) >= 0, nil
	})
}

// GetCampaignStatus derives the lifecycle status of a campaign at the
// current time
func (ls *LedgerState) GetCampaignStatus(ctx context.Context, id common.CampaignID) (common.CampaignStatus, error) {
	return query(ctx, ls, func(f *frame) (common.CampaignStatus, error) {
		campaign, err := f.getCampaign(id)
		if err != nil {
			return 0, err
		}
		cancelled, claimed, err := f.campaignFlags(id)
		if err != nil {
			return 0, err
		}
		switch {
		case cancelled:
			return common.CampaignStatusCancelled, nil
		case claimed:
			return common.CampaignStatusClaimed, nil
		case campaign.TotalRaised.Cmp(campaign.Goal) >= 0:
			return common.CampaignStatusFunded, nil
		case f.now >= campaign.Deadline:
			return common.CampaignStatusExpired, nil
		default:
			return common.CampaignStatusActive, nil
		}
	})
}

func (ls *LedgerState) GetGlobalRaisedTotal(ctx context.Context) (common.Amount, error) {
	return query(ctx, ls, func(f *frame) (common.Amount, error) {
		return f.txn.GetAmount(types.GlobalTotalRaisedKey())
	})
}

// GetCampaignFeeHistory returns the platform fees taken from donations to
// a campaign
func (ls *LedgerState) GetCampaignFeeHistory(ctx context.Context, id common.CampaignID) (common.Amount, error) {
	return query(ctx, ls, func(f *frame) (common.Amount, error) {
		if _, err := f.getCampaign(id); err != nil {
			return common.Amount{}, err
		}
		return f.txn.GetAmount(types.CampaignFeeHistoryKey(id))
	})
}

