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

	"github.com/blinklabs-io/nevo/database/types"
	"github.com/blinklabs-io/nevo/ledger/common"
	"github.com/blinklabs-io/nevo/ledger/fee"
)

type pauseScope uint8

const (
	pauseScopeGlobal pauseScope = iota
	pauseScopeCampaigns
	pauseScopePools
)

// checkPaused fails when the global pause or the pause flag for scope is set
func (f *frame) checkPaused(scope pauseScope) error {
	paused, err := f.txn.GetFlag(types.PausedKey())
	if err != nil {
		return err
	}
	if paused {
		return common.ErrContractPaused
	}
	switch scope {
	case pauseScopeCampaigns:
		paused, err = f.txn.GetFlag(types.CampaignsPausedKey())
		if err == nil && paused {
			err = common.ErrCampaignsPaused
		}
	case pauseScopePools:
		paused, err = f.txn.GetFlag(types.PoolsPausedKey())
		if err == nil && paused {
			err = common.ErrPoolsPaused
		}
	}
	return err
}

// admin returns the stored admin address
func (f *frame) admin() (common.Address, error) {
	admin, err := f.txn.GetAddress(types.AdminKey())
	if err == nil {
		return admin, nil
	}
	if !errors.Is(err, types.ErrKeyNotFound) {
		return "", err
	}
	initialized, err := f.txn.GetFlag(types.InitializedKey())
	if err != nil {
		return "", err
	}
	if initialized {
		// The admin role was renounced
		return "", common.ErrUnauthorized
	}
	return "", common.ErrNotInitialized
}

// requireAdmin checks that the admin authorized the call and returns it
func (f *frame) requireAdmin(ctx context.Context) (common.Address, error) {
	admin, err := f.admin()
	if err != nil {
		return "", err
	}
	if err := f.requireAuth(ctx, admin); err != nil {
		return "", err
	}
	return admin, nil
}

func (f *frame) isAdmin(addr common.Address) (bool, error) {
	admin, err := f.admin()
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) || errors.Is(err, common.ErrNotInitialized) {
			return false, nil
		}
		return false, err
	}
	return admin == addr, nil
}

func (f *frame) emitAdmin(action AdminAction, admin, subject common.Address, value string) {
	f.emit(AdminEventType, AdminEvent{
		Action:    action,
		Admin:     admin,
		Subject:   subject,
		Value:     value,
		Timestamp: f.now,
	})
}

// Initialize sets the admin, the crowdfunding token and the campaign
// creation fee. It can only succeed once
func (ls *LedgerState) Initialize(
	ctx context.Context,
	admin, token common.Address,
	creationFee common.Amount,
) error {
	return ls.invoke(ctx, "initialize", func(ctx context.Context, f *frame) error {
		initialized, err := f.txn.GetFlag(types.InitializedKey())
		if err != nil {
			return err
		}
		if initialized {
			return common.ErrAlreadyInitialized
		}
		if err := f.requireAuth(ctx, admin); err != nil {
			return err
		}
		if token.IsZero() {
			return fmt.Errorf("crowdfunding token: %w", common.ErrEmptyAddress)
		}
		if creationFee.Sign() < 0 {
			return common.ErrInvalidFee
		}
		if err := f.txn.SetFlag(types.InitializedKey(), true); err != nil {
			return err
		}
		if err := f.txn.SetAddress(types.AdminKey(), admin); err != nil {
			return err
		}
		if err := f.txn.SetAddress(types.CrowdfundingTokenKey(), token); err != nil {
			return err
		}
		if err := f.txn.SetAmount(types.CreationFeeKey(), creationFee); err != nil {
			return err
		}
		f.emitAdmin(AdminActionInitialized, admin, token, creationFee.String())
		return nil
	})
}

func (ls *LedgerState) setPauseFlag(
	ctx context.Context,
	op string,
	key types.Key,
	paused bool,
	conflictErr error,
	action AdminAction,
) error {
	return ls.invoke(ctx, op, func(ctx context.Context, f *frame) error {
		admin, err := f.requireAdmin(ctx)
		if err != nil {
			return err
		}
		cur, err := f.txn.GetFlag(key)
		if err != nil {
			return err
		}
		if cur == paused {
			return conflictErr
		}
		if err := f.txn.SetFlag(key, paused); err != nil {
			return err
		}
		f.emitAdmin(action, admin, "", "")
		f.ls.config.Logger.Info(
			"ledger pause state changed",
			"component", "ledger",
			"action", string(action),
		)
		return nil
	})
}

// Pause stops all mutating operations until Unpause
func (ls *LedgerState) Pause(ctx context.Context) error {
	return ls.setPauseFlag(ctx, "pause", types.PausedKey(), true, common.ErrContractAlreadyPaused, AdminActionPaused)
}

func (ls *LedgerState) Unpause(ctx context.Context) error {
	return ls.setPauseFlag(ctx, "unpause", types.PausedKey(), false, common.ErrContractNotPaused, AdminActionUnpaused)
}

// PausePools stops pool operations only
func (ls *LedgerState) PausePools(ctx context.Context) error {
	return ls.setPauseFlag(ctx, "pause_pools", types.PoolsPausedKey(), true, common.ErrPoolsAlreadyPaused, AdminActionPoolsPaused)
}

func (ls *LedgerState) UnpausePools(ctx context.Context) error {
	return ls.setPauseFlag(ctx, "unpause_pools", types.PoolsPausedKey(), false, common.ErrPoolsNotPaused, AdminActionPoolsUnpaused)
}

// PauseCampaigns stops campaign operations only
func (ls *LedgerState) PauseCampaigns(ctx context.Context) error {
	return ls.setPauseFlag(ctx, "pause_campaigns", types.CampaignsPausedKey(), true, common.ErrCampaignsAlreadyPaused, AdminActionCampaignsPaused)
}

func (ls *LedgerState) UnpauseCampaigns(ctx context.Context) error {
	return ls.setPauseFlag(ctx, "unpause_campaigns", types.CampaignsPausedKey(), false, common.ErrCampaignsNotPaused, AdminActionCampaignsUnpaused)
}

func (ls *LedgerState) getFlag(ctx context.Context, key types.Key) (bool, error) {
	return query(ctx, ls, func(f *frame) (bool, error) {
		return f.txn.GetFlag(key)
	})
}

func (ls *LedgerState) IsPaused(ctx context.Context) (bool, error) {
	return ls.getFlag(ctx, types.PausedKey())
}

func (ls *LedgerState) IsPoolsPaused(ctx context.Context) (bool, error) {
	return ls.getFlag(ctx, types.PoolsPausedKey())
}

func (ls *LedgerState) IsCampaignsPaused(ctx context.Context) (bool, error) {
	return ls.getFlag(ctx, types.CampaignsPausedKey())
}

// TransferOwnership hands the admin role to newAdmin
func (ls *LedgerState) TransferOwnership(ctx context.Context, newAdmin common.Address) error {
	return ls.invoke(ctx, "transfer_ownership", func(ctx context.Context, f *frame) error {
		admin, err := f.requireAdmin(ctx)
		if err != nil {
			return err
		}
		if newAdmin.IsZero() {
			return fmt.Errorf("new admin: %w", common.ErrEmptyAddress)
		}
		if err := f.txn.SetAddress(types.AdminKey(), newAdmin); err != nil {
			return err
		}
		f.emitAdmin(AdminActionOwnershipTransferred, admin, newAdmin, "")
		return nil
	})
}

// RenounceAdmin removes the admin role permanently. Admin-only operations
// fail with common.ErrUnauthorized afterwards
func (ls *LedgerState) RenounceAdmin(ctx context.Context) error {
	return ls.invoke(ctx, "renounce_admin", func(ctx context.Context, f *frame) error {
		admin, err := f.requireAdmin(ctx)
		if err != nil {
			return err
		}
		if err := f.txn.Delete(types.AdminKey()); err != nil {
			return err
		}
		f.emitAdmin(AdminActionRenounced, admin, "", "")
		return nil
	})
}

func (ls *LedgerState) GetAdmin(ctx context.Context) (common.Address, error) {
	return query(ctx, ls, func(f *frame) (common.Address, error) {
		return f.admin()
	})
}

func (ls *LedgerState) SetCreationFee(ctx context.Context, creationFee common.Amount) error {
	return ls.invoke(ctx, "set_creation_fee", func(ctx context.Context, f *frame) error {
		admin, err := f.requireAdmin(ctx)
		if err != nil {
			return err
		}
		if creationFee.Sign() < 0 {
			return common.ErrInvalidFee
		}
		if err := f.txn.SetAmount(types.CreationFeeKey(), creationFee); err != nil {
			return err
		}
		f.emitAdmin(AdminActionCreationFeeSet, admin, "", creationFee.String())
		return nil
	})
}

func (ls *LedgerState) GetCreationFee(ctx context.Context) (common.Amount, error) {
	return query(ctx, ls, func(f *frame) (common.Amount, error) {
		return f.txn.GetAmount(types.CreationFeeKey())
	})
}

func (ls *LedgerState) SetCrowdfundingToken(ctx context.Context, token common.Address) error {
	return ls.invoke(ctx, "set_crowdfunding_token", func(ctx context.Context, f *frame) error {
		admin, err := f.requireAdmin(ctx)
		if err != nil {
			return err
		}
		if token.IsZero() {
			return fmt.Errorf("crowdfunding token: %w", common.ErrEmptyAddress)
		}
		if err := f.txn.SetAddress(types.CrowdfundingTokenKey(), token); err != nil {
			return err
		}
		f.emitAdmin(AdminActionTokenSet, admin, token, "")
		return nil
	})
}

// crowdfundingToken returns the configured funding asset or
// common.ErrNotInitialized
func (f *frame) crowdfundingToken() (common.Address, error) {
	token, err := f.txn.GetAddress(types.CrowdfundingTokenKey())
	if errors.Is(err, types.ErrKeyNotFound) {
		return "", common.ErrNotInitialized
	}
	return token, err
}

func (ls *LedgerState) GetCrowdfundingToken(ctx context.Context) (common.Address, error) {
	return query(ctx, ls, func(f *frame) (common.Address, error) {
		return f.crowdfundingToken()
	})
}

// SetPlatformFeeRate sets the fee, in basis points, taken from donations
// and pool contributions
func (ls *LedgerState) SetPlatformFeeRate(ctx context.Context, bps uint32) error {
	return ls.invoke(ctx, "set_platform_fee_rate", func(ctx context.Context, f *frame) error {
		admin, err := f.requireAdmin(ctx)
		if err != nil {
			return err
		}
		if bps > common.MaxFeeBasisPoints {
			return common.ErrInvalidFeeRate
		}
		if err := f.txn.SetUint(types.PlatformFeeRateKey(), uint64(bps)); err != nil {
			return err
		}
		f.emitAdmin(AdminActionFeeRateSet, admin, "", fmt.Sprintf("%d", bps))
		return nil
	})
}

func (ls *LedgerState) GetPlatformFeeRate(ctx context.Context) (uint32, error) {
	return query(ctx, ls, func(f *frame) (uint32, error) {
		rate, err := f.txn.GetUint(types.PlatformFeeRateKey())
		return uint32(rate), err //nolint:gosec // bounded by SetPlatformFeeRate
	})
}

// SetAssetDiscount sets a discount, in basis points of the platform fee
// rate, for contributions made in asset
func (ls *LedgerState) SetAssetDiscount(ctx context.Context, asset common.Address, bps uint32) error {
	return ls.invoke(ctx, "set_asset_discount", func(ctx context.Context, f *frame) error {
		admin, err := f.requireAdmin(ctx)
		if err != nil {
			return err
		}
		if bps > common.MaxFeeBasisPoints {
			return common.ErrInvalidFeeRate
		}
		if err := f.txn.SetUint(types.AssetDiscountKey(asset), uint64(bps)); err != nil {
			return err
		}
		f.emitAdmin(AdminActionAssetDiscountSet, admin, asset, fmt.Sprintf("%d", bps))
		return nil
	})
}

func (ls *LedgerState) GetAssetDiscount(ctx context.Context, asset common.Address) (uint32, error) {
	return query(ctx, ls, func(f *frame) (uint32, error) {
		rate, err := f.txn.GetUint(types.AssetDiscountKey(asset))
		return uint32(rate), err //nolint:gosec // bounded by SetAssetDiscount
	})
}

// feeRate returns the platform fee rate that applies to asset
func (f *frame) feeRate(asset common.Address) (uint32, error) {
	base, err := f.txn.GetUint(types.PlatformFeeRateKey())
	if err != nil {
		return 0, err
	}
	discount, err := f.txn.GetUint(types.AssetDiscountKey(asset))
	if err != nil {
		return 0, err
	}
	return fee.EffectiveRate(uint32(base), uint32(discount)) //nolint:gosec
}

// takeFee splits gross into the platform fee and the net amount, crediting
// the fee to the platform balance of asset and to historyKey
func (f *frame) takeFee(
	asset common.Address,
	gross common.Amount,
	historyKey types.Key,
) (common.Amount, common.Amount, error) {
	rate, err := f.feeRate(asset)
	if err != nil {
		return common.Amount{}, common.Amount{}, err
	}
	platformFee, net, err := fee.Split(gross, rate)
	if err != nil {
		return common.Amount{}, common.Amount{}, err
	}
	if platformFee.IsZero() {
		return platformFee, net, nil
	}
	if _, err := f.addAmount(types.PlatformFeesKey(asset), platformFee); err != nil {
		return common.Amount{}, common.Amount{}, err
	}
	if _, err := f.addAmount(historyKey, platformFee); err != nil {
		return common.Amount{}, common.Amount{}, err
	}
	return platformFee, net, nil
}

// GetPlatformFees returns the withdrawable platform fee balance for asset
func (ls *LedgerState) GetPlatformFees(ctx context.Context, asset common.Address) (common.Amount, error) {
	return query(ctx, ls, func(f *frame) (common.Amount, error) {
		return f.txn.GetAmount(types.PlatformFeesKey(asset))
	})
}

// WithdrawPlatformFees pays amount of the crowdfunding token fee balance to
// the admin
func (ls *LedgerState) WithdrawPlatformFees(
	ctx context.Context,
	admin common.Address,
	amount common.Amount,
) error {
	return ls.invoke(ctx, "withdraw_platform_fees", func(ctx context.Context, f *frame) error {
		token, err := f.crowdfundingToken()
		if err != nil {
			return err
		}
		return f.withdrawFees(ctx, admin, token, amount)
	})
}

// WithdrawAssetFees pays amount of the platform fee balance held in asset to
// the admin
func (ls *LedgerState) WithdrawAssetFees(
	ctx context.Context,
	admin, asset common.Address,
	amount common.Amount,
) error {
	return ls.invoke(ctx, "withdraw_asset_fees", func(ctx context.Context, f *frame) error {
		return f.withdrawFees(ctx, admin, asset, amount)
	})
}

func (f *frame) withdrawFees(
	ctx context.Context,
	admin, asset common.Address,
	amount common.Amount,
) error {
	stored, err := f.requireAdmin(ctx)
	if err != nil {
		return err
	}
	if stored != admin {
		return common.ErrUnauthorized
	}
	if amount.Sign() <= 0 {
		return common.ErrInvalidAmount
	}
	key := types.PlatformFeesKey(asset)
	balance, err := f.txn.GetAmount(key)
	if err != nil {
		return err
	}
	if amount.Cmp(balance) > 0 {
		return common.ErrInsufficientFees
	}
	remaining, err := checkedSub(balance, amount)
	if err != nil {
		return err
	}
	if err := f.txn.SetAmount(key, remaining); err != nil {
		return err
	}
	if err := f.transferOut(ctx, asset, admin, amount); err != nil {
		return err
	}
	f.emitAdmin(AdminActionFeesWithdrawn, admin, asset, amount.String())
	return nil
}

// VerifyCause marks cause as verified by the admin
func (ls *LedgerState) VerifyCause(ctx context.Context, cause common.Address) error {
	return ls.invoke(ctx, "verify_cause", func(ctx context.Context, f *frame) error {
		admin, err := f.requireAdmin(ctx)
		if err != nil {
			return err
		}
		if err := f.txn.SetFlag(types.VerifiedCauseKey(cause), true); err != nil {
			return err
		}
		f.emitAdmin(AdminActionCauseVerified, admin, cause, "")
		return nil
	})
}

func (ls *LedgerState) IsCauseVerified(ctx context.Context, cause common.Address) (bool, error) {
	return ls.getFlag(ctx, types.VerifiedCauseKey(cause))
}

func (ls *LedgerState) SetEmergencyContact(ctx context.Context, contact common.Address) error {
	return ls.invoke(ctx, "set_emergency_contact", func(ctx context.Context, f *frame) error {
		admin, err := f.requireAdmin(ctx)
		if err != nil {
			return err
		}
		if contact.IsZero() {
			return fmt.Errorf("emergency contact: %w", common.ErrEmptyAddress)
		}
		if len(contact) > common.MaxEmergencyContactSize {
			return common.ErrStringTooLong
		}
		if err := f.txn.SetAddress(types.EmergencyContactKey(), contact); err != nil {
			return err
		}
		f.emitAdmin(AdminActionEmergencyContactSet, admin, contact, "")
		return nil
	})
}

// GetEmergencyContact returns common.ErrNotInitialized when no contact is set
func (ls *LedgerState) GetEmergencyContact(ctx context.Context) (common.Address, error) {
	return query(ctx, ls, func(f *frame) (common.Address, error) {
		contact, err := f.txn.GetAddress(types.EmergencyContactKey())
		if errors.Is(err, types.ErrKeyNotFound) {
			return "", common.ErrNotInitialized
		}
		return contact, err
	})
}
