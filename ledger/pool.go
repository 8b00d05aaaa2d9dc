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
	"math/bits"
	"unicode/utf8"

	"github.com/blinklabs-io/nevo/database/models"
	"github.com/blinklabs-io/nevo/database/types"
	"github.com/blinklabs-io/nevo/ledger/common"
)

// PoolConfig describes a pool created with a fixed duration
type PoolConfig struct {
	Name            string
	Description     string
	Target          common.Amount
	MinContribution common.Amount
	IsPrivate       bool
	Duration        uint64
}

// SavePoolParams describes a pool created with an absolute deadline. The
// multi-sig fields must be set together or not at all
type SavePoolParams struct {
	Name               string
	Metadata           models.PoolMetadata
	Creator            common.Address
	Target             common.Amount
	Deadline           uint64
	RequiredSignatures *uint32
	Signers            []common.Address
}

func validatePoolName(name string) error {
	if name == "" || utf8.RuneCountInString(name) > common.MaxPoolNameLength {
		return common.ErrInvalidPoolName
	}
	return nil
}

func validatePoolMetadata(m *models.PoolMetadata) error {
	if utf8.RuneCountInString(m.Description) > common.MaxDescriptionLength ||
		utf8.RuneCountInString(m.ExternalURL) > common.MaxExternalURLLength ||
		utf8.RuneCountInString(m.ImageHash) > common.MaxMetadataHashLength {
		return common.ErrInvalidMetadata
	}
	return nil
}

func validateMultiSig(required *uint32, signers []common.Address) (*models.MultiSigConfig, error) {
	if required == nil && signers == nil {
		return nil, nil
	}
	if required == nil || signers == nil {
		return nil, common.ErrInvalidMultiSigConfig
	}
	if len(signers) == 0 {
		return nil, common.ErrInvalidSignerCount
	}
	if *required == 0 || int(*required) > len(signers) {
		return nil, common.ErrInvalidMultiSigConfig
	}
	seen := make(map[common.Address]struct{}, len(signers))
	for _, signer := range signers {
		if signer.IsZero() {
			return nil, common.ErrInvalidMultiSigConfig
		}
		if _, ok := seen[signer]; ok {
			return nil, common.ErrInvalidMultiSigConfig
		}
		seen[signer] = struct{}{}
	}
	return &models.MultiSigConfig{
		RequiredApprovals: *required,
		Signers:           append([]common.Address(nil), signers...),
	}, nil
}

func (f *frame) getPool(id common.PoolID) (*models.Pool, error) {
	pool, err := f.txn.GetPool(id)
	if errors.Is(err, types.ErrKeyNotFound) {
		return nil, common.ErrPoolNotFound
	}
	return pool, err
}

// refundWindowFits reports whether the deadline and the end of the refund
// grace period of a pool created at now are representable
func refundWindowFits(now, duration uint64) bool {
	deadline, carry := bits.Add64(now, duration, 0)
	if carry != 0 {
		return false
	}
	_, carry = bits.Add64(deadline, common.RefundGracePeriod, 0)
	return carry == 0
}

// storePool assigns the next pool id and writes the initial records of a
// new pool
func (f *frame) storePool(pool *models.Pool, metadata *models.PoolMetadata) error {
	next, err := f.txn.NextSequence(types.NextPoolIDKey())
	if err != nil {
		return err
	}
	pool.ID = common.PoolID(next)
	exists, err := f.txn.Has(types.PoolKey(pool.ID))
	if err != nil {
		return err
	}
	if exists {
		return common.ErrPoolAlreadyExists
	}
	pool.CreatedAt = f.now
	if err := f.txn.SetPool(pool); err != nil {
		return err
	}
	if err := f.txn.SetPoolState(pool.ID, common.PoolStateActive); err != nil {
		return err
	}
	if err := f.txn.SetPoolMetrics(pool.ID, &models.PoolMetrics{}); err != nil {
		return err
	}
	if metadata != nil {
		if err := f.txn.SetPoolMetadata(pool.ID, metadata); err != nil {
			return err
		}
	}
	f.emit(PoolCreatedEventType, PoolCreatedEvent{
		PoolID:   pool.ID,
		Name:     pool.Name,
		Creator:  pool.Creator,
		Target:   pool.Target,
		Deadline: pool.Deadline(),
	})
	return nil
}

// CreatePool creates a pool that accepts contributions for cfg.Duration
// seconds and returns its id
func (ls *LedgerState) CreatePool(
	ctx context.Context,
	creator common.Address,
	cfg PoolConfig,
) (common.PoolID, error) {
	var id common.PoolID
	err := ls.invoke(ctx, "create_pool", func(ctx context.Context, f *frame) error {
		if err := f.checkPaused(pauseScopePools); err != nil {
			return err
		}
		if err := f.requireAuth(ctx, creator); err != nil {
			return err
		}
		if err := validatePoolName(cfg.Name); err != nil {
			return err
		}
		if cfg.Target.Sign() <= 0 {
			return common.ErrInvalidPoolTarget
		}
		if cfg.Duration == 0 || !refundWindowFits(f.now, cfg.Duration) {
			return common.ErrInvalidPoolDeadline
		}
		if cfg.MinContribution.Sign() < 0 {
			return common.ErrInvalidAmount
		}
		if utf8.RuneCountInString(cfg.Description) > common.MaxDescriptionLength {
			return common.ErrStringTooLong
		}
		pool := &models.Pool{
			Name:            cfg.Name,
			Description:     cfg.Description,
			Creator:         creator,
			Target:          cfg.Target,
			MinContribution: cfg.MinContribution,
			IsPrivate:       cfg.IsPrivate,
			Duration:        cfg.Duration,
		}
		if err := f.storePool(pool, nil); err != nil {
			return err
		}
		id = pool.ID
		return nil
	})
	return id, err
}

// SavePool creates a pool with metadata and an optional multi-sig
// configuration and returns its id
func (ls *LedgerState) SavePool(ctx context.Context, params SavePoolParams) (common.PoolID, error) {
	var id common.PoolID
	err := ls.invoke(ctx, "save_pool", func(ctx context.Context, f *frame) error {
		if err := f.checkPaused(pauseScopePools); err != nil {
			return err
		}
		if err := f.requireAuth(ctx, params.Creator); err != nil {
			return err
		}
		if err := validatePoolName(params.Name); err != nil {
			return err
		}
		if params.Target.Sign() <= 0 {
			return common.ErrInvalidPoolTarget
		}
		if params.Deadline <= f.now || !refundWindowFits(f.now, params.Deadline-f.now) {
			return common.ErrInvalidPoolDeadline
		}
		metadata := params.Metadata
		if err := validatePoolMetadata(&metadata); err != nil {
			return err
		}
		multiSig, err := validateMultiSig(params.RequiredSignatures, params.Signers)
		if err != nil {
			return err
		}
		pool := &models.Pool{
			Name:        params.Name,
			Description: metadata.Description,
			Creator:     params.Creator,
			Target:      params.Target,
			Duration:    params.Deadline - f.now,
		}
		if err := f.storePool(pool, &metadata); err != nil {
			return err
		}
		if multiSig != nil {
			if err := f.txn.SetMultiSigConfig(pool.ID, multiSig); err != nil {
				return err
			}
		}
		id = pool.ID
		return nil
	})
	return id, err
}

// Contribute transfers amount of asset from contributor into the pool. The
// first contribution fixes the pool asset to the crowdfunding token of the
// time and later contributions must use it. The platform fee is taken from
// the amount and the remainder is credited to the pool and the contributor
func (ls *LedgerState) Contribute(
	ctx context.Context,
	poolID common.PoolID,
	contributor, asset common.Address,
	amount common.Amount,
	isPrivate bool,
) error {
	return ls.invoke(ctx, "contribute", func(ctx context.Context, f *frame) error {
		if err := f.checkPaused(pauseScopePools); err != nil {
			return err
		}
		if err := f.requireAuth(ctx, contributor); err != nil {
			return err
		}
		if amount.Sign() <= 0 {
			return common.ErrInvalidAmount
		}
		pool, err := f.getPool(poolID)
		if err != nil {
			return err
		}
		state, err := f.txn.GetPoolState(poolID)
		if err != nil {
			return err
		}
		if state == common.PoolStateClosed {
			return common.ErrPoolAlreadyClosed
		}
		if state != common.PoolStateActive {
			return common.ErrInvalidPoolState
		}
		if amount.Cmp(pool.MinContribution) < 0 {
			return common.ErrInvalidAmount
		}
		metrics, err := f.txn.GetPoolMetrics(poolID)
		if err != nil {
			return err
		}
		poolAsset := metrics.Asset
		if poolAsset.IsZero() {
			if poolAsset, err = f.crowdfundingToken(); err != nil {
				return err
			}
		}
		if asset != poolAsset {
			return fmt.Errorf(
				"pool %d accepts %s, not %s: %w",
				poolID,
				poolAsset,
				asset,
				common.ErrTokenTransferFailed,
			)
		}
		contribution, err := f.txn.GetPoolContribution(poolID, contributor)
		isNew := errors.Is(err, types.ErrKeyNotFound)
		if err != nil && !isNew {
			return err
		}
		if isNew {
			contribution = &models.PoolContribution{
				PoolID:      poolID,
				Contributor: contributor,
				Asset:       asset,
			}
		}
		if err := f.transferIn(ctx, asset, contributor, amount); err != nil {
			return err
		}
		platformFee, net, err := f.takeFee(asset, amount, types.PoolFeeHistoryKey(poolID))
		if err != nil {
			return err
		}
		metrics.Asset = asset
		if contribution.Amount.IsZero() {
			metrics.ContributorCount++
		}
		if metrics.TotalRaised, err = checkedAdd(metrics.TotalRaised, net); err != nil {
			return err
		}
		metrics.LastDonationAt = f.now
		if err := f.txn.SetPoolMetrics(poolID, metrics); err != nil {
			return err
		}
		if contribution.Amount, err = checkedAdd(contribution.Amount, net); err != nil {
			return err
		}
		contribution.Asset = asset
		if err := f.txn.SetPoolContribution(contribution); err != nil {
			return err
		}
		if isNew {
			contributors, err := f.txn.GetPoolContributors(poolID)
			if err != nil {
				return err
			}
			if err := f.txn.SetPoolContributors(poolID, append(contributors, contributor)); err != nil {
				return err
			}
		}
		if _, err := f.addAmount(types.GlobalTotalRaisedKey(), net); err != nil {
			return err
		}
		f.emit(PoolContributionEventType, PoolContributionEvent{
			PoolID:      poolID,
			Contributor: contributor,
			Asset:       asset,
			Amount:      amount,
			Fee:         platformFee,
			IsPrivate:   isPrivate,
			Timestamp:   f.now,
		})
		return nil
	})
}

// Refund returns the contribution of contributor once the pool deadline
// and the refund grace period have passed without a disbursement
func (ls *LedgerState) Refund(
	ctx context.Context,
	poolID common.PoolID,
	contributor common.Address,
) error {
	return ls.invoke(ctx, "refund", func(ctx context.Context, f *frame) error {
		return f.guard(types.ReentrancyLockKey(poolID), func() error {
			return f.refund(ctx, poolID, contributor)
		})
	})
}

func (f *frame) refund(
	ctx context.Context,
	poolID common.PoolID,
	contributor common.Address,
) error {
	if err := f.checkPaused(pauseScopePools); err != nil {
		return err
	}
	if err := f.requireAuth(ctx, contributor); err != nil {
		return err
	}
	pool, err := f.getPool(poolID)
	if err != nil {
		return err
	}
	if pool.Duration == 0 {
		return common.ErrRefundNotAvailable
	}
	deadline := pool.Deadline()
	if f.now < deadline {
		return common.ErrPoolNotExpired
	}
	state, err := f.txn.GetPoolState(poolID)
	if err != nil {
		return err
	}
	switch state {
	case common.PoolStateCompleted:
		return common.ErrInvalidPoolState
	case common.PoolStateDisbursed:
		return common.ErrPoolAlreadyDisbursed
	}
	if f.now < deadline+common.RefundGracePeriod {
		return common.ErrRefundGracePeriod
	}
	contribution, err := f.txn.GetPoolContribution(poolID, contributor)
	if err != nil {
		if errors.Is(err, types.ErrKeyNotFound) {
			return common.ErrNoContributionToRefund
		}
		return err
	}
	if contribution.Amount.Sign() <= 0 {
		return common.ErrNoContributionToRefund
	}
	amount := contribution.Amount
	contribution.Amount = common.Amount{}
	if err := f.txn.SetPoolContribution(contribution); err != nil {
		return err
	}
	metrics, err := f.txn.GetPoolMetrics(poolID)
	if err != nil {
		return err
	}
	if metrics.TotalRaised, err = checkedSub(metrics.TotalRaised, amount); err != nil {
		return err
	}
	if err := f.txn.SetPoolMetrics(poolID, metrics); err != nil {
		return err
	}
	if _, err := f.subAmount(types.GlobalTotalRaisedKey(), amount); err != nil {
		return err
	}
	if err := f.transferOut(ctx, contribution.Asset, contributor, amount); err != nil {
		return err
	}
	f.emit(PoolRefundEventType, PoolRefundEvent{
		PoolID:      poolID,
		Contributor: contributor,
		Asset:       contribution.Asset,
		Amount:      amount,
		Timestamp:   f.now,
	})
	return nil
}

// GetPoolFeeHistory returns the platform fees taken from contributions to a
// pool
func (ls *LedgerState) GetPoolFeeHistory(ctx context.Context, poolID common.PoolID) (common.Amount, error) {
	return query(ctx, ls, func(f *frame) (common.Amount, error) {
		if _, err := f.getPool(poolID); err != nil {
			return common.Amount{}, err
		}
		return f.txn.GetAmount(types.PoolFeeHistoryKey(poolID))
	})
}

// ClosePool moves a pool to the absorbing Closed state
func (ls *LedgerState) ClosePool(
	ctx context.Context,
	poolID common.PoolID,
	caller common.Address,
) error {
	return ls.invoke(ctx, "close_pool", func(ctx context.Context, f *frame) error {
		if err := f.checkPaused(pauseScopePools); err != nil {
			return err
		}
		if err := f.requireAuth(ctx, caller); err != nil {
			return err
		}
		pool, err := f.getPool(poolID)
		if err != nil {
			return err
		}
		state, err := f.txn.GetPoolState(poolID)
		if err != nil {
			return err
		}
		if state == common.PoolStateClosed {
			return common.ErrPoolAlreadyClosed
		}
		admin, err := f.admin()
		if err != nil {
			if errors.Is(err, common.ErrUnauthorized) {
				// Renounced admin leaves only the creator
				admin = ""
			} else {
				return err
			}
		}
		isCreator := pool.Creator == caller
		if !isCreator && (admin.IsZero() || caller != admin) {
			return common.ErrUnauthorized
		}
		if isCreator && pool.IsPrivate {
			switch state {
			case common.PoolStateActive,
				common.PoolStatePaused,
				common.PoolStateCancelled,
				common.PoolStateDisbursed:
			default:
				return common.ErrInvalidPoolState
			}
		} else if state != common.PoolStateDisbursed && state != common.PoolStateCancelled {
			return common.ErrPoolNotDisbursedOrRefund
		}
		if err := f.txn.SetPoolState(poolID, common.PoolStateClosed); err != nil {
			return err
		}
		f.emit(PoolClosedEventType, PoolClosedEvent{
			PoolID:    poolID,
			ClosedBy:  caller,
			Timestamp: f.now,
		})
		return nil
	})
}

// UpdatePoolState applies a manual lifecycle transition. Closed is only
// reachable through ClosePool and Disbursed only through disbursement
// execution
func (ls *LedgerState) UpdatePoolState(
	ctx context.Context,
	poolID common.PoolID,
	newState common.PoolState,
	caller common.Address,
) error {
	return ls.invoke(ctx, "update_pool_state", func(ctx context.Context, f *frame) error {
		if err := f.checkPaused(pauseScopePools); err != nil {
			return err
		}
		if err := f.requireAuth(ctx, caller); err != nil {
			return err
		}
		pool, err := f.getPool(poolID)
		if err != nil {
			return err
		}
		isAdmin, err := f.isAdmin(caller)
		if err != nil {
			return err
		}
		if pool.Creator != caller && !isAdmin {
			return common.ErrUnauthorized
		}
		current, err := f.txn.GetPoolState(poolID)
		if err != nil {
			return err
		}
		switch current {
		case common.PoolStateClosed:
			return common.ErrPoolAlreadyClosed
		case common.PoolStateCompleted, common.PoolStateCancelled:
			return common.ErrInvalidPoolState
		}
		if !poolTransitionAllowed(current, newState) {
			return common.ErrInvalidPoolState
		}
		if newState == common.PoolStateCompleted && !isAdmin {
			return common.ErrUnauthorized
		}
		if err := f.txn.SetPoolState(poolID, newState); err != nil {
			return err
		}
		f.emit(PoolStateUpdatedEventType, PoolStateUpdatedEvent{
			PoolID:   poolID,
			Previous: current,
			State:    newState,
		})
		return nil
	})
}

func poolTransitionAllowed(from, to common.PoolState) bool {
	switch to {
	case common.PoolStatePaused:
		return from == common.PoolStateActive
	case common.PoolStateActive:
		return from == common.PoolStatePaused
	case common.PoolStateCancelled:
		return from == common.PoolStateActive || from == common.PoolStatePaused
	case common.PoolStateCompleted:
		return from != common.PoolStateCompleted
	default:
		return false
	}
}

// UpdatePoolMetadataHash replaces the image hash of a pool. Only the pool
// creator may change it
func (ls *LedgerState) UpdatePoolMetadataHash(
	ctx context.Context,
	poolID common.PoolID,
	caller common.Address,
	hash string,
) error {
	return ls.invoke(ctx, "update_pool_metadata_hash", func(ctx context.Context, f *frame) error {
		if err := f.checkPaused(pauseScopePools); err != nil {
			return err
		}
		if err := f.requireAuth(ctx, caller); err != nil {
			return err
		}
		pool, err := f.getPool(poolID)
		if err != nil {
			return err
		}
		if pool.Creator != caller {
			return common.ErrUnauthorized
		}
		if utf8.RuneCountInString(hash) > common.MaxMetadataHashLength {
			return common.ErrInvalidMetadata
		}
		metadata, err := f.txn.GetPoolMetadata(poolID)
		if err != nil {
			return err
		}
		metadata.ImageHash = hash
		if err := f.txn.SetPoolMetadata(poolID, metadata); err != nil {
			return err
		}
		f.emit(PoolMetadataUpdatedEventType, PoolMetadataUpdatedEvent{
			PoolID:    poolID,
			ImageHash: hash,
		})
		return nil
	})
}

func (ls *LedgerState) GetPool(ctx context.Context, poolID common.PoolID) (*models.Pool, error) {
	return query(ctx, ls, func(f *frame) (*models.Pool, error) {
		return f.getPool(poolID)
	})
}

// ListPools returns every pool in id order
func (ls *LedgerState) ListPools(ctx context.Context) ([]*models.Pool, error) {
	return query(ctx, ls, func(f *frame) ([]*models.Pool, error) {
		return f.txn.ListPools()
	})
}

func (ls *LedgerState) GetPoolState(ctx context.Context, poolID common.PoolID) (common.PoolState, error) {
	return query(ctx, ls, func(f *frame) (common.PoolState, error) {
		if _, err := f.getPool(poolID); err != nil {
			return 0, err
		}
		return f.txn.GetPoolState(poolID)
	})
}

// GetPoolMetadata returns the metadata of a pool. Pools created without
// metadata have empty metadata
func (ls *LedgerState) GetPoolMetadata(ctx context.Context, poolID common.PoolID) (*models.PoolMetadata, error) {
	return query(ctx, ls, func(f *frame) (*models.PoolMetadata, error) {
		return f.txn.GetPoolMetadata(poolID)
	})
}

func (ls *LedgerState) GetPoolMetrics(ctx context.Context, poolID common.PoolID) (*models.PoolMetrics, error) {
	return query(ctx, ls, func(f *frame) (*models.PoolMetrics, error) {
		if _, err := f.getPool(poolID); err != nil {
			return nil, err
		}
		return f.txn.GetPoolMetrics(poolID)
	})
}

// GetPoolRemainingTime returns the seconds left until the pool deadline, or
// 0 once it has passed
func (ls *LedgerState) GetPoolRemainingTime(ctx context.Context, poolID common.PoolID) (uint64, error) {
	return query(ctx, ls, func(f *frame) (uint64, error) {
		pool, err := f.getPool(poolID)
		if err != nil {
			return 0, err
		}
		deadline := pool.Deadline()
		if f.now >= deadline {
			return 0, nil
		}
		return deadline - f.now, nil
	})
}

func (ls *LedgerState) IsClosed(ctx context.Context, poolID common.PoolID) (bool, error) {
	state, err := ls.GetPoolState(ctx, poolID)
	if err != nil {
		return false, err
	}
	return state == common.PoolStateClosed, nil
}

// GetPoolContribution returns the contribution of contributor. A
// contributor who never contributed has a zero contribution
func (ls *LedgerState) GetPoolContribution(
	ctx context.Context,
	poolID common.PoolID,
	contributor common.Address,
) (*models.PoolContribution, error) {
	return query(ctx, ls, func(f *frame) (*models.PoolContribution, error) {
		if _, err := f.getPool(poolID); err != nil {
			return nil, err
		}
		ret, err := f.txn.GetPoolContribution(poolID, contributor)
		if errors.Is(err, types.ErrKeyNotFound) {
			return &models.PoolContribution{
				PoolID:      poolID,
				Contributor: contributor,
			}, nil
		}
		return ret, err
	})
}

// GetPoolContributionsPaginated returns up to limit contributions starting at
// offset, in order of first contribution
func (ls *LedgerState) GetPoolContributionsPaginated(
	ctx context.Context,
	poolID common.PoolID,
	offset, limit uint32,
) ([]*models.PoolContribution, error) {
	return query(ctx, ls, func(f *frame) ([]*models.PoolContribution, error) {
		if _, err := f.getPool(poolID); err != nil {
			return nil, err
		}
		contributors, err := f.txn.GetPoolContributors(poolID)
		if err != nil {
			return nil, err
		}
		total := uint64(len(contributors))
		if uint64(offset) >= total {
			return []*models.PoolContribution{}, nil
		}
		end := min(uint64(offset)+uint64(limit), total)
		ret := make([]*models.PoolContribution, 0, end-uint64(offset))
		for _, contributor := range contributors[offset:end] {
			contribution, err := f.txn.GetPoolContribution(poolID, contributor)
			if err != nil {
				if errors.Is(err, types.ErrKeyNotFound) {
					continue
				}
				return nil, err
			}
			ret = append(ret, contribution)
		}
		return ret, nil
	})
}
