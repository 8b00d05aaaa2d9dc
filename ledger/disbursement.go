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
	"slices"

	"github.com/blinklabs-io/nevo/database/models"
	"github.com/blinklabs-io/nevo/database/types"
	"github.com/blinklabs-io/nevo/ledger/common"
)

// multiSigConfig returns the multi-sig configuration of a pool, or nil when
// the pool has none
func (f *frame) multiSigConfig(poolID common.PoolID) (*models.MultiSigConfig, error) {
	cfg, err := f.txn.GetMultiSigConfig(poolID)
	if errors.Is(err, types.ErrKeyNotFound) {
		return nil, nil
	}
	return cfg, err
}

// canApprove reports whether addr is the pool creator or a configured signer
func canApprove(pool *models.Pool, cfg *models.MultiSigConfig, addr common.Address) bool {
	if pool.Creator == addr {
		return true
	}
	return cfg != nil && cfg.IsSigner(addr)
}

// requireOpenPool fails once a pool is Closed or Completed. Both states
// are final for disbursements and signer changes
func (f *frame) requireOpenPool(poolID common.PoolID) (common.PoolState, error) {
	state, err := f.txn.GetPoolState(poolID)
	if err != nil {
		return state, err
	}
	switch state {
	case common.PoolStateClosed:
		return state, common.ErrPoolAlreadyClosed
	case common.PoolStateCompleted:
		return state, common.ErrInvalidPoolState
	}
	return state, nil
}

// countApprovals counts the approvals of addresses that may still approve.
// Approvals from removed signers do not count
func countApprovals(pool *models.Pool, cfg *models.MultiSigConfig, d *models.Disbursement) int {
	var ret int
	for _, addr := range d.Approvals {
		if canApprove(pool, cfg, addr) {
			ret++
		}
	}
	return ret
}

func (f *frame) getDisbursement(
	poolID common.PoolID,
	id common.DisbursementID,
) (*models.Disbursement, error) {
	d, err := f.txn.GetDisbursement(poolID, id)
	if errors.Is(err, types.ErrKeyNotFound) {
		return nil, common.ErrDisbursementNotFound
	}
	return d, err
}

// RequestDisbursement opens a request to pay amount from the pool to
// recipient and returns its id
func (ls *LedgerState) RequestDisbursement(
	ctx context.Context,
	poolID common.PoolID,
	amount common.Amount,
	recipient, requester common.Address,
) (common.DisbursementID, error) {
	var id common.DisbursementID
	err := ls.invoke(ctx, "request_disbursement", func(ctx context.Context, f *frame) error {
		if err := f.checkPaused(pauseScopePools); err != nil {
			return err
		}
		if err := f.requireAuth(ctx, requester); err != nil {
			return err
		}
		pool, err := f.getPool(poolID)
		if err != nil {
			return err
		}
		cfg, err := f.multiSigConfig(poolID)
		if err != nil {
			return err
		}
		if !canApprove(pool, cfg, requester) {
			return common.ErrNotAuthorizedSigner
		}
		if amount.Sign() <= 0 {
			return common.ErrInvalidAmount
		}
		if recipient.IsZero() {
			return common.ErrEmptyAddress
		}
		if _, err := f.requireOpenPool(poolID); err != nil {
			return err
		}
		next, err := f.txn.NextSequence(types.NextDisbursementIDKey(poolID))
		if err != nil {
			return err
		}
		id = common.DisbursementID(next)
		err = f.txn.SetDisbursement(&models.Disbursement{
			ID:        id,
			PoolID:    poolID,
			Amount:    amount,
			Recipient: recipient,
			Requester: requester,
			CreatedAt: f.now,
		})
		if err != nil {
			return err
		}
		f.emit(DisbursementRequestedEventType, DisbursementRequestedEvent{
			PoolID:         poolID,
			DisbursementID: id,
			Amount:         amount,
			Recipient:      recipient,
			Requester:      requester,
		})
		return nil
	})
	return id, err
}

// ApproveDisbursement records the approval of signer
func (ls *LedgerState) ApproveDisbursement(
	ctx context.Context,
	poolID common.PoolID,
	id common.DisbursementID,
	signer common.Address,
) error {
	return ls.invoke(ctx, "approve_disbursement", func(ctx context.Context, f *frame) error {
		if err := f.checkPaused(pauseScopePools); err != nil {
			return err
		}
		if err := f.requireAuth(ctx, signer); err != nil {
			return err
		}
		pool, err := f.getPool(poolID)
		if err != nil {
			return err
		}
		cfg, err := f.multiSigConfig(poolID)
		if err != nil {
			return err
		}
		if !canApprove(pool, cfg, signer) {
			return common.ErrNotAuthorizedSigner
		}
		if _, err := f.requireOpenPool(poolID); err != nil {
			return err
		}
		d, err := f.getDisbursement(poolID, id)
		if err != nil {
			return err
		}
		if d.Executed {
			return common.ErrDisbursementExecuted
		}
		if d.HasApproved(signer) {
			return common.ErrAlreadyApproved
		}
		d.Approvals = append(d.Approvals, signer)
		if err := f.txn.SetDisbursement(d); err != nil {
			return err
		}
		f.emit(DisbursementApprovedEventType, DisbursementApprovedEvent{
			PoolID:         poolID,
			DisbursementID: id,
			Signer:         signer,
			Approvals:      len(d.Approvals),
		})
		return nil
	})
}

// ExecuteDisbursement pays an approved disbursement in the pool asset and
// marks the pool Disbursed
func (ls *LedgerState) ExecuteDisbursement(
	ctx context.Context,
	poolID common.PoolID,
	id common.DisbursementID,
) error {
	return ls.invoke(ctx, "execute_disbursement", func(ctx context.Context, f *frame) error {
		return f.guard(types.ReentrancyLockKey(poolID), func() error {
			return f.executeDisbursement(ctx, poolID, id)
		})
	})
}

func (f *frame) executeDisbursement(
	ctx context.Context,
	poolID common.PoolID,
	id common.DisbursementID,
) error {
	if err := f.checkPaused(pauseScopePools); err != nil {
		return err
	}
	pool, err := f.getPool(poolID)
	if err != nil {
		return err
	}
	d, err := f.getDisbursement(poolID, id)
	if err != nil {
		return err
	}
	if d.Executed {
		return common.ErrDisbursementExecuted
	}
	state, err := f.requireOpenPool(poolID)
	if err != nil {
		return err
	}
	cfg, err := f.multiSigConfig(poolID)
	if err != nil {
		return err
	}
	required := 1
	if cfg != nil {
		required = int(cfg.RequiredApprovals)
	}
	if countApprovals(pool, cfg, d) < required {
		return common.ErrInsufficientApprovals
	}
	metrics, err := f.txn.GetPoolMetrics(poolID)
	if err != nil {
		return err
	}
	available, err := checkedSub(metrics.TotalRaised, metrics.TotalDisbursed)
	if err != nil {
		return err
	}
	if d.Amount.Cmp(available) > 0 {
		return common.ErrInsufficientFunds
	}
	asset := metrics.Asset
	if asset.IsZero() {
		if asset, err = f.crowdfundingToken(); err != nil {
			return err
		}
	}
	d.Executed = true
	if err := f.txn.SetDisbursement(d); err != nil {
		return err
	}
	if metrics.TotalDisbursed, err = checkedAdd(metrics.TotalDisbursed, d.Amount); err != nil {
		return err
	}
	if err := f.txn.SetPoolMetrics(poolID, metrics); err != nil {
		return err
	}
	if err := f.txn.SetPoolState(poolID, common.PoolStateDisbursed); err != nil {
		return err
	}
	if err := f.transferOut(ctx, asset, d.Recipient, d.Amount); err != nil {
		return err
	}
	f.emit(DisbursementExecutedEventType, DisbursementExecutedEvent{
		PoolID:         poolID,
		DisbursementID: id,
		Amount:         d.Amount,
		Recipient:      d.Recipient,
	})
	if state != common.PoolStateDisbursed {
		f.emit(PoolStateUpdatedEventType, PoolStateUpdatedEvent{
			PoolID:   poolID,
			Previous: state,
			State:    common.PoolStateDisbursed,
		})
	}
	return nil
}

// requireCreator loads a pool and checks that its creator authorized the call
func (f *frame) requireCreator(ctx context.Context, poolID common.PoolID) (*models.Pool, error) {
	pool, err := f.getPool(poolID)
	if err != nil {
		return nil, err
	}
	if err := f.requireAuth(ctx, pool.Creator); err != nil {
		return nil, err
	}
	return pool, nil
}

// AddSigner adds signer to the multi-sig configuration of a pool. A pool
// without one gets a 1-of-1 configuration
func (ls *LedgerState) AddSigner(ctx context.Context, poolID common.PoolID, signer common.Address) error {
	return ls.invoke(ctx, "add_signer", func(ctx context.Context, f *frame) error {
		if err := f.checkPaused(pauseScopePools); err != nil {
			return err
		}
		if _, err := f.requireCreator(ctx, poolID); err != nil {
			return err
		}
		if _, err := f.requireOpenPool(poolID); err != nil {
			return err
		}
		if signer.IsZero() {
			return common.ErrEmptyAddress
		}
		cfg, err := f.multiSigConfig(poolID)
		if err != nil {
			return err
		}
		if cfg == nil {
			cfg = &models.MultiSigConfig{RequiredApprovals: 1}
		}
		if cfg.IsSigner(signer) {
			return common.ErrSignerAlreadyExists
		}
		cfg.Signers = append(cfg.Signers, signer)
		if err := f.txn.SetMultiSigConfig(poolID, cfg); err != nil {
			return err
		}
		f.emit(SignerChangedEventType, SignerChangedEvent{
			PoolID:            poolID,
			Signer:            signer,
			Added:             true,
			RequiredApprovals: cfg.RequiredApprovals,
		})
		return nil
	})
}

// RemoveSigner removes signer from the multi-sig configuration of a pool.
// The approval threshold is lowered to the remaining signer count if needed
func (ls *LedgerState) RemoveSigner(ctx context.Context, poolID common.PoolID, signer common.Address) error {
	return ls.invoke(ctx, "remove_signer", func(ctx context.Context, f *frame) error {
		if err := f.checkPaused(pauseScopePools); err != nil {
			return err
		}
		if _, err := f.requireCreator(ctx, poolID); err != nil {
			return err
		}
		if _, err := f.requireOpenPool(poolID); err != nil {
			return err
		}
		cfg, err := f.multiSigConfig(poolID)
		if err != nil {
			return err
		}
		if cfg == nil {
			return common.ErrSignerNotFound
		}
		idx := slices.Index(cfg.Signers, signer)
		if idx < 0 {
			return common.ErrSignerNotFound
		}
		if len(cfg.Signers) == 1 {
			return common.ErrCannotRemoveLastSigner
		}
		cfg.Signers = slices.Delete(cfg.Signers, idx, idx+1)
		if int(cfg.RequiredApprovals) > len(cfg.Signers) {
			cfg.RequiredApprovals = uint32(len(cfg.Signers)) //nolint:gosec
		}
		if err := f.txn.SetMultiSigConfig(poolID, cfg); err != nil {
			return err
		}
		f.emit(SignerChangedEventType, SignerChangedEvent{
			PoolID:            poolID,
			Signer:            signer,
			Added:             false,
			RequiredApprovals: cfg.RequiredApprovals,
		})
		return nil
	})
}

func (ls *LedgerState) GetDisbursement(
	ctx context.Context,
	poolID common.PoolID,
	id common.DisbursementID,
) (*models.Disbursement, error) {
	return query(ctx, ls, func(f *frame) (*models.Disbursement, error) {
		return f.getDisbursement(poolID, id)
	})
}

// GetMultiSigConfig returns the multi-sig configuration of a pool, or
// common.ErrInvalidMultiSigConfig when it has none
func (ls *LedgerState) GetMultiSigConfig(ctx context.Context, poolID common.PoolID) (*models.MultiSigConfig, error) {
	return query(ctx, ls, func(f *frame) (*models.MultiSigConfig, error) {
		if _, err := f.getPool(poolID); err != nil {
			return nil, err
		}
		cfg, err := f.multiSigConfig(poolID)
		if err != nil {
			return nil, err
		}
		if cfg == nil {
			return nil, common.ErrInvalidMultiSigConfig
		}
		return cfg, nil
	})
}
