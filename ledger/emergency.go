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

	"github.com/blinklabs-io/nevo/database/models"
	"github.com/blinklabs-io/nevo/database/types"
	"github.com/blinklabs-io/nevo/ledger/common"
)

func (f *frame) emergencyWithdrawal() (*models.EmergencyWithdrawal, error) {
	w, err := f.txn.GetEmergencyWithdrawal()
	if errors.Is(err, types.ErrKeyNotFound) {
		return nil, common.ErrEmergencyNotRequested
	}
	return w, err
}

// RequestEmergencyWithdraw starts the timelock for an admin withdrawal of
// amount of token. Only one request may be outstanding
func (ls *LedgerState) RequestEmergencyWithdraw(
	ctx context.Context,
	token common.Address,
	amount common.Amount,
) error {
	return ls.invoke(ctx, "request_emergency_withdraw", func(ctx context.Context, f *frame) error {
		admin, err := f.requireAdmin(ctx)
		if err != nil {
			return err
		}
		if amount.Sign() <= 0 {
			return common.ErrInvalidAmount
		}
		exists, err := f.txn.Has(types.EmergencyWithdrawalKey())
		if err != nil {
			return err
		}
		if exists {
			return common.ErrEmergencyAlreadyRequested
		}
		err = f.txn.SetEmergencyWithdrawal(&models.EmergencyWithdrawal{
			Recipient:   admin,
			Amount:      amount,
			Token:       token,
			RequestedAt: f.now,
		})
		if err != nil {
			return err
		}
		f.emit(EmergencyRequestedEventType, EmergencyRequestedEvent{
			Admin:     admin,
			Token:     token,
			Amount:    amount,
			UnlocksAt: f.now + common.EmergencyWithdrawalDelay,
		})
		return nil
	})
}

// ExecuteEmergencyWithdraw pays out the outstanding request to the admin
// once the timelock has elapsed
func (ls *LedgerState) ExecuteEmergencyWithdraw(ctx context.Context) error {
	return ls.invoke(ctx, "execute_emergency_withdraw", func(ctx context.Context, f *frame) error {
		return f.guard(types.EmergencyLockKey(), func() error {
			admin, err := f.requireAdmin(ctx)
			if err != nil {
				return err
			}
			w, err := f.emergencyWithdrawal()
			if err != nil {
				return err
			}
			if w.Executed {
				return common.ErrEmergencyAlreadyRequested
			}
			if f.now < w.RequestedAt+common.EmergencyWithdrawalDelay {
				return common.ErrEmergencyPeriodNotPassed
			}
			if err := f.txn.Delete(types.EmergencyWithdrawalKey()); err != nil {
				return err
			}
			if err := f.transferOut(ctx, w.Token, admin, w.Amount); err != nil {
				return err
			}
			f.emit(EmergencyExecutedEventType, EmergencyExecutedEvent{
				Admin:  admin,
				Token:  w.Token,
				Amount: w.Amount,
			})
			return nil
		})
	})
}

// GetEmergencyWithdrawal returns the outstanding request
func (ls *LedgerState) GetEmergencyWithdrawal(ctx context.Context) (*models.EmergencyWithdrawal, error) {
	return query(ctx, ls, func(f *frame) (*models.EmergencyWithdrawal, error) {
		return f.emergencyWithdrawal()
	})
}
