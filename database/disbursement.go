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

package database

import (
	"github.com/blinklabs-io/nevo/database/models"
	"github.com/blinklabs-io/nevo/database/types"
	"github.com/blinklabs-io/nevo/ledger/common"
)

// GetMultiSigConfig returns an error wrapping types.ErrKeyNotFound when the
// pool has no multi-sig configuration
func (t *Txn) GetMultiSigConfig(id common.PoolID) (*models.MultiSigConfig, error) {
	ret, err := getValue[models.MultiSigConfig](t, types.MultiSigConfigKey(id))
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

func (t *Txn) SetMultiSigConfig(id common.PoolID, cfg *models.MultiSigConfig) error {
	return setValue(t, types.MultiSigConfigKey(id), cfg)
}

func (t *Txn) GetDisbursement(
	pool common.PoolID,
	id common.DisbursementID,
) (*models.Disbursement, error) {
	ret, err := getValue[models.Disbursement](t, types.DisbursementKey(pool, id))
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

func (t *Txn) SetDisbursement(d *models.Disbursement) error {
	return setValue(t, types.DisbursementKey(d.PoolID, d.ID), d)
}

func (t *Txn) GetEmergencyWithdrawal() (*models.EmergencyWithdrawal, error) {
	ret, err := getValue[models.EmergencyWithdrawal](
		t,
		types.EmergencyWithdrawalKey(),
	)
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

func (t *Txn) SetEmergencyWithdrawal(w *models.EmergencyWithdrawal) error {
	return setValue(t, types.EmergencyWithdrawalKey(), w)
}
