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

// GetPool returns a pool or an error wrapping types.ErrKeyNotFound
func (t *Txn) GetPool(id common.PoolID) (*models.Pool, error) {
	ret, err := getValue[models.Pool](t, types.PoolKey(id))
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

func (t *Txn) SetPool(p *models.Pool) error {
	return setValue(t, types.PoolKey(p.ID), p)
}

// GetPoolState returns the lifecycle state of a pool. Pools without a stored
// state are Active
func (t *Txn) GetPoolState(id common.PoolID) (common.PoolState, error) {
	return getValueOr(t, types.PoolStateKey(id), common.PoolStateActive)
}

func (t *Txn) SetPoolState(id common.PoolID, state common.PoolState) error {
	return setValue(t, types.PoolStateKey(id), state)
}

func (t *Txn) GetPoolMetadata(id common.PoolID) (*models.PoolMetadata, error) {
	ret, err := getValueOr(t, types.PoolMetadataKey(id), models.PoolMetadata{})
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

func (t *Txn) SetPoolMetadata(id common.PoolID, m *models.PoolMetadata) error {
	return setValue(t, types.PoolMetadataKey(id), m)
}

func (t *Txn) GetPoolMetrics(id common.PoolID) (*models.PoolMetrics, error) {
	ret, err := getValueOr(t, types.PoolMetricsKey(id), models.PoolMetrics{})
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

func (t *Txn) SetPoolMetrics(id common.PoolID, m *models.PoolMetrics) error {
	return setValue(t, types.PoolMetricsKey(id), m)
}

// GetPoolContribution returns an error wrapping types.ErrKeyNotFound when the
// contributor never contributed to the pool
func (t *Txn) GetPoolContribution(
	id common.PoolID,
	contributor common.Address,
) (*models.PoolContribution, error) {
	ret, err := getValue[models.PoolContribution](
		t,
		types.PoolContributionKey(id, contributor),
	)
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

func (t *Txn) SetPoolContribution(c *models.PoolContribution) error {
	return setValue(t, types.PoolContributionKey(c.PoolID, c.Contributor), c)
}

// GetPoolContributors returns contributors in order of first contribution
func (t *Txn) GetPoolContributors(id common.PoolID) ([]common.Address, error) {
	return t.GetAddressList(types.PoolContributorsKey(id))
}

func (t *Txn) SetPoolContributors(id common.PoolID, list []common.Address) error {
	return t.SetAddressList(types.PoolContributorsKey(id), list)
}

// ListPools returns all pools in ID order
func (t *Txn) ListPools() ([]*models.Pool, error) {
	var ret []*models.Pool
	err := t.Iterate(types.KeyKindPool, func(_ []byte, val []byte) error {
		var p models.Pool
		if err := models.Decode(val, &p); err != nil {
			return err
		}
		ret = append(ret, &p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}
