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

// GetCampaign returns a campaign or an error wrapping types.ErrKeyNotFound
func (t *Txn) GetCampaign(id common.CampaignID) (*models.Campaign, error) {
	ret, err := getValue[models.Campaign](t, types.CampaignKey(id))
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

func (t *Txn) SetCampaign(c *models.Campaign) error {
	return setValue(t, types.CampaignKey(c.ID), c)
}

// GetCampaignMetrics returns zeroed metrics for campaigns without donations
func (t *Txn) GetCampaignMetrics(
	id common.CampaignID,
) (*models.CampaignMetrics, error) {
	ret, err := getValueOr(
		t,
		types.CampaignMetricsKey(id),
		models.CampaignMetrics{},
	)
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

func (t *Txn) SetCampaignMetrics(
	id common.CampaignID,
	m *models.CampaignMetrics,
) error {
	return setValue(t, types.CampaignMetricsKey(id), m)
}

// GetContribution returns the cumulative donation of a contributor and
// whether one has ever been recorded
func (t *Txn) GetContribution(
	id common.CampaignID,
	contributor common.Address,
) (common.Amount, bool, error) {
	key := types.ContributionKey(id, contributor)
	found, err := t.Has(key)
	if err != nil || !found {
		return common.Amount{}, false, err
	}
	amount, err := t.GetAmount(key)
	if err != nil {
		return common.Amount{}, false, err
	}
	return amount, true, nil
}

func (t *Txn) SetContribution(
	id common.CampaignID,
	contributor common.Address,
	amount common.Amount,
) error {
	return t.SetAmount(types.ContributionKey(id, contributor), amount)
}
