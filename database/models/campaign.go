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

package models

import (
	"github.com/blinklabs-io/nevo/ledger/common"
)

// Campaign is a fixed-goal fundraising target
type Campaign struct {
	_           struct{} `cbor:",toarray"`
	ID          common.CampaignID
	Title       string
	Creator     common.Address
	Goal        common.Amount
	Deadline    uint64
	TotalRaised common.Amount
	Token       common.Address
	CreatedAt   uint64
}

// CampaignMetrics holds the running donation statistics of a campaign
type CampaignMetrics struct {
	_                struct{} `cbor:",toarray"`
	TotalRaised      common.Amount
	ContributorCount uint32
	LastDonationAt   uint64
	MaxDonation      common.Amount
	TopContributor   common.Address
}
