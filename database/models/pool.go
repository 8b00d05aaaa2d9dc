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

// Pool is a contribution pool with a fixed duration
type Pool struct {
	_               struct{} `cbor:",toarray"`
	ID              common.PoolID
	Name            string
	Description     string
	Creator         common.Address
	Target          common.Amount
	MinContribution common.Amount
	IsPrivate       bool
	CreatedAt       uint64
	Duration        uint64
}

// Deadline returns the end of the contribution window. Pool creation
// rejects durations that would overflow it
func (p *Pool) Deadline() uint64 {
	return p.CreatedAt + p.Duration
}

type PoolMetadata struct {
	_           struct{} `cbor:",toarray"`
	Description string
	ExternalURL string
	ImageHash   string
}

type PoolMetrics struct {
	_                struct{} `cbor:",toarray"`
	TotalRaised      common.Amount
	ContributorCount uint32
	LastDonationAt   uint64
	TotalDisbursed   common.Amount
	// Asset is fixed by the first contribution
	Asset common.Address
}

type PoolContribution struct {
	_           struct{} `cbor:",toarray"`
	PoolID      common.PoolID
	Contributor common.Address
	Amount      common.Amount
	Asset       common.Address
}
