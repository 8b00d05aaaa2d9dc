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
	"slices"

	"github.com/blinklabs-io/nevo/ledger/common"
)

// MultiSigConfig controls who may approve disbursements from a pool and how
// many approvals are required
type MultiSigConfig struct {
	_                 struct{} `cbor:",toarray"`
	RequiredApprovals uint32
	Signers           []common.Address
}

func (m *MultiSigConfig) IsSigner(addr common.Address) bool {
	return slices.Contains(m.Signers, addr)
}

type Disbursement struct {
	_         struct{} `cbor:",toarray"`
	ID        common.DisbursementID
	PoolID    common.PoolID
	Amount    common.Amount
	Recipient common.Address
	Requester common.Address
	CreatedAt uint64
	Approvals []common.Address
	Executed  bool
}

func (d *Disbursement) HasApproved(addr common.Address) bool {
	return slices.Contains(d.Approvals, addr)
}

// EmergencyWithdrawal is the single outstanding admin withdrawal request
type EmergencyWithdrawal struct {
	_           struct{} `cbor:",toarray"`
	Recipient   common.Address
	Amount      common.Amount
	Token       common.Address
	RequestedAt uint64
	Executed    bool
}
