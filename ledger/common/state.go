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

package common

import "fmt"

// Ledger limits
const (
	MaxTitleLength          = 200
	MaxPoolNameLength       = 200
	MaxDescriptionLength    = 500
	MaxExternalURLLength    = 200
	MaxMetadataHashLength   = 100
	MaxEmergencyContactSize = 200

	// Seconds after a pool deadline before refunds open
	RefundGracePeriod uint64 = 604800
	// Seconds between an emergency withdrawal request and its execution
	EmergencyWithdrawalDelay uint64 = 86400
	// Furthest a campaign deadline may be extended, in seconds from now
	MaxDeadlineExtension uint64 = 90 * 86400

	MaxFeeBasisPoints uint32 = 10000

	ContractVersion = "1.2.0"
)

type PoolState uint8

const (
	PoolStateActive PoolState = iota
	PoolStatePaused
	PoolStateCancelled
	PoolStateDisbursed
	PoolStateCompleted
	PoolStateClosed
)

func (s PoolState) String() string {
	switch s {
	case PoolStateActive:
		return "Active"
	case PoolStatePaused:
		return "Paused"
	case PoolStateCancelled:
		return "Cancelled"
	case PoolStateDisbursed:
		return "Disbursed"
	case PoolStateCompleted:
		return "Completed"
	case PoolStateClosed:
		return "Closed"
	default:
		return fmt.Sprintf("PoolState(%d)", uint8(s))
	}
}

// ParsePoolState is the inverse of PoolState.String
func ParsePoolState(s string) (PoolState, error) {
	for st := PoolStateActive; st <= PoolStateClosed; st++ {
		if st.String() == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown pool state: %s", s)
}

// CampaignStatus is derived from stored campaign state and the current time
type CampaignStatus uint8

const (
	CampaignStatusActive CampaignStatus = iota
	CampaignStatusFunded
	CampaignStatusExpired
	CampaignStatusCancelled
	CampaignStatusClaimed
)

func (s CampaignStatus) String() string {
	switch s {
	case CampaignStatusActive:
		return "Active"
	case CampaignStatusFunded:
		return "Funded"
	case CampaignStatusExpired:
		return "Expired"
	case CampaignStatusCancelled:
		return "Cancelled"
	case CampaignStatusClaimed:
		return "Claimed"
	default:
		return fmt.Sprintf("CampaignStatus(%d)", uint8(s))
	}
}
