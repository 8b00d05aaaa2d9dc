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
	"github.com/blinklabs-io/nevo/event"
	"github.com/blinklabs-io/nevo/ledger/common"
)

const (
	CampaignCreatedEventType          event.EventType = "campaign.created"
	CreationFeePaidEventType          event.EventType = "campaign.creation_fee_paid"
	DonationEventType                 event.EventType = "campaign.donation"
	CampaignClaimedEventType          event.EventType = "campaign.claimed"
	CampaignCancelledEventType        event.EventType = "campaign.cancelled"
	CampaignRefundedEventType         event.EventType = "campaign.refunded"
	CampaignGoalUpdatedEventType      event.EventType = "campaign.goal_updated"
	CampaignDeadlineExtendedEventType event.EventType = "campaign.deadline_extended"
	PoolCreatedEventType              event.EventType = "pool.created"
	PoolContributionEventType         event.EventType = "pool.contribution"
	PoolRefundEventType               event.EventType = "pool.refund"
	PoolStateUpdatedEventType         event.EventType = "pool.state_updated"
	PoolClosedEventType               event.EventType = "pool.closed"
	PoolMetadataUpdatedEventType      event.EventType = "pool.metadata_updated"
	DisbursementRequestedEventType    event.EventType = "disbursement.requested"
	DisbursementApprovedEventType     event.EventType = "disbursement.approved"
	DisbursementExecutedEventType     event.EventType = "disbursement.executed"
	SignerChangedEventType            event.EventType = "disbursement.signer_changed"
	EmergencyRequestedEventType       event.EventType = "emergency.requested"
	EmergencyExecutedEventType        event.EventType = "emergency.executed"
	AdminEventType                    event.EventType = "admin.changed"
)

type CampaignCreatedEvent struct {
	ID       common.CampaignID
	Title    string
	Creator  common.Address
	Goal     common.Amount
	Deadline uint64
}

type CreationFeePaidEvent struct {
	Creator common.Address
	Fee     common.Amount
}

// DonationEvent reports a donation. Amount is the gross transferred value;
// Fee of it went to platform fees
type DonationEvent struct {
	CampaignID common.CampaignID
	Donor      common.Address
	Asset      common.Address
	Amount     common.Amount
	Fee        common.Amount
	Timestamp  uint64
}

type CampaignClaimedEvent struct {
	CampaignID common.CampaignID
	Creator    common.Address
	Amount     common.Amount
}

type CampaignCancelledEvent struct {
	CampaignID common.CampaignID
}

type CampaignRefundedEvent struct {
	CampaignID  common.CampaignID
	Contributor common.Address
	Amount      common.Amount
}

type CampaignGoalUpdatedEvent struct {
	CampaignID common.CampaignID
	Goal       common.Amount
}

type CampaignDeadlineExtendedEvent struct {
	CampaignID common.CampaignID
	Deadline   uint64
}

type PoolCreatedEvent struct {
	PoolID   common.PoolID
	Name     string
	Creator  common.Address
	Target   common.Amount
	Deadline uint64
}

type PoolContributionEvent struct {
	PoolID      common.PoolID
	Contributor common.Address
	Asset       common.Address
	Amount      common.Amount
	Fee         common.Amount
	IsPrivate   bool
	Timestamp   uint64
}

type PoolRefundEvent struct {
	PoolID      common.PoolID
	Contributor common.Address
	Asset       common.Address
	Amount      common.Amount
	Timestamp   uint64
}

type PoolStateUpdatedEvent struct {
	PoolID   common.PoolID
	Previous common.PoolState
	State    common.PoolState
}

type PoolClosedEvent struct {
	PoolID    common.PoolID
	ClosedBy  common.Address
	Timestamp uint64
}

type PoolMetadataUpdatedEvent struct {
	PoolID    common.PoolID
	ImageHash string
}

type DisbursementRequestedEvent struct {
	PoolID         common.PoolID
	DisbursementID common.DisbursementID
	Amount         common.Amount
	Recipient      common.Address
	Requester      common.Address
}

type DisbursementApprovedEvent struct {
	PoolID         common.PoolID
	DisbursementID common.DisbursementID
	Signer         common.Address
	Approvals      int
}

type DisbursementExecutedEvent struct {
	PoolID         common.PoolID
	DisbursementID common.DisbursementID
	Amount         common.Amount
	Recipient      common.Address
}

type SignerChangedEvent struct {
	PoolID            common.PoolID
	Signer            common.Address
	Added             bool
	RequiredApprovals uint32
}

type EmergencyRequestedEvent struct {
	Admin     common.Address
	Token     common.Address
	Amount    common.Amount
	UnlocksAt uint64
}

type EmergencyExecutedEvent struct {
	Admin  common.Address
	Token  common.Address
	Amount common.Amount
}

// AdminAction names an administrative change
type AdminAction string

const (
	AdminActionInitialized          AdminAction = "initialized"
	AdminActionPaused               AdminAction = "paused"
	AdminActionUnpaused             AdminAction = "unpaused"
	AdminActionPoolsPaused          AdminAction = "pools_paused"
	AdminActionPoolsUnpaused        AdminAction = "pools_unpaused"
	AdminActionCampaignsPaused      AdminAction = "campaigns_paused"
	AdminActionCampaignsUnpaused    AdminAction = "campaigns_unpaused"
	AdminActionOwnershipTransferred AdminAction = "ownership_transferred"
	AdminActionRenounced            AdminAction = "renounced"
	AdminActionCreationFeeSet       AdminAction = "creation_fee_set"
	AdminActionTokenSet             AdminAction = "crowdfunding_token_set"
	AdminActionFeeRateSet           AdminAction = "platform_fee_rate_set"
	AdminActionAssetDiscountSet     AdminAction = "asset_discount_set"
	AdminActionFeesWithdrawn        AdminAction = "platform_fees_withdrawn"
	AdminActionCauseVerified        AdminAction = "cause_verified"
	AdminActionEmergencyContactSet  AdminAction = "emergency_contact_set"
)

// AdminEvent reports an administrative change. Subject and Value carry the
// address and value the action applied to, when there is one
type AdminEvent struct {
	Action    AdminAction
	Admin     common.Address
	Subject   common.Address
	Value     string
	Timestamp uint64
}
