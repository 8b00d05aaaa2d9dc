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

package types

import (
	"encoding/binary"
	"fmt"

	"github.com/blinklabs-io/nevo/ledger/common"
)

// KeyKind identifies the entity a Key refers to. The numeric value is the
// first byte of the encoded key and must never be reused
type KeyKind uint8

const (
	KeyKindCampaign KeyKind = iota + 1
	KeyKindCampaignMetrics
	KeyKindCampaignCancelled
	KeyKindCampaignClaimed
	KeyKindContribution
	KeyKindCampaignFeeHistory
	KeyKindAllCampaigns
	KeyKindCreatorCampaigns
	KeyKindVerifiedCause
	KeyKindPool
	KeyKindPoolState
	KeyKindPoolMetrics
	KeyKindPoolMetadata
	KeyKindPoolContribution
	KeyKindPoolContributors
	KeyKindPoolFeeHistory
	KeyKindNextPoolID
	KeyKindMultiSigConfig
	KeyKindDisbursement
	KeyKindNextDisbursementID
	KeyKindReentrancyLock
	KeyKindEmergencyLock
	KeyKindEmergencyWithdrawal
	KeyKindInitialized
	KeyKindAdmin
	KeyKindCrowdfundingToken
	KeyKindCreationFee
	KeyKindPlatformFees
	KeyKindPlatformFeeRate
	KeyKindAssetDiscount
	KeyKindPaused
	KeyKindPoolsPaused
	KeyKindCampaignsPaused
	KeyKindGlobalTotalRaised
	KeyKindEmergencyContact
	keyKindEnd
)

var keyKindNames = map[KeyKind]string{
	KeyKindCampaign:            "Campaign",
	KeyKindCampaignMetrics:     "CampaignMetrics",
	KeyKindCampaignCancelled:   "CampaignCancelled",
	KeyKindCampaignClaimed:     "CampaignClaimed",
	KeyKindContribution:        "Contribution",
	KeyKindCampaignFeeHistory:  "CampaignFeeHistory",
	KeyKindAllCampaigns:        "AllCampaigns",
	KeyKindCreatorCampaigns:    "CreatorCampaigns",
	KeyKindVerifiedCause:       "VerifiedCause",
	KeyKindPool:                "Pool",
	KeyKindPoolState:           "PoolState",
	KeyKindPoolMetrics:         "PoolMetrics",
	KeyKindPoolMetadata:        "PoolMetadata",
	KeyKindPoolContribution:    "PoolContribution",
	KeyKindPoolContributors:    "PoolContributors",
	KeyKindPoolFeeHistory:      "PoolFeeHistory",
	KeyKindNextPoolID:          "NextPoolID",
	KeyKindMultiSigConfig:      "MultiSigConfig",
	KeyKindDisbursement:        "Disbursement",
	KeyKindNextDisbursementID:  "NextDisbursementID",
	KeyKindReentrancyLock:      "ReentrancyLock",
	KeyKindEmergencyLock:       "EmergencyLock",
	KeyKindEmergencyWithdrawal: "EmergencyWithdrawal",
	KeyKindInitialized:         "Initialized",
	KeyKindAdmin:               "Admin",
	KeyKindCrowdfundingToken:   "CrowdfundingToken",
	KeyKindCreationFee:         "CreationFee",
	KeyKindPlatformFees:        "PlatformFees",
	KeyKindPlatformFeeRate:     "PlatformFeeRate",
	KeyKindAssetDiscount:       "AssetDiscount",
	KeyKindPaused:              "Paused",
	KeyKindPoolsPaused:         "PoolsPaused",
	KeyKindCampaignsPaused:     "CampaignsPaused",
	KeyKindGlobalTotalRaised:   "GlobalTotalRaised",
	KeyKindEmergencyContact:    "EmergencyContact",
}

func (k KeyKind) String() string {
	if name, ok := keyKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("KeyKind(%d)", uint8(k))
}

// Prefix returns the encoded prefix shared by all keys of this kind
func (k KeyKind) Prefix() []byte {
	return []byte{byte(k)}
}

// Key addresses one stored value. Keys can only be built with the
// constructors in this file, which makes the set of variants closed
type Key struct {
	addr     common.Address
	id       uint64
	subID    uint64
	kind     KeyKind
	campaign common.CampaignID
}

func (k Key) Kind() KeyKind {
	return k.kind
}

// Bytes returns the ordered binary encoding of the key: the kind byte,
// followed by the entity identifiers in big-endian form, with any address
// last so that prefix scans over a parent entity work
func (k Key) Bytes() []byte {
	ret := []byte{byte(k.kind)}
	switch k.kind {
	case KeyKindCampaign,
		KeyKindCampaignMetrics,
		KeyKindCampaignCancelled,
		KeyKindCampaignClaimed,
		KeyKindCampaignFeeHistory:
		ret = append(ret, k.campaign[:]...)
	case KeyKindContribution:
		ret = append(ret, k.campaign[:]...)
		ret = append(ret, []byte(k.addr)...)
	case KeyKindCreatorCampaigns,
		KeyKindVerifiedCause,
		KeyKindPlatformFees,
		KeyKindAssetDiscount:
		ret = append(ret, []byte(k.addr)...)
	case KeyKindPool,
		KeyKindPoolState,
		KeyKindPoolMetrics,
		KeyKindPoolMetadata,
		KeyKindPoolContributors,
		KeyKindPoolFeeHistory,
		KeyKindMultiSigConfig,
		KeyKindNextDisbursementID,
		KeyKindReentrancyLock:
		ret = binary.BigEndian.AppendUint64(ret, k.id)
	case KeyKindPoolContribution:
		ret = binary.BigEndian.AppendUint64(ret, k.id)
		ret = append(ret, []byte(k.addr)...)
	case KeyKindDisbursement:
		ret = binary.BigEndian.AppendUint64(ret, k.id)
		ret = binary.BigEndian.AppendUint64(ret, k.subID)
	}
	return ret
}

func (k Key) String() string {
	switch k.kind {
	case KeyKindContribution:
		return fmt.Sprintf("%s(%s,%s)", k.kind, k.campaign, k.addr)
	case KeyKindPoolContribution:
		return fmt.Sprintf("%s(%d,%s)", k.kind, k.id, k.addr)
	case KeyKindDisbursement:
		return fmt.Sprintf("%s(%d,%d)", k.kind, k.id, k.subID)
	}
	raw := k.Bytes()
	if len(raw) == 1 {
		return k.kind.String()
	}
	return fmt.Sprintf("%s(%x)", k.kind, raw[1:])
}

// ParseKeyKind returns the kind of an encoded key
func ParseKeyKind(raw []byte) (KeyKind, error) {
	if len(raw) == 0 || raw[0] == 0 || KeyKind(raw[0]) >= keyKindEnd {
		return 0, fmt.Errorf("unknown key kind in key %x", raw)
	}
	return KeyKind(raw[0]), nil
}

func campaignKey(kind KeyKind, id common.CampaignID) Key {
	return Key{kind: kind, campaign: id}
}

func poolKey(kind KeyKind, id common.PoolID) Key {
	return Key{kind: kind, id: uint64(id)}
}

func singletonKey(kind KeyKind) Key {
	return Key{kind: kind}
}

func CampaignKey(id common.CampaignID) Key {
	return campaignKey(KeyKindCampaign, id)
}

func CampaignMetricsKey(id common.CampaignID) Key {
	return campaignKey(KeyKindCampaignMetrics, id)
}

func CampaignCancelledKey(id common.CampaignID) Key {
	return campaignKey(KeyKindCampaignCancelled, id)
}

func CampaignClaimedKey(id common.CampaignID) Key {
	return campaignKey(KeyKindCampaignClaimed, id)
}

func CampaignFeeHistoryKey(id common.CampaignID) Key {
	return campaignKey(KeyKindCampaignFeeHistory, id)
}

func VerifiedCauseKey(cause common.Address) Key {
	return Key{kind: KeyKindVerifiedCause, addr: cause}
}

func ContributionKey(id common.CampaignID, contributor common.Address) Key {
	return Key{kind: KeyKindContribution, campaign: id, addr: contributor}
}

func AllCampaignsKey() Key {
	return singletonKey(KeyKindAllCampaigns)
}

func CreatorCampaignsKey(creator common.Address) Key {
	return Key{kind: KeyKindCreatorCampaigns, addr: creator}
}

func PoolKey(id common.PoolID) Key {
	return poolKey(KeyKindPool, id)
}

func PoolStateKey(id common.PoolID) Key {
	return poolKey(KeyKindPoolState, id)
}

func PoolMetricsKey(id common.PoolID) Key {
	return poolKey(KeyKindPoolMetrics, id)
}

func PoolMetadataKey(id common.PoolID) Key {
	return poolKey(KeyKindPoolMetadata, id)
}

func PoolContributorsKey(id common.PoolID) Key {
	return poolKey(KeyKindPoolContributors, id)
}

func PoolFeeHistoryKey(id common.PoolID) Key {
	return poolKey(KeyKindPoolFeeHistory, id)
}

func PoolContributionKey(id common.PoolID, contributor common.Address) Key {
	return Key{kind: KeyKindPoolContribution, id: uint64(id), addr: contributor}
}

func NextPoolIDKey() Key {
	return singletonKey(KeyKindNextPoolID)
}

func MultiSigConfigKey(id common.PoolID) Key {
	return poolKey(KeyKindMultiSigConfig, id)
}

func DisbursementKey(pool common.PoolID, id common.DisbursementID) Key {
	return Key{kind: KeyKindDisbursement, id: uint64(pool), subID: uint64(id)}
}

func NextDisbursementIDKey(pool common.PoolID) Key {
	return poolKey(KeyKindNextDisbursementID, pool)
}

func ReentrancyLockKey(pool common.PoolID) Key {
	return poolKey(KeyKindReentrancyLock, pool)
}

func EmergencyLockKey() Key {
	return singletonKey(KeyKindEmergencyLock)
}

func EmergencyWithdrawalKey() Key {
	return singletonKey(KeyKindEmergencyWithdrawal)
}

func InitializedKey() Key {
	return singletonKey(KeyKindInitialized)
}

func AdminKey() Key {
	return singletonKey(KeyKindAdmin)
}

func CrowdfundingTokenKey() Key {
	return singletonKey(KeyKindCrowdfundingToken)
}

func CreationFeeKey() Key {
	return singletonKey(KeyKindCreationFee)
}

func PlatformFeesKey(asset common.Address) Key {
	return Key{kind: KeyKindPlatformFees, addr: asset}
}

func PlatformFeeRateKey() Key {
	return singletonKey(KeyKindPlatformFeeRate)
}

func AssetDiscountKey(asset common.Address) Key {
	return Key{kind: KeyKindAssetDiscount, addr: asset}
}

func PausedKey() Key {
	return singletonKey(KeyKindPaused)
}

func PoolsPausedKey() Key {
	return singletonKey(KeyKindPoolsPaused)
}

func CampaignsPausedKey() Key {
	return singletonKey(KeyKindCampaignsPaused)
}

func GlobalTotalRaisedKey() Key {
	return singletonKey(KeyKindGlobalTotalRaised)
}

func EmergencyContactKey() Key {
	return singletonKey(KeyKindEmergencyContact)
}
