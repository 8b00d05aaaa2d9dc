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

import (
	"encoding/hex"
	"errors"
	"fmt"
)

const CampaignIDSize = 32

// Address identifies an account or contract. The ledger treats it as an
// opaque value and never interprets its contents
type Address string

func (a Address) String() string {
	return string(a)
}

// IsZero reports whether the address is unset
func (a Address) IsZero() bool {
	return a == ""
}

// CampaignID is the caller-chosen identifier of a campaign
type CampaignID [CampaignIDSize]byte

// NewCampaignID builds a CampaignID from exactly 32 bytes
func NewCampaignID(data []byte) (CampaignID, error) {
	var ret CampaignID
	if len(data) != CampaignIDSize {
		return ret, fmt.Errorf(
			"invalid campaign ID length: expected %d, got %d",
			CampaignIDSize,
			len(data),
		)
	}
	copy(ret[:], data)
	return ret, nil
}

// NewCampaignIDFromHex parses a hex encoded CampaignID
func NewCampaignIDFromHex(hexStr string) (CampaignID, error) {
	data, err := hex.DecodeString(hexStr)
	if err != nil {
		return CampaignID{}, fmt.Errorf("decode campaign ID: %w", err)
	}
	return NewCampaignID(data)
}

func (c CampaignID) String() string {
	return hex.EncodeToString(c[:])
}

func (c CampaignID) Bytes() []byte {
	return c[:]
}

func (c CampaignID) MarshalYAML() (any, error) {
	return c.String(), nil
}

// PoolID is the sequential identifier assigned to a pool at creation
type PoolID uint64

// DisbursementID is the per-pool sequential identifier of a disbursement request
type DisbursementID uint64

var ErrEmptyAddress = errors.New("empty address")
