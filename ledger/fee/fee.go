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

// Package fee computes platform fees expressed in basis points, where 10000
// basis points is 100%
package fee

import (
	"errors"

	"github.com/blinklabs-io/nevo/ledger/common"
)

var bpsDenominator = common.NewAmount(int64(common.MaxFeeBasisPoints))

// CalculatePlatformFee returns floor(amount*bps/10000). When the product
// does not fit in 128 bits the amount is divided first, which loses at most
// bps-1 units
func CalculatePlatformFee(amount common.Amount, bps uint32) (common.Amount, error) {
	if amount.Sign() < 0 {
		return common.Amount{}, common.ErrInvalidAmount
	}
	if bps > common.MaxFeeBasisPoints {
		return common.Amount{}, common.ErrInvalidFeeRate
	}
	if bps == 0 || amount.IsZero() {
		return common.Amount{}, nil
	}
	rate := common.NewAmount(int64(bps))
	product, err := amount.Mul(rate)
	if err != nil {
		if !errors.Is(err, common.ErrAmountOverflow) {
			return common.Amount{}, err
		}
		scaled, err := amount.Quo(bpsDenominator)
		if err != nil {
			return common.Amount{}, err
		}
		return scaled.Mul(rate)
	}
	return product.Quo(bpsDenominator)
}

// EffectiveRate applies a discount, itself in basis points, to a base rate
func EffectiveRate(baseBps, discountBps uint32) (uint32, error) {
	if baseBps > common.MaxFeeBasisPoints ||
		discountBps > common.MaxFeeBasisPoints {
		return 0, common.ErrInvalidFeeRate
	}
	reduction := uint64(baseBps) * uint64(discountBps) / uint64(common.MaxFeeBasisPoints)
	return baseBps - uint32(reduction), nil //nolint:gosec // reduction <= baseBps
}

// Split divides a gross amount into the platform fee and the net remainder
func Split(gross common.Amount, bps uint32) (common.Amount, common.Amount, error) {
	fee, err := CalculatePlatformFee(gross, bps)
	if err != nil {
		return common.Amount{}, common.Amount{}, err
	}
	net, err := gross.Sub(fee)
	if err != nil {
		return common.Amount{}, common.Amount{}, err
	}
	return fee, net, nil
}
