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
	"errors"
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

var (
	maxAmount = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	minAmount = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
)

var (
	ErrAmountOverflow = errors.New("amount overflows signed 128-bit range")
	ErrDivideByZero   = errors.New("amount division by zero")
)

// Amount is a signed quantity of a funding asset, bounded to the signed
// 128-bit range. The zero value is 0. Amount values are immutable
type Amount struct {
	v *big.Int
}

func NewAmount(v int64) Amount {
	return Amount{v: big.NewInt(v)}
}

// NewAmountFromBig returns an error if v is outside the signed 128-bit range
func NewAmountFromBig(v *big.Int) (Amount, error) {
	if v == nil {
		return Amount{}, nil
	}
	if v.Cmp(maxAmount) > 0 || v.Cmp(minAmount) < 0 {
		return Amount{}, ErrAmountOverflow
	}
	return Amount{v: new(big.Int).Set(v)}, nil
}

// ParseAmount parses a base-10 integer string
func ParseAmount(s string) (Amount, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, fmt.Errorf("invalid amount: %q", s)
	}
	return NewAmountFromBig(v)
}

// MaxAmount returns the largest representable amount
func MaxAmount() Amount {
	return Amount{v: new(big.Int).Set(maxAmount)}
}

func (a Amount) big() *big.Int {
	if a.v == nil {
		return new(big.Int)
	}
	return a.v
}

// Big returns a copy of the underlying value
func (a Amount) Big() *big.Int {
	return new(big.Int).Set(a.big())
}

func (a Amount) Add(b Amount) (Amount, error) {
	return NewAmountFromBig(new(big.Int).Add(a.big(), b.big()))
}

func (a Amount) Sub(b Amount) (Amount, error) {
	return NewAmountFromBig(new(big.Int).Sub(a.big(), b.big()))
}

func (a Amount) Mul(b Amount) (Amount, error) {
	return NewAmountFromBig(new(big.Int).Mul(a.big(), b.big()))
}

// Quo returns a/b truncated toward zero
func (a Amount) Quo(b Amount) (Amount, error) {
	if b.IsZero() {
		return Amount{}, ErrDivideByZero
	}
	return NewAmountFromBig(new(big.Int).Quo(a.big(), b.big()))
}

func (a Amount) Cmp(b Amount) int {
	return a.big().Cmp(b.big())
}

func (a Amount) Sign() int {
	return a.big().Sign()
}

func (a Amount) IsZero() bool {
	return a.Sign() == 0
}

func (a Amount) String() string {
	return a.big().String()
}

func (a Amount) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(a.big())
}

func (a *Amount) UnmarshalCBOR(data []byte) error {
	tmp := new(big.Int)
	if err := cbor.Unmarshal(data, tmp); err != nil {
		return err
	}
	ret, err := NewAmountFromBig(tmp)
	if err != nil {
		return err
	}
	*a = ret
	return nil
}

func (a Amount) MarshalYAML() (any, error) {
	return a.String(), nil
}
