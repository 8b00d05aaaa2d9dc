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

package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/blinklabs-io/nevo/ledger/common"
)

var ErrMockInsufficientBalance = errors.New("mock token: insufficient balance")

// Transfer describes one completed token movement
type Transfer struct {
	Asset  common.Address
	From   common.Address
	To     common.Address
	Amount common.Amount
}

// TransferHook runs at the start of every transfer. It receives the context
// passed to Transfer, so a hook may call back into the ledger. An error from
// the hook fails the transfer
type TransferHook func(ctx context.Context, xfer Transfer) error

// MockToken is an in-memory multi-asset token ledger
type MockToken struct {
	balances  map[common.Address]map[common.Address]common.Amount
	hook      TransferHook
	failNext  error
	transfers []Transfer
	mu        sync.Mutex
}

func NewMockToken() *MockToken {
	return &MockToken{
		balances: make(map[common.Address]map[common.Address]common.Amount),
	}
}

// Mint credits owner with amount of asset
func (m *MockToken) Mint(asset, owner common.Address, amount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.balanceLocked(asset, owner)
	next, err := cur.Add(common.NewAmount(amount))
	if err != nil {
		panic(err)
	}
	m.setBalanceLocked(asset, owner, next)
}

// SetHook installs a hook that runs at the start of every transfer
func (m *MockToken) SetHook(hook TransferHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hook = hook
}

// FailNextTransfer makes the next Transfer call return err without moving funds
func (m *MockToken) FailNextTransfer(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

func (m *MockToken) balanceLocked(asset, owner common.Address) common.Amount {
	if assetBalances, ok := m.balances[asset]; ok {
		return assetBalances[owner]
	}
	return common.Amount{}
}

func (m *MockToken) setBalanceLocked(asset, owner common.Address, amount common.Amount) {
	if _, ok := m.balances[asset]; !ok {
		m.balances[asset] = make(map[common.Address]common.Amount)
	}
	m.balances[asset][owner] = amount
}

func (m *MockToken) Transfer(
	ctx context.Context,
	asset, from, to common.Address,
	amount common.Amount,
) error {
	m.mu.Lock()
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		m.mu.Unlock()
		return err
	}
	hook := m.hook
	m.mu.Unlock()
	xfer := Transfer{Asset: asset, From: from, To: to, Amount: amount}
	// The hook runs before funds move and without the lock held, so that it
	// can re-enter the ledger mid-transfer
	if hook != nil {
		if err := hook(ctx, xfer); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if amount.Sign() < 0 {
		return fmt.Errorf("mock token: negative transfer %s", amount)
	}
	fromBal := m.balanceLocked(asset, from)
	if fromBal.Cmp(amount) < 0 {
		return fmt.Errorf(
			"%w: %s has %s, needs %s",
			ErrMockInsufficientBalance,
			from,
			fromBal,
			amount,
		)
	}
	fromNext, err := fromBal.Sub(amount)
	if err != nil {
		return err
	}
	m.setBalanceLocked(asset, from, fromNext)
	toNext, err := m.balanceLocked(asset, to).Add(amount)
	if err != nil {
		return err
	}
	m.setBalanceLocked(asset, to, toNext)
	m.transfers = append(m.transfers, xfer)
	return nil
}

func (m *MockToken) Balance(
	_ context.Context,
	asset, owner common.Address,
) (common.Amount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balanceLocked(asset, owner), nil
}

// BalanceOf is Balance without a context, for test assertions
func (m *MockToken) BalanceOf(asset, owner common.Address) common.Amount {
	bal, _ := m.Balance(context.Background(), asset, owner)
	return bal
}

// Transfers returns the transfers completed so far, in order
func (m *MockToken) Transfers() []Transfer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Transfer(nil), m.transfers...)
}
