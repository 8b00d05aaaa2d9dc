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
	"fmt"
	"sync"

	"github.com/blinklabs-io/nevo/ledger/common"
)

// MockAuth approves every address except those explicitly denied, and
// records each address it was asked about
type MockAuth struct {
	denied map[common.Address]bool
	calls  []common.Address
	mu     sync.Mutex
}

func NewMockAuth() *MockAuth {
	return &MockAuth{
		denied: make(map[common.Address]bool),
	}
}

func (m *MockAuth) RequireAuth(_ context.Context, addr common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, addr)
	if m.denied[addr] {
		return fmt.Errorf("signature for %s: %w", addr, common.ErrUnauthorized)
	}
	return nil
}

// Deny makes future authorization checks for addr fail
func (m *MockAuth) Deny(addr common.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.denied[addr] = true
}

func (m *MockAuth) Allow(addr common.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.denied, addr)
}

// Calls returns the addresses checked so far, in order
func (m *MockAuth) Calls() []common.Address {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]common.Address(nil), m.calls...)
}
