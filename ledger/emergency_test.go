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

package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/nevo/internal/test/testutil"
	"github.com/blinklabs-io/nevo/ledger/common"
)

func TestEmergencyWithdrawTimelock(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	tl.token.Mint(testToken, testContract, 5_000)

	require.NoError(t, tl.ls.RequestEmergencyWithdraw(ctx, testToken, amt(2_000)))
	require.ErrorIs(
		t,
		tl.ls.RequestEmergencyWithdraw(ctx, testToken, amt(1)),
		common.ErrEmergencyAlreadyRequested,
	)
	w, err := tl.ls.GetEmergencyWithdrawal(ctx)
	require.NoError(t, err)
	assert.Equal(t, testAdmin, w.Recipient)
	assert.Equal(t, testStartTime, w.RequestedAt)

	tl.clock.Advance(common.EmergencyWithdrawalDelay - 1)
	err = tl.ls.ExecuteEmergencyWithdraw(ctx)
	require.ErrorIs(t, err, common.ErrEmergencyPeriodNotPassed)

	tl.clock.Advance(1)
	require.NoError(t, tl.ls.ExecuteEmergencyWithdraw(ctx))
	assertAmount(t, 2_000, tl.token.BalanceOf(testToken, testAdmin))
	assertAmount(t, 3_000, tl.token.BalanceOf(testToken, testContract))

	err = tl.ls.ExecuteEmergencyWithdraw(ctx)
	require.ErrorIs(t, err, common.ErrEmergencyNotRequested)
	_, err = tl.ls.GetEmergencyWithdrawal(ctx)
	require.ErrorIs(t, err, common.ErrEmergencyNotRequested)
}

func TestEmergencyWithdrawValidation(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	require.ErrorIs(t, tl.ls.RequestEmergencyWithdraw(ctx, testToken, amt(0)), common.ErrInvalidAmount)
	tl.auth.Deny(testAdmin)
	require.ErrorIs(t, tl.ls.RequestEmergencyWithdraw(ctx, testToken, amt(1)), common.ErrUnauthorized)
}

func TestEmergencyWithdrawReentrancy(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	tl.token.Mint(testToken, testContract, 1_000)
	require.NoError(t, tl.ls.RequestEmergencyWithdraw(ctx, testToken, amt(1_000)))
	tl.clock.Advance(common.EmergencyWithdrawalDelay)

	var reentryErr error
	tl.token.SetHook(func(ctx context.Context, _ testutil.Transfer) error {
		reentryErr = tl.ls.ExecuteEmergencyWithdraw(ctx)
		return nil
	})
	require.NoError(t, tl.ls.ExecuteEmergencyWithdraw(ctx))
	require.ErrorIs(t, reentryErr, common.ErrReentrancyLocked)
	assertAmount(t, 1_000, tl.token.BalanceOf(testToken, testAdmin))
}
