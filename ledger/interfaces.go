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
	"context"
	"time"

	"github.com/blinklabs-io/nevo/ledger/common"
)

// Authorizer checks that a call is authorized by the given address
type Authorizer interface {
	RequireAuth(ctx context.Context, addr common.Address) error
}

// Clock provides the current time in unix seconds
type Clock interface {
	Now() uint64
}

// TokenClient moves funding assets between addresses. An implementation
// that calls back into the ledger must pass along the context it received
type TokenClient interface {
	Transfer(
		ctx context.Context,
		asset, from, to common.Address,
		amount common.Amount,
	) error
	Balance(
		ctx context.Context,
		asset, owner common.Address,
	) (common.Amount, error)
}

// SystemClock reports wall-clock time
type SystemClock struct{}

func (SystemClock) Now() uint64 {
	return uint64(time.Now().Unix()) //nolint:gosec
}
