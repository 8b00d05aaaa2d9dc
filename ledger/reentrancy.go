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
	"fmt"

	"github.com/blinklabs-io/nevo/database/types"
	"github.com/blinklabs-io/nevo/ledger/common"
)

// guard runs fn while holding the reentrancy lock stored at lockKey. The
// lock is released on every exit path of fn
func (f *frame) guard(lockKey types.Key, fn func() error) (err error) {
	held, err := f.txn.GetFlag(lockKey)
	if err != nil {
		return err
	}
	if held {
		f.ls.metrics.lockContention.Inc()
		return fmt.Errorf("%s: %w", lockKey, common.ErrReentrancyLocked)
	}
	if err := f.txn.SetFlag(lockKey, true); err != nil {
		return err
	}
	defer func() {
		if relErr := f.txn.Delete(lockKey); relErr != nil && err == nil {
			err = fmt.Errorf("release %s: %w", lockKey, relErr)
		}
	}()
	return fn()
}
