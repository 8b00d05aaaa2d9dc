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

package database

import (
	"errors"
	"fmt"

	"github.com/blinklabs-io/nevo/database/models"
	"github.com/blinklabs-io/nevo/database/types"
	"github.com/blinklabs-io/nevo/ledger/common"
)

func getValue[T any](t *Txn, key types.Key) (T, error) {
	var ret T
	data, err := t.GetRaw(key)
	if err != nil {
		if errors.Is(err, types.ErrKeyNotFound) {
			return ret, fmt.Errorf("%s: %w", key, err)
		}
		return ret, err
	}
	if err := models.Decode(data, &ret); err != nil {
		return ret, fmt.Errorf("decode %s: %w", key, err)
	}
	return ret, nil
}

// getValueOr returns def when the key is not set
func getValueOr[T any](t *Txn, key types.Key, def T) (T, error) {
	ret, err := getValue[T](t, key)
	if err != nil {
		if errors.Is(err, types.ErrKeyNotFound) {
			return def, nil
		}
		return def, err
	}
	return ret, nil
}

func setValue(t *Txn, key types.Key, val any) error {
	data, err := models.Encode(val)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return t.SetRaw(key, data)
}

// GetFlag returns whether a boolean flag is set. Unset flags are false
func (t *Txn) GetFlag(key types.Key) (bool, error) {
	return getValueOr(t, key, false)
}

// SetFlag stores a boolean flag. Clearing a flag removes its key
func (t *Txn) SetFlag(key types.Key, val bool) error {
	if !val {
		return t.Delete(key)
	}
	return setValue(t, key, true)
}

// GetAmount returns a stored amount. Unset amounts are zero
func (t *Txn) GetAmount(key types.Key) (common.Amount, error) {
	return getValueOr(t, key, common.Amount{})
}

func (t *Txn) SetAmount(key types.Key, val common.Amount) error {
	return setValue(t, key, val)
}

// AddAmount adds delta to a stored amount and returns the new value
func (t *Txn) AddAmount(key types.Key, delta common.Amount) (common.Amount, error) {
	cur, err := t.GetAmount(key)
	if err != nil {
		return common.Amount{}, err
	}
	next, err := cur.Add(delta)
	if err != nil {
		return common.Amount{}, err
	}
	if err := t.SetAmount(key, next); err != nil {
		return common.Amount{}, err
	}
	return next, nil
}

// GetUint returns a stored unsigned counter or rate. Unset values are zero
func (t *Txn) GetUint(key types.Key) (uint64, error) {
	return getValueOr[uint64](t, key, 0)
}

func (t *Txn) SetUint(key types.Key, val uint64) error {
	return setValue(t, key, val)
}

// GetAddress returns a stored address or an error wrapping types.ErrKeyNotFound
func (t *Txn) GetAddress(key types.Key) (common.Address, error) {
	return getValue[common.Address](t, key)
}

func (t *Txn) SetAddress(key types.Key, val common.Address) error {
	return setValue(t, key, val)
}

func (t *Txn) GetString(key types.Key) (string, error) {
	return getValueOr(t, key, "")
}

func (t *Txn) SetString(key types.Key, val string) error {
	return setValue(t, key, val)
}

// GetAddressList returns a stored address list. Unset lists are empty
func (t *Txn) GetAddressList(key types.Key) ([]common.Address, error) {
	return getValueOr[[]common.Address](t, key, nil)
}

func (t *Txn) SetAddressList(key types.Key, val []common.Address) error {
	return setValue(t, key, val)
}

// GetCampaignIDList returns a stored campaign ID list. Unset lists are empty
func (t *Txn) GetCampaignIDList(key types.Key) ([]common.CampaignID, error) {
	return getValueOr[[]common.CampaignID](t, key, nil)
}

func (t *Txn) SetCampaignIDList(key types.Key, val []common.CampaignID) error {
	return setValue(t, key, val)
}

// NextSequence increments the counter stored at key and returns the new
// value. Sequences start at 1
func (t *Txn) NextSequence(key types.Key) (uint64, error) {
	cur, err := t.GetUint(key)
	if err != nil {
		return 0, err
	}
	next := cur + 1
	if err := t.SetUint(key, next); err != nil {
		return 0, err
	}
	return next, nil
}
