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

package models

import (
	"github.com/fxamacker/cbor/v2"
)

// MigrateModels contains a list of model objects that should have DB
// migrations applied by relational storage plugins
var MigrateModels = []any{
	&KvEntry{},
}

// KvEntry is the relational representation of one encoded ledger value
type KvEntry struct {
	EntryKey   []byte `gorm:"primaryKey;size:512"`
	EntryValue []byte
}

func (KvEntry) TableName() string {
	return "kv_entry"
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	// Canonical encoding keeps stored values byte-stable across runs
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{
		MaxArrayElements: 1 << 20,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// Encode returns the CBOR encoding of a stored value
func Encode(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Decode parses a stored CBOR value into dst
func Decode(data []byte, dst any) error {
	return decMode.Unmarshal(data, dst)
}
