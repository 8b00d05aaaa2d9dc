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

// Package storage opens the key-value store backing the ledger database
package storage

import (
	"fmt"

	"github.com/blinklabs-io/nevo/database/plugin"
	"github.com/blinklabs-io/nevo/database/types"

	// Register storage plugins
	_ "github.com/blinklabs-io/nevo/database/plugin/storage/badger"
	_ "github.com/blinklabs-io/nevo/database/plugin/storage/mysql"
	_ "github.com/blinklabs-io/nevo/database/plugin/storage/postgres"
	_ "github.com/blinklabs-io/nevo/database/plugin/storage/sqlite"
)

// New returns the started storage plugin selected by name
func New(pluginName string, env plugin.Env) (types.Store, error) {
	p, err := plugin.StartPlugin(plugin.PluginTypeStorage, pluginName, env)
	if err != nil {
		return nil, err
	}
	store, ok := p.(types.Store)
	if !ok {
		_ = p.Stop()
		return nil, fmt.Errorf(
			"plugin '%s' does not implement Store interface",
			pluginName,
		)
	}
	return store, nil
}
