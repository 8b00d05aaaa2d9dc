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
	"io"
	"log/slog"

	"github.com/blinklabs-io/nevo/database/plugin"
	"github.com/blinklabs-io/nevo/database/plugin/storage"
	"github.com/blinklabs-io/nevo/database/types"
	"github.com/prometheus/client_golang/prometheus"
)

const DefaultStoragePlugin = "badger"

// Config contains the settings used to open a Database
type Config struct {
	Logger        *slog.Logger
	PromRegistry  prometheus.Registerer
	Store         types.Store // overrides plugin selection when set
	DataDir       string
	StoragePlugin string
}

type Database struct {
	logger  *slog.Logger
	store   types.Store
	dataDir string
	closed  bool
}

// Store returns the underlying key-value store instance
func (d *Database) Store() types.Store {
	return d.store
}

// DataDir returns the path to the data directory used for storage
func (d *Database) DataDir() string {
	return d.dataDir
}

// Logger returns the logger instance
func (d *Database) Logger() *slog.Logger {
	return d.logger
}

// Transaction starts a new database transaction and returns a handle to it
func (d *Database) Transaction(readWrite bool) *Txn {
	return NewTxn(d, readWrite)
}

// Close cleans up the database connections
func (d *Database) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	var err error
	if d.store != nil {
		err = errors.Join(err, d.store.Close())
	}
	return err
}

// New creates a new database instance with optional persistence using the
// configured data directory. An empty data directory keeps all data in memory
func New(cfg *Config) (*Database, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	logger := cfg.Logger
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	store := cfg.Store
	if store == nil {
		pluginName := cfg.StoragePlugin
		if pluginName == "" {
			pluginName = DefaultStoragePlugin
		}
		if err := plugin.SetPluginOption(
			plugin.PluginTypeStorage,
			pluginName,
			"data-dir",
			cfg.DataDir,
		); err != nil {
			return nil, err
		}
		var err error
		store, err = storage.New(
			pluginName,
			plugin.Env{
				Logger:       logger,
				PromRegistry: cfg.PromRegistry,
			},
		)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
	}
	db := &Database{
		logger:  logger,
		store:   store,
		dataDir: cfg.DataDir,
	}
	logger.Debug(
		"database opened",
		"component", "database",
		"data_dir", cfg.DataDir,
		"plugin", cfg.StoragePlugin,
	)
	return db, nil
}
