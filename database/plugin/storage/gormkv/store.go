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

// Package gormkv implements the ordered key/value store contract on top of a
// single relational table. The SQL storage plugins share it and differ only
// in how they open their connection
package gormkv

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/blinklabs-io/nevo/database/models"
	"github.com/blinklabs-io/nevo/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/opentelemetry/tracing"
)

// Store keeps ledger state as rows of the kv_entry table
type Store struct {
	db *gorm.DB
}

// New prepares an open GORM handle for use as a ledger store. It installs
// query tracing, registers connection pool metrics when promRegistry is set,
// and migrates the schema. The handle is closed if any step fails
func New(
	db *gorm.DB,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*Store, error) {
	s := &Store{db: db}
	if err := s.init(logger, promRegistry); err != nil {
		return nil, errors.Join(err, s.Close())
	}
	return s, nil
}

func (s *Store) init(
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) error {
	// Configure tracing for GORM
	if err := s.db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return err
	}
	if promRegistry != nil {
		if err := s.registerMetrics(promRegistry); err != nil {
			return err
		}
	}
	for _, model := range models.MigrateModels {
		if logger != nil {
			logger.Debug(fmt.Sprintf("creating table: %#v", model))
		}
		if err := s.db.AutoMigrate(model); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) registerMetrics(promRegistry prometheus.Registerer) error {
	sqlDb, err := s.db.DB()
	if err != nil {
		return err
	}
	err = promRegistry.Register(
		collectors.NewDBStatsCollector(sqlDb, "nevo_ledger"),
	)
	var alreadyRegistered prometheus.AlreadyRegisteredError
	if errors.As(err, &alreadyRegistered) {
		return nil
	}
	return err
}

// DB returns the underlying GORM database handle
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close closes the underlying database connection pool
func (s *Store) Close() error {
	// get DB handle from gorm.DB
	db, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get database handle: %w", err)
	}
	return db.Close()
}

// NewTransaction begins a new database transaction
func (s *Store) NewTransaction(readWrite bool) types.Txn {
	return &gormTxn{
		store:     s,
		tx:        s.db.Begin(),
		readWrite: readWrite,
	}
}

// Get retrieves a value within a transaction
func (s *Store) Get(txn types.Txn, key []byte) ([]byte, error) {
	gTxn, err := s.validateTxn(txn)
	if err != nil {
		return nil, err
	}
	var entry models.KvEntry
	result := gTxn.tx.Where("entry_key = ?", key).Take(&entry)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, types.ErrKeyNotFound
		}
		return nil, result.Error
	}
	return entry.EntryValue, nil
}

// Set inserts or replaces a key-value pair within a transaction
func (s *Store) Set(txn types.Txn, key []byte, val []byte) error {
	gTxn, err := s.validateTxn(txn)
	if err != nil {
		return err
	}
	if !gTxn.readWrite {
		return types.ErrReadOnlyTxn
	}
	entry := models.KvEntry{
		EntryKey:   key,
		EntryValue: val,
	}
	// MySQL ignores the conflict columns and uses ON DUPLICATE KEY UPDATE
	return gTxn.tx.Clauses(
		clause.OnConflict{
			Columns:   []clause.Column{{Name: "entry_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"entry_value"}),
		},
	).Create(&entry).Error
}

// Delete removes a key within a transaction
func (s *Store) Delete(txn types.Txn, key []byte) error {
	gTxn, err := s.validateTxn(txn)
	if err != nil {
		return err
	}
	if !gTxn.readWrite {
		return types.ErrReadOnlyTxn
	}
	return gTxn.tx.Where("entry_key = ?", key).
		Delete(&models.KvEntry{}).Error
}

// NewIterator returns an iterator over the rows matching the prefix. Rows
// are loaded when the iterator is created
func (s *Store) NewIterator(
	txn types.Txn,
	opts types.IteratorOptions,
) types.Iterator {
	gTxn, err := s.validateTxn(txn)
	if err != nil {
		return &gormIterator{err: err}
	}
	query := gTxn.tx.Model(&models.KvEntry{})
	if len(opts.Prefix) > 0 {
		query = query.Where("entry_key >= ?", opts.Prefix)
		if upper := PrefixUpperBound(opts.Prefix); upper != nil {
			query = query.Where("entry_key < ?", upper)
		}
	}
	query = query.Order(
		clause.OrderByColumn{
			Column: clause.Column{Name: "entry_key"},
			Desc:   opts.Reverse,
		},
	)
	var entries []models.KvEntry
	if result := query.Find(&entries); result.Error != nil {
		return &gormIterator{err: result.Error}
	}
	return &gormIterator{entries: entries}
}

// PrefixUpperBound returns the smallest key greater than every key with the
// given prefix, or nil if no such key exists
func PrefixUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xff {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil
}
