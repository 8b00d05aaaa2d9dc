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

// Package ledger implements the crowdfunding custody ledger: campaigns,
// pools, multi-signature disbursements and the emergency withdrawal
// timelock. All state lives in the database and every call runs inside a
// single database transaction
package ledger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/blinklabs-io/nevo/database"
	"github.com/blinklabs-io/nevo/event"
	"github.com/blinklabs-io/nevo/ledger/common"
)

const tracerName = "github.com/blinklabs-io/nevo/ledger"

var (
	ErrNilDatabase       = errors.New("ledger: database is required")
	ErrNilAuthorizer     = errors.New("ledger: authorizer is required")
	ErrNilTokenClient    = errors.New("ledger: token client is required")
	ErrNoContractAddress = errors.New("ledger: contract address is required")

	// ErrCallInProgress is returned for a mutating call made while the
	// ledger waits on the token client, unless the call carries the context
	// the token client was given. It wraps common.ErrReentrancyLocked
	ErrCallInProgress = fmt.Errorf("ledger: call in progress: %w", common.ErrReentrancyLocked)
)

type LedgerStateConfig struct {
	Logger          *slog.Logger
	Database        *database.Database
	EventBus        *event.EventBus
	PromRegistry    prometheus.Registerer
	TracerProvider  trace.TracerProvider
	Authorizer      Authorizer
	Clock           Clock // defaults to SystemClock
	TokenClient     TokenClient
	ContractAddress common.Address
}

// LedgerState is the entry point for all ledger operations. Mutating calls
// are serialized; queries run against a read-only snapshot unless made from
// inside a running call
type LedgerState struct {
	mu sync.Mutex
	// outbound is set while the mutex holder waits on the token client
	outbound atomic.Bool
	config   LedgerStateConfig
	db      *database.Database
	metrics stateMetrics
	tracer  trace.Tracer
}

func NewLedgerState(cfg LedgerStateConfig) (*LedgerState, error) {
	if cfg.Database == nil {
		return nil, ErrNilDatabase
	}
	if cfg.Authorizer == nil {
		return nil, ErrNilAuthorizer
	}
	if cfg.TokenClient == nil {
		return nil, ErrNilTokenClient
	}
	if cfg.ContractAddress.IsZero() {
		return nil, ErrNoContractAddress
	}
	if cfg.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}
	ls := &LedgerState{
		config: cfg,
		db:     cfg.Database,
		tracer: cfg.TracerProvider.Tracer(tracerName),
	}
	ls.metrics.init(cfg.PromRegistry)
	return ls, nil
}

// ContractAddress returns the address that holds custody of ledger funds
func (ls *LedgerState) ContractAddress() common.Address {
	return ls.config.ContractAddress
}

// Database returns the underlying database
func (ls *LedgerState) Database() *database.Database {
	return ls.db
}

// Version returns the ledger contract version
func (ls *LedgerState) Version() string {
	return common.ContractVersion
}
