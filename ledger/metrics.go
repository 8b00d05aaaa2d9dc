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
	"math/big"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/blinklabs-io/nevo/ledger/common"
)

type stateMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	transfersTotal    *prometheus.CounterVec
	valueTransferred  *prometheus.CounterVec
	lockContention    prometheus.Counter
	eventsDropped     prometheus.Counter
}

func (m *stateMetrics) init(promRegistry prometheus.Registerer) {
	// A nil registry yields working but unregistered metrics
	promautoFactory := promauto.With(promRegistry)
	m.operationsTotal = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nevo_ledger_operations_total",
			Help: "ledger operations, by operation and result",
		},
		[]string{"operation", "result"},
	)
	m.operationDuration = promautoFactory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nevo_ledger_operation_duration_seconds",
			Help:    "time spent in ledger operations, including commit",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15), // 100us to ~1.6s
		},
		[]string{"operation"},
	)
	m.transfersTotal = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nevo_ledger_transfers_total",
			Help: "token transfers requested by the ledger, by direction",
		},
		[]string{"direction"},
	)
	m.valueTransferred = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nevo_ledger_value_transferred_total",
			Help: "base units moved by ledger transfers, by direction",
		},
		[]string{"direction"},
	)
	m.lockContention = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "nevo_ledger_reentrancy_blocked_total",
			Help: "calls rejected because a reentrancy lock was held",
		},
	)
	m.eventsDropped = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "nevo_ledger_events_dropped_total",
			Help: "notifications not queued because the event bus was full or stopped",
		},
	)
}

func (m *stateMetrics) recordTransfer(direction string, amount common.Amount) {
	m.transfersTotal.WithLabelValues(direction).Inc()
	val, _ := new(big.Float).SetInt(amount.Big()).Float64()
	m.valueTransferred.WithLabelValues(direction).Add(val)
}
