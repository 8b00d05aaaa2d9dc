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

package badger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricNamePrefix = "database_badger_"

func (d *StoreBadger) registerMetrics() {
	promautoFactory := promauto.With(d.promRegistry)
	promautoFactory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricNamePrefix + "lsm_size_bytes",
			Help: "size of the badger LSM tree",
		},
		func() float64 {
			lsm, _ := d.db.Size()
			return float64(lsm)
		},
	)
	promautoFactory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricNamePrefix + "vlog_size_bytes",
			Help: "size of the badger value log",
		},
		func() float64 {
			_, vlog := d.db.Size()
			return float64(vlog)
		},
	)
	promautoFactory.NewCounterFunc(
		prometheus.CounterOpts{
			Name: metricNamePrefix + "block_cache_hits_total",
			Help: "badger block cache hits",
		},
		func() float64 {
			m := d.db.BlockCacheMetrics()
			if m == nil {
				return 0
			}
			return float64(m.Hits())
		},
	)
	promautoFactory.NewCounterFunc(
		prometheus.CounterOpts{
			Name: metricNamePrefix + "block_cache_misses_total",
			Help: "badger block cache misses",
		},
		func() float64 {
			m := d.db.BlockCacheMetrics()
			if m == nil {
				return 0
			}
			return float64(m.Misses())
		},
	)
}
