// Copyright 2026 The Quicksolve Authors.
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

// Package metrics holds the prometheus collectors shared by the AEF worker
// pool, the bounded coefficient cache and the pivot graph, so that the
// quicksolve engine can expose one /metrics endpoint covering all of them.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// BakedTerminals counts terminals baked for evaluation, labelled by
	// the operation they bake.
	BakedTerminals = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quicksolve",
		Subsystem: "aef",
		Name:      "baked_terminals_total",
		Help:      "Terminals baked for asynchronous evaluation, by operation.",
	}, []string{"operation"})

	// EvaluationsCompleted counts terminals whose evaluation finished.
	EvaluationsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "quicksolve",
		Subsystem: "aef",
		Name:      "evaluations_completed_total",
		Help:      "Terminals whose baked expression finished evaluating.",
	})

	// ReadyQueueDepth is the current count of terminals awaiting a
	// worker, sampled on push/pop.
	ReadyQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "quicksolve",
		Subsystem: "aef",
		Name:      "ready_queue_depth",
		Help:      "Terminals currently independent and awaiting a worker.",
	})

	// CacheResidentTerminals is the number of terminals currently pinned
	// in memory by the bounded coefficient cache.
	CacheResidentTerminals = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "quicksolve",
		Subsystem: "cache",
		Name:      "resident_terminals",
		Help:      "Terminals with a live in-memory coefficient.",
	})

	// CacheBytes tracks the cache's tracked memory usage in bytes.
	CacheBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "quicksolve",
		Subsystem: "cache",
		Name:      "bytes",
		Help:      "Tracked memory usage of resident coefficients, in bytes.",
	})

	// CacheEvictions counts coefficients spilled to the persistent store.
	CacheEvictions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "quicksolve",
		Subsystem: "cache",
		Name:      "evictions_total",
		Help:      "Coefficients evicted from memory to the persistent store.",
	})

	// GraphPivots is registered for the number of live pivots in the
	// graph; no package updates it, so it stays at zero.
	GraphPivots = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "quicksolve",
		Subsystem: "pivotgraph",
		Name:      "pivots",
		Help:      "Live pivots currently tracked by the graph.",
	})

	// GraphEliminations counts completed pivot eliminations.
	GraphEliminations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "quicksolve",
		Subsystem: "pivotgraph",
		Name:      "eliminations_total",
		Help:      "Pivots eliminated (normalised to a single remaining term or zero).",
	})
)

func init() {
	prometheus.MustRegister(
		BakedTerminals,
		EvaluationsCompleted,
		ReadyQueueDepth,
		CacheResidentTerminals,
		CacheBytes,
		CacheEvictions,
		GraphPivots,
		GraphEliminations,
	)
}
