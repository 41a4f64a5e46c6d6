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

// Package cache bounds the amount of memory live coefficients occupy: a
// Manager hands out lazily-loaded operand.Terminal placeholders, pins them
// in memory while acquired, and queues released ones on a shared
// least-recently-used Queue that spills the oldest entry to persistent
// storage whenever tracked usage exceeds a configured memory limit.
package cache

import (
	"container/list"
	"sync/atomic"

	"github.com/ManDay/quicksolve/metrics"
	"github.com/sasha-s/go-deadlock"
	"github.com/sirupsen/logrus"
)

// spillable is one released, currently-resident entry eligible for
// eviction.
type spillable struct {
	size    int
	save    func() error
	discard func()
}

// Queue is the shared LRU of released terminals, consulted whenever
// tracked usage needs to shrink. One Queue is normally shared by every
// Manager in a run, matching the original's single QsTerminalQueue shared
// between the initial and computed coefficient managers.
type Queue struct {
	mu    deadlock.Mutex
	list  *list.List
	usage int64
	limit int64
	log   logrus.FieldLogger
}

// NewQueue returns a Queue that evicts once usage exceeds limit bytes. A
// limit of 0 means unbounded: nothing is ever evicted.
func NewQueue(limit int64, log logrus.FieldLogger) *Queue {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Queue{list: list.New(), limit: limit, log: log}
}

// track registers bytes newly resident in memory and evicts until usage
// is back under the limit, if one is set.
func (q *Queue) track(bytes int) {
	atomic.AddInt64(&q.usage, int64(bytes))
	metrics.CacheBytes.Add(float64(bytes))

	if q.limit == 0 {
		return
	}
	for atomic.LoadInt64(&q.usage) > q.limit {
		if !q.pop() {
			q.log.Warn("cache: could not reduce memory usage below limit")
			break
		}
	}
}

// untrack records bytes leaving memory without evicting (used when a
// pinned entry's coefficient is replaced or freed directly).
func (q *Queue) untrack(bytes int) {
	atomic.AddInt64(&q.usage, -int64(bytes))
	metrics.CacheBytes.Sub(float64(bytes))
}

// push places a newly-released entry at the front (most-recently-used
// end) of the LRU list and returns its handle, used later to unlink it
// if the entry is re-acquired before eviction.
func (q *Queue) push(e *spillable) *list.Element {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.list.PushFront(e)
}

// remove unlinks elem, e.g. because the entry was re-acquired.
func (q *Queue) remove(elem *list.Element) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.list.Remove(elem)
}

// pop evicts the least-recently-used entry: saves it (if not already
// saved) and discards its in-memory footprint. Reports false if the
// queue was empty.
func (q *Queue) pop() bool {
	q.mu.Lock()
	elem := q.list.Back()
	if elem == nil {
		q.mu.Unlock()
		return false
	}
	q.list.Remove(elem)
	q.mu.Unlock()

	e := elem.Value.(*spillable)
	if err := e.save(); err != nil {
		q.log.WithError(err).Error("cache: failed to spill coefficient to storage")
	}
	e.discard()

	atomic.AddInt64(&q.usage, -int64(e.size))
	metrics.CacheBytes.Sub(float64(e.size))
	metrics.CacheEvictions.Inc()
	metrics.CacheResidentTerminals.Dec()

	return true
}
