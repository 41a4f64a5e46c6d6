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

package cache

import (
	"container/list"

	"github.com/ManDay/quicksolve/coefficient"
	"github.com/ManDay/quicksolve/metrics"
	"github.com/ManDay/quicksolve/operand"
	"github.com/sasha-s/go-deadlock"
)

// Identifier is an opaque handle a Manager's Loader/Saver/Discarder use
// to locate a coefficient's backing row; callers mint their own concrete
// type (e.g. a pivot/head pair, or a coefficient UID).
type Identifier interface{}

// Loader fetches the coefficient backing id and installs it into t via
// t.Load. It is called whenever a tracked terminal is acquired while
// unresolved: on first use of a Manager.New placeholder, and again after
// each eviction.
type Loader func(t *operand.Terminal, id Identifier) error

// Saver persists c under id. Called at most once per release cycle, when
// the released entry is evicted; an entry that is reloaded, released and
// evicted again is saved again.
type Saver func(c coefficient.Coefficient, id Identifier) error

// Discarder releases any persistent-store bookkeeping for id when the
// entry is dropped without ever being saved (e.g. a zero term).
type Discarder func(id Identifier)

// Manager hands out and pins lazily-loaded Terminals sharing one
// identifier namespace, and feeds released ones to a shared Queue for
// eventual eviction. Mirrors the original's QsTerminalMgr.
type Manager struct {
	loader    Loader
	saver     Saver
	discarder Discarder
	queue     *Queue

	mu      deadlock.Mutex
	entries map[*operand.Terminal]*managed
}

type managed struct {
	id   Identifier
	refs int
	elem *list.Element
}

// NewManager builds a Manager. saver/discarder may be nil for a
// read-only namespace (e.g. the original's "initial" terminals, loaded
// once from the system definition and never written back).
func NewManager(loader Loader, saver Saver, discarder Discarder, queue *Queue) *Manager {
	return &Manager{
		loader:    loader,
		saver:     saver,
		discarder: discarder,
		queue:     queue,
		entries:   make(map[*operand.Terminal]*managed),
	}
}

// New mints a fresh, unresolved Terminal tracked under id.
func (m *Manager) New(id Identifier) *operand.Terminal {
	t := operand.New()
	m.mu.Lock()
	m.entries[t] = &managed{id: id}
	m.mu.Unlock()
	return t
}

// Track registers an already-constructed, already-resolved Terminal (one
// built directly via operand.Bake/Terminate rather than Manager.New)
// under id, so it becomes eligible for Release/eviction. A no-op if t is
// already tracked.
func (m *Manager) Track(t *operand.Terminal, id Identifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[t]; ok {
		return
	}
	m.entries[t] = &managed{id: id}
}

// Acquire pins t in memory (loading it first if necessary) and returns
// its coefficient. Every Acquire must be matched by a Release.
func (m *Manager) Acquire(t *operand.Terminal) (coefficient.Coefficient, error) {
	m.mu.Lock()
	e, tracked := m.entries[t]
	var first bool
	var elem *list.Element
	if tracked {
		first = e.refs == 0
		e.refs++
		elem = e.elem
		e.elem = nil
	}
	m.mu.Unlock()

	if !tracked {
		// Not one of ours (e.g. a plain computed constant): just wait.
		return t.Wait()
	}

	if elem != nil {
		m.queue.remove(elem)
	}

	if !t.IsResolved() {
		if err := m.loader(t, e.id); err != nil {
			return coefficient.Coefficient{}, err
		}
	}

	c, err := t.Wait()
	if err != nil {
		return coefficient.Coefficient{}, err
	}
	if first {
		metrics.CacheResidentTerminals.Inc()
	}
	return c, nil
}

// Release unpins t. Once its pin count reaches zero it is queued for
// eviction under the shared Queue's LRU policy.
func (m *Manager) Release(t *operand.Terminal) {
	m.mu.Lock()
	e, tracked := m.entries[t]
	if tracked {
		e.refs--
	}
	done := !tracked || e.refs > 0
	m.mu.Unlock()
	if done {
		return
	}

	c, ok := t.Acquire()
	if !ok {
		return
	}

	saved := m.saver == nil
	written := false
	elem := m.queue.push(&spillable{
		size: c.Size(),
		save: func() error {
			if saved {
				return nil
			}
			err := m.saver(c, e.id)
			saved = true
			written = err == nil
			return err
		},
		discard: func() {
			if !written && m.discarder != nil {
				m.discarder(e.id)
			}
			t.Unload()
		},
	})
	e.elem = elem
	m.queue.track(c.Size())
}

// Forget drops t from tracking without saving or discarding — used when
// the caller has already consumed or persisted t by other means (e.g.
// the graph's own Save path) and wants the cache to stop referencing it.
func (m *Manager) Forget(t *operand.Terminal) {
	m.mu.Lock()
	delete(m.entries, t)
	m.mu.Unlock()
}
