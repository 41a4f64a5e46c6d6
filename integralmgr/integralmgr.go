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

// Package integralmgr interns Integrals into dense Components and owns
// the persistent stores backing them: one "PR<prototype>.dat" file per
// prototype holding each component's initial row, and one
// "idPR<prototype>.dat" file holding the coefficients spilled from the
// pivot graph's bounded cache.
package integralmgr

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/ManDay/quicksolve/cache"
	"github.com/ManDay/quicksolve/coefficient"
	"github.com/ManDay/quicksolve/errs"
	"github.com/ManDay/quicksolve/integral"
	"github.com/ManDay/quicksolve/operand"
	"github.com/ManDay/quicksolve/pivotgraph"
	"github.com/ManDay/quicksolve/reflist"
	"github.com/ManDay/quicksolve/store"
	"github.com/mitchellh/hashstructure"
	"github.com/sirupsen/logrus"
)

// Manager interns Integrals into Components and persists their rows and
// coefficients, one pair of stores per prototype encountered.
type Manager struct {
	dir string
	log logrus.FieldLogger

	mu         sync.Mutex
	components []integral.Integral
	buckets    map[uint64][]integral.Component

	protoMu    sync.Mutex
	prototypes map[uint32]*prototypeStore
}

type prototypeStore struct {
	expr  store.Store
	coeff store.Store
}

// New returns a Manager whose per-prototype files are created under dir.
func New(dir string, log logrus.FieldLogger) *Manager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Manager{
		dir:        dir,
		log:        log,
		buckets:    make(map[uint64][]integral.Component),
		prototypes: make(map[uint32]*prototypeStore),
	}
}

// Manage interns i, returning its existing Component if an structurally
// equal Integral is already known, or minting a fresh one otherwise.
// Candidates sharing i's hashstructure digest are compared structurally
// within the bucket — this replaces the original's documented-as-
// improvable linear scan ("Find integral, improvable by parallelism and
// semantics TODO" in integralmgr.c) with O(1) average-case lookup while
// keeping its fallback-to-Equal semantics for hash collisions.
func (m *Manager) Manage(i integral.Integral) integral.Component {
	h, err := hashstructure.Hash(i, nil)
	if err != nil {
		// Degrades to a single shared bucket, i.e. the original's linear
		// scan, rather than failing to intern at all.
		h = 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.buckets[h] {
		if m.components[c].Equal(i) {
			return c
		}
	}

	c := integral.Component(len(m.components))
	m.components = append(m.components, i)
	m.buckets[h] = append(m.buckets[h], c)
	return c
}

// Peek returns the Integral a Component was minted from.
func (m *Manager) Peek(c integral.Component) (integral.Integral, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if int(c) >= len(m.components) {
		return integral.Integral{}, errs.ErrNoSuchPivot.New(fmt.Sprintf("component %d", c))
	}
	return m.components[c], nil
}

func (m *Manager) prototypeFor(prototype uint32) (*prototypeStore, error) {
	m.protoMu.Lock()
	defer m.protoMu.Unlock()

	if p, ok := m.prototypes[prototype]; ok {
		return p, nil
	}

	exprPath := filepath.Join(m.dir, fmt.Sprintf("PR%d.dat", prototype))
	exprStore, err := store.Open(exprPath, store.Write|store.Create)
	if err != nil {
		return nil, err
	}

	coeffPath := filepath.Join(m.dir, fmt.Sprintf("idPR%d.dat", prototype))
	coeffStore, err := store.Open(coeffPath, store.Write|store.Create)
	if err != nil {
		exprStore.Close()
		return nil, err
	}

	p := &prototypeStore{expr: exprStore, coeff: coeffStore}
	m.prototypes[prototype] = p
	return p, nil
}

// Close releases every opened prototype store.
func (m *Manager) Close() error {
	m.protoMu.Lock()
	defer m.protoMu.Unlock()
	var firstErr error
	for _, p := range m.prototypes {
		if err := p.expr.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := p.coeff.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func rowKey(c integral.Component) []byte {
	return []byte(fmt.Sprintf("row%d", c))
}

func metaKey(c integral.Component) []byte {
	return []byte(fmt.Sprintf("meta%d", c))
}

func uidKey(id pivotgraph.CoefficientID) []byte {
	return []byte(fmt.Sprintf("id%d", id))
}

// LoadExpression satisfies pivotgraph.Loader: it fetches c's row and
// metadata from its prototype's PR<id>.dat store. An absent row reports
// ok via an empty list, which the pivot graph treats as "no such pivot".
func (m *Manager) LoadExpression(c integral.Component) (reflist.List, pivotgraph.Meta, error) {
	i, err := m.Peek(c)
	if err != nil {
		return nil, pivotgraph.Meta{}, err
	}

	ps, err := m.prototypeFor(i.Prototype)
	if err != nil {
		return nil, pivotgraph.Meta{}, err
	}

	raw, ok, err := ps.expr.Get(rowKey(c))
	if err != nil {
		return nil, pivotgraph.Meta{}, err
	}
	if !ok {
		return nil, pivotgraph.Meta{}, nil
	}

	var l reflist.List
	if err := l.UnmarshalBinary(raw); err != nil {
		return nil, pivotgraph.Meta{}, err
	}

	var meta pivotgraph.Meta
	if metaRaw, ok, err := ps.expr.Get(metaKey(c)); err != nil {
		return nil, pivotgraph.Meta{}, err
	} else if ok {
		if err := meta.UnmarshalBinary(metaRaw); err != nil {
			return nil, pivotgraph.Meta{}, err
		}
	}

	return l, meta, nil
}

// SaveExpression satisfies pivotgraph.Saver.
func (m *Manager) SaveExpression(c integral.Component, l reflist.List, meta pivotgraph.Meta) error {
	i, err := m.Peek(c)
	if err != nil {
		return err
	}

	ps, err := m.prototypeFor(i.Prototype)
	if err != nil {
		return err
	}

	data, err := l.MarshalBinary()
	if err != nil {
		return err
	}
	if err := ps.expr.Set(rowKey(c), data); err != nil {
		return err
	}

	metaData, err := meta.MarshalBinary()
	if err != nil {
		return err
	}
	return ps.expr.Set(metaKey(c), metaData)
}

// CoefficientLoader satisfies cache.Loader for coefficients keyed by
// pivotgraph.CoefficientKey.
func (m *Manager) CoefficientLoader(t *operand.Terminal, id cache.Identifier) error {
	key, ok := id.(pivotgraph.CoefficientKey)
	if !ok {
		return errs.ErrNoSuchPivot.New(fmt.Sprintf("unrecognised coefficient identifier %#v", id))
	}

	i, err := m.Peek(key.Component)
	if err != nil {
		return err
	}
	ps, err := m.prototypeFor(i.Prototype)
	if err != nil {
		return err
	}

	raw, ok, err := ps.coeff.Get(uidKey(key.UID))
	if err != nil {
		return err
	}
	if !ok {
		return errs.ErrNoSuchPivot.New(fmt.Sprintf("coefficient uid %d", key.UID))
	}

	t.Load(coefficient.New(raw))
	return nil
}

// CoefficientSaver satisfies cache.Saver.
func (m *Manager) CoefficientSaver(c coefficient.Coefficient, id cache.Identifier) error {
	key, ok := id.(pivotgraph.CoefficientKey)
	if !ok {
		return errs.ErrNoSuchPivot.New(fmt.Sprintf("unrecognised coefficient identifier %#v", id))
	}

	i, err := m.Peek(key.Component)
	if err != nil {
		return err
	}
	ps, err := m.prototypeFor(i.Prototype)
	if err != nil {
		return err
	}

	return ps.coeff.Set(uidKey(key.UID), c.Bytes())
}

// CoefficientDiscarder satisfies cache.Discarder: it best-effort removes
// any stale entry left behind by a previous save of the same uid (ids are
// reused once the wraparound counter laps).
func (m *Manager) CoefficientDiscarder(id cache.Identifier) {
	key, ok := id.(pivotgraph.CoefficientKey)
	if !ok {
		return
	}

	i, err := m.Peek(key.Component)
	if err != nil {
		return
	}
	ps, err := m.prototypeFor(i.Prototype)
	if err != nil {
		return
	}

	if err := ps.coeff.Delete(uidKey(key.UID)); err != nil {
		m.log.WithError(err).WithField("uid", key.UID).Warn("integralmgr: failed to discard stale coefficient")
	}
}
