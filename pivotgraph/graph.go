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

package pivotgraph

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/ManDay/quicksolve/cache"
	"github.com/ManDay/quicksolve/coefficient"
	"github.com/ManDay/quicksolve/integral"
	"github.com/ManDay/quicksolve/operand"
	"github.com/ManDay/quicksolve/reflist"
	"github.com/sasha-s/go-deadlock"
	"github.com/sirupsen/logrus"
)

// Loader fetches a component's row and metadata from wherever the run's
// initial system definition lives (typically the integral manager).
type Loader func(c integral.Component) (reflist.List, Meta, error)

// Saver persists a component's fully-acquired row and metadata.
type Saver func(c integral.Component, l reflist.List, meta Meta) error

// CoefficientID mirrors the original's CoefficientUID: a wrapping counter
// split into a "low" and "high" half so that stale identifiers from a
// previous wrap can be distinguished from freshly reused ones while both
// halves are still in flight.
type CoefficientID uint64

const (
	coefficientIDMaxLow  = CoefficientID(math.MaxUint64 >> 1)
	coefficientIDMaxHigh = CoefficientID(math.MaxUint64)
)

// CoefficientKey is the cache.Identifier a Graph mints for every
// coefficient it tracks. Component records which pivot's row the
// coefficient was minted for, letting a store-backed cache.Loader/Saver
// (package integralmgr) resolve which prototype's persistent file backs
// it; UID is the wrapping identifier within that namespace.
type CoefficientKey struct {
	Component integral.Component
	UID       CoefficientID
}

// reference is one term of a pivot's row. Its coefficient/numeric
// operands start out as Terminals but may be reassigned to an unbaked
// Intermediate by Relay/Collect/Normalize, to be re-terminated on next
// use — mirroring the original's QsOperand-typed Reference fields.
type reference struct {
	head        integral.Component
	coefficient operand.Operand
	numeric     operand.Operand
}

type pivot struct {
	refs []reference
	meta Meta
}

// Graph is the in-memory working set of pivots being eliminated. Each
// reference carries both a symbolic coefficient (baked lazily, cached
// and spilled to persistent storage under coefficientIDs minted here)
// and a numeric shadow value used by the elimination policy's cheap
// invertibility probes.
type Graph struct {
	mu         deadlock.Mutex
	components map[integral.Component]*pivot

	loader Loader
	saver  Saver

	aef        *operand.AEF
	aefNumeric *operand.AEF

	coeffQueue *cache.Queue
	coeffMgr   *cache.Manager

	idMu      sync.Mutex
	currentID CoefficientID
	nLowIDs   int64
	nHighIDs  int64

	one *operand.Terminal

	log logrus.FieldLogger
}

// New builds a Graph. symbolic and numeric are the AEF pools used to
// evaluate, respectively, coefficients and their numeric shadows;
// coeffLoader, coeffSaver and coeffDiscarder back the bounded coefficient
// cache's spill target.
func New(symbolic, numeric *operand.AEF, loader Loader, saver Saver, coeffLoader cache.Loader, coeffSaver cache.Saver, coeffDiscarder cache.Discarder, memoryLimit int64, log logrus.FieldLogger) *Graph {
	if log == nil {
		log = logrus.StandardLogger()
	}

	queue := cache.NewQueue(memoryLimit, log)
	one := operand.NewConstant(coefficient.One())

	g := &Graph{
		components: make(map[integral.Component]*pivot),
		loader:     loader,
		saver:      saver,
		aef:        symbolic,
		aefNumeric: numeric,
		coeffQueue: queue,
		one:        one,
		log:        log,
	}

	// Wrap the caller's discarder so a coefficient's uid is always
	// returned to the wraparound counter when its entry is dropped
	// without ever being saved, mirroring the original's drop_id calls.
	discard := func(id cache.Identifier) {
		if key, ok := id.(CoefficientKey); ok {
			g.dropID(key.UID)
		}
		if coeffDiscarder != nil {
			coeffDiscarder(id)
		}
	}

	g.coeffMgr = cache.NewManager(coeffLoader, coeffSaver, discard, queue)
	return g
}

// generateID mints a fresh CoefficientID, wrapping around to zero once
// the high half is exhausted. The outstanding-id counters of both halves
// are maintained here and in dropID, but the wraparound does not consult
// them: ids still outstanding in the low half can be minted again.
func (g *Graph) generateID() CoefficientID {
	g.idMu.Lock()
	defer g.idMu.Unlock()

	if g.currentID == coefficientIDMaxHigh {
		g.currentID = 0
	}

	result := g.currentID
	if g.currentID <= coefficientIDMaxLow {
		atomic.AddInt64(&g.nLowIDs, 1)
	} else {
		atomic.AddInt64(&g.nHighIDs, 1)
	}
	g.currentID++

	return result
}

func (g *Graph) dropID(id CoefficientID) {
	if id <= coefficientIDMaxLow {
		atomic.AddInt64(&g.nLowIDs, -1)
	} else {
		atomic.AddInt64(&g.nHighIDs, -1)
	}
}

// ensure returns the component's pivot, lazily loading it via Loader on
// first access. Reports ok=false if the loader found nothing (the
// component has no row, e.g. out of range).
func (g *Graph) ensure(c integral.Component) (*pivot, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if p, ok := g.components[c]; ok {
		return p, true
	}

	l, meta, err := g.loader(c)
	if err != nil {
		g.log.WithError(err).WithField("component", c).Error("pivotgraph: failed to load pivot")
		return nil, false
	}
	if len(l) == 0 {
		return nil, false
	}

	p := &pivot{meta: meta, refs: make([]reference, len(l))}
	for j, entry := range l {
		key := CoefficientKey{Component: c, UID: g.generateID()}
		coeff := g.coeffMgr.New(key)
		coeff.Load(entry.Coefficient)
		p.refs[j] = reference{
			head:        entry.Head,
			coefficient: coeff,
			numeric:     operand.NewConstant(entry.Coefficient),
		}
	}
	g.components[c] = p

	return p, true
}

// Meta returns the component's metadata, loading it if necessary.
func (g *Graph) Meta(c integral.Component) (Meta, bool) {
	p, ok := g.ensure(c)
	if !ok {
		return Meta{}, false
	}
	return p.meta, true
}

// SetMeta overwrites the component's metadata in place.
func (g *Graph) SetMeta(c integral.Component, meta Meta) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p, ok := g.components[c]; ok {
		p.meta = meta
	}
}

// Destroy terminates every resident pivot's references, saves every
// resident pivot, and releases the graph's own constant operand.
func (g *Graph) Destroy() {
	g.mu.Lock()
	components := make([]integral.Component, 0, len(g.components))
	for c := range g.components {
		components = append(components, c)
	}
	g.mu.Unlock()

	for _, c := range components {
		g.terminateAll(c)
	}
	for _, c := range components {
		g.Save(c)
	}

	g.one.Unref()
}
