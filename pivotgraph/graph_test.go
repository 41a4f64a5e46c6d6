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
	"sync"
	"testing"

	"github.com/ManDay/quicksolve/algebra"
	"github.com/ManDay/quicksolve/cache"
	"github.com/ManDay/quicksolve/coefficient"
	"github.com/ManDay/quicksolve/integral"
	"github.com/ManDay/quicksolve/operand"
	"github.com/ManDay/quicksolve/reflist"
	"github.com/stretchr/testify/require"
)

type numericFactory struct{}

func (numericFactory) NewEvaluator() (algebra.Evaluator, error) {
	return algebra.NewNumericEvaluator(), nil
}

// memoryStore is a trivial Loader/Saver backed by in-memory maps, standing
// in for the integral manager's persistent stores.
type memoryStore struct {
	mu    sync.Mutex
	rows  map[integral.Component]reflist.List
	metas map[integral.Component]Meta
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		rows:  make(map[integral.Component]reflist.List),
		metas: make(map[integral.Component]Meta),
	}
}

func (s *memoryStore) load(c integral.Component) (reflist.List, Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[c], s.metas[c], nil
}

func (s *memoryStore) save(c integral.Component, l reflist.List, meta Meta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[c] = l
	s.metas[c] = meta
	return nil
}

// coeffBackingStore is a trivial cache.Loader/Saver/Discarder triple
// backed by an in-memory map, standing in for the bounded cache's
// persistent spill target.
func coeffBackingStore() (cache.Loader, cache.Saver, cache.Discarder) {
	var mu sync.Mutex
	store := make(map[CoefficientKey]coefficient.Coefficient)

	loader := func(t *operand.Terminal, id cache.Identifier) error {
		mu.Lock()
		c := store[id.(CoefficientKey)]
		mu.Unlock()
		t.Load(c)
		return nil
	}
	saver := func(c coefficient.Coefficient, id cache.Identifier) error {
		mu.Lock()
		store[id.(CoefficientKey)] = c
		mu.Unlock()
		return nil
	}
	discarder := func(id cache.Identifier) {
		mu.Lock()
		delete(store, id.(CoefficientKey))
		mu.Unlock()
	}
	return loader, saver, discarder
}

func newTestGraph(t *testing.T, ms *memoryStore) *Graph {
	t.Helper()

	aef, err := operand.New(2, numericFactory{}, nil)
	require.NoError(t, err)
	t.Cleanup(aef.Destroy)

	aefNumeric, err := operand.New(2, numericFactory{}, nil)
	require.NoError(t, err)
	t.Cleanup(aefNumeric.Destroy)

	loader, saver, discarder := coeffBackingStore()
	g := New(aef, aefNumeric, ms.load, ms.save, loader, saver, discarder, 0, nil)
	t.Cleanup(g.Destroy)
	return g
}

func entry(head integral.Component, coeff string) reflist.Entry {
	return reflist.Entry{Head: head, Coefficient: coefficient.FromString(coeff)}
}

func TestNRefsHeadNthRoundTrip(t *testing.T) {
	const tail integral.Component = 1

	ms := newMemoryStore()
	ms.rows[tail] = reflist.List{entry(tail, "1"), entry(2, "3")}

	g := newTestGraph(t, ms)

	require.Equal(t, 2, g.NRefs(tail))
	require.Equal(t, tail, g.HeadNth(tail, 0))
	require.Equal(t, integral.Component(2), g.HeadNth(tail, 1))
}

func TestAcquireDropsZeroCoefficientTerms(t *testing.T) {
	const tail integral.Component = 1

	ms := newMemoryStore()
	ms.rows[tail] = reflist.List{
		entry(tail, "1"),
		entry(2, "0"),
		entry(3, "5"),
	}

	g := newTestGraph(t, ms)

	row := g.Acquire(tail)
	defer g.Release(tail)

	require.Len(t, row, 2)
	heads := map[integral.Component]bool{}
	for _, e := range row {
		heads[e.Head] = true
	}
	require.True(t, heads[tail])
	require.True(t, heads[3])
	require.False(t, heads[2])
}

func TestMetaSetAndGet(t *testing.T) {
	const c integral.Component = 1

	ms := newMemoryStore()
	ms.rows[c] = reflist.List{entry(c, "1")}
	ms.metas[c] = Meta{Order: 7}

	g := newTestGraph(t, ms)

	meta, ok := g.Meta(c)
	require.True(t, ok)
	require.Equal(t, uint32(7), meta.Order)

	g.SetMeta(c, Meta{Order: 9, Solved: true})
	meta, ok = g.Meta(c)
	require.True(t, ok)
	require.Equal(t, uint32(9), meta.Order)
	require.True(t, meta.Solved)
}

func TestRelaySubstitutesHeadsLimbsIntoTail(t *testing.T) {
	const (
		tail integral.Component = 1
		head integral.Component = 2
		x    integral.Component = 30
		y    integral.Component = 31
		z    integral.Component = 99
	)

	ms := newMemoryStore()
	ms.rows[head] = reflist.List{
		entry(head, "1"), // self term, skipped by Relay
		entry(x, "5"),
		entry(y, "7"),
	}
	ms.rows[tail] = reflist.List{
		entry(head, "3"),
		entry(z, "2"), // unrelated reference, must survive untouched
	}

	g := newTestGraph(t, ms)

	require.True(t, g.Relay(tail, head))

	row := g.Acquire(tail)
	defer g.Release(tail)

	byHead := make(map[integral.Component]string)
	for _, e := range row {
		byHead[e.Head] = e.Coefficient.String()
	}

	_, stillPresent := byHead[head]
	require.False(t, stillPresent, "the relayed reference to head must be dropped")
	require.Equal(t, "2", byHead[z])
	require.Equal(t, "15", byHead[x]) // 5 * 3
	require.Equal(t, "21", byHead[y]) // 7 * 3
}

func TestRelayReportsMissingReference(t *testing.T) {
	const (
		tail integral.Component = 1
		head integral.Component = 2
	)

	ms := newMemoryStore()
	ms.rows[tail] = reflist.List{entry(tail, "1")}
	ms.rows[head] = reflist.List{entry(head, "1")}

	g := newTestGraph(t, ms)

	require.False(t, g.Relay(tail, head))
}

func TestCollectMergesDuplicateHeads(t *testing.T) {
	const (
		tail integral.Component = 1
		y    integral.Component = 30
		zed  integral.Component = 31
	)

	ms := newMemoryStore()
	ms.rows[tail] = reflist.List{
		entry(y, "3"),
		entry(zed, "10"),
		entry(y, "4"),
	}

	g := newTestGraph(t, ms)

	g.Collect(tail, y)

	row := g.Acquire(tail)
	defer g.Release(tail)

	require.Len(t, row, 2)
	byHead := make(map[integral.Component]string)
	for _, e := range row {
		byHead[e.Head] = e.Coefficient.String()
	}
	require.Equal(t, "7", byHead[y]) // 3 + 4
	require.Equal(t, "10", byHead[zed])
}

func TestCollectAllMergesEveryDuplicateHead(t *testing.T) {
	const (
		tail integral.Component = 1
		y    integral.Component = 30
		zed  integral.Component = 31
	)

	ms := newMemoryStore()
	ms.rows[tail] = reflist.List{
		entry(y, "1"),
		entry(zed, "2"),
		entry(y, "1"),
		entry(zed, "3"),
	}

	g := newTestGraph(t, ms)

	g.CollectAll(tail)

	row := g.Acquire(tail)
	defer g.Release(tail)

	require.Len(t, row, 2)
	byHead := make(map[integral.Component]string)
	for _, e := range row {
		byHead[e.Head] = e.Coefficient.String()
	}
	require.Equal(t, "2", byHead[y])
	require.Equal(t, "5", byHead[zed])
}

func TestNormalizeDividesRowByMinusSelfCoefficient(t *testing.T) {
	const (
		target integral.Component = 1
		x      integral.Component = 30
	)

	ms := newMemoryStore()
	ms.rows[target] = reflist.List{
		entry(target, "-4"),
		entry(x, "8"),
	}

	g := newTestGraph(t, ms)

	g.Normalize(target)

	row := g.Acquire(target)
	defer g.Release(target)

	byHead := make(map[integral.Component]string)
	for _, e := range row {
		byHead[e.Head] = e.Coefficient.String()
	}
	require.Equal(t, "1", byHead[target])
	require.Equal(t, "2", byHead[x]) // 8 / 4
}

func TestNormalizeLeavesSingleReferenceRowUntouched(t *testing.T) {
	const target integral.Component = 1

	ms := newMemoryStore()
	ms.rows[target] = reflist.List{entry(target, "5")}

	g := newTestGraph(t, ms)

	g.Normalize(target)

	row := g.Acquire(target)
	defer g.Release(target)

	require.Len(t, row, 1)
	require.Equal(t, "5", row[0].Coefficient.String())
}

func TestDestroySavesResidentPivots(t *testing.T) {
	const tail integral.Component = 1

	ms := newMemoryStore()
	ms.rows[tail] = reflist.List{entry(tail, "1"), entry(2, "3")}
	ms.metas[tail] = Meta{Order: 4}

	aef, err := operand.New(1, numericFactory{}, nil)
	require.NoError(t, err)
	aefNumeric, err := operand.New(1, numericFactory{}, nil)
	require.NoError(t, err)

	loader, saver, discarder := coeffBackingStore()
	g := New(aef, aefNumeric, ms.load, ms.save, loader, saver, discarder, 0, nil)

	// Force the pivot into residency before destroying the graph.
	_, ok := g.Meta(tail)
	require.True(t, ok)

	g.Destroy()
	aef.Destroy()
	aefNumeric.Destroy()

	saved := ms.rows[tail]
	require.Len(t, saved, 2)
	require.Equal(t, uint32(4), ms.metas[tail].Order)
}
