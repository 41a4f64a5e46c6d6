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

package policy

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/ManDay/quicksolve/algebra"
	"github.com/ManDay/quicksolve/cache"
	"github.com/ManDay/quicksolve/coefficient"
	"github.com/ManDay/quicksolve/integral"
	"github.com/ManDay/quicksolve/operand"
	"github.com/ManDay/quicksolve/pivotgraph"
	"github.com/ManDay/quicksolve/reflist"
	"github.com/stretchr/testify/require"
)

type numericFactory struct{}

func (numericFactory) NewEvaluator() (algebra.Evaluator, error) {
	return algebra.NewNumericEvaluator(), nil
}

func newTestGraph(t *testing.T, rows map[integral.Component]reflist.List, metas map[integral.Component]pivotgraph.Meta) *pivotgraph.Graph {
	t.Helper()

	aef, err := operand.New(2, numericFactory{}, nil)
	require.NoError(t, err)
	t.Cleanup(aef.Destroy)

	aefNumeric, err := operand.New(2, numericFactory{}, nil)
	require.NoError(t, err)
	t.Cleanup(aefNumeric.Destroy)

	loader := func(c integral.Component) (reflist.List, pivotgraph.Meta, error) {
		return rows[c], metas[c], nil
	}
	saver := func(c integral.Component, l reflist.List, meta pivotgraph.Meta) error {
		return nil
	}
	coeffLoader := func(term *operand.Terminal, id cache.Identifier) error {
		term.Load(coefficient.Zero())
		return nil
	}
	coeffSaver := func(c coefficient.Coefficient, id cache.Identifier) error {
		return nil
	}

	g := pivotgraph.New(aef, aefNumeric, loader, saver, coeffLoader, coeffSaver, nil, 1<<20, nil)
	t.Cleanup(g.Destroy)
	return g
}

// A single-step system: target A relays through an already-solved pivot
// B (a bare self-term) and then normalizes its own remaining self-term.
func TestCKSSolveEliminatesThroughSolvedPivot(t *testing.T) {
	const a, b integral.Component = 0, 1

	rows := map[integral.Component]reflist.List{
		a: {
			{Head: b, Coefficient: coefficient.FromString("2")},
			{Head: a, Coefficient: coefficient.FromString("3")},
		},
		b: {
			{Head: b, Coefficient: coefficient.FromString("5")},
		},
	}
	metas := map[integral.Component]pivotgraph.Meta{
		a: {Order: 1},
		b: {Order: 0, Solved: true},
	}

	g := newTestGraph(t, rows, metas)
	p := NewCKS(nil)

	var terminate atomic.Bool
	err := p.Solve(context.Background(), g, a, &terminate)
	require.NoError(t, err)

	meta, ok := g.Meta(a)
	require.True(t, ok)
	require.True(t, meta.Solved)
	require.Equal(t, uint16(0), meta.Consideration)
}

// A pivot whose only reference is to itself with a zero coefficient can
// never normalize and must exhaust its despair budget. eliminate is
// called directly, already at the maximum despair level, so the test
// doesn't have to walk every escalation step to observe the failure.
func TestCKSSolveExhaustsDespairOnZeroSelfCoefficient(t *testing.T) {
	const a integral.Component = 0

	rows := map[integral.Component]reflist.List{
		a: {
			{Head: a, Coefficient: coefficient.Zero()},
		},
	}
	metas := map[integral.Component]pivotgraph.Meta{
		a: {Order: 0},
	}

	g := newTestGraph(t, rows, metas)
	p := NewCKS(nil)

	var terminate atomic.Bool
	err := p.eliminate(context.Background(), g, a, pivotgraph.MaxDespair, &terminate)
	require.Error(t, err)
}

// Solve must return promptly, without error, once terminate is set.
func TestCKSSolveHonorsTerminationFlag(t *testing.T) {
	const a integral.Component = 0

	rows := map[integral.Component]reflist.List{
		a: {
			{Head: a, Coefficient: coefficient.FromString("1")},
		},
	}
	metas := map[integral.Component]pivotgraph.Meta{
		a: {Order: 0},
	}

	g := newTestGraph(t, rows, metas)
	p := NewCKS(nil)

	var terminate atomic.Bool
	terminate.Store(true)

	err := p.Solve(context.Background(), g, a, &terminate)
	require.NoError(t, err)
}
