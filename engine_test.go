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

package quicksolve

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/ManDay/quicksolve/coefficient"
	"github.com/ManDay/quicksolve/config"
	"github.com/ManDay/quicksolve/integral"
	"github.com/ManDay/quicksolve/pivotgraph"
	"github.com/ManDay/quicksolve/reflist"
	"github.com/stretchr/testify/require"
)

// newTestEngine wires up an Engine whose CAS helper is "cat", standing in
// for the real algebra backend: no test in this package needs a
// symbolically normalised result, only that the AEF pool spawns and
// shuts down cleanly.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	e, err := New(&Config{
		Config: config.Config{
			Workers:  1,
			StoreDir: t.TempDir(),
		},
		CASCommand: "cat",
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, e.Close())
	})
	return e
}

func TestNewAssignsDistinctRunIDs(t *testing.T) {
	a := newTestEngine(t)
	b := newTestEngine(t)

	require.NotEmpty(t, a.RunID())
	require.NotEmpty(t, b.RunID())
	require.NotEqual(t, a.RunID(), b.RunID())
}

func TestManageInternsStructurallyEqualIntegrals(t *testing.T) {
	e := newTestEngine(t)

	i := integral.New(1, []integral.Power{1, 0, -1})
	c1 := e.Manage(i)
	c2 := e.Manage(integral.New(1, []integral.Power{1, 0, -1}))
	require.Equal(t, c1, c2)

	peeked, err := e.Peek(c1)
	require.NoError(t, err)
	require.True(t, peeked.Equal(i))
}

func TestCloseIsIdempotent(t *testing.T) {
	e, err := New(&Config{
		Config: config.Config{
			Workers:  1,
			StoreDir: t.TempDir(),
		},
		CASCommand: "cat",
	})
	require.NoError(t, err)

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
}

// With terminate already set, Solve must return promptly without error
// even though the target's row has not been eliminated.
func TestSolveHonorsTerminationFlag(t *testing.T) {
	e := newTestEngine(t)

	c := e.Manage(integral.New(1, []integral.Power{0}))
	require.NoError(t, e.integrals.SaveExpression(c, reflist.List{
		{Head: c, Coefficient: coefficient.FromString("1")},
	}, pivotgraph.Meta{Order: 0}))

	var terminate atomic.Bool
	terminate.Store(true)

	err := e.Solve(context.Background(), c, &terminate)
	require.NoError(t, err)
}
