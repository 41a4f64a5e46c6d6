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
	"testing"

	"github.com/ManDay/quicksolve/coefficient"
	"github.com/ManDay/quicksolve/operand"
	"github.com/stretchr/testify/require"
)

func backingStore() (Loader, Saver, Discarder, map[string]string) {
	store := make(map[string]string)
	loader := func(t *operand.Terminal, id Identifier) error {
		t.Load(coefficient.FromString(store[id.(string)]))
		return nil
	}
	saver := func(c coefficient.Coefficient, id Identifier) error {
		store[id.(string)] = c.String()
		return nil
	}
	discarder := func(id Identifier) {
		delete(store, id.(string))
	}
	return loader, saver, discarder, store
}

func TestAcquireReleaseRoundTrip(t *testing.T) {
	loader, saver, discarder, store := backingStore()
	store["x"] = "42"

	q := NewQueue(0, nil)
	m := NewManager(loader, saver, discarder, q)

	term := m.New("x")
	c, err := m.Acquire(term)
	require.NoError(t, err)
	require.Equal(t, "42", c.String())
	m.Release(term)
}

func TestEvictionSpillsAndReloads(t *testing.T) {
	loader, saver, discarder, store := backingStore()
	store["a"] = "12"
	store["b"] = "34"

	q := NewQueue(1, nil) // 1 byte limit forces eviction on every track()
	m := NewManager(loader, saver, discarder, q)

	ta := m.New("a")
	_, err := m.Acquire(ta)
	require.NoError(t, err)
	m.Release(ta) // queued, then immediately evicted since limit is tiny

	require.False(t, ta.IsResolved())
	require.Equal(t, "12", store["a"])

	// Re-acquiring reloads from the backing store.
	c, err := m.Acquire(ta)
	require.NoError(t, err)
	require.Equal(t, "12", c.String())
	m.Release(ta)

	_ = ta
	tb := m.New("b")
	c2, err := m.Acquire(tb)
	require.NoError(t, err)
	require.Equal(t, "34", c2.String())
	m.Release(tb)
}
