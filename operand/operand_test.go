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

package operand

import (
	"testing"
	"time"

	"github.com/ManDay/quicksolve/algebra"
	"github.com/ManDay/quicksolve/coefficient"
	"github.com/stretchr/testify/require"
)

func newTestAEF(t *testing.T) *AEF {
	t.Helper()
	a, err := New(2, numericFactory{}, nil)
	require.NoError(t, err)
	t.Cleanup(a.Destroy)
	return a
}

type numericFactory struct{}

func (numericFactory) NewEvaluator() (algebra.Evaluator, error) {
	return algebra.NewNumericEvaluator(), nil
}

func TestBakeSimpleSum(t *testing.T) {
	a := newTestAEF(t)

	x := NewConstant(coefficient.FromString("2"))
	y := NewConstant(coefficient.FromString("3"))

	sum := Bake(a, algebra.Add, x, y)
	defer sum.Unref()

	c, err := sum.Wait()
	require.NoError(t, err)
	require.Equal(t, "5", c.String())
}

func TestBakeWithIntermediateOperand(t *testing.T) {
	a := newTestAEF(t)

	x := NewConstant(coefficient.FromString("2"))
	y := NewConstant(coefficient.FromString("3"))
	z := NewConstant(coefficient.FromString("4"))

	inner := Link(algebra.Mul, y, z) // 3*4 = 12, unbaked
	outer := Bake(a, algebra.Add, x, inner)
	defer outer.Unref()

	c, err := outer.Wait()
	require.NoError(t, err)
	require.Equal(t, "14", c.String())
}

func TestWaitConcurrentCallers(t *testing.T) {
	a := newTestAEF(t)

	x := NewConstant(coefficient.FromString("10"))
	y := NewConstant(coefficient.FromString("20"))
	sum := Bake(a, algebra.Add, x, y)
	defer sum.Unref()

	results := make(chan string, 4)
	for j := 0; j < 4; j++ {
		go func() {
			c, err := sum.Wait()
			require.NoError(t, err)
			results <- c.String()
		}()
	}

	for j := 0; j < 4; j++ {
		select {
		case r := <-results:
			require.Equal(t, "30", r)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for concurrent Wait callers")
		}
	}
}

func TestChainedDependency(t *testing.T) {
	a := newTestAEF(t)

	x := NewConstant(coefficient.FromString("1"))
	y := NewConstant(coefficient.FromString("2"))

	first := Bake(a, algebra.Add, x, y) // 3
	second := Bake(a, algebra.Mul, first, NewConstant(coefficient.FromString("5")))
	defer second.Unref()

	c, err := second.Wait()
	require.NoError(t, err)
	require.Equal(t, "15", c.String())
}

func TestLazyTerminalLoad(t *testing.T) {
	term := New()

	done := make(chan string, 1)
	go func() {
		c, err := term.Wait()
		require.NoError(t, err)
		done <- c.String()
	}()

	term.Load(coefficient.FromString("7"))

	select {
	case v := <-done:
		require.Equal(t, "7", v)
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not unblock after Load")
	}
}

func TestTerminateIsIdempotentForTerminal(t *testing.T) {
	a := newTestAEF(t)
	leaf := NewConstant(coefficient.FromString("9"))
	term := Terminate(a, leaf)
	defer term.Unref()
	require.Same(t, leaf, term)
	c, err := term.Wait()
	require.NoError(t, err)
	require.Equal(t, "9", c.String())
}
