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

package algebra

import (
	"testing"

	"github.com/ManDay/quicksolve/coefficient"
	"github.com/stretchr/testify/require"
)

func TestNumericEvaluatorArithmetic(t *testing.T) {
	e := NewNumericEvaluator()

	sum, err := e.Evaluate(Add, []coefficient.Coefficient{
		coefficient.FromString("1/2"),
		coefficient.FromString("1/3"),
	})
	require.NoError(t, err)
	require.Equal(t, "5/6", sum.String())

	prod, err := e.Evaluate(Mul, []coefficient.Coefficient{
		coefficient.FromString("2"),
		coefficient.FromString("3"),
	})
	require.NoError(t, err)
	require.Equal(t, "6", prod.String())
}

func TestNumericEvaluatorDivisionByZero(t *testing.T) {
	e := NewNumericEvaluator()
	_, err := e.Evaluate(Div, []coefficient.Coefficient{
		coefficient.FromString("1"),
		coefficient.FromString("0"),
	})
	require.Error(t, err)
}

func TestRenderExpression(t *testing.T) {
	got := renderExpression(Add, []coefficient.Coefficient{
		coefficient.FromString("a"),
		coefficient.FromString("b"),
	})
	require.Equal(t, "(a)+(b);", got)

	got = renderExpression(Sub, []coefficient.Coefficient{coefficient.FromString("a")})
	require.Equal(t, "-(a);", got)
}
