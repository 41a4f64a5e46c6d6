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

package integral

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseStringRoundTrip(t *testing.T) {
	cases := []string{
		"PR0()",
		"PR12(1,-2,3)",
		"PR4(0,0,0,-1)",
	}

	for _, s := range cases {
		i, err := ParseString(s)
		require.NoError(t, err)
		require.Equal(t, s, i.String())
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	i := New(7, []Power{1, -2, 3, 0})

	data, err := i.MarshalBinary()
	require.NoError(t, err)

	var got Integral
	require.NoError(t, got.UnmarshalBinary(data))
	require.True(t, i.Equal(got))
}

func TestEqual(t *testing.T) {
	a := New(1, []Power{1, 2})
	b := New(1, []Power{1, 2})
	c := New(1, []Power{1, 3})
	d := New(2, []Power{1, 2})

	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
	require.False(t, a.Equal(d))
}
