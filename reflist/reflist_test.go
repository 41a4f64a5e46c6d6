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

package reflist

import (
	"testing"

	"github.com/ManDay/quicksolve/coefficient"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	l := List{
		{Head: 0, Coefficient: coefficient.FromString("ep*x/5+2")},
		{Head: 1, Coefficient: coefficient.FromString("-1")},
		{Head: 2, Coefficient: coefficient.FromString("0")},
	}

	data, err := l.MarshalBinary()
	require.NoError(t, err)

	var got List
	require.NoError(t, got.UnmarshalBinary(data))
	require.Len(t, got, 3)
	for j := range l {
		require.Equal(t, l[j].Head, got[j].Head)
		require.True(t, l[j].Coefficient.Equal(got[j].Coefficient))
	}
}

func TestRoundTripEmpty(t *testing.T) {
	var l List
	data, err := l.MarshalBinary()
	require.NoError(t, err)
	require.Empty(t, data)

	var got List
	require.NoError(t, got.UnmarshalBinary(data))
	require.Empty(t, got)
}

func TestIndexOf(t *testing.T) {
	l := List{
		{Head: 5, Coefficient: coefficient.One()},
		{Head: 9, Coefficient: coefficient.Zero()},
	}
	require.Equal(t, 1, l.IndexOf(9))
	require.Equal(t, -1, l.IndexOf(3))
}
