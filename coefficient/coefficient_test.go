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

package coefficient

import "testing"

func TestIsZeroIsOne(t *testing.T) {
	if !Zero().IsZero() {
		t.Fatal("Zero() is not IsZero()")
	}
	if !One().IsOne() {
		t.Fatal("One() is not IsOne()")
	}
	if FromString("ep*x/5+2").IsZero() {
		t.Fatal("non-zero expression reported as zero")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	c := FromString("ep")
	clone := c.Clone()
	clone.data[0] = 'x'
	if c.String() != "ep" {
		t.Fatalf("mutating clone affected original: %q", c.String())
	}
}

func TestEqual(t *testing.T) {
	a := FromString("ep*x/5+2")
	b := New([]byte("ep*x/5+2"))
	if !a.Equal(b) {
		t.Fatal("structurally identical coefficients compared unequal")
	}
	if a.Equal(FromString("ep")) {
		t.Fatal("structurally different coefficients compared equal")
	}
}
