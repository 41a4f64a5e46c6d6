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

// Package coefficient holds the opaque symbolic value type that flows
// through the evaluator and the pivot graph. A Coefficient is an immutable
// textual expression (e.g. "ep*x/5+2") produced and consumed by the
// external computer-algebra helper; this package never interprets it.
package coefficient

import "bytes"

// Coefficient is an immutable byte-blob symbolic expression.
type Coefficient struct {
	data []byte
}

// New wraps data as a Coefficient. The caller's slice is copied so the
// result is safe to retain independently of the source.
func New(data []byte) Coefficient {
	cp := make([]byte, len(data))
	copy(cp, data)
	return Coefficient{data: cp}
}

// FromString wraps a textual coefficient.
func FromString(s string) Coefficient {
	return New([]byte(s))
}

// Zero is the additive identity, represented the way the algebra helper
// is expected to normalise it.
func Zero() Coefficient { return FromString("0") }

// One is the multiplicative identity.
func One() Coefficient { return FromString("1") }

// Clone returns an independent copy of the coefficient.
func (c Coefficient) Clone() Coefficient {
	return New(c.data)
}

// Bytes exposes the underlying representation without a copy. Callers must
// not mutate the result.
func (c Coefficient) Bytes() []byte {
	return c.data
}

// String renders the coefficient's textual form.
func (c Coefficient) String() string {
	return string(c.data)
}

// IsZero reports whether the coefficient is the literal additive identity.
//
// This is a byte-content test, not symbolic simplification: the CAS helper
// is relied upon to normalise zero expressions to the single digit "0"
// (mirrors the original's qs_coefficient_is_zero, which is a literal
// string compare against the helper's canonical zero).
func (c Coefficient) IsZero() bool {
	return bytes.Equal(c.data, []byte("0"))
}

// IsOne reports whether the coefficient is the literal multiplicative
// identity.
func (c Coefficient) IsOne() bool {
	return bytes.Equal(c.data, []byte("1"))
}

// Equal compares the underlying bytes.
func (c Coefficient) Equal(other Coefficient) bool {
	return bytes.Equal(c.data, other.data)
}

// Size is the coefficient's footprint in bytes, used by the bounded
// cache to track memory usage.
func (c Coefficient) Size() int {
	return len(c.data)
}
