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

// Package integral holds the identity of a single unknown in the linear
// system: a prototype tag plus an ordered list of signed powers.
package integral

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Component is the dense identity assigned to an Integral by the integral
// manager. It is never meaningful outside one run.
type Component uint32

// Power is the fixed-width exponent type. The original C source selects
// this width at compile time via QS_INTEGRAL_POWERTYPE; quicksolve fixes
// it to a signed 32-bit integer (see DESIGN.md's Open Question resolution).
type Power = int32

// Integral is the structural key identifying a row of the linear system.
type Integral struct {
	Prototype uint32
	Powers    []Power
}

// New builds an Integral from its parts, copying the power slice.
func New(prototype uint32, powers []Power) Integral {
	cp := make([]Power, len(powers))
	copy(cp, powers)
	return Integral{Prototype: prototype, Powers: cp}
}

// Equal reports structural equality: same prototype, same powers.
func (i Integral) Equal(other Integral) bool {
	if i.Prototype != other.Prototype || len(i.Powers) != len(other.Powers) {
		return false
	}
	for j := range i.Powers {
		if i.Powers[j] != other.Powers[j] {
			return false
		}
	}
	return true
}

// String renders the canonical textual form "PR<prototype>(p1,p2,...,pN)".
func (i Integral) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "PR%d(", i.Prototype)
	for j, p := range i.Powers {
		if j > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%d", p)
	}
	b.WriteByte(')')
	return b.String()
}

// grammar for the textual form, built once via participle.
type powerToken struct {
	Value string `@( "-"? Int )`
}

type integralAST struct {
	Prototype string       `"PR" @Int`
	Powers    []powerToken `"(" ( @@ ( "," @@ )* )? ")"`
}

var integralParser = participle.MustBuild[integralAST](
	participle.Lexer(integralLexer),
	participle.Elide("Whitespace"),
)

var integralLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Ident", Pattern: `PR`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Punct", Pattern: `[(),-]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// ParseString parses the canonical textual form "PR<prototype>(p1,...,pN)".
func ParseString(s string) (Integral, error) {
	s = strings.TrimSpace(s)
	ast, err := integralParser.ParseString("", s)
	if err != nil {
		return Integral{}, fmt.Errorf("parsing integral %q: %w", s, err)
	}

	prototype, err := strconv.ParseUint(ast.Prototype, 10, 32)
	if err != nil {
		return Integral{}, fmt.Errorf("parsing prototype in %q: %w", s, err)
	}

	powers := make([]Power, len(ast.Powers))
	for j, p := range ast.Powers {
		v, err := strconv.ParseInt(p.Value, 10, 32)
		if err != nil {
			return Integral{}, fmt.Errorf("parsing power %d in %q: %w", j, s, err)
		}
		powers[j] = Power(v)
	}

	return Integral{Prototype: uint32(prototype), Powers: powers}, nil
}

// MarshalBinary renders the prototype as an ASCII-prefixed "PR<id>\0" tag
// followed by the powers packed at their fixed width.
func (i Integral) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "PR%d\x00", i.Prototype)
	if err := binary.Write(&buf, binary.LittleEndian, i.Powers); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary is the inverse of MarshalBinary.
func (i *Integral) UnmarshalBinary(data []byte) error {
	nul := bytes.IndexByte(data, 0)
	if nul < 0 {
		return fmt.Errorf("integral binary form missing prototype terminator")
	}
	prefix := string(data[:nul])
	if !strings.HasPrefix(prefix, "PR") {
		return fmt.Errorf("integral binary form missing PR prefix, got %q", prefix)
	}
	prototype, err := strconv.ParseUint(prefix[2:], 10, 32)
	if err != nil {
		return fmt.Errorf("parsing prototype in binary form: %w", err)
	}

	rest := data[nul+1:]
	if len(rest)%4 != 0 {
		return fmt.Errorf("integral binary power payload not a multiple of %d bytes", 4)
	}
	powers := make([]Power, len(rest)/4)
	r := bytes.NewReader(rest)
	if err := binary.Read(r, binary.LittleEndian, &powers); err != nil {
		return err
	}

	i.Prototype = uint32(prototype)
	i.Powers = powers
	return nil
}
