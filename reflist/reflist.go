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

// Package reflist holds the on-disk and in-memory representation of one
// row of the linear system: an ordered list of (head component,
// coefficient) terms.
package reflist

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ManDay/quicksolve/coefficient"
	"github.com/ManDay/quicksolve/integral"
)

// Entry is one term of a row: `coeff * head`.
type Entry struct {
	Head        integral.Component
	Coefficient coefficient.Coefficient
}

// List is an ordered row. Each head appears at most once after a collect,
// and a self-term (Head == the row's own tail) exists once the row has
// received at least one substitution.
type List []Entry

// IndexOf returns the index of the first entry with the given head, or -1.
func (l List) IndexOf(head integral.Component) int {
	for j, e := range l {
		if e.Head == head {
			return j
		}
	}
	return -1
}

// MarshalBinary encodes the list as a flat record:
//
//	record := term*
//	term   := u32 int_len, integral_bytes, u32 coeff_len, coeff_bytes
//
// little-endian, no count prefix — the record terminates at the buffer end.
func (l List) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	for _, e := range l {
		integralBytes, err := encodeHead(e.Head)
		if err != nil {
			return nil, err
		}
		coeffBytes := e.Coefficient.Bytes()

		if err := binary.Write(&buf, binary.LittleEndian, uint32(len(integralBytes))); err != nil {
			return nil, err
		}
		buf.Write(integralBytes)

		if err := binary.Write(&buf, binary.LittleEndian, uint32(len(coeffBytes))); err != nil {
			return nil, err
		}
		buf.Write(coeffBytes)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary is the inverse of MarshalBinary.
func (l *List) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)
	var result List

	for r.Len() > 0 {
		var intLen uint32
		if err := binary.Read(r, binary.LittleEndian, &intLen); err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
		intBytes := make([]byte, intLen)
		if _, err := io.ReadFull(r, intBytes); err != nil {
			return err
		}
		head, err := decodeHead(intBytes)
		if err != nil {
			return err
		}

		var coeffLen uint32
		if err := binary.Read(r, binary.LittleEndian, &coeffLen); err != nil {
			return err
		}
		coeffBytes := make([]byte, coeffLen)
		if _, err := io.ReadFull(r, coeffBytes); err != nil {
			return err
		}

		result = append(result, Entry{Head: head, Coefficient: coefficient.New(coeffBytes)})
	}

	*l = result
	return nil
}

// encodeHead/decodeHead store the component id as a raw little-endian u32;
// the wire format's "integral_bytes" slot is the component id rather than
// the full Integral, since reflist entries are always scoped to one
// integral manager run (component ids are interned once per run).
func encodeHead(h integral.Component) ([]byte, error) {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(h))
	return buf, nil
}

func decodeHead(data []byte) (integral.Component, error) {
	if len(data) != 4 {
		return 0, fmt.Errorf("reflist: malformed head, want 4 bytes got %d", len(data))
	}
	return integral.Component(binary.LittleEndian.Uint32(data)), nil
}
