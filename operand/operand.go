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

// Package operand implements the asynchronous expression framework (AEF):
// a reference-counted DAG of symbolic operations, baked into independent
// units of work and reduced by a pool of worker goroutines talking to an
// algebra.Evaluator.
//
// Two concrete Operand kinds exist. An Intermediate is an unbaked node: it
// merely records the operation and its operands, and maintains a cache of
// the Terminals its subtree ultimately depends on so that baking it is
// O(immediate operands) rather than a DAG walk. A Terminal is either a
// plain coefficient (a leaf, or the result of a finished evaluation) or a
// baked expression pending evaluation; once baked it is scheduled exactly
// once, when its last outstanding dependency finishes.
package operand

import (
	"sync/atomic"

	"github.com/ManDay/quicksolve/algebra"
	"github.com/ManDay/quicksolve/coefficient"
	"github.com/sasha-s/go-deadlock"
)

// Operand is a reference-counted node of the expression DAG: either a
// Terminal or an Intermediate.
type Operand interface {
	// Ref increments the reference count and returns the operand, so
	// that ref-and-store call sites can be written as one expression.
	Ref() Operand
	// Unref decrements the reference count, releasing the node's
	// resources (and unref'ing its own operands) once it reaches zero.
	Unref()

	tails(into *tailSet)
	asTerminal() (*Terminal, bool)
}

// tailSet is the accumulator used while computing/merging a cache of
// depended-upon Terminals (the original's TerminalList).
type tailSet struct {
	seen  map[*Terminal]bool
	order []*Terminal
}

func newTailSet() *tailSet {
	return &tailSet{seen: make(map[*Terminal]bool)}
}

func (s *tailSet) add(t *Terminal) {
	if s.seen[t] {
		return
	}
	s.seen[t] = true
	s.order = append(s.order, t)
}

// Intermediate is an unbaked expression node.
type Intermediate struct {
	refcount int32

	op       algebra.Operation
	operands []Operand

	mu        deadlock.Mutex
	tailCache *tailSet
}

// Link builds an unbaked Intermediate combining operands under op. Link
// takes a reference on each operand; the caller retains its own.
func Link(op algebra.Operation, operands ...Operand) *Intermediate {
	if len(operands) == 0 {
		panic("operand: Link requires at least one operand")
	}

	result := &Intermediate{
		op:        op,
		operands:  make([]Operand, len(operands)),
		tailCache: newTailSet(),
	}

	for j, o := range operands {
		result.operands[j] = o.Ref()
		o.tails(result.tailCache)
	}

	return result
}

func (i *Intermediate) Ref() Operand {
	atomic.AddInt32(&i.refcount, 1)
	return i
}

func (i *Intermediate) Unref() {
	if atomic.AddInt32(&i.refcount, -1) == 0 {
		for _, o := range i.operands {
			o.Unref()
		}
	}
}

func (i *Intermediate) tails(into *tailSet) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, t := range i.tailCache.order {
		into.add(t)
	}
}

func (i *Intermediate) asTerminal() (*Terminal, bool) { return nil, false }

// NewConstant wraps an already-known coefficient as a leaf Terminal.
func NewConstant(c coefficient.Coefficient) *Terminal {
	return &Terminal{refcount: 1, isCoefficient: true, coefficient: c}
}
