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

package pivotgraph

import (
	"github.com/ManDay/quicksolve/algebra"
	"github.com/ManDay/quicksolve/integral"
	"github.com/ManDay/quicksolve/metrics"
	"github.com/ManDay/quicksolve/operand"
)

// NRefs returns the number of references on tail's row.
func (g *Graph) NRefs(tail integral.Component) int {
	p, ok := g.ensure(tail)
	if !ok {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(p.refs)
}

// HeadNth returns the head component of tail's nth reference.
func (g *Graph) HeadNth(tail integral.Component, n int) integral.Component {
	p, _ := g.ensure(tail)
	g.mu.Lock()
	defer g.mu.Unlock()
	return p.refs[n].head
}

// OperandNth returns tail's nth reference's coefficient (or numeric
// shadow, if numeric is true) without forcing it to a Terminal.
func (g *Graph) OperandNth(tail integral.Component, n int, numeric bool) operand.Operand {
	p, _ := g.ensure(tail)
	g.mu.Lock()
	defer g.mu.Unlock()
	if numeric {
		return p.refs[n].numeric
	}
	return p.refs[n].coefficient
}

// TerminateNth forces tail's nth reference to a Terminal, baking it on
// the appropriate AEF if it is still an unbaked Intermediate, and caches
// the result back onto the reference. operand.Terminate always hands back
// a freshly held reference, so the reference's previous operand handle is
// unref'd once it is superseded.
func (g *Graph) TerminateNth(tail integral.Component, n int, numeric bool) *operand.Terminal {
	p, _ := g.ensure(tail)

	g.mu.Lock()
	defer g.mu.Unlock()

	return g.terminateNthLocked(p, tail, n, numeric)
}

// TerminateHead forces to a Terminal the reference on tail's row pointing
// to head, locating it by head value rather than index — mirroring the
// original's qs_pivot_graph_terminate, which an elimination policy uses
// both to probe a candidate head and to terminate a pivot's own
// self-reference. Reports ok=false if tail has no such reference.
func (g *Graph) TerminateHead(tail, head integral.Component, numeric bool) (*operand.Terminal, bool) {
	p, ok := g.ensure(tail)
	if !ok {
		return nil, false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	idx := -1
	for j, r := range p.refs {
		if r.head == head {
			idx = j
			break
		}
	}
	if idx < 0 {
		return nil, false
	}

	return g.terminateNthLocked(p, tail, idx, numeric), true
}

// terminateNthLocked is TerminateNth's body, assuming g.mu is already held.
func (g *Graph) terminateNthLocked(p *pivot, tail integral.Component, n int, numeric bool) *operand.Terminal {
	if numeric {
		old := p.refs[n].numeric
		t := operand.Terminate(g.aefNumeric, old)
		old.Unref()
		p.refs[n].numeric = t
		return t
	}

	old := p.refs[n].coefficient
	t := operand.Terminate(g.aef, old)
	old.Unref()
	// Track only a freshly baked Terminal: one that was already a
	// Terminal (operand.Terminate's pass-through case) is either already
	// tracked under its original id, or — like the graph's shared "one"
	// constant — deliberately untracked.
	if operand.Operand(t) != old {
		g.coeffMgr.Track(t, CoefficientKey{Component: tail, UID: g.generateID()})
	}
	p.refs[n].coefficient = t
	return t
}

// DeleteNth removes tail's nth reference (swap-with-last).
func (g *Graph) DeleteNth(tail integral.Component, n int) {
	p, _ := g.ensure(tail)
	g.mu.Lock()
	defer g.mu.Unlock()
	last := len(p.refs) - 1
	p.refs[n] = p.refs[last]
	p.refs = p.refs[:last]
}

// Relay substitutes head's (already-normalized) row into tail's
// reference to head: every limb of head's row becomes a new reference
// on tail, scaled by tail's coefficient on head. Reports whether a
// matching reference was found.
func (g *Graph) Relay(tail, head integral.Component) bool {
	tailPivot, _ := g.ensure(tail)
	headPivot, _ := g.ensure(head)

	g.mu.Lock()
	defer g.mu.Unlock()

	idx := -1
	for j, r := range tailPivot.refs {
		if r.head == head {
			idx = j
			break
		}
	}
	if idx < 0 {
		return false
	}

	oldCoeff := tailPivot.refs[idx].coefficient
	base := operand.Terminate(g.aef, oldCoeff)
	if operand.Operand(base) != oldCoeff {
		g.coeffMgr.Track(base, CoefficientKey{Component: tail, UID: g.generateID()})
	}
	oldCoeff.Unref()

	oldNumeric := tailPivot.refs[idx].numeric
	baseNumeric := operand.Terminate(g.aefNumeric, oldNumeric)
	oldNumeric.Unref()

	// Drop the relayed reference itself (swap with last).
	last := len(tailPivot.refs) - 1
	tailPivot.refs[idx] = tailPivot.refs[last]
	tailPivot.refs = tailPivot.refs[:last]

	for k, limb := range headPivot.refs {
		if limb.head == head {
			continue
		}

		// Terminate and cache the limb in place on head's own row (not
		// just locally): the same Intermediate may never be baked twice,
		// so without writing the result back, a second tail relaying
		// through this head would panic.
		oldLimbCoeff := headPivot.refs[k].coefficient
		limbCoeff := operand.Terminate(g.aef, oldLimbCoeff)
		if operand.Operand(limbCoeff) != oldLimbCoeff {
			g.coeffMgr.Track(limbCoeff, CoefficientKey{Component: head, UID: g.generateID()})
		}
		oldLimbCoeff.Unref()
		headPivot.refs[k].coefficient = limbCoeff

		oldLimbNumeric := headPivot.refs[k].numeric
		limbNumeric := operand.Terminate(g.aefNumeric, oldLimbNumeric)
		oldLimbNumeric.Unref()
		headPivot.refs[k].numeric = limbNumeric

		tailPivot.refs = append(tailPivot.refs, reference{
			head:        limb.head,
			coefficient: operand.Link(algebra.Mul, limbCoeff, base),
			numeric:     operand.Link(algebra.Mul, limbNumeric, baseNumeric),
		})
	}

	base.Unref()
	baseNumeric.Unref()

	return true
}

// Collect merges every reference from tail to head into the first one
// found, summing their coefficients.
func (g *Graph) Collect(tail, head integral.Component) {
	p, _ := g.ensure(tail)

	g.mu.Lock()
	defer g.mu.Unlock()

	var operands, numerics []operand.Operand
	var kept []reference
	firstIdx := -1

	for _, r := range p.refs {
		if r.head == head {
			if firstIdx < 0 {
				firstIdx = len(kept)
				kept = append(kept, r)
			}
			operands = append(operands, r.coefficient)
			numerics = append(numerics, r.numeric)
		} else {
			kept = append(kept, r)
		}
	}

	if len(operands) > 1 {
		kept[firstIdx].coefficient = operand.Link(algebra.Add, operands...)
		kept[firstIdx].numeric = operand.Link(algebra.Add, numerics...)
		for _, o := range operands {
			o.Unref()
		}
		for _, o := range numerics {
			o.Unref()
		}
	}

	p.refs = kept
}

// CollectAll collects every distinct duplicate head on tail's row.
func (g *Graph) CollectAll(tail integral.Component) {
	seen := make(map[integral.Component]bool)
	p, ok := g.ensure(tail)
	g.mu.Lock()
	var heads []integral.Component
	if ok {
		for _, r := range p.refs {
			if !seen[r.head] {
				seen[r.head] = true
				heads = append(heads, r.head)
			}
		}
	}
	g.mu.Unlock()

	for _, h := range heads {
		g.Collect(tail, h)
	}
}

// Normalize divides every reference on target's row by minus its
// self-coefficient, so the row reads -X + ... = 0. A single-reference
// row (the self term alone) is left untouched: its value is irrelevant
// and will never be used again once Relay kills the associated term.
func (g *Graph) Normalize(target integral.Component) {
	p, _ := g.ensure(target)

	g.mu.Lock()
	defer g.mu.Unlock()

	if len(p.refs) == 1 {
		return
	}

	selfIdx := -1
	for j, r := range p.refs {
		if r.head == target {
			selfIdx = j
			break
		}
	}
	if selfIdx < 0 {
		return
	}

	self := operand.Bake(g.aef, algebra.Sub, p.refs[selfIdx].coefficient)
	g.coeffMgr.Track(self, CoefficientKey{Component: target, UID: g.generateID()})
	p.refs[selfIdx].coefficient.Unref()

	selfNumeric := operand.Bake(g.aefNumeric, algebra.Sub, p.refs[selfIdx].numeric)
	p.refs[selfIdx].numeric.Unref()

	for k := range p.refs {
		if p.refs[k].head == target {
			p.refs[k].coefficient = g.one.Ref()
			p.refs[k].numeric = g.one.Ref()
			continue
		}
		newCoeff := operand.Link(algebra.Div, p.refs[k].coefficient, self)
		p.refs[k].coefficient.Unref()
		p.refs[k].coefficient = newCoeff

		newNumeric := operand.Link(algebra.Div, p.refs[k].numeric, selfNumeric)
		p.refs[k].numeric.Unref()
		p.refs[k].numeric = newNumeric
	}

	self.Unref()
	selfNumeric.Unref()

	metrics.GraphEliminations.Inc()
}
