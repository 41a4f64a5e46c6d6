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
	"github.com/ManDay/quicksolve/integral"
	"github.com/ManDay/quicksolve/operand"
	"github.com/ManDay/quicksolve/reflist"
)

// terminateAll forces every reference on component's row to a Terminal,
// on both the coefficient and numeric sides.
func (g *Graph) terminateAll(component integral.Component) {
	n := g.NRefs(component)
	for j := 0; j < n; j++ {
		g.TerminateNth(component, j, false)
		g.TerminateNth(component, j, true)
	}
}

// Acquire terminates and pins every reference on component's row, drops
// any that evaluated to zero, and returns the surviving terms. Each
// returned term stays pinned in memory until Release is called.
func (g *Graph) Acquire(component integral.Component) reflist.List {
	p, ok := g.ensure(component)
	if !ok {
		return nil
	}

	g.terminateAll(component)

	g.mu.Lock()
	defer g.mu.Unlock()

	kept := make([]reference, 0, len(p.refs))
	var result reflist.List

	for _, r := range p.refs {
		term := r.coefficient.(*operand.Terminal)
		numericTerm := r.numeric.(*operand.Terminal)

		c, err := g.coeffMgr.Acquire(term)
		if err != nil {
			g.log.WithError(err).Error("pivotgraph: failed to acquire coefficient")
			continue
		}
		if _, err := numericTerm.Wait(); err != nil {
			g.log.WithError(err).Error("pivotgraph: failed to evaluate numeric shadow")
			g.coeffMgr.Release(term)
			term.Unref()
			numericTerm.Unref()
			continue
		}

		if c.IsZero() {
			g.coeffMgr.Release(term)
			term.Unref()
			numericTerm.Unref()
			continue
		}

		kept = append(kept, r)
		result = append(result, reflist.Entry{Head: r.head, Coefficient: c})
	}

	p.refs = kept
	return result
}

// Release unpins every reference on component's row from the coefficient
// cache (the counterpart to Acquire).
func (g *Graph) Release(component integral.Component) {
	g.mu.Lock()
	p, ok := g.components[component]
	var terms []*operand.Terminal
	if ok {
		terms = make([]*operand.Terminal, 0, len(p.refs))
		for _, r := range p.refs {
			terms = append(terms, r.coefficient.(*operand.Terminal))
		}
	}
	g.mu.Unlock()

	for _, t := range terms {
		g.coeffMgr.Release(t)
	}
}

// Save acquires component's row and hands it, together with its
// metadata, to the Graph's Saver, then releases it back to the cache.
func (g *Graph) Save(component integral.Component) {
	l := g.Acquire(component)
	if l == nil {
		return
	}

	meta, _ := g.Meta(component)
	if err := g.saver(component, l, meta); err != nil {
		g.log.WithError(err).WithField("component", component).Error("pivotgraph: failed to save pivot")
	}

	g.Release(component)
}
