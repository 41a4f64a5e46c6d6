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

package operand

import (
	"sync/atomic"

	"github.com/ManDay/quicksolve/algebra"
	"github.com/ManDay/quicksolve/coefficient"
	"github.com/sasha-s/go-deadlock"
)

// Terminal is either a resolved coefficient (a leaf, or the outcome of a
// finished evaluation) or a baked expression awaiting evaluation. Its
// fine-grained lock guards the transition between the two states and the
// bakedExpression's dependent bookkeeping; it is taken far more often than
// any other lock in the package, hence a go-deadlock mutex standing in for
// the original's per-terminal spinlock rather than a channel-based scheme.
type Terminal struct {
	refcount int32

	mu            deadlock.Mutex
	isCoefficient bool
	coefficient   coefficient.Coefficient
	err           error
	baked         *bakedExpression

	// done is closed exactly once, when the terminal transitions to
	// holding a coefficient. nil for Terminals that are coefficients
	// from construction (NewConstant), which never need a waiter.
	done chan struct{}
}

// bakedExpression is a Terminal's pending-evaluation state: the operation
// and operands to evaluate, how many of those operands are themselves
// still pending, which AEF it will be pushed to when ready, and the
// Terminals that in turn depend on this one.
type bakedExpression struct {
	op       algebra.Operation
	operands []Operand

	dependeeCount int32 // atomic

	queue *AEF

	mu        deadlock.Mutex
	bakedDeps []*Terminal
}

func (t *Terminal) Ref() Operand {
	atomic.AddInt32(&t.refcount, 1)
	return t
}

func (t *Terminal) Unref() {
	if atomic.AddInt32(&t.refcount, -1) == 0 {
		t.mu.Lock()
		b := t.baked
		t.mu.Unlock()
		if b != nil {
			for _, o := range b.operands {
				o.Unref()
			}
		}
	}
}

func (t *Terminal) tails(into *tailSet) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.isCoefficient {
		into.add(t)
	}
}

func (t *Terminal) asTerminal() (*Terminal, bool) { return t, true }

// New returns a Terminal that is neither a coefficient nor a baked
// expression: a placeholder identifying a value that some external owner
// (the bounded cache's loader) will resolve later via Load. Mirrors the
// original's qs_operand_new, used by the terminal manager to hand out a
// handle before the backing coefficient has been fetched.
func New() *Terminal {
	return &Terminal{refcount: 1, done: make(chan struct{})}
}

// Bake combines operands under op into a new Terminal, queued for
// evaluation on queue as soon as every dependency has resolved. Bake
// takes a reference on each operand.
func Bake(queue *AEF, op algebra.Operation, operands ...Operand) *Terminal {
	if len(operands) == 0 {
		panic("operand: Bake requires at least one operand")
	}

	result := &Terminal{refcount: 1, isCoefficient: false, done: make(chan struct{})}
	b := &bakedExpression{
		op:       op,
		operands: make([]Operand, len(operands)),
		queue:    queue,
		// Held at 1 until every operand has been registered, so the
		// expression cannot be scheduled mid-construction.
		dependeeCount: 1,
	}
	result.baked = b

	for j, o := range operands {
		b.operands[j] = o.Ref()

		if tail, ok := o.asTerminal(); ok {
			addDependency(tail, result)
			continue
		}

		inter := o.(*Intermediate)
		inter.mu.Lock()
		tails := inter.tailCache
		inter.tailCache = nil
		inter.mu.Unlock()
		if tails == nil {
			panic("operand: Intermediate used as a bake operand more than once")
		}
		for _, tail := range tails.order {
			addDependency(tail, result)
		}
	}

	independ(result)

	return result
}

// Terminate converts o into a Terminal, baking it via a single-operand
// pass-through add if it is not one already. It takes a reference on o.
func Terminate(queue *AEF, o Operand) *Terminal {
	if t, ok := o.asTerminal(); ok {
		return t.Ref().(*Terminal)
	}
	return Bake(queue, algebra.Add, o)
}

// addDependency registers depender as dependent on dependee: if dependee
// has already resolved, this is a no-op (the caller's dependeeCount was
// never incremented for it); otherwise dependee's bakedDeps gains
// depender and depender's dependeeCount grows by one.
func addDependency(dependee, depender *Terminal) {
	dependee.mu.Lock()
	defer dependee.mu.Unlock()

	if dependee.isCoefficient {
		return
	}

	db := dependee.baked
	db.mu.Lock()
	db.bakedDeps = append(db.bakedDeps, depender)
	db.mu.Unlock()

	atomic.AddInt32(&depender.baked.dependeeCount, 1)
}

// independ drops t's construction-time hold on its own dependee count; if
// that was the last outstanding dependency, t is pushed onto its queue's
// ready list.
func independ(t *Terminal) {
	if atomic.AddInt32(&t.baked.dependeeCount, -1) == 0 {
		t.baked.queue.pushReady(t)
	}
}

// Wait blocks until target holds either a resolved coefficient or a
// failed evaluation, and returns whichever it settled on. Concurrent
// callers may all Wait on the same Terminal. A non-nil error means the
// evaluator that was to produce this Terminal's value failed (e.g. the
// CAS helper rejected or could not resolve the expression); callers must
// not treat the zero Coefficient returned alongside it as a real value.
func (t *Terminal) Wait() (coefficient.Coefficient, error) {
	t.mu.Lock()
	if t.isCoefficient {
		c, err := t.coefficient, t.err
		t.mu.Unlock()
		return c, err
	}
	done := t.done
	t.mu.Unlock()

	<-done

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.coefficient, t.err
}

// Load installs c as t's resolved value directly, without baking or
// evaluation, and wakes any Wait callers. Used by the integral manager /
// cache to rehydrate a Terminal whose coefficient was read back from
// persistent storage, or by a lazy placeholder's loader callback.
func (t *Terminal) Load(c coefficient.Coefficient) {
	t.mu.Lock()
	t.isCoefficient = true
	t.coefficient = c
	t.err = nil
	t.baked = nil
	done := t.done
	t.done = nil
	t.mu.Unlock()
	if done != nil {
		close(done)
	}
}

// Unload resets a resolved Terminal back to an unresolved placeholder, for
// eviction by the bounded coefficient cache. The caller must guarantee no
// other goroutine is concurrently relying on the coefficient staying put
// (i.e. it has already been released back to the cache).
func (t *Terminal) Unload() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.isCoefficient = false
	t.coefficient = coefficient.Coefficient{}
	t.err = nil
	t.baked = nil
	t.done = make(chan struct{})
}

// resolve is Load's counterpart for the worker path: it additionally
// returns the dependers to notify, while still holding no lock on exit.
// A non-nil err still resolves t (so every Wait()er unblocks), but marks
// the coefficient as unusable; Acquire treats such a Terminal as not
// holding a usable value, though IsResolved still reports it as settled,
// since it has definitively left the pending state.
func (t *Terminal) resolve(c coefficient.Coefficient, err error) []*Terminal {
	t.mu.Lock()
	b := t.baked
	t.isCoefficient = true
	t.coefficient = c
	t.err = err
	t.baked = nil
	done := t.done
	t.done = nil
	t.mu.Unlock()
	close(done)

	b.mu.Lock()
	deps := b.bakedDeps
	b.mu.Unlock()
	return deps
}

// Acquire returns t's coefficient if already resolved to a usable value,
// without blocking. Reports false both while t is still pending and if
// it resolved to an evaluation error.
func (t *Terminal) Acquire() (coefficient.Coefficient, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.isCoefficient || t.err != nil {
		return coefficient.Coefficient{}, false
	}
	return t.coefficient, true
}

// IsResolved reports whether t already holds a coefficient.
func (t *Terminal) IsResolved() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.isCoefficient
}
