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
	"fmt"
	"sync"

	"github.com/ManDay/quicksolve/algebra"
	"github.com/ManDay/quicksolve/coefficient"
	"github.com/ManDay/quicksolve/metrics"
	"github.com/opentracing/opentracing-go"
	"github.com/sasha-s/go-deadlock"
	"github.com/sirupsen/logrus"
)

// AEF (asynchronous expression framework) is a fixed pool of worker
// goroutines that drain a ready queue of baked Terminals, each evaluating
// one via its own algebra.Evaluator instance. Mirrors the original's
// QsAEF: one evaluator session per worker, a FIFO of operands with no
// outstanding dependencies, broadcast wakeups on push.
type AEF struct {
	mu          deadlock.Mutex
	cond        *sync.Cond
	ready       []*Terminal
	terminating bool

	wg  sync.WaitGroup
	log logrus.FieldLogger
}

// New spawns nWorkers goroutines, each owning an Evaluator obtained from
// factory. If any NewEvaluator call fails, already-spawned workers are
// stopped and the error is returned.
func New(nWorkers int, factory algebra.Factory, log logrus.FieldLogger) (*AEF, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	a := &AEF{log: log}
	a.cond = sync.NewCond(&a.mu)

	for j := 0; j < nWorkers; j++ {
		ev, err := factory.NewEvaluator()
		if err != nil {
			a.Destroy()
			return nil, fmt.Errorf("operand: spawning worker %d: %w", j, err)
		}
		a.wg.Add(1)
		go a.worker(ev)
	}

	return a, nil
}

// Destroy signals every worker to stop once its current evaluation (if
// any) finishes, and waits for them all to exit.
func (a *AEF) Destroy() {
	a.mu.Lock()
	a.terminating = true
	a.cond.Broadcast()
	a.mu.Unlock()
	a.wg.Wait()
}

func (a *AEF) pushReady(t *Terminal) {
	a.mu.Lock()
	a.ready = append(a.ready, t)
	metrics.ReadyQueueDepth.Inc()
	a.cond.Signal()
	a.mu.Unlock()
}

func (a *AEF) popReady() *Terminal {
	a.mu.Lock()
	defer a.mu.Unlock()
	for len(a.ready) == 0 && !a.terminating {
		a.cond.Wait()
	}
	if a.terminating && len(a.ready) == 0 {
		return nil
	}
	t := a.ready[0]
	a.ready = a.ready[1:]
	metrics.ReadyQueueDepth.Dec()
	return t
}

func (a *AEF) worker(ev algebra.Evaluator) {
	defer a.wg.Done()
	defer ev.Close()

	for {
		target := a.popReady()
		if target == nil {
			return
		}
		a.evaluateOne(ev, target)
	}
}

func (a *AEF) evaluateOne(ev algebra.Evaluator, target *Terminal) {
	span := opentracing.StartSpan("operand.evaluate")
	defer span.Finish()

	target.mu.Lock()
	b := target.baked
	target.mu.Unlock()

	result, err := evaluateExpression(ev, b)
	if err != nil {
		a.log.WithError(err).Error("aef: evaluation failed")
	}

	deps := target.resolve(result, err)
	metrics.EvaluationsCompleted.Inc()
	metrics.BakedTerminals.WithLabelValues(b.op.String()).Inc()

	for _, dep := range deps {
		independ(dep)
	}

	for _, o := range b.operands {
		o.Unref()
	}
}

// evaluateExpression evaluates the top-level baked expression: its
// immediate operands (each possibly an unbaked Intermediate subtree) are
// reduced to coefficients, then combined under its own operation.
func evaluateExpression(ev algebra.Evaluator, b *bakedExpression) (coefficient.Coefficient, error) {
	operands := make([]coefficient.Coefficient, len(b.operands))
	for j, o := range b.operands {
		c, err := evaluateTree(ev, o)
		if err != nil {
			return coefficient.Coefficient{}, err
		}
		operands[j] = c
	}
	return ev.Evaluate(b.op, operands)
}

// evaluateTree recursively reduces o to a single coefficient: a resolved
// Terminal contributes its value directly; an Intermediate recurses into
// its own operands and folds them with its operation. Mirrors the
// original's discoverer callback, which let the evaluator recurse through
// unbaked Intermediate operands of a just-dequeued BakedExpression.
func evaluateTree(ev algebra.Evaluator, o Operand) (coefficient.Coefficient, error) {
	if t, ok := o.asTerminal(); ok {
		t.mu.Lock()
		defer t.mu.Unlock()
		if !t.isCoefficient {
			return coefficient.Coefficient{}, fmt.Errorf("operand: dependency %p not resolved at evaluation time", t)
		}
		if t.err != nil {
			return coefficient.Coefficient{}, t.err
		}
		return t.coefficient, nil
	}

	inter := o.(*Intermediate)
	operands := make([]coefficient.Coefficient, len(inter.operands))
	for j, sub := range inter.operands {
		c, err := evaluateTree(ev, sub)
		if err != nil {
			return coefficient.Coefficient{}, err
		}
		operands[j] = c
	}
	return ev.Evaluate(inter.op, operands)
}
