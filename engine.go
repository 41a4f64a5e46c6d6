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

// Package quicksolve wires the integral manager, the symbolic and
// numeric asynchronous expression pools and the pivot graph into one
// runnable linear-system solver.
package quicksolve

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ManDay/quicksolve/algebra"
	"github.com/ManDay/quicksolve/config"
	"github.com/ManDay/quicksolve/integral"
	"github.com/ManDay/quicksolve/integralmgr"
	"github.com/ManDay/quicksolve/operand"
	"github.com/ManDay/quicksolve/pivotgraph"
	"github.com/ManDay/quicksolve/policy"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
)

// Config configures an Engine. The embedded config.Config supplies the
// run's workers/prealloc/memory-limit/symbol settings; CASCommand/CASArgs
// additionally say how to launch the external algebra helper, one
// subprocess per symbolic worker.
type Config struct {
	config.Config

	// CASCommand is the external algebra helper's executable, the
	// original's "fermat" backend. Defaults to "fermat" on $PATH.
	CASCommand string
	// CASArgs are extra arguments passed to CASCommand.
	CASArgs []string

	// Policy picks the elimination strategy; policy.NewCKS is used if
	// nil.
	Policy policy.Policy

	Log logrus.FieldLogger
}

// Engine is a quicksolve run: one integral manager, one pair of AEF
// worker pools (symbolic and numeric) and the pivot graph they drive.
type Engine struct {
	mu    sync.Mutex
	log   logrus.FieldLogger
	runID uuid.UUID

	integrals  *integralmgr.Manager
	aef        *operand.AEF
	aefNumeric *operand.AEF
	graph      *pivotgraph.Graph
	policy     policy.Policy

	closed bool
}

// New creates a new Engine with custom configuration. To create an
// Engine with the default settings use NewDefault. Should call
// Engine.Close() to finalize dependency lifecycles (the AEF pools'
// subprocess helpers and the integral manager's open stores).
func New(cfg *Config) (*Engine, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	runID := uuid.NewV4()
	log = log.WithField("run_id", runID.String())

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	opts := algebra.NewOptions()
	for symbol, value := range cfg.Symbols {
		opts.Add(symbol, value)
	}

	command := cfg.CASCommand
	if command == "" {
		command = "fermat"
	}

	symbolic := algebra.NewProcessFactory(command, cfg.CASArgs, opts, log.WithField("component", "algebra.symbolic"))
	aef, err := operand.New(workers, symbolic, log.WithField("component", "aef.symbolic"))
	if err != nil {
		return nil, errors.Wrap(err, "spawning symbolic evaluator pool")
	}

	// The numeric shadow pool evaluates the exact same expressions as the
	// symbolic pool (pivotgraph composes both in lockstep), so it needs a
	// second helper session bound to the same symbols, not a cheaper
	// rational-only stand-in: a coefficient like "ep*x/5+2" only resolves
	// to a number once ep and x are substituted by the CAS helper.
	numeric := algebra.NewProcessFactory(command, cfg.CASArgs, opts, log.WithField("component", "algebra.numeric"))
	aefNumeric, err := operand.New(workers, numeric, log.WithField("component", "aef.numeric"))
	if err != nil {
		aef.Destroy()
		return nil, errors.Wrap(err, "spawning numeric evaluator pool")
	}

	storeDir := cfg.StoreDir
	if storeDir == "" {
		storeDir = "."
	}
	integrals := integralmgr.New(storeDir, log.WithField("component", "integralmgr"))

	graph := pivotgraph.New(
		aef, aefNumeric,
		integrals.LoadExpression, integrals.SaveExpression,
		integrals.CoefficientLoader, integrals.CoefficientSaver, integrals.CoefficientDiscarder,
		cfg.MemoryLimit,
		log.WithField("component", "pivotgraph"),
	)

	pol := cfg.Policy
	if pol == nil {
		pol = policy.NewCKS(log.WithField("component", "policy.cks"))
	}

	return &Engine{
		log:        log,
		runID:      runID,
		integrals:  integrals,
		aef:        aef,
		aefNumeric: aefNumeric,
		graph:      graph,
		policy:     pol,
	}, nil
}

// NewDefault creates a new Engine with quicksolve's stock defaults: a
// single worker, the "fermat" helper on $PATH, and stores under dir.
func NewDefault(dir string) (*Engine, error) {
	return New(&Config{Config: config.Config{Workers: 1, StoreDir: dir}})
}

// Manage interns i, returning its dense Component.
func (e *Engine) Manage(i integral.Integral) integral.Component {
	return e.integrals.Manage(i)
}

// Peek returns the Integral a previously-managed Component was minted
// from.
func (e *Engine) Peek(c integral.Component) (integral.Integral, error) {
	return e.integrals.Peek(c)
}

// Solve drives target's row to a solved, normalized pivot, recursively
// eliminating whatever the configured Policy determines it depends on.
// A nil terminate behaves as if it will never be set.
func (e *Engine) Solve(ctx context.Context, target integral.Component, terminate *atomic.Bool) error {
	if terminate == nil {
		terminate = new(atomic.Bool)
	}
	return e.policy.Solve(ctx, e.graph, target, terminate)
}

// Graph exposes the underlying pivot graph, for callers (cmd/quicksolve)
// needing row-level access beyond Solve.
func (e *Engine) Graph() *pivotgraph.Graph {
	return e.graph
}

// RunID is this Engine instance's assigned identifier, tagged onto every
// log line emitted through it.
func (e *Engine) RunID() string {
	return e.runID.String()
}

// Close destroys the pivot graph (terminating and saving every resident
// pivot), shuts down both AEF worker pools, and releases the integral
// manager's open stores. Safe to call more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	e.graph.Destroy()
	e.aef.Destroy()
	e.aefNumeric.Destroy()

	if err := e.integrals.Close(); err != nil {
		return errors.Wrap(err, "closing integral manager")
	}
	return nil
}
