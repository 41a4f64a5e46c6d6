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

package policy

import (
	"context"
	"sync/atomic"

	"github.com/ManDay/quicksolve/errs"
	"github.com/ManDay/quicksolve/integral"
	"github.com/ManDay/quicksolve/operand"
	"github.com/ManDay/quicksolve/pivotgraph"
	"github.com/sirupsen/logrus"
)

// CKS is the Czakon-prime elimination policy: it probes a pivot's
// candidate heads numerically, racing them through a TerminalGroup, picks
// the first non-zero one as the next pivot to eliminate, recurses into
// it, then relays and collects its own row before attempting to
// normalize. A self-coefficient of zero escalates a per-target despair
// counter and retries with a looser candidate-suitability threshold.
// Grounded verbatim on cks.c's cks/cks_solve.
type CKS struct {
	log logrus.FieldLogger
}

// NewCKS returns a CKS policy logging through log (the standard logger if
// nil).
func NewCKS(log logrus.FieldLogger) *CKS {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CKS{log: log}
}

// Solve implements Policy.
func (p *CKS) Solve(ctx context.Context, g *pivotgraph.Graph, target integral.Component, terminate *atomic.Bool) error {
	meta, ok := g.Meta(target)
	if !ok {
		return errs.ErrNoSuchPivot.New(target)
	}

	meta.Consideration = 1
	g.SetMeta(target, meta)

	err := p.eliminate(ctx, g, target, 1, terminate)

	if meta, ok := g.Meta(target); ok {
		meta.Consideration = 0
		g.SetMeta(target, meta)
	}

	return err
}

func (p *CKS) halt(ctx context.Context, terminate *atomic.Bool) bool {
	if terminate.Load() {
		return true
	}
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// eliminate is cks() from cks.c, unified onto a single Graph carrying
// both the symbolic coefficient and its numeric shadow per reference (the
// original's numeric_graph is all cks ever actually reads or mutates).
func (p *CKS) eliminate(ctx context.Context, g *pivotgraph.Graph, i integral.Component, despair uint16, terminate *atomic.Bool) error {
	meta, ok := g.Meta(i)
	if !ok {
		return errs.ErrNoSuchPivot.New(i)
	}

	nextFound := false
	var nextI integral.Component

	var waiter *operand.TerminalGroup
	heads := make(map[*operand.Terminal]integral.Component)

	n := g.NRefs(i)
	for j := 0; !p.halt(ctx, terminate) && !nextFound && j < n; {
		candidateHead := g.HeadNth(i, j)
		candidateMeta, candOK := g.Meta(candidateHead)

		if candOK {
			suitable := candidateMeta.Solved || candidateMeta.Order < meta.Order ||
				(despair != 0 && despair >= candidateMeta.Consideration)

			if candidateHead != i && suitable {
				if wait, ok := g.TerminateHead(i, candidateHead, true); ok {
					if waiter == nil {
						waiter = operand.NewTerminalGroup(n)
					}
					heads[wait] = candidateHead
					waiter.Push(wait)
				}
			}
		}

		j++

		if waiter != nil {
			for {
				if p.halt(ctx, terminate) {
					waiter.Destroy()
					return nil
				}

				valTerm := waiter.Pop()
				if valTerm != nil {
					val, err := valTerm.Wait()
					if err != nil {
						waiter.Destroy()
						return errs.ErrEvaluatorDied.Wrap(err, heads[valTerm])
					}
					if !val.IsZero() {
						nextI = heads[valTerm]
						nextFound = true
					}
				}

				if nextFound || !(j == n && waiter.Count() > 0) {
					break
				}
			}
		}
	}

	// A non-zero coefficient was found ready among the raced candidates.
	if nextFound {
		waiter.Clear()

		meta.Solved = false
		meta.Touched = false
		g.SetMeta(i, meta)

		candidateMeta, _ := g.Meta(nextI)
		candidateMeta.Consideration++
		g.SetMeta(nextI, candidateMeta)

		err := p.eliminate(ctx, g, nextI, 0, terminate)

		if candidateMeta, ok := g.Meta(nextI); ok {
			candidateMeta.Consideration--
			g.SetMeta(nextI, candidateMeta)
		}

		if err != nil {
			return err
		}

		// If termination was requested, the nested solve possibly returned
		// without normalizing and the current pivot must not be relayed.
		if p.halt(ctx, terminate) {
			return nil
		}

		// Further desperate recursions may have touched and modified the
		// current target, in which case the row read above is obsolete.
		meta, _ = g.Meta(i)
		if !meta.Touched {
			g.Relay(i, nextI)
			g.CollectAll(i)
		}
		meta.Touched = true
		g.SetMeta(i, meta)

		return p.eliminate(ctx, g, i, despair, terminate)
	}

	if waiter != nil {
		waiter.Destroy()
	}

	if p.halt(ctx, terminate) {
		return nil
	}

	// If we ended up here via back-substitution, solved may already be
	// true without any change having been made this call.
	if meta.Solved {
		return nil
	}

	if wait, ok := g.TerminateHead(i, i, true); ok {
		val, err := wait.Wait()
		if err != nil {
			return errs.ErrEvaluatorDied.Wrap(err, i)
		}
		if !val.IsZero() {
			g.Normalize(i)
			meta.Solved = true
			g.SetMeta(i, meta)
			return nil
		}
	}

	p.log.WithFields(logrus.Fields{"component": i, "order": meta.Order, "despair": despair}).
		Warn("policy: canonical elimination not normalizable")

	if despair == pivotgraph.MaxDespair {
		return errs.ErrDespairExceeded.New(despair, i)
	}

	return p.eliminate(ctx, g, i, despair+1, terminate)
}
