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

// Package policy picks an elimination order for a pivot graph and drives
// it to a solved row for a chosen target. Policy is pluggable; CKS is the
// one concrete policy shipped.
package policy

import (
	"context"
	"sync/atomic"

	"github.com/ManDay/quicksolve/integral"
	"github.com/ManDay/quicksolve/pivotgraph"
)

// Policy reduces target's row in g to a solved, normalized pivot,
// recursively eliminating whatever other pivots target's row depends on.
// terminate is polled between recursive steps so a caller can request
// early, graceful abandonment (mirroring the original's SIGINT-driven
// volatile sig_atomic_t terminate flag).
type Policy interface {
	Solve(ctx context.Context, g *pivotgraph.Graph, target integral.Component, terminate *atomic.Bool) error
}
