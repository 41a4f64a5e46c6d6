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

// Package errs collects the typed error kinds shared across quicksolve's
// components, grouped into fatal-abort, reported warning, benign skip and
// external errors. Kinds follow the auth package's convention of
// gopkg.in/src-d/go-errors.v1.
package errs

import errorkind "gopkg.in/src-d/go-errors.v1"

var (
	// ErrNoSuchPivot is returned when a pivot has no loader-backed data
	// (external error: the key-value open/get failed to produce a row).
	ErrNoSuchPivot = errorkind.NewKind("no such pivot: %v")

	// ErrDespairExceeded is fatal-abort: the recursive elimination policy
	// exhausted its despair budget without normalising the target.
	ErrDespairExceeded = errorkind.NewKind("despair exceeded maximum (%d) eliminating pivot %v")

	// ErrEvaluatorDied is fatal: the external algebra helper process
	// terminated and no recovery semantics are defined.
	ErrEvaluatorDied = errorkind.NewKind("algebra helper process died: %v")

	// ErrUsageNotZero names the fatal structural-invariant failure of
	// tracked memory usage not returning to zero at graph destruction.
	// Graph.Destroy does not check usage, and no code path in this module
	// returns this kind.
	ErrUsageNotZero = errorkind.NewKind("graph destroyed with non-zero memory usage: %d bytes")

	// ErrPendingOnUnref names the fatal structural-invariant failure of a
	// terminal unref'd to zero while its expression had not completed.
	// Terminal.Unref does not check for it, and no code path in this
	// module returns this kind.
	ErrPendingOnUnref = errorkind.NewKind("terminal unreferenced while still pending")

	// ErrDiscardWithoutConsumption names an operand's computed coefficient
	// being discarded without ever being consumed. No code path in this
	// module returns this kind.
	ErrDiscardWithoutConsumption = errorkind.NewKind("coefficient discarded without consumption")

	// ErrPreallocInsufficient names the warning-class condition of the
	// pivot graph's preallocated component space needing to grow. The
	// graph does not preallocate, and no code path in this module returns
	// or logs this kind.
	ErrPreallocInsufficient = errorkind.NewKind("preallocated space did not suffice for %d pivots")

	// ErrEvictionInsufficient names the warning-class condition of
	// eviction failing to bring memory usage under the configured limit.
	// No code path in this module returns or logs this kind.
	ErrEvictionInsufficient = errorkind.NewKind("could not reduce memory usage below limit")

	// ErrUnknownOperation guards the AEF's closed operation set.
	ErrUnknownOperation = errorkind.NewKind("unknown operation: %v")
)
