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

import "github.com/sasha-s/go-deadlock"

// TerminalGroup races a batch of Terminals, reporting each one as it
// resolves rather than in the order it was pushed. Mirrors the original's
// QsTerminalGroup, used by elimination policies to probe several
// candidate heads concurrently and act on whichever clears first. A
// TerminalGroup does not take ownership of the Terminals pushed to it —
// it only observes their resolution.
type TerminalGroup struct {
	mu      deadlock.Mutex
	members map[*Terminal]bool
	ready   chan *Terminal
}

// NewTerminalGroup returns an empty group sized for up to capacity
// concurrently outstanding members.
func NewTerminalGroup(capacity int) *TerminalGroup {
	return &TerminalGroup{
		members: make(map[*Terminal]bool, capacity),
		ready:   make(chan *Terminal, capacity),
	}
}

// Push adds t to the group. A goroutine waits on t and reports it via Pop
// once it resolves, unless the group has cleared t in the meantime.
func (g *TerminalGroup) Push(t *Terminal) {
	g.mu.Lock()
	g.members[t] = true
	g.mu.Unlock()

	go func() {
		// The error, if any, is surfaced when the caller itself Waits on
		// the popped Terminal; this goroutine only needs the unblock.
		t.Wait()
		g.mu.Lock()
		still := g.members[t]
		g.mu.Unlock()
		if still {
			g.ready <- t
		}
	}()
}

// Pop blocks until some pushed member resolves and returns it, or returns
// nil immediately if the group currently has no outstanding members.
func (g *TerminalGroup) Pop() *Terminal {
	g.mu.Lock()
	empty := len(g.members) == 0
	g.mu.Unlock()
	if empty {
		return nil
	}

	t, ok := <-g.ready
	if !ok {
		return nil
	}

	g.mu.Lock()
	delete(g.members, t)
	g.mu.Unlock()
	return t
}

// Count reports how many pushed members have not yet been popped.
func (g *TerminalGroup) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.members)
}

// Clear forgets every still-outstanding member without waiting for it;
// their background waiters become no-ops as they complete.
func (g *TerminalGroup) Clear() {
	g.mu.Lock()
	g.members = make(map[*Terminal]bool)
	g.mu.Unlock()
}

// Destroy clears the group. Provided for symmetry with the original's
// qs_terminal_group_destroy; a Go TerminalGroup needs no other teardown.
func (g *TerminalGroup) Destroy() {
	g.Clear()
}
