// Package arena implements Conceptum's scoped allocation registry: a
// process-wide record of every allocation made during assembly and
// execution, released in one bulk pass at shutdown (spec.md §4.5).
//
// This is a deliberate simplification over per-value lifetime tracking,
// acceptable because the VM is non-persistent and per-run: nothing an
// Arena tracks needs to outlive the process. Individual early release is
// supported but optional, matching spec.md's "rfree ... is supported but
// optional".
package arena

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/exp/slices"
)

// handle identifies one tracked allocation.
type handle uint64

// Allocation is a named, released-exactly-once resource tracked by an
// Arena. Release is called at most once per allocation, either explicitly
// via Arena.Free or implicitly by Arena.ReleaseAll.
type Allocation struct {
	Label   string
	Release func()
}

// Arena is a scoped allocation registry. The zero value is not usable;
// construct one with New.
type Arena struct {
	mu      sync.Mutex
	live    map[handle]Allocation
	nextID  handle
	created int
}

// New returns an empty Arena.
func New() *Arena {
	return &Arena{live: make(map[handle]Allocation)}
}

// Track registers an allocation under label and returns a handle that can
// be passed to Free for early release. The label is purely diagnostic
// (used by Live).
func (a *Arena) Track(label string, release func()) handle {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := a.nextID
	a.nextID++
	a.created++
	a.live[id] = Allocation{Label: label, Release: release}
	return id
}

// Free releases a single tracked allocation early (spec.md §4.5's optional
// rfree). Freeing an already-released or unknown handle is a no-op.
func (a *Arena) Free(h handle) {
	a.mu.Lock()
	defer a.mu.Unlock()

	alloc, ok := a.live[h]
	if !ok {
		return
	}
	delete(a.live, h)
	if alloc.Release != nil {
		alloc.Release()
	}
}

// ReleaseAll bulk-releases every allocation still live, in label order for
// deterministic shutdown diagnostics. Called once at process shutdown.
func (a *Arena) ReleaseAll() {
	a.mu.Lock()
	allocs := make([]Allocation, 0, len(a.live))
	for _, alloc := range a.live {
		allocs = append(allocs, alloc)
	}
	a.live = make(map[handle]Allocation)
	a.mu.Unlock()

	slices.SortFunc(allocs, func(a, b Allocation) int { return strings.Compare(a.Label, b.Label) })
	for _, alloc := range allocs {
		if alloc.Release != nil {
			alloc.Release()
		}
	}
}

// Live returns a diagnostic listing of currently-tracked allocation labels,
// sorted for deterministic output.
func (a *Arena) Live() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	labels := make([]string, 0, len(a.live))
	for _, alloc := range a.live {
		labels = append(labels, alloc.Label)
	}
	slices.Sort(labels)
	return labels
}

// Stats reports the total number of allocations tracked over the Arena's
// lifetime and the number still live.
func (a *Arena) Stats() (created, live int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.created, len(a.live)
}

func (a *Arena) String() string {
	created, live := a.Stats()
	return fmt.Sprintf("arena(created=%d, live=%d)", created, live)
}
