// Package coroutine implements the yield-state side table the scheduler
// and VM glue use to track which coroutines are detached and what they
// are waiting on. The VM itself — the coroutine's actual call stack and
// registers — is an external collaborator (see internal/runtimestate);
// this package only tracks the bookkeeping the runtime core needs on top
// of it.
package coroutine

import "sync"

// Handle identifies a coroutine. Any comparable value the host VM can
// supply works — typically a pointer to the VM's own coroutine struct,
// or a generated ID when no such pointer is available (tests, a stub
// VM state).
type Handle any

// YieldReason tags why a detached coroutine yielded.
type YieldReason int

const (
	// NormalYield returns control directly to the resuming caller; the
	// scheduler never sees it.
	NormalYield YieldReason = iota
	// IOWait parks the coroutine until a registered fd becomes ready.
	IOWait
	// SleepUntil parks the coroutine until a deadline elapses.
	SleepUntil
	// ThreadPoolWait parks the coroutine until a submitted task completes.
	ThreadPoolWait
)

func (r YieldReason) String() string {
	switch r {
	case NormalYield:
		return "normal"
	case IOWait:
		return "io_wait"
	case SleepUntil:
		return "sleep_until"
	case ThreadPoolWait:
		return "thread_pool_wait"
	default:
		return "unknown"
	}
}

// Descriptor is the tagged yield state for one parked coroutine. Only
// the fields relevant to Reason are meaningful.
type Descriptor struct {
	Reason YieldReason

	FD     int // IOWait: the file descriptor being watched
	Events int // IOWait: the readiness mask requested

	DeadlineUnixNano int64 // SleepUntil: resume no earlier than this

	Waiter any // ThreadPoolWait: the submitted task handle (internal/threadpool.Task)
}

type entry struct {
	detached bool
	yield    Descriptor
	hasYield bool
}

// Table is the lazy per-coroutine side table: entries are created only
// when a coroutine is first marked detached or given a yield descriptor.
// Reads for coroutines with no entry never allocate.
type Table struct {
	mu sync.RWMutex
	m  map[Handle]*entry
}

// NewTable creates an empty side table.
func NewTable() *Table {
	return &Table{m: make(map[Handle]*entry)}
}

func (t *Table) get(h Handle) *entry {
	t.mu.RLock()
	e := t.m[h]
	t.mu.RUnlock()
	return e
}

func (t *Table) getOrCreate(h Handle) *entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.m[h]
	if !ok {
		e = &entry{}
		t.m[h] = e
	}
	return e
}

// SetDetached marks whether h is a detached coroutine.
func (t *Table) SetDetached(h Handle, detached bool) {
	t.getOrCreate(h).detached = detached
}

// IsDetached reports whether h is detached. Never allocates; an unknown
// handle reports false.
func (t *Table) IsDetached(h Handle) bool {
	e := t.get(h)
	return e != nil && e.detached
}

// SetYield records h's yield descriptor.
func (t *Table) SetYield(h Handle, d Descriptor) {
	e := t.getOrCreate(h)
	e.yield = d
	e.hasYield = true
}

// Yield returns h's yield descriptor, if any. Never allocates.
func (t *Table) Yield(h Handle) (Descriptor, bool) {
	e := t.get(h)
	if e == nil || !e.hasYield {
		return Descriptor{}, false
	}
	return e.yield, true
}

// ClearYield drops h's yield descriptor (e.g. once resumed) without
// forgetting its detached flag.
func (t *Table) ClearYield(h Handle) {
	e := t.get(h)
	if e == nil {
		return
	}
	e.hasYield = false
	e.yield = Descriptor{}
}

// Forget removes h entirely, e.g. once the coroutine has terminated.
func (t *Table) Forget(h Handle) {
	t.mu.Lock()
	delete(t.m, h)
	t.mu.Unlock()
}

// Len returns the number of coroutines with a live entry. Intended for
// tests and diagnostics, not the hot path.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.m)
}
