// Package runtimestate stands in for "the VM state" that the rest of
// this runtime core treats as an external collaborator: an arena, a
// pledge store, and a coroutine yield-state table, wired to a scheduler,
// plus the hooks a real bytecode VM would fill in (loading a chunk,
// calling it with arguments). This lets the scheduler, pledge store, and
// worker pool be exercised and tested without a real VM.
package runtimestate

import (
	"errors"
	"sync"

	"github.com/lus-lang/lus/internal/arena"
	"github.com/lus-lang/lus/internal/coroutine"
	"github.com/lus-lang/lus/internal/pledge"
	"github.com/lus-lang/lus/internal/scheduler"
)

// ErrNoLoader is returned by RunFile when no Loader has been configured.
var ErrNoLoader = errors.New("runtimestate: no chunk loader configured")

// Chunk is a loaded, callable unit of script code.
type Chunk interface {
	Call(state *State, args []any) (any, error)
}

// Loader loads a Chunk from a file path or from source bytes, the two
// entry points the CLI's run/format/standalone-bundle paths need.
type Loader interface {
	LoadFile(path string) (Chunk, error)
	LoadSource(name string, src []byte) (Chunk, error)
}

// Coroutine is a resumable unit of execution a real VM would back with
// an actual coroutine stack. runtimestate only needs to be able to
// resume it and learn the outcome; it has no notion of bytecode itself.
type Coroutine interface {
	Resume() (status scheduler.ResumeStatus, yield coroutine.Descriptor, errMsg string)
}

// State is the minimal VM-state stand-in: one arena, one pledge store,
// one coroutine yield-state table, and one scheduler, plus a registry of
// live Coroutines the scheduler can resume by handle.
type State struct {
	Arena      *arena.Arena
	Pledges    *pledge.Store
	Coroutines *coroutine.Table
	Scheduler  *scheduler.Scheduler
	Loader     Loader

	mu       sync.Mutex
	handles  map[coroutine.Handle]Coroutine
	nextID   int64
	poolSize int
}

// New constructs a fresh, unattached State with its own arena, pledge
// store, coroutine table, and scheduler.
func New(loader Loader) *State {
	st := &State{
		Arena:      arena.NewDefault(),
		Pledges:    pledge.New(),
		Coroutines: coroutine.NewTable(),
		Loader:     loader,
		handles:    make(map[coroutine.Handle]Coroutine),
		poolSize:   4,
	}
	st.Scheduler = scheduler.New(st.Coroutines, st)
	return st
}

// Clone derives a new State for a worker: a fresh arena and coroutine
// table, a deep copy of the pledge store (per pledge-store inheritance),
// and its own scheduler, but the same Loader.
func (st *State) Clone() *State {
	cloned := &State{
		Arena:      arena.NewDefault(),
		Pledges:    st.Pledges.Copy(),
		Coroutines: coroutine.NewTable(),
		Loader:     st.Loader,
		handles:    make(map[coroutine.Handle]Coroutine),
		poolSize:   st.poolSize,
	}
	cloned.Scheduler = scheduler.New(cloned.Coroutines, cloned)
	return cloned
}

// NewHandle allocates a fresh coroutine handle, unique within this State.
func (st *State) NewHandle() coroutine.Handle {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.nextID++
	return st.nextID
}

// RegisterCoroutine associates a resumable Coroutine with a handle so
// the scheduler's Resume calls have something to drive.
func (st *State) RegisterCoroutine(h coroutine.Handle, co Coroutine) {
	st.mu.Lock()
	st.handles[h] = co
	st.mu.Unlock()
}

// ForgetCoroutine removes a handle's registration once it is no longer
// resumable (returned or errored).
func (st *State) ForgetCoroutine(h coroutine.Handle) {
	st.mu.Lock()
	delete(st.handles, h)
	st.mu.Unlock()
}

// Resume implements scheduler.Resumer by dispatching to the registered
// Coroutine for h. A handle with no registration is treated as already
// returned, so a stray re-admission cannot spin forever.
func (st *State) Resume(h coroutine.Handle) (scheduler.ResumeStatus, coroutine.Descriptor, string) {
	st.mu.Lock()
	co, ok := st.handles[h]
	st.mu.Unlock()
	if !ok {
		return scheduler.ResumeReturned, coroutine.Descriptor{}, ""
	}
	return co.Resume()
}

// EnsureInit starts this state's scheduler (backend + thread pool).
func (st *State) EnsureInit() error {
	return st.Scheduler.EnsureInit(st.poolSize)
}

// Teardown stops this state's scheduler and releases its arena.
func (st *State) Teardown() {
	st.Scheduler.Teardown()
	st.Arena.Close()
}

// RunFile loads and calls the chunk at path with args.
func (st *State) RunFile(path string, args []any) (any, error) {
	if st.Loader == nil {
		return nil, ErrNoLoader
	}
	chunk, err := st.Loader.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return chunk.Call(st, args)
}

// RunSource loads and calls source bytes under the given chunk name
// (used for -e, stdin, and bundle entrypoints) with args.
func (st *State) RunSource(name string, src []byte, args []any) (any, error) {
	if st.Loader == nil {
		return nil, ErrNoLoader
	}
	chunk, err := st.Loader.LoadSource(name, src)
	if err != nil {
		return nil, err
	}
	return chunk.Call(st, args)
}
