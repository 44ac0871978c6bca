// Package scheduler owns one event backend and one thread pool, tracks
// the set of coroutines detached to it, and drives a single poll cycle
// on request. Grounded on the original lev.c scheduler's state-machine
// shape (pending list walked in FIFO order, re-admission on async
// re-yield, single stashed error surfaced on the next poll) and on
// internal/asyncqueue's goroutine-pool/poll-loop texture for the Go
// idiom: explicit mutex-guarded state, no background goroutine driving
// polls itself — the embedder calls Poll.
package scheduler

import (
	"container/list"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lus-lang/lus/internal/coroutine"
	"github.com/lus-lang/lus/internal/eventbackend"
	"github.com/lus-lang/lus/internal/logging"
	"github.com/lus-lang/lus/internal/metrics"
	"github.com/lus-lang/lus/internal/threadpool"
)

// ErrBackendUnavailable is returned by EnsureInit when the platform event
// backend could not be created.
var ErrBackendUnavailable = errors.New("scheduler: event backend unavailable")

// ErrNotInitialized is returned by operations called before EnsureInit.
var ErrNotInitialized = errors.New("scheduler: not initialized")

const defaultPollBatch = 16

// ResumeStatus reports how a coroutine resumption ended.
type ResumeStatus int

const (
	// ResumeYieldedAsync means the coroutine yielded again with an async
	// reason (IOWait, SleepUntil, ThreadPoolWait) and should be re-admitted.
	ResumeYieldedAsync ResumeStatus = iota
	// ResumeYieldedNormal means the coroutine yielded with NormalYield and
	// is released back to its ordinary (non-scheduler) caller.
	ResumeYieldedNormal
	// ResumeReturned means the coroutine ran to completion.
	ResumeReturned
	// ResumeErrored means the coroutine raised an error.
	ResumeErrored
)

// Resumer resumes a detached coroutine by handle. It is the runtime
// core's hook into the VM that actually runs bytecode; the scheduler
// itself has no notion of bytecode, stacks, or values.
type Resumer interface {
	Resume(h coroutine.Handle) (status ResumeStatus, yield coroutine.Descriptor, errMsg string)
}

type pendingEntry struct {
	handle  coroutine.Handle
	fd      int // -1 if none
	events  eventbackend.Events
	desc    coroutine.Descriptor
	hasDesc bool
}

// Scheduler tracks detached coroutines and drives their resumption.
type Scheduler struct {
	mu sync.Mutex

	backend eventbackend.Backend
	pool    *threadpool.Pool
	coros   *coroutine.Table
	resumer Resumer

	pending  *list.List // FIFO of *pendingEntry
	byHandle map[coroutine.Handle]*list.Element
	byFD     map[int]*list.Element

	lastErr     error
	initialized bool
}

// New constructs an uninitialized Scheduler. Call EnsureInit before use.
func New(coros *coroutine.Table, resumer Resumer) *Scheduler {
	return &Scheduler{
		coros:    coros,
		resumer:  resumer,
		pending:  list.New(),
		byHandle: make(map[coroutine.Handle]*list.Element),
		byFD:     make(map[int]*list.Element),
	}
}

// EnsureInit idempotently creates the event backend and starts the
// thread pool. Backend creation failure is fatal and returned to the
// caller; it is never retried silently.
func (s *Scheduler) EnsureInit(poolThreads int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}
	backend, err := eventbackend.New()
	if err != nil {
		logging.Op().Error("scheduler backend creation failed", "error", err)
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	s.backend = backend
	s.pool = threadpool.New(poolThreads)
	s.initialized = true
	logging.Op().Debug("scheduler initialized", "pool_threads", poolThreads)
	return nil
}

// Teardown releases all pending entries, unanchors their coroutines, and
// destroys the backend and pool. Safe to call on an uninitialized or
// already-torn-down Scheduler.
func (s *Scheduler) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return
	}
	for e := s.pending.Front(); e != nil; e = e.Next() {
		entry := e.Value.(*pendingEntry)
		s.coros.SetDetached(entry.handle, false)
	}
	s.pending.Init()
	s.byHandle = make(map[coroutine.Handle]*list.Element)
	s.byFD = make(map[int]*list.Element)
	if s.backend != nil {
		_ = s.backend.Close()
		s.backend = nil
	}
	if s.pool != nil {
		s.pool.Destroy()
		s.pool = nil
	}
	s.initialized = false
	logging.Op().Debug("scheduler torn down")
}

// ThreadPool returns the scheduler's thread pool for submitting blocking
// work, or nil if EnsureInit has not been called.
func (s *Scheduler) ThreadPool() *threadpool.Pool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pool
}

// AddPending anchors h as detached, constructs a pending entry, and
// registers fd with the backend if fd >= 0. deadlineUnixNano == 0 means
// no timer.
func (s *Scheduler) AddPending(h coroutine.Handle, fd int, events eventbackend.Events, deadlineUnixNano int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrNotInitialized
	}
	entry := &pendingEntry{
		handle: h,
		fd:     fd,
		events: events,
		desc: coroutine.Descriptor{
			FD:               fd,
			Events:           int(events),
			DeadlineUnixNano: deadlineUnixNano,
		},
		hasDesc: true,
	}
	if fd >= 0 {
		if err := s.backend.Add(fd, events); err != nil {
			return err
		}
	}
	elem := s.pending.PushBack(entry)
	s.byHandle[h] = elem
	if fd >= 0 {
		s.byFD[fd] = elem
	}
	s.coros.SetDetached(h, true)
	s.coros.SetYield(h, entry.desc)
	return nil
}

// PendingCount returns the number of coroutines currently pending.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.Len()
}

// Poll runs a single scheduler cycle: it surfaces any previously stashed
// error, waits on the backend for up to timeoutMs (clamped against the
// earliest pending deadline), and resumes every entry that became ready,
// re-admitting any that yield again with an async reason. It returns the
// number of entries processed (resumed or skipped as non-resumable).
func (s *Scheduler) Poll(timeoutMs int) (int, error) {
	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return 0, ErrNotInitialized
	}
	if s.lastErr != nil {
		err := s.lastErr
		s.lastErr = nil
		s.mu.Unlock()
		return 0, err
	}

	effTimeout := s.effectiveTimeout(timeoutMs)
	backend := s.backend
	s.mu.Unlock()

	start := time.Now()
	results, err := backend.Wait(effTimeout)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	now := time.Now().UnixNano()

	readyFDs := make(map[int]eventbackend.Events, len(results))
	for _, r := range results {
		readyFDs[r.FD] = r.Events
	}

	var ready []*pendingEntry
	for e := s.pending.Front(); e != nil; {
		next := e.Next()
		entry := e.Value.(*pendingEntry)
		isReady := false
		if entry.desc.DeadlineUnixNano != 0 && now >= entry.desc.DeadlineUnixNano {
			isReady = true
		}
		if ev, ok := readyFDs[entry.fd]; ok && entry.fd >= 0 && ev&(entry.events|eventbackend.ErrorEvent) != 0 {
			isReady = true
		}
		if entry.desc.Reason == coroutine.ThreadPoolWait {
			if task, ok := entry.desc.Waiter.(interface{ Done() bool }); ok && task.Done() {
				isReady = true
			}
		}
		if isReady {
			s.removeEntryLocked(e)
			ready = append(ready, entry)
		}
		e = next
	}
	s.mu.Unlock()

	processed := 0
	for _, entry := range ready {
		s.resumeOne(entry)
		processed++
	}

	metrics.Global().RecordPollCycle(s.PendingCount(), time.Since(start))
	return processed, nil
}

func (s *Scheduler) resumeOne(entry *pendingEntry) {
	status, yield, errMsg := s.resumer.Resume(entry.handle)
	switch status {
	case ResumeYieldedAsync:
		metrics.Global().RecordYieldResume(descriptorToMetricsKind(yield))
		s.mu.Lock()
		newEntry := &pendingEntry{handle: entry.handle, fd: yield.FD, events: eventbackend.Events(yield.Events), desc: yield, hasDesc: true}
		if yield.FD >= 0 {
			_ = s.backend.Add(yield.FD, eventbackend.Events(yield.Events))
		}
		elem := s.pending.PushBack(newEntry)
		s.byHandle[entry.handle] = elem
		if yield.FD >= 0 {
			s.byFD[yield.FD] = elem
		}
		s.coros.SetYield(entry.handle, yield)
		s.mu.Unlock()
	case ResumeYieldedNormal:
		s.coros.SetDetached(entry.handle, false)
		s.coros.ClearYield(entry.handle)
	case ResumeReturned:
		s.coros.SetDetached(entry.handle, false)
		s.coros.Forget(entry.handle)
	case ResumeErrored:
		s.coros.SetDetached(entry.handle, false)
		s.coros.Forget(entry.handle)
		s.mu.Lock()
		s.lastErr = fmt.Errorf("scheduler: coroutine error: %s", errMsg)
		s.mu.Unlock()
		logging.Op().Warn("coroutine resumption errored", "error", errMsg)
	}
}

// removeEntryLocked removes elem from the pending list and index maps,
// and deregisters its fd from the backend. Caller must hold s.mu.
func (s *Scheduler) removeEntryLocked(elem *list.Element) {
	entry := elem.Value.(*pendingEntry)
	s.pending.Remove(elem)
	delete(s.byHandle, entry.handle)
	if entry.fd >= 0 {
		delete(s.byFD, entry.fd)
		_ = s.backend.Remove(entry.fd)
	}
}

// effectiveTimeout clamps timeoutMs to the earliest pending deadline.
// Caller must hold s.mu.
func (s *Scheduler) effectiveTimeout(timeoutMs int) int {
	if s.pending.Len() == 0 {
		return timeoutMs
	}
	now := time.Now().UnixNano()
	earliest := int64(-1)
	for e := s.pending.Front(); e != nil; e = e.Next() {
		entry := e.Value.(*pendingEntry)
		if entry.desc.DeadlineUnixNano == 0 {
			continue
		}
		if earliest < 0 || entry.desc.DeadlineUnixNano < earliest {
			earliest = entry.desc.DeadlineUnixNano
		}
	}
	if earliest < 0 {
		return timeoutMs
	}
	remainingMs := int((earliest - now) / int64(time.Millisecond))
	if remainingMs < 0 {
		remainingMs = 0
	}
	if timeoutMs < 0 || remainingMs < timeoutMs {
		return remainingMs
	}
	return timeoutMs
}

func descriptorToMetricsKind(d coroutine.Descriptor) metrics.YieldKind {
	switch d.Reason {
	case coroutine.IOWait:
		return metrics.YieldIOWait
	case coroutine.SleepUntil:
		return metrics.YieldSleepUntil
	case coroutine.ThreadPoolWait:
		return metrics.YieldThreadPoolWait
	default:
		return metrics.YieldIOWait
	}
}
