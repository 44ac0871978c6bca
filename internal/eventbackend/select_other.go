//go:build !linux && !darwin

package eventbackend

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// selectBackend is the portable fallback backend for platforms without a
// dedicated readiness multiplexer wired in (the original ships an IOCP
// backend for Windows and a select backend as the universal fallback;
// this repo only wires select, noting IOCP as an unwired platform backend
// in DESIGN.md since there is no Windows build target exercised here).
type selectBackend struct {
	mu         sync.Mutex
	closed     bool
	registered map[int]Events
}

// New creates a new select-backed Backend.
func New() (Backend, error) {
	return &selectBackend{registered: make(map[int]Events)}, nil
}

// fdSetBit and fdIsSet implement the NFDBITS-word bit manipulation
// unix.FdSet expects, since x/sys/unix does not expose Set/IsSet helpers
// uniformly across platforms.
func fdSetBit(set *unix.FdSet, fd int) {
	idx := fd / 64
	bit := uint(fd % 64)
	set.Bits[idx] |= 1 << bit
}

func fdIsSet(set *unix.FdSet, fd int) bool {
	idx := fd / 64
	bit := uint(fd % 64)
	return set.Bits[idx]&(1<<bit) != 0
}

func (b *selectBackend) Add(fd int, events Events) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if fd >= unix.FD_SETSIZE {
		return ErrFDSetSizeExceeded
	}
	b.registered[fd] = events
	return nil
}

func (b *selectBackend) Modify(fd int, events Events) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if _, ok := b.registered[fd]; !ok {
		return ErrNotRegistered
	}
	b.registered[fd] = events
	return nil
}

func (b *selectBackend) Remove(fd int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	delete(b.registered, fd)
	return nil
}

func (b *selectBackend) Wait(timeoutMs int) ([]Result, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	var rfds, wfds unix.FdSet
	maxFD := -1
	for fd, events := range b.registered {
		if events&Read != 0 {
			fdSetBit(&rfds, fd)
		}
		if events&Write != 0 {
			fdSetBit(&wfds, fd)
		}
		if fd > maxFD {
			maxFD = fd
		}
	}
	b.mu.Unlock()

	if maxFD < 0 {
		if timeoutMs > 0 {
			time.Sleep(time.Duration(timeoutMs) * time.Millisecond)
		}
		return nil, nil
	}

	var tv *unix.Timeval
	if timeoutMs >= 0 {
		t := unix.NsecToTimeval(int64(timeoutMs) * int64(time.Millisecond))
		tv = &t
	}

	_, err := unix.Select(maxFD+1, &rfds, &wfds, nil, tv)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	var results []Result
	for fd, events := range b.registered {
		var ready Events
		if events&Read != 0 && fdIsSet(&rfds, fd) {
			ready |= Read
		}
		if events&Write != 0 && fdIsSet(&wfds, fd) {
			ready |= Write
		}
		if ready != 0 {
			results = append(results, Result{FD: fd, Events: ready})
			if len(results) >= MaxEventsPerWait {
				break
			}
		}
	}
	return results, nil
}

func (b *selectBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
