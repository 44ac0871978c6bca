//go:build darwin

package eventbackend

import (
	"sync"

	"golang.org/x/sys/unix"
)

// kqueueBackend implements Backend over Darwin/BSD kqueue. kqueue
// reports read and write readiness as two separate kevents for the same
// fd; Wait consolidates them into a single Result per fd with Events
// OR'd together, per the original implementation's consolidation policy
// (lev.h's "two-kevents-per-fd -> one EventResult" note).
type kqueueBackend struct {
	mu         sync.Mutex
	kq         int
	closed     bool
	registered map[int]Events
}

// New creates a new kqueue-backed Backend.
func New() (Backend, error) {
	fd, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	return &kqueueBackend{kq: fd, registered: make(map[int]Events)}, nil
}

func (b *kqueueBackend) changes(fd int, events Events, add bool) []unix.Kevent_t {
	var out []unix.Kevent_t
	flags := uint16(unix.EV_ADD | unix.EV_ENABLE)
	if !add {
		flags = unix.EV_DELETE
	}
	if events&Read != 0 || !add {
		out = append(out, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: flags})
	}
	if events&Write != 0 || !add {
		out = append(out, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: flags})
	}
	return out
}

func (b *kqueueBackend) Add(fd int, events Events) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	changes := b.changes(fd, events, true)
	if len(changes) > 0 {
		if _, err := unix.Kevent(b.kq, changes, nil, nil); err != nil {
			return err
		}
	}
	b.registered[fd] = events
	return nil
}

func (b *kqueueBackend) Modify(fd int, events Events) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	old, ok := b.registered[fd]
	if !ok {
		return ErrNotRegistered
	}
	// Remove filters no longer requested, add newly requested ones.
	var changes []unix.Kevent_t
	if old&Read != 0 && events&Read == 0 {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE})
	}
	if old&Write != 0 && events&Write == 0 {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE})
	}
	if events&Read != 0 && old&Read == 0 {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_ADD | unix.EV_ENABLE})
	}
	if events&Write != 0 && old&Write == 0 {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_ADD | unix.EV_ENABLE})
	}
	if len(changes) > 0 {
		if _, err := unix.Kevent(b.kq, changes, nil, nil); err != nil {
			return err
		}
	}
	b.registered[fd] = events
	return nil
}

func (b *kqueueBackend) Remove(fd int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if _, ok := b.registered[fd]; !ok {
		return nil
	}
	changes := b.changes(fd, 0, false)
	delete(b.registered, fd)
	if len(changes) > 0 {
		_, _ = unix.Kevent(b.kq, changes, nil, nil)
	}
	return nil
}

func (b *kqueueBackend) Wait(timeoutMs int) ([]Result, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	kq := b.kq
	b.mu.Unlock()

	var ts *unix.Timespec
	if timeoutMs >= 0 {
		t := unix.NsecToTimespec(int64(timeoutMs) * int64(1e6))
		ts = &t
	}

	var buf [MaxEventsPerWait]unix.Kevent_t
	n, err := unix.Kevent(kq, nil, buf[:], ts)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}

	consolidated := make(map[int]Events, n)
	order := make([]int, 0, n)
	for i := 0; i < n; i++ {
		fd := int(buf[i].Ident)
		var ev Events
		switch buf[i].Filter {
		case unix.EVFILT_READ:
			ev = Read
		case unix.EVFILT_WRITE:
			ev = Write
		}
		if buf[i].Flags&unix.EV_ERROR != 0 {
			ev |= ErrorEvent
		}
		if _, seen := consolidated[fd]; !seen {
			order = append(order, fd)
		}
		consolidated[fd] |= ev
	}

	results := make([]Result, len(order))
	for i, fd := range order {
		results[i] = Result{FD: fd, Events: consolidated[fd]}
	}
	return results, nil
}

func (b *kqueueBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return unix.Close(b.kq)
}
