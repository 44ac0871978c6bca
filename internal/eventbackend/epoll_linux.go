//go:build linux

package eventbackend

import (
	"sync"

	"golang.org/x/sys/unix"
)

// epollBackend implements Backend over Linux epoll. Grounded on
// lev_epoll.c: EVLOOP_READ/WRITE map to EPOLLIN/EPOLLOUT, EPOLLERR and
// EPOLLHUP both map to ErrorEvent, and a Wait interrupted by a signal
// (EINTR) returns zero events rather than an error.
type epollBackend struct {
	mu     sync.Mutex
	epfd   int
	closed bool
	// registered tracks fds we've Added, so Modify on an unknown fd
	// reports ErrNotRegistered and Remove on one is a no-op.
	registered map[int]Events
}

// New creates a new epoll-backed Backend.
func New() (Backend, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollBackend{epfd: fd, registered: make(map[int]Events)}, nil
}

func toEpollEvents(e Events) uint32 {
	var out uint32
	if e&Read != 0 {
		out |= unix.EPOLLIN
	}
	if e&Write != 0 {
		out |= unix.EPOLLOUT
	}
	return out
}

func fromEpollEvents(e uint32) Events {
	var out Events
	if e&unix.EPOLLIN != 0 {
		out |= Read
	}
	if e&unix.EPOLLOUT != 0 {
		out |= Write
	}
	if e&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
		out |= ErrorEvent
	}
	return out
}

func (b *epollBackend) Add(fd int, events Events) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	ev := &unix.EpollEvent{Events: toEpollEvents(events), Fd: int32(fd)}
	if err := unix.EpollCtl(b.epfd, unix.EPOLL_CTL_ADD, fd, ev); err != nil {
		return err
	}
	b.registered[fd] = events
	return nil
}

func (b *epollBackend) Modify(fd int, events Events) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if _, ok := b.registered[fd]; !ok {
		return ErrNotRegistered
	}
	ev := &unix.EpollEvent{Events: toEpollEvents(events), Fd: int32(fd)}
	if err := unix.EpollCtl(b.epfd, unix.EPOLL_CTL_MOD, fd, ev); err != nil {
		return err
	}
	b.registered[fd] = events
	return nil
}

func (b *epollBackend) Remove(fd int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if _, ok := b.registered[fd]; !ok {
		return nil
	}
	delete(b.registered, fd)
	// Errors here are not actionable: the fd may already be closed,
	// which implicitly drops it from the epoll set.
	_ = unix.EpollCtl(b.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	return nil
}

func (b *epollBackend) Wait(timeoutMs int) ([]Result, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	epfd := b.epfd
	b.mu.Unlock()

	var buf [MaxEventsPerWait]unix.EpollEvent
	n, err := unix.EpollWait(epfd, buf[:], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}

	results := make([]Result, n)
	for i := 0; i < n; i++ {
		results[i] = Result{FD: int(buf[i].Fd), Events: fromEpollEvents(buf[i].Events)}
	}
	return results, nil
}

func (b *epollBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return unix.Close(b.epfd)
}
