package threadpool

import (
	"fmt"
	"os"
	"time"
)

// notifyPipe wraps a self-pipe used to signal task completion to an
// event backend. Writes are best-effort: if the pipe is full, a prior
// unread byte already suffices to wake a waiter, so write errors are
// intentionally swallowed, matching the original pool's POSIX
// notification-pipe behavior.
type notifyPipe struct {
	r, w *os.File
}

func newNotifyPipe() *notifyPipe {
	r, w, err := os.Pipe()
	if err != nil {
		return &notifyPipe{}
	}
	return &notifyPipe{r: r, w: w}
}

func (n *notifyPipe) readFD() int {
	if n.r == nil {
		return -1
	}
	// SyscallConn, unlike Fd, leaves the descriptor in non-blocking mode.
	rc, err := n.r.SyscallConn()
	if err != nil {
		return -1
	}
	fd := -1
	_ = rc.Control(func(f uintptr) { fd = int(f) })
	return fd
}

func (n *notifyPipe) signal() {
	if n.w == nil {
		return
	}
	// The short deadline turns a full pipe into a dropped write instead
	// of parking the worker goroutine.
	_ = n.w.SetWriteDeadline(time.Now().Add(time.Millisecond))
	_, _ = n.w.Write([]byte{0})
}

func (n *notifyPipe) close() {
	if n.r != nil {
		_ = n.r.Close()
	}
	if n.w != nil {
		_ = n.w.Close()
	}
}

func panicToError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("threadpool: task panicked: %w", err)
	}
	return fmt.Errorf("threadpool: task panicked: %v", r)
}
