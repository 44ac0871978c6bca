// Package eventbackend provides the uniform readiness-multiplexing
// interface the scheduler polls: Add/Modify/Remove/Wait over whatever
// the host OS provides (epoll on Linux, kqueue on Darwin, select
// elsewhere). Grounded on the original implementation's lev.h vtable
// (BackendOps: create/add/modify/remove/wait) and lev_epoll.c's exact
// edge-case policy, translated into a Go interface rather than a C
// function-pointer struct, and on joeycumines-go-utilpkg/eventloop's
// FastPoller for the epoll/kqueue translation technique.
package eventbackend

import "errors"

// Events is a bitmask of readiness conditions.
type Events int

const (
	Read Events = 1 << iota
	Write
	ErrorEvent
)

// Result reports one fd's readiness after a Wait call. Two underlying
// kevents for the same fd (kqueue reports read/write separately) are
// consolidated into a single Result with Events OR'd together, matching
// the original's consolidation policy so callers see one entry per fd
// per cycle regardless of backend.
type Result struct {
	FD     int
	Events Events
}

// MaxEventsPerWait caps how many ready events a single Wait call
// returns, matching the original epoll backend's MAX_EVENTS.
const MaxEventsPerWait = 64

// Backend multiplexes readiness across registered file descriptors.
type Backend interface {
	// Add registers fd for the given readiness events.
	Add(fd int, events Events) error
	// Modify changes the readiness events fd is registered for.
	Modify(fd int, events Events) error
	// Remove unregisters fd. Removing an fd that was never added is not
	// an error.
	Remove(fd int) error
	// Wait blocks up to timeoutMs milliseconds (0 = return immediately,
	// negative = block indefinitely) and returns the fds that became
	// ready. A signal interruption (EINTR) is swallowed and reported as
	// zero events, never as an error.
	Wait(timeoutMs int) ([]Result, error)
	// Close releases the backend's OS resources.
	Close() error
}

// ErrClosed is returned by any operation on a closed Backend.
var ErrClosed = errors.New("eventbackend: backend is closed")

// ErrNotRegistered is returned by Modify for an fd that was never Added.
var ErrNotRegistered = errors.New("eventbackend: fd not registered")

// ErrFDSetSizeExceeded is returned by the select backend's Add when fd is
// at or beyond FD_SETSIZE, which fd_set's fixed-size bit array cannot
// represent.
var ErrFDSetSizeExceeded = errors.New("eventbackend: fd exceeds FD_SETSIZE")
