package workerpool

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/lus-lang/lus/internal/pledge"
)

// Status mirrors the original's WorkerStatus enum.
type Status int

const (
	StatusRunning Status = iota
	StatusBlocked
	StatusDead
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusBlocked:
		return "blocked"
	case StatusDead:
		return "dead"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Runner executes a worker's script body. It is the runtime core's hook
// into a VM state; workerpool itself has no notion of bytecode. Run
// receives the worker (so the body can call Message/Peek), the worker's
// deep-copied pledge store, and its deserialized initial arguments.
type Runner interface {
	Run(w *Worker, pledges *pledge.Store, args []Value) error
}

// selectContext is a shared {mutex, condition, ready flag} a parent
// attaches to several workers before a multi-worker Receive. The ready
// flag is set before the signal to avoid a lost wakeup.
type selectContext struct {
	mu    sync.Mutex
	cond  *sync.Cond
	ready bool
}

func newSelectContext() *selectContext {
	c := &selectContext{}
	c.cond = sync.NewCond(&c.mu)
	return c
}

func (c *selectContext) signal() {
	c.mu.Lock()
	c.ready = true
	c.mu.Unlock()
	c.cond.Signal()
}

func (c *selectContext) waitUntilReady() {
	c.mu.Lock()
	for !c.ready {
		c.cond.Wait()
	}
	c.ready = false
	c.mu.Unlock()
}

// Worker is one isolated script run in parallel with its own pledge
// store and mailboxes.
type Worker struct {
	ID         string
	scriptPath string
	runner     Runner
	pledges    *pledge.Store
	nargs      int

	inbox  *mailbox
	outbox *mailbox

	statusMu sync.Mutex
	status   Status
	errMsg   string

	recvCtxMu sync.Mutex
	recvCtx   *selectContext

	refcount atomic.Int32
}

// Create allocates a Worker State, serializes each initial argument into
// its inbox, deep-copies the parent's pledge store, and enqueues the
// worker onto pool for a pool goroutine to run. The returned Worker has
// a refcount of 1 held by the caller.
func Create(pool *Pool, runner Runner, parentPledges *pledge.Store, scriptPath string, args []Value) (*Worker, error) {
	w := &Worker{
		ID:         uuid.NewString(),
		scriptPath: scriptPath,
		runner:     runner,
		pledges:    parentPledges.Copy(),
		inbox:      newMailbox(),
		outbox:     newMailbox(),
		status:     StatusRunning,
		nargs:      len(args),
	}
	w.refcount.Store(1)
	for _, a := range args {
		msg, err := newMessage(a)
		if err != nil {
			return nil, fmt.Errorf("workerpool: serializing initial argument: %w", err)
		}
		w.inbox.push(msg)
	}
	pool.enqueue(w)
	return w, nil
}

// Status returns the worker's current lifecycle status.
func (w *Worker) Status() Status {
	w.statusMu.Lock()
	defer w.statusMu.Unlock()
	return w.status
}

// Error returns the worker's recorded error message, if any.
func (w *Worker) Error() string {
	w.statusMu.Lock()
	defer w.statusMu.Unlock()
	return w.errMsg
}

func (w *Worker) setStatus(s Status) {
	w.statusMu.Lock()
	w.status = s
	w.statusMu.Unlock()
}

func (w *Worker) setError(msg string) {
	w.statusMu.Lock()
	w.status = StatusError
	w.errMsg = msg
	w.statusMu.Unlock()
}

// Send serializes value and appends it to the worker's inbox
// (parent->worker direction), signaling the inbox condition.
func (w *Worker) Send(value Value) error {
	msg, err := newMessage(value)
	if err != nil {
		return err
	}
	w.inbox.push(msg)
	return nil
}

// Peek blocks until the next inbox message arrives, then deserializes
// it. Called from inside the worker body.
func (w *Worker) Peek() (Value, error) {
	msg := w.inbox.popBlocking()
	defer msg.Release()
	return msg.Value()
}

// Message serializes value into the worker's outbox (worker->parent
// direction) and signals any attached select context. Called from
// inside the worker body.
func (w *Worker) Message(value Value) error {
	msg, err := newMessage(value)
	if err != nil {
		return err
	}
	w.outbox.push(msg)
	w.signalSelect()
	return nil
}

func (w *Worker) signalSelect() {
	w.recvCtxMu.Lock()
	ctx := w.recvCtx
	w.recvCtxMu.Unlock()
	if ctx != nil {
		ctx.signal()
	}
}

func (w *Worker) attachSelectContext(ctx *selectContext) {
	w.recvCtxMu.Lock()
	w.recvCtx = ctx
	w.recvCtxMu.Unlock()
}

func (w *Worker) detachSelectContext(ctx *selectContext) {
	w.recvCtxMu.Lock()
	if w.recvCtx == ctx {
		w.recvCtx = nil
	}
	w.recvCtxMu.Unlock()
}

// Retain increments the worker's handle refcount.
func (w *Worker) Retain() {
	w.refcount.Add(1)
}

// Release decrements the worker's handle refcount; at zero the worker's
// mailboxes are drained and their arenas released.
func (w *Worker) Release() {
	if w.refcount.Add(-1) == 0 {
		w.inbox.drain()
		w.outbox.drain()
	}
}

// runBody is invoked by a pool goroutine. It pops the worker's initial
// arguments off the inbox, invokes the runner, and records the outcome.
func (w *Worker) runBody() {
	args := make([]Value, 0, w.nargs)
	for i := 0; i < w.nargs; i++ {
		msg := w.inbox.popBlocking()
		v, err := msg.Value()
		msg.Release()
		if err != nil {
			w.setError(err.Error())
			w.signalSelect()
			return
		}
		args = append(args, v)
	}

	if err := w.runner.Run(w, w.pledges, args); err != nil {
		w.setError(err.Error())
	} else {
		w.setStatus(StatusDead)
	}
	w.signalSelect()
}

// Receive blocks until the first worker in positional order has an
// outbox message or has errored, consumes exactly that one message (or
// raises that one error), and returns one value per worker with nil for
// every worker but the one that answered. Later-ready workers' outbox
// entries are left untouched for a future call.
func Receive(workers ...*Worker) ([]Value, error) {
	ctx := newSelectContext()
	for _, w := range workers {
		w.attachSelectContext(ctx)
	}
	defer func() {
		for _, w := range workers {
			w.detachSelectContext(ctx)
		}
	}()

	for {
		for i, w := range workers {
			if w.Status() == StatusError {
				return nil, fmt.Errorf("worker %s: %s", w.ID, w.Error())
			}
			if msg, ok := w.outbox.tryPop(); ok {
				v, err := msg.Value()
				msg.Release()
				if err != nil {
					return nil, err
				}
				results := make([]Value, len(workers))
				results[i] = v
				return results, nil
			}
		}
		ctx.waitUntilReady()
	}
}
