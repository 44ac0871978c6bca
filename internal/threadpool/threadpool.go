// Package threadpool runs blocking work off the scheduler's thread.
// Grounded on lworkerlib.h's worker-thread loop (claim head task, run its
// work function, mark done, append to completion queue, signal) and on
// internal/asyncqueue's goroutine-pool/worker-loop shape, adapted here to
// a fixed-size pool of plain goroutines with a completion queue a
// scheduler poll cycle can drain non-blockingly.
package threadpool

import (
	"sync"

	"github.com/lus-lang/lus/internal/logging"
)

// Task is a unit of blocking work submitted to the pool. Work runs on a
// pool goroutine and must not touch VM state, arenas, or pledge stores;
// it operates only on its own closure state.
type Task struct {
	Work   func() (any, error)
	mu     sync.Mutex
	done   bool
	result any
	err    error
}

// Done reports whether the task has finished running.
func (t *Task) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// Result returns the task's result and error once Done reports true.
// Calling it before completion returns the zero value and a nil error.
func (t *Task) Result() (any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result, t.err
}

func (t *Task) finish(result any, err error) {
	t.mu.Lock()
	t.result = result
	t.err = err
	t.done = true
	t.mu.Unlock()
}

const defaultThreads = 4

// Pool is a fixed-size pool of worker goroutines draining a shared queue.
// Completed tasks collect on a completion queue; Poll drains it
// non-blockingly and NotifyFD exposes a readable fd a scheduler's event
// backend can merge into its wait, one byte per completion, matching the
// original pool's notification-pipe discipline.
type Pool struct {
	queue chan *Task

	mu         sync.Mutex
	completed  []*Task
	shutdown   bool
	wg         sync.WaitGroup
	notifyR    *notifyPipe
	numThreads int
}

// New creates and starts a pool of numThreads worker goroutines. A
// non-positive numThreads uses the default of 4, matching the original's
// default thread count.
func New(numThreads int) *Pool {
	if numThreads <= 0 {
		numThreads = defaultThreads
	}
	p := &Pool{
		queue:      make(chan *Task, 256),
		numThreads: numThreads,
		notifyR:    newNotifyPipe(),
	}
	for i := 0; i < numThreads; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for task := range p.queue {
		if task == nil {
			return
		}

		p.mu.Lock()
		shuttingDown := p.shutdown
		p.mu.Unlock()
		if shuttingDown {
			// Destroy has already been called: this task was still
			// buffered in the channel when shutdown was signaled. Leave
			// it unrun (Done stays false) rather than executing work
			// after the pool was told to stop.
			continue
		}

		result, err := runTask(task)
		task.finish(result, err)

		p.mu.Lock()
		p.completed = append(p.completed, task)
		p.mu.Unlock()
		p.notifyR.signal()
	}
	logging.Op().Debug("threadpool worker exiting", "worker_id", id)
}

func runTask(task *Task) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicToError(r)
		}
	}()
	return task.Work()
}

// Submit enqueues task for execution and returns immediately. The caller
// retains ownership of task and observes completion via Task.Done or by
// finding it in a subsequent Poll.
func (p *Pool) Submit(task *Task) {
	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	p.queue <- task
}

// Poll drains up to max completed tasks from the completion queue.
func (p *Pool) Poll(max int) []*Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	if max <= 0 || max > len(p.completed) {
		max = len(p.completed)
	}
	out := p.completed[:max]
	p.completed = p.completed[max:]
	return out
}

// NotifyFD returns the read end of a non-blocking pipe the pool writes
// one byte to on every completion, for merging into an event backend's
// wait set. Returns -1 if the pipe could not be created.
func (p *Pool) NotifyFD() int {
	return p.notifyR.readFD()
}

// Destroy signals shutdown, stops accepting new tasks, and waits for all
// in-flight workers to drain. Already-queued but unclaimed tasks are
// simply never run; their Done() remains false.
func (p *Pool) Destroy() {
	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		return
	}
	p.shutdown = true
	p.mu.Unlock()

	close(p.queue)
	p.wg.Wait()
	p.notifyR.close()
}
