package workerpool

import (
	"runtime"
	"sync"

	"github.com/lus-lang/lus/internal/logging"
)

const maxPoolThreads = 32

// Pool is a fixed pool of goroutines dequeuing runnable workers, the Go
// analogue of the original's OS-thread pool serviced by pool_dequeue.
type Pool struct {
	mu       sync.Mutex
	cond     *sync.Cond
	runnable []*Worker
	shutdown bool
	wg       sync.WaitGroup
}

func newPool(threads int) *Pool {
	p := &Pool{}
	p.cond = sync.NewCond(&p.mu)
	for i := 0; i < threads; i++ {
		p.wg.Add(1)
		go p.loop()
	}
	return p
}

func (p *Pool) loop() {
	defer p.wg.Done()
	for {
		w := p.dequeue()
		if w == nil {
			return
		}
		w.runBody()
	}
}

func (p *Pool) enqueue(w *Worker) {
	p.mu.Lock()
	p.runnable = append(p.runnable, w)
	p.mu.Unlock()
	p.cond.Signal()
}

func (p *Pool) dequeue() *Worker {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.runnable) == 0 && !p.shutdown {
		p.cond.Wait()
	}
	if len(p.runnable) == 0 {
		return nil
	}
	w := p.runnable[0]
	p.runnable = p.runnable[1:]
	return w
}

// Shutdown sets the pool's shutdown flag and wakes every pool goroutine
// so it exits once its current worker (if any) finishes.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.shutdown = true
	p.mu.Unlock()
	p.cond.Broadcast()
	p.wg.Wait()
}

var (
	globalOnce sync.Once
	globalPool *Pool
)

// Global returns the lazily initialized, process-global worker pool,
// sized min(NumCPU, 32) on first use.
func Global() *Pool {
	globalOnce.Do(func() {
		n := runtime.NumCPU()
		if n > maxPoolThreads {
			n = maxPoolThreads
		}
		if n < 1 {
			n = 1
		}
		globalPool = newPool(n)
		logging.Op().Debug("worker pool initialized", "threads", n)
	})
	return globalPool
}
