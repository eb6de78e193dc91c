// Package parallel runs independent solver jobs on a bounded set of
// goroutines. A Store is single-threaded, so parallelism in fdcore means one
// store per job; this package only schedules the jobs.
package parallel

import (
	"context"
	"errors"
	"runtime"
	"sync"
)

// ErrPoolShutdown is returned when trying to submit tasks to a shutdown pool.
var ErrPoolShutdown = errors.New("worker pool has been shutdown")

// WorkerPool manages a fixed number of goroutines. Submit blocks while all
// workers are busy and the buffer is full.
type WorkerPool struct {
	maxWorkers   int
	taskChan     chan func()
	workerWg     sync.WaitGroup
	taskWg       sync.WaitGroup
	shutdownChan chan struct{}
	once         sync.Once
}

// NewWorkerPool creates a new worker pool with the specified number of workers.
// If maxWorkers is 0 or negative, it defaults to the number of CPU cores.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}

	pool := &WorkerPool{
		maxWorkers:   maxWorkers,
		taskChan:     make(chan func(), maxWorkers*2),
		shutdownChan: make(chan struct{}),
	}

	for i := 0; i < maxWorkers; i++ {
		pool.workerWg.Add(1)
		go pool.worker()
	}

	return pool
}

// Size returns the number of workers.
func (wp *WorkerPool) Size() int { return wp.maxWorkers }

func (wp *WorkerPool) worker() {
	defer wp.workerWg.Done()

	for {
		select {
		case task := <-wp.taskChan:
			task()
			wp.taskWg.Done()
		case <-wp.shutdownChan:
			return
		}
	}
}

// Submit queues a task. It fails when ctx is done or the pool is shut down.
func (wp *WorkerPool) Submit(ctx context.Context, task func()) error {
	select {
	case <-wp.shutdownChan:
		return ErrPoolShutdown
	default:
	}
	wp.taskWg.Add(1)
	select {
	case wp.taskChan <- task:
		return nil
	case <-ctx.Done():
		wp.taskWg.Done()
		return ctx.Err()
	case <-wp.shutdownChan:
		wp.taskWg.Done()
		return ErrPoolShutdown
	}
}

// Wait blocks until every submitted task has finished.
func (wp *WorkerPool) Wait() {
	wp.taskWg.Wait()
}

// Shutdown waits for submitted tasks and stops the workers. It is safe to
// call more than once.
func (wp *WorkerPool) Shutdown() {
	wp.once.Do(func() {
		wp.taskWg.Wait()
		close(wp.shutdownChan)
		wp.workerWg.Wait()
	})
}

// Map runs fn(i) for i in [0, n) on the pool and returns the results in
// index order. It stops submitting once ctx is done and returns ctx's error.
func Map[T any](ctx context.Context, wp *WorkerPool, n int, fn func(i int) T) ([]T, error) {
	out := make([]T, n)
	var err error
	for i := 0; i < n; i++ {
		if err = wp.Submit(ctx, func() { out[i] = fn(i) }); err != nil {
			break
		}
	}
	wp.Wait()
	return out, err
}
