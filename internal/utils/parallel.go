package utils

import (
	"sync"
)

// RunParallel executes tasks concurrently and returns results and errors by task index.
func RunParallel[T any](tasks []func() (T, error)) ([]T, []error) {
	var wg sync.WaitGroup
	results := make([]T, len(tasks))
	errs := make([]error, len(tasks))

	wg.Add(len(tasks))
	for i, task := range tasks {
		go func(index int, t func() (T, error)) {
			defer wg.Done()
			results[index], errs[index] = t()
		}(i, task)
	}

	wg.Wait()
	return results, errs
}

// WorkerPool runs queued tasks on a fixed number of goroutines.
type WorkerPool struct {
	taskChan chan func()
	wg       sync.WaitGroup
	workers  sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewWorkerPool starts maxWorkers workers reading from a queue of queueSize tasks.
func NewWorkerPool(maxWorkers, queueSize int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	pool := &WorkerPool{
		taskChan: make(chan func(), queueSize),
	}

	pool.workers.Add(maxWorkers)
	for i := 0; i < maxWorkers; i++ {
		go pool.worker()
	}
	return pool
}

func (p *WorkerPool) worker() {
	defer p.workers.Done()
	for task := range p.taskChan {
		task()
		p.wg.Done()
	}
}

// AddTask queues task, blocking while the queue is full. It reports false once the pool is closed.
func (p *WorkerPool) AddTask(task func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	p.wg.Add(1)
	p.taskChan <- task
	return true
}

// TryAddTask queues task only if there is room right now.
func (p *WorkerPool) TryAddTask(task func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	p.wg.Add(1)
	select {
	case p.taskChan <- task:
		return true
	default:
		p.wg.Done()
		return false
	}
}

// Wait waits for all queued tasks to complete
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}

// Close stops accepting tasks, lets the workers drain the queue and waits for them.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.taskChan)
	p.mu.Unlock()
	p.workers.Wait()
}
