package utils

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunParallel_PreservesOrder(t *testing.T) {
	boom := errors.New("boom")
	tasks := []func() (int, error){
		func() (int, error) { return 1, nil },
		func() (int, error) { return 0, boom },
		func() (int, error) { return 3, nil },
	}

	results, errs := RunParallel(tasks)

	assert.Equal(t, []int{1, 0, 3}, results)
	assert.NoError(t, errs[0])
	assert.ErrorIs(t, errs[1], boom)
	assert.NoError(t, errs[2])
}

func TestWorkerPool_RunsAllTasks(t *testing.T) {
	pool := NewWorkerPool(3, 10)
	var n int64
	for i := 0; i < 10; i++ {
		assert.True(t, pool.AddTask(func() { atomic.AddInt64(&n, 1) }))
	}
	pool.Wait()
	assert.Equal(t, int64(10), atomic.LoadInt64(&n))
	pool.Close()
}

func TestWorkerPool_TryAddTaskDropsWhenFull(t *testing.T) {
	pool := NewWorkerPool(1, 1)
	release := make(chan struct{})
	started := make(chan struct{})

	assert.True(t, pool.AddTask(func() {
		close(started)
		<-release
	}))
	<-started
	assert.True(t, pool.TryAddTask(func() {}))
	assert.False(t, pool.TryAddTask(func() {}))

	close(release)
	pool.Close()
}

func TestWorkerPool_CloseDrainsAndRejects(t *testing.T) {
	pool := NewWorkerPool(2, 5)
	var n int64
	for i := 0; i < 5; i++ {
		pool.AddTask(func() { atomic.AddInt64(&n, 1) })
	}
	pool.Close()

	assert.Equal(t, int64(5), atomic.LoadInt64(&n))
	assert.False(t, pool.AddTask(func() {}))
	assert.False(t, pool.TryAddTask(func() {}))
	pool.Close()
}
