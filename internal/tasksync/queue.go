package tasksync

import "sync"

// taskQueue выстраивает мутации одной задачи в очередь; разные задачи не блокируют друг друга
type taskQueue struct {
	mtx   sync.Mutex
	locks map[string]*queueEntry
}

type queueEntry struct {
	mu   sync.Mutex
	refs int
}

func newTaskQueue() *taskQueue {
	return &taskQueue{locks: make(map[string]*queueEntry)}
}

func (q *taskQueue) acquire(code string) func() {
	q.mtx.Lock()
	e, ok := q.locks[code]
	if !ok {
		e = &queueEntry{}
		q.locks[code] = e
	}
	e.refs++
	q.mtx.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()

		q.mtx.Lock()
		e.refs--
		if e.refs == 0 {
			delete(q.locks, code)
		}
		q.mtx.Unlock()
	}
}
