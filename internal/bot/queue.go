package bot

import "sync"

// workQueue runs submitted work per chat in FIFO order. Work for distinct
// chats runs concurrently; work for one chat never overlaps or reorders.
type workQueue struct {
	mu     sync.Mutex
	queues map[int64][]func()
	active map[int64]bool
}

func newWorkQueue() *workQueue {
	return &workQueue{
		queues: make(map[int64][]func()),
		active: make(map[int64]bool),
	}
}

func (q *workQueue) submit(chatID int64, fn func()) {
	q.mu.Lock()
	q.queues[chatID] = append(q.queues[chatID], fn)
	if q.active[chatID] {
		q.mu.Unlock()
		return
	}
	q.active[chatID] = true
	q.mu.Unlock()

	go q.drain(chatID)
}

func (q *workQueue) drain(chatID int64) {
	for {
		q.mu.Lock()
		pending := q.queues[chatID]
		if len(pending) == 0 {
			delete(q.queues, chatID)
			delete(q.active, chatID)
			q.mu.Unlock()
			return
		}
		fn := pending[0]
		q.queues[chatID] = pending[1:]
		q.mu.Unlock()

		fn()
	}
}
