package gossip

import "sync"

// queue runs callbacks one at a time in submission order on its own
// goroutine. Memberlist invokes delegates while holding internal locks, so
// delegates only enqueue.
type queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []func()
	running bool
	done    chan struct{}
}

func newQueue() *queue {
	q := &queue{running: true, done: make(chan struct{})}
	q.cond = sync.NewCond(&q.mu)
	go q.loop()
	return q
}

func (q *queue) push(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.running {
		return
	}
	q.items = append(q.items, fn)
	q.cond.Signal()
}

// stop discards pending callbacks and waits for the running one.
func (q *queue) stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	q.items = nil
	q.cond.Broadcast()
	q.mu.Unlock()
	<-q.done
}

func (q *queue) loop() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for q.running && len(q.items) == 0 {
			q.cond.Wait()
		}
		if !q.running {
			q.mu.Unlock()
			return
		}
		fn := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()

		fn()
	}
}
