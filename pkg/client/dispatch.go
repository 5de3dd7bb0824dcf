package client

import "sync"

// listenerQueue drives one event listener from its own goroutine. Events are
// buffered in an unbounded FIFO so the reader can always hand an event off
// without waiting, and one stalled listener cannot delay another. Events
// already queued when close is requested are still delivered; the goroutine
// exits once the queue drains.
type listenerQueue struct {
	conn *Connection
	fn   EventListener

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []queuedEvent
	closed bool
}

type queuedEvent struct {
	name   string
	params map[string]any
}

func newListenerQueue(conn *Connection, fn EventListener) *listenerQueue {
	q := &listenerQueue{conn: conn, fn: fn}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

func (q *listenerQueue) push(event string, params map[string]any) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.queue = append(q.queue, queuedEvent{name: event, params: params})
	q.cond.Signal()
}

func (q *listenerQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.cond.Signal()
}

func (q *listenerQueue) run() {
	for {
		q.mu.Lock()
		for len(q.queue) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.queue) == 0 {
			q.mu.Unlock()
			return
		}
		ev := q.queue[0]
		q.queue = q.queue[1:]
		q.mu.Unlock()

		q.invoke(ev)
	}
}

// invoke runs the listener for one event, isolating panics so a failing
// listener never takes down the dispatch goroutine or the reader.
func (q *listenerQueue) invoke(ev queuedEvent) {
	defer func() {
		if r := recover(); r != nil {
			q.conn.logf("Event listener panicked on %q: %v", ev.name, r)
			q.conn.metrics.RecordListenerPanic()
		}
	}()
	q.fn(ev.name, ev.params)
}
