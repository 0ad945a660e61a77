package ws

import "sync"

// eventQueue is an unbounded FIFO feeding the Events() channel. The receive
// loop must never block on a slow consumer, and every classified frame must
// reach both handlers and the channel, so frames are staged in a growable
// slice and pumped out by a dedicated goroutine. After close the pump drains
// remaining items before closing the channel.
type eventQueue struct {
	mu        sync.Mutex
	items     []Event
	wake      chan struct{}
	closed    bool
	closeOnce sync.Once
	out       chan Event
}

func newEventQueue() *eventQueue {
	q := &eventQueue{
		wake: make(chan struct{}, 1),
		out:  make(chan Event),
	}
	go q.pump()
	return q
}

func (q *eventQueue) push(ev Event) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, ev)
	q.mu.Unlock()
	q.signal()
}

func (q *eventQueue) close() {
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()
		q.signal()
	})
}

func (q *eventQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *eventQueue) events() <-chan Event {
	return q.out
}

func (q *eventQueue) pump() {
	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			closed := q.closed
			q.mu.Unlock()
			if closed {
				close(q.out)
				return
			}
			<-q.wake
			continue
		}
		ev := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()
		q.out <- ev
	}
}
