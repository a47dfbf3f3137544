package engine

import "sync"

// messageQueue is a thread-safe FIFO queue feeding the Run loop.
//
// The queue is unbounded so change callbacks never block the host's
// observation machinery. A buffered signal channel (size 1) coalesces
// wake-ups for context-aware waiting in Run.
type messageQueue struct {
	mu       sync.Mutex
	messages []Message
	closed   bool
	signal   chan struct{}
}

func newMessageQueue() *messageQueue {
	return &messageQueue{
		messages: make([]Message, 0, 16),
		signal:   make(chan struct{}, 1),
	}
}

// Enqueue adds a message to the back of the queue.
// Returns false if the queue is closed.
func (q *messageQueue) Enqueue(m Message) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.messages = append(q.messages, m)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes and returns the front message without blocking.
func (q *messageQueue) TryDequeue() (Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.messages) == 0 {
		return nil, false
	}
	m := q.messages[0]
	q.messages[0] = nil // release for GC
	if len(q.messages) == 1 {
		q.messages = q.messages[:0]
	} else {
		q.messages = q.messages[1:]
	}
	return m, true
}

// DropLeadingChanges removes ChangeMsg values at the front of the queue and
// returns how many were dropped. One pass covers any number of adjacent
// change notifications.
func (q *messageQueue) DropLeadingChanges() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for n < len(q.messages) {
		if _, ok := q.messages[n].(ChangeMsg); !ok {
			break
		}
		q.messages[n] = nil
		n++
	}
	q.messages = q.messages[n:]
	return n
}

// Wait returns a channel that signals when messages may be available.
// The channel is closed when the queue is closed.
func (q *messageQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *messageQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}

// Closed reports whether Close has been called.
func (q *messageQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close signals that no more messages will be enqueued.
func (q *messageQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
