// Package queue implements the outbound message queue: an unbounded,
// multi-producer, single-consumer FIFO of opaque byte messages.
//
// Producers hold *Producer handles. The queue is closed once every handle
// has been closed; that closure is the only way the consumer learns it should
// stop. The consumer polls with Pop and waits on Ready.
package queue

import (
	"errors"
	"sync"
)

// ErrClosed is returned when enqueueing through a closed handle or after the
// consumer has gone away.
var ErrClosed = errors.New("queue: closed")

// Status is the outcome of a Pop.
type Status int

const (
	// Empty means no message is pending and at least one producer is open.
	Empty Status = iota
	// Pending means a message was returned.
	Pending
	// Drained means every producer is closed and no message is left.
	Drained
)

func (s Status) String() string {
	switch s {
	case Empty:
		return "empty"
	case Pending:
		return "pending"
	case Drained:
		return "drained"
	default:
		return "unknown"
	}
}

// Queue is the consumer end.
type Queue struct {
	mu        sync.Mutex
	items     [][]byte
	head      int
	producers int
	closed    bool
	stopped   bool
	ready     chan struct{}
}

// Producer is one handle on the producer end. Handles are safe for concurrent
// use and may be cloned; the queue closes when the last one is closed.
type Producer struct {
	q    *Queue
	mu   sync.Mutex
	done bool
}

// New creates a queue with a single producer handle.
func New() (*Queue, *Producer) {
	q := &Queue{
		producers: 1,
		ready:     make(chan struct{}, 1),
	}
	return q, &Producer{q: q}
}

// Enqueue appends msg to the queue. The queue takes ownership of msg.
// It never blocks.
func (p *Producer) Enqueue(msg []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return ErrClosed
	}
	return p.q.push(msg)
}

// Clone returns a new handle on the same queue.
func (p *Producer) Clone() (*Producer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return nil, ErrClosed
	}
	p.q.mu.Lock()
	p.q.producers++
	p.q.mu.Unlock()
	return &Producer{q: p.q}, nil
}

// Close releases the handle. Closing a handle twice has no further effect.
// Once every handle is closed the consumer observes Drained after the
// remaining messages.
func (p *Producer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return
	}
	p.done = true

	q := p.q
	q.mu.Lock()
	q.producers--
	last := q.producers == 0
	if last {
		q.closed = true
	}
	q.mu.Unlock()
	if last {
		q.signal()
	}
}

func (q *Queue) push(msg []byte) error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return ErrClosed
	}
	q.items = append(q.items, msg)
	q.mu.Unlock()
	q.signal()
	return nil
}

func (q *Queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Pop removes the oldest message without blocking.
func (q *Queue) Pop() ([]byte, Status) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head < len(q.items) {
		msg := q.items[q.head]
		q.items[q.head] = nil
		q.head++
		if q.head == len(q.items) {
			q.items = q.items[:0]
			q.head = 0
		}
		return msg, Pending
	}
	if q.closed {
		return nil, Drained
	}
	return nil, Empty
}

// Ready receives a value after a push or after the last producer closes.
// Spurious wakeups are possible; callers re-check with Pop.
func (q *Queue) Ready() <-chan struct{} {
	return q.ready
}

// Closed reports whether every producer handle has been closed.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the number of pending messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// Stop detaches the consumer. Later Enqueue calls fail with ErrClosed and
// pending messages are discarded.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stopped = true
	q.items = nil
	q.head = 0
}
