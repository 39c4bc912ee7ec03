// Package wpaqueue serializes request/reply correlation over the single,
// non-multiplexed control socket stream to wpa_supplicant.
package wpaqueue

import (
	"sync"

	"github.com/wfdcast/miracastd/internal/wpamsg"
)

// Completion is invoked with the reply bound to a previously enqueued
// request. A FAIL reply is delivered here like any other result; callers
// inspect msg.IsFail() themselves (see wpamsg.Message).
type Completion func(msg wpamsg.Message)

type entry struct {
	msg  wpamsg.Message
	done Completion
}

// Queue is a FIFO of outgoing requests. At most one entry is ever "in
// flight" (written to the socket and awaiting a reply); Handle completes
// the head in request order and advances to the next entry, if any.
//
// All the mutable state is behind mu, but user callbacks (write, onEvent,
// onWriteErr, and each entry's Completion) are always invoked outside the
// lock so that a completion may safely call Enqueue again — the new entry
// lands behind whatever is still pending, never ahead of it.
type Queue struct {
	mu          sync.Mutex
	pending     []entry
	headWritten bool

	write      func(wpamsg.Message) error
	onEvent    func(wpamsg.Message)
	onWriteErr func(error)
}

// New creates a Queue. write is called to put a request on the wire;
// onEvent receives unsolicited events as they arrive; onWriteErr receives
// socket-write failures out of band (never delivered to a Completion,
// per the transport-layer failure semantics of the control protocol).
func New(write func(wpamsg.Message) error, onEvent func(wpamsg.Message), onWriteErr func(error)) *Queue {
	return &Queue{write: write, onEvent: onEvent, onWriteErr: onWriteErr}
}

// Enqueue appends a request to the FIFO. If nothing is currently in
// flight, it is written immediately.
func (q *Queue) Enqueue(msg wpamsg.Message, done Completion) {
	q.mu.Lock()
	q.pending = append(q.pending, entry{msg: msg, done: done})
	q.mu.Unlock()

	q.writeHead()
}

// writeHead writes the current queue head if nothing is already on the
// wire. It is idempotent: calling it when a write is already outstanding,
// or when the queue is empty, is a no-op.
func (q *Queue) writeHead() {
	q.mu.Lock()
	if q.headWritten || len(q.pending) == 0 {
		q.mu.Unlock()
		return
	}
	q.headWritten = true
	head := q.pending[0]
	q.mu.Unlock()

	if err := q.write(head.msg); err != nil && q.onWriteErr != nil {
		q.onWriteErr(err)
	}
}

// Handle processes a message read from the control socket: events are
// routed to the event delegate, anything else completes the current head
// of the queue and advances to the next entry.
func (q *Queue) Handle(msg wpamsg.Message) {
	if msg.IsEvent() {
		if q.onEvent != nil {
			q.onEvent(msg)
		}
		return
	}

	q.mu.Lock()
	if len(q.pending) == 0 || !q.headWritten {
		// No in-flight request to match this reply against. The control
		// socket protocol gives us no request-id to resynchronize on;
		// replies are bound to queue order, not content, so this can
		// only happen if the supplicant sent an unexpected extra line.
		q.mu.Unlock()
		return
	}
	head := q.pending[0]
	q.pending = q.pending[1:]
	q.headWritten = false
	q.mu.Unlock()

	if head.done != nil {
		head.done(msg)
	}

	q.writeHead()
}

// Len reports the number of entries still pending, including one in
// flight if any. Exposed for tests and introspection only.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
