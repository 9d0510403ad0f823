package sbus

import (
	"context"
	"sync/atomic"
)

// Queue hands values to Handler on a separate goroutine so the reader
// never waits for the consumer. Values arriving while the queue is full
// are dropped.
type Queue struct {
	Handler ValueHandler

	ch      chan Value
	dropped atomic.Uint64
}

// NewQueue creates a Queue holding up to size values.
func NewQueue(h ValueHandler, size int) *Queue {
	if size <= 0 {
		size = 1
	}
	return &Queue{Handler: h, ch: make(chan Value, size)}
}

// HandleValue implements ValueHandler.
func (q *Queue) HandleValue(ctx context.Context, v Value) {
	select {
	case q.ch <- v:
	default:
		q.dropped.Add(1)
	}
}

// Dropped returns the number of values dropped because the queue was full.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}

// Len returns the number of values waiting.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Run implements Runnable.
func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case v := <-q.ch:
			if h := q.Handler; h != nil {
				h.HandleValue(ctx, v)
			}
		}
	}
}
