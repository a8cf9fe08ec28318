// Package mtlist provides the bounded multi-producer/single-consumer list
// used for every cross-thread mailbox in the core: SM TX/RX queues and
// per-worker background-request queues. Pushes are wait-free; pops are
// non-blocking try-pops, with a separate blocking Wait primitive for
// consumers that want to sleep instead of spin.
//
// Built on github.com/hayabusa-cloud/lfq's lock-free MPSC queue.
package mtlist

import (
	"context"

	"github.com/hayabusa-cloud/lfq"
)

// MtList is a bounded MPSC queue of T plus a coalesced wake-up signal so a
// single consumer can block instead of busy-polling.
type MtList[T any] struct {
	q    lfq.Queue[T]
	wake chan struct{}
}

// New builds an MtList with room for capacity items (rounded up to the next
// power of two by the underlying queue).
func New[T any](capacity int) *MtList[T] {
	return &MtList[T]{
		q:    lfq.NewMPSC[T](capacity),
		wake: make(chan struct{}, 1),
	}
}

// Push enqueues v. Wait-free: never blocks, returns lfq.ErrWouldBlock (via
// IsWouldBlock) if the list is full. Safe from any number of producers.
func (l *MtList[T]) Push(v T) error {
	err := l.q.Enqueue(&v)
	if err == nil {
		select {
		case l.wake <- struct{}{}:
		default:
		}
	}
	return err
}

// TryPop attempts a non-blocking dequeue. Only the single designated
// consumer goroutine may call this.
func (l *MtList[T]) TryPop() (T, bool) {
	v, err := l.q.Dequeue()
	if err != nil {
		var zero T
		return zero, false
	}
	return *v, true
}

// DrainAll pops every item currently available without blocking.
func (l *MtList[T]) DrainAll() []T {
	var out []T
	for {
		v, ok := l.TryPop()
		if !ok {
			return out
		}
		out = append(out, v)
	}
}

// Wait blocks until a push has occurred since the last Wait/TryPop drained
// the list, or ctx is done. It is a hint, not a guarantee: a woken consumer
// must still TryPop in a loop, since a wake-up coalesces multiple pushes.
func (l *MtList[T]) Wait(ctx context.Context) {
	select {
	case <-l.wake:
	case <-ctx.Done():
	}
}

// Drain signals the underlying lock-free queue that no further Push calls
// will occur, so a shutting-down consumer can fully drain it without
// tripping the FAA threshold mechanism's livelock guard.
func (l *MtList[T]) Drain() {
	if d, ok := l.q.(lfq.Drainer); ok {
		d.Drain()
	}
}
