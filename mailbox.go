package stoplight

import "sync"

// Mailbox is a single-slot blocking handoff between one producer and
// any number of consumers. Send never blocks beyond the lock and
// replaces whatever is still buffered, so a consumer always observes
// the most recently sent value rather than a stale queued one.
// Receive blocks until a value is available; each sent value is
// consumed by exactly one Receive.
type Mailbox[T any] struct {
	mu    sync.Mutex
	cond  *sync.Cond
	queue []T
}

func NewMailbox[T any]() *Mailbox[T] {
	m := &Mailbox[T]{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Send buffers v as the sole pending value, discarding any backlog,
// and wakes one blocked Receive.
func (m *Mailbox[T]) Send(v T) {
	m.mu.Lock()
	m.queue = m.queue[:0]
	m.queue = append(m.queue, v)
	m.mu.Unlock()
	m.cond.Signal()
}

// Receive blocks until the mailbox is non-empty, then removes and
// returns the most recently sent value.
func (m *Mailbox[T]) Receive() T {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.queue) == 0 {
		m.cond.Wait()
	}
	return m.pop()
}

// TryReceive is the non-blocking variant of Receive.
func (m *Mailbox[T]) TryReceive() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		var zero T
		return zero, false
	}
	return m.pop(), true
}

// pop removes the newest element. Callers hold m.mu.
func (m *Mailbox[T]) pop() T {
	last := len(m.queue) - 1
	v := m.queue[last]
	var zero T
	m.queue[last] = zero
	m.queue = m.queue[:last]
	return v
}
