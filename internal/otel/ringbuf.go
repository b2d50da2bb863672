package otel

import "sync"

// DefaultRingSize is the default ring buffer capacity.
const DefaultRingSize = 256

// RingBuffer is a fixed-size circular buffer of Events.
// Goroutine-safe for concurrent Push and read operations.
type RingBuffer struct {
	mu     sync.Mutex
	buf    []Event
	size   int
	head   int // next write position
	count  int // valid entries (0..size)
	totals map[EventKind]int
}

// NewRingBuffer creates a ring buffer with the given capacity.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &RingBuffer{
		buf:    make([]Event, size),
		size:   size,
		totals: make(map[EventKind]int),
	}
}

// Push adds an event, overwriting the oldest if full. The Extra map is
// copied so callers may reuse theirs.
func (r *RingBuffer) Push(e Event) {
	if e.Extra != nil {
		cp := make(map[string]any, len(e.Extra))
		for k, v := range e.Extra {
			cp[k] = v
		}
		e.Extra = cp
	}
	r.mu.Lock()
	r.buf[r.head] = e
	r.head = (r.head + 1) % r.size
	if r.count < r.size {
		r.count++
	}
	r.totals[e.Kind]++
	r.mu.Unlock()
}

// Last returns the n most recent events, oldest first.
// If n > Len, all events are returned. If n <= 0, nil.
func (r *RingBuffer) Last(n int) []Event {
	if n <= 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == 0 {
		return nil
	}
	if n > r.count {
		n = r.count
	}

	result := make([]Event, n)
	start := (r.head - n + r.size) % r.size
	if start+n <= r.size {
		copy(result, r.buf[start:start+n])
	} else {
		first := r.size - start
		copy(result, r.buf[start:])
		copy(result[first:], r.buf[:n-first])
	}
	return result
}

// Len returns the number of events currently buffered.
func (r *RingBuffer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Total returns how many events of kind were ever pushed, including ones
// already overwritten.
func (r *RingBuffer) Total(kind EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totals[kind]
}

// Cap returns the buffer capacity.
func (r *RingBuffer) Cap() int {
	return r.size
}
