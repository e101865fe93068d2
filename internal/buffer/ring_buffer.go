// Package buffer provides the scrollback buffer kept for terminal output.
package buffer

import (
	"bytes"
	"sync"
)

// RingBuffer is a thread-safe circular byte buffer holding the most recent
// output up to its capacity. Older bytes are overwritten once it is full.
type RingBuffer struct {
	buf   []byte
	start int
	size  int
	mu    sync.RWMutex
}

// NewRingBuffer creates a RingBuffer with the given capacity.
// A non-positive capacity defaults to 1.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &RingBuffer{buf: make([]byte, capacity)}
}

// Write appends p, discarding the oldest bytes when capacity is exceeded.
// It implements io.Writer and never fails.
func (rb *RingBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if n == 0 {
		return 0, nil
	}

	rb.mu.Lock()
	defer rb.mu.Unlock()

	capacity := len(rb.buf)
	if n >= capacity {
		copy(rb.buf, p[n-capacity:])
		rb.start = 0
		rb.size = capacity
		return n, nil
	}

	end := (rb.start + rb.size) % capacity
	first := copy(rb.buf[end:], p)
	copy(rb.buf, p[first:])

	rb.size += n
	if rb.size > capacity {
		rb.start = (rb.start + rb.size - capacity) % capacity
		rb.size = capacity
	}

	return n, nil
}

// Bytes returns a copy of the buffered data, oldest first.
func (rb *RingBuffer) Bytes() []byte {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.snapshotLocked()
}

// LastLine returns the last non-blank line of the buffered data with
// escape sequences and carriage returns removed, or "" when there is none.
func (rb *RingBuffer) LastLine() string {
	data := StripANSI(rb.Bytes())
	for len(data) > 0 {
		i := bytes.LastIndexByte(data, '\n')
		line := bytes.TrimSpace(bytes.TrimRight(data[i+1:], "\r"))
		if len(line) > 0 {
			return string(line)
		}
		if i < 0 {
			break
		}
		data = data[:i]
	}
	return ""
}

// Reset discards all buffered data.
func (rb *RingBuffer) Reset() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.start = 0
	rb.size = 0
}

// Len returns the number of buffered bytes.
func (rb *RingBuffer) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.size
}

// Cap returns the capacity of the buffer.
func (rb *RingBuffer) Cap() int {
	return len(rb.buf)
}

func (rb *RingBuffer) snapshotLocked() []byte {
	if rb.size == 0 {
		return nil
	}
	out := make([]byte, rb.size)
	n := copy(out, rb.buf[rb.start:min(rb.start+rb.size, len(rb.buf))])
	copy(out[n:], rb.buf[:rb.size-n])
	return out
}
