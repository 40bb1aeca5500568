// Package buffer defines the byte buffers handed out by the pool and the
// factory that creates and classifies them.
//
// A buffer has a fixed capacity, a fill level, a storage kind (heap array,
// direct memory or an indirect wrapper around a heap array) and a service
// role (header or body). Buffers are not safe for concurrent mutation; they
// are owned by one goroutine between checkout and release. The only field
// read concurrently is the last-used timestamp, which the idle sweeper
// inspects while the buffer sits in a pool queue.
package buffer

import (
	"errors"
	"sync/atomic"
)

var (
	// ErrAllocation is returned when the memory behind a buffer cannot be obtained.
	ErrAllocation = errors.New("buffer allocation failed")

	// ErrInvalidSize is returned for negative buffer sizes.
	ErrInvalidSize = errors.New("invalid buffer size")

	// ErrBufferFull is returned by Write when the data does not fit.
	ErrBufferFull = errors.New("buffer full")

	// ErrImmutable is returned by Write on an immutable buffer.
	ErrImmutable = errors.New("buffer is immutable")
)

// Buffer is the contract shared by every storage implementation.
type Buffer interface {
	// Capacity is fixed at creation.
	Capacity() int

	// Len is the current fill level.
	Len() int

	// Clear resets the fill level to zero. It does nothing on an immutable buffer.
	Clear()

	// Kind is the storage kind the buffer was tagged with when created.
	Kind() StorageKind

	Role() ServiceRole
	SetRole(ServiceRole)

	// IsVolatile reports whether the buffer views memory it does not own.
	// Volatile buffers are never pooled.
	IsVolatile() bool

	// IsImmutable reports whether the buffer is read-only. Immutable
	// buffers are never pooled.
	IsImmutable() bool

	// LastUsed returns the release timestamp in monotonic milliseconds,
	// or 0 if the buffer was never released.
	LastUsed() int64
	SetLastUsed(int64)
}

// meta holds the bookkeeping common to all implementations.
type meta struct {
	kind      StorageKind
	role      ServiceRole
	volatile  bool
	immutable bool
	lastUsed  atomic.Int64
}

func (m *meta) Kind() StorageKind { return m.kind }
func (m *meta) Role() ServiceRole { return m.role }
func (m *meta) SetRole(r ServiceRole) { m.role = r }
func (m *meta) IsVolatile() bool { return m.volatile }
func (m *meta) IsImmutable() bool { return m.immutable }
func (m *meta) LastUsed() int64 { return m.lastUsed.Load() }
func (m *meta) SetLastUsed(ts int64) { m.lastUsed.Store(ts) }

// MarkVolatile flags the buffer so that the pool drops it on release.
func (m *meta) MarkVolatile() { m.volatile = true }

// MarkImmutable makes the buffer read-only. Writes fail and Clear is a no-op.
func (m *meta) MarkImmutable() { m.immutable = true }

// region is a fixed-capacity byte area with a fill index.
type region struct {
	data []byte
	n    int
}

func (r *region) Capacity() int { return len(r.data) }
func (r *region) Len() int      { return r.n }

// Bytes returns the filled part of the buffer. The slice aliases the
// buffer's memory and is only valid until the buffer is released.
func (r *region) Bytes() []byte { return r.data[:r.n] }

// Remaining returns the number of bytes that can still be written.
func (r *region) Remaining() int { return len(r.data) - r.n }

func (r *region) write(p []byte) (int, error) {
	n := copy(r.data[r.n:], p)
	r.n += n
	if n < len(p) {
		return n, ErrBufferFull
	}
	return n, nil
}

var (
	_ Buffer = (*ArrayBuffer)(nil)
	_ Buffer = (*IndirectBuffer)(nil)
	_ Buffer = (*DirectBuffer)(nil)
)
