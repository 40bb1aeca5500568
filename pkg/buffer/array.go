package buffer

// ArrayBuffer is a buffer backed by a Go heap slice.
type ArrayBuffer struct {
	meta
	region
}

// NewArrayBuffer allocates a heap buffer of the given capacity. It panics if
// size is negative.
func NewArrayBuffer(size int) *ArrayBuffer {
	b := &ArrayBuffer{}
	b.kind = KindByteArray
	b.data = make([]byte, size)
	return b
}

// WrapArray returns a volatile buffer viewing data, filled to len(data).
// The pool never keeps such a buffer.
func WrapArray(data []byte) *ArrayBuffer {
	b := &ArrayBuffer{}
	b.kind = KindByteArray
	b.data = data
	b.n = len(data)
	b.volatile = true
	return b
}

// Array returns the whole backing array regardless of fill level.
func (b *ArrayBuffer) Array() []byte { return b.data }

// Write appends p up to the remaining capacity. A short write returns
// ErrBufferFull.
func (b *ArrayBuffer) Write(p []byte) (int, error) {
	if b.immutable {
		return 0, ErrImmutable
	}
	return b.write(p)
}

// Clear resets the fill level.
func (b *ArrayBuffer) Clear() {
	if b.immutable {
		return
	}
	b.n = 0
}
