package buffer

import (
	"fmt"
	"runtime"
)

// DirectBuffer is backed by memory mapped outside the Go heap. The mapping
// is released by a cleanup once the buffer becomes unreachable, so callers
// must not keep slices returned by Bytes past the buffer's lifetime.
type DirectBuffer struct {
	meta
	region
}

// NewDirectBuffer maps size bytes of direct memory. Failures wrap
// ErrAllocation.
func NewDirectBuffer(size int) (*DirectBuffer, error) {
	if size < 0 {
		return nil, fmt.Errorf("direct buffer of %d bytes: %w", size, ErrInvalidSize)
	}

	b := &DirectBuffer{}
	b.kind = KindDirect
	if size == 0 {
		b.data = []byte{}
		return b, nil
	}

	mem, err := mapMemory(size)
	if err != nil {
		return nil, err
	}
	b.data = mem
	runtime.AddCleanup(b, unmapMemory, mem)
	return b, nil
}

// Write appends p up to the remaining capacity. A short write returns
// ErrBufferFull.
func (b *DirectBuffer) Write(p []byte) (int, error) {
	if b.immutable {
		return 0, ErrImmutable
	}
	return b.write(p)
}

func (b *DirectBuffer) Clear() {
	if b.immutable {
		return
	}
	b.n = 0
}
