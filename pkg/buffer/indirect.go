package buffer

// IndirectBuffer wraps a heap array. It embeds ArrayBuffer, so every
// ArrayBuffer method (Array included) is promoted and the two types are
// structurally alike. Code that must tell them apart switches on the
// concrete type.
type IndirectBuffer struct {
	ArrayBuffer
}

// NewIndirectBuffer allocates an indirect buffer of the given capacity. It
// panics if size is negative.
func NewIndirectBuffer(size int) *IndirectBuffer {
	b := &IndirectBuffer{}
	b.kind = KindIndirect
	b.data = make([]byte, size)
	return b
}
