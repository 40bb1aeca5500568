package buffer

import (
	"fmt"
	"sync/atomic"
)

// Types configures the storage kinds and sizes a Factory produces.
type Types struct {
	HeaderKind StorageKind
	HeaderSize int
	BodyKind   StorageKind
	BodySize   int
	OtherKind  StorageKind
}

// Factory creates buffers for each role and decides which pool queue a
// returned buffer belongs to.
//
// Header and body each carry a current kind, initialized from Types. The
// current kind can be downgraded once from KindDirect to KindByteArray when
// the direct memory budget runs out; it never moves back.
type Factory struct {
	types Types

	headerKind atomic.Int32
	bodyKind   atomic.Int32
}

// NewFactory creates a factory for the given types.
func NewFactory(types Types) *Factory {
	f := &Factory{types: types}
	f.headerKind.Store(int32(types.HeaderKind))
	f.bodyKind.Store(int32(types.BodyKind))
	return f
}

// Types returns the configured types. Downgrades are not reflected.
func (f *Factory) Types() Types { return f.types }

func (f *Factory) HeaderSize() int { return f.types.HeaderSize }

func (f *Factory) BodySize() int { return f.types.BodySize }

func (f *Factory) OtherKind() StorageKind { return f.types.OtherKind }

// Kind returns the role's current kind.
func (f *Factory) Kind(role ServiceRole) StorageKind {
	return StorageKind(f.current(role).Load())
}

// Downgrade switches the role's current kind from KindDirect to
// KindByteArray. It reports whether this call performed the switch.
func (f *Factory) Downgrade(role ServiceRole) bool {
	return f.current(role).CompareAndSwap(int32(KindDirect), int32(KindByteArray))
}

// Size returns the capacity of buffers created for role.
func (f *Factory) Size(role ServiceRole) int {
	if role == RoleHeader {
		return f.types.HeaderSize
	}
	return f.types.BodySize
}

func (f *Factory) current(role ServiceRole) *atomic.Int32 {
	if role == RoleHeader {
		return &f.headerKind
	}
	return &f.bodyKind
}

func (f *Factory) configured(role ServiceRole) StorageKind {
	if role == RoleHeader {
		return f.types.HeaderKind
	}
	return f.types.BodyKind
}

// NewHeader allocates a header buffer with the header's current kind.
func (f *Factory) NewHeader() (Buffer, error) {
	return f.Allocate(f.Kind(RoleHeader), f.types.HeaderSize, RoleHeader)
}

// NewBody allocates a body buffer with the body's current kind.
func (f *Factory) NewBody() (Buffer, error) {
	return f.Allocate(f.Kind(RoleBody), f.types.BodySize, RoleBody)
}

// NewOther allocates a buffer of arbitrary size with the other kind. Such
// buffers are tagged RoleBody.
func (f *Factory) NewOther(size int) (Buffer, error) {
	return f.Allocate(f.types.OtherKind, size, RoleBody)
}

// Allocate creates a buffer of the given kind, size and role. It panics if
// kind is not a known StorageKind.
func (f *Factory) Allocate(kind StorageKind, size int, role ServiceRole) (Buffer, error) {
	if size < 0 {
		return nil, fmt.Errorf("allocate %s buffer of %d bytes: %w", kind, size, ErrInvalidSize)
	}

	switch kind {
	case KindByteArray:
		b := NewArrayBuffer(size)
		b.role = role
		return b, nil
	case KindDirect:
		b, err := NewDirectBuffer(size)
		if err != nil {
			return nil, err
		}
		b.role = role
		return b, nil
	case KindIndirect:
		b := NewIndirectBuffer(size)
		b.role = role
		return b, nil
	default:
		panic(fmt.Sprintf("buffer: unknown storage kind %d", int32(kind)))
	}
}

// Classify reports whether b belongs in the pool queue of role. The
// buffer's role must match, its kind tag must match its concrete type, its
// capacity must equal the role's size, and its kind must be either the
// role's configured kind or its current kind. The last rule keeps buffers
// created before and after a downgrade in the same queue.
func (f *Factory) Classify(b Buffer, role ServiceRole) bool {
	if b == nil || b.Role() != role || !tagMatchesType(b) {
		return false
	}
	if b.Capacity() != f.Size(role) {
		return false
	}
	k := b.Kind()
	return k == f.configured(role) || k == f.Kind(role)
}

// tagMatchesType compares the kind tag with the concrete type. An
// IndirectBuffer is not a byte array buffer even though it embeds one.
func tagMatchesType(b Buffer) bool {
	switch b.(type) {
	case *IndirectBuffer:
		return b.Kind() == KindIndirect
	case *ArrayBuffer:
		return b.Kind() == KindByteArray
	case *DirectBuffer:
		return b.Kind() == KindDirect
	default:
		return false
	}
}

func (f *Factory) String() string {
	return fmt.Sprintf("Factory [header=%s/%d body=%s/%d other=%s]",
		f.Kind(RoleHeader), f.types.HeaderSize,
		f.Kind(RoleBody), f.types.BodySize,
		f.types.OtherKind)
}
