package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTypes() Types {
	return Types{
		HeaderKind: KindByteArray,
		HeaderSize: 1024,
		BodyKind:   KindDirect,
		BodySize:   2048,
		OtherKind:  KindIndirect,
	}
}

// ============================================================================
// Allocation Tests
// ============================================================================

func TestFactoryAllocate(t *testing.T) {
	f := NewFactory(testTypes())

	t.Run("Header", func(t *testing.T) {
		b, err := f.NewHeader()
		require.NoError(t, err)
		assert.IsType(t, &ArrayBuffer{}, b)
		assert.Equal(t, KindByteArray, b.Kind())
		assert.Equal(t, RoleHeader, b.Role())
		assert.Equal(t, 1024, b.Capacity())
	})

	t.Run("Body", func(t *testing.T) {
		b, err := f.NewBody()
		require.NoError(t, err)
		assert.IsType(t, &DirectBuffer{}, b)
		assert.Equal(t, KindDirect, b.Kind())
		assert.Equal(t, RoleBody, b.Role())
		assert.Equal(t, 2048, b.Capacity())
	})

	t.Run("Other", func(t *testing.T) {
		b, err := f.NewOther(300)
		require.NoError(t, err)
		assert.IsType(t, &IndirectBuffer{}, b)
		assert.Equal(t, KindIndirect, b.Kind())
		assert.Equal(t, RoleBody, b.Role())
		assert.Equal(t, 300, b.Capacity())
	})

	t.Run("NegativeSize", func(t *testing.T) {
		_, err := f.NewOther(-5)
		assert.ErrorIs(t, err, ErrInvalidSize)
	})

	t.Run("UnknownKindPanics", func(t *testing.T) {
		assert.Panics(t, func() {
			_, _ = f.Allocate(StorageKind(9), 16, RoleBody)
		})
	})
}

func TestFactoryDowngrade(t *testing.T) {
	f := NewFactory(testTypes())

	t.Run("HeaderNotDirect", func(t *testing.T) {
		assert.False(t, f.Downgrade(RoleHeader))
		assert.Equal(t, KindByteArray, f.Kind(RoleHeader))
	})

	t.Run("BodyOneWay", func(t *testing.T) {
		assert.Equal(t, KindDirect, f.Kind(RoleBody))
		assert.True(t, f.Downgrade(RoleBody))
		assert.Equal(t, KindByteArray, f.Kind(RoleBody))
		assert.False(t, f.Downgrade(RoleBody))

		b, err := f.NewBody()
		require.NoError(t, err)
		assert.IsType(t, &ArrayBuffer{}, b)

		// configured kinds are untouched
		assert.Equal(t, KindDirect, f.Types().BodyKind)
	})
}

// ============================================================================
// Classification Tests
// ============================================================================

func TestFactoryClassify(t *testing.T) {
	t.Run("FreshBuffers", func(t *testing.T) {
		f := NewFactory(testTypes())
		header, _ := f.NewHeader()
		body, _ := f.NewBody()
		other, _ := f.NewOther(300)

		assert.True(t, f.Classify(header, RoleHeader))
		assert.False(t, f.Classify(header, RoleBody))
		assert.True(t, f.Classify(body, RoleBody))
		assert.False(t, f.Classify(body, RoleHeader))
		assert.False(t, f.Classify(other, RoleHeader))
		assert.False(t, f.Classify(other, RoleBody))
		assert.False(t, f.Classify(nil, RoleBody))
	})

	t.Run("IndirectIsNotByteArray", func(t *testing.T) {
		f := NewFactory(testTypes())
		b := NewIndirectBuffer(1024)
		b.SetRole(RoleHeader)
		assert.False(t, f.Classify(b, RoleHeader))

		// a forged tag on the wrong concrete type is rejected too
		b.kind = KindByteArray
		assert.False(t, f.Classify(b, RoleHeader))
	})

	t.Run("OtherSizedWithMatchingKind", func(t *testing.T) {
		types := testTypes()
		types.OtherKind = KindByteArray
		f := NewFactory(types)

		b, _ := f.NewOther(1024)
		b.SetRole(RoleHeader)
		assert.True(t, f.Classify(b, RoleHeader))

		b, _ = f.NewOther(512)
		b.SetRole(RoleHeader)
		assert.False(t, f.Classify(b, RoleHeader))
	})

	t.Run("DowngradeKeepsBothKinds", func(t *testing.T) {
		f := NewFactory(testTypes())
		before, _ := f.NewBody()
		require.True(t, f.Downgrade(RoleBody))
		after, _ := f.NewBody()

		assert.Equal(t, KindDirect, before.Kind())
		assert.Equal(t, KindByteArray, after.Kind())
		assert.True(t, f.Classify(before, RoleBody))
		assert.True(t, f.Classify(after, RoleBody))

		indirect := NewIndirectBuffer(2048)
		indirect.SetRole(RoleBody)
		assert.False(t, f.Classify(indirect, RoleBody))
	})
}

func TestFactoryString(t *testing.T) {
	f := NewFactory(testTypes())
	assert.Equal(t, "Factory [header=byte_array/1024 body=direct/2048 other=indirect]", f.String())
}
