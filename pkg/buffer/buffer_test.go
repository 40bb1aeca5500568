package buffer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Storage Kind Tests
// ============================================================================

func TestParseStorageKind(t *testing.T) {
	tests := []struct {
		input   string
		want    StorageKind
		wantErr bool
	}{
		{"byte_array", KindByteArray, false},
		{"array", KindByteArray, false},
		{"HEAP", KindByteArray, false},
		{"direct", KindDirect, false},
		{" Indirect ", KindIndirect, false},
		{"offheap", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseStorageKind(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStorageKindText(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		for _, k := range []StorageKind{KindByteArray, KindDirect, KindIndirect} {
			text, err := k.MarshalText()
			require.NoError(t, err)

			var got StorageKind
			require.NoError(t, got.UnmarshalText(text))
			assert.Equal(t, k, got)
		}
	})

	t.Run("InvalidKindDoesNotMarshal", func(t *testing.T) {
		_, err := StorageKind(42).MarshalText()
		assert.Error(t, err)
		assert.Equal(t, "unknown(42)", StorageKind(42).String())
	})
}

// ============================================================================
// Buffer Tests
// ============================================================================

func TestBufferWrite(t *testing.T) {
	newBuffers := func(t *testing.T) map[string]interface {
		Buffer
		Write([]byte) (int, error)
		Bytes() []byte
	} {
		direct, err := NewDirectBuffer(8)
		require.NoError(t, err)
		return map[string]interface {
			Buffer
			Write([]byte) (int, error)
			Bytes() []byte
		}{
			"Array":    NewArrayBuffer(8),
			"Indirect": NewIndirectBuffer(8),
			"Direct":   direct,
		}
	}

	for name, b := range newBuffers(t) {
		t.Run(name, func(t *testing.T) {
			n, err := b.Write([]byte("abc"))
			require.NoError(t, err)
			assert.Equal(t, 3, n)
			assert.Equal(t, 3, b.Len())
			assert.Equal(t, 8, b.Capacity())
			assert.Equal(t, []byte("abc"), b.Bytes())

			n, err = b.Write([]byte("defghijk"))
			assert.True(t, errors.Is(err, ErrBufferFull))
			assert.Equal(t, 5, n)
			assert.Equal(t, 8, b.Len())

			b.Clear()
			assert.Equal(t, 0, b.Len())
			assert.Equal(t, 8, b.Capacity())
		})
	}
}

func TestBufferFlags(t *testing.T) {
	t.Run("ImmutableRejectsWriteAndClear", func(t *testing.T) {
		b := NewArrayBuffer(4)
		_, err := b.Write([]byte("ab"))
		require.NoError(t, err)

		b.MarkImmutable()
		assert.True(t, b.IsImmutable())

		_, err = b.Write([]byte("c"))
		assert.ErrorIs(t, err, ErrImmutable)

		b.Clear()
		assert.Equal(t, 2, b.Len())
	})

	t.Run("WrapArrayIsVolatile", func(t *testing.T) {
		b := WrapArray([]byte("hello"))
		assert.True(t, b.IsVolatile())
		assert.Equal(t, 5, b.Len())
		assert.Equal(t, 5, b.Capacity())
	})

	t.Run("LastUsedStartsUnset", func(t *testing.T) {
		b := NewIndirectBuffer(4)
		assert.Equal(t, int64(0), b.LastUsed())
		b.SetLastUsed(1234)
		assert.Equal(t, int64(1234), b.LastUsed())
	})

	t.Run("IndirectExposesArray", func(t *testing.T) {
		b := NewIndirectBuffer(16)
		assert.Len(t, b.Array(), 16)
		assert.Equal(t, KindIndirect, b.Kind())
	})
}

func TestDirectBuffer(t *testing.T) {
	t.Run("ZeroSize", func(t *testing.T) {
		b, err := NewDirectBuffer(0)
		require.NoError(t, err)
		assert.Equal(t, 0, b.Capacity())
	})

	t.Run("NegativeSize", func(t *testing.T) {
		_, err := NewDirectBuffer(-1)
		assert.ErrorIs(t, err, ErrInvalidSize)
	})

	t.Run("MemoryIsWritable", func(t *testing.T) {
		b, err := NewDirectBuffer(4096)
		require.NoError(t, err)
		payload := make([]byte, 4096)
		for i := range payload {
			payload[i] = byte(i)
		}
		n, err := b.Write(payload)
		require.NoError(t, err)
		assert.Equal(t, 4096, n)
		assert.Equal(t, payload, b.Bytes())
	})
}
