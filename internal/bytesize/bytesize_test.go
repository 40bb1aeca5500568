package bytesize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ByteSize
		wantErr bool
	}{
		{"PlainNumber", "1024", 1024, false},
		{"Zero", "0", 0, false},
		{"Bytes", "512B", 512, false},
		{"KiB", "16KiB", 16 * KiB, false},
		{"KiShort", "6Ki", 6 * KiB, false},
		{"LowerCase", "40kib", 40 * KiB, false},
		{"DecimalKB", "2KB", 2000, false},
		{"DecimalK", "3k", 3000, false},
		{"MiB", "1MiB", MiB, false},
		{"GiB", "2GiB", 2 * GiB, false},
		{"Fraction", "1.5KiB", 1536, false},
		{"Spaces", "  8 KiB  ", 8 * KiB, false},
		{"Empty", "", 0, true},
		{"Whitespace", "   ", 0, true},
		{"Negative", "-1", 0, true},
		{"UnknownUnit", "5XB", 0, true},
		{"Garbage", "lots", 0, true},
		{"Overflow", "99999999999GiB", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestByteSize_Text(t *testing.T) {
	t.Run("String", func(t *testing.T) {
		assert.Equal(t, "0", ByteSize(0).String())
		assert.Equal(t, "100B", ByteSize(100).String())
		assert.Equal(t, "6KiB", (6 * KiB).String())
		assert.Equal(t, "1536B", ByteSize(1536).String())
		assert.Equal(t, "16MiB", (16 * MiB).String())
		assert.Equal(t, "3GiB", (3 * GiB).String())
	})

	t.Run("RoundTrip", func(t *testing.T) {
		for _, v := range []ByteSize{0, 1, 1000, KiB, 40 * KiB, 1536, 7 * MiB, GiB} {
			text, err := v.MarshalText()
			require.NoError(t, err)

			var got ByteSize
			require.NoError(t, got.UnmarshalText(text))
			assert.Equal(t, v, got, "round trip of %s", text)
		}
	})

	t.Run("UnmarshalError", func(t *testing.T) {
		var b ByteSize
		assert.Error(t, b.UnmarshalText([]byte("nope")))
	})
}

func TestByteSize_Conversions(t *testing.T) {
	assert.Equal(t, 16384, (16 * KiB).Int())
	assert.Equal(t, int64(16384), (16 * KiB).Int64())
	assert.Equal(t, int64(40), (40 * KiB).KiB())
	assert.Equal(t, int64(2), ByteSize(1025).KiB())
	assert.Equal(t, int64(0), ByteSize(0).KiB())
}
