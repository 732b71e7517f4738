package bytesize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want ByteSize
	}{
		{"0", 0},
		{"4096", 4096},
		{"64k", 64 * KB},
		{"64K", 64 * KB},
		{"64KB", 64 * KB},
		{"64Ki", 64 * KiB},
		{"64KiB", 64 * KiB},
		{"2M", 2 * MB},
		{"2Mi", 2 * MiB},
		{"1G", 1 * GB},
		{"1GiB", 1 * GiB},
		{" 512 b ", 512},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{"", "K", "12X", "-5K", "1.5M", "lots"} {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			assert.Error(t, err)
		})
	}
}

func TestUnmarshalText(t *testing.T) {
	var b ByteSize
	require.NoError(t, b.UnmarshalText([]byte("64Ki")))
	assert.Equal(t, 64*KiB, b)

	assert.Error(t, b.UnmarshalText([]byte("nope")))
}

func TestString(t *testing.T) {
	assert.Equal(t, "64Ki", (64 * KiB).String())
	assert.Equal(t, "2Mi", (2 * MiB).String())
	assert.Equal(t, "1Gi", (1 * GiB).String())
	assert.Equal(t, "1000", KB.String())
	assert.Equal(t, "0", ByteSize(0).String())
}
