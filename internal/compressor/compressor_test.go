package compressor

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNop(t *testing.T) {
	src := []byte("payload")
	out, err := NopCompressor{}.Compress(nil, src)
	require.NoError(t, err)
	assert.Equal(t, src, out)
	out, err = NopCompressor{}.Decompress(nil, out)
	require.NoError(t, err)
	assert.Equal(t, src, out)
}

func TestZstd(t *testing.T) {
	c, err := NewZstdCompressorWithConcurrency(2)
	require.NoError(t, err)
	defer c.Close()

	src := bytes.Repeat([]byte(`{"1:name":"Steven","2:age":27}`), 64)
	packed, err := c.Compress(nil, src)
	require.NoError(t, err)
	assert.Less(t, len(packed), len(src))

	plain, err := c.Decompress(make([]byte, 0, 16), packed)
	require.NoError(t, err)
	assert.Equal(t, src, plain)

	empty, err := c.Compress(nil, nil)
	require.NoError(t, err)
	plain, err = c.Decompress(nil, empty)
	require.NoError(t, err)
	assert.Empty(t, plain)

	_, err = c.Decompress(nil, []byte("not zstd"))
	assert.Error(t, err)
}

func TestZstdClosed(t *testing.T) {
	c, err := NewZstdCompressor()
	require.NoError(t, err)
	c.Close()
	c.Close()

	_, err = c.Compress(nil, []byte("x"))
	assert.ErrorIs(t, err, zstd.ErrEncoderClosed)
	_, err = c.Decompress(nil, []byte("x"))
	assert.ErrorIs(t, err, zstd.ErrDecoderClosed)
}
