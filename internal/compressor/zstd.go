package compressor

import (
	"github.com/klauspost/compress/zstd"
)

// maxDecodedSize 限制单次解压的输出大小，与帧大小上限一致。
const maxDecodedSize = 16 << 20

// ZstdCompressor 基于 github.com/klauspost/compress/zstd，持有独立的 encoder/decoder。
// EncodeAll/DecodeAll 可并发调用。
type ZstdCompressor struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

var _ Compressor = (*ZstdCompressor)(nil)

// NewZstdCompressor 使用默认并发度（GOMAXPROCS）创建压缩器。
func NewZstdCompressor() (*ZstdCompressor, error) {
	return NewZstdCompressorWithConcurrency(0)
}

// NewZstdCompressorWithConcurrency 创建压缩器，concurrency <= 0 时使用 zstd 的默认并发度。
func NewZstdCompressorWithConcurrency(concurrency int) (*ZstdCompressor, error) {
	eopts := []zstd.EOption{zstd.WithZeroFrames(true)}
	dopts := []zstd.DOption{zstd.WithDecoderMaxMemory(maxDecodedSize)}
	if concurrency > 0 {
		eopts = append(eopts, zstd.WithEncoderConcurrency(concurrency))
		dopts = append(dopts, zstd.WithDecoderConcurrency(concurrency))
	}

	enc, err := zstd.NewWriter(nil, eopts...)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil, dopts...)
	if err != nil {
		enc.Close()
		return nil, err
	}
	return &ZstdCompressor{enc: enc, dec: dec}, nil
}

func (c *ZstdCompressor) Compress(dst, src []byte) ([]byte, error) {
	if c == nil || c.enc == nil {
		return nil, zstd.ErrEncoderClosed
	}
	return c.enc.EncodeAll(src, dst[:0]), nil
}

func (c *ZstdCompressor) Decompress(dst, src []byte) ([]byte, error) {
	if c == nil || c.dec == nil {
		return nil, zstd.ErrDecoderClosed
	}
	return c.dec.DecodeAll(src, dst[:0])
}

// Close 释放 encoder/decoder，之后的调用返回 ErrEncoderClosed/ErrDecoderClosed。
func (c *ZstdCompressor) Close() {
	if c == nil {
		return
	}
	if c.enc != nil {
		_ = c.enc.Close()
		c.enc = nil
	}
	if c.dec != nil {
		c.dec.Close()
		c.dec = nil
	}
}
