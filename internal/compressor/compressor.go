package compressor

// Compressor 抽象了帧载荷的单次压缩/解压能力。
//
// 是否压缩由调用方决定，实现本身不做阈值判断。
type Compressor interface {
	// Compress 将 src 压缩后追加到 dst[:0]，返回完整的压缩数据。
	Compress(dst, src []byte) (packet []byte, err error)

	// Decompress 与 Compress 对称，src 必须是 Compress 的输出。
	Decompress(dst, src []byte) (plain []byte, err error)
}

// NopCompressor 直接返回输入，用于关闭压缩。
type NopCompressor struct{}

func (NopCompressor) Compress(_ []byte, src []byte) ([]byte, error) {
	return src, nil
}

func (NopCompressor) Decompress(_ []byte, src []byte) ([]byte, error) {
	return src, nil
}

var _ Compressor = NopCompressor{}
