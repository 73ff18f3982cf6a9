package codec

import (
	"context"
	"encoding/binary"
	"io"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/lk2023060901/serde-go/internal/compressor"
	"github.com/lk2023060901/serde-go/internal/crypto"
	"github.com/lk2023060901/serde-go/internal/framer"
	"github.com/lk2023060901/serde-go/internal/serializer"
	"github.com/lk2023060901/serde-go/pkg/log"
	"github.com/lk2023060901/serde-go/pkg/metrics"
	"github.com/lk2023060901/serde-go/pkg/serde"
	"github.com/lk2023060901/serde-go/pkg/util/merr"
)

// Codec 负责值与网络帧之间的完整转换。
//
// Pipeline（写出 Encode）：
//
//	value --> serializer --> [compress?] --> [encrypt?] --> Envelope{Header+Payload} --> framer.WriteFrame
//
// Pipeline（读入 Decode）：
//
//	framer.ReadFrame --> Envelope{Header+Payload} --> [decrypt?] --> [decompress?] --> serializer --> visitor
type Codec interface {
	// Encode 使用配置的格式编码 v 并写出一帧。
	Encode(ctx context.Context, w io.Writer, v serde.Serialize) error

	// Decode 读取一帧并把载荷推送给 v，载荷格式以帧头为准。
	Decode(ctx context.Context, r io.Reader, v serde.Visitor) (*framer.Header, error)

	// DecodeRaw 读取一帧，返回帧头和已解密、解压的载荷。
	DecodeRaw(ctx context.Context, r io.Reader) (*framer.Header, []byte, error)

	Close() error
}

// Options 用于构造 Codec 的依赖注入参数。
type Options struct {
	Framer     framer.Framer
	Serializer serializer.Serializer
	Compressor compressor.Compressor // 允许为 nil（内部会用 NopCompressor）
	Encryptor  crypto.Encryptor      // 允许为 nil（内部会用 NopEncryptor）

	EnableCompression bool
	EnableEncryption  bool
	MinCompressSize   int
}

type codec struct {
	log.Binder

	framer     framer.Framer
	serializer serializer.Serializer
	compressor compressor.Compressor
	encryptor  crypto.Encryptor

	compress        bool
	encrypt         bool
	minCompressSize int

	seq atomic.Uint64
}

var _ Codec = (*codec)(nil)

// New 创建一个基于给定依赖的 Codec。
func New(opts Options) (Codec, error) {
	return newCodec(opts)
}

func newCodec(opts Options) (*codec, error) {
	if opts.Framer == nil {
		return nil, merr.WrapErrParameterInvalidMsg("codec: framer is nil")
	}
	if opts.Serializer == nil {
		return nil, merr.WrapErrParameterInvalidMsg("codec: serializer is nil")
	}

	c := &codec{
		framer:          opts.Framer,
		serializer:      opts.Serializer,
		compressor:      opts.Compressor,
		encryptor:       opts.Encryptor,
		compress:        opts.EnableCompression,
		encrypt:         opts.EnableEncryption,
		minCompressSize: opts.MinCompressSize,
	}
	if c.compressor == nil {
		c.compressor = compressor.NopCompressor{}
	}
	if c.encryptor == nil {
		c.encryptor = crypto.NopEncryptor{}
	}
	c.SetLogger(log.With(log.FieldComponent("codec"), log.FieldFormat(c.serializer.Kind().String())))
	return c, nil
}

// NewFromConfig 按配置构造 Codec。启用加密且 encryptor 为 nil 时使用配置中的密钥。
func NewFromConfig(cfg *Config, encryptor crypto.Encryptor) (Codec, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s, err := serializer.ByName(cfg.Format)
	if err != nil {
		return nil, err
	}
	if cfg.Encryption.Enable && encryptor == nil {
		if cfg.Encryption.Key == "" {
			return nil, merr.WrapErrParameterInvalidMsg("codec: encryption enabled without encryptor or key")
		}
		e, err := crypto.NewAESGCMHMACEncryptorFromHex(cfg.Encryption.Key, cfg.Encryption.MACKey)
		if err != nil {
			return nil, merr.WrapErrParameterInvalidMsg("codec: encryption keys: %v", err)
		}
		encryptor = e
	}

	opts := Options{
		Framer:            framer.NewLengthPrefixedFramer(cfg.MaxFrameSize),
		Serializer:        s,
		Encryptor:         encryptor,
		EnableCompression: cfg.Compression.Enable,
		EnableEncryption:  cfg.Encryption.Enable,
		MinCompressSize:   cfg.Compression.MinSize,
	}
	if cfg.Compression.Enable {
		zc, err := compressor.NewZstdCompressorWithConcurrency(cfg.Compression.Concurrency)
		if err != nil {
			return nil, errors.Wrap(err, "codec: create zstd compressor")
		}
		opts.Compressor = zc
	}

	c, err := newCodec(opts)
	if err != nil {
		return nil, err
	}
	if cfg.Log != nil {
		lg, _, err := log.InitLogger(cfg.Log)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.SetLogger(&log.MLogger{Logger: lg.With(log.FieldComponent("codec"), log.FieldFormat(s.Kind().String()))})
	}
	return c, nil
}

// Close 释放压缩器持有的资源。
func (c *codec) Close() error {
	if zc, ok := c.compressor.(*compressor.ZstdCompressor); ok {
		zc.Close()
	}
	return nil
}

func (c *codec) Encode(ctx context.Context, w io.Writer, v serde.Serialize) error {
	start := time.Now()
	format := c.serializer.Kind().String()
	size, err := c.encode(w, v)
	c.observe(ctx, metrics.DirectionEncode, format, size, start, err)
	return err
}

func (c *codec) encode(w io.Writer, v serde.Serialize) (int, error) {
	if w == nil {
		return 0, merr.WrapErrParameterInvalidMsg("codec: writer is nil")
	}
	if v == nil {
		return 0, merr.WrapErrParameterInvalidMsg("codec: value is nil")
	}

	body, err := c.serializer.Marshal(v)
	if err != nil {
		return 0, err
	}

	header := framer.Header{
		Version:   framer.ProtocolVersion.String(),
		Format:    c.serializer.Kind(),
		Seq:       c.seq.Inc(),
		Timestamp: time.Now().UnixMilli(),
	}

	if c.compress && len(body) > 0 && len(body) >= c.minCompressSize {
		compressed, err := c.compressor.Compress(nil, body)
		if err != nil {
			return 0, merr.WrapErrFrameTransformation("compress", err)
		}
		body = compressed
		header.Flags |= framer.FlagCompressed
	}

	if c.encrypt {
		header.Flags |= framer.FlagEncrypted
		packet, err := c.encryptor.Encrypt(body, buildAAD(&header))
		if err != nil {
			return 0, merr.WrapErrFrameTransformation("encrypt", err)
		}
		body = packet
	}

	if err := c.framer.WriteFrame(w, &framer.Envelope{Header: header, Payload: body}); err != nil {
		return 0, err
	}
	return len(body), nil
}

func (c *codec) DecodeRaw(ctx context.Context, r io.Reader) (*framer.Header, []byte, error) {
	start := time.Now()
	header, data, size, err := c.decodeFrame(r)
	c.observe(ctx, metrics.DirectionDecode, formatOf(header), size, start, err)
	return header, data, err
}

func (c *codec) Decode(ctx context.Context, r io.Reader, v serde.Visitor) (*framer.Header, error) {
	start := time.Now()
	header, data, size, err := c.decodeFrame(r)
	if err == nil {
		err = c.unmarshal(header, data, v)
	}
	c.observe(ctx, metrics.DirectionDecode, formatOf(header), size, start, err)
	if err != nil {
		return nil, err
	}
	return header, nil
}

func (c *codec) unmarshal(header *framer.Header, data []byte, v serde.Visitor) error {
	if v == nil {
		return merr.WrapErrParameterInvalidMsg("codec: visitor is nil")
	}
	s := c.serializer
	if header.Format != s.Kind() {
		var err error
		if s, err = serializer.New(header.Format); err != nil {
			return err
		}
	}
	return s.Unmarshal(data, v)
}

// decodeFrame 读取一帧并还原载荷明文，size 为线上载荷字节数。
func (c *codec) decodeFrame(r io.Reader) (*framer.Header, []byte, int, error) {
	if r == nil {
		return nil, nil, 0, merr.WrapErrParameterInvalidMsg("codec: reader is nil")
	}

	env, err := c.framer.ReadFrame(r)
	if err != nil {
		return nil, nil, 0, err
	}
	header := &env.Header
	data := env.Payload
	size := len(data)

	if header.Flags&framer.FlagEncrypted != 0 {
		if !c.encrypt {
			return header, nil, size, merr.WrapErrFrameFlags(header.Flags, "encrypted payload but encryption disabled")
		}
		plain, err := c.encryptor.Decrypt(data, buildAAD(header))
		if err != nil {
			return header, nil, size, merr.WrapErrFrameTransformation("decrypt", err)
		}
		data = plain
	}

	if header.Flags&framer.FlagCompressed != 0 {
		if !c.compress {
			return header, nil, size, merr.WrapErrFrameFlags(header.Flags, "compressed payload but compression disabled")
		}
		plain, err := c.compressor.Decompress(nil, data)
		if err != nil {
			return header, nil, size, merr.WrapErrFrameTransformation("decompress", err)
		}
		data = plain
	}

	return header, data, size, nil
}

func (c *codec) observe(ctx context.Context, direction, format string, size int, start time.Time, err error) {
	metrics.CodecLatency.WithLabelValues(direction, format).Observe(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return
		}
		metrics.CodecFrames.WithLabelValues(direction, format, metrics.FailLabel).Inc()
		metrics.CodecErrors.WithLabelValues(direction, strconv.Itoa(int(merr.Code(err)))).Inc()
		c.Logger().With(zap.String("direction", direction)).
			WithRateGroup("codec."+direction, 1, 60).
			RatedWarn(1, "codec failed", zap.Error(err))
		return
	}
	metrics.CodecFrames.WithLabelValues(direction, format, metrics.SuccessLabel).Inc()
	metrics.CodecFrameBytes.WithLabelValues(direction, format).Observe(float64(size))
	log.Ctx(ctx).Debug("codec frame", zap.String("direction", direction), log.FieldFormat(format), log.FieldFrameSize(size))
}

func formatOf(h *framer.Header) string {
	if h == nil {
		return "unknown"
	}
	return h.Format.String()
}

// buildAAD 将帧头中与完整性相关的字段编码为 AAD：
// format(uint32) | seq(uint64) | flags(uint64) | timestamp(int64)。
// 不包含 size，避免与载荷最终长度循环依赖。
func buildAAD(h *framer.Header) []byte {
	var buf [28]byte
	binary.BigEndian.PutUint32(buf[0:4], uint32(h.Format))
	binary.BigEndian.PutUint64(buf[4:12], h.Seq)
	binary.BigEndian.PutUint64(buf[12:20], h.Flags)
	binary.BigEndian.PutUint64(buf[20:28], uint64(h.Timestamp))
	return buf[:]
}

// DecodeValue 读取一帧并解码为 T。
func DecodeValue[T any](ctx context.Context, c Codec, r io.Reader, b serde.Binding[T]) (T, *framer.Header, error) {
	var out T
	p := serde.NewPlace(&out)
	header, err := c.Decode(ctx, r, b(p))
	if err != nil {
		return out, nil, err
	}
	if !p.Filled() {
		return out, header, merr.WrapErrValueNotProduced("frame payload")
	}
	return out, header, nil
}
