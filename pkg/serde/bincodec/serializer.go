package bincodec

import (
	"bytes"
	"io"
	"math"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/lk2023060901/serde-go/pkg/serde"
	"github.com/lk2023060901/serde-go/pkg/util/merr"
)

const flushThreshold = 4096

// Serializer 以最窄的无损表示输出二进制格式。
type Serializer struct {
	w       io.Writer
	buf     bytes.Buffer
	enc     *msgpack.Encoder
	written int64
	// remaining 记录每一层聚合还应写入的元素数，用于检查 Start 声明的长度。
	remaining []int
}

var _ serde.Serializer = (*Serializer)(nil)

// NewSerializer 创建写入 w 的 Serializer。w 为 nil 时输出保留在内部缓冲中，通过 Bytes 获取。
func NewSerializer(w io.Writer) *Serializer {
	s := &Serializer{w: w}
	s.enc = msgpack.NewEncoder(&s.buf)
	return s
}

func (s *Serializer) Bytes() []byte {
	return s.buf.Bytes()
}

// Reset 清空缓冲并切换到新的 writer，便于复用。
func (s *Serializer) Reset(w io.Writer) {
	s.w = w
	s.buf.Reset()
	s.written = 0
	s.remaining = s.remaining[:0]
}

func (s *Serializer) Flush() error {
	if s.w == nil || s.buf.Len() == 0 {
		return nil
	}
	n, err := s.w.Write(s.buf.Bytes())
	s.written += int64(n)
	if err != nil {
		return merr.WrapErrIoFailed(s.written, err)
	}
	s.buf.Reset()
	return nil
}

// emit 处理一次编码的结果：最外层的值写完或缓冲超过阈值时刷出。
func (s *Serializer) emit(err error) error {
	if err != nil {
		return merr.WrapErrIoFailed(s.written+int64(s.buf.Len()), err)
	}
	if len(s.remaining) == 0 || s.buf.Len() >= flushThreshold {
		return s.Flush()
	}
	return nil
}

func (s *Serializer) SerializeNull() error {
	return s.emit(s.enc.EncodeNil())
}

func (s *Serializer) SerializeBool(v bool) error {
	return s.emit(s.enc.EncodeBool(v))
}

func (s *Serializer) SerializeSigned(v int64) error {
	return s.emit(s.encodeSigned(v))
}

func (s *Serializer) SerializeUnsigned(v uint64) error {
	return s.emit(s.enc.EncodeUint(v))
}

// SerializeFloat 在值能经 float32 精确往返时使用 32 位表示。
func (s *Serializer) SerializeFloat(v float64) error {
	if f32 := float32(v); float64(f32) == v || math.IsNaN(v) {
		return s.emit(s.enc.EncodeFloat32(f32))
	}
	return s.emit(s.enc.EncodeFloat64(v))
}

func (s *Serializer) SerializeStr(v string) error {
	if uint64(len(v)) > math.MaxUint32 {
		return merr.WrapErrSerialize("string length exceeds 32 bits")
	}
	return s.emit(s.enc.EncodeString(v))
}

// SerializeEnum 只写 id。
func (s *Serializer) SerializeEnum(id uint32, _ string) error {
	return s.SerializeUnsigned(uint64(id))
}

func (s *Serializer) StartStruct(n int) error {
	if n < 0 || uint64(n) > math.MaxUint32 {
		return merr.WrapErrSerialize("record length exceeds 32 bits")
	}
	if err := s.enc.EncodeMapLen(n); err != nil {
		return merr.WrapErrIoFailed(s.written+int64(s.buf.Len()), err)
	}
	s.remaining = append(s.remaining, n)
	return nil
}

func (s *Serializer) SerializeStructField(id uint32, _ string, v serde.Serialize) error {
	if err := s.consume(); err != nil {
		return err
	}
	if err := s.enc.EncodeUint(uint64(id)); err != nil {
		return merr.WrapErrIoFailed(s.written+int64(s.buf.Len()), err)
	}
	return v.Serialize(s)
}

func (s *Serializer) EndStruct() error {
	return s.end()
}

func (s *Serializer) StartSeq(n int) error {
	if n < 0 || uint64(n) > math.MaxUint32 {
		return merr.WrapErrSerialize("sequence length exceeds 32 bits")
	}
	if err := s.enc.EncodeArrayLen(n); err != nil {
		return merr.WrapErrIoFailed(s.written+int64(s.buf.Len()), err)
	}
	s.remaining = append(s.remaining, n)
	return nil
}

func (s *Serializer) SerializeSeqElmt(v serde.Serialize) error {
	if err := s.consume(); err != nil {
		return err
	}
	return v.Serialize(s)
}

func (s *Serializer) EndSeq() error {
	return s.end()
}

func (s *Serializer) consume() error {
	top := len(s.remaining) - 1
	if top < 0 {
		return merr.WrapErrSerialize("element outside of aggregate")
	}
	if s.remaining[top] == 0 {
		return merr.WrapErrSerialize("more elements than declared")
	}
	s.remaining[top]--
	return nil
}

func (s *Serializer) end() error {
	top := len(s.remaining) - 1
	if top < 0 {
		return merr.WrapErrSerialize("unbalanced aggregate end")
	}
	if s.remaining[top] != 0 {
		return merr.WrapErrSerialize("fewer elements than declared")
	}
	s.remaining = s.remaining[:top]
	return s.emit(nil)
}

// encodeSigned 选择能容纳 v 的最窄有符号表示：[-32, 127] 使用 fixint，其余依次尝试 8/16/32/64 位。
// 不直接用 EncodeInt，它会把 128 以上的正数写成无符号标签。
func (s *Serializer) encodeSigned(v int64) error {
	switch {
	case v >= -32 && v <= math.MaxInt8:
		return s.enc.EncodeInt(v)
	case v >= math.MinInt8 && v <= math.MaxInt8:
		return s.enc.EncodeInt8(int8(v))
	case v >= math.MinInt16 && v <= math.MaxInt16:
		return s.enc.EncodeInt16(int16(v))
	case v >= math.MinInt32 && v <= math.MaxInt32:
		return s.enc.EncodeInt32(int32(v))
	default:
		return s.enc.EncodeInt64(v)
	}
}
