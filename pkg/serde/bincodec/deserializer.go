package bincodec

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"

	"github.com/lk2023060901/serde-go/pkg/serde"
	"github.com/lk2023060901/serde-go/pkg/util/merr"
)

type byteScanner interface {
	io.Reader
	io.ByteScanner
}

// countingReader 记录已消费的字节数。它实现 io.ByteScanner，msgpack.Decoder 因此不会再加一层缓冲。
type countingReader struct {
	src byteScanner
	off int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.src.Read(p)
	c.off += int64(n)
	return n, err
}

func (c *countingReader) ReadByte() (byte, error) {
	b, err := c.src.ReadByte()
	if err == nil {
		c.off++
	}
	return b, err
}

func (c *countingReader) UnreadByte() error {
	err := c.src.UnreadByte()
	if err == nil {
		c.off--
	}
	return err
}

// Deserializer 先 PeekCode 再按标签分派到 msgpack.Decoder 的对应方法，每次 Deserialize 调用消费一个值。
type Deserializer struct {
	in  *countingReader
	dec *msgpack.Decoder
}

var _ serde.Deserializer = (*Deserializer)(nil)

// NewDeserializer 从 r 读取。r 未实现 io.ByteScanner 时包装一层 bufio.Reader，
// 此时可能预读超过当前值的字节。
func NewDeserializer(r io.Reader) *Deserializer {
	src, ok := r.(byteScanner)
	if !ok {
		src = bufio.NewReader(r)
	}
	in := &countingReader{src: src}
	return &Deserializer{in: in, dec: msgpack.NewDecoder(in)}
}

func NewBytesDeserializer(data []byte) *Deserializer {
	return NewDeserializer(bytes.NewReader(data))
}

// Offset 返回已消费的字节数。
func (d *Deserializer) Offset() int64 {
	return d.in.off
}

func (d *Deserializer) ioErr(err error) error {
	return merr.WrapErrIoFailed(d.in.off, err)
}

func isUnsigned(code byte) bool {
	return code <= msgpcode.PosFixedNumHigh ||
		code == msgpcode.Uint8 || code == msgpcode.Uint16 || code == msgpcode.Uint32 || code == msgpcode.Uint64
}

func isSigned(code byte) bool {
	return code >= msgpcode.NegFixedNumLow ||
		code == msgpcode.Int8 || code == msgpcode.Int16 || code == msgpcode.Int32 || code == msgpcode.Int64
}

func isArray(code byte) bool {
	return msgpcode.IsFixedArray(code) || code == msgpcode.Array16 || code == msgpcode.Array32
}

func isMap(code byte) bool {
	return msgpcode.IsFixedMap(code) || code == msgpcode.Map16 || code == msgpcode.Map32
}

func (d *Deserializer) Deserialize(v serde.Visitor) error {
	start := d.in.off
	code, err := d.dec.PeekCode()
	if err != nil {
		return d.ioErr(err)
	}

	switch {
	case isUnsigned(code):
		n, err := d.dec.DecodeUint64()
		if err != nil {
			return d.ioErr(err)
		}
		return v.VisitUnsigned(n)
	case isSigned(code):
		n, err := d.dec.DecodeInt64()
		if err != nil {
			return d.ioErr(err)
		}
		return v.VisitSigned(n)
	case code == msgpcode.Nil:
		if err := d.dec.DecodeNil(); err != nil {
			return d.ioErr(err)
		}
		return v.VisitNull()
	case code == msgpcode.False || code == msgpcode.True:
		b, err := d.dec.DecodeBool()
		if err != nil {
			return d.ioErr(err)
		}
		return v.VisitBool(b)
	case code == msgpcode.Float:
		f, err := d.dec.DecodeFloat32()
		if err != nil {
			return d.ioErr(err)
		}
		return v.VisitFloat(float64(f))
	case code == msgpcode.Double:
		f, err := d.dec.DecodeFloat64()
		if err != nil {
			return d.ioErr(err)
		}
		return v.VisitFloat(f)
	case msgpcode.IsString(code):
		s, err := d.dec.DecodeString()
		if err != nil {
			return d.ioErr(err)
		}
		return v.VisitStr(s)
	case isArray(code):
		n, err := d.dec.DecodeArrayLen()
		if err != nil {
			return d.ioErr(err)
		}
		return d.seq(v, n)
	case isMap(code):
		n, err := d.dec.DecodeMapLen()
		if err != nil {
			return d.ioErr(err)
		}
		return d.record(v, n)
	default:
		return merr.WrapErrParsing(start, fmt.Sprintf("unknown tag %#02x", code))
	}
}

func (d *Deserializer) seq(v serde.Visitor, n int) error {
	b, err := v.VisitSeq(n)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		ev, err := b.Element()
		if err != nil {
			return err
		}
		if err := d.Deserialize(ev); err != nil {
			return err
		}
	}
	return b.Finish()
}

func (d *Deserializer) record(v serde.Visitor, n int) error {
	b, err := v.VisitStruct()
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		key := keyVisitor{UnimplementedVisitor: serde.UnimplementedVisitor{Target: "member key"}}
		if err := d.Deserialize(&key); err != nil {
			return err
		}
		mv, err := b.Member(key.key)
		if err != nil {
			return err
		}
		if err := d.Deserialize(mv); err != nil {
			return err
		}
	}
	return b.Finish()
}

// keyVisitor 解析记录成员键：无符号 id，或名称 / "id:name" 字符串。
type keyVisitor struct {
	serde.UnimplementedVisitor
	key serde.MemberKey
}

func (k *keyVisitor) VisitUnsigned(v uint64) error {
	if v > math.MaxUint32 {
		return merr.WrapErrIncompatibleNumericType("member id", v)
	}
	k.key = serde.KeyID(uint32(v))
	return nil
}

func (k *keyVisitor) VisitSigned(v int64) error {
	if v < 0 {
		return merr.WrapErrIncompatibleNumericType("member id", v)
	}
	return k.VisitUnsigned(uint64(v))
}

func (k *keyVisitor) VisitStr(s string) error {
	k.key = serde.ParseKey(s)
	return nil
}
